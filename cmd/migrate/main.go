// Command migrate aplica las migraciones SQL embebidas.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"

	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/config"
	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/observability/logger"
	migrations "github.com/Sergiovil64/gestion-tareas-modulo1/migrations/postgres"
)

func main() {
	configPath := flag.String("config", "", "ruta al archivo de configuración YAML")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.App.Log.Level, ServiceName: "migrate"})
	defer logger.Sync()
	log := logger.L()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	conn, err := pgx.Connect(ctx, cfg.Storage.DSN)
	if err != nil {
		log.Fatal("conectar a postgres", logger.Err(err))
	}
	defer conn.Close(ctx)

	// Tabla de control para no re-aplicar migraciones.
	if _, err := conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name       TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		log.Fatal("crear schema_migrations", logger.Err(err))
	}

	entries, err := migrations.FS.ReadDir(".")
	if err != nil {
		log.Fatal("leer migraciones embebidas", logger.Err(err))
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	applied := 0
	for _, name := range names {
		var exists bool
		if err := conn.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE name = $1)`, name,
		).Scan(&exists); err != nil {
			log.Fatal("consultar schema_migrations", logger.Err(err))
		}
		if exists {
			continue
		}

		sql, err := migrations.FS.ReadFile(name)
		if err != nil {
			log.Fatal("leer migración", logger.String("name", name), logger.Err(err))
		}

		tx, err := conn.Begin(ctx)
		if err != nil {
			log.Fatal("begin", logger.Err(err))
		}
		if _, err := tx.Exec(ctx, string(sql)); err != nil {
			_ = tx.Rollback(ctx)
			log.Fatal("aplicar migración", logger.String("name", name), logger.Err(err))
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO schema_migrations (name) VALUES ($1)`, name); err != nil {
			_ = tx.Rollback(ctx)
			log.Fatal("registrar migración", logger.String("name", name), logger.Err(err))
		}
		if err := tx.Commit(ctx); err != nil {
			log.Fatal("commit", logger.String("name", name), logger.Err(err))
		}

		log.Info("migración aplicada", logger.String("name", name))
		applied++
	}

	log.Info("migraciones al día", logger.Count(applied))
}

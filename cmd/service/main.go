// Command service levanta la API HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/config"
	adminctrl "github.com/Sergiovil64/gestion-tareas-modulo1/internal/http/controllers/admin"
	authctrl "github.com/Sergiovil64/gestion-tareas-modulo1/internal/http/controllers/auth"
	healthctrl "github.com/Sergiovil64/gestion-tareas-modulo1/internal/http/controllers/health"
	mfactrl "github.com/Sergiovil64/gestion-tareas-modulo1/internal/http/controllers/mfa"
	passwordctrl "github.com/Sergiovil64/gestion-tareas-modulo1/internal/http/controllers/password"
	taskctrl "github.com/Sergiovil64/gestion-tareas-modulo1/internal/http/controllers/task"
	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/http/router"
	adminsvc "github.com/Sergiovil64/gestion-tareas-modulo1/internal/http/services/admin"
	authsvc "github.com/Sergiovil64/gestion-tareas-modulo1/internal/http/services/auth"
	mfasvc "github.com/Sergiovil64/gestion-tareas-modulo1/internal/http/services/mfa"
	passwordsvc "github.com/Sergiovil64/gestion-tareas-modulo1/internal/http/services/password"
	tasksvc "github.com/Sergiovil64/gestion-tareas-modulo1/internal/http/services/task"
	jwtx "github.com/Sergiovil64/gestion-tareas-modulo1/internal/jwt"
	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/observability/logger"
	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/rate"
	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/security/password"
	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/security/secretbox"
	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/store/pg"
)

func main() {
	configPath := flag.String("config", "", "ruta al archivo de configuración YAML")
	flag.Parse()

	// .env es opcional: en producción las variables vienen del entorno.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.L().Fatal("cargar configuración", logger.Err(err))
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.App.Log.Level,
		ServiceName: cfg.App.Name,
		Version:     cfg.App.Version,
	})
	defer logger.Sync()

	log := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Store
	store, err := pg.New(ctx, cfg.Storage.DSN, pg.Options{MaxConns: cfg.Storage.MaxConns})
	if err != nil {
		log.Fatal("conectar a postgres", logger.Err(err))
	}
	defer store.Close()

	// Limitador: redis si está configurado, memoria si no.
	var limiter rate.Limiter
	switch {
	case !cfg.Rate.Enabled:
		log.Warn("rate limiter deshabilitado por configuración")
	case cfg.Cache.Addr != "":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal("conectar a redis", logger.Err(err))
		}
		limiter = rate.NewRedis(rdb)
		log.Info("rate limiter en redis", logger.String("addr", cfg.Cache.Addr))
	default:
		limiter = rate.NewMemory()
		log.Info("rate limiter en memoria")
	}

	issuer, err := jwtx.New(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TokenTTL)
	if err != nil {
		log.Fatal("inicializar jwt", logger.Err(err))
	}

	box, err := secretbox.New(cfg.Security.MasterKey)
	if err != nil {
		log.Fatal("inicializar secretbox", logger.Err(err))
	}

	policy := password.Policy{
		MinLength: cfg.Security.Password.MinLength,
		MaxLength: cfg.Security.Password.MaxLength,
	}

	// Services
	authService := authsvc.NewService(authsvc.Deps{
		Users:            store.Users(),
		MFA:              store.MFA(),
		Issuer:           issuer,
		Box:              box,
		MaxLoginAttempts: cfg.Auth.MaxLoginAttempts,
		LockoutWindow:    cfg.Auth.LockoutWindow,
		ExpirationDays:   cfg.Security.Password.ExpirationDays,
		ExpiryWarning:    cfg.Security.Password.ExpiryWarning,
		Policy:           policy,
	})
	mfaService := mfasvc.NewService(mfasvc.Deps{
		Users:       store.Users(),
		MFA:         store.MFA(),
		Issuer:      issuer,
		Box:         box,
		TOTPIssuer:  cfg.Security.MFA.Issuer,
		BackupCodes: cfg.Security.MFA.BackupCodes,
	})
	passwordService := passwordsvc.NewService(passwordsvc.Deps{
		Users:          store.Users(),
		Issuer:         issuer,
		Policy:         policy,
		ExpirationDays: cfg.Security.Password.ExpirationDays,
		HistoryCheck:   cfg.Security.Password.HistoryCheck,
		HistoryKeep:    cfg.Security.Password.HistoryKeep,
	})
	taskService := tasksvc.NewService(tasksvc.Deps{Tasks: store.Tasks()})
	adminService := adminsvc.NewService(adminsvc.Deps{Users: store.Users()})

	handler := router.New(router.Deps{
		Issuer:      issuer,
		Store:       store,
		Auth:        authctrl.NewController(authService),
		MFA:         mfactrl.NewController(mfaService),
		Password:    passwordctrl.NewController(passwordService),
		Tasks:       taskctrl.NewController(taskService),
		Admin:       adminctrl.NewController(adminService),
		Health:      healthctrl.NewController(store, cfg.App.Version),
		Limiter:     limiter,
		CORSOrigins: cfg.Server.CORSOrigins,
		GlobalRate: router.RateRule{
			Requests: cfg.Rate.Global.Requests,
			Window:   cfg.Rate.Global.Window,
		},
		LoginRate: router.RateRule{
			Requests: cfg.Rate.Login.Requests,
			Window:   cfg.Rate.Login.Window,
		},
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("servidor escuchando", logger.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("apagando servidor")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("servidor terminó con error", logger.Err(err))
		os.Exit(1)
	}
	log.Info("servidor detenido")
}

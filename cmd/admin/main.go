// Command admin es la CLI de operaciones administrativas.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/config"
	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/security/password"
	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/store/core"
	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/store/pg"
)

var configPath string

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "admin",
		Short: "Operaciones administrativas del servicio de tareas",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "ruta al archivo de configuración YAML")

	root.AddCommand(createAdminCmd())
	root.AddCommand(forcePasswordChangeCmd())
	root.AddCommand(listUsersCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openStore abre el store con la configuración cargada.
func openStore(ctx context.Context) (*pg.Store, *config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	st, err := pg.New(ctx, cfg.Storage.DSN, pg.Options{MaxConns: 2})
	if err != nil {
		return nil, nil, err
	}
	return st, cfg, nil
}

func createAdminCmd() *cobra.Command {
	var name, email, pass string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Crea una cuenta ADMIN activa",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			st, cfg, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			policy := password.Policy{
				MinLength: cfg.Security.Password.MinLength,
				MaxLength: cfg.Security.Password.MaxLength,
			}
			if ok, reasons := policy.Validate(pass); !ok {
				return fmt.Errorf("contraseña rechazada: %s", strings.Join(reasons, ", "))
			}

			hash, err := password.Hash(password.Default, pass)
			if err != nil {
				return err
			}

			now := time.Now()
			u := &core.User{
				ID:                uuid.New(),
				Name:              strings.TrimSpace(name),
				Email:             strings.ToLower(strings.TrimSpace(email)),
				PasswordHash:      hash,
				Role:              core.RoleAdmin,
				IsActive:          true,
				PasswordChangedAt: now,
				PasswordExpiresAt: now.AddDate(0, 0, cfg.Security.Password.ExpirationDays),
			}
			if err := st.Users().Create(ctx, u); err != nil {
				return err
			}

			fmt.Printf("admin creado: %s (%s)\n", u.Email, u.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "nombre del administrador")
	cmd.Flags().StringVar(&email, "email", "", "email del administrador")
	cmd.Flags().StringVar(&pass, "password", "", "contraseña inicial")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func forcePasswordChangeCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "force-password-change",
		Short: "Marca una cuenta para rotación obligatoria de contraseña",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			st, _, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			u, err := st.Users().GetByEmail(ctx, email)
			if err != nil {
				return err
			}
			if err := st.Users().ForcePasswordChange(ctx, u.ID, time.Now()); err != nil {
				return err
			}

			fmt.Printf("rotación forzada para %s\n", u.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email de la cuenta")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func listUsersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-users",
		Short: "Lista las cuentas registradas",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			st, _, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			users, err := st.Users().List(ctx)
			if err != nil {
				return err
			}
			for _, u := range users {
				state := "activa"
				if !u.IsActive {
					state = "desactivada"
				}
				fmt.Printf("%-36s  %-30s  %-7s  %s\n", u.ID, u.Email, u.Role, state)
			}
			return nil
		},
	}
}

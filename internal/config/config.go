package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del servicio.
// Se carga desde un archivo YAML y se sobreescribe con variables de entorno
// para los secretos (DATABASE_URL, JWT_SECRET, SECRETBOX_MASTER_KEY...).
type Config struct {
	App      AppConfig      `yaml:"app"`
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Cache    CacheConfig    `yaml:"cache"`
	JWT      JWTConfig      `yaml:"jwt"`
	Auth     AuthConfig     `yaml:"auth"`
	Rate     RateConfig     `yaml:"rate"`
	Security SecurityConfig `yaml:"security"`
}

// AppConfig contiene metadatos generales de la aplicación.
type AppConfig struct {
	Name    string `yaml:"name"`
	Env     string `yaml:"env"` // dev | prod
	Version string `yaml:"version"`
	Log     struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// ServerConfig configura el servidor HTTP.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins"`
}

// StorageConfig configura la conexión a PostgreSQL.
type StorageConfig struct {
	DSN         string        `yaml:"dsn"`
	MaxConns    int32         `yaml:"max_conns"`
	ConnTimeout time.Duration `yaml:"conn_timeout"`
}

// CacheConfig configura Redis (opcional). Si Addr está vacío, el limitador
// de requests usa el fallback en memoria.
type CacheConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// JWTConfig configura la firma de tokens de sesión.
type JWTConfig struct {
	Secret   string        `yaml:"secret"`
	Issuer   string        `yaml:"issuer"`
	TokenTTL time.Duration `yaml:"token_ttl"`
}

// AuthConfig configura el comportamiento del login.
type AuthConfig struct {
	// MaxLoginAttempts es el número de fallos consecutivos que dispara
	// el bloqueo temporal de la cuenta.
	MaxLoginAttempts int `yaml:"max_login_attempts"`

	// LockoutWindow es la ventana deslizante del bloqueo, anclada al
	// último intento fallido.
	LockoutWindow time.Duration `yaml:"lockout_window"`
}

// RateConfig configura el limitador de requests por IP.
type RateConfig struct {
	Enabled bool `yaml:"enabled"`

	// Global aplica a todas las rutas /api.
	Global RateRule `yaml:"global"`

	// Login aplica solo a /api/auth/login y /api/auth/register,
	// más estricto que el global.
	Login RateRule `yaml:"login"`
}

// RateRule es una regla de limitación: N requests por ventana.
type RateRule struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// SecurityConfig agrupa la política de contraseñas y los parámetros MFA.
type SecurityConfig struct {
	Password PasswordConfig `yaml:"password"`
	MFA      MFAConfig      `yaml:"mfa"`

	// MasterKey es la clave AES (hex, 32 bytes) para cifrar los secretos
	// TOTP en reposo. Siempre viene de entorno, nunca del YAML en prod.
	MasterKey string `yaml:"master_key"`
}

// PasswordConfig define la política de contraseñas.
type PasswordConfig struct {
	MinLength      int           `yaml:"min_length"`
	MaxLength      int           `yaml:"max_length"`
	ExpirationDays int           `yaml:"expiration_days"`
	HistoryCheck   int           `yaml:"history_check"` // cuántas anteriores se comparan
	HistoryKeep    int           `yaml:"history_keep"`  // cuántas se conservan en BD
	ExpiryWarning  time.Duration `yaml:"expiry_warning"`
}

// MFAConfig define los parámetros del segundo factor.
type MFAConfig struct {
	Issuer      string `yaml:"issuer"`
	BackupCodes int    `yaml:"backup_codes"`
}

// Load lee la configuración desde un archivo YAML y aplica los overrides
// de entorno. Si path está vacío, usa solo defaults + entorno.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: no se pudo leer %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: YAML inválido en %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// defaults devuelve la configuración base.
func defaults() *Config {
	cfg := &Config{}

	cfg.App.Name = "gestion-tareas"
	cfg.App.Env = "dev"
	cfg.App.Version = "dev"
	cfg.App.Log.Level = "info"

	cfg.Server.Addr = ":8080"
	cfg.Server.ReadTimeout = 10 * time.Second
	cfg.Server.WriteTimeout = 15 * time.Second
	cfg.Server.IdleTimeout = 60 * time.Second
	cfg.Server.ShutdownTimeout = 10 * time.Second
	cfg.Server.CORSOrigins = []string{"*"}

	cfg.Storage.MaxConns = 10
	cfg.Storage.ConnTimeout = 5 * time.Second

	cfg.JWT.Issuer = "gestion-tareas"
	cfg.JWT.TokenTTL = 24 * time.Hour

	cfg.Auth.MaxLoginAttempts = 5
	cfg.Auth.LockoutWindow = 15 * time.Minute

	cfg.Rate.Enabled = true
	cfg.Rate.Global = RateRule{Requests: 100, Window: time.Minute}
	cfg.Rate.Login = RateRule{Requests: 10, Window: time.Minute}

	cfg.Security.Password.MinLength = 12
	cfg.Security.Password.MaxLength = 128
	cfg.Security.Password.ExpirationDays = 90
	cfg.Security.Password.HistoryCheck = 5
	cfg.Security.Password.HistoryKeep = 10
	cfg.Security.Password.ExpiryWarning = 7 * 24 * time.Hour

	cfg.Security.MFA.Issuer = "GestionTareas"
	cfg.Security.MFA.BackupCodes = 10

	return cfg
}

// applyEnv sobreescribe con variables de entorno. Los secretos SIEMPRE
// deben venir por aquí en producción.
func applyEnv(cfg *Config) {
	if v := os.Getenv("APP_ENV"); v != "" {
		cfg.App.Env = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.App.Log.Level = v
	}
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWT.Secret = v
	}
	if v := os.Getenv("SECRETBOX_MASTER_KEY"); v != "" {
		cfg.Security.MasterKey = v
	}
}

// validate verifica que la configuración sea usable.
func (c *Config) validate() error {
	var missing []string

	if c.Storage.DSN == "" {
		missing = append(missing, "storage.dsn (o DATABASE_URL)")
	}
	if c.JWT.Secret == "" {
		missing = append(missing, "jwt.secret (o JWT_SECRET)")
	}
	if c.Security.MasterKey == "" {
		missing = append(missing, "security.master_key (o SECRETBOX_MASTER_KEY)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: faltan valores requeridos: %s", strings.Join(missing, ", "))
	}

	if c.Auth.MaxLoginAttempts < 1 {
		return fmt.Errorf("config: auth.max_login_attempts debe ser >= 1")
	}
	if c.Security.Password.MinLength < 8 {
		return fmt.Errorf("config: security.password.min_length debe ser >= 8")
	}
	if c.Security.Password.HistoryCheck > c.Security.Password.HistoryKeep {
		return fmt.Errorf("config: history_check no puede exceder history_keep")
	}
	return nil
}

// IsProd indica si el entorno es producción.
func (c *Config) IsProd() bool {
	return strings.EqualFold(c.App.Env, "prod")
}

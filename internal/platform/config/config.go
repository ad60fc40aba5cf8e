package config

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"escuela/pkg/platform/middleware/metadata"
)

// Server captures process level configuration.
type Server struct {
	Port     string
	LogLevel string
	// TrustedProxies may set X-Forwarded-For / X-Real-IP. Empty means the
	// peer address is the client.
	TrustedProxies []netip.Prefix

	Store    StoreConfig
	Auth     AuthConfig
	Redis    RedisConfig
	Lockout  LockoutConfig
	Export   ExportConfig
	Features Features
}

// StoreConfig selects and addresses the record store.
type StoreConfig struct {
	URI      string
	Database string
}

// AuthConfig holds the admin identity and credential signing secret.
type AuthConfig struct {
	JWTSecret     string
	AdminUser     string
	AdminPassword string
	// AdminPasswordHash is a bcrypt hash; when set it wins over AdminPassword.
	AdminPasswordHash string
	TokenTTL          time.Duration
}

// RedisConfig enables the shared lockout store when URL is set.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// LockoutConfig bounds admin login attempts per client and per username.
type LockoutConfig struct {
	MaxAttempts     int
	MaxUserAttempts int
	Window          time.Duration
}

// ExportConfig controls spreadsheet rendering.
type ExportConfig struct {
	Timezone string
}

// Features toggles optional routes.
type Features struct {
	// PublicDepartmentListing exposes GET /api/inscripciones/{department}
	// without a credential.
	PublicDepartmentListing bool
}

// Addr is the listen address derived from Port.
func (s Server) Addr() string {
	return ":" + s.Port
}

// FromEnv loads .env (when present) and builds a Server config from the
// environment. Missing required keys are reported together.
func FromEnv() (Server, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := Server{
		Port:     strings.TrimSpace(v.GetString("PORT")),
		LogLevel: strings.ToLower(strings.TrimSpace(v.GetString("LOG_LEVEL"))),
		Store: StoreConfig{
			URI:      strings.TrimSpace(v.GetString("MONGODB_URI")),
			Database: strings.TrimSpace(v.GetString("MONGODB_DB_NAME")),
		},
		Auth: AuthConfig{
			JWTSecret:         v.GetString("JWT_SECRET"),
			AdminUser:         strings.TrimSpace(v.GetString("ADMIN_USER")),
			AdminPassword:     v.GetString("ADMIN_PASSWORD"),
			AdminPasswordHash: strings.TrimSpace(v.GetString("ADMIN_PASSWORD_HASH")),
			TokenTTL:          8 * time.Hour,
		},
		Redis: RedisConfig{
			URL:          strings.TrimSpace(v.GetString("REDIS_URL")),
			PoolSize:     v.GetInt("REDIS_POOL_SIZE"),
			MinIdleConns: v.GetInt("REDIS_MIN_IDLE_CONNS"),
			DialTimeout:  v.GetDuration("REDIS_DIAL_TIMEOUT"),
			ReadTimeout:  v.GetDuration("REDIS_READ_TIMEOUT"),
			WriteTimeout: v.GetDuration("REDIS_WRITE_TIMEOUT"),
		},
		Lockout: LockoutConfig{
			MaxAttempts:     v.GetInt("LOGIN_MAX_ATTEMPTS"),
			MaxUserAttempts: v.GetInt("LOGIN_MAX_USER_ATTEMPTS"),
			Window:          v.GetDuration("LOGIN_LOCKOUT_WINDOW"),
		},
		Export: ExportConfig{
			Timezone: strings.TrimSpace(v.GetString("EXPORT_TIMEZONE")),
		},
		Features: Features{
			PublicDepartmentListing: v.GetBool("PUBLIC_DEPARTMENT_LISTING"),
		},
	}

	proxies, err := metadata.ParseTrustedProxies(strings.Split(v.GetString("TRUSTED_PROXIES"), ","))
	if err != nil {
		return cfg, errors.Join(fmt.Errorf("TRUSTED_PROXIES: %w", err), cfg.Validate())
	}
	cfg.TrustedProxies = proxies

	return cfg, cfg.Validate()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "3000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MONGODB_DB_NAME", "escuela")
	v.SetDefault("REDIS_POOL_SIZE", 10)
	v.SetDefault("REDIS_MIN_IDLE_CONNS", 1)
	v.SetDefault("REDIS_DIAL_TIMEOUT", 5*time.Second)
	v.SetDefault("REDIS_READ_TIMEOUT", 3*time.Second)
	v.SetDefault("REDIS_WRITE_TIMEOUT", 3*time.Second)
	v.SetDefault("LOGIN_MAX_ATTEMPTS", 5)
	v.SetDefault("LOGIN_MAX_USER_ATTEMPTS", 20)
	v.SetDefault("LOGIN_LOCKOUT_WINDOW", 15*time.Minute)
	v.SetDefault("EXPORT_TIMEZONE", "America/Bogota")
	v.SetDefault("PUBLIC_DEPARTMENT_LISTING", true)
}

// Validate reports every missing or inconsistent setting.
func (s Server) Validate() error {
	var errs []error
	if s.Store.URI == "" {
		errs = append(errs, errors.New("MONGODB_URI is empty"))
	}
	if s.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is empty"))
	}
	if s.Auth.AdminUser == "" {
		errs = append(errs, errors.New("ADMIN_USER is empty"))
	}
	if s.Auth.AdminPassword == "" && s.Auth.AdminPasswordHash == "" {
		errs = append(errs, errors.New("ADMIN_PASSWORD or ADMIN_PASSWORD_HASH must be set"))
	}
	if s.Port == "" {
		errs = append(errs, errors.New("PORT is empty"))
	}
	if s.Lockout.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("LOGIN_MAX_ATTEMPTS must be positive, got %d", s.Lockout.MaxAttempts))
	}
	if s.Lockout.MaxUserAttempts < 1 {
		errs = append(errs, fmt.Errorf("LOGIN_MAX_USER_ATTEMPTS must be positive, got %d", s.Lockout.MaxUserAttempts))
	}
	if s.Lockout.Window <= 0 {
		errs = append(errs, fmt.Errorf("LOGIN_LOCKOUT_WINDOW must be positive, got %s", s.Lockout.Window))
	}
	return errors.Join(errs...)
}

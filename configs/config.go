package configs

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// TokenPlaceholder is substituted with the token value in URL templates.
const TokenPlaceholder = "{token}"

type Config struct {
	Server         ServerConfig
	Database       DatabaseConfig
	Redis          RedisConfig
	Email          EmailConfig
	Auth           AuthConfig
	Tokens         TokenConfig
	PasswordPolicy PasswordPolicyConfig
	Log            LogConfig
}

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	TLSCertFile  string
	TLSKeyFile   string
}

type DatabaseConfig struct {
	Driver   string // postgres or memory
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	DSN      string
	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	MigrationsPath  string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
	// Pool and timeout settings
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolTimeout  time.Duration
	IdleTimeout  time.Duration
}

type EmailConfig struct {
	Provider             string // sendgrid, postmark or log
	SendGridAPIKey       string
	PostmarkServerToken  string
	PostmarkAccountToken string
	FromEmail            string
	FromName             string
}

type AuthConfig struct {
	// Optional URL templates. The TokenPlaceholder is replaced with the token.
	EmailVerificationURL string
	PasswordResetURL     string

	JWTSecret        string
	AccessTokenTTL   time.Duration
	BcryptCost       int
	IdentityCacheTTL time.Duration
}

type TokenConfig struct {
	RevokeStale    bool
	InsertAttempts int
}

type PasswordPolicyConfig struct {
	MinLength      int
	RequireUpper   bool
	RequireLower   bool
	RequireDigit   bool
	RequireSpecial bool
}

type LogConfig struct {
	Level  string
	Format string // json or text
}

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
			TLSCertFile:  getEnv("TLS_CERT_FILE", ""),
			TLSKeyFile:   getEnv("TLS_KEY_FILE", ""),
		},
		Database: DatabaseConfig{
			Driver:          getEnv("STORE_DRIVER", "postgres"),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			DBName:          getEnv("DB_NAME", "email_auth"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getDurationEnv("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			MigrationsPath:  getEnv("DB_MIGRATIONS_PATH", "./migrations"),
		},
		Redis: RedisConfig{
			Enabled:      getBoolEnv("REDIS_ENABLED", false),
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getIntEnv("REDIS_DB", 0),
			PoolSize:     getIntEnv("REDIS_POOL_SIZE", 10),
			MinIdleConns: getIntEnv("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDurationEnv("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDurationEnv("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDurationEnv("REDIS_WRITE_TIMEOUT", 3*time.Second),
			PoolTimeout:  getDurationEnv("REDIS_POOL_TIMEOUT", 4*time.Second),
			IdleTimeout:  getDurationEnv("REDIS_IDLE_TIMEOUT", 5*time.Minute),
		},
		Email: EmailConfig{
			Provider:             strings.ToLower(getEnv("EMAIL_PROVIDER", "log")),
			SendGridAPIKey:       getEnv("SENDGRID_API_KEY", ""),
			PostmarkServerToken:  getEnv("POSTMARK_SERVER_TOKEN", ""),
			PostmarkAccountToken: getEnv("POSTMARK_ACCOUNT_TOKEN", ""),
			FromEmail:            getEnv("DEFAULT_FROM_EMAIL", "noreply@example.com"),
			FromName:             getEnv("FROM_NAME", ""),
		},
		Auth: AuthConfig{
			EmailVerificationURL: getEnv("EMAIL_VERIFICATION_URL", ""),
			PasswordResetURL:     getEnv("PASSWORD_RESET_URL", ""),
			JWTSecret:            getEnv("JWT_SECRET", ""),
			AccessTokenTTL:       getDurationEnv("JWT_ACCESS_TTL", 15*time.Minute),
			BcryptCost:           getIntEnv("BCRYPT_COST", 12),
			IdentityCacheTTL:     getDurationEnv("IDENTITY_CACHE_TTL", 3*time.Minute),
		},
		Tokens: TokenConfig{
			RevokeStale:    getBoolEnv("REVOKE_STALE_TOKENS", true),
			InsertAttempts: getIntEnv("TOKEN_INSERT_ATTEMPTS", 3),
		},
		PasswordPolicy: PasswordPolicyConfig{
			MinLength:      getIntEnv("PASSWORD_MIN_LENGTH", 12),
			RequireUpper:   getBoolEnv("PASSWORD_REQUIRE_UPPER", true),
			RequireLower:   getBoolEnv("PASSWORD_REQUIRE_LOWER", true),
			RequireDigit:   getBoolEnv("PASSWORD_REQUIRE_DIGIT", true),
			RequireSpecial: getBoolEnv("PASSWORD_REQUIRE_SPECIAL", false),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Build database DSN
	cfg.Database.DSN = fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.DBName,
		cfg.Database.SSLMode,
	)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate reports every missing or inconsistent setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}

	switch c.Database.Driver {
	case "postgres", "memory":
	default:
		errs = append(errs, fmt.Errorf("unsupported STORE_DRIVER %q", c.Database.Driver))
	}

	switch c.Email.Provider {
	case "sendgrid":
		if c.Email.SendGridAPIKey == "" {
			errs = append(errs, errors.New("SENDGRID_API_KEY is required for the sendgrid provider"))
		}
	case "postmark":
		if c.Email.PostmarkServerToken == "" || c.Email.PostmarkAccountToken == "" {
			errs = append(errs, errors.New("POSTMARK_SERVER_TOKEN and POSTMARK_ACCOUNT_TOKEN are required for the postmark provider"))
		}
	case "log":
	default:
		errs = append(errs, fmt.Errorf("unsupported EMAIL_PROVIDER %q", c.Email.Provider))
	}

	for name, tmpl := range map[string]string{
		"EMAIL_VERIFICATION_URL": c.Auth.EmailVerificationURL,
		"PASSWORD_RESET_URL":     c.Auth.PasswordResetURL,
	} {
		if tmpl != "" && strings.Count(tmpl, TokenPlaceholder) != 1 {
			errs = append(errs, fmt.Errorf("%s must contain exactly one %s placeholder", name, TokenPlaceholder))
		}
	}

	if c.Tokens.InsertAttempts < 1 {
		errs = append(errs, errors.New("TOKEN_INSERT_ATTEMPTS must be at least 1"))
	}

	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

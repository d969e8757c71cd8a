package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// Env is the service configuration read from the environment.
type Env struct {
	Addr     string `env:"DAYBOARD_ADDR,default=:8080"`
	LogLevel string `env:"DAYBOARD_LOG_LEVEL,default=info"`

	// Storage: "supabase", "postgres" or "sqlite". With supabase the local
	// sqlite file is kept as the fallback store.
	StoreDriver string `env:"DAYBOARD_STORE,default=sqlite"`
	DatabaseURL string `env:"DAYBOARD_DATABASE_URL"`
	SQLitePath  string `env:"DAYBOARD_SQLITE_PATH"`

	SupabaseURL string `env:"SUPABASE_URL"`
	SupabaseKey string `env:"SUPABASE_SERVICE_KEY"`

	JWTSecret      string   `env:"DAYBOARD_JWT_SECRET"`
	AllowedOrigins []string `env:"DAYBOARD_ALLOWED_ORIGINS,default=*"`
	RateLimit      int      `env:"DAYBOARD_RATE_LIMIT,default=20"`
	RateBurst      int      `env:"DAYBOARD_RATE_BURST,default=40"`

	GenAIKey   string        `env:"DAYBOARD_GENAI_API_KEY"`
	GenAIModel string        `env:"DAYBOARD_GENAI_MODEL,default=gemini-2.0-flash"`
	RedisURL   string        `env:"DAYBOARD_REDIS_URL"`
	DraftTTL   time.Duration `env:"DAYBOARD_DRAFT_TTL,default=24h"`

	SMTPHost string `env:"DAYBOARD_SMTP_HOST"`
	SMTPPort int    `env:"DAYBOARD_SMTP_PORT,default=587"`
	SMTPUser string `env:"DAYBOARD_SMTP_USER"`
	SMTPPass string `env:"DAYBOARD_SMTP_PASSWORD"`
	MailFrom string `env:"DAYBOARD_MAIL_FROM,default=support@dayboard.local"`

	TriageRules  string `env:"DAYBOARD_TRIAGE_RULES"`
	SyncSchedule string `env:"DAYBOARD_SYNC_SCHEDULE,default=@every 30m"`
	SweepEvery   string `env:"DAYBOARD_SWEEP_SCHEDULE,default=@every 15m"`
	CalendarUser string `env:"DAYBOARD_CALENDAR_USER"`
	Timezone     string `env:"DAYBOARD_TIMEZONE,default=Local"`
}

// LoadEnv loads an optional .env file and decodes the environment.
func LoadEnv(dotenv string) (*Env, error) {
	if dotenv != "" {
		if _, err := os.Stat(dotenv); err == nil {
			if err := godotenv.Load(dotenv); err != nil {
				return nil, fmt.Errorf("load env (%s): %w", dotenv, err)
			}
		}
	}

	var env Env
	if err := envdecode.Decode(&env); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("failed to decode environment: %w", err)
	}
	if err := env.Validate(); err != nil {
		return nil, err
	}
	return &env, nil
}

func (e *Env) Validate() error {
	switch e.StoreDriver {
	case "sqlite":
	case "postgres":
		if e.DatabaseURL == "" {
			return fmt.Errorf("DAYBOARD_DATABASE_URL is required for the postgres store")
		}
	case "supabase":
		if e.SupabaseURL == "" || e.SupabaseKey == "" {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_KEY are required for the supabase store")
		}
	default:
		return fmt.Errorf("unsupported store driver %q", e.StoreDriver)
	}
	if e.RateLimit <= 0 {
		return fmt.Errorf("DAYBOARD_RATE_LIMIT must be positive")
	}
	if e.Timezone != "" && e.Timezone != "Local" {
		if _, err := time.LoadLocation(e.Timezone); err != nil {
			return fmt.Errorf("invalid DAYBOARD_TIMEZONE %q: %w", e.Timezone, err)
		}
	}
	return nil
}

// SQLiteFile returns the local database path, defaulting into the config dir.
func (e *Env) SQLiteFile() (string, error) {
	if e.SQLitePath != "" {
		return e.SQLitePath, nil
	}
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir + string(os.PathSeparator) + "dayboard.db", nil
}

// Location resolves Timezone. "Local" defers to the timezone saved in the
// preferences, then to time.Local. Validate rejects unknown zones, so the
// time.Local fallback only covers an Env that skipped it.
func (e *Env) Location() *time.Location {
	if e.Timezone != "" && e.Timezone != "Local" {
		if loc, err := time.LoadLocation(e.Timezone); err == nil {
			return loc
		}
		return time.Local
	}
	if prefs, err := Load(); err == nil {
		if loc, err := prefs.Location(); err == nil && loc != nil {
			return loc
		}
	}
	return time.Local
}

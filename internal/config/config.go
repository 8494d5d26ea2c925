package config // package config loads application configuration from environment variables

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/iliyamo/pamfree/internal/logging"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Optional concerns (Redis, S3, AMQP) have their
// own loaders next to this file.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time-to-live in minutes
	RefreshTTLDays int    // refresh token time-to-live in days
	BcryptCost     int    // bcrypt cost for password hashing

	// EditorTTL bounds how long a public editor may stay idle before its
	// token stops verifying.  Zero means editors never expire.
	EditorTTL time.Duration
	// MaxUploadBytes caps floor image uploads.
	MaxUploadBytes int64
	// CookieSecure marks the session cookie Secure.
	CookieSecure bool
	// AMQPURL enables the RabbitMQ activity queue when non-empty.
	AMQPURL string
	// ActivityLogPath is where activity events are appended.
	ActivityLogPath string

	LogLevel  string
	LogFormat string
}

// Load reads configuration from the process environment.  Missing
// required variables are fatal.
func Load() Config {
	cfg, err := Parse(os.LookupEnv)
	if err != nil {
		logging.Logger().Fatal().Err(err).Msg("invalid configuration")
	}
	return cfg
}

// Parse builds a Config from lookup.  Required variables are enforced;
// optional ones fall back to defaults.
func Parse(lookup func(string) (string, bool)) (Config, error) {
	p := parser{lookup: lookup}
	cfg := Config{
		Env:             p.must("APP_ENV"),
		Port:            p.must("APP_PORT"),
		DBUser:          p.must("DB_USER"),
		DBPass:          p.opt("DB_PASS", ""),
		DBHost:          p.must("DB_HOST"),
		DBPort:          p.must("DB_PORT"),
		DBName:          p.must("DB_NAME"),
		JWTSecret:       p.must("JWT_SECRET"),
		AccessTTLMin:    p.mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays:  p.mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:      p.mustInt("BCRYPT_COST"),
		EditorTTL:       p.dur("PUBLIC_EDITOR_TTL", 0),
		MaxUploadBytes:  int64(p.int("MAX_UPLOAD_BYTES", 10<<20)),
		CookieSecure:    p.bool("SESSION_COOKIE_SECURE", false),
		AMQPURL:         p.opt("AMQP_URL", ""),
		ActivityLogPath: p.opt("ACTIVITY_LOG_PATH", "logs/activity.log"),
		LogLevel:        p.opt("LOG_LEVEL", "info"),
		LogFormat:       p.opt("LOG_FORMAT", "json"),
	}
	if p.err != nil {
		return Config{}, p.err
	}
	if cfg.MaxUploadBytes <= 0 {
		return Config{}, fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	if cfg.EditorTTL < 0 {
		return Config{}, fmt.Errorf("PUBLIC_EDITOR_TTL must not be negative")
	}
	return cfg, nil
}

// parser collects the first error so Parse can report it once.
type parser struct {
	lookup func(string) (string, bool)
	err    error
}

func (p *parser) must(key string) string {
	v, ok := p.lookup(key)
	if (!ok || v == "") && p.err == nil {
		p.err = fmt.Errorf("missing required env var: %s", key)
	}
	return v
}

func (p *parser) mustInt(key string) int {
	s := p.must(key)
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("invalid int for %s: %q", key, s)
	}
	return n
}

func (p *parser) opt(key, def string) string {
	if v, ok := p.lookup(key); ok && v != "" {
		return v
	}
	return def
}

func (p *parser) int(key string, def int) int {
	v := p.opt(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("invalid int for %s: %q", key, v)
	}
	return n
}

func (p *parser) dur(key string, def time.Duration) time.Duration {
	v := p.opt(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("invalid duration for %s: %q", key, v)
	}
	return d
}

func (p *parser) bool(key string, def bool) bool {
	v := p.opt(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("invalid bool for %s: %q", key, v)
	}
	return b
}

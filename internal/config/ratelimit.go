package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// RateLimitConfig drives the Redis token bucket placed in front of the
// login and public-edit endpoints.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string
	Prefix         string
	Debug          bool
}

// LoadRateLimitConfig reads RATE_LIMIT_* from the process environment.
func LoadRateLimitConfig() RateLimitConfig {
	return ParseRateLimitConfig(os.LookupEnv)
}

// ParseRateLimitConfig builds a RateLimitConfig from lookup and clamps
// it to usable values.  RATE_LIMIT_BURST overrides the capacity.
func ParseRateLimitConfig(lookup func(string) (string, bool)) RateLimitConfig {
	r := lenient{lookup}
	cfg := RateLimitConfig{
		Enabled:        r.bool("RATE_LIMIT_ENABLED", true),
		Capacity:       r.int("RATE_LIMIT_CAPACITY", 30),
		RefillTokens:   r.int("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: r.dur("RATE_LIMIT_REFILL_INTERVAL", 2*time.Second),
		TTL:            r.dur("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:    r.str("RATE_LIMIT_KEY_STRATEGY", "ip_actor_route"),
		Prefix:         r.str("RATE_LIMIT_PREFIX", "pamfree:rl"),
		Debug:          r.bool("RATE_LIMIT_DEBUG", false),
	}
	if b := r.int("RATE_LIMIT_BURST", -1); b > 0 {
		cfg.Capacity = b
	}
	if cfg.Capacity < 1 {
		cfg.Capacity = 1
	}
	if cfg.RefillTokens < 1 {
		cfg.RefillTokens = 1
	}
	if cfg.RefillInterval <= 0 {
		cfg.RefillInterval = time.Second
	}
	// keep buckets alive for at least a few refill periods
	if minTTL := 5 * cfg.RefillInterval; cfg.TTL < minTTL {
		cfg.TTL = minTTL
	}
	return cfg
}

// lenient reads optional settings, returning the default for anything
// missing or malformed.
type lenient struct {
	lookup func(string) (string, bool)
}

func (l lenient) str(k, def string) string {
	if v, ok := l.lookup(k); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (l lenient) bool(k string, def bool) bool {
	v := l.str(k, "")
	if v == "" {
		return def
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	switch strings.ToLower(v) {
	case "yes", "on":
		return true
	case "no", "off":
		return false
	}
	return def
}

func (l lenient) int(k string, def int) int {
	if n, err := strconv.Atoi(l.str(k, "")); err == nil {
		return n
	}
	return def
}

func (l lenient) dur(k string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(l.str(k, "")); err == nil {
		return d
	}
	return def
}

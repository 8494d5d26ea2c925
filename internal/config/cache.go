package config

import (
	"os"
	"strings"
	"time"
)

// CacheConfig drives the Redis cache in front of the public viewer.
// KeyStrategy "path" ignores the query string, "path_query" (default)
// keys on both.  Entries live for TTL unless an activity event on the
// map invalidates them first.  Bodies larger than MaxBodyBytes are
// served but not stored.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	TTL          time.Duration
	KeyStrategy  string
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads CACHE_* from the process environment.
func LoadCacheConfig() CacheConfig {
	return ParseCacheConfig(os.LookupEnv)
}

// ParseCacheConfig builds a CacheConfig from lookup.  Unparsable values
// fall back to their defaults.
func ParseCacheConfig(lookup func(string) (string, bool)) CacheConfig {
	r := lenient{lookup}
	cfg := CacheConfig{
		Enabled:      r.bool("CACHE_ENABLED", true),
		Methods:      methodSet(r.str("CACHE_METHODS", "GET")),
		TTL:          r.dur("CACHE_TTL", 30*time.Second),
		KeyStrategy:  strings.ToLower(r.str("CACHE_KEY_STRATEGY", "path_query")),
		Prefix:       r.str("CACHE_PREFIX", "pamfree:cache"),
		MaxBodyBytes: r.int("CACHE_MAX_BODY_BYTES", 1<<20),
	}
	if cfg.KeyStrategy != "path" {
		cfg.KeyStrategy = "path_query"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	return cfg
}

func methodSet(s string) map[string]bool {
	m := map[string]bool{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.ToUpper(strings.TrimSpace(p)); p != "" {
			m[p] = true
		}
	}
	return m
}

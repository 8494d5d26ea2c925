package config

import (
	"strings"
	"testing"
	"time"
)

func env(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func baseEnv() map[string]string {
	return map[string]string{
		"APP_ENV":                "test",
		"APP_PORT":               "8080",
		"DB_USER":                "pamfree",
		"DB_HOST":                "localhost",
		"DB_PORT":                "3306",
		"DB_NAME":                "pamfree",
		"JWT_SECRET":             "secret",
		"ACCESS_TOKEN_TTL_MIN":   "15",
		"REFRESH_TOKEN_TTL_DAYS": "30",
		"BCRYPT_COST":            "10",
	}
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(env(baseEnv()))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.EditorTTL != 0 {
		t.Errorf("EditorTTL = %v, want 0 (no expiry)", cfg.EditorTTL)
	}
	if cfg.MaxUploadBytes != 10<<20 {
		t.Errorf("MaxUploadBytes = %d, want %d", cfg.MaxUploadBytes, 10<<20)
	}
	if cfg.AccessTTLMin != 15 || cfg.BcryptCost != 10 {
		t.Errorf("unexpected ints: %+v", cfg)
	}
	if cfg.ActivityLogPath != "logs/activity.log" {
		t.Errorf("ActivityLogPath = %q", cfg.ActivityLogPath)
	}
}

func TestParseOverrides(t *testing.T) {
	m := baseEnv()
	m["PUBLIC_EDITOR_TTL"] = "72h"
	m["MAX_UPLOAD_BYTES"] = "2048"
	m["SESSION_COOKIE_SECURE"] = "true"
	cfg, err := Parse(env(m))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.EditorTTL != 72*time.Hour || cfg.MaxUploadBytes != 2048 || !cfg.CookieSecure {
		t.Errorf("overrides not applied: %+v", cfg)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(map[string]string)
		wantSub string
	}{
		{"missing secret", func(m map[string]string) { delete(m, "JWT_SECRET") }, "JWT_SECRET"},
		{"bad int", func(m map[string]string) { m["BCRYPT_COST"] = "ten" }, "BCRYPT_COST"},
		{"bad ttl", func(m map[string]string) { m["PUBLIC_EDITOR_TTL"] = "soon" }, "PUBLIC_EDITOR_TTL"},
		{"zero upload", func(m map[string]string) { m["MAX_UPLOAD_BYTES"] = "0" }, "MAX_UPLOAD_BYTES"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := baseEnv()
			tt.mutate(m)
			_, err := Parse(env(m))
			if err == nil || !strings.Contains(err.Error(), tt.wantSub) {
				t.Fatalf("Parse() error = %v, want mention of %s", err, tt.wantSub)
			}
		})
	}
}

func TestLoadCacheConfig(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")
	t.Setenv("CACHE_TTL", "45s")
	cfg := LoadCacheConfig()
	if !cfg.Methods["GET"] || !cfg.Methods["HEAD"] {
		t.Errorf("methods = %v", cfg.Methods)
	}
	if cfg.TTL != 45*time.Second {
		t.Errorf("TTL = %v", cfg.TTL)
	}
}

func TestLoadRateLimitConfigClamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	cfg := LoadRateLimitConfig()
	if cfg.Capacity != 1 {
		t.Errorf("Capacity = %d, want 1", cfg.Capacity)
	}
	if cfg.TTL != 10*time.Second {
		t.Errorf("TTL = %v, want 10s", cfg.TTL)
	}
}

func TestParseCacheConfigFallbacks(t *testing.T) {
	cfg := ParseCacheConfig(env(map[string]string{
		"CACHE_ENABLED":      "off",
		"CACHE_TTL":          "whenever",
		"CACHE_KEY_STRATEGY": "bogus",
	}))
	if cfg.Enabled {
		t.Error("CACHE_ENABLED=off should disable the cache")
	}
	if cfg.TTL != 30*time.Second || cfg.KeyStrategy != "path_query" || cfg.Prefix != "pamfree:cache" {
		t.Errorf("fallbacks not applied: %+v", cfg)
	}
}

func TestParseStorageConfig(t *testing.T) {
	if ParseStorageConfig(env(nil)).Enabled() {
		t.Fatal("storage enabled without a bucket")
	}
	cfg := ParseStorageConfig(env(map[string]string{"S3_BUCKET": "plans", "S3_PATH_STYLE": "yes"}))
	if !cfg.Enabled() || !cfg.PathStyle || cfg.Region != "us-east-1" {
		t.Errorf("storage config = %+v", cfg)
	}
}

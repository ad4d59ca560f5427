package config

import (
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		DatabaseURL:        "postgres://localhost/pkbm",
		Environment:        "development",
		MaxBodyBytes:       1048576,
		MaxUploadBytes:     4 * 1048576,
		RateLimitPerMinute: 60,
		ObjectiveCacheTTL:  time.Hour,
		ClassroomCacheTTL:  time.Hour,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing database url", mutate: func(c *Config) { c.DatabaseURL = " " }, wantErr: true},
		{name: "production without secret", mutate: func(c *Config) { c.Environment = "production" }, wantErr: true},
		{name: "production with secret and seed disabled", mutate: func(c *Config) {
			c.Environment = "production"
			c.JWTSecret = "a-long-secret"
			c.RunSeed = false
		}},
		{name: "tiny body limit", mutate: func(c *Config) { c.MaxBodyBytes = 10 }, wantErr: true},
		{name: "upload smaller than body", mutate: func(c *Config) { c.MaxUploadBytes = 2048 }, wantErr: true},
		{name: "zero rate limit", mutate: func(c *Config) { c.RateLimitPerMinute = 0 }, wantErr: true},
		{name: "zero cache ttl", mutate: func(c *Config) { c.ObjectiveCacheTTL = 0 }, wantErr: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestEnvFallbacks(t *testing.T) {
	t.Setenv("PKBM_TEST_INT", "not-a-number")
	t.Setenv("PKBM_TEST_BOOL", "yes-please")
	t.Setenv("PKBM_TEST_DURATION", "90m")

	if got := getEnvInt("PKBM_TEST_INT", 7); got != 7 {
		t.Fatalf("expected fallback 7, got %d", got)
	}
	if got := getEnvBool("PKBM_TEST_BOOL", true); !got {
		t.Fatal("expected fallback true")
	}
	if got := getEnvDuration("PKBM_TEST_DURATION", time.Minute); got != 90*time.Minute {
		t.Fatalf("expected 90m, got %s", got)
	}
	if got := getEnv("PKBM_TEST_MISSING", "x"); got != "x" {
		t.Fatalf("expected fallback x, got %s", got)
	}
}

package config

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func load(t *testing.T, env map[string]string) (*Config, error) {
	t.Helper()
	return LoadFrom(context.Background(), envconfig.MapLookuper(env))
}

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := load(t, map[string]string{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" || cfg.TokenStore != StoreMemory {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.API.URL != "http://localhost:5000/api" || cfg.API.Timeout != 15*time.Second {
		t.Fatalf("unexpected api defaults: %+v", cfg.API)
	}
	if cfg.Session.TTL != 12*time.Hour || cfg.Session.CookieName != "darziflow_session" {
		t.Fatalf("unexpected session defaults: %+v", cfg.Session)
	}
	if !cfg.Audit.Enabled || cfg.Audit.Workers != 4 {
		t.Fatalf("unexpected audit defaults: %+v", cfg.Audit)
	}
	if cfg.MongoEnabled() {
		t.Fatal("mongo must be off without MONGO_URI")
	}
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := load(t, map[string]string{
		"TOKEN_STORE":       "redis",
		"DARZIFLOW_API_URL": "https://api.darziflow.test/api",
		"API_TIMEOUT":       "3s",
		"REDIS_ADDR":        "redis:6379",
		"REDIS_DB":          "2",
		"AUDIT_ENABLED":     "false",
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.TokenStore != StoreRedis || cfg.Redis.Addr != "redis:6379" || cfg.Redis.DB != 2 {
		t.Fatalf("unexpected redis config: %+v", cfg)
	}
	if cfg.API.Timeout != 3*time.Second || cfg.Audit.Enabled {
		t.Fatalf("unexpected overrides: %+v", cfg)
	}
}

func TestLoadFrom_Validation(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"unknown store", map[string]string{"TOKEN_STORE": "etcd"}, "TOKEN_STORE"},
		{"mongo store without uri", map[string]string{"TOKEN_STORE": "mongo"}, "MONGO_URI"},
		{"bad api url", map[string]string{"DARZIFLOW_API_URL": "localhost"}, "DARZIFLOW_API_URL"},
		{"short hash key in production", map[string]string{"ENV": "production", "SESSION_HASH_KEY": "short"}, "SESSION_HASH_KEY"},
		{"bad block key", map[string]string{"SESSION_BLOCK_KEY": "abc"}, "SESSION_BLOCK_KEY"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := load(t, tc.env)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %s, got %v", tc.want, err)
			}
		})
	}
}

func TestLoadFrom_ProductionWithKeys(t *testing.T) {
	cfg, err := load(t, map[string]string{
		"ENV":               "production",
		"SESSION_HASH_KEY":  strings.Repeat("h", 32),
		"SESSION_BLOCK_KEY": strings.Repeat("b", 32),
		"TOKEN_STORE":       "mongo",
		"MONGO_URI":         "mongodb://mongo:27017",
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.IsProduction() || !cfg.MongoEnabled() {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

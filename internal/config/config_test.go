package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaultsWithSQLite(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("STOCK_CACHE_TTL", "")
	t.Setenv("PORT", "")
	t.Setenv("AUDIT_BACKEND", "")

	cfg, err := Load("testdata-does-not-exist.env")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Stock.CacheTTL != 5*time.Minute {
		t.Fatalf("expected 5m cache ttl, got %s", cfg.Stock.CacheTTL)
	}
	if cfg.Server.Port != "3000" || cfg.Audit.Backend != "sql" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"unknown driver", map[string]string{"DB_DRIVER": "oracle"}, "DB_DRIVER"},
		{"mongo without uri", map[string]string{"DB_DRIVER": "sqlite", "AUDIT_BACKEND": "mongo", "MONGODB_URI": ""}, "MONGODB_URI"},
		{"bad ttl", map[string]string{"DB_DRIVER": "sqlite", "STOCK_CACHE_TTL": "soon"}, "STOCK_CACHE_TTL"},
		{"zero ttl", map[string]string{"DB_DRIVER": "sqlite", "STOCK_CACHE_TTL": "0s"}, "STOCK_CACHE_TTL"},
		{"postgres without dsn", map[string]string{"DB_DRIVER": "postgres", "DATABASE_URL": "", "DB_HOST": ""}, "DATABASE_URL"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load("testdata-does-not-exist.env")
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %s, got %v", tc.want, err)
			}
		})
	}
}

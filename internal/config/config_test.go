package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var keys = []string{
	"CONFIG_FILE", "PORT", "DATA_DIR", "DATABASE_URL", "REDIS_DB", "REDIS_NAMESPACE",
	"SUMMARY_CACHE_TTL_SECONDS", "DEFAULT_EXCHANGE_RATE", "RATE_CHANGE_PIN",
	"RECEIPT_SECRET", "STORE_NAME", "STORE_TIMEZONE", "TRACE_STDOUT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
	}
}

func TestLoadDoesNotInjectWeakSecretDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RateChangePIN != "" {
		t.Fatalf("expected empty RATE_CHANGE_PIN when unset, got %q", cfg.RateChangePIN)
	}
	if cfg.ReceiptSecret != "" {
		t.Fatalf("expected empty RECEIPT_SECRET when unset, got %q", cfg.ReceiptSecret)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("expected :8080, got %q", cfg.Address())
	}
	if cfg.DefaultExchangeRate.String() != "36.5" {
		t.Fatalf("expected default rate 36.5, got %s", cfg.DefaultExchangeRate)
	}
	if cfg.SummaryCacheTTL() != time.Minute {
		t.Fatalf("expected 60s summary ttl, got %s", cfg.SummaryCacheTTL())
	}
	if cfg.DataDir != "data" {
		t.Fatalf("expected data dir default, got %q", cfg.DataDir)
	}
}

func TestLoadFileThenEnvironment(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "cajadual.yaml")
	content := "port: 9090\ndefault_exchange_rate: 40.25\nstore_name: Bodega Central\ntrace_stdout: true\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "7070")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "7070" {
		t.Fatalf("expected environment to override file port, got %q", cfg.Port)
	}
	if cfg.DefaultExchangeRate.String() != "40.25" {
		t.Fatalf("expected rate from file, got %s", cfg.DefaultExchangeRate)
	}
	if cfg.StoreName != "Bodega Central" {
		t.Fatalf("expected store name from file, got %q", cfg.StoreName)
	}
	if !cfg.TraceStdout {
		t.Fatalf("expected trace stdout from file")
	}
}

func TestLoadRejectsNonPositiveRate(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEFAULT_EXCHANGE_RATE", "0")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for zero default rate")
	}
}

func TestLoadRejectsMalformedRedisDB(t *testing.T) {
	for _, value := range []string{"one", "-2"} {
		clearEnv(t)
		t.Setenv("REDIS_DB", value)

		if _, err := Load(); err == nil {
			t.Fatalf("expected error for REDIS_DB=%q", value)
		}
	}
}

func TestLocation(t *testing.T) {
	cfg := Config{StoreTimezone: "UTC"}
	loc, err := cfg.Location()
	if err != nil || loc != time.UTC {
		t.Fatalf("expected UTC location, got %v %v", loc, err)
	}

	cfg.StoreTimezone = "Not/AZone"
	if _, err := cfg.Location(); err == nil {
		t.Fatalf("expected error for unknown timezone")
	}
}

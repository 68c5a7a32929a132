package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlBody := `
port: "9090"
signing_key: from-file
store:
  driver: file
  data_path: /tmp/state.json
mail:
  timeout: 3s
`
	if err := os.WriteFile(path, []byte(yamlBody), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("RETELL_API_KEY", "from-env")
	t.Setenv("RATE_LIMIT_RPS", "2.5")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want %q", cfg.Port, "9090")
	}
	if cfg.SigningKey != "from-env" {
		t.Errorf("SigningKey = %q, want %q", cfg.SigningKey, "from-env")
	}
	if cfg.Store.Driver != "file" || cfg.Store.DataPath != "/tmp/state.json" {
		t.Errorf("Store = %+v, want file driver at /tmp/state.json", cfg.Store)
	}
	if cfg.Mail.Timeout != 3*time.Second {
		t.Errorf("Mail.Timeout = %v, want 3s", cfg.Mail.Timeout)
	}
	if cfg.RateLimitRPS != 2.5 {
		t.Errorf("RateLimitRPS = %v, want 2.5", cfg.RateLimitRPS)
	}
	if cfg.SignatureHeader != "X-Retell-Signature" {
		t.Errorf("SignatureHeader = %q, want default", cfg.SignatureHeader)
	}
}

func TestLoadRequiresSigningKey(t *testing.T) {
	t.Setenv("RETELL_API_KEY", "")

	if _, err := Load(""); err == nil {
		t.Fatalf("expected error without signing key")
	}
}

func TestValidateStoreDrivers(t *testing.T) {
	cfg := Default()
	cfg.SigningKey = "k"

	cfg.Store.Driver = "postgres"
	if err := cfg.Validate(); err == nil {
		t.Errorf("postgres without DATABASE_URL should fail")
	}

	cfg.Store.DatabaseURL = "postgres://localhost/app"
	if err := cfg.Validate(); err != nil {
		t.Errorf("postgres with DATABASE_URL: %v", err)
	}

	cfg.Store.Driver = "mongo"
	if err := cfg.Validate(); err == nil {
		t.Errorf("unknown driver should fail")
	}
}

func TestReadSkipsValidation(t *testing.T) {
	t.Setenv("RETELL_API_KEY", "")
	t.Setenv("STORE_DRIVER", "redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Read("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := cfg.Store.Validate(); err != nil {
		t.Errorf("store config should be valid: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Errorf("full validation should require the signing key")
	}
}

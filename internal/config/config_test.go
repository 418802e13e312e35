package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.Port != DefaultPort {
		t.Errorf("expected port %d, got %d", DefaultPort, cfg.Server.Port)
	}
	if cfg.Database.Path != DefaultDBPath {
		t.Errorf("expected db path %s, got %s", DefaultDBPath, cfg.Database.Path)
	}
	if cfg.Auth.JWT.AccessTTL != DefaultAccessTTL {
		t.Errorf("expected access TTL %v, got %v", DefaultAccessTTL, cfg.Auth.JWT.AccessTTL)
	}
	if !cfg.Platform.DNSLess() {
		t.Error("expected default config to be DNS-less (no service_info_url)")
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := Default()
	if err := Validate(cfg); err != nil {
		t.Errorf("expected valid config, got error: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = 0

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for invalid port")
	}

	var errs ValidationErrors
	if !errors.As(err, &errs) {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}

	found := false
	for _, e := range errs {
		if e.Field == "server.port" {
			found = true
		}
	}
	if !found {
		t.Error("expected error for server.port field")
	}
}

func TestValidate_JWTRequiresSecretWhenEnabled(t *testing.T) {
	cfg := Default()
	cfg.Auth.JWT.Enabled = true
	cfg.Auth.JWT.Secret = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for missing JWT secret")
	}
}

func TestValidate_PlatformURLMustBeAbsolute(t *testing.T) {
	cfg := Default()
	cfg.Platform.ServiceInfoURL = "not-a-url"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for relative service_info_url")
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corehub.yaml")
	contents := "server:\n  port: 9090\ndatabase:\n  path: test.db\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Database.Path != "test.db" {
		t.Errorf("expected database path test.db, got %s", cfg.Database.Path)
	}
}

func TestConfigFilePath_NotFound(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(cwd)

	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	if _, err := ConfigFilePath(""); !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("expected ErrConfigNotFound, got %v", err)
	}
}

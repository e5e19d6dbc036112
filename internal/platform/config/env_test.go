package config

import "testing"

type testConfig struct {
	Addr    string `env:"ABSENTIA_TEST_ADDR" envDefault:"localhost:8080"`
	Enabled bool   `env:"ABSENTIA_TEST_ENABLED" envDefault:"false"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg testConfig
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Addr != "localhost:8080" {
		t.Fatalf("expected default addr, got %q", cfg.Addr)
	}
	if cfg.Enabled {
		t.Fatal("expected enabled to default to false")
	}
}

func TestParseEnvOverrides(t *testing.T) {
	t.Setenv("ABSENTIA_TEST_ADDR", "0.0.0.0:9999")
	t.Setenv("ABSENTIA_TEST_ENABLED", "true")

	var cfg testConfig
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Addr != "0.0.0.0:9999" {
		t.Fatalf("expected override addr, got %q", cfg.Addr)
	}
	if !cfg.Enabled {
		t.Fatal("expected enabled override")
	}
}

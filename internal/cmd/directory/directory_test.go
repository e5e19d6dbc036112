package directory

import (
	"flag"
	"testing"
	"time"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("directory", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPAddr != "localhost:8080" {
		t.Fatalf("unexpected http addr %q", cfg.HTTPAddr)
	}
	if cfg.TokenTTL != 12*time.Hour {
		t.Fatalf("unexpected token ttl %v", cfg.TokenTTL)
	}
}

func TestParseConfigEnvAndFlags(t *testing.T) {
	t.Setenv("ABSENTIA_DIRECTORY_HTTP_ADDR", "env-host:9999")
	t.Setenv("ABSENTIA_TOKEN_SECRET", "env-secret")

	fs := flag.NewFlagSet("directory", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-http-addr", "flag-host:8888"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPAddr != "flag-host:8888" {
		t.Fatalf("expected flag to override env, got %q", cfg.HTTPAddr)
	}
	if cfg.TokenSecret != "env-secret" {
		t.Fatalf("expected env secret, got %q", cfg.TokenSecret)
	}
}

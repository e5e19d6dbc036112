// Package directory parses configuration for and runs the directory daemon.
package directory

import (
	"context"
	"flag"
	"time"

	"github.com/absentiahq/absentia/internal/platform/config"
	"github.com/absentiahq/absentia/internal/platform/otel"
	server "github.com/absentiahq/absentia/internal/services/directory/app"
)

// Config holds directory command configuration. Environment values are the
// defaults; flags override them.
type Config struct {
	HTTPAddr    string        `env:"ABSENTIA_DIRECTORY_HTTP_ADDR" envDefault:"localhost:8080"`
	DBPath      string        `env:"ABSENTIA_DIRECTORY_DB_PATH" envDefault:"absentia.db"`
	TokenSecret string        `env:"ABSENTIA_TOKEN_SECRET"`
	TokenIssuer string        `env:"ABSENTIA_TOKEN_ISSUER" envDefault:"absentia"`
	TokenTTL    time.Duration `env:"ABSENTIA_TOKEN_TTL" envDefault:"12h"`
}

// ParseConfig loads env defaults and parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "The directory HTTP server address")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the SQLite database file")
	fs.StringVar(&cfg.TokenSecret, "token-secret", cfg.TokenSecret, "HMAC secret for access tokens")
	fs.StringVar(&cfg.TokenIssuer, "token-issuer", cfg.TokenIssuer, "Issuer claim for access tokens")
	fs.DurationVar(&cfg.TokenTTL, "token-ttl", cfg.TokenTTL, "Access token and session lifetime")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the directory server with tracing configured from env.
func Run(ctx context.Context, cfg Config) error {
	shutdown, err := otel.Setup(ctx, "directory")
	if err != nil {
		return err
	}
	defer shutdown(context.Background())

	return server.Run(ctx, server.Config{
		HTTPAddr:    cfg.HTTPAddr,
		DBPath:      cfg.DBPath,
		TokenSecret: cfg.TokenSecret,
		TokenIssuer: cfg.TokenIssuer,
		TokenTTL:    cfg.TokenTTL,
	})
}

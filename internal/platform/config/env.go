// Package config loads service configuration from the process environment.
//
// Every variable carries the ABSENTIA_ prefix; defaults live in the env
// struct tags next to each field, so a command's Config struct is the full
// inventory of what it reads.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ParseEnv populates target's env-tagged fields from environment variables.
// Commands call it before applying flag overrides, so flags win.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	return nil
}

package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	log "github.com/sirupsen/logrus"
)

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Logging is embedded by every binary's configuration.
type Logging struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
}

// Apply sets the process wide logrus level.
func (l Logging) Apply() error {
	level, err := log.ParseLevel(l.Level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	log.SetLevel(level)
	return nil
}

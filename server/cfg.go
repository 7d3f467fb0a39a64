package server

import (
	"time"

	"github.com/zucenko/losttreasure/config"
)

type Config struct {
	config.Logging
	Port           string        `env:"PORT" envDefault:"8080"`
	JournalPath    string        `env:"JOURNAL_PATH" envDefault:"journal.db"`
	HandoffTimeout time.Duration `env:"HANDOFF_TIMEOUT" envDefault:"200ms"`
	// Seed fixes dice for every game when non zero.
	Seed int64 `env:"SEED"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

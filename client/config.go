package client

import (
	"time"

	"github.com/zucenko/losttreasure/config"
)

type Config struct {
	config.Logging
	ServerURL  string        `env:"SERVER_URL" envDefault:"http://localhost:8080"`
	PlayerName string        `env:"PLAYER_NAME" envDefault:"player"`
	GameToken  string        `env:"GAME_TOKEN"`
	AckTimeout time.Duration `env:"ACK_TIMEOUT" envDefault:"1s"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

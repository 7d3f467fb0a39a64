package config

import (
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type envTestConfig struct {
	Logging
	Port    int           `env:"LOSTTREASURE_TEST_PORT" envDefault:"123"`
	Timeout time.Duration `env:"LOSTTREASURE_TEST_TIMEOUT" envDefault:"200ms"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig
	require.NoError(t, ParseEnv(&cfg))
	require.Equal(t, 123, cfg.Port)
	require.Equal(t, 200*time.Millisecond, cfg.Timeout)
	require.Equal(t, "info", cfg.Level)
}

func TestParseEnvError(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("LOSTTREASURE_TEST_PORT", "not-an-int")

	err := ParseEnv(&cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse env:")
}

func TestLoggingApply(t *testing.T) {
	defer log.SetLevel(log.GetLevel())

	require.NoError(t, Logging{Level: "debug"}.Apply())
	require.Equal(t, log.DebugLevel, log.GetLevel())
	require.Error(t, Logging{Level: "loud"}.Apply())
}

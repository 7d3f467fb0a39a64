package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		for _, line := range []string{"roll", "move open 12", "move base 0", "card skip", "card multiply",
			"unselect", "say hello there", "start", "board", "snapshot", "history", "quit"} {
			cmd, err := parse(line)
			require.NoError(t, err, line)
			require.NotNil(t, cmd, line)
		}
	})
	t.Run("refused", func(t *testing.T) {
		for _, line := range []string{"fly", "move", "move side 3", "move open x", "card joker", "card"} {
			_, err := parse(line)
			require.Error(t, err, line)
		}
	})
	cmd, err := parse("   ")
	require.NoError(t, err)
	require.Nil(t, cmd, "blank lines are ignored")
}

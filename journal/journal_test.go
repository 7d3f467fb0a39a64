package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zucenko/losttreasure/model"
)

func openTemp(t *testing.T) *Journal {
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func broadcast(seq uint64, player int) model.ServerMessage {
	return model.ServerMessage{Seq: seq, Updates: []model.Update{{Turn: &model.Turn{Player: player, Rotated: true}}}}
}

func TestJournal(t *testing.T) {
	ctx := context.Background()
	j := openTemp(t)

	for seq := uint64(1); seq <= 3; seq++ {
		require.NoError(t, j.Append(ctx, "g1", broadcast(seq, int(seq))))
	}
	require.NoError(t, j.Append(ctx, "g2", broadcast(1, 0)))

	t.Run("since returns the tail in order", func(t *testing.T) {
		got, err := j.Since(ctx, "g1", 1)
		require.NoError(t, err)
		require.Len(t, got, 2)
		require.Equal(t, uint64(2), got[0].Seq)
		require.Equal(t, 3, got[1].Updates[0].Turn.Player)
	})

	t.Run("games do not mix", func(t *testing.T) {
		got, err := j.Since(ctx, "g2", 0)
		require.NoError(t, err)
		require.Len(t, got, 1)
		got, err = j.Since(ctx, "nope", 0)
		require.NoError(t, err)
		require.Empty(t, got)
	})

	t.Run("sequence numbers are unique per game", func(t *testing.T) {
		err := j.Append(ctx, "g1", broadcast(2, 0))
		require.True(t, errors.Is(err, ErrDuplicate), "got %v", err)
	})

	t.Run("game token is required", func(t *testing.T) {
		require.Error(t, j.Append(ctx, "", broadcast(9, 0)))
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		require.Error(t, j.Append(cctx, "g1", broadcast(9, 0)))
	})
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("  ")
	require.Error(t, err)
}

func TestReopenKeepsUpdates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, j.Append(context.Background(), "g", broadcast(1, 1)))
	require.NoError(t, j.Close())

	j, err = Open(path)
	require.NoError(t, err)
	defer j.Close()
	got, err := j.Since(context.Background(), "g", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
}

package engine

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zucenko/losttreasure/model"
)

func address(t *model.Token) (model.CellKind, int) {
	if !t.InPlay() {
		return model.KindBase, t.Index
	}
	return t.Cell.Address()
}

// mirrored drives an authoritative game and feeds every update to a mirror.
type mirrored struct {
	t      *testing.T
	auth   *Game
	mirror *Game
}

func (m *mirrored) feed(updates []model.Update, err error) {
	require.NoError(m.t, err)
	for _, u := range updates {
		require.NoError(m.t, m.mirror.Apply(u), "applying %+v", u)
	}
}

func (m *mirrored) tryMove(player int, order []int) bool {
	p := m.auth.Players[player]
	for _, i := range order {
		kind, index := address(p.Tokens[i])
		if _, _, err := m.auth.CheckMove(player, kind, index); err == nil {
			m.feed(m.auth.Move(player, kind, index))
			return true
		}
	}
	return false
}

// step plays one roll for the turn holder, sometimes arming a card first.
func (m *mirrored) step(choice *rand.Rand) {
	cur := m.auth.Turn
	p := m.auth.Players[cur]
	if p.Hand.Selected == "" && p.Hand.Total() > 0 && choice.Intn(2) == 0 {
		for _, kind := range model.CardKinds {
			if m.auth.CheckSelect(cur, kind) == nil {
				m.feed(m.auth.SelectCard(cur, kind))
				break
			}
		}
	}
	m.feed(m.auth.Roll(cur))
	if p.Phase != model.AwaitingMoveChoice {
		return
	}
	order := choice.Perm(model.TokensPerPlayer)
	if m.tryMove(cur, order) {
		return
	}
	// an armed multiply can rule out every advance
	m.feed(m.auth.UnselectCard(cur))
	require.True(m.t, m.tryMove(cur, order), "a legal move was promised")
}

func checkInvariants(t *testing.T, g *Game) {
	for _, p := range g.Players {
		all := true
		for _, tok := range p.Tokens {
			require.True(t, tok.Position == model.BasePosition || (tok.Position >= 0 && tok.Position <= model.EndPosition),
				"token %s at %d", tok.Code(), tok.Position)
			require.Equal(t, tok.Position == model.EndPosition, tok.Won, "token %s won flag", tok.Code())
			all = all && tok.Won
		}
		require.Equal(t, all, p.Won, "player %d won flag", p.Index)
	}
}

func TestMirrorFollowsAuthority(t *testing.T) {
	for _, players := range []int{2, 3, 4} {
		auth := NewGame(rand.New(rand.NewSource(int64(players))))
		mirror := NewGame(nil)
		for i := 0; i < players; i++ {
			_, err := auth.AddPlayer(names[i])
			require.NoError(t, err)
		}
		m := &mirrored{t: t, auth: auth, mirror: mirror}
		m.feed(auth.Start())

		choice := rand.New(rand.NewSource(99))
		for i := 0; i < 4000 && !auth.Finished; i++ {
			m.step(choice)
			checkInvariants(t, auth)
			require.Equal(t, auth.Snapshot(), mirror.Snapshot(), "%d players, step %d", players, i)
		}
	}
}

func TestMirrorFollowsQuit(t *testing.T) {
	auth := NewGame(rand.New(rand.NewSource(5)))
	mirror := NewGame(nil)
	for i := 0; i < 3; i++ {
		_, err := auth.AddPlayer(names[i])
		require.NoError(t, err)
	}
	m := &mirrored{t: t, auth: auth, mirror: mirror}
	m.feed(auth.Start())
	choice := rand.New(rand.NewSource(1))
	for i := 0; i < 30; i++ {
		m.step(choice)
	}
	m.feed(auth.Quit(auth.Turn))
	require.Equal(t, auth.Snapshot(), mirror.Snapshot())
	for _, p := range auth.Players {
		if !p.Left && p.Index != auth.Turn {
			m.feed(auth.Quit(p.Index))
			break
		}
	}
	require.True(t, mirror.Finished)
	require.Equal(t, auth.Snapshot(), mirror.Snapshot())
}

func TestSnapshotRoundTrip(t *testing.T) {
	auth := NewGame(rand.New(rand.NewSource(11)))
	for i := 0; i < 4; i++ {
		_, err := auth.AddPlayer(names[i])
		require.NoError(t, err)
	}
	m := &mirrored{t: t, auth: auth, mirror: NewGame(nil)}
	m.feed(auth.Start())
	choice := rand.New(rand.NewSource(3))
	for i := 0; i < 300 && !auth.Finished; i++ {
		m.step(choice)
	}

	snap := auth.Snapshot()
	fresh := NewGame(nil)
	require.NoError(t, fresh.Restore(snap))
	require.Equal(t, snap, fresh.Snapshot())
	require.Equal(t, auth.Turn, fresh.Turn)
	for i, p := range auth.Players {
		for ti, tok := range p.Tokens {
			require.Equal(t, tok.Position, fresh.Players[i].Tokens[ti].Position)
			if tok.InPlay() {
				require.Equal(t, tok.Cell.Index, fresh.Players[i].Tokens[ti].Cell.Index)
			}
		}
		require.Equal(t, p.Hand.Cards, fresh.Players[i].Hand.Cards)
	}

	t.Run("restored game keeps mirroring", func(t *testing.T) {
		m.mirror = fresh
		for i := 0; i < 50 && !auth.Finished; i++ {
			m.step(choice)
		}
		require.Equal(t, auth.Snapshot(), fresh.Snapshot())
	})

	t.Run("bad snapshots are refused", func(t *testing.T) {
		bad := auth.Snapshot()
		bad.Players[1].Positions[0] = 70
		require.True(t, errors.Is(NewGame(nil).Restore(bad), ErrDesync))

		bad = auth.Snapshot()
		bad.Direction = 0
		require.True(t, errors.Is(NewGame(nil).Restore(bad), ErrDesync))

		bad = auth.Snapshot()
		bad.Players = bad.Players[:2]
		require.True(t, errors.Is(NewGame(nil).Restore(bad), ErrDesync))
	})
}

func TestApplyDropsDesync(t *testing.T) {
	s := &script{}
	g := newStarted(t, 2, s)
	before := g.Snapshot()

	for _, u := range []model.Update{
		{},
		{Turn: &model.Turn{Player: 5}},
		{Dice: &model.DiceRolled{Player: 1, Value: 3}},
		{Dice: &model.DiceRolled{Player: 0, Value: 9}},
		{Moved: &model.TokenMoved{Player: 0, Token: 4, CellKind: model.KindOpen}},
		{Moved: &model.TokenMoved{Player: 0, Token: 0, CellIndex: 52, CellKind: model.KindOpen}},
		{Moved: &model.TokenMoved{Player: 0, Token: 0, CellIndex: 51, CellKind: model.KindOpen}},
		{Moved: &model.TokenMoved{Player: 7, Token: 0, CellKind: model.KindOpen}},
		{Capture: &model.CaptureOccurred{Player: 0, Token: 0, By: 0}},
		{Won: &model.PlayerWon{Player: 1, Rank: 1}},
		{Card: &model.CardBalanceChanged{Player: 0, Method: model.CardRemove, Kind: model.CardSkip}},
		{Card: &model.CardBalanceChanged{Player: 0, Method: model.CardAdd, Kind: "card_steal"}},
		{Card: &model.CardBalanceChanged{Player: 0, Method: "swap", Kind: model.CardSkip}},
		{Selected: &model.CardSelected{Player: 0, Kind: model.CardExtra}},
		{Direction: &model.DirectionChanged{Direction: 2}},
		{Left: &model.PlayerLeft{Player: -1}},
		{Started: &model.GameStarted{}},
		{Joined: &model.PlayerJoined{Seat: model.Seat{Index: 3, Name: "x"}}},
	} {
		err := g.Apply(u)
		require.True(t, errors.Is(err, ErrDesync), "%+v should be refused, got %v", u, err)
	}
	require.Equal(t, before, g.Snapshot(), "dropped updates leave no trace")

	require.NoError(t, g.Apply(model.Update{Chat: &model.ChatMessage{Player: 1, Text: "hi"}}))
}

func TestApplyScenarios(t *testing.T) {
	t.Run("capture through updates", func(t *testing.T) {
		g := newStarted(t, 2, &script{})
		require.NoError(t, g.Apply(model.Update{Moved: &model.TokenMoved{Player: 0, Token: 0, CellIndex: 10, CellKind: model.KindOpen}}))
		require.Equal(t, 10, g.Players[0].Tokens[0].Position)
		require.NoError(t, g.Apply(model.Update{Capture: &model.CaptureOccurred{Player: 0, Token: 0, By: 1}}))
		require.Equal(t, model.BasePosition, g.Players[0].Tokens[0].Position)
		require.True(t, g.Players[1].Kill)
		require.Zero(t, g.Players[0].Hand.Total())
	})

	t.Run("close cells resolve against the mover", func(t *testing.T) {
		g := newStarted(t, 2, &script{})
		require.NoError(t, g.Apply(model.Update{Moved: &model.TokenMoved{Player: 1, Token: 2, CellIndex: 5, CellKind: model.KindClose}}))
		require.Equal(t, model.EndPosition, g.Players[1].Tokens[2].Position)
		require.True(t, g.Players[1].Tokens[2].Won)
	})

	t.Run("finish marks the rest lost", func(t *testing.T) {
		g := newStarted(t, 2, &script{})
		for tok := 0; tok < 4; tok++ {
			require.NoError(t, g.Apply(model.Update{Moved: &model.TokenMoved{Player: 1, Token: tok, CellIndex: 5, CellKind: model.KindClose}}))
		}
		require.NoError(t, g.Apply(model.Update{Won: &model.PlayerWon{Player: 1, Rank: 1, GameFinished: true}}))
		require.True(t, g.Finished)
		require.True(t, g.Players[0].Lost)
		require.Equal(t, 1, g.Players[1].Rank)
	})

	t.Run("armed card cleared when played", func(t *testing.T) {
		g := newStarted(t, 2, &script{})
		for _, u := range []model.Update{
			{Card: &model.CardBalanceChanged{Player: 0, Method: model.CardAdd, Kind: model.CardSkip}},
			{Card: &model.CardBalanceChanged{Player: 0, Method: model.CardAdd, Kind: model.CardSkip}},
			{Selected: &model.CardSelected{Player: 0, Kind: model.CardSkip}},
			{Card: &model.CardBalanceChanged{Player: 0, Method: model.CardRemove, Kind: model.CardSkip}},
		} {
			require.NoError(t, g.Apply(u))
		}
		require.Equal(t, 1, g.Players[0].Hand.Count(model.CardSkip))
		require.Equal(t, model.CardKind(""), g.Players[0].Hand.Selected)
		require.True(t, g.PendingSkip)
	})
}

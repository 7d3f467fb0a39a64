package engine

import (
	"fmt"

	"github.com/zucenko/losttreasure/model"
)

// Snapshot captures everything a fresh mirror needs to continue the game.
func (g *Game) Snapshot() model.Snapshot {
	s := model.Snapshot{
		Seats:       g.Seats(),
		Players:     make([]model.PlayerState, 0, len(g.Players)),
		Started:     g.Started,
		Finished:    g.Finished,
		Turn:        g.Turn,
		Direction:   g.Direction,
		PendingSkip: g.PendingSkip,
	}
	for _, p := range g.Players {
		ps := model.PlayerState{
			Index:    p.Index,
			Phase:    p.Phase,
			Won:      p.Won,
			Rank:     p.Rank,
			Lost:     p.Lost,
			Left:     p.Left,
			Cards:    make(map[model.CardKind]int, len(p.Hand.Cards)),
			Selected: p.Hand.Selected,
		}
		for i, t := range p.Tokens {
			ps.Positions[i] = t.Position
		}
		for kind, n := range p.Hand.Cards {
			ps.Cards[kind] = n
		}
		s.Players = append(s.Players, ps)
	}
	if cur := g.Current(); cur != nil && cur.Dice != nil {
		s.Dice = cur.Dice.Value
		s.CanMove = cur.Dice.CanMove
	}
	return s
}

// Restore replaces the game state with s. The board is rebuilt; an observer
// attached to the old board is carried over.
func (g *Game) Restore(s model.Snapshot) error {
	if len(s.Players) != len(s.Seats) || len(s.Seats) > model.MaxPlayers {
		return fmt.Errorf("snapshot of %d players for %d seats: %w", len(s.Players), len(s.Seats), ErrDesync)
	}
	board := model.NewBoard()
	board.Observer = g.Board.Observer
	players := make([]*model.Player, 0, len(s.Seats))
	for i, seat := range s.Seats {
		ps := s.Players[i]
		if seat.Index != i || ps.Index != i {
			return fmt.Errorf("snapshot seat %d out of order: %w", i, ErrDesync)
		}
		p := model.NewPlayer(board, i, seat.Name)
		for ti, pos := range ps.Positions {
			if pos == model.BasePosition {
				continue
			}
			if pos < 0 || pos > model.EndPosition {
				return fmt.Errorf("token %d of player %d at %d: %w", ti, i, pos, ErrDesync)
			}
			if err := p.Tokens[ti].Move(p.Path[pos]); err != nil {
				return fmt.Errorf("%v: %w", err, ErrDesync)
			}
		}
		if p.Won != ps.Won {
			return fmt.Errorf("player %d won flag disagrees with tokens: %w", i, ErrDesync)
		}
		for kind, n := range ps.Cards {
			if !kind.Valid() || n < 0 {
				return fmt.Errorf("card %q x%d: %w", kind, n, ErrDesync)
			}
			if n > 0 {
				p.Hand.Cards[kind] = n
			}
		}
		if ps.Selected != "" {
			if err := p.Hand.Select(ps.Selected); err != nil {
				return fmt.Errorf("%v: %w", err, ErrDesync)
			}
		}
		p.Phase = ps.Phase
		p.Rank = ps.Rank
		p.Lost = ps.Lost
		p.Left = ps.Left
		players = append(players, p)
	}
	if s.Direction != Clockwise && s.Direction != CounterClockwise {
		return fmt.Errorf("direction %d: %w", s.Direction, ErrDesync)
	}
	if s.Turn < -1 || s.Turn >= len(players) {
		return fmt.Errorf("turn %d: %w", s.Turn, ErrDesync)
	}

	g.Board = board
	g.Players = players
	g.Started = s.Started
	g.Finished = s.Finished
	g.Turn = s.Turn
	g.Direction = s.Direction
	g.PendingSkip = s.PendingSkip
	if cur := g.Current(); cur != nil && s.Started && !s.Finished {
		cur.Turn = true
		cur.Dice = model.NewDice()
		cur.Dice.Set(s.Dice)
		cur.Dice.CanMove = s.CanMove
	}
	return nil
}

package engine

import (
	"fmt"

	"github.com/zucenko/losttreasure/model"
)

// Apply mirrors one authoritative update. An update that does not fit the
// current state returns an error wrapping ErrDesync and changes nothing.
func (g *Game) Apply(u model.Update) error {
	switch {
	case u.Joined != nil:
		return g.applyJoined(u.Joined)
	case u.Started != nil:
		return g.applyStarted(u.Started)
	case u.Turn != nil:
		return g.applyTurn(u.Turn)
	case u.Dice != nil:
		return g.applyDice(u.Dice)
	case u.Moved != nil:
		return g.applyMoved(u.Moved)
	case u.Capture != nil:
		return g.applyCapture(u.Capture)
	case u.Won != nil:
		return g.applyWon(u.Won)
	case u.Card != nil:
		return g.applyCard(u.Card)
	case u.Selected != nil:
		return g.applySelected(u.Selected)
	case u.Direction != nil:
		return g.applyDirection(u.Direction)
	case u.Left != nil:
		return g.applyLeft(u.Left)
	case u.Chat != nil:
		// view only
		return nil
	}
	return fmt.Errorf("empty update: %w", ErrDesync)
}

func (g *Game) applyJoined(j *model.PlayerJoined) error {
	if j.Seat.Index < len(g.Players) && g.Players[j.Seat.Index].Name == j.Seat.Name {
		return nil
	}
	if j.Seat.Index != len(g.Players) {
		return fmt.Errorf("seat %d joined with %d seated: %w", j.Seat.Index, len(g.Players), ErrDesync)
	}
	if _, err := g.AddPlayer(j.Seat.Name); err != nil {
		return fmt.Errorf("seat %d: %v: %w", j.Seat.Index, err, ErrDesync)
	}
	return nil
}

func (g *Game) applyStarted(s *model.GameStarted) error {
	if g.Started {
		return fmt.Errorf("start twice: %w", ErrDesync)
	}
	for _, seat := range s.Seats {
		if err := g.applyJoined(&model.PlayerJoined{Seat: seat}); err != nil {
			return err
		}
	}
	if len(g.Players) != len(s.Seats) {
		return fmt.Errorf("started with %d seats, have %d: %w", len(s.Seats), len(g.Players), ErrDesync)
	}
	g.Started = true
	return nil
}

func (g *Game) applyTurn(t *model.Turn) error {
	if !g.Started || g.Finished {
		return fmt.Errorf("turn outside play: %w", ErrDesync)
	}
	p, err := g.player(t.Player)
	if err != nil {
		return err
	}
	if !p.Active() {
		return fmt.Errorf("turn for inactive player %d: %w", t.Player, ErrDesync)
	}
	if t.Rotated {
		g.PendingSkip = false
	}
	g.beginTurn(t.Player)
	return nil
}

func (g *Game) applyDice(d *model.DiceRolled) error {
	p, err := g.player(d.Player)
	if err != nil {
		return err
	}
	if d.Player != g.Turn || p.Dice == nil {
		return fmt.Errorf("dice for player %d during turn of %d: %w", d.Player, g.Turn, ErrDesync)
	}
	if d.Value < 1 || d.Value > 6 {
		return fmt.Errorf("dice value %d: %w", d.Value, ErrDesync)
	}
	p.Dice.Set(d.Value)
	p.Dice.CanMove = d.CanMove
	p.Phase = model.RollReceived
	if d.CanMove {
		p.Phase = model.AwaitingMoveChoice
	}
	return nil
}

func (g *Game) token(player, token int) (*model.Token, error) {
	p, err := g.player(player)
	if err != nil {
		return nil, err
	}
	if token < 0 || token >= model.TokensPerPlayer {
		return nil, fmt.Errorf("token %d of player %d: %w", token, player, ErrDesync)
	}
	return p.Tokens[token], nil
}

func (g *Game) applyMoved(m *model.TokenMoved) error {
	t, err := g.token(m.Player, m.Token)
	if err != nil {
		return err
	}
	cell, err := g.Board.Cell(m.CellKind, m.Player, m.CellIndex)
	if err != nil {
		return fmt.Errorf("%v: %w", err, ErrDesync)
	}
	if cell == nil {
		t.ReturnToBase()
	} else if err := t.Move(cell); err != nil {
		return fmt.Errorf("%v: %w", err, ErrDesync)
	}
	p := t.Player
	p.Kill = false
	if p.Turn {
		p.Phase = model.MoveApplied
	}
	return nil
}

func (g *Game) applyCapture(c *model.CaptureOccurred) error {
	victim, err := g.token(c.Player, c.Token)
	if err != nil {
		return err
	}
	by, err := g.player(c.By)
	if err != nil {
		return err
	}
	if c.By == c.Player {
		return fmt.Errorf("player %d captured own token: %w", c.By, ErrDesync)
	}
	victim.ReturnToBase()
	by.Kill = true
	return nil
}

func (g *Game) applyWon(w *model.PlayerWon) error {
	p, err := g.player(w.Player)
	if err != nil {
		return err
	}
	if !p.Won {
		return fmt.Errorf("player %d won with tokens still out: %w", w.Player, ErrDesync)
	}
	p.Rank = w.Rank
	p.Phase = model.Won
	if w.GameFinished {
		g.finish(false)
	}
	return nil
}

func (g *Game) applyCard(c *model.CardBalanceChanged) error {
	p, err := g.player(c.Player)
	if err != nil {
		return err
	}
	if !c.Kind.Valid() {
		return fmt.Errorf("card %q: %w", c.Kind, ErrDesync)
	}
	switch c.Method {
	case model.CardAdd:
		p.Hand.Add(c.Kind)
	case model.CardRemove:
		// a removal is always the armed card being played
		if !p.Hand.Remove(c.Kind) {
			return fmt.Errorf("player %d plays missing %s: %w", c.Player, c.Kind, ErrDesync)
		}
		if p.Hand.Selected == c.Kind {
			p.Hand.Unselect()
		}
		if c.Kind == model.CardSkip {
			g.PendingSkip = true
		}
	default:
		return fmt.Errorf("card method %q: %w", c.Method, ErrDesync)
	}
	return nil
}

func (g *Game) applySelected(s *model.CardSelected) error {
	p, err := g.player(s.Player)
	if err != nil {
		return err
	}
	if s.Kind == "" {
		p.Hand.Unselect()
		return nil
	}
	if err := p.Hand.Select(s.Kind); err != nil {
		return fmt.Errorf("%v: %w", err, ErrDesync)
	}
	return nil
}

func (g *Game) applyDirection(d *model.DirectionChanged) error {
	if d.Direction != Clockwise && d.Direction != CounterClockwise {
		return fmt.Errorf("direction %d: %w", d.Direction, ErrDesync)
	}
	g.Direction = d.Direction
	return nil
}

func (g *Game) applyLeft(l *model.PlayerLeft) error {
	p, err := g.player(l.Player)
	if err != nil {
		return err
	}
	p.Left = true
	if l.GameFinished {
		g.finish(true)
		return nil
	}
	if g.Turn != l.Player {
		idle(p)
	}
	return nil
}

package engine

import (
	"fmt"

	"github.com/zucenko/losttreasure/model"
)

const (
	Clockwise        = 1
	CounterClockwise = -1
)

// Game is the state of one session. It is not safe for concurrent use; a
// single goroutine owns it on the server and on the client.
type Game struct {
	Board       *model.Board
	Players     []*model.Player
	Started     bool
	Finished    bool
	Turn        int
	Direction   int
	PendingSkip bool

	roller model.Roller
}

// NewGame returns an empty lobby. roller may be nil for a mirror that never
// rolls itself.
func NewGame(roller model.Roller) *Game {
	return &Game{
		Board:     model.NewBoard(),
		Players:   make([]*model.Player, 0, model.MaxPlayers),
		Turn:      -1,
		Direction: Clockwise,
		roller:    roller,
	}
}

// AddPlayer seats a new player and returns their index.
func (g *Game) AddPlayer(name string) (int, error) {
	if g.Started {
		return 0, ErrAlreadyStarted
	}
	if len(g.Players) >= model.MaxPlayers {
		return 0, ErrGameFull
	}
	index := len(g.Players)
	g.Players = append(g.Players, model.NewPlayer(g.Board, index, name))
	return index, nil
}

func (g *Game) Seats() []model.Seat {
	seats := make([]model.Seat, 0, len(g.Players))
	for _, p := range g.Players {
		seats = append(seats, model.Seat{Index: p.Index, Name: p.Name, Code: p.Code})
	}
	return seats
}

// Current is the player holding the turn, nil outside play.
func (g *Game) Current() *model.Player {
	if g.Turn < 0 || g.Turn >= len(g.Players) {
		return nil
	}
	return g.Players[g.Turn]
}

func (g *Game) player(index int) (*model.Player, error) {
	if index < 0 || index >= len(g.Players) {
		return nil, fmt.Errorf("player %d of %d: %w", index, len(g.Players), ErrDesync)
	}
	return g.Players[index], nil
}

func (g *Game) activeCount() int {
	n := 0
	for _, p := range g.Players {
		if p.Active() {
			n++
		}
	}
	return n
}

func (g *Game) wonCount() int {
	n := 0
	for _, p := range g.Players {
		if p.Won {
			n++
		}
	}
	return n
}

// beginTurn hands the turn to index with a fresh unrolled die.
func (g *Game) beginTurn(index int) {
	g.Turn = index
	for _, p := range g.Players {
		p.Turn = false
		p.Dice = nil
		if p.Won {
			p.Phase = model.Won
		} else {
			p.Phase = model.Idle
		}
	}
	p := g.Players[index]
	p.Turn = true
	p.Dice = model.NewDice()
	p.Phase = model.AwaitingRoll
}

// nextTurn walks the rotation from the current player, skipping players out of
// play and, once, the player bypassed by a pending skip card.
func (g *Game) nextTurn() int {
	n := len(g.Players)
	skip := g.PendingSkip
	g.PendingSkip = false
	i := g.Turn
	for step := 0; step < 2*n; step++ {
		i = ((i+g.Direction)%n + n) % n
		if !g.Players[i].Active() {
			continue
		}
		if skip {
			skip = false
			continue
		}
		return i
	}
	return g.Turn
}

// finish ends the game. Unfinished players lose unless survivor is set, in
// which case the last active player is spared.
func (g *Game) finish(survivor bool) {
	g.Finished = true
	for _, p := range g.Players {
		p.Turn = false
		p.Dice = nil
		switch {
		case p.Won:
			p.Phase = model.Won
		case survivor && !p.Left:
			p.Phase = model.Idle
		default:
			p.Lost = true
			p.Phase = model.Idle
		}
	}
}

// assignRank records a fresh win and reports whether it ends the game.
func (g *Game) assignRank(p *model.Player) bool {
	p.Rank = g.wonCount()
	p.Phase = model.Won
	return g.activeCount() <= 1
}

package model

import (
	"errors"
	"fmt"
)

var (
	ErrNotOnPath = errors.New("cell is not on the token's path")
	ErrBadCell   = errors.New("cell out of range")
	ErrNoCard    = errors.New("card not in hand")
)

// NewBoard builds the fixed topology: 52 open cells with a colored start at
// offset 0 and a star at offset 8 of every quadrant, then 6 close cells per
// color ending in the End cell.
func NewBoard() *Board {
	b := &Board{}
	for q := 0; q < MaxPlayers; q++ {
		for c := 0; c < QuadrantSize; c++ {
			index := q*QuadrantSize + c
			cell := &Cell{Color: White, Type: Open, Index: index, Owner: -1, board: b}
			if c == 0 {
				cell.Color = ColorOfPlayer(q)
			} else if c == StarOffset {
				cell.Type = Star
			}
			b.Open[index] = cell
		}
		for c := 0; c < CloseCells; c++ {
			cell := &Cell{Color: ColorOfPlayer(q), Type: Close, Index: c, Owner: q, board: b}
			if c == CloseCells-1 {
				cell.Type = End
			}
			b.Closed[q][c] = cell
		}
	}
	return b
}

// CellForPlayerAt maps a logical position on a player's path to its cell.
// Base and out of range positions have no cell.
func (b *Board) CellForPlayerAt(player, position int) *Cell {
	if player < 0 || player >= MaxPlayers {
		return nil
	}
	switch {
	case position >= 0 && position <= LastOpenPosition:
		return b.Open[(player*QuadrantSize+position)%OpenCells]
	case position > LastOpenPosition && position <= EndPosition:
		return b.Closed[player][position-LastOpenPosition-1]
	}
	return nil
}

// PositionOf is the inverse of CellForPlayerAt. It returns BasePosition for a
// nil cell and ErrNotOnPath for cells the player can never stand on.
func (b *Board) PositionOf(player int, cell *Cell) (int, error) {
	if cell == nil {
		return BasePosition, nil
	}
	switch cell.Type {
	case Close, End:
		if cell.Owner != player {
			return 0, fmt.Errorf("close cell %d of player %d: %w", cell.Index, cell.Owner, ErrNotOnPath)
		}
		return LastOpenPosition + 1 + cell.Index, nil
	}
	pos := (cell.Index - player*QuadrantSize + OpenCells) % OpenCells
	if pos > LastOpenPosition {
		return 0, fmt.Errorf("open cell %d for player %d: %w", cell.Index, player, ErrNotOnPath)
	}
	return pos, nil
}

// Cell resolves the (kind, index) addressing used by network messages.
// Close cells belong to the given player; base resolves to a nil cell.
func (b *Board) Cell(kind CellKind, player, index int) (*Cell, error) {
	switch kind {
	case KindOpen:
		if index < 0 || index >= OpenCells {
			return nil, fmt.Errorf("open %d: %w", index, ErrBadCell)
		}
		return b.Open[index], nil
	case KindClose:
		if player < 0 || player >= MaxPlayers || index < 0 || index >= CloseCells {
			return nil, fmt.Errorf("close %d/%d: %w", player, index, ErrBadCell)
		}
		return b.Closed[player][index], nil
	case KindBase:
		return nil, nil
	}
	return nil, fmt.Errorf("kind %q: %w", kind, ErrBadCell)
}

// Address is the network form of a cell; nil is the base.
func (c *Cell) Address() (CellKind, int) {
	if c == nil {
		return KindBase, 0
	}
	if c.Type == Close || c.Type == End {
		return KindClose, c.Index
	}
	return KindOpen, c.Index
}

func (c *Cell) IsCaptureEligible() bool {
	return c.Type == Open && c.Color == White
}

func (c *Cell) AddToken(t *Token) {
	c.Tokens = append(c.Tokens, t)
	c.notify()
}

func (c *Cell) RemoveToken(t *Token, notify bool) {
	for i, other := range c.Tokens {
		if other == t {
			c.Tokens = append(c.Tokens[:i], c.Tokens[i+1:]...)
			break
		}
	}
	if notify {
		c.notify()
	}
}

func (c *Cell) notify() {
	if c.board != nil && c.board.Observer != nil {
		c.board.Observer.CellChanged(c)
	}
}

// ResolveCapture sends every opposing token on the cell back to base, unless
// some player holds a block of two or more tokens here. It must run before the
// moving token joins the cell. Returns the captured tokens.
func (c *Cell) ResolveCapture(moving *Token) []*Token {
	victims := c.CaptureVictims(moving)
	for _, v := range victims {
		v.ReturnToBase()
	}
	if len(victims) > 0 {
		c.notify()
	}
	return victims
}

// CaptureVictims reports what ResolveCapture would take without mutating.
func (c *Cell) CaptureVictims(moving *Token) []*Token {
	if !c.IsCaptureEligible() {
		return nil
	}
	stacked := make(map[*Player]int)
	for _, t := range c.Tokens {
		if t == moving {
			continue
		}
		stacked[t.Player]++
		if stacked[t.Player] >= 2 {
			return nil
		}
	}
	var victims []*Token
	for _, t := range c.Tokens {
		if t != moving && t.Player != moving.Player {
			victims = append(victims, t)
		}
	}
	return victims
}

func NewPlayer(b *Board, index int, name string) *Player {
	color := ColorOfPlayer(index)
	p := &Player{
		Index: index,
		Code:  color.Swatch().Code,
		Color: color,
		Name:  name,
		Hand:  NewHand(),
		board: b,
	}
	for t := range p.Tokens {
		p.Tokens[t] = &Token{Index: t, Position: BasePosition, Player: p}
	}
	for pos := range p.Path {
		p.Path[pos] = b.CellForPlayerAt(index, pos)
	}
	return p
}

func (p *Player) Board() *Board {
	return p.board
}

// RefreshWon recomputes the aggregate win flag and reports whether it flipped
// to true on this call.
func (p *Player) RefreshWon() bool {
	if p.Won {
		return false
	}
	for _, t := range p.Tokens {
		if !t.Won {
			return false
		}
	}
	p.Won = true
	return true
}

// Finished players and players who left take no more turns.
func (p *Player) Active() bool {
	return !p.Won && !p.Left && !p.Lost
}

// MovableTokens lists tokens that can legally use a roll of value advancing
// steps cells (steps differs from value under a multiply card).
func (p *Player) MovableTokens(value, steps int) []*Token {
	var movable []*Token
	for _, t := range p.Tokens {
		if t.CanEnterPlay(value) || t.CanAdvance(steps) {
			movable = append(movable, t)
		}
	}
	return movable
}

func (t *Token) InPlay() bool {
	return t.Position != BasePosition
}

func (t *Token) CanEnterPlay(roll int) bool {
	return t.Position == BasePosition && roll == 6
}

func (t *Token) CanAdvance(steps int) bool {
	return t.InPlay() && !t.Won && t.Position+steps <= EndPosition
}

// Code is the player code plus the token index, e.g. "R2".
func (t *Token) Code() string {
	return fmt.Sprintf("%c%d", t.Player.Code, t.Index)
}

// Move relocates the token onto target, which must lie on its owner's path.
func (t *Token) Move(target *Cell) error {
	pos, err := t.Player.board.PositionOf(t.Player.Index, target)
	if err != nil {
		return err
	}
	if target == nil {
		t.ReturnToBase()
		return nil
	}
	if t.Cell != nil {
		t.Cell.RemoveToken(t, true)
	} else {
		t.Player.baseChanged(t.Index)
	}
	t.Cell = target
	t.Position = pos
	target.AddToken(t)
	if pos == EndPosition {
		t.Won = true
		t.Player.RefreshWon()
	}
	return nil
}

func (t *Token) ReturnToBase() {
	if t.Cell != nil {
		t.Cell.RemoveToken(t, true)
	}
	t.Cell = nil
	t.Position = BasePosition
	t.Won = false
	t.Player.baseChanged(t.Index)
}

func (p *Player) baseChanged(token int) {
	if p.board != nil && p.board.Observer != nil {
		p.board.Observer.BaseChanged(p, token)
	}
}

func NewDice() *Dice {
	return &Dice{}
}

// Roller is satisfied by *rand.Rand.
type Roller interface {
	Intn(n int) int
}

// Roll draws a uniform value in [1,6].
func (d *Dice) Roll(rng Roller) int {
	d.Set(rng.Intn(6) + 1)
	return d.Value
}

func (d *Dice) Set(value int) {
	d.Value = value
	d.Rolled = value != 0
}

func NewHand() *Hand {
	return &Hand{Cards: make(map[CardKind]int)}
}

func (h *Hand) Count(kind CardKind) int {
	return h.Cards[kind]
}

func (h *Hand) Add(kind CardKind) {
	h.Cards[kind]++
}

// Remove takes one card of kind away. Emptied kinds leave the map and drop
// their selection.
func (h *Hand) Remove(kind CardKind) bool {
	n, ok := h.Cards[kind]
	if !ok {
		return false
	}
	if n <= 1 {
		delete(h.Cards, kind)
		if h.Selected == kind {
			h.Selected = ""
		}
	} else {
		h.Cards[kind] = n - 1
	}
	return true
}

// Select arms one card for the next move, replacing any armed card.
func (h *Hand) Select(kind CardKind) error {
	if h.Cards[kind] == 0 {
		return fmt.Errorf("%s: %w", kind, ErrNoCard)
	}
	h.Selected = kind
	return nil
}

func (h *Hand) Unselect() {
	h.Selected = ""
}

// Consume plays the armed card, if any.
func (h *Hand) Consume() (CardKind, bool) {
	kind := h.Selected
	if kind == "" {
		return "", false
	}
	h.Remove(kind)
	h.Selected = ""
	return kind, true
}

// Total counts all cards held.
func (h *Hand) Total() int {
	total := 0
	for _, n := range h.Cards {
		total += n
	}
	return total
}

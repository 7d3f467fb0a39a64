package engine

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/zucenko/losttreasure/model"
)

// turnHolder checks that player may act right now.
func (g *Game) turnHolder(player int) (*model.Player, error) {
	if g.Finished {
		return nil, ErrGameFinished
	}
	if !g.Started {
		return nil, ErrNotStarted
	}
	if player < 0 || player >= len(g.Players) {
		return nil, fmt.Errorf("no player %d: %w", player, ErrInvalidMove)
	}
	if player != g.Turn {
		return nil, fmt.Errorf("player %d acted during turn of %d: %w", player, g.Turn, ErrOutOfTurn)
	}
	return g.Players[player], nil
}

func (g *Game) CheckRoll(player int) error {
	p, err := g.turnHolder(player)
	if err != nil {
		return err
	}
	if p.Phase != model.AwaitingRoll {
		return fmt.Errorf("player %d is in %s: %w", player, p.Phase.Name(), ErrInvalidMove)
	}
	return nil
}

// steps is the distance an in-play token travels for value, doubled by an
// armed multiply card.
func steps(p *model.Player, value int) int {
	if p.Hand.Selected == model.CardMultiply {
		return 2 * value
	}
	return value
}

func (g *Game) tokenAt(p *model.Player, kind model.CellKind, index int) (*model.Token, error) {
	if kind == model.KindBase {
		if index < 0 || index >= model.TokensPerPlayer {
			return nil, fmt.Errorf("base token %d: %w", index, ErrInvalidMove)
		}
		t := p.Tokens[index]
		if t.InPlay() {
			return nil, fmt.Errorf("token %s is not in base: %w", t.Code(), ErrInvalidMove)
		}
		return t, nil
	}
	cell, err := g.Board.Cell(kind, p.Index, index)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrInvalidMove)
	}
	for _, t := range cell.Tokens {
		if t.Player == p && !t.Won {
			return t, nil
		}
	}
	return nil, fmt.Errorf("no movable token of player %d on %s %d: %w", p.Index, kind, index, ErrInvalidMove)
}

// CheckMove resolves the token a move request names and the cell it would
// land on.
func (g *Game) CheckMove(player int, kind model.CellKind, index int) (*model.Token, *model.Cell, error) {
	p, err := g.turnHolder(player)
	if err != nil {
		return nil, nil, err
	}
	if p.Phase != model.AwaitingMoveChoice {
		return nil, nil, fmt.Errorf("player %d is in %s: %w", player, p.Phase.Name(), ErrInvalidMove)
	}
	t, err := g.tokenAt(p, kind, index)
	if err != nil {
		return nil, nil, err
	}
	value := p.Dice.Value
	if !t.InPlay() {
		if !t.CanEnterPlay(value) {
			return nil, nil, fmt.Errorf("token %s needs a 6 to leave base, rolled %d: %w", t.Code(), value, ErrInvalidMove)
		}
		return t, p.Path[0], nil
	}
	n := steps(p, value)
	if !t.CanAdvance(n) {
		return nil, nil, fmt.Errorf("token %s at %d cannot advance %d: %w", t.Code(), t.Position, n, ErrInvalidMove)
	}
	return t, p.Path[t.Position+n], nil
}

func (g *Game) CheckSelect(player int, kind model.CardKind) error {
	p, err := g.turnHolder(player)
	if err != nil {
		return err
	}
	if p.Phase != model.AwaitingRoll && p.Phase != model.AwaitingMoveChoice {
		return fmt.Errorf("player %d is in %s: %w", player, p.Phase.Name(), ErrInvalidMove)
	}
	if !kind.Valid() || p.Hand.Count(kind) == 0 {
		return fmt.Errorf("card %q not in hand: %w", kind, ErrInvalidMove)
	}
	if kind == model.CardMultiply && p.Phase == model.AwaitingMoveChoice {
		value := p.Dice.Value
		if len(p.MovableTokens(value, 2*value)) == 0 {
			return fmt.Errorf("doubled %d leaves no legal move: %w", value, ErrInvalidMove)
		}
	}
	return nil
}

func (g *Game) CheckUnselect(player int) error {
	p, err := g.turnHolder(player)
	if err != nil {
		return err
	}
	if p.Hand.Selected == "" {
		return fmt.Errorf("player %d has no armed card: %w", player, ErrInvalidMove)
	}
	return nil
}

// Start opens play with the first seated player still present.
func (g *Game) Start() ([]model.Update, error) {
	if g.Started {
		return nil, ErrAlreadyStarted
	}
	if g.activeCount() < model.MinPlayers {
		return nil, fmt.Errorf("%d seated: %w", g.activeCount(), ErrTooFewPlayers)
	}
	g.Started = true
	first := 0
	for first < len(g.Players) && !g.Players[first].Active() {
		first++
	}
	g.beginTurn(first)
	return []model.Update{
		{Started: &model.GameStarted{Seats: g.Seats()}},
		{Turn: &model.Turn{Player: first, Rotated: true}},
	}, nil
}

// Roll throws the die for the turn holder. Without a legal move the turn
// passes at once.
func (g *Game) Roll(player int) ([]model.Update, error) {
	if err := g.CheckRoll(player); err != nil {
		return nil, err
	}
	p := g.Players[player]
	value := p.Dice.Roll(g.roller)
	p.Phase = model.RollReceived
	p.Dice.CanMove = len(p.MovableTokens(value, value)) > 0
	log.Debugf("engine: player %d rolled %d can move:%v", player, value, p.Dice.CanMove)

	updates := []model.Update{{Dice: &model.DiceRolled{Player: player, Value: value, CanMove: p.Dice.CanMove}}}
	if !p.Dice.CanMove {
		return append(updates, g.passTurn()), nil
	}
	p.Phase = model.AwaitingMoveChoice
	return updates, nil
}

func (g *Game) passTurn() model.Update {
	next := g.nextTurn()
	g.beginTurn(next)
	return model.Update{Turn: &model.Turn{Player: next, Rotated: true}}
}

// Move commits the turn holder's move, resolving capture, the armed card, a
// possible win and who rolls next.
func (g *Game) Move(player int, kind model.CellKind, index int) ([]model.Update, error) {
	t, target, err := g.CheckMove(player, kind, index)
	if err != nil {
		return nil, err
	}
	p := t.Player
	value := p.Dice.Value
	entering := !t.InPlay()

	p.Kill = false
	victims := target.ResolveCapture(t)
	if err := t.Move(target); err != nil {
		return nil, fmt.Errorf("move %s: %v: %w", t.Code(), err, ErrDesync)
	}
	p.Phase = model.MoveApplied
	cellKind, cellIndex := target.Address()
	updates := []model.Update{{Moved: &model.TokenMoved{
		Player: player, Token: t.Index, CellIndex: cellIndex, CellKind: cellKind}}}

	extra := false
	if armed := p.Hand.Selected; armed != "" && !(entering && armed == model.CardMultiply) {
		p.Hand.Consume()
		updates = append(updates, model.Update{Card: &model.CardBalanceChanged{
			Player: player, Method: model.CardRemove, Kind: armed}})
		switch armed {
		case model.CardSkip:
			g.PendingSkip = true
		case model.CardReverse:
			g.Direction = -g.Direction
			updates = append(updates, model.Update{Direction: &model.DirectionChanged{Direction: g.Direction}})
		case model.CardExtra:
			extra = true
		}
	}

	for _, v := range victims {
		updates = append(updates, model.Update{Capture: &model.CaptureOccurred{
			Player: v.Player.Index, Token: v.Index, By: player}})
	}
	if len(victims) > 0 {
		p.Kill = true
		award := model.CardKinds[g.roller.Intn(len(model.CardKinds))]
		p.Hand.Add(award)
		updates = append(updates, model.Update{Card: &model.CardBalanceChanged{
			Player: player, Method: model.CardAdd, Kind: award}})
	}

	if p.Won && p.Rank == 0 {
		finished := g.assignRank(p)
		updates = append(updates, model.Update{Won: &model.PlayerWon{
			Player: player, Rank: p.Rank, GameFinished: finished}})
		log.Infof("engine: player %d finished at rank %d", player, p.Rank)
		if finished {
			g.finish(false)
			return updates, nil
		}
		return append(updates, g.passTurn()), nil
	}

	// one extra roll however many bonuses apply
	if value == 6 || p.Kill || t.Position == model.EndPosition || extra {
		g.beginTurn(player)
		return append(updates, model.Update{Turn: &model.Turn{Player: player}}), nil
	}
	return append(updates, g.passTurn()), nil
}

func (g *Game) SelectCard(player int, kind model.CardKind) ([]model.Update, error) {
	if err := g.CheckSelect(player, kind); err != nil {
		return nil, err
	}
	if err := g.Players[player].Hand.Select(kind); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrInvalidMove)
	}
	return []model.Update{{Selected: &model.CardSelected{Player: player, Kind: kind}}}, nil
}

func (g *Game) UnselectCard(player int) ([]model.Update, error) {
	if err := g.CheckUnselect(player); err != nil {
		return nil, err
	}
	g.Players[player].Hand.Unselect()
	return []model.Update{{Selected: &model.CardSelected{Player: player}}}, nil
}

// Chat is allowed at any time from any seated player.
func (g *Game) Chat(player int, text string) ([]model.Update, error) {
	if player < 0 || player >= len(g.Players) {
		return nil, fmt.Errorf("no player %d: %w", player, ErrInvalidMove)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("empty chat: %w", ErrInvalidMove)
	}
	return []model.Update{{Chat: &model.ChatMessage{
		Player: player, Name: g.Players[player].Name, Text: text}}}, nil
}

// Quit removes player from rotation. The game ends once at most one active
// player remains.
func (g *Game) Quit(player int) ([]model.Update, error) {
	if player < 0 || player >= len(g.Players) {
		return nil, fmt.Errorf("no player %d: %w", player, ErrInvalidMove)
	}
	p := g.Players[player]
	if p.Left {
		return nil, fmt.Errorf("player %d already left: %w", player, ErrInvalidMove)
	}
	p.Left = true
	left := &model.PlayerLeft{Player: player}
	updates := []model.Update{{Left: left}}
	if !g.Started || g.Finished {
		return updates, nil
	}
	if g.activeCount() <= 1 {
		g.finish(true)
		left.GameFinished = true
		return updates, nil
	}
	if g.Turn == player {
		return append(updates, g.passTurn()), nil
	}
	idle(p)
	return updates, nil
}

func idle(p *model.Player) {
	p.Turn = false
	p.Dice = nil
	if !p.Won {
		p.Phase = model.Idle
	}
}

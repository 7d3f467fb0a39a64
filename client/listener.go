package client

import (
	log "github.com/sirupsen/logrus"
	"github.com/zucenko/losttreasure/engine"
	"github.com/zucenko/losttreasure/model"
)

// Listener is the view side of the client. It is called on the client's own
// goroutine right after the mirror changed and must not block.
type Listener interface {
	Applied(seq uint64, u model.Update, g *engine.Game)
	Restored(seq uint64, g *engine.Game)
}

// LogListener narrates the game through logrus.
type LogListener struct{}

func (LogListener) Applied(seq uint64, u model.Update, g *engine.Game) {
	entry := log.WithField("seq", seq)
	switch {
	case u.Joined != nil:
		entry.Infof("%s joined as %s", u.Joined.Seat.Name, model.ColorOfPlayer(u.Joined.Seat.Index))
	case u.Started != nil:
		entry.Infof("game started with %d players", len(u.Started.Seats))
	case u.Turn != nil:
		entry.Infof("turn: %s", name(g, u.Turn.Player))
	case u.Dice != nil:
		entry.Infof("%s rolled %d (can move: %v)", name(g, u.Dice.Player), u.Dice.Value, u.Dice.CanMove)
	case u.Moved != nil:
		entry.Infof("%s moved token %d to %s %d", name(g, u.Moved.Player), u.Moved.Token, u.Moved.CellKind, u.Moved.CellIndex)
	case u.Capture != nil:
		entry.Infof("%s captured token %d of %s", name(g, u.Capture.By), u.Capture.Token, name(g, u.Capture.Player))
	case u.Won != nil:
		entry.Infof("%s finished at rank %d (game over: %v)", name(g, u.Won.Player), u.Won.Rank, u.Won.GameFinished)
	case u.Card != nil:
		entry.Infof("%s card %s: %s", name(g, u.Card.Player), u.Card.Method, u.Card.Kind.Title())
	case u.Selected != nil:
		entry.Infof("%s armed %q", name(g, u.Selected.Player), u.Selected.Kind.Title())
	case u.Direction != nil:
		entry.Infof("rotation reversed: %d", u.Direction.Direction)
	case u.Left != nil:
		entry.Infof("%s left (game over: %v)", name(g, u.Left.Player), u.Left.GameFinished)
	case u.Chat != nil:
		entry.Infof("<%s> %s", u.Chat.Name, u.Chat.Text)
	}
}

func (LogListener) Restored(seq uint64, g *engine.Game) {
	log.WithField("seq", seq).Infof("state restored: %d players, turn %d", len(g.Players), g.Turn)
}

func name(g *engine.Game, player int) string {
	if player < 0 || player >= len(g.Players) {
		return "?"
	}
	return g.Players[player].Name
}

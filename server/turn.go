package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zucenko/losttreasure/engine"
	"github.com/zucenko/losttreasure/model"
)

var errNotHost = errors.New("only the host starts the game")

// Turn runs one client request against the game. Resulting updates go to
// everyone with the requester's ack riding on the same frame; a refused
// request is acked alone and changes nothing.
func (gs *GameSession) Turn(pe PlayerEvent) {
	cm := pe.Message
	player := pe.Player.Id
	var (
		updates []model.Update
		err     error
	)
	switch cm.Kind {
	case model.RequestRoll:
		updates, err = gs.Game.Roll(player)
	case model.RequestMove:
		updates, err = gs.Game.Move(player, cm.CellKind, cm.CellIndex)
	case model.RequestSelect:
		updates, err = gs.Game.SelectCard(player, cm.Card)
	case model.RequestUnselect:
		updates, err = gs.Game.UnselectCard(player)
	case model.RequestChat:
		updates, err = gs.Game.Chat(player, cm.Text)
	case model.RequestStart:
		if player != gs.Host {
			gs.reject(pe.Player, cm.RequestID, model.RejectNotHost, errNotHost)
			return
		}
		updates, err = gs.Game.Start()
		if err == nil {
			gs.State = GS_PLAY
		}
	case model.RequestQuit:
		updates, err = gs.Game.Quit(player)
	case model.RequestSnapshot:
		gs.send(pe.Player, model.ServerMessage{
			Seq:       gs.Seq,
			Acks:      []model.Ack{{RequestID: cm.RequestID, OK: true}},
			Snapshots: []model.Snapshot{gs.Game.Snapshot()},
		})
		return
	default:
		err = fmt.Errorf("unknown request %q", cm.Kind)
	}
	if err != nil {
		gs.reject(pe.Player, cm.RequestID, engine.RejectOf(err), err)
		return
	}

	gs.log.WithField("player", player).Debugf("%s -> %d updates", cm.Kind, len(updates))
	gs.broadcast(&requestAck{Ack: model.Ack{RequestID: cm.RequestID, OK: true}, requester: pe.Player}, updates)
	if cm.Kind == model.RequestQuit {
		gs.release(pe.Player, PS_OVER)
	}
}

func (gs *GameSession) reject(ps *PlayerSession, requestID string, code model.RejectCode, err error) {
	gs.log.WithField("player", ps.Id).Infof("refused: %v", err)
	gs.send(ps, model.ServerMessage{Seq: gs.Seq, Acks: []model.Ack{{
		RequestID: requestID, Reject: code, Error: err.Error()}}})
}

// broadcast stamps the next sequence number, journals the frame and queues it
// for every connected player.
func (gs *GameSession) broadcast(ack *requestAck, updates []model.Update) {
	gs.Seq++
	msg := model.ServerMessage{Seq: gs.Seq, Updates: updates}
	if gs.journal != nil {
		ctx, cancel := context.WithTimeout(context.Background(), gs.timeout)
		if err := gs.journal.Append(ctx, gs.Token, msg); err != nil {
			gs.log.Warnf("journal seq %d: %v", msg.Seq, err)
		}
		cancel()
	}
	for _, ps := range gs.PlayerSessions {
		if ps.State != PS_PLAY {
			continue
		}
		out := msg
		if ack != nil && ack.requester == ps {
			out.Acks = []model.Ack{ack.Ack}
		}
		gs.send(ps, out)
	}
}

type requestAck struct {
	model.Ack
	requester *PlayerSession
}

func (gs *GameSession) send(ps *PlayerSession, msg model.ServerMessage) {
	select {
	case ps.MessagesToSend <- msg:
	case <-time.After(gs.timeout):
		gs.log.Warnf("player %d outbox full, dropped seq %d", ps.Id, msg.Seq)
	}
}

// leave takes a disconnected player out of the game.
func (gs *GameSession) leave(ps *PlayerSession) {
	if !gs.Game.Players[ps.Id].Left {
		if updates, err := gs.Game.Quit(ps.Id); err == nil {
			gs.broadcast(nil, updates)
		}
	}
	gs.release(ps, ps.State)
}

func (gs *GameSession) release(ps *PlayerSession, state PlayerSessionState) {
	ps.State = state
	close(ps.MessagesToSend)
	if ps.Id == gs.Host && !gs.Game.Started {
		for _, other := range gs.PlayerSessions {
			if other.State == PS_PLAY {
				gs.Host = other.Id
				break
			}
		}
	}
}

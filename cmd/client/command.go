package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/zucenko/losttreasure/client"
	"github.com/zucenko/losttreasure/engine"
	"github.com/zucenko/losttreasure/model"
)

type command func(ctx context.Context, c *client.Client) error

const usage = "commands: roll | move <open|close|base> <n> | card <multiply|reverse|skip|extra> | unselect | say <text> | start | board | snapshot | history | quit"

var errUsage = errors.New(usage)

// parse turns one input line into a command. Blank lines give nil.
func parse(line string) (command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, nil
	}
	args := fields[1:]
	switch fields[0] {
	case "roll":
		return func(ctx context.Context, c *client.Client) error { return c.Roll(ctx) }, nil
	case "move":
		if len(args) != 2 {
			return nil, errUsage
		}
		kind := model.CellKind(args[0])
		if kind != model.KindOpen && kind != model.KindClose && kind != model.KindBase {
			return nil, fmt.Errorf("unknown cell kind %q", args[0])
		}
		index, err := strconv.Atoi(args[1])
		if err != nil {
			return nil, fmt.Errorf("cell index %q: %w", args[1], err)
		}
		return func(ctx context.Context, c *client.Client) error { return c.Move(ctx, kind, index) }, nil
	case "card":
		if len(args) != 1 {
			return nil, errUsage
		}
		kind := model.CardKind("card_" + args[0])
		if !kind.Valid() {
			return nil, fmt.Errorf("unknown card %q", args[0])
		}
		return func(ctx context.Context, c *client.Client) error { return c.SelectCard(ctx, kind) }, nil
	case "unselect":
		return func(ctx context.Context, c *client.Client) error { return c.UnselectCard(ctx) }, nil
	case "say":
		text := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "say"))
		return func(ctx context.Context, c *client.Client) error { return c.Chat(ctx, text) }, nil
	case "start":
		return func(ctx context.Context, c *client.Client) error { return c.Start(ctx) }, nil
	case "snapshot":
		return func(ctx context.Context, c *client.Client) error { return c.Resync(ctx) }, nil
	case "quit":
		return func(ctx context.Context, c *client.Client) error { return c.Quit(ctx) }, nil
	case "board":
		return board, nil
	case "history":
		return history, nil
	}
	return nil, errUsage
}

func board(ctx context.Context, c *client.Client) error {
	return c.Inspect(func(g *engine.Game, host int) {
		for _, p := range g.Players {
			entry := log.WithFields(log.Fields{
				"player": p.Name,
				"color":  model.ColorOfPlayer(p.Index),
				"phase":  p.Phase.Name(),
			})
			positions := make([]string, 0, len(p.Tokens))
			for _, t := range p.Tokens {
				positions = append(positions, strconv.Itoa(t.Position))
			}
			entry.Infof("tokens [%s] cards %d armed %q turn %v host %v",
				strings.Join(positions, " "), p.Hand.Total(), p.Hand.Selected, g.Turn == p.Index, host == p.Index)
		}
	})
}

func history(ctx context.Context, c *client.Client) error {
	msgs, err := c.Replay(ctx, 0)
	if err != nil {
		return err
	}
	for _, m := range msgs {
		log.WithField("seq", m.Seq).Infof("%d updates", len(m.Updates))
	}
	return nil
}

// Package client keeps a local mirror of one game in sync with the server.
//
// All state lives on a single goroutine: requests are validated against the
// mirror before they go out, and the mirror only ever changes by applying the
// updates the server broadcasts.
package client

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"github.com/zucenko/losttreasure/engine"
	"github.com/zucenko/losttreasure/model"
)

var (
	ErrProtocolTimeout = errors.New("no acknowledgement from server")
	ErrClosed          = errors.New("connection closed")
	ErrNotHost         = errors.New("only the host starts the game")
	ErrUnavailable     = errors.New("game is not accepting players")
)

type request struct {
	msg      model.ClientMessage
	validate func(g *engine.Game, c *Client) error
	reply    chan error
}

type Client struct {
	Self  int
	Token string

	conn       *websocket.Conn
	base       string
	ackTimeout time.Duration
	listener   Listener

	// owned by loop
	game      *engine.Game
	host      int
	seq       uint64
	resyncing bool
	pending   map[string]chan error
	ready     chan error

	requests chan request
	expired  chan string
	inspect  chan func()
	inbound  chan model.ServerMessage
	done     chan struct{}
}

// Dial joins (or, with an empty GameToken, creates) a game and returns once
// the server has seated the player.
func Dial(ctx context.Context, cfg Config, listener Listener) (*Client, error) {
	if listener == nil {
		listener = LogListener{}
	}
	base := strings.TrimRight(cfg.ServerURL, "/")
	query := url.Values{"name": {cfg.PlayerName}}
	if cfg.GameToken != "" {
		query.Set("game", cfg.GameToken)
	}
	wsURL := "ws" + strings.TrimPrefix(base, "http") + "/play?" + query.Encode()

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %s: %w", wsURL, resp.Status, err)
		}
		return nil, fmt.Errorf("dial %s: %w", wsURL, err)
	}

	c := &Client{
		Self:       -1,
		conn:       conn,
		base:       base,
		ackTimeout: cfg.AckTimeout,
		listener:   listener,
		game:       engine.NewGame(nil),
		pending:    make(map[string]chan error),
		ready:      make(chan error, 1),
		requests:   make(chan request),
		expired:    make(chan string),
		inspect:    make(chan func()),
		inbound:    make(chan model.ServerMessage),
		done:       make(chan struct{}),
	}
	if c.ackTimeout <= 0 {
		c.ackTimeout = time.Second
	}
	go c.readLoop()
	go c.loop()

	select {
	case err = <-c.ready:
	case <-time.After(c.ackTimeout):
		err = fmt.Errorf("setup: %w", ErrProtocolTimeout)
	case <-c.done:
		err = ErrClosed
	}
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) Close() error {
	err := c.conn.Close()
	<-c.done
	return err
}

// Done is closed once the connection is gone.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Inspect runs fn on the client goroutine with the mirror and the current
// host. fn must not keep the game past its return.
func (c *Client) Inspect(fn func(g *engine.Game, host int)) error {
	finished := make(chan struct{})
	select {
	case c.inspect <- func() { fn(c.game, c.host); close(finished) }:
	case <-c.done:
		return ErrClosed
	}
	<-finished
	return nil
}

// Seq is the sequence number of the last frame folded into the mirror.
func (c *Client) Seq() (seq uint64, err error) {
	err = c.Inspect(func(*engine.Game, int) { seq = c.seq })
	return
}

func (c *Client) Roll(ctx context.Context) error {
	return c.do(ctx, model.ClientMessage{Kind: model.RequestRoll}, func(g *engine.Game, c *Client) error {
		return g.CheckRoll(c.Self)
	})
}

func (c *Client) Move(ctx context.Context, kind model.CellKind, index int) error {
	return c.do(ctx, model.ClientMessage{Kind: model.RequestMove, CellKind: kind, CellIndex: index}, func(g *engine.Game, c *Client) error {
		_, _, err := g.CheckMove(c.Self, kind, index)
		return err
	})
}

func (c *Client) SelectCard(ctx context.Context, kind model.CardKind) error {
	return c.do(ctx, model.ClientMessage{Kind: model.RequestSelect, Card: kind}, func(g *engine.Game, c *Client) error {
		return g.CheckSelect(c.Self, kind)
	})
}

func (c *Client) UnselectCard(ctx context.Context) error {
	return c.do(ctx, model.ClientMessage{Kind: model.RequestUnselect}, func(g *engine.Game, c *Client) error {
		return g.CheckUnselect(c.Self)
	})
}

func (c *Client) Chat(ctx context.Context, text string) error {
	return c.do(ctx, model.ClientMessage{Kind: model.RequestChat, Text: text}, func(g *engine.Game, c *Client) error {
		_, err := g.Chat(c.Self, text)
		return err
	})
}

func (c *Client) Start(ctx context.Context) error {
	return c.do(ctx, model.ClientMessage{Kind: model.RequestStart}, func(g *engine.Game, c *Client) error {
		switch {
		case g.Started:
			return engine.ErrAlreadyStarted
		case c.host != c.Self:
			return ErrNotHost
		}
		return nil
	})
}

func (c *Client) Quit(ctx context.Context) error {
	return c.do(ctx, model.ClientMessage{Kind: model.RequestQuit}, func(g *engine.Game, c *Client) error {
		if g.Players[c.Self].Left {
			return fmt.Errorf("already left: %w", engine.ErrInvalidMove)
		}
		return nil
	})
}

// Resync asks the server for a full snapshot and replaces the mirror with it.
func (c *Client) Resync(ctx context.Context) error {
	return c.do(ctx, model.ClientMessage{Kind: model.RequestSnapshot}, func(*engine.Game, *Client) error {
		return nil
	})
}

// do validates msg against the mirror, sends it and waits for the ack. A
// request that times out is not retried.
func (c *Client) do(ctx context.Context, msg model.ClientMessage, validate func(*engine.Game, *Client) error) error {
	msg.RequestID = uuid.NewString()
	req := request{msg: msg, validate: validate, reply: make(chan error, 1)}
	select {
	case c.requests <- req:
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	timer := time.NewTimer(c.ackTimeout)
	defer timer.Stop()
	select {
	case err := <-req.reply:
		return err
	case <-timer.C:
		c.expire(msg.RequestID)
		return fmt.Errorf("%s after %v: %w", msg.Kind, c.ackTimeout, ErrProtocolTimeout)
	case <-ctx.Done():
		c.expire(msg.RequestID)
		return ctx.Err()
	case <-c.done:
		return ErrClosed
	}
}

func (c *Client) expire(id string) {
	select {
	case c.expired <- id:
	case <-c.done:
	}
}

func (c *Client) loop() {
	defer close(c.done)
	for {
		select {
		case req := <-c.requests:
			c.handle(req)
		case id := <-c.expired:
			delete(c.pending, id)
		case fn := <-c.inspect:
			fn()
		case msg, ok := <-c.inbound:
			if !ok {
				for id, reply := range c.pending {
					reply <- ErrClosed
					delete(c.pending, id)
				}
				c.signal(ErrClosed)
				return
			}
			c.receive(msg)
		}
	}
}

func (c *Client) handle(req request) {
	if c.Self < 0 {
		req.reply <- ErrClosed
		return
	}
	if err := req.validate(c.game, c); err != nil {
		log.Debugf("%s refused locally: %v", req.msg.Kind, err)
		req.reply <- err
		return
	}
	c.pending[req.msg.RequestID] = req.reply
	if err := c.write(req.msg); err != nil {
		delete(c.pending, req.msg.RequestID)
		req.reply <- fmt.Errorf("send %s: %w", req.msg.Kind, err)
	}
}

func (c *Client) write(cm model.ClientMessage) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.ackTimeout)); err != nil {
		return err
	}
	w, err := c.conn.NextWriter(websocket.BinaryMessage)
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(w).Encode(cm); err != nil {
		return err
	}
	return w.Close()
}

func (c *Client) readLoop() {
	defer close(c.inbound)
	for {
		_, r, err := c.conn.NextReader()
		if err != nil {
			log.Debugf("readLoop: %v", err)
			return
		}
		var msg model.ServerMessage
		if err := gob.NewDecoder(r).Decode(&msg); err != nil {
			log.Warnf("readLoop decode: %v", err)
			return
		}
		c.inbound <- msg
	}
}

func (c *Client) signal(err error) {
	select {
	case c.ready <- err:
	default:
	}
}

// receive folds one frame into the mirror. Updates are applied before acks so
// a successful call returns with its effects already visible.
func (c *Client) receive(msg model.ServerMessage) {
	for _, setup := range msg.Setup {
		c.setup(setup, msg.Seq)
	}
	for _, snap := range msg.Snapshots {
		if err := c.game.Restore(snap); err != nil {
			log.Warnf("snapshot at seq %d: %v", msg.Seq, err)
			continue
		}
		c.seq = msg.Seq
		c.resyncing = false
		c.listener.Restored(msg.Seq, c.game)
	}
	if msg.Broadcast() {
		c.apply(msg)
	}
	for _, ack := range msg.Acks {
		c.resolve(ack)
	}
}

func (c *Client) setup(s model.Setup, seq uint64) {
	c.Self = s.PlayerIndex
	c.Token = s.GameToken
	c.host = s.Host
	c.seq = seq
	for _, seat := range s.Seats {
		if err := c.game.Apply(model.Update{Joined: &model.PlayerJoined{Seat: seat}}); err != nil {
			log.Warnf("setup seat %d: %v", seat.Index, err)
		}
	}
	log.WithFields(log.Fields{"game": c.Token, "player": c.Self}).Info("seated")
	c.signal(nil)
}

func (c *Client) apply(msg model.ServerMessage) {
	switch {
	case c.resyncing:
		return
	case msg.Seq <= c.seq:
		log.Warnf("dropping duplicate seq %d (at %d)", msg.Seq, c.seq)
		return
	case msg.Seq > c.seq+1:
		log.Warnf("gap: got seq %d at %d, resyncing", msg.Seq, c.seq)
		c.resyncing = true
		if err := c.write(model.ClientMessage{Kind: model.RequestSnapshot}); err != nil {
			log.Warnf("resync: %v", err)
		}
		return
	}
	c.seq = msg.Seq
	for _, u := range msg.Updates {
		if err := c.game.Apply(u); err != nil {
			log.WithError(err).Warnf("dropping update at seq %d", msg.Seq)
			continue
		}
		if u.Left != nil && u.Left.Player == c.host && !c.game.Started {
			c.reassignHost()
		}
		c.listener.Applied(msg.Seq, u, c.game)
	}
}

func (c *Client) reassignHost() {
	for _, p := range c.game.Players {
		if !p.Left {
			c.host = p.Index
			return
		}
	}
}

func (c *Client) resolve(ack model.Ack) {
	reply, ok := c.pending[ack.RequestID]
	if !ok {
		if ack.Reject == model.RejectUnavailable {
			c.signal(fmt.Errorf("%s: %w", ack.Error, ErrUnavailable))
			return
		}
		log.Debugf("ack for unknown request %q", ack.RequestID)
		return
	}
	delete(c.pending, ack.RequestID)
	if ack.OK {
		reply <- nil
		return
	}
	reply <- fmt.Errorf("%s: %w", ack.Error, rejection(ack.Reject))
}

func rejection(code model.RejectCode) error {
	switch code {
	case model.RejectNotHost:
		return ErrNotHost
	case model.RejectUnavailable:
		return ErrUnavailable
	}
	return engine.ErrorOf(code)
}

// Replay fetches the journaled broadcasts of this game after seq.
func (c *Client) Replay(ctx context.Context, after uint64) ([]model.ServerMessage, error) {
	u := c.base + "/games/" + url.PathEscape(c.Token) + "/updates?after=" + strconv.FormatUint(after, 10)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("replay: %s", resp.Status)
	}
	var out []model.ServerMessage
	dec := gob.NewDecoder(resp.Body)
	for {
		var msg model.ServerMessage
		if err := dec.Decode(&msg); err == io.EOF {
			return out, nil
		} else if err != nil {
			return out, fmt.Errorf("replay decode: %w", err)
		}
		out = append(out, msg)
	}
}

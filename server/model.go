package server

import (
	"context"
	"math/rand"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"github.com/zucenko/losttreasure/engine"
	"github.com/zucenko/losttreasure/model"
)

// Recorder persists broadcasts; nil disables the journal.
type Recorder interface {
	Append(ctx context.Context, game string, msg model.ServerMessage) error
}

// Replayer reads journaled broadcasts back.
type Replayer interface {
	Since(ctx context.Context, game string, after uint64) ([]model.ServerMessage, error)
}

type GameServer struct {
	GameSessions map[string]*GameSession
	GameRequests chan GameRequest
	Over         chan string
	Upgrader     *websocket.Upgrader
	Journal      Recorder
	Timeout      time.Duration

	seeds *rand.Rand
}

type GameSessionState int

const (
	GS_NEW GameSessionState = iota
	GS_WAIT
	GS_PLAY
	GS_OVER
)

// GameSession owns one engine.Game. Everything in it is touched only by Loop.
type GameSession struct {
	Token                 string
	State                 GameSessionState
	Game                  *engine.Game
	Host                  int
	Seq                   uint64
	PlayerSessions        []*PlayerSession
	Errors                chan *PlayerSession
	Events                chan PlayerEvent
	PlayerConnectRequests chan PlayerConnectRequest

	journal Recorder
	over    chan<- string
	timeout time.Duration
	log     *log.Entry
}

type PlayerSessionState int

const (
	PS_NEW PlayerSessionState = iota + 1
	PS_PLAY
	PS_OVER
	PS_ERR
)

type PlayerSession struct {
	State       PlayerSessionState
	Id          int
	Name        string
	GameSession *GameSession
	Conn        *websocket.Conn
	GameOver    chan struct{}

	MessagesToSend chan model.ServerMessage

	DebugInMessages  int
	DebugOutMessages int
	DebugLastMessage time.Time
	DebugLastPing    time.Time
	DebugPings       int
}

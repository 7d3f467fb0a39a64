package server

import (
	"encoding/gob"
	"math/rand"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"github.com/zucenko/losttreasure/engine"
	"github.com/zucenko/losttreasure/model"
)

func NewGameServer(cfg Config, journal Recorder) *GameServer {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	timeout := cfg.HandoffTimeout
	if timeout <= 0 {
		timeout = 200 * time.Millisecond
	}
	return &GameServer{
		GameSessions: make(map[string]*GameSession),
		GameRequests: make(chan GameRequest),
		Over:         make(chan string, 8),
		Upgrader:     &websocket.Upgrader{},
		Journal:      journal,
		Timeout:      timeout,
		seeds:        rand.New(rand.NewSource(seed)),
	}
}

// HandleHttpCall creates (no game parameter) or joins a game, upgrades the
// connection and holds it until the player leaves.
func (s *GameServer) HandleHttpCall() http.HandlerFunc {
	timeout := s.Timeout
	return func(w http.ResponseWriter, r *http.Request) {
		log.Printf("HandleHttpCall - connection received")
		name := strings.TrimSpace(r.URL.Query().Get("name"))
		if name == "" {
			w.WriteHeader(GAME_INVALIDE.ToHttp())
			return
		}

		gcas := make(chan GameContextAwaiting, 1)
		select {
		case s.GameRequests <- GameRequest{Token: r.URL.Query().Get("game"), GameContextAwaiting: gcas}:
			log.Printf("HandleHttpCall -> GameServer.GameRequests")
		case <-time.After(timeout):
			log.Warn("GameRequests TIMEOUTED")
			w.WriteHeader(HTTP_TIMEOUT)
			return
		}

		var gca GameContextAwaiting
		select {
		case gca = <-gcas:
			log.Printf("HandleHttpCall GameContextAwaiting <- code:%d", gca.ResponseCode)
			switch gca.ResponseCode {
			case GAME_NOT_FOUND, GAME_INVALIDE:
				w.WriteHeader(gca.ResponseCode.ToHttp())
				return
			case GAME_READY:
				log.Printf("HandleHttpCall ok, have GameSession %s", gca.GameSession.Token)
			default:
				log.Errorf("gca.ResponseCode not expected:%v", gca.ResponseCode)
				w.WriteHeader(HTTP_SERVER_ERR)
				return
			}
		case <-time.After(timeout):
			log.Warnf("HandleHttpCall GameContextAwaiting <- TIMEOUTED")
			w.WriteHeader(HTTP_TIMEOUT)
			return
		}

		con, err := s.Upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already answered the request
			log.Printf("HandleHttpCall websocket upgrade err %v", err)
			return
		}
		defer con.Close()

		gameOver := make(chan struct{})
		select {
		case gca.GameSession.PlayerConnectRequests <- PlayerConnectRequest{
			Con:      con,
			Name:     name,
			GameOver: gameOver}:
		case <-time.After(timeout):
			log.Warnf("HandleHttpCall PlayerConnectRequests TIMEOUTED")
			_ = con.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "session busy"),
				time.Now().Add(time.Second))
			return
		}

		log.Info("HandleHttpCall wait for gameover")
		<-gameOver
	}
}

func (s *GameServer) Loop() {
	log.Printf("GameServer.Loop starting")
	for {
		select {
		case gameReq := <-s.GameRequests:
			gameReq.GameContextAwaiting <- s.findOrCreate(gameReq.Token)
		case token := <-s.Over:
			log.Infof("GameServer.Loop session %s over", token)
			delete(s.GameSessions, token)
		}
	}
}

func (s *GameServer) findOrCreate(token string) GameContextAwaiting {
	if token != "" {
		gs, ok := s.GameSessions[token]
		if !ok {
			return GameContextAwaiting{ResponseCode: GAME_NOT_FOUND}
		}
		return GameContextAwaiting{ResponseCode: GAME_READY, GameSession: gs}
	}
	token = uuid.NewString()
	log.Infof("create GameSession %s", token)
	gs := &GameSession{
		Token:                 token,
		State:                 GS_NEW,
		Game:                  engine.NewGame(rand.New(rand.NewSource(s.seeds.Int63()))),
		PlayerSessions:        make([]*PlayerSession, 0, model.MaxPlayers),
		Errors:                make(chan *PlayerSession),
		Events:                make(chan PlayerEvent, 32),
		PlayerConnectRequests: make(chan PlayerConnectRequest),
		journal:               s.Journal,
		over:                  s.Over,
		timeout:               s.Timeout,
		log:                   log.WithField("game", token),
	}
	go gs.Loop()
	s.GameSessions[token] = gs
	return GameContextAwaiting{ResponseCode: GAME_READY, GameSession: gs}
}

// Loop runs the session until every player that joined has gone.
func (gs *GameSession) Loop() {
	gs.log.Info("GameSession.Loop start")
	for {
		select {
		case pcr := <-gs.PlayerConnectRequests:
			gs.addPlayer(pcr)
		case ps := <-gs.Errors:
			if ps.State == PS_PLAY {
				gs.log.Warnf("player %d connection lost", ps.Id)
				ps.State = PS_ERR
				gs.leave(ps)
			}
		case pe := <-gs.Events:
			if pe.Player.State != PS_PLAY {
				gs.log.Warnf("dropping %s from player %d in state %s", pe.Message.Kind, pe.Player.Id, pe.Player.State.Name())
				continue
			}
			gs.Turn(pe)
		}
		if gs.State != GS_NEW && gs.live() == 0 {
			gs.State = GS_OVER
			gs.log.Info("GameSession.Loop over")
			select {
			case gs.over <- gs.Token:
			case <-time.After(gs.timeout):
				gs.log.Warn("GameServer.Over TIMEOUTED")
			}
			return
		}
	}
}

func (gs *GameSession) live() int {
	n := 0
	for _, ps := range gs.PlayerSessions {
		if ps.State == PS_PLAY {
			n++
		}
	}
	return n
}

func (gs *GameSession) addPlayer(pcr PlayerConnectRequest) {
	gs.log.Printf("GameSession.addPlayer %s", pcr.Name)
	ps := &PlayerSession{
		State:          PS_NEW,
		Id:             -1,
		Name:           pcr.Name,
		GameSession:    gs,
		Conn:           pcr.Con,
		GameOver:       pcr.GameOver,
		MessagesToSend: make(chan model.ServerMessage, 16),
	}
	go ps.LoopChannelWrite()

	index, err := gs.Game.AddPlayer(pcr.Name)
	if err != nil {
		gs.log.Warnf("refusing %s: %v", pcr.Name, err)
		ps.MessagesToSend <- model.ServerMessage{Seq: gs.Seq, Acks: []model.Ack{{
			Reject: model.RejectUnavailable, Error: err.Error()}}}
		ps.State = PS_OVER
		close(ps.MessagesToSend)
		return
	}
	ps.Id = index
	ps.State = PS_PLAY
	pcr.Con.SetPingHandler(
		func(message string) error {
			err := pcr.Con.WriteControl(websocket.PongMessage, []byte(message), time.Now().Add(time.Second))
			ps.DebugLastPing = time.Now()
			ps.DebugPings++
			if err == websocket.ErrCloseSent {
				return nil
			} else if e, ok := err.(net.Error); ok && e.Timeout() {
				return nil
			}
			return err
		})
	go ps.LoopChannelRead()
	gs.PlayerSessions = append(gs.PlayerSessions, ps)
	if gs.State == GS_NEW {
		gs.State = GS_WAIT
		gs.Host = index
	}

	gs.send(ps, ps.MakeGameSetupMessage())
	gs.broadcast(nil, []model.Update{{Joined: &model.PlayerJoined{Seat: model.Seat{
		Index: index, Name: pcr.Name, Code: gs.Game.Players[index].Code}}}})
}

// LoopChannelRead decodes client frames and queues them for the session.
func (ps *PlayerSession) LoopChannelRead() {
	log.Printf("LoopChannelRead STARTED player:%d", ps.Id)
loop:
	for {
		messageType, r, err := ps.Conn.NextReader()
		if err != nil {
			log.Printf("LoopChannelRead err reading message from Conn %v", err)
			break loop
		}
		if messageType != websocket.BinaryMessage {
			log.Warnf("LoopChannelRead ignoring message type %d", messageType)
			continue
		}
		cm := model.ClientMessage{}
		if err := gob.NewDecoder(r).Decode(&cm); err != nil {
			log.Warnf("LoopChannelRead cant decode %v", err)
			break loop
		}
		ps.DebugLastMessage = time.Now()
		ps.DebugInMessages++

		select {
		case ps.GameSession.Events <- PlayerEvent{Player: ps, Message: cm}:
		default:
			log.Warnf("Dropping %s from player %d, GameSession.Events FULL", cm.Kind, ps.Id)
		}
	}
	select {
	case ps.GameSession.Errors <- ps:
	case <-ps.GameOver:
	}
	log.Printf("LoopChannelRead ENDED player:%d", ps.Id)
}

func (ps *PlayerSession) MakeGameSetupMessage() model.ServerMessage {
	gs := ps.GameSession
	msg := model.ServerMessage{
		Seq: gs.Seq,
		Setup: []model.Setup{{
			GameToken:   gs.Token,
			PlayerIndex: ps.Id,
			Host:        gs.Host,
			Seats:       gs.Game.Seats(),
			Started:     gs.Game.Started,
		}},
	}
	if gs.Game.Started {
		msg.Snapshots = []model.Snapshot{gs.Game.Snapshot()}
	}
	return msg
}

// LoopChannelWrite drains MessagesToSend until the session closes it, then
// releases the HTTP handler. After a write error the rest is discarded.
func (ps *PlayerSession) LoopChannelWrite() {
	log.Printf("PlayerSession.LoopChannelWrite STARTED")
	defer close(ps.GameOver)
	broken := false
	for mes := range ps.MessagesToSend {
		if broken {
			continue
		}
		if err := ps.write(mes); err != nil {
			log.Warnf("PlayerSession.LoopChannelWrite player:%d %v", ps.Id, err)
			broken = true
			select {
			case ps.GameSession.Errors <- ps:
			case <-time.After(ps.GameSession.timeout):
			}
			continue
		}
		ps.DebugOutMessages++
	}
	log.Printf("LoopChannelWrite ENDED player:%d", ps.Id)
}

func (ps *PlayerSession) write(mes model.ServerMessage) error {
	w, err := ps.Conn.NextWriter(websocket.BinaryMessage)
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(w).Encode(mes); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

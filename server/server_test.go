package server

import (
	"context"
	"encoding/gob"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/matryer/way"
	"github.com/stretchr/testify/require"
	"github.com/zucenko/losttreasure/model"
)

type memJournal struct {
	mu   sync.Mutex
	msgs map[string][]model.ServerMessage
}

func (j *memJournal) Append(ctx context.Context, game string, msg model.ServerMessage) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.msgs[game] = append(j.msgs[game], msg)
	return nil
}

func (j *memJournal) Since(ctx context.Context, game string, after uint64) ([]model.ServerMessage, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []model.ServerMessage
	for _, m := range j.msgs[game] {
		if m.Seq > after {
			out = append(out, m)
		}
	}
	return out, nil
}

func startServer(t *testing.T) (*httptest.Server, *memJournal) {
	journal := &memJournal{msgs: make(map[string][]model.ServerMessage)}
	gs := NewGameServer(Config{HandoffTimeout: time.Second, Seed: 42}, journal)
	go gs.Loop()
	router := way.NewRouter()
	router.HandleFunc("GET", "/play", gs.HandleHttpCall())
	router.HandleFunc("GET", "/games/:game/updates", HandleUpdates(journal))
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, journal
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/play?" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) model.ServerMessage {
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, r, err := conn.NextReader()
	require.NoError(t, err)
	var msg model.ServerMessage
	require.NoError(t, gob.NewDecoder(r).Decode(&msg))
	return msg
}

func send(t *testing.T, conn *websocket.Conn, cm model.ClientMessage) {
	w, err := conn.NextWriter(websocket.BinaryMessage)
	require.NoError(t, err)
	require.NoError(t, gob.NewEncoder(w).Encode(cm))
	require.NoError(t, w.Close())
}

func TestPlaySession(t *testing.T) {
	srv, journal := startServer(t)

	ann := dial(t, srv, "name=ann")
	setup := read(t, ann)
	require.Len(t, setup.Setup, 1)
	token := setup.Setup[0].GameToken
	require.NotEmpty(t, token)
	require.Equal(t, 0, setup.Setup[0].PlayerIndex)
	require.Equal(t, 0, setup.Setup[0].Host)
	joined := read(t, ann)
	require.Equal(t, uint64(1), joined.Seq)
	require.Equal(t, "ann", joined.Updates[0].Joined.Seat.Name)

	bob := dial(t, srv, "name=bob&game="+token)
	setup = read(t, bob)
	require.Equal(t, 1, setup.Setup[0].PlayerIndex)
	require.Equal(t, uint64(1), setup.Seq)
	require.Len(t, setup.Setup[0].Seats, 2)
	for _, conn := range []*websocket.Conn{ann, bob} {
		msg := read(t, conn)
		require.Equal(t, uint64(2), msg.Seq)
		require.Equal(t, 1, msg.Updates[0].Joined.Seat.Index)
	}

	t.Run("only the host starts", func(t *testing.T) {
		send(t, bob, model.ClientMessage{RequestID: "b1", Kind: model.RequestStart})
		msg := read(t, bob)
		require.Equal(t, []model.Ack{{RequestID: "b1", Reject: model.RejectNotHost, Error: errNotHost.Error()}}, msg.Acks)
		require.Empty(t, msg.Updates)
	})

	send(t, ann, model.ClientMessage{RequestID: "a1", Kind: model.RequestStart})
	started := read(t, ann)
	require.Equal(t, uint64(3), started.Seq)
	require.Equal(t, []model.Ack{{RequestID: "a1", OK: true}}, started.Acks)
	require.NotNil(t, started.Updates[0].Started)
	require.Equal(t, model.Turn{Player: 0, Rotated: true}, *started.Updates[1].Turn)
	other := read(t, bob)
	require.Empty(t, other.Acks, "acks go to the requester only")
	require.Equal(t, started.Updates, other.Updates)

	t.Run("out of turn is refused", func(t *testing.T) {
		send(t, bob, model.ClientMessage{RequestID: "b2", Kind: model.RequestRoll})
		msg := read(t, bob)
		require.Equal(t, model.RejectOutOfTurn, msg.Acks[0].Reject)
	})

	send(t, ann, model.ClientMessage{RequestID: "a2", Kind: model.RequestRoll})
	rolled := read(t, ann)
	require.True(t, rolled.Acks[0].OK)
	require.Equal(t, 0, rolled.Updates[0].Dice.Player)
	require.Equal(t, rolled.Updates, read(t, bob).Updates)

	send(t, bob, model.ClientMessage{RequestID: "b3", Kind: model.RequestChat, Text: "good luck"})
	for _, conn := range []*websocket.Conn{ann, bob} {
		msg := read(t, conn)
		require.Equal(t, model.ChatMessage{Player: 1, Name: "bob", Text: "good luck"}, *msg.Updates[0].Chat)
	}

	send(t, bob, model.ClientMessage{RequestID: "b4", Kind: model.RequestSnapshot})
	snap := read(t, bob)
	require.Len(t, snap.Snapshots, 1)
	require.True(t, snap.Snapshots[0].Started)
	require.Equal(t, rolled.Seq+1, snap.Seq)

	t.Run("late joiners are refused", func(t *testing.T) {
		late := dial(t, srv, "name=cy&game="+token)
		msg := read(t, late)
		require.Equal(t, model.RejectUnavailable, msg.Acks[0].Reject)
	})

	send(t, bob, model.ClientMessage{RequestID: "b5", Kind: model.RequestQuit})
	left := read(t, bob)
	require.True(t, left.Acks[0].OK)
	require.True(t, left.Updates[0].Left.GameFinished)
	require.Equal(t, *left.Updates[0].Left, *read(t, ann).Updates[0].Left)

	t.Run("journal replays every broadcast", func(t *testing.T) {
		journaled, err := journal.Since(context.Background(), token, 0)
		require.NoError(t, err)
		require.Equal(t, left.Seq, uint64(len(journaled)))

		resp, err := http.Get(srv.URL + "/games/" + token + "/updates?after=3")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		dec := gob.NewDecoder(resp.Body)
		var seqs []uint64
		for {
			var m model.ServerMessage
			if err := dec.Decode(&m); err == io.EOF {
				break
			} else {
				require.NoError(t, err)
			}
			require.Empty(t, m.Acks, "acks are never journaled")
			seqs = append(seqs, m.Seq)
		}
		require.Equal(t, uint64(4), seqs[0])
		require.Equal(t, left.Seq, seqs[len(seqs)-1])

		resp, err = http.Get(srv.URL + "/games/" + token + "/updates?after=x")
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestHandshakeFailures(t *testing.T) {
	srv, _ := startServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/play?"

	_, resp, err := websocket.DefaultDialer.Dial(url+"game=missing&name=ann", nil)
	require.Error(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(url+"name=", nil)
	require.Error(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStateNames(t *testing.T) {
	require.Equal(t, "GS_PLAY", GS_PLAY.Name())
	require.Equal(t, "OVER", PS_OVER.Name())
	require.Equal(t, HTTP_NOT_FOUND, GAME_NOT_FOUND.ToHttp())
}

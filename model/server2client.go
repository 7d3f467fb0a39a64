package model

// ServerMessage is one gob frame from the server. Seq orders broadcasts of a
// game; acks and snapshots addressed to a single player carry the Seq of the
// last broadcast they reflect.
type ServerMessage struct {
	Seq       uint64
	Acks      []Ack
	Setup     []Setup
	Snapshots []Snapshot
	Updates   []Update
}

// Broadcast reports whether the message advances the game sequence.
func (m ServerMessage) Broadcast() bool {
	return len(m.Updates) > 0
}

type Seat struct {
	Index int
	Name  string
	Code  byte
}

// Setup tells a freshly connected player who they are.
type Setup struct {
	GameToken   string
	PlayerIndex int
	Host        int
	Seats       []Seat
	Started     bool
}

type Ack struct {
	RequestID string
	OK        bool
	Reject    RejectCode
	Error     string
}

// RejectCode classifies a refused request so the client can rebuild the
// matching error value.
type RejectCode string

const (
	RejectNone        RejectCode = ""
	RejectInvalidMove RejectCode = "invalid_move"
	RejectOutOfTurn   RejectCode = "out_of_turn"
	RejectFinished    RejectCode = "game_finished"
	RejectDesync      RejectCode = "desync"
	RejectNotStarted  RejectCode = "not_started"
	RejectNotHost     RejectCode = "not_host"
	RejectBadRequest  RejectCode = "bad_request"
	RejectUnavailable RejectCode = "unavailable"
)

// Update holds exactly one non-nil field.
type Update struct {
	Joined    *PlayerJoined
	Started   *GameStarted
	Turn      *Turn
	Dice      *DiceRolled
	Moved     *TokenMoved
	Capture   *CaptureOccurred
	Won       *PlayerWon
	Card      *CardBalanceChanged
	Selected  *CardSelected
	Direction *DirectionChanged
	Left      *PlayerLeft
	Chat      *ChatMessage
}

type PlayerJoined struct {
	Seat Seat
}

type GameStarted struct {
	Seats []Seat
}

// Turn hands the die to Player. Rotated is false for an extra roll by the
// same player.
type Turn struct {
	Player  int
	Rotated bool
}

type DiceRolled struct {
	Player  int
	Value   int
	CanMove bool
}

type TokenMoved struct {
	Player    int
	Token     int
	CellIndex int
	CellKind  CellKind
}

type CaptureOccurred struct {
	Player int
	Token  int
	By     int
}

type PlayerWon struct {
	Player       int
	Rank         int
	GameFinished bool
}

type CardMethod string

const (
	CardAdd    CardMethod = "add"
	CardRemove CardMethod = "remove"
)

type CardBalanceChanged struct {
	Player int
	Method CardMethod
	Kind   CardKind
}

// CardSelected with an empty Kind means the armed card was put back.
type CardSelected struct {
	Player int
	Kind   CardKind
}

type DirectionChanged struct {
	Direction int
}

// PlayerLeft finishes the game when at most one active player remains.
type PlayerLeft struct {
	Player       int
	GameFinished bool
}

type ChatMessage struct {
	Player int
	Name   string
	Text   string
}

// Snapshot is the full game state as seen by every player.
type Snapshot struct {
	Seats       []Seat
	Players     []PlayerState
	Started     bool
	Finished    bool
	Turn        int
	Direction   int
	PendingSkip bool
	Dice        int
	CanMove     bool
}

type PlayerState struct {
	Index     int
	Positions [TokensPerPlayer]int
	Phase     Phase
	Won       bool
	Rank      int
	Lost      bool
	Left      bool
	Cards     map[CardKind]int
	Selected  CardKind
}

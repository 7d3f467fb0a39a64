package model

type RequestKind string

const (
	RequestRoll     RequestKind = "roll"
	RequestMove     RequestKind = "move"
	RequestSelect   RequestKind = "select_card"
	RequestUnselect RequestKind = "unselect_card"
	RequestChat     RequestKind = "chat"
	RequestStart    RequestKind = "start"
	RequestQuit     RequestKind = "quit"
	RequestSnapshot RequestKind = "snapshot"
)

// ClientMessage is one gob frame from a player. A move names the token by the
// cell it stands on; for the base CellIndex is the token index.
type ClientMessage struct {
	RequestID string
	Kind      RequestKind
	CellKind  CellKind
	CellIndex int
	Card      CardKind
	Text      string
}

package model

const (
	OpenCells       = 52
	CloseCells      = 6
	QuadrantSize    = 13
	StarOffset      = 8
	MaxPlayers      = 4
	MinPlayers      = 2
	TokensPerPlayer = 4

	// BasePosition is the logical position of a token that is not in play.
	BasePosition = -1
	// LastOpenPosition is the last logical position on the shared track.
	LastOpenPosition = 50
	// EndPosition is the logical position of the End cell.
	EndPosition = 56
	PathLength  = EndPosition + 1
)

type Color int

const (
	Blue Color = iota + 1
	Red
	Green
	Yellow
	White
)

type CellType int

const (
	Open CellType = iota + 1
	Star
	Close
	End
)

// CellKind is how cells are addressed on the wire.
type CellKind string

const (
	KindOpen  CellKind = "open"
	KindClose CellKind = "close"
	KindBase  CellKind = "base"
)

type Cell struct {
	Color  Color
	Type   CellType
	Index  int
	Owner  int // player index owning a close cell, -1 on the open track
	Tokens []*Token

	board *Board
}

type Token struct {
	Index    int
	Position int
	Won      bool
	Player   *Player
	Cell     *Cell
}

type Phase int

const (
	Idle Phase = iota
	AwaitingRoll
	RollReceived
	AwaitingMoveChoice
	MoveApplied
	Won
)

type Player struct {
	Index  int
	Code   byte
	Color  Color
	Name   string
	Tokens [TokensPerPlayer]*Token

	Phase  Phase
	Turn   bool
	Dice   *Dice
	Kill   bool
	Won    bool
	Rank   int
	Lost   bool
	Left   bool
	Hand   *Hand
	Path   [PathLength]*Cell

	board *Board
}

type Dice struct {
	Value   int
	Rolled  bool
	CanMove bool
}

type CardKind string

const (
	CardMultiply CardKind = "card_multiply"
	CardReverse  CardKind = "card_reverse"
	CardSkip     CardKind = "card_skip"
	CardExtra    CardKind = "card_extra"
)

// CardKinds lists every kind in a stable order.
var CardKinds = []CardKind{CardMultiply, CardReverse, CardSkip, CardExtra}

type Hand struct {
	Cards    map[CardKind]int
	Selected CardKind
}

// Observer is told about occupancy changes so a view can redraw.
type Observer interface {
	CellChanged(c *Cell)
	BaseChanged(p *Player, token int)
}

type Board struct {
	Open     [OpenCells]*Cell
	Closed   [MaxPlayers][CloseCells]*Cell
	Observer Observer
}

package model

import "fmt"

// Swatch describes how a color is presented. Views pick the skin they need.
type Swatch struct {
	Name string
	Code byte
	Hex  uint32
}

var palette = map[Color]Swatch{
	Blue:   {Name: "blue", Code: 'B', Hex: 0x65CDD1},
	Red:    {Name: "red", Code: 'R', Hex: 0xEE6E6E},
	Green:  {Name: "green", Code: 'G', Hex: 0x89C66C},
	Yellow: {Name: "yellow", Code: 'Y', Hex: 0xE8E557},
	White:  {Name: "white", Code: 'W', Hex: 0xFFFFFF},
}

// playerColors is the seating order: player index i plays playerColors[i].
var playerColors = [MaxPlayers]Color{Blue, Red, Green, Yellow}

func ColorOfPlayer(index int) Color {
	if index < 0 || index >= MaxPlayers {
		return White
	}
	return playerColors[index]
}

func (c Color) Swatch() Swatch {
	return palette[c]
}

func (c Color) String() string {
	if s, ok := palette[c]; ok {
		return s.Name
	}
	return fmt.Sprintf("n/a:%d", int(c))
}

// RGB splits the hex value into unit floats, the form renderers scale colors by.
func (c Color) RGB() (r, g, b float64) {
	u := palette[c].Hex
	b = float64(0xff&u) / 255
	g = float64(0xff&(u>>8)) / 255
	r = float64(0xff&(u>>16)) / 255
	return
}

func (t CellType) Name() string {
	switch t {
	case Open:
		return "Open"
	case Star:
		return "Star"
	case Close:
		return "Close"
	case End:
		return "End"
	default:
		return fmt.Sprintf("n/a:%d", int(t))
	}
}

func (p Phase) Name() string {
	switch p {
	case Idle:
		return "IDLE"
	case AwaitingRoll:
		return "AWAITING_ROLL"
	case RollReceived:
		return "ROLL_RECEIVED"
	case AwaitingMoveChoice:
		return "AWAITING_MOVE"
	case MoveApplied:
		return "MOVE_APPLIED"
	case Won:
		return "WON"
	default:
		return "N/A"
	}
}

// Title is the label shown on a card.
func (k CardKind) Title() string {
	switch k {
	case CardMultiply:
		return "card x2"
	case CardReverse:
		return "Reverse"
	case CardSkip:
		return "Skip"
	case CardExtra:
		return "+1 Die"
	}
	return ""
}

func (k CardKind) Valid() bool {
	for _, kind := range CardKinds {
		if kind == k {
			return true
		}
	}
	return false
}

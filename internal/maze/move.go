package maze

import "fmt"

// Move is an adventurer action code.
type Move int

const (
	Wait Move = iota
	Forward
	TurnRight
	TurnAround
	TurnLeft
)

var moveNames = [...]string{"wait", "forward", "turn_right", "turn_around", "turn_left"}

func (mv Move) String() string {
	if mv < Wait || mv > TurnLeft {
		return fmt.Sprintf("Move(%d)", int(mv))
	}
	return moveNames[mv]
}

// Valid reports whether mv is a known action code.
func (mv Move) Valid() bool {
	return mv >= Wait && mv <= TurnLeft
}

// ActionCodes is the name-to-code table exposed to adventurer programs.
func ActionCodes() map[string]int {
	return map[string]int{
		"WAIT":        int(Wait),
		"FORWARD":     int(Forward),
		"TURN_RIGHT":  int(TurnRight),
		"TURN_AROUND": int(TurnAround),
		"TURN_LEFT":   int(TurnLeft),
	}
}

// Apply performs mv for the agent on m. A forward step into a closed wall
// leaves the agent in place and reports bumped.
func (m *Maze) Apply(a Agent, mv Move) (next Agent, bumped bool) {
	switch mv {
	case Forward:
		if m.Closed(a.Facing.AheadWall(a.Row, a.Col)) {
			return a, true
		}
		dr, dc := a.Facing.Offset()
		a.Row += dr
		a.Col += dc
	case TurnRight, TurnAround, TurnLeft:
		a.Facing = a.Facing.Rotate(1 + int(mv-TurnRight))
	}
	return a, false
}

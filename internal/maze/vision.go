package maze

import (
	"encoding/json"
	"errors"
)

// ErrVisionOverflow means a forward scan ran past the grid; a closed
// boundary should always stop it first.
var ErrVisionOverflow = errors.New("maze: vision scan exceeded grid bound")

// Agent is an adventurer's position and facing.
type Agent struct {
	Row    int       `json:"row"`
	Col    int       `json:"col"`
	Facing Direction `json:"facing"`
}

// CellVision is what an agent sees around one cell of its forward corridor.
// true means the wall is closed.
type CellVision struct {
	Ahead bool `json:"ahead"`
	Left  bool `json:"left"`
	Right bool `json:"right"`
}

// Offset is the other agent's position relative to the viewer: cells ahead
// and lateral step (-1 left, +1 right). It encodes as [distance, lateral].
type Offset struct {
	Distance int
	Lateral  int
}

func (o Offset) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{o.Distance, o.Lateral})
}

// Vision is the whole perception handed to the adventurers for one agent.
type Vision struct {
	Ahead      []CellVision `json:"ahead"`
	LeftAhead  *bool        `json:"leftAhead"`
	RightAhead *bool        `json:"rightAhead"`
	Friend     *Offset      `json:"friend"`
}

// scan walks the agent's perception in a fixed order and reports every
// wall it examines. strict turns a corridor that outruns the grid into
// ErrVisionOverflow instead of stopping early.
type scan struct {
	m      *Maze
	agent  Agent
	strict bool
	walls  []WallRef
}

func (s *scan) check(row, col int, rw relWall) bool {
	ref := rw.from(row, col)
	s.walls = append(s.walls, ref)
	return s.m.Closed(ref)
}

func (s *scan) cell(row, col int) CellVision {
	ws := wallsByDir[s.agent.Facing]
	return CellVision{
		Ahead: s.check(row, col, ws.ahead),
		Left:  s.check(row, col, ws.left),
		Right: s.check(row, col, ws.right),
	}
}

func (s *scan) run(other *Agent) (Vision, error) {
	a := s.agent
	ws := wallsByDir[a.Facing]
	dr, dc := a.Facing.Offset()
	at := func(row, col int) bool {
		return other != nil && other.Row == row && other.Col == col
	}

	v := Vision{Ahead: []CellVision{s.cell(a.Row, a.Col)}}
	if at(a.Row, a.Col) {
		v.Friend = &Offset{}
	}

	for !v.Ahead[len(v.Ahead)-1].Ahead {
		n := len(v.Ahead)
		if n >= s.m.size {
			if s.strict {
				return Vision{}, ErrVisionOverflow
			}
			break
		}
		row, col := a.Row+n*dr, a.Col+n*dc
		v.Ahead = append(v.Ahead, s.cell(row, col))
		if at(row, col) {
			v.Friend = &Offset{Distance: n}
		}
	}

	if !v.Ahead[0].Left {
		row, col := a.Row-dc, a.Col+dr
		blocked := s.check(row, col, ws.ahead)
		s.check(row, col, ws.left)
		v.LeftAhead = &blocked
		if at(row, col) {
			v.Friend = &Offset{Lateral: -1}
		}
	}
	if !v.Ahead[0].Right {
		row, col := a.Row+dc, a.Col-dr
		blocked := s.check(row, col, ws.ahead)
		s.check(row, col, ws.right)
		v.RightAhead = &blocked
		if at(row, col) {
			v.Friend = &Offset{Lateral: 1}
		}
	}
	return v, nil
}

// Vision computes what agent sees. other is the partner agent, reported in
// Friend when it stands on the start cell, anywhere along the forward
// corridor, or on the open cell immediately left or right.
func (m *Maze) Vision(agent, other Agent) (Vision, error) {
	s := &scan{m: m, agent: agent, strict: true}
	return s.run(&other)
}

// VisibleWalls lists every wall the agent currently observes: the
// ahead/left/right walls of each corridor cell and of any open lateral
// neighbour. The lateral cell's wall facing the agent is the corridor's own
// side wall. References may point at boundary walls.
func (m *Maze) VisibleWalls(agent Agent) []WallRef {
	s := &scan{m: m, agent: agent}
	s.run(nil)
	return s.walls
}

// WallVisible reports whether w is observable by agent.
func (m *Maze) WallVisible(agent Agent, w WallRef) bool {
	if behind(agent, w) {
		return false
	}
	for _, seen := range m.VisibleWalls(agent) {
		if seen == w {
			return true
		}
	}
	return false
}

// behind reports whether both cells separated by w lie strictly behind the
// agent along its facing axis. No such wall can be in view.
func behind(agent Agent, w WallRef) bool {
	dr, dc := agent.Facing.Offset()
	depth := func(row, col int) int { return row*dr + col*dc }

	nearRow, nearCol := w.Row, w.Col
	if w.Wall == WallEast {
		nearCol++
	} else {
		nearRow++
	}
	front := max(depth(w.Row, w.Col), depth(nearRow, nearCol))
	return front < depth(agent.Row, agent.Col)
}

// VisibleToAny reports whether any of the agents can see w.
func (m *Maze) VisibleToAny(w WallRef, agents ...Agent) bool {
	for _, a := range agents {
		if m.WallVisible(a, w) {
			return true
		}
	}
	return false
}

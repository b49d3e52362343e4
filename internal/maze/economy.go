package maze

import (
	"errors"
	"math"
)

// ErrDisconnected is returned when an applied edit leaves part of the maze
// unreachable from the origin.
var ErrDisconnected = errors.New("maze: not fully connected")

// Fib is the edit cost of a wall that has already flipped n times:
// Fib(0) = Fib(1) = 1, then the Fibonacci sequence.
func Fib(n int) int {
	a, b := 1, 1
	for i := 1; i < n; i++ {
		a, b = b, a+b
	}
	return b
}

// ManaGain is the mana granted to the maze master on the given turn of a
// round played on a size x size maze.
func ManaGain(turn, size int) int {
	if turn < 1 || size < 2 {
		return 1
	}
	return int(math.Floor(1 + math.Log(float64(turn))/math.Log(float64(size))))
}

// Edit is one maze master submission: a wall to open and a wall to close.
// Either may be nil.
type Edit struct {
	Remove *WallRef
	Add    *WallRef
}

// Change is a single wall flip requested by an edit.
type Change struct {
	Wall   WallRef `json:"wall"`
	Closed bool    `json:"closed"`
}

// EditResult reports what ApplyEdit did.
type EditResult struct {
	// Cost is the total price of every requested flip.
	Cost int
	// Spent is the mana debited: Cost when affordable, otherwise 0.
	Spent int
	// Affordable is false when Cost exceeded the available mana.
	Affordable bool
	// Applied lists the flips that went through, in request order.
	Applied []Change
	// Vetoed lists paid-for flips that were skipped because an agent could see the wall.
	Vetoed []Change
}

// Removed returns the wall that was opened, if any.
func (r EditResult) Removed() *WallRef {
	for _, c := range r.Applied {
		if !c.Closed {
			w := c.Wall
			return &w
		}
	}
	return nil
}

// Added returns the wall that was closed, if any.
func (r EditResult) Added() *WallRef {
	for _, c := range r.Applied {
		if c.Closed {
			w := c.Wall
			return &w
		}
	}
	return nil
}

// Changes returns the flips e would actually perform on m, skipping
// no-op targets. An edit that opens and closes the same wall is a no-op.
func (m *Maze) Changes(e Edit) []Change {
	if e.Remove != nil && e.Add != nil && *e.Remove == *e.Add {
		return nil
	}
	var out []Change
	if e.Remove != nil && m.Exists(*e.Remove) && m.Closed(*e.Remove) {
		out = append(out, Change{Wall: *e.Remove, Closed: false})
	}
	if e.Add != nil && m.Exists(*e.Add) && !m.Closed(*e.Add) {
		out = append(out, Change{Wall: *e.Add, Closed: true})
	}
	return out
}

// EditCost prices e against the current change counts.
func (m *Maze) EditCost(e Edit) int {
	total := 0
	for _, c := range m.Changes(e) {
		total += Fib(m.ChangeCount(c.Wall))
	}
	return total
}

// ApplyEdit charges and applies e. If the total cost exceeds mana nothing
// happens. Otherwise the full cost is spent and each flip is applied unless
// one of the observers can currently see that wall, even when every flip
// ends up vetoed. Connectivity is checked after any flip lands;
// ErrDisconnected is returned with the result, and the flips stay applied.
func (m *Maze) ApplyEdit(e Edit, mana int, observers ...Agent) (EditResult, error) {
	changes := m.Changes(e)
	res := EditResult{}
	for _, c := range changes {
		res.Cost += Fib(m.ChangeCount(c.Wall))
	}
	if res.Cost > mana {
		return res, nil
	}
	res.Affordable = true
	res.Spent = res.Cost

	// Visibility is judged on the maze as it stood before this edit.
	for _, c := range changes {
		if m.VisibleToAny(c.Wall, observers...) {
			res.Vetoed = append(res.Vetoed, c)
		} else {
			res.Applied = append(res.Applied, c)
		}
	}
	for _, c := range res.Applied {
		m.SetWall(c.Wall, c.Closed)
	}
	if len(res.Applied) > 0 && !m.FullyConnected() {
		return res, ErrDisconnected
	}
	return res, nil
}

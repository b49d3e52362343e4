// Package maze holds the grid model a match is played on: cell walls and
// their change counts, the direction tables, connectivity checking, agent
// perception and the wall editing economy.
package maze

import (
	"encoding/json"
	"fmt"
)

// Cell stores the walls on the east and south side of a grid square. The
// east wall of the last column and the south wall of the last row are the
// maze boundary; they are always closed and never toggled.
type Cell struct {
	East             bool
	EastChangeCount  int
	South            bool
	SouthChangeCount int
}

// Maze is a square grid of cells.
type Maze struct {
	size  int
	cells [][]Cell
}

// New returns a size x size maze with every interior wall open.
func New(size int) *Maze {
	cells := make([][]Cell, size)
	for r := range cells {
		cells[r] = make([]Cell, size)
	}
	return &Maze{size: size, cells: cells}
}

// Size returns the number of rows (and columns).
func (m *Maze) Size() int {
	return m.size
}

// Cell returns a copy of the cell at (row, col).
func (m *Maze) Cell(row, col int) Cell {
	return m.cells[row][col]
}

// WallRef addresses a single stored wall. It encodes to JSON as
// [row, col, "east"|"south"].
type WallRef struct {
	Row  int
	Col  int
	Wall Wall
}

func (w WallRef) String() string {
	return fmt.Sprintf("(%d,%d,%s)", w.Row, w.Col, w.Wall)
}

func (w WallRef) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{w.Row, w.Col, w.Wall})
}

func (w *WallRef) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw) != 3 {
		return fmt.Errorf("maze: wall reference must have 3 elements, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &w.Row); err != nil {
		return err
	}
	if err := json.Unmarshal(raw[1], &w.Col); err != nil {
		return err
	}
	return json.Unmarshal(raw[2], &w.Wall)
}

// Exists reports whether w names a toggleable interior wall of m.
func (m *Maze) Exists(w WallRef) bool {
	if w.Row < 0 || w.Col < 0 || w.Row >= m.size || w.Col >= m.size {
		return false
	}
	switch w.Wall {
	case WallEast:
		return w.Col < m.size-1
	case WallSouth:
		return w.Row < m.size-1
	}
	return false
}

// CheckWall reports whether the wall at (row, col, wall) blocks movement.
// Anything outside the grid, including the boundary walls, is closed.
func (m *Maze) CheckWall(row, col int, wall Wall) bool {
	if row < 0 || col < 0 {
		return true
	}
	if wall == WallEast && col >= m.size-1 || col >= m.size {
		return true
	}
	if wall == WallSouth && row >= m.size-1 || row >= m.size {
		return true
	}
	c := m.cells[row][col]
	if wall == WallEast {
		return c.East
	}
	return c.South
}

// Closed reports the current state of a wall reference.
func (m *Maze) Closed(w WallRef) bool {
	return m.CheckWall(w.Row, w.Col, w.Wall)
}

// ChangeCount returns how many times an interior wall has flipped.
func (m *Maze) ChangeCount(w WallRef) int {
	if !m.Exists(w) {
		return 0
	}
	c := m.cells[w.Row][w.Col]
	if w.Wall == WallEast {
		return c.EastChangeCount
	}
	return c.SouthChangeCount
}

// SetWall sets an interior wall. If the value flips, the wall's change
// count is incremented. Setting a wall that does not exist is a no-op and
// reports false.
func (m *Maze) SetWall(w WallRef, closed bool) bool {
	if !m.Exists(w) {
		return false
	}
	c := &m.cells[w.Row][w.Col]
	switch w.Wall {
	case WallEast:
		if c.East == closed {
			return false
		}
		c.East = closed
		c.EastChangeCount++
	case WallSouth:
		if c.South == closed {
			return false
		}
		c.South = closed
		c.SouthChangeCount++
	}
	return true
}

// CellSpec is one generated cell as returned by a maze generator. A nil
// pointer means the flag was not supplied.
type CellSpec struct {
	East  *bool
	South *bool
}

// Layout is a generated grid, row-major.
type Layout [][]CellSpec

// LayoutError describes why a generated layout was rejected.
type LayoutError struct {
	Row    int
	Col    int
	Reason string
}

func (e *LayoutError) Error() string {
	switch {
	case e.Row < 0:
		return e.Reason
	case e.Col < 0:
		return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
	default:
		return fmt.Sprintf("cell (%d,%d): %s", e.Row, e.Col, e.Reason)
	}
}

// CheckRows validates the row count of a generated layout.
func CheckRows(size, got int) error {
	if got == size {
		return nil
	}
	return &LayoutError{Row: -1, Col: -1, Reason: fmt.Sprintf(
		"incorrect number of rows (expected %d rows, got %d rows)", size, got)}
}

// CheckCells validates the cell count of row r of a generated layout.
func CheckCells(size, r, got int) error {
	if got == size {
		return nil
	}
	return &LayoutError{Row: r, Col: -1, Reason: fmt.Sprintf(
		"incorrect number of cells (expected %d cells, got %d cells)", size, got)}
}

// FromLayout validates a generated layout and normalizes it into a maze with
// zeroed change counts. Flags on boundary-adjacent sides are ignored; flags on
// interior sides are required.
func FromLayout(size int, layout Layout) (*Maze, error) {
	if err := CheckRows(size, len(layout)); err != nil {
		return nil, err
	}
	m := New(size)
	for r, row := range layout {
		if err := CheckCells(size, r, len(row)); err != nil {
			return nil, err
		}
		for c, spec := range row {
			if c+1 < size {
				if spec.East == nil {
					return nil, &LayoutError{Row: r, Col: c, Reason: "missing east wall"}
				}
				m.cells[r][c].East = *spec.East
			}
			if r+1 < size {
				if spec.South == nil {
					return nil, &LayoutError{Row: r, Col: c, Reason: "missing south wall"}
				}
				m.cells[r][c].South = *spec.South
			}
		}
	}
	return m, nil
}

// WallCell is the render-facing view of a cell; boundary walls are null.
type WallCell struct {
	East  *bool `json:"east"`
	South *bool `json:"south"`
}

// CostCell is the view handed to the maze master: wall state plus what it
// would cost to flip each wall now.
type CostCell struct {
	East      *bool `json:"east"`
	EastCost  int   `json:"eastCost"`
	South     *bool `json:"south"`
	SouthCost int   `json:"southCost"`
}

// Walls returns the wall booleans of every cell.
func (m *Maze) Walls() [][]WallCell {
	out := make([][]WallCell, m.size)
	for r := range out {
		out[r] = make([]WallCell, m.size)
		for c := range out[r] {
			out[r][c] = WallCell{East: m.interior(r, c, WallEast), South: m.interior(r, c, WallSouth)}
		}
	}
	return out
}

// CostView returns the cost-annotated grid offered to the maze master.
func (m *Maze) CostView() [][]CostCell {
	out := make([][]CostCell, m.size)
	for r := range out {
		out[r] = make([]CostCell, m.size)
		for c := range out[r] {
			cell := m.cells[r][c]
			out[r][c] = CostCell{
				East:      m.interior(r, c, WallEast),
				EastCost:  Fib(cell.EastChangeCount),
				South:     m.interior(r, c, WallSouth),
				SouthCost: Fib(cell.SouthChangeCount),
			}
		}
	}
	return out
}

func (m *Maze) interior(row, col int, wall Wall) *bool {
	ref := WallRef{Row: row, Col: col, Wall: wall}
	if !m.Exists(ref) {
		return nil
	}
	v := m.Closed(ref)
	return &v
}

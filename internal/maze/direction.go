package maze

import (
	"encoding/json"
	"fmt"
)

// Wall names one of the two walls a cell owns.
type Wall string

const (
	WallEast  Wall = "east"
	WallSouth Wall = "south"
)

// Valid reports whether w is a known wall name.
func (w Wall) Valid() bool {
	return w == WallEast || w == WallSouth
}

// Direction is a compass facing. The numeric order is clockwise so that
// rotation is modular addition.
type Direction int

const (
	North Direction = iota
	East
	South
	West
)

var directionNames = [4]string{"north", "east", "south", "west"}

func (d Direction) String() string {
	if d < North || d > West {
		return fmt.Sprintf("Direction(%d)", int(d))
	}
	return directionNames[d]
}

// ParseDirection parses a lower-case compass name.
func ParseDirection(s string) (Direction, error) {
	for i, name := range directionNames {
		if name == s {
			return Direction(i), nil
		}
	}
	return 0, fmt.Errorf("maze: unknown direction %q", s)
}

// Rotate returns d turned clockwise by quarter turns (negative is counter-clockwise).
func (d Direction) Rotate(turns int) Direction {
	return Direction(((int(d)+turns)%4 + 4) % 4)
}

func (d Direction) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Direction) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDirection(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// relWall locates a wall relative to a cell: the wall named wall on the cell
// at (row+dr, col+dc).
type relWall struct {
	dr, dc int
	wall   Wall
}

// relWalls gives, per compass side of a cell, which stored wall bounds it.
var relWalls = [4]relWall{
	North: {-1, 0, WallSouth},
	East:  {0, 0, WallEast},
	South: {0, 0, WallSouth},
	West:  {0, -1, WallEast},
}

var offsets = [4]struct{ dr, dc int }{
	North: {-1, 0},
	East:  {0, +1},
	South: {+1, 0},
	West:  {0, -1},
}

type wallSet struct {
	ahead, left, right relWall
}

var wallsByDir = [4]wallSet{
	North: {ahead: relWalls[North], left: relWalls[West], right: relWalls[East]},
	East:  {ahead: relWalls[East], left: relWalls[North], right: relWalls[South]},
	South: {ahead: relWalls[South], left: relWalls[East], right: relWalls[West]},
	West:  {ahead: relWalls[West], left: relWalls[South], right: relWalls[North]},
}

// Offset returns the row and column step taken when moving forward facing d.
func (d Direction) Offset() (dr, dc int) {
	o := offsets[d]
	return o.dr, o.dc
}

// AheadWall returns the wall crossed by moving forward from (row, col) facing d.
func (d Direction) AheadWall(row, col int) WallRef {
	return wallsByDir[d].ahead.from(row, col)
}

func (rw relWall) from(row, col int) WallRef {
	return WallRef{Row: row + rw.dr, Col: col + rw.dc, Wall: rw.wall}
}

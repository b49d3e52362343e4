package scripting

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/MJE43/maze-duel/internal/maze"
)

// Decoders for competitor return values. Each takes the JSON text produced
// by VM.Call and reports shape problems as a plain reason string; the
// caller attaches the competitor and method.

// decodeLayout reads a generated maze. Dimension checks are left to
// maze.FromLayout so the messages match the model's own validation.
func decodeLayout(raw json.RawMessage, size int) (maze.Layout, error) {
	var rows []json.RawMessage
	if err := json.Unmarshal(raw, &rows); err != nil || isNull(raw) {
		return nil, shapeReason("maze must be an array of rows")
	}
	if err := maze.CheckRows(size, len(rows)); err != nil {
		return nil, err
	}

	layout := make(maze.Layout, len(rows))
	for r, rowRaw := range rows {
		var cells []json.RawMessage
		if err := json.Unmarshal(rowRaw, &cells); err != nil || isNull(rowRaw) {
			return nil, shapeReason(fmt.Sprintf("row %d must be an array of cells", r))
		}
		if err := maze.CheckCells(size, r, len(cells)); err != nil {
			return nil, err
		}
		layout[r] = make([]maze.CellSpec, len(cells))
		for c, cellRaw := range cells {
			var fields map[string]json.RawMessage
			if err := json.Unmarshal(cellRaw, &fields); err != nil || fields == nil {
				return nil, shapeReason(fmt.Sprintf("cell (%d,%d) must be an object", r, c))
			}
			layout[r][c] = maze.CellSpec{
				East:  flag(fields, "east"),
				South: flag(fields, "south"),
			}
		}
	}
	return layout, nil
}

// flag reports a cell flag with JavaScript truthiness, or nil when the
// property is absent.
func flag(fields map[string]json.RawMessage, name string) *bool {
	raw, ok := fields[name]
	if !ok {
		return nil
	}
	v := truthy(raw)
	return &v
}

func truthy(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	switch string(raw) {
	case "false", "null", `""`:
		return false
	}
	var f float64
	if json.Unmarshal(raw, &f) == nil {
		return f != 0
	}
	return true
}

// decodeEdit reads a maze master turn: [removeWall, addWall], each null or
// [row, col, "east"|"south"].
func decodeEdit(raw json.RawMessage) (maze.Edit, error) {
	var pair []json.RawMessage
	if err := json.Unmarshal(raw, &pair); err != nil || isNull(raw) {
		return maze.Edit{}, shapeReason("expected [removeWall, addWall]")
	}
	if len(pair) != 2 {
		return maze.Edit{}, shapeReason(fmt.Sprintf("expected 2 elements, got %d", len(pair)))
	}
	remove, err := decodeWall(pair[0])
	if err != nil {
		return maze.Edit{}, fmt.Errorf("removeWall: %w", err)
	}
	add, err := decodeWall(pair[1])
	if err != nil {
		return maze.Edit{}, fmt.Errorf("addWall: %w", err)
	}
	return maze.Edit{Remove: remove, Add: add}, nil
}

func decodeWall(raw json.RawMessage) (*maze.WallRef, error) {
	if isNull(raw) {
		return nil, nil
	}
	var triple []json.RawMessage
	if err := json.Unmarshal(raw, &triple); err != nil || len(triple) != 3 {
		return nil, shapeReason("wall must be null or [row, col, \"east\"|\"south\"]")
	}
	row, ok := integer(triple[0])
	if !ok {
		return nil, shapeReason("wall row must be an integer")
	}
	col, ok := integer(triple[1])
	if !ok {
		return nil, shapeReason("wall column must be an integer")
	}
	var name string
	if err := json.Unmarshal(triple[2], &name); err != nil || !maze.Wall(name).Valid() {
		return nil, shapeReason(fmt.Sprintf("unknown wall name %s", triple[2]))
	}
	return &maze.WallRef{Row: row, Col: col, Wall: maze.Wall(name)}, nil
}

// decodeMoves reads the adventurers' joint turn: one action code per agent.
func decodeMoves(raw json.RawMessage) ([2]maze.Move, error) {
	var moves [2]maze.Move
	var codes []json.RawMessage
	if err := json.Unmarshal(raw, &codes); err != nil || isNull(raw) {
		return moves, shapeReason("expected an array of two action codes")
	}
	if len(codes) != 2 {
		return moves, shapeReason(fmt.Sprintf("expected 2 action codes, got %d", len(codes)))
	}
	for i, code := range codes {
		n, ok := integer(code)
		if !ok || !maze.Move(n).Valid() {
			return moves, shapeReason(fmt.Sprintf("agent %c: invalid action code %s", agentLetter(i), code))
		}
		moves[i] = maze.Move(n)
	}
	return moves, nil
}

func integer(raw json.RawMessage) (int, bool) {
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil || isNull(raw) {
		return 0, false
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

func agentLetter(i int) byte {
	return "AB"[i]
}

// shapeReason marks a decode failure that the caller turns into a ShapeError.
type shapeReason string

func (r shapeReason) Error() string { return string(r) }

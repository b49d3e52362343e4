package scripting

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dop251/goja"

	"github.com/MJE43/maze-duel/internal/maze"
)

// MazeMaster is a loaded maze-master program.
type MazeMaster struct {
	*Program
}

// LoadMazeMaster loads src, which must be a maze-master registration.
func LoadMazeMaster(src Source, random func() float64, limit time.Duration, logger *slog.Logger) (*MazeMaster, error) {
	if err := requireRole(src, RoleMazeMaster); err != nil {
		return nil, err
	}
	p, err := Load(src, random, limit, logger)
	if err != nil {
		return nil, err
	}
	if err := p.requireEntryPoints(limit); err != nil {
		return nil, err
	}
	return &MazeMaster{Program: p}, nil
}

// GenerateMaze asks for a size x size layout.
func (mm *MazeMaster) GenerateMaze(size int, limit time.Duration) (maze.Layout, time.Duration, error) {
	out, elapsed, err := mm.Invoke("generateMaze", limit, size)
	if err != nil {
		return nil, elapsed, err
	}
	layout, err := decodeLayout(out, size)
	if err != nil {
		return nil, elapsed, mm.shapeError("generateMaze", err)
	}
	return layout, elapsed, nil
}

// TakeTurn offers the current mana and cost-annotated maze and returns the
// requested edit.
func (mm *MazeMaster) TakeTurn(mana int, view [][]maze.CostCell, limit time.Duration) (maze.Edit, time.Duration, error) {
	out, elapsed, err := mm.Invoke("takeTurn", limit, mana, view)
	if err != nil {
		return maze.Edit{}, elapsed, err
	}
	edit, err := decodeEdit(out)
	if err != nil {
		return maze.Edit{}, elapsed, mm.shapeError("takeTurn", err)
	}
	return edit, elapsed, nil
}

// Adventurers is a loaded adventurers program steering both agents.
type Adventurers struct {
	*Program
}

// LoadAdventurers loads src, which must be an adventurers registration.
func LoadAdventurers(src Source, random func() float64, limit time.Duration, logger *slog.Logger) (*Adventurers, error) {
	if err := requireRole(src, RoleAdventurers); err != nil {
		return nil, err
	}
	p, err := Load(src, random, limit, logger)
	if err != nil {
		return nil, err
	}
	if err := p.requireEntryPoints(limit); err != nil {
		return nil, err
	}
	return &Adventurers{Program: p}, nil
}

// StartRound announces a new maze size. Its return value is ignored.
func (a *Adventurers) StartRound(size int, limit time.Duration) (time.Duration, error) {
	_, elapsed, err := a.Invoke("startRound", limit, size)
	return elapsed, err
}

// TakeTurn hands over both agents' vision and returns one move per agent.
func (a *Adventurers) TakeTurn(vision [2]maze.Vision, limit time.Duration) ([2]maze.Move, time.Duration, error) {
	out, elapsed, err := a.Invoke("takeTurn", limit, vision)
	if err != nil {
		return [2]maze.Move{}, elapsed, err
	}
	moves, err := decodeMoves(out)
	if err != nil {
		return moves, elapsed, a.shapeError("takeTurn", err)
	}
	return moves, elapsed, nil
}

var errWrongRole = errors.New("registered for the other role")

func requireRole(src Source, want Role) error {
	if src.Role != want {
		return &SetupFault{Role: src.Role, Name: src.Name, Err: fmt.Errorf("%w: want %s", errWrongRole, want)}
	}
	return nil
}

// requireEntryPoints checks that the program exposes every method its role
// is called through. Property getters run under limit.
func (p *Program) requireEntryPoints(limit time.Duration) error {
	_, err := p.vm.run(limit, func() error {
		for _, name := range entryPoints[p.Role] {
			if _, ok := goja.AssertFunction(p.api.Get(name)); !ok {
				return fmt.Errorf("%s %w", name, ErrNotFunction)
			}
		}
		return nil
	})
	p.flush("load")
	if err != nil {
		return &SetupFault{Role: p.Role, Name: p.Name, Err: unwrapException(err)}
	}
	return nil
}

// Package match runs one Maze Master vs Adventurers duel: the per-round and
// per-turn state machine, compute budgets, scoring, and the scheduler that
// drives it under a pacing policy.
package match

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MJE43/maze-duel/internal/engine"
	"github.com/MJE43/maze-duel/internal/maze"
	"github.com/MJE43/maze-duel/internal/scripting"
)

// Phase is the pending transition of a match.
type Phase string

const (
	PhaseRoundStart Phase = "round_start"
	PhaseTurn       Phase = "turn"
	PhaseFinished   Phase = "finished"
)

// Status is how a finished match ended.
type Status string

const (
	StatusRunning       Status = "running"
	StatusTurnLimit     Status = "turn_limit_reached"
	StatusDisqualified  Status = "disqualified"
	StatusInternalFault Status = "internal_fault"
	StatusStopped       Status = "stopped"
)

// Observer receives match telemetry. Optional; when nil nothing is reported.
type Observer interface {
	ObserveCall(role scripting.Role, method string, elapsed time.Duration)
	ObserveTransition(phase Phase)
	ObserveFinish(status Status, reason Reason)
}

// Actions is the audit record of the most recent transition.
type Actions struct {
	Moves   [2]maze.Move  `json:"moves"`
	Removed *maze.WallRef `json:"removed"`
	Added   *maze.WallRef `json:"added"`
}

// View is the render-facing snapshot of a match.
type View struct {
	ID             string            `json:"id"`
	Phase          Phase             `json:"phase"`
	Status         Status            `json:"status"`
	MazeSize       int               `json:"mazeSize"`
	Maze           [][]maze.WallCell `json:"maze"`
	Agents         [2]maze.Agent     `json:"agents"`
	TurnNumber     int               `json:"turnNumber"`
	Score          int               `json:"score"`
	Mana           int               `json:"mmMana"`
	MazesCompleted int               `json:"mazesCompleted"`
	LastActions    *Actions          `json:"lastActions"`
	Dirty          bool              `json:"dirty"`
	Error          string            `json:"error,omitempty"`
}

// Result summarizes a finished match.
type Result struct {
	ID             string `json:"id"`
	Status         Status `json:"status"`
	Score          int    `json:"score"`
	MazesCompleted int    `json:"mazesCompleted"`
	MazeSize       int    `json:"mazeSize"`
	TurnNumber     int    `json:"turnNumber"`
	Transitions    int    `json:"transitions"`
	Reason         Reason `json:"reason,omitempty"`
	Who            string `json:"who,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Starting positions: both agents at the origin, A facing east, B south.
var startAgents = [2]maze.Agent{
	{Row: 0, Col: 0, Facing: maze.East},
	{Row: 0, Col: 0, Facing: maze.South},
}

// Match owns the maze, agents and budgets of one duel. Step and the read
// methods are safe to call from different goroutines; transitions never
// overlap.
type Match struct {
	mu sync.Mutex

	id     string
	cfg    Config
	mm     *scripting.MazeMaster
	adv    *scripting.Adventurers
	logger *slog.Logger
	obs    Observer

	next        Phase
	status      Status
	err         error
	transitions int

	size      int
	maze      *maze.Maze
	agents    [2]maze.Agent
	turn      int
	score     int
	mana      int
	mmBudget  time.Duration
	advBudget time.Duration
	completed int
	last      *Actions
	dirty     bool
}

// New loads both competitors and prepares a match in PhaseRoundStart. An
// empty seed is replaced with a generated one, which is logged and returned
// for replay. Load failures are *scripting.SetupFault.
func New(cfg Config, mmSrc, advSrc scripting.Source, seed string, logger *slog.Logger) (*Match, string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.NewString()
	logger = logger.With("component", "match", "match_id", id)

	streams, generated := engine.DeriveStreams(seed)
	if generated {
		logger.Info("no random seed given, generated one", "seed", streams.Seed)
	}

	mm, err := scripting.LoadMazeMaster(mmSrc, streams.MazeMaster.Float64, cfg.LoadLimit, logger)
	if err != nil {
		return nil, streams.Seed, err
	}
	adv, err := scripting.LoadAdventurers(advSrc, streams.Adventurers.Float64, cfg.LoadLimit, logger)
	if err != nil {
		return nil, streams.Seed, err
	}

	return &Match{
		id:     id,
		cfg:    cfg,
		mm:     mm,
		adv:    adv,
		logger: logger,
		next:   PhaseRoundStart,
		status: StatusRunning,
		size:   cfg.InitialSize - 1,
		agents: startAgents,
		dirty:  true,
	}, streams.Seed, nil
}

// SetObserver attaches telemetry. Must be called before the first Step.
func (m *Match) SetObserver(o Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.obs = o
}

// ID returns the match identifier.
func (m *Match) ID() string {
	return m.id
}

// Names returns the display names of the maze master and the adventurers.
func (m *Match) Names() (mazeMaster, adventurers string) {
	return m.mm.Name, m.adv.Name
}

// Step runs the pending transition and returns the phase that follows it.
// Once PhaseFinished is returned the error is the terminal cause: nil for a
// turn limit, otherwise a *Disqualification, *InternalFault or ErrStopped.
func (m *Match) Step() (Phase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	switch m.next {
	case PhaseFinished:
		return PhaseFinished, m.err
	case PhaseRoundStart:
		err = m.startRound()
	case PhaseTurn:
		err = m.takeTurn()
	}
	m.transitions++
	if err != nil {
		m.finish(err)
	}
	if m.obs != nil {
		m.obs.ObserveTransition(m.next)
	}
	return m.next, m.err
}

// Stop finishes a running match with ErrStopped. A transition in progress
// completes first.
func (m *Match) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.next != PhaseFinished {
		m.finish(ErrStopped)
	}
}

// Snapshot returns the current view without clearing the dirty flag.
func (m *Match) Snapshot() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view()
}

// TakeDirty returns the current view and clears the dirty flag. The
// returned view reports whether anything changed since the previous call.
func (m *Match) TakeDirty() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := m.view()
	m.dirty = false
	return v
}

// Result summarizes the match so far.
func (m *Match) Result() Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := Result{
		ID:             m.id,
		Status:         m.status,
		Score:          m.score,
		MazesCompleted: m.completed,
		MazeSize:       m.size,
		TurnNumber:     m.turn,
		Transitions:    m.transitions,
	}
	var dq *Disqualification
	if errors.As(m.err, &dq) {
		r.Reason = dq.Reason
		r.Who = dq.Who
	}
	if m.err != nil {
		r.Error = m.err.Error()
	}
	return r
}

func (m *Match) view() View {
	v := View{
		ID:             m.id,
		Phase:          m.next,
		Status:         m.status,
		MazeSize:       m.size,
		Agents:         m.agents,
		TurnNumber:     m.turn,
		Score:          m.score,
		Mana:           m.mana,
		MazesCompleted: m.completed,
		Dirty:          m.dirty,
	}
	if m.maze != nil {
		v.Maze = m.maze.Walls()
	}
	if m.last != nil {
		last := *m.last
		v.LastActions = &last
	}
	if m.err != nil {
		v.Error = m.err.Error()
	}
	return v
}

func (m *Match) finish(err error) {
	m.next = PhaseFinished
	m.err = err
	m.dirty = true

	var (
		dq     *Disqualification
		fault  *InternalFault
		reason Reason
	)
	switch {
	case err == nil:
		m.status = StatusTurnLimit
	case errors.As(err, &dq):
		m.status = StatusDisqualified
		reason = dq.Reason
	case errors.As(err, &fault):
		m.status = StatusInternalFault
	case errors.Is(err, ErrStopped):
		m.status = StatusStopped
	default:
		m.status = StatusInternalFault
	}

	attrs := []any{"status", m.status, "score", m.score, "turn", m.turn, "maze_size", m.size}
	if err != nil {
		attrs = append(attrs, "error", err)
	}
	m.logger.Info("match finished", attrs...)
	if m.obs != nil {
		m.obs.ObserveFinish(m.status, reason)
	}
}

// startRound builds the next maze and resets the round state.
func (m *Match) startRound() error {
	m.dirty = true
	m.size++
	m.logger.Debug("round starting", "maze_size", m.size)

	ceiling := time.Duration(m.size*m.size) * m.cfg.GenFactor
	layout, elapsed, err := m.mm.GenerateMaze(m.size, ceiling+m.cfg.InterruptSlack)
	if err := m.checkCall(m.mm.Program, "generateMaze", ReasonTimeLimit, elapsed, ceiling, err); err != nil {
		return err
	}
	grid, err := maze.FromLayout(m.size, layout)
	if err != nil {
		return m.disqualify(m.mm.Program, "generateMaze", ReasonMalformedOutput, err)
	}
	if !grid.FullyConnected() {
		return m.disqualify(m.mm.Program, "generateMaze", ReasonDisconnectedMaze, maze.ErrDisconnected)
	}

	m.maze = grid
	m.agents = startAgents
	m.turn = 0
	m.mana = 0
	m.last = nil

	elapsed, err = m.adv.StartRound(m.size, m.cfg.StartRoundLimit+m.cfg.InterruptSlack)
	if err := m.checkCall(m.adv.Program, "startRound", ReasonTimeLimit, elapsed, m.cfg.StartRoundLimit, err); err != nil {
		return err
	}

	m.mmBudget = m.cfg.RoundGrant
	m.advBudget = m.cfg.RoundGrant
	m.next = PhaseTurn
	return nil
}

// takeTurn moves the agents, scores, and lets the maze master edit.
func (m *Match) takeTurn() error {
	m.dirty = true
	m.turn++

	var vision [2]maze.Vision
	for i := range m.agents {
		v, err := m.maze.Vision(m.agents[i], m.agents[1-i])
		if err != nil {
			return &InternalFault{Op: "vision", Err: err}
		}
		vision[i] = v
	}

	allowance := m.advBudget + m.cfg.TurnGrant
	moves, elapsed, err := m.adv.TakeTurn(vision, allowance+m.cfg.InterruptSlack)
	m.advBudget = allowance - elapsed
	if err := m.checkCall(m.adv.Program, "takeTurn", ReasonComputeQuota, elapsed, allowance, err); err != nil {
		return err
	}

	for i, mv := range moves {
		next, bumped := m.maze.Apply(m.agents[i], mv)
		if bumped {
			m.logger.Debug("adventurer bumped into a wall", "competitor", m.adv.Name, "agent", string("AB"[i]))
		}
		m.agents[i] = next
	}
	m.score--
	m.last = &Actions{Moves: moves}

	if m.atGoal() {
		m.score += m.cfg.MazeBonus
		m.completed++
		m.logger.Info("maze completed", "maze_size", m.size, "turn", m.turn, "score", m.score)
		m.next = PhaseRoundStart
		return nil
	}
	if m.turn >= m.cfg.TurnsPerRound {
		m.finish(nil)
		return nil
	}

	m.mana += maze.ManaGain(m.turn, m.size)
	allowance = m.mmBudget + m.cfg.TurnGrant
	edit, elapsed, err := m.mm.TakeTurn(m.mana, m.maze.CostView(), allowance+m.cfg.InterruptSlack)
	m.mmBudget = allowance - elapsed
	if err := m.checkCall(m.mm.Program, "takeTurn", ReasonComputeQuota, elapsed, allowance, err); err != nil {
		return err
	}

	res, err := m.maze.ApplyEdit(edit, m.mana, m.agents[0], m.agents[1])
	m.mana -= res.Spent
	m.last.Removed = res.Removed()
	m.last.Added = res.Added()
	if len(res.Vetoed) > 0 {
		m.logger.Debug("wall edit vetoed by visibility", "vetoed", len(res.Vetoed), "spent", res.Spent)
	}
	if err != nil {
		return m.disqualify(m.mm.Program, "takeTurn", ReasonDisconnectedMaze, err)
	}
	return nil
}

func (m *Match) atGoal() bool {
	for _, a := range m.agents {
		if a.Row >= m.size-1 && a.Col >= m.size-1 {
			return true
		}
	}
	return false
}

// checkCall turns the outcome of one competitor call into a disqualification
// or nil. overrun is the reason used when the call ran past limit.
func (m *Match) checkCall(p *scripting.Program, method string, overrun Reason, elapsed, limit time.Duration, err error) error {
	if m.obs != nil {
		m.obs.ObserveCall(p.Role, method, elapsed)
	}

	var callErr *scripting.CallError
	if errors.As(err, &callErr) {
		if callErr.Interrupted {
			return m.disqualify(p, method, overrun, err)
		}
		return m.disqualify(p, method, ReasonScriptFault, err)
	}
	if elapsed > limit {
		return m.disqualify(p, method, overrun, fmt.Errorf("took %s (limit is %s)", elapsed, limit))
	}
	var shapeErr *scripting.ShapeError
	if errors.As(err, &shapeErr) {
		return m.disqualify(p, method, ReasonMalformedOutput, err)
	}
	if err != nil {
		return &InternalFault{Op: method, Err: err}
	}
	return nil
}

func (m *Match) disqualify(p *scripting.Program, method string, reason Reason, cause error) error {
	m.logger.Warn("competitor disqualified",
		"competitor", p.Name, "role", string(p.Role), "method", method, "reason", reason, "error", cause)
	return &Disqualification{Who: p.Name, Role: p.Role, Method: method, Reason: reason, Cause: cause}
}

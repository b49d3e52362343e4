package match

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MJE43/maze-duel/internal/maze"
	"github.com/MJE43/maze-duel/internal/scripting"
)

const openMaster = `
return {
	generateMaze(n) {
		return Array.from({length: n}, () => Array.from({length: n}, () => ({east: false, south: false})));
	},
	takeTurn(mana, grid) { return [null, null]; },
};`

const waitingAdventurers = `
return {
	startRound(size) {},
	takeTurn(vision) { return [ACTION.WAIT, ACTION.WAIT]; },
};`

// testConfig keeps the default turn limits but relaxes compute budgets so
// slow test machines do not cause disqualifications.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.GenFactor = 100 * time.Millisecond
	cfg.StartRoundLimit = time.Second
	cfg.TurnGrant = 100 * time.Millisecond
	cfg.RoundGrant = 5 * time.Second
	cfg.InterruptSlack = 100 * time.Millisecond
	return cfg
}

func master(code string) scripting.Source {
	return scripting.Source{Role: scripting.RoleMazeMaster, Name: "master", Code: code}
}

func adventurers(code string) scripting.Source {
	return scripting.Source{Role: scripting.RoleAdventurers, Name: "party", Code: code}
}

func fixture(t *testing.T, name string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return string(b)
}

func newMatch(t *testing.T, cfg Config, mm, adv string) *Match {
	t.Helper()
	m, _, err := New(cfg, master(mm), adventurers(adv), "test-seed", nil)
	require.NoError(t, err)
	return m
}

func runToEnd(t *testing.T, m *Match) (Result, error) {
	t.Helper()
	return Run(context.Background(), m, Immediate{})
}

func requireDisqualified(t *testing.T, err error, role scripting.Role, reason Reason) *Disqualification {
	t.Helper()
	dq, ok := IsDisqualification(err)
	require.True(t, ok, "expected a disqualification, got %v", err)
	assert.Equal(t, role, dq.Role)
	assert.Equal(t, reason, dq.Reason)
	return dq
}

func TestGeneratedSeedReported(t *testing.T) {
	_, seed, err := New(testConfig(), master(openMaster), adventurers(waitingAdventurers), "", nil)
	require.NoError(t, err)
	assert.Len(t, seed, 8)

	_, seed, err = New(testConfig(), master(openMaster), adventurers(waitingAdventurers), "fixed", nil)
	require.NoError(t, err)
	assert.Equal(t, "fixed", seed)
}

func TestSetupFaultAbortsCreation(t *testing.T) {
	_, _, err := New(testConfig(), master(`return {`), adventurers(waitingAdventurers), "s", nil)
	var fault *scripting.SetupFault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, scripting.RoleMazeMaster, fault.Role)
	_, ok := IsDisqualification(err)
	assert.False(t, ok)
}

func TestTurnLimitReached(t *testing.T) {
	m := newMatch(t, testConfig(), openMaster, waitingAdventurers)
	res, err := runToEnd(t, m)
	require.NoError(t, err)

	assert.Equal(t, StatusTurnLimit, res.Status)
	assert.Equal(t, 1000, res.TurnNumber)
	assert.Equal(t, -1000, res.Score)
	assert.Equal(t, 3, res.MazeSize)
	assert.Equal(t, 0, res.MazesCompleted)
	assert.Equal(t, 1001, res.Transitions)

	phase, err := m.Step()
	assert.Equal(t, PhaseFinished, phase)
	assert.NoError(t, err)
}

func TestGoalStartsNextRound(t *testing.T) {
	// Agent A walks east then south through an open 3x3 maze.
	adv := `
	let turn = 0;
	return {
		startRound() { turn = 0; },
		takeTurn() {
			turn++;
			const plan = [ACTION.FORWARD, ACTION.FORWARD, ACTION.TURN_RIGHT, ACTION.FORWARD, ACTION.FORWARD];
			return [turn <= plan.length ? plan[turn - 1] : ACTION.WAIT, ACTION.WAIT];
		},
	};`
	cfg := testConfig()
	cfg.TurnsPerRound = 10
	m := newMatch(t, cfg, openMaster, adv)

	for i := 0; i < 6; i++ {
		_, err := m.Step()
		require.NoError(t, err)
	}
	v := m.Snapshot()
	assert.Equal(t, PhaseRoundStart, v.Phase)
	assert.Equal(t, 1, v.MazesCompleted)
	assert.Equal(t, 1000-5, v.Score)
	assert.Equal(t, maze.Agent{Row: 2, Col: 2, Facing: maze.South}, v.Agents[0])
	require.NotNil(t, v.LastActions)
	assert.Nil(t, v.LastActions.Added)

	phase, err := m.Step()
	require.NoError(t, err)
	assert.Equal(t, PhaseTurn, phase)
	v = m.Snapshot()
	assert.Equal(t, 4, v.MazeSize)
	assert.Equal(t, 0, v.TurnNumber)
	assert.Equal(t, 0, v.Mana)
	assert.Equal(t, startAgents, v.Agents)
	assert.Len(t, v.Maze, 4)
}

func TestWrongRowCountDisqualifiesMazeMaster(t *testing.T) {
	mm := `
	return {
		generateMaze(n) {
			return Array.from({length: n - 1}, () => Array.from({length: n}, () => ({east: false, south: false})));
		},
		takeTurn() { return [null, null]; },
	};`
	m := newMatch(t, testConfig(), mm, waitingAdventurers)
	phase, err := m.Step()
	assert.Equal(t, PhaseFinished, phase)
	dq := requireDisqualified(t, err, scripting.RoleMazeMaster, ReasonMalformedOutput)
	assert.Equal(t, "master", dq.Who)
	assert.Equal(t, "generateMaze", dq.Method)
	assert.Contains(t, err.Error(), "incorrect number of rows (expected 3 rows, got 2 rows)")
	assert.Equal(t, StatusDisqualified, m.Result().Status)
}

func TestDisconnectedGenerationDisqualifies(t *testing.T) {
	mm := `
	return {
		generateMaze(n) {
			return Array.from({length: n}, () => Array.from({length: n}, () => ({east: true, south: true})));
		},
		takeTurn() { return [null, null]; },
	};`
	m := newMatch(t, testConfig(), mm, waitingAdventurers)
	_, err := m.Step()
	requireDisqualified(t, err, scripting.RoleMazeMaster, ReasonDisconnectedMaze)
	assert.ErrorIs(t, err, maze.ErrDisconnected)
}

func TestAdventurerFaultFreezesTurn(t *testing.T) {
	adv := `
	let calls = 0;
	return {
		startRound() {},
		takeTurn() {
			calls++;
			if (calls === 3) {
				throw new Error("lost in the dark");
			}
			return [ACTION.WAIT, ACTION.WAIT];
		},
	};`
	m := newMatch(t, testConfig(), openMaster, adv)
	res, err := runToEnd(t, m)

	dq := requireDisqualified(t, err, scripting.RoleAdventurers, ReasonScriptFault)
	assert.Equal(t, "takeTurn", dq.Method)
	assert.Contains(t, err.Error(), "lost in the dark")
	assert.Equal(t, StatusDisqualified, res.Status)
	assert.Equal(t, 3, res.TurnNumber)
	assert.Equal(t, 3, m.Snapshot().TurnNumber)
}

func TestMalformedMovesDisqualify(t *testing.T) {
	adv := `
	return {
		startRound() {},
		takeTurn() { return [ACTION.FORWARD]; },
	};`
	m := newMatch(t, testConfig(), openMaster, adv)
	_, err := runToEnd(t, m)
	requireDisqualified(t, err, scripting.RoleAdventurers, ReasonMalformedOutput)
}

func TestComputeQuotaExceeded(t *testing.T) {
	adv := `
	return {
		startRound() {},
		takeTurn() {
			let x = 0;
			for (let i = 0; i < 1e12; i++) { x += i; }
			return [ACTION.WAIT, ACTION.WAIT];
		},
	};`
	cfg := testConfig()
	cfg.RoundGrant = 10 * time.Millisecond
	cfg.TurnGrant = time.Millisecond
	cfg.InterruptSlack = 30 * time.Millisecond
	m := newMatch(t, cfg, openMaster, adv)
	res, err := runToEnd(t, m)
	requireDisqualified(t, err, scripting.RoleAdventurers, ReasonComputeQuota)
	assert.Equal(t, 1, res.TurnNumber)
}

func TestGenerationTimeLimit(t *testing.T) {
	mm := `
	return {
		generateMaze(n) { for (;;) {} },
		takeTurn() { return [null, null]; },
	};`
	cfg := testConfig()
	cfg.GenFactor = time.Millisecond
	cfg.InterruptSlack = 30 * time.Millisecond
	m := newMatch(t, cfg, mm, waitingAdventurers)
	_, err := runToEnd(t, m)
	requireDisqualified(t, err, scripting.RoleMazeMaster, ReasonTimeLimit)
}

func TestVisibleEditChargesButDoesNotApply(t *testing.T) {
	// (0,0) south is directly in view of both agents.
	mm := `
	return {
		generateMaze(n) {
			return Array.from({length: n}, () => Array.from({length: n}, () => ({east: false, south: false})));
		},
		takeTurn(mana) { return [null, [0, 0, "south"]]; },
	};`
	m := newMatch(t, testConfig(), mm, waitingAdventurers)
	_, err := m.Step()
	require.NoError(t, err)
	_, err = m.Step()
	require.NoError(t, err)

	v := m.Snapshot()
	assert.Equal(t, 1, v.TurnNumber)
	assert.Equal(t, 0, v.Mana, "the vetoed edit is still paid for")
	require.NotNil(t, v.Maze[0][0].South)
	assert.False(t, *v.Maze[0][0].South)
	require.NotNil(t, v.LastActions)
	assert.Nil(t, v.LastActions.Added)
}

func TestUnaffordableEditLeavesMazeAndMana(t *testing.T) {
	mm := `
	return {
		generateMaze(n) {
			const grid = Array.from({length: n}, () => Array.from({length: n}, () => ({east: false, south: false})));
			grid[1][1].east = true;
			return grid;
		},
		takeTurn(mana, grid) { return [[1, 1, "east"], [2, 1, "east"]]; },
	};`
	m := newMatch(t, testConfig(), mm, waitingAdventurers)
	for i := 0; i < 2; i++ {
		_, err := m.Step()
		require.NoError(t, err)
	}

	v := m.Snapshot()
	assert.Equal(t, 1, v.Mana)
	assert.True(t, *v.Maze[1][1].East)
	assert.False(t, *v.Maze[2][1].East)
	assert.Nil(t, v.LastActions.Removed)

	_, err := m.Step()
	require.NoError(t, err)
	v = m.Snapshot()
	assert.Equal(t, 0, v.Mana)
	assert.False(t, *v.Maze[1][1].East)
	assert.True(t, *v.Maze[2][1].East)
	assert.Equal(t, &maze.WallRef{Row: 1, Col: 1, Wall: maze.WallEast}, v.LastActions.Removed)
	assert.Equal(t, &maze.WallRef{Row: 2, Col: 1, Wall: maze.WallEast}, v.LastActions.Added)
}

func TestEditThatDisconnectsDisqualifies(t *testing.T) {
	// Two unseen walls that wall off the goal cell.
	mm := `
	let turn = 0;
	return {
		generateMaze(n) {
			return Array.from({length: n}, () => Array.from({length: n}, () => ({east: false, south: false})));
		},
		takeTurn() {
			turn++;
			return turn === 1 ? [null, [2, 1, "east"]] : [null, [1, 2, "south"]];
		},
	};`
	m := newMatch(t, testConfig(), mm, waitingAdventurers)
	res, err := runToEnd(t, m)

	dq := requireDisqualified(t, err, scripting.RoleMazeMaster, ReasonDisconnectedMaze)
	assert.Equal(t, "takeTurn", dq.Method)
	assert.Equal(t, 2, res.TurnNumber)

	v := m.Snapshot()
	assert.True(t, *v.Maze[1][2].South, "the edit stays applied")
	assert.Equal(t, &maze.WallRef{Row: 1, Col: 2, Wall: maze.WallSouth}, v.LastActions.Added)
}

type step struct {
	Phase  Phase
	Turn   int
	Size   int
	Score  int
	Mana   int
	Agents [2]maze.Agent
	Last   *Actions
}

func transcript(t *testing.T, seed string) ([]step, error) {
	t.Helper()
	cfg := testConfig()
	cfg.TurnsPerRound = 60
	m, _, err := New(cfg,
		master(fixture(t, "dfs-master.js")),
		adventurers(fixture(t, "wall-hugger.js")),
		seed, nil)
	require.NoError(t, err)

	var out []step
	for i := 0; i < 100000; i++ {
		phase, err := m.Step()
		v := m.TakeDirty()
		require.True(t, v.Dirty)
		out = append(out, step{v.Phase, v.TurnNumber, v.MazeSize, v.Score, v.Mana, v.Agents, v.LastActions})
		if phase == PhaseFinished {
			return out, err
		}
	}
	t.Fatal("match did not finish")
	return nil, nil
}

func TestDeterministicReplay(t *testing.T) {
	first, err1 := transcript(t, "replay")
	second, err2 := transcript(t, "replay")

	require.Equal(t, len(first), len(second))
	assert.Equal(t, first, second)
	if err1 == nil {
		assert.NoError(t, err2)
	} else {
		require.Error(t, err2)
		assert.Equal(t, err1.Error(), err2.Error())
	}
}

func TestTakeDirtyClears(t *testing.T) {
	m := newMatch(t, testConfig(), openMaster, waitingAdventurers)
	assert.True(t, m.TakeDirty().Dirty)
	assert.False(t, m.TakeDirty().Dirty)

	_, err := m.Step()
	require.NoError(t, err)
	assert.True(t, m.Snapshot().Dirty)
	assert.True(t, m.TakeDirty().Dirty)
	assert.False(t, m.TakeDirty().Dirty)
}

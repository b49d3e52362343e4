package match

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shortConfig(turns int) Config {
	cfg := testConfig()
	cfg.TurnsPerRound = turns
	return cfg
}

func TestParsePacing(t *testing.T) {
	tests := []struct {
		in   string
		want interface{}
	}{
		{"", Immediate{}},
		{"immediate", Immediate{}},
		{"stepped", &Stepper{}},
		{"externally-stepped", &Stepper{}},
		{"delay:250ms", &FixedDelay{}},
		{"fixed-delay:1s", &FixedDelay{}},
		{"40ms", &FixedDelay{}},
	}
	for _, tt := range tests {
		got, err := ParsePacing(tt.in)
		require.NoError(t, err, tt.in)
		assert.IsType(t, tt.want, got, tt.in)
	}

	delay, err := ParsePacing("delay:250ms")
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, delay.(*FixedDelay).Interval)

	for _, bad := range []string{"warp", "delay:-1s", "delay:"} {
		_, err := ParsePacing(bad)
		assert.Error(t, err, bad)
	}
}

func TestPacingDoesNotChangeOutcome(t *testing.T) {
	run := func(p Pacing) Result {
		m := newMatch(t, shortConfig(5), openMaster, waitingAdventurers)
		res, err := Run(context.Background(), m, p)
		require.NoError(t, err)
		res.ID = ""
		return res
	}

	immediate := run(Immediate{})
	start := time.Now()
	delayed := run(NewFixedDelay(5 * time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	assert.Equal(t, immediate, delayed)
	assert.Equal(t, -5, delayed.Score)
}

func TestStepperAdvancesOneTransition(t *testing.T) {
	m := newMatch(t, shortConfig(2), openMaster, waitingAdventurers)
	stepper := NewStepper()
	h := Start(context.Background(), m, stepper)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// The first transition runs without a step.
	require.Eventually(t, func() bool { return m.Snapshot().Phase == PhaseTurn }, 2*time.Second, time.Millisecond)
	assert.Equal(t, 0, m.Snapshot().TurnNumber)

	// Advance returns once its transition has run.
	require.NoError(t, stepper.Advance(ctx))
	assert.Equal(t, 1, m.Snapshot().TurnNumber)

	require.NoError(t, stepper.Advance(ctx), "the final transition still counts as taken")
	assert.Equal(t, PhaseFinished, m.Snapshot().Phase)
	res, err := h.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusTurnLimit, res.Status)
	assert.Equal(t, 2, res.TurnNumber)

	assert.ErrorIs(t, stepper.Advance(ctx), ErrStopped)
}

func TestStepperAdvanceAfterStop(t *testing.T) {
	m := newMatch(t, testConfig(), openMaster, waitingAdventurers)
	stepper := NewStepper()
	h := Start(context.Background(), m, stepper)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, stepper.Advance(ctx))
	assert.Equal(t, 1, m.Snapshot().TurnNumber)

	h.Stop()
	_, err := h.Wait(ctx)
	assert.ErrorIs(t, err, ErrStopped)
	assert.ErrorIs(t, stepper.Advance(ctx), ErrStopped)
	assert.Equal(t, 1, m.Snapshot().TurnNumber)
}

func TestHandleStop(t *testing.T) {
	m := newMatch(t, testConfig(), openMaster, waitingAdventurers)
	h := Start(context.Background(), m, NewStepper())
	require.Eventually(t, func() bool { return m.Snapshot().Phase == PhaseTurn }, 2*time.Second, time.Millisecond)

	h.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := h.Wait(ctx)
	assert.ErrorIs(t, err, ErrStopped)
	assert.Equal(t, StatusStopped, res.Status)

	phase, err := m.Step()
	assert.Equal(t, PhaseFinished, phase)
	assert.ErrorIs(t, err, ErrStopped)
	<-h.Done()
}

func TestRunHonorsCancelledContext(t *testing.T) {
	m := newMatch(t, testConfig(), openMaster, waitingAdventurers)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := Run(ctx, m, Immediate{})
	assert.ErrorIs(t, err, ErrStopped)
	assert.Equal(t, 0, res.Transitions)
}

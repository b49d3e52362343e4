package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MJE43/maze-duel/internal/match"
	"github.com/MJE43/maze-duel/internal/scripting"
)

// gathered flattens reg into "name{label values}" -> value.
func gathered(t *testing.T, reg *prometheus.Registry) map[string]float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	out := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			key := mf.GetName()
			for _, lp := range m.GetLabel() {
				key += "|" + lp.GetValue()
			}
			switch {
			case m.GetCounter() != nil:
				out[key] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				out[key] = m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				out[key] = float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return out
}

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.ObserveTransition(match.PhaseTurn)
	c.ObserveTransition(match.PhaseTurn)
	c.ObserveTransition(match.PhaseRoundStart)
	c.ObserveFinish(match.StatusDisqualified, match.ReasonComputeQuota)
	c.ObserveCall(scripting.RoleAdventurers, "takeTurn", 2*time.Millisecond)
	c.ObserveCall(scripting.RoleAdventurers, "takeTurn", 3*time.Millisecond)
	c.MatchStarted()
	c.MatchStarted()
	c.MatchDone()

	got := gathered(t, reg)
	assert.Equal(t, 2.0, got["mazeduel_transitions_total|turn"])
	assert.Equal(t, 1.0, got["mazeduel_transitions_total|round_start"])
	assert.Equal(t, 1.0, got["mazeduel_matches_finished_total|compute_quota|disqualified"])
	assert.Equal(t, 1.0, got["mazeduel_matches_running"])
	assert.Equal(t, 2.0, got["mazeduel_competitor_call_duration_seconds|takeTurn|adventurers"])
}

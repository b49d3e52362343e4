// Package metrics exports match telemetry as Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/MJE43/maze-duel/internal/match"
	"github.com/MJE43/maze-duel/internal/scripting"
)

// Collector implements match.Observer. One Collector is shared by every
// match in the process.
type Collector struct {
	callDuration *prometheus.HistogramVec
	transitions  *prometheus.CounterVec
	finished     *prometheus.CounterVec
	running      prometheus.Gauge
}

var _ match.Observer = (*Collector)(nil)

// New registers the match collectors with reg.
func New(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		callDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mazeduel_competitor_call_duration_seconds",
			Help:    "Wall-clock time of competitor program calls",
			Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
		}, []string{"role", "method"}),

		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mazeduel_transitions_total",
			Help: "Match transitions, by the phase they led to",
		}, []string{"phase"}),

		finished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mazeduel_matches_finished_total",
			Help: "Finished matches by status and disqualification reason",
		}, []string{"status", "reason"}),

		running: factory.NewGauge(prometheus.GaugeOpts{
			Name: "mazeduel_matches_running",
			Help: "Matches currently being driven by a scheduler",
		}),
	}
}

func (c *Collector) ObserveCall(role scripting.Role, method string, elapsed time.Duration) {
	c.callDuration.WithLabelValues(string(role), method).Observe(elapsed.Seconds())
}

func (c *Collector) ObserveTransition(phase match.Phase) {
	c.transitions.WithLabelValues(string(phase)).Inc()
}

func (c *Collector) ObserveFinish(status match.Status, reason match.Reason) {
	c.finished.WithLabelValues(string(status), string(reason)).Inc()
}

// MatchStarted and MatchDone track the running gauge.
func (c *Collector) MatchStarted() { c.running.Inc() }

func (c *Collector) MatchDone() { c.running.Dec() }

package match

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Pacing decides when the next transition may run. Pacing only delays
// transitions; it never changes what they do.
type Pacing interface {
	// Wait blocks until the next transition may run or ctx is done.
	Wait(ctx context.Context) error
}

// Immediate runs transitions back to back.
type Immediate struct{}

func (Immediate) Wait(ctx context.Context) error {
	return ctx.Err()
}

// FixedDelay spaces transitions at least Interval apart.
type FixedDelay struct {
	Interval time.Duration
	limiter  *rate.Limiter
}

// NewFixedDelay returns a pacing that allows one transition per interval.
func NewFixedDelay(interval time.Duration) *FixedDelay {
	return &FixedDelay{
		Interval: interval,
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
	}
}

func (p *FixedDelay) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// Stepper releases one transition per Advance call.
type Stepper struct {
	tokens  chan struct{}
	stepped chan struct{}
	done    chan struct{}
	once    sync.Once

	// pending is owned by the scheduler goroutine.
	pending bool
}

func NewStepper() *Stepper {
	return &Stepper{
		tokens:  make(chan struct{}),
		stepped: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

func (s *Stepper) Wait(ctx context.Context) error {
	select {
	case <-s.tokens:
		s.pending = true
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// transitionDone reports that the transition released by the last token
// has run.
func (s *Stepper) transitionDone() {
	if !s.pending {
		return
	}
	s.pending = false
	select {
	case s.stepped <- struct{}{}:
	default:
	}
}

// Advance releases one transition and blocks until it has run. It returns
// ErrStopped if the match ends without running it.
func (s *Stepper) Advance(ctx context.Context) error {
	// Drop a completion left behind by an abandoned Advance.
	select {
	case <-s.stepped:
	default:
	}

	select {
	case s.tokens <- struct{}{}:
	case <-s.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-s.stepped:
		return nil
	case <-s.done:
		// The final transition signals before the stepper closes.
		select {
		case <-s.stepped:
			return nil
		default:
			return ErrStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close makes pending and future Advance calls return ErrStopped.
func (s *Stepper) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

// ParsePacing reads a pacing policy name: "immediate", "stepped", or a
// delay such as "delay:250ms" (a bare duration is accepted too).
func ParsePacing(s string) (Pacing, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", "immediate":
		return Immediate{}, nil
	case "stepped", "externally-stepped", "step":
		return NewStepper(), nil
	}
	d, err := time.ParseDuration(strings.TrimPrefix(strings.TrimPrefix(s, "fixed-delay:"), "delay:"))
	if err != nil || d <= 0 {
		return nil, fmt.Errorf("match: unknown pacing %q", s)
	}
	return NewFixedDelay(d), nil
}

// Run drives m until it finishes or ctx is cancelled. A cancelled run stops
// the match between transitions and returns ErrStopped.
func Run(ctx context.Context, m *Match, pacing Pacing) (Result, error) {
	if c, ok := pacing.(io.Closer); ok {
		defer c.Close()
	}
	for {
		if ctx.Err() != nil {
			m.Stop()
			return m.Result(), ErrStopped
		}
		phase, err := m.Step()
		if st, ok := pacing.(*Stepper); ok {
			st.transitionDone()
		}
		if phase == PhaseFinished {
			return m.Result(), err
		}
		if err := pacing.Wait(ctx); err != nil {
			m.Stop()
			return m.Result(), ErrStopped
		}
	}
}

// Handle is the outcome of a match started with Start.
type Handle struct {
	match  *Match
	cancel context.CancelFunc
	done   chan struct{}

	result Result
	err    error
}

// Start runs m in the background under pacing.
func Start(ctx context.Context, m *Match, pacing Pacing) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{match: m, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(h.done)
		defer cancel()
		h.result, h.err = Run(ctx, m, pacing)
	}()
	return h
}

// Match returns the match being driven.
func (h *Handle) Match() *Match {
	return h.match
}

// Done is closed once the match has finished.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Stop asks the scheduler to stop after the transition in progress.
func (h *Handle) Stop() {
	h.cancel()
}

// Wait blocks until the match finishes or ctx is done.
func (h *Handle) Wait(ctx context.Context) (Result, error) {
	select {
	case <-h.done:
		return h.result, h.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// IsDisqualification reports whether err is a disqualification and returns it.
func IsDisqualification(err error) (*Disqualification, bool) {
	var dq *Disqualification
	ok := errors.As(err, &dq)
	return dq, ok
}

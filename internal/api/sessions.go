package api

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/MJE43/maze-duel/internal/match"
	"github.com/MJE43/maze-duel/internal/metrics"
	"github.com/MJE43/maze-duel/internal/scripting"
)

var (
	errSessionNotFound = errors.New("match not found")
	errNotStepped      = errors.New("match is not externally stepped")
)

// session is a match held by the server together with its scheduler.
type session struct {
	pacingName string
	createdAt  time.Time
	handle     *match.Handle
	stepper    *match.Stepper
}

func (s *session) finished() bool {
	select {
	case <-s.handle.Done():
		return true
	default:
		return false
	}
}

func (s *session) summary() MatchSummary {
	m := s.handle.Match()
	view := m.Snapshot()
	mmName, advName := m.Names()
	sum := MatchSummary{
		ID:          view.ID,
		MazeMaster:  mmName,
		Adventurers: advName,
		Pacing:      s.pacingName,
		CreatedAt:   s.createdAt,
		Phase:       view.Phase,
		Status:      view.Status,
		TurnNumber:  view.TurnNumber,
		MazeSize:    view.MazeSize,
		Score:       view.Score,
	}
	if s.finished() {
		res := m.Result()
		sum.Result = &res
	}
	return sum
}

// sessions is the set of matches started through the API. Matches run on
// their own goroutines until they finish or are stopped.
type sessions struct {
	mu      sync.RWMutex
	byID    map[string]*session
	cfg     match.Config
	metrics *metrics.Collector
	logger  *slog.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func newSessions(cfg match.Config, collector *metrics.Collector, logger *slog.Logger) *sessions {
	ctx, cancel := context.WithCancel(context.Background())
	return &sessions{
		byID:    make(map[string]*session),
		cfg:     cfg,
		metrics: collector,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// start loads both programs and runs the match in the background.
func (ss *sessions) start(mmSrc, advSrc scripting.Source, seed, pacingName string) (*session, string, error) {
	pacing, err := match.ParsePacing(pacingName)
	if err != nil {
		return nil, "", err
	}
	m, usedSeed, err := match.New(ss.cfg, mmSrc, advSrc, seed, ss.logger)
	if err != nil {
		return nil, usedSeed, err
	}
	if ss.metrics != nil {
		m.SetObserver(ss.metrics)
		ss.metrics.MatchStarted()
	}

	s := &session{pacingName: pacingName, createdAt: time.Now().UTC()}
	if s.pacingName == "" {
		s.pacingName = "immediate"
	}
	if st, ok := pacing.(*match.Stepper); ok {
		s.stepper = st
	}
	s.handle = match.Start(ss.ctx, m, pacing)

	ss.mu.Lock()
	ss.byID[m.ID()] = s
	ss.mu.Unlock()

	go func() {
		<-s.handle.Done()
		if ss.metrics != nil {
			ss.metrics.MatchDone()
		}
		res := m.Result()
		ss.logger.Info("match finished",
			"match_id", res.ID,
			"status", res.Status,
			"score", res.Score,
			"mazes_completed", res.MazesCompleted,
			"turn", res.TurnNumber,
		)
	}()
	return s, usedSeed, nil
}

func (ss *sessions) get(id string) (*session, error) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	s, ok := ss.byID[id]
	if !ok {
		return nil, errSessionNotFound
	}
	return s, nil
}

// list returns summaries ordered by creation time.
func (ss *sessions) list() []MatchSummary {
	ss.mu.RLock()
	out := make([]MatchSummary, 0, len(ss.byID))
	for _, s := range ss.byID {
		out = append(out, s.summary())
	}
	ss.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (ss *sessions) count() int {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return len(ss.byID)
}

// step runs one transition of an externally stepped match and returns the
// view it left behind.
func (ss *sessions) step(ctx context.Context, id string) (match.View, error) {
	s, err := ss.get(id)
	if err != nil {
		return match.View{}, err
	}
	if s.stepper == nil {
		return match.View{}, errNotStepped
	}
	if err := s.stepper.Advance(ctx); err != nil {
		return match.View{}, err
	}
	return s.handle.Match().Snapshot(), nil
}

// stop halts a match and waits for its scheduler to return.
func (ss *sessions) stop(ctx context.Context, id string) (match.Result, error) {
	s, err := ss.get(id)
	if err != nil {
		return match.Result{}, err
	}
	s.handle.Stop()
	// The match's own error is carried in the result.
	res, err := s.handle.Wait(ctx)
	if err != nil && ctx.Err() != nil {
		return res, err
	}
	return res, nil
}

// remove stops a match and forgets it.
func (ss *sessions) remove(ctx context.Context, id string) error {
	if _, err := ss.stop(ctx, id); err != nil {
		return err
	}
	ss.mu.Lock()
	delete(ss.byID, id)
	ss.mu.Unlock()
	return nil
}

// shutdown stops every match and waits for the schedulers.
func (ss *sessions) shutdown(ctx context.Context) error {
	ss.cancel()
	ss.mu.RLock()
	handles := make([]*match.Handle, 0, len(ss.byID))
	for _, s := range ss.byID {
		handles = append(handles, s.handle)
	}
	ss.mu.RUnlock()
	for _, h := range handles {
		select {
		case <-h.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Package scheduler runs periodic valuation passes over every owner that has
// at least one portfolio.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/config"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/logging"
)

// OwnerLister lists owners that have at least one portfolio.
type OwnerLister interface {
	ListOwnersWithPortfolios(ctx context.Context) ([]string, error)
}

// Refresher revalues one owner and publishes the result.
type Refresher interface {
	RefreshOwner(ctx context.Context, ownerID string) error
}

// State is the scheduler's pass state.
type State int32

const (
	StateIdle State = iota
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// PassResult summarises one valuation pass.
type PassResult struct {
	Owners    int
	Refreshed int
	Failed    int
	Skipped   int // owners not visited because the scheduler was stopping
	Duration  time.Duration
}

// Scheduler triggers a valuation pass every interval. At most one pass runs
// at a time; a tick that finds a pass running is skipped.
type Scheduler struct {
	owners       OwnerLister
	refresher    Refresher
	interval     time.Duration
	ownerTimeout time.Duration

	cron  *cron.Cron
	state atomic.Int32

	// mu orders passes.Add against Stop so no pass starts once Stop waits.
	mu       sync.Mutex
	stopped  bool
	passes   sync.WaitGroup
	stopping chan struct{}
}

// New creates a Scheduler. Call Start to begin ticking.
func New(owners OwnerLister, refresher Refresher, cfg config.SchedulerConfig) *Scheduler {
	logger := logging.CronLogger{Logger: log.Logger.With().Str("component", "scheduler").Logger()}
	return &Scheduler{
		owners:       owners,
		refresher:    refresher,
		interval:     cfg.RefreshInterval,
		ownerTimeout: cfg.OwnerRefreshTimeout,
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger)),
		),
		stopping: make(chan struct{}),
	}
}

// Start schedules the periodic pass and returns immediately.
func (s *Scheduler) Start() {
	s.cron.Schedule(cron.Every(s.interval), cron.FuncJob(s.tick))
	s.cron.Start()
	log.Info().Dur("interval", s.interval).Msg("refresh scheduler started")
}

// Stop prevents new passes and tells a running pass to stop after its current
// owner. The in-flight owner refresh is never cancelled. The returned context
// is done once no pass is running.
func (s *Scheduler) Stop() context.Context {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		close(s.stopping)
	}
	s.mu.Unlock()
	cronCtx := s.cron.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-cronCtx.Done()
		s.passes.Wait()
		cancel()
	}()
	return ctx
}

// State reports whether a pass is running.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

func (s *Scheduler) tick() {
	result, err := s.RunPass(context.Background())
	if err != nil {
		if errors.Is(err, apperrors.ErrPassInProgress) {
			log.Debug().Msg("previous refresh pass still running, tick skipped")
			return
		}
		if errors.Is(err, apperrors.ErrSchedulerStopped) {
			return
		}
		log.Error().Err(err).Msg("refresh pass failed")
		return
	}
	log.Debug().
		Int("owners", result.Owners).
		Int("refreshed", result.Refreshed).
		Int("failed", result.Failed).
		Int("skipped", result.Skipped).
		Dur("duration", result.Duration).
		Msg("refresh pass complete")
}

// RunPass refreshes every owner once, sequentially. A failing owner is logged
// and counted; the pass moves on to the next owner. Cancellation of ctx and
// Stop are only observed between owners, and each owner refresh gets its own
// timeout detached from ctx.
//
// Returns apperrors.ErrPassInProgress if another pass is running and
// apperrors.ErrSchedulerStopped after Stop.
func (s *Scheduler) RunPass(ctx context.Context) (PassResult, error) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return PassResult{}, apperrors.ErrSchedulerStopped
	}
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		s.mu.Unlock()
		return PassResult{}, apperrors.ErrPassInProgress
	}
	s.passes.Add(1)
	s.mu.Unlock()
	defer func() {
		s.state.Store(int32(StateIdle))
		s.passes.Done()
	}()

	start := time.Now()
	owners, err := s.owners.ListOwnersWithPortfolios(ctx)
	if err != nil {
		return PassResult{}, fmt.Errorf("failed to list owners: %w", err)
	}

	result := PassResult{Owners: len(owners)}
	for i, owner := range owners {
		if s.interrupted(ctx) {
			result.Skipped = len(owners) - i
			log.Info().Int("skipped", result.Skipped).Msg("refresh pass interrupted")
			break
		}

		if err := s.refreshOwner(ctx, owner); err != nil {
			result.Failed++
			log.Warn().Err(err).Str("owner", owner).Msg("owner refresh failed")
			continue
		}
		result.Refreshed++
	}

	result.Duration = time.Since(start)
	return result, nil
}

func (s *Scheduler) refreshOwner(ctx context.Context, owner string) error {
	ownerCtx := context.WithoutCancel(ctx)
	if s.ownerTimeout > 0 {
		var cancel context.CancelFunc
		ownerCtx, cancel = context.WithTimeout(ownerCtx, s.ownerTimeout)
		defer cancel()
	}
	return s.refresher.RefreshOwner(ownerCtx, owner)
}

func (s *Scheduler) interrupted(ctx context.Context) bool {
	select {
	case <-s.stopping:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// Package progression is the only writer of game state. Each operation loads
// a snapshot, asks the game machine for a transition, and applies the
// transition's mutations to the store, compensating in reverse order when a
// write fails.
package progression

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hot-seat/internal/broadcast"
	"hot-seat/internal/game"
	"hot-seat/internal/metrics"
	"hot-seat/internal/scenario"
	"hot-seat/internal/scoring"
	"hot-seat/internal/store"
)

type Config struct {
	DefaultTotalRounds int
	MaxTotalRounds     int
	MaxPlayers         int
	Categories         []string
	ScenarioBatchSize  int
	ScoringTimeout     time.Duration
	ScoringConcurrency int
	FallbackScore      int
}

type Deps struct {
	Store       store.Store
	Broadcaster broadcast.Broadcaster
	Scorer      scoring.Scorer
	Scenarios   *scenario.Provider
	Picker      game.Picker
	NewID       func() string
	NewJoinCode func() (string, error)
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
}

type Orchestrator struct {
	store       store.Store
	machine     *game.Machine
	coordinator *scoring.Coordinator
	scenarios   *scenario.Provider
	broadcast   broadcast.Broadcaster
	newID       func() string
	newJoinCode func() (string, error)
	cfg         Config
	log         *zap.Logger
	metrics     *metrics.Metrics

	// background work outlives the request that started it
	background context.Context
	stop       context.CancelFunc
	wg         sync.WaitGroup
}

func New(deps Deps, cfg Config) *Orchestrator {
	if cfg.DefaultTotalRounds <= 0 {
		cfg.DefaultTotalRounds = 3
	}
	if cfg.MaxTotalRounds < cfg.DefaultTotalRounds {
		cfg.MaxTotalRounds = cfg.DefaultTotalRounds
	}
	if cfg.MaxPlayers < 2 {
		cfg.MaxPlayers = 12
	}
	if cfg.ScenarioBatchSize <= 0 {
		cfg.ScenarioBatchSize = 3
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	picker := deps.Picker
	if picker == nil {
		picker = game.RandomPicker{}
	}
	newID := deps.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	newJoinCode := deps.NewJoinCode
	if newJoinCode == nil {
		newJoinCode = NewJoinCode
	}
	scenarios := deps.Scenarios
	if scenarios == nil {
		scenarios = scenario.NewProvider(nil, nil, picker, log)
	}
	bc := deps.Broadcaster
	if bc == nil {
		bc = broadcast.NewLocal()
	}
	background, stop := context.WithCancel(context.Background())
	o := &Orchestrator{
		store:       deps.Store,
		machine:     game.NewMachine(picker, newID),
		scenarios:   scenarios,
		broadcast:   bc,
		newID:       newID,
		newJoinCode: newJoinCode,
		cfg:         cfg,
		log:         log.Named("progression"),
		metrics:     deps.Metrics,
		background:  background,
		stop:        stop,
	}
	o.coordinator = scoring.NewCoordinator(deps.Store, deps.Scorer, scoring.Config{
		Timeout:       cfg.ScoringTimeout,
		Concurrency:   cfg.ScoringConcurrency,
		FallbackScore: cfg.FallbackScore,
		OnComplete:    o.CompleteScoring,
	}, log, deps.Metrics)
	return o
}

// Wait blocks until background scoring and scenario generation finish.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Shutdown waits for background work until ctx ends, then cancels whatever
// is left.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		o.stop()
		return nil
	case <-ctx.Done():
		o.stop()
		return ctx.Err()
	}
}

func (o *Orchestrator) Categories() []string {
	return append([]string(nil), o.cfg.Categories...)
}

func (o *Orchestrator) Ping(ctx context.Context) error {
	return o.store.Ping(ctx)
}

func (o *Orchestrator) spawn(name string, fields []zap.Field, fn func(ctx context.Context) error) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		if err := fn(o.background); err != nil {
			o.log.Error(name+" failed", append(fields, zap.Error(err))...)
		}
	}()
}

func normalizeNickname(nickname string) string {
	return strings.TrimSpace(nickname)
}

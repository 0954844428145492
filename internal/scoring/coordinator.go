package scoring

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"hot-seat/internal/game"
	"hot-seat/internal/metrics"
)

var errTimeout = errors.New("scoring timed out")

// Store is the slice of the record store the coordinator uses.
type Store interface {
	GetTurn(ctx context.Context, id string) (game.Turn, error)
	GetScenario(ctx context.Context, id string) (game.Scenario, error)
	ListAnswers(ctx context.Context, turnID string) ([]game.Answer, error)
	SetAnswerScore(ctx context.Context, answerID string, score int, feedback string) (bool, error)
}

type Config struct {
	Timeout       time.Duration
	Concurrency   int
	FallbackScore int
	// OnComplete runs at the end of every run, including runs that left
	// answers to another run. It must be safe to call while answers are still
	// unscored. The orchestrator uses it to move the turn to voting.
	OnComplete func(ctx context.Context, turnID string) error
}

type Summary struct {
	TurnID   string
	Scored   int
	Fallback int
	// InFlight counts answers skipped because another run is scoring them.
	InFlight int
}

// Coordinator scores the unscored answers of a turn. Running it again for the
// same turn only touches answers still missing a score.
type Coordinator struct {
	store   Store
	scorer  Scorer
	cfg     Config
	log     *zap.Logger
	metrics *metrics.Metrics

	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewCoordinator(store Store, scorer Scorer, cfg Config, log *zap.Logger, m *metrics.Metrics) *Coordinator {
	if scorer == nil {
		scorer = Unavailable{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.FallbackScore == 0 {
		cfg.FallbackScore = 5
	}
	cfg.FallbackScore = Clamp(cfg.FallbackScore)
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{
		store:    store,
		scorer:   scorer,
		cfg:      cfg,
		log:      log.Named("scoring"),
		metrics:  m,
		inflight: make(map[string]struct{}),
	}
}

func (c *Coordinator) ScoreTurn(ctx context.Context, turnID string) (Summary, error) {
	summary := Summary{TurnID: turnID}
	turn, err := c.store.GetTurn(ctx, turnID)
	if err != nil {
		return summary, err
	}
	scenarioText := ""
	if turn.ScenarioID != "" {
		scenario, err := c.store.GetScenario(ctx, turn.ScenarioID)
		if err != nil {
			c.log.Warn("scenario lookup failed", zap.String("turn_id", turnID), zap.String("scenario_id", turn.ScenarioID), zap.Error(err))
		} else {
			scenarioText = scenario.Text
		}
	}
	answers, err := c.store.ListAnswers(ctx, turnID)
	if err != nil {
		return summary, err
	}

	pending := c.claim(answers)
	defer c.release(pending)
	summary.InFlight = countUnscored(answers) - len(pending)

	var (
		group errgroup.Group
		mu    sync.Mutex
	)
	group.SetLimit(c.cfg.Concurrency)
	for _, answer := range pending {
		answer := answer
		group.Go(func() error {
			req := Request{
				Category: turn.Category,
				Scenario: scenarioText,
				Context:  turn.Context,
				Answer:   answer.Text,
			}
			started := time.Now()
			result, scoreErr := c.scoreOne(ctx, req)
			outcome := "scored"
			if scoreErr != nil {
				outcome = "fallback"
				c.log.Warn("scoring failed, using fallback",
					zap.String("turn_id", turnID),
					zap.String("answer_id", answer.ID),
					zap.String("player_id", answer.PlayerID),
					zap.Error(scoreErr))
				result = Result{Score: c.cfg.FallbackScore, Feedback: FallbackFeedback}
			}
			c.metrics.Scored(outcome, time.Since(started))

			// a fallback caused by shutdown must still be written
			wrote, err := c.store.SetAnswerScore(context.WithoutCancel(ctx), answer.ID, Clamp(result.Score), result.Feedback)
			if err != nil {
				c.log.Error("failed to persist score",
					zap.String("turn_id", turnID),
					zap.String("answer_id", answer.ID),
					zap.Error(err))
				return fmt.Errorf("score answer %s: %w", answer.ID, err)
			}
			if wrote {
				mu.Lock()
				if scoreErr != nil {
					summary.Fallback++
				} else {
					summary.Scored++
				}
				mu.Unlock()
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return summary, err
	}
	// every run reports; OnComplete ignores a turn with unscored answers
	if c.cfg.OnComplete != nil {
		if err := c.cfg.OnComplete(ctx, turnID); err != nil {
			return summary, err
		}
	}
	return summary, nil
}

type scoreOutcome struct {
	result Result
	err    error
}

// scoreOne waits up to the configured timeout. A call still running at the
// deadline is abandoned, not cancelled; it is cut off at three times the
// timeout.
func (c *Coordinator) scoreOne(ctx context.Context, req Request) (Result, error) {
	done := make(chan scoreOutcome, 1)
	go func() {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*c.cfg.Timeout)
		defer cancel()
		result, err := c.scorer.Score(callCtx, req)
		done <- scoreOutcome{result: result, err: err}
	}()

	timer := time.NewTimer(c.cfg.Timeout)
	defer timer.Stop()
	select {
	case out := <-done:
		return out.result, out.err
	case <-timer.C:
		return Result{}, errTimeout
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func (c *Coordinator) claim(answers []game.Answer) []game.Answer {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []game.Answer
	for _, answer := range answers {
		if answer.Scored() {
			continue
		}
		if _, busy := c.inflight[answer.ID]; busy {
			continue
		}
		c.inflight[answer.ID] = struct{}{}
		out = append(out, answer)
	}
	return out
}

func (c *Coordinator) release(answers []game.Answer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, answer := range answers {
		delete(c.inflight, answer.ID)
	}
}

func countUnscored(answers []game.Answer) int {
	count := 0
	for _, answer := range answers {
		if !answer.Scored() {
			count++
		}
	}
	return count
}

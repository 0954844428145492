package scoring

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hot-seat/internal/game"
	"hot-seat/internal/store"
)

func seedTurn(t *testing.T, answers map[string]string) *store.Memory {
	t.Helper()
	ctx := context.Background()
	s := store.NewMemory(nil)
	require.NoError(t, s.CreateRoom(ctx, game.Room{ID: "r1", JoinCode: "ABC234", Status: game.RoomInProgress, TotalRounds: 1}))
	require.NoError(t, s.CreatePlayer(ctx, game.Player{ID: "p1", RoomID: "r1", Nickname: "one"}))
	for playerID := range answers {
		if playerID != "p1" {
			require.NoError(t, s.CreatePlayer(ctx, game.Player{ID: playerID, RoomID: "r1", Nickname: playerID}))
		}
	}
	require.NoError(t, s.CreateTurn(ctx, game.Turn{ID: "t1", RoomID: "r1", RoundID: "round-1", Number: 1, DeciderID: "p1", Status: game.TurnAnswering, Category: "Work", ScenarioID: "s1"}))
	require.NoError(t, s.CreateScenario(ctx, game.Scenario{ID: "s1", RoomID: "r1", TurnID: "t1", Text: "The fire alarm goes off mid-pitch"}))
	for playerID, text := range answers {
		_, err := s.UpsertAnswer(ctx, game.Answer{ID: "a-" + playerID, RoomID: "r1", TurnID: "t1", PlayerID: playerID, Text: text})
		require.NoError(t, err)
	}
	return s
}

// One answer times out and falls back; the other keeps its real score and
// the turn is reported complete once both are terminal.
func TestScoreTurnFallsBackOnTimeout(t *testing.T) {
	s := seedTurn(t, map[string]string{"p2": "keep pitching", "p3": "slow"})
	scorer := ScorerFunc(func(ctx context.Context, req Request) (Result, error) {
		assert.Equal(t, "Work", req.Category)
		assert.Equal(t, "The fire alarm goes off mid-pitch", req.Scenario)
		if req.Answer == "slow" {
			<-ctx.Done()
			return Result{}, ctx.Err()
		}
		return Result{Score: 8, Feedback: "Committed"}, nil
	})
	var completed []string
	c := NewCoordinator(s, scorer, Config{
		Timeout:     50 * time.Millisecond,
		Concurrency: 2,
		OnComplete: func(_ context.Context, turnID string) error {
			completed = append(completed, turnID)
			return nil
		},
	}, nil, nil)

	summary, err := c.ScoreTurn(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, Summary{TurnID: "t1", Scored: 1, Fallback: 1}, summary)
	assert.Equal(t, []string{"t1"}, completed)

	fast, err := s.GetAnswer(context.Background(), "a-p2")
	require.NoError(t, err)
	assert.Equal(t, 8, *fast.Score)
	assert.Equal(t, "Committed", *fast.Feedback)

	slow, err := s.GetAnswer(context.Background(), "a-p3")
	require.NoError(t, err)
	assert.Equal(t, 5, *slow.Score)
	assert.Equal(t, FallbackFeedback, *slow.Feedback)
}

func TestScoreTurnIsSafeToRepeat(t *testing.T) {
	s := seedTurn(t, map[string]string{"p2": "a", "p3": "b"})
	var calls atomic.Int32
	c := NewCoordinator(s, ScorerFunc(func(context.Context, Request) (Result, error) {
		calls.Add(1)
		return Result{Score: 6, Feedback: "fine"}, nil
	}), Config{Timeout: time.Second}, nil, nil)

	first, err := c.ScoreTurn(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, 2, first.Scored)

	second, err := c.ScoreTurn(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, 0, second.Scored)
	assert.Equal(t, int32(2), calls.Load())
}

func TestScoreTurnWithoutScorer(t *testing.T) {
	s := seedTurn(t, map[string]string{"p2": "a"})
	c := NewCoordinator(s, nil, Config{Timeout: time.Second, FallbackScore: 3}, nil, nil)

	summary, err := c.ScoreTurn(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Fallback)
	answer, err := s.GetAnswer(context.Background(), "a-p2")
	require.NoError(t, err)
	assert.Equal(t, 3, *answer.Score)
}

func TestScoreTurnBoundsConcurrency(t *testing.T) {
	s := seedTurn(t, map[string]string{"p2": "a", "p3": "b", "p4": "c", "p5": "d"})
	var (
		mu      sync.Mutex
		running int
		peak    int
	)
	c := NewCoordinator(s, ScorerFunc(func(context.Context, Request) (Result, error) {
		mu.Lock()
		running++
		peak = max(peak, running)
		mu.Unlock()
		time.Sleep(20 * time.Millisecond)
		mu.Lock()
		running--
		mu.Unlock()
		return Result{Score: 7, Feedback: "ok"}, nil
	}), Config{Timeout: time.Second, Concurrency: 2}, nil, nil)

	summary, err := c.ScoreTurn(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Scored)
	assert.LessOrEqual(t, peak, 2)
}

func TestScoreTurnSkipsAnswersInFlight(t *testing.T) {
	s := seedTurn(t, map[string]string{"p2": "a"})
	release := make(chan struct{})
	started := make(chan struct{})
	var completions atomic.Int32
	c := NewCoordinator(s, ScorerFunc(func(context.Context, Request) (Result, error) {
		close(started)
		<-release
		return Result{Score: 7, Feedback: "ok"}, nil
	}), Config{
		Timeout: time.Second,
		OnComplete: func(context.Context, string) error {
			completions.Add(1)
			return nil
		},
	}, nil, nil)

	done := make(chan Summary)
	go func() {
		summary, _ := c.ScoreTurn(context.Background(), "t1")
		done <- summary
	}()
	<-started

	concurrent, err := c.ScoreTurn(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, 1, concurrent.InFlight)
	assert.Equal(t, 0, concurrent.Scored)
	// a run that left answers to another run still reports
	assert.Equal(t, int32(1), completions.Load())

	close(release)
	first := <-done
	assert.Equal(t, 1, first.Scored)
	assert.Equal(t, int32(2), completions.Load())
}

// cancelOnWrite rejects writes made with a cancelled context, like a
// database driver would.
type cancelOnWrite struct {
	*store.Memory
}

func (s cancelOnWrite) SetAnswerScore(ctx context.Context, answerID string, score int, feedback string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return s.Memory.SetAnswerScore(ctx, answerID, score, feedback)
}

func TestScoreTurnPersistsFallbackAfterCancel(t *testing.T) {
	s := seedTurn(t, map[string]string{"p2": "a"})
	started := make(chan struct{})
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	c := NewCoordinator(cancelOnWrite{s}, ScorerFunc(func(context.Context, Request) (Result, error) {
		close(started)
		<-release
		return Result{Score: 9, Feedback: "late"}, nil
	}), Config{Timeout: 5 * time.Second, FallbackScore: 4}, nil, nil)

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan Summary, 1)
	go func() {
		summary, _ := c.ScoreTurn(runCtx, "t1")
		done <- summary
	}()
	<-started
	cancel()

	summary := <-done
	assert.Equal(t, 1, summary.Fallback)
	answer, err := s.GetAnswer(context.Background(), "a-p2")
	require.NoError(t, err)
	require.NotNil(t, answer.Score)
	assert.Equal(t, 4, *answer.Score)
	assert.Equal(t, FallbackFeedback, *answer.Feedback)
}

func TestScoreTurnSurfacesCompletionError(t *testing.T) {
	s := seedTurn(t, map[string]string{"p2": "a"})
	boom := errors.New("flip failed")
	c := NewCoordinator(s, ScorerFunc(func(context.Context, Request) (Result, error) {
		return Result{Score: 7, Feedback: "ok"}, nil
	}), Config{Timeout: time.Second, OnComplete: func(context.Context, string) error { return boom }}, nil, nil)

	_, err := c.ScoreTurn(context.Background(), "t1")
	require.ErrorIs(t, err, boom)
}

func TestScoreTurnMissingTurn(t *testing.T) {
	c := NewCoordinator(store.NewMemory(nil), nil, Config{}, nil, nil)
	_, err := c.ScoreTurn(context.Background(), "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

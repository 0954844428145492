package scoring

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	MinScore = 1
	MaxScore = 10
	// FallbackFeedback is stored with the fallback score when scoring fails.
	FallbackFeedback = "Error processing response"
)

var (
	ErrMalformed   = errors.New("scoring response is not in the expected format")
	ErrUnavailable = errors.New("scoring is not configured")
)

type Request struct {
	Category string
	Scenario string
	Context  string
	Answer   string
}

type Result struct {
	Score    int
	Feedback string
}

// Scorer rates one answer. Implementations may block; callers bound them
// with a deadline.
type Scorer interface {
	Score(ctx context.Context, req Request) (Result, error)
}

type ScorerFunc func(ctx context.Context, req Request) (Result, error)

func (f ScorerFunc) Score(ctx context.Context, req Request) (Result, error) {
	return f(ctx, req)
}

// Unavailable fails every call; it stands in when no model is configured.
type Unavailable struct{}

func (Unavailable) Score(context.Context, Request) (Result, error) {
	return Result{}, ErrUnavailable
}

var scoreLine = regexp.MustCompile(`(?is)score\s*[:=]\s*(-?\d+)(?:\s*/\s*10)?\s*[,;\n]?\s*feedback\s*[:=]\s*(.+)`)

// ParseResponse reads a "Score: X, Feedback: Y" reply. The score is clamped
// into [MinScore, MaxScore].
func ParseResponse(raw string) (Result, error) {
	match := scoreLine.FindStringSubmatch(strings.TrimSpace(raw))
	if match == nil {
		return Result{}, fmt.Errorf("%w: %q", ErrMalformed, truncate(raw, 80))
	}
	score, err := strconv.Atoi(match[1])
	if err != nil {
		return Result{}, fmt.Errorf("%w: score %q", ErrMalformed, match[1])
	}
	feedback := strings.TrimSpace(match[2])
	feedback = strings.Trim(feedback, `"`)
	if feedback == "" {
		return Result{}, fmt.Errorf("%w: empty feedback", ErrMalformed)
	}
	return Result{Score: Clamp(score), Feedback: feedback}, nil
}

func Clamp(score int) int {
	return min(max(score, MinScore), MaxScore)
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit] + "..."
}

package scenario

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"hot-seat/internal/game"
)

type generatorFunc func(ctx context.Context, category string, n int) ([]string, error)

func (f generatorFunc) Generate(ctx context.Context, category string, n int) ([]string, error) {
	return f(ctx, category, n)
}

type libraryFunc func(ctx context.Context, category string, n int) ([]string, error)

func (f libraryFunc) Sample(ctx context.Context, category string, n int) ([]string, error) {
	return f(ctx, category, n)
}

func TestProviderPrefersGenerator(t *testing.T) {
	p := NewProvider(generatorFunc(func(_ context.Context, category string, n int) ([]string, error) {
		return []string{"one", "two", "three", "four"}, nil
	}), nil, nil, nil)

	assert.Equal(t, []string{"one", "two", "three"}, p.Scenarios(context.Background(), "Food", 3))
}

func TestProviderFallsBackToLibrary(t *testing.T) {
	p := NewProvider(
		generatorFunc(func(context.Context, string, int) ([]string, error) { return nil, errors.New("down") }),
		libraryFunc(func(_ context.Context, category string, n int) ([]string, error) {
			assert.Equal(t, "Work", category)
			return []string{"stored"}, nil
		}),
		nil, nil,
	)
	assert.Equal(t, []string{"stored"}, p.Scenarios(context.Background(), "Work", 3))
}

func TestProviderFallsBackToBuiltin(t *testing.T) {
	p := NewProvider(nil, libraryFunc(func(context.Context, string, int) ([]string, error) {
		return nil, nil
	}), game.NewSequencePicker(0), nil)

	got := p.Scenarios(context.Background(), "Travel", 2)
	assert.Equal(t, builtinScenarios["travel"][:2], got)

	unknown := p.Scenarios(context.Background(), "Space", 10)
	assert.ElementsMatch(t, builtinScenarios["general"], unknown)
}

func TestParseList(t *testing.T) {
	raw := "1. Your cat joins the meeting\n\n- \"You forget the host's name\"\n3) The lift stops between floors"
	assert.Equal(t, []string{
		"Your cat joins the meeting",
		"You forget the host's name",
		"The lift stops between floors",
	}, ParseList(raw))
}

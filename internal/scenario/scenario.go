package scenario

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"hot-seat/internal/game"
)

// Generator writes n scenarios for a category.
type Generator interface {
	Generate(ctx context.Context, category string, n int) ([]string, error)
}

// Library returns up to n stored scenarios for a category.
type Library interface {
	Sample(ctx context.Context, category string, n int) ([]string, error)
}

var ErrNoScenarios = errors.New("no scenarios available")

// Provider tries the generator, then the library, then the built-in list. It
// always returns at least one scenario.
type Provider struct {
	generator Generator
	library   Library
	picker    game.Picker
	log       *zap.Logger
}

func NewProvider(generator Generator, library Library, picker game.Picker, log *zap.Logger) *Provider {
	if picker == nil {
		picker = game.RandomPicker{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Provider{generator: generator, library: library, picker: picker, log: log.Named("scenario")}
}

func (p *Provider) Scenarios(ctx context.Context, category string, n int) []string {
	if n <= 0 {
		n = 1
	}
	if p.generator != nil {
		texts, err := p.generator.Generate(ctx, category, n)
		if err == nil && len(texts) > 0 {
			return limit(texts, n)
		}
		p.log.Warn("scenario generation failed, using library", zap.String("category", category), zap.Error(err))
	}
	if p.library != nil {
		texts, err := p.library.Sample(ctx, category, n)
		if err == nil && len(texts) > 0 {
			return limit(texts, n)
		}
		if err != nil {
			p.log.Warn("scenario library lookup failed", zap.String("category", category), zap.Error(err))
		}
	}
	return p.builtin(category, n)
}

func (p *Provider) builtin(category string, n int) []string {
	pool := builtinScenarios[strings.ToLower(category)]
	if len(pool) == 0 {
		pool = builtinScenarios["general"]
	}
	pool = append([]string(nil), pool...)
	out := make([]string, 0, n)
	for len(out) < n && len(pool) > 0 {
		i := p.picker.Pick(len(pool))
		out = append(out, pool[i])
		pool = append(pool[:i], pool[i+1:]...)
	}
	return out
}

func limit(texts []string, n int) []string {
	if len(texts) > n {
		return texts[:n]
	}
	return texts
}

var builtinScenarios = map[string][]string{
	"technology": {
		"Your phone autocorrects your boss's name to something unfortunate in a group chat.",
		"You share your screen in a meeting with forty browser tabs open.",
		"Your smart speaker answers a question nobody asked during a first date.",
	},
	"work": {
		"You accidentally reply-all to the whole company with a complaint about the coffee.",
		"You fall asleep on mute and wake up to your name being called.",
		"Your manager asks you to present slides you have never seen.",
	},
	"dating": {
		"Your date turns out to be your dentist.",
		"You call your date by your ex's name halfway through dinner.",
		"Your date's parents join the video call unannounced.",
	},
	"travel": {
		"You realize at the gate that your passport is at home on the kitchen table.",
		"The hotel gave your room to a wedding party.",
		"Your luggage arrives, but it belongs to someone else.",
	},
	"food": {
		"You find out the dish you praised was made by the person you insulted.",
		"The waiter brings the wrong order and you have already eaten half.",
		"You are asked to carve the roast at a family dinner.",
	},
	"school": {
		"Your passed note gets read aloud to the whole class.",
		"You study for the wrong exam.",
		"Your group project partner disappears the night before the deadline.",
	},
	"general": {
		"You wave back at someone who was waving at the person behind you.",
		"You get locked out of your house in your pajamas.",
		"You laugh at a joke and then realize it was not a joke.",
	},
}

package game

import (
	"math/rand"
	"sync"
)

// Picker chooses an index in [0, n). Decider and fallback selection go through
// it so tests can pin the sequence.
type Picker interface {
	Pick(n int) int
}

type RandomPicker struct{}

func (RandomPicker) Pick(n int) int {
	if n <= 1 {
		return 0
	}
	return rand.Intn(n)
}

// SequencePicker replays fixed choices, wrapping each into range. It cycles
// once the sequence is exhausted.
type SequencePicker struct {
	mu   sync.Mutex
	seq  []int
	next int
}

func NewSequencePicker(seq ...int) *SequencePicker {
	return &SequencePicker{seq: seq}
}

func (p *SequencePicker) Pick(n int) int {
	if n <= 1 {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.seq) == 0 {
		return 0
	}
	value := p.seq[p.next%len(p.seq)]
	p.next++
	if value < 0 {
		value = -value
	}
	return value % n
}

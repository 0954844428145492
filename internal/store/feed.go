package store

import (
	"sync"
)

type ChangeType string

const (
	ChangeInsert ChangeType = "insert"
	ChangeUpdate ChangeType = "update"
	ChangeDelete ChangeType = "delete"
)

const (
	TableRooms     = "rooms"
	TablePlayers   = "players"
	TableRounds    = "rounds"
	TableTurns     = "turns"
	TableHistory   = "decider_history"
	TableAnswers   = "answers"
	TableVotes     = "votes"
	TableScenarios = "scenarios"
	// TableAll subscribes to every table.
	TableAll = "*"
)

// Change is one row change. Row holds the row after the change, or the deleted
// row's key fields for deletes.
type Change struct {
	Table  string     `json:"table"`
	Type   ChangeType `json:"eventType"`
	RoomID string     `json:"roomId"`
	Row    any        `json:"row"`
}

type Filter func(Change) bool

// ByRoom matches changes of one room.
func ByRoom(roomID string) Filter {
	return func(change Change) bool {
		return change.RoomID == roomID
	}
}

type subscription struct {
	table  string
	filter Filter
	ch     chan Change
}

// Feed fans row changes out to subscribers. Delivery is at most once: a
// subscriber whose buffer is full misses the change.
type Feed struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]*subscription
	buffer int
}

func NewFeed(buffer int) *Feed {
	if buffer <= 0 {
		buffer = 64
	}
	return &Feed{subs: make(map[int]*subscription), buffer: buffer}
}

// Subscribe returns a channel of matching changes and a cancel func that
// closes it. A nil filter matches everything on the table.
func (f *Feed) Subscribe(table string, filter Filter) (<-chan Change, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	sub := &subscription{table: table, filter: filter, ch: make(chan Change, f.buffer)}
	f.subs[id] = sub

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			delete(f.subs, id)
			close(sub.ch)
		})
	}
}

func (f *Feed) Publish(change Change) {
	if f == nil {
		return
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, sub := range f.subs {
		if sub.table != TableAll && sub.table != change.Table {
			continue
		}
		if sub.filter != nil && !sub.filter(change) {
			continue
		}
		select {
		case sub.ch <- change:
		default:
		}
	}
}

package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"hot-seat/internal/game"
)

// Memory is an in-process Store used when no database is configured and in
// tests. Unique keys mirror the database indexes.
type Memory struct {
	mu        sync.Mutex
	rooms     map[string]*game.Room
	players   map[string]*game.Player
	rounds    map[string]*game.Round
	turns     map[string]*game.Turn
	history   map[string]*game.DeciderEntry
	answers   map[string]*game.Answer
	votes     []game.Vote
	scenarios map[string]*game.Scenario
	events    []Event
	feed      *Feed
	now       func() time.Time
}

func NewMemory(feed *Feed) *Memory {
	return &Memory{
		rooms:     make(map[string]*game.Room),
		players:   make(map[string]*game.Player),
		rounds:    make(map[string]*game.Round),
		turns:     make(map[string]*game.Turn),
		history:   make(map[string]*game.DeciderEntry),
		answers:   make(map[string]*game.Answer),
		scenarios: make(map[string]*game.Scenario),
		feed:      feed,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) GetRoom(_ context.Context, id string) (game.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[id]
	if !ok {
		return game.Room{}, fmt.Errorf("room %s: %w", id, ErrNotFound)
	}
	return *room, nil
}

func (m *Memory) GetRoomByCode(_ context.Context, code string) (game.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, room := range m.rooms {
		if strings.EqualFold(room.JoinCode, code) {
			return *room, nil
		}
	}
	return game.Room{}, fmt.Errorf("room code %s: %w", code, ErrNotFound)
}

func (m *Memory) GetRound(_ context.Context, id string) (game.Round, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	round, ok := m.rounds[id]
	if !ok {
		return game.Round{}, fmt.Errorf("round %s: %w", id, ErrNotFound)
	}
	return *round, nil
}

func (m *Memory) GetTurn(_ context.Context, id string) (game.Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	turn, ok := m.turns[id]
	if !ok {
		return game.Turn{}, fmt.Errorf("turn %s: %w", id, ErrNotFound)
	}
	return *turn, nil
}

func (m *Memory) GetPlayer(_ context.Context, id string) (game.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	player, ok := m.players[id]
	if !ok {
		return game.Player{}, fmt.Errorf("player %s: %w", id, ErrNotFound)
	}
	return *player, nil
}

func (m *Memory) GetAnswer(_ context.Context, id string) (game.Answer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	answer, ok := m.answers[id]
	if !ok {
		return game.Answer{}, fmt.Errorf("answer %s: %w", id, ErrNotFound)
	}
	return copyAnswer(*answer), nil
}

func (m *Memory) GetScenario(_ context.Context, id string) (game.Scenario, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	scenario, ok := m.scenarios[id]
	if !ok {
		return game.Scenario{}, fmt.Errorf("scenario %s: %w", id, ErrNotFound)
	}
	return *scenario, nil
}

func (m *Memory) ListPlayers(_ context.Context, roomID string) ([]game.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []game.Player
	for _, player := range m.players {
		if player.RoomID == roomID {
			out = append(out, *player)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out, nil
}

func (m *Memory) ListRounds(_ context.Context, roomID string) ([]game.Round, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []game.Round
	for _, round := range m.rounds {
		if round.RoomID == roomID {
			out = append(out, *round)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (m *Memory) ListTurns(_ context.Context, roomID string) ([]game.Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []game.Turn
	for _, turn := range m.turns {
		if turn.RoomID == roomID {
			out = append(out, *turn)
		}
	}
	roundNumber := func(turn game.Turn) int {
		if round, ok := m.rounds[turn.RoundID]; ok {
			return round.Number
		}
		return 0
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := roundNumber(out[i]), roundNumber(out[j])
		if ri != rj {
			return ri < rj
		}
		return out[i].Number < out[j].Number
	})
	return out, nil
}

func (m *Memory) ListHistory(_ context.Context, roundID string) ([]game.DeciderEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []game.DeciderEntry
	for _, entry := range m.history {
		if entry.RoundID == roundID {
			out = append(out, *entry)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TurnNumber < out[j].TurnNumber })
	return out, nil
}

func (m *Memory) ListAnswers(_ context.Context, turnID string) ([]game.Answer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []game.Answer
	for _, answer := range m.answers {
		if answer.TurnID == turnID {
			out = append(out, copyAnswer(*answer))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) ListVotes(_ context.Context, turnID string) ([]game.Vote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []game.Vote
	for _, vote := range m.votes {
		if answer, ok := m.answers[vote.AnswerID]; ok && answer.TurnID == turnID {
			out = append(out, vote)
		}
	}
	return out, nil
}

func (m *Memory) ListScenarios(_ context.Context, turnID string) ([]game.Scenario, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []game.Scenario
	for _, scenario := range m.scenarios {
		if scenario.TurnID == turnID {
			out = append(out, *scenario)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) CreateRoom(_ context.Context, room game.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[room.ID]; ok {
		return fmt.Errorf("room %s: %w", room.ID, ErrConflict)
	}
	for _, existing := range m.rooms {
		if strings.EqualFold(existing.JoinCode, room.JoinCode) {
			return fmt.Errorf("join code %s: %w", room.JoinCode, ErrConflict)
		}
	}
	if room.CreatedAt.IsZero() {
		room.CreatedAt = m.now()
	}
	m.rooms[room.ID] = &room
	m.publish(TableRooms, ChangeInsert, room.ID, room)
	return nil
}

func (m *Memory) UpdateRoom(_ context.Context, id string, patch game.RoomPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[id]
	if !ok {
		return fmt.Errorf("room %s: %w", id, ErrNotFound)
	}
	if patch.Status != nil {
		room.Status = *patch.Status
	}
	if patch.CurrentRound != nil {
		room.CurrentRound = *patch.CurrentRound
	}
	if patch.CurrentTurn != nil {
		room.CurrentTurn = *patch.CurrentTurn
	}
	if patch.RoundVotingPhase != nil {
		room.RoundVotingPhase = *patch.RoundVotingPhase
	}
	m.publish(TableRooms, ChangeUpdate, room.ID, *room)
	return nil
}

func (m *Memory) DeleteRoom(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[id]
	if !ok {
		return fmt.Errorf("room %s: %w", id, ErrNotFound)
	}
	delete(m.rooms, id)
	for key, player := range m.players {
		if player.RoomID == id {
			delete(m.players, key)
		}
	}
	for key, round := range m.rounds {
		if round.RoomID == id {
			delete(m.rounds, key)
		}
	}
	for key, turn := range m.turns {
		if turn.RoomID == id {
			delete(m.turns, key)
		}
	}
	m.publish(TableRooms, ChangeDelete, id, *room)
	return nil
}

func (m *Memory) SetHost(_ context.Context, roomID, playerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[roomID]
	if !ok {
		return fmt.Errorf("room %s: %w", roomID, ErrNotFound)
	}
	target, ok := m.players[playerID]
	if !ok || target.RoomID != roomID {
		return fmt.Errorf("player %s: %w", playerID, ErrNotFound)
	}
	for _, player := range m.players {
		if player.RoomID == roomID && player.IsHost && player.ID != playerID {
			player.IsHost = false
			m.publish(TablePlayers, ChangeUpdate, roomID, *player)
		}
	}
	target.IsHost = true
	room.HostID = playerID
	m.publish(TablePlayers, ChangeUpdate, roomID, *target)
	m.publish(TableRooms, ChangeUpdate, roomID, *room)
	return nil
}

func (m *Memory) CreatePlayer(_ context.Context, player game.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[player.RoomID]; !ok {
		return fmt.Errorf("room %s: %w", player.RoomID, ErrNotFound)
	}
	if _, ok := m.players[player.ID]; ok {
		return fmt.Errorf("player %s: %w", player.ID, ErrConflict)
	}
	for _, existing := range m.players {
		if existing.RoomID == player.RoomID && existing.Nickname == player.Nickname {
			return fmt.Errorf("nickname %s: %w", player.Nickname, ErrConflict)
		}
	}
	if player.JoinedAt.IsZero() {
		player.JoinedAt = m.now()
	}
	m.players[player.ID] = &player
	m.publish(TablePlayers, ChangeInsert, player.RoomID, player)
	return nil
}

// DeletePlayer removes the player and their answers, like the cascading
// foreign key in the database.
func (m *Memory) DeletePlayer(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	player, ok := m.players[id]
	if !ok {
		return fmt.Errorf("player %s: %w", id, ErrNotFound)
	}
	delete(m.players, id)
	for answerID, answer := range m.answers {
		if answer.PlayerID == id {
			delete(m.answers, answerID)
		}
	}
	m.publish(TablePlayers, ChangeDelete, player.RoomID, *player)
	return nil
}

func (m *Memory) SetDeciderFlag(_ context.Context, playerID string, value bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	player, ok := m.players[playerID]
	if !ok {
		return fmt.Errorf("player %s: %w", playerID, ErrNotFound)
	}
	player.HasBeenDecider = value
	m.publish(TablePlayers, ChangeUpdate, player.RoomID, *player)
	return nil
}

func (m *Memory) AddPoints(_ context.Context, playerID string, points int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	player, ok := m.players[playerID]
	if !ok {
		return fmt.Errorf("player %s: %w", playerID, ErrNotFound)
	}
	player.TotalPoints += points
	m.publish(TablePlayers, ChangeUpdate, player.RoomID, *player)
	return nil
}

func (m *Memory) CreateRound(_ context.Context, round game.Round) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rounds[round.ID]; ok {
		return fmt.Errorf("round %s: %w", round.ID, ErrConflict)
	}
	for _, existing := range m.rounds {
		if existing.RoomID == round.RoomID && existing.Number == round.Number {
			return fmt.Errorf("round %d of room %s: %w", round.Number, round.RoomID, ErrConflict)
		}
	}
	m.rounds[round.ID] = &round
	m.publish(TableRounds, ChangeInsert, round.RoomID, round)
	return nil
}

func (m *Memory) UpdateRound(_ context.Context, id string, patch game.RoundPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	round, ok := m.rounds[id]
	if !ok {
		return fmt.Errorf("round %s: %w", id, ErrNotFound)
	}
	if patch.Status != nil {
		round.Status = *patch.Status
	}
	if patch.IsComplete != nil {
		round.IsComplete = *patch.IsComplete
	}
	if patch.CurrentTurn != nil {
		round.CurrentTurn = *patch.CurrentTurn
	}
	m.publish(TableRounds, ChangeUpdate, round.RoomID, *round)
	return nil
}

func (m *Memory) DeleteRound(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	round, ok := m.rounds[id]
	if !ok {
		return fmt.Errorf("round %s: %w", id, ErrNotFound)
	}
	delete(m.rounds, id)
	m.publish(TableRounds, ChangeDelete, round.RoomID, *round)
	return nil
}

func (m *Memory) CreateTurn(_ context.Context, turn game.Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.turns[turn.ID]; ok {
		return fmt.Errorf("turn %s: %w", turn.ID, ErrConflict)
	}
	for _, existing := range m.turns {
		if existing.RoundID == turn.RoundID && existing.Number == turn.Number {
			return fmt.Errorf("turn %d of round %s: %w", turn.Number, turn.RoundID, ErrConflict)
		}
	}
	m.turns[turn.ID] = &turn
	m.publish(TableTurns, ChangeInsert, turn.RoomID, turn)
	return nil
}

func (m *Memory) UpdateTurn(_ context.Context, id string, from game.TurnStatus, patch game.TurnPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	turn, ok := m.turns[id]
	if !ok {
		return fmt.Errorf("turn %s: %w", id, ErrNotFound)
	}
	if turn.Status != from {
		return fmt.Errorf("turn %s is %s, not %s: %w", id, turn.Status, from, ErrStale)
	}
	if patch.Status != nil {
		turn.Status = *patch.Status
	}
	if patch.Category != nil {
		turn.Category = *patch.Category
	}
	if patch.ScenarioID != nil {
		turn.ScenarioID = *patch.ScenarioID
	}
	if patch.Context != nil {
		turn.Context = *patch.Context
	}
	m.publish(TableTurns, ChangeUpdate, turn.RoomID, *turn)
	return nil
}

func (m *Memory) DeleteTurn(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	turn, ok := m.turns[id]
	if !ok {
		return fmt.Errorf("turn %s: %w", id, ErrNotFound)
	}
	delete(m.turns, id)
	m.publish(TableTurns, ChangeDelete, turn.RoomID, *turn)
	return nil
}

func (m *Memory) CreateScenario(_ context.Context, scenario game.Scenario) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.scenarios[scenario.ID]; ok {
		return fmt.Errorf("scenario %s: %w", scenario.ID, ErrConflict)
	}
	m.scenarios[scenario.ID] = &scenario
	m.publish(TableScenarios, ChangeInsert, scenario.RoomID, scenario)
	return nil
}

func (m *Memory) DeleteScenario(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	scenario, ok := m.scenarios[id]
	if !ok {
		return fmt.Errorf("scenario %s: %w", id, ErrNotFound)
	}
	delete(m.scenarios, id)
	m.publish(TableScenarios, ChangeDelete, scenario.RoomID, *scenario)
	return nil
}

func (m *Memory) AppendDecider(_ context.Context, entry game.DeciderEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.history[entry.ID]; ok {
		return fmt.Errorf("decider entry %s: %w", entry.ID, ErrConflict)
	}
	for _, existing := range m.history {
		if existing.RoundID == entry.RoundID && existing.PlayerID == entry.PlayerID {
			return fmt.Errorf("player %s already decided round %s: %w", entry.PlayerID, entry.RoundID, ErrConflict)
		}
	}
	m.history[entry.ID] = &entry
	m.publish(TableHistory, ChangeInsert, entry.RoomID, entry)
	return nil
}

func (m *Memory) DeleteDecider(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.history[id]
	if !ok {
		return fmt.Errorf("decider entry %s: %w", id, ErrNotFound)
	}
	delete(m.history, id)
	m.publish(TableHistory, ChangeDelete, entry.RoomID, *entry)
	return nil
}

func (m *Memory) UpsertAnswer(_ context.Context, answer game.Answer) (game.Answer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.answers {
		if existing.TurnID == answer.TurnID && existing.PlayerID == answer.PlayerID {
			existing.Text = answer.Text
			m.publish(TableAnswers, ChangeUpdate, existing.RoomID, copyAnswer(*existing))
			return copyAnswer(*existing), nil
		}
	}
	if _, ok := m.players[answer.PlayerID]; !ok {
		return game.Answer{}, fmt.Errorf("player %s: %w", answer.PlayerID, ErrNotFound)
	}
	answer.Score = nil
	answer.Feedback = nil
	m.answers[answer.ID] = &answer
	m.publish(TableAnswers, ChangeInsert, answer.RoomID, copyAnswer(answer))
	return copyAnswer(answer), nil
}

func (m *Memory) SetAnswerScore(_ context.Context, answerID string, score int, feedback string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	answer, ok := m.answers[answerID]
	if !ok {
		return false, fmt.Errorf("answer %s: %w", answerID, ErrNotFound)
	}
	if answer.Score != nil {
		return false, nil
	}
	answer.Score = &score
	answer.Feedback = &feedback
	m.publish(TableAnswers, ChangeUpdate, answer.RoomID, copyAnswer(*answer))
	return true, nil
}

func (m *Memory) CreateVote(_ context.Context, vote game.Vote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.answers[vote.AnswerID]; !ok {
		return fmt.Errorf("answer %s: %w", vote.AnswerID, ErrNotFound)
	}
	m.votes = append(m.votes, vote)
	m.publish(TableVotes, ChangeInsert, vote.RoomID, vote)
	return nil
}

func (m *Memory) AppendEvent(_ context.Context, event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = m.now()
	}
	m.events = append(m.events, event)
	return nil
}

// Events returns the audit log in append order.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

func (m *Memory) publish(table string, kind ChangeType, roomID string, row any) {
	m.feed.Publish(Change{Table: table, Type: kind, RoomID: roomID, Row: row})
}

func copyAnswer(answer game.Answer) game.Answer {
	if answer.Score != nil {
		score := *answer.Score
		answer.Score = &score
	}
	if answer.Feedback != nil {
		feedback := *answer.Feedback
		answer.Feedback = &feedback
	}
	return answer
}

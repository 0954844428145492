package game

import (
	"fmt"
	"sort"
)

// Snapshot is the persisted state a decision is made against. History holds the
// decider entries of Round; Answers, Votes and Scenarios belong to Turn.
type Snapshot struct {
	Room      *Room
	Round     *Round
	Turn      *Turn
	Players   []Player
	History   []DeciderEntry
	Answers   []Answer
	Votes     []Vote
	Scenarios []Scenario
}

func (s Snapshot) validateRoom() error {
	if s.Room == nil {
		return fmt.Errorf("%w: room missing", ErrInvalidSnapshot)
	}
	if s.Room.TotalRounds < 1 {
		return fmt.Errorf("%w: room %s has total_rounds %d", ErrInvalidSnapshot, s.Room.ID, s.Room.TotalRounds)
	}
	for _, player := range s.Players {
		if player.RoomID != s.Room.ID {
			return fmt.Errorf("%w: player %s is not in room %s", ErrInvalidSnapshot, player.ID, s.Room.ID)
		}
	}
	return nil
}

func (s Snapshot) validateTurn() error {
	if err := s.validateRoom(); err != nil {
		return err
	}
	if s.Round == nil {
		return fmt.Errorf("%w: round missing for room %s", ErrInvalidSnapshot, s.Room.ID)
	}
	if s.Turn == nil {
		return fmt.Errorf("%w: turn missing for round %s", ErrInvalidSnapshot, s.Round.ID)
	}
	if s.Round.RoomID != s.Room.ID {
		return fmt.Errorf("%w: round %s is not in room %s", ErrInvalidSnapshot, s.Round.ID, s.Room.ID)
	}
	if s.Turn.RoundID != s.Round.ID {
		return fmt.Errorf("%w: turn %s is not in round %s", ErrInvalidSnapshot, s.Turn.ID, s.Round.ID)
	}
	if !s.Turn.Status.Valid() {
		return fmt.Errorf("%w: turn %s has status %q", ErrInvalidSnapshot, s.Turn.ID, s.Turn.Status)
	}
	if s.Round.Number > s.Room.TotalRounds {
		return fmt.Errorf("%w: round %d exceeds total rounds %d", ErrInvalidSnapshot, s.Round.Number, s.Room.TotalRounds)
	}
	return nil
}

func (s Snapshot) hasPlayer(id string) bool {
	for _, player := range s.Players {
		if player.ID == id {
			return true
		}
	}
	return false
}

// orderedPlayers returns players by join time so picks are reproducible.
func (s Snapshot) orderedPlayers() []Player {
	out := append([]Player(nil), s.Players...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out
}

// EligibleDeciders are the current players absent from the round's history.
// Departed players drop out because only current players are considered.
func (s Snapshot) EligibleDeciders() []Player {
	decided := map[string]bool{}
	for _, entry := range s.History {
		if s.Round != nil && entry.RoundID != s.Round.ID {
			continue
		}
		decided[entry.PlayerID] = true
	}
	var out []Player
	for _, player := range s.orderedPlayers() {
		if !decided[player.ID] {
			out = append(out, player)
		}
	}
	return out
}

// SubmittedAnswers counts answers of the turn written by current players.
func (s Snapshot) SubmittedAnswers() int {
	count := 0
	for _, answer := range s.Answers {
		if s.Turn != nil && answer.TurnID != s.Turn.ID {
			continue
		}
		if s.hasPlayer(answer.PlayerID) {
			count++
		}
	}
	return count
}

// ExpectedAnswers is the answer floor for the turn: every player when the
// decider answered, otherwise every player but the decider. A decider who left
// the room is not subtracted.
func (s Snapshot) ExpectedAnswers() int {
	if s.Turn == nil {
		return 0
	}
	total := len(s.Players)
	if !s.hasPlayer(s.Turn.DeciderID) {
		return max(total, 1)
	}
	for _, answer := range s.Answers {
		if answer.TurnID == s.Turn.ID && answer.PlayerID == s.Turn.DeciderID {
			return total
		}
	}
	return max(total-1, 1)
}

// AnswersReady reports whether the floor is met. It is a floor, not an
// equality: extra answers never hold the turn back.
func (s Snapshot) AnswersReady() bool {
	return s.SubmittedAnswers() >= s.ExpectedAnswers()
}

func (s Snapshot) turnScenarios() []Scenario {
	var out []Scenario
	for _, scenario := range s.Scenarios {
		if s.Turn != nil && scenario.TurnID == s.Turn.ID {
			out = append(out, scenario)
		}
	}
	return out
}

func (s Snapshot) votesFor(answerID string) int {
	count := 0
	for _, vote := range s.Votes {
		if vote.AnswerID == answerID {
			count++
		}
	}
	return count
}

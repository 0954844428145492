package game

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hot-seat/internal/apperr"
)

// world is a minimal record store that applies transitions the way the
// orchestrator does, so multi-turn flows can be checked end to end.
type world struct {
	room      Room
	rounds    map[string]*Round
	turns     map[string]*Turn
	players   []Player
	history   []DeciderEntry
	answers   []Answer
	votes     []Vote
	scenarios []Scenario
	// statuses records every status each turn passed through.
	statuses map[string][]TurnStatus
}

func sequentialIDs() func() string {
	next := 0
	return func() string {
		next++
		return fmt.Sprintf("id-%d", next)
	}
}

func newWorld(playerCount, totalRounds int) *world {
	w := &world{
		room: Room{
			ID:           "room-1",
			JoinCode:     "ABC234",
			Status:       RoomWaiting,
			TotalRounds:  totalRounds,
			CurrentRound: 1,
			CurrentTurn:  1,
			HostID:       "p1",
		},
		rounds:   map[string]*Round{},
		turns:    map[string]*Turn{},
		statuses: map[string][]TurnStatus{},
	}
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 1; i <= playerCount; i++ {
		w.players = append(w.players, Player{
			ID:       fmt.Sprintf("p%d", i),
			RoomID:   w.room.ID,
			Nickname: fmt.Sprintf("player%d", i),
			IsHost:   i == 1,
			JoinedAt: base.Add(time.Duration(i) * time.Second),
		})
	}
	return w
}

func (w *world) apply(t *testing.T, tr Transition) {
	t.Helper()
	for _, mutation := range tr.Mutations {
		switch m := mutation.(type) {
		case UpdateRoom:
			require.Equal(t, w.room.ID, m.RoomID)
			if m.Patch.Status != nil {
				w.room.Status = *m.Patch.Status
			}
			if m.Patch.CurrentRound != nil {
				require.GreaterOrEqual(t, *m.Patch.CurrentRound, w.room.CurrentRound, "current_round must not decrease")
				require.LessOrEqual(t, *m.Patch.CurrentRound, w.room.TotalRounds)
				w.room.CurrentRound = *m.Patch.CurrentRound
			}
			if m.Patch.CurrentTurn != nil {
				w.room.CurrentTurn = *m.Patch.CurrentTurn
			}
			if m.Patch.RoundVotingPhase != nil {
				w.room.RoundVotingPhase = *m.Patch.RoundVotingPhase
			}
		case CreateRound:
			for _, existing := range w.rounds {
				require.NotEqual(t, existing.Number, m.Round.Number, "duplicate round number")
			}
			round := m.Round
			w.rounds[round.ID] = &round
		case UpdateRound:
			round := w.rounds[m.RoundID]
			require.NotNil(t, round)
			if m.Patch.Status != nil {
				round.Status = *m.Patch.Status
			}
			if m.Patch.IsComplete != nil {
				require.True(t, *m.Patch.IsComplete || !round.IsComplete, "is_complete must not reset")
				round.IsComplete = *m.Patch.IsComplete
			}
			if m.Patch.CurrentTurn != nil {
				round.CurrentTurn = *m.Patch.CurrentTurn
			}
		case CreateTurn:
			turn := m.Turn
			w.turns[turn.ID] = &turn
			w.statuses[turn.ID] = []TurnStatus{turn.Status}
		case UpdateTurn:
			turn := w.turns[m.TurnID]
			require.NotNil(t, turn)
			require.Equal(t, m.From, turn.Status)
			if m.Patch.Status != nil {
				require.True(t, turn.Status.CanTransitionTo(*m.Patch.Status), "%s -> %s", turn.Status, *m.Patch.Status)
				turn.Status = *m.Patch.Status
				w.statuses[turn.ID] = append(w.statuses[turn.ID], turn.Status)
			}
			if m.Patch.Category != nil {
				turn.Category = *m.Patch.Category
			}
			if m.Patch.ScenarioID != nil {
				turn.ScenarioID = *m.Patch.ScenarioID
			}
			if m.Patch.Context != nil {
				turn.Context = *m.Patch.Context
			}
		case CreateScenario:
			w.scenarios = append(w.scenarios, m.Scenario)
		case AppendDecider:
			w.history = append(w.history, m.Entry)
		case SetDeciderFlag:
			w.player(t, m.PlayerID).HasBeenDecider = m.Value
		case AwardPoints:
			w.player(t, m.PlayerID).TotalPoints += m.Points
		default:
			t.Fatalf("unexpected mutation %T", mutation)
		}
	}
}

func (w *world) player(t *testing.T, id string) *Player {
	t.Helper()
	for i := range w.players {
		if w.players[i].ID == id {
			return &w.players[i]
		}
	}
	t.Fatalf("player %s not found", id)
	return nil
}

func (w *world) removePlayer(id string) {
	kept := w.players[:0]
	for _, player := range w.players {
		if player.ID != id {
			kept = append(kept, player)
		}
	}
	w.players = kept
}

func (w *world) currentTurn(t *testing.T) *Turn {
	t.Helper()
	for _, turn := range w.turns {
		round := w.rounds[turn.RoundID]
		if round.Number == w.room.CurrentRound && turn.Number == w.room.CurrentTurn {
			return turn
		}
	}
	t.Fatalf("no turn for round %d turn %d", w.room.CurrentRound, w.room.CurrentTurn)
	return nil
}

func (w *world) roomSnapshot() Snapshot {
	room := w.room
	return Snapshot{Room: &room, Players: append([]Player(nil), w.players...)}
}

func (w *world) snapshot(turnID string) Snapshot {
	turn := *w.turns[turnID]
	round := *w.rounds[turn.RoundID]
	s := w.roomSnapshot()
	s.Round = &round
	s.Turn = &turn
	for _, entry := range w.history {
		if entry.RoundID == round.ID {
			s.History = append(s.History, entry)
		}
	}
	for _, answer := range w.answers {
		if answer.TurnID == turn.ID {
			s.Answers = append(s.Answers, answer)
		}
	}
	s.Votes = append(s.Votes, w.votes...)
	s.Scenarios = append(s.Scenarios, w.scenarios...)
	return s
}

func (w *world) answer(turnID, playerID string, score int) {
	w.answers = append(w.answers, Answer{
		ID:       "answer-" + turnID + "-" + playerID,
		RoomID:   w.room.ID,
		TurnID:   turnID,
		PlayerID: playerID,
		Text:     "an answer",
		Score:    &score,
		Feedback: ptr("ok"),
	})
}

// step applies a transition returned by the machine and fails on error.
func (w *world) step(t *testing.T) func(Transition, error) Transition {
	return func(tr Transition, err error) Transition {
		t.Helper()
		require.NoError(t, err)
		w.apply(t, tr)
		return tr
	}
}

// playTurn drives the current turn to completed with every player but the
// decider answering, then advances.
func playTurn(t *testing.T, w *world, m *Machine) Transition {
	t.Helper()
	turn := w.currentTurn(t)
	decider := turn.DeciderID

	w.step(t)(m.SelectCategory(w.snapshot(turn.ID), CategoryAction{ActorID: decider, Category: "Technology"}))
	w.step(t)(m.SelectScenario(w.snapshot(turn.ID), ScenarioAction{ActorID: decider, CustomText: "Your laptop dies mid-demo"}))
	for _, player := range w.players {
		if player.ID != decider {
			w.answer(turn.ID, player.ID, 6)
		}
	}
	tr := w.step(t)(m.ScoringComplete(w.snapshot(turn.ID)))
	require.Equal(t, KindTurnStatus, tr.Kind)
	w.step(t)(m.FinishVoting(w.snapshot(turn.ID)))
	return w.step(t)(m.Advance(w.snapshot(turn.ID)))
}

func startedWorld(t *testing.T, players, totalRounds int, picks ...int) (*world, *Machine) {
	t.Helper()
	w := newWorld(players, totalRounds)
	m := NewMachine(NewSequencePicker(picks...), sequentialIDs())
	tr := w.step(t)(m.Start(w.roomSnapshot(), "p1"))
	require.Equal(t, KindStart, tr.Kind)
	return w, m
}

func steps(tr Transition) []string {
	out := make([]string, 0, len(tr.Mutations))
	for _, mutation := range tr.Mutations {
		out = append(out, mutation.Step())
	}
	return out
}

func TestStartRequiresHost(t *testing.T) {
	w := newWorld(2, 1)
	m := NewMachine(NewSequencePicker(0), sequentialIDs())

	_, err := m.Start(w.roomSnapshot(), "p2")
	require.ErrorIs(t, err, ErrNotHost)
	assert.True(t, apperr.Is(err, apperr.TypeAuthorization))
}

func TestStartNeedsTwoPlayers(t *testing.T) {
	w := newWorld(1, 1)
	m := NewMachine(NewSequencePicker(0), sequentialIDs())

	tr, err := m.Start(w.roomSnapshot(), "p1")
	require.NoError(t, err)
	assert.False(t, tr.Applied())
	assert.Equal(t, "not enough players", tr.Reason)
}

func TestStartOpensFirstRound(t *testing.T) {
	w := newWorld(3, 2)
	m := NewMachine(NewSequencePicker(1), sequentialIDs())

	tr, err := m.Start(w.roomSnapshot(), "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"update room", "create round", "create turn", "record decider", "update player"}, steps(tr))
	assert.Equal(t, "p2", tr.DeciderID)
	w.apply(t, tr)

	assert.Equal(t, RoomInProgress, w.room.Status)
	turn := w.currentTurn(t)
	assert.Equal(t, TurnSelectingCategory, turn.Status)
	assert.True(t, w.player(t, "p2").HasBeenDecider)

	again, err := m.Start(w.roomSnapshot(), "p1")
	require.NoError(t, err)
	assert.False(t, again.Applied())
}

func TestSelectCategory(t *testing.T) {
	w, m := startedWorld(t, 2, 1, 0)
	turn := w.currentTurn(t)

	_, err := m.SelectCategory(w.snapshot(turn.ID), CategoryAction{ActorID: "p2", Category: "Food"})
	require.ErrorIs(t, err, ErrNotDecider)

	_, err = m.SelectCategory(w.snapshot(turn.ID), CategoryAction{ActorID: "p1", Category: "  "})
	require.ErrorIs(t, err, ErrCategoryRequired)

	tr := w.step(t)(m.SelectCategory(w.snapshot(turn.ID), CategoryAction{ActorID: "p1", Category: "Food"}))
	assert.Equal(t, []string{"update turn", "update round"}, steps(tr))
	assert.Equal(t, TurnSelectingScenario, w.turns[turn.ID].Status)
	assert.Equal(t, "Food", w.turns[turn.ID].Category)
	assert.Equal(t, TurnSelectingScenario, w.rounds[turn.RoundID].Status)

	again, err := m.SelectCategory(w.snapshot(turn.ID), CategoryAction{ActorID: "p1", Category: "Work"})
	require.NoError(t, err)
	assert.False(t, again.Applied())
	assert.Equal(t, "Food", w.turns[turn.ID].Category)
}

func TestSelectCategoryTimeoutPicksOption(t *testing.T) {
	w, m := startedWorld(t, 2, 1, 0, 2)
	turn := w.currentTurn(t)

	w.step(t)(m.SelectCategory(w.snapshot(turn.ID), CategoryAction{
		ActorID: "p2",
		Timeout: true,
		Options: []string{"Technology", "Work", "Dating"},
	}))
	assert.Equal(t, "Dating", w.turns[turn.ID].Category)
}

func TestSelectCategoryWrongPhase(t *testing.T) {
	w, m := startedWorld(t, 2, 1, 0)
	turn := w.currentTurn(t)
	w.turns[turn.ID].Status = TurnVoting

	_, err := m.SelectCategory(w.snapshot(turn.ID), CategoryAction{ActorID: "p1", Category: "Food"})
	require.ErrorIs(t, err, ErrWrongPhase)
}

func TestSelectScenario(t *testing.T) {
	w, m := startedWorld(t, 2, 1, 0)
	turn := w.currentTurn(t)
	w.step(t)(m.SelectCategory(w.snapshot(turn.ID), CategoryAction{ActorID: "p1", Category: "Food"}))
	w.scenarios = append(w.scenarios, Scenario{ID: "s1", RoomID: w.room.ID, TurnID: turn.ID, Text: "Burnt toast"})

	_, err := m.SelectScenario(w.snapshot(turn.ID), ScenarioAction{ActorID: "p1", ScenarioID: "other"})
	require.ErrorIs(t, err, ErrUnknownScenario)

	_, err = m.SelectScenario(w.snapshot(turn.ID), ScenarioAction{ActorID: "p1"})
	require.ErrorIs(t, err, ErrScenarioRequired)

	tr := w.step(t)(m.SelectScenario(w.snapshot(turn.ID), ScenarioAction{ActorID: "p1", ScenarioID: "s1", Context: " at brunch "}))
	assert.Equal(t, []string{"update turn", "update round"}, steps(tr))
	assert.Equal(t, TurnAnswering, w.turns[turn.ID].Status)
	assert.Equal(t, "s1", w.turns[turn.ID].ScenarioID)
	assert.Equal(t, "at brunch", w.turns[turn.ID].Context)
}

func TestSelectScenarioCustomTextCreatesScenarioFirst(t *testing.T) {
	w, m := startedWorld(t, 2, 1, 0)
	turn := w.currentTurn(t)
	w.step(t)(m.SelectCategory(w.snapshot(turn.ID), CategoryAction{ActorID: "p1", Category: "Food"}))

	tr := w.step(t)(m.SelectScenario(w.snapshot(turn.ID), ScenarioAction{ActorID: "p1", CustomText: "Soup in a sieve"}))
	assert.Equal(t, []string{"create scenario", "update turn", "update round"}, steps(tr))
	require.Len(t, w.scenarios, 1)
	assert.True(t, w.scenarios[0].IsCustom)
	assert.Equal(t, w.scenarios[0].ID, w.turns[turn.ID].ScenarioID)
}

func TestSelectScenarioTimeoutPicksGenerated(t *testing.T) {
	w, m := startedWorld(t, 2, 1, 0, 1)
	turn := w.currentTurn(t)
	w.step(t)(m.SelectCategory(w.snapshot(turn.ID), CategoryAction{ActorID: "p1", Category: "Food"}))
	w.scenarios = append(w.scenarios,
		Scenario{ID: "s1", RoomID: w.room.ID, TurnID: turn.ID, Text: "one"},
		Scenario{ID: "s2", RoomID: w.room.ID, TurnID: turn.ID, Text: "two"},
	)

	w.step(t)(m.SelectScenario(w.snapshot(turn.ID), ScenarioAction{ActorID: "p2", Timeout: true}))
	assert.Equal(t, "s2", w.turns[turn.ID].ScenarioID)
}

func TestExpectedAnswersFloor(t *testing.T) {
	tests := []struct {
		name            string
		players         int
		deciderAnswered bool
		deciderLeft     bool
		expected        int
	}{
		{name: "decider answered", players: 2, deciderAnswered: true, expected: 2},
		{name: "decider excluded", players: 2, expected: 1},
		{name: "larger room excluded", players: 5, expected: 4},
		{name: "decider left", players: 3, deciderLeft: true, expected: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := startedWorld(t, tt.players, 1, 0)
			turn := w.currentTurn(t)
			if tt.deciderAnswered {
				w.answer(turn.ID, turn.DeciderID, 7)
			}
			if tt.deciderLeft {
				w.removePlayer(turn.DeciderID)
			}
			assert.Equal(t, tt.expected, w.snapshot(turn.ID).ExpectedAnswers())
		})
	}
}

// Two players, one round: the floor is 1 answer when the decider stays out and
// 2 once the decider answers.
func TestScoringCompleteFloorArithmetic(t *testing.T) {
	t.Run("decider excluded", func(t *testing.T) {
		w, m := startedWorld(t, 2, 1, 0)
		turn := w.currentTurn(t)
		w.step(t)(m.SelectCategory(w.snapshot(turn.ID), CategoryAction{ActorID: "p1", Category: "Technology"}))
		w.step(t)(m.SelectScenario(w.snapshot(turn.ID), ScenarioAction{ActorID: "p1", CustomText: "Printer jam"}))

		tr, err := m.ScoringComplete(w.snapshot(turn.ID))
		require.NoError(t, err)
		assert.Equal(t, "waiting for answers", tr.Reason)

		w.answer(turn.ID, "p2", 8)
		tr = w.step(t)(m.ScoringComplete(w.snapshot(turn.ID)))
		assert.Equal(t, TurnVoting, tr.TurnStatus)
		assert.True(t, w.room.RoundVotingPhase)
	})

	t.Run("decider answered", func(t *testing.T) {
		w, m := startedWorld(t, 2, 1, 0)
		turn := w.currentTurn(t)
		w.step(t)(m.SelectCategory(w.snapshot(turn.ID), CategoryAction{ActorID: "p1", Category: "Technology"}))
		w.step(t)(m.SelectScenario(w.snapshot(turn.ID), ScenarioAction{ActorID: "p1", CustomText: "Printer jam"}))

		w.answer(turn.ID, "p1", 8)
		tr, err := m.ScoringComplete(w.snapshot(turn.ID))
		require.NoError(t, err)
		assert.False(t, tr.Applied())
		assert.Equal(t, 2, w.snapshot(turn.ID).ExpectedAnswers())

		w.answer(turn.ID, "p2", 4)
		w.step(t)(m.ScoringComplete(w.snapshot(turn.ID)))
		assert.Equal(t, TurnVoting, w.turns[turn.ID].Status)
	})
}

func TestScoringCompleteWaitsForScores(t *testing.T) {
	w, m := startedWorld(t, 2, 1, 0)
	turn := w.currentTurn(t)
	w.step(t)(m.SelectCategory(w.snapshot(turn.ID), CategoryAction{ActorID: "p1", Category: "Technology"}))
	w.step(t)(m.SelectScenario(w.snapshot(turn.ID), ScenarioAction{ActorID: "p1", CustomText: "Printer jam"}))
	w.answers = append(w.answers, Answer{ID: "a1", RoomID: w.room.ID, TurnID: turn.ID, PlayerID: "p2", Text: "kick it"})

	tr, err := m.ScoringComplete(w.snapshot(turn.ID))
	require.NoError(t, err)
	assert.Equal(t, "answers still being scored", tr.Reason)
}

func TestFinishVotingAwardsPoints(t *testing.T) {
	w, m := startedWorld(t, 3, 1, 0)
	turn := w.currentTurn(t)
	w.step(t)(m.SelectCategory(w.snapshot(turn.ID), CategoryAction{ActorID: "p1", Category: "Work"}))
	w.step(t)(m.SelectScenario(w.snapshot(turn.ID), ScenarioAction{ActorID: "p1", CustomText: "Reply all"}))
	w.answer(turn.ID, "p2", 7)
	w.answer(turn.ID, "p3", 3)
	w.step(t)(m.ScoringComplete(w.snapshot(turn.ID)))
	w.votes = append(w.votes,
		Vote{ID: "v1", RoomID: w.room.ID, AnswerID: "answer-" + turn.ID + "-p3", VoterID: "p1"},
		Vote{ID: "v2", RoomID: w.room.ID, AnswerID: "answer-" + turn.ID + "-p3", VoterID: "p1"},
	)

	w.step(t)(m.FinishVoting(w.snapshot(turn.ID)))
	assert.Equal(t, TurnCompleted, w.turns[turn.ID].Status)
	assert.False(t, w.room.RoundVotingPhase)
	assert.Equal(t, 7, w.player(t, "p2").TotalPoints)
	assert.Equal(t, 5, w.player(t, "p3").TotalPoints)

	again, err := m.FinishVoting(w.snapshot(turn.ID))
	require.NoError(t, err)
	assert.Equal(t, "voting already finished", again.Reason)
	assert.Equal(t, 7, w.player(t, "p2").TotalPoints)
}

func TestTurnStatusesFollowEdges(t *testing.T) {
	w, m := startedWorld(t, 2, 1, 0, 0)
	first := w.currentTurn(t).ID
	playTurn(t, w, m)

	assert.Equal(t, []TurnStatus{
		TurnSelectingCategory,
		TurnSelectingScenario,
		TurnAnswering,
		TurnVoting,
		TurnCompleted,
	}, w.statuses[first])
}

func TestTwoPlayersSingleRoundEndsGame(t *testing.T) {
	w, m := startedWorld(t, 2, 1, 0, 0)
	first := w.currentTurn(t)
	require.Equal(t, "p1", first.DeciderID)

	tr := playTurn(t, w, m)
	require.Equal(t, KindNextTurn, tr.Kind)
	second := w.currentTurn(t)
	assert.Equal(t, "p2", second.DeciderID)
	assert.Equal(t, first.RoundID, second.RoundID)
	assert.Equal(t, 2, second.Number)
	assert.Equal(t, 2, w.rounds[first.RoundID].CurrentTurn)

	tr = playTurn(t, w, m)
	require.Equal(t, KindGameOver, tr.Kind)
	assert.Equal(t, RoomCompleted, w.room.Status)
	assert.True(t, w.rounds[first.RoundID].IsComplete)
	assert.Len(t, w.rounds, 1)
	assert.Len(t, w.history, 2)

	after, err := m.Advance(w.snapshot(second.ID))
	require.NoError(t, err)
	assert.Equal(t, "game is over", after.Reason)
}

func TestThreePlayersOpenSecondRound(t *testing.T) {
	w, m := startedWorld(t, 3, 2, 0, 0, 2)
	roundOne := w.currentTurn(t).RoundID

	for i := 0; i < 2; i++ {
		tr := playTurn(t, w, m)
		require.Equal(t, KindNextTurn, tr.Kind)
	}
	for _, player := range w.players {
		assert.True(t, player.HasBeenDecider, player.ID)
	}

	tr := playTurn(t, w, m)
	require.Equal(t, KindNextRound, tr.Kind)
	assert.True(t, w.rounds[roundOne].IsComplete)
	assert.Equal(t, 2, w.room.CurrentRound)
	assert.Equal(t, 1, w.room.CurrentTurn)

	turn := w.currentTurn(t)
	assert.Equal(t, "p3", turn.DeciderID)
	assert.Equal(t, 2, w.rounds[turn.RoundID].Number)
	for _, player := range w.players {
		assert.Equal(t, player.ID == "p3", player.HasBeenDecider, player.ID)
	}

	seen := map[string]int{}
	for _, entry := range w.history {
		if entry.RoundID == roundOne {
			seen[entry.PlayerID]++
		}
	}
	assert.Equal(t, map[string]int{"p1": 1, "p2": 1, "p3": 1}, seen)
}

func TestAdvanceExcludesDepartedPlayer(t *testing.T) {
	w, m := startedWorld(t, 3, 1, 0, 0)
	first := w.currentTurn(t)
	require.Equal(t, "p1", first.DeciderID)

	playTurn(t, w, m)
	second := w.currentTurn(t)
	require.Equal(t, "p2", second.DeciderID)

	// p2 leaves while deciding; the turn is finished by timeouts.
	w.removePlayer("p2")
	w.step(t)(m.SelectCategory(w.snapshot(second.ID), CategoryAction{Timeout: true, Options: []string{"Food"}}))
	w.step(t)(m.SelectScenario(w.snapshot(second.ID), ScenarioAction{Timeout: true, CustomText: "Cold coffee"}))
	assert.Equal(t, 2, w.snapshot(second.ID).ExpectedAnswers())
	w.answer(second.ID, "p1", 5)
	w.answer(second.ID, "p3", 5)
	w.step(t)(m.ScoringComplete(w.snapshot(second.ID)))
	w.step(t)(m.FinishVoting(w.snapshot(second.ID)))

	tr := w.step(t)(m.Advance(w.snapshot(second.ID)))
	require.Equal(t, KindNextTurn, tr.Kind)
	assert.Equal(t, "p3", tr.DeciderID)

	tr = playTurn(t, w, m)
	assert.Equal(t, KindGameOver, tr.Kind)
	assert.Equal(t, RoomCompleted, w.room.Status)
}

func TestCollapseEndsGame(t *testing.T) {
	w, m := startedWorld(t, 2, 3, 0)
	turn := w.currentTurn(t)
	w.removePlayer("p2")

	tr, err := m.Advance(w.snapshot(turn.ID))
	require.NoError(t, err)
	assert.Equal(t, KindGameOver, tr.Kind)

	tr, err = m.Decide(w.snapshot(turn.ID))
	require.NoError(t, err)
	assert.Equal(t, KindGameOver, tr.Kind)

	w.step(t)(m.Depart(w.roomSnapshot()))
	assert.Equal(t, RoomCompleted, w.room.Status)
}

func TestDepartLeavesPlayableRoomAlone(t *testing.T) {
	w, m := startedWorld(t, 3, 1, 0)
	w.removePlayer("p3")

	tr, err := m.Depart(w.roomSnapshot())
	require.NoError(t, err)
	assert.False(t, tr.Applied())

	waiting := newWorld(1, 1)
	tr, err = m.Depart(waiting.roomSnapshot())
	require.NoError(t, err)
	assert.False(t, tr.Applied())
}

func TestAdvanceIgnoresStaleTurn(t *testing.T) {
	w, m := startedWorld(t, 3, 1, 0, 0)
	first := w.currentTurn(t)
	playTurn(t, w, m)

	tr, err := m.Advance(w.snapshot(first.ID))
	require.NoError(t, err)
	assert.Equal(t, "turn already advanced", tr.Reason)
}

func TestAdvanceCompleteRoundSkipsTurnStatus(t *testing.T) {
	w, m := startedWorld(t, 3, 2, 0, 0)
	turn := w.currentTurn(t)
	require.Equal(t, TurnSelectingCategory, turn.Status)
	w.rounds[turn.RoundID].IsComplete = true

	tr := w.step(t)(m.Advance(w.snapshot(turn.ID)))
	require.Equal(t, KindNextRound, tr.Kind)
	assert.Equal(t, 2, w.room.CurrentRound)
	assert.Equal(t, 1, w.room.CurrentTurn)

	tr, err := m.Advance(w.snapshot(turn.ID))
	require.NoError(t, err)
	assert.Equal(t, "turn already advanced", tr.Reason)
}

func TestDecideDispatch(t *testing.T) {
	w, m := startedWorld(t, 2, 1, 0)
	turn := w.currentTurn(t)

	tr, err := m.Decide(w.snapshot(turn.ID))
	require.NoError(t, err)
	assert.Equal(t, "waiting for player action", tr.Reason)

	w.step(t)(m.SelectCategory(w.snapshot(turn.ID), CategoryAction{ActorID: "p1", Category: "Food"}))
	w.step(t)(m.SelectScenario(w.snapshot(turn.ID), ScenarioAction{ActorID: "p1", CustomText: "Spilled soup"}))
	w.answer(turn.ID, "p2", 9)

	tr = w.step(t)(m.Decide(w.snapshot(turn.ID)))
	assert.Equal(t, TurnVoting, tr.TurnStatus)
}

func TestInvalidSnapshot(t *testing.T) {
	m := NewMachine(nil, nil)

	_, err := m.Advance(Snapshot{})
	require.ErrorIs(t, err, ErrInvalidSnapshot)

	w, _ := startedWorld(t, 2, 1, 0)
	turn := w.currentTurn(t)
	s := w.snapshot(turn.ID)
	s.Round = nil
	_, err = m.Decide(s)
	require.ErrorIs(t, err, ErrInvalidSnapshot)

	s = w.snapshot(turn.ID)
	s.Turn.RoundID = "elsewhere"
	_, err = m.FinishVoting(s)
	require.ErrorIs(t, err, ErrInvalidSnapshot)
	assert.True(t, apperr.Is(err, apperr.TypeInternal))
}

package game

import (
	"strings"

	"github.com/google/uuid"
)

// Machine computes transitions from snapshots. It performs no I/O; randomness
// and id allocation are injected.
type Machine struct {
	picker Picker
	newID  func() string
}

func NewMachine(picker Picker, newID func() string) *Machine {
	if picker == nil {
		picker = RandomPicker{}
	}
	if newID == nil {
		newID = uuid.NewString
	}
	return &Machine{picker: picker, newID: newID}
}

type CategoryAction struct {
	ActorID  string
	Category string
	// Timeout marks a timer-expired submission: anyone may send it and an
	// empty category is replaced by a random one of Options.
	Timeout bool
	Options []string
}

type ScenarioAction struct {
	ActorID    string
	ScenarioID string
	CustomText string
	Context    string
	Timeout    bool
}

// Start opens round 1 with a random first decider.
func (m *Machine) Start(s Snapshot, actorID string) (Transition, error) {
	if err := s.validateRoom(); err != nil {
		return Transition{}, err
	}
	room := s.Room
	if room.HostID != actorID {
		return Transition{}, ErrNotHost
	}
	if room.Status != RoomWaiting {
		return none("game already started"), nil
	}
	players := s.orderedPlayers()
	if len(players) < 2 {
		return none("not enough players"), nil
	}
	chosen := players[m.picker.Pick(len(players))]

	round := Round{
		ID:          m.newID(),
		RoomID:      room.ID,
		Number:      1,
		Status:      TurnSelectingCategory,
		CurrentTurn: 1,
	}
	turn := Turn{
		ID:        m.newID(),
		RoomID:    room.ID,
		RoundID:   round.ID,
		Number:    1,
		DeciderID: chosen.ID,
		Status:    TurnSelectingCategory,
	}
	mutations := []Mutation{
		UpdateRoom{
			RoomID: room.ID,
			Patch: RoomPatch{
				Status:           ptr(RoomInProgress),
				CurrentRound:     ptr(1),
				CurrentTurn:      ptr(1),
				RoundVotingPhase: ptr(false),
			},
			Previous: RoomPatch{
				Status:           ptr(room.Status),
				CurrentRound:     ptr(room.CurrentRound),
				CurrentTurn:      ptr(room.CurrentTurn),
				RoundVotingPhase: ptr(room.RoundVotingPhase),
			},
		},
		CreateRound{Round: round},
		CreateTurn{Turn: turn},
		AppendDecider{Entry: m.entry(room.ID, round.ID, chosen.ID, 1)},
	}
	mutations = append(mutations, deciderFlags(players, chosen.ID)...)
	return Transition{
		Kind:       KindStart,
		Mutations:  mutations,
		TurnStatus: TurnSelectingCategory,
		DeciderID:  chosen.ID,
		RoundID:    round.ID,
		TurnID:     turn.ID,
		Round:      1,
		Turn:       1,
	}, nil
}

func (m *Machine) SelectCategory(s Snapshot, action CategoryAction) (Transition, error) {
	if err := s.validateTurn(); err != nil {
		return Transition{}, err
	}
	turn := s.Turn
	if s.Room.Status == RoomCompleted {
		return Transition{}, ErrGameOver
	}
	if !action.Timeout && action.ActorID != turn.DeciderID {
		return Transition{}, ErrNotDecider
	}
	if turn.Status == TurnSelectingScenario && turn.Category != "" {
		return none("category already selected"), nil
	}
	if turn.Status != TurnSelectingCategory {
		return Transition{}, ErrWrongPhase
	}
	category := strings.TrimSpace(action.Category)
	if category == "" && action.Timeout && len(action.Options) > 0 {
		category = action.Options[m.picker.Pick(len(action.Options))]
	}
	if category == "" {
		return Transition{}, ErrCategoryRequired
	}
	return m.turnStatus(s, TurnSelectingScenario, TurnPatch{Category: ptr(category)}, TurnPatch{Category: ptr(turn.Category)}), nil
}

func (m *Machine) SelectScenario(s Snapshot, action ScenarioAction) (Transition, error) {
	if err := s.validateTurn(); err != nil {
		return Transition{}, err
	}
	turn := s.Turn
	if s.Room.Status == RoomCompleted {
		return Transition{}, ErrGameOver
	}
	if !action.Timeout && action.ActorID != turn.DeciderID {
		return Transition{}, ErrNotDecider
	}
	if turn.Status == TurnAnswering && turn.ScenarioID != "" {
		return none("scenario already selected"), nil
	}
	if turn.Status != TurnSelectingScenario {
		return Transition{}, ErrWrongPhase
	}

	var created []Mutation
	scenarioID := ""
	candidates := s.turnScenarios()
	switch {
	case strings.TrimSpace(action.CustomText) != "":
		scenario := Scenario{
			ID:       m.newID(),
			RoomID:   s.Room.ID,
			TurnID:   turn.ID,
			Text:     strings.TrimSpace(action.CustomText),
			IsCustom: true,
		}
		created = append(created, CreateScenario{Scenario: scenario})
		scenarioID = scenario.ID
	case action.ScenarioID != "":
		for _, scenario := range candidates {
			if scenario.ID == action.ScenarioID {
				scenarioID = scenario.ID
				break
			}
		}
		if scenarioID == "" {
			return Transition{}, ErrUnknownScenario
		}
	case action.Timeout && len(candidates) > 0:
		scenarioID = candidates[m.picker.Pick(len(candidates))].ID
	default:
		return Transition{}, ErrScenarioRequired
	}

	next := m.turnStatus(s, TurnAnswering,
		TurnPatch{ScenarioID: ptr(scenarioID), Context: ptr(strings.TrimSpace(action.Context))},
		TurnPatch{ScenarioID: ptr(turn.ScenarioID), Context: ptr(turn.Context)},
	)
	next.Mutations = append(created, next.Mutations...)
	return next, nil
}

// ScoringComplete moves an answering turn to voting once the answer floor is
// met and every answer carries a score.
func (m *Machine) ScoringComplete(s Snapshot) (Transition, error) {
	if err := s.validateTurn(); err != nil {
		return Transition{}, err
	}
	if s.Room.Status == RoomCompleted {
		return none("game is over"), nil
	}
	if s.Turn.Status != TurnAnswering {
		return none("turn is not answering"), nil
	}
	if !s.AnswersReady() {
		return none("waiting for answers"), nil
	}
	for _, answer := range s.Answers {
		if answer.TurnID == s.Turn.ID && !answer.Scored() {
			return none("answers still being scored"), nil
		}
	}
	next := m.turnStatus(s, TurnVoting, TurnPatch{}, TurnPatch{})
	next.Mutations = append(next.Mutations, UpdateRoom{
		RoomID:   s.Room.ID,
		Patch:    RoomPatch{RoundVotingPhase: ptr(true)},
		Previous: RoomPatch{RoundVotingPhase: ptr(s.Room.RoundVotingPhase)},
	})
	return next, nil
}

// FinishVoting completes a voting turn and awards each present author their
// score plus the votes their answer received.
func (m *Machine) FinishVoting(s Snapshot) (Transition, error) {
	if err := s.validateTurn(); err != nil {
		return Transition{}, err
	}
	if s.Room.Status == RoomCompleted {
		return none("game is over"), nil
	}
	switch s.Turn.Status {
	case TurnCompleted:
		return none("voting already finished"), nil
	case TurnVoting:
	default:
		return none("turn is not voting"), nil
	}
	next := m.turnStatus(s, TurnCompleted, TurnPatch{}, TurnPatch{})
	next.Mutations = append(next.Mutations, UpdateRoom{
		RoomID:   s.Room.ID,
		Patch:    RoomPatch{RoundVotingPhase: ptr(false)},
		Previous: RoomPatch{RoundVotingPhase: ptr(s.Room.RoundVotingPhase)},
	})
	for _, answer := range s.Answers {
		if answer.TurnID != s.Turn.ID || !s.hasPlayer(answer.PlayerID) {
			continue
		}
		points := s.votesFor(answer.ID)
		if answer.Score != nil {
			points += *answer.Score
		}
		if points > 0 {
			next.Mutations = append(next.Mutations, AwardPoints{PlayerID: answer.PlayerID, Points: points})
		}
	}
	return next, nil
}

// Advance runs after a turn completes: it opens the next turn for an eligible
// decider, opens the next round, or ends the game.
func (m *Machine) Advance(s Snapshot) (Transition, error) {
	if err := s.validateTurn(); err != nil {
		return Transition{}, err
	}
	room, round, turn := s.Room, s.Round, s.Turn
	switch room.Status {
	case RoomCompleted:
		return none("game is over"), nil
	case RoomWaiting:
		return none("game not started"), nil
	}
	if len(s.Players) <= 1 {
		return m.gameOver(s, "not enough players"), nil
	}
	// a round already flagged complete advances whatever its turn's status
	if round.IsComplete {
		if round.Number < room.CurrentRound {
			return none("turn already advanced"), nil
		}
		return m.advanceRound(s), nil
	}
	if turn.Status != TurnCompleted {
		return none("turn not completed"), nil
	}
	if round.Number < room.CurrentRound || turn.Number < round.CurrentTurn {
		return none("turn already advanced"), nil
	}

	eligible := s.EligibleDeciders()
	if len(eligible) == 0 {
		return m.advanceRound(s), nil
	}
	chosen := eligible[m.picker.Pick(len(eligible))]
	number := round.CurrentTurn + 1
	next := Turn{
		ID:        m.newID(),
		RoomID:    room.ID,
		RoundID:   round.ID,
		Number:    number,
		DeciderID: chosen.ID,
		Status:    TurnSelectingCategory,
	}
	return Transition{
		Kind: KindNextTurn,
		Mutations: []Mutation{
			UpdateRoom{
				RoomID:   room.ID,
				Patch:    RoomPatch{CurrentTurn: ptr(number), RoundVotingPhase: ptr(false)},
				Previous: RoomPatch{CurrentTurn: ptr(room.CurrentTurn), RoundVotingPhase: ptr(room.RoundVotingPhase)},
			},
			UpdateRound{
				RoundID:  round.ID,
				Patch:    RoundPatch{CurrentTurn: ptr(number), Status: ptr(TurnSelectingCategory)},
				Previous: RoundPatch{CurrentTurn: ptr(round.CurrentTurn), Status: ptr(round.Status)},
			},
			CreateTurn{Turn: next},
			AppendDecider{Entry: m.entry(room.ID, round.ID, chosen.ID, number)},
			SetDeciderFlag{PlayerID: chosen.ID, Value: true, Previous: chosen.HasBeenDecider},
		},
		TurnStatus: TurnSelectingCategory,
		DeciderID:  chosen.ID,
		RoundID:    round.ID,
		TurnID:     next.ID,
		Round:      round.Number,
		Turn:       number,
	}, nil
}

// Depart checks a room after a player left. An in-progress room left with one
// player or none is over.
func (m *Machine) Depart(s Snapshot) (Transition, error) {
	if err := s.validateRoom(); err != nil {
		return Transition{}, err
	}
	if s.Room.Status != RoomInProgress || len(s.Players) > 1 {
		return none("room still playable"), nil
	}
	return m.gameOver(s, "not enough players"), nil
}

var automaticTransitions = map[TurnStatus]func(m *Machine, s Snapshot) (Transition, error){
	TurnAnswering: (*Machine).ScoringComplete,
	TurnCompleted: (*Machine).Advance,
}

// Decide applies whichever automatic transition the snapshot allows. Phases
// that wait on a player or the host report no transition.
func (m *Machine) Decide(s Snapshot) (Transition, error) {
	if err := s.validateTurn(); err != nil {
		return Transition{}, err
	}
	if s.Room.Status == RoomInProgress && len(s.Players) <= 1 {
		return m.gameOver(s, "not enough players"), nil
	}
	if advance, ok := automaticTransitions[s.Turn.Status]; ok {
		return advance(m, s)
	}
	return none("waiting for player action"), nil
}

func (m *Machine) advanceRound(s Snapshot) Transition {
	room, round := s.Room, s.Round
	var closeRound []Mutation
	if !round.IsComplete {
		closeRound = append(closeRound, UpdateRound{
			RoundID:  round.ID,
			Patch:    RoundPatch{IsComplete: ptr(true), Status: ptr(TurnCompleted)},
			Previous: RoundPatch{IsComplete: ptr(false), Status: ptr(round.Status)},
		})
	}
	if room.CurrentRound >= room.TotalRounds {
		next := Transition{
			Kind: KindGameOver,
			Mutations: append([]Mutation{UpdateRoom{
				RoomID:   room.ID,
				Patch:    RoomPatch{Status: ptr(RoomCompleted), RoundVotingPhase: ptr(false)},
				Previous: RoomPatch{Status: ptr(room.Status), RoundVotingPhase: ptr(room.RoundVotingPhase)},
			}}, closeRound...),
			Round: room.CurrentRound,
			Turn:  room.CurrentTurn,
		}
		return next
	}

	players := s.orderedPlayers()
	chosen := players[m.picker.Pick(len(players))]
	number := room.CurrentRound + 1
	nextRound := Round{
		ID:          m.newID(),
		RoomID:      room.ID,
		Number:      number,
		Status:      TurnSelectingCategory,
		CurrentTurn: 1,
	}
	nextTurn := Turn{
		ID:        m.newID(),
		RoomID:    room.ID,
		RoundID:   nextRound.ID,
		Number:    1,
		DeciderID: chosen.ID,
		Status:    TurnSelectingCategory,
	}
	mutations := []Mutation{
		UpdateRoom{
			RoomID: room.ID,
			Patch:  RoomPatch{CurrentRound: ptr(number), CurrentTurn: ptr(1), RoundVotingPhase: ptr(false)},
			Previous: RoomPatch{
				CurrentRound:     ptr(room.CurrentRound),
				CurrentTurn:      ptr(room.CurrentTurn),
				RoundVotingPhase: ptr(room.RoundVotingPhase),
			},
		},
	}
	mutations = append(mutations, closeRound...)
	mutations = append(mutations,
		CreateRound{Round: nextRound},
		CreateTurn{Turn: nextTurn},
		AppendDecider{Entry: m.entry(room.ID, nextRound.ID, chosen.ID, 1)},
	)
	mutations = append(mutations, deciderFlags(players, chosen.ID)...)
	return Transition{
		Kind:       KindNextRound,
		Mutations:  mutations,
		TurnStatus: TurnSelectingCategory,
		DeciderID:  chosen.ID,
		RoundID:    nextRound.ID,
		TurnID:     nextTurn.ID,
		Round:      number,
		Turn:       1,
	}
}

func (m *Machine) gameOver(s Snapshot, reason string) Transition {
	room := s.Room
	return Transition{
		Kind:   KindGameOver,
		Reason: reason,
		Mutations: []Mutation{UpdateRoom{
			RoomID:   room.ID,
			Patch:    RoomPatch{Status: ptr(RoomCompleted), RoundVotingPhase: ptr(false)},
			Previous: RoomPatch{Status: ptr(room.Status), RoundVotingPhase: ptr(room.RoundVotingPhase)},
		}},
		Round: room.CurrentRound,
		Turn:  room.CurrentTurn,
	}
}

// turnStatus moves the turn one edge forward and mirrors the status on its round.
func (m *Machine) turnStatus(s Snapshot, target TurnStatus, patch, previous TurnPatch) Transition {
	turn, round := s.Turn, s.Round
	patch.Status = ptr(target)
	previous.Status = ptr(turn.Status)
	return Transition{
		Kind: KindTurnStatus,
		Mutations: []Mutation{
			UpdateTurn{TurnID: turn.ID, From: turn.Status, Patch: patch, Previous: previous},
			UpdateRound{
				RoundID:  round.ID,
				Patch:    RoundPatch{Status: ptr(target)},
				Previous: RoundPatch{Status: ptr(round.Status)},
			},
		},
		TurnStatus: target,
		DeciderID:  turn.DeciderID,
		RoundID:    round.ID,
		TurnID:     turn.ID,
		Round:      round.Number,
		Turn:       turn.Number,
	}
}

func (m *Machine) entry(roomID, roundID, playerID string, turnNumber int) DeciderEntry {
	return DeciderEntry{
		ID:         m.newID(),
		RoomID:     roomID,
		RoundID:    roundID,
		PlayerID:   playerID,
		TurnNumber: turnNumber,
	}
}

// deciderFlags clears has_been_decider for everyone but chosen and sets it on chosen.
func deciderFlags(players []Player, chosenID string) []Mutation {
	var out []Mutation
	var chosen Player
	for _, player := range players {
		if player.ID == chosenID {
			chosen = player
			continue
		}
		if player.HasBeenDecider {
			out = append(out, SetDeciderFlag{PlayerID: player.ID, Value: false, Previous: true})
		}
	}
	return append(out, SetDeciderFlag{PlayerID: chosenID, Value: true, Previous: chosen.HasBeenDecider})
}

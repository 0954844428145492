package game

import "time"

type RoomStatus string

const (
	RoomWaiting    RoomStatus = "waiting"
	RoomInProgress RoomStatus = "in_progress"
	RoomCompleted  RoomStatus = "completed"
)

// TurnStatus is the per-turn phase. Rounds mirror the status of their active turn.
type TurnStatus string

const (
	TurnSelectingCategory TurnStatus = "selecting_category"
	TurnSelectingScenario TurnStatus = "selecting_scenario"
	TurnAnswering         TurnStatus = "answering"
	TurnVoting            TurnStatus = "voting"
	TurnCompleted         TurnStatus = "completed"
)

// turnEdges is the only set of legal turn transitions. There are no backward edges.
var turnEdges = map[TurnStatus]TurnStatus{
	TurnSelectingCategory: TurnSelectingScenario,
	TurnSelectingScenario: TurnAnswering,
	TurnAnswering:         TurnVoting,
	TurnVoting:            TurnCompleted,
}

func (s TurnStatus) Valid() bool {
	if s == TurnCompleted {
		return true
	}
	_, ok := turnEdges[s]
	return ok
}

// Next returns the status that follows s, if any.
func (s TurnStatus) Next() (TurnStatus, bool) {
	next, ok := turnEdges[s]
	return next, ok
}

func (s TurnStatus) CanTransitionTo(target TurnStatus) bool {
	next, ok := turnEdges[s]
	return ok && next == target
}

type Room struct {
	ID               string     `json:"id"`
	JoinCode         string     `json:"joinCode"`
	Status           RoomStatus `json:"status"`
	TotalRounds      int        `json:"totalRounds"`
	CurrentRound     int        `json:"currentRound"`
	CurrentTurn      int        `json:"currentTurn"`
	RoundVotingPhase bool       `json:"roundVotingPhase"`
	HostID           string     `json:"hostId"`
	CreatedAt        time.Time  `json:"createdAt"`
}

type Round struct {
	ID          string     `json:"id"`
	RoomID      string     `json:"roomId"`
	Number      int        `json:"number"`
	Status      TurnStatus `json:"status"`
	IsComplete  bool       `json:"isComplete"`
	CurrentTurn int        `json:"currentTurn"`
}

// Turn holds one decider's cycle. Category, ScenarioID and Context are empty
// until chosen.
type Turn struct {
	ID         string     `json:"id"`
	RoomID     string     `json:"roomId"`
	RoundID    string     `json:"roundId"`
	Number     int        `json:"number"`
	DeciderID  string     `json:"deciderId"`
	Status     TurnStatus `json:"status"`
	Category   string     `json:"category"`
	ScenarioID string     `json:"scenarioId"`
	Context    string     `json:"context"`
}

type Player struct {
	ID             string    `json:"id"`
	RoomID         string    `json:"roomId"`
	Nickname       string    `json:"nickname"`
	IsHost         bool      `json:"isHost"`
	TotalPoints    int       `json:"totalPoints"`
	HasBeenDecider bool      `json:"hasBeenDecider"`
	JoinedAt       time.Time `json:"joinedAt"`
}

// DeciderEntry records that a player decided a turn of a round.
type DeciderEntry struct {
	ID         string `json:"id"`
	RoomID     string `json:"roomId"`
	RoundID    string `json:"roundId"`
	PlayerID   string `json:"playerId"`
	TurnNumber int    `json:"turnNumber"`
}

type Answer struct {
	ID       string  `json:"id"`
	RoomID   string  `json:"roomId"`
	TurnID   string  `json:"turnId"`
	PlayerID string  `json:"playerId"`
	Text     string  `json:"text"`
	Score    *int    `json:"score,omitempty"`
	Feedback *string `json:"feedback,omitempty"`
}

func (a Answer) Scored() bool {
	return a.Score != nil
}

type Vote struct {
	ID       string `json:"id"`
	RoomID   string `json:"roomId"`
	AnswerID string `json:"answerId"`
	VoterID  string `json:"voterId"`
}

type Scenario struct {
	ID       string `json:"id"`
	RoomID   string `json:"roomId"`
	TurnID   string `json:"turnId"`
	Text     string `json:"text"`
	IsCustom bool   `json:"isCustom"`
}

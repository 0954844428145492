package game

// RoomPatch, RoundPatch and TurnPatch list the columns a mutation writes. Nil
// fields are left untouched.
type RoomPatch struct {
	Status           *RoomStatus
	CurrentRound     *int
	CurrentTurn      *int
	RoundVotingPhase *bool
}

type RoundPatch struct {
	Status      *TurnStatus
	IsComplete  *bool
	CurrentTurn *int
}

type TurnPatch struct {
	Status     *TurnStatus
	Category   *string
	ScenarioID *string
	Context    *string
}

// Mutation is one record write required to realize a transition. Each
// mutation carries what is needed to undo it.
type Mutation interface {
	Step() string
}

type UpdateRoom struct {
	RoomID   string
	Patch    RoomPatch
	Previous RoomPatch
}

type CreateRound struct {
	Round Round
}

type UpdateRound struct {
	RoundID  string
	Patch    RoundPatch
	Previous RoundPatch
}

type CreateTurn struct {
	Turn Turn
}

// UpdateTurn is applied as a compare-and-set on From.
type UpdateTurn struct {
	TurnID   string
	From     TurnStatus
	Patch    TurnPatch
	Previous TurnPatch
}

type CreateScenario struct {
	Scenario Scenario
}

type AppendDecider struct {
	Entry DeciderEntry
}

type SetDeciderFlag struct {
	PlayerID string
	Value    bool
	Previous bool
}

type AwardPoints struct {
	PlayerID string
	Points   int
}

func (UpdateRoom) Step() string     { return "update room" }
func (CreateRound) Step() string    { return "create round" }
func (UpdateRound) Step() string    { return "update round" }
func (CreateTurn) Step() string     { return "create turn" }
func (UpdateTurn) Step() string     { return "update turn" }
func (CreateScenario) Step() string { return "create scenario" }
func (AppendDecider) Step() string  { return "record decider" }
func (SetDeciderFlag) Step() string { return "update player" }
func (AwardPoints) Step() string    { return "award points" }

type Kind string

const (
	KindNone       Kind = "none"
	KindStart      Kind = "start"
	KindTurnStatus Kind = "turn_status"
	KindNextTurn   Kind = "next_turn"
	KindNextRound  Kind = "next_round"
	KindGameOver   Kind = "game_over"
)

// Transition is the outcome of a decision. KindNone is a normal result that
// means the snapshot is not ready to move; Reason says why.
type Transition struct {
	Kind       Kind
	Reason     string
	Mutations  []Mutation
	TurnStatus TurnStatus
	DeciderID  string
	RoundID    string
	TurnID     string
	Round      int
	Turn       int
}

func (t Transition) Applied() bool {
	return t.Kind != KindNone
}

func none(reason string) Transition {
	return Transition{Kind: KindNone, Reason: reason}
}

func ptr[T any](value T) *T {
	return &value
}

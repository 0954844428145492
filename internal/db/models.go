package db

import (
	"time"

	"gorm.io/datatypes"
)

// Ids are uuid strings allocated by the application so a transition can name
// rows before they are written. RoomID is carried on every child row so change
// feeds can filter by room.

type Room struct {
	ID               string    `gorm:"primaryKey;size:36"`
	JoinCode         string    `gorm:"size:12;uniqueIndex;not null"`
	Status           string    `gorm:"size:32;not null"`
	TotalRounds      int       `gorm:"not null"`
	CurrentRound     int       `gorm:"not null;default:1"`
	CurrentTurn      int       `gorm:"not null;default:1"`
	RoundVotingPhase bool      `gorm:"not null;default:false"`
	HostID           string    `gorm:"size:36"`
	CreatedAt        time.Time `gorm:"not null"`
	UpdatedAt        time.Time `gorm:"not null"`
}

type Player struct {
	ID             string    `gorm:"primaryKey;size:36"`
	RoomID         string    `gorm:"size:36;index;not null;uniqueIndex:idx_players_room_nickname"`
	Nickname       string    `gorm:"size:32;not null;uniqueIndex:idx_players_room_nickname"`
	IsHost         bool      `gorm:"not null;default:false"`
	TotalPoints    int       `gorm:"not null;default:0"`
	HasBeenDecider bool      `gorm:"not null;default:false"`
	JoinedAt       time.Time `gorm:"not null"`
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

type Round struct {
	ID          string    `gorm:"primaryKey;size:36"`
	RoomID      string    `gorm:"size:36;index;not null;uniqueIndex:idx_rounds_room_number"`
	RoundNumber int       `gorm:"not null;uniqueIndex:idx_rounds_room_number"`
	Status      string    `gorm:"size:32;not null"`
	IsComplete  bool      `gorm:"not null;default:false"`
	CurrentTurn int       `gorm:"not null;default:1"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

type Turn struct {
	ID         string    `gorm:"primaryKey;size:36"`
	RoomID     string    `gorm:"size:36;index;not null"`
	RoundID    string    `gorm:"size:36;index;not null;uniqueIndex:idx_turns_round_number"`
	TurnNumber int       `gorm:"not null;uniqueIndex:idx_turns_round_number"`
	DeciderID  string    `gorm:"size:36;not null"`
	Status     string    `gorm:"size:32;not null"`
	Category   *string   `gorm:"size:64"`
	ScenarioID *string   `gorm:"size:36"`
	Context    *string   `gorm:"size:500"`
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

type DeciderHistory struct {
	ID         string    `gorm:"primaryKey;size:36"`
	RoomID     string    `gorm:"size:36;index;not null"`
	RoundID    string    `gorm:"size:36;index;not null;uniqueIndex:idx_decider_history_round_player"`
	PlayerID   string    `gorm:"size:36;not null;uniqueIndex:idx_decider_history_round_player"`
	TurnNumber int       `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null"`
}

func (DeciderHistory) TableName() string { return "decider_history" }

type Answer struct {
	ID        string    `gorm:"primaryKey;size:36"`
	RoomID    string    `gorm:"size:36;index;not null"`
	TurnID    string    `gorm:"size:36;index;not null;uniqueIndex:idx_answers_turn_player"`
	PlayerID  string    `gorm:"size:36;not null;uniqueIndex:idx_answers_turn_player"`
	Text      string    `gorm:"size:500;not null"`
	AIScore   *int      `gorm:"column:ai_score"`
	Feedback  *string   `gorm:"column:ai_feedback;size:500"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// Vote has no unique index on (answer_id, voter_id); repeated votes count.
type Vote struct {
	ID        string    `gorm:"primaryKey;size:36"`
	RoomID    string    `gorm:"size:36;index;not null"`
	AnswerID  string    `gorm:"size:36;index;not null"`
	VoterID   string    `gorm:"size:36;index;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

type Scenario struct {
	ID        string    `gorm:"primaryKey;size:36"`
	RoomID    string    `gorm:"size:36;index;not null"`
	TurnID    string    `gorm:"size:36;index;not null"`
	Text      string    `gorm:"size:500;not null"`
	IsCustom  bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"not null"`
}

type ScenarioLibrary struct {
	ID        uint      `gorm:"primaryKey"`
	Category  string    `gorm:"size:64;not null;uniqueIndex:idx_scenario_library_category_text"`
	Text      string    `gorm:"size:500;not null;uniqueIndex:idx_scenario_library_category_text"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (ScenarioLibrary) TableName() string { return "scenario_library" }

type Event struct {
	ID        uint           `gorm:"primaryKey"`
	RoomID    string         `gorm:"size:36;index;not null"`
	RoundID   *string        `gorm:"size:36;index"`
	TurnID    *string        `gorm:"size:36;index"`
	PlayerID  *string        `gorm:"size:36;index"`
	Type      string         `gorm:"size:64;not null"`
	Payload   datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"not null"`
}

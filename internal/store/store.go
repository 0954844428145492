package store

import (
	"context"
	"time"

	"hot-seat/internal/apperr"
	"hot-seat/internal/game"
)

var (
	ErrNotFound = apperr.NotFound("record not found")
	// ErrConflict reports a unique constraint violation.
	ErrConflict = apperr.Conflict("record already exists")
	// ErrStale reports a compare-and-set that found a different current value.
	ErrStale = apperr.Conflict("record changed concurrently")
)

// Reader is point and foreign-key reads. List results are ordered by creation
// (players by join time, rounds and turns by number).
type Reader interface {
	GetRoom(ctx context.Context, id string) (game.Room, error)
	GetRoomByCode(ctx context.Context, code string) (game.Room, error)
	GetRound(ctx context.Context, id string) (game.Round, error)
	GetTurn(ctx context.Context, id string) (game.Turn, error)
	GetPlayer(ctx context.Context, id string) (game.Player, error)
	GetAnswer(ctx context.Context, id string) (game.Answer, error)
	GetScenario(ctx context.Context, id string) (game.Scenario, error)
	ListPlayers(ctx context.Context, roomID string) ([]game.Player, error)
	ListRounds(ctx context.Context, roomID string) ([]game.Round, error)
	ListTurns(ctx context.Context, roomID string) ([]game.Turn, error)
	ListHistory(ctx context.Context, roundID string) ([]game.DeciderEntry, error)
	ListAnswers(ctx context.Context, turnID string) ([]game.Answer, error)
	ListVotes(ctx context.Context, turnID string) ([]game.Vote, error)
	ListScenarios(ctx context.Context, turnID string) ([]game.Scenario, error)
}

// Writer is single-row writes. Nothing spans rows: callers that need several
// writes to land together compensate on failure.
type Writer interface {
	CreateRoom(ctx context.Context, room game.Room) error
	UpdateRoom(ctx context.Context, id string, patch game.RoomPatch) error
	// DeleteRoom removes the room and everything that belongs to it.
	DeleteRoom(ctx context.Context, id string) error
	SetHost(ctx context.Context, roomID, playerID string) error

	CreatePlayer(ctx context.Context, player game.Player) error
	DeletePlayer(ctx context.Context, id string) error
	SetDeciderFlag(ctx context.Context, playerID string, value bool) error
	AddPoints(ctx context.Context, playerID string, points int) error

	CreateRound(ctx context.Context, round game.Round) error
	UpdateRound(ctx context.Context, id string, patch game.RoundPatch) error
	DeleteRound(ctx context.Context, id string) error

	CreateTurn(ctx context.Context, turn game.Turn) error
	// UpdateTurn applies patch only while the turn's status is from and
	// returns ErrStale otherwise.
	UpdateTurn(ctx context.Context, id string, from game.TurnStatus, patch game.TurnPatch) error
	DeleteTurn(ctx context.Context, id string) error

	CreateScenario(ctx context.Context, scenario game.Scenario) error
	DeleteScenario(ctx context.Context, id string) error

	AppendDecider(ctx context.Context, entry game.DeciderEntry) error
	DeleteDecider(ctx context.Context, id string) error

	// UpsertAnswer writes by (turn, player): a resubmission replaces the text
	// of the existing row and keeps its id and score.
	UpsertAnswer(ctx context.Context, answer game.Answer) (game.Answer, error)
	// SetAnswerScore writes a score only when the answer has none and reports
	// whether it did.
	SetAnswerScore(ctx context.Context, answerID string, score int, feedback string) (bool, error)

	CreateVote(ctx context.Context, vote game.Vote) error

	AppendEvent(ctx context.Context, event Event) error
}

type Store interface {
	Reader
	Writer
	Ping(ctx context.Context) error
}

// Event is an audit log entry. Empty ids are stored as null.
type Event struct {
	RoomID    string
	RoundID   string
	TurnID    string
	PlayerID  string
	Type      string
	Payload   map[string]any
	CreatedAt time.Time
}

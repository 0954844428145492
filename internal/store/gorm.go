package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hot-seat/internal/db"
	"hot-seat/internal/game"
)

// Gorm is the Postgres-backed Store. Every method is a single statement except
// SetHost, which is membership bookkeeping and runs in a transaction.
type Gorm struct {
	conn *gorm.DB
	feed *Feed
}

func NewGorm(conn *gorm.DB, feed *Feed) *Gorm {
	return &Gorm{conn: conn, feed: feed}
}

func (g *Gorm) Ping(ctx context.Context) error {
	sqlDB, err := g.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (g *Gorm) db(ctx context.Context) *gorm.DB {
	return g.conn.WithContext(ctx)
}

func (g *Gorm) GetRoom(ctx context.Context, id string) (game.Room, error) {
	var record db.Room
	if err := g.db(ctx).First(&record, "id = ?", id).Error; err != nil {
		return game.Room{}, mapError("room "+id, err)
	}
	return roomFromRecord(record), nil
}

func (g *Gorm) GetRoomByCode(ctx context.Context, code string) (game.Room, error) {
	var record db.Room
	if err := g.db(ctx).First(&record, "join_code = ?", strings.ToUpper(code)).Error; err != nil {
		return game.Room{}, mapError("room code "+code, err)
	}
	return roomFromRecord(record), nil
}

func (g *Gorm) GetRound(ctx context.Context, id string) (game.Round, error) {
	var record db.Round
	if err := g.db(ctx).First(&record, "id = ?", id).Error; err != nil {
		return game.Round{}, mapError("round "+id, err)
	}
	return roundFromRecord(record), nil
}

func (g *Gorm) GetTurn(ctx context.Context, id string) (game.Turn, error) {
	var record db.Turn
	if err := g.db(ctx).First(&record, "id = ?", id).Error; err != nil {
		return game.Turn{}, mapError("turn "+id, err)
	}
	return turnFromRecord(record), nil
}

func (g *Gorm) GetPlayer(ctx context.Context, id string) (game.Player, error) {
	var record db.Player
	if err := g.db(ctx).First(&record, "id = ?", id).Error; err != nil {
		return game.Player{}, mapError("player "+id, err)
	}
	return playerFromRecord(record), nil
}

func (g *Gorm) GetAnswer(ctx context.Context, id string) (game.Answer, error) {
	var record db.Answer
	if err := g.db(ctx).First(&record, "id = ?", id).Error; err != nil {
		return game.Answer{}, mapError("answer "+id, err)
	}
	return answerFromRecord(record), nil
}

func (g *Gorm) GetScenario(ctx context.Context, id string) (game.Scenario, error) {
	var record db.Scenario
	if err := g.db(ctx).First(&record, "id = ?", id).Error; err != nil {
		return game.Scenario{}, mapError("scenario "+id, err)
	}
	return scenarioFromRecord(record), nil
}

func (g *Gorm) ListPlayers(ctx context.Context, roomID string) ([]game.Player, error) {
	var records []db.Player
	if err := g.db(ctx).Where("room_id = ?", roomID).Order("joined_at, id").Find(&records).Error; err != nil {
		return nil, err
	}
	out := make([]game.Player, 0, len(records))
	for _, record := range records {
		out = append(out, playerFromRecord(record))
	}
	return out, nil
}

func (g *Gorm) ListRounds(ctx context.Context, roomID string) ([]game.Round, error) {
	var records []db.Round
	if err := g.db(ctx).Where("room_id = ?", roomID).Order("round_number").Find(&records).Error; err != nil {
		return nil, err
	}
	out := make([]game.Round, 0, len(records))
	for _, record := range records {
		out = append(out, roundFromRecord(record))
	}
	return out, nil
}

func (g *Gorm) ListTurns(ctx context.Context, roomID string) ([]game.Turn, error) {
	var records []db.Turn
	err := g.db(ctx).
		Joins("JOIN rounds ON rounds.id = turns.round_id").
		Where("turns.room_id = ?", roomID).
		Order("rounds.round_number, turns.turn_number").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	out := make([]game.Turn, 0, len(records))
	for _, record := range records {
		out = append(out, turnFromRecord(record))
	}
	return out, nil
}

func (g *Gorm) ListHistory(ctx context.Context, roundID string) ([]game.DeciderEntry, error) {
	var records []db.DeciderHistory
	if err := g.db(ctx).Where("round_id = ?", roundID).Order("turn_number").Find(&records).Error; err != nil {
		return nil, err
	}
	out := make([]game.DeciderEntry, 0, len(records))
	for _, record := range records {
		out = append(out, entryFromRecord(record))
	}
	return out, nil
}

func (g *Gorm) ListAnswers(ctx context.Context, turnID string) ([]game.Answer, error) {
	var records []db.Answer
	if err := g.db(ctx).Where("turn_id = ?", turnID).Order("created_at, id").Find(&records).Error; err != nil {
		return nil, err
	}
	out := make([]game.Answer, 0, len(records))
	for _, record := range records {
		out = append(out, answerFromRecord(record))
	}
	return out, nil
}

func (g *Gorm) ListVotes(ctx context.Context, turnID string) ([]game.Vote, error) {
	var records []db.Vote
	answers := g.db(ctx).Model(&db.Answer{}).Select("id").Where("turn_id = ?", turnID)
	if err := g.db(ctx).Where("answer_id IN (?)", answers).Order("created_at, id").Find(&records).Error; err != nil {
		return nil, err
	}
	out := make([]game.Vote, 0, len(records))
	for _, record := range records {
		out = append(out, voteFromRecord(record))
	}
	return out, nil
}

func (g *Gorm) ListScenarios(ctx context.Context, turnID string) ([]game.Scenario, error) {
	var records []db.Scenario
	if err := g.db(ctx).Where("turn_id = ?", turnID).Order("created_at, id").Find(&records).Error; err != nil {
		return nil, err
	}
	out := make([]game.Scenario, 0, len(records))
	for _, record := range records {
		out = append(out, scenarioFromRecord(record))
	}
	return out, nil
}

func (g *Gorm) CreateRoom(ctx context.Context, room game.Room) error {
	record := roomRecord(room)
	if err := g.db(ctx).Create(&record).Error; err != nil {
		return mapError("room "+room.ID, err)
	}
	g.publish(TableRooms, ChangeInsert, room.ID, roomFromRecord(record))
	return nil
}

func (g *Gorm) UpdateRoom(ctx context.Context, id string, patch game.RoomPatch) error {
	updates := map[string]any{}
	if patch.Status != nil {
		updates["status"] = string(*patch.Status)
	}
	if patch.CurrentRound != nil {
		updates["current_round"] = *patch.CurrentRound
	}
	if patch.CurrentTurn != nil {
		updates["current_turn"] = *patch.CurrentTurn
	}
	if patch.RoundVotingPhase != nil {
		updates["round_voting_phase"] = *patch.RoundVotingPhase
	}
	var record db.Room
	if err := g.update(ctx, &record, id, updates); err != nil {
		return mapError("room "+id, err)
	}
	g.publish(TableRooms, ChangeUpdate, id, roomFromRecord(record))
	return nil
}

func (g *Gorm) DeleteRoom(ctx context.Context, id string) error {
	var record db.Room
	if err := g.delete(ctx, &record, id); err != nil {
		return mapError("room "+id, err)
	}
	g.publish(TableRooms, ChangeDelete, record.ID, roomFromRecord(record))
	return nil
}

func (g *Gorm) SetHost(ctx context.Context, roomID, playerID string) error {
	err := g.db(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&db.Player{}).Where("id = ? AND room_id = ?", playerID, roomID).Update("is_host", true)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := tx.Model(&db.Player{}).Where("room_id = ? AND id <> ?", roomID, playerID).Update("is_host", false).Error; err != nil {
			return err
		}
		return tx.Model(&db.Room{}).Where("id = ?", roomID).Update("host_id", playerID).Error
	})
	if err != nil {
		return mapError("host of room "+roomID, err)
	}
	if room, err := g.GetRoom(ctx, roomID); err == nil {
		g.publish(TableRooms, ChangeUpdate, roomID, room)
	}
	return nil
}

func (g *Gorm) CreatePlayer(ctx context.Context, player game.Player) error {
	record := playerRecord(player)
	if record.JoinedAt.IsZero() {
		record.JoinedAt = time.Now().UTC()
	}
	if err := g.db(ctx).Create(&record).Error; err != nil {
		return mapError("player "+player.Nickname, err)
	}
	g.publish(TablePlayers, ChangeInsert, player.RoomID, playerFromRecord(record))
	return nil
}

func (g *Gorm) DeletePlayer(ctx context.Context, id string) error {
	var record db.Player
	result := g.db(ctx).Clauses(clause.Returning{}).Where("id = ?", id).Delete(&record)
	if result.Error != nil {
		return mapError("player "+id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("player %s: %w", id, ErrNotFound)
	}
	g.publish(TablePlayers, ChangeDelete, record.RoomID, playerFromRecord(record))
	return nil
}

func (g *Gorm) SetDeciderFlag(ctx context.Context, playerID string, value bool) error {
	var record db.Player
	if err := g.update(ctx, &record, playerID, map[string]any{"has_been_decider": value}); err != nil {
		return mapError("player "+playerID, err)
	}
	g.publish(TablePlayers, ChangeUpdate, record.RoomID, playerFromRecord(record))
	return nil
}

func (g *Gorm) AddPoints(ctx context.Context, playerID string, points int) error {
	var record db.Player
	if err := g.update(ctx, &record, playerID, map[string]any{"total_points": gorm.Expr("total_points + ?", points)}); err != nil {
		return mapError("player "+playerID, err)
	}
	g.publish(TablePlayers, ChangeUpdate, record.RoomID, playerFromRecord(record))
	return nil
}

func (g *Gorm) CreateRound(ctx context.Context, round game.Round) error {
	record := roundRecord(round)
	if err := g.db(ctx).Create(&record).Error; err != nil {
		return mapError(fmt.Sprintf("round %d of room %s", round.Number, round.RoomID), err)
	}
	g.publish(TableRounds, ChangeInsert, round.RoomID, round)
	return nil
}

func (g *Gorm) UpdateRound(ctx context.Context, id string, patch game.RoundPatch) error {
	updates := map[string]any{}
	if patch.Status != nil {
		updates["status"] = string(*patch.Status)
	}
	if patch.IsComplete != nil {
		updates["is_complete"] = *patch.IsComplete
	}
	if patch.CurrentTurn != nil {
		updates["current_turn"] = *patch.CurrentTurn
	}
	var record db.Round
	if err := g.update(ctx, &record, id, updates); err != nil {
		return mapError("round "+id, err)
	}
	g.publish(TableRounds, ChangeUpdate, record.RoomID, roundFromRecord(record))
	return nil
}

func (g *Gorm) DeleteRound(ctx context.Context, id string) error {
	var record db.Round
	if err := g.delete(ctx, &record, id); err != nil {
		return mapError("round "+id, err)
	}
	g.publish(TableRounds, ChangeDelete, record.RoomID, roundFromRecord(record))
	return nil
}

func (g *Gorm) CreateTurn(ctx context.Context, turn game.Turn) error {
	record := turnRecord(turn)
	if err := g.db(ctx).Create(&record).Error; err != nil {
		return mapError(fmt.Sprintf("turn %d of round %s", turn.Number, turn.RoundID), err)
	}
	g.publish(TableTurns, ChangeInsert, turn.RoomID, turn)
	return nil
}

func (g *Gorm) UpdateTurn(ctx context.Context, id string, from game.TurnStatus, patch game.TurnPatch) error {
	updates := map[string]any{}
	if patch.Status != nil {
		updates["status"] = string(*patch.Status)
	}
	if patch.Category != nil {
		updates["category"] = nullable(*patch.Category)
	}
	if patch.ScenarioID != nil {
		updates["scenario_id"] = nullable(*patch.ScenarioID)
	}
	if patch.Context != nil {
		updates["context"] = nullable(*patch.Context)
	}
	updates["updated_at"] = time.Now().UTC()

	var record db.Turn
	result := g.db(ctx).Model(&record).Clauses(clause.Returning{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(updates)
	if result.Error != nil {
		return mapError("turn "+id, result.Error)
	}
	if result.RowsAffected == 0 {
		if _, err := g.GetTurn(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("turn %s is no longer %s: %w", id, from, ErrStale)
	}
	g.publish(TableTurns, ChangeUpdate, record.RoomID, turnFromRecord(record))
	return nil
}

func (g *Gorm) DeleteTurn(ctx context.Context, id string) error {
	var record db.Turn
	if err := g.delete(ctx, &record, id); err != nil {
		return mapError("turn "+id, err)
	}
	g.publish(TableTurns, ChangeDelete, record.RoomID, turnFromRecord(record))
	return nil
}

func (g *Gorm) CreateScenario(ctx context.Context, scenario game.Scenario) error {
	record := db.Scenario{
		ID:       scenario.ID,
		RoomID:   scenario.RoomID,
		TurnID:   scenario.TurnID,
		Text:     scenario.Text,
		IsCustom: scenario.IsCustom,
	}
	if err := g.db(ctx).Create(&record).Error; err != nil {
		return mapError("scenario "+scenario.ID, err)
	}
	g.publish(TableScenarios, ChangeInsert, scenario.RoomID, scenario)
	return nil
}

func (g *Gorm) DeleteScenario(ctx context.Context, id string) error {
	var record db.Scenario
	if err := g.delete(ctx, &record, id); err != nil {
		return mapError("scenario "+id, err)
	}
	g.publish(TableScenarios, ChangeDelete, record.RoomID, scenarioFromRecord(record))
	return nil
}

func (g *Gorm) AppendDecider(ctx context.Context, entry game.DeciderEntry) error {
	record := db.DeciderHistory{
		ID:         entry.ID,
		RoomID:     entry.RoomID,
		RoundID:    entry.RoundID,
		PlayerID:   entry.PlayerID,
		TurnNumber: entry.TurnNumber,
	}
	if err := g.db(ctx).Create(&record).Error; err != nil {
		return mapError("decider "+entry.PlayerID+" of round "+entry.RoundID, err)
	}
	g.publish(TableHistory, ChangeInsert, entry.RoomID, entry)
	return nil
}

func (g *Gorm) DeleteDecider(ctx context.Context, id string) error {
	var record db.DeciderHistory
	if err := g.delete(ctx, &record, id); err != nil {
		return mapError("decider entry "+id, err)
	}
	g.publish(TableHistory, ChangeDelete, record.RoomID, entryFromRecord(record))
	return nil
}

func (g *Gorm) UpsertAnswer(ctx context.Context, answer game.Answer) (game.Answer, error) {
	record := db.Answer{
		ID:       answer.ID,
		RoomID:   answer.RoomID,
		TurnID:   answer.TurnID,
		PlayerID: answer.PlayerID,
		Text:     answer.Text,
	}
	err := g.db(ctx).Clauses(
		clause.OnConflict{
			Columns:   []clause.Column{{Name: "turn_id"}, {Name: "player_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"text", "updated_at"}),
		},
		clause.Returning{},
	).Create(&record).Error
	if err != nil {
		return game.Answer{}, mapError("answer of player "+answer.PlayerID, err)
	}
	saved := answerFromRecord(record)
	g.publish(TableAnswers, ChangeUpdate, saved.RoomID, saved)
	return saved, nil
}

func (g *Gorm) SetAnswerScore(ctx context.Context, answerID string, score int, feedback string) (bool, error) {
	var record db.Answer
	result := g.db(ctx).Model(&record).Clauses(clause.Returning{}).
		Where("id = ? AND ai_score IS NULL", answerID).
		Updates(map[string]any{"ai_score": score, "ai_feedback": feedback, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return false, mapError("answer "+answerID, result.Error)
	}
	if result.RowsAffected == 0 {
		if _, err := g.GetAnswer(ctx, answerID); err != nil {
			return false, err
		}
		return false, nil
	}
	g.publish(TableAnswers, ChangeUpdate, record.RoomID, answerFromRecord(record))
	return true, nil
}

func (g *Gorm) CreateVote(ctx context.Context, vote game.Vote) error {
	record := db.Vote{
		ID:       vote.ID,
		RoomID:   vote.RoomID,
		AnswerID: vote.AnswerID,
		VoterID:  vote.VoterID,
	}
	if err := g.db(ctx).Create(&record).Error; err != nil {
		return mapError("vote on answer "+vote.AnswerID, err)
	}
	g.publish(TableVotes, ChangeInsert, vote.RoomID, vote)
	return nil
}

func (g *Gorm) AppendEvent(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return err
	}
	record := db.Event{
		RoomID:    event.RoomID,
		RoundID:   nullable(event.RoundID),
		TurnID:    nullable(event.TurnID),
		PlayerID:  nullable(event.PlayerID),
		Type:      event.Type,
		Payload:   datatypes.JSON(payload),
		CreatedAt: event.CreatedAt,
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	return g.db(ctx).Create(&record).Error
}

// update writes columns of one row by id and loads the updated row into record.
func (g *Gorm) update(ctx context.Context, record any, id string, updates map[string]any) error {
	if len(updates) == 0 {
		return g.db(ctx).First(record, "id = ?", id).Error
	}
	updates["updated_at"] = time.Now().UTC()
	result := g.db(ctx).Model(record).Clauses(clause.Returning{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (g *Gorm) delete(ctx context.Context, record any, id string) error {
	result := g.db(ctx).Clauses(clause.Returning{}).Where("id = ?", id).Delete(record)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (g *Gorm) publish(table string, kind ChangeType, roomID string, row any) {
	g.feed.Publish(Change{Table: table, Type: kind, RoomID: roomID, Row: row})
}

func mapError(subject string, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", subject, ErrNotFound)
	case isUniqueViolation(err):
		return fmt.Errorf("%s: %w", subject, ErrConflict)
	default:
		return fmt.Errorf("%s: %w", subject, err)
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

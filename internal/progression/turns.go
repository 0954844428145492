package progression

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"hot-seat/internal/broadcast"
	"hot-seat/internal/game"
)

func (o *Orchestrator) StartGame(ctx context.Context, roomID, actorID string) (Outcome, error) {
	s, err := o.roomSnapshot(ctx, roomID)
	if err != nil {
		return Outcome{}, err
	}
	tr, err := o.machine.Start(s, actorID)
	if err != nil {
		return Outcome{}, err
	}
	return o.apply(ctx, "start_game", roomID, tr)
}

type SelectCategoryInput struct {
	TurnID   string
	PlayerID string
	Category string
	// Timeout is sent by any client whose selection timer expired.
	Timeout bool
}

// SelectCategory records the decider's category and fills the turn with
// scenarios to choose from.
func (o *Orchestrator) SelectCategory(ctx context.Context, in SelectCategoryInput) (Outcome, error) {
	s, err := o.turnSnapshot(ctx, in.TurnID)
	if err != nil {
		return Outcome{}, err
	}
	tr, err := o.machine.SelectCategory(s, game.CategoryAction{
		ActorID:  in.PlayerID,
		Category: in.Category,
		Timeout:  in.Timeout,
		Options:  o.cfg.Categories,
	})
	if err != nil {
		return Outcome{}, err
	}
	outcome, err := o.apply(ctx, "select_category", s.Room.ID, tr)
	if err != nil || !outcome.Applied {
		return outcome, err
	}
	o.fillScenarios(ctx, s.Turn.ID)
	return outcome, nil
}

// fillScenarios writes a batch of candidate scenarios for a turn that has none.
func (o *Orchestrator) fillScenarios(ctx context.Context, turnID string) {
	turn, err := o.store.GetTurn(ctx, turnID)
	if err != nil {
		o.log.Error("failed to reload turn", zap.String("turn_id", turnID), zap.Error(err))
		return
	}
	existing, err := o.store.ListScenarios(ctx, turn.ID)
	if err != nil {
		o.log.Error("failed to list scenarios", zap.String("turn_id", turn.ID), zap.Error(err))
		return
	}
	if len(existing) > 0 {
		return
	}
	for _, text := range o.scenarios.Scenarios(ctx, turn.Category, o.cfg.ScenarioBatchSize) {
		row := game.Scenario{ID: o.newID(), RoomID: turn.RoomID, TurnID: turn.ID, Text: text}
		if err := o.store.CreateScenario(ctx, row); err != nil {
			o.log.Error("failed to store scenario", zap.String("turn_id", turn.ID), zap.Error(err))
		}
	}
}

type SelectScenarioInput struct {
	TurnID     string
	PlayerID   string
	ScenarioID string
	CustomText string
	Context    string
	Timeout    bool
}

func (o *Orchestrator) SelectScenario(ctx context.Context, in SelectScenarioInput) (Outcome, error) {
	s, err := o.turnSnapshot(ctx, in.TurnID)
	if err != nil {
		return Outcome{}, err
	}
	tr, err := o.machine.SelectScenario(s, game.ScenarioAction{
		ActorID:    in.PlayerID,
		ScenarioID: in.ScenarioID,
		CustomText: in.CustomText,
		Context:    in.Context,
		Timeout:    in.Timeout,
	})
	if err != nil {
		return Outcome{}, err
	}
	return o.apply(ctx, "select_scenario", s.Room.ID, tr)
}

// SubmitAnswer stores a player's answer for an answering turn. Once the
// answer floor is met, scoring starts in the background.
func (o *Orchestrator) SubmitAnswer(ctx context.Context, turnID, playerID, text string) (game.Answer, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return game.Answer{}, ErrAnswerRequired
	}
	s, err := o.turnSnapshot(ctx, turnID)
	if err != nil {
		return game.Answer{}, err
	}
	if s.Room.Status == game.RoomCompleted {
		return game.Answer{}, game.ErrGameOver
	}
	if _, ok := memberOf(s.Players, playerID); !ok {
		return game.Answer{}, ErrNotInRoom
	}
	if s.Turn.Status != game.TurnAnswering {
		return game.Answer{}, game.ErrWrongPhase
	}
	answer, err := o.store.UpsertAnswer(ctx, game.Answer{
		ID:       o.newID(),
		RoomID:   s.Room.ID,
		TurnID:   turnID,
		PlayerID: playerID,
		Text:     text,
	})
	if err != nil {
		return game.Answer{}, err
	}
	o.publish(ctx, s.Room.ID, broadcast.EventAnswerAdded, map[string]string{
		"turnId":   turnID,
		"playerId": playerID,
	})
	o.maybeScore(ctx, turnID)
	return answer, nil
}

// maybeScore starts the scoring coordinator when the answer floor is met.
func (o *Orchestrator) maybeScore(ctx context.Context, turnID string) {
	s, err := o.turnSnapshot(ctx, turnID)
	if err != nil {
		o.log.Error("failed to check answers", zap.String("turn_id", turnID), zap.Error(err))
		return
	}
	if s.Turn.Status != game.TurnAnswering || !s.AnswersReady() {
		return
	}
	o.spawn("scoring", []zap.Field{zap.String("turn_id", turnID)}, func(ctx context.Context) error {
		summary, err := o.coordinator.ScoreTurn(ctx, turnID)
		if err != nil {
			return err
		}
		o.log.Info("turn scored",
			zap.String("turn_id", turnID),
			zap.Int("scored", summary.Scored),
			zap.Int("fallback", summary.Fallback),
			zap.Int("in_flight", summary.InFlight))
		return nil
	})
}

// CompleteScoring moves an answering turn to voting when every answer is
// scored. The scoring coordinator calls it after each run.
func (o *Orchestrator) CompleteScoring(ctx context.Context, turnID string) error {
	s, err := o.turnSnapshot(ctx, turnID)
	if err != nil {
		return err
	}
	tr, err := o.machine.ScoringComplete(s)
	if err != nil {
		return err
	}
	_, err = o.apply(ctx, "scoring_complete", s.Room.ID, tr)
	return err
}

// SubmitVote records a vote for an answer of a voting turn. Repeat votes and
// votes for one's own answer are accepted.
func (o *Orchestrator) SubmitVote(ctx context.Context, answerID, voterID string) (game.Vote, error) {
	answer, err := o.store.GetAnswer(ctx, answerID)
	if err != nil {
		return game.Vote{}, err
	}
	s, err := o.turnSnapshot(ctx, answer.TurnID)
	if err != nil {
		return game.Vote{}, err
	}
	if _, ok := memberOf(s.Players, voterID); !ok {
		return game.Vote{}, ErrNotInRoom
	}
	if s.Turn.Status != game.TurnVoting {
		return game.Vote{}, game.ErrWrongPhase
	}
	vote := game.Vote{ID: o.newID(), RoomID: s.Room.ID, AnswerID: answerID, VoterID: voterID}
	if err := o.store.CreateVote(ctx, vote); err != nil {
		return game.Vote{}, err
	}
	return vote, nil
}

// FinishVoting closes voting on the room's current turn, awards points and
// advances to the next turn, round or the end of the game.
func (o *Orchestrator) FinishVoting(ctx context.Context, roomID string) (Outcome, error) {
	room, err := o.store.GetRoom(ctx, roomID)
	if err != nil {
		return Outcome{}, err
	}
	if room.Status != game.RoomInProgress {
		return Outcome{Kind: game.KindNone, Reason: "game is not in progress"}, nil
	}
	turn, err := o.currentTurn(ctx, room)
	if err != nil {
		return Outcome{}, err
	}
	s, err := o.turnSnapshot(ctx, turn.ID)
	if err != nil {
		return Outcome{}, err
	}
	tr, err := o.machine.FinishVoting(s)
	if err != nil {
		return Outcome{}, err
	}
	outcome, err := o.apply(ctx, "finish_voting", roomID, tr)
	if err != nil {
		return outcome, err
	}
	// a turn completed by an earlier call that never advanced is advanced now
	if !outcome.Applied && s.Turn.Status != game.TurnCompleted {
		return outcome, nil
	}
	next, err := o.AdvanceTurn(ctx, turn.ID)
	if err != nil {
		return outcome, err
	}
	outcome.Next = &next
	return outcome, nil
}

// AdvanceTurn starts the next turn or round after a completed turn, or ends
// the game. Calling it again for the same turn is a no-op.
func (o *Orchestrator) AdvanceTurn(ctx context.Context, turnID string) (Outcome, error) {
	s, err := o.turnSnapshot(ctx, turnID)
	if err != nil {
		return Outcome{}, err
	}
	tr, err := o.machine.Advance(s)
	if err != nil {
		return Outcome{}, err
	}
	return o.apply(ctx, "advance", s.Room.ID, tr)
}

// Resume applies whatever automatic transition the room's current turn
// allows. It repairs a turn left behind by a crash between steps.
func (o *Orchestrator) Resume(ctx context.Context, roomID string) (Outcome, error) {
	room, err := o.store.GetRoom(ctx, roomID)
	if err != nil {
		return Outcome{}, err
	}
	if room.Status != game.RoomInProgress {
		return Outcome{Kind: game.KindNone, Reason: "game is not in progress"}, nil
	}
	turn, err := o.currentTurn(ctx, room)
	if err != nil {
		return Outcome{}, err
	}
	s, err := o.turnSnapshot(ctx, turn.ID)
	if err != nil {
		return Outcome{}, err
	}
	if s.Turn.Status == game.TurnAnswering && s.AnswersReady() {
		o.maybeScore(ctx, turn.ID)
	}
	tr, err := o.machine.Decide(s)
	if err != nil {
		return Outcome{}, err
	}
	return o.apply(ctx, "resume", roomID, tr)
}

type SlideshowInput struct {
	RoomID   string
	PlayerID string
	Index    int
	Action   string
}

// Slideshow relays the host's results slideshow position to the room.
func (o *Orchestrator) Slideshow(ctx context.Context, in SlideshowInput) error {
	room, err := o.store.GetRoom(ctx, in.RoomID)
	if err != nil {
		return err
	}
	if room.HostID != in.PlayerID {
		return game.ErrNotHost
	}
	return o.broadcast.Publish(ctx, broadcast.RoomTopic(room.ID), broadcast.EventSlideshow, map[string]any{
		"index":  in.Index,
		"action": in.Action,
	})
}

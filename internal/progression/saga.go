package progression

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"hot-seat/internal/apperr"
	"hot-seat/internal/broadcast"
	"hot-seat/internal/game"
	"hot-seat/internal/store"
)

// Outcome reports what an operation did. Applied is false for normal no-ops,
// including losing a race to a concurrent caller.
type Outcome struct {
	Applied    bool            `json:"applied"`
	Reason     string          `json:"reason,omitempty"`
	Kind       game.Kind       `json:"kind"`
	TurnStatus game.TurnStatus `json:"turnStatus,omitempty"`
	RoundID    string          `json:"roundId,omitempty"`
	TurnID     string          `json:"turnId,omitempty"`
	DeciderID  string          `json:"deciderId,omitempty"`
	Round      int             `json:"round,omitempty"`
	Turn       int             `json:"turn,omitempty"`
	// Next is the follow-up transition an operation triggered, if any.
	Next *Outcome `json:"next,omitempty"`
}

const reasonLostRace = "already applied concurrently"

func outcomeOf(tr game.Transition) Outcome {
	return Outcome{
		Applied:    tr.Applied(),
		Reason:     tr.Reason,
		Kind:       tr.Kind,
		TurnStatus: tr.TurnStatus,
		RoundID:    tr.RoundID,
		TurnID:     tr.TurnID,
		DeciderID:  tr.DeciderID,
		Round:      tr.Round,
		Turn:       tr.Turn,
	}
}

// apply writes the mutations of tr in order. When a write fails, the writes
// already made are undone in reverse order. A unique or compare-and-set
// conflict means another caller applied the same transition first: only rows
// this call created are removed and the result is a no-op.
func (o *Orchestrator) apply(ctx context.Context, op, roomID string, tr game.Transition) (Outcome, error) {
	if !tr.Applied() {
		o.metrics.Transition(op, "noop")
		return outcomeOf(tr), nil
	}

	applied := make([]game.Mutation, 0, len(tr.Mutations))
	for _, mutation := range tr.Mutations {
		err := o.write(ctx, mutation)
		if err == nil {
			applied = append(applied, mutation)
			continue
		}
		fields := []zap.Field{
			zap.String("operation", op),
			zap.String("step", mutation.Step()),
			zap.String("room_id", roomID),
			zap.String("round_id", tr.RoundID),
			zap.String("turn_id", tr.TurnID),
			zap.String("decider_id", tr.DeciderID),
			zap.Error(err),
		}
		if errors.Is(err, store.ErrConflict) || errors.Is(err, store.ErrStale) {
			o.compensate(ctx, applied, true)
			o.log.Info("transition lost race", fields...)
			o.metrics.Transition(op, "conflict")
			return Outcome{Applied: false, Reason: reasonLostRace, Kind: game.KindNone}, nil
		}
		o.log.Error("transition failed", fields...)
		o.compensate(ctx, applied, false)
		o.metrics.Transition(op, "failed")
		return Outcome{}, apperr.Internal("failed to "+mutation.Step(), err)
	}

	o.metrics.Transition(op, "applied")
	o.log.Info("transition applied",
		zap.String("operation", op),
		zap.String("kind", string(tr.Kind)),
		zap.String("room_id", roomID),
		zap.String("round_id", tr.RoundID),
		zap.String("turn_id", tr.TurnID),
		zap.String("turn_status", string(tr.TurnStatus)),
		zap.Int("round", tr.Round),
		zap.Int("turn", tr.Turn))
	outcome := outcomeOf(tr)
	o.record(ctx, op, roomID, outcome)
	return outcome, nil
}

func (o *Orchestrator) write(ctx context.Context, mutation game.Mutation) error {
	switch m := mutation.(type) {
	case game.UpdateRoom:
		return o.store.UpdateRoom(ctx, m.RoomID, m.Patch)
	case game.CreateRound:
		return o.store.CreateRound(ctx, m.Round)
	case game.UpdateRound:
		return o.store.UpdateRound(ctx, m.RoundID, m.Patch)
	case game.CreateTurn:
		return o.store.CreateTurn(ctx, m.Turn)
	case game.UpdateTurn:
		return o.store.UpdateTurn(ctx, m.TurnID, m.From, m.Patch)
	case game.CreateScenario:
		return o.store.CreateScenario(ctx, m.Scenario)
	case game.AppendDecider:
		return o.store.AppendDecider(ctx, m.Entry)
	case game.SetDeciderFlag:
		return o.store.SetDeciderFlag(ctx, m.PlayerID, m.Value)
	case game.AwardPoints:
		return o.store.AddPoints(ctx, m.PlayerID, m.Points)
	default:
		return fmt.Errorf("unknown mutation %T", mutation)
	}
}

// undo reverses one applied mutation. It reports false for updates skipped
// because createdOnly is set.
func (o *Orchestrator) undo(ctx context.Context, mutation game.Mutation, createdOnly bool) (bool, error) {
	switch m := mutation.(type) {
	case game.CreateRound:
		return true, o.store.DeleteRound(ctx, m.Round.ID)
	case game.CreateTurn:
		return true, o.store.DeleteTurn(ctx, m.Turn.ID)
	case game.CreateScenario:
		return true, o.store.DeleteScenario(ctx, m.Scenario.ID)
	case game.AppendDecider:
		return true, o.store.DeleteDecider(ctx, m.Entry.ID)
	}
	if createdOnly {
		return false, nil
	}
	switch m := mutation.(type) {
	case game.UpdateRoom:
		return true, o.store.UpdateRoom(ctx, m.RoomID, m.Previous)
	case game.UpdateRound:
		return true, o.store.UpdateRound(ctx, m.RoundID, m.Previous)
	case game.UpdateTurn:
		if m.Patch.Status == nil {
			return true, fmt.Errorf("turn %s update has no status", m.TurnID)
		}
		return true, o.store.UpdateTurn(ctx, m.TurnID, *m.Patch.Status, m.Previous)
	case game.SetDeciderFlag:
		return true, o.store.SetDeciderFlag(ctx, m.PlayerID, m.Previous)
	case game.AwardPoints:
		return true, o.store.AddPoints(ctx, m.PlayerID, -m.Points)
	default:
		return false, fmt.Errorf("unknown mutation %T", mutation)
	}
}

func (o *Orchestrator) compensate(ctx context.Context, applied []game.Mutation, createdOnly bool) {
	ctx = context.WithoutCancel(ctx)
	for i := len(applied) - 1; i >= 0; i-- {
		mutation := applied[i]
		undone, err := o.undo(ctx, mutation, createdOnly)
		switch {
		case err != nil:
			o.metrics.Compensation(mutation.Step(), "failed")
			o.log.Error("compensation failed", zap.String("step", mutation.Step()), zap.Error(err))
		case undone:
			o.metrics.Compensation(mutation.Step(), "undone")
		default:
			o.metrics.Compensation(mutation.Step(), "skipped")
		}
	}
}

// record appends the audit event and announces the transition. Neither is
// allowed to fail the operation.
func (o *Orchestrator) record(ctx context.Context, op, roomID string, outcome Outcome) {
	ctx = context.WithoutCancel(ctx)
	event := store.Event{
		RoomID:   roomID,
		RoundID:  outcome.RoundID,
		TurnID:   outcome.TurnID,
		PlayerID: outcome.DeciderID,
		Type:     op,
		Payload: map[string]any{
			"kind":        string(outcome.Kind),
			"reason":      outcome.Reason,
			"turn_status": string(outcome.TurnStatus),
			"round":       outcome.Round,
			"turn":        outcome.Turn,
		},
	}
	if err := o.store.AppendEvent(ctx, event); err != nil {
		o.log.Warn("failed to record event", zap.String("operation", op), zap.String("room_id", roomID), zap.Error(err))
	}
	o.publish(ctx, roomID, broadcast.EventTransition, outcome)
}

func (o *Orchestrator) publish(ctx context.Context, roomID, event string, payload any) {
	if err := o.broadcast.Publish(ctx, broadcast.RoomTopic(roomID), event, payload); err != nil {
		o.log.Warn("broadcast failed", zap.String("event", event), zap.String("room_id", roomID), zap.Error(err))
	}
}

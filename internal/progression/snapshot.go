package progression

import (
	"context"

	"hot-seat/internal/game"
)

func (o *Orchestrator) roomSnapshot(ctx context.Context, roomID string) (game.Snapshot, error) {
	room, err := o.store.GetRoom(ctx, roomID)
	if err != nil {
		return game.Snapshot{}, err
	}
	players, err := o.store.ListPlayers(ctx, roomID)
	if err != nil {
		return game.Snapshot{}, err
	}
	return game.Snapshot{Room: &room, Players: players}, nil
}

func (o *Orchestrator) turnSnapshot(ctx context.Context, turnID string) (game.Snapshot, error) {
	turn, err := o.store.GetTurn(ctx, turnID)
	if err != nil {
		return game.Snapshot{}, err
	}
	s, err := o.roomSnapshot(ctx, turn.RoomID)
	if err != nil {
		return game.Snapshot{}, err
	}
	round, err := o.store.GetRound(ctx, turn.RoundID)
	if err != nil {
		return game.Snapshot{}, err
	}
	s.Round = &round
	s.Turn = &turn
	if s.History, err = o.store.ListHistory(ctx, round.ID); err != nil {
		return game.Snapshot{}, err
	}
	if s.Answers, err = o.store.ListAnswers(ctx, turn.ID); err != nil {
		return game.Snapshot{}, err
	}
	if s.Votes, err = o.store.ListVotes(ctx, turn.ID); err != nil {
		return game.Snapshot{}, err
	}
	if s.Scenarios, err = o.store.ListScenarios(ctx, turn.ID); err != nil {
		return game.Snapshot{}, err
	}
	return s, nil
}

// currentTurn finds the turn the room's round and turn counters point at.
func (o *Orchestrator) currentTurn(ctx context.Context, room game.Room) (game.Turn, error) {
	rounds, err := o.store.ListRounds(ctx, room.ID)
	if err != nil {
		return game.Turn{}, err
	}
	var round *game.Round
	for i := range rounds {
		if rounds[i].Number == room.CurrentRound {
			round = &rounds[i]
			break
		}
	}
	if round == nil {
		return game.Turn{}, ErrNoActiveTurn
	}
	turns, err := o.store.ListTurns(ctx, room.ID)
	if err != nil {
		return game.Turn{}, err
	}
	for _, turn := range turns {
		if turn.RoundID == round.ID && turn.Number == round.CurrentTurn {
			return turn, nil
		}
	}
	return game.Turn{}, ErrNoActiveTurn
}

func memberOf(players []game.Player, playerID string) (game.Player, bool) {
	for _, player := range players {
		if player.ID == playerID {
			return player, true
		}
	}
	return game.Player{}, false
}

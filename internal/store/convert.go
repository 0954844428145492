package store

import (
	"hot-seat/internal/db"
	"hot-seat/internal/game"
)

func roomFromRecord(record db.Room) game.Room {
	return game.Room{
		ID:               record.ID,
		JoinCode:         record.JoinCode,
		Status:           game.RoomStatus(record.Status),
		TotalRounds:      record.TotalRounds,
		CurrentRound:     record.CurrentRound,
		CurrentTurn:      record.CurrentTurn,
		RoundVotingPhase: record.RoundVotingPhase,
		HostID:           record.HostID,
		CreatedAt:        record.CreatedAt,
	}
}

func roomRecord(room game.Room) db.Room {
	return db.Room{
		ID:               room.ID,
		JoinCode:         room.JoinCode,
		Status:           string(room.Status),
		TotalRounds:      room.TotalRounds,
		CurrentRound:     room.CurrentRound,
		CurrentTurn:      room.CurrentTurn,
		RoundVotingPhase: room.RoundVotingPhase,
		HostID:           room.HostID,
		CreatedAt:        room.CreatedAt,
	}
}

func playerFromRecord(record db.Player) game.Player {
	return game.Player{
		ID:             record.ID,
		RoomID:         record.RoomID,
		Nickname:       record.Nickname,
		IsHost:         record.IsHost,
		TotalPoints:    record.TotalPoints,
		HasBeenDecider: record.HasBeenDecider,
		JoinedAt:       record.JoinedAt,
	}
}

func playerRecord(player game.Player) db.Player {
	return db.Player{
		ID:             player.ID,
		RoomID:         player.RoomID,
		Nickname:       player.Nickname,
		IsHost:         player.IsHost,
		TotalPoints:    player.TotalPoints,
		HasBeenDecider: player.HasBeenDecider,
		JoinedAt:       player.JoinedAt,
	}
}

func roundFromRecord(record db.Round) game.Round {
	return game.Round{
		ID:          record.ID,
		RoomID:      record.RoomID,
		Number:      record.RoundNumber,
		Status:      game.TurnStatus(record.Status),
		IsComplete:  record.IsComplete,
		CurrentTurn: record.CurrentTurn,
	}
}

func roundRecord(round game.Round) db.Round {
	return db.Round{
		ID:          round.ID,
		RoomID:      round.RoomID,
		RoundNumber: round.Number,
		Status:      string(round.Status),
		IsComplete:  round.IsComplete,
		CurrentTurn: round.CurrentTurn,
	}
}

func turnFromRecord(record db.Turn) game.Turn {
	return game.Turn{
		ID:         record.ID,
		RoomID:     record.RoomID,
		RoundID:    record.RoundID,
		Number:     record.TurnNumber,
		DeciderID:  record.DeciderID,
		Status:     game.TurnStatus(record.Status),
		Category:   deref(record.Category),
		ScenarioID: deref(record.ScenarioID),
		Context:    deref(record.Context),
	}
}

func turnRecord(turn game.Turn) db.Turn {
	return db.Turn{
		ID:         turn.ID,
		RoomID:     turn.RoomID,
		RoundID:    turn.RoundID,
		TurnNumber: turn.Number,
		DeciderID:  turn.DeciderID,
		Status:     string(turn.Status),
		Category:   nullable(turn.Category),
		ScenarioID: nullable(turn.ScenarioID),
		Context:    nullable(turn.Context),
	}
}

func entryFromRecord(record db.DeciderHistory) game.DeciderEntry {
	return game.DeciderEntry{
		ID:         record.ID,
		RoomID:     record.RoomID,
		RoundID:    record.RoundID,
		PlayerID:   record.PlayerID,
		TurnNumber: record.TurnNumber,
	}
}

func answerFromRecord(record db.Answer) game.Answer {
	return game.Answer{
		ID:       record.ID,
		RoomID:   record.RoomID,
		TurnID:   record.TurnID,
		PlayerID: record.PlayerID,
		Text:     record.Text,
		Score:    record.AIScore,
		Feedback: record.Feedback,
	}
}

func voteFromRecord(record db.Vote) game.Vote {
	return game.Vote{
		ID:       record.ID,
		RoomID:   record.RoomID,
		AnswerID: record.AnswerID,
		VoterID:  record.VoterID,
	}
}

func scenarioFromRecord(record db.Scenario) game.Scenario {
	return game.Scenario{
		ID:       record.ID,
		RoomID:   record.RoomID,
		TurnID:   record.TurnID,
		Text:     record.Text,
		IsCustom: record.IsCustom,
	}
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func nullable(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

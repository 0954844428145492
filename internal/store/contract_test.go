package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hot-seat/internal/game"
)

// runContract checks behavior every Store implementation must share.
func runContract(t *testing.T, open func(t *testing.T) Store) {
	ctx := context.Background()

	seed := func(t *testing.T, s Store) (game.Room, game.Round, game.Turn) {
		t.Helper()
		room := game.Room{ID: "00000000-0000-0000-0000-000000000001", JoinCode: "ABC234", Status: game.RoomWaiting, TotalRounds: 2, CurrentRound: 1, CurrentTurn: 1}
		require.NoError(t, s.CreateRoom(ctx, room))
		base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		for i, id := range []string{"00000000-0000-0000-0000-0000000000a1", "00000000-0000-0000-0000-0000000000a2"} {
			require.NoError(t, s.CreatePlayer(ctx, game.Player{ID: id, RoomID: room.ID, Nickname: "player" + id[len(id)-1:], JoinedAt: base.Add(time.Duration(i) * time.Minute)}))
		}
		round := game.Round{ID: "00000000-0000-0000-0000-0000000000b1", RoomID: room.ID, Number: 1, Status: game.TurnSelectingCategory, CurrentTurn: 1}
		require.NoError(t, s.CreateRound(ctx, round))
		turn := game.Turn{ID: "00000000-0000-0000-0000-0000000000c1", RoomID: room.ID, RoundID: round.ID, Number: 1, DeciderID: "00000000-0000-0000-0000-0000000000a1", Status: game.TurnSelectingCategory}
		require.NoError(t, s.CreateTurn(ctx, turn))
		return room, round, turn
	}

	t.Run("unique keys conflict", func(t *testing.T) {
		s := open(t)
		room, round, turn := seed(t, s)

		err := s.CreateTurn(ctx, game.Turn{ID: "00000000-0000-0000-0000-0000000000c2", RoomID: room.ID, RoundID: round.ID, Number: turn.Number, DeciderID: turn.DeciderID, Status: game.TurnSelectingCategory})
		require.ErrorIs(t, err, ErrConflict)

		err = s.CreateRound(ctx, game.Round{ID: "00000000-0000-0000-0000-0000000000b2", RoomID: room.ID, Number: 1, Status: game.TurnSelectingCategory, CurrentTurn: 1})
		require.ErrorIs(t, err, ErrConflict)

		err = s.CreatePlayer(ctx, game.Player{ID: "00000000-0000-0000-0000-0000000000a3", RoomID: room.ID, Nickname: "player1"})
		require.ErrorIs(t, err, ErrConflict)
	})

	t.Run("turn update is compare and set", func(t *testing.T) {
		s := open(t)
		_, _, turn := seed(t, s)
		next := game.TurnSelectingScenario
		category := "Food"

		require.NoError(t, s.UpdateTurn(ctx, turn.ID, game.TurnSelectingCategory, game.TurnPatch{Status: &next, Category: &category}))
		err := s.UpdateTurn(ctx, turn.ID, game.TurnSelectingCategory, game.TurnPatch{Status: &next})
		require.ErrorIs(t, err, ErrStale)

		got, err := s.GetTurn(ctx, turn.ID)
		require.NoError(t, err)
		assert.Equal(t, game.TurnSelectingScenario, got.Status)
		assert.Equal(t, "Food", got.Category)
	})

	t.Run("answers upsert by turn and player", func(t *testing.T) {
		s := open(t)
		room, _, turn := seed(t, s)
		playerID := "00000000-0000-0000-0000-0000000000a2"

		first, err := s.UpsertAnswer(ctx, game.Answer{ID: "00000000-0000-0000-0000-0000000000d1", RoomID: room.ID, TurnID: turn.ID, PlayerID: playerID, Text: "first"})
		require.NoError(t, err)
		second, err := s.UpsertAnswer(ctx, game.Answer{ID: "00000000-0000-0000-0000-0000000000d2", RoomID: room.ID, TurnID: turn.ID, PlayerID: playerID, Text: "second"})
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)

		answers, err := s.ListAnswers(ctx, turn.ID)
		require.NoError(t, err)
		require.Len(t, answers, 1)
		assert.Equal(t, "second", answers[0].Text)
	})

	t.Run("score is written once", func(t *testing.T) {
		s := open(t)
		room, _, turn := seed(t, s)
		answer, err := s.UpsertAnswer(ctx, game.Answer{ID: "00000000-0000-0000-0000-0000000000d1", RoomID: room.ID, TurnID: turn.ID, PlayerID: "00000000-0000-0000-0000-0000000000a2", Text: "hi"})
		require.NoError(t, err)

		wrote, err := s.SetAnswerScore(ctx, answer.ID, 8, "sharp")
		require.NoError(t, err)
		assert.True(t, wrote)
		wrote, err = s.SetAnswerScore(ctx, answer.ID, 5, "Error processing response")
		require.NoError(t, err)
		assert.False(t, wrote)

		got, err := s.GetAnswer(ctx, answer.ID)
		require.NoError(t, err)
		require.NotNil(t, got.Score)
		assert.Equal(t, 8, *got.Score)
		assert.Equal(t, "sharp", *got.Feedback)
	})

	t.Run("votes are permissive", func(t *testing.T) {
		s := open(t)
		room, _, turn := seed(t, s)
		answer, err := s.UpsertAnswer(ctx, game.Answer{ID: "00000000-0000-0000-0000-0000000000d1", RoomID: room.ID, TurnID: turn.ID, PlayerID: "00000000-0000-0000-0000-0000000000a2", Text: "hi"})
		require.NoError(t, err)
		for _, id := range []string{"00000000-0000-0000-0000-0000000000e1", "00000000-0000-0000-0000-0000000000e2"} {
			require.NoError(t, s.CreateVote(ctx, game.Vote{ID: id, RoomID: room.ID, AnswerID: answer.ID, VoterID: "00000000-0000-0000-0000-0000000000a1"}))
		}
		votes, err := s.ListVotes(ctx, turn.ID)
		require.NoError(t, err)
		assert.Len(t, votes, 2)
	})

	t.Run("points and flags", func(t *testing.T) {
		s := open(t)
		room, _, _ := seed(t, s)
		playerID := "00000000-0000-0000-0000-0000000000a2"

		require.NoError(t, s.AddPoints(ctx, playerID, 7))
		require.NoError(t, s.AddPoints(ctx, playerID, 3))
		require.NoError(t, s.SetDeciderFlag(ctx, playerID, true))
		require.NoError(t, s.SetHost(ctx, room.ID, playerID))

		players, err := s.ListPlayers(ctx, room.ID)
		require.NoError(t, err)
		require.Len(t, players, 2)
		assert.Equal(t, playerID, players[1].ID)
		assert.Equal(t, 10, players[1].TotalPoints)
		assert.True(t, players[1].HasBeenDecider)
		assert.True(t, players[1].IsHost)
		assert.False(t, players[0].IsHost)

		got, err := s.GetRoom(ctx, room.ID)
		require.NoError(t, err)
		assert.Equal(t, playerID, got.HostID)
	})

	t.Run("missing rows", func(t *testing.T) {
		s := open(t)
		_, err := s.GetRoom(ctx, "00000000-0000-0000-0000-0000000000ff")
		require.ErrorIs(t, err, ErrNotFound)
		err = s.DeleteTurn(ctx, "00000000-0000-0000-0000-0000000000ff")
		require.ErrorIs(t, err, ErrNotFound)
		err = s.UpdateTurn(ctx, "00000000-0000-0000-0000-0000000000ff", game.TurnVoting, game.TurnPatch{})
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("history and deletes", func(t *testing.T) {
		s := open(t)
		room, round, turn := seed(t, s)
		entry := game.DeciderEntry{ID: "00000000-0000-0000-0000-0000000000f1", RoomID: room.ID, RoundID: round.ID, PlayerID: turn.DeciderID, TurnNumber: 1}
		require.NoError(t, s.AppendDecider(ctx, entry))

		history, err := s.ListHistory(ctx, round.ID)
		require.NoError(t, err)
		assert.Equal(t, []game.DeciderEntry{entry}, history)

		require.NoError(t, s.DeleteDecider(ctx, entry.ID))
		require.NoError(t, s.DeleteTurn(ctx, turn.ID))
		turns, err := s.ListTurns(ctx, room.ID)
		require.NoError(t, err)
		assert.Empty(t, turns)

		require.NoError(t, s.DeleteRoom(ctx, room.ID))
		_, err = s.GetRoom(ctx, room.ID)
		require.ErrorIs(t, err, ErrNotFound)
		players, err := s.ListPlayers(ctx, room.ID)
		require.NoError(t, err)
		assert.Empty(t, players)
	})
}

package progression

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"hot-seat/internal/apperr"
	"hot-seat/internal/broadcast"
	"hot-seat/internal/game"
	"hot-seat/internal/store"
)

// Session is a room together with the player a request acts as.
type Session struct {
	Room   game.Room   `json:"room"`
	Player game.Player `json:"player"`
}

type GameState struct {
	Room    game.Room     `json:"room"`
	Rounds  []game.Round  `json:"rounds"`
	Players []game.Player `json:"players"`
	Turns   []game.Turn   `json:"turns"`
}

// CreateRoom opens a waiting room hosted by a new player. A zero totalRounds
// takes the configured default.
func (o *Orchestrator) CreateRoom(ctx context.Context, nickname string, totalRounds int) (Session, error) {
	nickname = normalizeNickname(nickname)
	if nickname == "" {
		return Session{}, ErrNicknameRequired
	}
	if totalRounds == 0 {
		totalRounds = o.cfg.DefaultTotalRounds
	}
	if totalRounds < 1 || totalRounds > o.cfg.MaxTotalRounds {
		return Session{}, ErrInvalidRounds
	}

	host := game.Player{ID: o.newID(), Nickname: nickname, IsHost: true}
	room := game.Room{
		ID:           o.newID(),
		Status:       game.RoomWaiting,
		TotalRounds:  totalRounds,
		CurrentRound: 1,
		CurrentTurn:  1,
		HostID:       host.ID,
	}
	created := false
	for attempt := 0; attempt < joinCodeAttempts; attempt++ {
		code, err := o.newJoinCode()
		if err != nil {
			return Session{}, apperr.Internal("failed to generate join code", err)
		}
		room.JoinCode = code
		err = o.store.CreateRoom(ctx, room)
		if err == nil {
			created = true
			break
		}
		if !errors.Is(err, store.ErrConflict) {
			return Session{}, err
		}
		o.log.Debug("join code collision", zap.String("join_code", room.JoinCode))
	}
	if !created {
		return Session{}, ErrJoinCodeTaken
	}

	host.RoomID = room.ID
	if err := o.store.CreatePlayer(ctx, host); err != nil {
		if undoErr := o.store.DeleteRoom(context.WithoutCancel(ctx), room.ID); undoErr != nil {
			o.log.Error("failed to remove room without host", zap.String("room_id", room.ID), zap.Error(undoErr))
		}
		return Session{}, err
	}
	o.log.Info("room created", zap.String("room_id", room.ID), zap.String("join_code", room.JoinCode), zap.Int("total_rounds", totalRounds))

	room, err := o.store.GetRoom(ctx, room.ID)
	if err != nil {
		return Session{}, err
	}
	host, err = o.store.GetPlayer(ctx, host.ID)
	if err != nil {
		return Session{}, err
	}
	return Session{Room: room, Player: host}, nil
}

// JoinRoom adds a player to a waiting room. Joining again with a nickname
// already present, in any letter case, returns that player.
func (o *Orchestrator) JoinRoom(ctx context.Context, joinCode, nickname string) (Session, error) {
	nickname = normalizeNickname(nickname)
	if nickname == "" {
		return Session{}, ErrNicknameRequired
	}
	room, err := o.store.GetRoomByCode(ctx, strings.ToUpper(strings.TrimSpace(joinCode)))
	if err != nil {
		return Session{}, err
	}
	players, err := o.store.ListPlayers(ctx, room.ID)
	if err != nil {
		return Session{}, err
	}
	if existing, ok := byNickname(players, nickname); ok {
		return Session{Room: room, Player: existing}, nil
	}
	if room.Status != game.RoomWaiting {
		return Session{}, ErrGameStarted
	}
	if len(players) >= o.cfg.MaxPlayers {
		return Session{}, ErrRoomFull
	}

	player := game.Player{ID: o.newID(), RoomID: room.ID, Nickname: nickname}
	if err := o.store.CreatePlayer(ctx, player); err != nil {
		if !errors.Is(err, store.ErrConflict) {
			return Session{}, err
		}
		// a concurrent join with the same nickname won
		players, listErr := o.store.ListPlayers(ctx, room.ID)
		if listErr != nil {
			return Session{}, listErr
		}
		existing, ok := byNickname(players, nickname)
		if !ok {
			return Session{}, err
		}
		return Session{Room: room, Player: existing}, nil
	}
	player, err = o.store.GetPlayer(ctx, player.ID)
	if err != nil {
		return Session{}, err
	}
	o.log.Info("player joined", zap.String("room_id", room.ID), zap.String("player_id", player.ID))
	return Session{Room: room, Player: player}, nil
}

func (o *Orchestrator) GetGameState(ctx context.Context, roomID string) (GameState, error) {
	room, err := o.store.GetRoom(ctx, roomID)
	if err != nil {
		return GameState{}, err
	}
	state := GameState{Room: room}
	if state.Rounds, err = o.store.ListRounds(ctx, roomID); err != nil {
		return GameState{}, err
	}
	if state.Players, err = o.store.ListPlayers(ctx, roomID); err != nil {
		return GameState{}, err
	}
	if state.Turns, err = o.store.ListTurns(ctx, roomID); err != nil {
		return GameState{}, err
	}
	return state, nil
}

// TurnDetail is a turn with its scenarios, answers and votes.
type TurnDetail struct {
	Turn      game.Turn       `json:"turn"`
	Scenarios []game.Scenario `json:"scenarios"`
	Answers   []game.Answer   `json:"answers"`
	Votes     []game.Vote     `json:"votes"`
}

func (o *Orchestrator) GetTurn(ctx context.Context, turnID string) (TurnDetail, error) {
	s, err := o.turnSnapshot(ctx, turnID)
	if err != nil {
		return TurnDetail{}, err
	}
	return TurnDetail{Turn: *s.Turn, Scenarios: s.Scenarios, Answers: s.Answers, Votes: s.Votes}, nil
}

// RemovePlayer deletes a player. Removing an unknown player is not an error.
// The host role passes to the earliest remaining player, and a game left
// with fewer than two players ends.
func (o *Orchestrator) RemovePlayer(ctx context.Context, playerID string) (Outcome, error) {
	player, err := o.store.GetPlayer(ctx, playerID)
	if errors.Is(err, store.ErrNotFound) {
		return Outcome{Kind: game.KindNone, Reason: "player not found"}, nil
	}
	if err != nil {
		return Outcome{}, err
	}
	if err := o.store.DeletePlayer(ctx, playerID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Outcome{Kind: game.KindNone, Reason: "player not found"}, nil
		}
		return Outcome{}, err
	}
	o.log.Info("player removed", zap.String("room_id", player.RoomID), zap.String("player_id", playerID))

	s, err := o.roomSnapshot(ctx, player.RoomID)
	if err != nil {
		return Outcome{}, err
	}
	if player.IsHost && len(s.Players) > 0 {
		next := s.Players[0]
		if err := o.store.SetHost(ctx, s.Room.ID, next.ID); err != nil {
			o.log.Error("failed to reassign host", zap.String("room_id", s.Room.ID), zap.String("player_id", next.ID), zap.Error(err))
		} else {
			s.Room.HostID = next.ID
		}
	}
	o.publish(ctx, s.Room.ID, broadcast.EventPlayerLeft, map[string]string{
		"playerId": player.ID,
		"nickname": player.Nickname,
		"hostId":   s.Room.HostID,
	})

	tr, err := o.machine.Depart(s)
	if err != nil {
		return Outcome{}, err
	}
	outcome, err := o.apply(ctx, "remove_player", s.Room.ID, tr)
	if err != nil || outcome.Applied {
		return outcome, err
	}
	// the departure may have lowered the answer floor of the current turn
	if s.Room.Status == game.RoomInProgress {
		if turn, err := o.currentTurn(ctx, *s.Room); err == nil && turn.Status == game.TurnAnswering {
			o.maybeScore(ctx, turn.ID)
		}
	}
	return outcome, nil
}

func byNickname(players []game.Player, nickname string) (game.Player, bool) {
	for _, player := range players {
		if strings.EqualFold(player.Nickname, nickname) {
			return player, true
		}
	}
	return game.Player{}, false
}

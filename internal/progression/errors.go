package progression

import (
	"crypto/rand"
	"fmt"

	"hot-seat/internal/apperr"
)

var (
	ErrNicknameRequired = apperr.Validation("nickname is required")
	ErrInvalidRounds    = apperr.Validation("total rounds is out of range")
	ErrAnswerRequired   = apperr.Validation("answer text is required")
	ErrGameStarted      = apperr.Conflict("game already started")
	ErrRoomFull         = apperr.Conflict("room is full")
	ErrNotInRoom        = apperr.Authorization("player is not in this room")
	ErrNoActiveTurn     = apperr.NotFound("room has no active turn")
	ErrJoinCodeTaken    = apperr.Internal("could not allocate a join code", nil)
)

const joinCodeAttempts = 5

// NewJoinCode returns a six character code without easily confused letters.
func NewJoinCode() (string, error) {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random join code: %w", err)
	}
	for i := range buf {
		buf[i] = alphabet[int(buf[i])%len(alphabet)]
	}
	return string(buf), nil
}

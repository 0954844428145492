package game

import "hot-seat/internal/apperr"

var (
	// ErrInvalidSnapshot marks a structural invariant violation. Callers must
	// not retry it.
	ErrInvalidSnapshot  = apperr.Internal("invalid game snapshot", nil)
	ErrNotHost          = apperr.Authorization("only the host may do this")
	ErrNotDecider       = apperr.Authorization("only the decider may do this")
	ErrWrongPhase       = apperr.Conflict("turn is not in the expected phase")
	ErrGameOver         = apperr.Conflict("game is already completed")
	ErrCategoryRequired = apperr.Validation("category is required")
	ErrScenarioRequired = apperr.Validation("scenario or custom text is required")
	ErrUnknownScenario  = apperr.Validation("scenario does not belong to this turn")
)

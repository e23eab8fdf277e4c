package tournament

import "errors"

// Errors returned by the scheduling engine. They are always wrapped with the
// counts or bounds that caused them; match with errors.Is.
var (
	// Team count outside the supported bands.
	ErrCapacity = errors.New("unsupported team count")

	// Daily window, match duration, rest days, or date range are unusable.
	ErrConfiguration = errors.New("invalid schedule configuration")

	// Fewer bookable slots than matches to place.
	ErrInsufficientSlots = errors.New("not enough slots")

	// No assignment satisfies the constraints within the slots and time budget.
	ErrInfeasible = errors.New("no feasible schedule")

	// The previous phase still has matches without a final result.
	ErrPhaseNotReady = errors.New("phase not ready")

	// Every phase of the tournament has already been scheduled.
	ErrNoPendingStage = errors.New("no pending stage")
)

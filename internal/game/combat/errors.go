package combat

import "errors"

// Rejected actions and selections. All are recoverable: the operation that
// returns one leaves the combat state unchanged.
var (
	// ErrInvalidTarget is returned when a target is dead, unknown or on the
	// wrong side for the selected action.
	ErrInvalidTarget = errors.New("invalid target")
	// ErrUnknownAbility is returned when an item or spell id does not resolve
	// or the actor cannot use it.
	ErrUnknownAbility = errors.New("unknown ability")
	// ErrInsufficientResource is returned when the actor lacks the mp for a
	// spell or the inventory lacks the item.
	ErrInsufficientResource = errors.New("insufficient resource")
	// ErrInvalidSelectionState is returned when a selection step or resolution
	// is attempted out of order.
	ErrInvalidSelectionState = errors.New("invalid selection state")
)

// Session and engine lifecycle errors.
var (
	ErrNoCombat         = errors.New("no active combat")
	ErrCombatExists     = errors.New("combat already active")
	ErrNotVictorious    = errors.New("combat has not been won")
	// ErrResultsPending is returned when a won combat has not been recorded
	// with ComputeResults yet.
	ErrResultsPending   = errors.New("combat results not recorded")
	ErrNoEncounter      = errors.New("no encounter for area")
	ErrPartyDefeated    = errors.New("party has no living characters")
	ErrSnapshotNotFound = errors.New("combat snapshot not found")
)

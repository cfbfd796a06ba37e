package combat

import "github.com/cory-johannsen/starfall/internal/game/combatant"

// Outcome is the combat state machine's terminal classification.
// Only Ongoing -> {VictoryPending, Defeat, Fled} and
// VictoryPending -> VictoryRecorded transitions exist.
type Outcome int

const (
	Ongoing Outcome = iota
	// VictoryPending means every enemy is down but rewards are not yet recorded.
	VictoryPending
	// VictoryRecorded means rewards were computed and committed.
	VictoryRecorded
	Defeat
	Fled
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case Ongoing:
		return "ongoing"
	case VictoryPending:
		return "victory_pending"
	case VictoryRecorded:
		return "victory_recorded"
	case Defeat:
		return "defeat"
	case Fled:
		return "fled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the combat is over.
func (o Outcome) Terminal() bool { return o != Ongoing }

// Victory reports whether the outcome is either victory state.
func (o Outcome) Victory() bool { return o == VictoryPending || o == VictoryRecorded }

// Evaluate classifies the combatants: every enemy down is a victory, else
// every character down is a defeat, else combat is ongoing. Victory is
// checked first so the two can never both hold.
//
// Postcondition: Returns Ongoing, VictoryPending or Defeat.
func Evaluate(reg *combatant.Registry) Outcome {
	if !anyAlive(reg, combatant.KindEnemy) {
		return VictoryPending
	}
	if !anyAlive(reg, combatant.KindCharacter) {
		return Defeat
	}
	return Ongoing
}

func anyAlive(reg *combatant.Registry, k combatant.Kind) bool {
	for _, c := range reg.All() {
		if c.Kind == k && c.IsAlive() {
			return true
		}
	}
	return false
}

// sideAlive reports whether any combatant fighting for side is alive.
func sideAlive(reg *combatant.Registry, side combatant.Side) bool {
	for _, c := range reg.All() {
		if c.Side() == side && c.IsAlive() {
			return true
		}
	}
	return false
}

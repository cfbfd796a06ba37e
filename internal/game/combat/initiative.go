package combat

import (
	"sort"

	"github.com/cory-johannsen/starfall/internal/game/combatant"
)

// TurnOrder returns a copy of combatants sorted by Speed descending. The sort
// is stable, so ties keep registry order: characters, then guests, then
// enemies. The order is fixed for the whole combat.
//
// Postcondition: len(result) == len(combatants); result shares the pointers.
func TurnOrder(combatants []*combatant.Combatant) []*combatant.Combatant {
	sorted := make([]*combatant.Combatant, len(combatants))
	copy(sorted, combatants)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Speed > sorted[j].Speed
	})
	return sorted
}

// firstLiving returns the index of the first living combatant, or -1.
func firstLiving(reg *combatant.Registry) int {
	for i, c := range reg.All() {
		if c.IsAlive() {
			return i
		}
	}
	return -1
}

// Advance moves the active pointer to the next living combatant, wrapping
// around and incrementing Round on wrap. Statuses on the new active
// combatant tick down before it acts.
//
// Precondition: s.Outcome is Ongoing, so both sides have a living combatant.
// Postcondition: Returns a new State whose active combatant is alive, or
// ErrInvalidSelectionState and s unchanged when combat is over.
func Advance(s *State) (*State, error) {
	if s.Outcome.Terminal() || !sideAlive(s.Combatants, combatant.SideParty) || !sideAlive(s.Combatants, combatant.SideFoes) {
		return s, ErrInvalidSelectionState
	}
	next := s.Clone()
	advanceInPlace(next)
	return next, nil
}

// advanceInPlace is Advance on a State the caller already owns.
func advanceInPlace(s *State) {
	n := s.Combatants.Len()
	i := s.Active
	for step := 0; step < n; step++ {
		i++
		if i >= n {
			i = 0
			s.Round++
		}
		if s.Combatants.At(i).IsAlive() {
			break
		}
	}
	s.Active = i
	s.Selection = Selection{}
	active := s.Combatants.At(i)
	expired := active.Status.Tick()
	if s.Last != nil {
		ref := active.Ref
		s.Last.Next = &ref
		s.Last.Expired = expired
	}
}

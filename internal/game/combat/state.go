package combat

import (
	"github.com/cory-johannsen/starfall/internal/game/combatant"
	"github.com/cory-johannsen/starfall/internal/game/party"
	"github.com/cory-johannsen/starfall/internal/game/reward"
)

// State is the complete, serializable state of one combat encounter.
// Functions in this package treat a *State as immutable input and return a
// new *State; on error they return the input unchanged.
type State struct {
	ID        string `json:"id"`
	Area      string `json:"area"`
	Encounter string `json:"encounter"`
	// Combatants is the turn-ordered sequence. Dead combatants keep their slot.
	Combatants *combatant.Registry `json:"combatants"`
	// Active is the sequence index of the combatant whose turn it is.
	Active    int       `json:"active"`
	Round     int       `json:"round"`
	Turns     int       `json:"turns"`
	Selection Selection `json:"selection"`
	Outcome   Outcome   `json:"outcome"`
	// Inventory is the working copy of the party inventory.
	Inventory map[string]int `json:"inventory"`
	// Consumed counts items used during this combat.
	Consumed map[string]int `json:"consumed"`
	// Party is the snapshot loaded when combat started.
	Party party.Party `json:"party"`
	// Last describes the most recently resolved turn.
	Last *TurnReport `json:"last,omitempty"`
	// Results is set once a victory is recorded.
	Results *reward.Results `json:"results,omitempty"`
}

// ActiveCombatant returns the combatant whose turn it is.
func (s *State) ActiveCombatant() *combatant.Combatant {
	return s.Combatants.At(s.Active)
}

// Clone returns a deep copy of s.
func (s *State) Clone() *State {
	out := *s
	out.Combatants = s.Combatants.Clone()
	out.Selection = s.Selection.Clone()
	out.Inventory = cloneCounts(s.Inventory)
	out.Consumed = cloneCounts(s.Consumed)
	out.Party = s.Party.Clone()
	if s.Last != nil {
		last := s.Last.clone()
		out.Last = &last
	}
	if s.Results != nil {
		res := s.Results.Clone()
		out.Results = &res
	}
	return &out
}

// EnemiesDefeated returns the number of enemies with zero hp.
func (s *State) EnemiesDefeated() int {
	n := 0
	for _, c := range s.Combatants.OfKind(combatant.KindEnemy) {
		if !c.IsAlive() {
			n++
		}
	}
	return n
}

func cloneCounts(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// TurnReport records what one resolved action did, for presentation.
type TurnReport struct {
	Round  int            `json:"round"`
	Actor  combatant.Ref  `json:"actor"`
	Action ActionKind     `json:"action"`
	Target *combatant.Ref `json:"target,omitempty"`
	Item   string         `json:"item,omitempty"`
	Spell  string         `json:"spell,omitempty"`
	Damage int            `json:"damage,omitempty"`
	Healed int            `json:"healed,omitempty"`
	// MPRestored is mp restored on the target; MPSpent is the actor's spell cost.
	MPRestored int      `json:"mp_restored,omitempty"`
	MPSpent    int      `json:"mp_spent,omitempty"`
	Applied    []string `json:"applied,omitempty"`
	Removed    []string `json:"removed,omitempty"`
	Defeated   bool     `json:"defeated,omitempty"`
	// Next is the combatant whose turn began after this one; Expired lists
	// its statuses that ran out as that turn began.
	Next    *combatant.Ref `json:"next,omitempty"`
	Expired []string       `json:"expired,omitempty"`
}

func (r TurnReport) clone() TurnReport {
	out := r
	if r.Target != nil {
		t := *r.Target
		out.Target = &t
	}
	if r.Next != nil {
		n := *r.Next
		out.Next = &n
	}
	out.Applied = append([]string(nil), r.Applied...)
	out.Removed = append([]string(nil), r.Removed...)
	out.Expired = append([]string(nil), r.Expired...)
	return out
}

package combat

import (
	"sort"

	"github.com/cory-johannsen/starfall/internal/game/combatant"
	"github.com/cory-johannsen/starfall/internal/game/content"
)

// Policy chooses actions for combatants that are not player-controlled.
type Policy interface {
	// Decide returns the action for the active combatant of s.
	//
	// Precondition: s.Outcome is Ongoing.
	Decide(s *State) Decision
}

// LowestHPPolicy attacks the living opponent with the least hp. Ties go to
// the opponent that comes first in turn order.
type LowestHPPolicy struct{}

// Decide implements Policy.
func (LowestHPPolicy) Decide(s *State) Decision {
	actor := s.ActiveCombatant()
	var best *combatant.Combatant
	for _, c := range s.Combatants.All() {
		if !c.IsAlive() || c.Side() == actor.Side() {
			continue
		}
		if best == nil || c.HP < best.HP {
			best = c
		}
	}
	if best == nil {
		return Decision{Action: ActionDefend}
	}
	return Decision{Action: ActionAttack, Target: best.Ref}
}

// SupportPolicy heals the ally with the lowest hp fraction once it drops
// below Threshold of its max hp: first with a heal spell the actor knows and
// can afford, then with a heal item from the party inventory. Otherwise it
// defers to Fallback, or LowestHPPolicy when Fallback is nil.
type SupportPolicy struct {
	Catalog   *content.Catalog
	Threshold float64
	Fallback  Policy
}

// Decide implements Policy.
func (p SupportPolicy) Decide(s *State) Decision {
	fallback := p.Fallback
	if fallback == nil {
		fallback = LowestHPPolicy{}
	}
	actor := s.ActiveCombatant()
	var wounded *combatant.Combatant
	for _, c := range s.Combatants.All() {
		if !c.IsAlive() || c.Side() != actor.Side() {
			continue
		}
		if float64(c.HP) >= p.Threshold*float64(c.MaxHP) {
			continue
		}
		if wounded == nil || c.HP*wounded.MaxHP < wounded.HP*c.MaxHP {
			wounded = c
		}
	}
	if wounded == nil {
		return fallback.Decide(s)
	}

	for _, id := range actor.Spells {
		sp, ok := p.Catalog.Spells[id]
		if ok && sp.Effect.Kind == content.EffectHeal && actor.MP >= sp.MPCost {
			return Decision{Action: ActionSpell, Spell: id, Target: wounded.Ref}
		}
	}
	if actor.Side() == combatant.SideParty {
		ids := make([]string, 0, len(s.Inventory))
		for id, qty := range s.Inventory {
			if qty > 0 {
				ids = append(ids, id)
			}
		}
		sort.Strings(ids)
		for _, id := range ids {
			if it, ok := p.Catalog.Items[id]; ok && it.Effect.Kind == content.EffectHeal {
				return Decision{Action: ActionItem, Item: id, Target: wounded.Ref}
			}
		}
	}
	return fallback.Decide(s)
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc func(s *State) Decision

// Decide implements Policy.
func (f PolicyFunc) Decide(s *State) Decision { return f(s) }

// Apply runs a complete Decision through the selection steps and resolves it.
//
// Postcondition: On error the input state is returned unchanged.
func (r *Resolver) Apply(s *State, d Decision) (*State, error) {
	next, err := r.SelectAction(s, s.ActiveCombatant().Ref, d.Action)
	if err != nil {
		return s, err
	}
	switch d.Action {
	case ActionItem:
		if next, err = r.SelectItem(next, d.Item); err != nil {
			return s, err
		}
	case ActionSpell:
		if next, err = r.SelectSpell(next, d.Spell); err != nil {
			return s, err
		}
	}
	if d.Action.NeedsTarget() {
		if next, err = r.SelectTarget(next, d.Target); err != nil {
			return s, err
		}
	}
	next, err = r.Resolve(next)
	if err != nil {
		return s, err
	}
	return next, nil
}

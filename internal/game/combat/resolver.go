package combat

import (
	"fmt"

	"github.com/cory-johannsen/starfall/internal/game/combatant"
	"github.com/cory-johannsen/starfall/internal/game/content"
	"github.com/cory-johannsen/starfall/internal/game/status"
)

// Rules are the tunable combat formulas.
type Rules struct {
	// GuardDivisor divides the damage of the first attack against a guarded combatant.
	GuardDivisor int
	// MinDamage is the floor for attack and damage-spell damage.
	MinDamage int
}

// DefaultRules returns GuardDivisor 2 and MinDamage 1.
func DefaultRules() Rules {
	return Rules{GuardDivisor: 2, MinDamage: 1}
}

// Resolver validates selections and applies actions against the content
// tables. All of its methods are pure: they return a new State and never
// modify their input.
type Resolver struct {
	rules   Rules
	catalog *content.Catalog
	guard   status.Def
}

// NewResolver creates a Resolver.
//
// Precondition: catalog must be non-nil; rules values below 1 are raised to 1.
func NewResolver(rules Rules, catalog *content.Catalog) *Resolver {
	rules.GuardDivisor = max(1, rules.GuardDivisor)
	rules.MinDamage = max(1, rules.MinDamage)
	return &Resolver{rules: rules, catalog: catalog, guard: status.Guard(rules.GuardDivisor)}
}

// Rules returns the effective rules.
func (r *Resolver) Rules() Rules { return r.rules }

// SelectAction starts or replaces the active combatant's selection.
// ActionNone clears the selection. Any other action discards a previously
// chosen item, spell and target.
//
// Postcondition: On success the returned state's Selection.Action == action.
func (r *Resolver) SelectAction(s *State, actor combatant.Ref, action ActionKind) (*State, error) {
	if s.Outcome.Terminal() {
		return s, fmt.Errorf("selecting action: %w", ErrInvalidSelectionState)
	}
	active := s.ActiveCombatant()
	if active.Ref != actor {
		return s, fmt.Errorf("selecting action for %s during %s's turn: %w", actor, active.Ref, ErrInvalidSelectionState)
	}
	switch action {
	case ActionNone, ActionAttack, ActionDefend, ActionSpell:
	case ActionItem:
		if active.Side() != combatant.SideParty {
			return s, fmt.Errorf("%s cannot use party items: %w", actor, ErrInvalidSelectionState)
		}
	default:
		return s, fmt.Errorf("action %d: %w", int(action), ErrInvalidSelectionState)
	}
	next := s.Clone()
	if action == ActionNone {
		next.Selection = Selection{}
		return next, nil
	}
	ref := actor
	next.Selection = Selection{Actor: &ref, Action: action}
	return next, nil
}

// ClearSelection cancels any in-progress selection. It never undoes a
// resolved action.
func ClearSelection(s *State) *State {
	next := s.Clone()
	next.Selection = Selection{}
	return next
}

// SelectItem chooses the item for an Item action and clears any target.
//
// Postcondition: Returns ErrInvalidSelectionState unless the action is Item,
// ErrUnknownAbility for an unknown id and ErrInsufficientResource when the
// working inventory has none left.
func (r *Resolver) SelectItem(s *State, itemID string) (*State, error) {
	if err := r.checkItem(s, itemID); err != nil {
		return s, err
	}
	next := s.Clone()
	id := itemID
	next.Selection.Item = &id
	next.Selection.Target = nil
	return next, nil
}

// SelectSpell chooses the spell for a Spell action and clears any target.
//
// Postcondition: Returns ErrInvalidSelectionState unless the action is Spell,
// ErrUnknownAbility when the spell is unknown or the actor does not know it,
// and ErrInsufficientResource when its mp cost exceeds the actor's mp.
func (r *Resolver) SelectSpell(s *State, spellID string) (*State, error) {
	if err := r.checkSpell(s, spellID); err != nil {
		return s, err
	}
	next := s.Clone()
	id := spellID
	next.Selection.Spell = &id
	next.Selection.Target = nil
	return next, nil
}

// SelectTarget chooses the target for an Attack, Item or Spell action.
//
// Precondition: for Item and Spell the item or spell must already be chosen.
// Postcondition: Returns ErrInvalidTarget unless target is alive and on the
// side the action affects.
func (r *Resolver) SelectTarget(s *State, target combatant.Ref) (*State, error) {
	if err := r.checkTarget(s, target); err != nil {
		return s, err
	}
	next := s.Clone()
	t := target
	next.Selection.Target = &t
	return next, nil
}

func (r *Resolver) checkSelecting(s *State, want ActionKind) error {
	if s.Outcome.Terminal() || s.Selection.Actor == nil || s.Selection.Action != want {
		return fmt.Errorf("expected %s selection, have %s: %w", want, s.Selection.Action, ErrInvalidSelectionState)
	}
	return nil
}

func (r *Resolver) checkItem(s *State, itemID string) error {
	if err := r.checkSelecting(s, ActionItem); err != nil {
		return err
	}
	if _, ok := r.catalog.Items[itemID]; !ok {
		return fmt.Errorf("item %q: %w", itemID, ErrUnknownAbility)
	}
	if s.Inventory[itemID] < 1 {
		return fmt.Errorf("item %q: none left: %w", itemID, ErrInsufficientResource)
	}
	return nil
}

func (r *Resolver) checkSpell(s *State, spellID string) error {
	if err := r.checkSelecting(s, ActionSpell); err != nil {
		return err
	}
	def, ok := r.catalog.Spells[spellID]
	actor := s.ActiveCombatant()
	if !ok || !actor.Knows(spellID) {
		return fmt.Errorf("spell %q for %s: %w", spellID, actor.Ref, ErrUnknownAbility)
	}
	if def.MPCost > actor.MP {
		return fmt.Errorf("spell %q costs %d mp, %s has %d: %w", spellID, def.MPCost, actor.Ref, actor.MP, ErrInsufficientResource)
	}
	return nil
}

// targetSide returns the side the current selection may target.
func (r *Resolver) targetSide(s *State) (combatant.Side, error) {
	actor := s.ActiveCombatant()
	own := actor.Side()
	opposing := combatant.SideFoes
	if own == combatant.SideFoes {
		opposing = combatant.SideParty
	}
	sel := s.Selection
	switch sel.Action {
	case ActionAttack:
		return opposing, nil
	case ActionItem:
		if sel.Item == nil {
			return own, fmt.Errorf("target chosen before item: %w", ErrInvalidSelectionState)
		}
		return own, nil
	case ActionSpell:
		if sel.Spell == nil {
			return own, fmt.Errorf("target chosen before spell: %w", ErrInvalidSelectionState)
		}
		def, ok := r.catalog.Spells[*sel.Spell]
		if !ok {
			return own, fmt.Errorf("spell %q: %w", *sel.Spell, ErrUnknownAbility)
		}
		if def.Effect.Kind.Hostile() {
			return opposing, nil
		}
		return own, nil
	case ActionNone, ActionDefend:
		return own, fmt.Errorf("%s takes no target: %w", sel.Action, ErrInvalidSelectionState)
	default:
		return own, fmt.Errorf("action %d: %w", int(sel.Action), ErrInvalidSelectionState)
	}
}

func (r *Resolver) checkTarget(s *State, target combatant.Ref) error {
	if s.Outcome.Terminal() || s.Selection.Actor == nil {
		return fmt.Errorf("selecting target: %w", ErrInvalidSelectionState)
	}
	side, err := r.targetSide(s)
	if err != nil {
		return err
	}
	c, ok := s.Combatants.Lookup(target)
	if !ok {
		return fmt.Errorf("target %s not in combat: %w", target, ErrInvalidTarget)
	}
	if !c.IsAlive() {
		return fmt.Errorf("target %s is down: %w", target, ErrInvalidTarget)
	}
	if c.Side() != side {
		return fmt.Errorf("target %s is on the wrong side for %s: %w", target, s.Selection.Action, ErrInvalidTarget)
	}
	return nil
}

// validate re-checks a ready selection against the current state.
func (r *Resolver) validate(s *State) error {
	if s.Outcome.Terminal() {
		return fmt.Errorf("resolving turn: combat is %s: %w", s.Outcome, ErrInvalidSelectionState)
	}
	sel := s.Selection
	if !sel.Ready() {
		return fmt.Errorf("resolving turn: %s selection incomplete: %w", sel.Action, ErrInvalidSelectionState)
	}
	if *sel.Actor != s.ActiveCombatant().Ref {
		return fmt.Errorf("resolving turn: selection belongs to %s: %w", *sel.Actor, ErrInvalidSelectionState)
	}
	switch sel.Action {
	case ActionItem:
		if err := r.checkItem(s, *sel.Item); err != nil {
			return err
		}
	case ActionSpell:
		if err := r.checkSpell(s, *sel.Spell); err != nil {
			return err
		}
	}
	if sel.Action.NeedsTarget() {
		return r.checkTarget(s, *sel.Target)
	}
	return nil
}

// Resolve applies the active combatant's ready selection, evaluates the
// outcome and, when combat continues, advances to the next living combatant.
//
// Precondition: s.Selection.Ready().
// Postcondition: On error the input state is returned unchanged. On success
// every combatant satisfies 0 <= HP <= MaxHP and the returned state's
// active combatant is alive when Outcome is Ongoing.
func (r *Resolver) Resolve(s *State) (*State, error) {
	if err := r.validate(s); err != nil {
		return s, err
	}
	next := s.Clone()
	actor := next.ActiveCombatant()
	sel := next.Selection
	report := &TurnReport{Round: next.Round, Actor: actor.Ref, Action: sel.Action}

	var target *combatant.Combatant
	if sel.Target != nil {
		target, _ = next.Combatants.Lookup(*sel.Target)
		ref := target.Ref
		report.Target = &ref
	}

	switch sel.Action {
	case ActionAttack:
		report.Damage = r.attack(actor, target, report)
	case ActionDefend:
		actor.Status.Apply(r.guard, 0)
		report.Applied = append(report.Applied, status.GuardID)
	case ActionItem:
		item := r.catalog.Items[*sel.Item]
		report.Item = item.ID
		if err := r.applyEffect(actor, target, item.Effect, report); err != nil {
			return s, err
		}
		next.Inventory[item.ID]--
		if next.Inventory[item.ID] <= 0 {
			delete(next.Inventory, item.ID)
		}
		next.Consumed[item.ID]++
	case ActionSpell:
		spell := r.catalog.Spells[*sel.Spell]
		report.Spell = spell.ID
		if err := r.applyEffect(actor, target, spell.Effect, report); err != nil {
			return s, err
		}
		actor.SpendMP(spell.MPCost)
		report.MPSpent = spell.MPCost
	}
	if target != nil && !target.IsAlive() {
		report.Defeated = true
		target.Status = status.Set{}
	}

	next.Last = report
	next.Turns++
	next.Selection = Selection{}
	next.Outcome = Evaluate(next.Combatants)
	if next.Outcome == Ongoing {
		advanceInPlace(next)
	}
	return next, nil
}

// AttackDamage is the damage an attack deals before guard:
// max(minDamage, attack - defense).
func AttackDamage(attack, defense, minDamage int) int {
	return max(minDamage, attack-defense)
}

func (r *Resolver) attack(actor, target *combatant.Combatant, report *TurnReport) int {
	dmg := AttackDamage(actor.EffectiveAttack(), target.EffectiveDefense(), r.rules.MinDamage)
	if div := status.DamageDivisor(target.Status); div > 1 {
		dmg = max(r.rules.MinDamage, dmg/div)
		report.Removed = append(report.Removed, target.Status.ConsumeOnHit()...)
	}
	return target.ApplyDamage(dmg)
}

func (r *Resolver) applyEffect(actor, target *combatant.Combatant, e content.Effect, report *TurnReport) error {
	switch e.Kind {
	case content.EffectDamage:
		dmg := max(r.rules.MinDamage, e.Amount+actor.EffectiveAttack()-target.EffectiveDefense())
		report.Damage = target.ApplyDamage(dmg)
	case content.EffectHeal:
		report.Healed = target.Heal(e.Amount)
	case content.EffectRestoreMP:
		report.MPRestored = target.RestoreMP(e.Amount)
	case content.EffectCure:
		for _, id := range e.Cures {
			if target.Status.Has(id) {
				target.Status.Remove(id)
				report.Removed = append(report.Removed, id)
			}
		}
	case content.EffectBuff, content.EffectDebuff:
		def, ok := r.catalog.Statuses.Get(e.Status)
		if !ok {
			return fmt.Errorf("status %q: %w", e.Status, ErrUnknownAbility)
		}
		target.Status.Apply(def, e.Duration)
		report.Applied = append(report.Applied, def.ID)
	default:
		return fmt.Errorf("effect %q: %w", e.Kind, ErrUnknownAbility)
	}
	return nil
}

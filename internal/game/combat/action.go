package combat

import (
	"fmt"

	"github.com/cory-johannsen/starfall/internal/game/combatant"
)

// ActionKind is the kind of action a combatant can take on its turn.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionAttack
	ActionDefend
	ActionItem
	ActionSpell
)

// String returns the lower-case action name.
func (a ActionKind) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionAttack:
		return "attack"
	case ActionDefend:
		return "defend"
	case ActionItem:
		return "item"
	case ActionSpell:
		return "spell"
	default:
		return "unknown"
	}
}

// ParseActionKind converts a name produced by String back to an ActionKind.
func ParseActionKind(s string) (ActionKind, error) {
	for _, a := range []ActionKind{ActionNone, ActionAttack, ActionDefend, ActionItem, ActionSpell} {
		if a.String() == s {
			return a, nil
		}
	}
	return ActionNone, fmt.Errorf("unknown action %q", s)
}

// NeedsTarget reports whether the action is resolved against a target.
func (a ActionKind) NeedsTarget() bool {
	switch a {
	case ActionAttack, ActionItem, ActionSpell:
		return true
	case ActionNone, ActionDefend:
		return false
	default:
		panic(fmt.Sprintf("combat: unknown action kind %d", int(a)))
	}
}

// Selection is the in-progress action choice of the active combatant.
// Optional parts are nil until chosen: Item/Spell actions need the item or
// spell chosen before a target, and choosing ActionNone clears everything.
type Selection struct {
	Actor  *combatant.Ref `json:"actor,omitempty"`
	Action ActionKind     `json:"action"`
	Item   *string        `json:"item,omitempty"`
	Spell  *string        `json:"spell,omitempty"`
	Target *combatant.Ref `json:"target,omitempty"`
}

// Ready reports whether the selection is fully specified and can be resolved.
func (s Selection) Ready() bool {
	if s.Actor == nil {
		return false
	}
	switch s.Action {
	case ActionNone:
		return false
	case ActionDefend:
		return true
	case ActionAttack:
		return s.Target != nil
	case ActionItem:
		return s.Item != nil && s.Target != nil
	case ActionSpell:
		return s.Spell != nil && s.Target != nil
	default:
		return false
	}
}

// Clone returns a copy that shares no pointers with s.
func (s Selection) Clone() Selection {
	out := Selection{Action: s.Action}
	if s.Actor != nil {
		a := *s.Actor
		out.Actor = &a
	}
	if s.Item != nil {
		v := *s.Item
		out.Item = &v
	}
	if s.Spell != nil {
		v := *s.Spell
		out.Spell = &v
	}
	if s.Target != nil {
		t := *s.Target
		out.Target = &t
	}
	return out
}

// Decision is a complete action choice, used by policies and scripted play.
// Item, Spell and Target are ignored when the action does not use them.
type Decision struct {
	Action ActionKind
	Item   string
	Spell  string
	Target combatant.Ref
}

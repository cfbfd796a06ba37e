// Package combatant normalizes party characters, encounter guests and enemy
// instances into the uniform Combatant view used by the turn system.
package combatant

import (
	"fmt"

	"github.com/cory-johannsen/starfall/internal/game/status"
)

// Kind distinguishes the three combatant variants.
type Kind int

const (
	KindCharacter Kind = iota
	KindGuest
	KindEnemy
)

// String returns the lower-case variant name.
func (k Kind) String() string {
	switch k {
	case KindCharacter:
		return "character"
	case KindGuest:
		return "guest"
	case KindEnemy:
		return "enemy"
	default:
		return "unknown"
	}
}

// Side is the faction a combatant fights for.
type Side int

const (
	SideParty Side = iota
	SideFoes
)

// Side returns the faction of the variant. Characters and guests fight for
// the party; enemies are foes.
func (k Kind) Side() Side {
	switch k {
	case KindCharacter, KindGuest:
		return SideParty
	case KindEnemy:
		return SideFoes
	default:
		panic(fmt.Sprintf("combatant: unknown kind %d", int(k)))
	}
}

// PlayerControlled reports whether actions for this variant come from the player.
func (k Kind) PlayerControlled() bool {
	switch k {
	case KindCharacter:
		return true
	case KindGuest, KindEnemy:
		return false
	default:
		panic(fmt.Sprintf("combatant: unknown kind %d", int(k)))
	}
}

// Ref is the stable identity of a combatant. The meaning of ID depends on
// Kind: the party character id, the encounter guest id, or the enemy
// instance id.
type Ref struct {
	Kind Kind   `json:"kind"`
	ID   string `json:"id"`
}

// String renders the ref as "kind:id".
func (r Ref) String() string { return r.Kind.String() + ":" + r.ID }

// Combatant is one participant in a combat encounter.
//
// Invariant: 0 <= HP <= MaxHP and 0 <= MP <= MaxMP.
type Combatant struct {
	Ref
	Name string `json:"name"`
	// Source is the id of the definition the combatant was projected from:
	// character id, guest id or enemy definition id.
	Source  string     `json:"source"`
	HP      int        `json:"hp"`
	MaxHP   int        `json:"max_hp"`
	MP      int        `json:"mp"`
	MaxMP   int        `json:"max_mp"`
	Attack  int        `json:"attack"`
	Defense int        `json:"defense"`
	Speed   int        `json:"speed"`
	Spells  []string   `json:"spells,omitempty"`
	Status  status.Set `json:"status"`
}

// IsAlive reports whether HP is above zero.
func (c *Combatant) IsAlive() bool { return c.HP > 0 }

// Side returns the combatant's faction.
func (c *Combatant) Side() Side { return c.Kind.Side() }

// ApplyDamage reduces HP by amount, flooring at zero.
//
// Precondition: amount >= 0.
// Postcondition: HP >= 0; returns the hp actually removed.
func (c *Combatant) ApplyDamage(amount int) int {
	if amount > c.HP {
		amount = c.HP
	}
	c.HP -= amount
	return amount
}

// Heal raises HP by amount, capping at MaxHP.
//
// Postcondition: HP <= MaxHP; returns the hp actually restored.
func (c *Combatant) Heal(amount int) int {
	if room := c.MaxHP - c.HP; amount > room {
		amount = room
	}
	if amount < 0 {
		amount = 0
	}
	c.HP += amount
	return amount
}

// RestoreMP raises MP by amount, capping at MaxMP.
func (c *Combatant) RestoreMP(amount int) int {
	if room := c.MaxMP - c.MP; amount > room {
		amount = room
	}
	if amount < 0 {
		amount = 0
	}
	c.MP += amount
	return amount
}

// SpendMP deducts cost from MP. Returns false and leaves MP unchanged when
// MP is insufficient.
func (c *Combatant) SpendMP(cost int) bool {
	if cost > c.MP {
		return false
	}
	c.MP -= cost
	return true
}

// Knows reports whether spellID is in the combatant's spell list.
func (c *Combatant) Knows(spellID string) bool {
	for _, s := range c.Spells {
		if s == spellID {
			return true
		}
	}
	return false
}

// EffectiveAttack returns Attack plus status modifiers, floored at zero.
func (c *Combatant) EffectiveAttack() int {
	return max(0, c.Attack+status.AttackBonus(c.Status))
}

// EffectiveDefense returns Defense plus status modifiers, floored at zero.
func (c *Combatant) EffectiveDefense() int {
	return max(0, c.Defense+status.DefenseBonus(c.Status))
}

// Clone returns a deep copy of c.
func (c *Combatant) Clone() *Combatant {
	out := *c
	if c.Spells != nil {
		out.Spells = append([]string(nil), c.Spells...)
	}
	if c.Status != nil {
		out.Status = c.Status.Clone()
	} else {
		out.Status = status.Set{}
	}
	return &out
}

package content

import "fmt"

// EffectKind names what an item or spell does when used.
type EffectKind string

const (
	EffectDamage    EffectKind = "damage"
	EffectHeal      EffectKind = "heal"
	EffectRestoreMP EffectKind = "restore_mp"
	EffectCure      EffectKind = "cure"
	EffectBuff      EffectKind = "buff"
	EffectDebuff    EffectKind = "debuff"
)

// Hostile reports whether the effect targets the opposing side.
func (k EffectKind) Hostile() bool {
	return k == EffectDamage || k == EffectDebuff
}

// Effect is the declared effect of an item or spell.
type Effect struct {
	Kind EffectKind `yaml:"kind"`
	// Amount is heal/restore amount, or base power for damage.
	Amount int `yaml:"amount"`
	// Status is the status applied by buff/debuff effects.
	Status string `yaml:"status"`
	// Duration overrides the status default duration when > 0.
	Duration int `yaml:"duration"`
	// Cures lists the statuses removed by cure effects.
	Cures []string `yaml:"cures"`
}

func (e Effect) validate(allowed ...EffectKind) error {
	ok := false
	for _, k := range allowed {
		if e.Kind == k {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("effect kind %q not allowed here", e.Kind)
	}
	switch e.Kind {
	case EffectDamage, EffectHeal, EffectRestoreMP:
		if e.Amount < 1 {
			return fmt.Errorf("%s effect needs amount >= 1", e.Kind)
		}
	case EffectBuff, EffectDebuff:
		if e.Status == "" {
			return fmt.Errorf("%s effect needs a status", e.Kind)
		}
	case EffectCure:
		if len(e.Cures) == 0 {
			return fmt.Errorf("cure effect needs at least one status in cures")
		}
	}
	if e.Duration < 0 {
		return fmt.Errorf("effect duration must be >= 0")
	}
	return nil
}

// ItemDef defines a consumable usable in combat.
type ItemDef struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Effect      Effect `yaml:"effect"`
}

// Validate checks the item definition. Items may heal, restore mp, cure or buff.
func (d *ItemDef) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("item: id must not be empty")
	}
	if d.Name == "" {
		return fmt.Errorf("item %q: name must not be empty", d.ID)
	}
	if err := d.Effect.validate(EffectHeal, EffectRestoreMP, EffectCure, EffectBuff); err != nil {
		return fmt.Errorf("item %q: %w", d.ID, err)
	}
	return nil
}

// SpellDef defines a spell and its mp cost.
type SpellDef struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	MPCost int    `yaml:"mp_cost"`
	Effect Effect `yaml:"effect"`
}

// Validate checks the spell definition.
func (d *SpellDef) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("spell: id must not be empty")
	}
	if d.Name == "" {
		return fmt.Errorf("spell %q: name must not be empty", d.ID)
	}
	if d.MPCost < 0 {
		return fmt.Errorf("spell %q: mp_cost must be >= 0", d.ID)
	}
	if err := d.Effect.validate(EffectDamage, EffectHeal, EffectCure, EffectBuff, EffectDebuff); err != nil {
		return fmt.Errorf("spell %q: %w", d.ID, err)
	}
	return nil
}

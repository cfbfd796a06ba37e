package content

import "fmt"

// EnemyDef defines a reusable enemy archetype.
type EnemyDef struct {
	ID      string     `yaml:"id"`
	Name    string     `yaml:"name"`
	MaxHP   int        `yaml:"max_hp"`
	MaxMP   int        `yaml:"max_mp"`
	Attack  int        `yaml:"attack"`
	Defense int        `yaml:"defense"`
	Speed   int        `yaml:"speed"`
	XP      int        `yaml:"xp"`
	Spells  []string   `yaml:"spells"`
	Loot    *LootTable `yaml:"loot"`
}

// Validate checks that the definition satisfies basic invariants.
//
// Postcondition: Returns nil iff ID and Name are non-empty, MaxHP >= 1 and
// all other stats are non-negative.
func (e *EnemyDef) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("enemy: id must not be empty")
	}
	if e.Name == "" {
		return fmt.Errorf("enemy %q: name must not be empty", e.ID)
	}
	if e.MaxHP < 1 {
		return fmt.Errorf("enemy %q: max_hp must be >= 1", e.ID)
	}
	if e.MaxMP < 0 || e.Attack < 0 || e.Defense < 0 || e.Speed < 0 || e.XP < 0 {
		return fmt.Errorf("enemy %q: stats must not be negative", e.ID)
	}
	if e.Loot != nil {
		if err := e.Loot.Validate(); err != nil {
			return fmt.Errorf("enemy %q: %w", e.ID, err)
		}
	}
	return nil
}

package content

import "fmt"

// EnemySpawn places Count copies of an enemy definition into an encounter.
type EnemySpawn struct {
	Enemy string `yaml:"enemy"`
	Count int    `yaml:"count"`
}

// GuestDef is an AI-controlled ally that joins the party for one encounter.
type GuestDef struct {
	ID      string   `yaml:"id"`
	Name    string   `yaml:"name"`
	MaxHP   int      `yaml:"max_hp"`
	MaxMP   int      `yaml:"max_mp"`
	Attack  int      `yaml:"attack"`
	Defense int      `yaml:"defense"`
	Speed   int      `yaml:"speed"`
	Spells  []string `yaml:"spells"`
}

// Encounter is the enemy group (and optional guests) fought in a location area.
type Encounter struct {
	ID      string       `yaml:"id"`
	Area    string       `yaml:"area"`
	Enemies []EnemySpawn `yaml:"enemies"`
	Guests  []GuestDef   `yaml:"guests"`
}

// Validate checks structural invariants. References to enemy definitions are
// checked by Catalog.
func (e *Encounter) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("encounter: id must not be empty")
	}
	if e.Area == "" {
		return fmt.Errorf("encounter %q: area must not be empty", e.ID)
	}
	if len(e.Enemies) == 0 {
		return fmt.Errorf("encounter %q: must list at least one enemy", e.ID)
	}
	for i, s := range e.Enemies {
		if s.Enemy == "" {
			return fmt.Errorf("encounter %q: enemies[%d] must name an enemy", e.ID, i)
		}
		if s.Count < 1 {
			return fmt.Errorf("encounter %q: enemies[%d] count must be >= 1", e.ID, i)
		}
	}
	seen := make(map[string]bool, len(e.Guests))
	for i, g := range e.Guests {
		if g.ID == "" || g.Name == "" {
			return fmt.Errorf("encounter %q: guests[%d] needs id and name", e.ID, i)
		}
		if seen[g.ID] {
			return fmt.Errorf("encounter %q: duplicate guest %q", e.ID, g.ID)
		}
		seen[g.ID] = true
		if g.MaxHP < 1 {
			return fmt.Errorf("encounter %q: guest %q max_hp must be >= 1", e.ID, g.ID)
		}
	}
	return nil
}

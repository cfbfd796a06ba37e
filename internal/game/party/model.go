// Package party defines the persistent party model (characters and shared
// inventory) and the Store the combat core reads from and proposes updates to.
package party

import (
	"errors"
	"fmt"
	"strings"
)

// Character is a player character's persistent state.
//
// XP is cumulative; XPToCurrentLevel and XPToNextLevel bound the current level.
type Character struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`

	Level            int `yaml:"level" json:"level"`
	XP               int `yaml:"xp" json:"xp"`
	XPToCurrentLevel int `yaml:"xp_to_current_level" json:"xp_to_current_level"`
	XPToNextLevel    int `yaml:"xp_to_next_level" json:"xp_to_next_level"`

	HP      int `yaml:"hp" json:"hp"`
	MaxHP   int `yaml:"max_hp" json:"max_hp"`
	MP      int `yaml:"mp" json:"mp"`
	MaxMP   int `yaml:"max_mp" json:"max_mp"`
	Attack  int `yaml:"attack" json:"attack"`
	Defense int `yaml:"defense" json:"defense"`
	Speed   int `yaml:"speed" json:"speed"`

	Spells []string `yaml:"spells" json:"spells,omitempty"`
}

// Clone returns a deep copy of c.
func (c Character) Clone() Character {
	out := c
	if c.Spells != nil {
		out.Spells = append([]string(nil), c.Spells...)
	}
	return out
}

// Validate checks the character invariants.
//
// Postcondition: Returns nil iff ID and Name are set, Level >= 1,
// 0 <= HP <= MaxHP and 0 <= MP <= MaxMP.
func (c Character) Validate() error {
	var errs []string
	if c.ID == "" {
		errs = append(errs, "id must not be empty")
	}
	if c.Name == "" {
		errs = append(errs, "name must not be empty")
	}
	if c.Level < 1 {
		errs = append(errs, fmt.Sprintf("level must be >= 1, got %d", c.Level))
	}
	if c.MaxHP < 1 || c.HP < 0 || c.HP > c.MaxHP {
		errs = append(errs, fmt.Sprintf("hp must satisfy 0 <= hp <= max_hp (max_hp >= 1), got %d/%d", c.HP, c.MaxHP))
	}
	if c.MP < 0 || c.MP > c.MaxMP {
		errs = append(errs, fmt.Sprintf("mp must satisfy 0 <= mp <= max_mp, got %d/%d", c.MP, c.MaxMP))
	}
	if len(errs) > 0 {
		return fmt.Errorf("character %q: %s", c.ID, strings.Join(errs, "; "))
	}
	return nil
}

// Party is the player's roster plus the shared inventory.
type Party struct {
	Characters []Character    `yaml:"characters" json:"characters"`
	Inventory  map[string]int `yaml:"inventory" json:"inventory"`
	Currency   int            `yaml:"currency" json:"currency"`
}

// Clone returns a deep copy of p.
func (p Party) Clone() Party {
	out := Party{Currency: p.Currency, Inventory: make(map[string]int, len(p.Inventory))}
	for _, c := range p.Characters {
		out.Characters = append(out.Characters, c.Clone())
	}
	for id, qty := range p.Inventory {
		out.Inventory[id] = qty
	}
	return out
}

// Validate checks every character and rejects duplicate ids or negative quantities.
func (p Party) Validate() error {
	if len(p.Characters) == 0 {
		return errors.New("party: must have at least one character")
	}
	seen := make(map[string]bool, len(p.Characters))
	for _, c := range p.Characters {
		if err := c.Validate(); err != nil {
			return err
		}
		if seen[c.ID] {
			return fmt.Errorf("party: duplicate character id %q", c.ID)
		}
		seen[c.ID] = true
	}
	for id, qty := range p.Inventory {
		if qty < 0 {
			return fmt.Errorf("party: inventory %q has negative quantity %d", id, qty)
		}
	}
	if p.Currency < 0 {
		return fmt.Errorf("party: currency must be >= 0, got %d", p.Currency)
	}
	return nil
}

// Update is the write-back proposed by the combat core after a recorded
// victory: replacement character snapshots and signed inventory deltas.
type Update struct {
	Characters     []Character    `json:"characters"`
	InventoryDelta map[string]int `json:"inventory_delta"`
	CurrencyDelta  int            `json:"currency_delta"`
}

// Apply returns a copy of p with u applied. Characters are replaced by id;
// unknown ids are ignored. Inventory quantities are floored at zero and
// zero entries are dropped.
func (p Party) Apply(u Update) Party {
	out := p.Clone()
	byID := make(map[string]int, len(out.Characters))
	for i, c := range out.Characters {
		byID[c.ID] = i
	}
	for _, c := range u.Characters {
		if i, ok := byID[c.ID]; ok {
			out.Characters[i] = c.Clone()
		}
	}
	for id, delta := range u.InventoryDelta {
		qty := out.Inventory[id] + delta
		if qty <= 0 {
			delete(out.Inventory, id)
			continue
		}
		out.Inventory[id] = qty
	}
	out.Currency += u.CurrencyDelta
	if out.Currency < 0 {
		out.Currency = 0
	}
	return out
}

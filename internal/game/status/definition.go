// Package status models transient combat status effects (guard, buffs,
// debuffs) and the registry their definitions are loaded into.
package status

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// GuardID is the id of the built-in status applied by the Defend action.
const GuardID = "guard"

// Def is the static definition of a status effect.
type Def struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description,omitempty"`
	// Duration N means the status is removed at the Nth start of its owner's
	// turn. Zero means the status lasts until removed.
	Duration      int  `yaml:"duration" json:"duration"`
	AttackBonus   int  `yaml:"attack_bonus" json:"attack_bonus,omitempty"`
	DefenseBonus  int  `yaml:"defense_bonus" json:"defense_bonus,omitempty"`
	DamageDivisor int  `yaml:"damage_divisor" json:"damage_divisor,omitempty"`
	ExpiresOnHit  bool `yaml:"expires_on_hit" json:"expires_on_hit,omitempty"`
}

// Validate checks that the definition satisfies its invariants.
//
// Postcondition: Returns nil iff ID and Name are non-empty, Duration >= 0 and
// DamageDivisor >= 0.
func (d Def) Validate() error {
	var errs []string
	if d.ID == "" {
		errs = append(errs, "id must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "name must not be empty")
	}
	if d.Duration < 0 {
		errs = append(errs, fmt.Sprintf("duration must be >= 0, got %d", d.Duration))
	}
	if d.DamageDivisor < 0 {
		errs = append(errs, fmt.Sprintf("damage_divisor must be >= 0, got %d", d.DamageDivisor))
	}
	if len(errs) > 0 {
		return fmt.Errorf("status %q: %s", d.ID, strings.Join(errs, "; "))
	}
	return nil
}

// Guard returns the definition of the Defend status: incoming attack damage
// is divided by divisor and the status is consumed by the first hit. It
// survives until the start of its owner's next turn.
//
// Precondition: divisor >= 1.
func Guard(divisor int) Def {
	return Def{
		ID:            GuardID,
		Name:          "Guard",
		Duration:      1,
		DamageDivisor: divisor,
		ExpiresOnHit:  true,
	}
}

// Registry holds all known status definitions keyed by ID.
type Registry struct {
	defs map[string]Def
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]Def)}
}

// Register adds def to the registry.
//
// Postcondition: Get(def.ID) returns def; returns an error if def is invalid
// or its ID is already registered.
func (r *Registry) Register(def Def) error {
	if err := def.Validate(); err != nil {
		return err
	}
	if _, exists := r.defs[def.ID]; exists {
		return fmt.Errorf("status %q already registered", def.ID)
	}
	r.defs[def.ID] = def
	return nil
}

// Get returns the definition for id, or (Def{}, false) if not found.
func (r *Registry) Get(id string) (Def, bool) {
	d, ok := r.defs[id]
	return d, ok
}

// IDs returns all registered ids in sorted order.
func (r *Registry) IDs() []string {
	out := make([]string, 0, len(r.defs))
	for id := range r.defs {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// LoadDirectory reads every *.yaml file in dir as a Def and returns a
// populated Registry. A missing directory yields an empty Registry.
//
// Postcondition: Returns a non-nil Registry, or an error naming the first
// file that fails to parse or validate.
func LoadDirectory(dir string) (*Registry, error) {
	reg := NewRegistry()
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return reg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading status dir %q: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		var def Def
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&def); err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		if err := reg.Register(def); err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
	}
	return reg, nil
}

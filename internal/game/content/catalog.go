// Package content loads the static game tables the combat core consumes:
// enemy definitions, per-area encounters, item and spell effects, status
// definitions and the level curve.
package content

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/starfall/internal/game/status"
)

// Catalog indexes every content table by id.
type Catalog struct {
	Enemies    map[string]*EnemyDef
	Encounters map[string]*Encounter
	Items      map[string]*ItemDef
	Spells     map[string]*SpellDef
	Statuses   *status.Registry
	// Curve is nil when the content root has no curve.yaml.
	Curve *LevelTable

	byArea map[string][]*Encounter
}

// NewCatalog returns an empty Catalog ready for Add* calls.
func NewCatalog() *Catalog {
	return &Catalog{
		Enemies:    make(map[string]*EnemyDef),
		Encounters: make(map[string]*Encounter),
		Items:      make(map[string]*ItemDef),
		Spells:     make(map[string]*SpellDef),
		Statuses:   status.NewRegistry(),
		byArea:     make(map[string][]*Encounter),
	}
}

// AddEnemy validates and registers e.
func (c *Catalog) AddEnemy(e *EnemyDef) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if _, dup := c.Enemies[e.ID]; dup {
		return fmt.Errorf("enemy %q already registered", e.ID)
	}
	c.Enemies[e.ID] = e
	return nil
}

// AddEncounter validates and registers e.
func (c *Catalog) AddEncounter(e *Encounter) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if _, dup := c.Encounters[e.ID]; dup {
		return fmt.Errorf("encounter %q already registered", e.ID)
	}
	c.Encounters[e.ID] = e
	list := append(c.byArea[e.Area], e)
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	c.byArea[e.Area] = list
	return nil
}

// AddItem validates and registers d.
func (c *Catalog) AddItem(d *ItemDef) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if _, dup := c.Items[d.ID]; dup {
		return fmt.Errorf("item %q already registered", d.ID)
	}
	c.Items[d.ID] = d
	return nil
}

// AddSpell validates and registers d.
func (c *Catalog) AddSpell(d *SpellDef) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if _, dup := c.Spells[d.ID]; dup {
		return fmt.Errorf("spell %q already registered", d.ID)
	}
	c.Spells[d.ID] = d
	return nil
}

// EncounterForArea returns the encounter fought in area. When an area lists
// several encounters the one with the lowest id is chosen.
func (c *Catalog) EncounterForArea(area string) (*Encounter, bool) {
	list := c.byArea[area]
	if len(list) == 0 {
		return nil, false
	}
	return list[0], true
}

// Validate checks cross-table references: encounter enemies, loot items,
// known spells and the statuses used by effects must all resolve.
//
// Postcondition: Returns nil iff every reference resolves, else an error
// listing all violations.
func (c *Catalog) Validate() error {
	var errs []string
	for _, enc := range c.Encounters {
		for _, s := range enc.Enemies {
			if _, ok := c.Enemies[s.Enemy]; !ok {
				errs = append(errs, fmt.Sprintf("encounter %q references unknown enemy %q", enc.ID, s.Enemy))
			}
		}
		for _, g := range enc.Guests {
			errs = append(errs, c.checkSpells("guest "+g.ID, g.Spells)...)
		}
	}
	for _, e := range c.Enemies {
		errs = append(errs, c.checkSpells("enemy "+e.ID, e.Spells)...)
		if e.Loot == nil {
			continue
		}
		for _, d := range e.Loot.Items {
			if _, ok := c.Items[d.ItemID]; !ok {
				errs = append(errs, fmt.Sprintf("enemy %q drops unknown item %q", e.ID, d.ItemID))
			}
		}
	}
	for _, it := range c.Items {
		errs = append(errs, c.checkEffect("item "+it.ID, it.Effect)...)
	}
	for _, sp := range c.Spells {
		errs = append(errs, c.checkEffect("spell "+sp.ID, sp.Effect)...)
	}
	if len(errs) > 0 {
		sort.Strings(errs)
		return fmt.Errorf("content validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Catalog) checkSpells(owner string, ids []string) []string {
	var errs []string
	for _, id := range ids {
		if _, ok := c.Spells[id]; !ok {
			errs = append(errs, fmt.Sprintf("%s knows unknown spell %q", owner, id))
		}
	}
	return errs
}

func (c *Catalog) checkEffect(owner string, e Effect) []string {
	var errs []string
	if e.Status != "" {
		if _, ok := c.Statuses.Get(e.Status); !ok {
			errs = append(errs, fmt.Sprintf("%s applies unknown status %q", owner, e.Status))
		}
	}
	for _, id := range e.Cures {
		if id == status.GuardID {
			continue
		}
		if _, ok := c.Statuses.Get(id); !ok {
			errs = append(errs, fmt.Sprintf("%s cures unknown status %q", owner, id))
		}
	}
	return errs
}

// Load reads a content root laid out as:
//
//	<root>/enemies/*.yaml
//	<root>/encounters/*.yaml
//	<root>/items/*.yaml
//	<root>/spells/*.yaml
//	<root>/statuses/*.yaml
//	<root>/curve.yaml (optional)
//
// Missing subdirectories are treated as empty.
//
// Postcondition: Returns a cross-validated Catalog or an error.
func Load(root string) (*Catalog, error) {
	c := NewCatalog()

	statuses, err := status.LoadDirectory(filepath.Join(root, "statuses"))
	if err != nil {
		return nil, err
	}
	c.Statuses = statuses

	if err := loadInto(filepath.Join(root, "enemies"), c.AddEnemy); err != nil {
		return nil, err
	}
	if err := loadInto(filepath.Join(root, "encounters"), c.AddEncounter); err != nil {
		return nil, err
	}
	if err := loadInto(filepath.Join(root, "items"), c.AddItem); err != nil {
		return nil, err
	}
	if err := loadInto(filepath.Join(root, "spells"), c.AddSpell); err != nil {
		return nil, err
	}

	curvePath := filepath.Join(root, "curve.yaml")
	if _, err := os.Stat(curvePath); err == nil {
		curve, err := LoadLevelTable(curvePath)
		if err != nil {
			return nil, err
		}
		c.Curve = curve
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// loadInto decodes every *.yaml file in dir as a T and passes it to add.
func loadInto[T any](dir string, add func(*T) error) error {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading content dir %q: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %q: %w", path, err)
		}
		var v T
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("parsing %q: %w", path, err)
		}
		if err := add(&v); err != nil {
			return fmt.Errorf("loading %q: %w", path, err)
		}
	}
	return nil
}

package combatant

import (
	"encoding/json"
	"fmt"

	"github.com/cory-johannsen/starfall/internal/game/content"
	"github.com/cory-johannsen/starfall/internal/game/party"
	"github.com/cory-johannsen/starfall/internal/game/status"
)

// EnemyInstance is one spawned copy of an enemy definition.
type EnemyInstance struct {
	ID  string
	Def *content.EnemyDef
}

// SpawnEnemies expands an encounter's enemy list into instances. Instance ids
// are "<definition id>-<n>", numbered per definition from 1 in listing order.
//
// Postcondition: Returns instances in listing order or an error if a
// definition is missing.
func SpawnEnemies(enc *content.Encounter, defs map[string]*content.EnemyDef) ([]EnemyInstance, error) {
	counts := make(map[string]int)
	var out []EnemyInstance
	for _, s := range enc.Enemies {
		def, ok := defs[s.Enemy]
		if !ok {
			return nil, fmt.Errorf("encounter %q: unknown enemy %q", enc.ID, s.Enemy)
		}
		for i := 0; i < s.Count; i++ {
			counts[def.ID]++
			out = append(out, EnemyInstance{ID: fmt.Sprintf("%s-%d", def.ID, counts[def.ID]), Def: def})
		}
	}
	return out, nil
}

// FromCharacter projects a party character.
func FromCharacter(c party.Character) *Combatant {
	return &Combatant{
		Ref:     Ref{Kind: KindCharacter, ID: c.ID},
		Name:    c.Name,
		Source:  c.ID,
		HP:      c.HP,
		MaxHP:   c.MaxHP,
		MP:      c.MP,
		MaxMP:   c.MaxMP,
		Attack:  c.Attack,
		Defense: c.Defense,
		Speed:   c.Speed,
		Spells:  append([]string(nil), c.Spells...),
		Status:  status.Set{},
	}
}

// FromGuest projects an encounter guest at full health.
func FromGuest(g content.GuestDef) *Combatant {
	return &Combatant{
		Ref:     Ref{Kind: KindGuest, ID: g.ID},
		Name:    g.Name,
		Source:  g.ID,
		HP:      g.MaxHP,
		MaxHP:   g.MaxHP,
		MP:      g.MaxMP,
		MaxMP:   g.MaxMP,
		Attack:  g.Attack,
		Defense: g.Defense,
		Speed:   g.Speed,
		Spells:  append([]string(nil), g.Spells...),
		Status:  status.Set{},
	}
}

// FromEnemy projects an enemy instance at full health.
func FromEnemy(e EnemyInstance) *Combatant {
	return &Combatant{
		Ref:     Ref{Kind: KindEnemy, ID: e.ID},
		Name:    e.Def.Name,
		Source:  e.Def.ID,
		HP:      e.Def.MaxHP,
		MaxHP:   e.Def.MaxHP,
		MP:      e.Def.MaxMP,
		MaxMP:   e.Def.MaxMP,
		Attack:  e.Def.Attack,
		Defense: e.Def.Defense,
		Speed:   e.Def.Speed,
		Spells:  append([]string(nil), e.Def.Spells...),
		Status:  status.Set{},
	}
}

// Project normalizes the raw collections into one ordered list: characters,
// then guests, then enemies, each in input order. It has no side effects.
func Project(chars []party.Character, guests []content.GuestDef, enemies []EnemyInstance) []*Combatant {
	out := make([]*Combatant, 0, len(chars)+len(guests)+len(enemies))
	for _, c := range chars {
		out = append(out, FromCharacter(c))
	}
	for _, g := range guests {
		out = append(out, FromGuest(g))
	}
	for _, e := range enemies {
		out = append(out, FromEnemy(e))
	}
	return out
}

// Registry is an ordered list of combatants with O(1) lookup by Ref.
type Registry struct {
	list  []*Combatant
	index map[Ref]int
}

// NewRegistry indexes list. The registry shares the combatant pointers.
//
// Postcondition: Returns an error if two combatants share a Ref.
func NewRegistry(list []*Combatant) (*Registry, error) {
	index := make(map[Ref]int, len(list))
	for i, c := range list {
		if _, dup := index[c.Ref]; dup {
			return nil, fmt.Errorf("combatant registry: duplicate combatant %s", c.Ref)
		}
		index[c.Ref] = i
	}
	return &Registry{list: list, index: index}, nil
}

// Len returns the number of combatants.
func (r *Registry) Len() int { return len(r.list) }

// At returns the combatant at sequence index i.
func (r *Registry) At(i int) *Combatant { return r.list[i] }

// All returns the combatants in sequence order. The slice must not be modified.
func (r *Registry) All() []*Combatant { return r.list }

// Lookup returns the combatant with ref.
func (r *Registry) Lookup(ref Ref) (*Combatant, bool) {
	i, ok := r.index[ref]
	if !ok {
		return nil, false
	}
	return r.list[i], true
}

// IndexOf returns the sequence index of ref.
func (r *Registry) IndexOf(ref Ref) (int, bool) {
	i, ok := r.index[ref]
	return i, ok
}

// OfKind returns the combatants of kind k in sequence order.
func (r *Registry) OfKind(k Kind) []*Combatant {
	var out []*Combatant
	for _, c := range r.list {
		if c.Kind == k {
			out = append(out, c)
		}
	}
	return out
}

// Clone returns a registry holding deep copies of every combatant.
func (r *Registry) Clone() *Registry {
	list := make([]*Combatant, len(r.list))
	index := make(map[Ref]int, len(r.index))
	for i, c := range r.list {
		list[i] = c.Clone()
		index[c.Ref] = i
	}
	return &Registry{list: list, index: index}
}

// MarshalJSON encodes the registry as its ordered combatant list.
func (r *Registry) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.list)
}

// UnmarshalJSON decodes an ordered combatant list and rebuilds the index.
func (r *Registry) UnmarshalJSON(data []byte) error {
	var list []*Combatant
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	for _, c := range list {
		if c.Status == nil {
			c.Status = status.Set{}
		}
	}
	built, err := NewRegistry(list)
	if err != nil {
		return err
	}
	*r = *built
	return nil
}

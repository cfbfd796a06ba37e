// Package reward computes experience, level-ups and loot for a won encounter.
package reward

import (
	"github.com/cory-johannsen/starfall/internal/game/content"
	"github.com/cory-johannsen/starfall/internal/game/party"
)

// Curve is the level progression consulted by the level-up loop.
// content.LevelTable and scripting.LuaCurve both satisfy it.
type Curve interface {
	// XPForLevel returns the cumulative xp threshold for reaching level, or
	// false when level is beyond the curve.
	XPForLevel(level int) (int, bool)
	// LevelUpStats returns the stat gains granted on reaching level.
	LevelUpStats(level int) content.StatGains
}

// Reward is the experience and inventory change granted by a won encounter.
type Reward struct {
	// XP is the pool each surviving character received.
	XP int `json:"xp"`
	// InventoryDelta maps item id to signed quantity: loot is positive,
	// items consumed during combat are negative. Zero entries are omitted.
	InventoryDelta map[string]int `json:"inventory_delta"`
	Currency       int            `json:"currency"`
}

// Clone returns a deep copy of r.
func (r Reward) Clone() Reward {
	out := r
	out.InventoryDelta = make(map[string]int, len(r.InventoryDelta))
	for id, q := range r.InventoryDelta {
		out.InventoryDelta[id] = q
	}
	return out
}

// Comparison is a before/after snapshot pair of one character used to show
// stat changes on the results screen.
type Comparison struct {
	Before party.Character `json:"before"`
	After  party.Character `json:"after"`
}

// LeveledUp reports whether the character gained at least one level.
func (c Comparison) LeveledUp() bool { return c.After.Level > c.Before.Level }

// Results is the full outcome of a recorded victory.
type Results struct {
	Characters []Comparison `json:"characters"`
	Reward     Reward       `json:"reward"`
}

// Clone returns a deep copy of r.
func (r Results) Clone() Results {
	out := Results{Reward: r.Reward.Clone()}
	for _, c := range r.Characters {
		out.Characters = append(out.Characters, Comparison{Before: c.Before.Clone(), After: c.After.Clone()})
	}
	return out
}

// Update converts the results into the write-back proposed to the party store.
func (r Results) Update() party.Update {
	u := party.Update{
		InventoryDelta: make(map[string]int, len(r.Reward.InventoryDelta)),
		CurrencyDelta:  r.Reward.Currency,
	}
	for _, c := range r.Characters {
		u.Characters = append(u.Characters, c.After.Clone())
	}
	for id, q := range r.Reward.InventoryDelta {
		u.InventoryDelta[id] = q
	}
	return u
}

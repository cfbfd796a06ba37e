package content

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// StatGains are the stat increases granted when a character reaches a level.
type StatGains struct {
	MaxHP   int `yaml:"max_hp" json:"max_hp"`
	MaxMP   int `yaml:"max_mp" json:"max_mp"`
	Attack  int `yaml:"attack" json:"attack"`
	Defense int `yaml:"defense" json:"defense"`
}

// LevelRow is one level of the progression table.
type LevelRow struct {
	Level int       `yaml:"level"`
	XP    int       `yaml:"xp"`
	Gains StatGains `yaml:"gains"`
}

// LevelTable is a tabulated level curve. XP values are cumulative thresholds.
type LevelTable struct {
	Levels []LevelRow `yaml:"levels"`
	byLvl  map[int]LevelRow
}

// NewLevelTable builds and validates a table from rows in any order.
//
// Postcondition: Returns a table whose levels are contiguous from 1 with
// strictly increasing XP thresholds, or an error.
func NewLevelTable(rows []LevelRow) (*LevelTable, error) {
	sorted := make([]LevelRow, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Level < sorted[j].Level })
	if len(sorted) == 0 {
		return nil, fmt.Errorf("level table: no levels defined")
	}
	byLvl := make(map[int]LevelRow, len(sorted))
	for i, r := range sorted {
		if r.Level != i+1 {
			return nil, fmt.Errorf("level table: levels must be contiguous from 1, got %d at position %d", r.Level, i)
		}
		if i == 0 && r.XP != 0 {
			return nil, fmt.Errorf("level table: level 1 must require 0 xp, got %d", r.XP)
		}
		if i > 0 && r.XP <= sorted[i-1].XP {
			return nil, fmt.Errorf("level table: xp for level %d (%d) must exceed level %d (%d)", r.Level, r.XP, r.Level-1, sorted[i-1].XP)
		}
		byLvl[r.Level] = r
	}
	return &LevelTable{Levels: sorted, byLvl: byLvl}, nil
}

// LoadLevelTable reads a level table from a YAML file.
func LoadLevelTable(path string) (*LevelTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading level table %q: %w", path, err)
	}
	var raw LevelTable
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parsing level table %q: %w", path, err)
	}
	t, err := NewLevelTable(raw.Levels)
	if err != nil {
		return nil, fmt.Errorf("loading %q: %w", path, err)
	}
	return t, nil
}

// XPForLevel returns the cumulative xp needed to reach level, or false when
// level is beyond the table.
func (t *LevelTable) XPForLevel(level int) (int, bool) {
	r, ok := t.byLvl[level]
	return r.XP, ok
}

// LevelUpStats returns the gains granted on reaching level. Levels outside
// the table grant nothing.
func (t *LevelTable) LevelUpStats(level int) StatGains {
	return t.byLvl[level].Gains
}

// MaxLevel returns the highest level in the table.
func (t *LevelTable) MaxLevel() int {
	return len(t.Levels)
}

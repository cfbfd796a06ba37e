package content

import "fmt"

// CurrencyDrop defines the range of currency an enemy drops on defeat.
type CurrencyDrop struct {
	Min int `yaml:"min" json:"min"`
	Max int `yaml:"max" json:"max"`
}

// ItemDrop defines a single item entry in a loot table with a drop chance.
type ItemDrop struct {
	ItemID string  `yaml:"item" json:"item"`
	Chance float64 `yaml:"chance" json:"chance"`
	MinQty int     `yaml:"min_qty" json:"min_qty"`
	MaxQty int     `yaml:"max_qty" json:"max_qty"`
}

// LootTable defines the possible loot drops for an enemy.
type LootTable struct {
	Currency *CurrencyDrop `yaml:"currency" json:"currency,omitempty"`
	Items    []ItemDrop    `yaml:"items" json:"items,omitempty"`
}

// Validate checks that the loot table satisfies its invariants.
//
// Postcondition: Returns nil iff all currency and item constraints hold;
// an empty loot table is valid.
func (lt *LootTable) Validate() error {
	if lt.Currency != nil {
		if lt.Currency.Min < 0 {
			return fmt.Errorf("loot table: currency min must be >= 0, got %d", lt.Currency.Min)
		}
		if lt.Currency.Min > lt.Currency.Max {
			return fmt.Errorf("loot table: currency min (%d) must be <= max (%d)", lt.Currency.Min, lt.Currency.Max)
		}
	}
	for i, item := range lt.Items {
		if item.ItemID == "" {
			return fmt.Errorf("loot table: item[%d] must have a non-empty item id", i)
		}
		if item.Chance <= 0 || item.Chance > 1.0 {
			return fmt.Errorf("loot table: item[%d] chance must be in (0, 1.0], got %f", i, item.Chance)
		}
		if item.MinQty < 1 {
			return fmt.Errorf("loot table: item[%d] min_qty must be >= 1, got %d", i, item.MinQty)
		}
		if item.MinQty > item.MaxQty {
			return fmt.Errorf("loot table: item[%d] min_qty (%d) must be <= max_qty (%d)", i, item.MinQty, item.MaxQty)
		}
	}
	return nil
}

package reward

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/cory-johannsen/starfall/internal/game/content"
	"github.com/cory-johannsen/starfall/internal/game/dice"
	"github.com/cory-johannsen/starfall/internal/game/party"
)

// Participant is one party character as it left combat.
type Participant struct {
	// Before is the character snapshot taken when combat started.
	Before party.Character
	// HP and MP are the values at outcome evaluation.
	HP int
	MP int
}

// Survived reports whether the character was standing when combat ended.
func (p Participant) Survived() bool { return p.HP > 0 }

// Input is everything the calculator needs from a finished combat.
type Input struct {
	Participants []Participant
	// Defeated lists the enemy definition id of every defeated enemy instance.
	Defeated []string
	// Consumed maps item id to the quantity used during combat.
	Consumed map[string]int
}

// Calculator computes Results. It is safe for concurrent use when its
// Roller's Source is.
type Calculator struct {
	enemies map[string]*content.EnemyDef
	curve   Curve
	roller  *dice.Roller
	logger  *zap.Logger
}

// NewCalculator creates a Calculator.
//
// Precondition: curve and roller must be non-nil. A nil logger disables logging.
func NewCalculator(enemies map[string]*content.EnemyDef, curve Curve, roller *dice.Roller, logger *zap.Logger) *Calculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Calculator{enemies: enemies, curve: curve, roller: roller, logger: logger}
}

// XPPool sums the xp of every defeated enemy. A defeated enemy whose
// definition cannot be found contributes zero.
//
// Postcondition: Returns >= 0.
func (c *Calculator) XPPool(defeated []string) int {
	total := 0
	for _, id := range defeated {
		def, ok := c.enemies[id]
		if !ok {
			c.logger.Warn("missing enemy definition, awarding no xp", zap.String("enemy", id))
			continue
		}
		total += max(0, def.XP)
	}
	return total
}

// DidEarnXP reports whether any experience is granted: the pool is positive
// and at least one character survived.
func DidEarnXP(pool int, participants []Participant) bool {
	if pool <= 0 {
		return false
	}
	for _, p := range participants {
		if p.Survived() {
			return true
		}
	}
	return false
}

// Compute produces the Results for a victory. It never fails: missing data
// contributes nothing.
//
// Postcondition: len(Results.Characters) == len(in.Participants) and order is preserved.
func (c *Calculator) Compute(in Input) Results {
	pool := c.XPPool(in.Defeated)
	earned := DidEarnXP(pool, in.Participants)

	res := Results{Reward: Reward{InventoryDelta: make(map[string]int)}}
	if earned {
		res.Reward.XP = pool
	}
	for _, p := range in.Participants {
		after := p.Before.Clone()
		after.HP = p.HP
		after.MP = p.MP
		if earned && p.Survived() {
			after = c.LevelUp(after, pool)
		}
		res.Characters = append(res.Characters, Comparison{Before: p.Before.Clone(), After: after})
	}

	c.rollLoot(in.Defeated, &res.Reward)
	for id, q := range in.Consumed {
		res.Reward.InventoryDelta[id] -= q
	}
	for id, q := range res.Reward.InventoryDelta {
		if q == 0 {
			delete(res.Reward.InventoryDelta, id)
		}
	}
	return res
}

// LevelUp adds gained xp to ch and applies every level reached. XP is
// cumulative: while XP >= XPToNextLevel the character advances one level,
// XPToCurrentLevel takes the old threshold and XPToNextLevel is recomputed
// from the curve. At the top of the curve XPToNextLevel is 0 and no further
// levels are gained.
//
// Precondition: gained >= 0.
// Postcondition: HP <= MaxHP and MP <= MaxMP; XPToNextLevel is 0 or > XP.
func (c *Calculator) LevelUp(ch party.Character, gained int) party.Character {
	ch.XP += gained
	if ch.XPToNextLevel <= ch.XPToCurrentLevel {
		if next, ok := c.curve.XPForLevel(ch.Level + 1); ok {
			ch.XPToNextLevel = next
		} else {
			ch.XPToNextLevel = 0
		}
	}
	for ch.XPToNextLevel > 0 && ch.XP >= ch.XPToNextLevel {
		ch.Level++
		ch.XPToCurrentLevel = ch.XPToNextLevel
		g := c.curve.LevelUpStats(ch.Level)
		ch.MaxHP += g.MaxHP
		ch.HP = min(ch.MaxHP, ch.HP+g.MaxHP)
		ch.MaxMP += g.MaxMP
		ch.MP = min(ch.MaxMP, ch.MP+g.MaxMP)
		ch.Attack += g.Attack
		ch.Defense += g.Defense
		c.logger.Info("character leveled up",
			zap.String("character", ch.ID),
			zap.Int("level", ch.Level),
		)
		next, ok := c.curve.XPForLevel(ch.Level + 1)
		if !ok || next <= ch.XPToCurrentLevel {
			ch.XPToNextLevel = 0
			break
		}
		ch.XPToNextLevel = next
	}
	return ch
}

func (c *Calculator) rollLoot(defeated []string, r *Reward) {
	for i, id := range defeated {
		def, ok := c.enemies[id]
		if !ok || def.Loot == nil {
			continue
		}
		label := fmt.Sprintf("loot:%s#%d", id, i)
		if cur := def.Loot.Currency; cur != nil {
			r.Currency += c.roller.Between(label+":currency", cur.Min, cur.Max)
		}
		for _, drop := range def.Loot.Items {
			if !c.roller.Chance(label+":"+drop.ItemID, drop.Chance) {
				continue
			}
			r.InventoryDelta[drop.ItemID] += c.roller.Between(label+":"+drop.ItemID+":qty", drop.MinQty, drop.MaxQty)
		}
	}
}

// SortedItems returns the ids in delta sorted, for stable presentation.
func SortedItems(delta map[string]int) []string {
	ids := make([]string, 0, len(delta))
	for id := range delta {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

package reward_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/starfall/internal/game/content"
	"github.com/cory-johannsen/starfall/internal/game/dice"
	"github.com/cory-johannsen/starfall/internal/game/party"
	"github.com/cory-johannsen/starfall/internal/game/reward"
)

func curve(t testing.TB) *content.LevelTable {
	tbl, err := content.NewLevelTable([]content.LevelRow{
		{Level: 1, XP: 0},
		{Level: 2, XP: 100, Gains: content.StatGains{MaxHP: 5, MaxMP: 2, Attack: 1, Defense: 1}},
		{Level: 3, XP: 250, Gains: content.StatGains{MaxHP: 6, MaxMP: 2, Attack: 2, Defense: 1}},
		{Level: 4, XP: 450, Gains: content.StatGains{MaxHP: 7, MaxMP: 3, Attack: 2, Defense: 2}},
	})
	require.NoError(t, err)
	return tbl
}

func enemies() map[string]*content.EnemyDef {
	return map[string]*content.EnemyDef{
		"wolf": {ID: "wolf", Name: "Frost Wolf", MaxHP: 20, XP: 15, Loot: &content.LootTable{
			Currency: &content.CurrencyDrop{Min: 5, Max: 5},
			Items:    []content.ItemDrop{{ItemID: "pelt", Chance: 1, MinQty: 2, MaxQty: 2}},
		}},
		"imp": {ID: "imp", Name: "Imp", MaxHP: 8, XP: 10},
	}
}

func calc(t testing.TB, logger *zap.Logger) *reward.Calculator {
	return reward.NewCalculator(enemies(), curve(t), dice.NewLoggedRoller(dice.NewSeededSource(7), nil), logger)
}

func hero(id string, xp, next int) party.Character {
	return party.Character{
		ID: id, Name: id, Level: 1, XP: xp, XPToNextLevel: next,
		HP: 40, MaxHP: 40, MP: 10, MaxMP: 10, Attack: 10, Defense: 3, Speed: 5,
	}
}

func TestLevelUp_CarriesOverExcess(t *testing.T) {
	c := calc(t, nil)
	got := c.LevelUp(hero("aurora", 90, 100), 15)
	assert.Equal(t, 105, got.XP)
	assert.Equal(t, 2, got.Level)
	assert.Equal(t, 100, got.XPToCurrentLevel)
	assert.Equal(t, 250, got.XPToNextLevel)
	assert.Equal(t, 5, got.XP-got.XPToCurrentLevel)
	assert.Equal(t, 45, got.MaxHP)
	assert.Equal(t, 45, got.HP)
	assert.Equal(t, 11, got.Attack)
}

func TestLevelUp_MultipleLevels(t *testing.T) {
	got := calc(t, nil).LevelUp(hero("aurora", 0, 100), 300)
	assert.Equal(t, 3, got.Level)
	assert.Equal(t, 250, got.XPToCurrentLevel)
	assert.Equal(t, 450, got.XPToNextLevel)
	assert.Equal(t, 51, got.MaxHP)
}

func TestLevelUp_StopsAtMaxLevel(t *testing.T) {
	got := calc(t, nil).LevelUp(hero("aurora", 0, 100), 10_000)
	assert.Equal(t, 4, got.Level)
	assert.Equal(t, 450, got.XPToCurrentLevel)
	assert.Equal(t, 0, got.XPToNextLevel)
	assert.Equal(t, 10_000, got.XP)
}

func TestLevelUp_FillsMissingThresholdFromCurve(t *testing.T) {
	got := calc(t, nil).LevelUp(hero("aurora", 0, 0), 50)
	assert.Equal(t, 1, got.Level)
	assert.Equal(t, 100, got.XPToNextLevel)
}

func TestCompute_DeadCharacterEarnsNothing(t *testing.T) {
	in := reward.Input{
		Participants: []reward.Participant{
			{Before: hero("aurora", 0, 100), HP: 12, MP: 4},
			{Before: hero("bram", 0, 100), HP: 0, MP: 10},
		},
		Defeated: []string{"imp", "imp"},
	}
	res := calc(t, nil).Compute(in)
	assert.Equal(t, 20, res.Reward.XP)
	require.Len(t, res.Characters, 2)
	assert.Equal(t, 20, res.Characters[0].After.XP)
	assert.Equal(t, 12, res.Characters[0].After.HP)
	assert.Equal(t, 4, res.Characters[0].After.MP)
	assert.Equal(t, 0, res.Characters[1].After.XP)
	assert.Equal(t, 0, res.Characters[1].After.HP)
	assert.Equal(t, 0, res.Characters[1].Before.XP)
}

func TestCompute_NoSurvivorsMeansNoXP(t *testing.T) {
	in := reward.Input{
		Participants: []reward.Participant{{Before: hero("aurora", 0, 100), HP: 0}},
		Defeated:     []string{"imp"},
	}
	res := calc(t, nil).Compute(in)
	assert.Equal(t, 0, res.Reward.XP)
	assert.False(t, reward.DidEarnXP(10, in.Participants))
	assert.False(t, reward.DidEarnXP(0, []reward.Participant{{HP: 5}}))
}

func TestCompute_LootAndConsumption(t *testing.T) {
	in := reward.Input{
		Participants: []reward.Participant{{Before: hero("aurora", 0, 100), HP: 40, MP: 10}},
		Defeated:     []string{"wolf", "wolf"},
		Consumed:     map[string]int{"potion": 1, "pelt": 1},
	}
	res := calc(t, nil).Compute(in)
	assert.Equal(t, 10, res.Reward.Currency)
	assert.Equal(t, map[string]int{"pelt": 3, "potion": -1}, res.Reward.InventoryDelta)
	assert.Equal(t, []string{"pelt", "potion"}, reward.SortedItems(res.Reward.InventoryDelta))

	u := res.Update()
	assert.Equal(t, 10, u.CurrencyDelta)
	assert.Equal(t, -1, u.InventoryDelta["potion"])
	require.Len(t, u.Characters, 1)
	assert.Equal(t, 30, u.Characters[0].XP)
}

func TestCompute_MissingEnemyFailsSoft(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	in := reward.Input{
		Participants: []reward.Participant{{Before: hero("aurora", 0, 100), HP: 40}},
		Defeated:     []string{"ghost", "imp"},
	}
	res := calc(t, zap.New(core)).Compute(in)
	assert.Equal(t, 10, res.Reward.XP)
	require.Equal(t, 1, logs.FilterMessage("missing enemy definition, awarding no xp").Len())
}

func TestResults_CloneIndependent(t *testing.T) {
	res := calc(t, nil).Compute(reward.Input{
		Participants: []reward.Participant{{Before: hero("aurora", 0, 100), HP: 40}},
		Defeated:     []string{"wolf"},
	})
	cp := res.Clone()
	cp.Reward.InventoryDelta["pelt"] = 99
	cp.Characters[0].After.XP = 0
	assert.Equal(t, 2, res.Reward.InventoryDelta["pelt"])
	assert.Equal(t, 15, res.Characters[0].After.XP)
}

func TestLevelUp_Property_BoundsHold(t *testing.T) {
	tbl := curve(t)
	rapid.Check(t, func(rt *rapid.T) {
		c := reward.NewCalculator(nil, tbl, dice.NewLoggedRoller(dice.NewSeededSource(1), nil), nil)
		start := rapid.IntRange(0, 99).Draw(rt, "start")
		gain := rapid.IntRange(0, 1000).Draw(rt, "gain")
		got := c.LevelUp(hero("x", start, 100), gain)
		assert.Equal(rt, start+gain, got.XP)
		assert.LessOrEqual(rt, got.XPToCurrentLevel, got.XP)
		if got.XPToNextLevel != 0 {
			assert.Greater(rt, got.XPToNextLevel, got.XP)
		}
		assert.LessOrEqual(rt, got.HP, got.MaxHP)
		assert.LessOrEqual(rt, got.MP, got.MaxMP)
	})
}

package combat_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/starfall/internal/game/combat"
	"github.com/cory-johannsen/starfall/internal/game/combatant"
	"github.com/cory-johannsen/starfall/internal/game/content"
	"github.com/cory-johannsen/starfall/internal/game/dice"
	"github.com/cory-johannsen/starfall/internal/game/party"
	"github.com/cory-johannsen/starfall/internal/game/reward"
	"github.com/cory-johannsen/starfall/internal/game/status"
	"github.com/cory-johannsen/starfall/internal/telemetry"
)

var (
	aurora = combatant.Ref{Kind: combatant.KindCharacter, ID: "aurora"}
	bram   = combatant.Ref{Kind: combatant.KindCharacter, ID: "bram"}
	sela   = combatant.Ref{Kind: combatant.KindGuest, ID: "sela"}
	dummy  = combatant.Ref{Kind: combatant.KindEnemy, ID: "dummy-1"}
	imp    = combatant.Ref{Kind: combatant.KindEnemy, ID: "imp-1"}
	quick1 = combatant.Ref{Kind: combatant.KindEnemy, ID: "fast_imp-1"}
	quick2 = combatant.Ref{Kind: combatant.KindEnemy, ID: "fast_imp-2"}
	ogre   = combatant.Ref{Kind: combatant.KindEnemy, ID: "ogre-1"}
	hexer  = combatant.Ref{Kind: combatant.KindEnemy, ID: "hexer-1"}
	wolf1  = combatant.Ref{Kind: combatant.KindEnemy, ID: "wolf-1"}
	wolf2  = combatant.Ref{Kind: combatant.KindEnemy, ID: "wolf-2"}
)

// Areas:
//
//	training    dummy (hp 50, atk 13, def 3, spd 1)         order: aurora, bram, dummy
//	lone_imp    one imp (hp 5, atk 1, spd 1, xp 15)          order: aurora, bram, imp-1
//	imp_pair    two fast imps (hp 5, atk 1, spd 9, xp 15)    order: fast_imp-1, fast_imp-2, aurora, bram
//	ogre_den    ogre (atk 100, def 50, spd 20)               order: ogre-1, aurora, bram
//	frozen_pass two wolves (spd 9) plus guest sela (spd 6)   order: wolf-1, wolf-2, aurora, sela, bram
//	hexer_den   hexer (hp 30, atk 2, mp 5, knows frostbite)  order: aurora, bram, hexer-1
func testCatalog(t testing.TB) *content.Catalog {
	t.Helper()
	c := content.NewCatalog()
	for _, e := range []*content.EnemyDef{
		{ID: "dummy", Name: "Training Dummy", MaxHP: 50, Attack: 13, Defense: 3, Speed: 1},
		{ID: "imp", Name: "Ice Imp", MaxHP: 5, Attack: 1, Speed: 1, XP: 15, Loot: &content.LootTable{
			Currency: &content.CurrencyDrop{Min: 3, Max: 3},
			Items:    []content.ItemDrop{{ItemID: "shard", Chance: 1, MinQty: 1, MaxQty: 1}},
		}},
		{ID: "fast_imp", Name: "Quick Imp", MaxHP: 5, Attack: 1, Speed: 9, XP: 15},
		{ID: "ogre", Name: "Ogre", MaxHP: 500, Attack: 100, Defense: 50, Speed: 20, XP: 100},
		{ID: "wolf", Name: "Frost Wolf", MaxHP: 20, Attack: 7, Defense: 2, Speed: 9, XP: 15},
		{ID: "hexer", Name: "Hexer", MaxHP: 30, MaxMP: 5, Attack: 2, Speed: 1, XP: 5, Spells: []string{"frostbite"}},
	} {
		require.NoError(t, c.AddEnemy(e))
	}
	for _, e := range []*content.Encounter{
		{ID: "training", Area: "training", Enemies: []content.EnemySpawn{{Enemy: "dummy", Count: 1}}},
		{ID: "lone_imp", Area: "lone_imp", Enemies: []content.EnemySpawn{{Enemy: "imp", Count: 1}}},
		{ID: "imp_pair", Area: "imp_pair", Enemies: []content.EnemySpawn{{Enemy: "fast_imp", Count: 2}}},
		{ID: "ogre_den", Area: "ogre_den", Enemies: []content.EnemySpawn{{Enemy: "ogre", Count: 1}}},
		{ID: "hexer_den", Area: "hexer_den", Enemies: []content.EnemySpawn{{Enemy: "hexer", Count: 1}}},
		{ID: "frozen_pass", Area: "frozen_pass",
			Enemies: []content.EnemySpawn{{Enemy: "wolf", Count: 2}},
			Guests:  []content.GuestDef{{ID: "sela", Name: "Sela", MaxHP: 25, Attack: 6, Defense: 2, Speed: 6}},
		},
	} {
		require.NoError(t, c.AddEncounter(e))
	}
	for _, d := range []*content.ItemDef{
		{ID: "potion", Name: "Potion", Effect: content.Effect{Kind: content.EffectHeal, Amount: 20}},
		{ID: "ether", Name: "Ether", Effect: content.Effect{Kind: content.EffectRestoreMP, Amount: 5}},
		{ID: "remedy", Name: "Remedy", Effect: content.Effect{Kind: content.EffectCure, Cures: []string{"chill"}}},
		{ID: "tonic", Name: "Tonic", Effect: content.Effect{Kind: content.EffectBuff, Status: "ward"}},
	} {
		require.NoError(t, c.AddItem(d))
	}
	for _, d := range []*content.SpellDef{
		{ID: "frost_lance", Name: "Frost Lance", MPCost: 4, Effect: content.Effect{Kind: content.EffectDamage, Amount: 5}},
		{ID: "mend", Name: "Mend", MPCost: 3, Effect: content.Effect{Kind: content.EffectHeal, Amount: 15}},
		{ID: "chill", Name: "Chill", MPCost: 2, Effect: content.Effect{Kind: content.EffectDebuff, Status: "chill"}},
		{ID: "nova", Name: "Nova", MPCost: 50, Effect: content.Effect{Kind: content.EffectDamage, Amount: 40}},
		{ID: "frostbite", Name: "Frostbite", MPCost: 1, Effect: content.Effect{Kind: content.EffectDebuff, Status: "chill"}},
	} {
		require.NoError(t, c.AddSpell(d))
	}
	require.NoError(t, c.Statuses.Register(status.Def{ID: "ward", Name: "Ward", Duration: 2, DefenseBonus: 3}))
	require.NoError(t, c.Statuses.Register(status.Def{ID: "chill", Name: "Chill", Duration: 2, AttackBonus: -2}))
	curve, err := content.NewLevelTable([]content.LevelRow{
		{Level: 1, XP: 0},
		{Level: 2, XP: 100, Gains: content.StatGains{MaxHP: 5, MaxMP: 2, Attack: 1, Defense: 1}},
		{Level: 3, XP: 250, Gains: content.StatGains{MaxHP: 6, MaxMP: 2, Attack: 2, Defense: 1}},
	})
	require.NoError(t, err)
	c.Curve = curve
	return c
}

func testParty() party.Party {
	return party.Party{
		Characters: []party.Character{
			{
				ID: "aurora", Name: "Aurora", Level: 1, XP: 90, XPToNextLevel: 100,
				HP: 30, MaxHP: 40, MP: 10, MaxMP: 10, Attack: 10, Defense: 3, Speed: 8,
				Spells: []string{"frost_lance", "mend", "chill", "nova"},
			},
			{
				ID: "bram", Name: "Bram", Level: 1, XPToNextLevel: 100,
				HP: 50, MaxHP: 50, Attack: 8, Defense: 5, Speed: 4,
			},
		},
		Inventory: map[string]int{"potion": 2, "tonic": 1, "remedy": 1},
		Currency:  10,
	}
}

// flakyStore fails Commit while fail is set.
type flakyStore struct {
	*party.MemoryStore
	fail    bool
	commits int
}

func (f *flakyStore) Commit(ctx context.Context, u party.Update) error {
	if f.fail {
		return errors.New("store offline")
	}
	f.commits++
	return f.MemoryStore.Commit(ctx, u)
}

type harness struct {
	catalog *content.Catalog
	store   *flakyStore
	events  *telemetry.Recorder
	deps    combat.Deps
}

func newHarness(t testing.TB, mutate func(*party.Party)) *harness {
	t.Helper()
	cat := testCatalog(t)
	p := testParty()
	if mutate != nil {
		mutate(&p)
	}
	store := &flakyStore{MemoryStore: party.NewMemoryStore(p)}
	events := &telemetry.Recorder{}
	calc := reward.NewCalculator(cat.Enemies, cat.Curve, dice.NewLoggedRoller(dice.NewSeededSource(1), nil), nil)
	return &harness{
		catalog: cat,
		store:   store,
		events:  events,
		deps: combat.Deps{
			Catalog:    cat,
			Store:      store,
			Calculator: calc,
			Rules:      combat.DefaultRules(),
			Sink:       events,
			Logger:     zap.NewNop(),
			Now:        func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
		},
	}
}

func (h *harness) start(t testing.TB, area string) (*combat.Session, *combat.State) {
	t.Helper()
	sess := combat.NewSession(h.deps)
	st, err := sess.StartCombat(context.Background(), area)
	require.NoError(t, err)
	return sess, st
}

func hp(t testing.TB, st *combat.State, ref combatant.Ref) int {
	t.Helper()
	c, ok := st.Combatants.Lookup(ref)
	require.True(t, ok, "combatant %s", ref)
	return c.HP
}

func attack(target combatant.Ref) combat.Decision {
	return combat.Decision{Action: combat.ActionAttack, Target: target}
}

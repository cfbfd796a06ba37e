package postgres_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/starfall/internal/game/party"
	"github.com/cory-johannsen/starfall/internal/storage/postgres"
	"github.com/cory-johannsen/starfall/internal/testutil"
)

func uniqueID(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())
}

func makeTestParty() party.Party {
	return party.Party{
		Characters: []party.Character{
			{
				ID: "aurora", Name: "Aurora", Level: 1, XP: 90, XPToNextLevel: 100,
				HP: 30, MaxHP: 40, MP: 10, MaxMP: 10, Attack: 10, Defense: 3, Speed: 8,
				Spells: []string{"frost_lance", "mend"},
			},
			{ID: "bram", Name: "Bram", Level: 1, XPToNextLevel: 100, HP: 50, MaxHP: 50, Attack: 8, Defense: 5, Speed: 4},
		},
		Inventory: map[string]int{"potion": 2, "tonic": 1},
		Currency:  10,
	}
}

func setupParty(t *testing.T, pool *pgxpool.Pool) *postgres.PartyRepository {
	t.Helper()
	repo := postgres.NewPartyRepository(pool, uniqueID("party"))
	require.NoError(t, repo.Create(context.Background(), makeTestParty()))
	return repo
}

func TestPartyRepository(t *testing.T) {
	pool := testutil.NewPool(t)
	ctx := context.Background()

	t.Run("load round trips created party", func(t *testing.T) {
		repo := setupParty(t, pool)
		got, err := repo.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, makeTestParty(), got)
	})

	t.Run("create rejects duplicate id", func(t *testing.T) {
		id := uniqueID("dup")
		repo := postgres.NewPartyRepository(pool, id)
		require.NoError(t, repo.Create(ctx, makeTestParty()))
		assert.ErrorIs(t, repo.Create(ctx, makeTestParty()), postgres.ErrPartyExists)
	})

	t.Run("create rejects invalid party", func(t *testing.T) {
		repo := postgres.NewPartyRepository(pool, uniqueID("empty"))
		assert.Error(t, repo.Create(ctx, party.Party{}))
		_, err := repo.Load(ctx)
		assert.ErrorIs(t, err, postgres.ErrPartyNotFound)
	})

	t.Run("missing party", func(t *testing.T) {
		repo := postgres.NewPartyRepository(pool, "nobody")
		_, err := repo.Load(ctx)
		assert.ErrorIs(t, err, postgres.ErrPartyNotFound)
		assert.ErrorIs(t, repo.Commit(ctx, party.Update{CurrencyDelta: 5}), postgres.ErrPartyNotFound)
	})

	t.Run("commit matches in-memory apply", func(t *testing.T) {
		repo := setupParty(t, pool)
		start := makeTestParty()
		leveled := start.Characters[0].Clone()
		leveled.Level, leveled.XP, leveled.XPToCurrentLevel, leveled.XPToNextLevel = 2, 105, 100, 250
		leveled.MaxHP, leveled.HP = 45, 35
		u := party.Update{
			Characters:     []party.Character{leveled, {ID: "stranger", Name: "Nobody", Level: 1, HP: 1, MaxHP: 1}},
			InventoryDelta: map[string]int{"potion": -2, "shard": 3},
			CurrencyDelta:  -25,
		}
		require.NoError(t, repo.Commit(ctx, u))

		got, err := repo.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, start.Apply(u), got)
		assert.Equal(t, 0, got.Currency)
		assert.NotContains(t, got.Inventory, "potion")
	})

	t.Run("concurrent commits serialize", func(t *testing.T) {
		repo := setupParty(t, pool)
		const n = 8
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, repo.Commit(ctx, party.Update{
					InventoryDelta: map[string]int{"shard": 1},
					CurrencyDelta:  2,
				}))
			}()
		}
		wg.Wait()
		got, err := repo.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, n, got.Inventory["shard"])
		assert.Equal(t, 10+2*n, got.Currency)
	})
}

// Any sequence of inventory and currency deltas leaves the stored party
// equal to applying the same updates in memory.
func TestProperty_CommitAgreesWithApply(t *testing.T) {
	pool := testutil.NewPool(t)
	ctx := context.Background()
	items := []string{"potion", "tonic", "shard", "ether"}

	rapid.Check(t, func(rt *rapid.T) {
		repo := postgres.NewPartyRepository(pool, uniqueID("prop"))
		want := makeTestParty()
		require.NoError(rt, repo.Create(ctx, want))

		updates := rapid.IntRange(1, 5).Draw(rt, "updates")
		for i := 0; i < updates; i++ {
			u := party.Update{
				InventoryDelta: map[string]int{
					rapid.SampledFrom(items).Draw(rt, "item"): rapid.IntRange(-3, 3).Draw(rt, "delta"),
				},
				CurrencyDelta: rapid.IntRange(-20, 20).Draw(rt, "currency"),
			}
			require.NoError(rt, repo.Commit(ctx, u))
			want = want.Apply(u)
		}
		got, err := repo.Load(ctx)
		require.NoError(rt, err)
		require.Equal(rt, want, got)
	})
}

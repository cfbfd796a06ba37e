package dice_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/starfall/internal/game/dice"
)

// fixedSource returns the queued values in order, then zeros.
type fixedSource struct{ vals []int }

func (f *fixedSource) Intn(n int) int {
	if len(f.vals) == 0 {
		return 0
	}
	v := f.vals[0]
	f.vals = f.vals[1:]
	return v % n
}

func TestCryptoSource_Intn_InRange(t *testing.T) {
	src := dice.NewCryptoSource()
	for i := 0; i < 1000; i++ {
		v := src.Intn(6)
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, 6)
	}
}

func TestCryptoSource_Intn_PanicsOnZero(t *testing.T) {
	assert.Panics(t, func() { dice.NewCryptoSource().Intn(0) })
}

func TestSeededSource_Reproducible(t *testing.T) {
	a := dice.NewSeededSource(42)
	b := dice.NewSeededSource(42)
	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Intn(1000), b.Intn(1000))
	}
}

func TestSeededSource_PanicsOnZero(t *testing.T) {
	assert.Panics(t, func() { dice.NewSeededSource(1).Intn(0) })
}

func TestRoller_Between_Property_InRange(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		lo := rapid.IntRange(-50, 50).Draw(rt, "lo")
		span := rapid.IntRange(0, 50).Draw(rt, "span")
		seed := rapid.Int64().Draw(rt, "seed")
		r := dice.NewLoggedRoller(dice.NewSeededSource(seed), nil)
		v := r.Between("test", lo, lo+span)
		assert.GreaterOrEqual(rt, v, lo)
		assert.LessOrEqual(rt, v, lo+span)
	})
}

func TestRoller_Between_EqualBounds_NoRandomness(t *testing.T) {
	src := &fixedSource{vals: []int{5}}
	r := dice.NewLoggedRoller(src, nil)
	assert.Equal(t, 3, r.Between("flat", 3, 3))
	assert.Len(t, src.vals, 1, "equal bounds must not consume randomness")
}

func TestRoller_Chance_Bounds(t *testing.T) {
	src := &fixedSource{}
	r := dice.NewLoggedRoller(src, nil)
	assert.False(t, r.Chance("never", 0))
	assert.True(t, r.Chance("always", 1))
}

func TestRoller_Chance_UsesRoll(t *testing.T) {
	r := dice.NewLoggedRoller(&fixedSource{vals: []int{249_999, 250_000}}, nil)
	assert.True(t, r.Chance("quarter", 0.25))
	assert.False(t, r.Chance("quarter", 0.25))
}

func TestRoller_LogsAtDebug(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	r := dice.NewLoggedRoller(&fixedSource{vals: []int{1}}, zap.New(core))
	r.Between("qty", 1, 3)
	entries := logs.FilterMessage("dice roll").All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "qty", entries[0].ContextMap()["label"])
		assert.Equal(t, int64(2), entries[0].ContextMap()["result"])
	}
}

package scripting_test

import (
	"os"
	"path/filepath"
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
	"github.com/cory-johannsen/starfall/internal/scripting"
)

const triangularCurve = `
max_level = 10

function xp_for_level(level)
  if level < 1 or level > max_level then
    return nil
  end
  return 50 * (level - 1) * level
end

function stats_for_level(level)
  return { max_hp = 4 + level, max_mp = 2, attack = 1, defense = level % 2 }
end
`

func newCurve(t *testing.T, src string) *scripting.LuaCurve {
	t.Helper()
	c, err := scripting.NewLuaCurve("test.lua", src, 0, nil)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestLuaCurve_XPForLevel(t *testing.T) {
	c := newCurve(t, triangularCurve)
	cases := []struct {
		level int
		xp    int
		ok    bool
	}{
		{0, 0, false},
		{1, 0, true},
		{2, 100, true},
		{3, 300, true},
		{10, 4500, true},
		{11, 0, false},
	}
	for _, tc := range cases {
		xp, ok := c.XPForLevel(tc.level)
		assert.Equal(t, tc.ok, ok, "level %d", tc.level)
		assert.Equal(t, tc.xp, xp, "level %d", tc.level)
	}
}

func TestLuaCurve_LevelUpStats(t *testing.T) {
	c := newCurve(t, triangularCurve)
	assert.Equal(t, content.StatGains{MaxHP: 7, MaxMP: 2, Attack: 1, Defense: 1}, c.LevelUpStats(3))
	assert.Equal(t, content.StatGains{MaxHP: 8, MaxMP: 2, Attack: 1, Defense: 0}, c.LevelUpStats(4))
}

func TestLuaCurve_StatsHookOptional(t *testing.T) {
	c := newCurve(t, `function xp_for_level(l) if l == 1 then return 0 end return nil end`)
	assert.Equal(t, content.StatGains{}, c.LevelUpStats(2))
	_, ok := c.XPForLevel(2)
	assert.False(t, ok)
}

func TestNewLuaCurve_Rejects(t *testing.T) {
	cases := map[string]string{
		"syntax error":     `function xp_for_level(`,
		"missing hook":     `function stats_for_level(l) return {} end`,
		"level one not 0":  `function xp_for_level(l) return 10 * l end`,
		"runaway at load":  `while true do end`,
		"sandbox escape":   `os.exit(1)`,
		"uses stripped fn": `dofile("/etc/passwd")`,
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := scripting.NewLuaCurve("bad.lua", src, 1_000, nil)
			assert.Error(t, err)
		})
	}
}

func TestLuaCurve_RuntimeErrorIsLoggedAndStopsLevelling(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	c, err := scripting.NewLuaCurve("loop.lua", `
function xp_for_level(level)
  if level == 1 then return 0 end
  while true do end
end
function stats_for_level(level) error("boom") end
`, 500, zap.New(core))
	require.NoError(t, err)
	defer c.Close()

	_, ok := c.XPForLevel(2)
	assert.False(t, ok)
	assert.Equal(t, content.StatGains{}, c.LevelUpStats(2))
	assert.Equal(t, 2, logs.FilterMessage("scripting: Lua runtime error").Len())

	xp, ok := c.XPForLevel(1)
	assert.True(t, ok, "the budget resets after a runaway call")
	assert.Zero(t, xp)
}

func TestLuaCurve_InvalidXPIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	c, err := scripting.NewLuaCurve("neg.lua", `
function xp_for_level(level)
  if level == 1 then return 0 end
  if level == 2 then return -5 end
  return "lots"
end`, 0, zap.New(core))
	require.NoError(t, err)
	defer c.Close()

	_, ok := c.XPForLevel(2)
	assert.False(t, ok)
	_, ok = c.XPForLevel(3)
	assert.False(t, ok)
	assert.Equal(t, 2, logs.FilterMessage("scripting: curve returned invalid xp").Len())
}

func TestLuaCurve_ClosedCurveHasNoLevels(t *testing.T) {
	c, err := scripting.NewLuaCurve("test.lua", triangularCurve, 0, nil)
	require.NoError(t, err)
	c.Close()
	c.Close()
	_, ok := c.XPForLevel(2)
	assert.False(t, ok)
}

func TestLoadLuaCurve(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "curve.lua")
	require.NoError(t, os.WriteFile(path, []byte(triangularCurve), 0o600))

	c, err := scripting.LoadLuaCurve(path, 0, nil)
	require.NoError(t, err)
	defer c.Close()
	xp, ok := c.XPForLevel(2)
	assert.True(t, ok)
	assert.Equal(t, 100, xp)

	_, err = scripting.LoadLuaCurve(filepath.Join(dir, "missing.lua"), 0, nil)
	assert.Error(t, err)
}

func TestLuaCurve_DrivesLevelUps(t *testing.T) {
	c := newCurve(t, triangularCurve)
	calc := reward.NewCalculator(nil, c, dice.NewLoggedRoller(dice.NewSeededSource(1), nil), nil)

	got := calc.LevelUp(party.Character{
		ID: "aurora", Level: 1, XPToNextLevel: 100, HP: 20, MaxHP: 20, Attack: 5,
	}, 350)

	assert.Equal(t, 3, got.Level)
	assert.Equal(t, 350, got.XP)
	assert.Equal(t, 300, got.XPToCurrentLevel)
	assert.Equal(t, 600, got.XPToNextLevel)
	assert.Equal(t, 20+6+7, got.MaxHP)
	assert.Equal(t, 5+2, got.Attack)
}

// A Lua curve and the equivalent YAML table must agree level for level.
func TestProperty_LuaCurveMatchesTable(t *testing.T) {
	rows := make([]content.LevelRow, 0, 10)
	for lvl := 1; lvl <= 10; lvl++ {
		rows = append(rows, content.LevelRow{
			Level: lvl,
			XP:    50 * (lvl - 1) * lvl,
			Gains: content.StatGains{MaxHP: 4 + lvl, MaxMP: 2, Attack: 1, Defense: lvl % 2},
		})
	}
	table, err := content.NewLevelTable(rows)
	require.NoError(t, err)
	lc := newCurve(t, triangularCurve)

	rapid.Check(t, func(rt *rapid.T) {
		level := rapid.IntRange(-2, 14).Draw(rt, "level")
		wantXP, wantOK := table.XPForLevel(level)
		gotXP, gotOK := lc.XPForLevel(level)
		if wantOK != gotOK || wantXP != gotXP {
			rt.Fatalf("level %d: table (%d, %v) lua (%d, %v)", level, wantXP, wantOK, gotXP, gotOK)
		}
		if level >= 2 && level <= 10 && table.LevelUpStats(level) != lc.LevelUpStats(level) {
			rt.Fatalf("level %d: gains differ", level)
		}
	})
}

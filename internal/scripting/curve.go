package scripting

import (
	"fmt"
	"os"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/starfall/internal/game/content"
)

// Lua globals a curve script defines.
const (
	xpHook    = "xp_for_level"
	statsHook = "stats_for_level"
)

// LuaCurve is a level curve computed by a Lua script. The script must
// define xp_for_level(level), returning the cumulative xp threshold for
// level or nil past the top of the curve, and may define
// stats_for_level(level), returning a table with any of max_hp, max_mp,
// attack and defense.
//
// Runtime errors are logged at Warn and treated as "no such level" or "no
// gains", so a broken script stops levelling instead of corrupting it.
// LuaCurve is safe for concurrent use; calls are serialized on one VM.
type LuaCurve struct {
	mu        sync.Mutex
	L         *lua.LState
	name      string
	instLimit int
	logger    *zap.Logger
}

// LoadLuaCurve reads and compiles the curve script at path.
//
// Precondition: path must be a readable Lua file.
// Postcondition: See NewLuaCurve.
func LoadLuaCurve(path string, instLimit int, logger *zap.Logger) (*LuaCurve, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scripting: reading curve %q: %w", path, err)
	}
	return NewLuaCurve(path, string(src), instLimit, logger)
}

// NewLuaCurve compiles src into a sandboxed VM. name labels errors and logs.
//
// Precondition: instLimit >= 0; 0 uses DefaultInstructionLimit. A nil logger
// disables logging.
// Postcondition: Returns an error unless the script loads, defines
// xp_for_level and maps level 1 to 0 xp. The caller must Close the curve.
func NewLuaCurve(name, src string, instLimit int, logger *zap.Logger) (*LuaCurve, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	L := NewSandboxedState()
	err := RunLimited(L, instLimit, func() error {
		fn, err := L.Load(strings.NewReader(src), name)
		if err != nil {
			return err
		}
		L.Push(fn)
		return L.PCall(0, lua.MultRet, nil)
	})
	if err != nil {
		L.Close()
		return nil, fmt.Errorf("scripting: loading curve %q: %w", name, err)
	}
	if _, ok := L.GetGlobal(xpHook).(*lua.LFunction); !ok {
		L.Close()
		return nil, fmt.Errorf("scripting: curve %q does not define %s", name, xpHook)
	}

	c := &LuaCurve{L: L, name: name, instLimit: instLimit, logger: logger}
	if xp, ok := c.XPForLevel(1); !ok || xp != 0 {
		c.Close()
		return nil, fmt.Errorf("scripting: curve %q: %s(1) must return 0", name, xpHook)
	}
	return c, nil
}

// XPForLevel implements reward.Curve.
func (c *LuaCurve) XPForLevel(level int) (int, bool) {
	if level < 1 {
		return 0, false
	}
	ret, ok := c.call(xpHook, level)
	if !ok || ret == lua.LNil || ret == lua.LFalse {
		return 0, false
	}
	n, isNum := ret.(lua.LNumber)
	if !isNum || n < 0 {
		c.logger.Warn("scripting: curve returned invalid xp",
			zap.String("curve", c.name),
			zap.Int("level", level),
			zap.String("value", ret.String()),
		)
		return 0, false
	}
	return int(n), true
}

// LevelUpStats implements reward.Curve. A script without stats_for_level
// grants nothing.
func (c *LuaCurve) LevelUpStats(level int) content.StatGains {
	ret, ok := c.call(statsHook, level)
	if !ok {
		return content.StatGains{}
	}
	tbl, isTable := ret.(*lua.LTable)
	if !isTable {
		return content.StatGains{}
	}
	field := func(key string) int {
		if n, ok := tbl.RawGetString(key).(lua.LNumber); ok {
			return int(n)
		}
		return 0
	}
	return content.StatGains{
		MaxHP:   field("max_hp"),
		MaxMP:   field("max_mp"),
		Attack:  field("attack"),
		Defense: field("defense"),
	}
}

// Close releases the VM.
func (c *LuaCurve) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.L != nil {
		c.L.Close()
		c.L = nil
	}
}

// call invokes the global hook with level and returns its first result.
// ok is false when the hook is missing, the curve is closed, or the call
// failed.
func (c *LuaCurve) call(hook string, level int) (lua.LValue, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.L == nil {
		return lua.LNil, false
	}
	fn, isFn := c.L.GetGlobal(hook).(*lua.LFunction)
	if !isFn {
		return lua.LNil, false
	}

	var ret lua.LValue = lua.LNil
	err := RunLimited(c.L, c.instLimit, func() error {
		if err := c.L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, lua.LNumber(level)); err != nil {
			return err
		}
		ret = c.L.Get(-1)
		c.L.Pop(1)
		return nil
	})
	if err != nil {
		c.logger.Warn("scripting: Lua runtime error",
			zap.String("curve", c.name),
			zap.String("hook", hook),
			zap.Int("level", level),
			zap.Error(err),
		)
		return lua.LNil, false
	}
	return ret, true
}

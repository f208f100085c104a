package scripting

import (
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"mdrp-solver/internal/ports"
)

// LuaPolicy implements ports.PaymentPolicy by calling a user-supplied Lua
// function:
//
// function floor(pay_per_delivery, min_pay_per_hour, deliveries, shift_minutes)
// return...
// end
//
// The same function backs both PerDeliveryFloor (shift_minutes is the
// not-started minutes) and PerTimeFloor (deliveries is passed as 0). This
// lets an operator experiment with alternate pay schemes without rebuilding
// the solver.
type LuaPolicy struct {
	mu sync.Mutex
	state *lua.LState
}

// NewLuaPolicy loads the script at path and validates it exposes a global
// "floor" function.
func NewLuaPolicy(path string) (*LuaPolicy, error) {
	state := lua.NewState()
	if err := state.DoFile(path); err != nil {
		state.Close()
		return nil, fmt.Errorf("scripting: load %s: %w", path, err)
	}
	if fn, ok := state.GetGlobal("floor").(*lua.LFunction); !ok || fn == nil {
		state.Close()
		return nil, fmt.Errorf("scripting: %s does not define a floor function", path)
	}
	return &LuaPolicy{state: state}, nil
}

func (p *LuaPolicy) call(payPerDelivery, minPayPerHour, deliveries, shiftMinutes float64) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	fn := p.state.GetGlobal("floor")
	if err := p.state.CallByParam(lua.P{
			Fn: fn,
			NRet: 1,
			Protect: true,
		},
		lua.LNumber(payPerDelivery),
		lua.LNumber(minPayPerHour),
		lua.LNumber(deliveries),
		lua.LNumber(shiftMinutes),
	); err != nil {
		// A misbehaving script falls back to zero rather than panicking the
		// solver; the pay-floor constraint just becomes non-binding.
		return 0
	}
	ret := p.state.Get(-1)
	p.state.Pop(1)

	n, ok := ret.(lua.LNumber)
	if !ok {
		return 0
	}
	return float64(n)
}

func (p *LuaPolicy) PerDeliveryFloor(payPerDelivery, minPayPerHour, deliveries, shiftMinutesNotStarted float64) float64 {
	return p.call(payPerDelivery, minPayPerHour, deliveries, shiftMinutesNotStarted)
}

func (p *LuaPolicy) PerTimeFloor(minPayPerHour, shiftMinutesTotal float64) float64 {
	return p.call(0, minPayPerHour, 0, shiftMinutesTotal)
}

// Close releases the Lua state.
func (p *LuaPolicy) Close() {
	p.state.Close()
}

var _ ports.PaymentPolicy = (*LuaPolicy)(nil)

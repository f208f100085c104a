package scripting

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultPolicyFloors(t *testing.T) {
	p := DefaultPolicy{}

	// 3 deliveries at $2 each, plus 60 not-started minutes at $15/h.
	if got := p.PerDeliveryFloor(2, 15, 3, 60); got != 2*3+(15.0/60)*60 {
		t.Fatalf("PerDeliveryFloor = %v, want 21", got)
	}
	// A 120-minute shift at $15/h floors at $30.
	if got := p.PerTimeFloor(15, 120); got != 30 {
		t.Fatalf("PerTimeFloor = %v, want 30", got)
	}
}

func TestResolvePolicyBlankPathYieldsDefault(t *testing.T) {
	p, err := ResolvePolicy("  ")
	if err != nil {
		t.Fatalf("ResolvePolicy: %v", err)
	}
	if _, ok := p.(DefaultPolicy); !ok {
		t.Fatalf("blank script path should resolve to DefaultPolicy, got %T", p)
	}
}

func TestLuaPolicyOverridesFloor(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "floor.lua")
	script := `function floor(pay_per_delivery, min_pay_per_hour, deliveries, shift_minutes)
	return pay_per_delivery * deliveries * 2 + shift_minutes
end`
	if err := os.WriteFile(path, []byte(script), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}

	p, err := NewLuaPolicy(path)
	if err != nil {
		t.Fatalf("NewLuaPolicy: %v", err)
	}
	defer p.Close()

	// The scripted floor doubles the per-delivery rate and adds the raw
	// shift minutes, so it always exceeds the default formula here.
	if got := p.PerDeliveryFloor(2, 15, 3, 60); got != 2*3*2+60 {
		t.Fatalf("scripted PerDeliveryFloor = %v, want 72", got)
	}
	def := DefaultPolicy{}.PerDeliveryFloor(2, 15, 3, 60)
	if got := p.PerDeliveryFloor(2, 15, 3, 60); got <= def {
		t.Fatalf("scripted floor %v should exceed the default %v", got, def)
	}

	// PerTimeFloor routes through the same function with deliveries = 0.
	if got := p.PerTimeFloor(15, 120); got != 120 {
		t.Fatalf("scripted PerTimeFloor = %v, want 120", got)
	}
}

func TestNewLuaPolicyRejectsScriptWithoutFloor(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nofloor.lua")
	if err := os.WriteFile(path, []byte("x = 1"), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}

	if _, err := NewLuaPolicy(path); err == nil {
		t.Fatalf("expected an error for a script that defines no floor function")
	}
}

func TestResolvePolicyMissingScript(t *testing.T) {
	if _, err := ResolvePolicy("/does/not/exist.lua"); err == nil {
		t.Fatalf("expected an error for a missing script path")
	}
}

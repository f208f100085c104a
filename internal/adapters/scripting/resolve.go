package scripting

import (
	"fmt"
	"strings"

	"mdrp-solver/internal/ports"
)

// ResolvePolicy returns the Lua-scripted policy at scriptPath, or
// DefaultPolicy when scriptPath is blank.
func ResolvePolicy(scriptPath string) (ports.PaymentPolicy, error) {
	if strings.TrimSpace(scriptPath) == "" {
		return DefaultPolicy{}, nil
	}
	policy, err := NewLuaPolicy(scriptPath)
	if err != nil {
		return nil, fmt.Errorf("scripting: resolve policy: %w", err)
	}
	return policy, nil
}

package domain

import (
	"sort"
	"strconv"
	"strings"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// OrderSetKey is a canonical, order-independent identifier for a set of
// order IDs, used as the bucket key for pairwise dominance.
func OrderSetKey(orders []string) string {
	cp := make([]string, len(orders))
	copy(cp, orders)
	sort.Strings(cp)
	return strings.Join(cp, ",")
}

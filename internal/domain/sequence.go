package domain

// An ordered tuple of orders delivered consecutively from one restaurant
// without returning to a restaurant between drops.
type Sequence struct {
	Orders []string // order IDs, delivery order
	Restaurant string
	EarliestLeave float64
	LatestLeave float64
	Travel float64 // restaurant departure -> last drop-off
}

func (s Sequence) LastOrder() string {
	return s.Orders[len(s.Orders)-1]
}

// DominanceKey buckets sequences that can be compared for dominance: same
// order set, same last order.
func (s Sequence) DominanceKey() string {
	return OrderSetKey(s.Orders) + "|" + s.LastOrder()
}

// Dominates reports whether s dominates other: s is at least as flexible
// (LatestLeave) and at least as cheap (Travel), strictly better in one.
func (s Sequence) Dominates(other Sequence) bool {
	if s.LatestLeave < other.LatestLeave || s.Travel > other.Travel {
		return false
	}
	return s.LatestLeave > other.LatestLeave || s.Travel < other.Travel
}

// A Sequence extended with a candidate next restaurant to travel to after
// the last drop-off. Shares the same attribute shape and
// dominance rule as Sequence.
type SequencePair struct {
	Sequence []string
	Restaurant string // R(S), the sequence's origin restaurant
	NextRestaurant string
	EarliestLeave float64
	LatestLeave float64
	Travel float64
}

func (p SequencePair) DominanceKey() string {
	return OrderSetKey(p.Sequence) + "|" + p.NextRestaurant
}

func (p SequencePair) Dominates(other SequencePair) bool {
	if p.LatestLeave < other.LatestLeave || p.Travel > other.Travel {
		return false
	}
	return p.LatestLeave > other.LatestLeave || p.Travel < other.Travel
}

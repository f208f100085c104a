package domain

import "testing"

func TestSequenceDominates(t *testing.T) {
	a := Sequence{Orders: []string{"o1"}, LatestLeave: 10, Travel: 5}
	b := Sequence{Orders: []string{"o1"}, LatestLeave: 8, Travel: 5}
	c := Sequence{Orders: []string{"o1"}, LatestLeave: 10, Travel: 5}

	if !a.Dominates(b) {
		t.Fatalf("a should dominate b: strictly more flexible, same travel")
	}
	if b.Dominates(a) {
		t.Fatalf("b should not dominate a")
	}
	if a.Dominates(c) {
		t.Fatalf("identical records should not dominate each other")
	}
}

func TestSequenceDominanceKeyUsesOrderSetAndLastOrder(t *testing.T) {
	a := Sequence{Orders: []string{"o1", "o2"}}
	b := Sequence{Orders: []string{"o2", "o1"}}
	if a.DominanceKey() != "o1,o2|o2" {
		t.Fatalf("unexpected key for a: %q", a.DominanceKey())
	}
	// Different last orders must bucket separately even with the same set.
	if a.DominanceKey() == b.DominanceKey() {
		t.Fatalf("sequences with different last orders should not share a dominance key")
	}
}

func TestSequencePairDominates(t *testing.T) {
	p1 := SequencePair{Sequence: []string{"o1"}, NextRestaurant: "r2", LatestLeave: 10, Travel: 4}
	p2 := SequencePair{Sequence: []string{"o1"}, NextRestaurant: "r2", LatestLeave: 10, Travel: 6}
	if !p1.Dominates(p2) {
		t.Fatalf("p1 should dominate p2: cheaper travel, equal flexibility")
	}
	if p2.Dominates(p1) {
		t.Fatalf("p2 should not dominate p1")
	}
}

package cache

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"mdrp-solver/internal/adapters/repositories"
	"mdrp-solver/internal/domain"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := repositories.InitSchema(db); err != nil {
		t.Fatalf("InitSchema: %v", err)
	}
	return db
}

func TestSqliteSequenceCacheRoundTrip(t *testing.T) {
	c := NewSqliteSequenceCache(newTestDB(t))
	ctx := context.Background()
	const fp = "r1|false|o1,o2"

	if _, ok, err := c.GetSequences(ctx, fp); err != nil || ok {
		t.Fatalf("expected a clean miss, got ok=%v err=%v", ok, err)
	}

	want := []domain.Sequence{
		{Orders: []string{"o1", "o2"}, Restaurant: "r1", EarliestLeave: 12, LatestLeave: 47, Travel: 18},
		{Orders: []string{"o2"}, Restaurant: "r1", EarliestLeave: 5, LatestLeave: 60, Travel: 9},
	}
	if err := c.PutSequences(ctx, fp, want); err != nil {
		t.Fatalf("PutSequences: %v", err)
	}

	got, ok, err := c.GetSequences(ctx, fp)
	if err != nil || !ok {
		t.Fatalf("expected a hit, got ok=%v err=%v", ok, err)
	}
	if len(got) != len(want) {
		t.Fatalf("round trip returned %d sequences, want %d", len(got), len(want))
	}
	for i := range want {
		w, g := want[i], got[i]
		if g.Restaurant != w.Restaurant || g.EarliestLeave != w.EarliestLeave ||
			g.LatestLeave != w.LatestLeave || g.Travel != w.Travel || len(g.Orders) != len(w.Orders) {
			t.Fatalf("sequence %d = %+v, want %+v", i, g, w)
		}
		for j := range w.Orders {
			if g.Orders[j] != w.Orders[j] {
				t.Fatalf("sequence %d order %d = %q, want %q", i, j, g.Orders[j], w.Orders[j])
			}
		}
	}
}

func TestSqliteSequenceCachePutOverwrites(t *testing.T) {
	c := NewSqliteSequenceCache(newTestDB(t))
	ctx := context.Background()
	const fp = "r1|false|o1"

	if err := c.PutSequences(ctx, fp, []domain.Sequence{
		{Orders: []string{"o1"}, Restaurant: "r1", Travel: 5},
		{Orders: []string{"o1"}, Restaurant: "r1", Travel: 6},
	}); err != nil {
		t.Fatalf("first PutSequences: %v", err)
	}
	if err := c.PutSequences(ctx, fp, []domain.Sequence{
		{Orders: []string{"o1"}, Restaurant: "r1", Travel: 7},
	}); err != nil {
		t.Fatalf("second PutSequences: %v", err)
	}

	got, ok, err := c.GetSequences(ctx, fp)
	if err != nil || !ok {
		t.Fatalf("expected a hit, got ok=%v err=%v", ok, err)
	}
	if len(got) != 1 || got[0].Travel != 7 {
		t.Fatalf("stale rows survived the overwrite: %+v", got)
	}
}

func TestSqliteUntimedArcCacheRoundTrip(t *testing.T) {
	c := NewSqliteUntimedArcCache(newTestDB(t))
	ctx := context.Background()
	const fp = "g1|o1-o2>r2"

	want := []domain.UntimedArc{
		{
			GroupKey: "g1", CourierID: "",
			Orders: []string{"o1", "o2"},
			DepartureRestaurant: "r1", NextRestaurant: "r2",
			EarliestLeave: 10, LatestLeave: 40, Travel: 12,
		},
		{
			GroupKey: "g1", CourierID: "c3",
			Orders: nil,
			DepartureRestaurant: domain.Home, NextRestaurant: "r1",
			EarliestLeave: 0, LatestLeave: 25, Travel: 8,
		},
	}
	if err := c.PutArcs(ctx, fp, want); err != nil {
		t.Fatalf("PutArcs: %v", err)
	}

	got, ok, err := c.GetArcs(ctx, fp)
	if err != nil || !ok {
		t.Fatalf("expected a hit, got ok=%v err=%v", ok, err)
	}
	if len(got) != 2 {
		t.Fatalf("round trip returned %d arcs, want 2", len(got))
	}
	if got[0].Kind() != domain.ArcMain || got[1].Kind() != domain.ArcEntry {
		t.Fatalf("arc kinds did not survive the round trip: %v, %v", got[0].Kind(), got[1].Kind())
	}
	if got[1].CourierID != "c3" || got[1].DepartureRestaurant != domain.Home {
		t.Fatalf("entry arc = %+v, want courier c3 departing home", got[1])
	}
}

func TestSqliteCachesRejectEmptyFingerprint(t *testing.T) {
	db := newTestDB(t)
	sc := NewSqliteSequenceCache(db)
	ac := NewSqliteUntimedArcCache(db)
	ctx := context.Background()

	if _, _, err := sc.GetSequences(ctx, ""); err == nil {
		t.Fatalf("expected an error for an empty sequence fingerprint")
	}
	if err := ac.PutArcs(ctx, "", nil); err == nil {
		t.Fatalf("expected an error for an empty arc fingerprint")
	}
}

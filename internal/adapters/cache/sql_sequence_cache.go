package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"mdrp-solver/internal/domain"
	"mdrp-solver/internal/platform/obs"
	"mdrp-solver/internal/ports"
)

// SQLSequenceCache is a Postgres-backed ports.SequenceCache, keyed by the
// caller-supplied restaurant/order-set fingerprint.
type SQLSequenceCache struct {
	DB *sql.DB
}

func NewSQLSequenceCache(db *sql.DB) *SQLSequenceCache {
	return &SQLSequenceCache{DB: db}
}

func (s *SQLSequenceCache) GetSequences(ctx context.Context, fingerprint string) (_ []domain.Sequence, _ bool, err error) {
	defer obs.Time(ctx, "cache.sequence.Get")(&err)

	if s.DB == nil {
		return nil, false, errors.New("sequence cache: db is nil")
	}
	if fingerprint == "" {
		return nil, false, errors.New("sequence cache: fingerprint must not be empty")
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT orders, restaurant, earliest_leave, latest_leave, travel
		FROM sequence_cache
		WHERE fingerprint = $1
		ORDER BY seq_index;
		`, fingerprint)
	if err != nil {
		return nil, false, fmt.Errorf("sequence cache: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Sequence
	for rows.Next() {
		var ordersCSV, restaurant string
		var earliest, latest, travel float64
		if err := rows.Scan(&ordersCSV, &restaurant, &earliest, &latest, &travel); err != nil {
			return nil, false, fmt.Errorf("sequence cache: scan: %w", err)
		}
		out = append(out, domain.Sequence{
			Orders: splitCSV(ordersCSV),
			Restaurant: restaurant,
			EarliestLeave: earliest,
			LatestLeave: latest,
			Travel: travel,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("sequence cache: row iteration: %w", err)
	}
	if len(out) == 0 {
		return nil, false, nil
	}
	return out, true, nil
}

func (s *SQLSequenceCache) PutSequences(ctx context.Context, fingerprint string, seqs []domain.Sequence) (err error) {
	defer obs.Time(ctx, "cache.sequence.Put")(&err)

	if s.DB == nil {
		return errors.New("sequence cache: db is nil")
	}
	if fingerprint == "" {
		return errors.New("sequence cache: fingerprint must not be empty")
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sequence cache: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sequence_cache WHERE fingerprint = $1;`, fingerprint); err != nil {
		return fmt.Errorf("sequence cache: clear stale rows: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sequence_cache (fingerprint, seq_index, orders, restaurant, earliest_leave, latest_leave, travel)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
		`)
	if err != nil {
		return fmt.Errorf("sequence cache: prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, seq := range seqs {
		if _, err := stmt.ExecContext(ctx, fingerprint, i, joinCSV(seq.Orders), seq.Restaurant, seq.EarliestLeave, seq.LatestLeave, seq.Travel); err != nil {
			return fmt.Errorf("sequence cache: insert seq_index=%d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sequence cache: commit: %w", err)
	}
	return nil
}

// SQLUntimedArcCache is the Postgres-backed ports.UntimedArcCache half,
// keyed by the caller-supplied fingerprint.
type SQLUntimedArcCache struct {
	DB *sql.DB
}

func NewSQLUntimedArcCache(db *sql.DB) *SQLUntimedArcCache {
	return &SQLUntimedArcCache{DB: db}
}

func (s *SQLUntimedArcCache) GetArcs(ctx context.Context, fingerprint string) (_ []domain.UntimedArc, _ bool, err error) {
	defer obs.Time(ctx, "cache.untimedarc.Get")(&err)

	if s.DB == nil {
		return nil, false, errors.New("untimed arc cache: db is nil")
	}
	if fingerprint == "" {
		return nil, false, errors.New("untimed arc cache: fingerprint must not be empty")
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT group_key, courier_id, orders, departure_restaurant, next_restaurant, earliest_leave, latest_leave, travel
		FROM untimed_arc_cache
		WHERE fingerprint = $1
		ORDER BY arc_index;
		`, fingerprint)
	if err != nil {
		return nil, false, fmt.Errorf("untimed arc cache: query: %w", err)
	}
	defer rows.Close()

	var out []domain.UntimedArc
	for rows.Next() {
		var groupKey, courierID, ordersCSV, departure, next string
		var earliest, latest, travel float64
		if err := rows.Scan(&groupKey, &courierID, &ordersCSV, &departure, &next, &earliest, &latest, &travel); err != nil {
			return nil, false, fmt.Errorf("untimed arc cache: scan: %w", err)
		}
		out = append(out, domain.UntimedArc{
			GroupKey: groupKey,
			CourierID: courierID,
			Orders: splitCSV(ordersCSV),
			DepartureRestaurant: departure,
			NextRestaurant: next,
			EarliestLeave: earliest,
			LatestLeave: latest,
			Travel: travel,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("untimed arc cache: row iteration: %w", err)
	}
	if len(out) == 0 {
		return nil, false, nil
	}
	return out, true, nil
}

func (s *SQLUntimedArcCache) PutArcs(ctx context.Context, fingerprint string, arcs []domain.UntimedArc) (err error) {
	defer obs.Time(ctx, "cache.untimedarc.Put")(&err)

	if s.DB == nil {
		return errors.New("untimed arc cache: db is nil")
	}
	if fingerprint == "" {
		return errors.New("untimed arc cache: fingerprint must not be empty")
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("untimed arc cache: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM untimed_arc_cache WHERE fingerprint = $1;`, fingerprint); err != nil {
		return fmt.Errorf("untimed arc cache: clear stale rows: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO untimed_arc_cache (fingerprint, arc_index, group_key, courier_id, orders, departure_restaurant, next_restaurant, earliest_leave, latest_leave, travel)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
		`)
	if err != nil {
		return fmt.Errorf("untimed arc cache: prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, a := range arcs {
		if _, err := stmt.ExecContext(ctx, fingerprint, i, a.GroupKey, a.CourierID, joinCSV(a.Orders), a.DepartureRestaurant, a.NextRestaurant, a.EarliestLeave, a.LatestLeave, a.Travel); err != nil {
			return fmt.Errorf("untimed arc cache: insert arc_index=%d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("untimed arc cache: commit: %w", err)
	}
	return nil
}

var _ ports.SequenceCache = (*SQLSequenceCache)(nil)
var _ ports.UntimedArcCache = (*SQLUntimedArcCache)(nil)

func joinCSV(ids []string) string {
	return strings.Join(ids, ",")
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

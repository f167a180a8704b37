package basket

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/yieldpilot/internal/contracts"
)

// SnapshotRepository implements contracts.SnapshotRepository
// ⭐ SSOT: basket snapshot storage lives here only
type SnapshotRepository struct {
	pool *pgxpool.Pool
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(pool *pgxpool.Pool) *SnapshotRepository {
	return &SnapshotRepository{pool: pool}
}

// SaveSnapshots appends one cycle's snapshots in a single transaction.
// All-or-nothing: a failure on any row rolls back the whole batch.
func (r *SnapshotRepository) SaveSnapshots(ctx context.Context, snapshots []*contracts.BasketYieldSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin snapshot batch: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO yield.basket_snapshots (basket_id, simple_avg_yield_bp, weighted_yield_bp, contributions, computed_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	for _, s := range snapshots {
		contributions, err := json.Marshal(s.Contributions)
		if err != nil {
			return fmt.Errorf("marshal contributions for basket %d: %w", s.BasketID, err)
		}

		_, err = tx.Exec(ctx, query,
			s.BasketID, s.SimpleAvgYieldBp, s.WeightedYieldBp, contributions, s.ComputedAt,
		)
		if err != nil {
			return fmt.Errorf("insert snapshot for basket %d: %w", s.BasketID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit snapshot batch: %w", err)
	}
	return nil
}

// LatestSnapshots returns the most recent snapshot per basket, id order
func (r *SnapshotRepository) LatestSnapshots(ctx context.Context) ([]*contracts.BasketYieldSnapshot, error) {
	query := `
		SELECT DISTINCT ON (basket_id) basket_id, simple_avg_yield_bp, weighted_yield_bp, contributions, computed_at
		FROM yield.basket_snapshots
		ORDER BY basket_id, computed_at DESC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []*contracts.BasketYieldSnapshot
	for rows.Next() {
		var s contracts.BasketYieldSnapshot
		var contributions []byte
		if err := rows.Scan(&s.BasketID, &s.SimpleAvgYieldBp, &s.WeightedYieldBp, &contributions, &s.ComputedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(contributions, &s.Contributions); err != nil {
			return nil, fmt.Errorf("unmarshal contributions for basket %d: %w", s.BasketID, err)
		}
		snapshots = append(snapshots, &s)
	}
	return snapshots, rows.Err()
}

package rebalance

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrUserNotFound is returned when a user has no basket-of-record
var ErrUserNotFound = errors.New("user not found")

// PortfolioRepository implements contracts.PortfolioRepository
// ⭐ SSOT: basket-of-record storage lives here only
type PortfolioRepository struct {
	pool *pgxpool.Pool
}

// NewPortfolioRepository creates a new portfolio repository
func NewPortfolioRepository(pool *pgxpool.Pool) *PortfolioRepository {
	return &PortfolioRepository{pool: pool}
}

// GetUserBasket returns the user's current basket id
func (r *PortfolioRepository) GetUserBasket(ctx context.Context, userID string) (int, error) {
	query := `
		SELECT basket_id
		FROM rebalance.user_portfolios
		WHERE user_id = $1
	`

	var basketID int
	err := r.pool.QueryRow(ctx, query, userID).Scan(&basketID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}
	if err != nil {
		return 0, err
	}
	return basketID, nil
}

// SetUserBasket updates the user's basket-of-record
func (r *PortfolioRepository) SetUserBasket(ctx context.Context, userID string, basketID int) error {
	query := `
		INSERT INTO rebalance.user_portfolios (user_id, basket_id, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			basket_id = EXCLUDED.basket_id,
			updated_at = NOW()
	`

	_, err := r.pool.Exec(ctx, query, userID, basketID)
	return err
}

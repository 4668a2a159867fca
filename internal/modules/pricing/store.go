// README: Tier catalog backed by PostgreSQL.
package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Tiers(ctx context.Context) ([]Tier, error) {
	rows, err := s.db.Query(ctx, `
        SELECT id, display_name, rate_per_km, capacity
        FROM vehicle_tiers
        WHERE active
        ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tiers []Tier
	for rows.Next() {
		var t Tier
		if err := rows.Scan(&t.ID, &t.DisplayName, &t.RatePerKm, &t.Capacity); err != nil {
			return nil, err
		}
		tiers = append(tiers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	brackets, err := s.brackets(ctx, nil)
	if err != nil {
		return nil, err
	}
	for i := range tiers {
		tiers[i].Brackets = brackets[tiers[i].ID]
	}
	return tiers, nil
}

func (s *Store) Tier(ctx context.Context, id int) (Tier, error) {
	row := s.db.QueryRow(ctx, `
        SELECT id, display_name, rate_per_km, capacity
        FROM vehicle_tiers
        WHERE id = $1 AND active`, id)

	var t Tier
	err := row.Scan(&t.ID, &t.DisplayName, &t.RatePerKm, &t.Capacity)
	if errors.Is(err, pgx.ErrNoRows) {
		return Tier{}, ErrTierNotFound
	}
	if err != nil {
		return Tier{}, err
	}

	brackets, err := s.brackets(ctx, &id)
	if err != nil {
		return Tier{}, err
	}
	t.Brackets = brackets[id]
	return t, nil
}

// brackets loads price brackets, for one tier when tierID is set.
func (s *Store) brackets(ctx context.Context, tierID *int) (map[int][]Bracket, error) {
	rows, err := s.db.Query(ctx, `
        SELECT tier_id, min_km, max_km, base_price, price_per_km
        FROM tier_brackets
        WHERE $1::int IS NULL OR tier_id = $1
        ORDER BY tier_id, min_km`, tierID)
	if err != nil {
		return nil, fmt.Errorf("load brackets: %w", err)
	}
	defer rows.Close()

	out := make(map[int][]Bracket)
	for rows.Next() {
		var id int
		var b Bracket
		if err := rows.Scan(&id, &b.MinKm, &b.MaxKm, &b.BasePrice, &b.PricePerKm); err != nil {
			return nil, err
		}
		out[id] = append(out[id], b)
	}
	return out, rows.Err()
}

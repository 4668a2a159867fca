package aiusage

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store keeps the ledger in the ai_usage table.
type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// UseToken creates the row on first use and deducts in the same statement.
// The conditional update makes concurrent calls safe: once the allowance is
// spent no row is returned.
func (s *Store) UseToken(ctx context.Context, uid, month string, limit int) error {
	tag, err := s.db.Exec(ctx, `
		INSERT INTO ai_usage (uid, tokens_remaining, last_reset_month)
		VALUES ($1, $2 - 1, $3)
		ON CONFLICT (uid) DO UPDATE SET
			tokens_remaining = CASE WHEN ai_usage.last_reset_month < $3 THEN $2 - 1 ELSE ai_usage.tokens_remaining - 1 END,
			last_reset_month = GREATEST(ai_usage.last_reset_month, $3)
		WHERE ai_usage.last_reset_month < $3 OR ai_usage.tokens_remaining > 0
	`, uid, limit, month)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInsufficientTokens
	}
	return nil
}

// MemoryStore is the ledger used without a database. It forgets everything
// on restart.
type MemoryStore struct {
	mu    sync.Mutex
	users map[string]usage
}

type usage struct {
	remaining int
	month     string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]usage)}
}

func (m *MemoryStore) UseToken(_ context.Context, uid, month string, limit int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[uid]
	if !ok || u.month < month {
		u = usage{remaining: limit, month: month}
	}
	if u.remaining <= 0 {
		return ErrInsufficientTokens
	}
	u.remaining--
	m.users[uid] = u
	return nil
}

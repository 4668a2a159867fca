package aiusage

import (
	"context"
	"time"
)

// Service meters assistant calls against a monthly allowance.
type Service struct {
	ledger Ledger
	limit  int
	loc    *time.Location
	now    func() time.Time
}

// NewService creates a Service granting limit tokens per calendar month in
// loc. A non-positive limit uses DefaultTokens.
func NewService(ledger Ledger, limit int, loc *time.Location) *Service {
	if limit <= 0 {
		limit = DefaultTokens
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{ledger: ledger, limit: limit, loc: loc, now: time.Now}
}

// UseToken deducts one token from the user's monthly allowance.
// Returns ErrInsufficientTokens when the quota for the current month is exhausted.
func (s *Service) UseToken(ctx context.Context, uid string) error {
	return s.ledger.UseToken(ctx, uid, s.now().In(s.loc).Format("2006-01"), s.limit)
}

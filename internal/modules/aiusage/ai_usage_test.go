// README: AI-usage module tests (lazy reset and quota boundary logic).
package aiusage

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ridebook/internal/testutil"
)

func ledgers() map[string]func(t *testing.T) Ledger {
	return map[string]func(t *testing.T) Ledger{
		"memory": func(t *testing.T) Ledger { return NewMemoryStore() },
		"postgres": func(t *testing.T) Ledger {
			return NewStore(testutil.Postgres(t, "ai_usage"))
		},
	}
}

func at(svc *Service, year int, month time.Month) *Service {
	svc.now = func() time.Time { return time.Date(year, month, 15, 12, 0, 0, 0, time.UTC) }
	return svc
}

// TestUseTokenNewUser verifies that a user absent from the ledger starts with a full allowance.
func TestUseTokenNewUser(t *testing.T) {
	for name, newLedger := range ledgers() {
		t.Run(name, func(t *testing.T) {
			svc := at(NewService(newLedger(t), 2, time.UTC), 2025, 6)
			ctx := context.Background()

			for i := 0; i < 2; i++ {
				if err := svc.UseToken(ctx, "user_new"); err != nil {
					t.Fatalf("UseToken #%d: %v", i+1, err)
				}
			}
			if err := svc.UseToken(ctx, "user_new"); err != ErrInsufficientTokens {
				t.Fatalf("expected ErrInsufficientTokens, got %v", err)
			}
			if err := svc.UseToken(ctx, "someone_else"); err != nil {
				t.Fatalf("quota leaked across users: %v", err)
			}
		})
	}
}

// TestUseTokenCrossMonthReset verifies that an exhausted user is topped up in a new month.
func TestUseTokenCrossMonthReset(t *testing.T) {
	for name, newLedger := range ledgers() {
		t.Run(name, func(t *testing.T) {
			ledger := newLedger(t)
			ctx := context.Background()

			may := at(NewService(ledger, 1, time.UTC), 2025, 5)
			if err := may.UseToken(ctx, "user_reset"); err != nil {
				t.Fatalf("UseToken: %v", err)
			}
			if err := may.UseToken(ctx, "user_reset"); err != ErrInsufficientTokens {
				t.Fatalf("expected ErrInsufficientTokens, got %v", err)
			}

			june := at(NewService(ledger, 1, time.UTC), 2025, 6)
			if err := june.UseToken(ctx, "user_reset"); err != nil {
				t.Fatalf("UseToken after month change: %v", err)
			}
			// A call stamped with the old month does not roll the ledger back.
			if err := may.UseToken(ctx, "user_reset"); err != ErrInsufficientTokens {
				t.Fatalf("expected ErrInsufficientTokens for stale month, got %v", err)
			}
		})
	}
}

// TestUseTokenConcurrent verifies the allowance is never overspent.
func TestUseTokenConcurrent(t *testing.T) {
	for name, newLedger := range ledgers() {
		t.Run(name, func(t *testing.T) {
			const limit, callers = 5, 20
			svc := at(NewService(newLedger(t), limit, time.UTC), 2025, 6)

			var ok atomic.Int32
			var wg sync.WaitGroup
			for i := 0; i < callers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if svc.UseToken(context.Background(), "user_race") == nil {
						ok.Add(1)
					}
				}()
			}
			wg.Wait()
			if got := ok.Load(); got != limit {
				t.Fatalf("expected %d successful calls, got %d", limit, got)
			}
		})
	}
}

func TestNewServiceDefaults(t *testing.T) {
	svc := NewService(NewMemoryStore(), 0, nil)
	if svc.limit != DefaultTokens {
		t.Fatalf("expected default limit %d, got %d", DefaultTokens, svc.limit)
	}
	if svc.loc != time.UTC {
		t.Fatalf("expected UTC, got %v", svc.loc)
	}
}

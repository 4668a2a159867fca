// README: Monthly assistant quota per caller.
package aiusage

import (
	"context"
	"errors"
)

// ErrInsufficientTokens is returned when a user has no tokens remaining for the current month.
var ErrInsufficientTokens = errors.New("insufficient tokens")

// DefaultTokens is the number of assistant calls granted per month.
const DefaultTokens = 100

// Ledger deducts one token for uid in month ("2006-01"), starting a fresh
// allowance of limit tokens when month is newer than the stored one.
type Ledger interface {
	UseToken(ctx context.Context, uid, month string, limit int) error
}

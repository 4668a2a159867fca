// README: Checkout turns a live route session into a submitted booking.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ridebook/internal/modules/booking"
	"ridebook/internal/modules/pricing"
	"ridebook/internal/modules/route"
)

// Submitter accepts an assembled booking. booking.Service submits locally,
// booking.Client to a remote backend.
type Submitter interface {
	Submit(ctx context.Context, p booking.Payload) (*booking.Booking, error)
}

// TierSource resolves the selected vehicle tier.
type TierSource interface {
	Tier(ctx context.Context, id int) (pricing.Tier, error)
}

type CheckoutRequest struct {
	TierID    *int
	User      *booking.User
	PickupAt  string
	DropoffAt string
}

type Checkout struct {
	tiers     TierSource
	assembler *booking.Assembler
	submitter Submitter
	settle    time.Duration
	log       *zap.Logger
}

// NewCheckout builds a checkout. When settle is positive, lookups still in
// flight are given that long to resolve before the route is validated.
func NewCheckout(tiers TierSource, assembler *booking.Assembler, submitter Submitter, settle time.Duration, log *zap.Logger) *Checkout {
	if log == nil {
		log = zap.NewNop()
	}
	return &Checkout{tiers: tiers, assembler: assembler, submitter: submitter, settle: settle, log: log}
}

// Run validates the session's current route and submits it. On success the
// session is reset. On any failure the session and the request are left as
// they were so the caller can fix the input or simply retry.
func (c *Checkout) Run(ctx context.Context, s *route.Session, req CheckoutRequest) (*booking.Booking, error) {
	st := c.currentState(ctx, s)

	tier, err := c.resolveTier(ctx, req.TierID)
	if err != nil {
		return nil, err
	}

	payload, err := c.assembler.Assemble(booking.Input{
		Route:     st,
		Tier:      tier,
		User:      req.User,
		PickupAt:  req.PickupAt,
		DropoffAt: req.DropoffAt,
	})
	if err != nil {
		return nil, err
	}

	b, err := c.submitter.Submit(ctx, payload)
	if err != nil {
		c.log.Warn("booking submission failed",
			zap.Int64("user_id", payload.UserID),
			zap.Bool("retryable", booking.IsRetryable(err)),
			zap.Error(err),
		)
		return nil, err
	}

	s.Reset()
	return b, nil
}

func (c *Checkout) currentState(ctx context.Context, s *route.Session) route.State {
	if c.settle <= 0 {
		return s.State()
	}
	settleCtx, cancel := context.WithTimeout(ctx, c.settle)
	defer cancel()
	st, _ := s.Settle(settleCtx)
	return st
}

// resolveTier returns nil for an absent or unknown tier so the assembler
// reports it in its usual order.
func (c *Checkout) resolveTier(ctx context.Context, id *int) (*pricing.Tier, error) {
	if id == nil {
		return nil, nil
	}
	t, err := c.tiers.Tier(ctx, *id)
	if errors.Is(err, pricing.ErrTierNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load tier %d: %w", *id, err)
	}
	return &t, nil
}

// README: Booking service validates submissions, stores bookings and drives
// the status lifecycle.
package booking

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"errors"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"ridebook/internal/modules/pricing"
	"ridebook/internal/types"
)

var (
	ErrNotFound     = errors.New("booking not found")
	ErrInvalidState = errors.New("invalid status transition")
	ErrConflict     = errors.New("booking status conflict")
	ErrForbidden    = errors.New("booking belongs to another user")
	ErrBadRequest   = errors.New("bad request")
)

// PriceTolerance is how far a submitted estimate may drift from the
// recomputed price.
const PriceTolerance = 0.01

const refCodeAttempts = 3

// TierLookup resolves the vehicle tier named by a payload.
type TierLookup interface {
	Tier(ctx context.Context, id int) (pricing.Tier, error)
}

type Service struct {
	store  Repository
	tiers  TierLookup
	engine pricing.Engine
	events Publisher
	log    *zap.Logger
	loc    *time.Location
	now    func() time.Time
}

func NewService(store Repository, tiers TierLookup, engine pricing.Engine, events Publisher, log *zap.Logger, loc *time.Location) *Service {
	if engine == nil {
		engine = pricing.NewFlatRate()
	}
	if events == nil {
		events = NopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{store: store, tiers: tiers, engine: engine, events: events, log: log, loc: loc, now: time.Now}
}

// Submit validates p, recomputes its price from the catalog and stores a new
// PENDING booking.
func (s *Service) Submit(ctx context.Context, p Payload) (*Booking, error) {
	b, err := s.validate(ctx, p)
	if err != nil {
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		b.RefCode = newRefCode()
		err = s.store.Create(ctx, b)
		if !errors.Is(err, ErrDuplicateRef) || attempt+1 >= refCodeAttempts {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	s.log.Info("booking created",
		zap.Int64("booking_id", b.ID),
		zap.String("ref_code", b.RefCode),
		zap.Int64("user_id", b.UserID),
		zap.Float64("estimated_price", b.EstimatedPrice),
	)
	s.publish(ctx, EventBookingCreated, b.ID, b)
	return b, nil
}

func (s *Service) validate(ctx context.Context, p Payload) (*Booking, error) {
	if p.UserID <= 0 {
		return nil, invalid(KindUnauthenticated)
	}
	if strings.TrimSpace(p.FromAddress) == "" || strings.TrimSpace(p.ToAddress) == "" {
		return nil, invalid(KindIncompleteRoute)
	}
	from := types.Coordinate{Lat: p.FromLat, Lng: p.FromLng}
	to := types.Coordinate{Lat: p.ToLat, Lng: p.ToLng}
	if err := from.Validate(); err != nil {
		return nil, invalidf(KindInvalidPayload, "from: %v", err)
	}
	if err := to.Validate(); err != nil {
		return nil, invalidf(KindInvalidPayload, "to: %v", err)
	}
	if p.InitialVehicleID == nil {
		return nil, invalid(KindNoVehicleSelected)
	}
	tier, err := s.tiers.Tier(ctx, *p.InitialVehicleID)
	if errors.Is(err, pricing.ErrTierNotFound) {
		return nil, invalidf(KindNoVehicleSelected, "unknown vehicle %d", *p.InitialVehicleID)
	}
	if err != nil {
		return nil, err
	}
	if !usableDistance(p.DistanceKm) {
		return nil, invalid(KindDistanceUnresolved)
	}
	pickup, err := ParseTime(p.PickupAt, s.loc)
	if err != nil {
		return nil, invalidf(KindInvalidTimeRange, "pickup: %v", err)
	}
	dropoff, err := ParseTime(p.DropoffAt, s.loc)
	if err != nil {
		return nil, invalidf(KindInvalidTimeRange, "drop-off: %v", err)
	}
	if dropoff.Before(pickup) {
		return nil, invalid(KindInvalidTimeRange)
	}

	km := p.DistanceKm
	quote := s.engine.Quote(&tier, &km)
	if quote == nil {
		return nil, invalid(KindUnpriceable)
	}
	if math.Abs(quote.Total-p.EstimatedPrice) > PriceTolerance {
		return nil, invalidf(KindPriceMismatch, "expected %.2f, got %.2f", quote.Total, p.EstimatedPrice)
	}

	now := s.now().UTC()
	vehicleID := tier.ID
	return &Booking{
		Status:         StatusPending,
		Role:           ParseRole(string(p.Role)),
		UserID:         p.UserID,
		FromAddress:    p.FromAddress,
		FromLat:        p.FromLat,
		FromLng:        p.FromLng,
		ToAddress:      p.ToAddress,
		ToLat:          p.ToLat,
		ToLng:          p.ToLng,
		RoutePolyline:  p.RoutePolyline,
		DistanceKm:     km,
		EstimatedPrice: quote.Total,
		FinalPrice:     quote.Total,
		PickupAt:       pickup.UTC(),
		DropoffAt:      dropoff.UTC(),
		VehicleID:      &vehicleID,
		CreatedAt:      now,
	}, nil
}

// Get returns a booking visible to caller: their own, or any for ADMIN.
func (s *Service) Get(ctx context.Context, id int64, caller User) (*Booking, error) {
	b, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if caller.Role != RoleAdmin && b.UserID != caller.ID {
		return nil, ErrForbidden
	}
	return b, nil
}

// ListByUser pages through userID's bookings, newest first.
func (s *Service) ListByUser(ctx context.Context, caller User, userID int64, page, pageSize int) (ListResult, error) {
	if userID <= 0 {
		return ListResult{}, ErrBadRequest
	}
	if caller.Role != RoleAdmin && caller.ID != userID {
		return ListResult{}, ErrForbidden
	}
	page, pageSize = normalizePage(page, pageSize)
	data, total, err := s.store.ListByUser(ctx, userID, (page-1)*pageSize, pageSize)
	if err != nil {
		return ListResult{}, err
	}
	if data == nil {
		data = []Booking{}
	}
	return ListResult{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages(total, pageSize),
		Data:       data,
	}, nil
}

// UpdateStatus moves a booking along its lifecycle. Customers may only
// cancel their own bookings; drivers and admins may apply any allowed
// transition.
func (s *Service) UpdateStatus(ctx context.Context, id int64, to Status, caller User) (*Booking, error) {
	if !to.Valid() {
		return nil, ErrBadRequest
	}
	b, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	staff := caller.Role == RoleAdmin || caller.Role == RoleDriver
	if !staff && (b.UserID != caller.ID || to != StatusCancelled) {
		return nil, ErrForbidden
	}
	if !CanTransition(b.Status, to) {
		return nil, ErrInvalidState
	}
	ok, err := s.store.UpdateStatus(ctx, b.ID, b.Status, to, b.StatusVersion)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}

	s.log.Info("booking status changed",
		zap.Int64("booking_id", b.ID),
		zap.String("from", string(b.Status)),
		zap.String("to", string(to)),
	)
	s.publish(ctx, EventBookingStatusChanged, b.ID, StatusChanged{
		BookingID: b.ID,
		RefCode:   b.RefCode,
		From:      b.Status,
		To:        to,
	})
	return s.store.Get(ctx, b.ID)
}

// publish never fails the caller; the booking is already stored.
func (s *Service) publish(ctx context.Context, eventType string, id int64, data any) {
	ev, err := NewCloudEvent(eventType, subjectOf(id), data)
	if err == nil {
		err = s.events.Publish(ctx, ev)
	}
	if err != nil {
		s.log.Warn("publish booking event failed",
			zap.String("type", eventType),
			zap.Int64("booking_id", id),
			zap.Error(err),
		)
	}
}

var refEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// newRefCode returns "BK-" and 8 upper-case base32 characters.
func newRefCode() string {
	var b [5]byte
	_, _ = rand.Read(b[:])
	return "BK-" + refEncoding.EncodeToString(b[:])
}

// README: Assistant reads a free-text ride request with an IntentParser and
// resolves the places it names through the GeoProvider.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"ridebook/internal/ai"
	"ridebook/internal/maps"
	"ridebook/internal/modules/booking"
	"ridebook/internal/modules/pricing"
	"ridebook/internal/types"
)

// TierLister lists the selectable tiers.
type TierLister interface {
	Tiers(ctx context.Context) ([]pricing.Tier, error)
}

// Suggestion is a pre-filled booking form. Origin and Destination are meant
// to be applied as PlaceSelected events.
type Suggestion struct {
	Intent         string      `json:"intent"`
	Reply          string      `json:"reply"`
	Origin         *maps.Place `json:"origin,omitempty"`
	Destination    *maps.Place `json:"destination,omitempty"`
	PickupAt       string      `json:"pickupAt,omitempty"`
	PassengerCount int         `json:"passengerCount"`
	TierID         *int        `json:"tierId,omitempty"`
}

type Assistant struct {
	parser ai.IntentParser
	geo    maps.GeoProvider
	tiers  TierLister
	loc    *time.Location
	now    func() time.Time
	log    *zap.Logger
}

func NewAssistant(parser ai.IntentParser, geo maps.GeoProvider, tiers TierLister, loc *time.Location, log *zap.Logger) *Assistant {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Assistant{parser: parser, geo: geo, tiers: tiers, loc: loc, now: time.Now, log: log}
}

// Assist parses message. position is the caller's current location, if known.
func (a *Assistant) Assist(ctx context.Context, message string, position *types.Coordinate) (*Suggestion, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, booking.ErrBadRequest
	}

	now := a.now().In(a.loc)
	userLocation := ""
	if position != nil {
		userLocation = position.String()
	}
	intent, err := a.parser.ParseBookingIntent(ctx, message, map[string]string{
		"current_time":  now.Format(time.RFC3339),
		"timezone":      a.loc.String(),
		"user_location": userLocation,
	})
	if err != nil {
		return nil, fmt.Errorf("ai error: %w", err)
	}
	if intent == nil {
		return nil, ai.ErrEmptyResponse
	}

	out := &Suggestion{
		Intent:         intent.Intent,
		Reply:          intent.Reply,
		PassengerCount: intent.PassengerCount,
	}
	if intent.Intent != ai.IntentBooking {
		return out, nil
	}
	if intent.Destination == nil {
		return clarify(out, "Where would you like to go?"), nil
	}
	if intent.PickupTime == nil {
		return clarify(out, "What time should we pick you up?"), nil
	}

	if pickup, err := time.Parse(time.RFC3339, *intent.PickupTime); err == nil {
		pickup = pickup.In(a.loc)
		if pickup.Before(now.Add(-time.Minute)) {
			return clarify(out, fmt.Sprintf("That time has already passed. Did you mean tomorrow (%s) at %s?",
				pickup.Add(24*time.Hour).Format("1/02"), pickup.Format("15:04"))), nil
		}
		out.PickupAt = booking.FormatTime(pickup)
	} else {
		a.log.Debug("unparsable pickup time from model", zap.String("pickup_time", *intent.PickupTime))
		return clarify(out, "What time should we pick you up?"), nil
	}

	dest, err := a.geo.ForwardGeocode(ctx, *intent.Destination)
	if errors.Is(err, maps.ErrNoResult) {
		return clarify(out, fmt.Sprintf("I couldn't find %q. Could you give a more specific place?", *intent.Destination)), nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve destination: %w", err)
	}
	out.Destination = &dest

	origin, err := a.resolveOrigin(ctx, intent.Origin, position)
	if errors.Is(err, maps.ErrNoResult) {
		return clarify(out, "Where should we pick you up?"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve origin: %w", err)
	}
	out.Origin = origin

	if a.tiers != nil {
		tiers, err := a.tiers.Tiers(ctx)
		if err != nil {
			return nil, err
		}
		out.TierID = resolveTier(tiers, intent.PassengerCount)
	}
	return out, nil
}

// resolveOrigin geocodes a named origin, or falls back to the caller's
// position with its reverse-geocoded address.
func (a *Assistant) resolveOrigin(ctx context.Context, named *string, position *types.Coordinate) (*maps.Place, error) {
	if named != nil && !strings.EqualFold(*named, ai.CurrentLocation) {
		p, err := a.geo.ForwardGeocode(ctx, *named)
		if err != nil {
			return nil, err
		}
		return &p, nil
	}
	if position == nil {
		return nil, maps.ErrNoResult
	}
	addr, err := a.geo.ReverseGeocode(ctx, *position)
	if err != nil || addr == "" {
		addr = position.String()
	}
	return &maps.Place{Coord: *position, Address: addr}, nil
}

// resolveTier picks the cheapest tier with room for every passenger, or nil
// when none fits.
func resolveTier(tiers []pricing.Tier, passengers int) *int {
	var best *pricing.Tier
	for i := range tiers {
		t := &tiers[i]
		if t.Capacity < passengers {
			continue
		}
		if best == nil || t.RatePerKm < best.RatePerKm {
			best = t
		}
	}
	if best == nil {
		return nil
	}
	id := best.ID
	return &id
}

func clarify(s *Suggestion, reply string) *Suggestion {
	s.Intent = ai.IntentClarification
	s.Reply = reply
	return s
}

// README: Assembler turns a resolved route and a tier choice into a booking
// payload, failing closed on anything incomplete.
package booking

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	gmaps "googlemaps.github.io/maps"

	"ridebook/internal/modules/pricing"
	"ridebook/internal/modules/route"
)

// ErrValidation matches every *ValidationError with errors.Is.
var ErrValidation = errors.New("booking validation failed")

type ValidationKind string

const (
	KindUnauthenticated    ValidationKind = "UNAUTHENTICATED"
	KindIncompleteRoute    ValidationKind = "INCOMPLETE_ROUTE"
	KindNoVehicleSelected  ValidationKind = "NO_VEHICLE_SELECTED"
	KindDistanceUnresolved ValidationKind = "DISTANCE_UNRESOLVED"
	KindInvalidTimeRange   ValidationKind = "INVALID_TIME_RANGE"
	KindUnpriceable        ValidationKind = "UNPRICEABLE"
	KindPriceMismatch      ValidationKind = "PRICE_MISMATCH"
	KindInvalidPayload     ValidationKind = "INVALID_PAYLOAD"
)

var validationMessages = map[ValidationKind]string{
	KindUnauthenticated:    "please sign in before booking",
	KindIncompleteRoute:    "please choose both a pickup and a destination",
	KindNoVehicleSelected:  "please choose a vehicle",
	KindDistanceUnresolved: "the route distance is not available yet",
	KindInvalidTimeRange:   "the drop-off time must not be before the pickup time",
	KindUnpriceable:        "this distance cannot be priced for the selected vehicle",
	KindPriceMismatch:      "the estimated price does not match the current tariff",
	KindInvalidPayload:     "the booking request is malformed",
}

type ValidationError struct {
	Kind    ValidationKind
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(kind ValidationKind) *ValidationError {
	return &ValidationError{Kind: kind, Message: validationMessages[kind]}
}

func invalidf(kind ValidationKind, format string, args ...any) *ValidationError {
	return &ValidationError{Kind: kind, Message: validationMessages[kind] + ": " + fmt.Sprintf(format, args...)}
}

// KindOf returns the validation kind of err, or "" when err is not a
// validation failure.
func KindOf(err error) ValidationKind {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Kind
	}
	return ""
}

// isoLayout matches the millisecond UTC form browsers produce.
const isoLayout = "2006-01-02T15:04:05.000Z07:00"

var localLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
}

// usableDistance reports whether km is a finite, non-negative distance.
func usableDistance(km float64) bool {
	return km >= 0 && !math.IsInf(km, 1)
}

// ParseTime accepts RFC 3339 timestamps, and zone-less datetime-local values
// which are read in loc.
func ParseTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty time")
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", s)
}

// FormatTime renders t as ISO-8601 in UTC.
func FormatTime(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

// Input is everything the assembler reads.
type Input struct {
	Route     route.State
	Tier      *pricing.Tier
	User      *User
	PickupAt  string
	DropoffAt string
}

type Assembler struct {
	engine pricing.Engine
	loc    *time.Location
}

func NewAssembler(engine pricing.Engine, loc *time.Location) *Assembler {
	if engine == nil {
		engine = pricing.NewFlatRate()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Assembler{engine: engine, loc: loc}
}

// Assemble validates in, in a fixed order, and builds the payload with a
// freshly computed price.
func (a *Assembler) Assemble(in Input) (Payload, error) {
	if in.User == nil || in.User.ID <= 0 {
		return Payload{}, invalid(KindUnauthenticated)
	}

	st := in.Route
	if st.Origin == nil || st.Destination == nil || blank(st.OriginAddress) || blank(st.DestinationAddress) {
		return Payload{}, invalid(KindIncompleteRoute)
	}

	if in.Tier == nil {
		return Payload{}, invalid(KindNoVehicleSelected)
	}

	if st.DistanceKm == nil || !usableDistance(*st.DistanceKm) {
		return Payload{}, invalid(KindDistanceUnresolved)
	}

	pickup, dropoff, err := a.timeRange(in.PickupAt, in.DropoffAt)
	if err != nil {
		return Payload{}, err
	}

	quote := a.engine.Quote(in.Tier, st.DistanceKm)
	if quote == nil {
		return Payload{}, invalid(KindUnpriceable)
	}

	role := in.User.Role
	if role == "" {
		role = RoleCustomer
	}
	tierID := in.Tier.ID

	return Payload{
		Role:             role,
		UserID:           in.User.ID,
		FromAddress:      *st.OriginAddress,
		FromLat:          st.Origin.Lat,
		FromLng:          st.Origin.Lng,
		ToAddress:        *st.DestinationAddress,
		ToLat:            st.Destination.Lat,
		ToLng:            st.Destination.Lng,
		RoutePolyline:    encodePath(st),
		DistanceKm:       *st.DistanceKm,
		EstimatedPrice:   quote.Total,
		PickupAt:         FormatTime(pickup),
		DropoffAt:        FormatTime(dropoff),
		InitialVehicleID: &tierID,
	}, nil
}

func (a *Assembler) timeRange(pickupAt, dropoffAt string) (time.Time, time.Time, error) {
	pickup, err := ParseTime(pickupAt, a.loc)
	if err != nil {
		return time.Time{}, time.Time{}, invalidf(KindInvalidTimeRange, "pickup: %v", err)
	}
	dropoff, err := ParseTime(dropoffAt, a.loc)
	if err != nil {
		return time.Time{}, time.Time{}, invalidf(KindInvalidTimeRange, "drop-off: %v", err)
	}
	if dropoff.Before(pickup) {
		return time.Time{}, time.Time{}, invalid(KindInvalidTimeRange)
	}
	return pickup, dropoff, nil
}

func encodePath(st route.State) *string {
	if len(st.RoutePath) == 0 {
		return nil
	}
	path := make([]gmaps.LatLng, 0, len(st.RoutePath))
	for _, c := range st.RoutePath {
		path = append(path, gmaps.LatLng{Lat: c.Lat, Lng: c.Lng})
	}
	enc := gmaps.Encode(path)
	return &enc
}

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

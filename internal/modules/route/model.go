// README: Route state (pickup/destination pair) and the events that edit it.
package route

import (
	"errors"
	"fmt"

	"ridebook/internal/types"
)

var ErrInvalidSlot = errors.New("invalid slot")

type Slot string

const (
	SlotOrigin      Slot = "origin"
	SlotDestination Slot = "destination"
)

func ParseSlot(v string) (Slot, error) {
	switch Slot(v) {
	case SlotOrigin, SlotDestination:
		return Slot(v), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSlot, v)
}

// Pending flags a field whose lookup has been dispatched but not resolved.
type Pending struct {
	OriginAddress      bool `json:"originAddress"`
	DestinationAddress bool `json:"destinationAddress"`
	Distance           bool `json:"distance"`
}

// State is the reconciled route. Values are treated as immutable: every
// transition returns a new State and never writes through the pointers of
// the previous one.
type State struct {
	Origin             *types.Coordinate  `json:"origin"`
	OriginAddress      *string            `json:"originAddress"`
	Destination        *types.Coordinate  `json:"destination"`
	DestinationAddress *string            `json:"destinationAddress"`
	DistanceKm         *float64           `json:"distanceKm"`
	RoutePath          []types.Coordinate `json:"routePath"`
	Pending            Pending            `json:"pending"`

	// seq issues lookup tokens; the *Seq fields hold the token each slot
	// currently expects.
	seq            uint64
	originSeq      uint64
	destinationSeq uint64
	distanceSeq    uint64
}

func (s State) Coord(slot Slot) *types.Coordinate {
	if slot == SlotOrigin {
		return s.Origin
	}
	return s.Destination
}

func (s State) Address(slot Slot) *string {
	if slot == SlotOrigin {
		return s.OriginAddress
	}
	return s.DestinationAddress
}

// Complete reports whether both endpoints and their addresses are known.
func (s State) Complete() bool {
	return s.Origin != nil && s.Destination != nil &&
		s.OriginAddress != nil && *s.OriginAddress != "" &&
		s.DestinationAddress != nil && *s.DestinationAddress != ""
}

// Event is one user interaction with the map.
type Event interface {
	target() Slot
}

// PointSelected is a plain map click. It only fills an empty slot.
type PointSelected struct {
	Slot  Slot
	Coord types.Coordinate
}

// PointDragged moves a marker; it always overwrites the slot.
type PointDragged struct {
	Slot  Slot
	Coord types.Coordinate
}

// PlaceSelected comes from a search result and carries its own address.
type PlaceSelected struct {
	Slot             Slot
	Coord            types.Coordinate
	FormattedAddress string
}

func (e PointSelected) target() Slot { return e.Slot }
func (e PointDragged) target() Slot  { return e.Slot }
func (e PlaceSelected) target() Slot { return e.Slot }

// AddressLookup asks for the reverse geocode of a slot's coordinate.
type AddressLookup struct {
	Slot  Slot
	Coord types.Coordinate
	Token uint64
}

// DistanceLookup asks for the travel distance of the current pair.
type DistanceLookup struct {
	Origin      types.Coordinate
	Destination types.Coordinate
	Token       uint64
}

// Lookups lists the asynchronous work a transition requires.
type Lookups struct {
	Address  *AddressLookup
	Distance *DistanceLookup
}

func (l Lookups) Empty() bool {
	return l.Address == nil && l.Distance == nil
}

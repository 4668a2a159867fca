package route

import (
	"math"
	"strings"

	"ridebook/internal/types"
)

// Apply folds one event into s. The returned state already reflects the new
// coordinates; Lookups lists the reverse geocode and distance requests the
// caller must run and feed back through ResolveAddress / ResolveDistance.
func Apply(s State, ev Event) (State, Lookups) {
	switch e := ev.(type) {
	case PointSelected:
		if !validSlot(e.Slot) || s.Coord(e.Slot) != nil {
			return s, Lookups{}
		}
		return s.move(e.Slot, e.Coord, "")
	case PointDragged:
		if !validSlot(e.Slot) {
			return s, Lookups{}
		}
		if cur := s.Coord(e.Slot); cur != nil && *cur == e.Coord {
			return s, Lookups{}
		}
		return s.move(e.Slot, e.Coord, "")
	case PlaceSelected:
		if !validSlot(e.Slot) {
			return s, Lookups{}
		}
		return s.move(e.Slot, e.Coord, strings.TrimSpace(e.FormattedAddress))
	}
	return s, Lookups{}
}

// Click places a point in the first empty slot, origin first. Once both
// slots are filled clicks are ignored; markers must be dragged instead.
func Click(s State, c types.Coordinate) (State, Lookups) {
	switch {
	case s.Origin == nil:
		return Apply(s, PointSelected{Slot: SlotOrigin, Coord: c})
	case s.Destination == nil:
		return Apply(s, PointSelected{Slot: SlotDestination, Coord: c})
	}
	return s, Lookups{}
}

// ResolveAddress applies a reverse-geocode result. Results for a superseded
// token are dropped. A failed or empty lookup falls back to the coordinate
// itself so a set point always has a displayable address.
func ResolveAddress(s State, l AddressLookup, address string, err error) State {
	if l.Token == 0 || !validSlot(l.Slot) || s.slotSeq(l.Slot) != l.Token {
		return s
	}
	address = strings.TrimSpace(address)
	if err != nil || address == "" {
		address = l.Coord.String()
	}
	if l.Slot == SlotOrigin {
		s.OriginAddress = &address
		s.Pending.OriginAddress = false
	} else {
		s.DestinationAddress = &address
		s.Pending.DestinationAddress = false
	}
	return s
}

// ResolveDistance applies a distance result in meters. Results for a
// superseded token are dropped; failures clear the distance.
func ResolveDistance(s State, l DistanceLookup, meters float64, err error) State {
	if l.Token == 0 || s.distanceSeq != l.Token {
		return s
	}
	s.Pending.Distance = false
	if err != nil || meters < 0 || math.IsNaN(meters) || math.IsInf(meters, 0) {
		s.DistanceKm = nil
		return s
	}
	km := meters / 1000
	s.DistanceKm = &km
	return s
}

// Recompute discards the current distance and, when both endpoints are set,
// requests a fresh one. Used to retry after a failed lookup.
func Recompute(s State) (State, *DistanceLookup) {
	return s.invalidateDistance()
}

// Reset empties the route. The token counter survives so lookups issued
// before the reset can never match a slot again.
func Reset(s State) State {
	return State{seq: s.seq}
}

func (s State) move(slot Slot, c types.Coordinate, address string) (State, Lookups) {
	var out Lookups
	prev := s.Coord(slot)
	changed := prev == nil || *prev != c

	coord := c
	token := s.next()

	var addr *string
	pending := address == ""
	if pending {
		out.Address = &AddressLookup{Slot: slot, Coord: c, Token: token}
	} else {
		addr = &address
	}

	if slot == SlotOrigin {
		s.Origin = &coord
		s.OriginAddress = addr
		s.originSeq = token
		s.Pending.OriginAddress = pending
	} else {
		s.Destination = &coord
		s.DestinationAddress = addr
		s.destinationSeq = token
		s.Pending.DestinationAddress = pending
	}

	if changed {
		s, out.Distance = s.invalidateDistance()
	}
	s.RoutePath = routePath(s)
	return s, out
}

func (s State) invalidateDistance() (State, *DistanceLookup) {
	s.DistanceKm = nil
	s.distanceSeq = s.next()
	if s.Origin == nil || s.Destination == nil {
		s.Pending.Distance = false
		return s, nil
	}
	s.Pending.Distance = true
	return s, &DistanceLookup{Origin: *s.Origin, Destination: *s.Destination, Token: s.distanceSeq}
}

// next advances the token counter. s is a copy, so callers must keep the
// returned state for the increment to stick.
func (s *State) next() uint64 {
	s.seq++
	return s.seq
}

func (s State) slotSeq(slot Slot) uint64 {
	if slot == SlotOrigin {
		return s.originSeq
	}
	return s.destinationSeq
}

func routePath(s State) []types.Coordinate {
	if s.Origin == nil || s.Destination == nil {
		return nil
	}
	return []types.Coordinate{*s.Origin, *s.Destination}
}

func validSlot(slot Slot) bool {
	return slot == SlotOrigin || slot == SlotDestination
}

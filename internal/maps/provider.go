// README: GeoProvider contract consumed by the route reconciliation core.
package maps

import (
	"context"
	"errors"

	"ridebook/internal/types"
)

var (
	ErrNoResult = errors.New("no geocoding result")
	ErrNoRoute  = errors.New("no route found")
)

// Place is a resolved location with its display address.
type Place struct {
	Coord   types.Coordinate `json:"coord"`
	Address string           `json:"address"`
	Name    string           `json:"name,omitempty"`
	PlaceID string           `json:"placeId,omitempty"`
}

// GeoProvider resolves addresses and travel distances. Implementations may fail
// or find nothing; "nothing" is reported as ErrNoResult / ErrNoRoute.
type GeoProvider interface {
	ReverseGeocode(ctx context.Context, c types.Coordinate) (string, error)
	ForwardGeocode(ctx context.Context, query string) (Place, error)
	// RouteDistance returns the travel distance in meters.
	RouteDistance(ctx context.Context, origin, destination types.Coordinate) (float64, error)
}

package maps

import (
	"context"

	"ridebook/internal/types"
)

// StraightLineProvider is an offline GeoProvider: distances are great-circle
// distances and no address lookups are available. Used when no Maps API key
// is configured and as the fallback leg of FallbackProvider.
type StraightLineProvider struct{}

func (StraightLineProvider) ReverseGeocode(context.Context, types.Coordinate) (string, error) {
	return "", ErrNoResult
}

func (StraightLineProvider) ForwardGeocode(context.Context, string) (Place, error) {
	return Place{}, ErrNoResult
}

func (StraightLineProvider) RouteDistance(_ context.Context, origin, destination types.Coordinate) (float64, error) {
	return HaversineKm(origin, destination) * 1000, nil
}

package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"

	"ridebook/internal/types"
)

// ReverseGeocode returns the formatted address of the best match for c.
func (p *GoogleProvider) ReverseGeocode(ctx context.Context, c types.Coordinate) (string, error) {
	results, err := p.client.ReverseGeocode(ctx, &maps.GeocodingRequest{
		LatLng:   &maps.LatLng{Lat: c.Lat, Lng: c.Lng},
		Language: p.language,
	})
	if err != nil {
		return "", fmt.Errorf("reverse geocode api error: %w", err)
	}
	for _, r := range results {
		if r.FormattedAddress != "" {
			return r.FormattedAddress, nil
		}
	}
	return "", ErrNoResult
}

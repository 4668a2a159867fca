package maps

import (
	"context"
	"fmt"
	"strings"

	"googlemaps.github.io/maps"

	"ridebook/internal/types"
)

// ForwardGeocode resolves a free-text query. The Geocoding API is tried first;
// landmark names it cannot resolve fall through to a Places text search.
func (p *GoogleProvider) ForwardGeocode(ctx context.Context, query string) (Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Place{}, ErrNoResult
	}

	results, err := p.client.Geocode(ctx, &maps.GeocodingRequest{
		Address:  query,
		Language: p.language,
		Region:   p.region,
	})
	if err != nil {
		return Place{}, fmt.Errorf("geocode api error: %w", err)
	}
	if len(results) > 0 {
		r := results[0]
		return Place{
			Coord:   types.Coordinate{Lat: r.Geometry.Location.Lat, Lng: r.Geometry.Location.Lng},
			Address: r.FormattedAddress,
			PlaceID: r.PlaceID,
		}, nil
	}

	return p.searchPlace(ctx, query)
}

func (p *GoogleProvider) searchPlace(ctx context.Context, query string) (Place, error) {
	resp, err := p.client.TextSearch(ctx, &maps.TextSearchRequest{
		Query:    query,
		Language: p.language,
		Region:   p.region,
	})
	if err != nil {
		return Place{}, fmt.Errorf("places api error: %w", err)
	}

	for _, result := range resp.Results {
		addr := result.FormattedAddress
		if addr == "" {
			addr = result.Name
		}
		if addr == "" {
			continue
		}
		return Place{
			Coord:   types.Coordinate{Lat: result.Geometry.Location.Lat, Lng: result.Geometry.Location.Lng},
			Address: addr,
			Name:    result.Name,
			PlaceID: result.PlaceID,
		}, nil
	}
	return Place{}, ErrNoResult
}

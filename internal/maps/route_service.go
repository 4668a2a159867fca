// README: Google Maps backed GeoProvider; distance via the Distance Matrix API.
package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"

	"ridebook/internal/types"
)

// googleClient is the subset of *maps.Client the provider uses.
type googleClient interface {
	DistanceMatrix(ctx context.Context, r *maps.DistanceMatrixRequest) (*maps.DistanceMatrixResponse, error)
	Geocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
	ReverseGeocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
	TextSearch(ctx context.Context, r *maps.TextSearchRequest) (maps.PlacesSearchResponse, error)
}

// GoogleProvider implements GeoProvider using Google Maps web services.
type GoogleProvider struct {
	client   googleClient
	language string
	region   string
}

// NewGoogleProvider creates a GoogleProvider with the given API Key.
// language and region bias geocoding results (e.g. "th", "TH").
func NewGoogleProvider(apiKey, language, region string) (*GoogleProvider, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &GoogleProvider{client: client, language: language, region: region}, nil
}

// RouteDistance returns the driving distance in meters between two points.
func (p *GoogleProvider) RouteDistance(ctx context.Context, origin, destination types.Coordinate) (float64, error) {
	r := &maps.DistanceMatrixRequest{
		Origins:      []string{origin.Query()},
		Destinations: []string{destination.Query()},
		Mode:         maps.TravelModeDriving,
		Language:     p.language,
	}

	resp, err := p.client.DistanceMatrix(ctx, r)
	if err != nil {
		return 0, fmt.Errorf("distance matrix api error: %w", err)
	}

	if resp == nil || len(resp.Rows) == 0 || len(resp.Rows[0].Elements) == 0 {
		return 0, ErrNoRoute
	}

	el := resp.Rows[0].Elements[0]
	if el == nil || el.Status != "OK" {
		return 0, ErrNoRoute
	}
	return float64(el.Distance.Meters), nil
}

package maps

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"ridebook/internal/types"
)

// FallbackProvider answers distance queries from primary and, when primary
// fails for any reason other than cancellation, from secondary. Address lookups
// are not retried: the route core already synthesizes an address from the
// coordinate.
type FallbackProvider struct {
	primary   GeoProvider
	secondary GeoProvider
	log       *zap.Logger
}

func NewFallbackProvider(primary, secondary GeoProvider, log *zap.Logger) *FallbackProvider {
	if log == nil {
		log = zap.NewNop()
	}
	return &FallbackProvider{primary: primary, secondary: secondary, log: log}
}

func (p *FallbackProvider) ReverseGeocode(ctx context.Context, c types.Coordinate) (string, error) {
	return p.primary.ReverseGeocode(ctx, c)
}

func (p *FallbackProvider) ForwardGeocode(ctx context.Context, query string) (Place, error) {
	return p.primary.ForwardGeocode(ctx, query)
}

func (p *FallbackProvider) RouteDistance(ctx context.Context, origin, destination types.Coordinate) (float64, error) {
	meters, err := p.primary.RouteDistance(ctx, origin, destination)
	if err == nil {
		return meters, nil
	}
	if errors.Is(err, context.Canceled) {
		return 0, err
	}
	p.log.Warn("route distance failed; using fallback",
		zap.Error(err),
		zap.String("origin", origin.String()),
		zap.String("destination", destination.String()),
	)
	return p.secondary.RouteDistance(ctx, origin, destination)
}

// README: Pricing service resolves tiers from the catalog and quotes them.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"math"
)

var ErrInvalidDistance = errors.New("invalid distance")

type Service struct {
	catalog Catalog
	engine  Engine
}

func NewService(catalog Catalog, engine Engine) *Service {
	if engine == nil {
		engine = NewFlatRate()
	}
	return &Service{catalog: catalog, engine: engine}
}

func (s *Service) Engine() Engine {
	return s.engine
}

func (s *Service) Tiers(ctx context.Context) ([]Tier, error) {
	return s.catalog.Tiers(ctx)
}

func (s *Service) Tier(ctx context.Context, id int) (Tier, error) {
	return s.catalog.Tier(ctx, id)
}

// Estimate quotes tier id over distanceKm. A nil quote with a nil error means
// the route cannot be priced yet (no distance, or outside every bracket).
func (s *Service) Estimate(ctx context.Context, tierID int, distanceKm *float64) (*Quote, error) {
	if distanceKm != nil && (math.IsNaN(*distanceKm) || math.IsInf(*distanceKm, 0)) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDistance, *distanceKm)
	}
	tier, err := s.catalog.Tier(ctx, tierID)
	if err != nil {
		return nil, err
	}
	return s.engine.Quote(&tier, distanceKm), nil
}

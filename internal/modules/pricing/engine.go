package pricing

import (
	"fmt"
	"math"
)

// Engine prices a tier over a distance. It returns nil when either input is
// missing or the distance cannot be priced.
type Engine interface {
	Quote(tier *Tier, distanceKm *float64) *Quote
}

// FlatRate charges RatePerKm per kilometre plus a fixed fee.
type FlatRate struct {
	Fee float64
}

func NewFlatRate() FlatRate {
	return FlatRate{Fee: ServiceFee}
}

func (e FlatRate) Quote(tier *Tier, distanceKm *float64) *Quote {
	if tier == nil || distanceKm == nil {
		return nil
	}
	km := *distanceKm
	return &Quote{
		TierID:     tier.ID,
		DistanceKm: km,
		RatePerKm:  tier.RatePerKm,
		ServiceFee: e.Fee,
		Total:      math.Max(0, tier.RatePerKm*km) + e.Fee,
	}
}

// Bracketed looks up the tier bracket containing the distance and charges its
// base price plus its per-km rate. Distances outside every bracket, including
// gaps between brackets, have no price.
type Bracketed struct{}

func (Bracketed) Quote(tier *Tier, distanceKm *float64) *Quote {
	if tier == nil || distanceKm == nil {
		return nil
	}
	km := *distanceKm
	for _, b := range tier.Brackets {
		if km < b.MinKm || km > b.MaxKm {
			continue
		}
		return &Quote{
			TierID:     tier.ID,
			DistanceKm: km,
			RatePerKm:  b.PricePerKm,
			ServiceFee: b.BasePrice,
			Total:      math.Max(0, b.PricePerKm*km) + b.BasePrice,
		}
	}
	return nil
}

// NewEngine returns the engine for a model name ("flat" or "bracketed").
func NewEngine(model string) (Engine, error) {
	switch model {
	case "", "flat":
		return NewFlatRate(), nil
	case "bracketed":
		return Bracketed{}, nil
	}
	return nil, fmt.Errorf("unknown pricing model %q", model)
}

package pricing

import (
	"context"
	"errors"
	"sort"
)

var ErrTierNotFound = errors.New("vehicle tier not found")

// Catalog lists the selectable vehicle tiers.
type Catalog interface {
	Tiers(ctx context.Context) ([]Tier, error)
	Tier(ctx context.Context, id int) (Tier, error)
}

// StaticCatalog serves a fixed tier list.
type StaticCatalog struct {
	tiers map[int]Tier
}

func NewStaticCatalog(tiers []Tier) *StaticCatalog {
	m := make(map[int]Tier, len(tiers))
	for _, t := range tiers {
		m[t.ID] = t
	}
	return &StaticCatalog{tiers: m}
}

// DefaultTiers is the built-in catalog used when no database is configured.
func DefaultTiers() []Tier {
	short := func(base, perKm float64) Bracket { return Bracket{MinKm: 0, MaxKm: 10, BasePrice: base, PricePerKm: perKm} }
	return []Tier{
		{ID: 1, DisplayName: "Honda", RatePerKm: 15, Capacity: 4, Brackets: []Bracket{
			short(100, 10),
			{MinKm: 11, MaxKm: 500, BasePrice: 200, PricePerKm: 8},
		}},
		{ID: 2, DisplayName: "Toyota", RatePerKm: 25, Capacity: 4, Brackets: []Bracket{
			short(120, 12),
			{MinKm: 11, MaxKm: 200, BasePrice: 220, PricePerKm: 9},
		}},
		{ID: 3, DisplayName: "Ten-wheeler", RatePerKm: 40, Capacity: 10, Brackets: []Bracket{
			short(120, 12),
			{MinKm: 11, MaxKm: 200, BasePrice: 220, PricePerKm: 9},
		}},
	}
}

func (c *StaticCatalog) Tiers(context.Context) ([]Tier, error) {
	out := make([]Tier, 0, len(c.tiers))
	for _, t := range c.tiers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (c *StaticCatalog) Tier(_ context.Context, id int) (Tier, error) {
	t, ok := c.tiers[id]
	if !ok {
		return Tier{}, ErrTierNotFound
	}
	return t, nil
}

// README: Vehicle tiers and price quotes.
package pricing

// ServiceFee is added to every quote, independent of distance.
const ServiceFee = 5.0

// Bracket prices distances inside [MinKm, MaxKm] (both inclusive) as
// BasePrice + PricePerKm*km.
type Bracket struct {
	MinKm      float64 `json:"minKm"`
	MaxKm      float64 `json:"maxKm"`
	BasePrice  float64 `json:"basePrice"`
	PricePerKm float64 `json:"pricePerKm"`
}

// Tier is a selectable vehicle class.
type Tier struct {
	ID          int       `json:"id"`
	DisplayName string    `json:"displayName"`
	RatePerKm   float64   `json:"ratePerKm"`
	Capacity    int       `json:"capacity"`
	Brackets    []Bracket `json:"brackets,omitempty"`
}

// Quote is derived from (tier, distance) and never stored.
type Quote struct {
	TierID     int     `json:"tierId"`
	DistanceKm float64 `json:"distanceKm"`
	RatePerKm  float64 `json:"ratePerKm"`
	ServiceFee float64 `json:"serviceFee"`
	Total      float64 `json:"total"`
}

package ai

// BookingIntent is the structured reading of a free-text ride request.
type BookingIntent struct {
	// Intent is "booking" once pickup, destination and time are all known,
	// "clarification" while something is missing and "chat" otherwise.
	Intent string `json:"intent"`

	// Origin is the pickup place as the user named it. Nil or
	// "Current Location" means the caller's own position.
	Origin *string `json:"origin,omitempty"`

	Destination *string `json:"destination,omitempty"`

	// PickupTime is RFC 3339 with offset.
	PickupTime *string `json:"pickup_time,omitempty"`

	PassengerCount int `json:"passenger_count"`

	// Reply is the short user-facing answer.
	Reply string `json:"reply"`
}

const (
	IntentBooking       = "booking"
	IntentClarification = "clarification"
	IntentChat          = "chat"

	CurrentLocation = "Current Location"
)

package ai

import (
	"context"
)

// IntentParser turns a user's message into a BookingIntent.
// currentContext carries per-request facts such as "current_time" and
// "user_location".
type IntentParser interface {
	ParseBookingIntent(ctx context.Context, userMessage string, currentContext map[string]string) (*BookingIntent, error)
}

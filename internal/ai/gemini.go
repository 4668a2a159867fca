package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

var ErrEmptyResponse = errors.New("no response candidates from Gemini")

// GeminiParser implements IntentParser with Google's Gemini models.
type GeminiParser struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGeminiParser initializes a Gemini client for apiKey.
func NewGeminiParser(ctx context.Context, apiKey, modelName string) (*GeminiParser, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}

	model := client.GenerativeModel(modelName)
	model.ResponseMIMEType = "application/json"
	model.SetTemperature(0.2)

	return &GeminiParser{
		client: client,
		model:  model,
	}, nil
}

func (p *GeminiParser) Close() error {
	return p.client.Close()
}

func (p *GeminiParser) ParseBookingIntent(ctx context.Context, userMessage string, currentContext map[string]string) (*BookingIntent, error) {
	fullPrompt := fmt.Sprintf("%s\n\nUser Message: %s", buildSystemPrompt(currentContext), userMessage)

	resp, err := p.model.GenerateContent(ctx, genai.Text(fullPrompt))
	if err != nil {
		return nil, fmt.Errorf("gemini generation error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, ErrEmptyResponse
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text.WriteString(string(txt))
		}
	}
	return decodeIntent(text.String())
}

// decodeIntent parses the model output and normalises missing fields.
func decodeIntent(raw string) (*BookingIntent, error) {
	cleaned := cleanJSONString(raw)

	var result BookingIntent
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w. Raw: %s", err, cleaned)
	}
	switch result.Intent {
	case IntentBooking, IntentClarification, IntentChat:
	default:
		result.Intent = IntentChat
	}
	if result.PassengerCount < 1 {
		result.PassengerCount = 1
	}
	result.Origin = nonBlank(result.Origin)
	result.Destination = nonBlank(result.Destination)
	result.PickupTime = nonBlank(result.PickupTime)
	if result.Intent == IntentBooking && (result.Destination == nil || result.PickupTime == nil) {
		result.Intent = IntentClarification
	}
	return &result, nil
}

func nonBlank(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" || strings.EqualFold(v, "null") {
		return nil
	}
	return &v
}

func buildSystemPrompt(ctxMap map[string]string) string {
	currentTime := ctxMap["current_time"]
	userLocation := ctxMap["user_location"]
	timezone := ctxMap["timezone"]

	if currentTime == "" {
		currentTime = "UNKNOWN_TIME"
	}
	if userLocation == "" {
		userLocation = "UNKNOWN_LOCATION"
	}
	if timezone == "" {
		timezone = "UTC"
	}

	return fmt.Sprintf(`Role: You read ride booking requests for a point-to-point ride service.
Context:
- Current System Time: %s
- Time Zone: %s
- User Location: %s

RULES:
1. Extract the pickup place into "origin" and the drop-off place into "destination",
   using the most specific name or address the user gave.
   - "from", "pick me up at", "leave" name the origin.
   - "to", "go to", "arrive" name the destination.
   - If the user does not name an origin, set "origin" to "Current Location".
2. Convert relative times ("tomorrow 9am", "in 30 minutes") into an absolute
   RFC 3339 "pickup_time" with the offset of the time zone above.
   - "now" or "asap" means the current system time.
   - A time without AM/PM that could be either is ambiguous. Ask.
3. "passenger_count" is the number of riders mentioned, default 1.
4. Set "intent" to "booking" only when destination and pickup_time are both known.
   Otherwise set "clarification" and ask for what is missing in "reply".
   Use "chat" for messages that are not ride requests.
5. "reply" is one or two short sentences in the user's language, with no markdown.

Output JSON Schema:
{
  "intent": "booking" | "clarification" | "chat",
  "origin": "string or null",
  "destination": "string or null",
  "pickup_time": "YYYY-MM-DDTHH:mm:ssZ07:00" | null,
  "passenger_count": integer,
  "reply": "string"
}
`, currentTime, timezone, userLocation)
}

// cleanJSONString removes markdown code fences if present.
func cleanJSONString(input string) string {
	input = strings.TrimSpace(input)
	input = strings.TrimPrefix(input, "```json")
	input = strings.TrimPrefix(input, "```")
	input = strings.TrimSuffix(input, "```")
	return strings.TrimSpace(input)
}

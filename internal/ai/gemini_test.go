package ai

import (
	"strings"
	"testing"
)

func TestDecodeIntent(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantIntent string
		wantDest   string
		wantOrigin string
		wantPax    int
		wantErr    bool
	}{
		{
			name:       "fenced booking",
			raw:        "```json\n{\"intent\":\"booking\",\"origin\":\"Siam Paragon\",\"destination\":\"Don Mueang Airport\",\"pickup_time\":\"2025-06-01T09:00:00+07:00\",\"passenger_count\":2,\"reply\":\"ok\"}\n```",
			wantIntent: IntentBooking,
			wantDest:   "Don Mueang Airport",
			wantOrigin: "Siam Paragon",
			wantPax:    2,
		},
		{
			name:       "booking without time is downgraded",
			raw:        `{"intent":"booking","destination":"Nonthaburi","pickup_time":"  ","reply":"when?"}`,
			wantIntent: IntentClarification,
			wantDest:   "Nonthaburi",
			wantPax:    1,
		},
		{
			name:       "literal null strings",
			raw:        `{"intent":"clarification","origin":"null","destination":null,"reply":"where to?"}`,
			wantIntent: IntentClarification,
			wantPax:    1,
		},
		{
			name:       "unknown intent becomes chat",
			raw:        `{"intent":"smalltalk","reply":"hi"}`,
			wantIntent: IntentChat,
			wantPax:    1,
		},
		{
			name:    "not json",
			raw:     "sorry, I cannot help",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeIntent(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("decodeIntent: %v", err)
			}
			if got.Intent != tt.wantIntent {
				t.Errorf("Intent = %q, want %q", got.Intent, tt.wantIntent)
			}
			if got.PassengerCount != tt.wantPax {
				t.Errorf("PassengerCount = %d, want %d", got.PassengerCount, tt.wantPax)
			}
			if deref(got.Destination) != tt.wantDest {
				t.Errorf("Destination = %q, want %q", deref(got.Destination), tt.wantDest)
			}
			if deref(got.Origin) != tt.wantOrigin {
				t.Errorf("Origin = %q, want %q", deref(got.Origin), tt.wantOrigin)
			}
		})
	}
}

func TestBuildSystemPrompt(t *testing.T) {
	p := buildSystemPrompt(map[string]string{"current_time": "2025-06-01T08:00:00+07:00", "timezone": "Asia/Bangkok"})
	for _, want := range []string{"2025-06-01T08:00:00+07:00", "Asia/Bangkok", "UNKNOWN_LOCATION", `"pickup_time"`} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

package maps

import (
	"go.uber.org/zap"
)

// NewProvider picks the provider for the given settings: Google when an API
// key is set, StraightLineProvider otherwise. With fallback enabled, failed
// Google distance lookups are answered with the great-circle distance.
func NewProvider(apiKey, language, region string, fallback bool, log *zap.Logger) (GeoProvider, error) {
	if apiKey == "" {
		return StraightLineProvider{}, nil
	}
	google, err := NewGoogleProvider(apiKey, language, region)
	if err != nil {
		return nil, err
	}
	if !fallback {
		return google, nil
	}
	return NewFallbackProvider(google, StraightLineProvider{}, log), nil
}

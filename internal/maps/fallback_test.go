package maps

import (
	"context"
	"errors"
	"testing"

	"ridebook/internal/types"
)

type failingProvider struct{ err error }

func (f failingProvider) ReverseGeocode(context.Context, types.Coordinate) (string, error) {
	return "", f.err
}

func (f failingProvider) ForwardGeocode(context.Context, string) (Place, error) {
	return Place{}, f.err
}

func (f failingProvider) RouteDistance(context.Context, types.Coordinate, types.Coordinate) (float64, error) {
	return 0, f.err
}

func TestFallbackProvider_RouteDistance(t *testing.T) {
	a := types.Coordinate{Lat: 13.75, Lng: 100.50}
	b := types.Coordinate{Lat: 13.80, Lng: 100.60}

	p := NewFallbackProvider(failingProvider{err: ErrNoRoute}, StraightLineProvider{}, nil)
	meters, err := p.RouteDistance(context.Background(), a, b)
	if err != nil {
		t.Fatalf("RouteDistance: %v", err)
	}
	if meters < 12000 || meters > 12300 {
		t.Errorf("meters = %f, want great-circle distance", meters)
	}

	p = NewFallbackProvider(failingProvider{err: context.Canceled}, StraightLineProvider{}, nil)
	if _, err := p.RouteDistance(context.Background(), a, b); !errors.Is(err, context.Canceled) {
		t.Errorf("expected cancellation to pass through, got %v", err)
	}
}

func TestFallbackProvider_AddressLookupsNotRetried(t *testing.T) {
	boom := errors.New("boom")
	p := NewFallbackProvider(failingProvider{err: boom}, StraightLineProvider{}, nil)
	if _, err := p.ReverseGeocode(context.Background(), types.Coordinate{}); !errors.Is(err, boom) {
		t.Errorf("ReverseGeocode err = %v, want primary error", err)
	}
}

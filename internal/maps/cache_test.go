package maps

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"ridebook/internal/types"
)

type countingProvider struct {
	reverse, forward, distance int
}

func (c *countingProvider) ReverseGeocode(context.Context, types.Coordinate) (string, error) {
	c.reverse++
	return "Bangkok", nil
}

func (c *countingProvider) ForwardGeocode(_ context.Context, q string) (Place, error) {
	c.forward++
	return Place{Coord: types.Coordinate{Lat: 13.8, Lng: 100.6}, Address: q}, nil
}

func (c *countingProvider) RouteDistance(context.Context, types.Coordinate, types.Coordinate) (float64, error) {
	c.distance++
	return 8000, nil
}

func TestCacheKeys(t *testing.T) {
	a := types.Coordinate{Lat: 13.750001, Lng: 100.500001}
	b := types.Coordinate{Lat: 13.750002, Lng: 100.500002}
	if reverseKey(a) != reverseKey(b) {
		t.Errorf("points within one cell should share a key: %s vs %s", reverseKey(a), reverseKey(b))
	}
	if !strings.HasPrefix(reverseKey(a), "geo:rev:") {
		t.Errorf("unexpected key %s", reverseKey(a))
	}
	if forwardKey("  Central   World ") != forwardKey("central world") {
		t.Error("forward keys should be case and whitespace insensitive")
	}
	o := types.Coordinate{Lat: 13.75, Lng: 100.5}
	d := types.Coordinate{Lat: 13.8, Lng: 100.6}
	if distanceKey(o, d) == distanceKey(d, o) {
		t.Error("distance key must keep direction")
	}
	if got := distanceKey(o, d); got != "geo:dist:13.75000,100.50000:13.80000,100.60000" {
		t.Errorf("distanceKey = %s", got)
	}
}

func TestCachedProvider_ReadThrough(t *testing.T) {
	addr := os.Getenv("RIDEBOOK_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("RIDEBOOK_TEST_REDIS_ADDR not set; skipping redis-backed cache test")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx := context.Background()
	if err := rdb.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	next := &countingProvider{}
	p := NewCachedProvider(next, rdb, time.Minute, nil)
	o := types.Coordinate{Lat: 13.75, Lng: 100.5}
	d := types.Coordinate{Lat: 13.8, Lng: 100.6}

	for i := 0; i < 3; i++ {
		if _, err := p.ReverseGeocode(ctx, o); err != nil {
			t.Fatalf("reverse: %v", err)
		}
		if _, err := p.ForwardGeocode(ctx, "Nonthaburi"); err != nil {
			t.Fatalf("forward: %v", err)
		}
		meters, err := p.RouteDistance(ctx, o, d)
		if err != nil || meters != 8000 {
			t.Fatalf("distance = %v, %v", meters, err)
		}
	}
	if next.reverse != 1 || next.forward != 1 || next.distance != 1 {
		t.Errorf("expected one upstream call each, got %+v", next)
	}
}

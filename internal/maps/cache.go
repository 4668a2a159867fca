// README: Redis read-through cache in front of a GeoProvider.
package maps

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mmcloughlin/geohash"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"ridebook/internal/types"
)

const (
	reverseKeyPrefix  = "geo:rev:%s"
	forwardKeyPrefix  = "geo:fwd:%s"
	distanceKeyPrefix = "geo:dist:%s:%s"
	// ~5m cells; neighbouring clicks inside one cell share an address.
	reverseGeohashChars = 9
)

// CachedProvider caches successful lookups of the wrapped provider in Redis.
// Misses and failures are never cached. Redis errors degrade to a direct call.
type CachedProvider struct {
	next  GeoProvider
	redis *redis.Client
	ttl   time.Duration
	log   *zap.Logger
}

func NewCachedProvider(next GeoProvider, rdb *redis.Client, ttl time.Duration, log *zap.Logger) *CachedProvider {
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedProvider{next: next, redis: rdb, ttl: ttl, log: log}
}

func (p *CachedProvider) ReverseGeocode(ctx context.Context, c types.Coordinate) (string, error) {
	key := reverseKey(c)
	if v, ok := p.get(ctx, key); ok {
		return v, nil
	}
	addr, err := p.next.ReverseGeocode(ctx, c)
	if err != nil {
		return "", err
	}
	p.set(ctx, key, addr)
	return addr, nil
}

func (p *CachedProvider) ForwardGeocode(ctx context.Context, query string) (Place, error) {
	key := forwardKey(query)
	if v, ok := p.get(ctx, key); ok {
		var place Place
		if err := json.Unmarshal([]byte(v), &place); err == nil {
			return place, nil
		}
	}
	place, err := p.next.ForwardGeocode(ctx, query)
	if err != nil {
		return Place{}, err
	}
	if b, err := json.Marshal(place); err == nil {
		p.set(ctx, key, string(b))
	}
	return place, nil
}

func (p *CachedProvider) RouteDistance(ctx context.Context, origin, destination types.Coordinate) (float64, error) {
	key := distanceKey(origin, destination)
	if v, ok := p.get(ctx, key); ok {
		if meters, err := strconv.ParseFloat(v, 64); err == nil {
			return meters, nil
		}
	}
	meters, err := p.next.RouteDistance(ctx, origin, destination)
	if err != nil {
		return 0, err
	}
	p.set(ctx, key, strconv.FormatFloat(meters, 'f', -1, 64))
	return meters, nil
}

func (p *CachedProvider) get(ctx context.Context, key string) (string, bool) {
	val, err := p.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		p.log.Warn("geo cache read failed", zap.String("key", key), zap.Error(err))
		return "", false
	}
	return val, true
}

func (p *CachedProvider) set(ctx context.Context, key, val string) {
	if err := p.redis.Set(ctx, key, val, p.ttl).Err(); err != nil {
		p.log.Warn("geo cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func reverseKey(c types.Coordinate) string {
	return fmt.Sprintf(reverseKeyPrefix, geohash.EncodeWithPrecision(c.Lat, c.Lng, reverseGeohashChars))
}

func forwardKey(query string) string {
	return fmt.Sprintf(forwardKeyPrefix, strings.ToLower(strings.Join(strings.Fields(query), " ")))
}

// Distances are keyed on the exact 5-decimal pair; direction matters for
// driving routes.
func distanceKey(origin, destination types.Coordinate) string {
	return fmt.Sprintf(distanceKeyPrefix, roundedQuery(origin), roundedQuery(destination))
}

func roundedQuery(c types.Coordinate) string {
	return strconv.FormatFloat(c.Lat, 'f', 5, 64) + "," + strconv.FormatFloat(c.Lng, 'f', 5, 64)
}

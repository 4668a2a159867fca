// README: Session runs the reducer against a GeoProvider, resolving lookups
// in the background and dropping results that arrive out of order.
package route

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"ridebook/internal/maps"
	"ridebook/internal/types"
)

const defaultLookupTimeout = 8 * time.Second

type Option func(*Session)

// WithLookupTimeout bounds each provider call; zero disables the bound.
func WithLookupTimeout(d time.Duration) Option {
	return func(s *Session) { s.timeout = d }
}

func WithLogger(log *zap.Logger) Option {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

// Session owns one route being edited. Events are applied synchronously under
// the session lock; lookups run on their own goroutines and are folded back
// with the token check of ResolveAddress / ResolveDistance.
type Session struct {
	geo     maps.GeoProvider
	timeout time.Duration
	log     *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	state    State
	inflight int
	changed  chan struct{}
	touched  time.Time
}

func NewSession(geo maps.GeoProvider, opts ...Option) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		geo:     geo,
		timeout: defaultLookupTimeout,
		log:     zap.NewNop(),
		ctx:     ctx,
		cancel:  cancel,
		changed: make(chan struct{}),
		touched: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Apply folds ev into the session and dispatches the lookups it requires.
// The returned state is the synchronous result: moved endpoints and pending
// flags are already visible.
func (s *Session) Apply(ev Event) State {
	s.mu.Lock()
	next, lookups := Apply(s.state, ev)
	st := s.commitLocked(next, lookups)
	s.mu.Unlock()

	s.dispatch(lookups)
	return st
}

// Click fills the first empty slot with c.
func (s *Session) Click(c types.Coordinate) State {
	s.mu.Lock()
	next, lookups := Click(s.state, c)
	st := s.commitLocked(next, lookups)
	s.mu.Unlock()

	s.dispatch(lookups)
	return st
}

// Recompute retries the distance lookup for the current pair.
func (s *Session) Recompute() State {
	s.mu.Lock()
	next, d := Recompute(s.state)
	lookups := Lookups{Distance: d}
	st := s.commitLocked(next, lookups)
	s.mu.Unlock()

	s.dispatch(lookups)
	return st
}

// Reset clears the route; in-flight lookups will be discarded on arrival.
func (s *Session) Reset() State {
	s.mu.Lock()
	st := s.commitLocked(Reset(s.state), Lookups{})
	s.mu.Unlock()
	return st
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Changed returns a channel closed on the next state change.
func (s *Session) Changed() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changed
}

// Settle blocks until no lookups are in flight, then returns the state.
func (s *Session) Settle(ctx context.Context) (State, error) {
	for {
		s.mu.Lock()
		if s.inflight == 0 {
			st := s.state
			s.mu.Unlock()
			return st, nil
		}
		ch := s.changed
		s.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return s.State(), ctx.Err()
		}
	}
}

// Touched reports the time of the last event or resolved lookup.
func (s *Session) Touched() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touched
}

// Close cancels outstanding provider calls.
func (s *Session) Close() {
	s.cancel()
}

func (s *Session) commitLocked(next State, lookups Lookups) State {
	s.state = next
	if lookups.Address != nil {
		s.inflight++
	}
	if lookups.Distance != nil {
		s.inflight++
	}
	s.notifyLocked()
	return next
}

func (s *Session) notifyLocked() {
	s.touched = time.Now()
	close(s.changed)
	s.changed = make(chan struct{})
}

func (s *Session) dispatch(l Lookups) {
	if l.Address != nil {
		go s.resolveAddress(*l.Address)
	}
	if l.Distance != nil {
		go s.resolveDistance(*l.Distance)
	}
}

func (s *Session) resolveAddress(l AddressLookup) {
	addr, err := s.reverseGeocode(l.Coord)
	if err != nil {
		s.log.Debug("reverse geocode failed; using coordinate",
			zap.String("slot", string(l.Slot)),
			zap.String("coord", l.Coord.String()),
			zap.Error(err),
		)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = ResolveAddress(s.state, l, addr, err)
	s.inflight--
	s.notifyLocked()
}

func (s *Session) resolveDistance(l DistanceLookup) {
	meters, err := s.routeDistance(l.Origin, l.Destination)
	if err != nil {
		s.log.Info("route distance unavailable",
			zap.String("origin", l.Origin.String()),
			zap.String("destination", l.Destination.String()),
			zap.Error(err),
		)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = ResolveDistance(s.state, l, meters, err)
	s.inflight--
	s.notifyLocked()
}

func (s *Session) reverseGeocode(c types.Coordinate) (string, error) {
	ctx, cancel := s.callContext()
	defer cancel()
	return guarded(ctx, func(ctx context.Context) (string, error) {
		return s.geo.ReverseGeocode(ctx, c)
	})
}

func (s *Session) routeDistance(origin, destination types.Coordinate) (float64, error) {
	ctx, cancel := s.callContext()
	defer cancel()
	return guarded(ctx, func(ctx context.Context) (float64, error) {
		return s.geo.RouteDistance(ctx, origin, destination)
	})
}

// guarded runs a provider call so that a panic, or a call that ignores its
// context, resolves as a failed lookup instead of stalling the session.
func guarded[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		var r result
		defer func() {
			if p := recover(); p != nil {
				r.err = fmt.Errorf("geo provider panic: %v", p)
			}
			ch <- r
		}()
		r.v, r.err = fn(ctx)
	}()

	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (s *Session) callContext() (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(s.ctx, s.timeout)
	}
	return context.WithCancel(s.ctx)
}

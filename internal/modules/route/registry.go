// README: In-memory registry of route sessions keyed by id, with idle expiry.
package route

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"ridebook/internal/maps"
)

var ErrSessionNotFound = errors.New("route session not found")

type Registry struct {
	geo  maps.GeoProvider
	ttl  time.Duration
	opts []Option
	log  *zap.Logger

	mu       sync.Mutex
	sessions map[string]*entry
}

type entry struct {
	owner   string
	session *Session
}

func (e *entry) allows(owner string) bool {
	return e.owner == "" || e.owner == owner
}

func NewRegistry(geo maps.GeoProvider, ttl time.Duration, log *zap.Logger, opts ...Option) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		geo:      geo,
		ttl:      ttl,
		opts:     append([]Option{WithLogger(log)}, opts...),
		log:      log,
		sessions: make(map[string]*entry),
	}
}

// Create opens a session for owner and returns its id. An empty owner makes
// an anonymous session reachable by anyone holding the id.
func (r *Registry) Create(owner string) (string, *Session) {
	id := newID()
	s := NewSession(r.geo, r.opts...)

	r.mu.Lock()
	r.sessions[id] = &entry{owner: owner, session: s}
	r.mu.Unlock()
	return id, s
}

// Get returns the session if it exists and owner may use it.
func (r *Registry) Get(id, owner string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok || !e.allows(owner) {
		return nil, ErrSessionNotFound
	}
	return e.session, nil
}

// Delete discards the session, e.g. after a successful checkout.
func (r *Registry) Delete(id, owner string) error {
	r.mu.Lock()
	e, ok := r.sessions[id]
	if !ok || !e.allows(owner) {
		r.mu.Unlock()
		return ErrSessionNotFound
	}
	delete(r.sessions, id)
	r.mu.Unlock()

	e.session.Close()
	return nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep drops sessions idle since before now-ttl and returns how many.
func (r *Registry) Sweep(now time.Time) int {
	if r.ttl <= 0 {
		return 0
	}
	var expired []*Session
	r.mu.Lock()
	for id, e := range r.sessions {
		if now.Sub(e.session.Touched()) > r.ttl {
			expired = append(expired, e.session)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}
	return len(expired)
}

// RunJanitor sweeps expired sessions until ctx is done.
func (r *Registry) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := r.Sweep(now); n > 0 {
				r.log.Info("expired route sessions", zap.Int("count", n))
			}
		}
	}
}

func newID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

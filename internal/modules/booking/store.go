// README: Booking store backed by PostgreSQL.
package booking

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists bookings. UpdateStatus reports false when the booking
// moved on since it was read.
type Repository interface {
	Create(ctx context.Context, b *Booking) error
	Get(ctx context.Context, id int64) (*Booking, error)
	ListByUser(ctx context.Context, userID int64, offset, limit int) ([]Booking, int, error)
	UpdateStatus(ctx context.Context, id int64, from, to Status, version int) (bool, error)
}

// ErrDuplicateRef is returned by Create when the ref code is taken.
var ErrDuplicateRef = errors.New("duplicate booking ref code")

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

const bookingColumns = `
        id, ref_code, status, status_version, role, user_id,
        from_address, from_lat, from_lng, to_address, to_lat, to_lng,
        route_polyline, distance_km, estimated_price, final_price,
        pickup_at, dropoff_at, vehicle_id, created_at, updated_at`

func (s *Store) Create(ctx context.Context, b *Booking) error {
	row := s.db.QueryRow(ctx, `
        INSERT INTO bookings (
            ref_code, status, status_version, role, user_id,
            from_address, from_lat, from_lng, to_address, to_lat, to_lng,
            route_polyline, distance_km, estimated_price, final_price,
            pickup_at, dropoff_at, vehicle_id, created_at, updated_at
        ) VALUES (
            $1, $2, $3, $4, $5,
            $6, $7, $8, $9, $10, $11,
            $12, $13, $14, $15,
            $16, $17, $18, $19, $19
        )
        RETURNING id`,
		b.RefCode, string(b.Status), b.StatusVersion, string(b.Role), b.UserID,
		b.FromAddress, b.FromLat, b.FromLng, b.ToAddress, b.ToLat, b.ToLng,
		b.RoutePolyline, b.DistanceKm, b.EstimatedPrice, b.FinalPrice,
		b.PickupAt, b.DropoffAt, b.VehicleID, b.CreatedAt,
	)
	if err := row.Scan(&b.ID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateRef
		}
		return err
	}
	b.UpdatedAt = b.CreatedAt
	return nil
}

func (s *Store) Get(ctx context.Context, id int64) (*Booking, error) {
	row := s.db.QueryRow(ctx, `SELECT`+bookingColumns+`
        FROM bookings
        WHERE id = $1`, id)

	b, err := scanBooking(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Store) ListByUser(ctx context.Context, userID int64, offset, limit int) ([]Booking, int, error) {
	var total int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM bookings WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.Query(ctx, `SELECT`+bookingColumns+`
        FROM bookings
        WHERE user_id = $1
        ORDER BY created_at DESC, id DESC
        OFFSET $2 LIMIT $3`, userID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]Booking, 0, limit)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *b)
	}
	return out, total, rows.Err()
}

func (s *Store) UpdateStatus(ctx context.Context, id int64, from, to Status, version int) (bool, error) {
	tag, err := s.db.Exec(ctx, `
        UPDATE bookings
        SET status = $1,
            status_version = status_version + 1,
            updated_at = NOW()
        WHERE id = $2 AND status = $3 AND status_version = $4`,
		string(to), id, string(from), version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	var status, role string
	err := row.Scan(
		&b.ID, &b.RefCode, &status, &b.StatusVersion, &role, &b.UserID,
		&b.FromAddress, &b.FromLat, &b.FromLng, &b.ToAddress, &b.ToLat, &b.ToLng,
		&b.RoutePolyline, &b.DistanceKm, &b.EstimatedPrice, &b.FinalPrice,
		&b.PickupAt, &b.DropoffAt, &b.VehicleID, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.Status = Status(status)
	b.Role = Role(role)
	b.PickupAt = b.PickupAt.UTC()
	b.DropoffAt = b.DropoffAt.UTC()
	return &b, nil
}

// MemoryStore keeps bookings in process. It backs the API when no database
// is configured, and the service tests.
type MemoryStore struct {
	mu       sync.Mutex
	nextID   int64
	bookings map[int64]Booking
	refs     map[string]struct{}
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		bookings: make(map[int64]Booking),
		refs:     make(map[string]struct{}),
		now:      time.Now,
	}
}

func (m *MemoryStore) Create(_ context.Context, b *Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.refs[b.RefCode]; taken {
		return ErrDuplicateRef
	}
	m.nextID++
	b.ID = m.nextID
	b.UpdatedAt = b.CreatedAt
	m.bookings[b.ID] = *b
	m.refs[b.RefCode] = struct{}{}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id int64) (*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

func (m *MemoryStore) ListByUser(_ context.Context, userID int64, offset, limit int) ([]Booking, int, error) {
	m.mu.Lock()
	var mine []Booking
	for _, b := range m.bookings {
		if b.UserID == userID {
			mine = append(mine, b)
		}
	}
	m.mu.Unlock()

	sort.Slice(mine, func(i, j int) bool {
		if !mine[i].CreatedAt.Equal(mine[j].CreatedAt) {
			return mine[i].CreatedAt.After(mine[j].CreatedAt)
		}
		return mine[i].ID > mine[j].ID
	})
	total := len(mine)
	if offset >= total {
		return []Booking{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return mine[offset:end], total, nil
}

func (m *MemoryStore) UpdateStatus(_ context.Context, id int64, from, to Status, version int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.Status != from || b.StatusVersion != version {
		return false, nil
	}
	b.Status = to
	b.StatusVersion++
	b.UpdatedAt = m.now()
	m.bookings[id] = b
	return true, nil
}

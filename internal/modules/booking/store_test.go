package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ridebook/internal/modules/pricing"
	"ridebook/internal/testutil"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(testutil.Postgres(t, "bookings"))
}

func TestStore_RoundTrip(t *testing.T) {
	store := setupTestStore(t)
	svc := NewService(store, pricing.NewStaticCatalog(pricing.DefaultTiers()), nil, nil, nil, ict)
	ctx := context.Background()

	p := validPayload()
	poly := "_p~iF~ps|U_ulLnnqC"
	p.RoutePolyline = &poly
	created, err := svc.Submit(ctx, p)
	require.NoError(t, err)

	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.RefCode, got.RefCode)
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, RoleCustomer, got.Role)
	assert.Equal(t, "Nonthaburi", got.ToAddress)
	assert.Equal(t, 8.0, got.DistanceKm)
	assert.Equal(t, 125.0, got.FinalPrice)
	assert.True(t, got.PickupAt.Equal(time.Date(2025, 6, 1, 2, 0, 0, 0, time.UTC)))
	require.NotNil(t, got.RoutePolyline)
	assert.Equal(t, poly, *got.RoutePolyline)
	require.NotNil(t, got.VehicleID)
	assert.Equal(t, 1, *got.VehicleID)

	_, err = store.Get(ctx, created.ID+1000)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_DuplicateRefCode(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	b := &Booking{
		RefCode: "BK-DUPLICAT", Status: StatusPending, Role: RoleCustomer, UserID: 1,
		FromAddress: "a", ToAddress: "b", PickupAt: time.Now(), DropoffAt: time.Now(), CreatedAt: time.Now(),
	}
	require.NoError(t, store.Create(ctx, b))
	dup := *b
	assert.ErrorIs(t, store.Create(ctx, &dup), ErrDuplicateRef)
}

func TestStore_ListByUserPages(t *testing.T) {
	store := setupTestStore(t)
	svc := NewService(store, pricing.NewStaticCatalog(pricing.DefaultTiers()), nil, nil, nil, ict)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		_, err := svc.Submit(ctx, validPayload())
		require.NoError(t, err)
	}

	res, err := svc.ListByUser(ctx, User{ID: 42}, 42, 2, 5)
	require.NoError(t, err)
	assert.Equal(t, 12, res.Total)
	assert.Equal(t, 3, res.TotalPages)
	assert.Len(t, res.Data, 5)
}

func TestStore_ConcurrentTransitions(t *testing.T) {
	store := setupTestStore(t)
	svc := NewService(store, pricing.NewStaticCatalog(pricing.DefaultTiers()), nil, nil, nil, ict)
	ctx := context.Background()

	b, err := svc.Submit(ctx, validPayload())
	require.NoError(t, err)

	admin := User{ID: 1, Role: RoleAdmin}
	targets := []Status{StatusConfirmed, StatusCancelled, StatusConfirmed, StatusCancelled}
	errs := make(chan error, len(targets))
	start := make(chan struct{})
	var wg sync.WaitGroup
	for _, to := range targets {
		wg.Add(1)
		go func(to Status) {
			defer wg.Done()
			<-start
			_, err := svc.UpdateStatus(ctx, b.ID, to, admin)
			errs <- err
		}(to)
	}
	close(start)
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		assert.True(t, err == ErrConflict || err == ErrInvalidState, "unexpected error: %v", err)
	}
	assert.GreaterOrEqual(t, success, 1)

	got, err := store.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, success, got.StatusVersion, "every success bumps the version once")
}

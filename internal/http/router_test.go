// README: API tests against the full router with in-memory services.
package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ridebook/internal/ai"
	api "ridebook/internal/http"
	"ridebook/internal/infra"
	"ridebook/internal/maps"
	"ridebook/internal/modules/aiusage"
	"ridebook/internal/modules/booking"
	"ridebook/internal/modules/pricing"
	"ridebook/internal/modules/route"
	"ridebook/internal/service"
	"ridebook/internal/types"
)

var (
	bangkok    = types.Coordinate{Lat: 13.75, Lng: 100.50}
	nonthaburi = types.Coordinate{Lat: 13.80, Lng: 100.60}
	ict        = time.FixedZone("ICT", 7*3600)
)

type stubGeo struct {
	addresses map[types.Coordinate]string
	meters    float64
	err       error
}

func (g *stubGeo) ReverseGeocode(_ context.Context, c types.Coordinate) (string, error) {
	if a, ok := g.addresses[c]; ok {
		return a, nil
	}
	return "", maps.ErrNoResult
}

func (g *stubGeo) ForwardGeocode(_ context.Context, q string) (maps.Place, error) {
	if q == "Nonthaburi" {
		return maps.Place{Coord: nonthaburi, Address: "Nonthaburi"}, nil
	}
	return maps.Place{}, maps.ErrNoResult
}

func (g *stubGeo) RouteDistance(context.Context, types.Coordinate, types.Coordinate) (float64, error) {
	if g.err != nil {
		return 0, g.err
	}
	return g.meters, nil
}

type testAPI struct {
	router   *gin.Engine
	geo      *stubGeo
	bookings *booking.Service
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	geo := &stubGeo{
		addresses: map[types.Coordinate]string{bangkok: "Bangkok", nonthaburi: "Nonthaburi"},
		meters:    8000,
	}
	prices := pricing.NewService(pricing.NewStaticCatalog(pricing.DefaultTiers()), nil)
	bookings := booking.NewService(booking.NewMemoryStore(), prices, prices.Engine(), nil, nil, ict)
	registry := route.NewRegistry(geo, time.Minute, nil)
	checkout := service.NewCheckout(prices, booking.NewAssembler(prices.Engine(), ict), bookings, 2*time.Second, nil)

	r := api.NewRouter(api.RouterDeps{
		Pricing:  prices,
		Geo:      geo,
		Routes:   registry,
		Checkout: checkout,
		Bookings: bookings,
		Verifier: infra.DevVerifier{},
	})
	return &testAPI{router: r, geo: geo, bookings: bookings}
}

func (a *testAPI) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

type routeBody struct {
	ID    string `json:"id"`
	State struct {
		OriginAddress      *string  `json:"originAddress"`
		DestinationAddress *string  `json:"destinationAddress"`
		DistanceKm         *float64 `json:"distanceKm"`
		Pending            struct {
			OriginAddress bool `json:"originAddress"`
		} `json:"pending"`
	} `json:"state"`
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (a *testAPI) newRoute(t *testing.T, token string) string {
	t.Helper()
	w := a.do(http.MethodPost, "/api/routes", nil, token)
	require.Equal(t, http.StatusCreated, w.Code)
	return decode[routeBody](t, w).ID
}

func (a *testAPI) clickBoth(t *testing.T, id, token string) {
	t.Helper()
	for _, c := range []types.Coordinate{bangkok, nonthaburi} {
		w := a.do(http.MethodPost, "/api/routes/"+id+"/events",
			map[string]any{"type": "click", "lat": c.Lat, "lng": c.Lng}, token)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
}

func checkoutBody(tierID any) map[string]any {
	return map[string]any{
		"tierId":    tierID,
		"pickupAt":  "2025-06-01T09:00",
		"dropoffAt": "2025-06-01T10:00",
	}
}

func TestHealth(t *testing.T) {
	a := newTestAPI(t)
	w := a.do(http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestCheckout_ClickClickBook(t *testing.T) {
	a := newTestAPI(t)
	id := a.newRoute(t, "dev-1")
	a.clickBoth(t, id, "dev-1")

	w := a.do(http.MethodPost, "/api/routes/"+id+"/checkout", checkoutBody(1), "dev-1")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	b := decode[booking.Booking](t, w)
	assert.Equal(t, int64(1), b.UserID)
	assert.Equal(t, booking.RoleCustomer, b.Role)
	assert.Equal(t, "Bangkok", b.FromAddress)
	assert.Equal(t, "Nonthaburi", b.ToAddress)
	assert.InDelta(t, 8.0, b.DistanceKm, 1e-9)
	assert.InDelta(t, 125.0, b.EstimatedPrice, 1e-9)
	assert.Equal(t, booking.StatusPending, b.Status)
	assert.True(t, b.PickupAt.Equal(time.Date(2025, 6, 1, 2, 0, 0, 0, time.UTC)))
	require.NotNil(t, b.VehicleID)
	assert.Equal(t, 1, *b.VehicleID)

	// The session is consumed by a successful checkout.
	w = a.do(http.MethodGet, "/api/routes/"+id, nil, "dev-1")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.do(http.MethodGet, "/api/bookings", nil, "dev-1")
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[booking.ListResult](t, w)
	assert.Equal(t, 1, list.Total)
	require.Len(t, list.Data, 1)
	assert.Equal(t, b.RefCode, list.Data[0].RefCode)
}

func TestCheckout_FailuresKeepSession(t *testing.T) {
	a := newTestAPI(t)

	t.Run("anonymous", func(t *testing.T) {
		id := a.newRoute(t, "")
		a.clickBoth(t, id, "")
		w := a.do(http.MethodPost, "/api/routes/"+id+"/checkout", checkoutBody(1), "")
		require.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, string(booking.KindUnauthenticated), decode[errorBody](t, w).Code)

		w = a.do(http.MethodGet, "/api/routes/"+id, nil, "")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("no vehicle", func(t *testing.T) {
		id := a.newRoute(t, "dev-2")
		a.clickBoth(t, id, "dev-2")
		w := a.do(http.MethodPost, "/api/routes/"+id+"/checkout", checkoutBody(nil), "dev-2")
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, string(booking.KindNoVehicleSelected), decode[errorBody](t, w).Code)

		w = a.do(http.MethodPost, "/api/routes/"+id+"/checkout", checkoutBody(2), "dev-2")
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.InDelta(t, 8*25+5.0, decode[booking.Booking](t, w).EstimatedPrice, 1e-9)
	})

	t.Run("incomplete route", func(t *testing.T) {
		id := a.newRoute(t, "dev-3")
		w := a.do(http.MethodPost, "/api/routes/"+id+"/checkout", checkoutBody(1), "dev-3")
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, string(booking.KindIncompleteRoute), decode[errorBody](t, w).Code)
	})

	t.Run("bad time range", func(t *testing.T) {
		id := a.newRoute(t, "dev-4")
		a.clickBoth(t, id, "dev-4")
		body := checkoutBody(1)
		body["dropoffAt"] = "2025-06-01T08:00"
		w := a.do(http.MethodPost, "/api/routes/"+id+"/checkout", body, "dev-4")
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, string(booking.KindInvalidTimeRange), decode[errorBody](t, w).Code)
	})
}

func TestRouteEvents(t *testing.T) {
	a := newTestAPI(t)
	id := a.newRoute(t, "dev-1")

	cases := []struct {
		name string
		body map[string]any
		want int
	}{
		{"unknown type", map[string]any{"type": "teleport", "slot": "origin", "lat": 1, "lng": 1}, http.StatusBadRequest},
		{"bad slot", map[string]any{"type": "drag", "slot": "middle", "lat": 1, "lng": 1}, http.StatusBadRequest},
		{"missing coords", map[string]any{"type": "select", "slot": "origin"}, http.StatusBadRequest},
		{"out of range", map[string]any{"type": "click", "lat": 91, "lng": 1}, http.StatusBadRequest},
		{"select", map[string]any{"type": "select", "slot": "origin", "lat": bangkok.Lat, "lng": bangkok.Lng}, http.StatusOK},
		{"recompute", map[string]any{"type": "recompute"}, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := a.do(http.MethodPost, "/api/routes/"+id+"/events", tc.body, "dev-1")
			assert.Equal(t, tc.want, w.Code, w.Body.String())
		})
	}

	t.Run("place carries its address", func(t *testing.T) {
		w := a.do(http.MethodPost, "/api/routes/"+id+"/events", map[string]any{
			"type": "place", "slot": "destination", "lat": nonthaburi.Lat, "lng": nonthaburi.Lng, "address": "Central Westgate",
		}, "dev-1")
		require.Equal(t, http.StatusOK, w.Code)
		st := decode[routeBody](t, w).State
		require.NotNil(t, st.DestinationAddress)
		assert.Equal(t, "Central Westgate", *st.DestinationAddress)
	})

	t.Run("other users cannot see the session", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/api/routes/"+id, nil, "dev-9").Code)
		assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/api/routes/"+id, nil, "").Code)
	})

	t.Run("delete", func(t *testing.T) {
		assert.Equal(t, http.StatusNoContent, a.do(http.MethodDelete, "/api/routes/"+id, nil, "dev-1").Code)
		assert.Equal(t, http.StatusNotFound, a.do(http.MethodDelete, "/api/routes/"+id, nil, "dev-1").Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodPost, "/api/routes", nil, "garbage").Code)
	})
}

func TestQuotesAndTiers(t *testing.T) {
	a := newTestAPI(t)

	w := a.do(http.MethodGet, "/api/tiers", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	tiers := decode[struct {
		Data []pricing.Tier `json:"data"`
	}](t, w)
	require.Len(t, tiers.Data, 3)
	assert.Equal(t, "Honda", tiers.Data[0].DisplayName)

	w = a.do(http.MethodPost, "/api/quotes", map[string]any{"tierId": 1, "distanceKm": 10}, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.InDelta(t, 155.0, decode[pricing.Quote](t, w).Total, 1e-9)

	w = a.do(http.MethodPost, "/api/quotes", map[string]any{"tierId": 1, "distanceKm": 0}, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.InDelta(t, 5.0, decode[pricing.Quote](t, w).Total, 1e-9)

	assert.Equal(t, http.StatusNoContent, a.do(http.MethodPost, "/api/quotes", map[string]any{"tierId": 1}, "").Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodPost, "/api/quotes", map[string]any{"tierId": 99, "distanceKm": 1}, "").Code)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/api/quotes", map[string]any{"distanceKm": 1}, "").Code)
}

func TestGeoEndpoints(t *testing.T) {
	a := newTestAPI(t)

	w := a.do(http.MethodGet, "/api/distance?origin=13.75,100.50&destination=13.80,100.60", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[struct {
		Meters     float64 `json:"meters"`
		DistanceKm float64 `json:"distanceKm"`
	}](t, w)
	assert.Equal(t, 8000.0, got.Meters)
	assert.Equal(t, 8.0, got.DistanceKm)

	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodGet, "/api/distance?origin=13.75,100.50", nil, "").Code)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodGet, "/api/distance?origin=abc&destination=13.80,100.60", nil, "").Code)

	w = a.do(http.MethodGet, "/api/geocode/reverse?lat=13.75&lng=100.50", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Bangkok", decode[maps.Place](t, w).Address)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/api/geocode/reverse?lat=1&lng=1", nil, "").Code)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodGet, "/api/geocode/reverse?lat=x&lng=1", nil, "").Code)

	w = a.do(http.MethodGet, "/api/geocode/search?q=Nonthaburi", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, nonthaburi, decode[maps.Place](t, w).Coord)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodGet, "/api/geocode/search?q=", nil, "").Code)

	a.geo.err = errors.New("upstream down")
	assert.Equal(t, http.StatusBadGateway, a.do(http.MethodGet, "/api/distance?origin=13.75,100.50&destination=13.80,100.60", nil, "").Code)
}

func validPayload(userID int64) booking.Payload {
	id := 1
	return booking.Payload{
		Role:             booking.RoleCustomer,
		UserID:           userID,
		FromAddress:      "Bangkok",
		FromLat:          bangkok.Lat,
		FromLng:          bangkok.Lng,
		ToAddress:        "Nonthaburi",
		ToLat:            nonthaburi.Lat,
		ToLng:            nonthaburi.Lng,
		DistanceKm:       8,
		EstimatedPrice:   125,
		PickupAt:         "2025-06-01T02:00:00.000Z",
		DropoffAt:        "2025-06-01T03:00:00.000Z",
		InitialVehicleID: &id,
	}
}

func TestBookingEndpoints(t *testing.T) {
	a := newTestAPI(t)

	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodPost, "/api/bookings", validPayload(1), "").Code)
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodPost, "/api/bookings", validPayload(2), "dev-1").Code)

	elevated := validPayload(1)
	elevated.Role = booking.RoleAdmin
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodPost, "/api/bookings", elevated, "dev-1").Code)

	// An omitted role is taken from the token.
	asDriver := validPayload(3)
	asDriver.Role = ""
	w := a.do(http.MethodPost, "/api/bookings", asDriver, "dev-3-driver")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, booking.RoleDriver, decode[booking.Booking](t, w).Role)

	bad := validPayload(1)
	bad.EstimatedPrice = 99
	w = a.do(http.MethodPost, "/api/bookings", bad, "dev-1")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(booking.KindPriceMismatch), decode[errorBody](t, w).Code)

	w = a.do(http.MethodPost, "/api/bookings", validPayload(1), "dev-1")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[booking.Booking](t, w)
	path := "/api/bookings/" + jsonNumber(created.ID)

	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, path, nil, "dev-1").Code)
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodGet, path, nil, "dev-2").Code)
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, path, nil, "dev-2-admin").Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/api/bookings/999", nil, "dev-2-admin").Code)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodGet, "/api/bookings/abc", nil, "dev-1").Code)

	assert.Equal(t, http.StatusForbidden, a.do(http.MethodGet, "/api/bookings?userId=1", nil, "dev-2").Code)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodGet, "/api/bookings?page=x", nil, "dev-1").Code)
	w = a.do(http.MethodGet, "/api/bookings?userId=1&page=1&pageSize=5", nil, "dev-2-admin")
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[booking.ListResult](t, w)
	assert.Equal(t, 1, list.Total)
	assert.Equal(t, 5, list.PageSize)

	status := path + "/status"
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodPost, status, map[string]any{"status": "CONFIRMED"}, "dev-1").Code)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, status, map[string]any{"status": "LOST"}, "dev-1").Code)

	w = a.do(http.MethodPost, status, map[string]any{"status": "CONFIRMED"}, "dev-5-driver")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, booking.StatusConfirmed, decode[booking.Booking](t, w).Status)

	w = a.do(http.MethodPost, status, map[string]any{"status": "CANCELLED"}, "dev-1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, booking.StatusCancelled, decode[booking.Booking](t, w).Status)

	assert.Equal(t, http.StatusConflict, a.do(http.MethodPost, status, map[string]any{"status": "ONGOING"}, "dev-5-driver").Code)
}

func TestAssistDisabled(t *testing.T) {
	a := newTestAPI(t)
	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodPost, "/api/assist", map[string]any{"message": "hi"}, "").Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodPost, "/api/assist", map[string]any{"message": "hi"}, "dev-1").Code)
}

type chatParser struct{}

func (chatParser) ParseBookingIntent(context.Context, string, map[string]string) (*ai.BookingIntent, error) {
	return &ai.BookingIntent{Intent: ai.IntentChat, Reply: "Hello!", PassengerCount: 1}, nil
}

func TestAssistQuota(t *testing.T) {
	gin.SetMode(gin.TestMode)
	geo := &stubGeo{meters: 8000}
	prices := pricing.NewService(pricing.NewStaticCatalog(pricing.DefaultTiers()), nil)
	r := api.NewRouter(api.RouterDeps{
		Pricing:     prices,
		Geo:         geo,
		Routes:      route.NewRegistry(geo, time.Minute, nil),
		Assistant:   service.NewAssistant(chatParser{}, geo, prices, ict, nil),
		AssistQuota: aiusage.NewService(aiusage.NewMemoryStore(), 1, ict),
		Verifier:    infra.DevVerifier{},
	})
	a := &testAPI{router: r, geo: geo}

	// A blank message is rejected without spending the allowance.
	w := a.do(http.MethodPost, "/api/assist", map[string]any{"message": "  "}, "dev-1")
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodPost, "/api/assist", map[string]any{"message": "hello"}, "dev-1")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Hello!", decode[service.Suggestion](t, w).Reply)

	w = a.do(http.MethodPost, "/api/assist", map[string]any{"message": "hello again"}, "dev-1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, decode[errorBody](t, w).Error, "insufficient")

	// Each caller has their own allowance.
	assert.Equal(t, http.StatusOK, a.do(http.MethodPost, "/api/assist", map[string]any{"message": "hello"}, "dev-2").Code)
}

func jsonNumber(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}

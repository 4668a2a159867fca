// README: Bench cases: environment, pricing, geo, route checkout, booking lifecycle races and quote load.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"regexp"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const (
	statusPass = "PASS"
	statusFail = "FAIL"
	statusSkip = "SKIP"
)

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client

	// bookingID is set by the checkout case and used by the lifecycle race.
	bookingID int64
}

type Result struct {
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name string
	Run  func(ctx context.Context, r *Runner) Result
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 10 * time.Second},
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := pgxpool.New(ctx, r.cfg.DSN); err == nil {
			r.db = db
			defer db.Close()
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
		defer func() { _ = r.redis.Close() }()
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))
	for _, tc := range tests {
		res := tc.Run(ctx, r)
		results = append(results, res)
		fmt.Printf("%-5s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency)
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}
	return results
}

func (r *Runner) customer() string {
	return fmt.Sprintf("dev-%d", r.cfg.UserID)
}

func (r *Runner) cases() []TestCase {
	return []TestCase{
		{
			Name: "Env: Postgres connect",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: statusSkip, Note: "no dsn"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.db.Ping(ctx); err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				return Result{Status: statusPass}
			},
		},
		{
			Name: "Env: schema tables present",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: statusSkip, Note: "no dsn"}
				}
				tables, err := extractTables(r.cfg.MigrationPath)
				if err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				for _, t := range tables {
					var exists bool
					if err := r.db.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, t).Scan(&exists); err != nil {
						return Result{Status: statusFail, Note: err.Error()}
					}
					if !exists {
						return Result{Status: statusFail, Note: "missing table " + t}
					}
				}
				return Result{Status: statusPass, Note: fmt.Sprintf("tables=%d", len(tables))}
			},
		},
		{
			Name: "Env: Redis connect",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.redis == nil {
					return Result{Status: statusSkip, Note: "no redis"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.redis.Ping(ctx).Err(); err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				return Result{Status: statusPass}
			},
		},
		httpCase("Health", http.MethodGet, "/health", nil, "", http.StatusOK),
		httpCase("Tiers: list", http.MethodGet, "/api/tiers", nil, "", http.StatusOK),
		{
			Name: "Quote: tier 1 over 10 km is 155",
			Run: func(ctx context.Context, r *Runner) Result {
				var q struct {
					Total float64 `json:"total"`
				}
				res, status := r.call(ctx, http.MethodPost, "/api/quotes", map[string]any{"tierId": 1, "distanceKm": 10}, "", &q)
				if status != http.StatusOK {
					return res
				}
				if math.Abs(q.Total-155) > 1e-9 {
					res.Status, res.Note = statusFail, fmt.Sprintf("total=%v", q.Total)
				}
				return res
			},
		},
		httpCase("Quote: no distance is unpriceable", http.MethodPost, "/api/quotes", map[string]any{"tierId": 1}, "", http.StatusNoContent),
		httpCase("Distance: Bangkok to Nonthaburi", http.MethodGet, "/api/distance?origin=13.75,100.50&destination=13.80,100.60", nil, "", http.StatusOK),
		httpCase("Distance: missing destination", http.MethodGet, "/api/distance?origin=13.75,100.50", nil, "", http.StatusBadRequest),
		httpCase("Bookings: list requires auth", http.MethodGet, "/api/bookings", nil, "", http.StatusUnauthorized),
		{
			Name: "Route: click, click, checkout",
			Run:  routeCheckout,
		},
		{
			Name: "Bookings: concurrent confirm has one winner",
			Run:  concurrentConfirm,
		},
		{
			Name: "Perf: quote load",
			Run: func(ctx context.Context, r *Runner) Result {
				return perfLoad(ctx, r, "/api/quotes", map[string]any{"tierId": 2, "distanceKm": 12.5})
			},
		},
	}
}

func httpCase(name, method, path string, body any, token string, want int) TestCase {
	return TestCase{
		Name: name,
		Run: func(ctx context.Context, r *Runner) Result {
			res, status := r.call(ctx, method, path, body, token, nil)
			if status == 0 {
				return res
			}
			if status != want {
				res.Status = statusFail
				res.Note = fmt.Sprintf("status=%d want=%d", status, want)
				return res
			}
			res.Status = statusPass
			return res
		},
	}
}

// call issues one request, decoding a 2xx body into out when given. The
// result is PASS on any 2xx.
func (r *Runner) call(ctx context.Context, method, path string, body any, token string, out any) (Result, int) {
	var reader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.cfg.BaseURL+path, reader)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}, 0
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := r.httpc.Do(req)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}, 0
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	res := Result{Status: statusPass, Latency: time.Since(start), Note: fmt.Sprintf("status=%d", resp.StatusCode)}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		res.Status = statusFail
		return res, resp.StatusCode
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			res.Status, res.Note = statusFail, "decode: "+err.Error()
		}
	}
	return res, resp.StatusCode
}

func routeCheckout(ctx context.Context, r *Runner) Result {
	token := r.customer()
	var created struct {
		ID string `json:"id"`
	}
	if res, _ := r.call(ctx, http.MethodPost, "/api/routes", nil, token, &created); res.Status != statusPass {
		return res
	}
	events := "/api/routes/" + created.ID + "/events"
	for _, p := range [][2]float64{{13.75, 100.50}, {13.80, 100.60}} {
		if res, _ := r.call(ctx, http.MethodPost, events, map[string]any{"type": "click", "lat": p[0], "lng": p[1]}, token, nil); res.Status != statusPass {
			return res
		}
	}

	pickup := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Minute)
	var b struct {
		ID             int64   `json:"id"`
		RefCode        string  `json:"refCode"`
		EstimatedPrice float64 `json:"estimatedPrice"`
	}
	res, _ := r.call(ctx, http.MethodPost, "/api/routes/"+created.ID+"/checkout", map[string]any{
		"tierId":    1,
		"pickupAt":  pickup.Format(time.RFC3339),
		"dropoffAt": pickup.Add(time.Hour).Format(time.RFC3339),
	}, token, &b)
	if res.Status == statusPass {
		r.bookingID = b.ID
		res.Note = fmt.Sprintf("ref=%s price=%.2f", b.RefCode, b.EstimatedPrice)
	}
	return res
}

// concurrentConfirm races PENDING -> CONFIRMED; the optimistic version check
// lets exactly one request through.
func concurrentConfirm(ctx context.Context, r *Runner) Result {
	if r.bookingID == 0 {
		return Result{Status: statusSkip, Note: "no booking from checkout"}
	}
	path := fmt.Sprintf("%s/api/bookings/%d/status", r.cfg.BaseURL, r.bookingID)
	body, _ := json.Marshal(map[string]string{"status": "CONFIRMED"})

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		succ int
	)
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req, _ := http.NewRequestWithContext(ctx, http.MethodPost, path, bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer dev-9999-driver")
			resp, err := r.httpc.Do(req)
			if err != nil {
				return
			}
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				mu.Lock()
				succ++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succ == 1 {
		return Result{Status: statusPass, Note: "success=1"}
	}
	return Result{Status: statusFail, Note: fmt.Sprintf("success=%d", succ)}
}

func perfLoad(ctx context.Context, r *Runner, path string, payload any) Result {
	b, _ := json.Marshal(payload)
	end := time.Now().Add(r.cfg.Duration)
	var (
		count, errCount int64
		mu              sync.Mutex
		wg              sync.WaitGroup
	)

	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) && ctx.Err() == nil {
				req, _ := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.BaseURL+path, bytes.NewReader(b))
				req.Header.Set("Content-Type", "application/json")
				resp, err := r.httpc.Do(req)
				mu.Lock()
				if err != nil || resp.StatusCode >= 500 {
					errCount++
				} else {
					count++
				}
				mu.Unlock()
				if err == nil {
					_, _ = io.Copy(io.Discard, resp.Body)
					resp.Body.Close()
				}
			}
		}()
	}
	wg.Wait()

	if count == 0 {
		return Result{Status: statusFail, Note: "no requests completed"}
	}
	rps := float64(count) / r.cfg.Duration.Seconds()
	return Result{Status: statusPass, Note: fmt.Sprintf("rps=%.1f errors=%d", rps, errCount)}
}

var createTableRe = regexp.MustCompile(`(?i)create\s+table\s+if\s+not\s+exists\s+([a-zA-Z0-9_]+)`)

func extractTables(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	matches := createTableRe.FindAllStringSubmatch(string(b), -1)
	tables := make([]string, 0, len(matches))
	for _, m := range matches {
		tables = append(tables, m[1])
	}
	return tables, nil
}

// README: Entry point; loads config, wires services, starts the HTTP server and the route session janitor.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"ridebook/internal/ai"
	"ridebook/internal/config"
	httptransport "ridebook/internal/http"
	"ridebook/internal/infra"
	"ridebook/internal/maps"
	"ridebook/internal/modules/aiusage"
	"ridebook/internal/modules/booking"
	"ridebook/internal/modules/pricing"
	"ridebook/internal/modules/route"
	"ridebook/internal/service"
)

const janitorInterval = time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := infra.NewLogger(cfg.Production(), cfg.Log.Level)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("ridebook-api stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	verifier, err := newVerifier(ctx, cfg, logger)
	if err != nil {
		return err
	}

	var db *pgxpool.Pool
	if cfg.DB.DSN != "" {
		db, err = infra.NewDB(ctx, cfg.DB.DSN)
		if err != nil {
			return err
		}
		defer db.Close()
	} else {
		logger.Warn("RIDEBOOK_DB_DSN not set; using the built-in catalog and in-memory bookings")
	}

	geo, err := newGeoProvider(ctx, cfg, logger)
	if err != nil {
		return err
	}

	engine, err := pricing.NewEngine(cfg.Pricing.Model)
	if err != nil {
		return err
	}
	var catalog pricing.Catalog = pricing.NewStaticCatalog(pricing.DefaultTiers())
	var bookingStore booking.Repository = booking.NewMemoryStore()
	if db != nil {
		catalog = pricing.NewStore(db)
		bookingStore = booking.NewStore(db)
	}
	pricingSvc := pricing.NewService(catalog, engine)

	var events booking.Publisher = booking.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		w := infra.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer func() { _ = w.Close() }()
		events = booking.NewKafkaPublisher(w, logger)
	}
	bookingSvc := booking.NewService(bookingStore, pricingSvc, engine, events, logger, cfg.Location)

	registry := route.NewRegistry(geo, cfg.Route.SessionTTL, logger, route.WithLookupTimeout(cfg.Route.LookupTimeout))
	checkout := service.NewCheckout(pricingSvc, booking.NewAssembler(engine, cfg.Location), bookingSvc, cfg.Route.SettleTimeout, logger)

	var assistant *service.Assistant
	var quota *aiusage.Service
	if cfg.AI.GeminiKey != "" {
		parser, err := ai.NewGeminiParser(ctx, cfg.AI.GeminiKey, cfg.AI.Model)
		if err != nil {
			return err
		}
		defer func() { _ = parser.Close() }()
		assistant = service.NewAssistant(parser, geo, pricingSvc, cfg.Location, logger)

		var ledger aiusage.Ledger = aiusage.NewMemoryStore()
		if db != nil {
			ledger = aiusage.NewStore(db)
		}
		if cfg.AI.MonthlyQuota > 0 {
			quota = aiusage.NewService(ledger, cfg.AI.MonthlyQuota, cfg.Location)
		}
	}

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httptransport.NewRouter(httptransport.RouterDeps{
		Pricing:     pricingSvc,
		Geo:         geo,
		Routes:      registry,
		Checkout:    checkout,
		Bookings:    bookingSvc,
		Assistant:   assistant,
		AssistQuota: quota,
		Verifier:    verifier,
		Log:         logger,
	})

	go registry.RunJanitor(ctx, janitorInterval)

	logger.Info("ridebook-api starting",
		zap.String("env", cfg.Env),
		zap.String("pricing_model", cfg.Pricing.Model),
		zap.Bool("google_maps", cfg.Maps.APIKey != ""),
		zap.Bool("kafka", len(cfg.Kafka.Brokers) > 0),
		zap.Bool("assistant", assistant != nil),
	)
	return httptransport.NewServer(cfg.HTTP.Addr, router, logger).Run(ctx)
}

func newVerifier(ctx context.Context, cfg config.Config, logger *zap.Logger) (infra.TokenVerifier, error) {
	if cfg.Firebase.ProjectID != "" {
		return infra.NewFirebaseVerifier(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	}
	if cfg.Production() {
		return nil, errors.New("RIDEBOOK_FIREBASE_PROJECT_ID is required in production")
	}
	logger.Warn("RIDEBOOK_FIREBASE_PROJECT_ID not set; accepting dev-<userId>[-<role>] tokens")
	return infra.DevVerifier{}, nil
}

// newGeoProvider builds the provider stack: Google or straight-line, with an
// optional great-circle fallback, behind a Redis cache when configured.
func newGeoProvider(ctx context.Context, cfg config.Config, logger *zap.Logger) (maps.GeoProvider, error) {
	geo, err := maps.NewProvider(cfg.Maps.APIKey, cfg.Maps.Language, cfg.Maps.Region, cfg.Maps.DistanceFallback, logger)
	if err != nil {
		return nil, err
	}
	if cfg.Maps.APIKey == "" {
		logger.Warn("GOOGLE_MAPS_API_KEY not set; distances are straight-line and addresses fall back to coordinates")
	}
	if cfg.Redis.Addr == "" {
		return geo, nil
	}
	rdb, err := infra.NewRedis(ctx, cfg.Redis.Addr)
	if err != nil {
		return nil, err
	}
	return maps.NewCachedProvider(geo, rdb, cfg.Maps.CacheTTL, logger), nil
}

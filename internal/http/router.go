// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ridebook/internal/http/handlers"
	"ridebook/internal/http/middleware"
	"ridebook/internal/infra"
	"ridebook/internal/maps"
	"ridebook/internal/modules/aiusage"
	"ridebook/internal/modules/booking"
	"ridebook/internal/modules/pricing"
	"ridebook/internal/modules/route"
	"ridebook/internal/service"
)

// RouterDeps are the services behind the API. Assistant and AssistQuota may
// be nil.
type RouterDeps struct {
	Pricing     *pricing.Service
	Geo         maps.GeoProvider
	Routes      *route.Registry
	Checkout    *service.Checkout
	Bookings    *booking.Service
	Assistant   *service.Assistant
	AssistQuota *aiusage.Service
	Verifier    infra.TokenVerifier
	Log         *zap.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.Use(middleware.Recovery(log), middleware.Logging(log))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	api := r.Group("/api")
	public := api.Group("", middleware.OptionalAuth(deps.Verifier))
	private := api.Group("", middleware.Auth(deps.Verifier))

	pricingHandler := handlers.NewPricingHandler(deps.Pricing)
	public.GET("/tiers", pricingHandler.Tiers)
	public.POST("/quotes", pricingHandler.Quote)

	geoHandler := handlers.NewGeoHandler(deps.Geo)
	public.GET("/distance", geoHandler.Distance)
	public.GET("/geocode/reverse", geoHandler.Reverse)
	public.GET("/geocode/search", geoHandler.Search)

	routeHandler := handlers.NewRouteHandler(deps.Routes, deps.Checkout)
	public.POST("/routes", routeHandler.Create)
	public.GET("/routes/:id", routeHandler.Get)
	public.DELETE("/routes/:id", routeHandler.Delete)
	public.POST("/routes/:id/events", routeHandler.Event)
	public.POST("/routes/:id/checkout", routeHandler.Checkout)

	bookingHandler := handlers.NewBookingHandler(deps.Bookings)
	private.POST("/bookings", bookingHandler.Submit)
	private.GET("/bookings", bookingHandler.List)
	private.GET("/bookings/:id", bookingHandler.Get)
	private.POST("/bookings/:id/status", bookingHandler.UpdateStatus)

	assistHandler := handlers.NewAssistHandler(deps.Assistant, deps.AssistQuota)
	private.POST("/assist", assistHandler.Assist)

	return r
}

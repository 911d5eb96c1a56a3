package v1

import (
	"time"

	"github.com/gin-gonic/gin"

	"stockledger/internal/app"
	"stockledger/internal/core/idempotency"
	"stockledger/internal/domain/audit"
	"stockledger/internal/infrastructure/http/v1/handlers"
	"stockledger/internal/infrastructure/http/v1/middleware"
	"stockledger/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Services are the domain services the handlers call.
	Services *app.Services

	// Health serves the /health endpoints.
	Health *handlers.HealthHandler

	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation. Nil disables authentication.
	JWTValidator middleware.JWTValidator

	// AuthRequired rejects requests without a valid token.
	AuthRequired bool

	// Idempotency stores X-Idempotency-Key outcomes. Nil disables the middleware.
	Idempotency idempotency.Store

	// History serves audit trails. Nil disables the history endpoints.
	History audit.HistoryReader

	// ReservationTTL applies to reservations created without expiresAt.
	ReservationTTL time.Duration
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}
	if cfg.Health == nil {
		cfg.Health = handlers.NewHealthHandler(nil, "stockledger", "")
	}

	router := gin.New()

	// Global middleware (order matters!). Recovery sits inside ErrorHandler so
	// a recovered panic is still rendered.
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Recovery())

	health := router.Group("/health")
	{
		health.GET("/live", cfg.Health.Live)
		health.GET("/ready", cfg.Health.Ready)
		health.GET("/info", cfg.Health.Info)
	}

	api := router.Group("/api/v1")
	if cfg.JWTValidator != nil {
		if cfg.AuthRequired {
			api.Use(middleware.Auth(cfg.JWTValidator))
		} else {
			api.Use(middleware.OptionalAuth(cfg.JWTValidator))
		}
	}
	if cfg.Idempotency != nil {
		api.Use(middleware.Idempotency(cfg.Idempotency))
	}

	registerInventoryRoutes(api, cfg)

	return router
}

// registerInventoryRoutes registers the inventory endpoints.
func registerInventoryRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	svc := cfg.Services
	baseHandler := handlers.NewBaseHandler()

	// --- LOCATIONS ---
	{
		handler := handlers.NewLocationHandler(baseHandler, svc.Locations, svc.Items, cfg.History)
		group := rg.Group("/locations")
		RegisterCRUDRoutes(group, handler)
		group.GET("/:id/items", handler.Items)
	}

	// --- ITEMS ---
	{
		handler := handlers.NewItemHandler(baseHandler, svc.Items, svc.Ledger, svc.Reservations, cfg.History)
		group := rg.Group("/items")
		group.GET("/low-stock", handler.LowStock)
		group.GET("/out-of-stock", handler.OutOfStock)
		group.GET("/by-sku/:sku", handler.BySKU)
		group.GET("/by-product/:productId", handler.ByProduct)
		RegisterCRUDRoutes(group, handler)
		group.POST("/:id/adjust", handler.Adjust)
		group.GET("/:id/transactions", handler.Transactions)
		group.GET("/:id/reservations", handler.Reservations)
		group.GET("/:id/reconcile", handler.Reconcile)
	}

	// --- LEDGER ---
	{
		handler := handlers.NewLedgerHandler(baseHandler, svc.Ledger)
		rg.POST("/transactions", handler.Post)
		rg.GET("/transactions", handler.ListByReference)
		rg.GET("/transactions/:id", handler.Get)
		rg.POST("/transfers", handler.Transfer)
	}

	// --- RESERVATIONS ---
	{
		handler := handlers.NewReservationHandler(baseHandler, svc.Reservations, cfg.ReservationTTL)
		group := rg.Group("/reservations")
		group.POST("", handler.Create)
		group.GET("", handler.List)
		group.GET("/:id", handler.Get)
		group.POST("/:id/transition", handler.Transition)
	}

	// --- AVAILABILITY ---
	{
		handler := handlers.NewAvailabilityHandler(baseHandler, svc.Availability)
		group := rg.Group("/availability")
		group.GET("/:productId", handler.Totals)
		group.GET("/:productId/check", handler.Check)
	}
}

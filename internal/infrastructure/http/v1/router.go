package v1

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"cashpoint/internal/domain/audit"
	"cashpoint/internal/domain/auth"
	"cashpoint/internal/domain/catalogs/product"
	"cashpoint/internal/domain/documents/cash_session"
	"cashpoint/internal/domain/documents/sale"
	"cashpoint/internal/domain/registers/stock"
	"cashpoint/internal/infrastructure/http/v1/dto"
	"cashpoint/internal/infrastructure/http/v1/handlers"
	"cashpoint/internal/infrastructure/http/v1/middleware"
	"cashpoint/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	Products     *product.Service
	Stock        *stock.Service
	Sales        *sale.Service
	CashSessions *cash_session.Service

	// AuditHistory serves GET /audit. Nil disables the route.
	AuditHistory audit.History

	// IdempotencyStore enables X-Idempotency-Key on POST routes. Nil disables it.
	IdempotencyStore middleware.IdempotencyStore

	// Health probes
	Version      string
	Driver       string
	HealthChecks map[string]handlers.Check
	Stats        func() any

	// Debug keeps gin in debug mode.
	Debug bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) (*gin.Engine, error) {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := dto.RegisterValidators(v); err != nil {
			return nil, fmt.Errorf("register validators: %w", err)
		}
	}

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth)
	healthHandler := handlers.NewHealthHandler(cfg.Version, cfg.Driver, cfg.HealthChecks, cfg.Stats)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	v1 := router.Group("/api/v1")
	v1.Use(middleware.Auth(cfg.JWTValidator))
	if cfg.IdempotencyStore != nil {
		v1.Use(middleware.Idempotency(cfg.IdempotencyStore))
	}

	base := handlers.NewBaseHandler()
	registerProductRoutes(v1, base, cfg)
	registerStockRoutes(v1, base, cfg)
	registerSaleRoutes(v1, base, cfg)
	registerCashSessionRoutes(v1, base, cfg)
	registerAuditRoutes(v1, base, cfg)

	return router, nil
}

func registerProductRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	if cfg.Products == nil {
		return
	}
	handler := handlers.NewProductHandler(base, cfg.Products)
	RegisterResourceRoutes(rg.Group("/products"), handler)
}

func registerStockRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	if cfg.Stock == nil {
		return
	}
	handler := handlers.NewStockHandler(base, cfg.Stock)
	group := rg.Group("/stock")
	{
		group.POST("/changes", handler.ApplyChange)
		group.POST("/changes/bulk", handler.BulkAdjust)
		group.GET("/movements", handler.Movements)
		group.GET("/low", handler.LowStock)
	}
}

func registerSaleRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	if cfg.Sales == nil {
		return
	}
	handler := handlers.NewSaleHandler(base, cfg.Sales)
	group := rg.Group("/sales")
	RegisterResourceRoutes(group, handler)
	group.POST("/:id/cancel", middleware.RequireRole(auth.RoleAdmin, auth.RoleManager), handler.Cancel)
}

func registerCashSessionRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	if cfg.CashSessions == nil {
		return
	}
	handler := handlers.NewCashSessionHandler(base, cfg.CashSessions)
	group := rg.Group("/cash-sessions")
	{
		group.POST("", handler.Open)
		group.GET("/active", handler.Active)
		RegisterReadRoutes(group, handler)
		group.GET("/:id/totals", handler.Totals)
		group.POST("/:id/movements", handler.AddMovement)
		group.GET("/:id/movements", handler.Movements)
		group.POST("/:id/close", handler.Close)
	}
}

func registerAuditRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	if cfg.AuditHistory == nil {
		return
	}
	handler := handlers.NewAuditHandler(base, cfg.AuditHistory)
	rg.GET("/audit/:entityType/:id", middleware.RequireRole(auth.RoleAdmin, auth.RoleManager), handler.History)
}

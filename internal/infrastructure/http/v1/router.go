// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"distledger/internal/core/tenant"
	"distledger/internal/domain/documents/issue"
	"distledger/internal/domain/documents/receipt"
	"distledger/internal/domain/reports"
	"distledger/internal/domain/snapshot"
	"distledger/internal/domain/stock"
	"distledger/internal/infrastructure/http/v1/handlers"
	"distledger/internal/infrastructure/http/v1/middleware"
	"distledger/pkg/logger"
)

// RouterConfig holds the services the API exposes.
type RouterConfig struct {
	Logger *logger.Logger

	// Tenants validates X-Tenant-ID on every /api/v1 request
	Tenants tenant.Getter

	Stock     *stock.Service
	Receipts  *receipt.Service
	Issues    *issue.Service
	Snapshots *snapshot.Service
	Converter *snapshot.Converter
	Reports   *reports.Service

	// AllowShortage is the issue posting default when a request does not say
	AllowShortage bool

	// HealthChecks run on /health/ready, keyed by dependency name
	HealthChecks map[string]handlers.Check
	HealthStats  func() any

	Debug bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}

	router := gin.New()

	// order matters
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.HealthChecks, cfg.HealthStats)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	v1 := router.Group("/api/v1")
	v1.Use(middleware.Tenant(cfg.Tenants))
	v1.Use(middleware.Actor())
	{
		base := handlers.NewBaseHandler()
		registerStockRoutes(v1, base, cfg)
		registerDocumentRoutes(v1, base, cfg)
		registerSnapshotRoutes(v1, base, cfg)
		registerReportRoutes(v1, base, cfg)
	}

	return router
}

// DocumentRouteHandler is implemented by receipt and issue handlers.
type DocumentRouteHandler interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Get(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
	Post(c *gin.Context)
}

// RegisterDocumentRoutes registers CRUD + posting routes for a document.
func RegisterDocumentRoutes(group *gin.RouterGroup, handler DocumentRouteHandler) {
	group.GET("", handler.List)
	group.POST("", handler.Create)
	group.GET("/:id", handler.Get)
	group.PUT("/:id", handler.Update)
	group.DELETE("/:id", handler.Delete)
	group.POST("/:id/post", handler.Post)
}

func registerStockRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	h := handlers.NewStockHandler(base, cfg.Stock)

	g := rg.Group("/stock")
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.POST("/:id/adjust", h.Adjust)
	g.DELETE("/:id", h.Delete)
}

func registerDocumentRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	RegisterDocumentRoutes(rg.Group("/receipts"), handlers.NewReceiptHandler(base, cfg.Receipts))
	RegisterDocumentRoutes(rg.Group("/issues"), handlers.NewIssueHandler(base, cfg.Issues, cfg.AllowShortage))
}

func registerSnapshotRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	h := handlers.NewSnapshotHandler(base, cfg.Snapshots, cfg.Converter)

	g := rg.Group("/snapshots/:kind")
	g.GET("", h.List)
	g.POST("", h.Create)
	g.POST("/convert", h.Convert)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.POST("/:id/post", h.Post)
	g.POST("/:id/revert", h.Revert)
}

func registerReportRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	h := handlers.NewReportsHandler(base, cfg.Reports)
	rg.Group("/reports").GET("/reconciliation", h.GetReconciliation)
}

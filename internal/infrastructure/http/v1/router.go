package v1

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"almacen/internal/domain"
	"almacen/internal/domain/alerts"
	"almacen/internal/domain/catalogs/depot"
	"almacen/internal/domain/catalogs/item"
	"almacen/internal/domain/catalogs/partner"
	"almacen/internal/domain/inbound"
	"almacen/internal/domain/ledger"
	"almacen/internal/domain/lot"
	"almacen/internal/domain/outbound"
	"almacen/internal/domain/stock"
	"almacen/internal/infrastructure/http/v1/dto"
	"almacen/internal/infrastructure/http/v1/handlers"
	"almacen/internal/infrastructure/http/v1/middleware"
	"almacen/internal/infrastructure/storage/postgres"
	"almacen/internal/infrastructure/storage/postgres/catalog_repo"
	"almacen/internal/infrastructure/storage/postgres/document_repo"
	"almacen/internal/infrastructure/storage/postgres/register_repo"
	"almacen/pkg/logger"
	"almacen/pkg/numerator"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Pool is the database connection pool (for health checks)
	Pool *postgres.Pool

	// TxManager runs repository calls and transactions
	TxManager *postgres.TxManager

	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// Numerator for document number generation
	Numerator *numerator.Service

	// IdempotencyEnabled enables idempotency middleware
	IdempotencyEnabled bool

	// IdempotencyTTL is how long completed keys are replayable (default 10m)
	IdempotencyTTL time.Duration
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	// Repositories
	txm := cfg.TxManager
	ledgerRepo := register_repo.NewLedgerRepo(txm)
	balanceRepo := register_repo.NewBalanceRepo(txm)
	itemRepo := catalog_repo.NewItemRepo(txm)
	depotRepo := catalog_repo.NewDepotRepo(txm)
	positionRepo := catalog_repo.NewPositionRepo(txm)
	partnerRepo := catalog_repo.NewPartnerRepo(txm)
	lotRepo := catalog_repo.NewLotRepo(txm)
	shipmentRepo := document_repo.NewShipmentRepo(txm)
	receiptRepo := document_repo.NewReceiptRepo(txm)

	archive, err := postgres.NewPlanArchive(txm)
	if err != nil {
		return nil, err
	}

	// Domain services
	ledgerService := ledger.NewService(ledgerRepo)
	stockService := stock.NewService(balanceRepo, ledgerService, txm)
	itemService := item.NewService(itemRepo, txm, cfg.Numerator)
	depotService := depot.NewService(depotRepo, positionRepo, txm)
	partnerService := partner.NewService(partnerRepo, txm, cfg.Numerator)
	lotService := lot.NewService(lotRepo, txm)

	// Alert rules are compiled on evaluation, so reject broken
	// expressions before they reach the catalog.
	validateAlertRule := func(ctx context.Context, it *item.Item) error {
		if it.AlertRule != nil && *it.AlertRule != "" {
			return alerts.ValidateRule(*it.AlertRule)
		}
		return nil
	}
	itemService.Hooks().On(domain.BeforeCreate, validateAlertRule)
	itemService.Hooks().On(domain.BeforeUpdate, validateAlertRule)

	outboundService := outbound.NewService(shipmentRepo, balanceRepo, ledgerService, archive, cfg.Numerator, txm)
	inboundService := inbound.NewService(receiptRepo, balanceRepo, ledgerService,
		itemService, partnerService, depotService, lotService, cfg.Numerator, txm)

	alertsService, err := alerts.NewService(itemService, stockService)
	if err != nil {
		return nil, err
	}

	// API v1 - everything behind JWT auth
	api := router.Group("/api/v1")
	api.Use(middleware.Auth(cfg.JWTValidator))

	if cfg.IdempotencyEnabled {
		ttl := cfg.IdempotencyTTL
		if ttl <= 0 {
			ttl = 10 * time.Minute
		}
		store := postgres.NewIdempotencyStore(txm, ttl)
		api.Use(middleware.Idempotency(store))
	}

	baseHandler := handlers.NewBaseHandler()

	// Catalogs
	registerItemRoutes(api, baseHandler, itemService)
	registerDepotRoutes(api, baseHandler, depotService)
	registerPartnerRoutes(api, baseHandler, partnerService)

	// Lots
	lotHandler := handlers.NewLotHandler(baseHandler, lotService)
	lotHandler.RegisterRoutes(api.Group("/lotes"))

	// Stock balances and alerts
	stockHandler := handlers.NewStockHandler(baseHandler, stockService)
	stockGroup := api.Group("/stock")
	alertsHandler := handlers.NewAlertsHandler(baseHandler, alertsService)
	stockGroup.GET("/alerts", alertsHandler.Evaluate)
	stockGroup.PATCH("/batch-number", lotHandler.RenameBatchNumber)
	stockGroup.POST("/rebuild", middleware.RequireRole("admin"), stockHandler.Rebuild)
	stockHandler.RegisterRoutes(stockGroup)

	// Movement history
	movementsHandler := handlers.NewMovementsHandler(baseHandler, ledgerService)
	movementsHandler.RegisterRoutes(api.Group("/movimientos"))

	// Documents
	outboundHandler := handlers.NewOutboundHandler(baseHandler, outboundService)
	outboundHandler.RegisterRoutes(api.Group("/remitos-salida"))

	inboundHandler := handlers.NewInboundHandler(baseHandler, inboundService)
	inboundHandler.RegisterRoutes(api.Group("/remitos-entrada"))

	return router, nil
}

func registerItemRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, service *item.Service) {
	handler := handlers.NewCatalogHandler(base, handlers.CatalogHandlerConfig[*item.Item, dto.CreateItemRequest, dto.UpdateItemRequest]{
		Service:      service.CatalogService,
		EntityName:   "item",
		MapCreateDTO: func(req dto.CreateItemRequest) *item.Item { return req.ToDomain() },
		MapUpdateDTO: func(req dto.UpdateItemRequest, existing *item.Item) *item.Item { return req.Apply(existing) },
		MapToDTO:     func(it *item.Item) any { return dto.FromItem(it) },
	})
	RegisterCatalogRoutes(rg.Group("/items"), handler)
}

func registerDepotRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, service *depot.Service) {
	handler := handlers.NewCatalogHandler(base, handlers.CatalogHandlerConfig[*depot.Depot, dto.CreateDepotRequest, dto.UpdateDepotRequest]{
		Service:      service.CatalogService,
		EntityName:   "depot",
		MapCreateDTO: func(req dto.CreateDepotRequest) *depot.Depot { return req.ToDomain() },
		MapUpdateDTO: func(req dto.UpdateDepotRequest, existing *depot.Depot) *depot.Depot { return req.Apply(existing) },
		MapToDTO:     func(d *depot.Depot) any { return dto.FromDepot(d) },
	})

	depots := rg.Group("/depots")
	RegisterCatalogRoutes(depots, handler)

	positionHandler := handlers.NewPositionHandler(base, service)
	depots.GET("/:id/positions", positionHandler.List)
	depots.POST("/:id/positions", positionHandler.Create)
	rg.GET("/positions/:id", positionHandler.Get)
	rg.DELETE("/positions/:id", positionHandler.Delete)
}

func registerPartnerRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, service *partner.Service) {
	handler := handlers.NewCatalogHandler(base, handlers.CatalogHandlerConfig[*partner.Partner, dto.CreatePartnerRequest, dto.UpdatePartnerRequest]{
		Service:      service.CatalogService,
		EntityName:   "partner",
		MapCreateDTO: func(req dto.CreatePartnerRequest) *partner.Partner { return req.ToDomain() },
		MapUpdateDTO: func(req dto.UpdatePartnerRequest, existing *partner.Partner) *partner.Partner { return req.Apply(existing) },
		MapToDTO:     func(p *partner.Partner) any { return dto.FromPartner(p) },
	})
	RegisterCatalogRoutes(rg.Group("/partners"), handler)
}

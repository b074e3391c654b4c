package router

import (
	"time"

	"invoicing/internal/config"
	"invoicing/internal/handler"
	"invoicing/internal/infra"
	"invoicing/internal/middleware"
	"invoicing/internal/repository"
	"invoicing/internal/service"
	"invoicing/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
// rdb may be nil: report caching and invoice emails are then unavailable.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute).Middleware())

	// ── Infrastructure ───────────────────────────────────────────────────────
	letterhead := Letterhead(cfg)
	var (
		cache service.SummaryCache
		queue service.EmailQueue
	)
	if rdb != nil {
		cache = infra.NewReportCache(rdb, cfg.ReportCacheTTL)
		queue = worker.NewDispatcher(rdb)
	}

	// ── Repositories ─────────────────────────────────────────────────────────
	clientRepo := repository.NewClientRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	clientSvc := service.NewClientService(clientRepo, cache)
	invoiceSvc := service.NewInvoiceService(invoiceRepo, clientRepo, cache, queue, letterhead)
	reportSvc := service.NewReportService(invoiceRepo, cache, letterhead)

	// ── Handlers ─────────────────────────────────────────────────────────────
	clientsH := handler.NewClientsHandler(clientSvc)
	invoicesH := handler.NewInvoicesHandler(invoiceSvc)
	reportsH := handler.NewReportsHandler(reportSvc)

	// ── Routes ───────────────────────────────────────────────────────────────
	r.GET("/health", handler.Health(db, rdb))

	v1 := r.Group("/v1")
	{
		clients := v1.Group("/clients")
		{
			clients.POST("", clientsH.Create)
			clients.GET("", clientsH.List)
			clients.GET("/:id", clientsH.Get)
			clients.PUT("/:id", clientsH.Update)
			clients.DELETE("/:id", clientsH.Delete)
		}

		invoices := v1.Group("/invoices")
		{
			invoices.POST("", invoicesH.Create)
			invoices.GET("", invoicesH.List)
			// static segments before /:id
			invoices.GET("/next-number", invoicesH.NextNumber)
			invoices.POST("/totals", invoicesH.Totals)
			invoices.GET("/:id", invoicesH.Get)
			invoices.PATCH("/:id/status", invoicesH.UpdateStatus)
			invoices.DELETE("/:id", invoicesH.Delete)
			invoices.GET("/:id/pdf", invoicesH.PDF)
			invoices.POST("/:id/email", invoicesH.Email)
		}

		reports := v1.Group("/reports")
		{
			reports.GET("/summary", reportsH.Summary)
			reports.GET("/export.xlsx", reportsH.ExportXLSX)
			reports.GET("/export.pdf", reportsH.ExportPDF)
		}
	}

	// Swagger UI, only enabled outside production
	if !cfg.IsProduction() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}

// Letterhead is the default issuer printed on documents.
func Letterhead(cfg *config.Config) infra.Letterhead {
	return infra.Letterhead{
		Name:    cfg.CompanyName,
		Address: cfg.CompanyAddress,
		Email:   cfg.CompanyEmail,
		Phone:   cfg.CompanyPhone,
	}
}

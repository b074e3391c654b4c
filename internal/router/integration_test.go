//go:build integration

package router

// Runs the API against real Postgres + Redis via testcontainers.
// Run with: go test -tags integration ./internal/router/... -v

import (
	"context"
	"net/http"
	"testing"
	"time"

	"invoicing/internal/config"
	"invoicing/internal/infra"
	"invoicing/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"gorm.io/gorm"
)

type integrationEnv struct {
	engine *gin.Engine
	db     *gorm.DB
	rdb    *redis.Client
}

func setupIntegrationEnv(t *testing.T) *integrationEnv {
	t.Helper()
	ctx := context.Background()
	gin.SetMode(gin.TestMode)

	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcPostgres.WithDatabase("invoicing_test"),
		tcPostgres.WithUsername("invoicing"),
		tcPostgres.WithPassword("invoicing"),
		testcontainers.WithWaitStrategy(tcPostgres.BasicWaitStrategies()...),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.RunContainer(ctx, testcontainers.WithImage("redis:7-alpine"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })

	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := &config.Config{
		Env:                "test",
		DBDriver:           infra.DriverPostgres,
		DatabaseURL:        pgURL,
		RedisURL:           rdURL,
		ReportCacheTTL:     time.Minute,
		RateLimitPerMinute: 10000,
		CompanyName:        "Acme Billing",
		PDFStoragePath:     t.TempDir(),
	}

	db, err := infra.NewDatabase(cfg.DBDriver, cfg.DatabaseURL)
	require.NoError(t, err)
	require.NoError(t, infra.RunMigrations(db, cfg.DBDriver))

	rdb, err := infra.NewRedis(cfg.RedisURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	return &integrationEnv{engine: New(cfg, db, rdb), db: db, rdb: rdb}
}

func TestIntegration_NumberingAndReports(t *testing.T) {
	env := setupIntegrationEnv(t)
	ctx := context.Background()

	w := call(t, env.engine, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	create := func(body map[string]any) *invoiceBody {
		w := call(t, env.engine, http.MethodPost, "/v1/invoices", body)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		inv := decode[invoiceBody](t, w)
		return &inv
	}

	first := create(map[string]any{
		"clientName": "Globex", "date": "2024-03-01",
		"items": []map[string]any{{"description": "Design", "quantity": 2, "unitPrice": 10, "taxPercent": 10, "discountPercent": 5}},
	})
	assert.Equal(t, "INV-0001", first.Number)
	assert.Equal(t, 21.0, first.GrandTotal)

	// The unique index rejects a reused number.
	w = call(t, env.engine, http.MethodPost, "/v1/invoices", map[string]any{
		"clientName": "Initech", "date": "2024-03-02", "number": "INV-0001",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = call(t, env.engine, http.MethodGet, "/v1/reports/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode[struct {
		InvoiceCount int64 `json:"invoiceCount"`
	}](t, w).InvoiceCount)

	gen, err := env.rdb.Get(ctx, "reports:gen").Int64()
	if err != nil {
		gen = 0
	}

	second := create(map[string]any{"clientName": "Initech", "date": "2024-03-02"})
	assert.Equal(t, "INV-0002", second.Number)

	// Writes bump the cache generation so the next summary is fresh.
	after, err := env.rdb.Get(ctx, "reports:gen").Int64()
	require.NoError(t, err)
	assert.Greater(t, after, gen)

	w = call(t, env.engine, http.MethodGet, "/v1/reports/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, decode[struct {
		InvoiceCount int64 `json:"invoiceCount"`
	}](t, w).InvoiceCount)
}

func TestIntegration_EmailIsQueued(t *testing.T) {
	env := setupIntegrationEnv(t)
	ctx := context.Background()

	w := call(t, env.engine, http.MethodPost, "/v1/invoices", map[string]any{"clientName": "Globex", "date": "2024-03-01"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	inv := decode[invoiceBody](t, w)

	w = call(t, env.engine, http.MethodPost, "/v1/invoices/"+inv.ID+"/email", map[string]any{"to": "ap@globex.test"})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	n, err := env.rdb.LLen(ctx, worker.QueueEmail).Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	dead, err := worker.DLQLength(ctx, env.rdb, worker.QueueEmail)
	require.NoError(t, err)
	assert.Zero(t, dead)
}

func TestIntegration_AmountsStoredWithFullPrecision(t *testing.T) {
	env := setupIntegrationEnv(t)

	w := call(t, env.engine, http.MethodPost, "/v1/invoices", map[string]any{
		"clientName": "Globex", "date": "2024-03-01",
		"items": []map[string]any{
			{"description": "Licence", "quantity": 1, "unitPrice": "100", "taxPercent": "12.3456789"},
			{"description": "Hardware", "quantity": 1e6, "unitPrice": 1e6},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	inv := decode[invoiceBody](t, w)

	var row struct {
		TaxPercent string
		Subtotal   string
		TotalTax   string
	}
	require.NoError(t, env.db.Raw(`
		SELECT ii.tax_percent::text AS tax_percent, i.subtotal::text AS subtotal, i.total_tax::text AS total_tax
		FROM invoices i JOIN invoice_items ii ON ii.invoice_id = i.id
		WHERE i.id = ? AND ii.position = 0`, inv.ID).Scan(&row).Error)

	assert.True(t, decimal.RequireFromString("12.3456789").Equal(decimal.RequireFromString(row.TaxPercent)), row.TaxPercent)
	assert.True(t, decimal.RequireFromString("1000000000100").Equal(decimal.RequireFromString(row.Subtotal)), row.Subtotal)
	assert.True(t, decimal.RequireFromString("12.3456789").Equal(decimal.RequireFromString(row.TotalTax)), row.TotalTax)
}

func TestIntegration_ReportCacheDropsSetFromInvalidatedGeneration(t *testing.T) {
	env := setupIntegrationEnv(t)
	ctx := context.Background()
	cache := infra.NewReportCache(env.rdb, time.Minute)

	_, gen, ok := cache.Get(ctx, "summary")
	require.False(t, ok)
	require.NotEmpty(t, gen)

	cache.Invalidate(ctx)
	cache.Set(ctx, gen, "summary", []byte(`{"invoiceCount":1}`))
	_, _, ok = cache.Get(ctx, "summary")
	assert.False(t, ok, "value computed before the invalidation must not be served")

	_, gen, _ = cache.Get(ctx, "summary")
	cache.Set(ctx, gen, "summary", []byte(`{"invoiceCount":2}`))
	val, _, ok := cache.Get(ctx, "summary")
	require.True(t, ok)
	assert.JSONEq(t, `{"invoiceCount":2}`, string(val))
}

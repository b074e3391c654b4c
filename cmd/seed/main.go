// Command seed loads demo clients and invoices through the service layer,
// so numbering and totals follow the same path as the API.
// Usage: go run ./cmd/seed
package main

import (
	"context"
	"os"
	"time"

	"invoicing/internal/billing"
	"invoicing/internal/config"
	"invoicing/internal/dto"
	"invoicing/internal/infra"
	"invoicing/internal/repository"
	"invoicing/internal/router"
	"invoicing/internal/service"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type demoInvoice struct {
	client  string
	ageDays int
	status  billing.PaymentStatus
	items   []dto.LineItemRequest
}

func item(desc string, qty, price, tax, discount float64) dto.LineItemRequest {
	return dto.LineItemRequest{
		Description:     desc,
		Quantity:        billing.NewLenient(qty),
		UnitPrice:       billing.NewLenient(price),
		TaxPercent:      billing.NewLenient(tax),
		DiscountPercent: billing.NewLenient(discount),
	}
}

func strPtr(s string) *string { return &s }

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	db, err := infra.NewDatabase(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := infra.RunMigrations(db, cfg.DBDriver); err != nil {
		log.Fatal().Err(err).Msg("migrations failed")
	}

	ctx := context.Background()
	clientRepo := repository.NewClientRepository(db)
	clients := service.NewClientService(clientRepo, nil)
	invoices := service.NewInvoiceService(repository.NewInvoiceRepository(db), clientRepo, nil, nil, router.Letterhead(cfg))

	demoClients := []dto.CreateClientRequest{
		{Name: "Globex Corporation", Email: strPtr("ap@globex.example"), Phone: strPtr("+1 555 0100"), Address: strPtr("1 Globex Way, Cypress Creek")},
		{Name: "Initech", Email: strPtr("billing@initech.example"), Address: strPtr("4120 Freidrich Ln, Austin")},
		{Name: "Umbrella Ltd", Email: strPtr("finance@umbrella.example")},
	}
	ids := make(map[string]string, len(demoClients))
	for _, req := range demoClients {
		c, err := clients.Create(ctx, req)
		if err != nil {
			log.Fatal().Err(err).Str("client", req.Name).Msg("seed client failed")
		}
		ids[c.Name] = c.ID
	}

	demo := []demoInvoice{
		{"Globex Corporation", 45, billing.StatusPaid, []dto.LineItemRequest{
			item("Website redesign", 1, 4200, 10, 0),
			item("Hosting (12 months)", 12, 35, 10, 5),
		}},
		{"Initech", 20, billing.StatusOverdue, []dto.LineItemRequest{
			item("TPS report automation", 16, 95, 0, 0),
		}},
		{"Umbrella Ltd", 7, billing.StatusPending, []dto.LineItemRequest{
			item("Security audit", 1, 2500, 20, 10),
			item("Follow-up workshop", 2, 600, 20, 0),
		}},
		{"Globex Corporation", 1, billing.StatusUnpaid, []dto.LineItemRequest{
			item("Support retainer", 1, 800, 10, 0),
		}},
	}
	now := time.Now()
	for _, d := range demo {
		clientID := ids[d.client]
		date := now.AddDate(0, 0, -d.ageDays)
		inv, err := invoices.Create(ctx, dto.CreateInvoiceRequest{
			ClientID:      &clientID,
			Date:          date.Format("2006-01-02"),
			DueDate:       strPtr(date.AddDate(0, 0, 30).Format("2006-01-02")),
			Terms:         strPtr("Net 30"),
			Items:         d.items,
			PaymentStatus: string(d.status),
		})
		if err != nil {
			log.Fatal().Err(err).Str("client", d.client).Msg("seed invoice failed")
		}
		log.Info().Str("number", inv.Number).Str("client", inv.ClientName).
			Str("grand_total", inv.GrandTotal.StringFixed(2)).Msg("invoice seeded")
	}
	log.Info().Int("clients", len(demoClients)).Int("invoices", len(demo)).Msg("seed complete")
}

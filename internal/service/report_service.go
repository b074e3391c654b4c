package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"invoicing/internal/billing"
	"invoicing/internal/dto"
	"invoicing/internal/infra"
	"invoicing/internal/repository"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ReportService aggregates stored invoices for the dashboard and exports.
type ReportService interface {
	Summary(ctx context.Context, filter dto.InvoiceFilter) (*dto.ReportSummary, error)
	ExportXLSX(ctx context.Context, filter dto.InvoiceFilter) ([]byte, error)
	ExportPDF(ctx context.Context, filter dto.InvoiceFilter) ([]byte, error)
}

type reportService struct {
	repo       repository.InvoiceRepository
	cache      SummaryCache
	letterhead infra.Letterhead
}

func NewReportService(repo repository.InvoiceRepository, cache SummaryCache, letterhead infra.Letterhead) ReportService {
	return &reportService{repo: repo, cache: orNoop(cache), letterhead: letterhead}
}

func (s *reportService) Summary(ctx context.Context, filter dto.InvoiceFilter) (*dto.ReportSummary, error) {
	key := summaryKey(filter)
	// gen is read before the query; a write landing after this point bumps
	// the generation and the Set below stores into a dead one.
	raw, gen, ok := s.cache.Get(ctx, key)
	if ok {
		var cached dto.ReportSummary
		if err := json.Unmarshal(raw, &cached); err == nil {
			return &cached, nil
		}
		log.Warn().Str("key", key).Msg("report cache: undecodable entry ignored")
	}

	rows, err := s.repo.SummarizeByStatus(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("summarize invoices: %w", err)
	}
	summary := buildSummary(rows)

	if raw, err := json.Marshal(summary); err == nil {
		s.cache.Set(ctx, gen, key, raw)
	}
	return summary, nil
}

func (s *reportService) ExportXLSX(ctx context.Context, filter dto.InvoiceFilter) ([]byte, error) {
	invoices, err := s.repo.ListAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	return infra.RenderInvoicesXLSX(invoices)
}

func (s *reportService) ExportPDF(ctx context.Context, filter dto.InvoiceFilter) ([]byte, error) {
	invoices, err := s.repo.ListAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	return infra.RenderReportPDF(reportTitle(filter), invoices, s.letterhead)
}

// buildSummary folds per-status rows into the dashboard figures. Every known
// status is present in ByStatus, zero when no invoice has it.
func buildSummary(rows []repository.StatusTotal) *dto.ReportSummary {
	summary := &dto.ReportSummary{
		Revenue:     decimal.Zero,
		Paid:        decimal.Zero,
		Outstanding: decimal.Zero,
		ByStatus:    make(map[string]dto.StatusBucket, len(billing.Statuses)),
	}
	for _, st := range billing.Statuses {
		summary.ByStatus[string(st)] = dto.StatusBucket{Total: decimal.Zero}
	}

	for _, r := range rows {
		summary.InvoiceCount += r.Count
		summary.Revenue = summary.Revenue.Add(r.Total)
		if r.PaymentStatus.Outstanding() {
			summary.Outstanding = summary.Outstanding.Add(r.Total)
		} else {
			summary.Paid = summary.Paid.Add(r.Total)
		}
		b := summary.ByStatus[string(r.PaymentStatus)]
		b.Count += r.Count
		b.Total = b.Total.Add(r.Total)
		summary.ByStatus[string(r.PaymentStatus)] = b
	}

	summary.Revenue = summary.Revenue.Round(2)
	summary.Paid = summary.Paid.Round(2)
	summary.Outstanding = summary.Outstanding.Round(2)
	for k, b := range summary.ByStatus {
		b.Total = b.Total.Round(2)
		summary.ByStatus[k] = b
	}
	return summary
}

// summaryKey ignores pagination; it does not change the aggregate.
func summaryKey(f dto.InvoiceFilter) string {
	return strings.Join([]string{
		"summary",
		strings.ToLower(strings.TrimSpace(f.Search)),
		f.Status, f.DateFrom, f.DateTo, f.ClientID,
	}, "|")
}

func reportTitle(f dto.InvoiceFilter) string {
	title := "Invoice report"
	switch {
	case f.DateFrom != "" && f.DateTo != "":
		title += fmt.Sprintf(" %s to %s", f.DateFrom, f.DateTo)
	case f.DateFrom != "":
		title += " from " + f.DateFrom
	case f.DateTo != "":
		title += " until " + f.DateTo
	}
	if f.Status != "" {
		title += " (" + f.Status + ")"
	}
	return title
}

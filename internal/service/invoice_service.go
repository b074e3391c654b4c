package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"invoicing/internal/billing"
	"invoicing/internal/dto"
	"invoicing/internal/infra"
	"invoicing/internal/model"
	"invoicing/internal/repository"
	"invoicing/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// EmailQueue accepts invoice email jobs. *worker.Dispatcher implements it.
type EmailQueue interface {
	EnqueueInvoiceEmail(ctx context.Context, payload worker.InvoiceEmailPayload) error
}

type InvoiceService interface {
	Create(ctx context.Context, req dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.InvoiceResponse, error)
	List(ctx context.Context, filter dto.InvoiceFilter) (*dto.InvoiceListResponse, error)
	// NextNumber previews the number the next creation would receive. It is
	// not reserved.
	NextNumber(ctx context.Context) (string, error)
	PreviewTotals(items []billing.LineItem) billing.Totals
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*dto.InvoiceResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
	RenderPDF(ctx context.Context, id uuid.UUID) (string, []byte, error)
	EmailInvoice(ctx context.Context, id uuid.UUID, req dto.EmailInvoiceRequest) error
}

type invoiceService struct {
	repo       repository.InvoiceRepository
	clients    repository.ClientRepository
	cache      SummaryCache
	queue      EmailQueue
	letterhead infra.Letterhead

	// numbering is single-writer per process; the sequence row lock extends
	// that across processes on Postgres
	numbering sync.Mutex
}

func NewInvoiceService(
	repo repository.InvoiceRepository,
	clients repository.ClientRepository,
	cache SummaryCache,
	queue EmailQueue,
	letterhead infra.Letterhead,
) InvoiceService {
	return &invoiceService{
		repo:       repo,
		clients:    clients,
		cache:      orNoop(cache),
		queue:      queue,
		letterhead: letterhead,
	}
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// ── Create ───────────────────────────────────────────────────────────────────
//  1. Resolve the client (copy its name when none was sent)
//  2. Compute totals; reject a negative grand total
//  3. BEGIN TX: lock sequence row, pick number, insert invoice + items
//  4. COMMIT, drop cached report summaries

func (s *invoiceService) Create(ctx context.Context, req dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error) {
	status := billing.StatusUnpaid
	if req.PaymentStatus != "" {
		status = billing.PaymentStatus(req.PaymentStatus)
		if !status.Valid() {
			return nil, ErrInvalidStatus
		}
	}

	clientName := strings.TrimSpace(req.ClientName)
	var clientID *uuid.UUID
	if req.ClientID != nil && *req.ClientID != "" {
		id, err := uuid.Parse(*req.ClientID)
		if err != nil {
			return nil, ErrClientNotFound
		}
		client, err := s.clients.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrClientNotFound
			}
			return nil, err
		}
		if clientName == "" {
			clientName = client.Name
		}
		clientID = &id
	}

	totals := billing.ComputeTotals(dto.LineItems(req.Items))
	if totals.IsNegative() {
		return nil, ErrNegativeTotal
	}

	items := make([]model.InvoiceItem, 0, len(req.Items))
	for i, row := range req.Items {
		items = append(items, model.InvoiceItem{
			Position:        i,
			Description:     strings.TrimSpace(row.Description),
			Quantity:        row.Quantity.Decimal,
			UnitPrice:       row.UnitPrice.Decimal,
			TaxPercent:      row.TaxPercent.Decimal,
			DiscountPercent: row.DiscountPercent.Decimal,
		})
	}

	inv := &model.Invoice{
		CompanyName:    req.CompanyName,
		CompanyAddress: req.CompanyAddress,
		CompanyEmail:   req.CompanyEmail,
		CompanyPhone:   req.CompanyPhone,
		ClientID:       clientID,
		ClientName:     clientName,
		ClientDetails:  req.ClientDetails,
		Date:           req.Date,
		DueDate:        req.DueDate,
		Notes:          req.Notes,
		Terms:          req.Terms,
		PaymentStatus:  status,
		Items:          items,
	}
	inv.ApplyTotals(totals)

	s.numbering.Lock()
	defer s.numbering.Unlock()

	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		seq, err := s.repo.LockSequence(ctx, tx)
		if err != nil {
			return fmt.Errorf("lock sequence: %w", err)
		}

		number := strings.TrimSpace(req.Number)
		if number == "" {
			latest, err := s.repo.Latest(ctx, tx)
			if err != nil {
				return err
			}
			count, err := s.repo.Count(ctx, tx)
			if err != nil {
				return err
			}
			number = billing.NextAfter(latestNumber(latest), count)
			seq.LastNumber = number
			seq.Issued++
		}

		inv.Number = number
		exists, err := s.repo.NumberExists(ctx, tx, number)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateNumber
		}

		if err := s.repo.Create(ctx, tx, inv); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateNumber
			}
			return err
		}
		return s.repo.SaveSequence(ctx, tx, seq)
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateNumber) {
			return nil, fmt.Errorf("create invoice %q: %w", inv.Number, ErrDuplicateNumber)
		}
		return nil, fmt.Errorf("create invoice: %w", err)
	}

	s.cache.Invalidate(ctx)
	log.Info().Str("invoice_id", inv.ID.String()).Str("number", inv.Number).
		Str("grand_total", inv.GrandTotal.StringFixed(2)).Msg("invoice created")

	resp := invoiceToResponse(inv)
	return &resp, nil
}

func (s *invoiceService) Get(ctx context.Context, id uuid.UUID) (*dto.InvoiceResponse, error) {
	inv, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := invoiceToResponse(inv)
	return &resp, nil
}

func (s *invoiceService) List(ctx context.Context, filter dto.InvoiceFilter) (*dto.InvoiceListResponse, error) {
	filter = normalizeFilter(filter)
	list, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.InvoiceResponse, 0, len(list))
	for i := range list {
		data = append(data, invoiceToResponse(&list[i]))
	}
	return &dto.InvoiceListResponse{
		Data:  data,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}, nil
}

func (s *invoiceService) NextNumber(ctx context.Context) (string, error) {
	latest, err := s.repo.Latest(ctx, nil)
	if err != nil {
		return "", err
	}
	count, err := s.repo.Count(ctx, nil)
	if err != nil {
		return "", err
	}
	return billing.NextAfter(latestNumber(latest), count), nil
}

// PreviewTotals never fails: coercion already turned bad input into zeros.
func (s *invoiceService) PreviewTotals(items []billing.LineItem) billing.Totals {
	return billing.ComputeTotals(items).Rounded()
}

func (s *invoiceService) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*dto.InvoiceResponse, error) {
	ps := billing.PaymentStatus(status)
	if !ps.Valid() {
		return nil, ErrInvalidStatus
	}
	if err := s.repo.UpdateStatus(ctx, id, ps); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("update status: %w", err)
	}
	s.cache.Invalidate(ctx)
	log.Info().Str("invoice_id", id.String()).Str("status", status).Msg("invoice status updated")
	return s.Get(ctx, id)
}

func (s *invoiceService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvoiceNotFound
		}
		return fmt.Errorf("delete invoice: %w", err)
	}
	s.cache.Invalidate(ctx)
	log.Info().Str("invoice_id", id.String()).Msg("invoice deleted")
	return nil
}

// RenderPDF returns the download file name and the PDF bytes.
func (s *invoiceService) RenderPDF(ctx context.Context, id uuid.UUID) (string, []byte, error) {
	inv, err := s.find(ctx, id)
	if err != nil {
		return "", nil, err
	}
	data, err := infra.RenderInvoicePDF(inv, s.letterhead)
	if err != nil {
		return "", nil, err
	}
	return infra.InvoiceFileName(inv), data, nil
}

func (s *invoiceService) EmailInvoice(ctx context.Context, id uuid.UUID, req dto.EmailInvoiceRequest) error {
	if s.queue == nil {
		return ErrQueueUnavailable
	}
	if _, err := s.find(ctx, id); err != nil {
		return err
	}
	payload := worker.InvoiceEmailPayload{
		InvoiceID: id.String(),
		To:        req.To,
		Message:   req.Message,
	}
	if err := s.queue.EnqueueInvoiceEmail(ctx, payload); err != nil {
		return fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}
	log.Info().Str("invoice_id", payload.InvoiceID).Str("to", req.To).Msg("invoice email queued")
	return nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

func (s *invoiceService) find(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	inv, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, err
	}
	return inv, nil
}

func latestNumber(inv *model.Invoice) string {
	if inv == nil {
		return ""
	}
	return inv.Number
}

func normalizeFilter(f dto.InvoiceFilter) dto.InvoiceFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = 50
	}
	return f
}

func invoiceToResponse(inv *model.Invoice) dto.InvoiceResponse {
	items := make([]dto.LineItemResponse, 0, len(inv.Items))
	for _, it := range inv.Items {
		items = append(items, dto.LineItemResponse{
			Description:     it.Description,
			Quantity:        it.Quantity,
			UnitPrice:       it.UnitPrice,
			TaxPercent:      it.TaxPercent,
			DiscountPercent: it.DiscountPercent,
			Amount:          it.Amount().Round(2),
		})
	}

	var clientID *string
	if inv.ClientID != nil {
		id := inv.ClientID.String()
		clientID = &id
	}

	t := inv.Totals().Rounded()
	return dto.InvoiceResponse{
		ID:             inv.ID.String(),
		Number:         inv.Number,
		CompanyName:    inv.CompanyName,
		CompanyAddress: inv.CompanyAddress,
		CompanyEmail:   inv.CompanyEmail,
		CompanyPhone:   inv.CompanyPhone,
		ClientID:       clientID,
		ClientName:     inv.ClientName,
		ClientDetails:  inv.ClientDetails,
		Date:           inv.Date,
		DueDate:        inv.DueDate,
		Notes:          inv.Notes,
		Terms:          inv.Terms,
		Items:          items,
		Subtotal:       t.Subtotal,
		TotalTax:       t.TotalTax,
		TotalDiscount:  t.TotalDiscount,
		GrandTotal:     t.GrandTotal,
		PaymentStatus:  string(inv.PaymentStatus),
		CreatedAt:      inv.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      inv.UpdatedAt.Format(time.RFC3339),
	}
}

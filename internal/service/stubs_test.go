package service

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"invoicing/internal/billing"
	"invoicing/internal/dto"
	"invoicing/internal/model"
	"invoicing/internal/repository"
	"invoicing/internal/worker"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ── invoice repository stub ──────────────────────────────────────────────────

type stubInvoiceRepo struct {
	mu       sync.Mutex
	invoices []*model.Invoice // creation order
	seq      model.InvoiceSequence
	clock    time.Time
	createFn func(inv *model.Invoice) error
	// afterSummarize runs once SummarizeByStatus has read the store
	afterSummarize func()
}

var _ repository.InvoiceRepository = (*stubInvoiceRepo)(nil)

func newStubInvoiceRepo() *stubInvoiceRepo {
	return &stubInvoiceRepo{clock: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
}

func (r *stubInvoiceRepo) DB() *gorm.DB { return nil }

func (r *stubInvoiceRepo) LockSequence(_ context.Context, _ *gorm.DB) (*model.InvoiceSequence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seq := r.seq
	seq.Name = model.InvoiceSequenceName
	return &seq, nil
}

func (r *stubInvoiceRepo) SaveSequence(_ context.Context, _ *gorm.DB, seq *model.InvoiceSequence) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq = *seq
	return nil
}

func (r *stubInvoiceRepo) Latest(_ context.Context, _ *gorm.DB) (*model.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.invoices) == 0 {
		return nil, nil
	}
	return r.invoices[len(r.invoices)-1], nil
}

func (r *stubInvoiceRepo) Count(_ context.Context, _ *gorm.DB) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.invoices)), nil
}

func (r *stubInvoiceRepo) NumberExists(_ context.Context, _ *gorm.DB, number string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.invoices {
		if inv.Number == number {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubInvoiceRepo) Create(_ context.Context, _ *gorm.DB, inv *model.Invoice) error {
	if r.createFn != nil {
		if err := r.createFn(inv); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	inv.ID = uuid.New()
	r.clock = r.clock.Add(time.Second)
	inv.CreatedAt, inv.UpdatedAt = r.clock, r.clock
	r.invoices = append(r.invoices, inv)
	return nil
}

func (r *stubInvoiceRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.invoices {
		if inv.ID == id {
			return inv, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubInvoiceRepo) matching(f dto.InvoiceFilter) []model.Invoice {
	var out []model.Invoice
	for i := len(r.invoices) - 1; i >= 0; i-- {
		inv := r.invoices[i]
		if f.Status != "" && string(inv.PaymentStatus) != f.Status {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(inv.ClientName), strings.ToLower(f.Search)) {
			continue
		}
		out = append(out, *inv)
	}
	return out
}

func (r *stubInvoiceRepo) List(_ context.Context, f dto.InvoiceFilter) ([]model.Invoice, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.matching(f)
	start := (f.Page - 1) * f.Limit
	if start > len(all) {
		start = len(all)
	}
	end := start + f.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], int64(len(all)), nil
}

func (r *stubInvoiceRepo) ListAll(_ context.Context, f dto.InvoiceFilter) ([]model.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.matching(f), nil
}

func (r *stubInvoiceRepo) SummarizeByStatus(_ context.Context, f dto.InvoiceFilter) ([]repository.StatusTotal, error) {
	rows := r.summarize(f)
	if r.afterSummarize != nil {
		r.afterSummarize()
	}
	return rows, nil
}

func (r *stubInvoiceRepo) summarize(f dto.InvoiceFilter) []repository.StatusTotal {
	r.mu.Lock()
	defer r.mu.Unlock()
	agg := map[billing.PaymentStatus]*repository.StatusTotal{}
	for _, inv := range r.matching(f) {
		row, ok := agg[inv.PaymentStatus]
		if !ok {
			row = &repository.StatusTotal{PaymentStatus: inv.PaymentStatus, Total: decimal.Zero}
			agg[inv.PaymentStatus] = row
		}
		row.Count++
		row.Total = row.Total.Add(inv.GrandTotal)
	}
	out := make([]repository.StatusTotal, 0, len(agg))
	for _, row := range agg {
		out = append(out, *row)
	}
	return out
}

func (r *stubInvoiceRepo) UpdateStatus(_ context.Context, id uuid.UUID, status billing.PaymentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.invoices {
		if inv.ID == id {
			inv.PaymentStatus = status
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *stubInvoiceRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, inv := range r.invoices {
		if inv.ID == id {
			r.invoices = append(r.invoices[:i], r.invoices[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// ── client repository stub ───────────────────────────────────────────────────

type stubClientRepo struct {
	clients map[uuid.UUID]*model.Client
}

var _ repository.ClientRepository = (*stubClientRepo)(nil)

func newStubClientRepo() *stubClientRepo {
	return &stubClientRepo{clients: map[uuid.UUID]*model.Client{}}
}

func (r *stubClientRepo) Create(_ context.Context, c *model.Client) error {
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	r.clients[c.ID] = c
	return nil
}

func (r *stubClientRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Client, error) {
	if c, ok := r.clients[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubClientRepo) List(_ context.Context, search string) ([]model.Client, error) {
	var out []model.Client
	for _, c := range r.clients {
		if search == "" || strings.Contains(strings.ToLower(c.Name), strings.ToLower(search)) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *stubClientRepo) Update(_ context.Context, c *model.Client) error {
	cp := *c
	r.clients[c.ID] = &cp
	return nil
}

func (r *stubClientRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.clients[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.clients, id)
	return nil
}

// ── cache / queue stubs ──────────────────────────────────────────────────────

// memCache mirrors ReportCache generations: Invalidate bumps gen and a Set
// carrying an older gen is dropped.
type memCache struct {
	data          map[string][]byte
	gen           int
	invalidations int
}

var _ SummaryCache = (*memCache)(nil)

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (c *memCache) Get(_ context.Context, key string) ([]byte, string, bool) {
	v, ok := c.data[key]
	return v, strconv.Itoa(c.gen), ok
}

func (c *memCache) Set(_ context.Context, gen, key string, value []byte) {
	if gen != strconv.Itoa(c.gen) {
		return
	}
	c.data[key] = value
}

func (c *memCache) Invalidate(context.Context) {
	c.invalidations++
	c.gen++
	c.data = map[string][]byte{}
}

type stubQueue struct {
	jobs []worker.InvoiceEmailPayload
	err  error
}

var _ EmailQueue = (*stubQueue)(nil)
var _ EmailQueue = (*worker.Dispatcher)(nil)

func (q *stubQueue) EnqueueInvoiceEmail(_ context.Context, p worker.InvoiceEmailPayload) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, p)
	return nil
}

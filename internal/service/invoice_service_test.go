package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"invoicing/internal/billing"
	"invoicing/internal/dto"
	"invoicing/internal/infra"
	"invoicing/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type invoiceFixture struct {
	svc     InvoiceService
	repo    *stubInvoiceRepo
	clients *stubClientRepo
	cache   *memCache
	queue   *stubQueue
}

func newInvoiceFixture() *invoiceFixture {
	f := &invoiceFixture{
		repo:    newStubInvoiceRepo(),
		clients: newStubClientRepo(),
		cache:   newMemCache(),
		queue:   &stubQueue{},
	}
	f.svc = NewInvoiceService(f.repo, f.clients, f.cache, f.queue, infra.Letterhead{Name: "Acme"})
	return f
}

func item(q, p, tax, disc float64) dto.LineItemRequest {
	return dto.LineItemRequest{
		Description:     "item",
		Quantity:        billing.NewLenient(q),
		UnitPrice:       billing.NewLenient(p),
		TaxPercent:      billing.NewLenient(tax),
		DiscountPercent: billing.NewLenient(disc),
	}
}

func createReq(items ...dto.LineItemRequest) dto.CreateInvoiceRequest {
	return dto.CreateInvoiceRequest{ClientName: "Acme", Date: "2024-03-01", Items: items}
}

func TestInvoiceService_CreateComputesTotalsAndNumber(t *testing.T) {
	f := newInvoiceFixture()

	resp, err := f.svc.Create(context.Background(), createReq(item(2, 10, 10, 5)))
	require.NoError(t, err)

	assert.Equal(t, "INV-0001", resp.Number)
	assert.Equal(t, "Unpaid", resp.PaymentStatus)
	assert.True(t, resp.Subtotal.Equal(decimal.NewFromInt(20)))
	assert.True(t, resp.TotalTax.Equal(decimal.NewFromInt(2)))
	assert.True(t, resp.TotalDiscount.Equal(decimal.NewFromInt(1)))
	assert.True(t, resp.GrandTotal.Equal(decimal.NewFromInt(21)))
	require.Len(t, resp.Items, 1)
	assert.True(t, resp.Items[0].Amount.Equal(decimal.NewFromInt(20)))

	assert.Equal(t, "INV-0001", f.repo.seq.LastNumber)
	assert.Equal(t, int64(1), f.repo.seq.Issued)
	assert.Equal(t, 1, f.cache.invalidations)
}

func TestInvoiceService_CreateStoresUnroundedTotals(t *testing.T) {
	f := newInvoiceFixture()

	resp, err := f.svc.Create(context.Background(), createReq(item(3, 0.335, 7, 0)))
	require.NoError(t, err)

	stored := f.repo.invoices[0]
	assert.Equal(t, "1.005", stored.Subtotal.String())
	assert.Equal(t, "1.01", resp.Subtotal.String(), "responses are rounded to cents")
}

func TestInvoiceService_SequentialNumbers(t *testing.T) {
	f := newInvoiceFixture()
	ctx := context.Background()

	for _, want := range []string{"INV-0001", "INV-0002", "INV-0003"} {
		resp, err := f.svc.Create(ctx, createReq())
		require.NoError(t, err)
		assert.Equal(t, want, resp.Number)
	}

	next, err := f.svc.NextNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, "INV-0004", next)
}

func TestInvoiceService_ExplicitNumber(t *testing.T) {
	f := newInvoiceFixture()
	ctx := context.Background()

	req := createReq()
	req.Number = "CUSTOM-1"
	resp, err := f.svc.Create(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "CUSTOM-1", resp.Number)
	assert.Equal(t, int64(0), f.repo.seq.Issued, "explicit numbers do not advance the sequence")

	// latest number is unparseable: falls back to count+1
	resp, err = f.svc.Create(ctx, createReq())
	require.NoError(t, err)
	assert.Equal(t, "INV-0002", resp.Number)

	req.Number = "INV-0002"
	_, err = f.svc.Create(ctx, req)
	assert.ErrorIs(t, err, ErrDuplicateNumber)
}

func TestInvoiceService_DuplicateFromStore(t *testing.T) {
	f := newInvoiceFixture()
	f.repo.createFn = func(*model.Invoice) error { return gorm.ErrDuplicatedKey }

	_, err := f.svc.Create(context.Background(), createReq())
	assert.ErrorIs(t, err, ErrDuplicateNumber)
	assert.Zero(t, f.cache.invalidations)
}

func TestInvoiceService_ConcurrentCreatesGetDistinctNumbers(t *testing.T) {
	f := newInvoiceFixture()
	ctx := context.Background()

	const n = 20
	numbers := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := f.svc.Create(ctx, createReq(item(1, 1, 0, 0)))
			if assert.NoError(t, err) {
				numbers <- resp.Number
			}
		}()
	}
	wg.Wait()
	close(numbers)

	seen := map[string]bool{}
	for num := range numbers {
		assert.False(t, seen[num], "duplicate %s", num)
		seen[num] = true
	}
	assert.Len(t, seen, n)
	assert.True(t, seen["INV-0020"])
}

func TestInvoiceService_RejectsNegativeGrandTotal(t *testing.T) {
	f := newInvoiceFixture()
	_, err := f.svc.Create(context.Background(), createReq(item(1, 10, 0, 100), item(1, -5, 0, 0)))
	assert.ErrorIs(t, err, ErrNegativeTotal)
	assert.Empty(t, f.repo.invoices)
}

func TestInvoiceService_CreateWithClient(t *testing.T) {
	f := newInvoiceFixture()
	ctx := context.Background()
	client := &model.Client{Name: "Globex"}
	require.NoError(t, f.clients.Create(ctx, client))

	id := client.ID.String()
	req := dto.CreateInvoiceRequest{ClientID: &id, Date: "2024-03-01"}
	resp, err := f.svc.Create(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "Globex", resp.ClientName)
	require.NotNil(t, resp.ClientID)
	assert.Equal(t, id, *resp.ClientID)

	missing := uuid.NewString()
	req.ClientID = &missing
	_, err = f.svc.Create(ctx, req)
	assert.ErrorIs(t, err, ErrClientNotFound)
}

func TestInvoiceService_CreateRejectsUnknownStatus(t *testing.T) {
	f := newInvoiceFixture()
	req := createReq()
	req.PaymentStatus = "Refunded"
	_, err := f.svc.Create(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestInvoiceService_UpdateStatus(t *testing.T) {
	f := newInvoiceFixture()
	ctx := context.Background()
	created, err := f.svc.Create(ctx, createReq(item(1, 5, 0, 0)))
	require.NoError(t, err)
	id := uuid.MustParse(created.ID)

	resp, err := f.svc.UpdateStatus(ctx, id, "Paid")
	require.NoError(t, err)
	assert.Equal(t, "Paid", resp.PaymentStatus)
	assert.Equal(t, created.Number, resp.Number)
	assert.True(t, created.GrandTotal.Equal(resp.GrandTotal))

	// any status may follow any other
	resp, err = f.svc.UpdateStatus(ctx, id, "Unpaid")
	require.NoError(t, err)
	assert.Equal(t, "Unpaid", resp.PaymentStatus)

	_, err = f.svc.UpdateStatus(ctx, id, "paid")
	assert.ErrorIs(t, err, ErrInvalidStatus)
	_, err = f.svc.UpdateStatus(ctx, uuid.New(), "Paid")
	assert.ErrorIs(t, err, ErrInvoiceNotFound)
}

func TestInvoiceService_GetListDelete(t *testing.T) {
	f := newInvoiceFixture()
	ctx := context.Background()
	first, err := f.svc.Create(ctx, createReq())
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, createReq())
	require.NoError(t, err)

	list, err := f.svc.List(ctx, dto.InvoiceFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), list.Total)
	assert.Equal(t, 1, list.Page)
	assert.Equal(t, 50, list.Limit)
	assert.Equal(t, "INV-0002", list.Data[0].Number, "newest first")

	id := uuid.MustParse(first.ID)
	got, err := f.svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "INV-0001", got.Number)

	require.NoError(t, f.svc.Delete(ctx, id))
	_, err = f.svc.Get(ctx, id)
	assert.ErrorIs(t, err, ErrInvoiceNotFound)
	assert.ErrorIs(t, f.svc.Delete(ctx, id), ErrInvoiceNotFound)
}

func TestInvoiceService_PreviewTotals(t *testing.T) {
	f := newInvoiceFixture()
	got := f.svc.PreviewTotals(dto.LineItems([]dto.LineItemRequest{item(3, 0.335, 0, 0)}))
	assert.Equal(t, "1.01", got.Subtotal.String())

	raw := `[{"description":"x","quantity":2,"unitPrice":"abc","taxPercent":10}]`
	var req dto.TotalsRequest
	require.NoError(t, json.Unmarshal([]byte(`{"items":`+raw+`}`), &req))
	got = f.svc.PreviewTotals(req.LineItems())
	assert.True(t, got.GrandTotal.IsZero())
}

func TestInvoiceService_RenderPDF(t *testing.T) {
	f := newInvoiceFixture()
	ctx := context.Background()
	created, err := f.svc.Create(ctx, createReq(item(1, 5, 0, 0)))
	require.NoError(t, err)

	name, data, err := f.svc.RenderPDF(ctx, uuid.MustParse(created.ID))
	require.NoError(t, err)
	assert.Equal(t, "invoice_INV-0001.pdf", name)
	assert.NotEmpty(t, data)

	_, _, err = f.svc.RenderPDF(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrInvoiceNotFound)
}

func TestInvoiceService_EmailInvoice(t *testing.T) {
	f := newInvoiceFixture()
	ctx := context.Background()
	created, err := f.svc.Create(ctx, createReq())
	require.NoError(t, err)
	id := uuid.MustParse(created.ID)

	require.NoError(t, f.svc.EmailInvoice(ctx, id, dto.EmailInvoiceRequest{To: "ap@acme.test"}))
	require.Len(t, f.queue.jobs, 1)
	assert.Equal(t, created.ID, f.queue.jobs[0].InvoiceID)
	assert.Equal(t, "ap@acme.test", f.queue.jobs[0].To)

	assert.ErrorIs(t, f.svc.EmailInvoice(ctx, uuid.New(), dto.EmailInvoiceRequest{To: "a@b.test"}), ErrInvoiceNotFound)

	f.queue.err = errors.New("redis down")
	assert.ErrorIs(t, f.svc.EmailInvoice(ctx, id, dto.EmailInvoiceRequest{To: "a@b.test"}), ErrQueueUnavailable)

	noQueue := NewInvoiceService(f.repo, f.clients, nil, nil, infra.Letterhead{})
	assert.ErrorIs(t, noQueue.EmailInvoice(ctx, id, dto.EmailInvoiceRequest{To: "a@b.test"}), ErrQueueUnavailable)
}

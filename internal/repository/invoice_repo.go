package repository

import (
	"context"
	"strings"

	"invoicing/internal/billing"
	"invoicing/internal/dto"
	"invoicing/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StatusTotal is one row of the per-status aggregate.
type StatusTotal struct {
	PaymentStatus billing.PaymentStatus
	Count         int64
	Total         decimal.Decimal
}

// InvoiceRepository defines persistence operations for Invoice.
// Methods taking a tx run on it when non-nil and on the base connection
// otherwise.
type InvoiceRepository interface {
	// LockSequence creates the sequence row if missing and locks it
	// FOR UPDATE until tx ends.
	LockSequence(ctx context.Context, tx *gorm.DB) (*model.InvoiceSequence, error)
	SaveSequence(ctx context.Context, tx *gorm.DB, seq *model.InvoiceSequence) error
	// Latest returns the most recently created invoice, or nil for an empty store.
	Latest(ctx context.Context, tx *gorm.DB) (*model.Invoice, error)
	Count(ctx context.Context, tx *gorm.DB) (int64, error)
	NumberExists(ctx context.Context, tx *gorm.DB, number string) (bool, error)
	Create(ctx context.Context, tx *gorm.DB, inv *model.Invoice) error

	FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
	List(ctx context.Context, filter dto.InvoiceFilter) ([]model.Invoice, int64, error)
	ListAll(ctx context.Context, filter dto.InvoiceFilter) ([]model.Invoice, error)
	SummarizeByStatus(ctx context.Context, filter dto.InvoiceFilter) ([]StatusTotal, error)
	// UpdateStatus and Delete return gorm.ErrRecordNotFound when no row matched.
	UpdateStatus(ctx context.Context, id uuid.UUID, status billing.PaymentStatus) error
	Delete(ctx context.Context, id uuid.UUID) error

	DB() *gorm.DB // exposes the DB for transaction creation in the service layer
}

type invoiceRepo struct{ db *gorm.DB }

func NewInvoiceRepository(db *gorm.DB) InvoiceRepository { return &invoiceRepo{db: db} }

func (r *invoiceRepo) DB() *gorm.DB { return r.db }

func (r *invoiceRepo) conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return r.db.WithContext(ctx)
}

func (r *invoiceRepo) LockSequence(ctx context.Context, tx *gorm.DB) (*model.InvoiceSequence, error) {
	db := r.conn(ctx, tx)
	seed := model.InvoiceSequence{Name: model.InvoiceSequenceName}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return nil, err
	}
	var seq model.InvoiceSequence
	// SQLite drops the locking clause; the service mutex covers that case.
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&seq, "name = ?", model.InvoiceSequenceName).Error
	if err != nil {
		return nil, err
	}
	return &seq, nil
}

func (r *invoiceRepo) SaveSequence(ctx context.Context, tx *gorm.DB, seq *model.InvoiceSequence) error {
	return r.conn(ctx, tx).Save(seq).Error
}

func (r *invoiceRepo) Latest(ctx context.Context, tx *gorm.DB) (*model.Invoice, error) {
	var list []model.Invoice
	// Equal timestamps fall back to the number; a longer number is a larger
	// one, so INV-10000 outranks INV-9999.
	err := r.conn(ctx, tx).
		Order("created_at DESC").Order("LENGTH(number) DESC").Order("number DESC").
		Limit(1).Find(&list).Error
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return &list[0], nil
}

func (r *invoiceRepo) Count(ctx context.Context, tx *gorm.DB) (int64, error) {
	var n int64
	err := r.conn(ctx, tx).Model(&model.Invoice{}).Count(&n).Error
	return n, err
}

func (r *invoiceRepo) NumberExists(ctx context.Context, tx *gorm.DB, number string) (bool, error) {
	var n int64
	err := r.conn(ctx, tx).Model(&model.Invoice{}).Where("number = ?", number).Count(&n).Error
	return n > 0, err
}

func (r *invoiceRepo) Create(ctx context.Context, tx *gorm.DB, inv *model.Invoice) error {
	return r.conn(ctx, tx).Create(inv).Error
}

func (r *invoiceRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	var inv model.Invoice
	err := r.db.WithContext(ctx).Preload("Items", orderedItems).First(&inv, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *invoiceRepo) List(ctx context.Context, filter dto.InvoiceFilter) ([]model.Invoice, int64, error) {
	var invoices []model.Invoice
	var total int64

	q := applyInvoiceFilter(r.db.WithContext(ctx).Model(&model.Invoice{}), filter)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	err := q.Preload("Items", orderedItems).
		Order("created_at DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&invoices).Error
	return invoices, total, err
}

func (r *invoiceRepo) ListAll(ctx context.Context, filter dto.InvoiceFilter) ([]model.Invoice, error) {
	var invoices []model.Invoice
	err := applyInvoiceFilter(r.db.WithContext(ctx).Model(&model.Invoice{}), filter).
		Preload("Items", orderedItems).
		Order("created_at DESC").
		Find(&invoices).Error
	return invoices, err
}

func (r *invoiceRepo) SummarizeByStatus(ctx context.Context, filter dto.InvoiceFilter) ([]StatusTotal, error) {
	var rows []StatusTotal
	err := applyInvoiceFilter(r.db.WithContext(ctx).Model(&model.Invoice{}), filter).
		Select("payment_status, COUNT(*) AS count, COALESCE(SUM(grand_total), 0) AS total").
		Group("payment_status").
		Scan(&rows).Error
	return rows, err
}

func (r *invoiceRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status billing.PaymentStatus) error {
	res := r.db.WithContext(ctx).Model(&model.Invoice{}).Where("id = ?", id).Update("payment_status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *invoiceRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", id).Delete(&model.InvoiceItem{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&model.Invoice{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// ── helpers ──────────────────────────────────────────────────────────────────

func orderedItems(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func applyInvoiceFilter(q *gorm.DB, f dto.InvoiceFilter) *gorm.DB {
	if term := strings.TrimSpace(f.Search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		q = q.Where("LOWER(client_name) LIKE ? OR LOWER(number) LIKE ?", like, like)
	}
	if f.Status != "" && f.Status != "all" {
		q = q.Where("payment_status = ?", f.Status)
	}
	if f.DateFrom != "" {
		q = q.Where("date >= ?", f.DateFrom)
	}
	if f.DateTo != "" {
		q = q.Where("date <= ?", f.DateTo)
	}
	if f.ClientID != "" {
		q = q.Where("client_id = ?", f.ClientID)
	}
	return q
}

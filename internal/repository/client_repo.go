package repository

import (
	"context"
	"strings"

	"invoicing/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ClientRepository defines persistence operations for Client.
type ClientRepository interface {
	Create(ctx context.Context, c *model.Client) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Client, error)
	List(ctx context.Context, search string) ([]model.Client, error)
	Update(ctx context.Context, c *model.Client) error
	// Delete removes the client and detaches its invoices. Returns
	// gorm.ErrRecordNotFound when no row matched.
	Delete(ctx context.Context, id uuid.UUID) error
}

type clientRepo struct{ db *gorm.DB }

func NewClientRepository(db *gorm.DB) ClientRepository { return &clientRepo{db: db} }

func (r *clientRepo) Create(ctx context.Context, c *model.Client) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *clientRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Client, error) {
	var c model.Client
	err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *clientRepo) List(ctx context.Context, search string) ([]model.Client, error) {
	var list []model.Client
	q := r.db.WithContext(ctx).Model(&model.Client{})
	if term := strings.TrimSpace(search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(COALESCE(email, '')) LIKE ? OR COALESCE(phone, '') LIKE ?", like, like, like)
	}
	err := q.Order("created_at DESC").Find(&list).Error
	return list, err
}

func (r *clientRepo) Update(ctx context.Context, c *model.Client) error {
	return r.db.WithContext(ctx).Save(c).Error
}

func (r *clientRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Invoices keep their copied client name; only the link goes away.
		if err := tx.Model(&model.Invoice{}).Where("client_id = ?", id).Update("client_id", nil).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&model.Client{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Client is a customer that invoices can be addressed to.
type Client struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"type:varchar(200);index;not null"`
	Email     *string   `gorm:"type:varchar(200)"`
	Phone     *string   `gorm:"type:varchar(50)"`
	Address   *string
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

func (c *Client) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

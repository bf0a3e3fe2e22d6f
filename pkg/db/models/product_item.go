package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductItem is one serialized unit of a product (a license key, an account
// credential). Sold units stay on record; availability queries filter on
// is_sold = false.
type ProductItem struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	ProductID  uuid.UUID  `gorm:"column:product_id;type:uuid;not null;index"`
	Credential string     `gorm:"column:credential;not null"`
	IsSold     bool       `gorm:"column:is_sold;not null;default:false"`
	SoldAt     *time.Time `gorm:"column:sold_at"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *ProductItem) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

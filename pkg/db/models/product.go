package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product is a seller listing. Stock accounting is either manual (the Stock/Sold
// counters) or serialized (per-unit ProductItems), never both for the same
// order item. Stock and Sold are mutated only by the inventory ledger inside a
// caller-provided transaction.
type Product struct {
	ID            uuid.UUID     `gorm:"column:id;type:uuid;primaryKey"`
	SellerID      uuid.UUID     `gorm:"column:seller_id;type:uuid;not null"`
	Name          string        `gorm:"column:name;not null"`
	Description   string        `gorm:"column:description;not null;default:''"`
	Price         int64         `gorm:"column:price;not null"`
	DiscountPrice int64         `gorm:"column:discount_price;not null"`
	Stock         int           `gorm:"column:stock;not null;default:0"`
	Sold          int           `gorm:"column:sold;not null;default:0"`
	IsActive      bool          `gorm:"column:is_active;not null"`
	Items         []ProductItem `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time     `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time     `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lamnguyendev/keymart-backend/pkg/enums"
)

// OrderItem snapshots one line of an order. Price is quantity × unit discount
// price at order time, not a live reference. ProductItemID is set only when
// the product uses serialized stock and a specific unit was pinned.
type OrderItem struct {
	ID            uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderID       uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID     uuid.UUID         `gorm:"column:product_id;type:uuid;not null"`
	ProductItemID *uuid.UUID        `gorm:"column:product_item_id;type:uuid"`
	Quantity      int               `gorm:"column:quantity;not null"`
	Price         int64             `gorm:"column:price;not null"`
	Source        enums.OrderSource `gorm:"column:source;not null;default:'DIRECT'"`
	Product       *Product          `gorm:"foreignKey:ProductID"`
	ProductItem   *ProductItem      `gorm:"foreignKey:ProductItemID"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

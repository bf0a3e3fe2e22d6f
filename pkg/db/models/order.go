package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Order is created once and never updated; the paired Bill carries the
// lifecycle status. The only mutation an order ever sees is the cascade
// delete performed by the expiry sweep.
type Order struct {
	ID         uuid.UUID   `gorm:"column:id;type:uuid;primaryKey"`
	UserID     uuid.UUID   `gorm:"column:user_id;type:uuid;not null;index"`
	TotalPrice int64       `gorm:"column:total_price;not null"`
	BillID     uuid.UUID   `gorm:"column:bill_id;type:uuid;not null;uniqueIndex"`
	Bill       *Bill       `gorm:"foreignKey:BillID"`
	Items      []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time   `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

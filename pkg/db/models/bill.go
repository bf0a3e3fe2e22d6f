package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lamnguyendev/keymart-backend/pkg/enums"
)

// Bill tracks payment for exactly one order. TransactionID holds the gateway
// order code while PENDING and is overwritten with the settlement reference
// once the payment clears. Amount must equal the sum of the order's item
// prices and is matched exactly against the webhook-reported amount.
type Bill struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	UserID        uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	Type          enums.BillType      `gorm:"column:type;not null;default:'MONEY_IN'"`
	Status        enums.BillStatus    `gorm:"column:status;not null;default:'PENDING';index"`
	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;not null"`
	Amount        int64               `gorm:"column:amount;not null"`
	TransactionID string              `gorm:"column:transaction_id;not null;default:'';index"`
	Note          string              `gorm:"column:note;not null;default:''"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (b *Bill) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lamnguyendev/keymart-backend/pkg/enums"
)

// User is referenced by carts, orders and bills. Account management itself
// lives outside this service; only the identity columns consumed by order
// reads are modeled here.
type User struct {
	ID        uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Email     string           `gorm:"column:email;not null;uniqueIndex"`
	FullName  string           `gorm:"column:full_name;not null;default:''"`
	Role      enums.MemberRole `gorm:"column:role;not null;default:'customer'"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

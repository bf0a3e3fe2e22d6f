package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lamnguyendev/keymart-backend/pkg/db"
	"github.com/lamnguyendev/keymart-backend/pkg/db/models"
	"github.com/lamnguyendev/keymart-backend/pkg/errors"
)

// Service manages the per-user staging cart consumed by create-from-cart.
type Service struct {
	db *db.Client
}

func NewService(client *db.Client) *Service {
	return &Service{db: client}
}

// Add puts a product in the user's cart, incrementing the quantity when a
// row for the pair already exists.
func (s *Service) Add(ctx context.Context, userID, productID uuid.UUID, quantity int) (*models.CartItem, error) {
	if quantity <= 0 {
		return nil, errors.New(errors.CodeValidation, "quantity must be positive")
	}

	var product models.Product
	err := s.db.Gorm().WithContext(ctx).First(&product, "id = ? AND is_active = ?", productID, true).Error
	if db.IsNotFound(err) {
		return nil, errors.New(errors.CodeNotFound, "product not found")
	}
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "load product")
	}

	var item models.CartItem
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		err := tx.Where("user_id = ? AND product_id = ?", userID, productID).
			First(&item).Error
		if db.IsNotFound(err) {
			item = models.CartItem{UserID: userID, ProductID: productID, Quantity: quantity}
			if err := tx.Create(&item).Error; err != nil {
				if db.IsUniqueViolation(err) {
					return errors.Wrap(errors.CodeConflict, err, "cart row already exists")
				}
				return errors.Wrap(errors.CodeInternal, err, "create cart item")
			}
			return nil
		}
		if err != nil {
			return errors.Wrap(errors.CodeInternal, err, "load cart item")
		}

		item.Quantity += quantity
		if err := tx.Model(&item).Update("quantity", item.Quantity).Error; err != nil {
			return errors.Wrap(errors.CodeInternal, err, "update cart quantity")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Remove decrements the quantity of a cart row, deleting it when the
// decrement reaches zero or when quantity is zero (remove all).
func (s *Service) Remove(ctx context.Context, userID, productID uuid.UUID, quantity int) error {
	if quantity < 0 {
		return errors.New(errors.CodeValidation, "quantity must not be negative")
	}

	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var item models.CartItem
		err := tx.Where("user_id = ? AND product_id = ?", userID, productID).
			First(&item).Error
		if db.IsNotFound(err) {
			return errors.New(errors.CodeNotFound, "cart item not found")
		}
		if err != nil {
			return errors.Wrap(errors.CodeInternal, err, "load cart item")
		}

		if quantity == 0 || item.Quantity <= quantity {
			if err := tx.Delete(&item).Error; err != nil {
				return errors.Wrap(errors.CodeInternal, err, "delete cart item")
			}
			return nil
		}

		if err := tx.Model(&item).Update("quantity", item.Quantity-quantity).Error; err != nil {
			return errors.Wrap(errors.CodeInternal, err, "update cart quantity")
		}
		return nil
	})
}

// List returns the user's cart rows with their products preloaded.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	err := s.db.Gorm().WithContext(ctx).
		Preload("Product").
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "list cart")
	}
	return items, nil
}

// ClearTx deletes every cart row for the user inside the caller's
// transaction. Used by create-from-cart so the cart empties atomically with
// the order write.
func ClearTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	if err := tx.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.CartItem{}).Error; err != nil {
		return errors.Wrap(errors.CodeInternal, err, "clear cart")
	}
	return nil
}

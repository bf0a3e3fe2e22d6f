package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lamnguyendev/keymart-backend/pkg/db"
	"github.com/lamnguyendev/keymart-backend/pkg/db/models"
	"github.com/lamnguyendev/keymart-backend/pkg/errors"
)

// Service owns every mutation of product stock counters and serialized
// product items. All writes are guarded conditional updates executed inside
// a transaction the caller provides, so concurrent commits cannot oversell.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

// CheckAvailability verifies that the requested quantity of a product can be
// sold right now. For serialized products it counts unsold items; a pinned
// item must itself be unsold and belong to the product. Read-only.
func (s *Service) CheckAvailability(ctx context.Context, gdb *gorm.DB, productID uuid.UUID, quantity int, productItemID *uuid.UUID) error {
	if quantity <= 0 {
		return errors.New(errors.CodeValidation, "quantity must be positive")
	}

	var product models.Product
	err := gdb.WithContext(ctx).First(&product, "id = ?", productID).Error
	if db.IsNotFound(err) {
		return errors.New(errors.CodeNotFound, "product not found").
			WithDetails(map[string]any{"product_id": productID})
	}
	if err != nil {
		return errors.Wrap(errors.CodeInternal, err, "load product")
	}
	if !product.IsActive {
		return errors.New(errors.CodeNotFound, "product not found").
			WithDetails(map[string]any{"product_id": productID})
	}

	if productItemID != nil {
		var item models.ProductItem
		err := gdb.WithContext(ctx).
			First(&item, "id = ? AND product_id = ?", *productItemID, productID).Error
		if db.IsNotFound(err) {
			return errors.New(errors.CodeNotFound, "product item not found").
				WithDetails(map[string]any{"product_item_id": *productItemID})
		}
		if err != nil {
			return errors.Wrap(errors.CodeInternal, err, "load product item")
		}
		if item.IsSold {
			return errors.New(errors.CodeOutOfStock, "product item already sold").
				WithDetails(map[string]any{"product_item_id": *productItemID})
		}
		if quantity != 1 {
			return errors.New(errors.CodeValidation, "pinned item requires quantity 1")
		}
		return nil
	}

	var unsold int64
	if err := gdb.WithContext(ctx).Model(&models.ProductItem{}).
		Where("product_id = ? AND is_sold = ?", productID, false).
		Count(&unsold).Error; err != nil {
		return errors.Wrap(errors.CodeInternal, err, "count unsold items")
	}

	if unsold > 0 {
		if unsold < int64(quantity) {
			return errors.New(errors.CodeOutOfStock, "insufficient serialized stock").
				WithDetails(map[string]any{"product_id": productID, "available": unsold})
		}
		return nil
	}

	if product.Stock < quantity {
		return errors.New(errors.CodeOutOfStock, "insufficient stock").
			WithDetails(map[string]any{"product_id": productID, "available": product.Stock})
	}
	return nil
}

// CommitSale finalizes stock for every item of a paid order. Serialized
// lines carry the unit they were pinned to at order creation and that exact
// unit is marked sold; manual stock is decremented and the sold counter
// incremented. Runs inside the caller's transaction.
func (s *Service) CommitSale(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	items, err := loadItems(ctx, tx, orderID)
	if err != nil {
		return err
	}

	now := time.Now()
	for _, item := range items {
		if item.ProductItemID != nil {
			if err := markItemSold(ctx, tx, *item.ProductItemID, now); err != nil {
				return err
			}
			continue
		}

		res := tx.WithContext(ctx).Model(&models.Product{}).
			Where("id = ? AND stock >= ?", item.ProductID, item.Quantity).
			Updates(map[string]any{
				"stock": gorm.Expr("stock - ?", item.Quantity),
				"sold":  gorm.Expr("sold + ?", item.Quantity),
			})
		if res.Error != nil {
			return errors.Wrap(errors.CodeInternal, res.Error, "decrement stock")
		}
		if res.RowsAffected == 0 {
			return errors.New(errors.CodeOutOfStock, "stock changed underneath commit").
				WithDetails(map[string]any{"product_id": item.ProductID})
		}
	}
	return nil
}

// ReleaseSale reverses CommitSale for a refunded order. Only the units
// linked to this order's lines return to the unsold pool; other buyers'
// units are never touched. Manual counters are restored symmetrically.
func (s *Service) ReleaseSale(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	items, err := loadItems(ctx, tx, orderID)
	if err != nil {
		return err
	}

	for _, item := range items {
		if item.ProductItemID != nil {
			res := tx.WithContext(ctx).Model(&models.ProductItem{}).
				Where("id = ? AND is_sold = ?", *item.ProductItemID, true).
				Updates(map[string]any{"is_sold": false, "sold_at": nil})
			if res.Error != nil {
				return errors.Wrap(errors.CodeInternal, res.Error, "release product item")
			}
			continue
		}

		res := tx.WithContext(ctx).Model(&models.Product{}).
			Where("id = ? AND sold >= ?", item.ProductID, item.Quantity).
			Updates(map[string]any{
				"stock": gorm.Expr("stock + ?", item.Quantity),
				"sold":  gorm.Expr("sold - ?", item.Quantity),
			})
		if res.Error != nil {
			return errors.Wrap(errors.CodeInternal, res.Error, "restore stock")
		}
		if res.RowsAffected == 0 {
			return errors.New(errors.CodeStateConflict, "sold counter lower than release quantity").
				WithDetails(map[string]any{"product_id": item.ProductID})
		}
	}
	return nil
}

// PinUnsoldItems selects the oldest unsold units of a serialized product for
// a new order line. The units stay unsold until payment commits them, so two
// pending orders may pin the same unit; the conditional update in CommitSale
// lets only the first settlement win.
func (s *Service) PinUnsoldItems(ctx context.Context, gdb *gorm.DB, productID uuid.UUID, quantity int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := gdb.WithContext(ctx).Model(&models.ProductItem{}).
		Where("product_id = ? AND is_sold = ?", productID, false).
		Order("created_at ASC").
		Limit(quantity).
		Pluck("id", &ids).Error; err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "select unsold items")
	}
	if len(ids) < quantity {
		return nil, errors.New(errors.CodeOutOfStock, "insufficient serialized stock").
			WithDetails(map[string]any{"product_id": productID, "available": len(ids)})
	}
	return ids, nil
}

// HasSerializedStock reports whether the product is tracked per unit.
func (s *Service) HasSerializedStock(ctx context.Context, gdb *gorm.DB, productID uuid.UUID) (bool, error) {
	var total int64
	if err := gdb.WithContext(ctx).Model(&models.ProductItem{}).
		Where("product_id = ?", productID).
		Count(&total).Error; err != nil {
		return false, errors.Wrap(errors.CodeInternal, err, "count product items")
	}
	return total > 0, nil
}

func loadItems(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) ([]models.OrderItem, error) {
	var items []models.OrderItem
	if err := tx.WithContext(ctx).
		Where("order_id = ?", orderID).
		Find(&items).Error; err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "load order items")
	}
	if len(items) == 0 {
		return nil, errors.New(errors.CodeNotFound, "order has no items").
			WithDetails(map[string]any{"order_id": orderID})
	}
	return items, nil
}

func markItemSold(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, at time.Time) error {
	res := tx.WithContext(ctx).Model(&models.ProductItem{}).
		Where("id = ? AND is_sold = ?", itemID, false).
		Updates(map[string]any{"is_sold": true, "sold_at": at})
	if res.Error != nil {
		return errors.Wrap(errors.CodeInternal, res.Error, "mark item sold")
	}
	if res.RowsAffected == 0 {
		return errors.New(errors.CodeOutOfStock, "pinned item no longer available").
			WithDetails(map[string]any{"product_item_id": itemID})
	}
	return nil
}

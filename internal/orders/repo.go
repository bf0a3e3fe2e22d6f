package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lamnguyendev/keymart-backend/pkg/db"
	"github.com/lamnguyendev/keymart-backend/pkg/db/models"
	"github.com/lamnguyendev/keymart-backend/pkg/errors"
	"github.com/lamnguyendev/keymart-backend/pkg/pagination"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) CreateBill(ctx context.Context, bill *models.Bill) error {
	if err := r.db.WithContext(ctx).Create(bill).Error; err != nil {
		return errors.Wrap(errors.CodeInternal, err, "create bill")
	}
	return nil
}

func (r *Repository) CreateOrder(ctx context.Context, order *models.Order) error {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return errors.Wrap(errors.CodeInternal, err, "create order")
	}
	return nil
}

func (r *Repository) CreateOrderItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return errors.New(errors.CodeValidation, "order requires at least one item")
	}
	if err := r.db.WithContext(ctx).Create(&items).Error; err != nil {
		return errors.Wrap(errors.CodeInternal, err, "create order items")
	}
	return nil
}

func (r *Repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Bill").
		Preload("Items").
		Preload("Items.Product").
		Preload("Items.ProductItem").
		First(&order, "id = ?", orderID).Error
	if db.IsNotFound(err) {
		return nil, errors.New(errors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "load order")
	}
	return &order, nil
}

// FindBillByTransactionID matches any of the candidate identifiers. Webhook
// replays arrive after settlement rewrote transaction_id from the gateway
// order code to the settlement reference, so both are tried.
func (r *Repository) FindBillByTransactionID(ctx context.Context, candidates ...string) (*models.Bill, error) {
	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c != "" {
			ids = append(ids, c)
		}
	}
	var bill models.Bill
	err := r.db.WithContext(ctx).
		First(&bill, "transaction_id IN ?", ids).Error
	if db.IsNotFound(err) {
		return nil, errors.New(errors.CodeNotFound, "bill not found")
	}
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "load bill")
	}
	return &bill, nil
}

func (r *Repository) FindOrderByBillID(ctx context.Context, billID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).First(&order, "bill_id = ?", billID).Error
	if db.IsNotFound(err) {
		return nil, errors.New(errors.CodeNotFound, "order not found for bill")
	}
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "load order by bill")
	}
	return &order, nil
}

// UpdateBillStatus moves a bill out of the expected status. RowsAffected of
// zero means the bill already left that status; callers decide what that
// implies.
func (r *Repository) UpdateBillStatus(ctx context.Context, billID uuid.UUID, from, to string, fields map[string]any) (int64, error) {
	updates := map[string]any{"status": to}
	for k, v := range fields {
		updates[k] = v
	}
	res := r.db.WithContext(ctx).Model(&models.Bill{}).
		Where("id = ? AND status = ?", billID, from).
		Updates(updates)
	if res.Error != nil {
		return 0, errors.Wrap(errors.CodeInternal, res.Error, "update bill status")
	}
	return res.RowsAffected, nil
}

// listQuery builds the shared base query for consumer and seller listings.
// Search matches product name or description of any order line.
func (r *Repository) listQuery(ctx context.Context, filters ListFilters) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.Order{}).
		Joins("JOIN bills ON bills.id = orders.bill_id")

	if filters.Status != "" {
		q = q.Where("bills.status = ?", filters.Status)
	}
	if filters.Search != "" {
		pattern := "%" + filters.Search + "%"
		q = q.Where(
			"orders.id IN (?)",
			r.db.Model(&models.OrderItem{}).
				Select("order_items.order_id").
				Joins("JOIN products ON products.id = order_items.product_id").
				Where("products.name LIKE ? OR products.description LIKE ?", pattern, pattern),
		)
	}
	if filters.From != nil {
		q = q.Where("orders.created_at >= ?", *filters.From)
	}
	if filters.To != nil {
		q = q.Where("orders.created_at <= ?", *filters.To)
	}
	return q
}

func (r *Repository) listPage(ctx context.Context, q *gorm.DB, filters ListFilters) (*ListResult, error) {
	limit := pagination.NormalizeLimit(filters.Limit)

	if filters.Cursor != nil {
		q = q.Where(
			"(orders.created_at, orders.id) < (?, ?)",
			filters.Cursor.CreatedAt, filters.Cursor.ID,
		)
	}

	var rows []models.Order
	err := q.
		Preload("Bill").
		Preload("Items").
		Preload("Items.Product").
		Order("orders.created_at DESC, orders.id DESC").
		Limit(pagination.LimitWithBuffer(limit)).
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "list orders")
	}

	result := &ListResult{Orders: rows}
	if len(rows) > limit {
		result.Orders = rows[:limit]
		last := result.Orders[limit-1]
		result.NextCursor = pagination.EncodeCursor(last.CreatedAt, last.ID)
	}
	return result, nil
}

// ListForUser pages through the orders a consumer placed.
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID, filters ListFilters) (*ListResult, error) {
	q := r.listQuery(ctx, filters).Where("orders.user_id = ?", userID)
	return r.listPage(ctx, q, filters)
}

// ListForSeller pages through orders containing at least one of the
// seller's products.
func (r *Repository) ListForSeller(ctx context.Context, sellerID uuid.UUID, filters ListFilters) (*ListResult, error) {
	q := r.listQuery(ctx, filters).Where(
		"orders.id IN (?)",
		r.db.Model(&models.OrderItem{}).
			Select("order_items.order_id").
			Joins("JOIN products ON products.id = order_items.product_id").
			Where("products.seller_id = ?", sellerID),
	)
	return r.listPage(ctx, q, filters)
}

// SellsInOrder reports whether any line of the order belongs to the seller.
func (r *Repository) SellsInOrder(ctx context.Context, sellerID, orderID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.OrderItem{}).
		Joins("JOIN products ON products.id = order_items.product_id").
		Where("order_items.order_id = ? AND products.seller_id = ?", orderID, sellerID).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(errors.CodeInternal, err, "check seller access")
	}
	return count > 0, nil
}

package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/lamnguyendev/keymart-backend/pkg/db/models"
	"github.com/lamnguyendev/keymart-backend/pkg/errors"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(
		sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"),
		&gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)},
	)
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(
		&models.User{}, &models.Product{}, &models.ProductItem{},
		&models.CartItem{}, &models.Bill{}, &models.Order{}, &models.OrderItem{},
	))
	return gdb
}

func seedProduct(t *testing.T, gdb *gorm.DB, stock int) *models.Product {
	t.Helper()
	p := &models.Product{
		SellerID:      uuid.New(),
		Name:          "steam wallet code",
		Price:         120000,
		DiscountPrice: 100000,
		Stock:         stock,
		IsActive:      true,
	}
	require.NoError(t, gdb.Create(p).Error)
	return p
}

func seedItems(t *testing.T, gdb *gorm.DB, productID uuid.UUID, n int) []models.ProductItem {
	t.Helper()
	items := make([]models.ProductItem, 0, n)
	for i := 0; i < n; i++ {
		item := models.ProductItem{ProductID: productID, Credential: "KEY-" + uuid.NewString()}
		require.NoError(t, gdb.Create(&item).Error)
		items = append(items, item)
	}
	return items
}

func seedOrder(t *testing.T, gdb *gorm.DB, items []models.OrderItem) *models.Order {
	t.Helper()
	bill := &models.Bill{UserID: uuid.New(), PaymentMethod: "BANK_TRANSFER", Amount: 100000}
	require.NoError(t, gdb.Create(bill).Error)
	order := &models.Order{UserID: bill.UserID, TotalPrice: bill.Amount, BillID: bill.ID}
	require.NoError(t, gdb.Create(order).Error)
	for i := range items {
		items[i].OrderID = order.ID
		require.NoError(t, gdb.Create(&items[i]).Error)
	}
	return order
}

func TestCheckAvailabilityManualStock(t *testing.T) {
	gdb := openTestDB(t)
	svc := NewService()
	ctx := context.Background()

	product := seedProduct(t, gdb, 3)

	require.NoError(t, svc.CheckAvailability(ctx, gdb, product.ID, 3, nil))

	err := svc.CheckAvailability(ctx, gdb, product.ID, 4, nil)
	require.Error(t, err)
	assert.Equal(t, errors.CodeOutOfStock, errors.As(err).Code())

	err = svc.CheckAvailability(ctx, gdb, uuid.New(), 1, nil)
	require.Error(t, err)
	assert.Equal(t, errors.CodeNotFound, errors.As(err).Code())
}

func TestCheckAvailabilityInactiveProduct(t *testing.T) {
	gdb := openTestDB(t)
	svc := NewService()

	product := seedProduct(t, gdb, 5)
	require.NoError(t, gdb.Model(product).Update("is_active", false).Error)

	err := svc.CheckAvailability(context.Background(), gdb, product.ID, 1, nil)
	require.Error(t, err)
	assert.Equal(t, errors.CodeNotFound, errors.As(err).Code())
}

func TestCheckAvailabilitySerialized(t *testing.T) {
	gdb := openTestDB(t)
	svc := NewService()
	ctx := context.Background()

	product := seedProduct(t, gdb, 0)
	items := seedItems(t, gdb, product.ID, 2)

	require.NoError(t, svc.CheckAvailability(ctx, gdb, product.ID, 2, nil))

	err := svc.CheckAvailability(ctx, gdb, product.ID, 3, nil)
	require.Error(t, err)
	assert.Equal(t, errors.CodeOutOfStock, errors.As(err).Code())

	// pinned item
	require.NoError(t, svc.CheckAvailability(ctx, gdb, product.ID, 1, &items[0].ID))

	err = svc.CheckAvailability(ctx, gdb, product.ID, 2, &items[0].ID)
	require.Error(t, err)
	assert.Equal(t, errors.CodeValidation, errors.As(err).Code())

	require.NoError(t, gdb.Model(&items[0]).Update("is_sold", true).Error)
	err = svc.CheckAvailability(ctx, gdb, product.ID, 1, &items[0].ID)
	require.Error(t, err)
	assert.Equal(t, errors.CodeOutOfStock, errors.As(err).Code())
}

func TestCommitSaleManualStock(t *testing.T) {
	gdb := openTestDB(t)
	svc := NewService()
	ctx := context.Background()

	product := seedProduct(t, gdb, 5)
	order := seedOrder(t, gdb, []models.OrderItem{
		{ProductID: product.ID, Quantity: 2, Price: 200000},
	})

	require.NoError(t, gdb.Transaction(func(tx *gorm.DB) error {
		return svc.CommitSale(ctx, tx, order.ID)
	}))

	var got models.Product
	require.NoError(t, gdb.First(&got, "id = ?", product.ID).Error)
	assert.Equal(t, 3, got.Stock)
	assert.Equal(t, 2, got.Sold)
}

func TestCommitSaleStockExhausted(t *testing.T) {
	gdb := openTestDB(t)
	svc := NewService()
	ctx := context.Background()

	product := seedProduct(t, gdb, 1)
	order := seedOrder(t, gdb, []models.OrderItem{
		{ProductID: product.ID, Quantity: 2, Price: 200000},
	})

	err := gdb.Transaction(func(tx *gorm.DB) error {
		return svc.CommitSale(ctx, tx, order.ID)
	})
	require.Error(t, err)
	assert.Equal(t, errors.CodeOutOfStock, errors.As(err).Code())

	var got models.Product
	require.NoError(t, gdb.First(&got, "id = ?", product.ID).Error)
	assert.Equal(t, 1, got.Stock)
	assert.Equal(t, 0, got.Sold)
}

func TestCommitSalePinnedItem(t *testing.T) {
	gdb := openTestDB(t)
	svc := NewService()
	ctx := context.Background()

	product := seedProduct(t, gdb, 0)
	items := seedItems(t, gdb, product.ID, 2)
	order := seedOrder(t, gdb, []models.OrderItem{
		{ProductID: product.ID, ProductItemID: &items[1].ID, Quantity: 1, Price: 100000},
	})

	require.NoError(t, gdb.Transaction(func(tx *gorm.DB) error {
		return svc.CommitSale(ctx, tx, order.ID)
	}))

	var got models.ProductItem
	require.NoError(t, gdb.First(&got, "id = ?", items[1].ID).Error)
	assert.True(t, got.IsSold)
	assert.NotNil(t, got.SoldAt)

	var other models.ProductItem
	require.NoError(t, gdb.First(&other, "id = ?", items[0].ID).Error)
	assert.False(t, other.IsSold)

	// committing the same pinned item again must fail
	order2 := seedOrder(t, gdb, []models.OrderItem{
		{ProductID: product.ID, ProductItemID: &items[1].ID, Quantity: 1, Price: 100000},
	})
	err := gdb.Transaction(func(tx *gorm.DB) error {
		return svc.CommitSale(ctx, tx, order2.ID)
	})
	require.Error(t, err)
	assert.Equal(t, errors.CodeOutOfStock, errors.As(err).Code())
}

func TestPinUnsoldItemsOldestFirst(t *testing.T) {
	gdb := openTestDB(t)
	svc := NewService()
	ctx := context.Background()

	product := seedProduct(t, gdb, 0)
	items := seedItems(t, gdb, product.ID, 3)
	base := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	for i := range items {
		require.NoError(t, gdb.Model(&items[i]).
			Update("created_at", base.Add(time.Duration(i)*time.Minute)).Error)
	}
	require.NoError(t, gdb.Model(&items[0]).Update("is_sold", true).Error)

	ids, err := svc.PinUnsoldItems(ctx, gdb, product.ID, 2)
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Equal(t, items[1].ID, ids[0])
	assert.Equal(t, items[2].ID, ids[1])

	_, err = svc.PinUnsoldItems(ctx, gdb, product.ID, 3)
	require.Error(t, err)
	assert.Equal(t, errors.CodeOutOfStock, errors.As(err).Code())
}

func TestHasSerializedStock(t *testing.T) {
	gdb := openTestDB(t)
	svc := NewService()
	ctx := context.Background()

	manual := seedProduct(t, gdb, 5)
	serialized := seedProduct(t, gdb, 0)
	items := seedItems(t, gdb, serialized.ID, 1)

	got, err := svc.HasSerializedStock(ctx, gdb, manual.ID)
	require.NoError(t, err)
	assert.False(t, got)

	got, err = svc.HasSerializedStock(ctx, gdb, serialized.ID)
	require.NoError(t, err)
	assert.True(t, got)

	// a fully sold-out serialized product is still unit-tracked
	require.NoError(t, gdb.Model(&items[0]).Update("is_sold", true).Error)
	got, err = svc.HasSerializedStock(ctx, gdb, serialized.ID)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestReleaseSaleRestoresStock(t *testing.T) {
	gdb := openTestDB(t)
	svc := NewService()
	ctx := context.Background()

	product := seedProduct(t, gdb, 5)
	order := seedOrder(t, gdb, []models.OrderItem{
		{ProductID: product.ID, Quantity: 2, Price: 200000},
	})

	require.NoError(t, gdb.Transaction(func(tx *gorm.DB) error {
		return svc.CommitSale(ctx, tx, order.ID)
	}))
	require.NoError(t, gdb.Transaction(func(tx *gorm.DB) error {
		return svc.ReleaseSale(ctx, tx, order.ID)
	}))

	var got models.Product
	require.NoError(t, gdb.First(&got, "id = ?", product.ID).Error)
	assert.Equal(t, 5, got.Stock)
	assert.Equal(t, 0, got.Sold)
}

func TestReleaseSaleSerialized(t *testing.T) {
	gdb := openTestDB(t)
	svc := NewService()
	ctx := context.Background()

	product := seedProduct(t, gdb, 0)
	items := seedItems(t, gdb, product.ID, 1)
	order := seedOrder(t, gdb, []models.OrderItem{
		{ProductID: product.ID, ProductItemID: &items[0].ID, Quantity: 1, Price: 100000},
	})

	require.NoError(t, gdb.Transaction(func(tx *gorm.DB) error {
		return svc.CommitSale(ctx, tx, order.ID)
	}))
	require.NoError(t, gdb.Transaction(func(tx *gorm.DB) error {
		return svc.ReleaseSale(ctx, tx, order.ID)
	}))

	var got models.ProductItem
	require.NoError(t, gdb.First(&got, "id = ?", items[0].ID).Error)
	assert.False(t, got.IsSold)
	assert.Nil(t, got.SoldAt)
}

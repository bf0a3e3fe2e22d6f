package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/lamnguyendev/keymart-backend/pkg/db"
	"github.com/lamnguyendev/keymart-backend/pkg/db/models"
	"github.com/lamnguyendev/keymart-backend/pkg/errors"
)

func openTestDB(t *testing.T) *db.Client {
	t.Helper()
	gdb, err := gorm.Open(
		sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"),
		&gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)},
	)
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&models.Product{}, &models.CartItem{}))
	return db.NewWithGorm(gdb)
}

func seedProduct(t *testing.T, client *db.Client, active bool) *models.Product {
	t.Helper()
	p := &models.Product{
		SellerID: uuid.New(), Name: "key", Price: 100000, DiscountPrice: 90000,
		Stock: 10, IsActive: active,
	}
	require.NoError(t, client.Gorm().Create(p).Error)
	return p
}

func TestAddCreatesAndIncrements(t *testing.T) {
	client := openTestDB(t)
	svc := NewService(client)
	ctx := context.Background()
	userID := uuid.New()

	product := seedProduct(t, client, true)

	item, err := svc.Add(ctx, userID, product.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, item.Quantity)

	item, err = svc.Add(ctx, userID, product.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, item.Quantity)

	var count int64
	require.NoError(t, client.Gorm().Model(&models.CartItem{}).
		Where("user_id = ?", userID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestAddRejectsInactiveProduct(t *testing.T) {
	client := openTestDB(t)
	svc := NewService(client)

	product := seedProduct(t, client, false)

	// the inactive flag must survive the insert
	var got models.Product
	require.NoError(t, client.Gorm().First(&got, "id = ?", product.ID).Error)
	require.False(t, got.IsActive)

	_, err := svc.Add(context.Background(), uuid.New(), product.ID, 1)
	require.Error(t, err)
	assert.Equal(t, errors.CodeNotFound, errors.As(err).Code())
}

func TestRemoveDecrementsAndDeletes(t *testing.T) {
	client := openTestDB(t)
	svc := NewService(client)
	ctx := context.Background()
	userID := uuid.New()

	product := seedProduct(t, client, true)
	_, err := svc.Add(ctx, userID, product.ID, 5)
	require.NoError(t, err)

	require.NoError(t, svc.Remove(ctx, userID, product.ID, 2))

	items, err := svc.List(ctx, userID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity)

	// quantity 0 removes the row entirely
	require.NoError(t, svc.Remove(ctx, userID, product.ID, 0))

	items, err = svc.List(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, items)

	err = svc.Remove(ctx, userID, product.ID, 1)
	require.Error(t, err)
	assert.Equal(t, errors.CodeNotFound, errors.As(err).Code())
}

func TestListPreloadsProducts(t *testing.T) {
	client := openTestDB(t)
	svc := NewService(client)
	ctx := context.Background()
	userID := uuid.New()

	product := seedProduct(t, client, true)
	_, err := svc.Add(ctx, userID, product.ID, 1)
	require.NoError(t, err)

	items, err := svc.List(ctx, userID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].Product)
	assert.Equal(t, product.Name, items[0].Product.Name)
}

func TestClearTx(t *testing.T) {
	client := openTestDB(t)
	svc := NewService(client)
	ctx := context.Background()
	userID := uuid.New()
	otherID := uuid.New()

	product := seedProduct(t, client, true)
	_, err := svc.Add(ctx, userID, product.ID, 1)
	require.NoError(t, err)
	_, err = svc.Add(ctx, otherID, product.ID, 1)
	require.NoError(t, err)

	require.NoError(t, client.Gorm().Transaction(func(tx *gorm.DB) error {
		return ClearTx(ctx, tx, userID)
	}))

	items, err := svc.List(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, items)

	items, err = svc.List(ctx, otherID)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

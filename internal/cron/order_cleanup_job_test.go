package cron

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

	"github.com/lamnguyendev/keymart-backend/pkg/db"
	"github.com/lamnguyendev/keymart-backend/pkg/db/models"
	"github.com/lamnguyendev/keymart-backend/pkg/enums"
)

func openTestDB(t *testing.T) *db.Client {
	t.Helper()
	gdb, err := gorm.Open(
		sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"),
		&gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)},
	)
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(
		&models.Bill{}, &models.Order{}, &models.OrderItem{}, &models.Product{},
	))
	return db.NewWithGorm(gdb)
}

func seedOrderAt(t *testing.T, client *db.Client, status enums.BillStatus, createdAt time.Time) *models.Order {
	t.Helper()
	bill := &models.Bill{
		UserID:        uuid.New(),
		Status:        status,
		PaymentMethod: enums.PaymentMethodBankTransfer,
		Amount:        50000,
		CreatedAt:     createdAt,
	}
	require.NoError(t, client.Gorm().Create(bill).Error)

	order := &models.Order{
		UserID:     bill.UserID,
		TotalPrice: bill.Amount,
		BillID:     bill.ID,
		CreatedAt:  createdAt,
	}
	require.NoError(t, client.Gorm().Create(order).Error)

	item := &models.OrderItem{
		OrderID:   order.ID,
		ProductID: uuid.New(),
		Quantity:  1,
		Price:     50000,
	}
	require.NoError(t, client.Gorm().Create(item).Error)
	return order
}

func newCleanup(client *db.Client, now time.Time) *OrderCleanup {
	c := NewOrderCleanup(client, 15*time.Minute, time.Minute, nil)
	c.now = func() time.Time { return now }
	return c
}

func TestSweepRemovesExpiredPendingOrders(t *testing.T) {
	client := openTestDB(t)
	now := time.Now()
	ctx := context.Background()

	expired := seedOrderAt(t, client, enums.BillStatusPending, now.Add(-16*time.Minute))
	fresh := seedOrderAt(t, client, enums.BillStatusPending, now.Add(-10*time.Minute))
	paid := seedOrderAt(t, client, enums.BillStatusDone, now.Add(-2*time.Hour))

	c := newCleanup(client, now)

	count, err := c.CountExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	removed, err := c.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	var orderCount int64
	require.NoError(t, client.Gorm().Model(&models.Order{}).Count(&orderCount).Error)
	assert.Equal(t, int64(2), orderCount)

	assert.Error(t, client.Gorm().First(&models.Order{}, "id = ?", expired.ID).Error)
	assert.NoError(t, client.Gorm().First(&models.Order{}, "id = ?", fresh.ID).Error)
	assert.NoError(t, client.Gorm().First(&models.Order{}, "id = ?", paid.ID).Error)

	var itemCount int64
	require.NoError(t, client.Gorm().Model(&models.OrderItem{}).
		Where("order_id = ?", expired.ID).Count(&itemCount).Error)
	assert.Equal(t, int64(0), itemCount)

	var billCount int64
	require.NoError(t, client.Gorm().Model(&models.Bill{}).
		Where("id = ?", expired.BillID).Count(&billCount).Error)
	assert.Equal(t, int64(0), billCount)
}

func TestSweepKeepsOrderAtExactThreshold(t *testing.T) {
	client := openTestDB(t)
	now := time.Now()
	ctx := context.Background()

	seedOrderAt(t, client, enums.BillStatusPending, now.Add(-15*time.Minute))

	c := newCleanup(client, now)

	count, err := c.CountExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	removed, err := c.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestSweepIgnoresOrderSettledAfterCount(t *testing.T) {
	client := openTestDB(t)
	now := time.Now()
	ctx := context.Background()

	order := seedOrderAt(t, client, enums.BillStatusPending, now.Add(-20*time.Minute))
	c := newCleanup(client, now)

	count, err := c.CountExpired(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	require.NoError(t, client.Gorm().Model(&models.Bill{}).
		Where("id = ?", order.BillID).
		Update("status", enums.BillStatusDone).Error)

	removed, err := c.Sweep(ctx)
	assert.Equal(t, 0, removed)
	assert.NoError(t, err)

	assert.NoError(t, client.Gorm().First(&models.Order{}, "id = ?", order.ID).Error)
}

func TestSweepRollsBackWhenBillSettlesMidSweep(t *testing.T) {
	client := openTestDB(t)
	now := time.Now()
	ctx := context.Background()

	order := seedOrderAt(t, client, enums.BillStatusPending, now.Add(-30*time.Minute))
	c := newCleanup(client, now)

	// settle the bill right after the order row is deleted, before the bill
	// delete runs, the way a webhook racing the sweep would
	settled := false
	require.NoError(t, client.Gorm().Callback().Delete().After("gorm:delete").
		Register("settle_mid_sweep", func(tx *gorm.DB) {
			if settled || tx.Statement.Table != "orders" {
				return
			}
			settled = true
			tx.Session(&gorm.Session{NewDB: true}).Model(&models.Bill{}).
				Where("id = ?", order.BillID).
				Update("status", enums.BillStatusDone)
		}))

	removed, err := c.Sweep(ctx)
	assert.Equal(t, 0, removed)
	require.Error(t, err)

	// the removal rolled back as a whole: order, items and bill all survive
	assert.NoError(t, client.Gorm().First(&models.Order{}, "id = ?", order.ID).Error)
	assert.NoError(t, client.Gorm().First(&models.Bill{}, "id = ?", order.BillID).Error)
	var itemCount int64
	require.NoError(t, client.Gorm().Model(&models.OrderItem{}).
		Where("order_id = ?", order.ID).Count(&itemCount).Error)
	assert.Equal(t, int64(1), itemCount)
}

func TestRegistryAndNopLocker(t *testing.T) {
	reg := NewRegistry()
	client := openTestDB(t)
	c := newCleanup(client, time.Now())
	reg.Register(c)

	require.Len(t, reg.Jobs(), 1)
	assert.Equal(t, "order_cleanup", reg.Jobs()[0].Name())

	release, ok, err := NopLocker{}.Acquire(context.Background(), "x", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	release()
}

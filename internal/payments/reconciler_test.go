package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/lamnguyendev/keymart-backend/internal/inventory"
	"github.com/lamnguyendev/keymart-backend/pkg/db"
	"github.com/lamnguyendev/keymart-backend/pkg/db/models"
	"github.com/lamnguyendev/keymart-backend/pkg/enums"
	"github.com/lamnguyendev/keymart-backend/pkg/errors"
	"github.com/lamnguyendev/keymart-backend/pkg/payos"
)

func openTestDB(t *testing.T) *db.Client {
	t.Helper()
	gdb, err := gorm.Open(
		sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"),
		&gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)},
	)
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(
		&models.User{}, &models.Product{}, &models.ProductItem{},
		&models.Bill{}, &models.Order{}, &models.OrderItem{},
	))
	return db.NewWithGorm(gdb)
}

type fixture struct {
	client     *db.Client
	reconciler *Reconciler
	gateway    *payos.Client
	product    *models.Product
	order      *models.Order
	bill       *models.Bill
	orderCode  int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client := openTestDB(t)
	gateway := payos.NewClient("https://api.example.com", "c", "k", "test-checksum")

	product := &models.Product{
		SellerID:      uuid.New(),
		Name:          "game key",
		Price:         120000,
		DiscountPrice: 100000,
		Stock:         5,
		IsActive:      true,
	}
	require.NoError(t, client.Gorm().Create(product).Error)

	orderCode := int64(1767330245)
	bill := &models.Bill{
		UserID:        uuid.New(),
		PaymentMethod: enums.PaymentMethodBankTransfer,
		Amount:        200000,
		TransactionID: fmt.Sprintf("%d", orderCode),
	}
	require.NoError(t, client.Gorm().Create(bill).Error)

	order := &models.Order{UserID: bill.UserID, TotalPrice: bill.Amount, BillID: bill.ID}
	require.NoError(t, client.Gorm().Create(order).Error)
	require.NoError(t, client.Gorm().Create(&models.OrderItem{
		OrderID:   order.ID,
		ProductID: product.ID,
		Quantity:  2,
		Price:     200000,
	}).Error)

	return &fixture{
		client:     client,
		reconciler: NewReconciler(client, inventory.NewService(), gateway, nil),
		gateway:    gateway,
		product:    product,
		order:      order,
		bill:       bill,
		orderCode:  orderCode,
	}
}

func (f *fixture) webhook(t *testing.T, data payos.WebhookData) payos.WebhookPayload {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	sig, err := f.gateway.SignData(raw)
	require.NoError(t, err)
	return payos.WebhookPayload{Code: data.Code, Success: data.Code == "00", Data: raw, Signature: sig}
}

func (f *fixture) reloadBill(t *testing.T) *models.Bill {
	t.Helper()
	var bill models.Bill
	require.NoError(t, f.client.Gorm().First(&bill, "id = ?", f.bill.ID).Error)
	return &bill
}

func TestHandleWebhookSettlesPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	payload := f.webhook(t, payos.WebhookData{
		OrderCode: f.orderCode, Amount: 200000, Reference: "FT555", Code: "00",
	})

	outcome, err := f.reconciler.HandleWebhook(ctx, payload)
	require.NoError(t, err)
	assert.True(t, outcome.Accepted)

	bill := f.reloadBill(t)
	assert.Equal(t, enums.BillStatusDone, bill.Status)
	assert.Equal(t, "FT555", bill.TransactionID)

	var product models.Product
	require.NoError(t, f.client.Gorm().First(&product, "id = ?", f.product.ID).Error)
	assert.Equal(t, 3, product.Stock)
	assert.Equal(t, 2, product.Sold)
}

func TestHandleWebhookDuplicateDeliveryIsNoOp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	payload := f.webhook(t, payos.WebhookData{
		OrderCode: f.orderCode, Amount: 200000, Reference: "FT555", Code: "00",
	})

	_, err := f.reconciler.HandleWebhook(ctx, payload)
	require.NoError(t, err)

	outcome, err := f.reconciler.HandleWebhook(ctx, payload)
	require.NoError(t, err)
	assert.True(t, outcome.Accepted)
	assert.Equal(t, "already processed", outcome.Message)

	// stock committed exactly once
	var product models.Product
	require.NoError(t, f.client.Gorm().First(&product, "id = ?", f.product.ID).Error)
	assert.Equal(t, 3, product.Stock)
	assert.Equal(t, 2, product.Sold)
}

func TestHandleWebhookAmountMismatch(t *testing.T) {
	f := newFixture(t)

	payload := f.webhook(t, payos.WebhookData{
		OrderCode: f.orderCode, Amount: 199999, Reference: "FT555", Code: "00",
	})

	outcome, err := f.reconciler.HandleWebhook(context.Background(), payload)
	require.NoError(t, err)
	assert.False(t, outcome.Accepted)
	assert.Equal(t, "amount mismatch", outcome.Message)

	bill := f.reloadBill(t)
	assert.Equal(t, enums.BillStatusPending, bill.Status)
}

func TestHandleWebhookBillNotFound(t *testing.T) {
	f := newFixture(t)

	payload := f.webhook(t, payos.WebhookData{
		OrderCode: 999999, Amount: 200000, Code: "00",
	})

	outcome, err := f.reconciler.HandleWebhook(context.Background(), payload)
	require.NoError(t, err)
	assert.False(t, outcome.Accepted)
	assert.Equal(t, "bill not found", outcome.Message)
}

func TestHandleWebhookInvalidSignature(t *testing.T) {
	f := newFixture(t)

	payload := f.webhook(t, payos.WebhookData{
		OrderCode: f.orderCode, Amount: 200000, Code: "00",
	})
	payload.Signature = "0000"

	_, err := f.reconciler.HandleWebhook(context.Background(), payload)
	require.Error(t, err)
	assert.Equal(t, errors.CodeUnauthorized, errors.As(err).Code())

	bill := f.reloadBill(t)
	assert.Equal(t, enums.BillStatusPending, bill.Status)
}

func TestHandleWebhookPaymentFailed(t *testing.T) {
	f := newFixture(t)

	payload := f.webhook(t, payos.WebhookData{
		OrderCode: f.orderCode, Amount: 200000, Code: "01", Desc: "insufficient funds",
	})

	outcome, err := f.reconciler.HandleWebhook(context.Background(), payload)
	require.NoError(t, err)
	assert.True(t, outcome.Accepted)
	assert.Equal(t, "payment failed", outcome.Message)

	bill := f.reloadBill(t)
	assert.Equal(t, enums.BillStatusFailed, bill.Status)
	assert.Equal(t, "insufficient funds", bill.Note)

	var product models.Product
	require.NoError(t, f.client.Gorm().First(&product, "id = ?", f.product.ID).Error)
	assert.Equal(t, 5, product.Stock)
}

func TestHandleWebhookRollsBackWhenCommitFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// leave less stock than the order needs so the commit fails after the
	// bill has already moved to DONE inside the transaction
	require.NoError(t, f.client.Gorm().Model(f.product).Update("stock", 1).Error)

	payload := f.webhook(t, payos.WebhookData{
		OrderCode: f.orderCode, Amount: 200000, Reference: "FT555", Code: "00",
	})

	_, err := f.reconciler.HandleWebhook(ctx, payload)
	require.Error(t, err)
	assert.Equal(t, errors.CodeOutOfStock, errors.As(err).Code())

	// the status flip rolled back with the commit: no half-settled state
	bill := f.reloadBill(t)
	assert.Equal(t, enums.BillStatusPending, bill.Status)
	assert.Equal(t, fmt.Sprintf("%d", f.orderCode), bill.TransactionID)

	var product models.Product
	require.NoError(t, f.client.Gorm().First(&product, "id = ?", f.product.ID).Error)
	assert.Equal(t, 1, product.Stock)
	assert.Equal(t, 0, product.Sold)
}

func TestHandleWebhookFailureAfterSettlementIgnored(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	settle := f.webhook(t, payos.WebhookData{
		OrderCode: f.orderCode, Amount: 200000, Reference: "FT555", Code: "00",
	})
	_, err := f.reconciler.HandleWebhook(ctx, settle)
	require.NoError(t, err)

	fail := f.webhook(t, payos.WebhookData{
		OrderCode: f.orderCode, Amount: 200000, Reference: "FT555", Code: "01", Desc: "late failure",
	})
	outcome, err := f.reconciler.HandleWebhook(ctx, fail)
	require.NoError(t, err)
	assert.Equal(t, "already processed", outcome.Message)

	bill := f.reloadBill(t)
	assert.Equal(t, enums.BillStatusDone, bill.Status)
}

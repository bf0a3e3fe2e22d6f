package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/lamnguyendev/keymart-backend/pkg/db/models"
	"github.com/lamnguyendev/keymart-backend/pkg/enums"
	"github.com/lamnguyendev/keymart-backend/pkg/pagination"
)

// NewItem is one requested line of a new order.
type NewItem struct {
	ProductID     uuid.UUID
	ProductItemID *uuid.UUID
	Quantity      int
	Source        enums.OrderSource
}

type CreateInput struct {
	UserID        uuid.UUID
	Items         []NewItem
	PaymentMethod enums.PaymentMethod
	Note          string
}

// CreateResult carries the persisted order plus the gateway checkout handles
// the client needs to complete payment.
type CreateResult struct {
	Order       *models.Order
	OrderCode   int64
	CheckoutURL string
	QRCode      string
}

// ListFilters narrows an order listing. Zero values mean no filtering.
type ListFilters struct {
	Status enums.BillStatus
	Search string
	From   *time.Time
	To     *time.Time
	Limit  int
	Cursor *pagination.Cursor
}

type ListResult struct {
	Orders     []models.Order
	NextCursor string
}

// InvoiceLine is one rendered row of an invoice.
type InvoiceLine struct {
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
	LineTotal   int64  `json:"line_total"`
}

// InvoiceData is the material an invoice is rendered from. Only orders whose
// bill is DONE produce one.
type InvoiceData struct {
	OrderID       uuid.UUID     `json:"order_id"`
	BillID        uuid.UUID     `json:"bill_id"`
	CustomerEmail string        `json:"customer_email"`
	CustomerName  string        `json:"customer_name"`
	Lines         []InvoiceLine `json:"lines"`
	Total         int64         `json:"total"`
	PaidAt        time.Time     `json:"paid_at"`
	Reference     string        `json:"reference"`
}

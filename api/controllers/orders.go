package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lamnguyendev/keymart-backend/api/middleware"
	"github.com/lamnguyendev/keymart-backend/api/responses"
	"github.com/lamnguyendev/keymart-backend/api/validators"
	"github.com/lamnguyendev/keymart-backend/internal/cron"
	"github.com/lamnguyendev/keymart-backend/internal/orders"
	"github.com/lamnguyendev/keymart-backend/pkg/enums"
	"github.com/lamnguyendev/keymart-backend/pkg/errors"
	"github.com/lamnguyendev/keymart-backend/pkg/pagination"
)

type OrdersController struct {
	orders  *orders.Service
	cleanup *cron.OrderCleanup
}

func NewOrdersController(svc *orders.Service, cleanup *cron.OrderCleanup) *OrdersController {
	return &OrdersController{orders: svc, cleanup: cleanup}
}

type newItemRequest struct {
	ProductID     uuid.UUID  `json:"product_id" validate:"required"`
	ProductItemID *uuid.UUID `json:"product_item_id"`
	Quantity      int        `json:"quantity" validate:"required,gt=0"`
}

type createOrderRequest struct {
	Items         []newItemRequest `json:"items" validate:"required,min=1,dive"`
	PaymentMethod string           `json:"payment_method" validate:"required"`
	Note          string           `json:"note" validate:"max=500"`
}

type createFromCartRequest struct {
	PaymentMethod string `json:"payment_method" validate:"required"`
	Note          string `json:"note" validate:"max=500"`
}

type createOrderResponse struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderCode   int64     `json:"order_code"`
	TotalPrice  int64     `json:"total_price"`
	CheckoutURL string    `json:"checkout_url"`
	QRCode      string    `json:"qr_code"`
}

func (c *OrdersController) Create(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())

	var req createOrderRequest
	if err := validators.DecodeJSONBody(r, &req); err != nil {
		responses.WriteError(w, r, err)
		return
	}

	items := make([]orders.NewItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, orders.NewItem{
			ProductID:     item.ProductID,
			ProductItemID: item.ProductItemID,
			Quantity:      item.Quantity,
			Source:        enums.OrderSourceDirect,
		})
	}

	result, err := c.orders.Create(r.Context(), orders.CreateInput{
		UserID:        identity.UserID,
		Items:         items,
		PaymentMethod: enums.PaymentMethod(req.PaymentMethod),
		Note:          req.Note,
	})
	if err != nil {
		responses.WriteError(w, r, err)
		return
	}
	writeCreateResult(w, result)
}

func (c *OrdersController) CreateFromCart(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())

	var req createFromCartRequest
	if err := validators.DecodeJSONBody(r, &req); err != nil {
		responses.WriteError(w, r, err)
		return
	}

	result, err := c.orders.CreateFromCart(r.Context(), identity.UserID,
		enums.PaymentMethod(req.PaymentMethod), req.Note)
	if err != nil {
		responses.WriteError(w, r, err)
		return
	}
	writeCreateResult(w, result)
}

func writeCreateResult(w http.ResponseWriter, result *orders.CreateResult) {
	responses.WriteSuccess(w, http.StatusCreated, createOrderResponse{
		OrderID:     result.Order.ID,
		OrderCode:   result.OrderCode,
		TotalPrice:  result.Order.TotalPrice,
		CheckoutURL: result.CheckoutURL,
		QRCode:      result.QRCode,
	})
}

func parseListFilters(r *http.Request) (orders.ListFilters, error) {
	q := r.URL.Query()
	filters := orders.ListFilters{
		Status: enums.BillStatus(q.Get("status")),
		Search: q.Get("search"),
	}

	if filters.Status != "" && !filters.Status.IsValid() {
		return filters, errors.New(errors.CodeValidation, "unknown status filter")
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return filters, errors.New(errors.CodeValidation, "invalid limit")
		}
		filters.Limit = limit
	}
	if raw := q.Get("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filters, errors.New(errors.CodeValidation, "invalid from timestamp")
		}
		filters.From = &from
	}
	if raw := q.Get("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filters, errors.New(errors.CodeValidation, "invalid to timestamp")
		}
		filters.To = &to
	}
	cursor, err := pagination.ParseCursor(q.Get("cursor"))
	if err != nil {
		return filters, errors.Wrap(errors.CodeValidation, err, "invalid cursor")
	}
	filters.Cursor = cursor
	return filters, nil
}

func (c *OrdersController) List(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())

	filters, err := parseListFilters(r)
	if err != nil {
		responses.WriteError(w, r, err)
		return
	}

	result, err := c.orders.ListForUser(r.Context(), identity.UserID, filters)
	if err != nil {
		responses.WriteError(w, r, err)
		return
	}
	responses.WriteSuccessMeta(w, http.StatusOK, result.Orders,
		map[string]string{"next_cursor": result.NextCursor})
}

func (c *OrdersController) ListForSeller(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())

	filters, err := parseListFilters(r)
	if err != nil {
		responses.WriteError(w, r, err)
		return
	}

	result, err := c.orders.ListForSeller(r.Context(), identity.UserID, filters)
	if err != nil {
		responses.WriteError(w, r, err)
		return
	}
	responses.WriteSuccessMeta(w, http.StatusOK, result.Orders,
		map[string]string{"next_cursor": result.NextCursor})
}

func orderIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		return uuid.Nil, errors.New(errors.CodeValidation, "invalid order id")
	}
	return id, nil
}

func (c *OrdersController) Get(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())

	orderID, err := orderIDParam(r)
	if err != nil {
		responses.WriteError(w, r, err)
		return
	}

	order, err := c.orders.FindOne(r.Context(), identity.UserID, identity.Role, orderID)
	if err != nil {
		responses.WriteError(w, r, err)
		return
	}
	responses.WriteSuccess(w, http.StatusOK, order)
}

func (c *OrdersController) Items(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())

	orderID, err := orderIDParam(r)
	if err != nil {
		responses.WriteError(w, r, err)
		return
	}

	items, err := c.orders.GetOrderItems(r.Context(), identity.UserID, identity.Role, orderID)
	if err != nil {
		responses.WriteError(w, r, err)
		return
	}
	responses.WriteSuccess(w, http.StatusOK, items)
}

func (c *OrdersController) Invoice(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())

	orderID, err := orderIDParam(r)
	if err != nil {
		responses.WriteError(w, r, err)
		return
	}

	data, err := c.orders.Invoice(r.Context(), identity.UserID, identity.Role, orderID)
	if err != nil {
		responses.WriteError(w, r, err)
		return
	}
	responses.WriteSuccess(w, http.StatusOK, data)
}

func (c *OrdersController) Cancel(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())

	orderID, err := orderIDParam(r)
	if err != nil {
		responses.WriteError(w, r, err)
		return
	}

	if err := c.orders.Cancel(r.Context(), identity.UserID, orderID); err != nil {
		responses.WriteError(w, r, err)
		return
	}
	responses.WriteSuccess(w, http.StatusOK, map[string]bool{"cancelled": true})
}

func (c *OrdersController) Refund(w http.ResponseWriter, r *http.Request) {
	orderID, err := orderIDParam(r)
	if err != nil {
		responses.WriteError(w, r, err)
		return
	}

	if err := c.orders.Refund(r.Context(), orderID); err != nil {
		responses.WriteError(w, r, err)
		return
	}
	responses.WriteSuccess(w, http.StatusOK, map[string]bool{"refunded": true})
}

// ExpiredCount reports how many orders the cleanup would remove right now.
func (c *OrdersController) ExpiredCount(w http.ResponseWriter, r *http.Request) {
	count, err := c.cleanup.CountExpired(r.Context())
	if err != nil {
		responses.WriteError(w, r, err)
		return
	}
	responses.WriteSuccess(w, http.StatusOK, map[string]int64{"expired": count})
}

// RunCleanup triggers the expiry sweep outside its schedule.
func (c *OrdersController) RunCleanup(w http.ResponseWriter, r *http.Request) {
	removed, err := c.cleanup.Sweep(r.Context())
	if err != nil {
		responses.WriteError(w, r, err)
		return
	}
	responses.WriteSuccess(w, http.StatusOK, map[string]int{"removed": removed})
}

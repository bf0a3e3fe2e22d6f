package orders

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lamnguyendev/keymart-backend/internal/cart"
	"github.com/lamnguyendev/keymart-backend/internal/inventory"
	"github.com/lamnguyendev/keymart-backend/pkg/config"
	"github.com/lamnguyendev/keymart-backend/pkg/db"
	"github.com/lamnguyendev/keymart-backend/pkg/db/models"
	"github.com/lamnguyendev/keymart-backend/pkg/enums"
	"github.com/lamnguyendev/keymart-backend/pkg/errors"
	"github.com/lamnguyendev/keymart-backend/pkg/logger"
	"github.com/lamnguyendev/keymart-backend/pkg/payos"
)

// PaymentGateway is the slice of the gateway client the order flow needs.
type PaymentGateway interface {
	CreatePaymentLink(ctx context.Context, req payos.CreateLinkRequest) (*payos.PaymentLink, error)
}

// InvoiceRenderer turns invoice data into a downloadable document.
type InvoiceRenderer interface {
	Render(ctx context.Context, data *InvoiceData) ([]byte, error)
}

type Service struct {
	db       *db.Client
	repo     *Repository
	inv      *inventory.Service
	gateway  PaymentGateway
	renderer InvoiceRenderer
	payCfg   config.PayOSConfig
	now      func() time.Time
}

func NewService(client *db.Client, inv *inventory.Service, gateway PaymentGateway, payCfg config.PayOSConfig) *Service {
	return &Service{
		db:      client,
		repo:    NewRepository(client.Gorm()),
		inv:     inv,
		gateway: gateway,
		payCfg:  payCfg,
		now:     time.Now,
	}
}

func (s *Service) WithRenderer(r InvoiceRenderer) *Service {
	s.renderer = r
	return s
}

// Create places an order. Availability is checked per item up front; the
// bill, order, items and gateway payment link are then written in one
// transaction so a gateway failure leaves nothing behind.
func (s *Service) Create(ctx context.Context, input CreateInput) (*CreateResult, error) {
	if len(input.Items) == 0 {
		return nil, errors.New(errors.CodeValidation, "order requires at least one item")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, errors.New(errors.CodeValidation, "unknown payment method")
	}

	gdb := s.db.Gorm()
	for _, item := range input.Items {
		if err := s.inv.CheckAvailability(ctx, gdb, item.ProductID, item.Quantity, item.ProductItemID); err != nil {
			return nil, err
		}
	}

	lines, total, err := s.priceItems(ctx, gdb, input.Items)
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx).WithFields(map[string]any{
		"user_id": input.UserID,
		"amount":  total,
	})

	orderCode := payos.NewOrderCode(s.now())
	result := &CreateResult{OrderCode: orderCode}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		bill := &models.Bill{
			UserID:        input.UserID,
			Type:          enums.BillTypeMoneyIn,
			Status:        enums.BillStatusPending,
			PaymentMethod: input.PaymentMethod,
			Amount:        total,
			TransactionID: strconv.FormatInt(orderCode, 10),
			Note:          input.Note,
		}
		if err := repo.CreateBill(ctx, bill); err != nil {
			return err
		}

		order := &models.Order{
			UserID:     input.UserID,
			TotalPrice: total,
			BillID:     bill.ID,
		}
		if err := repo.CreateOrder(ctx, order); err != nil {
			return err
		}

		for i := range lines {
			lines[i].OrderID = order.ID
		}
		if err := repo.CreateOrderItems(ctx, lines); err != nil {
			return err
		}

		if fromCart(input.Items) {
			if err := cart.ClearTx(ctx, tx, input.UserID); err != nil {
				return err
			}
		}

		link, err := s.gateway.CreatePaymentLink(ctx, payos.CreateLinkRequest{
			OrderCode:   orderCode,
			Amount:      total,
			Description: fmt.Sprintf("order %d", orderCode),
			ReturnURL:   s.payCfg.ReturnURL,
			CancelURL:   s.payCfg.CancelURL,
			ExpiredAt:   s.now().Add(s.payCfg.ExpireWindow).Unix(),
		})
		if err != nil {
			return errors.Wrap(errors.CodeDependency, err, "create payment link")
		}

		order.Bill = bill
		result.Order = order
		result.CheckoutURL = link.CheckoutURL
		result.QRCode = link.QRCode
		return nil
	})
	if err != nil {
		log.Error(err, "order creation failed")
		return nil, err
	}

	log.WithField("order_id", result.Order.ID).Info("order created")
	return result, nil
}

// CreateFromCart turns the user's cart into an order. The consumed cart
// rows are deleted in the same transaction as the order write.
func (s *Service) CreateFromCart(ctx context.Context, userID uuid.UUID, paymentMethod enums.PaymentMethod, note string) (*CreateResult, error) {
	var cartItems []models.CartItem
	err := s.db.Gorm().WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&cartItems).Error
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "load cart")
	}
	if len(cartItems) == 0 {
		return nil, errors.New(errors.CodeValidation, "cart is empty")
	}

	items := make([]NewItem, 0, len(cartItems))
	for _, ci := range cartItems {
		items = append(items, NewItem{
			ProductID: ci.ProductID,
			Quantity:  ci.Quantity,
			Source:    enums.OrderSourceCart,
		})
	}

	return s.Create(ctx, CreateInput{
		UserID:        userID,
		Items:         items,
		PaymentMethod: paymentMethod,
		Note:          note,
	})
}

// priceItems expands order input into priced order lines. Serialized products
// are pinned here: each line gets the id of the exact unit it will receive, so
// settlement and refund always act on the units this order owns.
func (s *Service) priceItems(ctx context.Context, gdb *gorm.DB, items []NewItem) ([]models.OrderItem, int64, error) {
	lines := make([]models.OrderItem, 0, len(items))
	var total int64

	for _, item := range items {
		var product models.Product
		if err := gdb.WithContext(ctx).First(&product, "id = ?", item.ProductID).Error; err != nil {
			return nil, 0, errors.Wrap(errors.CodeInternal, err, "load product for pricing")
		}

		unit := product.DiscountPrice
		if unit <= 0 {
			unit = product.Price
		}
		total += unit * int64(item.Quantity)

		source := item.Source
		if source == "" {
			source = enums.OrderSourceDirect
		}

		if item.ProductItemID != nil {
			lines = append(lines, models.OrderItem{
				ProductID:     item.ProductID,
				ProductItemID: item.ProductItemID,
				Quantity:      item.Quantity,
				Price:         unit * int64(item.Quantity),
				Source:        source,
			})
			continue
		}

		serialized, err := s.inv.HasSerializedStock(ctx, gdb, item.ProductID)
		if err != nil {
			return nil, 0, err
		}
		if !serialized {
			lines = append(lines, models.OrderItem{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				Price:     unit * int64(item.Quantity),
				Source:    source,
			})
			continue
		}

		unitIDs, err := s.inv.PinUnsoldItems(ctx, gdb, item.ProductID, item.Quantity)
		if err != nil {
			return nil, 0, err
		}
		for _, id := range unitIDs {
			id := id
			lines = append(lines, models.OrderItem{
				ProductID:     item.ProductID,
				ProductItemID: &id,
				Quantity:      1,
				Price:         unit,
				Source:        source,
			})
		}
	}
	return lines, total, nil
}

func fromCart(items []NewItem) bool {
	for _, item := range items {
		if item.Source == enums.OrderSourceCart {
			return true
		}
	}
	return false
}

// ListForUser pages through the requesting consumer's own orders.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID, filters ListFilters) (*ListResult, error) {
	return s.repo.ListForUser(ctx, userID, filters)
}

// ListForSeller pages through orders containing the seller's products.
func (s *Service) ListForSeller(ctx context.Context, sellerID uuid.UUID, filters ListFilters) (*ListResult, error) {
	return s.repo.ListForSeller(ctx, sellerID, filters)
}

// FindOne loads an order visible to the requester: the owner, an admin, or
// the seller of any contained product. Anyone else sees not-found.
func (s *Service) FindOne(ctx context.Context, requesterID uuid.UUID, role enums.MemberRole, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeRead(ctx, requesterID, role, order); err != nil {
		return nil, err
	}
	return order, nil
}

// GetOrderItems returns the lines of an order the requester may see.
// Credentials of serialized items are exposed only once the bill is DONE.
func (s *Service) GetOrderItems(ctx context.Context, requesterID uuid.UUID, role enums.MemberRole, orderID uuid.UUID) ([]models.OrderItem, error) {
	order, err := s.FindOne(ctx, requesterID, role, orderID)
	if err != nil {
		return nil, err
	}
	if order.Bill == nil || order.Bill.Status != enums.BillStatusDone {
		for i := range order.Items {
			order.Items[i].ProductItem = nil
		}
	}
	return order.Items, nil
}

func (s *Service) authorizeRead(ctx context.Context, requesterID uuid.UUID, role enums.MemberRole, order *models.Order) error {
	if order.UserID == requesterID || role == enums.MemberRoleAdmin {
		return nil
	}
	if role == enums.MemberRoleSeller {
		sells, err := s.repo.SellsInOrder(ctx, requesterID, order.ID)
		if err != nil {
			return err
		}
		if sells {
			return nil
		}
	}
	return errors.New(errors.CodeNotFound, "order not found")
}

// Invoice assembles invoice data for a paid order. Orders whose bill is not
// DONE have no invoice.
func (s *Service) Invoice(ctx context.Context, requesterID uuid.UUID, role enums.MemberRole, orderID uuid.UUID) (*InvoiceData, error) {
	order, err := s.FindOne(ctx, requesterID, role, orderID)
	if err != nil {
		return nil, err
	}
	if order.Bill == nil || order.Bill.Status != enums.BillStatusDone {
		return nil, errors.New(errors.CodeStateConflict, "invoice available only for paid orders")
	}

	var user models.User
	if err := s.db.Gorm().WithContext(ctx).First(&user, "id = ?", order.UserID).Error; err != nil && !db.IsNotFound(err) {
		return nil, errors.Wrap(errors.CodeInternal, err, "load customer")
	}

	data := &InvoiceData{
		OrderID:       order.ID,
		BillID:        order.BillID,
		CustomerEmail: user.Email,
		CustomerName:  user.FullName,
		Total:         order.TotalPrice,
		PaidAt:        order.Bill.UpdatedAt,
		Reference:     order.Bill.TransactionID,
	}
	for _, item := range order.Items {
		name := ""
		if item.Product != nil {
			name = item.Product.Name
		}
		unit := item.Price
		if item.Quantity > 0 {
			unit = item.Price / int64(item.Quantity)
		}
		data.Lines = append(data.Lines, InvoiceLine{
			ProductName: name,
			Quantity:    item.Quantity,
			UnitPrice:   unit,
			LineTotal:   item.Price,
		})
	}
	return data, nil
}

// RenderInvoice produces the downloadable invoice document.
func (s *Service) RenderInvoice(ctx context.Context, requesterID uuid.UUID, role enums.MemberRole, orderID uuid.UUID) ([]byte, error) {
	data, err := s.Invoice(ctx, requesterID, role, orderID)
	if err != nil {
		return nil, err
	}
	if s.renderer == nil {
		return nil, errors.New(errors.CodeDependency, "invoice renderer not configured")
	}
	return s.renderer.Render(ctx, data)
}

// Cancel voids a pending order at the owner's request. The bill moves to
// CANCELLED; stock is untouched because nothing was committed while PENDING.
func (s *Service) Cancel(ctx context.Context, userID, orderID uuid.UUID) error {
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.UserID != userID {
		return errors.New(errors.CodeNotFound, "order not found")
	}

	affected, err := s.repo.UpdateBillStatus(ctx, order.BillID,
		string(enums.BillStatusPending), string(enums.BillStatusCancelled), nil)
	if err != nil {
		return err
	}
	if affected == 0 {
		return errors.New(errors.CodeStateConflict, "only pending orders can be cancelled").
			WithDetails(map[string]any{"order_id": orderID})
	}

	logger.FromContext(ctx).WithFields(map[string]any{
		"order_id": orderID,
		"user_id":  userID,
	}).Info("order cancelled")
	return nil
}

// Refund reverses a paid order: the bill moves to REFUNDED and the
// committed stock is released, both in one transaction. Admin only; the
// caller enforces the role.
func (s *Service) Refund(ctx context.Context, orderID uuid.UUID) error {
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		return err
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		affected, err := repo.UpdateBillStatus(ctx, order.BillID,
			string(enums.BillStatusDone), string(enums.BillStatusRefunded), nil)
		if err != nil {
			return err
		}
		if affected == 0 {
			return errors.New(errors.CodeStateConflict, "only paid orders can be refunded").
				WithDetails(map[string]any{"order_id": orderID})
		}
		return s.inv.ReleaseSale(ctx, tx, orderID)
	})
	if err != nil {
		return err
	}

	logger.FromContext(ctx).WithField("order_id", orderID).Info("order refunded")
	return nil
}

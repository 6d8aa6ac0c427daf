package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"shop-service/internal/models"
	"shop-service/internal/store"
	"shop-service/internal/util"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var validate = validator.New()

// OrderStore is the persistence the order service needs
type OrderStore interface {
	GetActiveCart(ctx context.Context, sessionKey string) (*models.Cart, error)
	GetCartLines(ctx context.Context, cartID int64) ([]models.CartLine, error)
	CreateOrderFromCartTx(ctx context.Context, in store.NewOrder) (*models.OrderDetail, error)
	GetOrderForSession(ctx context.Context, orderNumber, sessionKey string) (*models.OrderDetail, error)
}

// OrderPlacedPublisher announces committed orders
type OrderPlacedPublisher interface {
	PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
}

// CheckoutRequest is the customer input of a checkout
type CheckoutRequest struct {
	Email           string
	ShippingAddress models.OrderAddress
	BillingAddress  *models.OrderAddress
}

// OrderService handles order business logic
type OrderService struct {
	store          OrderStore
	eventPublisher OrderPlacedPublisher
	numbers        *OrderNumberGenerator
	maxAttempts    int
	logger         *zap.Logger
}

// NewOrderService creates a new order service. eventPublisher may be nil.
func NewOrderService(
	store OrderStore,
	eventPublisher OrderPlacedPublisher,
	numbers *OrderNumberGenerator,
	maxAttempts int,
) *OrderService {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &OrderService{
		store:          store,
		eventPublisher: eventPublisher,
		numbers:        numbers,
		maxAttempts:    maxAttempts,
		logger:         util.Named("order-service"),
	}
}

// CheckCart returns ErrEmptyCart when the session has no active cart or
// the cart has no items
func (s *OrderService) CheckCart(ctx context.Context, sessionKey string) error {
	_, err := s.checkoutCart(ctx, sessionKey)
	return err
}

func (s *OrderService) checkoutCart(ctx context.Context, sessionKey string) (*models.Cart, error) {
	cart, err := s.store.GetActiveCart(ctx, sessionKey)
	if errors.Is(err, store.ErrNotFound) {
		util.OrdersFailedTotal.WithLabelValues("empty_cart").Inc()
		return nil, ErrEmptyCart
	}
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	lines, err := s.store.GetCartLines(ctx, cart.ID)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("failed to load cart items: %w", err)
	}
	if len(lines) == 0 {
		util.OrdersFailedTotal.WithLabelValues("empty_cart").Inc()
		return nil, ErrEmptyCart
	}
	return cart, nil
}

// CreateOrderFromCart converts the session's active cart into a PENDING order.
// An empty cart is reported before the request is validated. Stock is re-validated under row locks and deducted in the same transaction
// that closes the cart.
func (s *OrderService) CreateOrderFromCart(ctx context.Context, sessionKey string, req *CheckoutRequest) (detail *models.OrderDetail, err error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrderFromCart")
	defer func() { util.EndSpan(span, err) }()

	start := time.Now()
	defer func() {
		util.CheckoutLatency.Observe(time.Since(start).Seconds())
	}()

	cart, err := s.checkoutCart(ctx, sessionKey)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int64("cart_id", cart.ID))

	if err := validateCheckout(req); err != nil {
		util.OrdersFailedTotal.WithLabelValues("invalid_request").Inc()
		return nil, err
	}

	shipping := req.ShippingAddress
	shipping.Email = req.Email

	var billing *models.OrderAddress
	if req.BillingAddress != nil {
		b := *req.BillingAddress
		if b.Email == "" {
			b.Email = req.Email
		}
		billing = &b
	}

	detail, err = s.store.CreateOrderFromCartTx(ctx, store.NewOrder{
		CartID:          cart.ID,
		Email:           req.Email,
		ShippingAddress: shipping,
		BillingAddress:  billing,
		NextOrderNumber: s.numbers.Next,
		MaxAttempts:     s.maxAttempts,
		Build:           BuildOrderItems,
	})
	if err != nil {
		return nil, s.checkoutFailure(cart.ID, err)
	}

	util.OrdersCreatedTotal.Inc()
	span.SetAttributes(attribute.String("order_number", detail.OrderNumber))
	s.logger.Info("Order created",
		zap.String("order_id", detail.ID),
		zap.String("order_number", detail.OrderNumber),
		zap.Int64("cart_id", cart.ID),
		zap.String("total", detail.TotalAmount.StringFixed(2)),
		util.SessionField(sessionKey))

	s.publishOrderPlaced(ctx, detail)
	return detail, nil
}

// GetOrder returns an order placed from one of the session's carts
func (s *OrderService) GetOrder(ctx context.Context, sessionKey, orderNumber string) (*models.OrderDetail, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.GetOrder", attribute.String("order_number", orderNumber))
	defer span.End()

	detail, err := s.store.GetOrderForSession(ctx, orderNumber, sessionKey)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return detail, nil
}

// BuildOrderItems validates locked cart lines against stock and snapshots
// them into order items
func BuildOrderItems(lines []models.CartLine) ([]models.OrderItem, decimal.Decimal, error) {
	if len(lines) == 0 {
		return nil, decimal.Zero, ErrEmptyCart
	}

	items := make([]models.OrderItem, 0, len(lines))
	total := decimal.Zero
	for _, line := range lines {
		if line.Quantity > line.StockQuantity {
			return nil, decimal.Zero, &OutOfStockError{
				VariantID: line.VariantID,
				SKU:       line.SKU,
				Available: line.StockQuantity,
				Requested: line.Quantity,
			}
		}

		lineTotal := line.LineTotal()
		items = append(items, models.OrderItem{
			ProductVariantID: sql.NullInt64{Int64: line.VariantID, Valid: true},
			ProductSKU:       line.SKU,
			ProductName:      line.ProductTitle,
			Attributes:       line.Attributes.Clone(),
			Quantity:         line.Quantity,
			UnitPrice:        line.Price,
			TotalPrice:       lineTotal,
		})
		total = total.Add(lineTotal)
	}

	return items, total, nil
}

func (s *OrderService) checkoutFailure(cartID int64, err error) error {
	switch {
	case errors.Is(err, ErrOutOfStock):
		util.OrdersFailedTotal.WithLabelValues("out_of_stock").Inc()
		s.logger.Info("Checkout rejected", zap.Int64("cart_id", cartID), zap.Error(err))
		return err
	case errors.Is(err, ErrEmptyCart), errors.Is(err, store.ErrNotFound):
		util.OrdersFailedTotal.WithLabelValues("empty_cart").Inc()
		return ErrEmptyCart
	case errors.Is(err, store.ErrOrderNumberExhausted):
		util.OrdersFailedTotal.WithLabelValues("order_number").Inc()
	default:
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
	}

	s.logger.Error("Failed to create order", zap.Int64("cart_id", cartID), zap.Error(err))
	return fmt.Errorf("failed to create order: %w", err)
}

func (s *OrderService) publishOrderPlaced(ctx context.Context, detail *models.OrderDetail) {
	if s.eventPublisher == nil {
		return
	}

	items := make([]models.OrderItemData, 0, len(detail.Items))
	for _, item := range detail.Items {
		items = append(items, models.OrderItemData{
			SKU:       item.ProductSKU,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	event := &models.OrderPlacedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderPlaced,
			Timestamp: time.Now(),
		},
		OrderID:     detail.ID,
		OrderNumber: detail.OrderNumber,
		Email:       detail.Email,
		TotalAmount: detail.TotalAmount,
		Items:       items,
	}

	// The order is committed; a publish failure must not fail the checkout.
	if err := s.eventPublisher.PublishOrderPlaced(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderPlaced event",
			zap.String("order_number", detail.OrderNumber),
			zap.Error(err))
	}
}

func validateCheckout(req *CheckoutRequest) error {
	fields := map[string]string{}

	if strings.TrimSpace(req.Email) == "" {
		fields["email"] = "This field is required."
	} else if err := validate.Var(req.Email, "email"); err != nil {
		fields["email"] = "Enter a valid email address."
	}

	checkAddress := func(prefix string, a *models.OrderAddress) {
		required := map[string]string{
			"first_name":     a.FirstName,
			"last_name":      a.LastName,
			"address_line_1": a.AddressLine1,
			"city":           a.City,
			"postal_code":    a.PostalCode,
			"country":        a.Country,
		}
		for name, value := range required {
			if strings.TrimSpace(value) == "" {
				fields[prefix+"."+name] = "This field is required."
			}
		}
		if a.Country != "" && validate.Var(a.Country, "iso3166_1_alpha2") != nil {
			fields[prefix+".country"] = "Select a valid country."
		}
	}
	checkAddress("shipping_address", &req.ShippingAddress)
	if req.BillingAddress != nil {
		checkAddress("billing_address", req.BillingAddress)
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

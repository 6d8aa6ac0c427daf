package service

import (
	"context"
	"errors"
	"fmt"

	"shop-service/internal/models"
	"shop-service/internal/store"
	"shop-service/internal/util"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const maxCartCreateAttempts = 3

// CartStore is the persistence the cart service needs
type CartStore interface {
	GetActiveCart(ctx context.Context, sessionKey string) (*models.Cart, error)
	CreateCart(ctx context.Context, sessionKey string) (*models.Cart, error)
	GetCartLines(ctx context.Context, cartID int64) ([]models.CartLine, error)
	AddCartItemTx(ctx context.Context, cartID, variantID int64, quantity int) (*models.CartItem, error)
	SetCartItemQuantityTx(ctx context.Context, sessionKey string, itemID int64, quantity int) error
	DeleteCartItem(ctx context.Context, sessionKey string, itemID int64) error
}

// CartView is a cart with its lines and freshly computed totals
type CartView struct {
	Cart       models.Cart
	Lines      []models.CartLine
	TotalPrice decimal.Decimal
	TotalItems int
}

// NewCartView computes the totals of a cart
func NewCartView(cart models.Cart, lines []models.CartLine) *CartView {
	view := &CartView{Cart: cart, Lines: lines, TotalPrice: decimal.Zero}
	for _, line := range lines {
		view.TotalPrice = view.TotalPrice.Add(line.LineTotal())
		view.TotalItems += line.Quantity
	}
	return view
}

// CartService handles cart business logic
type CartService struct {
	store  CartStore
	logger *zap.Logger
}

// NewCartService creates a new cart service
func NewCartService(store CartStore) *CartService {
	return &CartService{
		store:  store,
		logger: util.Named("cart-service"),
	}
}

// GetOrCreateActiveCart returns the session's active cart, creating it on
// first use. Two concurrent first requests race on the partial unique index;
// the loser re-reads the winner's cart.
func (s *CartService) GetOrCreateActiveCart(ctx context.Context, sessionKey string) (*models.Cart, error) {
	for attempt := 0; attempt < maxCartCreateAttempts; attempt++ {
		cart, err := s.store.GetActiveCart(ctx, sessionKey)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("failed to load cart: %w", err)
		}

		cart, err = s.store.CreateCart(ctx, sessionKey)
		if err == nil {
			util.CartsCreatedTotal.Inc()
			s.logger.Debug("Cart created", zap.Int64("cart_id", cart.ID), util.SessionField(sessionKey))
			return cart, nil
		}
		if !errors.Is(err, store.ErrConflict) {
			return nil, err
		}

		util.CartCreateConflictsTotal.Inc()
	}

	return nil, fmt.Errorf("failed to resolve active cart after %d attempts", maxCartCreateAttempts)
}

// GetCart returns the session's cart view, creating an empty cart if needed
func (s *CartService) GetCart(ctx context.Context, sessionKey string) (*CartView, error) {
	ctx, span := util.StartSpan(ctx, "CartService.GetCart")
	cart, err := s.GetOrCreateActiveCart(ctx, sessionKey)
	if err != nil {
		util.EndSpan(span, err)
		return nil, err
	}

	view, err := s.view(ctx, cart)
	util.EndSpan(span, err)
	return view, err
}

// AddItem adds quantity of a variant to the session's cart, accumulating on
// an existing line for the same variant
func (s *CartService) AddItem(ctx context.Context, sessionKey string, variantID int64, quantity int) (view *CartView, err error) {
	ctx, span := util.StartSpan(ctx, "CartService.AddItem",
		attribute.Int64("variant_id", variantID), attribute.Int("quantity", quantity))
	defer func() { util.EndSpan(span, err) }()

	if quantity < 1 {
		return nil, NewValidationError("quantity", "Ensure this value is greater than or equal to 1.")
	}
	if variantID < 1 {
		return nil, ErrVariantNotFound
	}

	// A concurrent checkout can close the cart between resolving and
	// locking it; the item then goes into the session's next cart.
	var cart *models.Cart
	for attempt := 1; ; attempt++ {
		cart, err = s.GetOrCreateActiveCart(ctx, sessionKey)
		if err != nil {
			return nil, err
		}

		_, err = s.store.AddCartItemTx(ctx, cart.ID, variantID, quantity)
		if err == nil {
			break
		}
		if !errors.Is(err, store.ErrCartClosed) || attempt == maxCartCreateAttempts {
			return nil, s.mapMutationError(err, "add", ErrVariantNotFound)
		}
		s.logger.Debug("Cart closed during add, retrying", zap.Int64("cart_id", cart.ID))
	}

	util.CartItemsAddedTotal.Inc()
	s.logger.Debug("Cart item added",
		zap.Int64("cart_id", cart.ID),
		zap.Int64("variant_id", variantID),
		zap.Int("quantity", quantity))

	return s.view(ctx, cart)
}

// UpdateItemQuantity sets the quantity of a line in the session's cart
func (s *CartService) UpdateItemQuantity(ctx context.Context, sessionKey string, itemID int64, quantity int) (view *CartView, err error) {
	ctx, span := util.StartSpan(ctx, "CartService.UpdateItemQuantity",
		attribute.Int64("item_id", itemID), attribute.Int("quantity", quantity))
	defer func() { util.EndSpan(span, err) }()

	if quantity < 1 {
		return nil, NewValidationError("quantity", "Ensure this value is greater than or equal to 1.")
	}

	if err := s.store.SetCartItemQuantityTx(ctx, sessionKey, itemID, quantity); err != nil {
		return nil, s.mapMutationError(err, "update", ErrCartItemNotFound)
	}

	cart, err := s.GetOrCreateActiveCart(ctx, sessionKey)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, cart)
}

// RemoveItem deletes a line from the session's cart
func (s *CartService) RemoveItem(ctx context.Context, sessionKey string, itemID int64) (view *CartView, err error) {
	ctx, span := util.StartSpan(ctx, "CartService.RemoveItem", attribute.Int64("item_id", itemID))
	defer func() { util.EndSpan(span, err) }()

	if err := s.store.DeleteCartItem(ctx, sessionKey, itemID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrCartItemNotFound
		}
		return nil, fmt.Errorf("failed to remove cart item: %w", err)
	}

	cart, err := s.GetOrCreateActiveCart(ctx, sessionKey)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, cart)
}

func (s *CartService) view(ctx context.Context, cart *models.Cart) (*CartView, error) {
	lines, err := s.store.GetCartLines(ctx, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart items: %w", err)
	}
	return NewCartView(*cart, lines), nil
}

func (s *CartService) mapMutationError(err error, operation string, notFound error) error {
	var stockErr *store.StockError
	switch {
	case errors.As(err, &stockErr):
		util.CartStockRejectionsTotal.WithLabelValues(operation).Inc()
		return &OutOfStockError{
			VariantID: stockErr.VariantID,
			Available: stockErr.Available,
			Requested: stockErr.Requested,
		}
	case errors.Is(err, store.ErrNotFound):
		return notFound
	default:
		return fmt.Errorf("failed to %s cart item: %w", operation, err)
	}
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"time"

	"shop-service/internal/models"
	"shop-service/internal/store"

	"github.com/shopspring/decimal"
)

// fakeStore is an in-memory stand-in for the Postgres store. Every call is
// atomic under mu.
type fakeStore struct {
	mu sync.Mutex

	nextID       int64
	carts        map[int64]*models.Cart
	items        map[int64]*models.CartItem
	variants     map[int64]*models.ProductVariant
	titles       map[int64]string
	orders       map[string]*models.OrderDetail
	processed    map[string]bool
	createRacers int
	createErr    error
	orderErr     error

	// beforeAdd runs under mu at the start of AddCartItemTx
	beforeAdd func(cartID int64)
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		carts:     map[int64]*models.Cart{},
		items:     map[int64]*models.CartItem{},
		variants:  map[int64]*models.ProductVariant{},
		titles:    map[int64]string{},
		orders:    map[string]*models.OrderDetail{},
		processed: map[string]bool{},
	}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) addVariant(sku, title, price string, stock int) *models.ProductVariant {
	f.mu.Lock()
	defer f.mu.Unlock()

	v := &models.ProductVariant{
		ID:            f.id(),
		SKU:           sku,
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
		Attributes:    models.Attributes{"size": "M"},
	}
	f.variants[v.ID] = v
	f.titles[v.ID] = title
	return v
}

func (f *fakeStore) setStock(variantID int64, stock int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.variants[variantID].StockQuantity = stock
}

func (f *fakeStore) stock(variantID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.variants[variantID].StockQuantity
}

func (f *fakeStore) activeCart(sessionKey string) *models.Cart {
	for _, c := range f.carts {
		if c.SessionKey == sessionKey && c.Status == models.CartStatusActive {
			return c
		}
	}
	return nil
}

func (f *fakeStore) insertCart(sessionKey string) *models.Cart {
	c := &models.Cart{ID: f.id(), SessionKey: sessionKey, Status: models.CartStatusActive, CreatedAt: time.Now()}
	f.carts[c.ID] = c
	return c
}

func (f *fakeStore) GetActiveCart(ctx context.Context, sessionKey string) (*models.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if c := f.activeCart(sessionKey); c != nil {
		cp := *c
		return &cp, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) CreateCart(ctx context.Context, sessionKey string) (*models.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.activeCart(sessionKey) != nil {
		return nil, store.ErrConflict
	}
	if f.createRacers > 0 {
		// another request wins the insert
		f.createRacers--
		f.insertCart(sessionKey)
		return nil, store.ErrConflict
	}

	cp := *f.insertCart(sessionKey)
	return &cp, nil
}

func (f *fakeStore) lines(cartID int64) []models.CartLine {
	lines := []models.CartLine{}
	for _, item := range f.items {
		if item.CartID != cartID {
			continue
		}
		v := f.variants[item.ProductVariantID]
		lines = append(lines, models.CartLine{
			ItemID:        item.ID,
			Quantity:      item.Quantity,
			VariantID:     v.ID,
			SKU:           v.SKU,
			Price:         v.Price,
			StockQuantity: v.StockQuantity,
			Attributes:    v.Attributes.Clone(),
			ProductTitle:  f.titles[v.ID],
		})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ItemID < lines[j].ItemID })
	return lines
}

func (f *fakeStore) GetCartLines(ctx context.Context, cartID int64) ([]models.CartLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lines(cartID), nil
}

func (f *fakeStore) AddCartItemTx(ctx context.Context, cartID, variantID int64, quantity int) (*models.CartItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.beforeAdd != nil {
		f.beforeAdd(cartID)
	}
	if cart, ok := f.carts[cartID]; !ok || cart.Status != models.CartStatusActive {
		return nil, store.ErrCartClosed
	}

	v, ok := f.variants[variantID]
	if !ok {
		return nil, store.ErrNotFound
	}

	var existing *models.CartItem
	for _, item := range f.items {
		if item.CartID == cartID && item.ProductVariantID == variantID {
			existing = item
		}
	}

	current := 0
	if existing != nil {
		current = existing.Quantity
	}
	if current+quantity > v.StockQuantity {
		return nil, &store.StockError{VariantID: variantID, Available: v.StockQuantity, Requested: current + quantity}
	}

	if existing == nil {
		existing = &models.CartItem{ID: f.id(), CartID: cartID, ProductVariantID: variantID}
		f.items[existing.ID] = existing
	}
	existing.Quantity = current + quantity

	cp := *existing
	return &cp, nil
}

func (f *fakeStore) ownedItem(sessionKey string, itemID int64) *models.CartItem {
	item, ok := f.items[itemID]
	if !ok {
		return nil
	}
	cart := f.carts[item.CartID]
	if cart.SessionKey != sessionKey || cart.Status != models.CartStatusActive {
		return nil
	}
	return item
}

func (f *fakeStore) SetCartItemQuantityTx(ctx context.Context, sessionKey string, itemID int64, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	item := f.ownedItem(sessionKey, itemID)
	if item == nil {
		return store.ErrNotFound
	}
	v := f.variants[item.ProductVariantID]
	if quantity > v.StockQuantity {
		return &store.StockError{VariantID: v.ID, Available: v.StockQuantity, Requested: quantity}
	}
	item.Quantity = quantity
	return nil
}

func (f *fakeStore) DeleteCartItem(ctx context.Context, sessionKey string, itemID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ownedItem(sessionKey, itemID) == nil {
		return store.ErrNotFound
	}
	delete(f.items, itemID)
	return nil
}

func (f *fakeStore) CreateOrderFromCartTx(ctx context.Context, in store.NewOrder) (*models.OrderDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.orderErr != nil {
		return nil, f.orderErr
	}

	cart, ok := f.carts[in.CartID]
	if !ok || cart.Status != models.CartStatusActive {
		return nil, store.ErrNotFound
	}

	items, total, err := in.Build(f.lines(cart.ID))
	if err != nil {
		return nil, err
	}

	number := ""
	for attempt := 0; attempt < in.MaxAttempts; attempt++ {
		candidate, err := in.NextOrderNumber()
		if err != nil {
			return nil, err
		}
		if _, taken := f.orders[candidate]; !taken {
			number = candidate
			break
		}
	}
	if number == "" {
		return nil, store.ErrOrderNumberExhausted
	}

	shipping := in.ShippingAddress
	shipping.ID = f.id()
	billing := in.ShippingAddress
	if in.BillingAddress != nil {
		billing = *in.BillingAddress
	}
	billing.ID = f.id()

	detail := &models.OrderDetail{
		Order: models.Order{
			ID:                "order-" + number,
			OrderNumber:       number,
			Email:             in.Email,
			Status:            models.OrderStatusPending,
			TotalAmount:       total,
			ShippingAddressID: shipping.ID,
			BillingAddressID:  sql.NullInt64{Int64: billing.ID, Valid: true},
			CartID:            sql.NullInt64{Int64: cart.ID, Valid: true},
		},
		ShippingAddress: shipping,
		BillingAddress:  &billing,
		Items:           items,
	}

	for _, item := range items {
		f.variants[item.ProductVariantID.Int64].StockQuantity -= item.Quantity
	}
	cart.Status = models.CartStatusAbandoned
	f.orders[number] = detail
	return detail, nil
}

func (f *fakeStore) GetOrderForSession(ctx context.Context, orderNumber, sessionKey string) (*models.OrderDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	detail, ok := f.orders[orderNumber]
	if !ok || f.carts[detail.CartID.Int64].SessionKey != sessionKey {
		return nil, store.ErrNotFound
	}
	return detail, nil
}

func (f *fakeStore) UpdateOrderStatusTx(ctx context.Context, orderNumber, target string, check func(from, to string) error) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	detail, ok := f.orders[orderNumber]
	if !ok {
		return "", store.ErrNotFound
	}
	from := detail.Status
	if err := check(from, target); err != nil {
		return "", err
	}
	detail.Status = target
	detail.IsPaid = detail.IsPaid || target == models.OrderStatusPaid
	return from, nil
}

func (f *fakeStore) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.processed[eventID], nil
}

func (f *fakeStore) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.processed[eventID] = true
	return nil
}

type fakePublisher struct {
	mu      sync.Mutex
	placed  []*models.OrderPlacedEvent
	changed []*models.OrderStatusChangedEvent
	err     error
}

func (p *fakePublisher) PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.placed = append(p.placed, event)
	return nil
}

func (p *fakePublisher) PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.changed = append(p.changed, event)
	return nil
}

var errFakeDown = errors.New("backend unavailable")

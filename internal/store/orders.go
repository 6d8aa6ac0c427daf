package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"shop-service/internal/models"
	"shop-service/internal/util"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// ErrOrderNumberExhausted is returned when every generated order number collided
var ErrOrderNumberExhausted = errors.New("could not allocate a unique order number")

// OrderBuilder turns the locked cart lines into order items and the order total
type OrderBuilder func(lines []models.CartLine) ([]models.OrderItem, decimal.Decimal, error)

// NewOrder describes an order to be created from a cart
type NewOrder struct {
	CartID          int64
	Email           string
	ShippingAddress models.OrderAddress
	BillingAddress  *models.OrderAddress
	NextOrderNumber func() (string, error)
	MaxAttempts     int
	Build           OrderBuilder
}

// CreateOrderFromCartTx converts a cart into an order in a single transaction:
// the cart and its variants are locked, the builder validates and snapshots
// the lines, the addresses, order and items are inserted, stock is deducted
// and the cart is closed. Nothing is written unless every step succeeds.
func (s *Store) CreateOrderFromCartTx(ctx context.Context, in NewOrder) (*models.OrderDetail, error) {
	var detail models.OrderDetail

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var cartID int64
		err := tx.GetContext(ctx, &cartID,
			"SELECT id FROM carts WHERE id = $1 AND status = $2 FOR UPDATE",
			in.CartID, models.CartStatusActive)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to lock cart: %w", err)
		}

		lines := []models.CartLine{}
		if err := tx.SelectContext(ctx, &lines,
			cartLineQuery+" ORDER BY v.id FOR UPDATE OF ci, v", cartID); err != nil {
			return fmt.Errorf("failed to lock cart lines: %w", err)
		}

		items, total, err := in.Build(lines)
		if err != nil {
			return err
		}

		detail.ShippingAddress = in.ShippingAddress
		if err := insertAddress(ctx, tx, &detail.ShippingAddress); err != nil {
			return err
		}

		billing := in.ShippingAddress
		if in.BillingAddress != nil {
			billing = *in.BillingAddress
		}
		if err := insertAddress(ctx, tx, &billing); err != nil {
			return err
		}
		detail.BillingAddress = &billing

		detail.Order = models.Order{
			ID:                uuid.New().String(),
			Email:             in.Email,
			Status:            models.OrderStatusPending,
			TotalAmount:       total,
			ShippingAddressID: detail.ShippingAddress.ID,
			BillingAddressID:  sql.NullInt64{Int64: billing.ID, Valid: true},
			CartID:            sql.NullInt64{Int64: cartID, Valid: true},
		}
		if err := insertOrder(ctx, tx, &detail.Order, in.NextOrderNumber, in.MaxAttempts); err != nil {
			return err
		}

		for i := range items {
			item := &items[i]
			item.OrderID = detail.ID
			item.ResolveTotal()

			if err := tx.GetContext(ctx, &item.ID, `
				INSERT INTO order_items
					(order_id, product_variant_id, product_sku, product_name, attributes, quantity, unit_price, total_price)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				RETURNING id`,
				item.OrderID, item.ProductVariantID, item.ProductSKU, item.ProductName,
				item.Attributes, item.Quantity, item.UnitPrice, item.TotalPrice); err != nil {
				return fmt.Errorf("failed to create order item: %w", err)
			}

			if item.ProductVariantID.Valid {
				if _, err := tx.ExecContext(ctx,
					"UPDATE product_variants SET stock_quantity = stock_quantity - $1, updated_at = NOW() WHERE id = $2",
					item.Quantity, item.ProductVariantID.Int64); err != nil {
					return fmt.Errorf("failed to deduct stock: %w", err)
				}
			}
		}
		detail.Items = items

		if _, err := tx.ExecContext(ctx,
			"UPDATE carts SET status = $1, updated_at = NOW() WHERE id = $2",
			models.CartStatusAbandoned, cartID); err != nil {
			return fmt.Errorf("failed to close cart: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

func insertAddress(ctx context.Context, tx *sqlx.Tx, a *models.OrderAddress) error {
	query := `
		INSERT INTO order_addresses
			(first_name, last_name, email, phone, address_line_1, address_line_2, city, state, postal_code, country)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`

	err := tx.QueryRowxContext(ctx, query,
		a.FirstName, a.LastName, a.Email, a.Phone, a.AddressLine1, a.AddressLine2,
		a.City, a.State, a.PostalCode, a.Country,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create address: %w", err)
	}
	return nil
}

// insertOrder inserts the order under a savepoint so that an order number
// collision can be retried with a fresh number without losing the
// surrounding transaction
func insertOrder(ctx context.Context, tx *sqlx.Tx, o *models.Order, nextNumber func() (string, error), maxAttempts int) error {
	query := `
		INSERT INTO orders (id, order_number, email, status, total_amount, shipping_address_id, billing_address_id, cart_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	for attempt := 0; attempt < maxAttempts; attempt++ {
		number, err := nextNumber()
		if err != nil {
			return err
		}
		o.OrderNumber = number

		if _, err := tx.ExecContext(ctx, "SAVEPOINT order_number"); err != nil {
			return fmt.Errorf("failed to create savepoint: %w", err)
		}

		err = tx.QueryRowxContext(ctx, query,
			o.ID, o.OrderNumber, o.Email, o.Status, o.TotalAmount,
			o.ShippingAddressID, o.BillingAddressID, o.CartID,
		).Scan(&o.CreatedAt, &o.UpdatedAt)

		if isUniqueViolation(err, "orders_order_number_key") {
			util.OrderNumberCollisionsTotal.Inc()
			if _, err := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT order_number"); err != nil {
				return fmt.Errorf("failed to roll back savepoint: %w", err)
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT order_number"); err != nil {
			return fmt.Errorf("failed to release savepoint: %w", err)
		}
		return nil
	}

	return ErrOrderNumberExhausted
}

// GetOrderForSession retrieves an order placed from a cart of the session
func (s *Store) GetOrderForSession(ctx context.Context, orderNumber, sessionKey string) (*models.OrderDetail, error) {
	var detail models.OrderDetail
	err := s.db.GetContext(ctx, &detail.Order, `
		SELECT o.* FROM orders o
		JOIN carts c ON c.id = o.cart_id
		WHERE o.order_number = $1 AND c.session_key = $2`,
		orderNumber, sessionKey)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := s.loadOrderRelations(ctx, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

func (s *Store) loadOrderRelations(ctx context.Context, detail *models.OrderDetail) error {
	if err := s.db.GetContext(ctx, &detail.ShippingAddress,
		"SELECT * FROM order_addresses WHERE id = $1", detail.ShippingAddressID); err != nil {
		return fmt.Errorf("failed to load shipping address: %w", err)
	}

	if detail.BillingAddressID.Valid {
		var billing models.OrderAddress
		if err := s.db.GetContext(ctx, &billing,
			"SELECT * FROM order_addresses WHERE id = $1", detail.BillingAddressID.Int64); err != nil {
			return fmt.Errorf("failed to load billing address: %w", err)
		}
		detail.BillingAddress = &billing
	}

	detail.Items = []models.OrderItem{}
	if err := s.db.SelectContext(ctx, &detail.Items,
		"SELECT * FROM order_items WHERE order_id = $1 ORDER BY id", detail.ID); err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}
	return nil
}

// UpdateOrderStatusTx locks the order, asks check whether moving from its
// current status to target is allowed, and applies the change. It returns
// the previous status.
func (s *Store) UpdateOrderStatusTx(ctx context.Context, orderNumber, target string, check func(from, to string) error) (string, error) {
	var from string
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &from,
			"SELECT status FROM orders WHERE order_number = $1 FOR UPDATE", orderNumber)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to lock order: %w", err)
		}

		if err := check(from, target); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE orders SET status = $1, is_paid = is_paid OR $2, updated_at = NOW()
			WHERE order_number = $3`,
			target, target == models.OrderStatusPaid, orderNumber)
		return err
	})
	if err != nil {
		return "", err
	}
	return from, nil
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}

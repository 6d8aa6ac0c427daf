package store

import (
	"context"
	"database/sql"
	"fmt"

	"shop-service/internal/models"

	"github.com/jmoiron/sqlx"
)

const cartLineQuery = `
	SELECT ci.id AS item_id, ci.quantity,
		v.id AS variant_id, v.sku, v.price, v.stock_quantity, v.attributes, v.image AS variant_image,
		p.title AS product_title, p.slug AS product_slug, p.thumbnail AS product_thumbnail
	FROM cart_items ci
	JOIN product_variants v ON v.id = ci.product_variant_id
	JOIN products p ON p.id = v.product_id
	WHERE ci.cart_id = $1`

// GetActiveCart retrieves the active cart of a session
func (s *Store) GetActiveCart(ctx context.Context, sessionKey string) (*models.Cart, error) {
	var cart models.Cart
	err := s.db.GetContext(ctx, &cart,
		"SELECT * FROM carts WHERE session_key = $1 AND status = $2",
		sessionKey, models.CartStatusActive)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// CreateCart inserts a new active cart. ErrConflict means another request
// created the session's active cart first.
func (s *Store) CreateCart(ctx context.Context, sessionKey string) (*models.Cart, error) {
	var cart models.Cart
	err := s.db.GetContext(ctx, &cart, `
		INSERT INTO carts (session_key, status)
		VALUES ($1, $2)
		RETURNING *`,
		sessionKey, models.CartStatusActive)
	if isUniqueViolation(err, "carts_active_session_key_idx") {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}
	return &cart, nil
}

// GetCartLines retrieves the items of a cart joined with their variants
func (s *Store) GetCartLines(ctx context.Context, cartID int64) ([]models.CartLine, error) {
	lines := []models.CartLine{}
	err := s.db.SelectContext(ctx, &lines, cartLineQuery+" ORDER BY ci.id", cartID)
	return lines, err
}

// AddCartItemTx adds quantity to the cart's line for a variant, creating the
// line when missing. The cart row is locked first, as checkout does, then the
// variant row, so concurrent adds of the same variant are serialized and the
// stock check holds. ErrCartClosed means the cart is no longer active.
func (s *Store) AddCartItemTx(ctx context.Context, cartID, variantID int64, quantity int) (*models.CartItem, error) {
	var item models.CartItem
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var lockedID int64
		err := tx.GetContext(ctx, &lockedID,
			"SELECT id FROM carts WHERE id = $1 AND status = $2 FOR UPDATE",
			cartID, models.CartStatusActive)
		if err == sql.ErrNoRows {
			return ErrCartClosed
		}
		if err != nil {
			return fmt.Errorf("failed to lock cart: %w", err)
		}

		var stock int
		err = tx.GetContext(ctx, &stock,
			"SELECT stock_quantity FROM product_variants WHERE id = $1 FOR UPDATE", variantID)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to lock variant: %w", err)
		}

		var current int
		err = tx.GetContext(ctx, &current,
			"SELECT quantity FROM cart_items WHERE cart_id = $1 AND product_variant_id = $2 FOR UPDATE",
			cartID, variantID)
		if err != nil && err != sql.ErrNoRows {
			return fmt.Errorf("failed to lock cart item: %w", err)
		}

		newQuantity := current + quantity
		if newQuantity > stock {
			return &StockError{VariantID: variantID, Available: stock, Requested: newQuantity}
		}

		return tx.GetContext(ctx, &item, `
			INSERT INTO cart_items (cart_id, product_variant_id, quantity)
			VALUES ($1, $2, $3)
			ON CONFLICT ON CONSTRAINT cart_items_cart_variant_key
			DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = NOW()
			RETURNING *`,
			cartID, variantID, newQuantity)
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// SetCartItemQuantityTx overwrites the quantity of an item that belongs to
// the session's active cart
func (s *Store) SetCartItemQuantityTx(ctx context.Context, sessionKey string, itemID int64, quantity int) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		var row struct {
			VariantID int64 `db:"product_variant_id"`
			Stock     int   `db:"stock_quantity"`
		}
		err := tx.GetContext(ctx, &row, `
			SELECT ci.product_variant_id, v.stock_quantity
			FROM cart_items ci
			JOIN carts c ON c.id = ci.cart_id
			JOIN product_variants v ON v.id = ci.product_variant_id
			WHERE ci.id = $1 AND c.session_key = $2 AND c.status = $3
			FOR UPDATE OF c, ci, v`,
			itemID, sessionKey, models.CartStatusActive)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to lock cart item: %w", err)
		}

		if quantity > row.Stock {
			return &StockError{VariantID: row.VariantID, Available: row.Stock, Requested: quantity}
		}

		_, err = tx.ExecContext(ctx,
			"UPDATE cart_items SET quantity = $1, updated_at = NOW() WHERE id = $2",
			quantity, itemID)
		return err
	})
}

// DeleteCartItem removes an item that belongs to the session's active cart
func (s *Store) DeleteCartItem(ctx context.Context, sessionKey string, itemID int64) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM cart_items ci
		USING carts c
		WHERE ci.id = $1 AND c.id = ci.cart_id AND c.session_key = $2 AND c.status = $3`,
		itemID, sessionKey, models.CartStatusActive)
	if err != nil {
		return fmt.Errorf("failed to delete cart item: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

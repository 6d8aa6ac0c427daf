package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"shop-service/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, "postgres")), mock
}

func q(s string) string {
	return regexp.QuoteMeta(s)
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Linen Shirt":         "linen-shirt",
		"  Café  Crème  ":     "cafe-creme",
		"Kids' T-Shirts & Co": "kids-t-shirts-co",
		"multi---dash":        "multi-dash",
		"a.b":                 "a-b",
		"snake_case_name":     "snake-case-name",
		"Size 10/12":          "size-10-12",
		"€€":                  "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), in)
	}

	assert.Equal(t, "category", slugBase("!!!", "category"))
}

func TestUniqueSlug_AppendsCounter(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(q("SELECT EXISTS(SELECT 1 FROM products WHERE slug = $1 AND id <> $2)")).
		WithArgs("shirt", int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(q("SELECT EXISTS(SELECT 1 FROM products")).
		WithArgs("shirt-2", int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	slug, err := uniqueSlug(context.Background(), s.db, tableProducts, "shirt", 0)
	require.NoError(t, err)
	assert.Equal(t, "shirt-2", slug)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateCart_ConflictOnActiveSession(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(q("INSERT INTO carts")).
		WithArgs("sess", models.CartStatusActive).
		WillReturnError(&pq.Error{Code: uniqueViolation, Constraint: "carts_active_session_key_idx"})

	_, err := s.CreateCart(context.Background(), "sess")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestAddCartItemTx(t *testing.T) {
	t.Run("adds to existing line", func(t *testing.T) {
		s, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectQuery(q("SELECT id FROM carts WHERE id = $1 AND status = $2 FOR UPDATE")).
			WithArgs(int64(1), models.CartStatusActive).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		mock.ExpectQuery(q("SELECT stock_quantity FROM product_variants WHERE id = $1 FOR UPDATE")).
			WithArgs(int64(5)).
			WillReturnRows(sqlmock.NewRows([]string{"stock_quantity"}).AddRow(10))
		mock.ExpectQuery(q("SELECT quantity FROM cart_items WHERE cart_id = $1 AND product_variant_id = $2 FOR UPDATE")).
			WithArgs(int64(1), int64(5)).
			WillReturnRows(sqlmock.NewRows([]string{"quantity"}).AddRow(3))
		mock.ExpectQuery(q("INSERT INTO cart_items")).
			WithArgs(int64(1), int64(5), 7).
			WillReturnRows(sqlmock.NewRows([]string{"id", "cart_id", "product_variant_id", "quantity"}).
				AddRow(11, 1, 5, 7))
		mock.ExpectCommit()

		item, err := s.AddCartItemTx(context.Background(), 1, 5, 4)
		require.NoError(t, err)
		assert.Equal(t, 7, item.Quantity)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects quantity above stock", func(t *testing.T) {
		s, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectQuery(q("SELECT id FROM carts WHERE id = $1 AND status = $2 FOR UPDATE")).
			WithArgs(int64(1), models.CartStatusActive).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		mock.ExpectQuery(q("SELECT stock_quantity FROM product_variants")).
			WillReturnRows(sqlmock.NewRows([]string{"stock_quantity"}).AddRow(3))
		mock.ExpectQuery(q("SELECT quantity FROM cart_items")).
			WillReturnRows(sqlmock.NewRows([]string{"quantity"}).AddRow(2))
		mock.ExpectRollback()

		_, err := s.AddCartItemTx(context.Background(), 1, 5, 2)

		var stockErr *StockError
		require.True(t, errors.As(err, &stockErr))
		assert.Equal(t, 3, stockErr.Available)
		assert.Equal(t, 4, stockErr.Requested)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown variant", func(t *testing.T) {
		s, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectQuery(q("SELECT id FROM carts WHERE id = $1 AND status = $2 FOR UPDATE")).
			WithArgs(int64(1), models.CartStatusActive).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		mock.ExpectQuery(q("SELECT stock_quantity FROM product_variants")).
			WillReturnRows(sqlmock.NewRows([]string{"stock_quantity"}))
		mock.ExpectRollback()

		_, err := s.AddCartItemTx(context.Background(), 1, 99, 1)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("cart closed by checkout", func(t *testing.T) {
		s, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectQuery(q("SELECT id FROM carts WHERE id = $1 AND status = $2 FOR UPDATE")).
			WithArgs(int64(1), models.CartStatusActive).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectRollback()

		_, err := s.AddCartItemTx(context.Background(), 1, 5, 1)
		assert.ErrorIs(t, err, ErrCartClosed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSetCartItemQuantityTx_LocksCartWithItem(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q("FOR UPDATE OF c, ci, v")).
		WithArgs(int64(4), "sess", models.CartStatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"product_variant_id", "stock_quantity"}).AddRow(5, 10))
	mock.ExpectExec(q("UPDATE cart_items SET quantity = $1")).
		WithArgs(3, int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.SetCartItemQuantityTx(context.Background(), "sess", 4, 3))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteCartItem_NotOwned(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(q("DELETE FROM cart_items ci")).
		WithArgs(int64(4), "other", models.CartStatusActive).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, s.DeleteCartItem(context.Background(), "other", 4), ErrNotFound)
}

func sequence(numbers ...string) func() (string, error) {
	i := 0
	return func() (string, error) {
		n := numbers[i]
		i++
		return n, nil
	}
}

func TestInsertOrder_RetriesOnNumberCollision(t *testing.T) {
	s, mock := newMockStore(t)
	collision := &pq.Error{Code: uniqueViolation, Constraint: "orders_order_number_key"}
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec(q("SAVEPOINT order_number")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("INSERT INTO orders")).WillReturnError(collision)
	mock.ExpectExec(q("ROLLBACK TO SAVEPOINT order_number")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(q("SAVEPOINT order_number")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("INSERT INTO orders")).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectExec(q("RELEASE SAVEPOINT order_number")).WillReturnResult(sqlmock.NewResult(0, 0))

	tx, err := s.db.Beginx()
	require.NoError(t, err)

	order := &models.Order{ID: "o-1", Status: models.OrderStatusPending, TotalAmount: decimal.NewFromInt(10)}
	err = insertOrder(context.Background(), tx, order, sequence("ORD-260101-AAAAAA", "ORD-260101-BBBBBB"), 3)
	require.NoError(t, err)
	assert.Equal(t, "ORD-260101-BBBBBB", order.OrderNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertOrder_Exhausted(t *testing.T) {
	s, mock := newMockStore(t)
	collision := &pq.Error{Code: uniqueViolation, Constraint: "orders_order_number_key"}

	mock.ExpectBegin()
	for i := 0; i < 2; i++ {
		mock.ExpectExec(q("SAVEPOINT order_number")).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(q("INSERT INTO orders")).WillReturnError(collision)
		mock.ExpectExec(q("ROLLBACK TO SAVEPOINT order_number")).WillReturnResult(sqlmock.NewResult(0, 0))
	}

	tx, err := s.db.Beginx()
	require.NoError(t, err)

	err = insertOrder(context.Background(), tx, &models.Order{}, sequence("A", "B"), 2)
	assert.ErrorIs(t, err, ErrOrderNumberExhausted)
}

func TestCreateOrderFromCartTx_RollsBackOnBuildError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT id FROM carts WHERE id = $1 AND status = $2 FOR UPDATE")).
		WithArgs(int64(7), models.CartStatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery(q("FROM cart_items ci")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{
			"item_id", "quantity", "variant_id", "sku", "price", "stock_quantity", "attributes",
			"variant_image", "product_title", "product_slug", "product_thumbnail",
		}).AddRow(1, 5, 3, "SKU-1", "10.00", 2, []byte(`{"size":"M"}`), "", "Shirt", "shirt", ""))
	mock.ExpectRollback()

	buildErr := &StockError{VariantID: 3, Available: 2, Requested: 5}
	_, err := s.CreateOrderFromCartTx(context.Background(), NewOrder{
		CartID: 7,
		Build: func(lines []models.CartLine) ([]models.OrderItem, decimal.Decimal, error) {
			require.Len(t, lines, 1)
			assert.Equal(t, "M", lines[0].Attributes["size"])
			return nil, decimal.Zero, buildErr
		},
	})

	assert.Equal(t, buildErr, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrderFromCartTx_CartNotActive(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT id FROM carts")).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := s.CreateOrderFromCartTx(context.Background(), NewOrder{CartID: 7})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateOrderFromCartTx_LocksBeforeWriting(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT id FROM carts WHERE id = $1 AND status = $2 FOR UPDATE")).
		WithArgs(int64(7), models.CartStatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery(q("ORDER BY v.id FOR UPDATE OF ci, v")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{
			"item_id", "quantity", "variant_id", "sku", "price", "stock_quantity", "attributes",
			"variant_image", "product_title", "product_slug", "product_thumbnail",
		}).AddRow(1, 2, 3, "SKU-1", "10.00", 5, []byte(`{}`), "", "Shirt", "shirt", ""))
	for id := 1; id <= 2; id++ {
		mock.ExpectQuery(q("INSERT INTO order_addresses")).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(id, now, now))
	}
	mock.ExpectExec(q("SAVEPOINT order_number")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("INSERT INTO orders")).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectExec(q("RELEASE SAVEPOINT order_number")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("INSERT INTO order_items")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
	mock.ExpectExec(q("UPDATE product_variants SET stock_quantity = stock_quantity - $1")).
		WithArgs(int64(2), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("UPDATE carts SET status = $1")).
		WithArgs(models.CartStatusAbandoned, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	detail, err := s.CreateOrderFromCartTx(context.Background(), NewOrder{
		CartID:          7,
		Email:           "jane@example.com",
		NextOrderNumber: sequence("ORD-1"),
		MaxAttempts:     1,
		Build: func(lines []models.CartLine) ([]models.OrderItem, decimal.Decimal, error) {
			require.Len(t, lines, 1)
			return []models.OrderItem{{
				ProductVariantID: sql.NullInt64{Int64: 3, Valid: true},
				ProductSKU:       "SKU-1",
				ProductName:      "Shirt",
				Attributes:       models.Attributes{},
				Quantity:         2,
				UnitPrice:        decimal.RequireFromString("10.00"),
			}}, decimal.RequireFromString("20.00"), nil
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "ORD-1", detail.OrderNumber)
	assert.Equal(t, int64(1), detail.ShippingAddressID)
	assert.Equal(t, int64(2), detail.BillingAddress.ID)
	require.Len(t, detail.Items, 1)
	assert.Equal(t, int64(11), detail.Items[0].ID)
	assert.Equal(t, "20", detail.Items[0].TotalPrice.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertOrder_NumberGeneratorFailure(t *testing.T) {
	s, mock := newMockStore(t)
	genErr := errors.New("entropy unavailable")

	mock.ExpectBegin()

	tx, err := s.db.Beginx()
	require.NoError(t, err)

	err = insertOrder(context.Background(), tx, &models.Order{}, func() (string, error) {
		return "", genErr
	}, 3)
	assert.ErrorIs(t, err, genErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOrderStatusTx(t *testing.T) {
	t.Run("applies allowed transition", func(t *testing.T) {
		s, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectQuery(q("SELECT status FROM orders WHERE order_number = $1 FOR UPDATE")).
			WithArgs("ORD-1").
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(models.OrderStatusPending))
		mock.ExpectExec(q("UPDATE orders SET status = $1")).
			WithArgs(models.OrderStatusPaid, true, "ORD-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		from, err := s.UpdateOrderStatusTx(context.Background(), "ORD-1", models.OrderStatusPaid,
			func(from, to string) error { return nil })
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusPending, from)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejected transition writes nothing", func(t *testing.T) {
		s, mock := newMockStore(t)
		rejected := errors.New("rejected")

		mock.ExpectBegin()
		mock.ExpectQuery(q("SELECT status FROM orders")).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(models.OrderStatusDelivered))
		mock.ExpectRollback()

		_, err := s.UpdateOrderStatusTx(context.Background(), "ORD-1", models.OrderStatusPending,
			func(from, to string) error { return rejected })
		assert.ErrorIs(t, err, rejected)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMoveCategory_RejectsCycle(t *testing.T) {
	s, mock := newMockStore(t)
	cols := []string{"id", "name", "slug", "parent_id", "path", "depth"}

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT * FROM categories WHERE id = $1 FOR UPDATE")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(1, "Clothing", "clothing", nil, "/1/", 0))
	mock.ExpectQuery(q("SELECT * FROM categories WHERE id = $1")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(3, "Shirts", "shirts", 2, "/1/2/3/", 2))
	mock.ExpectRollback()

	parent := int64(3)
	err := s.MoveCategory(context.Background(), 1, &parent)
	assert.ErrorIs(t, err, ErrCategoryCycle)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetActiveCart_NotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(q("SELECT * FROM carts WHERE session_key = $1 AND status = $2")).
		WithArgs("sess", models.CartStatusActive).
		WillReturnError(sql.ErrNoRows)

	_, err := s.GetActiveCart(context.Background(), "sess")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateProduct_RegeneratesSlugIgnoringItself(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT EXISTS(SELECT 1 FROM products WHERE slug = $1 AND id <> $2)")).
		WithArgs("linen-shirt", int64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(q("UPDATE products SET title = $1, slug = $2")).
		WithArgs("Linen Shirt", "linen-shirt", models.ProductStatusPublished, "20", "", int64(8)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	p := &models.Product{
		ID:         8,
		Title:      "Linen Shirt",
		Status:     models.ProductStatusPublished,
		PriceStart: decimal.NewFromInt(20),
	}
	require.NoError(t, s.UpdateProduct(context.Background(), p))
	assert.Equal(t, "linen-shirt", p.Slug)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateProduct_Missing(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE products")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := s.UpdateProduct(context.Background(), &models.Product{ID: 8, Slug: "kept", Title: "X"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateCategory_BuildsPathBelowParent(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT * FROM categories WHERE id = $1")).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug", "path", "depth"}).
			AddRow(2, "Clothing", "clothing", "/2/", 0))
	mock.ExpectQuery(q("SELECT EXISTS(SELECT 1 FROM categories")).
		WithArgs("shirts", int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(q("INSERT INTO categories")).
		WithArgs("Shirts", "shirts", sqlmock.AnyArg(), "", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug", "parent_id", "depth"}).
			AddRow(5, "Shirts", "shirts", 2, 1))
	mock.ExpectExec(q("UPDATE categories SET path = $1 WHERE id = $2")).
		WithArgs("/2/5/", int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	parent := int64(2)
	c, err := s.CreateCategory(context.Background(), "Shirts", "", &parent)
	require.NoError(t, err)
	assert.Equal(t, "/2/5/", c.Path)
	assert.Equal(t, 1, c.Depth)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateProduct_WritesVariantsAndLinksInOneTransaction(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT EXISTS(SELECT 1 FROM products")).
		WithArgs("linen-shirt", int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(q("INSERT INTO products")).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "title", "slug", "status", "price_start", "thumbnail", "created_at", "updated_at",
		}).AddRow(9, "Linen Shirt", "linen-shirt", models.ProductStatusDraft, "49.90", "", now, now))
	mock.ExpectQuery(q("INSERT INTO product_variants")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(21, now, now))
	mock.ExpectExec(q("INSERT INTO product_categories")).
		WithArgs(int64(9), int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("INSERT INTO collection_products")).
		WithArgs(int64(3), int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	in := NewProduct{
		Product:       &models.Product{Title: "Linen Shirt", PriceStart: decimal.RequireFromString("49.90")},
		Variants:      []models.ProductVariant{{SKU: "LS-M", Price: decimal.RequireFromString("49.90")}},
		CategoryIDs:   []int64{4},
		CollectionIDs: []int64{3},
	}
	require.NoError(t, s.CreateProduct(context.Background(), in))
	assert.Equal(t, int64(9), in.Product.ID)
	assert.Equal(t, int64(9), in.Variants[0].ProductID)
	assert.Equal(t, int64(21), in.Variants[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateProduct_RollsBackOnVariantConflict(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT EXISTS(SELECT 1 FROM products")).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(q("INSERT INTO products")).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "title", "slug", "status", "price_start", "thumbnail", "created_at", "updated_at",
		}).AddRow(9, "Cap", "cap", models.ProductStatusDraft, "1.99", "", now, now))
	mock.ExpectQuery(q("INSERT INTO product_variants")).
		WillReturnError(&pq.Error{Code: uniqueViolation, Constraint: "product_variants_sku_key"})
	mock.ExpectRollback()

	err := s.CreateProduct(context.Background(), NewProduct{
		Product:  &models.Product{Title: "Cap"},
		Variants: []models.ProductVariant{{SKU: "DUP"}},
	})
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

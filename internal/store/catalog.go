package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"shop-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// ErrCategoryCycle is returned when a category would become its own ancestor
var ErrCategoryCycle = errors.New("category cannot be moved below itself")

const productColumns = "p.id, p.title, p.slug, p.status, p.price_start, p.thumbnail, p.created_at, p.updated_at"

const variantColumns = `id, product_id, sku, price, compare_at_price, stock_quantity, color,
	height, width, length, image, attributes, created_at, updated_at`

// ListPublishedProducts returns one page of published products, newest first.
// A non-empty categoryPath restricts the result to that category subtree.
func (s *Store) ListPublishedProducts(ctx context.Context, categoryPath string, limit, offset int) ([]models.Product, int, error) {
	where := "p.status = $1"
	args := []interface{}{models.ProductStatusPublished}
	if categoryPath != "" {
		where += ` AND EXISTS (
			SELECT 1 FROM product_categories pc
			JOIN categories c ON c.id = pc.category_id
			WHERE pc.product_id = p.id AND c.path LIKE $2 || '%')`
		args = append(args, categoryPath)
	}

	var total int
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM products p WHERE "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	query := fmt.Sprintf("SELECT %s FROM products p WHERE %s ORDER BY p.created_at DESC, p.id DESC LIMIT $%d OFFSET $%d",
		productColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	products := []models.Product{}
	if err := s.db.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	return products, total, nil
}

// GetProductBySlug retrieves a product with its variants, gallery and categories
func (s *Store) GetProductBySlug(ctx context.Context, slug string) (*models.ProductDetail, error) {
	var detail models.ProductDetail
	err := s.db.GetContext(ctx, &detail.Product,
		"SELECT "+productColumns+" FROM products p WHERE p.slug = $1", slug)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	detail.Variants = []models.ProductVariant{}
	if err := s.db.SelectContext(ctx, &detail.Variants,
		"SELECT "+variantColumns+" FROM product_variants WHERE product_id = $1 ORDER BY id", detail.ID); err != nil {
		return nil, fmt.Errorf("failed to load variants: %w", err)
	}

	detail.Gallery = []models.ProductImage{}
	if err := s.db.SelectContext(ctx, &detail.Gallery,
		"SELECT * FROM product_images WHERE product_id = $1 ORDER BY sort_order, id", detail.ID); err != nil {
		return nil, fmt.Errorf("failed to load gallery: %w", err)
	}

	detail.Categories = []models.Category{}
	if err := s.db.SelectContext(ctx, &detail.Categories, `
		SELECT c.* FROM categories c
		JOIN product_categories pc ON pc.category_id = c.id
		WHERE pc.product_id = $1 ORDER BY c.name`, detail.ID); err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}

	return &detail, nil
}

// NewProduct is a product to be created together with its variants and its
// category and collection links
type NewProduct struct {
	Product       *models.Product
	Variants      []models.ProductVariant
	CategoryIDs   []int64
	CollectionIDs []int64
}

// CreateProduct inserts a product with a unique slug, its variants and its
// links in one transaction. Variant ids are filled in place.
func (s *Store) CreateProduct(ctx context.Context, in NewProduct) error {
	p := in.Product
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		slug := p.Slug
		if slug == "" {
			var err error
			slug, err = uniqueSlug(ctx, tx, tableProducts, slugBase(p.Title, "product"), 0)
			if err != nil {
				return err
			}
		}
		if p.Status == "" {
			p.Status = models.ProductStatusDraft
		}

		err := tx.GetContext(ctx, p, `
			INSERT INTO products (title, slug, status, price_start, thumbnail)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, title, slug, status, price_start, thumbnail, created_at, updated_at`,
			p.Title, slug, p.Status, p.PriceStart, p.Thumbnail)
		if isUniqueViolation(err, "") {
			return ErrConflict
		}
		if err != nil {
			return fmt.Errorf("failed to insert product: %w", err)
		}

		for i := range in.Variants {
			v := &in.Variants[i]
			v.ProductID = p.ID
			if err := insertVariant(ctx, tx, v); err != nil {
				return err
			}
		}

		for _, categoryID := range in.CategoryIDs {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO product_categories (product_id, category_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
				p.ID, categoryID); err != nil {
				return fmt.Errorf("failed to link category %d: %w", categoryID, err)
			}
		}

		for _, collectionID := range in.CollectionIDs {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO collection_products (collection_id, product_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
				collectionID, p.ID); err != nil {
				return fmt.Errorf("failed to link collection %d: %w", collectionID, err)
			}
		}
		return nil
	})
}

// UpdateProduct saves title, status and price. An empty slug is regenerated
// from the title, ignoring the product's own current slug.
func (s *Store) UpdateProduct(ctx context.Context, p *models.Product) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if p.Slug == "" {
			slug, err := uniqueSlug(ctx, tx, tableProducts, slugBase(p.Title, "product"), p.ID)
			if err != nil {
				return err
			}
			p.Slug = slug
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE products SET title = $1, slug = $2, status = $3, price_start = $4, thumbnail = $5, updated_at = NOW()
			WHERE id = $6`,
			p.Title, p.Slug, p.Status, p.PriceStart, p.Thumbnail, p.ID)
		if isUniqueViolation(err, "") {
			return ErrConflict
		}
		if err != nil {
			return fmt.Errorf("failed to update product: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func insertVariant(ctx context.Context, tx *sqlx.Tx, v *models.ProductVariant) error {
	if v.Attributes == nil {
		v.Attributes = models.Attributes{}
	}
	query := `
		INSERT INTO product_variants
			(product_id, sku, price, compare_at_price, stock_quantity, color, height, width, length, image, attributes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`

	err := tx.QueryRowxContext(ctx, query,
		v.ProductID, v.SKU, v.Price, v.CompareAtPrice, v.StockQuantity, v.Color,
		v.Height, v.Width, v.Length, v.Image, v.Attributes,
	).Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
	if isUniqueViolation(err, "") {
		return fmt.Errorf("variant %s: %w", v.SKU, ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to insert variant %s: %w", v.SKU, err)
	}
	return nil
}

// ListCategories returns every category ordered by name
func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories := []models.Category{}
	err := s.db.SelectContext(ctx, &categories, "SELECT * FROM categories ORDER BY name, id")
	return categories, err
}

// GetCategoryBySlug retrieves a category by slug
func (s *Store) GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var c models.Category
	err := s.db.GetContext(ctx, &c, "SELECT * FROM categories WHERE slug = $1", slug)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCategoryByName retrieves a category by exact name
func (s *Store) GetCategoryByName(ctx context.Context, name string) (*models.Category, error) {
	var c models.Category
	err := s.db.GetContext(ctx, &c, "SELECT * FROM categories WHERE name = $1 ORDER BY id LIMIT 1", name)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCategoryDescendants returns the categories below path, excluding path itself
func (s *Store) ListCategoryDescendants(ctx context.Context, path string) ([]models.Category, error) {
	categories := []models.Category{}
	err := s.db.SelectContext(ctx, &categories,
		"SELECT * FROM categories WHERE path LIKE $1 || '%' AND path <> $1 ORDER BY depth, name", path)
	return categories, err
}

// CreateCategory inserts a category below parentID (nil for a root) and
// fills in its materialized path
func (s *Store) CreateCategory(ctx context.Context, name, description string, parentID *int64) (*models.Category, error) {
	var c models.Category
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		parentPath := "/"
		depth := 0
		var parent sql.NullInt64
		if parentID != nil {
			var p models.Category
			err := tx.GetContext(ctx, &p, "SELECT * FROM categories WHERE id = $1", *parentID)
			if err == sql.ErrNoRows {
				return ErrNotFound
			}
			if err != nil {
				return err
			}
			parentPath = p.Path
			depth = p.Depth + 1
			parent = sql.NullInt64{Int64: p.ID, Valid: true}
		}

		slug, err := uniqueSlug(ctx, tx, tableCategories, slugBase(name, "category"), 0)
		if err != nil {
			return err
		}

		err = tx.GetContext(ctx, &c, `
			INSERT INTO categories (name, slug, parent_id, description, depth)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING *`,
			name, slug, parent, description, depth)
		if isUniqueViolation(err, "") {
			return ErrConflict
		}
		if err != nil {
			return fmt.Errorf("failed to insert category: %w", err)
		}

		c.Path = fmt.Sprintf("%s%d/", parentPath, c.ID)
		_, err = tx.ExecContext(ctx, "UPDATE categories SET path = $1 WHERE id = $2", c.Path, c.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// MoveCategory re-parents a category and rewrites the paths of its subtree
func (s *Store) MoveCategory(ctx context.Context, id int64, newParentID *int64) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		var c models.Category
		err := tx.GetContext(ctx, &c, "SELECT * FROM categories WHERE id = $1 FOR UPDATE", id)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		newParentPath := "/"
		newDepth := 0
		var parent sql.NullInt64
		if newParentID != nil {
			var p models.Category
			err := tx.GetContext(ctx, &p, "SELECT * FROM categories WHERE id = $1", *newParentID)
			if err == sql.ErrNoRows {
				return ErrNotFound
			}
			if err != nil {
				return err
			}
			if strings.HasPrefix(p.Path, c.Path) {
				return ErrCategoryCycle
			}
			newParentPath = p.Path
			newDepth = p.Depth + 1
			parent = sql.NullInt64{Int64: p.ID, Valid: true}
		}

		newPath := fmt.Sprintf("%s%d/", newParentPath, c.ID)
		if _, err := tx.ExecContext(ctx, `
			UPDATE categories
			SET path = $1 || substr(path, length($2) + 1), depth = depth + $3, updated_at = NOW()
			WHERE path LIKE $2 || '%'`,
			newPath, c.Path, newDepth-c.Depth); err != nil {
			return fmt.Errorf("failed to rewrite subtree: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			"UPDATE categories SET parent_id = $1, updated_at = NOW() WHERE id = $2", parent, c.ID)
		return err
	})
}

// ListActiveCollections returns active collections ordered by name
func (s *Store) ListActiveCollections(ctx context.Context) ([]models.Collection, error) {
	collections := []models.Collection{}
	err := s.db.SelectContext(ctx, &collections,
		"SELECT * FROM collections WHERE is_active ORDER BY name, id")
	return collections, err
}

// CreateCollection inserts a collection with a unique slug
func (s *Store) CreateCollection(ctx context.Context, name, description string) (*models.Collection, error) {
	var c models.Collection
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		slug, err := uniqueSlug(ctx, tx, tableCollections, slugBase(name, "collection"), 0)
		if err != nil {
			return err
		}
		return tx.GetContext(ctx, &c, `
			INSERT INTO collections (name, slug, description)
			VALUES ($1, $2, $3)
			RETURNING *`, name, slug, description)
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCollectionByName retrieves a collection by exact name
func (s *Store) GetCollectionByName(ctx context.Context, name string) (*models.Collection, error) {
	var c models.Collection
	err := s.db.GetContext(ctx, &c, "SELECT * FROM collections WHERE name = $1 ORDER BY id LIMIT 1", name)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

package store

import (
	"context"

	"shop-service/internal/models"
)

// ListHeroSections returns hero banners in display order
func (s *Store) ListHeroSections(ctx context.Context) ([]models.HeroSection, error) {
	sections := []models.HeroSection{}
	err := s.db.SelectContext(ctx, &sections, "SELECT * FROM hero_sections ORDER BY sort_order, id")
	return sections, err
}

// ListFeaturedProducts returns featured products in display order
func (s *Store) ListFeaturedProducts(ctx context.Context) ([]models.FeaturedProduct, error) {
	featured := []models.FeaturedProduct{}
	err := s.db.SelectContext(ctx, &featured, `
		SELECT fp.id, fp.sort_order, fp.image,
			p.id AS "product.id", p.title AS "product.title", p.slug AS "product.slug",
			p.status AS "product.status", p.price_start AS "product.price_start",
			p.thumbnail AS "product.thumbnail", p.created_at AS "product.created_at",
			p.updated_at AS "product.updated_at"
		FROM featured_products fp
		JOIN products p ON p.id = fp.product_id
		ORDER BY fp.sort_order, fp.id`)
	return featured, err
}

// ListFeaturedCategories returns at most limit featured categories in display order
func (s *Store) ListFeaturedCategories(ctx context.Context, limit int) ([]models.FeaturedCategory, error) {
	featured := []models.FeaturedCategory{}
	err := s.db.SelectContext(ctx, &featured, `
		SELECT fc.id, fc.sort_order, fc.image,
			c.id AS "category.id", c.name AS "category.name", c.slug AS "category.slug",
			c.parent_id AS "category.parent_id", c.description AS "category.description",
			c.path AS "category.path", c.depth AS "category.depth",
			c.created_at AS "category.created_at", c.updated_at AS "category.updated_at"
		FROM featured_categories fc
		JOIN categories c ON c.id = fc.category_id
		ORDER BY fc.sort_order, fc.id
		LIMIT $1`, limit)
	return featured, err
}

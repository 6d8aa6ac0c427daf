package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"shop-service/internal/models"
	"shop-service/internal/store"
	"shop-service/internal/util"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// CatalogStore is the persistence the catalog service needs
type CatalogStore interface {
	ListPublishedProducts(ctx context.Context, categoryPath string, limit, offset int) ([]models.Product, int, error)
	GetProductBySlug(ctx context.Context, slug string) (*models.ProductDetail, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error)
	ListCategoryDescendants(ctx context.Context, path string) ([]models.Category, error)
	ListActiveCollections(ctx context.Context) ([]models.Collection, error)
}

// ProductPage is one page of the product listing
type ProductPage struct {
	Count    int
	Page     int
	PageSize int
	Results  []models.Product
}

// CatalogService serves the read side of the catalog
type CatalogService struct {
	store           CatalogStore
	defaultPageSize int
	maxPageSize     int
	logger          *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(store CatalogStore, defaultPageSize, maxPageSize int) *CatalogService {
	if defaultPageSize < 1 {
		defaultPageSize = 20
	}
	if maxPageSize < defaultPageSize {
		maxPageSize = defaultPageSize
	}
	return &CatalogService{
		store:           store,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
		logger:          util.Named("catalog-service"),
	}
}

// ListProducts returns a page of published products, newest first. A
// category filter includes the products of every descendant category.
func (s *CatalogService) ListProducts(ctx context.Context, page, pageSize int, categorySlug string) (*ProductPage, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.ListProducts",
		attribute.Int("page", page), attribute.String("category", categorySlug))
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = s.defaultPageSize
	}
	if pageSize > s.maxPageSize {
		pageSize = s.maxPageSize
	}
	// keep the offset within a 32-bit range
	if maxPage := math.MaxInt32 / pageSize; page > maxPage {
		page = maxPage
	}

	var path string
	if categorySlug != "" {
		category, err := s.store.GetCategoryBySlug(ctx, categorySlug)
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrCategoryNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load category: %w", err)
		}
		path = category.Path
	}

	products, total, err := s.store.ListPublishedProducts(ctx, path, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}

	return &ProductPage{
		Count:    total,
		Page:     page,
		PageSize: pageSize,
		Results:  products,
	}, nil
}

// GetProduct returns a published product with its variants, gallery and categories
func (s *CatalogService) GetProduct(ctx context.Context, slug string) (*models.ProductDetail, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.GetProduct", attribute.String("slug", slug))
	defer span.End()

	detail, err := s.store.GetProductBySlug(ctx, slug)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	if detail.Status != models.ProductStatusPublished {
		return nil, ErrProductNotFound
	}
	return detail, nil
}

// CategoryTree returns every category nested under its parent
func (s *CatalogService) CategoryTree(ctx context.Context) ([]*models.Category, error) {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return BuildCategoryTree(categories), nil
}

// CategoryDescendants returns the categories below the given one, shallowest first
func (s *CatalogService) CategoryDescendants(ctx context.Context, slug string) ([]models.Category, error) {
	category, err := s.store.GetCategoryBySlug(ctx, slug)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load category: %w", err)
	}
	return s.store.ListCategoryDescendants(ctx, category.Path)
}

// ListCollections returns the active collections
func (s *CatalogService) ListCollections(ctx context.Context) ([]models.Collection, error) {
	return s.store.ListActiveCollections(ctx)
}

// BuildCategoryTree nests a flat category list by parent. Sibling order
// follows the input order; categories whose parent is missing become roots.
func BuildCategoryTree(categories []models.Category) []*models.Category {
	nodes := make(map[int64]*models.Category, len(categories))
	ordered := make([]*models.Category, 0, len(categories))
	for i := range categories {
		c := categories[i]
		c.Children = nil
		nodes[c.ID] = &c
		ordered = append(ordered, &c)
	}

	roots := []*models.Category{}
	for _, node := range ordered {
		if node.ParentID.Valid {
			if parent, ok := nodes[node.ParentID.Int64]; ok && parent != node {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	return roots
}

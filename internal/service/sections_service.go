package service

import (
	"context"
	"encoding/json"
	"time"

	"shop-service/internal/models"
	"shop-service/internal/util"

	"go.uber.org/zap"
)

const (
	heroCacheKey               = "sections:hero"
	featuredProductsCacheKey   = "sections:featured-products"
	featuredCategoriesCacheKey = "sections:featured-categories"

	featuredCategoriesLimit = 3
)

// SectionsStore is the persistence the storefront sections need
type SectionsStore interface {
	ListHeroSections(ctx context.Context) ([]models.HeroSection, error)
	ListFeaturedProducts(ctx context.Context) ([]models.FeaturedProduct, error)
	ListFeaturedCategories(ctx context.Context, limit int) ([]models.FeaturedCategory, error)
}

// SectionsCache is a byte cache with expiry
type SectionsCache interface {
	GetCache(ctx context.Context, key string) ([]byte, error)
	SetCache(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeleteCache(ctx context.Context, keys ...string) error
}

// SectionsService serves the curated storefront content through a
// read-through cache. Cache failures fall back to the database.
type SectionsService struct {
	store  SectionsStore
	cache  SectionsCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewSectionsService creates a new sections service. cache may be nil.
func NewSectionsService(store SectionsStore, cache SectionsCache, ttl time.Duration) *SectionsService {
	return &SectionsService{
		store:  store,
		cache:  cache,
		ttl:    ttl,
		logger: util.Named("sections-service"),
	}
}

// HeroSections returns the hero banners by sort order
func (s *SectionsService) HeroSections(ctx context.Context) ([]models.HeroSection, error) {
	return cached(ctx, s, heroCacheKey, s.store.ListHeroSections)
}

// FeaturedProducts returns every featured product by sort order
func (s *SectionsService) FeaturedProducts(ctx context.Context) ([]models.FeaturedProduct, error) {
	return cached(ctx, s, featuredProductsCacheKey, s.store.ListFeaturedProducts)
}

// FeaturedCategories returns the first three featured categories by sort order
func (s *SectionsService) FeaturedCategories(ctx context.Context) ([]models.FeaturedCategory, error) {
	return cached(ctx, s, featuredCategoriesCacheKey, func(ctx context.Context) ([]models.FeaturedCategory, error) {
		return s.store.ListFeaturedCategories(ctx, featuredCategoriesLimit)
	})
}

// Invalidate drops every cached section
func (s *SectionsService) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.DeleteCache(ctx, heroCacheKey, featuredProductsCacheKey, featuredCategoriesCacheKey)
}

func cached[T any](ctx context.Context, s *SectionsService, key string, load func(context.Context) (T, error)) (T, error) {
	if s.cache != nil {
		if data, err := s.cache.GetCache(ctx, key); err == nil {
			var value T
			if err := json.Unmarshal(data, &value); err == nil {
				util.CacheLookupsTotal.WithLabelValues(key, "hit").Inc()
				return value, nil
			}
			s.logger.Warn("Discarding undecodable cache entry", zap.String("key", key))
		}
		util.CacheLookupsTotal.WithLabelValues(key, "miss").Inc()
	}

	value, err := load(ctx)
	if err != nil {
		return value, err
	}

	if s.cache != nil {
		data, err := json.Marshal(value)
		if err == nil {
			err = s.cache.SetCache(ctx, key, data, s.ttl)
		}
		if err != nil {
			s.logger.Warn("Failed to cache section", zap.String("key", key), zap.Error(err))
		}
	}
	return value, nil
}

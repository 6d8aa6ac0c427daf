package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"shop-service/config"
	"shop-service/internal/models"
	"shop-service/internal/service"
	"shop-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// CartService is the cart API the handlers call
type CartService interface {
	GetCart(ctx context.Context, sessionKey string) (*service.CartView, error)
	AddItem(ctx context.Context, sessionKey string, variantID int64, quantity int) (*service.CartView, error)
	UpdateItemQuantity(ctx context.Context, sessionKey string, itemID int64, quantity int) (*service.CartView, error)
	RemoveItem(ctx context.Context, sessionKey string, itemID int64) (*service.CartView, error)
}

// OrderService is the checkout API the handlers call
type OrderService interface {
	CreateOrderFromCart(ctx context.Context, sessionKey string, req *service.CheckoutRequest) (*models.OrderDetail, error)
	GetOrder(ctx context.Context, sessionKey, orderNumber string) (*models.OrderDetail, error)
	CheckCart(ctx context.Context, sessionKey string) error
}

// CatalogService is the catalog API the handlers call
type CatalogService interface {
	ListProducts(ctx context.Context, page, pageSize int, categorySlug string) (*service.ProductPage, error)
	GetProduct(ctx context.Context, slug string) (*models.ProductDetail, error)
	CategoryTree(ctx context.Context) ([]*models.Category, error)
	CategoryDescendants(ctx context.Context, slug string) ([]models.Category, error)
	ListCollections(ctx context.Context) ([]models.Collection, error)
}

// SectionsService is the storefront content API the handlers call
type SectionsService interface {
	HeroSections(ctx context.Context) ([]models.HeroSection, error)
	FeaturedProducts(ctx context.Context) ([]models.FeaturedProduct, error)
	FeaturedCategories(ctx context.Context) ([]models.FeaturedCategory, error)
}

// SessionResolver issues or refreshes shopper session tokens
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (string, bool, error)
}

// IdempotencyStore remembers checkout replays
type IdempotencyStore interface {
	GetIdempotencyKey(ctx context.Context, key string) (string, error)
	SetIdempotencyKey(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, lockKey string) error
}

// Pinger is a dependency checked by the readiness probe
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies wires the handler to the services
type Dependencies struct {
	Carts       CartService
	Orders      OrderService
	Catalog     CatalogService
	Sections    SectionsService
	Sessions    SessionResolver
	Idempotency IdempotencyStore
	Readiness   map[string]Pinger
}

// Handler contains HTTP handlers
type Handler struct {
	deps           Dependencies
	session        config.SessionConfig
	idempotencyTTL time.Duration
	logger         *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(deps Dependencies, session config.SessionConfig, idempotencyTTL time.Duration) *Handler {
	return &Handler{
		deps:           deps,
		session:        session,
		idempotencyTTL: idempotencyTTL,
		logger:         util.Named("api"),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		products := v1.Group("/products")
		products.GET("/", h.listProducts)
		products.GET("/categories/", h.categoryTree)
		products.GET("/categories/:slug/descendants/", h.categoryDescendants)
		products.GET("/collections/", h.listCollections)
		products.GET("/:slug/", h.getProduct)

		sections := v1.Group("/sections")
		sections.GET("/hero/", h.heroSections)
		sections.GET("/featured-products/", h.featuredProducts)
		sections.GET("/featured-categories/", h.featuredCategories)

		shop := v1.Group("", h.sessionMiddleware())
		shop.GET("/cart/", h.getCart)
		shop.POST("/cart/items/", h.addCartItem)
		shop.PATCH("/cart/:item_id/update/", h.updateCartItem)
		shop.DELETE("/cart/:item_id/remove/", h.removeCartItem)
		shop.POST("/checkout/", h.checkout)
		shop.GET("/orders/:order_number", h.getOrder)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck pings every registered dependency
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{}
	ready := true
	for name, dep := range h.deps.Readiness {
		if err := dep.Ping(ctx); err != nil {
			h.logger.Warn("Readiness check failed", zap.String("dependency", name), zap.Error(err))
			checks[name] = "down"
			ready = false
			continue
		}
		checks[name] = "up"
	}

	status, code := "ready", http.StatusOK
	if !ready {
		status, code = "not ready", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status": status,
		"checks": checks,
		"time":   time.Now().Unix(),
	})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			path,
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			path,
			status,
		).Inc()
	}
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

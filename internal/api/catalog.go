package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// listProducts returns a page of published products
func (h *Handler) listProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size"))

	result, err := h.deps.Catalog.ListProducts(c.Request.Context(), page, pageSize, c.Query("category"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newProductPageView(result))
}

// getProduct returns a product with variants and gallery
func (h *Handler) getProduct(c *gin.Context) {
	detail, err := h.deps.Catalog.GetProduct(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newProductDetailView(detail))
}

// categoryTree returns the nested category tree
func (h *Handler) categoryTree(c *gin.Context) {
	roots, err := h.deps.Catalog.CategoryTree(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCategoryTreeView(roots))
}

// categoryDescendants returns the flat subtree below a category
func (h *Handler) categoryDescendants(c *gin.Context) {
	categories, err := h.deps.Catalog.CategoryDescendants(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]categoryDepthView, 0, len(categories))
	for _, cat := range categories {
		out = append(out, categoryDepthView{
			categoryRef: categoryRef{ID: cat.ID, Name: cat.Name, Slug: cat.Slug},
			Depth:       cat.Depth,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) listCollections(c *gin.Context) {
	collections, err := h.deps.Catalog.ListCollections(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, collections)
}

func (h *Handler) heroSections(c *gin.Context) {
	sections, err := h.deps.Sections.HeroSections(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sections)
}

func (h *Handler) featuredProducts(c *gin.Context) {
	featured, err := h.deps.Sections.FeaturedProducts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]featuredProductView, 0, len(featured))
	for _, f := range featured {
		out = append(out, featuredProductView{Image: f.Image, Product: newProductView(f.Product)})
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) featuredCategories(c *gin.Context) {
	featured, err := h.deps.Sections.FeaturedCategories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]featuredCategoryView, 0, len(featured))
	for _, f := range featured {
		out = append(out, featuredCategoryView{
			Image:    f.Image,
			Category: categoryRef{ID: f.Category.ID, Name: f.Category.Name, Slug: f.Category.Slug},
		})
	}
	c.JSON(http.StatusOK, out)
}

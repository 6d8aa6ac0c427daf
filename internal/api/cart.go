package api

import (
	"errors"
	"net/http"

	"shop-service/internal/service"

	"github.com/gin-gonic/gin"
)

type addItemRequest struct {
	ProductVariantID *int64 `json:"product_variant_id" binding:"required"`
	Quantity         *int   `json:"quantity" binding:"required,min=1"`
}

type updateItemRequest struct {
	Quantity *int `json:"quantity" binding:"required,min=1"`
}

// getCart returns the session's cart
func (h *Handler) getCart(c *gin.Context) {
	view, err := h.deps.Carts.GetCart(c.Request.Context(), sessionKey(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCartView(view))
}

// addCartItem adds a variant to the session's cart
func (h *Handler) addCartItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, bindingErrors(err))
		return
	}

	view, err := h.deps.Carts.AddItem(c.Request.Context(), sessionKey(c), *req.ProductVariantID, *req.Quantity)
	if err != nil {
		var stockErr *service.OutOfStockError
		switch {
		case errors.As(err, &stockErr):
			c.JSON(http.StatusBadRequest, gin.H{"quantity": stockErr.Error()})
		case errors.Is(err, service.ErrVariantNotFound):
			c.JSON(http.StatusBadRequest, gin.H{"product_variant_id": "Product not found."})
		default:
			respondError(c, err)
		}
		return
	}

	c.JSON(http.StatusOK, newCartView(view))
}

// updateCartItem sets the quantity of a cart line
func (h *Handler) updateCartItem(c *gin.Context) {
	itemID, ok := pathID(c, "item_id")
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Cart item not found."})
		return
	}

	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, bindingErrors(err))
		return
	}

	view, err := h.deps.Carts.UpdateItemQuantity(c.Request.Context(), sessionKey(c), itemID, *req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, newCartView(view))
}

// removeCartItem deletes a cart line
func (h *Handler) removeCartItem(c *gin.Context) {
	itemID, ok := pathID(c, "item_id")
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Cart item not found."})
		return
	}

	view, err := h.deps.Carts.RemoveItem(c.Request.Context(), sessionKey(c), itemID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, newCartView(view))
}

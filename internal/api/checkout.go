package api

import (
	"errors"
	"net/http"
	"time"

	"shop-service/internal/models"
	"shop-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	idempotencyHeader   = "Idempotency-Key"
	checkoutLockTimeout = 30 * time.Second
)

type addressRequest struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	AddressLine1 string `json:"address_line_1"`
	AddressLine2 string `json:"address_line_2"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code"`
	Country      string `json:"country"`
}

func (a addressRequest) toModel() models.OrderAddress {
	return models.OrderAddress{
		FirstName:    a.FirstName,
		LastName:     a.LastName,
		Email:        a.Email,
		Phone:        a.Phone,
		AddressLine1: a.AddressLine1,
		AddressLine2: a.AddressLine2,
		City:         a.City,
		State:        a.State,
		PostalCode:   a.PostalCode,
		Country:      a.Country,
	}
}

// checkoutRequest is validated by the order service so that an empty cart
// is reported before field errors
type checkoutRequest struct {
	Email           string          `json:"email"`
	ShippingAddress addressRequest  `json:"shipping_address"`
	BillingAddress  *addressRequest `json:"billing_address"`
}

// checkout converts the session's cart into an order
func (h *Handler) checkout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// an empty cart takes precedence over a malformed body
		if cartErr := h.deps.Orders.CheckCart(c.Request.Context(), sessionKey(c)); cartErr != nil {
			h.respondCheckoutError(c, cartErr)
			return
		}
		c.JSON(http.StatusBadRequest, bindingErrors(err))
		return
	}

	ctx := c.Request.Context()
	session := sessionKey(c)

	idemKey := c.GetHeader(idempotencyHeader)
	if idemKey != "" && h.deps.Idempotency != nil {
		scoped := session + ":" + idemKey

		if replay := h.replayCheckout(c, scoped); replay {
			return
		}

		locked, err := h.deps.Idempotency.AcquireLock(ctx, "checkout:"+scoped, checkoutLockTimeout)
		if err != nil {
			h.logger.Warn("Failed to acquire checkout lock", zap.Error(err))
		} else if !locked {
			c.JSON(http.StatusConflict, gin.H{"error": "A checkout with this Idempotency-Key is already in progress."})
			return
		} else {
			defer func() {
				if err := h.deps.Idempotency.ReleaseLock(ctx, "checkout:"+scoped); err != nil {
					h.logger.Warn("Failed to release checkout lock", zap.Error(err))
				}
			}()
		}
	}

	in := &service.CheckoutRequest{
		Email:           req.Email,
		ShippingAddress: req.ShippingAddress.toModel(),
	}
	if req.BillingAddress != nil {
		billing := req.BillingAddress.toModel()
		in.BillingAddress = &billing
	}

	detail, err := h.deps.Orders.CreateOrderFromCart(ctx, session, in)
	if err != nil {
		h.respondCheckoutError(c, err)
		return
	}

	if idemKey != "" && h.deps.Idempotency != nil {
		if err := h.deps.Idempotency.SetIdempotencyKey(ctx, session+":"+idemKey, detail.OrderNumber, h.idempotencyTTL); err != nil {
			h.logger.Warn("Failed to record idempotency key",
				zap.String("order_number", detail.OrderNumber),
				zap.Error(err))
		}
	}

	c.JSON(http.StatusCreated, newOrderView(detail))
}

// replayCheckout answers with the order a previous request under the same
// idempotency key created. It reports whether a response was written.
func (h *Handler) replayCheckout(c *gin.Context, scoped string) bool {
	ctx := c.Request.Context()

	number, err := h.deps.Idempotency.GetIdempotencyKey(ctx, scoped)
	if err != nil {
		h.logger.Warn("Failed to read idempotency key", zap.Error(err))
		return false
	}
	if number == "" {
		return false
	}

	detail, err := h.deps.Orders.GetOrder(ctx, sessionKey(c), number)
	if err != nil {
		h.logger.Warn("Idempotency key points at an unreadable order",
			zap.String("order_number", number),
			zap.Error(err))
		return false
	}

	c.JSON(http.StatusOK, newOrderView(detail))
	return true
}

func (h *Handler) respondCheckoutError(c *gin.Context, err error) {
	var validation *service.ValidationError
	var stockErr *service.OutOfStockError

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, validation.Fields)
	case errors.As(err, &stockErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": stockErr.Error()})
	case errors.Is(err, service.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, gin.H{"error": msgEmptyCart})
	default:
		h.logger.Error("Checkout failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": msgCheckoutError})
	}
}

// getOrder returns an order placed by the session
func (h *Handler) getOrder(c *gin.Context) {
	detail, err := h.deps.Orders.GetOrder(c.Request.Context(), sessionKey(c), c.Param("order_number"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newOrderView(detail))
}

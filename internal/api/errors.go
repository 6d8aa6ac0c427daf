package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"shop-service/internal/service"
	"shop-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const (
	msgEmptyCart     = "Cart is empty or not found."
	msgCheckoutError = "Unable to create order. Please try again."
	msgInternal      = "Internal server error"
)

func init() {
	// Report binding errors with the JSON field names clients send
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	}
}

// bindingErrors converts a gin binding failure into a field -> message map
func bindingErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fieldPath(fe)] = fieldMessage(fe)
		}
		return fields
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return map[string]string{typeErr.Field: "A valid value is required."}
	}

	return map[string]string{"error": "Invalid request body"}
}

// fieldPath drops the root struct name from the validator namespace
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "min":
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "max":
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
	case "email":
		return "Enter a valid email address."
	case "iso3166_1_alpha2":
		return "Select a valid country."
	default:
		return "Invalid value."
	}
}

// respondError maps service errors onto the shared response shapes
func respondError(c *gin.Context, err error) {
	var validation *service.ValidationError
	var stockErr *service.OutOfStockError

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, validation.Fields)
	case errors.As(err, &stockErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": stockErr.Error()})
	case errors.Is(err, service.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, gin.H{"error": msgEmptyCart})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFoundMessage(err)})
	default:
		util.GetLogger().Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
	}
}

func notFoundMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrCartItemNotFound):
		return "Cart item not found."
	case errors.Is(err, service.ErrOrderNotFound):
		return "Order not found."
	case errors.Is(err, service.ErrProductNotFound), errors.Is(err, service.ErrVariantNotFound):
		return "Product not found."
	case errors.Is(err, service.ErrCategoryNotFound):
		return "Category not found."
	default:
		return "Not found."
	}
}

package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound is the root of every "does not exist or is not yours" error
	ErrNotFound = errors.New("not found")

	ErrVariantNotFound  = fmt.Errorf("product variant %w", ErrNotFound)
	ErrCartItemNotFound = fmt.Errorf("cart item %w", ErrNotFound)
	ErrOrderNotFound    = fmt.Errorf("order %w", ErrNotFound)
	ErrProductNotFound  = fmt.Errorf("product %w", ErrNotFound)
	ErrCategoryNotFound = fmt.Errorf("category %w", ErrNotFound)

	// ErrEmptyCart is returned when checkout finds no active cart or no items
	ErrEmptyCart = errors.New("cart is empty or not found")

	// ErrOutOfStock matches every *OutOfStockError via errors.Is
	ErrOutOfStock = errors.New("out of stock")

	// ErrInvalidTransition is returned for order status changes outside the lifecycle
	ErrInvalidTransition = errors.New("invalid order status transition")
)

// ValidationError carries per-field messages for malformed input
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError builds a ValidationError for a single field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %s", k, e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// OutOfStockError reports a requested quantity above the available stock
type OutOfStockError struct {
	VariantID int64
	SKU       string
	Available int
	Requested int
}

func (e *OutOfStockError) Error() string {
	if e.SKU != "" {
		return fmt.Sprintf("Only %d items of %s available in stock.", e.Available, e.SKU)
	}
	return fmt.Sprintf("Only %d items available in stock.", e.Available)
}

// Is lets errors.Is(err, ErrOutOfStock) match
func (e *OutOfStockError) Is(target error) bool {
	return target == ErrOutOfStock
}

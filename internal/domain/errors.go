package domain

import (
	"fmt"
	"net/http"

	apperrors "github.com/nileshop/backend/pkg/errors"
)

// Checkout error vocabulary. The first three are expected validation outcomes
// surfaced as client errors; CheckoutFailed wraps any infrastructure failure
// after rollback and is surfaced as a server error with a safe detail.

// ErrEmptyCart signals a checkout attempt against a missing or empty cart.
func ErrEmptyCart() *apperrors.AppError {
	return apperrors.New("EMPTY_CART", "cart is empty", http.StatusBadRequest, apperrors.ErrInvalidInput)
}

// ErrProductNotFound signals that a cart line references a product that no
// longer exists (or is no longer active) at checkout time.
func ErrProductNotFound(productID string) *apperrors.AppError {
	return apperrors.New(
		"PRODUCT_NOT_FOUND",
		fmt.Sprintf("product %s no longer exists", productID),
		http.StatusBadRequest,
		apperrors.ErrNotFound,
	)
}

// ErrInsufficientStock signals that a stock-tracked product cannot satisfy the
// requested quantity.
func ErrInsufficientStock(productID, productName string) *apperrors.AppError {
	name := productName
	if name == "" {
		name = productID
	}
	return apperrors.New(
		"INSUFFICIENT_STOCK",
		fmt.Sprintf("insufficient stock for product %s", name),
		http.StatusBadRequest,
		apperrors.ErrConflict,
	)
}

// ErrCheckoutFailed wraps an unexpected failure after the transaction rolled
// back. The message stays safe for clients; the cause is preserved for logs.
func ErrCheckoutFailed(err error) *apperrors.AppError {
	return apperrors.New("CHECKOUT_FAILED", "checkout could not be completed", http.StatusInternalServerError, err)
}

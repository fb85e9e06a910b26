package repository

import (
	"context"

	"github.com/nileshop/backend/internal/domain"
)

// ProductRepository reads the catalog. The core never writes products except
// through the checkout transaction's stock decrement.
type ProductRepository interface {
	// GetByID retrieves an active product. Inactive or missing products are
	// uniformly reported as not found.
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// List returns a page of active products, newest first, plus the total count.
	List(ctx context.Context, offset, limit int) ([]domain.Product, int, error)
}

// CartRepository persists carts and their lines outside the checkout
// transaction.
type CartRepository interface {
	// GetByUserID loads a user's cart with all lines joined with live product
	// names. Returns not found when the user has no cart yet.
	GetByUserID(ctx context.Context, userID string) (*domain.Cart, error)

	// GetOrCreate returns the user's cart, creating an empty one if absent.
	GetOrCreate(ctx context.Context, userID string) (*domain.Cart, error)

	// AddItem inserts a new cart line.
	AddItem(ctx context.Context, item *domain.CartItem) error

	// UpdateItemQuantity replaces the quantity of an existing line. Returns
	// not found when the line does not belong to the cart.
	UpdateItemQuantity(ctx context.Context, cartID, itemID string, quantity int) error

	// RemoveItem deletes a line. Absence is not an error.
	RemoveItem(ctx context.Context, cartID, itemID string) error

	// Clear deletes all lines and bumps the cart's updated_at. The cart row
	// itself survives.
	Clear(ctx context.Context, cartID string) error
}

// OrderRepository reads orders and applies admin status transitions after
// checkout has created them.
type OrderRepository interface {
	// GetByID loads an order with its lines.
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// ListByUser returns a page of a user's orders, newest first, plus the
	// total count.
	ListByUser(ctx context.Context, userID string, offset, limit int) ([]domain.Order, int, error)

	// UpdateStatus sets the order status. Returns not found for unknown orders.
	UpdateStatus(ctx context.Context, id, status string) error
}

// CheckoutTx is the unit of work the checkout engine drives inside a single
// database transaction. Every method sees and produces uncommitted state;
// nothing is visible to other requests until RunInTx commits.
type CheckoutTx interface {
	// CartForUpdate loads the user's cart and lines with the cart row locked,
	// serializing concurrent checkouts for the same user.
	CartForUpdate(ctx context.Context, userID string) (*domain.Cart, error)

	// ProductByID re-resolves the authoritative product record inside the
	// transaction. Inactive products are reported as not found.
	ProductByID(ctx context.Context, productID string) (*domain.Product, error)

	// DecrementStock atomically decrements stock if and only if the current
	// value covers the quantity. Returns false when stock was insufficient;
	// nothing is changed in that case.
	DecrementStock(ctx context.Context, productID string, quantity int) (bool, error)

	// InsertOrder writes the order header and all its lines.
	InsertOrder(ctx context.Context, order *domain.Order) error

	// MarkOrderPaid flips a freshly inserted order from pending to paid.
	MarkOrderPaid(ctx context.Context, orderID string) error

	// ClearCart deletes all cart lines and bumps the cart's updated_at.
	ClearCart(ctx context.Context, cartID string) error
}

// CheckoutRepository opens the transaction the checkout engine runs in.
type CheckoutRepository interface {
	// RunInTx begins a transaction, invokes fn with a transaction-scoped unit
	// of work, and commits. Any error from fn rolls everything back.
	RunInTx(ctx context.Context, fn func(tx CheckoutTx) error) error
}

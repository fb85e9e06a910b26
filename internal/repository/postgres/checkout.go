package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/nileshop/backend/internal/domain"
	"github.com/nileshop/backend/internal/repository"
	"github.com/nileshop/backend/pkg/database"
	apperrors "github.com/nileshop/backend/pkg/errors"
)

// CheckoutRepository implements repository.CheckoutRepository using
// PostgreSQL transactions.
type CheckoutRepository struct {
	db database.DBTX
}

// NewCheckoutRepository creates a PostgreSQL-backed checkout repository.
func NewCheckoutRepository(db database.DBTX) *CheckoutRepository {
	return &CheckoutRepository{db: db}
}

// RunInTx begins a transaction, runs fn against a transaction-scoped unit of
// work, and commits. Any error from fn rolls everything back: no stock
// decrement, no order rows, no cart mutation survive a failed checkout.
func (r *CheckoutRepository) RunInTx(ctx context.Context, fn func(tx repository.CheckoutTx) error) error {
	ctx, end := database.TraceQuery(ctx, "CheckoutTx", "BEGIN")
	tx, err := r.db.Begin(ctx)
	if err != nil {
		end(err)
		return fmt.Errorf("begin checkout tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&checkoutTx{tx: tx}); err != nil {
		end(err)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		end(err)
		return fmt.Errorf("commit checkout tx: %w", err)
	}

	end(nil)
	return nil
}

// checkoutTx wraps a pgx transaction with the checkout unit-of-work queries.
type checkoutTx struct {
	tx pgx.Tx
}

// CartForUpdate loads the user's cart with the cart row locked. The lock
// serializes concurrent checkouts for the same user, so a cart can never be
// spent twice or read half-cleared.
func (t *checkoutTx) CartForUpdate(ctx context.Context, userID string) (*domain.Cart, error) {
	query := `SELECT id, user_id, created_at, updated_at FROM carts WHERE user_id = $1 FOR UPDATE`

	var cart domain.Cart
	err := t.tx.QueryRow(ctx, query, userID).Scan(&cart.ID, &cart.UserID, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("cart", userID)
		}
		return nil, fmt.Errorf("lock cart: %w", err)
	}

	itemsQuery := `
		SELECT id, cart_id, product_id, unit_price, quantity, added_at
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY added_at`

	rows, err := t.tx.Query(ctx, itemsQuery, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("select cart items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(
			&item.ID, &item.CartID, &item.ProductID, &item.UnitPrice, &item.Quantity, &item.AddedAt,
		); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		cart.Items = append(cart.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart items: %w", err)
	}

	return &cart, nil
}

// ProductByID re-resolves the authoritative product record inside the
// transaction. The read cache is deliberately bypassed here.
func (t *checkoutTx) ProductByID(ctx context.Context, productID string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 AND is_active = TRUE`

	var p domain.Product
	err := t.tx.QueryRow(ctx, query, productID).Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Currency,
		&p.Stock, &p.StockTracked, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", productID)
		}
		return nil, fmt.Errorf("select product: %w", err)
	}

	return &p, nil
}

// DecrementStock performs an atomic compare-and-decrement. The WHERE clause
// makes the sufficiency check and the write a single statement, so stock can
// never go negative regardless of the transaction isolation level. Zero rows
// affected means the stock did not cover the quantity.
func (t *checkoutTx) DecrementStock(ctx context.Context, productID string, quantity int) (bool, error) {
	query := `
		UPDATE products
		SET stock = stock - $1, updated_at = $2
		WHERE id = $3 AND stock >= $1`

	ct, err := t.tx.Exec(ctx, query, quantity, time.Now().UTC(), productID)
	if err != nil {
		return false, fmt.Errorf("decrement stock: %w", err)
	}

	return ct.RowsAffected() > 0, nil
}

// InsertOrder writes the order header and all of its lines.
func (t *checkoutTx) InsertOrder(ctx context.Context, order *domain.Order) error {
	headerQuery := `
		INSERT INTO orders (id, user_id, status, total, currency, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := t.tx.Exec(ctx, headerQuery,
		order.ID, order.UserID, order.Status, order.Total, order.Currency,
		order.Notes, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	lineQuery := `
		INSERT INTO order_items (id, order_id, product_id, product_name, unit_price, quantity, line_total)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	for _, item := range order.Items {
		if _, err := t.tx.Exec(ctx, lineQuery,
			item.ID, item.OrderID, item.ProductID, item.ProductName,
			item.UnitPrice, item.Quantity, item.LineTotal,
		); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	return nil
}

// MarkOrderPaid flips a pending order to paid. Payment is simulated, so this
// happens unconditionally inside the same transaction.
func (t *checkoutTx) MarkOrderPaid(ctx context.Context, orderID string) error {
	query := `UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`

	ct, err := t.tx.Exec(ctx, query,
		domain.OrderStatusPaid, time.Now().UTC(), orderID, domain.OrderStatusPending,
	)
	if err != nil {
		return fmt.Errorf("mark order paid: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("order", orderID)
	}

	return nil
}

// ClearCart deletes all cart lines and bumps the cart's updated_at. The cart
// row itself survives for reuse.
func (t *checkoutTx) ClearCart(ctx context.Context, cartID string) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return fmt.Errorf("clear cart items: %w", err)
	}

	if _, err := t.tx.Exec(ctx, `UPDATE carts SET updated_at = $1 WHERE id = $2`, time.Now().UTC(), cartID); err != nil {
		return fmt.Errorf("touch cart: %w", err)
	}

	return nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nileshop/backend/internal/domain"
	"github.com/nileshop/backend/pkg/database"
	apperrors "github.com/nileshop/backend/pkg/errors"
)

// CartRepository implements repository.CartRepository using PostgreSQL.
type CartRepository struct {
	db database.DBTX
}

// NewCartRepository creates a PostgreSQL-backed cart repository.
func NewCartRepository(db database.DBTX) *CartRepository {
	return &CartRepository{db: db}
}

// GetByUserID loads a user's cart with all lines. Line product names are
// joined live from the catalog for display; deleted products show the last
// known ID only.
func (r *CartRepository) GetByUserID(ctx context.Context, userID string) (*domain.Cart, error) {
	query := `SELECT id, user_id, created_at, updated_at FROM carts WHERE user_id = $1`

	ctx, end := database.TraceQuery(ctx, "GetCart", query)
	var err error
	defer func() { end(err) }()

	var cart domain.Cart
	err = r.db.QueryRow(ctx, query, userID).Scan(&cart.ID, &cart.UserID, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = apperrors.NotFound("cart", userID)
			return nil, err
		}
		err = fmt.Errorf("select cart: %w", err)
		return nil, err
	}

	cart.Items, err = r.loadItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}

	return &cart, nil
}

// GetOrCreate returns the user's cart, creating an empty one on first use.
func (r *CartRepository) GetOrCreate(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := r.GetByUserID(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	created := &domain.Cart{
		ID:        uuid.New().String(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// A concurrent first-add can win the insert race; fall back to the
	// existing row in that case.
	query := `
		INSERT INTO carts (id, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO NOTHING`

	ct, err := r.db.Exec(ctx, query, created.ID, created.UserID, created.CreatedAt, created.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert cart: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return r.GetByUserID(ctx, userID)
	}

	return created, nil
}

// AddItem inserts a new cart line.
func (r *CartRepository) AddItem(ctx context.Context, item *domain.CartItem) error {
	query := `
		INSERT INTO cart_items (id, cart_id, product_id, unit_price, quantity, added_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	ctx, end := database.TraceQuery(ctx, "AddCartItem", query)
	_, err := r.db.Exec(ctx, query,
		item.ID, item.CartID, item.ProductID, item.UnitPrice, item.Quantity, item.AddedAt,
	)
	end(err)
	if err != nil {
		return fmt.Errorf("insert cart item: %w", err)
	}

	return r.touch(ctx, item.CartID)
}

// UpdateItemQuantity replaces the quantity of an existing line.
func (r *CartRepository) UpdateItemQuantity(ctx context.Context, cartID, itemID string, quantity int) error {
	query := `UPDATE cart_items SET quantity = $1 WHERE id = $2 AND cart_id = $3`

	ctx, end := database.TraceQuery(ctx, "UpdateCartItem", query)
	ct, err := r.db.Exec(ctx, query, quantity, itemID, cartID)
	end(err)
	if err != nil {
		return fmt.Errorf("update cart item: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("cart item", itemID)
	}

	return r.touch(ctx, cartID)
}

// RemoveItem deletes a line. Removing an absent line is not an error.
func (r *CartRepository) RemoveItem(ctx context.Context, cartID, itemID string) error {
	query := `DELETE FROM cart_items WHERE id = $1 AND cart_id = $2`

	ctx, end := database.TraceQuery(ctx, "RemoveCartItem", query)
	_, err := r.db.Exec(ctx, query, itemID, cartID)
	end(err)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}

	return r.touch(ctx, cartID)
}

// Clear deletes all lines, leaving the cart row in place.
func (r *CartRepository) Clear(ctx context.Context, cartID string) error {
	query := `DELETE FROM cart_items WHERE cart_id = $1`

	ctx, end := database.TraceQuery(ctx, "ClearCart", query)
	_, err := r.db.Exec(ctx, query, cartID)
	end(err)
	if err != nil {
		return fmt.Errorf("clear cart items: %w", err)
	}

	return r.touch(ctx, cartID)
}

func (r *CartRepository) touch(ctx context.Context, cartID string) error {
	_, err := r.db.Exec(ctx, `UPDATE carts SET updated_at = $1 WHERE id = $2`, time.Now().UTC(), cartID)
	if err != nil {
		return fmt.Errorf("touch cart: %w", err)
	}
	return nil
}

func (r *CartRepository) loadItems(ctx context.Context, cartID string) ([]domain.CartItem, error) {
	query := `
		SELECT ci.id, ci.cart_id, ci.product_id, COALESCE(p.name, ''), ci.unit_price, ci.quantity, ci.added_at
		FROM cart_items ci
		LEFT JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.added_at`

	rows, err := r.db.Query(ctx, query, cartID)
	if err != nil {
		return nil, fmt.Errorf("select cart items: %w", err)
	}
	defer rows.Close()

	var items []domain.CartItem
	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(
			&item.ID, &item.CartID, &item.ProductID, &item.ProductName,
			&item.UnitPrice, &item.Quantity, &item.AddedAt,
		); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart items: %w", err)
	}

	return items, nil
}

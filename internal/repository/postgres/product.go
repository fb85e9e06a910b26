package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/nileshop/backend/internal/domain"
	"github.com/nileshop/backend/pkg/database"
	apperrors "github.com/nileshop/backend/pkg/errors"
)

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	db database.DBTX
}

// NewProductRepository creates a PostgreSQL-backed product repository.
func NewProductRepository(db database.DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

const productColumns = `id, name, description, price, currency, stock, stock_tracked, is_active, created_at, updated_at`

// GetByID retrieves an active product by its ID. Inactive rows are treated
// the same as missing ones.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 AND is_active = TRUE`

	ctx, end := database.TraceQuery(ctx, "GetProduct", query)
	var err error
	defer func() { end(err) }()

	var p domain.Product
	err = r.db.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Currency,
		&p.Stock, &p.StockTracked, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = apperrors.NotFound("product", id)
			return nil, err
		}
		err = fmt.Errorf("select product: %w", err)
		return nil, err
	}

	return &p, nil
}

// List returns a page of active products, newest first, plus the total count.
func (r *ProductRepository) List(ctx context.Context, offset, limit int) ([]domain.Product, int, error) {
	countQuery := `SELECT COUNT(*) FROM products WHERE is_active = TRUE`

	var total int
	if err := r.db.QueryRow(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE is_active = TRUE
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	ctx, end := database.TraceQuery(ctx, "ListProducts", query)
	rows, err := r.db.Query(ctx, query, limit, offset)
	end(err)
	if err != nil {
		return nil, 0, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Description, &p.Price, &p.Currency,
			&p.Stock, &p.StockTracked, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate products: %w", err)
	}

	return products, total, nil
}

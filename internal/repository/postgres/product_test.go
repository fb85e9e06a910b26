package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nileshop/backend/internal/domain"
	"github.com/nileshop/backend/pkg/database"
	apperrors "github.com/nileshop/backend/pkg/errors"
)

func productTestColumns() []string {
	return []string{"id", "name", "description", "price", "currency", "stock", "stock_tracked", "is_active", "created_at", "updated_at"}
}

func productRow(p *domain.Product) []any {
	return []any{p.ID, p.Name, p.Description, p.Price, p.Currency, p.Stock, p.StockTracked, p.IsActive, p.CreatedAt, p.UpdatedAt}
}

func sampleProduct() *domain.Product {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Product{
		ID:           "prod-1",
		Name:         "Ceramic Mug",
		Description:  "Blue ceramic mug",
		Price:        2500,
		Currency:     "EGP",
		Stock:        10,
		StockTracked: true,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func newProductRepo(t *testing.T) (*ProductRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	return NewProductRepository(mock), mock
}

func TestProductRepository_GetByID_Success(t *testing.T) {
	repo, mock := newProductRepo(t)
	defer mock.Close()

	want := sampleProduct()
	mock.ExpectQuery("FROM products WHERE id = \\$1 AND is_active = TRUE").
		WithArgs("prod-1").
		WillReturnRows(pgxmock.NewRows(productTestColumns()).AddRow(productRow(want)...))

	got, err := repo.GetByID(context.Background(), "prod-1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := newProductRepo(t)
	defer mock.Close()

	mock.ExpectQuery("FROM products").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(productTestColumns()))

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_GetByID_QueryError(t *testing.T) {
	repo, mock := newProductRepo(t)
	defer mock.Close()

	mock.ExpectQuery("FROM products").
		WithArgs("prod-1").
		WillReturnError(errors.New("connection reset"))

	_, err := repo.GetByID(context.Background(), "prod-1")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "select product")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_List_ReturnsPageAndTotal(t *testing.T) {
	repo, mock := newProductRepo(t)
	defer mock.Close()

	p1 := sampleProduct()
	p2 := sampleProduct()
	p2.ID = "prod-2"
	p2.Name = "Tea Pot"

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM products").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(42))
	mock.ExpectQuery("FROM products").
		WithArgs(20, 0).
		WillReturnRows(pgxmock.NewRows(productTestColumns()).
			AddRow(productRow(p1)...).
			AddRow(productRow(p2)...))

	products, total, err := repo.List(context.Background(), 0, 20)
	require.NoError(t, err)
	assert.Equal(t, 42, total)
	require.Len(t, products, 2)
	assert.Equal(t, "prod-2", products[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_List_Empty(t *testing.T) {
	repo, mock := newProductRepo(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM products").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("FROM products").
		WithArgs(20, 0).
		WillReturnRows(pgxmock.NewRows(productTestColumns()))

	products, total, err := repo.List(context.Background(), 0, 20)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, products)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nileshop/backend/internal/domain"
	"github.com/nileshop/backend/internal/repository"
	apperrors "github.com/nileshop/backend/pkg/errors"
)

// CartService implements the cart mutation operations feeding checkout.
type CartService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	logger   *slog.Logger
}

// NewCartService creates the cart service.
func NewCartService(carts repository.CartRepository, products repository.ProductRepository, logger *slog.Logger) *CartService {
	return &CartService{
		carts:    carts,
		products: products,
		logger:   logger,
	}
}

// GetCart returns the user's cart. A user who never added anything gets an
// empty cart DTO rather than an error.
func (s *CartService) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.carts.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return &domain.Cart{UserID: userID, Items: []domain.CartItem{}}, nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return cart, nil
}

// AddItem adds a product to the user's cart, creating the cart lazily. A
// non-positive quantity is coerced to 1. An existing line for the same
// product has quantities summed without re-pricing; a new line snapshots the
// product's current price.
func (s *CartService) AddItem(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error) {
	if quantity <= 0 {
		quantity = 1
	}

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	cart, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get or create cart: %w", err)
	}

	if existing := cart.FindItem(productID); existing != nil {
		newQty := existing.Quantity + quantity
		if err := s.carts.UpdateItemQuantity(ctx, cart.ID, existing.ID, newQty); err != nil {
			return nil, fmt.Errorf("merge cart line: %w", err)
		}
	} else {
		item := &domain.CartItem{
			ID:        uuid.New().String(),
			CartID:    cart.ID,
			ProductID: product.ID,
			UnitPrice: product.Price,
			Quantity:  quantity,
			AddedAt:   time.Now().UTC(),
		}
		if err := s.carts.AddItem(ctx, item); err != nil {
			return nil, fmt.Errorf("add cart line: %w", err)
		}
	}

	s.logger.DebugContext(ctx, "cart item added",
		slog.String("user_id", userID),
		slog.String("product_id", productID),
		slog.Int("quantity", quantity),
	)

	return s.carts.GetByUserID(ctx, userID)
}

// UpdateItem replaces a line's quantity. A non-positive quantity removes the
// line instead. The price captured at add-time is never re-resolved.
func (s *CartService) UpdateItem(ctx context.Context, userID, itemID string, quantity int) (*domain.Cart, error) {
	cart, err := s.carts.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if quantity <= 0 {
		if err := s.carts.RemoveItem(ctx, cart.ID, itemID); err != nil {
			return nil, fmt.Errorf("remove cart line: %w", err)
		}
	} else {
		if err := s.carts.UpdateItemQuantity(ctx, cart.ID, itemID, quantity); err != nil {
			return nil, err
		}
	}

	return s.carts.GetByUserID(ctx, userID)
}

// RemoveItem deletes a line. A missing cart or line is not an error.
func (s *CartService) RemoveItem(ctx context.Context, userID, itemID string) error {
	cart, err := s.carts.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil
		}
		return err
	}

	return s.carts.RemoveItem(ctx, cart.ID, itemID)
}

// Clear removes every line from the user's cart. Clearing an absent cart is
// a no-op.
func (s *CartService) Clear(ctx context.Context, userID string) error {
	cart, err := s.carts.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil
		}
		return err
	}

	return s.carts.Clear(ctx, cart.ID)
}

package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nileshop/backend/internal/domain"
	"github.com/nileshop/backend/internal/repository"
	apperrors "github.com/nileshop/backend/pkg/errors"
)

var checkoutAttempts = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "checkout_attempts_total",
		Help: "Checkout attempts by outcome",
	},
	[]string{"result"},
)

// EventPublisher publishes order lifecycle events. *event.Producer satisfies it.
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, order *domain.Order) error
	PublishOrderPaid(ctx context.Context, order *domain.Order) error
	PublishOrderStatusChanged(ctx context.Context, orderID, from, to string) error
}

// ProductCacheInvalidator drops cached catalog entries whose stock a checkout
// just changed. *rediscache.ProductRepository satisfies it.
type ProductCacheInvalidator interface {
	Invalidate(ctx context.Context, id string) error
}

// CheckoutService converts a user's cart into an immutable paid order inside
// a single database transaction. Either a fully formed order with decremented
// stock and an emptied cart exists afterwards, or nothing changed.
type CheckoutService struct {
	repo   repository.CheckoutRepository
	events EventPublisher
	cache  ProductCacheInvalidator
	logger *slog.Logger
}

// NewCheckoutService creates the checkout engine. events and cache may be nil
// when the corresponding infrastructure is not configured.
func NewCheckoutService(repo repository.CheckoutRepository, events EventPublisher, cache ProductCacheInvalidator, logger *slog.Logger) *CheckoutService {
	return &CheckoutService{
		repo:   repo,
		events: events,
		cache:  cache,
		logger: logger,
	}
}

// Checkout runs the full cart-to-order conversion for the given user. The
// returned error is one of the checkout vocabulary: EMPTY_CART,
// PRODUCT_NOT_FOUND, INSUFFICIENT_STOCK for validation failures, or
// CHECKOUT_FAILED wrapping any infrastructure failure after rollback.
func (s *CheckoutService) Checkout(ctx context.Context, userID, notes string) (*domain.Order, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}

	var order *domain.Order

	err := s.repo.RunInTx(ctx, func(tx repository.CheckoutTx) error {
		cart, err := tx.CartForUpdate(ctx, userID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return domain.ErrEmptyCart()
			}
			return err
		}
		if cart.IsEmpty() {
			return domain.ErrEmptyCart()
		}

		built, err := s.buildOrder(ctx, tx, cart, userID, notes)
		if err != nil {
			return err
		}

		if err := tx.InsertOrder(ctx, built); err != nil {
			return err
		}

		// Payment is simulated as unconditionally successful.
		if err := tx.MarkOrderPaid(ctx, built.ID); err != nil {
			return err
		}
		built.Status = domain.OrderStatusPaid
		built.UpdatedAt = time.Now().UTC()

		if err := tx.ClearCart(ctx, cart.ID); err != nil {
			return err
		}

		order = built
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, userID, err)
	}

	checkoutAttempts.WithLabelValues("success").Inc()
	s.logger.InfoContext(ctx, "checkout completed",
		slog.String("user_id", userID),
		slog.String("order_id", order.ID),
		slog.Int64("total", order.Total),
		slog.String("currency", order.Currency),
		slog.Int("lines", len(order.Items)),
	)

	s.invalidateCache(ctx, order)
	s.publish(ctx, order)

	return order, nil
}

// invalidateCache drops the cached catalog entry of every product the
// committed checkout touched. Failures are logged and dropped; the cache TTL
// still bounds staleness.
func (s *CheckoutService) invalidateCache(ctx context.Context, order *domain.Order) {
	if s.cache == nil {
		return
	}
	for _, item := range order.Items {
		if err := s.cache.Invalidate(ctx, item.ProductID); err != nil {
			s.logger.WarnContext(ctx, "product cache invalidation failed",
				slog.String("product_id", item.ProductID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// buildOrder validates every cart line against the authoritative catalog,
// decrements stock, and assembles the pending order. Any returned error
// aborts the surrounding transaction.
func (s *CheckoutService) buildOrder(ctx context.Context, tx repository.CheckoutTx, cart *domain.Cart, userID, notes string) (*domain.Order, error) {
	now := time.Now().UTC()
	order := &domain.Order{
		ID:        uuid.New().String(),
		UserID:    userID,
		Status:    domain.OrderStatusPending,
		Notes:     notes,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var (
		total    int64
		currency string
	)

	for _, line := range cart.Items {
		product, err := tx.ProductByID(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, domain.ErrProductNotFound(line.ProductID)
			}
			return nil, err
		}

		if product.StockTracked {
			if !product.HasStock(line.Quantity) {
				return nil, domain.ErrInsufficientStock(product.ID, product.Name)
			}
			// The conditional update re-checks sufficiency atomically, so a
			// repeated product in one cart or a concurrent checkout can still
			// be refused here even though the read above passed.
			ok, err := tx.DecrementStock(ctx, product.ID, line.Quantity)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, domain.ErrInsufficientStock(product.ID, product.Name)
			}
		}

		if product.Currency != "" {
			if currency != "" && currency != product.Currency {
				s.logger.WarnContext(ctx, "mixed currencies in cart, last one wins",
					slog.String("user_id", userID),
					slog.String("kept", product.Currency),
					slog.String("dropped", currency),
				)
			}
			currency = product.Currency
		}

		lineTotal := line.UnitPrice * int64(line.Quantity)
		total += lineTotal

		order.Items = append(order.Items, domain.OrderItem{
			ID:          uuid.New().String(),
			OrderID:     order.ID,
			ProductID:   product.ID,
			ProductName: product.Name,
			UnitPrice:   line.UnitPrice,
			Quantity:    line.Quantity,
			LineTotal:   lineTotal,
		})
	}

	if currency == "" {
		currency = domain.DefaultCurrency
	}
	order.Total = total
	order.Currency = currency

	return order, nil
}

// fail classifies the transaction error, records the metric, and returns the
// client-facing error. Validation failures pass through untouched; anything
// else is wrapped as CHECKOUT_FAILED with the cause kept for logs only.
func (s *CheckoutService) fail(ctx context.Context, userID string, err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		checkoutAttempts.WithLabelValues(strings.ToLower(appErr.Code)).Inc()
		s.logger.InfoContext(ctx, "checkout rejected",
			slog.String("user_id", userID),
			slog.String("code", appErr.Code),
		)
		return err
	}

	checkoutAttempts.WithLabelValues("error").Inc()
	s.logger.ErrorContext(ctx, "checkout failed, transaction rolled back",
		slog.String("user_id", userID),
		slog.String("error", err.Error()),
	)
	return domain.ErrCheckoutFailed(err)
}

// publish emits order.created and order.paid. Event failures never undo a
// committed checkout; they are logged and dropped.
func (s *CheckoutService) publish(ctx context.Context, order *domain.Order) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishOrderCreated(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.created",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}
	if err := s.events.PublishOrderPaid(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.paid",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}
}

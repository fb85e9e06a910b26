package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nileshop/backend/internal/domain"
	"github.com/nileshop/backend/internal/repository"
	apperrors "github.com/nileshop/backend/pkg/errors"
	"github.com/nileshop/backend/pkg/pagination"
)

// OrderService reads orders and applies admin status transitions.
type OrderService struct {
	orders repository.OrderRepository
	events EventPublisher
	logger *slog.Logger
}

// NewOrderService creates the order service.
func NewOrderService(orders repository.OrderRepository, events EventPublisher, logger *slog.Logger) *OrderService {
	return &OrderService{
		orders: orders,
		events: events,
		logger: logger,
	}
}

// List returns a page of the caller's orders, newest first.
func (s *OrderService) List(ctx context.Context, userID string, params pagination.Params) (*pagination.Result[domain.Order], error) {
	orders, total, err := s.orders.ListByUser(ctx, userID, params.Offset, params.PageSize)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	result := pagination.NewResult(orders, total, params)
	return &result, nil
}

// Get fetches one order for the caller. An order owned by another user is
// indistinguishable from a missing one.
func (s *OrderService) Get(ctx context.Context, userID, orderID string) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, apperrors.NotFound("order", orderID)
	}
	return order, nil
}

// UpdateStatus applies an admin status transition, rejecting unknown statuses
// and moves the transition table does not allow.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID, status string) (*domain.Order, error) {
	if !domain.IsValidOrderStatus(status) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown order status %q", status))
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !domain.CanTransition(order.Status, status) {
		return nil, apperrors.Conflict(fmt.Sprintf("cannot transition order from %s to %s", order.Status, status))
	}

	if err := s.orders.UpdateStatus(ctx, orderID, status); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "order status changed",
		slog.String("order_id", orderID),
		slog.String("from", order.Status),
		slog.String("to", status),
	)

	if s.events != nil {
		if err := s.events.PublishOrderStatusChanged(ctx, orderID, order.Status, status); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish order.status-changed",
				slog.String("order_id", orderID),
				slog.String("error", err.Error()),
			)
		}
	}

	order.Status = status
	return order, nil
}

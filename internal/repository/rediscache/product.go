package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nileshop/backend/internal/domain"
	"github.com/nileshop/backend/internal/repository"
)

const keyPrefix = "product:"

// ProductRepository is a cache-aside decorator over the catalog repository.
// Reads go through Redis with a short TTL; cache failures degrade to the
// underlying store, never to an error. The checkout transaction bypasses this
// decorator completely and re-reads authoritative rows inside its tx.
type ProductRepository struct {
	inner  repository.ProductRepository
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewProductRepository wraps inner with a Redis cache.
func NewProductRepository(inner repository.ProductRepository, client *redis.Client, ttl time.Duration, logger *slog.Logger) *ProductRepository {
	return &ProductRepository{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// GetByID returns the cached product when present, otherwise reads through
// and populates the cache. Not-found results are not cached.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	key := keyPrefix + id

	data, err := r.client.Get(ctx, key).Bytes()
	if err == nil {
		var p domain.Product
		if err := json.Unmarshal(data, &p); err == nil {
			return &p, nil
		}
		// Corrupt entry: drop it and fall through to the source.
		_ = r.client.Del(ctx, key).Err()
	} else if !errors.Is(err, redis.Nil) {
		r.logger.WarnContext(ctx, "product cache read failed",
			slog.String("product_id", id),
			slog.String("error", err.Error()),
		)
	}

	p, err := r.inner.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(p); err == nil {
		if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
			r.logger.WarnContext(ctx, "product cache write failed",
				slog.String("product_id", id),
				slog.String("error", err.Error()),
			)
		}
	}

	return p, nil
}

// List is not cached; listing pages are cheap and churn with every catalog
// change.
func (r *ProductRepository) List(ctx context.Context, offset, limit int) ([]domain.Product, int, error) {
	return r.inner.List(ctx, offset, limit)
}

// Invalidate removes a product from the cache, e.g. after checkout decrements
// its stock.
func (r *ProductRepository) Invalidate(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("redis del product: %w", err)
	}
	return nil
}

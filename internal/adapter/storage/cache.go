package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/niksmo/farm-bridge/internal/core/domain"
	"github.com/niksmo/farm-bridge/internal/core/port"
	"github.com/niksmo/farm-bridge/pkg/retry"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const productsSnapshotKey = "farmbridge:products:snapshot"

var errCacheMiss = errors.New("cache miss")

type snapshotCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

type RedisCache struct {
	cl *redis.Client
}

// NewRedisCache connects to redis and waits for a ping answer.
func NewRedisCache(
	ctx context.Context, addr, password string, db int,
) (RedisCache, error) {
	const op = "NewRedisCache"
	log := slog.With("op", op)

	cl := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	retryCfg := retry.RetryConfig{
		MaxAttempts: 5,
		Backoff:     retry.ExponentialBackoff(200 * time.Millisecond),
	}
	err := retry.Do(ctx, retryCfg, func() error {
		return cl.Ping(ctx).Err()
	})
	if err != nil {
		_ = cl.Close()
		return RedisCache{}, fmt.Errorf("%s: redis is unavailable: %w", op, err)
	}

	log.Info("redis is available", "addr", addr)
	return RedisCache{cl}, nil
}

func (c RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := c.cl.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errCacheMiss
	}
	return b, err
}

func (c RedisCache) Set(
	ctx context.Context, key string, value []byte, ttl time.Duration,
) error {
	return c.cl.Set(ctx, key, value, ttl).Err()
}

func (c RedisCache) Del(ctx context.Context, key string) error {
	return c.cl.Del(ctx, key).Err()
}

func (c RedisCache) Close() {
	const op = "RedisCache.Close"
	log := slog.With("op", op)

	log.Info("closing redis client...")
	if err := c.cl.Close(); err != nil {
		log.Error("failed to close", "err", err)
		return
	}
	log.Info("redis client is closed")
}

type productRecord struct {
	ProductID   string          `json:"product_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Category    string          `json:"category"`
	Image       string          `json:"image"`
}

var _ port.ProductsStorage = (*CachedProductsRepository)(nil)

// A CachedProductsRepository keeps the whole catalogue snapshot in cache.
//
// Every store drops the snapshot. A snapshot read concurrently
// with a store may live until ttl expires.
type CachedProductsRepository struct {
	next  port.ProductsStorage
	cache snapshotCache
	ttl   time.Duration
}

func NewCachedProductsRepository(
	next port.ProductsStorage, cache snapshotCache, ttl time.Duration,
) CachedProductsRepository {
	return CachedProductsRepository{next, cache, ttl}
}

func (r CachedProductsRepository) StoreProducts(
	ctx context.Context, vs []domain.Product,
) error {
	const op = "CachedProductsRepository.StoreProducts"
	log := slog.With("op", op)

	if err := r.next.StoreProducts(ctx, vs); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := r.cache.Del(ctx, productsSnapshotKey); err != nil {
		log.Warn("failed to drop snapshot", "err", err)
	}
	return nil
}

// ReadProducts serves the cached snapshot. Cache failures fall back
// to the underlying storage.
func (r CachedProductsRepository) ReadProducts(
	ctx context.Context,
) ([]domain.Product, error) {
	const op = "CachedProductsRepository.ReadProducts"
	log := slog.With("op", op)

	b, err := r.cache.Get(ctx, productsSnapshotKey)
	if err == nil {
		vs, err := decodeSnapshot(b)
		if err == nil {
			return vs, nil
		}
		log.Warn("invalid snapshot", "err", err)
	} else if !errors.Is(err, errCacheMiss) {
		log.Warn("failed to read snapshot", "err", err)
	}

	vs, err := r.next.ReadProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	b, err = encodeSnapshot(vs)
	if err != nil {
		log.Warn("failed to encode snapshot", "err", err)
		return vs, nil
	}
	if err := r.cache.Set(ctx, productsSnapshotKey, b, r.ttl); err != nil {
		log.Warn("failed to write snapshot", "err", err)
	}
	return vs, nil
}

func (r CachedProductsRepository) ReadProduct(
	ctx context.Context, productID string,
) (domain.Product, error) {
	return r.next.ReadProduct(ctx, productID)
}

func encodeSnapshot(vs []domain.Product) ([]byte, error) {
	rs := make([]productRecord, len(vs))
	for i, v := range vs {
		rs[i] = productRecord(v)
	}
	return json.Marshal(rs)
}

func decodeSnapshot(b []byte) ([]domain.Product, error) {
	var rs []productRecord
	if err := json.Unmarshal(b, &rs); err != nil {
		return nil, err
	}
	vs := make([]domain.Product, len(rs))
	for i, r := range rs {
		vs[i] = domain.Product(r)
	}
	return vs, nil
}

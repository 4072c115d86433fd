package rediscache

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phenrril/storefront/internal/domain"
)

func testRedisAddr() string {
	if a := os.Getenv("REDIS_ADDR"); a != "" {
		return a
	}
	return "localhost:6379"
}

func setupCache(t *testing.T) *Cache {
	t.Helper()
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: testRedisAddr()})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skipf("Redis not available at %s: %v", testRedisAddr(), err)
	}
	c := New(client, "test:"+t.Name()+":", time.Minute)
	require.NoError(t, c.DeletePattern(ctx, "*"))
	t.Cleanup(func() {
		_ = c.DeletePattern(ctx, "*")
		_ = c.Close()
	})
	return c
}

type countingRepo struct {
	domain.ProductRepo
	product *domain.Product
	reads   atomic.Int32
}

func (r *countingRepo) FindBySlug(_ context.Context, slug string) (*domain.Product, error) {
	r.reads.Add(1)
	if slug != r.product.Slug {
		return nil, domain.ErrNotFound
	}
	cp := *r.product
	return &cp, nil
}

func (r *countingRepo) SaveVariant(context.Context, *domain.Variant) error { return nil }

func (r *countingRepo) DeleteVariant(context.Context, uuid.UUID, uuid.UUID) error { return nil }

func TestCache_GetSetDelete(t *testing.T) {
	c := setupCache(t)
	ctx := context.Background()

	var out map[string]int
	found, err := c.Get(ctx, "k", &out)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, "k", map[string]int{"a": 1}))
	found, err = c.Get(ctx, "k", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1, out["a"])

	require.NoError(t, c.Delete(ctx, "k"))
	found, _ = c.Get(ctx, "k", &out)
	assert.False(t, found)

	s := c.Stats()
	assert.Equal(t, uint64(1), s.Hits)
	assert.Equal(t, uint64(2), s.Misses)
	assert.InDelta(t, 33.33, s.HitRate, 0.01)
}

func TestProducts_CacheAsideAndInvalidation(t *testing.T) {
	c := setupCache(t)
	ctx := context.Background()
	id := uuid.New()
	repo := &countingRepo{product: &domain.Product{
		ID: id, Slug: "tee", Title: "Tee",
		Variants: []domain.Variant{{ID: uuid.New(), ProductID: id, SKU: "T-S", Attributes: domain.NewAttributes("S", ""), StockQuantity: 2}},
	}}
	products := NewProducts(repo, c)

	p, err := products.FindBySlug(ctx, "tee")
	require.NoError(t, err)
	assert.Equal(t, "T-S", p.Variants[0].SKU)

	p, err = products.FindBySlug(ctx, "tee")
	require.NoError(t, err)
	assert.Equal(t, "S", *p.Variants[0].Options().Size)
	assert.Equal(t, int32(1), repo.reads.Load())

	require.NoError(t, products.SaveVariant(ctx, &domain.Variant{ProductID: id, SKU: "T-M"}))
	_, err = products.FindBySlug(ctx, "tee")
	require.NoError(t, err)
	assert.Equal(t, int32(2), repo.reads.Load())

	_, err = products.FindBySlug(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

type stubOrders struct{}

func (stubOrders) CreateOrder(_ context.Context, o *domain.Order) (domain.OrderReceipt, error) {
	return domain.OrderReceipt{OrderID: o.ID}, nil
}

func TestOrders_InvalidatesOrderedProducts(t *testing.T) {
	c := setupCache(t)
	ctx := context.Background()
	id := uuid.New()
	repo := &countingRepo{product: &domain.Product{ID: id, Slug: "tee"}}
	products := NewProducts(repo, c)
	orders := NewOrders(stubOrders{}, products)

	_, err := products.FindBySlug(ctx, "tee")
	require.NoError(t, err)
	_, err = orders.CreateOrder(ctx, &domain.Order{Items: []domain.OrderItem{{ProductID: id}, {ProductID: id}}})
	require.NoError(t, err)
	_, err = products.FindBySlug(ctx, "tee")
	require.NoError(t, err)
	assert.Equal(t, int32(2), repo.reads.Load())
}

func TestLimiter_SlidingWindow(t *testing.T) {
	c := setupCache(t)
	ctx := context.Background()
	l := NewLimiter(c.client, c.prefix, 2, time.Minute)
	t.Cleanup(func() { _ = l.Reset(ctx, "1.2.3.4") })

	r, err := l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, r.Allowed)
	assert.Equal(t, 1, r.Remaining)

	r, err = l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, r.Allowed)
	assert.Equal(t, 0, r.Remaining)

	r, err = l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, r.Allowed)
	assert.True(t, r.ResetAt.After(time.Now()))

	r, err = l.Allow(ctx, "5.6.7.8")
	require.NoError(t, err)
	assert.True(t, r.Allowed)
	_ = l.Reset(ctx, "5.6.7.8")
}

package rediscache

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/phenrril/storefront/internal/domain"
)

// Products wraps a ProductRepo with cache-aside reads by slug. Any variant
// write drops the cached product so stock and prices are never served stale
// past the write.
type Products struct {
	domain.ProductRepo
	cache *Cache
	sf    singleflight.Group
}

func NewProducts(repo domain.ProductRepo, c *Cache) *Products {
	return &Products{ProductRepo: repo, cache: c}
}

func slugKey(slug string) string { return "product:slug:" + slug }
func idKey(id uuid.UUID) string { return "product:id:" + id.String() }

func (p *Products) FindBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	var cached domain.Product
	found, err := p.cache.Get(ctx, slugKey(slug), &cached)
	if err != nil {
		log.Warn().Err(err).Str("slug", slug).Msg("catalog cache read failed")
	}
	if found {
		return &cached, nil
	}

	val, err, _ := p.sf.Do(slug, func() (any, error) {
		return p.ProductRepo.FindBySlug(ctx, slug)
	})
	if err != nil {
		return nil, err
	}
	prod := val.(*domain.Product)

	if err := p.cache.Set(ctx, slugKey(slug), prod); err != nil {
		log.Warn().Err(err).Str("slug", slug).Msg("catalog cache write failed")
	} else if err := p.cache.SetString(ctx, idKey(prod.ID), slug); err != nil {
		log.Warn().Err(err).Str("slug", slug).Msg("catalog cache write failed")
	}
	cp := *prod
	return &cp, nil
}

func (p *Products) Save(ctx context.Context, prod *domain.Product) error {
	if err := p.ProductRepo.Save(ctx, prod); err != nil {
		return err
	}
	p.invalidate(ctx, prod.ID, prod.Slug)
	return nil
}

func (p *Products) SaveVariant(ctx context.Context, v *domain.Variant) error {
	if err := p.ProductRepo.SaveVariant(ctx, v); err != nil {
		return err
	}
	p.invalidate(ctx, v.ProductID, "")
	return nil
}

func (p *Products) DeleteVariant(ctx context.Context, productID, variantID uuid.UUID) error {
	if err := p.ProductRepo.DeleteVariant(ctx, productID, variantID); err != nil {
		return err
	}
	p.invalidate(ctx, productID, "")
	return nil
}

// Invalidate drops the cached product. Stock changes made outside this
// decorator, such as order placement, call it directly.
func (p *Products) Invalidate(ctx context.Context, productID uuid.UUID) {
	p.invalidate(ctx, productID, "")
}

func (p *Products) invalidate(ctx context.Context, productID uuid.UUID, slug string) {
	if slug == "" {
		s, ok, err := p.cache.GetString(ctx, idKey(productID))
		if err != nil || !ok {
			if err != nil {
				log.Warn().Err(err).Msg("catalog cache lookup failed")
			}
			if err := p.cache.DeletePattern(ctx, "product:*"); err != nil {
				log.Warn().Err(err).Msg("catalog cache flush failed")
			}
			return
		}
		slug = s
	}
	if err := p.cache.Delete(ctx, slugKey(slug), idKey(productID)); err != nil {
		log.Warn().Err(err).Str("slug", slug).Msg("catalog cache invalidation failed")
	}
}

// Orders wraps an OrderService and drops cached products whose stock an order took.
type Orders struct {
	domain.OrderService
	products *Products
}

func NewOrders(next domain.OrderService, products *Products) *Orders {
	return &Orders{OrderService: next, products: products}
}

func (o *Orders) CreateOrder(ctx context.Context, order *domain.Order) (domain.OrderReceipt, error) {
	r, err := o.OrderService.CreateOrder(ctx, order)
	if err != nil {
		return r, err
	}
	seen := map[uuid.UUID]bool{}
	for _, it := range order.Items {
		if !seen[it.ProductID] {
			seen[it.ProductID] = true
			o.products.Invalidate(ctx, it.ProductID)
		}
	}
	return r, nil
}

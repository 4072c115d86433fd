package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/phenrril/storefront/internal/domain"
)

// StockRepo answers availability questions from the variants table.
type StockRepo struct{ db *gorm.DB }

func NewStockRepo(db *gorm.DB) *StockRepo { return &StockRepo{db: db} }

func (r *StockRepo) CheckStockAvailability(ctx context.Context, items []domain.StockQuery) ([]domain.StockAvailability, error) {
	ids := make([]uuid.UUID, 0, len(items))
	skus := make([]string, 0, len(items))
	for _, it := range items {
		if it.VariantID != uuid.Nil {
			ids = append(ids, it.VariantID)
		} else if it.SKU != "" {
			skus = append(skus, it.SKU)
		}
	}
	var found []domain.Variant
	if len(ids) > 0 || len(skus) > 0 {
		q := r.db.WithContext(ctx).Model(&domain.Variant{})
		switch {
		case len(ids) > 0 && len(skus) > 0:
			q = q.Where("id IN ? OR sku IN ?", ids, skus)
		case len(ids) > 0:
			q = q.Where("id IN ?", ids)
		default:
			q = q.Where("sku IN ?", skus)
		}
		if err := q.Find(&found).Error; err != nil {
			return nil, err
		}
	}
	byID := make(map[uuid.UUID]domain.Variant, len(found))
	bySKU := make(map[string]domain.Variant, len(found))
	for _, v := range found {
		byID[v.ID] = v
		bySKU[v.SKU] = v
	}

	out := make([]domain.StockAvailability, 0, len(items))
	for _, it := range items {
		v, ok := byID[it.VariantID]
		if !ok {
			v, ok = bySKU[it.SKU]
		}
		a := domain.StockAvailability{CartItemID: it.CartItemID}
		switch {
		case !ok:
			a.Reason = "variant not found"
		case v.StockQuantity <= 0 || v.StockStatus == domain.StockOutOfStock:
			a.Reason = "out of stock"
		case it.Quantity > v.StockQuantity:
			a.AvailableStock = v.StockQuantity
			a.Reason = "insufficient stock"
		default:
			a.AvailableStock = v.StockQuantity
			a.IsAvailable = true
		}
		out = append(out, a)
	}
	return out, nil
}

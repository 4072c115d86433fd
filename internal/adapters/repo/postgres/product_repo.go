package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/phenrril/storefront/internal/domain"
)

type ProductRepo struct{ db *gorm.DB }

func NewProductRepo(db *gorm.DB) *ProductRepo { return &ProductRepo{db: db} }

func orderedVariants(db *gorm.DB) *gorm.DB { return db.Order("position asc, created_at asc") }

func (r *ProductRepo) Save(ctx context.Context, p *domain.Product) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *ProductRepo) FindBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	var p domain.Product
	err := r.db.WithContext(ctx).
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("created_at asc") }).
		Preload("Variants", orderedVariants).
		First(&p, "slug = ?", slug).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *ProductRepo) List(ctx context.Context, f domain.ProductFilter) ([]domain.Product, int64, error) {
	var list []domain.Product
	q := r.db.WithContext(ctx).Model(&domain.Product{}).Where("active = ?", true)
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if query := strings.TrimSpace(f.Query); query != "" {
		like := "%" + strings.ToLower(query) + "%"
		q = q.Where("LOWER(title) LIKE ? OR LOWER(category) LIKE ? OR id IN (?)", like, like,
			r.db.Model(&domain.Variant{}).Select("product_id").Where("LOWER(sku) LIKE ?", like))
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	switch f.Sort {
	case "newest":
		q = q.Order("created_at desc")
	default:
		q = q.Order("title asc")
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = 20
	}
	offset := (f.Page - 1) * f.PageSize
	if err := q.Offset(offset).Limit(f.PageSize).
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("created_at asc") }).
		Preload("Variants", orderedVariants).
		Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *ProductRepo) DistinctCategories(ctx context.Context) ([]string, error) {
	cats := []string{}
	if err := r.db.WithContext(ctx).Model(&domain.Product{}).
		Distinct("category").Where("category <> ''").Order("category asc").Pluck("category", &cats).Error; err != nil {
		return nil, err
	}
	return cats, nil
}

// --- Variants ---

func (r *ProductRepo) SaveVariant(ctx context.Context, v *domain.Variant) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Save(v).Error
}

func (r *ProductRepo) ListVariants(ctx context.Context, productID uuid.UUID) ([]domain.Variant, error) {
	var list []domain.Variant
	if err := orderedVariants(r.db.WithContext(ctx)).Where("product_id = ?", productID).Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *ProductRepo) FindVariantBySKU(ctx context.Context, sku string) (*domain.Product, *domain.Variant, error) {
	var v domain.Variant
	if err := r.db.WithContext(ctx).First(&v, "sku = ?", sku).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, domain.ErrNotFound
		}
		return nil, nil, err
	}
	var p domain.Product
	if err := r.db.WithContext(ctx).First(&p, "id = ?", v.ProductID).Error; err != nil {
		return nil, nil, err
	}
	return &p, &v, nil
}

func (r *ProductRepo) DeleteVariant(ctx context.Context, productID, variantID uuid.UUID) error {
	if variantID == uuid.Nil {
		return domain.NewValidation("id", "is required")
	}
	res := r.db.WithContext(ctx).Where("id = ? AND product_id = ?", variantID, productID).Delete(&domain.Variant{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateVariantStock adds delta to the stock of a variant and keeps its status in line.
func (r *ProductRepo) UpdateVariantStock(ctx context.Context, variantID uuid.UUID, delta int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return adjustStock(tx, variantID, delta)
	})
}

func adjustStock(tx *gorm.DB, variantID uuid.UUID, delta int) error {
	res := tx.Model(&domain.Variant{}).
		Where("id = ? AND stock_quantity + ? >= 0", variantID, delta).
		UpdateColumn("stock_quantity", gorm.Expr("stock_quantity + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var v domain.Variant
		if err := tx.First(&v, "id = ?", variantID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		kind := domain.ErrInsufficientStock
		if v.StockQuantity <= 0 {
			kind = domain.ErrOutOfStock
		}
		return &domain.StockError{Kind: kind, SKU: v.SKU, Requested: -delta, Available: v.StockQuantity}
	}
	if err := tx.Model(&domain.Variant{}).
		Where("id = ? AND stock_quantity = 0 AND stock_status <> ?", variantID, domain.StockPreOrder).
		UpdateColumn("stock_status", domain.StockOutOfStock).Error; err != nil {
		return err
	}
	return tx.Model(&domain.Variant{}).
		Where("id = ? AND stock_quantity > 0 AND stock_status = ?", variantID, domain.StockOutOfStock).
		UpdateColumn("stock_status", domain.StockInStock).Error
}

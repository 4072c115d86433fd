package usecase

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/phenrril/storefront/internal/checkout"
	"github.com/phenrril/storefront/internal/domain"
	"github.com/phenrril/storefront/internal/variant"
)

type ProductUC struct {
	Products domain.ProductRepo
}

func (uc *ProductUC) List(ctx context.Context, f domain.ProductFilter) ([]domain.Product, int64, error) {
	if f.PageSize == 0 {
		f.PageSize = 20
	}
	if f.Page < 1 {
		f.Page = 1
	}
	return uc.Products.List(ctx, f)
}

func (uc *ProductUC) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, domain.NewValidation("slug", "is required")
	}
	return uc.Products.FindBySlug(ctx, slug)
}

func (uc *ProductUC) Create(ctx context.Context, p *domain.Product) error {
	if strings.TrimSpace(p.Title) == "" {
		return domain.NewValidation("title", "is required")
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Slug == "" {
		p.Slug = Slugify(p.Title)
	}
	if _, err := variant.Build(p.Variants); err != nil {
		return err
	}
	for i := range p.Variants {
		if err := prepareVariant(&p.Variants[i]); err != nil {
			return err
		}
		if p.Variants[i].ID == uuid.Nil {
			p.Variants[i].ID = uuid.New()
			p.Variants[i].Position = i
		}
		p.Variants[i].ProductID = p.ID
	}
	for i := range p.Images {
		if p.Images[i].ID == uuid.Nil {
			p.Images[i].ID = uuid.New()
		}
		p.Images[i].ProductID = p.ID
	}
	return uc.Products.Save(ctx, p)
}

func Slugify(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), "-"))
}

// View opens the product page for slug with the default variant selected.
func (uc *ProductUC) View(ctx context.Context, slug string) (checkout.ProductView, error) {
	p, err := uc.GetBySlug(ctx, slug)
	if err != nil {
		return checkout.ProductView{}, err
	}
	return checkout.NewProductView(p)
}

// Resolve applies a selection on top of the default view. An explicit sku wins
// over size and color; with neither the default variant stays selected.
func (uc *ProductUC) Resolve(ctx context.Context, slug string, sel domain.Selection, sku string, qty int) (checkout.ProductView, error) {
	pv, err := uc.View(ctx, slug)
	if err != nil {
		return pv, err
	}
	switch {
	case sku != "":
		pv = pv.PickSKU(sku)
	case sel.Size != nil || sel.Color != nil:
		pv = pv.SelectSize(sel.Size).SelectColor(sel.Color)
	}
	if qty > 0 {
		pv = pv.SetQuantity(qty)
	}
	return pv, nil
}

// --- Variants ---

func (uc *ProductUC) ListVariants(ctx context.Context, slug string) ([]domain.Variant, error) {
	p, err := uc.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return uc.Products.ListVariants(ctx, p.ID)
}

// SaveVariant creates or updates a variant of the product. The variant list
// with the change applied must still index cleanly, so a duplicate SKU or
// size/color combination is rejected before anything is written.
func (uc *ProductUC) SaveVariant(ctx context.Context, slug string, v *domain.Variant) error {
	if v == nil {
		return domain.NewValidation("variant", "is required")
	}
	if err := prepareVariant(v); err != nil {
		return err
	}
	p, err := uc.GetBySlug(ctx, slug)
	if err != nil {
		return err
	}
	v.ProductID = p.ID

	next := make([]domain.Variant, 0, len(p.Variants)+1)
	replaced := false
	for _, cur := range p.Variants {
		if (v.ID != uuid.Nil && cur.ID == v.ID) || (v.ID == uuid.Nil && cur.SKU == v.SKU) {
			v.ID = cur.ID
			v.CreatedAt = cur.CreatedAt
			if v.Position == 0 {
				v.Position = cur.Position
			}
			next = append(next, *v)
			replaced = true
			continue
		}
		next = append(next, cur)
	}
	if !replaced {
		if v.ID == uuid.Nil {
			v.ID = uuid.New()
		}
		if v.Position == 0 {
			v.Position = len(p.Variants)
		}
		next = append(next, *v)
	}
	if _, err := variant.Build(next); err != nil {
		log.Warn().Err(err).Str("slug", slug).Str("sku", v.SKU).Msg("variant rejected")
		return err
	}
	return uc.Products.SaveVariant(ctx, v)
}

func (uc *ProductUC) DeleteVariant(ctx context.Context, slug string, id uuid.UUID) error {
	if id == uuid.Nil {
		return domain.NewValidation("id", "is required")
	}
	p, err := uc.GetBySlug(ctx, slug)
	if err != nil {
		return err
	}
	for _, v := range p.Variants {
		if v.ID == id {
			return uc.Products.DeleteVariant(ctx, p.ID, id)
		}
	}
	return domain.ErrNotFound
}

func (uc *ProductUC) SearchBySKU(ctx context.Context, sku string) (*domain.Product, *domain.Variant, error) {
	s := strings.TrimSpace(sku)
	if s == "" {
		return nil, nil, domain.NewValidation("sku", "is required")
	}
	return uc.Products.FindVariantBySKU(ctx, s)
}

// prepareVariant validates a variant and fills the stock status when it is left empty.
func prepareVariant(v *domain.Variant) error {
	v.SKU = strings.TrimSpace(v.SKU)
	if v.SKU == "" {
		return domain.NewValidation("sku", "is required")
	}
	if v.CurrentPrice < 0 {
		return domain.NewValidation("current_price", "must not be negative")
	}
	if v.OriginalPrice != nil && *v.OriginalPrice < 0 {
		return domain.NewValidation("original_price", "must not be negative")
	}
	if v.StockQuantity < 0 {
		return domain.NewValidation("stock_quantity", "must not be negative")
	}
	if v.StockStatus == "" {
		v.StockStatus = domain.StockInStock
		if v.StockQuantity == 0 {
			v.StockStatus = domain.StockOutOfStock
		}
	}
	if !v.StockStatus.Valid() {
		return domain.NewValidation("stock_status", "unknown status "+string(v.StockStatus))
	}
	attrs := v.Attributes[:0:0]
	for _, a := range v.Attributes {
		a.Name, a.Value = strings.TrimSpace(a.Name), strings.TrimSpace(a.Value)
		if a.Name == "" || a.Value == "" {
			continue
		}
		attrs = append(attrs, a)
	}
	v.Attributes = attrs
	return nil
}

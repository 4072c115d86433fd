package checkout

import (
	"github.com/phenrril/storefront/internal/domain"
	"github.com/phenrril/storefront/internal/pricing"
	"github.com/phenrril/storefront/internal/variant"
)

// ProductView is the product-page state: the selection, the variant it resolves
// to and the priced line for the chosen quantity. Methods return new values.
type ProductView struct {
	Version      uint64           `json:"version"`
	Product      *domain.Product  `json:"-"`
	Selection    domain.Selection `json:"selection"`
	PreferredSKU string           `json:"preferred_sku,omitempty"`
	Variant      *domain.Variant  `json:"variant,omitempty"`
	Quantity     int              `json:"quantity"`
	Line         *pricing.Line    `json:"line,omitempty"`
	Err          error            `json:"-"`

	index *variant.Index
}

// NewProductView opens a product page with the default variant selected.
func NewProductView(p *domain.Product) (ProductView, error) {
	idx, err := variant.Build(p.Variants)
	if err != nil {
		return ProductView{}, err
	}
	pv := ProductView{Product: p, Quantity: 1, index: idx}
	if def, ok := variant.Default(p.Variants); ok {
		pv.Selection = variant.SelectionOf(def)
	}
	return pv.resolve(), nil
}

func (pv ProductView) resolve() ProductView {
	pv.Version++
	pv.Variant, pv.Line, pv.Err = nil, nil, nil
	v, err := pv.index.Resolve(pv.Selection, pv.PreferredSKU)
	if err != nil {
		pv.Err = err
		return pv
	}
	pv.Variant = &v
	if v.StockQuantity > 0 {
		pv.Quantity = pricing.ClampQuantity(pv.Quantity, v.StockQuantity)
	}
	line, err := pricing.ComputeLine(v, pv.Quantity)
	if err != nil {
		pv.Err = err
		return pv
	}
	line.Title = pv.Product.Title
	pv.Line = &line
	return pv
}

func (pv ProductView) SelectSize(size *string) ProductView {
	pv.Selection.Size = size
	pv.PreferredSKU = ""
	return pv.resolve()
}

func (pv ProductView) SelectColor(color *string) ProductView {
	pv.Selection.Color = color
	pv.PreferredSKU = ""
	return pv.resolve()
}

// PickSKU selects a variant explicitly; the selection follows the picked variant.
func (pv ProductView) PickSKU(sku string) ProductView {
	pv.PreferredSKU = sku
	if v, ok := pv.index.BySKU(sku); ok {
		pv.Selection = variant.SelectionOf(v)
	}
	return pv.resolve()
}

func (pv ProductView) SetQuantity(q int) ProductView {
	pv.Quantity = q
	return pv.resolve()
}

func (pv ProductView) CanAddToCart() bool {
	return pv.Variant != nil && pv.Err == nil
}

func (pv ProductView) Sizes() []string {
	return variant.AvailableSizes(pv.Product.Variants)
}

func (pv ProductView) Colors() []string {
	return variant.AvailableColorsForSize(pv.Product.Variants, pv.Selection.Size)
}

// AddToCart turns the current view into an AddLine action.
func (pv ProductView) AddToCart() (AddLine, error) {
	if pv.Variant == nil {
		if pv.Err != nil {
			return AddLine{}, pv.Err
		}
		return AddLine{}, domain.ErrNoMatchingVariant
	}
	if pv.Err != nil {
		return AddLine{}, pv.Err
	}
	return AddLine{Variant: *pv.Variant, Title: pv.Product.Title, Quantity: pv.Quantity}, nil
}

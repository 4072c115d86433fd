package variant

import (
	"github.com/phenrril/storefront/internal/domain"
)

// Resolve returns the variant for the selection. An explicit SKU pick that
// exists in the index always wins; otherwise both attributes must match
// strictly (both absent, or both present and equal).
func (idx *Index) Resolve(sel domain.Selection, preferredSKU string) (domain.Variant, error) {
	if preferredSKU != "" {
		if v, ok := idx.BySKU(preferredSKU); ok {
			return v, nil
		}
	}
	e, ok := idx.byComposite(KeyOf(sel.Size, sel.Color))
	if !ok || !attrMatches(sel.Size, e.opts.Size) || !attrMatches(sel.Color, e.opts.Color) {
		return domain.Variant{}, domain.ErrNoMatchingVariant
	}
	return e.variant, nil
}

func attrMatches(selected, have *string) bool {
	if selected == nil || have == nil {
		return selected == nil && have == nil
	}
	return *selected == *have
}

// Default picks the variant shown before any interaction: the first one in
// stock, else the first one in list order.
func Default(variants []domain.Variant) (domain.Variant, bool) {
	if len(variants) == 0 {
		return domain.Variant{}, false
	}
	for _, v := range variants {
		if v.InStock() {
			return v, true
		}
	}
	return variants[0], true
}

// SelectionOf returns the selection that resolves to v.
func SelectionOf(v domain.Variant) domain.Selection {
	o := v.Options()
	return domain.Selection{Size: o.Size, Color: o.Color}
}

func AvailableSizes(variants []domain.Variant) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, v := range variants {
		s := v.Options().Size
		if s == nil {
			continue
		}
		if _, ok := seen[*s]; ok {
			continue
		}
		seen[*s] = struct{}{}
		out = append(out, *s)
	}
	return out
}

// AvailableColorsForSize lists colors of variants with the given size. A nil
// size only looks at size-less variants so the two families never mix.
func AvailableColorsForSize(variants []domain.Variant, size *string) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, v := range variants {
		o := v.Options()
		if !attrMatches(size, o.Size) || o.Color == nil {
			continue
		}
		if _, ok := seen[*o.Color]; ok {
			continue
		}
		seen[*o.Color] = struct{}{}
		out = append(out, *o.Color)
	}
	return out
}

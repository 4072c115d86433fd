// Package variant resolves a shopper's size/color selection to a single product variant.
package variant

import (
	"github.com/phenrril/storefront/internal/domain"
)

// Absent is how a missing attribute is printed in a composite key.
const Absent = "∅"

// Key is the composite (size, color) lookup key of a variant. Presence is
// tracked apart from the value, so any attribute value is a valid key part.
type Key struct {
	Size     string
	Color    string
	HasSize  bool
	HasColor bool
}

func (k Key) String() string {
	size, color := k.Size, k.Color
	if !k.HasSize {
		size = Absent
	}
	if !k.HasColor {
		color = Absent
	}
	return "(" + size + ", " + color + ")"
}

func KeyOf(size, color *string) Key {
	var k Key
	if size != nil {
		k.Size, k.HasSize = *size, true
	}
	if color != nil {
		k.Color, k.HasColor = *color, true
	}
	return k
}

type entry struct {
	variant domain.Variant
	opts    domain.Attributes
}

// Index is built once per product and is read-only afterwards.
type Index struct {
	entries []entry
	bySKU   map[string]int
	byKey   map[Key]int
}

// Build indexes variants by SKU and by composite key. Two variants sharing
// either one make the product data inconsistent and Build refuses it.
func Build(variants []domain.Variant) (*Index, error) {
	idx := &Index{
		entries: make([]entry, 0, len(variants)),
		bySKU:   make(map[string]int, len(variants)),
		byKey:   make(map[Key]int, len(variants)),
	}
	for _, v := range variants {
		e := entry{variant: v, opts: v.Options()}
		i := len(idx.entries)
		if v.SKU != "" {
			if j, dup := idx.bySKU[v.SKU]; dup {
				return nil, &domain.DataIntegrityError{Key: "sku " + v.SKU, SKUs: []string{idx.entries[j].variant.SKU, v.SKU}}
			}
			idx.bySKU[v.SKU] = i
		}
		k := KeyOf(e.opts.Size, e.opts.Color)
		if j, dup := idx.byKey[k]; dup {
			return nil, &domain.DataIntegrityError{Key: k.String(), SKUs: []string{idx.entries[j].variant.SKU, v.SKU}}
		}
		idx.byKey[k] = i
		idx.entries = append(idx.entries, e)
	}
	return idx, nil
}

func (idx *Index) Len() int { return len(idx.entries) }

// Variants returns the indexed variants in their original order.
func (idx *Index) Variants() []domain.Variant {
	out := make([]domain.Variant, len(idx.entries))
	for i, e := range idx.entries {
		out[i] = e.variant
	}
	return out
}

func (idx *Index) BySKU(sku string) (domain.Variant, bool) {
	i, ok := idx.bySKU[sku]
	if !ok {
		return domain.Variant{}, false
	}
	return idx.entries[i].variant, true
}

func (idx *Index) byComposite(k Key) (entry, bool) {
	i, ok := idx.byKey[k]
	if !ok {
		return entry{}, false
	}
	return idx.entries[i], true
}

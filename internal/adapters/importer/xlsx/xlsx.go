// Package xlsx loads and dumps catalog variant sheets.
//
// A sheet has a header row naming its columns; order does not matter.
// Recognised columns: slug, title, category, sku, size, color, price,
// original_price, stock, status. Rows sharing a slug belong to one product.
package xlsx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"github.com/phenrril/storefront/internal/domain"
)

// Catalog is the slice of usecase.ProductUC the importer drives.
type Catalog interface {
	GetBySlug(ctx context.Context, slug string) (*domain.Product, error)
	Create(ctx context.Context, p *domain.Product) error
	SaveVariant(ctx context.Context, slug string, v *domain.Variant) error
}

type Row struct {
	Sheet         string
	Line          int
	Slug          string
	Title         string
	Category      string
	SKU           string
	Size          string
	Color         string
	Price         float64
	OriginalPrice *float64
	Stock         int
	Status        domain.StockStatus
}

func (r Row) Variant() domain.Variant {
	return domain.Variant{
		SKU:           r.SKU,
		Attributes:    domain.NewAttributes(r.Size, r.Color),
		CurrentPrice:  r.Price,
		OriginalPrice: r.OriginalPrice,
		StockQuantity: r.Stock,
		StockStatus:   r.Status,
	}
}

type RowError struct {
	Sheet string
	Line  int
	SKU   string
	Err   error
}

func (e RowError) Error() string {
	return fmt.Sprintf("%s:%d sku %q: %v", e.Sheet, e.Line, e.SKU, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

type Report struct {
	CreatedProducts int
	CreatedVariants int
	UpdatedVariants int
	Errors          []RowError
}

var columns = []string{"slug", "title", "category", "sku", "size", "color", "price", "original_price", "stock", "status"}

func headerKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	switch s {
	case "compare_at_price", "regular_price":
		return "original_price"
	case "current_price":
		return "price"
	case "stock_quantity", "qty", "quantity":
		return "stock"
	case "stock_status":
		return "status"
	case "colour":
		return "color"
	}
	return s
}

// ReadRows parses every sheet. Rows that cannot be parsed are returned as
// RowErrors; the error result is only for an unreadable workbook.
func ReadRows(r io.Reader) ([]Row, []RowError, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	var (
		rows []Row
		bad  []RowError
	)
	for _, sh := range f.GetSheetList() {
		raw, err := f.GetRows(sh)
		if err != nil || len(raw) == 0 {
			continue
		}
		idx := map[string]int{}
		for i, h := range raw[0] {
			idx[headerKey(h)] = i
		}
		if _, ok := idx["sku"]; !ok {
			log.Debug().Str("sheet", sh).Msg("sheet without sku column skipped")
			continue
		}
		if _, ok := idx["slug"]; !ok {
			if _, ok := idx["title"]; !ok {
				log.Debug().Str("sheet", sh).Msg("sheet without slug or title column skipped")
				continue
			}
		}
		for n, cells := range raw[1:] {
			get := func(col string) string {
				i, ok := idx[col]
				if !ok || i >= len(cells) {
					return ""
				}
				return strings.TrimSpace(cells[i])
			}
			line := n + 2
			if get("sku") == "" && get("slug") == "" && get("title") == "" {
				continue
			}
			row, err := parseRow(get)
			row.Sheet, row.Line = sh, line
			if err != nil {
				bad = append(bad, RowError{Sheet: sh, Line: line, SKU: row.SKU, Err: err})
				continue
			}
			rows = append(rows, row)
		}
	}
	return rows, bad, nil
}

func parseRow(get func(string) string) (Row, error) {
	row := Row{
		Slug:     strings.ToLower(get("slug")),
		Title:    get("title"),
		Category: get("category"),
		SKU:      get("sku"),
		Size:     get("size"),
		Color:    get("color"),
		Status:   domain.StockStatus(strings.ToLower(get("status"))),
	}
	if row.SKU == "" {
		return row, domain.NewValidation("sku", "is required")
	}
	if row.Slug == "" {
		row.Slug = strings.ToLower(strings.Join(strings.Fields(row.Title), "-"))
	}
	var err error
	if row.Price, err = parseMoney(get("price")); err != nil {
		return row, domain.NewValidation("price", err.Error())
	}
	if s := get("original_price"); s != "" {
		op, err := parseMoney(s)
		if err != nil {
			return row, domain.NewValidation("original_price", err.Error())
		}
		row.OriginalPrice = &op
	}
	if s := get("stock"); s != "" {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return row, domain.NewValidation("stock", "not a number")
		}
		row.Stock = int(f)
	}
	return row, nil
}

func parseMoney(s string) (float64, error) {
	s = strings.NewReplacer(",", "", "৳", "", "Tk", "", " ", "").Replace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.New("not a number")
	}
	return n, nil
}

// Import applies the sheet to the catalog. Unknown slugs become new products
// with all their rows; rows of existing products create or update the variant
// with the same SKU. A rejected row does not stop the import.
func Import(ctx context.Context, c Catalog, r io.Reader) (Report, error) {
	rows, bad, err := ReadRows(r)
	if err != nil {
		return Report{}, err
	}
	rep := Report{Errors: bad}

	var order []string
	bySlug := map[string][]Row{}
	for _, row := range rows {
		if _, ok := bySlug[row.Slug]; !ok {
			order = append(order, row.Slug)
		}
		bySlug[row.Slug] = append(bySlug[row.Slug], row)
	}

	for _, slug := range order {
		group := bySlug[slug]
		p, err := c.GetBySlug(ctx, slug)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			p = &domain.Product{Slug: slug, Title: group[0].Title, Category: group[0].Category, Active: true}
			if p.Title == "" {
				p.Title = slug
			}
			for _, row := range group {
				p.Variants = append(p.Variants, row.Variant())
			}
			if err := c.Create(ctx, p); err != nil {
				for _, row := range group {
					rep.Errors = append(rep.Errors, RowError{Sheet: row.Sheet, Line: row.Line, SKU: row.SKU, Err: err})
				}
				continue
			}
			rep.CreatedProducts++
			rep.CreatedVariants += len(group)
			continue
		case err != nil:
			return rep, fmt.Errorf("load %s: %w", slug, err)
		}

		known := map[string]bool{}
		for _, v := range p.Variants {
			known[v.SKU] = true
		}
		for _, row := range group {
			v := row.Variant()
			if err := c.SaveVariant(ctx, slug, &v); err != nil {
				rep.Errors = append(rep.Errors, RowError{Sheet: row.Sheet, Line: row.Line, SKU: row.SKU, Err: err})
				continue
			}
			if known[v.SKU] {
				rep.UpdatedVariants++
			} else {
				known[v.SKU] = true
				rep.CreatedVariants++
			}
		}
	}

	log.Info().
		Int("created_products", rep.CreatedProducts).
		Int("created_variants", rep.CreatedVariants).
		Int("updated_variants", rep.UpdatedVariants).
		Int("rejected", len(rep.Errors)).
		Msg("variant import finished")
	return rep, nil
}

// Export writes one row per variant in the same layout Import reads.
func Export(w io.Writer, products []domain.Product) error {
	f := excelize.NewFile()
	defer f.Close()
	const sheet = "Variants"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	line := 2
	for _, p := range products {
		for _, v := range p.Variants {
			opts := v.Options()
			var orig any
			if v.OriginalPrice != nil {
				orig = *v.OriginalPrice
			}
			row := []any{p.Slug, p.Title, p.Category, v.SKU, deref(opts.Size), deref(opts.Color), v.CurrentPrice, orig, v.StockQuantity, string(v.StockStatus)}
			cell, err := excelize.CoordinatesToCellName(1, line)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(sheet, cell, &row); err != nil {
				return err
			}
			line++
		}
	}
	return f.Write(w)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

package xlsx_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/phenrril/storefront/internal/adapters/importer/xlsx"
	"github.com/phenrril/storefront/internal/adapters/repo/postgres"
	"github.com/phenrril/storefront/internal/domain"
	"github.com/phenrril/storefront/internal/usecase"
)

func setupCatalog(t *testing.T) *usecase.ProductUC {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, postgres.Migrate(db))
	return &usecase.ProductUC{Products: postgres.NewProductRepo(db)}
}

func workbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return &buf
}

func TestImport_CreatesThenUpdates(t *testing.T) {
	ctx := context.Background()
	catalog := setupCatalog(t)

	first := workbook(t, [][]any{
		{"Slug", "Title", "Category", "SKU", "Size", "Colour", "Price", "Original Price", "Stock"},
		{"tee", "Basic Tee", "men", "A-S-RED", "S", "Red", 500, 650, 3},
		{"tee", "Basic Tee", "men", "A-M-RED", "M", "Red", 500, "", 0},
		{"", "", "", "", "", "", "", "", ""},
		{"tee", "Basic Tee", "men", "", "L", "Red", 500, "", 1},
	})
	rep, err := xlsx.Import(ctx, catalog, first)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.CreatedProducts)
	assert.Equal(t, 2, rep.CreatedVariants)
	require.Len(t, rep.Errors, 1)
	assert.Equal(t, 5, rep.Errors[0].Line)
	assert.ErrorIs(t, rep.Errors[0], domain.ErrValidation)

	p, err := catalog.GetBySlug(ctx, "tee")
	require.NoError(t, err)
	assert.Equal(t, "Basic Tee", p.Title)
	require.Len(t, p.Variants, 2)
	assert.Equal(t, "A-S-RED", p.Variants[0].SKU)
	require.NotNil(t, p.Variants[0].OriginalPrice)
	assert.Equal(t, 650.0, *p.Variants[0].OriginalPrice)
	assert.Equal(t, domain.StockOutOfStock, p.Variants[1].StockStatus)

	second := workbook(t, [][]any{
		{"slug", "sku", "size", "color", "price", "stock"},
		{"tee", "A-M-RED", "M", "Red", 520, 4},
		{"tee", "A-L-RED", "L", "Red", 540, 2},
		{"tee", "A-S-RED-2", "S", "Red", 500, 1},
	})
	rep, err = xlsx.Import(ctx, catalog, second)
	require.NoError(t, err)
	assert.Equal(t, 0, rep.CreatedProducts)
	assert.Equal(t, 1, rep.UpdatedVariants)
	assert.Equal(t, 1, rep.CreatedVariants)
	require.Len(t, rep.Errors, 1)
	assert.Equal(t, "A-S-RED-2", rep.Errors[0].SKU)
	assert.ErrorIs(t, rep.Errors[0], domain.ErrDataIntegrity)

	p, err = catalog.GetBySlug(ctx, "tee")
	require.NoError(t, err)
	require.Len(t, p.Variants, 3)
	for _, v := range p.Variants {
		if v.SKU == "A-M-RED" {
			assert.Equal(t, 520.0, v.CurrentPrice)
			assert.Equal(t, 4, v.StockQuantity)
			assert.Equal(t, domain.StockInStock, v.StockStatus)
		}
	}
}

func TestReadRows_SkipsSheetsWithoutSKU(t *testing.T) {
	rows, bad, err := xlsx.ReadRows(workbook(t, [][]any{
		{"name", "notes"},
		{"x", "y"},
	}))
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Empty(t, bad)

	_, _, err = xlsx.ReadRows(bytes.NewBufferString("not a workbook"))
	assert.Error(t, err)
}

func TestExport_ReadableByImport(t *testing.T) {
	orig := 700.0
	products := []domain.Product{{
		Slug: "kurti", Title: "Cotton Kurti", Category: "women",
		Variants: []domain.Variant{
			{SKU: "K-S", Attributes: domain.NewAttributes("S", ""), CurrentPrice: 600, OriginalPrice: &orig, StockQuantity: 2, StockStatus: domain.StockLow},
			{SKU: "K-FREE", CurrentPrice: 550, StockQuantity: 0, StockStatus: domain.StockOutOfStock},
		},
	}}
	var buf bytes.Buffer
	require.NoError(t, xlsx.Export(&buf, products))

	rows, bad, err := xlsx.ReadRows(&buf)
	require.NoError(t, err)
	assert.Empty(t, bad)
	require.Len(t, rows, 2)
	assert.Equal(t, "kurti", rows[0].Slug)
	assert.Equal(t, "S", rows[0].Size)
	assert.Equal(t, "", rows[0].Color)
	require.NotNil(t, rows[0].OriginalPrice)
	assert.Equal(t, 700.0, *rows[0].OriginalPrice)
	assert.Equal(t, domain.StockLow, rows[0].Status)
	assert.Nil(t, rows[1].OriginalPrice)
	assert.Equal(t, "", rows[1].Size)
}

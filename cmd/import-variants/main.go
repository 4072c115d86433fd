package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/phenrril/storefront/internal/adapters/importer/xlsx"
	pgrepo "github.com/phenrril/storefront/internal/adapters/repo/postgres"
	"github.com/phenrril/storefront/internal/config"
	"github.com/phenrril/storefront/internal/domain"
	"github.com/phenrril/storefront/internal/usecase"
)

func main() {
	in := flag.String("file", "", "xlsx sheet to import")
	out := flag.String("export", "", "write the catalog to this xlsx file instead of importing")
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	zlog.Logger = zlog.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	if (*in == "") == (*out == "") {
		fmt.Fprintln(os.Stderr, "usage: import-variants -file sheet.xlsx | -export catalog.xlsx")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to load config")
	}
	db, err := gorm.Open(postgres.Open(cfg.Database.ConnString()), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := pgrepo.Migrate(db); err != nil {
		zlog.Fatal().Err(err).Msg("failed to migrate database")
	}
	products := &usecase.ProductUC{Products: pgrepo.NewProductRepo(db)}
	ctx := context.Background()

	if *out != "" {
		if err := export(ctx, products, *out); err != nil {
			zlog.Fatal().Err(err).Msg("export failed")
		}
		return
	}

	f, err := os.Open(*in)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to open sheet")
	}
	defer f.Close()
	rep, err := xlsx.Import(ctx, products, f)
	if err != nil {
		zlog.Fatal().Err(err).Msg("import failed")
	}
	for _, e := range rep.Errors {
		zlog.Warn().Str("sheet", e.Sheet).Int("line", e.Line).Str("sku", e.SKU).Err(e.Err).Msg("row rejected")
	}
	if len(rep.Errors) > 0 {
		os.Exit(1)
	}
}

func export(ctx context.Context, products *usecase.ProductUC, path string) error {
	var all []domain.Product
	for page := 1; ; page++ {
		list, total, err := products.List(ctx, domain.ProductFilter{Page: page, PageSize: 100})
		if err != nil {
			return err
		}
		for _, p := range list {
			full, err := products.GetBySlug(ctx, p.Slug)
			if err != nil {
				return err
			}
			all = append(all, *full)
		}
		if len(list) == 0 || int64(page*100) >= total {
			break
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := xlsx.Export(f, all); err != nil {
		_ = f.Close()
		return err
	}
	zlog.Info().Int("products", len(all)).Str("file", path).Msg("catalog exported")
	return f.Close()
}

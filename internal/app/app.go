package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/phenrril/storefront/internal/adapters/cache/rediscache"
	"github.com/phenrril/storefront/internal/adapters/httpserver"
	"github.com/phenrril/storefront/internal/adapters/orderapi"
	"github.com/phenrril/storefront/internal/adapters/repo/postgres"
	"github.com/phenrril/storefront/internal/config"
	"github.com/phenrril/storefront/internal/domain"
	"github.com/phenrril/storefront/internal/usecase"
)

type App struct {
	Config *config.Config
	DB     *gorm.DB

	Cache   *rediscache.Cache
	Limiter *rediscache.Limiter

	Catalog   domain.ProductRepo
	Address   *postgres.AddressRepo
	Coupons   *postgres.CouponRepo
	Customers *postgres.CustomerRepo
	Bundles   *postgres.BundleRepo
	Referrals *postgres.ReferralRepo

	ProductUC  *usecase.ProductUC
	CheckoutUC *usecase.CheckoutUC
}

// NewApp wires the repositories and use cases. rdb may be nil, which
// disables the catalog cache and rate limiting.
func NewApp(cfg *config.Config, db *gorm.DB, rdb *redis.Client) (*App, error) {
	prodRepo := postgres.NewProductRepo(db)
	orderRepo, err := postgres.NewOrderRepo(db)
	if err != nil {
		return nil, fmt.Errorf("order numbers: %w", err)
	}
	orderNumber, err := postgres.NewOrderNumberGenerator()
	if err != nil {
		return nil, fmt.Errorf("order numbers: %w", err)
	}

	a := &App{
		Config:    cfg,
		DB:        db,
		Address:   postgres.NewAddressRepo(db),
		Coupons:   postgres.NewCouponRepo(db),
		Customers: postgres.NewCustomerRepo(db, cfg.Loyalty.CoinValue),
		Bundles:   postgres.NewBundleRepo(db),
		Referrals: postgres.NewReferralRepo(db),
	}

	var (
		catalog domain.ProductRepo  = prodRepo
		orders  domain.OrderService = orderRepo
		stock   domain.StockChecker = postgres.NewStockRepo(db)
	)
	if cfg.OrderAPI.BaseURL != "" {
		client := orderapi.NewClient(cfg.OrderAPI.BaseURL, cfg.OrderAPI.Secret, cfg.OrderAPI.Timeout)
		orders, stock = client, client
		log.Info().Str("url", cfg.OrderAPI.BaseURL).Msg("orders forwarded to order service")
	}
	if rdb != nil {
		a.Cache = rediscache.New(rdb, cfg.Redis.Prefix, cfg.Redis.TTL)
		cached := rediscache.NewProducts(prodRepo, a.Cache)
		catalog = cached
		orders = rediscache.NewOrders(orders, cached)
		if cfg.RateLimit > 0 {
			a.Limiter = rediscache.NewLimiter(rdb, cfg.Redis.Prefix, cfg.RateLimit, time.Minute)
		}
	}
	a.Catalog = catalog

	a.ProductUC = &usecase.ProductUC{Products: catalog}
	a.CheckoutUC = &usecase.CheckoutUC{
		Products:       catalog,
		Stock:          stock,
		Coupons:        a.Coupons,
		Loyalty:        a.Customers,
		Address:        a.Address,
		Bundles:        a.Bundles,
		Referrals:      a.Referrals,
		Orders:         orders,
		Delivery:       cfg.Delivery,
		LoyaltyPolicy:  cfg.Loyalty.LoyaltySettings,
		NewOrderNumber: orderNumber,
	}
	return a, nil
}

func (a *App) HTTPHandler() http.Handler {
	health := map[string]func(context.Context) error{
		"database": func(ctx context.Context) error {
			sqlDB, err := a.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	opts := httpserver.Options{
		SessionKey: a.Config.SessionKey,
		AdminToken: a.Config.AdminToken,
		Health:     health,
	}
	if a.Cache != nil {
		health["redis"] = a.Cache.Ping
	}
	if a.Limiter != nil {
		opts.Limiter = a.Limiter
	}
	return httpserver.New(a.ProductUC, a.CheckoutUC, a.Address, opts)
}

func (a *App) MigrateAndSeed() error {
	if err := postgres.Migrate(a.DB); err != nil {
		return err
	}
	if a.DB.Dialector.Name() == "postgres" {
		_ = a.DB.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_variants_sku_unique ON variants (sku) WHERE sku IS NOT NULL AND sku <> ''").Error
		_ = a.DB.Exec("CREATE INDEX IF NOT EXISTS idx_variants_attributes_gin ON variants USING gin (attributes)").Error
	}
	return seedAddress(a.DB)
}

// seedAddress loads the delivery hierarchy once. Dhaka city is inside, its
// neighbouring districts are sub, everything else is outside.
func seedAddress(db *gorm.DB) error {
	var n int64
	if err := db.Model(&domain.Division{}).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	return db.Transaction(func(tx *gorm.DB) error {
		divisions := []domain.Division{
			{ID: 1, Name: "Dhaka"},
			{ID: 2, Name: "Chattogram"},
			{ID: 3, Name: "Sylhet"},
		}
		districts := []domain.District{
			{ID: 1, DivisionID: 1, Name: "Dhaka", Region: domain.RegionInsideDhaka},
			{ID: 2, DivisionID: 1, Name: "Gazipur", Region: domain.RegionSubDhaka},
			{ID: 3, DivisionID: 1, Name: "Narayanganj", Region: domain.RegionSubDhaka},
			{ID: 4, DivisionID: 1, Name: "Savar", Region: domain.RegionSubDhaka},
			{ID: 5, DivisionID: 1, Name: "Manikganj", Region: domain.RegionOutsideDhaka},
			{ID: 6, DivisionID: 2, Name: "Chattogram", Region: domain.RegionOutsideDhaka},
			{ID: 7, DivisionID: 2, Name: "Cox's Bazar", Region: domain.RegionOutsideDhaka},
			{ID: 8, DivisionID: 3, Name: "Sylhet", Region: domain.RegionOutsideDhaka},
		}
		upazilas := []domain.Upazila{
			{ID: 1, DistrictID: 1, Name: "Dhanmondi"},
			{ID: 2, DistrictID: 1, Name: "Gulshan"},
			{ID: 3, DistrictID: 1, Name: "Mirpur"},
			{ID: 4, DistrictID: 2, Name: "Tongi"},
			{ID: 5, DistrictID: 6, Name: "Panchlaish"},
		}
		areas := []domain.Area{
			{ID: 1, UpazilaID: 2, Name: "Banani"},
			{ID: 2, UpazilaID: 2, Name: "Gulshan 1"},
			{ID: 3, UpazilaID: 1, Name: "Jigatola"},
			{ID: 4, UpazilaID: 3, Name: "Mirpur 10"},
		}
		for _, rows := range []any{&divisions, &districts, &upazilas, &areas} {
			if err := tx.Create(rows).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

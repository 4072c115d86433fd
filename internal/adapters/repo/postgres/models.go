package postgres

import (
	"gorm.io/gorm"

	"github.com/phenrril/storefront/internal/domain"
)

// Models lists every table the repositories read or write.
func Models() []any {
	return []any{
		&domain.Product{}, &domain.Image{}, &domain.Variant{},
		&domain.Customer{},
		&domain.Coupon{},
		&domain.Bundle{}, &domain.BundleItem{},
		&domain.Referral{},
		&domain.Division{}, &domain.District{}, &domain.Upazila{}, &domain.Area{},
		&domain.Order{}, &domain.OrderItem{},
	}
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

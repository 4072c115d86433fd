package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/phenrril/storefront/internal/domain"
	"github.com/phenrril/storefront/internal/pricing"
)

type CouponRepo struct {
	db  *gorm.DB
	now func() time.Time
}

func NewCouponRepo(db *gorm.DB) *CouponRepo { return &CouponRepo{db: db, now: time.Now} }

func normalizeCode(code string) string { return strings.ToUpper(strings.TrimSpace(code)) }

func (r *CouponRepo) Save(ctx context.Context, c *domain.Coupon) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.Code = normalizeCode(c.Code)
	return r.db.WithContext(ctx).Save(c).Error
}

func (r *CouponRepo) ValidateCoupon(ctx context.Context, code string, subtotal float64) (domain.CouponResult, error) {
	code = normalizeCode(code)
	var c domain.Coupon
	if err := r.db.WithContext(ctx).First(&c, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.CouponResult{}, &domain.CouponError{Code: code, Reason: "not found"}
		}
		return domain.CouponResult{}, err
	}
	switch {
	case !c.Active:
		return domain.CouponResult{}, &domain.CouponError{Code: code, Reason: "inactive"}
	case c.ExpiresAt != nil && !r.now().Before(*c.ExpiresAt):
		return domain.CouponResult{}, &domain.CouponError{Code: code, Reason: "expired"}
	case c.UsageLimit > 0 && c.UsedCount >= c.UsageLimit:
		return domain.CouponResult{}, &domain.CouponError{Code: code, Reason: "usage limit reached"}
	case subtotal < c.MinOrderAmount:
		return domain.CouponResult{}, &domain.CouponError{Code: code, Reason: fmt.Sprintf("minimum order %.2f", c.MinOrderAmount)}
	}
	return domain.CouponResult{DiscountAmount: pricing.CouponAmount(c, subtotal), Coupon: c}, nil
}

func (r *CouponRepo) RecordUsage(ctx context.Context, code string) error {
	code = normalizeCode(code)
	res := r.db.WithContext(ctx).Model(&domain.Coupon{}).
		Where("code = ? AND (usage_limit = 0 OR used_count < usage_limit)", code).
		UpdateColumn("used_count", gorm.Expr("used_count + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &domain.CouponError{Code: code, Reason: "usage limit reached"}
	}
	return nil
}

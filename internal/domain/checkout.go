package domain

import (
	"time"

	"github.com/google/uuid"
)

// Region is the delivery-charge tier an address resolves to.
type Region string

const (
	RegionInsideDhaka  Region = "inside_dhaka"
	RegionSubDhaka     Region = "sub_dhaka"
	RegionOutsideDhaka Region = "outside_dhaka"
)

func (r Region) Valid() bool {
	switch r {
	case RegionInsideDhaka, RegionSubDhaka, RegionOutsideDhaka:
		return true
	}
	return false
}

// DeliverySettings holds the tier amounts. A zero threshold disables free shipping.
type DeliverySettings struct {
	FreeShippingThreshold float64 `json:"free_shipping_threshold"`
	InsideDhaka           float64 `json:"inside_dhaka"`
	SubDhaka              float64 `json:"sub_dhaka"`
	OutsideDhaka          float64 `json:"outside_dhaka"`
}

type LoyaltySettings struct {
	MinRedeemAmount           float64 `json:"min_redeem_amount"`
	WaiveShippingOnRedemption bool    `json:"waive_shipping_on_redemption"`
}

type LoyaltyAccount struct {
	UserID    uuid.UUID `json:"user_id"`
	Coins     int64     `json:"coins"`
	CoinValue float64   `json:"coin_value"`
}

type CouponType string

const (
	CouponPercentage CouponType = "percentage"
	CouponFixed      CouponType = "fixed"
)

type Coupon struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Code           string     `gorm:"size:60;uniqueIndex" json:"code"`
	Type           CouponType `gorm:"type:varchar(20)" json:"type"`
	Value          float64    `gorm:"type:decimal(12,2)" json:"value"`
	MaxDiscount    float64    `gorm:"type:decimal(12,2);default:0" json:"max_discount"`
	MinOrderAmount float64    `gorm:"type:decimal(12,2);default:0" json:"min_order_amount"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	UsageLimit     int        `gorm:"default:0" json:"usage_limit"`
	UsedCount      int        `gorm:"default:0" json:"used_count"`
	Active         bool       `gorm:"default:true" json:"active"`
	CreatedAt      time.Time  `json:"created_at"`
}

// CouponResult is the answer of the coupon collaborator for a code and subtotal.
type CouponResult struct {
	DiscountAmount float64 `json:"discount_amount"`
	Coupon         Coupon  `json:"coupon"`
}

// Bundle grants Discount when every product in Items is in the cart together.
type Bundle struct {
	ID           uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string       `gorm:"size:140" json:"name"`
	DiscountType CouponType   `gorm:"type:varchar(20)" json:"discount_type"`
	Discount     float64      `gorm:"type:decimal(12,2)" json:"discount"`
	Active       bool         `gorm:"default:true;index" json:"active"`
	DisplayOrder int          `gorm:"default:0" json:"display_order"`
	Items        []BundleItem `json:"items"`
	CreatedAt    time.Time    `json:"created_at"`
}

type BundleItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BundleID  uuid.UUID `gorm:"type:uuid;index" json:"bundle_id"`
	ProductID uuid.UUID `gorm:"type:uuid;index" json:"product_id"`
}

// Referral is an affiliate code valid for guest checkouts inside [ValidFrom, ValidUntil].
type Referral struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Code         string     `gorm:"size:60;uniqueIndex" json:"code"`
	AffiliateID  string     `gorm:"size:60" json:"affiliate_id"`
	DiscountType CouponType `gorm:"type:varchar(20)" json:"discount_type"`
	Discount     float64    `gorm:"type:decimal(12,2)" json:"discount"`
	ValidFrom    time.Time  `json:"valid_from"`
	ValidUntil   time.Time  `json:"valid_until"`
}

func (r Referral) ActiveAt(t time.Time) bool {
	return !t.Before(r.ValidFrom) && t.Before(r.ValidUntil)
}

type Division struct {
	ID   int    `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:80" json:"name"`
}

type District struct {
	ID         int    `gorm:"primaryKey" json:"id"`
	DivisionID int    `gorm:"index" json:"division_id"`
	Name       string `gorm:"size:80" json:"name"`
	Region     Region `gorm:"type:varchar(20)" json:"region"`
}

type Upazila struct {
	ID         int    `gorm:"primaryKey" json:"id"`
	DistrictID int    `gorm:"index" json:"district_id"`
	Name       string `gorm:"size:80" json:"name"`
}

type Area struct {
	ID        int    `gorm:"primaryKey" json:"id"`
	UpazilaID int    `gorm:"index" json:"upazila_id"`
	Name      string `gorm:"size:80" json:"name"`
}

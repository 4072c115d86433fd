package domain

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type Order struct {
	ID         uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	Number     string      `gorm:"size:20;uniqueIndex" json:"number"`
	Status     OrderStatus `gorm:"type:varchar(30);index" json:"status"`
	Items      []OrderItem `json:"items"`
	CustomerID *uuid.UUID  `gorm:"type:uuid;index" json:"customer_id,omitempty"`
	Guest      bool        `gorm:"not null;default:false" json:"guest"`
	Email      string      `gorm:"size:140" json:"email"`
	Name       string      `gorm:"size:140" json:"name"`
	Phone      string      `gorm:"size:50" json:"phone"`
	Address    string      `gorm:"size:255" json:"address"`
	DistrictID int         `gorm:"type:int" json:"district_id"`
	Region     Region      `gorm:"type:varchar(20)" json:"region"`
	Notes      string      `gorm:"type:text" json:"notes,omitempty"`

	Subtotal          float64 `gorm:"type:decimal(12,2);default:0" json:"subtotal"`
	ShippingCost      float64 `gorm:"type:decimal(12,2);default:0" json:"shipping_cost"`
	CouponCode        string  `gorm:"size:60" json:"coupon_code,omitempty"`
	CouponDiscount    float64 `gorm:"type:decimal(12,2);default:0" json:"coupon_discount"`
	UpsellDiscount    float64 `gorm:"type:decimal(12,2);default:0" json:"upsell_discount"`
	ReferralCode      string  `gorm:"size:60" json:"referral_code,omitempty"`
	AffiliateDiscount float64 `gorm:"type:decimal(12,2);default:0" json:"affiliate_discount"`
	LoyaltyDiscount   float64 `gorm:"type:decimal(12,2);default:0" json:"loyalty_discount"`
	CoinsRedeemed     int64   `gorm:"default:0" json:"coins_redeemed"`
	Total             float64 `gorm:"type:decimal(12,2)" json:"total"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type OrderItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID   uuid.UUID `gorm:"type:uuid;index" json:"order_id"`
	ProductID uuid.UUID `gorm:"type:uuid;index" json:"product_id"`
	VariantID uuid.UUID `gorm:"type:uuid;index" json:"variant_id"`
	Title     string    `gorm:"size:180" json:"title"`
	SKU       string    `gorm:"size:100" json:"sku"`
	Size      string    `gorm:"size:60" json:"size,omitempty"`
	Color     string    `gorm:"size:60" json:"color,omitempty"`
	Qty       int       `gorm:"not null" json:"qty"`
	UnitPrice float64   `gorm:"type:decimal(12,2)" json:"unit_price"`
	LineTotal float64   `gorm:"type:decimal(12,2)" json:"line_total"`
}

// OrderReceipt is what the order collaborator hands back after accepting an order.
type OrderReceipt struct {
	OrderID uuid.UUID   `json:"order_id"`
	Number  string      `json:"number"`
	Status  OrderStatus `json:"status"`
	Total   float64     `json:"total"`
}

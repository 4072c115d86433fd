package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type StockStatus string

const (
	StockInStock    StockStatus = "in_stock"
	StockLow        StockStatus = "low_stock"
	StockOutOfStock StockStatus = "out_of_stock"
	StockPreOrder   StockStatus = "pre_order"
)

func (s StockStatus) Valid() bool {
	switch s {
	case StockInStock, StockLow, StockOutOfStock, StockPreOrder:
		return true
	}
	return false
}

// Attribute names used by the size/color projection. Comparison is case-insensitive.
const (
	AttrSize  = "Size"
	AttrColor = "Color"
)

type Product struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Slug      string    `gorm:"uniqueIndex;size:140" json:"slug"`
	Title     string    `gorm:"size:180" json:"title"`
	Category  string    `gorm:"size:100;index" json:"category"`
	Active    bool      `gorm:"default:true;index" json:"active"`
	Images    []Image   `json:"images,omitempty"`
	Variants  []Variant `gorm:"constraint:OnDelete:CASCADE" json:"variants,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Attribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Variant struct {
	ID            uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID     uuid.UUID   `gorm:"type:uuid;index" json:"product_id"`
	SKU           string      `gorm:"size:100;index" json:"sku"`
	Attributes    []Attribute `gorm:"type:jsonb;serializer:json" json:"attributes"`
	CurrentPrice  float64     `gorm:"type:decimal(12,2);default:0" json:"current_price"`
	OriginalPrice *float64    `gorm:"type:decimal(12,2)" json:"original_price,omitempty"`
	StockQuantity int         `gorm:"type:int;default:0" json:"stock_quantity"`
	StockStatus   StockStatus `gorm:"type:varchar(20);default:in_stock" json:"stock_status"`
	Images        []string    `gorm:"type:jsonb;serializer:json" json:"images,omitempty"`
	Position      int         `gorm:"type:int;default:0" json:"position"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

type Image struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID uuid.UUID `gorm:"type:uuid;index" json:"product_id"`
	URL       string    `gorm:"size:255" json:"url"`
	Alt       string    `gorm:"size:140" json:"alt"`
	CreatedAt time.Time `json:"created_at"`
}

// Attributes is the typed size/color projection of a variant's attribute list.
// A nil field means the variant does not carry that attribute.
type Attributes struct {
	Size  *string `json:"size,omitempty"`
	Color *string `json:"color,omitempty"`
}

// Selection is the shopper's current choice. A nil field means "not applicable", never "any".
type Selection struct {
	Size  *string `json:"size,omitempty"`
	Color *string `json:"color,omitempty"`
}

// Opt returns a pointer to the trimmed value, or nil when it is blank.
func Opt(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Options projects the attribute list onto size/color. The first occurrence of each name wins.
func (v Variant) Options() Attributes {
	var a Attributes
	for _, at := range v.Attributes {
		switch {
		case a.Size == nil && strings.EqualFold(strings.TrimSpace(at.Name), AttrSize):
			a.Size = Opt(at.Value)
		case a.Color == nil && strings.EqualFold(strings.TrimSpace(at.Name), AttrColor):
			a.Color = Opt(at.Value)
		}
	}
	return a
}

func (v Variant) InStock() bool {
	return v.StockQuantity > 0 && v.StockStatus != StockOutOfStock
}

// NewAttributes builds an attribute list from optional size and color, in that order.
func NewAttributes(size, color string) []Attribute {
	out := []Attribute{}
	if s := Opt(size); s != nil {
		out = append(out, Attribute{Name: AttrSize, Value: *s})
	}
	if c := Opt(color); c != nil {
		out = append(out, Attribute{Name: AttrColor, Value: *c})
	}
	return out
}

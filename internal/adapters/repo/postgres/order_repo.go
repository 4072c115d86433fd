package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	nanoid "github.com/jaevor/go-nanoid"
	"gorm.io/gorm"

	"github.com/phenrril/storefront/internal/domain"
)

// OrderRepo is the local order service: an order is stored and its stock
// taken in one transaction.
type OrderRepo struct {
	db     *gorm.DB
	number func() string
}

func NewOrderRepo(db *gorm.DB) (*OrderRepo, error) {
	gen, err := NewOrderNumberGenerator()
	if err != nil {
		return nil, err
	}
	return &OrderRepo{db: db, number: gen}, nil
}

// NewOrderNumberGenerator returns short upper-case order numbers, easy to read over the phone.
func NewOrderNumberGenerator() (func() string, error) {
	return nanoid.CustomASCII("0123456789ABCDEFGHJKLMNPQRSTUVWXYZ", 10)
}

func (r *OrderRepo) CreateOrder(ctx context.Context, o *domain.Order) (domain.OrderReceipt, error) {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.Number == "" {
		o.Number = r.number()
	}
	if o.Status == "" {
		o.Status = domain.OrderStatusPending
	}
	now := time.Now()
	for i := range o.Items {
		if o.Items[i].ID == uuid.Nil {
			o.Items[i].ID = uuid.New()
		}
		o.Items[i].OrderID = o.ID
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, it := range o.Items {
			if err := adjustStock(tx, it.VariantID, -it.Qty); err != nil {
				return err
			}
		}
		o.CreatedAt, o.UpdatedAt = now, now
		return tx.Create(o).Error
	})
	if err != nil {
		return domain.OrderReceipt{}, err
	}
	return domain.OrderReceipt{OrderID: o.ID, Number: o.Number, Status: o.Status, Total: o.Total}, nil
}

func (r *OrderRepo) FindByNumber(ctx context.Context, number string) (*domain.Order, error) {
	var o domain.Order
	if err := r.db.WithContext(ctx).Preload("Items").First(&o, "number = ?", number).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

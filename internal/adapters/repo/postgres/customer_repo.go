package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/phenrril/storefront/internal/domain"
)

// CustomerRepo stores customers and serves their loyalty coin balance.
type CustomerRepo struct {
	db        *gorm.DB
	coinValue float64
}

func NewCustomerRepo(db *gorm.DB, coinValue float64) *CustomerRepo {
	return &CustomerRepo{db: db, coinValue: coinValue}
}

func (r *CustomerRepo) FindByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	var c domain.Customer
	e := strings.ToLower(strings.TrimSpace(email))
	if e == "" {
		return nil, domain.NewValidation("email", "is required")
	}
	if err := r.db.WithContext(ctx).First(&c, "LOWER(email) = ?", e).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *CustomerRepo) Save(ctx context.Context, c *domain.Customer) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Email != "" {
		c.Email = strings.ToLower(c.Email)
	}
	return r.db.WithContext(ctx).Save(c).Error
}

func (r *CustomerRepo) GetLoyalty(ctx context.Context, userID uuid.UUID) (domain.LoyaltyAccount, error) {
	var c domain.Customer
	if err := r.db.WithContext(ctx).Select("id", "loyalty_coins").First(&c, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.LoyaltyAccount{}, domain.ErrNotFound
		}
		return domain.LoyaltyAccount{}, err
	}
	return domain.LoyaltyAccount{UserID: c.ID, Coins: c.LoyaltyCoins, CoinValue: r.coinValue}, nil
}

// Redeem deducts coins only if the balance still covers them.
func (r *CustomerRepo) Redeem(ctx context.Context, userID uuid.UUID, coins int64) error {
	if coins <= 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&domain.Customer{}).
		Where("id = ? AND loyalty_coins >= ?", userID, coins).
		UpdateColumn("loyalty_coins", gorm.Expr("loyalty_coins - ?", coins))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		acct, err := r.GetLoyalty(ctx, userID)
		if err != nil {
			return err
		}
		return &domain.CoinsError{Required: coins, Available: acct.Coins}
	}
	return nil
}

func (r *CustomerRepo) Refund(ctx context.Context, userID uuid.UUID, coins int64) error {
	if coins <= 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&domain.Customer{}).
		Where("id = ?", userID).
		UpdateColumn("loyalty_coins", gorm.Expr("loyalty_coins + ?", coins))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

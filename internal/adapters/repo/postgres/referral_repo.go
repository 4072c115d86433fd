package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/phenrril/storefront/internal/domain"
)

type ReferralRepo struct{ db *gorm.DB }

func NewReferralRepo(db *gorm.DB) *ReferralRepo { return &ReferralRepo{db: db} }

func (r *ReferralRepo) Save(ctx context.Context, ref *domain.Referral) error {
	if ref.ID == uuid.Nil {
		ref.ID = uuid.New()
	}
	ref.Code = normalizeCode(ref.Code)
	return r.db.WithContext(ctx).Save(ref).Error
}

func (r *ReferralRepo) FindByCode(ctx context.Context, code string) (*domain.Referral, error) {
	var ref domain.Referral
	if err := r.db.WithContext(ctx).First(&ref, "code = ?", normalizeCode(code)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &ref, nil
}

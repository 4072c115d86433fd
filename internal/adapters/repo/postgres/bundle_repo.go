package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/phenrril/storefront/internal/domain"
)

type BundleRepo struct{ db *gorm.DB }

func NewBundleRepo(db *gorm.DB) *BundleRepo { return &BundleRepo{db: db} }

// ActiveBundles returns the active bundles ordered by DisplayOrder.
func (r *BundleRepo) ActiveBundles(ctx context.Context) ([]domain.Bundle, error) {
	var list []domain.Bundle
	if err := r.db.WithContext(ctx).Preload("Items").
		Where("active = ?", true).Order("display_order asc").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// Save creates or replaces a bundle together with its product list.
func (r *BundleRepo) Save(ctx context.Context, b *domain.Bundle) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}
	for i := range b.Items {
		if b.Items[i].ID == uuid.Nil {
			b.Items[i].ID = uuid.New()
		}
		b.Items[i].BundleID = b.ID
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("bundle_id = ?", b.ID).Delete(&domain.BundleItem{}).Error; err != nil {
			return err
		}
		items := b.Items
		b.Items = nil
		err := tx.Save(b).Error
		b.Items = items
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		return tx.Create(&items).Error
	})
}

func (r *BundleRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("bundle_id = ?", id).Delete(&domain.BundleItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.Bundle{}, "id = ?", id).Error
	})
}

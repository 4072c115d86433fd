package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/phenrril/storefront/internal/domain"
)

// AddressRepo serves the division > district > upazila > area hierarchy.
// Districts carry the delivery region used for shipping tiers.
type AddressRepo struct{ db *gorm.DB }

func NewAddressRepo(db *gorm.DB) *AddressRepo { return &AddressRepo{db: db} }

func (r *AddressRepo) Divisions(ctx context.Context) ([]domain.Division, error) {
	var list []domain.Division
	if err := r.db.WithContext(ctx).Order("name asc").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *AddressRepo) Districts(ctx context.Context, divisionID int) ([]domain.District, error) {
	var list []domain.District
	if err := r.db.WithContext(ctx).Where("division_id = ?", divisionID).Order("name asc").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *AddressRepo) Upazilas(ctx context.Context, districtID int) ([]domain.Upazila, error) {
	var list []domain.Upazila
	if err := r.db.WithContext(ctx).Where("district_id = ?", districtID).Order("name asc").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *AddressRepo) Areas(ctx context.Context, upazilaID int) ([]domain.Area, error) {
	var list []domain.Area
	if err := r.db.WithContext(ctx).Where("upazila_id = ?", upazilaID).Order("name asc").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *AddressRepo) RegionForDistrict(ctx context.Context, districtID int) (domain.Region, error) {
	var d domain.District
	if err := r.db.WithContext(ctx).First(&d, "id = ?", districtID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("district %d: %w", districtID, domain.ErrUnknownRegion)
		}
		return "", err
	}
	if !d.Region.Valid() {
		return "", fmt.Errorf("district %s: %w", d.Name, domain.ErrUnknownRegion)
	}
	return d.Region, nil
}

package pricing

import (
	"fmt"

	"github.com/phenrril/storefront/internal/domain"
)

// ComputeDeliveryCharge returns 0 once the subtotal reaches the free-shipping
// threshold, otherwise the tier amount of the region.
func ComputeDeliveryCharge(subtotal float64, region domain.Region, s domain.DeliverySettings) (float64, error) {
	if !region.Valid() {
		return 0, fmt.Errorf("%w: %q", domain.ErrUnknownRegion, region)
	}
	if s.FreeShippingThreshold > 0 && subtotal >= s.FreeShippingThreshold {
		return 0, nil
	}
	switch region {
	case domain.RegionInsideDhaka:
		return s.InsideDhaka, nil
	case domain.RegionSubDhaka:
		return s.SubDhaka, nil
	default:
		return s.OutsideDhaka, nil
	}
}

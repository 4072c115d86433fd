package pricing

import (
	"math"

	"github.com/phenrril/storefront/internal/domain"
)

type Redemption struct {
	Discount float64 `json:"discount"`
	Coins    int64   `json:"coins"`
}

// CoinsRequired is the number of coins that pays for the whole subtotal.
func CoinsRequired(subtotal, coinValue float64) int64 {
	if coinValue <= 0 || subtotal <= 0 {
		return 0
	}
	return int64(math.Ceil(Round2(subtotal)/coinValue - 1e-9))
}

// RedeemLoyalty is all-or-nothing: the balance either covers the full
// subtotal or the redemption is rejected with a zero discount.
func RedeemLoyalty(subtotal float64, acct domain.LoyaltyAccount, s domain.LoyaltySettings) (Redemption, error) {
	if acct.CoinValue <= 0 {
		return Redemption{}, &domain.CoinsError{Available: acct.Coins, Reason: "coin value not configured"}
	}
	required := CoinsRequired(subtotal, acct.CoinValue)
	if required == 0 {
		return Redemption{}, nil
	}
	if s.MinRedeemAmount > 0 && subtotal < s.MinRedeemAmount {
		return Redemption{}, &domain.CoinsError{Required: required, Available: acct.Coins, Reason: "below minimum redeem amount"}
	}
	if acct.Coins < required {
		return Redemption{}, &domain.CoinsError{Required: required, Available: acct.Coins}
	}
	return Redemption{Discount: Round2(subtotal), Coins: required}, nil
}

package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrNoMatchingVariant = errors.New("no matching variant")
	ErrOutOfStock        = errors.New("out of stock")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrInvalidCoupon     = errors.New("invalid coupon")
	ErrInsufficientCoins = errors.New("insufficient coins")
	ErrDataIntegrity     = errors.New("data integrity error")
	ErrUnknownRegion     = errors.New("unknown delivery region")
	ErrValidation        = errors.New("validation failed")
)

// StockError carries the variant and quantities behind an OutOfStock or InsufficientStock rejection.
type StockError struct {
	Kind      error
	SKU       string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("%s: sku %s requested %d, available %d", e.Kind, e.SKU, e.Requested, e.Available)
}

func (e *StockError) Unwrap() error { return e.Kind }

type CouponError struct {
	Code   string
	Reason string
}

func (e *CouponError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: %s", ErrInvalidCoupon, e.Code)
	}
	return fmt.Sprintf("%s: %s (%s)", ErrInvalidCoupon, e.Code, e.Reason)
}

func (e *CouponError) Unwrap() error { return ErrInvalidCoupon }

type CoinsError struct {
	Required  int64
	Available int64
	Reason    string
}

func (e *CoinsError) Error() string {
	msg := fmt.Sprintf("%s: need %d, have %d", ErrInsufficientCoins, e.Required, e.Available)
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg
}

func (e *CoinsError) Unwrap() error { return ErrInsufficientCoins }

// DataIntegrityError reports variants that collide on the same SKU or size/color key.
type DataIntegrityError struct {
	Key  string
	SKUs []string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("%s: key %s shared by %s", ErrDataIntegrity, e.Key, strings.Join(e.SKUs, ", "))
}

func (e *DataIntegrityError) Unwrap() error { return ErrDataIntegrity }

type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return ErrValidation.Error()
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func NewValidation(field, msg string) *ValidationError {
	return &ValidationError{Message: field + ": " + msg, Fields: map[string]string{field: msg}}
}

package httpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/phenrril/storefront/internal/domain"
)

type errorBody struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	SKU       string            `json:"sku,omitempty"`
	Requested int               `json:"requested,omitempty"`
	Available *int              `json:"available,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
}

var errorCodes = []struct {
	err    error
	code   string
	status int
}{
	{domain.ErrValidation, "validation_error", http.StatusBadRequest},
	{domain.ErrInvalidQuantity, "invalid_quantity", http.StatusBadRequest},
	{domain.ErrNoMatchingVariant, "no_matching_variant", http.StatusNotFound},
	{domain.ErrNotFound, "not_found", http.StatusNotFound},
	{domain.ErrDataIntegrity, "data_integrity", http.StatusConflict},
	{domain.ErrOutOfStock, "out_of_stock", http.StatusUnprocessableEntity},
	{domain.ErrInsufficientStock, "insufficient_stock", http.StatusUnprocessableEntity},
	{domain.ErrInvalidCoupon, "invalid_coupon", http.StatusUnprocessableEntity},
	{domain.ErrInsufficientCoins, "insufficient_coins", http.StatusUnprocessableEntity},
	{domain.ErrUnknownRegion, "unknown_region", http.StatusUnprocessableEntity},
	{context.DeadlineExceeded, "timeout", http.StatusGatewayTimeout},
}

func classify(err error) (string, int) {
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			return c.code, c.status
		}
	}
	return "internal", http.StatusInternalServerError
}

func bodyFor(err error) errorBody {
	code, status := classify(err)
	b := errorBody{Code: code, Message: err.Error()}
	if status == http.StatusInternalServerError {
		b.Message = "internal error"
	}
	var se *domain.StockError
	if errors.As(err, &se) {
		b.SKU, b.Requested = se.SKU, se.Requested
		avail := se.Available
		b.Available = &avail
	}
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		b.Fields = ve.Fields
	}
	return b
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	_, status := classify(err)
	if status >= 500 {
		log.Error().Err(err).
			Str("request_id", RequestIDFrom(r.Context())).
			Str("path", r.URL.Path).
			Msg("request failed")
	}
	writeJSON(w, status, bodyFor(err))
}

package httpserver

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/phenrril/storefront/internal/checkout"
	"github.com/phenrril/storefront/internal/domain"
	"github.com/phenrril/storefront/internal/usecase"
)

type Server struct {
	mux      *http.ServeMux
	products *usecase.ProductUC
	checkout *usecase.CheckoutUC
	address  domain.AddressResolver
	health   map[string]func(context.Context) error

	sessionKey []byte
	adminToken string
}

type Options struct {
	SessionKey string
	// AdminToken guards variant writes. Empty leaves them open.
	AdminToken string
	Limiter    Limiter
	Health     map[string]func(context.Context) error
}

const maxBody = 64 << 10

func New(p *usecase.ProductUC, c *usecase.CheckoutUC, addr domain.AddressResolver, opts Options) http.Handler {
	key := opts.SessionKey
	if key == "" {
		key = "dev-insecure"
	}
	s := &Server{
		mux:        http.NewServeMux(),
		products:   p,
		checkout:   c,
		address:    addr,
		health:     opts.Health,
		sessionKey: []byte(key),
		adminToken: opts.AdminToken,
	}
	s.routes()
	return Chain(s.mux,
		Recovery,
		Gzip,
		RateLimit(opts.Limiter),
		RequestID,
		Logging,
	)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	s.mux.HandleFunc("/api/products", s.apiProducts)
	// /api/products/{slug}, /resolve, /variants[/{id}]
	s.mux.HandleFunc("/api/products/", s.apiProductBySlug)
	s.mux.HandleFunc("/api/variants/", s.apiVariantBySKU)

	s.mux.HandleFunc("/api/address/", s.apiAddress)

	s.mux.HandleFunc("/api/cart", s.apiCart)
	s.mux.HandleFunc("/api/cart/items", s.apiCartItems)
	s.mux.HandleFunc("/api/cart/items/", s.apiCartItems)
	s.mux.HandleFunc("/api/cart/quote", s.apiQuote)
	s.mux.HandleFunc("/api/orders", s.apiOrders)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	checks := map[string]string{}
	code := http.StatusOK
	for name, fn := range s.health {
		if err := fn(ctx); err != nil {
			checks[name] = err.Error()
			code = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	status := "ok"
	if code != http.StatusOK {
		status = "degraded"
	}
	writeJSON(w, code, map[string]any{"status": status, "checks": checks})
}

// --- Catalog ---

func (s *Server) apiProducts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("page_size"))
	list, total, err := s.products.List(r.Context(), domain.ProductFilter{
		Query:    strings.TrimSpace(q.Get("q")),
		Category: strings.TrimSpace(q.Get("category")),
		Sort:     q.Get("sort"),
		Page:     page,
		PageSize: size,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": list, "total": total})
}

func (s *Server) apiProductBySlug(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/products/"), "/"), "/")
	if parts[0] == "" {
		writeError(w, r, domain.ErrNotFound)
		return
	}
	switch {
	case len(parts) == 1:
		s.apiProduct(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "resolve":
		s.apiResolve(w, r, parts[0])
	case len(parts) >= 2 && len(parts) <= 3 && parts[1] == "variants":
		s.apiProductVariants(w, r, parts)
	default:
		writeError(w, r, domain.ErrNotFound)
	}
}

type viewResponse struct {
	Product      *domain.Product      `json:"product,omitempty"`
	Sizes        []string             `json:"sizes"`
	Colors       []string             `json:"colors"`
	View         checkout.ProductView `json:"view"`
	CanAddToCart bool                 `json:"can_add_to_cart"`
	Error        *errorBody           `json:"error,omitempty"`
}

func newViewResponse(pv checkout.ProductView, withProduct bool) viewResponse {
	resp := viewResponse{
		Sizes:        pv.Sizes(),
		Colors:       pv.Colors(),
		View:         pv,
		CanAddToCart: pv.CanAddToCart(),
	}
	if withProduct {
		resp.Product = pv.Product
	}
	if pv.Err != nil {
		b := bodyFor(pv.Err)
		resp.Error = &b
	}
	return resp
}

func (s *Server) apiProduct(w http.ResponseWriter, r *http.Request, slug string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	pv, err := s.products.View(r.Context(), slug)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newViewResponse(pv, true))
}

// apiResolve answers with the product page state for a selection. A
// selection that matches nothing is 404; a matched variant that cannot be
// bought at the quantity still returns 200 with the rejection in the body.
func (s *Server) apiResolve(w http.ResponseWriter, r *http.Request, slug string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	q := r.URL.Query()
	qty := 0
	if raw := q.Get("qty"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, r, domain.NewValidation("qty", "must be a number"))
			return
		}
		qty = n
	}
	sel := domain.Selection{Size: domain.Opt(q.Get("size")), Color: domain.Opt(q.Get("color"))}
	pv, err := s.products.Resolve(r.Context(), slug, sel, strings.TrimSpace(q.Get("sku")), qty)
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := newViewResponse(pv, false)
	if pv.Variant == nil && errors.Is(pv.Err, domain.ErrNoMatchingVariant) {
		writeJSON(w, http.StatusNotFound, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type variantReq struct {
	ID            string             `json:"id"`
	SKU           string             `json:"sku"`
	Size          string             `json:"size"`
	Color         string             `json:"color"`
	Attributes    []domain.Attribute `json:"attributes"`
	CurrentPrice  float64            `json:"current_price"`
	OriginalPrice *float64           `json:"original_price"`
	StockQuantity int                `json:"stock_quantity"`
	StockStatus   string             `json:"stock_status"`
	Images        []string           `json:"images"`
	Position      int                `json:"position"`
}

func (req variantReq) toVariant() (domain.Variant, error) {
	v := domain.Variant{
		SKU:           req.SKU,
		Attributes:    req.Attributes,
		CurrentPrice:  req.CurrentPrice,
		OriginalPrice: req.OriginalPrice,
		StockQuantity: req.StockQuantity,
		StockStatus:   domain.StockStatus(strings.TrimSpace(req.StockStatus)),
		Images:        req.Images,
		Position:      req.Position,
	}
	if req.ID != "" {
		id, err := uuid.Parse(req.ID)
		if err != nil {
			return v, domain.NewValidation("id", "must be a uuid")
		}
		v.ID = id
	}
	if len(v.Attributes) == 0 {
		v.Attributes = domain.NewAttributes(req.Size, req.Color)
	}
	return v, nil
}

func (s *Server) apiProductVariants(w http.ResponseWriter, r *http.Request, parts []string) {
	slug := parts[0]
	switch {
	case r.Method == http.MethodGet && len(parts) == 2:
		list, err := s.products.ListVariants(r.Context(), slug)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": list})

	case (r.Method == http.MethodPost && len(parts) == 2) || (r.Method == http.MethodPut && len(parts) == 3):
		if !s.requireAdmin(w, r) {
			return
		}
		var req variantReq
		if err := decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		if len(parts) == 3 {
			req.ID = parts[2]
		}
		v, err := req.toVariant()
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := s.products.SaveVariant(r.Context(), slug, &v); err != nil {
			writeError(w, r, err)
			return
		}
		code := http.StatusOK
		if r.Method == http.MethodPost && req.ID == "" {
			code = http.StatusCreated
		}
		writeJSON(w, code, v)

	case r.Method == http.MethodDelete && len(parts) == 3:
		if !s.requireAdmin(w, r) {
			return
		}
		vid, err := uuid.Parse(parts[2])
		if err != nil {
			writeError(w, r, domain.NewValidation("id", "must be a uuid"))
			return
		}
		if err := s.products.DeleteVariant(r.Context(), slug, vid); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})

	default:
		methodNotAllowed(w)
	}
}

// apiVariantBySKU looks a variant up across the catalog: GET /api/variants/{sku}.
func (s *Server) apiVariantBySKU(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	p, v, err := s.products.SearchBySKU(r.Context(), strings.TrimPrefix(r.URL.Path, "/api/variants/"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product": map[string]any{"id": p.ID, "slug": p.Slug, "title": p.Title}, "variant": v})
}

// --- Address hierarchy ---

func (s *Server) apiAddress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	q := r.URL.Query()
	parent := func(key string) (int, bool) {
		id, err := strconv.Atoi(q.Get(key))
		if err != nil || id <= 0 {
			writeError(w, r, domain.NewValidation(key, "must be a positive number"))
			return 0, false
		}
		return id, true
	}
	var (
		items any
		err   error
	)
	switch strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/address/"), "/") {
	case "divisions":
		items, err = s.address.Divisions(r.Context())
	case "districts":
		id, ok := parent("division_id")
		if !ok {
			return
		}
		items, err = s.address.Districts(r.Context(), id)
	case "upazilas":
		id, ok := parent("district_id")
		if !ok {
			return
		}
		items, err = s.address.Upazilas(r.Context(), id)
	case "areas":
		id, ok := parent("upazila_id")
		if !ok {
			return
		}
		items, err = s.address.Areas(r.Context(), id)
	case "region":
		id, ok := parent("district_id")
		if !ok {
			return
		}
		items, err = s.address.RegionForDistrict(r.Context(), id)
	default:
		writeError(w, r, domain.ErrNotFound)
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// --- Cart and checkout ---

// cartPayload is the signed cart cookie.
type cartPayload struct {
	Items        []usecase.CartItemInput `json:"items"`
	DistrictID   int                     `json:"district_id,omitempty"`
	CouponCode   string                  `json:"coupon_code,omitempty"`
	ReferralCode string                  `json:"referral_code,omitempty"`
}

func (cp cartPayload) quoteRequest() usecase.QuoteRequest {
	return usecase.QuoteRequest{
		Items:        cp.Items,
		DistrictID:   cp.DistrictID,
		CouponCode:   cp.CouponCode,
		ReferralCode: cp.ReferralCode,
	}
}

// fill takes the cookie's items and codes for any field the request left empty.
func (cp cartPayload) fill(req *usecase.QuoteRequest) {
	if len(req.Items) == 0 {
		req.Items = cp.Items
	}
	if req.DistrictID == 0 && req.Region == "" {
		req.DistrictID = cp.DistrictID
	}
	if req.CouponCode == "" {
		req.CouponCode = cp.CouponCode
	}
	if req.ReferralCode == "" {
		req.ReferralCode = cp.ReferralCode
	}
}

// GET returns the cookie cart with a quote; PUT sets district and codes; DELETE empties it.
func (s *Server) apiCart(w http.ResponseWriter, r *http.Request) {
	cp := s.readCart(r)
	switch r.Method {
	case http.MethodGet:
	case http.MethodPut:
		var req struct {
			DistrictID   *int    `json:"district_id"`
			CouponCode   *string `json:"coupon_code"`
			ReferralCode *string `json:"referral_code"`
		}
		if err := decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		if req.DistrictID != nil {
			cp.DistrictID = *req.DistrictID
		}
		if req.CouponCode != nil {
			cp.CouponCode = strings.TrimSpace(*req.CouponCode)
		}
		if req.ReferralCode != nil {
			cp.ReferralCode = strings.TrimSpace(*req.ReferralCode)
		}
	case http.MethodDelete:
		cp = cartPayload{}
	default:
		methodNotAllowed(w)
		return
	}
	s.respondCart(w, r, cp)
}

// POST /api/cart/items adds or sets a line; DELETE /api/cart/items/{sku} removes it.
func (s *Server) apiCartItems(w http.ResponseWriter, r *http.Request) {
	cp := s.readCart(r)
	switch r.Method {
	case http.MethodPost:
		var req struct {
			usecase.CartItemInput
			Replace bool `json:"replace"`
		}
		if err := decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		sku := strings.TrimSpace(req.SKU)
		if sku == "" {
			writeError(w, r, domain.NewValidation("sku", "is required"))
			return
		}
		if req.Quantity <= 0 {
			writeError(w, r, domain.ErrInvalidQuantity)
			return
		}
		next := cartPayload{DistrictID: cp.DistrictID, CouponCode: cp.CouponCode, ReferralCode: cp.ReferralCode}
		found := false
		for _, it := range cp.Items {
			if it.SKU == sku {
				found = true
				if req.Replace {
					it.Quantity = req.Quantity
				} else {
					it.Quantity += req.Quantity
				}
			}
			next.Items = append(next.Items, it)
		}
		if !found {
			next.Items = append(next.Items, usecase.CartItemInput{SKU: sku, Quantity: req.Quantity})
		}
		// the cart only changes when the new line still prices
		if _, err := s.checkout.Quote(r.Context(), usecase.QuoteRequest{Items: next.Items}); err != nil {
			writeError(w, r, err)
			return
		}
		cp = next
	case http.MethodDelete:
		sku := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/cart/items"), "/")
		items := cp.Items[:0:0]
		for _, it := range cp.Items {
			if it.SKU != sku {
				items = append(items, it)
			}
		}
		cp.Items = items
	default:
		methodNotAllowed(w)
		return
	}
	s.respondCart(w, r, cp)
}

func (s *Server) respondCart(w http.ResponseWriter, r *http.Request, cp cartPayload) {
	s.writeCart(w, cp)
	resp := map[string]any{"cart": cp}
	if len(cp.Items) > 0 {
		st, err := s.checkout.Quote(r.Context(), cp.quoteRequest())
		if err != nil {
			b := bodyFor(err)
			resp["error"] = b
		} else {
			resp["quote"] = st
		}
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) apiQuote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req usecase.QuoteRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if !s.allowCustomer(w, r, req.CustomerID) {
		return
	}
	s.readCart(r).fill(&req)
	st, err := s.checkout.Quote(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) apiOrders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req usecase.PlaceOrderRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if !s.allowCustomer(w, r, req.CustomerID) {
		return
	}
	fromCookie := len(req.Items) == 0
	s.readCart(r).fill(&req.QuoteRequest)
	receipt, err := s.checkout.PlaceOrder(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if fromCookie {
		s.writeCart(w, cartPayload{})
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusCreated, receipt)
}

// --- helpers ---

func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if s.adminToken == "" {
		return true
	}
	tok := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
	if subtle.ConstantTimeCompare([]byte(tok), []byte(s.adminToken)) == 1 {
		return true
	}
	writeJSON(w, http.StatusUnauthorized, errorBody{Code: "unauthorized", Message: "admin token required"})
	return false
}

// allowCustomer guards requests that act for a customer account. This API
// does not authenticate shoppers, so a customer_id (coins, member pricing) is
// only accepted from a caller holding the service token, i.e. a front end
// that has already signed the shopper in. Anonymous requests price as guests.
func (s *Server) allowCustomer(w http.ResponseWriter, r *http.Request, id *uuid.UUID) bool {
	if id == nil {
		return true
	}
	return s.requireAdmin(w, r)
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return domain.NewValidation("body", "invalid json")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, errorBody{Code: "method_not_allowed", Message: "method not allowed"})
}

func (s *Server) readCart(r *http.Request) cartPayload {
	c, err := r.Cookie("cart")
	if err != nil {
		return cartPayload{}
	}
	parts := strings.SplitN(c.Value, ".", 2)
	if len(parts) != 2 {
		return cartPayload{}
	}
	sig, _ := base64.RawURLEncoding.DecodeString(parts[0])
	payload, _ := base64.RawURLEncoding.DecodeString(parts[1])
	h := hmac.New(sha256.New, s.sessionKey)
	h.Write(payload)
	if !hmac.Equal(sig, h.Sum(nil)) {
		log.Debug().Msg("cart cookie signature mismatch")
		return cartPayload{}
	}
	var cp cartPayload
	_ = json.Unmarshal(payload, &cp)
	return cp
}

func (s *Server) writeCart(w http.ResponseWriter, cp cartPayload) {
	b, _ := json.Marshal(cp)
	h := hmac.New(sha256.New, s.sessionKey)
	h.Write(b)
	sig := base64.RawURLEncoding.EncodeToString(h.Sum(nil))
	val := sig + "." + base64.RawURLEncoding.EncodeToString(b)
	http.SetCookie(w, &http.Cookie{Name: "cart", Value: val, Path: "/", MaxAge: 60 * 60 * 24 * 7, HttpOnly: true, SameSite: http.SameSiteLaxMode})
}

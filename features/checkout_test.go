package features

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"

	"github.com/cucumber/godog"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/phenrril/storefront/internal/app"
	"github.com/phenrril/storefront/internal/checkout"
	"github.com/phenrril/storefront/internal/config"
	"github.com/phenrril/storefront/internal/domain"
	"github.com/phenrril/storefront/internal/usecase"
)

type checkoutTestContext struct {
	app      *app.App
	closeDB  func()
	products map[string]*domain.Product
	customer *uuid.UUID

	view    checkout.ProductView
	state   checkout.State
	receipt domain.OrderReceipt
	err     error
}

func (c *checkoutTestContext) reset() error {
	if c.closeDB != nil {
		c.closeDB()
	}
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(1)
	c.closeDB = func() { _ = sqlDB.Close() }

	cfg := &config.Config{
		SessionKey: "features",
		Loyalty: config.LoyaltyConfig{
			LoyaltySettings: domain.LoyaltySettings{WaiveShippingOnRedemption: true},
			CoinValue:       1,
		},
	}
	a, err := app.NewApp(cfg, db, nil)
	if err != nil {
		return err
	}
	if err := a.MigrateAndSeed(); err != nil {
		return err
	}
	c.app = a
	c.products = map[string]*domain.Product{}
	c.customer = nil
	c.view = checkout.ProductView{}
	c.state = checkout.State{}
	c.receipt = domain.OrderReceipt{}
	c.err = nil
	return nil
}

// Given steps

func (c *checkoutTestContext) aProductWithVariants(slug string, table *godog.Table) error {
	p := &domain.Product{Slug: slug, Title: slug, Active: true}
	if len(table.Rows) < 2 {
		return errors.New("variant table has no rows")
	}
	col := map[string]int{}
	for i, cell := range table.Rows[0].Cells {
		col[cell.Value] = i
	}
	for _, row := range table.Rows[1:] {
		get := func(name string) string { return row.Cells[col[name]].Value }
		price, err := strconv.ParseFloat(get("price"), 64)
		if err != nil {
			return err
		}
		stock, err := strconv.Atoi(get("stock"))
		if err != nil {
			return err
		}
		p.Variants = append(p.Variants, domain.Variant{
			SKU:           get("sku"),
			Attributes:    domain.NewAttributes(get("size"), get("color")),
			CurrentPrice:  price,
			StockQuantity: stock,
		})
	}
	if err := c.app.ProductUC.Create(context.Background(), p); err != nil {
		return err
	}
	c.products[slug] = p
	return nil
}

func (c *checkoutTestContext) deliveryCharges(inside, sub, outside int) error {
	d := &c.app.CheckoutUC.Delivery
	d.InsideDhaka, d.SubDhaka, d.OutsideDhaka = float64(inside), float64(sub), float64(outside)
	return nil
}

func (c *checkoutTestContext) freeShippingFrom(threshold int) error {
	c.app.CheckoutUC.Delivery.FreeShippingThreshold = float64(threshold)
	return nil
}

func (c *checkoutTestContext) aFixedCoupon(code string, value int) error {
	return c.app.Coupons.Save(context.Background(), &domain.Coupon{Code: code, Type: domain.CouponFixed, Value: float64(value), Active: true})
}

func (c *checkoutTestContext) aFixedUpsellOn(value int, slug string) error {
	p, ok := c.products[slug]
	if !ok {
		return fmt.Errorf("unknown product %q", slug)
	}
	return c.app.Bundles.Save(context.Background(), &domain.Bundle{
		Name: slug + " deal", DiscountType: domain.CouponFixed, Discount: float64(value), Active: true,
		Items: []domain.BundleItem{{ProductID: p.ID}},
	})
}

func (c *checkoutTestContext) aCustomerWithCoins(coins int) error {
	cust := &domain.Customer{Email: "rahim@example.com", Name: "Rahim", LoyaltyCoins: int64(coins)}
	if err := c.app.Customers.Save(context.Background(), cust); err != nil {
		return err
	}
	c.customer = &cust.ID
	return nil
}

// When steps

func (c *checkoutTestContext) iSelectSizeAndColorOn(size, color, slug string) error {
	c.view, c.err = c.app.ProductUC.Resolve(context.Background(), slug, domain.Selection{Size: &size, Color: &color}, "", 0)
	return c.err
}

func (c *checkoutTestContext) iSetTheQuantityTo(q int) error {
	c.view = c.view.SetQuantity(q)
	return nil
}

func (c *checkoutTestContext) quote(req usecase.QuoteRequest) error {
	c.state, c.err = c.app.CheckoutUC.Quote(context.Background(), req)
	return nil
}

func (c *checkoutTestContext) iQuoteOfToDistrict(qty int, sku string, district int) error {
	return c.quote(usecase.QuoteRequest{
		Items:      []usecase.CartItemInput{{SKU: sku, Quantity: qty}},
		DistrictID: district,
	})
}

func (c *checkoutTestContext) iQuoteOfToDistrictWithCoupon(qty int, sku string, district int, code string) error {
	return c.quote(usecase.QuoteRequest{
		Items:      []usecase.CartItemInput{{SKU: sku, Quantity: qty}},
		DistrictID: district,
		CouponCode: code,
	})
}

func (c *checkoutTestContext) theCustomerQuotesUsingCoins(qty int, sku string, district int) error {
	if c.customer == nil {
		return errors.New("no customer")
	}
	return c.quote(usecase.QuoteRequest{
		Items:      []usecase.CartItemInput{{SKU: sku, Quantity: qty}},
		DistrictID: district,
		CustomerID: c.customer,
		UseCoins:   true,
	})
}

func (c *checkoutTestContext) iOrderOfToDistrictAsOn(qty int, sku string, district int, name, phone string) error {
	c.receipt, c.err = c.app.CheckoutUC.PlaceOrder(context.Background(), usecase.PlaceOrderRequest{
		QuoteRequest: usecase.QuoteRequest{
			Items:      []usecase.CartItemInput{{SKU: sku, Quantity: qty}},
			DistrictID: district,
		},
		Name:    name,
		Phone:   phone,
		Address: "House 12, Road 4",
	})
	return c.err
}

// Then steps

func (c *checkoutTestContext) theSelectedVariantIs(sku string) error {
	if c.view.Variant == nil {
		return fmt.Errorf("expected variant %s, got none (%v)", sku, c.view.Err)
	}
	if c.view.Variant.SKU != sku {
		return fmt.Errorf("expected variant %s, got %s", sku, c.view.Variant.SKU)
	}
	return nil
}

func (c *checkoutTestContext) noVariantIsSelected() error {
	if c.view.Variant != nil {
		return fmt.Errorf("expected no variant, got %s", c.view.Variant.SKU)
	}
	return nil
}

func (c *checkoutTestContext) theSelectionFailsWith(code string) error {
	return expectCode(c.view.Err, code)
}

func (c *checkoutTestContext) theSelectedQuantityIs(q int) error {
	if c.view.Quantity != q {
		return fmt.Errorf("expected quantity %d, got %d", q, c.view.Quantity)
	}
	return nil
}

func (c *checkoutTestContext) quoted() error {
	if c.err != nil {
		return fmt.Errorf("quote failed: %w", c.err)
	}
	return nil
}

func (c *checkoutTestContext) amount(name string, got float64, want int) error {
	if err := c.quoted(); err != nil {
		return err
	}
	if got != float64(want) {
		return fmt.Errorf("expected %s %d, got %.2f", name, want, got)
	}
	return nil
}

func (c *checkoutTestContext) theSubtotalIs(v int) error {
	return c.amount("subtotal", c.state.Totals.Subtotal, v)
}

func (c *checkoutTestContext) theShippingCostIs(v int) error {
	return c.amount("shipping", c.state.Totals.ShippingCost, v)
}

func (c *checkoutTestContext) theTotalIs(v int) error {
	return c.amount("total", c.state.Totals.Total, v)
}

func (c *checkoutTestContext) theCouponDiscountIs(v int) error {
	return c.amount("coupon discount", c.state.Totals.Discounts.Coupon, v)
}

func (c *checkoutTestContext) theUpsellDiscountIs(v int) error {
	return c.amount("upsell discount", c.state.Totals.Discounts.Upsell, v)
}

func (c *checkoutTestContext) theLoyaltyDiscountIs(v int) error {
	return c.amount("loyalty discount", c.state.Totals.Discounts.Loyalty, v)
}

func (c *checkoutTestContext) theQuoteFailsWith(code string) error {
	return expectCode(c.err, code)
}

func (c *checkoutTestContext) theOrderTotalIs(v int) error {
	if c.receipt.Total != float64(v) {
		return fmt.Errorf("expected order total %d, got %.2f", v, c.receipt.Total)
	}
	if c.receipt.Number == "" {
		return errors.New("order has no number")
	}
	return nil
}

func (c *checkoutTestContext) hasLeftInStock(sku string, n int) error {
	_, v, err := c.app.ProductUC.SearchBySKU(context.Background(), sku)
	if err != nil {
		return err
	}
	if v.StockQuantity != n {
		return fmt.Errorf("expected %d of %s in stock, got %d", n, sku, v.StockQuantity)
	}
	return nil
}

var errorCodes = []struct {
	err  error
	code string
}{
	{domain.ErrNoMatchingVariant, "no_matching_variant"},
	{domain.ErrOutOfStock, "out_of_stock"},
	{domain.ErrInsufficientStock, "insufficient_stock"},
	{domain.ErrInvalidQuantity, "invalid_quantity"},
	{domain.ErrInvalidCoupon, "invalid_coupon"},
	{domain.ErrInsufficientCoins, "insufficient_coins"},
	{domain.ErrUnknownRegion, "unknown_region"},
	{domain.ErrDataIntegrity, "data_integrity"},
	{domain.ErrValidation, "validation_error"},
	{domain.ErrNotFound, "not_found"},
}

func expectCode(err error, code string) error {
	if err == nil {
		return fmt.Errorf("expected %s, got no error", code)
	}
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			if ec.code != code {
				return fmt.Errorf("expected %s, got %s (%v)", code, ec.code, err)
			}
			return nil
		}
	}
	return fmt.Errorf("expected %s, got unclassified error %v", code, err)
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &checkoutTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		return ctx, tc.reset()
	})
	ctx.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if tc.closeDB != nil {
			tc.closeDB()
			tc.closeDB = nil
		}
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^a product "([^"]*)" with variants:$`, tc.aProductWithVariants)
	ctx.Step(`^delivery charges of (\d+) inside Dhaka, (\d+) sub Dhaka and (\d+) outside Dhaka$`, tc.deliveryCharges)
	ctx.Step(`^free shipping from (\d+)$`, tc.freeShippingFrom)
	ctx.Step(`^a fixed coupon "([^"]*)" worth (\d+)$`, tc.aFixedCoupon)
	ctx.Step(`^a fixed upsell of (\d+) on "([^"]*)"$`, tc.aFixedUpsellOn)
	ctx.Step(`^a customer with (\d+) coins$`, tc.aCustomerWithCoins)

	// When steps
	ctx.Step(`^I select size "([^"]*)" and color "([^"]*)" on "([^"]*)"$`, tc.iSelectSizeAndColorOn)
	ctx.Step(`^I set the quantity to (\d+)$`, tc.iSetTheQuantityTo)
	ctx.Step(`^I quote (\d+) of "([^"]*)" to district (\d+)$`, tc.iQuoteOfToDistrict)
	ctx.Step(`^I quote (\d+) of "([^"]*)" to district (\d+) with coupon "([^"]*)"$`, tc.iQuoteOfToDistrictWithCoupon)
	ctx.Step(`^the customer quotes (\d+) of "([^"]*)" to district (\d+) using coins$`, tc.theCustomerQuotesUsingCoins)
	ctx.Step(`^I order (\d+) of "([^"]*)" to district (\d+) as "([^"]*)" on "([^"]*)"$`, tc.iOrderOfToDistrictAsOn)

	// Then steps
	ctx.Step(`^the selected variant is "([^"]*)"$`, tc.theSelectedVariantIs)
	ctx.Step(`^no variant is selected$`, tc.noVariantIsSelected)
	ctx.Step(`^the selection fails with "([^"]*)"$`, tc.theSelectionFailsWith)
	ctx.Step(`^the selected quantity is (\d+)$`, tc.theSelectedQuantityIs)
	ctx.Step(`^the subtotal is (\d+)$`, tc.theSubtotalIs)
	ctx.Step(`^the shipping cost is (\d+)$`, tc.theShippingCostIs)
	ctx.Step(`^the total is (\d+)$`, tc.theTotalIs)
	ctx.Step(`^the coupon discount is (\d+)$`, tc.theCouponDiscountIs)
	ctx.Step(`^the upsell discount is (\d+)$`, tc.theUpsellDiscountIs)
	ctx.Step(`^the loyalty discount is (\d+)$`, tc.theLoyaltyDiscountIs)
	ctx.Step(`^the quote fails with "([^"]*)"$`, tc.theQuoteFailsWith)
	ctx.Step(`^the order total is (\d+)$`, tc.theOrderTotalIs)
	ctx.Step(`^"([^"]*)" has (\d+) left in stock$`, tc.hasLeftInStock)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"checkout.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

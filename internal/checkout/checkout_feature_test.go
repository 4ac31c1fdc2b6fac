package checkout

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/cucumber/godog"
	"github.com/shopspring/decimal"

	"cajadual/backend/internal/domain"
)

type checkoutFeature struct {
	rate     *stubRate
	recorder *stubRecorder
	reg      *Register
	status   domain.CheckoutStatus
	result   Result
	err      error
}

func (c *checkoutFeature) reset() {
	c.rate = &stubRate{rate: decimal.RequireFromString("36.50")}
	c.recorder = &stubRecorder{}
	c.reg = NewRegister(c.rate, c.recorder, &stubRenderer{})
	c.status = domain.CheckoutStatus{}
	c.result = Result{}
	c.err = nil
}

func parseAmount(raw string) (decimal.Decimal, error) {
	return decimal.NewFromString(raw)
}

func expectAmount(label string, want string, got decimal.Decimal) error {
	w, err := parseAmount(want)
	if err != nil {
		return err
	}
	if !got.Equal(w) {
		return fmt.Errorf("expected %s %s, got %s", label, w, got)
	}
	return nil
}

func (c *checkoutFeature) theExchangeRateIs(raw string) error {
	v, err := parseAmount(raw)
	if err != nil {
		return err
	}
	c.rate.rate = v
	return nil
}

func (c *checkoutFeature) theCartHoldsUnitsOfAt(qty string, name string, price string) error {
	q, err := parseAmount(qty)
	if err != nil {
		return err
	}
	p, err := parseAmount(price)
	if err != nil {
		return err
	}
	_, err = c.reg.AddToCart(domain.Product{Code: domain.ProductCode(name), Name: name, SalePrice: p}, q)
	return err
}

func (c *checkoutFeature) checkoutIsOpen() error {
	status, err := c.reg.Open()
	c.status = status
	return err
}

func (c *checkoutFeature) theCustomerPaysWith(amount string, method string) error {
	m, err := domain.ParsePaymentMethod(method)
	if err != nil {
		return err
	}
	a, err := parseAmount(amount)
	if err != nil {
		return err
	}
	status, err := c.reg.RecordPayment(m, a)
	if err != nil {
		return err
	}
	c.status = status
	return nil
}

func (c *checkoutFeature) theAmountPaidIs(want string) error {
	return expectAmount("paid", want, c.status.Ledger.PaidUSD)
}

func (c *checkoutFeature) theAmountOwedIs(want string) error {
	return expectAmount("owed", want, c.status.Ledger.OwedUSD)
}

func (c *checkoutFeature) theChangeDueIs(want string) error {
	return expectAmount("change", want, c.status.Ledger.ChangeUSD)
}

func (c *checkoutFeature) theLastPaymentIsWorth(want string) error {
	payments := c.status.Ledger.Payments
	if len(payments) == 0 {
		return errors.New("no payments recorded")
	}
	return expectAmount("payment", want, payments[len(payments)-1].AmountUSD)
}

func (c *checkoutFeature) theOperatorFinalizesTheSale(ctx context.Context) error {
	c.result, c.err = c.reg.Finalize(ctx, nil, false)
	return nil
}

func (c *checkoutFeature) theOperatorFinalizesGivingChange(ctx context.Context, usd string, local string) error {
	u, err := parseAmount(usd)
	if err != nil {
		return err
	}
	l, err := parseAmount(local)
	if err != nil {
		return err
	}
	c.result, c.err = c.reg.Finalize(ctx, &domain.ChangeBreakdown{USDCash: u, LocalCash: l}, false)
	return nil
}

func (c *checkoutFeature) theSaleIsRecorded() error {
	if c.err != nil {
		return fmt.Errorf("expected sale to be recorded, got %v", c.err)
	}
	if len(c.recorder.recorded) != 1 || c.recorder.recorded[0].ID != c.result.Sale.ID {
		return fmt.Errorf("expected exactly the finalized sale to be recorded, got %d", len(c.recorder.recorded))
	}
	return nil
}

func (c *checkoutFeature) theRecordedSaleTotalsInLocalCurrency(want string) error {
	return expectAmount("total local", want, c.result.Sale.TotalLocal)
}

func (c *checkoutFeature) theRecordedChangeIs(want string) error {
	if c.result.Sale.Change == nil {
		return errors.New("sale has no change recorded")
	}
	return expectAmount("change", want, c.result.Sale.Change.TotalUSD)
}

func (c *checkoutFeature) finalizingFailsBecausePaymentIsIncomplete() error {
	if !errors.Is(c.err, domain.ErrPaymentIncomplete) {
		return fmt.Errorf("expected payment incomplete, got %v", c.err)
	}
	return nil
}

func (c *checkoutFeature) checkoutIsIdle() error {
	if state := c.reg.Status().State; state != domain.StateIdle {
		return fmt.Errorf("expected idle, got %s", state)
	}
	return nil
}

func (c *checkoutFeature) checkoutIsStillOpen() error {
	if state := c.reg.Status().State; state != domain.StateOpen {
		return fmt.Errorf("expected open, got %s", state)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	c := &checkoutFeature{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		c.reset()
		return ctx, nil
	})

	ctx.Step(`^the exchange rate is (\d+(?:\.\d+)?)$`, c.theExchangeRateIs)
	ctx.Step(`^the cart holds (\d+(?:\.\d+)?) units of "([^"]*)" at \$(\d+(?:\.\d+)?)$`, c.theCartHoldsUnitsOfAt)
	ctx.Step(`^checkout is open$`, c.checkoutIsOpen)

	ctx.Step(`^the customer pays (\d+(?:\.\d+)?) with "([^"]*)"$`, c.theCustomerPaysWith)
	ctx.Step(`^the operator finalizes the sale$`, c.theOperatorFinalizesTheSale)
	ctx.Step(`^the operator finalizes the sale giving \$(\d+(?:\.\d+)?) and (\d+(?:\.\d+)?) in local cash as change$`, c.theOperatorFinalizesGivingChange)

	ctx.Step(`^the amount paid is \$(\d+(?:\.\d+)?)$`, c.theAmountPaidIs)
	ctx.Step(`^the amount owed is \$(\d+(?:\.\d+)?)$`, c.theAmountOwedIs)
	ctx.Step(`^the change due is \$(\d+(?:\.\d+)?)$`, c.theChangeDueIs)
	ctx.Step(`^the last payment is worth \$(\d+(?:\.\d+)?)$`, c.theLastPaymentIsWorth)
	ctx.Step(`^the sale is recorded$`, c.theSaleIsRecorded)
	ctx.Step(`^the recorded sale totals (\d+(?:\.\d+)?) in local currency$`, c.theRecordedSaleTotalsInLocalCurrency)
	ctx.Step(`^the recorded change is \$(\d+(?:\.\d+)?)$`, c.theRecordedChangeIs)
	ctx.Step(`^finalizing fails because payment is incomplete$`, c.finalizingFailsBecausePaymentIsIncomplete)
	ctx.Step(`^checkout is idle$`, c.checkoutIsIdle)
	ctx.Step(`^checkout is still open$`, c.checkoutIsStillOpen)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/checkout.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

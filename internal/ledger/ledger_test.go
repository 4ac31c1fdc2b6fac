package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cajadual/backend/internal/domain"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var rate = d("36.50")

func openTen(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(d("10.00"))
	require.NoError(t, err)
	return l
}

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Equal(d(want)), "want %s, got %s", want, got.String())
}

func TestOpenRejectsNonPositiveTotal(t *testing.T) {
	_, err := Open(decimal.Zero)
	assert.ErrorIs(t, err, domain.ErrInvalidTotal)
	_, err = Open(d("-3"))
	assert.ErrorIs(t, err, domain.ErrInvalidTotal)
}

func TestMixedPaymentCoversSale(t *testing.T) {
	l := openTen(t)

	_, err := l.AddPayment(domain.MethodCashUSD, d("6.00"), rate)
	require.NoError(t, err)
	assertDec(t, "6", l.PaidUSD())
	assertDec(t, "4", l.OwedUSD())

	p, err := l.AddPayment(domain.MethodCardDebit, d("146.00"), rate)
	require.NoError(t, err)
	assertDec(t, "4", p.AmountUSD)
	assert.Equal(t, domain.CurrencyLocal, p.Currency)
	assertDec(t, "0", l.OwedUSD())
	assertDec(t, "0", l.ChangeUSD())
	assertDec(t, "100", l.PercentPaid())

	assert.True(t, l.CanFinalize(nil, rate))
}

func TestCashUSDStoresBothAmounts(t *testing.T) {
	l := openTen(t)
	p, err := l.AddPayment(domain.MethodCashUSD, d("2"), rate)
	require.NoError(t, err)
	assert.Equal(t, domain.CurrencyUSD, p.Currency)
	assertDec(t, "2", p.TenderedAmount)
	assertDec(t, "2", p.AmountUSD)
	assertDec(t, "73", p.AmountLocal)
}

func TestCashLocalIsEnteredInLocalCurrency(t *testing.T) {
	l := openTen(t)
	p, err := l.AddPayment(domain.MethodCashLocal, d("73"), rate)
	require.NoError(t, err)
	assertDec(t, "73", p.AmountLocal)
	assertDec(t, "2", p.AmountUSD)
}

func TestRateChangeDoesNotAlterEarlierPayments(t *testing.T) {
	l := openTen(t)
	_, err := l.AddPayment(domain.MethodMobileTransfer, d("73"), rate)
	require.NoError(t, err)
	_, err = l.AddPayment(domain.MethodMobileTransfer, d("80"), d("40"))
	require.NoError(t, err)

	assertDec(t, "4", l.PaidUSD())
	payments := l.Payments()
	assertDec(t, "2", payments[0].AmountUSD)
	assertDec(t, "2", payments[1].AmountUSD)

	status, err := l.Status(d("40"))
	require.NoError(t, err)
	assertDec(t, "4", status.PaidUSD)
	assertDec(t, "160", status.PaidLocal)
	assertDec(t, "240", status.OwedLocal)
}

func TestAddPaymentValidation(t *testing.T) {
	l := openTen(t)
	_, err := l.AddPayment(domain.MethodCashUSD, decimal.Zero, rate)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	_, err = l.AddPayment(domain.MethodCashUSD, d("-1"), rate)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	_, err = l.AddPayment(domain.MethodCardCredit, d("10"), decimal.Zero)
	assert.ErrorIs(t, err, domain.ErrInvalidRate)
	_, err = l.AddPayment(domain.PaymentMethod(0), d("10"), rate)
	assert.ErrorIs(t, err, domain.ErrUnknownMethod)
	assert.Empty(t, l.Payments())
}

func TestRemovePayment(t *testing.T) {
	l := openTen(t)
	_, err := l.AddPayment(domain.MethodCashUSD, d("3"), rate)
	require.NoError(t, err)
	_, err = l.AddPayment(domain.MethodStoreCredit, d("36.5"), rate)
	require.NoError(t, err)

	assert.ErrorIs(t, l.RemovePayment(2), domain.ErrIndexOutOfRange)
	require.NoError(t, l.RemovePayment(0))
	require.Len(t, l.Payments(), 1)
	assert.Equal(t, domain.MethodStoreCredit, l.Payments()[0].Method)
	assertDec(t, "9", l.OwedUSD())
}

func TestSuggestedTender(t *testing.T) {
	l := openTen(t)
	_, err := l.AddPayment(domain.MethodCashUSD, d("6"), rate)
	require.NoError(t, err)

	usd, err := l.SuggestedTender(domain.MethodCashUSD, rate)
	require.NoError(t, err)
	assertDec(t, "4", usd)

	local, err := l.SuggestedTender(domain.MethodCardDebit, rate)
	require.NoError(t, err)
	assertDec(t, "146", local)

	_, err = l.AddPayment(domain.MethodCashUSD, d("10"), rate)
	require.NoError(t, err)
	usd, err = l.SuggestedTender(domain.MethodCashUSD, rate)
	require.NoError(t, err)
	assertDec(t, "0", usd)
}

func TestOwedBlocksFinalize(t *testing.T) {
	l := openTen(t)
	_, err := l.AddPayment(domain.MethodCashUSD, d("5.68"), rate)
	require.NoError(t, err)

	err = l.CheckFinalize(nil, rate)
	require.ErrorIs(t, err, domain.ErrPaymentIncomplete)
	assert.Contains(t, err.Error(), "$4.32 still owed")

	breakdown := &domain.ChangeBreakdown{USDCash: d("4.32")}
	assert.ErrorIs(t, l.CheckFinalize(breakdown, rate), domain.ErrPaymentIncomplete)
}

func TestOneCentShortIsTolerated(t *testing.T) {
	l := openTen(t)
	_, err := l.AddPayment(domain.MethodCashUSD, d("9.99"), rate)
	require.NoError(t, err)
	assert.True(t, l.CanFinalize(nil, rate))
}

func TestChangeRequiresReconciledBreakdown(t *testing.T) {
	l := openTen(t)
	_, err := l.AddPayment(domain.MethodCashUSD, d("15"), rate)
	require.NoError(t, err)
	assertDec(t, "5", l.ChangeUSD())
	assertDec(t, "100", l.PercentPaid())

	status, err := l.Status(rate)
	require.NoError(t, err)
	assert.True(t, status.ChangeSplitNeeded)

	assert.ErrorIs(t, l.CheckFinalize(nil, rate), domain.ErrPaymentIncomplete)
	assert.True(t, l.CanFinalize(&domain.ChangeBreakdown{USDCash: d("5")}, rate))

	err = l.CheckFinalize(&domain.ChangeBreakdown{USDCash: d("2")}, rate)
	require.ErrorIs(t, err, domain.ErrPaymentIncomplete)
	assert.Contains(t, err.Error(), "$5.00 is owed")

	mixed := &domain.ChangeBreakdown{USDCash: d("3"), LocalCash: d("73")}
	assert.True(t, l.CanFinalize(mixed, rate))

	negative := &domain.ChangeBreakdown{USDCash: d("6"), LocalCash: d("-36.5")}
	assert.ErrorIs(t, l.CheckFinalize(negative, rate), domain.ErrPaymentIncomplete)
}

func TestLargeOverpaymentReportsFullChange(t *testing.T) {
	l := openTen(t)
	_, err := l.AddPayment(domain.MethodCashUSD, d("1000000"), rate)
	require.NoError(t, err)
	assertDec(t, "999990", l.ChangeUSD())
	assert.False(t, l.CanFinalize(nil, rate))
	assert.True(t, l.CanFinalize(&domain.ChangeBreakdown{USDCash: d("999990")}, rate))
}

func TestSuggestChangeSplit(t *testing.T) {
	l := openTen(t)
	_, err := l.AddPayment(domain.MethodCashUSD, d("15"), rate)
	require.NoError(t, err)

	split, err := l.SuggestChangeSplit(d("3"), rate)
	require.NoError(t, err)
	assertDec(t, "3", split.USDCash)
	assertDec(t, "73", split.LocalCash)
	assert.True(t, l.CanFinalize(&split, rate))

	split, err = l.SuggestChangeSplit(d("20"), rate)
	require.NoError(t, err)
	assertDec(t, "5", split.USDCash)
	assertDec(t, "0", split.LocalCash)

	_, err = l.SuggestChangeSplit(d("-1"), rate)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

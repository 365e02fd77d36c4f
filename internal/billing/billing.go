// Package billing computes checkout amounts. Tax, discount and split payments
// are not supported; their fields are always zero.
package billing

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tablepos/api/internal/enum"
)

var (
	ErrInsufficientPayment = errors.New("amount tendered is less than the order total")
	ErrInvalidMethod       = errors.New("payment method must be CASH, CARD or TRANSFER")
	ErrNegativeAmount      = errors.New("amount must not be negative")
)

// Methods lists the accepted payment methods.
var Methods = []string{
	enum.PaymentMethodCash,
	enum.PaymentMethodCard,
	enum.PaymentMethodTransfer,
}

// Summary is the checkout breakdown shown to the cashier and stored on the invoice.
type Summary struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
	Tendered decimal.Decimal
	Change   decimal.Decimal
}

// ChangeDue returns max(0, tendered - total).
func ChangeDue(total, tendered decimal.Decimal) decimal.Decimal {
	change := tendered.Sub(total)
	if change.IsNegative() {
		return decimal.Zero
	}
	return change
}

// NormalizeMethod upper-cases m and reports whether it is accepted.
func NormalizeMethod(m string) (string, bool) {
	m = strings.ToUpper(strings.TrimSpace(m))
	for _, known := range Methods {
		if m == known {
			return m, true
		}
	}
	return "", false
}

// Validate checks a checkout before any invoice is created.
func Validate(total, tendered decimal.Decimal, method string) error {
	if total.IsNegative() || tendered.IsNegative() {
		return ErrNegativeAmount
	}
	if _, ok := NormalizeMethod(method); !ok {
		return ErrInvalidMethod
	}
	if tendered.LessThan(total) {
		return ErrInsufficientPayment
	}
	return nil
}

// Summarize builds the checkout breakdown for total and tendered.
func Summarize(total, tendered decimal.Decimal) Summary {
	return Summary{
		Subtotal: total,
		Tax:      decimal.Zero,
		Discount: decimal.Zero,
		Total:    total,
		Tendered: tendered,
		Change:   ChangeDue(total, tendered),
	}
}

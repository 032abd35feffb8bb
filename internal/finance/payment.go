package finance

import (
	"github.com/shopspring/decimal"

	"github.com/SpaceKap/zervtek-crm-sub003/internal/model"
)

// ResolvePaymentStatus derives an invoice payment status from the amount
// received so far against the tax-inclusive total. The caller supplies the
// cumulative amount per call; partial payments must be summed by the caller.
func ResolvePaymentStatus(amountReceived, totalWithTax decimal.Decimal) string {
	switch {
	case amountReceived.GreaterThanOrEqual(totalWithTax):
		return model.PaymentPaid
	case amountReceived.IsPositive():
		return model.PaymentPartiallyPaid
	default:
		return model.PaymentPending
	}
}

// ValidPaymentStatus reports whether s is one of the enumerated payment
// status values accepted on an explicit-status update.
func ValidPaymentStatus(s string) bool {
	switch s {
	case model.PaymentPending, model.PaymentPartiallyPaid, model.PaymentPaid:
		return true
	}
	return false
}

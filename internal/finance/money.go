// Package finance holds the ledger math as pure functions over decimals.
// Services read current rows, feed them through these functions, and
// overwrite the derived fields; nothing here touches storage.
package finance

import (
	"github.com/shopspring/decimal"
)

// Round2 rounds a monetary amount to 2 decimal places, half away from zero.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// SplitEvenly returns the per-member amount for an equal split of total
// across n members: round2(total / n). Every member receives the same
// amount; the sum of allocations may differ from total by up to
// 0.01 × (n−1) because each row is rounded independently. Returns zero
// for n <= 0.
func SplitEvenly(total decimal.Decimal, n int) decimal.Decimal {
	if n <= 0 {
		return decimal.Zero
	}
	return Round2(total.Div(decimal.NewFromInt(int64(n))))
}

// RevenueWithTax derives an invoice's tax-inclusive revenue from its charge
// subtotal. When tax is disabled the subtotal passes through unchanged; the
// rate is a percentage (10 means 10%).
func RevenueWithTax(subtotal decimal.Decimal, taxEnabled bool, rate decimal.Decimal) decimal.Decimal {
	if !taxEnabled {
		return subtotal
	}
	taxAmount := subtotal.Mul(rate).Div(decimal.NewFromInt(100))
	return subtotal.Add(taxAmount)
}

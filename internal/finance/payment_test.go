package finance

import (
	"testing"

	"github.com/SpaceKap/zervtek-crm-sub003/internal/model"
)

func TestResolvePaymentStatus(t *testing.T) {
	// ¥20,000 subtotal + 10% tax
	total := RevenueWithTax(dec("20000"), true, dec("10"))
	if !total.Equal(dec("22000")) {
		t.Fatalf("tax-inclusive total = %s, want 22000", total)
	}

	tests := []struct {
		name     string
		received string
		want     string
	}{
		{name: "exact total is paid", received: "22000", want: model.PaymentPaid},
		{name: "overpayment is paid", received: "25000", want: model.PaymentPaid},
		{name: "partial payment", received: "10000", want: model.PaymentPartiallyPaid},
		{name: "one yen short stays partial", received: "21999", want: model.PaymentPartiallyPaid},
		{name: "zero is pending", received: "0", want: model.PaymentPending},
		{name: "negative is pending", received: "-100", want: model.PaymentPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolvePaymentStatus(dec(tt.received), total); got != tt.want {
				t.Errorf("ResolvePaymentStatus(%s, %s) = %s, want %s", tt.received, total, got, tt.want)
			}
		})
	}
}

func TestValidPaymentStatus(t *testing.T) {
	for _, s := range []string{model.PaymentPending, model.PaymentPartiallyPaid, model.PaymentPaid} {
		if !ValidPaymentStatus(s) {
			t.Errorf("ValidPaymentStatus(%q) = false, want true", s)
		}
	}
	for _, s := range []string{"", "PAID ", "paid", "CANCELLED"} {
		if ValidPaymentStatus(s) {
			t.Errorf("ValidPaymentStatus(%q) = true, want false", s)
		}
	}
}

package finance

import (
	"testing"

	"github.com/SpaceKap/zervtek-crm-sub003/internal/model"
)

func TestWalletBalance(t *testing.T) {
	tests := []struct {
		name     string
		entries  []LedgerEntry
		currency string
		want     string
	}{
		{
			name: "deposits minus applied minus refunds",
			entries: []LedgerEntry{
				{Direction: model.DirectionIncoming, Amount: dec("50000"), Currency: "JPY", Description: "Deposit"},
				{Direction: model.DirectionOutgoing, Amount: dec("20000"), Currency: "JPY", Description: "Applied from wallet to Invoice INV-20260101-00001"},
				{Direction: model.DirectionOutgoing, Amount: dec("5000"), Currency: "JPY", Description: "Refund"},
			},
			currency: "JPY",
			want:     "25000",
		},
		{
			name: "payment for invoice rows never count as wallet funds",
			entries: []LedgerEntry{
				{Direction: model.DirectionIncoming, Amount: dec("50000"), Currency: "JPY", Description: "Deposit"},
				{Direction: model.DirectionIncoming, Amount: dec("100000"), Currency: "JPY", Description: "Payment for Invoice INV-20260101-00002"},
			},
			currency: "JPY",
			want:     "50000",
		},
		{
			name: "other currencies are ignored",
			entries: []LedgerEntry{
				{Direction: model.DirectionIncoming, Amount: dec("50000"), Currency: "JPY", Description: "Deposit"},
				{Direction: model.DirectionIncoming, Amount: dec("300"), Currency: "USD", Description: "Deposit"},
				{Direction: model.DirectionOutgoing, Amount: dec("100"), Currency: "USD", Description: "Refund"},
			},
			currency: "JPY",
			want:     "50000",
		},
		{
			name: "inconsistent ledger returns negative as-is",
			entries: []LedgerEntry{
				{Direction: model.DirectionIncoming, Amount: dec("10000"), Currency: "JPY", Description: "Deposit"},
				{Direction: model.DirectionOutgoing, Amount: dec("15000"), Currency: "JPY", Description: "Refund"},
			},
			currency: "JPY",
			want:     "-5000",
		},
		{
			name:     "empty ledger",
			entries:  nil,
			currency: "JPY",
			want:     "0",
		},
		{
			name: "unrelated descriptions do not move the balance",
			entries: []LedgerEntry{
				{Direction: model.DirectionIncoming, Amount: dec("50000"), Currency: "JPY", Description: "Deposit"},
				{Direction: model.DirectionOutgoing, Amount: dec("9999"), Currency: "JPY", Description: "Vendor payout"},
			},
			currency: "JPY",
			want:     "50000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WalletBalance(tt.entries, tt.currency)
			if !got.Equal(dec(tt.want)) {
				t.Errorf("WalletBalance() = %s, want %s", got, tt.want)
			}
		})
	}
}

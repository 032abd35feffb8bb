package finance

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/SpaceKap/zervtek-crm-sub003/internal/model"
)

// Outgoing rows funding an invoice from the wallet all share this prefix.
const walletAppliedPrefix = "Applied from wallet"

// LedgerEntry is the minimal transaction view the wallet projection needs.
type LedgerEntry struct {
	Direction   string
	Amount      decimal.Decimal
	Currency    string
	Description string
}

// WalletBalance projects a customer's spendable deposit balance from their
// ledger entries: deposits − appliedFromWallet − refunds, restricted to the
// wallet currency. Incoming "Payment for Invoice" rows are invoice revenue,
// not wallet funds, and never contribute. A negative result means the ledger
// is inconsistent; it is returned as-is for the caller to judge.
func WalletBalance(entries []LedgerEntry, currency string) decimal.Decimal {
	deposits := decimal.Zero
	applied := decimal.Zero
	refunds := decimal.Zero

	for _, e := range entries {
		if e.Currency != currency {
			continue
		}
		switch e.Direction {
		case model.DirectionIncoming:
			if e.Description == model.TxDescDeposit {
				deposits = deposits.Add(e.Amount)
			}
		case model.DirectionOutgoing:
			switch {
			case strings.HasPrefix(e.Description, walletAppliedPrefix):
				applied = applied.Add(e.Amount)
			case e.Description == model.TxDescRefund:
				refunds = refunds.Add(e.Amount)
			}
		}
	}

	return Round2(deposits.Sub(applied).Sub(refunds))
}

package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionDirection enum constants
const (
	DirectionIncoming = "INCOMING"
	DirectionOutgoing = "OUTGOING"
)

// Ledger description constants. The description is part of a transaction's
// semantic meaning: the wallet projector matches on these exact strings.
const (
	TxDescDeposit           = "Deposit"
	TxDescRefund            = "Refund"
	TxDescAppliedFromWallet = "Applied from wallet to Invoice " // + invoice no
	TxDescPaymentForInvoice = "Payment for Invoice "            // + invoice no
	TxDescVendorPayout      = "Vendor payout"
)

// Transaction is one append-only ledger entry. Rows are never updated or
// deleted in normal operation; wallet balance and payment history are
// projections over this table.
type Transaction struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Direction   string          `gorm:"type:varchar(10);not null;index" json:"direction"` // INCOMING, OUTGOING
	Amount      decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount"`
	Currency    string          `gorm:"type:varchar(10);not null;default:'JPY';index" json:"currency"`
	Description string          `gorm:"type:varchar(255);not null" json:"description"`
	CustomerID  *uuid.UUID      `gorm:"type:uuid;index" json:"customer_id"`
	VehicleID   *uuid.UUID      `gorm:"type:uuid;index" json:"vehicle_id"`
	InvoiceID   *uuid.UUID      `gorm:"type:uuid;index" json:"invoice_id"`
	CostItemID  *uuid.UUID      `gorm:"type:uuid;index" json:"cost_item_id"`
	RecordedBy  *uuid.UUID      `gorm:"type:uuid" json:"recorded_by"`
	OccurredAt  time.Time       `gorm:"not null;index" json:"occurred_at"`
	CreatedAt   time.Time       `json:"created_at"`
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/SpaceKap/zervtek-crm-sub003/internal/finance"
	"github.com/SpaceKap/zervtek-crm-sub003/internal/metrics"
	"github.com/SpaceKap/zervtek-crm-sub003/internal/model"
	"github.com/SpaceKap/zervtek-crm-sub003/internal/repository"
	"github.com/SpaceKap/zervtek-crm-sub003/internal/websocket"
	"github.com/SpaceKap/zervtek-crm-sub003/pkg/apperr"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type ApplyPaymentRequest struct {
	AmountReceived *string `json:"amount_received"` // cumulative amount received so far
	Status         *string `json:"status" binding:"omitempty,oneof=PENDING PARTIALLY_PAID PAID"`
	ViaWallet      bool    `json:"via_wallet"`
	PaidAt         *string `json:"paid_at"` // YYYY-MM-DD
}

type RecordDepositRequest struct {
	CustomerID string  `json:"customer_id"`
	Amount     string  `json:"amount" binding:"required"`
	Currency   string  `json:"currency"`
	OccurredAt *string `json:"occurred_at"` // YYYY-MM-DD
}

type RecordRefundRequest struct {
	CustomerID string  `json:"customer_id"`
	Amount     string  `json:"amount" binding:"required"`
	Currency   string  `json:"currency"`
	OccurredAt *string `json:"occurred_at"`
}

type PaymentResultResponse struct {
	InvoiceID     string  `json:"invoice_id"`
	InvoiceNo     string  `json:"invoice_no"`
	PaymentStatus string  `json:"payment_status"`
	PaidAt        *string `json:"paid_at"`
	TotalWithTax  string  `json:"total_with_tax"`
}

// --- Interface ---

// PaymentService applies payment events to invoices and records the
// corresponding ledger entries. A wallet application writes two entries
// atomically: an outgoing entry against the customer's wallet and an
// incoming entry against the invoice.
type PaymentService interface {
	ApplyPayment(ctx context.Context, invoiceID string, userID string, req ApplyPaymentRequest) (PaymentResultResponse, error)
	RecordDeposit(ctx context.Context, userID string, req RecordDepositRequest) (TransactionResponse, error)
	RecordRefund(ctx context.Context, userID string, req RecordRefundRequest) (TransactionResponse, error)
}

type paymentService struct {
	invoiceRepo  repository.InvoiceRepository
	txRepo       repository.TransactionRepository
	customerRepo repository.CustomerRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	wallet       WalletService
	hub          *websocket.Hub
}

func NewPaymentService(
	invoiceRepo repository.InvoiceRepository,
	txRepo repository.TransactionRepository,
	customerRepo repository.CustomerRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	wallet WalletService,
	hub *websocket.Hub,
) PaymentService {
	return &paymentService{
		invoiceRepo:  invoiceRepo,
		txRepo:       txRepo,
		customerRepo: customerRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		wallet:       wallet,
		hub:          hub,
	}
}

// --- Implementation ---

func (s *paymentService) ApplyPayment(ctx context.Context, invoiceID string, userID string, req ApplyPaymentRequest) (PaymentResultResponse, error) {
	invID, err := uuid.Parse(invoiceID)
	if err != nil {
		return PaymentResultResponse{}, apperr.NewValidation("invoice_id", "must be a valid uuid")
	}

	invoice, err := s.invoiceRepo.FindByIDWithCharges(ctx, invID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return PaymentResultResponse{}, apperr.NewNotFound("invoice", invoiceID)
		}
		return PaymentResultResponse{}, fmt.Errorf("failed to load invoice: %w", err)
	}

	subtotal := decimal.Zero
	for _, c := range invoice.Charges {
		subtotal = subtotal.Add(c.Amount)
	}
	totalWithTax := finance.RevenueWithTax(subtotal, invoice.TaxEnabled, invoice.TaxRate)

	var amount decimal.Decimal
	hasAmount := false
	if req.AmountReceived != nil {
		amount, err = decimal.NewFromString(*req.AmountReceived)
		if err != nil {
			return PaymentResultResponse{}, apperr.NewValidation("amount_received", "must be a decimal number")
		}
		if amount.IsNegative() {
			return PaymentResultResponse{}, apperr.NewValidation("amount_received", "must not be negative")
		}
		hasAmount = true
	}

	var newStatus string
	switch {
	case hasAmount:
		newStatus = finance.ResolvePaymentStatus(amount, totalWithTax)
	case req.Status != nil:
		if !finance.ValidPaymentStatus(*req.Status) {
			return PaymentResultResponse{}, apperr.NewValidation("status", "must be PENDING, PARTIALLY_PAID or PAID")
		}
		newStatus = *req.Status
	default:
		return PaymentResultResponse{}, apperr.NewValidation("amount_received", "either amount_received or status is required")
	}

	var paidAtOverride *time.Time
	if req.PaidAt != nil && *req.PaidAt != "" {
		t, parseErr := time.Parse("2006-01-02", *req.PaidAt)
		if parseErr != nil {
			return PaymentResultResponse{}, apperr.NewValidation("paid_at", "must be a YYYY-MM-DD date")
		}
		paidAtOverride = &t
	}

	if req.ViaWallet {
		if !hasAmount || !amount.IsPositive() {
			return PaymentResultResponse{}, apperr.NewValidation("amount_received", "a positive amount is required for wallet payments")
		}
		balance, balErr := s.wallet.FreshBalance(ctx, invoice.CustomerID, invoice.Currency)
		if balErr != nil {
			return PaymentResultResponse{}, balErr
		}
		if balance.LessThan(amount) {
			return PaymentResultResponse{}, &apperr.InsufficientBalanceError{
				Available: balance,
				Requested: amount,
				Currency:  invoice.Currency,
			}
		}
	}

	var recordedBy *uuid.UUID
	if parsed, parseErr := uuid.Parse(userID); parseErr == nil {
		recordedBy = &parsed
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		now := time.Now()

		if hasAmount && amount.IsPositive() {
			if req.ViaWallet {
				outgoing := model.Transaction{
					Direction:   model.DirectionOutgoing,
					Amount:      amount,
					Currency:    invoice.Currency,
					Description: model.TxDescAppliedFromWallet + invoice.InvoiceNo,
					CustomerID:  &invoice.CustomerID,
					RecordedBy:  recordedBy,
					OccurredAt:  now,
				}
				if appendErr := s.txRepo.Append(txCtx, &outgoing); appendErr != nil {
					return fmt.Errorf("failed to append wallet entry: %w", appendErr)
				}
			}
			incoming := model.Transaction{
				Direction:   model.DirectionIncoming,
				Amount:      amount,
				Currency:    invoice.Currency,
				Description: model.TxDescPaymentForInvoice + invoice.InvoiceNo,
				CustomerID:  &invoice.CustomerID,
				VehicleID:   invoice.VehicleID,
				InvoiceID:   &invoice.ID,
				RecordedBy:  recordedBy,
				OccurredAt:  now,
			}
			if appendErr := s.txRepo.Append(txCtx, &incoming); appendErr != nil {
				return fmt.Errorf("failed to append payment entry: %w", appendErr)
			}
		}

		invoice.PaymentStatus = newStatus
		if invoice.PaidAt == nil {
			if paidAtOverride != nil {
				invoice.PaidAt = paidAtOverride
			} else if newStatus == model.PaymentPaid {
				invoice.PaidAt = &now
			}
		}

		if updateErr := s.invoiceRepo.Update(txCtx, invoice); updateErr != nil {
			return fmt.Errorf("failed to update invoice: %w", updateErr)
		}

		action := model.ActionRecordPayment
		if req.ViaWallet {
			action = model.ActionApplyWallet
		}
		s.writeAudit(txCtx, userID, action, invoice.ID.String(), invoice.InvoiceNo, req)
		return nil
	})
	if err != nil {
		return PaymentResultResponse{}, err
	}

	if req.ViaWallet {
		s.wallet.InvalidateBalance(invoice.CustomerID)
	}
	metrics.PaymentsRecorded.WithLabelValues(newStatus).Inc()
	s.broadcast("invoice.payment_updated", invoice.ID.String())

	return toPaymentResultResponse(invoice, totalWithTax), nil
}

func (s *paymentService) RecordDeposit(ctx context.Context, userID string, req RecordDepositRequest) (TransactionResponse, error) {
	return s.recordWalletEntry(ctx, userID, walletEntryInput{
		customerID:  req.CustomerID,
		amount:      req.Amount,
		currency:    req.Currency,
		occurredAt:  req.OccurredAt,
		direction:   model.DirectionIncoming,
		description: model.TxDescDeposit,
		action:      model.ActionRecordDeposit,
	})
}

func (s *paymentService) RecordRefund(ctx context.Context, userID string, req RecordRefundRequest) (TransactionResponse, error) {
	return s.recordWalletEntry(ctx, userID, walletEntryInput{
		customerID:  req.CustomerID,
		amount:      req.Amount,
		currency:    req.Currency,
		occurredAt:  req.OccurredAt,
		direction:   model.DirectionOutgoing,
		description: model.TxDescRefund,
		action:      model.ActionRecordRefund,
	})
}

// --- Helpers ---

type walletEntryInput struct {
	customerID  string
	amount      string
	currency    string
	occurredAt  *string
	direction   string
	description string
	action      string
}

func (s *paymentService) recordWalletEntry(ctx context.Context, userID string, in walletEntryInput) (TransactionResponse, error) {
	custID, err := uuid.Parse(in.customerID)
	if err != nil {
		return TransactionResponse{}, apperr.NewValidation("customer_id", "must be a valid uuid")
	}

	amount, err := decimal.NewFromString(in.amount)
	if err != nil {
		return TransactionResponse{}, apperr.NewValidation("amount", "must be a decimal number")
	}
	if !amount.IsPositive() {
		return TransactionResponse{}, apperr.NewValidation("amount", "must be greater than zero")
	}

	currency := in.currency
	if currency == "" {
		currency = "JPY"
	}

	occurredAt := time.Now()
	if in.occurredAt != nil && *in.occurredAt != "" {
		t, parseErr := time.Parse("2006-01-02", *in.occurredAt)
		if parseErr != nil {
			return TransactionResponse{}, apperr.NewValidation("occurred_at", "must be a YYYY-MM-DD date")
		}
		occurredAt = t
	}

	if _, err := s.customerRepo.FindByID(ctx, custID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return TransactionResponse{}, apperr.NewNotFound("customer", in.customerID)
		}
		return TransactionResponse{}, fmt.Errorf("failed to load customer: %w", err)
	}

	var recordedBy *uuid.UUID
	if parsed, parseErr := uuid.Parse(userID); parseErr == nil {
		recordedBy = &parsed
	}

	entry := model.Transaction{
		Direction:   in.direction,
		Amount:      amount,
		Currency:    currency,
		Description: in.description,
		CustomerID:  &custID,
		RecordedBy:  recordedBy,
		OccurredAt:  occurredAt,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if appendErr := s.txRepo.Append(txCtx, &entry); appendErr != nil {
			return fmt.Errorf("failed to append ledger entry: %w", appendErr)
		}
		s.writeAudit(txCtx, userID, in.action, entry.ID.String(), in.description, map[string]string{
			"customer_id": in.customerID,
			"amount":      amount.StringFixed(2),
			"currency":    currency,
		})
		return nil
	})
	if err != nil {
		return TransactionResponse{}, err
	}

	s.wallet.InvalidateBalance(custID)
	return toTransactionResponse(entry), nil
}

func (s *paymentService) writeAudit(ctx context.Context, userID, action, entityID, entityName string, details interface{}) {
	detailsJSON, _ := json.Marshal(details)
	entry := &model.AuditLog{
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(detailsJSON),
	}
	if parsed, err := uuid.Parse(userID); err == nil {
		entry.UserID = &parsed
	}
	_ = s.auditRepo.Log(ctx, entry)
}

func (s *paymentService) broadcast(event, entityID string) {
	if s.hub == nil {
		return
	}
	payload, _ := json.Marshal(map[string]string{"event": event, "id": entityID})
	select {
	case s.hub.Broadcast <- payload:
	default:
	}
}

func toPaymentResultResponse(invoice *model.Invoice, totalWithTax decimal.Decimal) PaymentResultResponse {
	resp := PaymentResultResponse{
		InvoiceID:     invoice.ID.String(),
		InvoiceNo:     invoice.InvoiceNo,
		PaymentStatus: invoice.PaymentStatus,
		TotalWithTax:  totalWithTax.StringFixed(2),
	}
	if invoice.PaidAt != nil {
		v := invoice.PaidAt.Format(time.RFC3339)
		resp.PaidAt = &v
	}
	return resp
}

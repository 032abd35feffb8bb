package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SpaceKap/zervtek-crm-sub003/internal/cache"
	"github.com/SpaceKap/zervtek-crm-sub003/internal/finance"
	"github.com/SpaceKap/zervtek-crm-sub003/internal/metrics"
	"github.com/SpaceKap/zervtek-crm-sub003/internal/model"
	"github.com/SpaceKap/zervtek-crm-sub003/internal/repository"
	"github.com/SpaceKap/zervtek-crm-sub003/pkg/apperr"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const walletBalanceTTL = 30 * time.Second

// --- DTOs ---

type WalletBalanceResponse struct {
	CustomerID string `json:"customer_id"`
	Currency   string `json:"currency"`
	Balance    string `json:"balance"`
}

type TransactionResponse struct {
	ID          string  `json:"id"`
	Direction   string  `json:"direction"`
	Amount      string  `json:"amount"`
	Currency    string  `json:"currency"`
	Description string  `json:"description"`
	CustomerID  *string `json:"customer_id"`
	VehicleID   *string `json:"vehicle_id"`
	InvoiceID   *string `json:"invoice_id"`
	CostItemID  *string `json:"cost_item_id"`
	OccurredAt  string  `json:"occurred_at"`
}

// --- Interface ---

// WalletService projects customer wallet balances from the transaction
// ledger. There is no stored balance column; every read replays the
// customer's entries in the requested currency.
type WalletService interface {
	GetBalance(ctx context.Context, customerID, currency string) (WalletBalanceResponse, error)
	Balance(ctx context.Context, customerID uuid.UUID, currency string) (decimal.Decimal, error)
	FreshBalance(ctx context.Context, customerID uuid.UUID, currency string) (decimal.Decimal, error)
	ListCustomerTransactions(ctx context.Context, customerID, currency string) ([]TransactionResponse, error)
	InvalidateBalance(customerID uuid.UUID)
}

type walletService struct {
	txRepo       repository.TransactionRepository
	customerRepo repository.CustomerRepository
	cache        *cache.Store
}

func NewWalletService(
	txRepo repository.TransactionRepository,
	customerRepo repository.CustomerRepository,
	cacheStore *cache.Store,
) WalletService {
	return &walletService{
		txRepo:       txRepo,
		customerRepo: customerRepo,
		cache:        cacheStore,
	}
}

// --- Implementation ---

func (s *walletService) GetBalance(ctx context.Context, customerID, currency string) (WalletBalanceResponse, error) {
	custID, err := uuid.Parse(customerID)
	if err != nil {
		return WalletBalanceResponse{}, apperr.NewValidation("customer_id", "must be a valid uuid")
	}
	if currency == "" {
		currency = "JPY"
	}

	if _, err := s.customerRepo.FindByID(ctx, custID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return WalletBalanceResponse{}, apperr.NewNotFound("customer", customerID)
		}
		return WalletBalanceResponse{}, fmt.Errorf("failed to load customer: %w", err)
	}

	balance, err := s.Balance(ctx, custID, currency)
	if err != nil {
		return WalletBalanceResponse{}, err
	}

	return WalletBalanceResponse{
		CustomerID: customerID,
		Currency:   currency,
		Balance:    balance.StringFixed(2),
	}, nil
}

// Balance computes the projected balance without the existence check, for
// callers that already hold a validated customer id.
func (s *walletService) Balance(ctx context.Context, customerID uuid.UUID, currency string) (decimal.Decimal, error) {
	key := fmt.Sprintf("wallet:%s:%s", customerID, currency)
	value, err := s.cache.GetOrCompute(key, walletBalanceTTL, func() (interface{}, error) {
		return s.computeBalance(ctx, customerID, currency)
	})
	if err != nil {
		return decimal.Zero, err
	}
	return value.(decimal.Decimal), nil
}

// FreshBalance recomputes the projection straight from the ledger, bypassing
// the cache. Spend checks must use this path; the cached Balance is for reads
// only.
func (s *walletService) FreshBalance(ctx context.Context, customerID uuid.UUID, currency string) (decimal.Decimal, error) {
	return s.computeBalance(ctx, customerID, currency)
}

func (s *walletService) computeBalance(ctx context.Context, customerID uuid.UUID, currency string) (decimal.Decimal, error) {
	rows, err := s.txRepo.ListByCustomer(ctx, customerID, currency)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to list transactions: %w", err)
	}

	entries := make([]finance.LedgerEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, finance.LedgerEntry{
			Direction:   row.Direction,
			Amount:      row.Amount,
			Currency:    row.Currency,
			Description: row.Description,
		})
	}

	metrics.WalletBalanceReads.Inc()
	return finance.WalletBalance(entries, currency), nil
}

func (s *walletService) ListCustomerTransactions(ctx context.Context, customerID, currency string) ([]TransactionResponse, error) {
	custID, err := uuid.Parse(customerID)
	if err != nil {
		return nil, apperr.NewValidation("customer_id", "must be a valid uuid")
	}
	if _, err := s.customerRepo.FindByID(ctx, custID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NewNotFound("customer", customerID)
		}
		return nil, fmt.Errorf("failed to load customer: %w", err)
	}

	rows, err := s.txRepo.ListByCustomer(ctx, custID, currency)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	responses := make([]TransactionResponse, 0, len(rows))
	for _, row := range rows {
		responses = append(responses, toTransactionResponse(row))
	}
	return responses, nil
}

// InvalidateBalance drops cached balances for a customer across all
// currencies. Callers must invoke it after any ledger append.
func (s *walletService) InvalidateBalance(customerID uuid.UUID) {
	s.cache.Invalidate(fmt.Sprintf("wallet:%s:", customerID))
}

func toTransactionResponse(row model.Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:          row.ID.String(),
		Direction:   row.Direction,
		Amount:      row.Amount.StringFixed(2),
		Currency:    row.Currency,
		Description: row.Description,
		OccurredAt:  row.OccurredAt.Format(time.RFC3339),
	}
	if row.CustomerID != nil {
		v := row.CustomerID.String()
		resp.CustomerID = &v
	}
	if row.VehicleID != nil {
		v := row.VehicleID.String()
		resp.VehicleID = &v
	}
	if row.InvoiceID != nil {
		v := row.InvoiceID.String()
		resp.InvoiceID = &v
	}
	if row.CostItemID != nil {
		v := row.CostItemID.String()
		resp.CostItemID = &v
	}
	return resp
}

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
	"github.com/SpaceKap/zervtek-crm-sub003/pkg/apperr"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateCostItemRequest struct {
	VendorName      string  `json:"vendor_name" binding:"required"`
	Amount          string  `json:"amount" binding:"required"`
	Category        string  `json:"category" binding:"omitempty,oneof=AUCTION TRANSPORT REPAIR FREIGHT OTHER"`
	PaymentDeadline string  `json:"payment_deadline" binding:"required"` // YYYY-MM-DD
	PaidAt          *string `json:"paid_at"`                             // YYYY-MM-DD
	Description     string  `json:"description"`
}

type UpdateCostItemRequest struct {
	VendorName      *string `json:"vendor_name"`
	Amount          *string `json:"amount"`
	Category        *string `json:"category"`
	PaymentDeadline *string `json:"payment_deadline"`
	PaidAt          *string `json:"paid_at"`
	Description     *string `json:"description"`
}

type CostItemResponse struct {
	ID              string  `json:"id"`
	CostInvoiceID   string  `json:"cost_invoice_id"`
	VendorName      string  `json:"vendor_name"`
	Amount          string  `json:"amount"`
	Category        string  `json:"category"`
	PaymentDeadline string  `json:"payment_deadline"`
	PaidAt          *string `json:"paid_at"`
	Description     string  `json:"description"`
	CreatedAt       string  `json:"created_at"`
}

type CostBreakdownResponse struct {
	InvoiceID           string             `json:"invoice_id"`
	TotalRevenue        string             `json:"total_revenue"`
	RegularCost         string             `json:"regular_cost"`
	AllocatedSharedCost string             `json:"allocated_shared_cost"`
	TotalCost           string             `json:"total_cost"`
	Profit              string             `json:"profit"`
	Margin              string             `json:"margin"`
	ROI                 string             `json:"roi"`
	CostItems           []CostItemResponse `json:"cost_items"`
}

// --- Interface ---

// CostingService keeps each invoice's CostInvoice aggregates consistent with
// its charges, cost items and shared-cost allocations. Recompute always
// derives from current rows and overwrites the cached aggregates, so it is
// idempotent and safe to re-invoke after any mutation.
type CostingService interface {
	Recompute(ctx context.Context, invoiceID uuid.UUID) error
	CreateCostItem(ctx context.Context, invoiceID string, userID string, req CreateCostItemRequest) (CostItemResponse, error)
	UpdateCostItem(ctx context.Context, itemID string, userID string, req UpdateCostItemRequest) (CostItemResponse, error)
	DeleteCostItem(ctx context.Context, itemID string, userID string) error
	GetBreakdown(ctx context.Context, invoiceID string) (CostBreakdownResponse, error)
}

type costingService struct {
	invoiceRepo repository.InvoiceRepository
	costRepo    repository.CostRepository
	sharedRepo  repository.SharedInvoiceRepository
	txRepo      repository.TransactionRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
}

func NewCostingService(
	invoiceRepo repository.InvoiceRepository,
	costRepo repository.CostRepository,
	sharedRepo repository.SharedInvoiceRepository,
	txRepo repository.TransactionRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) CostingService {
	return &costingService{
		invoiceRepo: invoiceRepo,
		costRepo:    costRepo,
		sharedRepo:  sharedRepo,
		txRepo:      txRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
	}
}

// --- Implementation ---

// Recompute re-derives the CostInvoice aggregates for one invoice from its
// current charges, cost items and shared allocations. It runs in the
// caller's transaction when one is present in ctx.
func (s *costingService) Recompute(ctx context.Context, invoiceID uuid.UUID) error {
	invoice, err := s.invoiceRepo.FindByIDWithCharges(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NewNotFound("invoice", invoiceID.String())
		}
		return fmt.Errorf("failed to load invoice: %w", err)
	}

	subtotal := decimal.Zero
	for _, c := range invoice.Charges {
		subtotal = subtotal.Add(c.Amount)
	}
	revenue := finance.RevenueWithTax(subtotal, invoice.TaxEnabled, invoice.TaxRate)

	costInvoice, err := s.findOrCreateCostInvoice(ctx, invoiceID)
	if err != nil {
		return err
	}

	items, err := s.costRepo.ListItems(ctx, costInvoice.ID)
	if err != nil {
		return fmt.Errorf("failed to list cost items: %w", err)
	}
	regularCost := decimal.Zero
	for _, item := range items {
		regularCost = regularCost.Add(item.Amount)
	}

	allocatedCost, err := s.allocatedSharedCost(ctx, invoice)
	if err != nil {
		return err
	}

	totalCost := regularCost.Add(allocatedCost)
	m := finance.ProfitMetrics(revenue, totalCost)

	costInvoice.TotalRevenue = revenue
	costInvoice.TotalCost = totalCost
	costInvoice.Profit = m.Profit
	costInvoice.Margin = m.Margin
	costInvoice.ROI = m.ROI

	if err := s.costRepo.Update(ctx, costInvoice); err != nil {
		return fmt.Errorf("failed to persist cost invoice: %w", err)
	}

	metrics.CostRecomputes.Inc()
	return nil
}

func (s *costingService) CreateCostItem(ctx context.Context, invoiceID string, userID string, req CreateCostItemRequest) (CostItemResponse, error) {
	invID, err := uuid.Parse(invoiceID)
	if err != nil {
		return CostItemResponse{}, apperr.NewValidation("invoice_id", "must be a valid uuid")
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return CostItemResponse{}, apperr.NewValidation("amount", "must be a decimal number")
	}

	if req.VendorName == "" {
		return CostItemResponse{}, apperr.NewValidation("vendor_name", "is required")
	}

	deadline, err := time.Parse("2006-01-02", req.PaymentDeadline)
	if err != nil {
		return CostItemResponse{}, apperr.NewValidation("payment_deadline", "must be a YYYY-MM-DD date")
	}

	var paidAt *time.Time
	if req.PaidAt != nil && *req.PaidAt != "" {
		t, parseErr := time.Parse("2006-01-02", *req.PaidAt)
		if parseErr != nil {
			return CostItemResponse{}, apperr.NewValidation("paid_at", "must be a YYYY-MM-DD date")
		}
		paidAt = &t
	}

	if _, err := s.invoiceRepo.FindByID(ctx, invID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return CostItemResponse{}, apperr.NewNotFound("invoice", invoiceID)
		}
		return CostItemResponse{}, fmt.Errorf("failed to load invoice: %w", err)
	}

	item := model.CostItem{
		VendorName:      req.VendorName,
		Amount:          amount,
		Category:        req.Category,
		PaymentDeadline: deadline,
		PaidAt:          paidAt,
		Description:     req.Description,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		costInvoice, findErr := s.findOrCreateCostInvoice(txCtx, invID)
		if findErr != nil {
			return findErr
		}
		item.CostInvoiceID = costInvoice.ID

		if createErr := s.costRepo.CreateItem(txCtx, &item); createErr != nil {
			return fmt.Errorf("failed to create cost item: %w", createErr)
		}

		if item.PaidAt != nil {
			if payErr := s.recordVendorPayout(txCtx, invID, &item, userID); payErr != nil {
				return payErr
			}
		}

		if recErr := s.Recompute(txCtx, invID); recErr != nil {
			return recErr
		}

		s.writeAudit(txCtx, userID, model.ActionCreateCostItem, item.ID.String(), req.VendorName, req)
		return nil
	})
	if err != nil {
		return CostItemResponse{}, err
	}

	return toCostItemResponse(item), nil
}

func (s *costingService) UpdateCostItem(ctx context.Context, itemID string, userID string, req UpdateCostItemRequest) (CostItemResponse, error) {
	id, err := uuid.Parse(itemID)
	if err != nil {
		return CostItemResponse{}, apperr.NewValidation("cost_item_id", "must be a valid uuid")
	}

	item, err := s.costRepo.FindItemByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return CostItemResponse{}, apperr.NewNotFound("cost item", itemID)
		}
		return CostItemResponse{}, fmt.Errorf("failed to load cost item: %w", err)
	}

	wasPaid := item.PaidAt != nil

	if req.VendorName != nil {
		if *req.VendorName == "" {
			return CostItemResponse{}, apperr.NewValidation("vendor_name", "is required")
		}
		item.VendorName = *req.VendorName
	}
	if req.Amount != nil {
		amount, parseErr := decimal.NewFromString(*req.Amount)
		if parseErr != nil {
			return CostItemResponse{}, apperr.NewValidation("amount", "must be a decimal number")
		}
		item.Amount = amount
	}
	if req.Category != nil {
		item.Category = *req.Category
	}
	if req.PaymentDeadline != nil {
		deadline, parseErr := time.Parse("2006-01-02", *req.PaymentDeadline)
		if parseErr != nil {
			return CostItemResponse{}, apperr.NewValidation("payment_deadline", "must be a YYYY-MM-DD date")
		}
		item.PaymentDeadline = deadline
	}
	if req.PaidAt != nil {
		if *req.PaidAt == "" {
			item.PaidAt = nil
		} else {
			t, parseErr := time.Parse("2006-01-02", *req.PaidAt)
			if parseErr != nil {
				return CostItemResponse{}, apperr.NewValidation("paid_at", "must be a YYYY-MM-DD date")
			}
			item.PaidAt = &t
		}
	}
	if req.Description != nil {
		item.Description = *req.Description
	}

	invoiceID, err := s.invoiceIDForCostInvoice(ctx, item.CostInvoiceID)
	if err != nil {
		return CostItemResponse{}, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if updateErr := s.costRepo.UpdateItem(txCtx, item); updateErr != nil {
			return fmt.Errorf("failed to update cost item: %w", updateErr)
		}
		if !wasPaid && item.PaidAt != nil {
			if payErr := s.recordVendorPayout(txCtx, invoiceID, item, userID); payErr != nil {
				return payErr
			}
		}
		if recErr := s.Recompute(txCtx, invoiceID); recErr != nil {
			return recErr
		}
		s.writeAudit(txCtx, userID, model.ActionUpdateCostItem, item.ID.String(), item.VendorName, req)
		return nil
	})
	if err != nil {
		return CostItemResponse{}, err
	}

	return toCostItemResponse(*item), nil
}

func (s *costingService) DeleteCostItem(ctx context.Context, itemID string, userID string) error {
	id, err := uuid.Parse(itemID)
	if err != nil {
		return apperr.NewValidation("cost_item_id", "must be a valid uuid")
	}

	item, err := s.costRepo.FindItemByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NewNotFound("cost item", itemID)
		}
		return fmt.Errorf("failed to load cost item: %w", err)
	}

	invoiceID, err := s.invoiceIDForCostInvoice(ctx, item.CostInvoiceID)
	if err != nil {
		return err
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if delErr := s.costRepo.DeleteItem(txCtx, id); delErr != nil {
			return fmt.Errorf("failed to delete cost item: %w", delErr)
		}
		if recErr := s.Recompute(txCtx, invoiceID); recErr != nil {
			return recErr
		}
		s.writeAudit(txCtx, userID, model.ActionDeleteCostItem, itemID, item.VendorName, map[string]string{"deleted_id": itemID})
		return nil
	})
}

func (s *costingService) GetBreakdown(ctx context.Context, invoiceID string) (CostBreakdownResponse, error) {
	invID, err := uuid.Parse(invoiceID)
	if err != nil {
		return CostBreakdownResponse{}, apperr.NewValidation("invoice_id", "must be a valid uuid")
	}

	invoice, err := s.invoiceRepo.FindByIDWithCharges(ctx, invID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return CostBreakdownResponse{}, apperr.NewNotFound("invoice", invoiceID)
		}
		return CostBreakdownResponse{}, fmt.Errorf("failed to load invoice: %w", err)
	}

	resp := CostBreakdownResponse{
		InvoiceID: invoiceID,
		CostItems: []CostItemResponse{},
	}

	allocatedCost, err := s.allocatedSharedCost(ctx, invoice)
	if err != nil {
		return CostBreakdownResponse{}, err
	}
	resp.AllocatedSharedCost = allocatedCost.StringFixed(2)

	costInvoice, err := s.costRepo.FindByInvoiceID(ctx, invID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// No cost invoice yet: report zeroed aggregates against revenue.
			subtotal := decimal.Zero
			for _, c := range invoice.Charges {
				subtotal = subtotal.Add(c.Amount)
			}
			revenue := finance.RevenueWithTax(subtotal, invoice.TaxEnabled, invoice.TaxRate)
			m := finance.ProfitMetrics(revenue, allocatedCost)
			resp.TotalRevenue = revenue.StringFixed(2)
			resp.RegularCost = "0.00"
			resp.TotalCost = allocatedCost.StringFixed(2)
			resp.Profit = m.Profit.StringFixed(2)
			resp.Margin = m.Margin.StringFixed(2)
			resp.ROI = m.ROI.StringFixed(2)
			return resp, nil
		}
		return CostBreakdownResponse{}, fmt.Errorf("failed to load cost invoice: %w", err)
	}

	items, err := s.costRepo.ListItems(ctx, costInvoice.ID)
	if err != nil {
		return CostBreakdownResponse{}, fmt.Errorf("failed to list cost items: %w", err)
	}

	regularCost := decimal.Zero
	for _, item := range items {
		regularCost = regularCost.Add(item.Amount)
		resp.CostItems = append(resp.CostItems, toCostItemResponse(item))
	}

	resp.TotalRevenue = costInvoice.TotalRevenue.StringFixed(2)
	resp.RegularCost = regularCost.StringFixed(2)
	resp.TotalCost = costInvoice.TotalCost.StringFixed(2)
	resp.Profit = costInvoice.Profit.StringFixed(2)
	resp.Margin = costInvoice.Margin.StringFixed(2)
	resp.ROI = costInvoice.ROI.StringFixed(2)
	return resp, nil
}

// --- Helpers ---

func (s *costingService) findOrCreateCostInvoice(ctx context.Context, invoiceID uuid.UUID) (*model.CostInvoice, error) {
	costInvoice, err := s.costRepo.FindByInvoiceID(ctx, invoiceID)
	if err == nil {
		return costInvoice, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load cost invoice: %w", err)
	}

	created := &model.CostInvoice{
		InvoiceID:    invoiceID,
		TotalRevenue: decimal.Zero,
		TotalCost:    decimal.Zero,
		Profit:       decimal.Zero,
		Margin:       decimal.Zero,
		ROI:          decimal.Zero,
	}
	if createErr := s.costRepo.Create(ctx, created); createErr != nil {
		return nil, fmt.Errorf("failed to create cost invoice: %w", createErr)
	}
	return created, nil
}

func (s *costingService) allocatedSharedCost(ctx context.Context, invoice *model.Invoice) (decimal.Decimal, error) {
	if invoice.VehicleID == nil {
		return decimal.Zero, nil
	}
	rows, err := s.sharedRepo.ListAllocationsByVehicle(ctx, *invoice.VehicleID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to list shared allocations: %w", err)
	}
	sum := decimal.Zero
	for _, row := range rows {
		sum = sum.Add(row.AllocatedAmount)
	}
	return sum, nil
}

func (s *costingService) invoiceIDForCostInvoice(ctx context.Context, costInvoiceID uuid.UUID) (uuid.UUID, error) {
	costInvoice, err := s.costRepo.FindByIDWithItems(ctx, costInvoiceID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to load cost invoice: %w", err)
	}
	return costInvoice.InvoiceID, nil
}

// recordVendorPayout appends the OUTGOING ledger entry for a cost item the
// moment it is marked paid. Unmarking does not reverse the entry; the ledger
// is append-only.
func (s *costingService) recordVendorPayout(ctx context.Context, invoiceID uuid.UUID, item *model.CostItem, userID string) error {
	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return fmt.Errorf("failed to load invoice: %w", err)
	}

	entry := &model.Transaction{
		Direction:   model.DirectionOutgoing,
		Amount:      item.Amount,
		Currency:    "JPY",
		Description: model.TxDescVendorPayout,
		VehicleID:   invoice.VehicleID,
		InvoiceID:   &invoice.ID,
		CostItemID:  &item.ID,
		OccurredAt:  *item.PaidAt,
	}
	if parsed, parseErr := uuid.Parse(userID); parseErr == nil {
		entry.RecordedBy = &parsed
	}
	if err := s.txRepo.Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to record vendor payout: %w", err)
	}
	return nil
}

func (s *costingService) writeAudit(ctx context.Context, userID, action, entityID, entityName string, details interface{}) {
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
	// Best-effort audit log inside the caller's transaction
	_ = s.auditRepo.Log(ctx, entry)
}

func toCostItemResponse(item model.CostItem) CostItemResponse {
	resp := CostItemResponse{
		ID:              item.ID.String(),
		CostInvoiceID:   item.CostInvoiceID.String(),
		VendorName:      item.VendorName,
		Amount:          item.Amount.StringFixed(2),
		Category:        item.Category,
		PaymentDeadline: item.PaymentDeadline.Format("2006-01-02"),
		Description:     item.Description,
		CreatedAt:       item.CreatedAt.Format(time.RFC3339),
	}
	if item.PaidAt != nil {
		s := item.PaidAt.Format("2006-01-02")
		resp.PaidAt = &s
	}
	return resp
}

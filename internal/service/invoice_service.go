package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/SpaceKap/zervtek-crm-sub003/internal/finance"
	"github.com/SpaceKap/zervtek-crm-sub003/internal/model"
	"github.com/SpaceKap/zervtek-crm-sub003/internal/repository"
	"github.com/SpaceKap/zervtek-crm-sub003/pkg/apperr"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type ChargeInput struct {
	Name      string `json:"name" binding:"required"`
	Amount    string `json:"amount" binding:"required"`
	SortOrder int    `json:"sort_order"`
}

type CreateInvoiceRequest struct {
	CustomerID string        `json:"customer_id" binding:"required"`
	VehicleID  string        `json:"vehicle_id"`
	Currency   string        `json:"currency"`
	TaxEnabled bool          `json:"tax_enabled"`
	TaxRate    string        `json:"tax_rate"` // percentage, e.g. "10" for 10%
	Note       string        `json:"note"`
	Charges    []ChargeInput `json:"charges"`
}

type UpdateInvoiceRequest struct {
	VehicleID  *string `json:"vehicle_id"`
	Currency   *string `json:"currency"`
	TaxEnabled *bool   `json:"tax_enabled"`
	TaxRate    *string `json:"tax_rate"`
	Note       *string `json:"note"`
}

type InvoiceFilter struct {
	Status        string
	PaymentStatus string
	CustomerID    string
	VehicleID     string
	InvoiceNo     string
	Page          int
	Limit         int
}

type ChargeResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Amount    string `json:"amount"`
	SortOrder int    `json:"sort_order"`
}

type InvoiceResponse struct {
	ID            string           `json:"id"`
	InvoiceNo     string           `json:"invoice_no"`
	CustomerID    string           `json:"customer_id"`
	VehicleID     *string          `json:"vehicle_id"`
	Currency      string           `json:"currency"`
	TaxEnabled    bool             `json:"tax_enabled"`
	TaxRate       string           `json:"tax_rate"`
	Subtotal      string           `json:"subtotal"`
	TotalWithTax  string           `json:"total_with_tax"`
	Status        string           `json:"status"`
	PaymentStatus string           `json:"payment_status"`
	Locked        bool             `json:"locked"`
	ShareToken    *string          `json:"share_token,omitempty"`
	PaidAt        *string          `json:"paid_at"`
	ApprovedBy    *string          `json:"approved_by"`
	ApprovedAt    *string          `json:"approved_at"`
	Note          string           `json:"note"`
	Charges       []ChargeResponse `json:"charges"`
	CreatedAt     string           `json:"created_at"`
}

// --- Interface ---

// InvoiceService owns the invoice lifecycle
// DRAFT -> PENDING_APPROVAL -> APPROVED -> FINALIZED.
// Finalizing locks the invoice; only Unlock reopens it for edits.
type InvoiceService interface {
	CreateInvoice(ctx context.Context, userID string, req CreateInvoiceRequest) (InvoiceResponse, error)
	GetInvoice(ctx context.Context, id string) (InvoiceResponse, error)
	GetInvoiceByShareToken(ctx context.Context, token string) (InvoiceResponse, error)
	ListInvoices(ctx context.Context, filter InvoiceFilter) ([]InvoiceResponse, int64, error)
	UpdateInvoice(ctx context.Context, id string, userID string, req UpdateInvoiceRequest) (InvoiceResponse, error)

	AddCharge(ctx context.Context, invoiceID string, userID string, req ChargeInput) (InvoiceResponse, error)
	UpdateCharge(ctx context.Context, chargeID string, userID string, req ChargeInput) (InvoiceResponse, error)
	DeleteCharge(ctx context.Context, chargeID string, userID string) (InvoiceResponse, error)

	SubmitInvoice(ctx context.Context, id string, userID string) (InvoiceResponse, error)
	ApproveInvoice(ctx context.Context, id string, userID string) (InvoiceResponse, error)
	RejectInvoice(ctx context.Context, id string, userID string) (InvoiceResponse, error)
	FinalizeInvoice(ctx context.Context, id string, userID string) (InvoiceResponse, error)
	UnlockInvoice(ctx context.Context, id string, userID string) (InvoiceResponse, error)
	IssueShareToken(ctx context.Context, id string, userID string) (InvoiceResponse, error)
}

type invoiceService struct {
	invoiceRepo  repository.InvoiceRepository
	customerRepo repository.CustomerRepository
	vehicleRepo  repository.VehicleRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	costing      CostingService
}

func NewInvoiceService(
	invoiceRepo repository.InvoiceRepository,
	customerRepo repository.CustomerRepository,
	vehicleRepo repository.VehicleRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	costing CostingService,
) InvoiceService {
	return &invoiceService{
		invoiceRepo:  invoiceRepo,
		customerRepo: customerRepo,
		vehicleRepo:  vehicleRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		costing:      costing,
	}
}

// --- Implementation ---

func (s *invoiceService) CreateInvoice(ctx context.Context, userID string, req CreateInvoiceRequest) (InvoiceResponse, error) {
	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		return InvoiceResponse{}, apperr.NewValidation("customer_id", "must be a valid uuid")
	}
	if _, err := s.customerRepo.FindByID(ctx, customerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return InvoiceResponse{}, apperr.NewNotFound("customer", req.CustomerID)
		}
		return InvoiceResponse{}, fmt.Errorf("failed to load customer: %w", err)
	}

	var vehicleID *uuid.UUID
	if req.VehicleID != "" {
		parsed, parseErr := uuid.Parse(req.VehicleID)
		if parseErr != nil {
			return InvoiceResponse{}, apperr.NewValidation("vehicle_id", "must be a valid uuid")
		}
		if _, findErr := s.vehicleRepo.FindByID(ctx, parsed); findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return InvoiceResponse{}, apperr.NewNotFound("vehicle", req.VehicleID)
			}
			return InvoiceResponse{}, fmt.Errorf("failed to load vehicle: %w", findErr)
		}
		vehicleID = &parsed
	}

	taxRate := decimal.Zero
	if req.TaxRate != "" {
		taxRate, err = decimal.NewFromString(req.TaxRate)
		if err != nil {
			return InvoiceResponse{}, apperr.NewValidation("tax_rate", "must be a decimal number")
		}
		if taxRate.IsNegative() {
			return InvoiceResponse{}, apperr.NewValidation("tax_rate", "must not be negative")
		}
	}

	currency := req.Currency
	if currency == "" {
		currency = "JPY"
	}

	charges := make([]model.Charge, 0, len(req.Charges))
	for i, in := range req.Charges {
		amount, parseErr := decimal.NewFromString(in.Amount)
		if parseErr != nil {
			return InvoiceResponse{}, apperr.NewValidation("charges", fmt.Sprintf("charge %d: amount must be a decimal number", i))
		}
		sortOrder := in.SortOrder
		if sortOrder == 0 {
			sortOrder = i
		}
		charges = append(charges, model.Charge{
			Name:      in.Name,
			Amount:    amount,
			SortOrder: sortOrder,
		})
	}

	var createdBy *uuid.UUID
	if parsed, parseErr := uuid.Parse(userID); parseErr == nil {
		createdBy = &parsed
	}

	invoice := model.Invoice{
		CustomerID:    customerID,
		VehicleID:     vehicleID,
		Currency:      currency,
		TaxEnabled:    req.TaxEnabled,
		TaxRate:       taxRate,
		Status:        model.InvoiceDraft,
		PaymentStatus: model.PaymentPending,
		CreatedBy:     createdBy,
		Note:          req.Note,
		Charges:       charges,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		invoiceNo, genErr := s.generateInvoiceNo(txCtx)
		if genErr != nil {
			return fmt.Errorf("failed to generate invoice number: %w", genErr)
		}
		invoice.InvoiceNo = invoiceNo

		if createErr := s.invoiceRepo.Create(txCtx, &invoice); createErr != nil {
			return fmt.Errorf("failed to create invoice: %w", createErr)
		}
		if recErr := s.costing.Recompute(txCtx, invoice.ID); recErr != nil {
			return recErr
		}
		s.writeAudit(txCtx, userID, model.ActionCreateInvoice, invoice.ID.String(), invoice.InvoiceNo, req)
		return nil
	})
	if err != nil {
		return InvoiceResponse{}, err
	}

	return s.GetInvoice(ctx, invoice.ID.String())
}

func (s *invoiceService) GetInvoice(ctx context.Context, id string) (InvoiceResponse, error) {
	invoiceID, err := uuid.Parse(id)
	if err != nil {
		return InvoiceResponse{}, apperr.NewValidation("invoice_id", "must be a valid uuid")
	}
	invoice, err := s.invoiceRepo.FindByIDWithCharges(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return InvoiceResponse{}, apperr.NewNotFound("invoice", id)
		}
		return InvoiceResponse{}, fmt.Errorf("failed to load invoice: %w", err)
	}
	return toInvoiceResponse(*invoice), nil
}

func (s *invoiceService) GetInvoiceByShareToken(ctx context.Context, token string) (InvoiceResponse, error) {
	if token == "" {
		return InvoiceResponse{}, apperr.NewValidation("token", "is required")
	}
	invoice, err := s.invoiceRepo.FindByShareToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return InvoiceResponse{}, apperr.NewNotFound("invoice", token)
		}
		return InvoiceResponse{}, fmt.Errorf("failed to load invoice: %w", err)
	}
	resp := toInvoiceResponse(*invoice)
	// Share links are read-only for outsiders; never leak the token back.
	resp.ShareToken = nil
	return resp, nil
}

func (s *invoiceService) ListInvoices(ctx context.Context, filter InvoiceFilter) ([]InvoiceResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	repoFilter := repository.InvoiceListFilter{
		Status:        filter.Status,
		PaymentStatus: filter.PaymentStatus,
		InvoiceNo:     filter.InvoiceNo,
		Page:          filter.Page,
		Limit:         filter.Limit,
	}
	if filter.CustomerID != "" {
		parsed, err := uuid.Parse(filter.CustomerID)
		if err != nil {
			return nil, 0, apperr.NewValidation("customer_id", "must be a valid uuid")
		}
		repoFilter.CustomerID = &parsed
	}
	if filter.VehicleID != "" {
		parsed, err := uuid.Parse(filter.VehicleID)
		if err != nil {
			return nil, 0, apperr.NewValidation("vehicle_id", "must be a valid uuid")
		}
		repoFilter.VehicleID = &parsed
	}

	invoices, total, err := s.invoiceRepo.List(ctx, repoFilter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch invoices: %w", err)
	}

	result := make([]InvoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		result = append(result, toInvoiceResponse(inv))
	}
	return result, total, nil
}

func (s *invoiceService) UpdateInvoice(ctx context.Context, id string, userID string, req UpdateInvoiceRequest) (InvoiceResponse, error) {
	invoiceID, err := uuid.Parse(id)
	if err != nil {
		return InvoiceResponse{}, apperr.NewValidation("invoice_id", "must be a valid uuid")
	}

	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return InvoiceResponse{}, apperr.NewNotFound("invoice", id)
		}
		return InvoiceResponse{}, fmt.Errorf("failed to load invoice: %w", err)
	}

	if err := ensureEditable(invoice); err != nil {
		return InvoiceResponse{}, err
	}

	if req.VehicleID != nil {
		if *req.VehicleID == "" {
			invoice.VehicleID = nil
		} else {
			parsed, parseErr := uuid.Parse(*req.VehicleID)
			if parseErr != nil {
				return InvoiceResponse{}, apperr.NewValidation("vehicle_id", "must be a valid uuid")
			}
			if _, findErr := s.vehicleRepo.FindByID(ctx, parsed); findErr != nil {
				if errors.Is(findErr, gorm.ErrRecordNotFound) {
					return InvoiceResponse{}, apperr.NewNotFound("vehicle", *req.VehicleID)
				}
				return InvoiceResponse{}, fmt.Errorf("failed to load vehicle: %w", findErr)
			}
			invoice.VehicleID = &parsed
		}
	}
	if req.Currency != nil && *req.Currency != "" {
		invoice.Currency = *req.Currency
	}
	if req.TaxEnabled != nil {
		invoice.TaxEnabled = *req.TaxEnabled
	}
	if req.TaxRate != nil {
		rate, parseErr := decimal.NewFromString(*req.TaxRate)
		if parseErr != nil {
			return InvoiceResponse{}, apperr.NewValidation("tax_rate", "must be a decimal number")
		}
		if rate.IsNegative() {
			return InvoiceResponse{}, apperr.NewValidation("tax_rate", "must not be negative")
		}
		invoice.TaxRate = rate
	}
	if req.Note != nil {
		invoice.Note = *req.Note
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if updateErr := s.invoiceRepo.Update(txCtx, invoice); updateErr != nil {
			return fmt.Errorf("failed to update invoice: %w", updateErr)
		}
		if recErr := s.costing.Recompute(txCtx, invoice.ID); recErr != nil {
			return recErr
		}
		s.writeAudit(txCtx, userID, model.ActionUpdateInvoice, invoice.ID.String(), invoice.InvoiceNo, req)
		return nil
	})
	if err != nil {
		return InvoiceResponse{}, err
	}

	return s.GetInvoice(ctx, id)
}

func (s *invoiceService) AddCharge(ctx context.Context, invoiceID string, userID string, req ChargeInput) (InvoiceResponse, error) {
	invID, err := uuid.Parse(invoiceID)
	if err != nil {
		return InvoiceResponse{}, apperr.NewValidation("invoice_id", "must be a valid uuid")
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return InvoiceResponse{}, apperr.NewValidation("amount", "must be a decimal number")
	}
	if req.Name == "" {
		return InvoiceResponse{}, apperr.NewValidation("name", "is required")
	}

	invoice, err := s.invoiceRepo.FindByID(ctx, invID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return InvoiceResponse{}, apperr.NewNotFound("invoice", invoiceID)
		}
		return InvoiceResponse{}, fmt.Errorf("failed to load invoice: %w", err)
	}
	if err := ensureEditable(invoice); err != nil {
		return InvoiceResponse{}, err
	}

	charge := model.Charge{
		InvoiceID: invID,
		Name:      req.Name,
		Amount:    amount,
		SortOrder: req.SortOrder,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.invoiceRepo.CreateCharge(txCtx, &charge); createErr != nil {
			return fmt.Errorf("failed to create charge: %w", createErr)
		}
		if recErr := s.costing.Recompute(txCtx, invID); recErr != nil {
			return recErr
		}
		s.writeAudit(txCtx, userID, model.ActionAddCharge, charge.ID.String(), req.Name, req)
		return nil
	})
	if err != nil {
		return InvoiceResponse{}, err
	}

	return s.GetInvoice(ctx, invoiceID)
}

func (s *invoiceService) UpdateCharge(ctx context.Context, chargeID string, userID string, req ChargeInput) (InvoiceResponse, error) {
	id, err := uuid.Parse(chargeID)
	if err != nil {
		return InvoiceResponse{}, apperr.NewValidation("charge_id", "must be a valid uuid")
	}

	charge, err := s.invoiceRepo.FindChargeByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return InvoiceResponse{}, apperr.NewNotFound("charge", chargeID)
		}
		return InvoiceResponse{}, fmt.Errorf("failed to load charge: %w", err)
	}

	invoice, err := s.invoiceRepo.FindByID(ctx, charge.InvoiceID)
	if err != nil {
		return InvoiceResponse{}, fmt.Errorf("failed to load invoice: %w", err)
	}
	if err := ensureEditable(invoice); err != nil {
		return InvoiceResponse{}, err
	}

	if req.Name != "" {
		charge.Name = req.Name
	}
	if req.Amount != "" {
		amount, parseErr := decimal.NewFromString(req.Amount)
		if parseErr != nil {
			return InvoiceResponse{}, apperr.NewValidation("amount", "must be a decimal number")
		}
		charge.Amount = amount
	}
	charge.SortOrder = req.SortOrder

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if updateErr := s.invoiceRepo.UpdateCharge(txCtx, charge); updateErr != nil {
			return fmt.Errorf("failed to update charge: %w", updateErr)
		}
		if recErr := s.costing.Recompute(txCtx, charge.InvoiceID); recErr != nil {
			return recErr
		}
		s.writeAudit(txCtx, userID, model.ActionUpdateCharge, charge.ID.String(), charge.Name, req)
		return nil
	})
	if err != nil {
		return InvoiceResponse{}, err
	}

	return s.GetInvoice(ctx, charge.InvoiceID.String())
}

func (s *invoiceService) DeleteCharge(ctx context.Context, chargeID string, userID string) (InvoiceResponse, error) {
	id, err := uuid.Parse(chargeID)
	if err != nil {
		return InvoiceResponse{}, apperr.NewValidation("charge_id", "must be a valid uuid")
	}

	charge, err := s.invoiceRepo.FindChargeByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return InvoiceResponse{}, apperr.NewNotFound("charge", chargeID)
		}
		return InvoiceResponse{}, fmt.Errorf("failed to load charge: %w", err)
	}

	invoice, err := s.invoiceRepo.FindByID(ctx, charge.InvoiceID)
	if err != nil {
		return InvoiceResponse{}, fmt.Errorf("failed to load invoice: %w", err)
	}
	if err := ensureEditable(invoice); err != nil {
		return InvoiceResponse{}, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if delErr := s.invoiceRepo.DeleteCharge(txCtx, id); delErr != nil {
			return fmt.Errorf("failed to delete charge: %w", delErr)
		}
		if recErr := s.costing.Recompute(txCtx, charge.InvoiceID); recErr != nil {
			return recErr
		}
		s.writeAudit(txCtx, userID, model.ActionDeleteCharge, chargeID, charge.Name, map[string]string{"deleted_id": chargeID})
		return nil
	})
	if err != nil {
		return InvoiceResponse{}, err
	}

	return s.GetInvoice(ctx, charge.InvoiceID.String())
}

func (s *invoiceService) SubmitInvoice(ctx context.Context, id string, userID string) (InvoiceResponse, error) {
	return s.transition(ctx, id, userID, model.InvoiceDraft, model.InvoicePendingApproval, model.ActionSubmitInvoice, nil)
}

func (s *invoiceService) ApproveInvoice(ctx context.Context, id string, userID string) (InvoiceResponse, error) {
	approverID, err := uuid.Parse(userID)
	if err != nil {
		return InvoiceResponse{}, apperr.NewValidation("user_id", "must be a valid uuid")
	}
	return s.transition(ctx, id, userID, model.InvoicePendingApproval, model.InvoiceApproved, model.ActionApproveInvoice, func(inv *model.Invoice) {
		now := time.Now()
		inv.ApprovedBy = &approverID
		inv.ApprovedAt = &now
	})
}

func (s *invoiceService) RejectInvoice(ctx context.Context, id string, userID string) (InvoiceResponse, error) {
	return s.transition(ctx, id, userID, model.InvoicePendingApproval, model.InvoiceDraft, model.ActionRejectInvoice, func(inv *model.Invoice) {
		inv.ApprovedBy = nil
		inv.ApprovedAt = nil
	})
}

func (s *invoiceService) FinalizeInvoice(ctx context.Context, id string, userID string) (InvoiceResponse, error) {
	return s.transition(ctx, id, userID, model.InvoiceApproved, model.InvoiceFinalized, model.ActionFinalizeInvoice, func(inv *model.Invoice) {
		inv.Locked = true
	})
}

// UnlockInvoice reopens a finalized invoice for editing. Restricted to
// admins at the routing layer.
func (s *invoiceService) UnlockInvoice(ctx context.Context, id string, userID string) (InvoiceResponse, error) {
	return s.transition(ctx, id, userID, model.InvoiceFinalized, model.InvoiceApproved, model.ActionUnlockInvoice, func(inv *model.Invoice) {
		inv.Locked = false
	})
}

func (s *invoiceService) IssueShareToken(ctx context.Context, id string, userID string) (InvoiceResponse, error) {
	invoiceID, err := uuid.Parse(id)
	if err != nil {
		return InvoiceResponse{}, apperr.NewValidation("invoice_id", "must be a valid uuid")
	}

	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return InvoiceResponse{}, apperr.NewNotFound("invoice", id)
		}
		return InvoiceResponse{}, fmt.Errorf("failed to load invoice: %w", err)
	}

	if invoice.ShareToken == nil {
		buf := make([]byte, 24)
		if _, err := rand.Read(buf); err != nil {
			return InvoiceResponse{}, fmt.Errorf("failed to generate share token: %w", err)
		}
		token := hex.EncodeToString(buf)
		invoice.ShareToken = &token

		if err := s.invoiceRepo.Update(ctx, invoice); err != nil {
			return InvoiceResponse{}, fmt.Errorf("failed to update invoice: %w", err)
		}
	}

	return toInvoiceResponseShallow(*invoice), nil
}

// --- Helpers ---

func (s *invoiceService) transition(ctx context.Context, id string, userID string, from, to, action string, mutate func(*model.Invoice)) (InvoiceResponse, error) {
	invoiceID, err := uuid.Parse(id)
	if err != nil {
		return InvoiceResponse{}, apperr.NewValidation("invoice_id", "must be a valid uuid")
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		invoice, findErr := s.invoiceRepo.FindByID(txCtx, invoiceID)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperr.NewNotFound("invoice", id)
			}
			return fmt.Errorf("failed to load invoice: %w", findErr)
		}

		if invoice.Status != from {
			return apperr.NewConflict(fmt.Sprintf("invoice is %s, expected %s", invoice.Status, from))
		}

		invoice.Status = to
		if mutate != nil {
			mutate(invoice)
		}

		if updateErr := s.invoiceRepo.Update(txCtx, invoice); updateErr != nil {
			return fmt.Errorf("failed to update invoice: %w", updateErr)
		}
		s.writeAudit(txCtx, userID, action, invoice.ID.String(), invoice.InvoiceNo, map[string]string{"from": from, "to": to})
		return nil
	})
	if err != nil {
		return InvoiceResponse{}, err
	}

	return s.GetInvoice(ctx, id)
}

// ensureEditable rejects mutations on locked or non-draft invoices.
func ensureEditable(invoice *model.Invoice) error {
	if invoice.Locked {
		return apperr.NewConflict("invoice is locked")
	}
	if invoice.Status == model.InvoiceFinalized {
		return apperr.NewConflict("invoice is finalized")
	}
	return nil
}

func (s *invoiceService) generateInvoiceNo(ctx context.Context) (string, error) {
	today := time.Now().Format("20060102")
	prefix := "INV-" + today + "-"

	count, err := s.invoiceRepo.CountByPrefix(ctx, prefix)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s%05d", prefix, count+1), nil
}

func (s *invoiceService) writeAudit(ctx context.Context, userID, action, entityID, entityName string, details interface{}) {
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

// --- Mapping ---

func toInvoiceResponse(inv model.Invoice) InvoiceResponse {
	resp := toInvoiceResponseShallow(inv)

	subtotal := decimal.Zero
	for _, c := range inv.Charges {
		subtotal = subtotal.Add(c.Amount)
		resp.Charges = append(resp.Charges, ChargeResponse{
			ID:        c.ID.String(),
			Name:      c.Name,
			Amount:    c.Amount.StringFixed(2),
			SortOrder: c.SortOrder,
		})
	}
	resp.Subtotal = subtotal.StringFixed(2)
	resp.TotalWithTax = finance.RevenueWithTax(subtotal, inv.TaxEnabled, inv.TaxRate).StringFixed(2)
	return resp
}

func toInvoiceResponseShallow(inv model.Invoice) InvoiceResponse {
	resp := InvoiceResponse{
		ID:            inv.ID.String(),
		InvoiceNo:     inv.InvoiceNo,
		CustomerID:    inv.CustomerID.String(),
		Currency:      inv.Currency,
		TaxEnabled:    inv.TaxEnabled,
		TaxRate:       inv.TaxRate.StringFixed(2),
		Subtotal:      "0.00",
		TotalWithTax:  "0.00",
		Status:        inv.Status,
		PaymentStatus: inv.PaymentStatus,
		Locked:        inv.Locked,
		ShareToken:    inv.ShareToken,
		Note:          inv.Note,
		Charges:       []ChargeResponse{},
		CreatedAt:     inv.CreatedAt.Format(time.RFC3339),
	}
	if inv.VehicleID != nil {
		v := inv.VehicleID.String()
		resp.VehicleID = &v
	}
	if inv.PaidAt != nil {
		v := inv.PaidAt.Format(time.RFC3339)
		resp.PaidAt = &v
	}
	if inv.ApprovedBy != nil {
		v := inv.ApprovedBy.String()
		resp.ApprovedBy = &v
	}
	if inv.ApprovedAt != nil {
		v := inv.ApprovedAt.Format(time.RFC3339)
		resp.ApprovedAt = &v
	}
	return resp
}

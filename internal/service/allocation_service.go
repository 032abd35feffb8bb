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

type CreateSharedInvoiceRequest struct {
	Type        string   `json:"type" binding:"required,oneof=FORWARDER CONTAINER"`
	VendorName  string   `json:"vendor_name" binding:"required"`
	TotalAmount string   `json:"total_amount" binding:"required"`
	Currency    string   `json:"currency"`
	VehicleIDs  []string `json:"vehicle_ids"`
}

type SetVehiclesRequest struct {
	VehicleIDs []string `json:"vehicle_ids"`
}

type CreateContainerInvoiceRequest struct {
	ContainerNo string `json:"container_no" binding:"required"`
	VesselName  string `json:"vessel_name"`
	Amount      string `json:"amount" binding:"required"`
}

type AllocationResponse struct {
	VehicleID       string `json:"vehicle_id"`
	AllocatedAmount string `json:"allocated_amount"`
}

type SharedInvoiceResponse struct {
	ID          string               `json:"id"`
	Type        string               `json:"type"`
	VendorName  string               `json:"vendor_name"`
	TotalAmount string               `json:"total_amount"`
	Currency    string               `json:"currency"`
	Allocations []AllocationResponse `json:"allocations"`
	CreatedAt   string               `json:"created_at"`
}

type ContainerInvoiceResponse struct {
	ID              string `json:"id"`
	SharedInvoiceID string `json:"shared_invoice_id"`
	ContainerNo     string `json:"container_no"`
	VesselName      string `json:"vessel_name"`
	Amount          string `json:"amount"`
	CreatedAt       string `json:"created_at"`
}

// --- Interface ---

// AllocationService manages shared vendor invoices and the even split of
// their totals across attached vehicles. Every membership change rewrites
// all allocation rows and recomputes costing for every affected vehicle's
// invoices in one transaction.
type AllocationService interface {
	CreateSharedInvoice(ctx context.Context, userID string, req CreateSharedInvoiceRequest) (SharedInvoiceResponse, error)
	GetSharedInvoice(ctx context.Context, id string) (SharedInvoiceResponse, error)
	ListSharedInvoices(ctx context.Context, page, limit int) ([]SharedInvoiceResponse, int64, error)
	SetVehicles(ctx context.Context, sharedInvoiceID string, userID string, req SetVehiclesRequest) (SharedInvoiceResponse, error)
	RemoveVehicle(ctx context.Context, sharedInvoiceID, vehicleID string, userID string) (SharedInvoiceResponse, error)
	DeleteSharedInvoice(ctx context.Context, sharedInvoiceID string, userID string) error
	CreateContainerInvoice(ctx context.Context, sharedInvoiceID string, userID string, req CreateContainerInvoiceRequest) (ContainerInvoiceResponse, error)
	ListContainerInvoices(ctx context.Context, sharedInvoiceID string) ([]ContainerInvoiceResponse, error)
}

type allocationService struct {
	sharedRepo  repository.SharedInvoiceRepository
	vehicleRepo repository.VehicleRepository
	invoiceRepo repository.InvoiceRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	costing     CostingService
	hub         *websocket.Hub
}

func NewAllocationService(
	sharedRepo repository.SharedInvoiceRepository,
	vehicleRepo repository.VehicleRepository,
	invoiceRepo repository.InvoiceRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	costing CostingService,
	hub *websocket.Hub,
) AllocationService {
	return &allocationService{
		sharedRepo:  sharedRepo,
		vehicleRepo: vehicleRepo,
		invoiceRepo: invoiceRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		costing:     costing,
		hub:         hub,
	}
}

// --- Implementation ---

func (s *allocationService) CreateSharedInvoice(ctx context.Context, userID string, req CreateSharedInvoiceRequest) (SharedInvoiceResponse, error) {
	total, err := decimal.NewFromString(req.TotalAmount)
	if err != nil {
		return SharedInvoiceResponse{}, apperr.NewValidation("total_amount", "must be a decimal number")
	}
	if !total.IsPositive() {
		return SharedInvoiceResponse{}, apperr.NewValidation("total_amount", "must be greater than zero")
	}
	if req.Type != model.SharedTypeForwarder && req.Type != model.SharedTypeContainer {
		return SharedInvoiceResponse{}, apperr.NewValidation("type", "must be FORWARDER or CONTAINER")
	}

	currency := req.Currency
	if currency == "" {
		currency = "JPY"
	}

	vehicleIDs, err := s.parseVehicleIDs(ctx, req.VehicleIDs)
	if err != nil {
		return SharedInvoiceResponse{}, err
	}

	inv := model.SharedInvoice{
		Type:        req.Type,
		VendorName:  req.VendorName,
		TotalAmount: total,
		Currency:    currency,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.sharedRepo.Create(txCtx, &inv); createErr != nil {
			return fmt.Errorf("failed to create shared invoice: %w", createErr)
		}
		if len(vehicleIDs) > 0 {
			if allocErr := s.rebuildAllocations(txCtx, &inv, nil, vehicleIDs); allocErr != nil {
				return allocErr
			}
		}
		s.writeAudit(txCtx, userID, model.ActionCreateSharedInvoice, inv.ID.String(), req.VendorName, req)
		return nil
	})
	if err != nil {
		return SharedInvoiceResponse{}, err
	}

	s.broadcast("shared_invoice.created", inv.ID.String())
	return s.GetSharedInvoice(ctx, inv.ID.String())
}

func (s *allocationService) GetSharedInvoice(ctx context.Context, id string) (SharedInvoiceResponse, error) {
	sharedID, err := uuid.Parse(id)
	if err != nil {
		return SharedInvoiceResponse{}, apperr.NewValidation("shared_invoice_id", "must be a valid uuid")
	}
	inv, err := s.sharedRepo.FindByID(ctx, sharedID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return SharedInvoiceResponse{}, apperr.NewNotFound("shared invoice", id)
		}
		return SharedInvoiceResponse{}, fmt.Errorf("failed to load shared invoice: %w", err)
	}
	rows, err := s.sharedRepo.ListAllocations(ctx, sharedID)
	if err != nil {
		return SharedInvoiceResponse{}, fmt.Errorf("failed to list allocations: %w", err)
	}
	return toSharedInvoiceResponse(*inv, rows), nil
}

func (s *allocationService) ListSharedInvoices(ctx context.Context, page, limit int) ([]SharedInvoiceResponse, int64, error) {
	invoices, total, err := s.sharedRepo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list shared invoices: %w", err)
	}

	responses := make([]SharedInvoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		rows, listErr := s.sharedRepo.ListAllocations(ctx, inv.ID)
		if listErr != nil {
			return nil, 0, fmt.Errorf("failed to list allocations: %w", listErr)
		}
		responses = append(responses, toSharedInvoiceResponse(inv, rows))
	}
	return responses, total, nil
}

// SetVehicles attaches vehicles to a shared invoice. Already attached
// vehicles are kept; the per-vehicle amount is rewritten for every member,
// old and new, so that each row is round2(total / N).
func (s *allocationService) SetVehicles(ctx context.Context, sharedInvoiceID string, userID string, req SetVehiclesRequest) (SharedInvoiceResponse, error) {
	sharedID, err := uuid.Parse(sharedInvoiceID)
	if err != nil {
		return SharedInvoiceResponse{}, apperr.NewValidation("shared_invoice_id", "must be a valid uuid")
	}

	inv, err := s.sharedRepo.FindByID(ctx, sharedID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return SharedInvoiceResponse{}, apperr.NewNotFound("shared invoice", sharedInvoiceID)
		}
		return SharedInvoiceResponse{}, fmt.Errorf("failed to load shared invoice: %w", err)
	}

	existing, err := s.sharedRepo.ListAllocations(ctx, sharedID)
	if err != nil {
		return SharedInvoiceResponse{}, fmt.Errorf("failed to list allocations: %w", err)
	}

	if len(req.VehicleIDs) == 0 {
		if len(existing) == 0 {
			return SharedInvoiceResponse{}, apperr.NewValidation("vehicle_ids", "at least one vehicle is required")
		}
		return toSharedInvoiceResponse(*inv, existing), nil
	}

	incoming, err := s.parseVehicleIDs(ctx, req.VehicleIDs)
	if err != nil {
		return SharedInvoiceResponse{}, err
	}

	attached := make(map[uuid.UUID]bool, len(existing))
	for _, row := range existing {
		attached[row.VehicleID] = true
	}
	var newIDs []uuid.UUID
	for _, id := range incoming {
		if !attached[id] {
			attached[id] = true
			newIDs = append(newIDs, id)
		}
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if allocErr := s.rebuildAllocations(txCtx, inv, existing, newIDs); allocErr != nil {
			return allocErr
		}
		s.writeAudit(txCtx, userID, model.ActionSetAllocations, inv.ID.String(), inv.VendorName, req)
		return nil
	})
	if err != nil {
		return SharedInvoiceResponse{}, err
	}

	s.broadcast("shared_invoice.allocations_updated", inv.ID.String())
	return s.GetSharedInvoice(ctx, sharedInvoiceID)
}

func (s *allocationService) RemoveVehicle(ctx context.Context, sharedInvoiceID, vehicleID string, userID string) (SharedInvoiceResponse, error) {
	sharedID, err := uuid.Parse(sharedInvoiceID)
	if err != nil {
		return SharedInvoiceResponse{}, apperr.NewValidation("shared_invoice_id", "must be a valid uuid")
	}
	vehID, err := uuid.Parse(vehicleID)
	if err != nil {
		return SharedInvoiceResponse{}, apperr.NewValidation("vehicle_id", "must be a valid uuid")
	}

	inv, err := s.sharedRepo.FindByID(ctx, sharedID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return SharedInvoiceResponse{}, apperr.NewNotFound("shared invoice", sharedInvoiceID)
		}
		return SharedInvoiceResponse{}, fmt.Errorf("failed to load shared invoice: %w", err)
	}

	existing, err := s.sharedRepo.ListAllocations(ctx, sharedID)
	if err != nil {
		return SharedInvoiceResponse{}, fmt.Errorf("failed to list allocations: %w", err)
	}

	found := false
	for _, row := range existing {
		if row.VehicleID == vehID {
			found = true
			break
		}
	}
	if !found {
		return SharedInvoiceResponse{}, apperr.NewNotFound("allocation", vehicleID)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if delErr := s.sharedRepo.DeleteAllocation(txCtx, sharedID, vehID); delErr != nil {
			return fmt.Errorf("failed to delete allocation: %w", delErr)
		}

		remaining := len(existing) - 1
		if remaining > 0 {
			perVehicle := finance.SplitEvenly(inv.TotalAmount, remaining)
			if updErr := s.sharedRepo.UpdateAllocationAmounts(txCtx, sharedID, perVehicle); updErr != nil {
				return fmt.Errorf("failed to update allocation amounts: %w", updErr)
			}
		}

		// Costing changes both for the removed vehicle and the ones left in.
		affected := []uuid.UUID{vehID}
		for _, row := range existing {
			if row.VehicleID != vehID {
				affected = append(affected, row.VehicleID)
			}
		}
		if recErr := s.recomputeVehicles(txCtx, affected); recErr != nil {
			return recErr
		}

		s.writeAudit(txCtx, userID, model.ActionRemoveAllocation, inv.ID.String(), inv.VendorName, map[string]string{"vehicle_id": vehicleID})
		return nil
	})
	if err != nil {
		return SharedInvoiceResponse{}, err
	}

	s.broadcast("shared_invoice.allocations_updated", inv.ID.String())
	return s.GetSharedInvoice(ctx, sharedInvoiceID)
}

// DeleteSharedInvoice removes the shared invoice and all of its allocation
// rows. Deletion is refused while container invoices still reference it.
func (s *allocationService) DeleteSharedInvoice(ctx context.Context, sharedInvoiceID string, userID string) error {
	sharedID, err := uuid.Parse(sharedInvoiceID)
	if err != nil {
		return apperr.NewValidation("shared_invoice_id", "must be a valid uuid")
	}

	inv, err := s.sharedRepo.FindByID(ctx, sharedID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NewNotFound("shared invoice", sharedInvoiceID)
		}
		return fmt.Errorf("failed to load shared invoice: %w", err)
	}

	containerCount, err := s.sharedRepo.CountContainerInvoices(ctx, sharedID)
	if err != nil {
		return fmt.Errorf("failed to count container invoices: %w", err)
	}
	if containerCount > 0 {
		return apperr.NewConflict(fmt.Sprintf("shared invoice has %d container invoices attached", containerCount))
	}

	existing, err := s.sharedRepo.ListAllocations(ctx, sharedID)
	if err != nil {
		return fmt.Errorf("failed to list allocations: %w", err)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if delErr := s.sharedRepo.DeleteAllocations(txCtx, sharedID); delErr != nil {
			return fmt.Errorf("failed to delete allocations: %w", delErr)
		}
		if delErr := s.sharedRepo.Delete(txCtx, sharedID); delErr != nil {
			return fmt.Errorf("failed to delete shared invoice: %w", delErr)
		}

		affected := make([]uuid.UUID, 0, len(existing))
		for _, row := range existing {
			affected = append(affected, row.VehicleID)
		}
		if recErr := s.recomputeVehicles(txCtx, affected); recErr != nil {
			return recErr
		}

		s.writeAudit(txCtx, userID, model.ActionDeleteSharedInvoice, sharedInvoiceID, inv.VendorName, map[string]string{"deleted_id": sharedInvoiceID})
		return nil
	})
	if err != nil {
		return err
	}

	s.broadcast("shared_invoice.deleted", sharedInvoiceID)
	return nil
}

func (s *allocationService) CreateContainerInvoice(ctx context.Context, sharedInvoiceID string, userID string, req CreateContainerInvoiceRequest) (ContainerInvoiceResponse, error) {
	sharedID, err := uuid.Parse(sharedInvoiceID)
	if err != nil {
		return ContainerInvoiceResponse{}, apperr.NewValidation("shared_invoice_id", "must be a valid uuid")
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return ContainerInvoiceResponse{}, apperr.NewValidation("amount", "must be a decimal number")
	}

	inv, err := s.sharedRepo.FindByID(ctx, sharedID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ContainerInvoiceResponse{}, apperr.NewNotFound("shared invoice", sharedInvoiceID)
		}
		return ContainerInvoiceResponse{}, fmt.Errorf("failed to load shared invoice: %w", err)
	}
	if inv.Type != model.SharedTypeContainer {
		return ContainerInvoiceResponse{}, apperr.NewValidation("type", "container invoices can only attach to CONTAINER shared invoices")
	}

	ci := model.ContainerInvoice{
		SharedInvoiceID: sharedID,
		ContainerNo:     req.ContainerNo,
		VesselName:      req.VesselName,
		Amount:          amount,
	}
	if err := s.sharedRepo.CreateContainerInvoice(ctx, &ci); err != nil {
		return ContainerInvoiceResponse{}, fmt.Errorf("failed to create container invoice: %w", err)
	}

	return toContainerInvoiceResponse(ci), nil
}

func (s *allocationService) ListContainerInvoices(ctx context.Context, sharedInvoiceID string) ([]ContainerInvoiceResponse, error) {
	sharedID, err := uuid.Parse(sharedInvoiceID)
	if err != nil {
		return nil, apperr.NewValidation("shared_invoice_id", "must be a valid uuid")
	}
	rows, err := s.sharedRepo.ListContainerInvoices(ctx, sharedID)
	if err != nil {
		return nil, fmt.Errorf("failed to list container invoices: %w", err)
	}
	responses := make([]ContainerInvoiceResponse, 0, len(rows))
	for _, row := range rows {
		responses = append(responses, toContainerInvoiceResponse(row))
	}
	return responses, nil
}

// --- Helpers ---

// rebuildAllocations rewrites existing rows and inserts new ones so every
// member carries round2(total / N). Costing is recomputed for all members.
func (s *allocationService) rebuildAllocations(ctx context.Context, inv *model.SharedInvoice, existing []model.SharedInvoiceVehicle, newIDs []uuid.UUID) error {
	total := len(existing) + len(newIDs)
	if total == 0 {
		return nil
	}
	perVehicle := finance.SplitEvenly(inv.TotalAmount, total)

	if len(existing) > 0 {
		if err := s.sharedRepo.UpdateAllocationAmounts(ctx, inv.ID, perVehicle); err != nil {
			return fmt.Errorf("failed to update allocation amounts: %w", err)
		}
	}
	for _, vehicleID := range newIDs {
		row := model.SharedInvoiceVehicle{
			SharedInvoiceID: inv.ID,
			VehicleID:       vehicleID,
			AllocatedAmount: perVehicle,
		}
		if err := s.sharedRepo.CreateAllocation(ctx, &row); err != nil {
			return fmt.Errorf("failed to create allocation: %w", err)
		}
	}

	affected := make([]uuid.UUID, 0, total)
	for _, row := range existing {
		affected = append(affected, row.VehicleID)
	}
	affected = append(affected, newIDs...)
	return s.recomputeVehicles(ctx, affected)
}

func (s *allocationService) recomputeVehicles(ctx context.Context, vehicleIDs []uuid.UUID) error {
	for _, vehicleID := range vehicleIDs {
		invoices, err := s.invoiceRepo.FindByVehicleID(ctx, vehicleID)
		if err != nil {
			return fmt.Errorf("failed to find invoices for vehicle %s: %w", vehicleID, err)
		}
		for _, inv := range invoices {
			if err := s.costing.Recompute(ctx, inv.ID); err != nil {
				return err
			}
		}
	}
	metrics.AllocationsRecomputed.Inc()
	return nil
}

func (s *allocationService) parseVehicleIDs(ctx context.Context, raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	seen := make(map[uuid.UUID]bool, len(raw))
	for _, v := range raw {
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, apperr.NewValidation("vehicle_ids", fmt.Sprintf("%q is not a valid uuid", v))
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, err := s.vehicleRepo.FindByID(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperr.NewValidation("vehicle_ids", fmt.Sprintf("vehicle %s does not exist", v))
			}
			return nil, fmt.Errorf("failed to load vehicle: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *allocationService) writeAudit(ctx context.Context, userID, action, entityID, entityName string, details interface{}) {
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

func (s *allocationService) broadcast(event, entityID string) {
	if s.hub == nil {
		return
	}
	payload, _ := json.Marshal(map[string]string{"event": event, "id": entityID})
	select {
	case s.hub.Broadcast <- payload:
	default:
	}
}

func toSharedInvoiceResponse(inv model.SharedInvoice, rows []model.SharedInvoiceVehicle) SharedInvoiceResponse {
	resp := SharedInvoiceResponse{
		ID:          inv.ID.String(),
		Type:        inv.Type,
		VendorName:  inv.VendorName,
		TotalAmount: inv.TotalAmount.StringFixed(2),
		Currency:    inv.Currency,
		Allocations: make([]AllocationResponse, 0, len(rows)),
		CreatedAt:   inv.CreatedAt.Format(time.RFC3339),
	}
	for _, row := range rows {
		resp.Allocations = append(resp.Allocations, AllocationResponse{
			VehicleID:       row.VehicleID.String(),
			AllocatedAmount: row.AllocatedAmount.StringFixed(2),
		})
	}
	return resp
}

func toContainerInvoiceResponse(ci model.ContainerInvoice) ContainerInvoiceResponse {
	return ContainerInvoiceResponse{
		ID:              ci.ID.String(),
		SharedInvoiceID: ci.SharedInvoiceID.String(),
		ContainerNo:     ci.ContainerNo,
		VesselName:      ci.VesselName,
		Amount:          ci.Amount.StringFixed(2),
		CreatedAt:       ci.CreatedAt.Format(time.RFC3339),
	}
}

package service

import (
	"context"
	"testing"

	"github.com/SpaceKap/zervtek-crm-sub003/internal/model"
	"github.com/SpaceKap/zervtek-crm-sub003/pkg/apperr"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type allocationFixture struct {
	sharedRepo  *fakeSharedRepo
	vehicleRepo *fakeVehicleRepo
	invoiceRepo *fakeInvoiceRepo
	costRepo    *fakeCostRepo
	allocation  AllocationService
}

func newAllocationFixture() *allocationFixture {
	f := &allocationFixture{
		sharedRepo:  newFakeSharedRepo(),
		vehicleRepo: newFakeVehicleRepo(),
		invoiceRepo: newFakeInvoiceRepo(),
		costRepo:    newFakeCostRepo(),
	}
	auditRepo := &fakeAuditRepo{}
	costing := NewCostingService(f.invoiceRepo, f.costRepo, f.sharedRepo, &fakeTransactionRepo{}, auditRepo, fakeTxManager{})
	f.allocation = NewAllocationService(f.sharedRepo, f.vehicleRepo, f.invoiceRepo, auditRepo, fakeTxManager{}, costing, nil)
	return f
}

func (f *allocationFixture) seedVehicles(t *testing.T, n int) []string {
	t.Helper()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		v := &model.Vehicle{
			ChassisNo:     uuid.NewString(),
			Make:          "Toyota",
			Model:         "Land Cruiser",
			ShippingStage: model.StagePurchased,
		}
		if err := f.vehicleRepo.Create(context.Background(), v); err != nil {
			t.Fatalf("seed vehicle: %v", err)
		}
		ids = append(ids, v.ID.String())
	}
	return ids
}

func (f *allocationFixture) seedSharedInvoice(t *testing.T, total string, vehicleIDs []string) SharedInvoiceResponse {
	t.Helper()
	resp, err := f.allocation.CreateSharedInvoice(context.Background(), uuid.NewString(), CreateSharedInvoiceRequest{
		Type:        model.SharedTypeForwarder,
		VendorName:  "Pacific Forwarding",
		TotalAmount: total,
		VehicleIDs:  vehicleIDs,
	})
	if err != nil {
		t.Fatalf("create shared invoice: %v", err)
	}
	return resp
}

func TestSharedInvoiceEvenSplit(t *testing.T) {
	f := newAllocationFixture()
	vehicles := f.seedVehicles(t, 3)

	resp := f.seedSharedInvoice(t, "300000", vehicles)

	if len(resp.Allocations) != 3 {
		t.Fatalf("allocations = %d, want 3", len(resp.Allocations))
	}
	for _, a := range resp.Allocations {
		if a.AllocatedAmount != "100000.00" {
			t.Errorf("allocated amount = %s, want 100000.00", a.AllocatedAmount)
		}
	}
}

func TestSetVehiclesRewritesAllMembers(t *testing.T) {
	ctx := context.Background()
	f := newAllocationFixture()
	vehicles := f.seedVehicles(t, 4)

	resp := f.seedSharedInvoice(t, "300000", vehicles[:3])

	// Adding a fourth vehicle drops every member to 75000.
	resp, err := f.allocation.SetVehicles(ctx, resp.ID, uuid.NewString(), SetVehiclesRequest{
		VehicleIDs: []string{vehicles[3]},
	})
	if err != nil {
		t.Fatalf("set vehicles: %v", err)
	}

	if len(resp.Allocations) != 4 {
		t.Fatalf("allocations = %d, want 4", len(resp.Allocations))
	}
	for _, a := range resp.Allocations {
		if a.AllocatedAmount != "75000.00" {
			t.Errorf("allocated amount = %s, want 75000.00", a.AllocatedAmount)
		}
	}
}

func TestSetVehiclesSkipsAlreadyAttached(t *testing.T) {
	ctx := context.Background()
	f := newAllocationFixture()
	vehicles := f.seedVehicles(t, 2)

	resp := f.seedSharedInvoice(t, "100000", vehicles)

	// Re-sending an attached vehicle must not create a duplicate row.
	resp, err := f.allocation.SetVehicles(ctx, resp.ID, uuid.NewString(), SetVehiclesRequest{
		VehicleIDs: []string{vehicles[0]},
	})
	if err != nil {
		t.Fatalf("set vehicles: %v", err)
	}
	if len(resp.Allocations) != 2 {
		t.Errorf("allocations = %d, want 2", len(resp.Allocations))
	}
}

func TestSetVehiclesValidation(t *testing.T) {
	ctx := context.Background()
	f := newAllocationFixture()

	shared := f.seedSharedInvoice(t, "100000", nil)

	tests := []struct {
		name string
		req  SetVehiclesRequest
	}{
		{"empty list on initial assignment", SetVehiclesRequest{}},
		{"nonexistent vehicle", SetVehiclesRequest{VehicleIDs: []string{uuid.NewString()}}},
		{"malformed vehicle id", SetVehiclesRequest{VehicleIDs: []string{"not-a-uuid"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.allocation.SetVehicles(ctx, shared.ID, uuid.NewString(), tt.req)
			var vErr *apperr.ValidationError
			if !errorsAs(err, &vErr) {
				t.Errorf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestRemoveVehicleResplitsRemaining(t *testing.T) {
	ctx := context.Background()
	f := newAllocationFixture()
	vehicles := f.seedVehicles(t, 3)

	resp := f.seedSharedInvoice(t, "300000", vehicles)

	resp, err := f.allocation.RemoveVehicle(ctx, resp.ID, vehicles[0], uuid.NewString())
	if err != nil {
		t.Fatalf("remove vehicle: %v", err)
	}

	if len(resp.Allocations) != 2 {
		t.Fatalf("allocations = %d, want 2", len(resp.Allocations))
	}
	for _, a := range resp.Allocations {
		if a.AllocatedAmount != "150000.00" {
			t.Errorf("allocated amount = %s, want 150000.00", a.AllocatedAmount)
		}
		if a.VehicleID == vehicles[0] {
			t.Errorf("removed vehicle %s still present", vehicles[0])
		}
	}
}

func TestRemoveVehicleNotAttached(t *testing.T) {
	f := newAllocationFixture()
	vehicles := f.seedVehicles(t, 2)
	resp := f.seedSharedInvoice(t, "100000", vehicles[:1])

	_, err := f.allocation.RemoveVehicle(context.Background(), resp.ID, vehicles[1], uuid.NewString())
	var nfErr *apperr.NotFoundError
	if !errorsAs(err, &nfErr) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}

func TestAllocationFlowsIntoVehicleCosting(t *testing.T) {
	ctx := context.Background()
	f := newAllocationFixture()
	vehicles := f.seedVehicles(t, 2)

	vehicleID := uuid.MustParse(vehicles[0])
	invoice := &model.Invoice{
		InvoiceNo:     "INV-20260830-00001",
		CustomerID:    uuid.New(),
		VehicleID:     &vehicleID,
		Currency:      "JPY",
		Status:        model.InvoiceDraft,
		PaymentStatus: model.PaymentPending,
		Charges: []model.Charge{
			{Name: "Vehicle price", Amount: decimal.RequireFromString("500000")},
		},
	}
	if err := f.invoiceRepo.Create(ctx, invoice); err != nil {
		t.Fatalf("seed invoice: %v", err)
	}

	f.seedSharedInvoice(t, "80000", vehicles)

	ci, err := f.costRepo.FindByInvoiceID(ctx, invoice.ID)
	if err != nil {
		t.Fatalf("cost invoice should exist after allocation: %v", err)
	}
	if !ci.TotalCost.Equal(decimal.RequireFromString("40000")) {
		t.Errorf("total cost = %s, want 40000", ci.TotalCost)
	}
}

func TestDeleteSharedInvoiceCascade(t *testing.T) {
	ctx := context.Background()
	f := newAllocationFixture()
	vehicles := f.seedVehicles(t, 2)

	vehicleID := uuid.MustParse(vehicles[0])
	invoice := &model.Invoice{
		InvoiceNo:     "INV-20260830-00001",
		CustomerID:    uuid.New(),
		VehicleID:     &vehicleID,
		Currency:      "JPY",
		Status:        model.InvoiceDraft,
		PaymentStatus: model.PaymentPending,
		Charges: []model.Charge{
			{Name: "Vehicle price", Amount: decimal.RequireFromString("500000")},
		},
	}
	if err := f.invoiceRepo.Create(ctx, invoice); err != nil {
		t.Fatalf("seed invoice: %v", err)
	}

	resp := f.seedSharedInvoice(t, "80000", vehicles)

	if err := f.allocation.DeleteSharedInvoice(ctx, resp.ID, uuid.NewString()); err != nil {
		t.Fatalf("delete shared invoice: %v", err)
	}

	rows, err := f.sharedRepo.ListAllocationsByVehicle(ctx, vehicleID)
	if err != nil {
		t.Fatalf("list allocations: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("allocations after delete = %d, want 0", len(rows))
	}

	ci, err := f.costRepo.FindByInvoiceID(ctx, invoice.ID)
	if err != nil {
		t.Fatalf("find cost invoice: %v", err)
	}
	if !ci.TotalCost.IsZero() {
		t.Errorf("total cost after delete = %s, want 0", ci.TotalCost)
	}
}

func TestDeleteSharedInvoiceBlockedByContainers(t *testing.T) {
	ctx := context.Background()
	f := newAllocationFixture()

	resp, err := f.allocation.CreateSharedInvoice(ctx, uuid.NewString(), CreateSharedInvoiceRequest{
		Type:        model.SharedTypeContainer,
		VendorName:  "NYK Line",
		TotalAmount: "200000",
	})
	if err != nil {
		t.Fatalf("create shared invoice: %v", err)
	}

	if _, err := f.allocation.CreateContainerInvoice(ctx, resp.ID, uuid.NewString(), CreateContainerInvoiceRequest{
		ContainerNo: "NYKU1234567",
		VesselName:  "Ocean Breeze",
		Amount:      "200000",
	}); err != nil {
		t.Fatalf("create container invoice: %v", err)
	}

	err = f.allocation.DeleteSharedInvoice(ctx, resp.ID, uuid.NewString())
	var cErr *apperr.ConflictError
	if !errorsAs(err, &cErr) {
		t.Errorf("expected ConflictError, got %v", err)
	}

	// Still present after the refused delete.
	if _, err := f.allocation.GetSharedInvoice(ctx, resp.ID); err != nil {
		t.Errorf("shared invoice should survive refused delete: %v", err)
	}
}

func TestContainerInvoiceRequiresContainerType(t *testing.T) {
	ctx := context.Background()
	f := newAllocationFixture()
	resp := f.seedSharedInvoice(t, "100000", nil)

	_, err := f.allocation.CreateContainerInvoice(ctx, resp.ID, uuid.NewString(), CreateContainerInvoiceRequest{
		ContainerNo: "TCLU7654321",
		Amount:      "100000",
	})
	var vErr *apperr.ValidationError
	if !errorsAs(err, &vErr) {
		t.Errorf("expected ValidationError for FORWARDER type, got %v", err)
	}
}

func TestCreateSharedInvoiceValidation(t *testing.T) {
	ctx := context.Background()
	f := newAllocationFixture()

	tests := []struct {
		name string
		req  CreateSharedInvoiceRequest
	}{
		{"zero total", CreateSharedInvoiceRequest{Type: model.SharedTypeForwarder, VendorName: "X", TotalAmount: "0"}},
		{"negative total", CreateSharedInvoiceRequest{Type: model.SharedTypeForwarder, VendorName: "X", TotalAmount: "-5"}},
		{"bad amount", CreateSharedInvoiceRequest{Type: model.SharedTypeForwarder, VendorName: "X", TotalAmount: "abc"}},
		{"bad type", CreateSharedInvoiceRequest{Type: "OTHER", VendorName: "X", TotalAmount: "100"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.allocation.CreateSharedInvoice(ctx, uuid.NewString(), tt.req)
			var vErr *apperr.ValidationError
			if !errorsAs(err, &vErr) {
				t.Errorf("expected ValidationError, got %v", err)
			}
		})
	}
}

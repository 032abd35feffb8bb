package service

import (
	"context"
	"testing"

	"github.com/SpaceKap/zervtek-crm-sub003/internal/model"
	"github.com/SpaceKap/zervtek-crm-sub003/pkg/apperr"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type costingFixture struct {
	invoiceRepo *fakeInvoiceRepo
	costRepo    *fakeCostRepo
	sharedRepo  *fakeSharedRepo
	txRepo      *fakeTransactionRepo
	auditRepo   *fakeAuditRepo
	costing     CostingService
}

func newCostingFixture() *costingFixture {
	f := &costingFixture{
		invoiceRepo: newFakeInvoiceRepo(),
		costRepo:    newFakeCostRepo(),
		sharedRepo:  newFakeSharedRepo(),
		txRepo:      &fakeTransactionRepo{},
		auditRepo:   &fakeAuditRepo{},
	}
	f.costing = NewCostingService(f.invoiceRepo, f.costRepo, f.sharedRepo, f.txRepo, f.auditRepo, fakeTxManager{})
	return f
}

func (f *costingFixture) seedInvoice(t *testing.T, vehicleID *uuid.UUID, chargeAmounts ...string) *model.Invoice {
	t.Helper()
	invoice := &model.Invoice{
		InvoiceNo:     "INV-20260830-00001",
		CustomerID:    uuid.New(),
		VehicleID:     vehicleID,
		Currency:      "JPY",
		Status:        model.InvoiceDraft,
		PaymentStatus: model.PaymentPending,
	}
	for i, raw := range chargeAmounts {
		invoice.Charges = append(invoice.Charges, model.Charge{
			Name:      "Charge",
			Amount:    decimal.RequireFromString(raw),
			SortOrder: i,
		})
	}
	if err := f.invoiceRepo.Create(context.Background(), invoice); err != nil {
		t.Fatalf("seed invoice: %v", err)
	}
	return invoice
}

func TestRecomputeAggregates(t *testing.T) {
	ctx := context.Background()
	vehicleID := uuid.New()

	f := newCostingFixture()
	invoice := f.seedInvoice(t, &vehicleID, "100000")

	// Regular cost item of 40000 plus a 10000 shared allocation.
	ci := &model.CostInvoice{InvoiceID: invoice.ID}
	if err := f.costRepo.Create(ctx, ci); err != nil {
		t.Fatalf("create cost invoice: %v", err)
	}
	if err := f.costRepo.CreateItem(ctx, &model.CostItem{
		CostInvoiceID: ci.ID,
		VendorName:    "Auction House",
		Amount:        decimal.RequireFromString("40000"),
	}); err != nil {
		t.Fatalf("create cost item: %v", err)
	}
	if err := f.sharedRepo.CreateAllocation(ctx, &model.SharedInvoiceVehicle{
		SharedInvoiceID: uuid.New(),
		VehicleID:       vehicleID,
		AllocatedAmount: decimal.RequireFromString("10000"),
	}); err != nil {
		t.Fatalf("create allocation: %v", err)
	}

	if err := f.costing.Recompute(ctx, invoice.ID); err != nil {
		t.Fatalf("recompute: %v", err)
	}

	got, err := f.costRepo.FindByInvoiceID(ctx, invoice.ID)
	if err != nil {
		t.Fatalf("find cost invoice: %v", err)
	}

	checks := []struct {
		name string
		got  decimal.Decimal
		want string
	}{
		{"total revenue", got.TotalRevenue, "100000"},
		{"total cost", got.TotalCost, "50000"},
		{"profit", got.Profit, "50000"},
		{"margin", got.Margin, "50"},
		{"roi", got.ROI, "100"},
	}
	for _, c := range checks {
		if !c.got.Equal(decimal.RequireFromString(c.want)) {
			t.Errorf("%s = %s, want %s", c.name, c.got, c.want)
		}
	}
}

func TestRecomputeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newCostingFixture()
	invoice := f.seedInvoice(t, nil, "80000")

	for i := 0; i < 3; i++ {
		if err := f.costing.Recompute(ctx, invoice.ID); err != nil {
			t.Fatalf("recompute %d: %v", i, err)
		}
	}

	got, err := f.costRepo.FindByInvoiceID(ctx, invoice.ID)
	if err != nil {
		t.Fatalf("find cost invoice: %v", err)
	}
	if !got.TotalRevenue.Equal(decimal.RequireFromString("80000")) {
		t.Errorf("total revenue = %s, want 80000", got.TotalRevenue)
	}
	if !got.Profit.Equal(decimal.RequireFromString("80000")) {
		t.Errorf("profit = %s, want 80000", got.Profit)
	}
}

func TestRecomputeCreatesCostInvoiceLazily(t *testing.T) {
	ctx := context.Background()
	f := newCostingFixture()
	invoice := f.seedInvoice(t, nil, "50000")

	if _, err := f.costRepo.FindByInvoiceID(ctx, invoice.ID); err == nil {
		t.Fatal("cost invoice should not exist before recompute")
	}

	if err := f.costing.Recompute(ctx, invoice.ID); err != nil {
		t.Fatalf("recompute: %v", err)
	}

	if _, err := f.costRepo.FindByInvoiceID(ctx, invoice.ID); err != nil {
		t.Fatalf("cost invoice should exist after recompute: %v", err)
	}
}

func TestRecomputeZeroRevenueLeavesMarginZero(t *testing.T) {
	ctx := context.Background()
	f := newCostingFixture()
	invoice := f.seedInvoice(t, nil)

	if err := f.costing.Recompute(ctx, invoice.ID); err != nil {
		t.Fatalf("recompute: %v", err)
	}

	got, err := f.costRepo.FindByInvoiceID(ctx, invoice.ID)
	if err != nil {
		t.Fatalf("find cost invoice: %v", err)
	}
	if !got.Margin.IsZero() {
		t.Errorf("margin = %s, want 0", got.Margin)
	}
	if !got.ROI.IsZero() {
		t.Errorf("roi = %s, want 0", got.ROI)
	}
}

func TestRecomputeTaxEnabledRevenue(t *testing.T) {
	ctx := context.Background()
	f := newCostingFixture()

	invoice := &model.Invoice{
		InvoiceNo:     "INV-20260830-00002",
		CustomerID:    uuid.New(),
		Currency:      "JPY",
		TaxEnabled:    true,
		TaxRate:       decimal.RequireFromString("10"),
		Status:        model.InvoiceDraft,
		PaymentStatus: model.PaymentPending,
		Charges: []model.Charge{
			{Name: "FOB price", Amount: decimal.RequireFromString("20000")},
		},
	}
	if err := f.invoiceRepo.Create(ctx, invoice); err != nil {
		t.Fatalf("seed invoice: %v", err)
	}

	if err := f.costing.Recompute(ctx, invoice.ID); err != nil {
		t.Fatalf("recompute: %v", err)
	}

	got, err := f.costRepo.FindByInvoiceID(ctx, invoice.ID)
	if err != nil {
		t.Fatalf("find cost invoice: %v", err)
	}
	if !got.TotalRevenue.Equal(decimal.RequireFromString("22000")) {
		t.Errorf("total revenue = %s, want 22000", got.TotalRevenue)
	}
}

func TestCostItemCRUDTriggersRecompute(t *testing.T) {
	ctx := context.Background()
	f := newCostingFixture()
	invoice := f.seedInvoice(t, nil, "100000")

	created, err := f.costing.CreateCostItem(ctx, invoice.ID.String(), uuid.NewString(), CreateCostItemRequest{
		VendorName:      "Inland Carrier",
		Amount:          "30000",
		Category:        model.CostCategoryTransport,
		PaymentDeadline: "2026-09-15",
	})
	if err != nil {
		t.Fatalf("create cost item: %v", err)
	}

	ci, err := f.costRepo.FindByInvoiceID(ctx, invoice.ID)
	if err != nil {
		t.Fatalf("find cost invoice: %v", err)
	}
	if !ci.TotalCost.Equal(decimal.RequireFromString("30000")) {
		t.Errorf("total cost after create = %s, want 30000", ci.TotalCost)
	}

	newAmount := "45000"
	if _, err := f.costing.UpdateCostItem(ctx, created.ID, uuid.NewString(), UpdateCostItemRequest{
		Amount: &newAmount,
	}); err != nil {
		t.Fatalf("update cost item: %v", err)
	}

	ci, _ = f.costRepo.FindByInvoiceID(ctx, invoice.ID)
	if !ci.TotalCost.Equal(decimal.RequireFromString("45000")) {
		t.Errorf("total cost after update = %s, want 45000", ci.TotalCost)
	}

	if err := f.costing.DeleteCostItem(ctx, created.ID, uuid.NewString()); err != nil {
		t.Fatalf("delete cost item: %v", err)
	}
	ci, _ = f.costRepo.FindByInvoiceID(ctx, invoice.ID)
	if !ci.TotalCost.IsZero() {
		t.Errorf("total cost after delete = %s, want 0", ci.TotalCost)
	}
}

func TestCreateCostItemValidation(t *testing.T) {
	ctx := context.Background()
	f := newCostingFixture()
	invoice := f.seedInvoice(t, nil, "100000")

	tests := []struct {
		name string
		req  CreateCostItemRequest
	}{
		{
			name: "missing vendor name",
			req:  CreateCostItemRequest{Amount: "1000", PaymentDeadline: "2026-09-15"},
		},
		{
			name: "bad amount",
			req:  CreateCostItemRequest{VendorName: "X", Amount: "abc", PaymentDeadline: "2026-09-15"},
		},
		{
			name: "bad deadline",
			req:  CreateCostItemRequest{VendorName: "X", Amount: "1000", PaymentDeadline: "soon"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.costing.CreateCostItem(ctx, invoice.ID.String(), uuid.NewString(), tt.req)
			var vErr *apperr.ValidationError
			if !errorsAs(err, &vErr) {
				t.Errorf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestGetBreakdownUnknownInvoice(t *testing.T) {
	f := newCostingFixture()
	_, err := f.costing.GetBreakdown(context.Background(), uuid.NewString())
	var nfErr *apperr.NotFoundError
	if !errorsAs(err, &nfErr) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}

func TestMarkingCostItemPaidRecordsVendorPayout(t *testing.T) {
	ctx := context.Background()
	f := newCostingFixture()
	invoice := f.seedInvoice(t, nil, "100000")

	created, err := f.costing.CreateCostItem(ctx, invoice.ID.String(), uuid.NewString(), CreateCostItemRequest{
		VendorName:      "Yard Storage",
		Amount:          "12000",
		Category:        model.CostCategoryOther,
		PaymentDeadline: "2026-09-15",
		PaidAt:          strPtr("2026-09-10"),
	})
	if err != nil {
		t.Fatalf("create paid cost item: %v", err)
	}

	entries, _, _ := f.txRepo.List(ctx, 1, 100)
	if len(entries) != 1 {
		t.Fatalf("ledger entries = %d, want 1", len(entries))
	}
	entry := entries[0]
	if entry.Direction != model.DirectionOutgoing {
		t.Errorf("direction = %s, want OUTGOING", entry.Direction)
	}
	if entry.Description != model.TxDescVendorPayout {
		t.Errorf("description = %q, want %q", entry.Description, model.TxDescVendorPayout)
	}
	if !entry.Amount.Equal(decimal.RequireFromString("12000")) {
		t.Errorf("amount = %s, want 12000", entry.Amount)
	}
	if entry.CostItemID == nil || entry.CostItemID.String() != created.ID {
		t.Errorf("cost item link = %v, want %s", entry.CostItemID, created.ID)
	}

	// Amount-only update on an already paid item appends nothing.
	newAmount := "13000"
	if _, err := f.costing.UpdateCostItem(ctx, created.ID, uuid.NewString(), UpdateCostItemRequest{
		Amount: &newAmount,
	}); err != nil {
		t.Fatalf("update cost item: %v", err)
	}
	entries, _, _ = f.txRepo.List(ctx, 1, 100)
	if len(entries) != 1 {
		t.Errorf("ledger entries after amount update = %d, want 1", len(entries))
	}
}

func TestVendorPayoutOnPaidTransitionOnly(t *testing.T) {
	ctx := context.Background()
	f := newCostingFixture()
	invoice := f.seedInvoice(t, nil, "100000")

	created, err := f.costing.CreateCostItem(ctx, invoice.ID.String(), uuid.NewString(), CreateCostItemRequest{
		VendorName:      "Inland Carrier",
		Amount:          "30000",
		Category:        model.CostCategoryTransport,
		PaymentDeadline: "2026-09-15",
	})
	if err != nil {
		t.Fatalf("create cost item: %v", err)
	}
	if entries, _, _ := f.txRepo.List(ctx, 1, 100); len(entries) != 0 {
		t.Fatalf("unpaid item produced %d ledger entries, want 0", len(entries))
	}

	if _, err := f.costing.UpdateCostItem(ctx, created.ID, uuid.NewString(), UpdateCostItemRequest{
		PaidAt: strPtr("2026-09-20"),
	}); err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	entries, _, _ := f.txRepo.List(ctx, 1, 100)
	if len(entries) != 1 {
		t.Fatalf("ledger entries after marking paid = %d, want 1", len(entries))
	}

	// Unmarking does not reverse the payout entry.
	if _, err := f.costing.UpdateCostItem(ctx, created.ID, uuid.NewString(), UpdateCostItemRequest{
		PaidAt: strPtr(""),
	}); err != nil {
		t.Fatalf("unmark paid: %v", err)
	}
	if entries, _, _ := f.txRepo.List(ctx, 1, 100); len(entries) != 1 {
		t.Errorf("ledger entries after unmarking = %d, want 1", len(entries))
	}

	// Re-marking paid appends a second entry.
	if _, err := f.costing.UpdateCostItem(ctx, created.ID, uuid.NewString(), UpdateCostItemRequest{
		PaidAt: strPtr("2026-09-25"),
	}); err != nil {
		t.Fatalf("re-mark paid: %v", err)
	}
	if entries, _, _ := f.txRepo.List(ctx, 1, 100); len(entries) != 2 {
		t.Errorf("ledger entries after re-marking = %d, want 2", len(entries))
	}
}

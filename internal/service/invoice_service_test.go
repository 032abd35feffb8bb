package service

import (
	"context"
	"regexp"
	"testing"

	"github.com/SpaceKap/zervtek-crm-sub003/internal/model"
	"github.com/SpaceKap/zervtek-crm-sub003/pkg/apperr"

	"github.com/google/uuid"
)

type invoiceFixture struct {
	invoiceRepo  *fakeInvoiceRepo
	customerRepo *fakeCustomerRepo
	vehicleRepo  *fakeVehicleRepo
	costRepo     *fakeCostRepo
	invoices     InvoiceService
}

func newInvoiceFixture() *invoiceFixture {
	f := &invoiceFixture{
		invoiceRepo:  newFakeInvoiceRepo(),
		customerRepo: newFakeCustomerRepo(),
		vehicleRepo:  newFakeVehicleRepo(),
		costRepo:     newFakeCostRepo(),
	}
	auditRepo := &fakeAuditRepo{}
	costing := NewCostingService(f.invoiceRepo, f.costRepo, newFakeSharedRepo(), &fakeTransactionRepo{}, auditRepo, fakeTxManager{})
	f.invoices = NewInvoiceService(f.invoiceRepo, f.customerRepo, f.vehicleRepo, auditRepo, fakeTxManager{}, costing)
	return f
}

func (f *invoiceFixture) seedCustomer(t *testing.T) string {
	t.Helper()
	customer := &model.Customer{
		Name:           "Sato Motors",
		Type:           model.CustomerTypeDealer,
		WalletCurrency: "JPY",
		IsActive:       true,
	}
	if err := f.customerRepo.Create(context.Background(), customer); err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	return customer.ID.String()
}

func (f *invoiceFixture) createDraft(t *testing.T) InvoiceResponse {
	t.Helper()
	resp, err := f.invoices.CreateInvoice(context.Background(), uuid.NewString(), CreateInvoiceRequest{
		CustomerID: f.seedCustomer(t),
		TaxEnabled: true,
		TaxRate:    "10",
		Charges: []ChargeInput{
			{Name: "Vehicle price", Amount: "20000"},
		},
	})
	if err != nil {
		t.Fatalf("create invoice: %v", err)
	}
	return resp
}

func TestCreateInvoiceDefaults(t *testing.T) {
	f := newInvoiceFixture()
	resp := f.createDraft(t)

	if resp.Status != model.InvoiceDraft {
		t.Errorf("status = %s, want DRAFT", resp.Status)
	}
	if resp.PaymentStatus != model.PaymentPending {
		t.Errorf("payment status = %s, want PENDING", resp.PaymentStatus)
	}
	if resp.Currency != "JPY" {
		t.Errorf("currency = %s, want JPY", resp.Currency)
	}
	if resp.Subtotal != "20000.00" {
		t.Errorf("subtotal = %s, want 20000.00", resp.Subtotal)
	}
	if resp.TotalWithTax != "22000.00" {
		t.Errorf("total with tax = %s, want 22000.00", resp.TotalWithTax)
	}

	matched, err := regexp.MatchString(`^INV-\d{8}-\d{5}$`, resp.InvoiceNo)
	if err != nil || !matched {
		t.Errorf("invoice number %q does not match INV-YYYYMMDD-NNNNN", resp.InvoiceNo)
	}
}

func TestInvoiceLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newInvoiceFixture()
	resp := f.createDraft(t)
	userID := uuid.NewString()

	resp, err := f.invoices.SubmitInvoice(ctx, resp.ID, userID)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if resp.Status != model.InvoicePendingApproval {
		t.Errorf("status after submit = %s, want PENDING_APPROVAL", resp.Status)
	}

	resp, err = f.invoices.ApproveInvoice(ctx, resp.ID, userID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if resp.Status != model.InvoiceApproved {
		t.Errorf("status after approve = %s, want APPROVED", resp.Status)
	}
	if resp.ApprovedBy == nil || resp.ApprovedAt == nil {
		t.Error("approve must stamp approved_by and approved_at")
	}

	resp, err = f.invoices.FinalizeInvoice(ctx, resp.ID, userID)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if resp.Status != model.InvoiceFinalized {
		t.Errorf("status after finalize = %s, want FINALIZED", resp.Status)
	}
	if !resp.Locked {
		t.Error("finalize must lock the invoice")
	}

	resp, err = f.invoices.UnlockInvoice(ctx, resp.ID, userID)
	if err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if resp.Status != model.InvoiceApproved || resp.Locked {
		t.Errorf("unlock should return to APPROVED and clear the lock, got %s locked=%v", resp.Status, resp.Locked)
	}
}

func TestRejectReturnsToDraft(t *testing.T) {
	ctx := context.Background()
	f := newInvoiceFixture()
	resp := f.createDraft(t)
	userID := uuid.NewString()

	resp, err := f.invoices.SubmitInvoice(ctx, resp.ID, userID)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	resp, err = f.invoices.RejectInvoice(ctx, resp.ID, userID)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if resp.Status != model.InvoiceDraft {
		t.Errorf("status after reject = %s, want DRAFT", resp.Status)
	}
	if resp.ApprovedBy != nil {
		t.Error("reject must clear approved_by")
	}
}

func TestInvalidTransitionsConflict(t *testing.T) {
	ctx := context.Background()
	f := newInvoiceFixture()
	resp := f.createDraft(t)
	userID := uuid.NewString()

	tests := []struct {
		name string
		call func() error
	}{
		{"approve draft", func() error {
			_, err := f.invoices.ApproveInvoice(ctx, resp.ID, userID)
			return err
		}},
		{"finalize draft", func() error {
			_, err := f.invoices.FinalizeInvoice(ctx, resp.ID, userID)
			return err
		}},
		{"unlock draft", func() error {
			_, err := f.invoices.UnlockInvoice(ctx, resp.ID, userID)
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			var cErr *apperr.ConflictError
			if !errorsAs(err, &cErr) {
				t.Errorf("expected ConflictError, got %v", err)
			}
		})
	}
}

func TestFinalizedInvoiceRejectsEdits(t *testing.T) {
	ctx := context.Background()
	f := newInvoiceFixture()
	resp := f.createDraft(t)
	userID := uuid.NewString()

	for _, step := range []func(context.Context, string, string) (InvoiceResponse, error){
		f.invoices.SubmitInvoice, f.invoices.ApproveInvoice, f.invoices.FinalizeInvoice,
	} {
		var err error
		resp, err = step(ctx, resp.ID, userID)
		if err != nil {
			t.Fatalf("lifecycle step: %v", err)
		}
	}

	_, err := f.invoices.AddCharge(ctx, resp.ID, userID, ChargeInput{Name: "Extra", Amount: "100"})
	var cErr *apperr.ConflictError
	if !errorsAs(err, &cErr) {
		t.Errorf("expected ConflictError adding charge to finalized invoice, got %v", err)
	}

	note := "late edit"
	_, err = f.invoices.UpdateInvoice(ctx, resp.ID, userID, UpdateInvoiceRequest{Note: &note})
	if !errorsAs(err, &cErr) {
		t.Errorf("expected ConflictError editing finalized invoice, got %v", err)
	}
}

func TestChargeMutationsRecomputeCosting(t *testing.T) {
	ctx := context.Background()
	f := newInvoiceFixture()
	resp := f.createDraft(t)
	userID := uuid.NewString()

	resp, err := f.invoices.AddCharge(ctx, resp.ID, userID, ChargeInput{Name: "Freight", Amount: "5000", SortOrder: 1})
	if err != nil {
		t.Fatalf("add charge: %v", err)
	}
	if resp.Subtotal != "25000.00" {
		t.Errorf("subtotal = %s, want 25000.00", resp.Subtotal)
	}

	invoiceID := uuid.MustParse(resp.ID)
	ci, err := f.costRepo.FindByInvoiceID(ctx, invoiceID)
	if err != nil {
		t.Fatalf("cost invoice should exist: %v", err)
	}
	// 25000 charges at 10% tax
	if ci.TotalRevenue.StringFixed(2) != "27500.00" {
		t.Errorf("total revenue = %s, want 27500.00", ci.TotalRevenue.StringFixed(2))
	}

	chargeID := resp.Charges[0].ID
	for _, c := range resp.Charges {
		if c.Name == "Freight" {
			chargeID = c.ID
		}
	}
	resp, err = f.invoices.DeleteCharge(ctx, chargeID, userID)
	if err != nil {
		t.Fatalf("delete charge: %v", err)
	}
	if resp.Subtotal != "20000.00" {
		t.Errorf("subtotal after delete = %s, want 20000.00", resp.Subtotal)
	}
}

func TestShareToken(t *testing.T) {
	ctx := context.Background()
	f := newInvoiceFixture()
	resp := f.createDraft(t)
	userID := uuid.NewString()

	issued, err := f.invoices.IssueShareToken(ctx, resp.ID, userID)
	if err != nil {
		t.Fatalf("issue share token: %v", err)
	}
	if issued.ShareToken == nil || *issued.ShareToken == "" {
		t.Fatal("share token should be issued")
	}

	// Issuing again returns the same token.
	again, err := f.invoices.IssueShareToken(ctx, resp.ID, userID)
	if err != nil {
		t.Fatalf("re-issue share token: %v", err)
	}
	if *again.ShareToken != *issued.ShareToken {
		t.Error("share token must be stable across calls")
	}

	shared, err := f.invoices.GetInvoiceByShareToken(ctx, *issued.ShareToken)
	if err != nil {
		t.Fatalf("get by share token: %v", err)
	}
	if shared.ID != resp.ID {
		t.Errorf("shared view returned invoice %s, want %s", shared.ID, resp.ID)
	}
	if shared.ShareToken != nil {
		t.Error("public share view must not echo the token")
	}

	_, err = f.invoices.GetInvoiceByShareToken(ctx, "bogus-token")
	var nfErr *apperr.NotFoundError
	if !errorsAs(err, &nfErr) {
		t.Errorf("expected NotFoundError for bogus token, got %v", err)
	}
}

func TestCreateInvoiceUnknownCustomer(t *testing.T) {
	f := newInvoiceFixture()
	_, err := f.invoices.CreateInvoice(context.Background(), uuid.NewString(), CreateInvoiceRequest{
		CustomerID: uuid.NewString(),
	})
	var nfErr *apperr.NotFoundError
	if !errorsAs(err, &nfErr) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}

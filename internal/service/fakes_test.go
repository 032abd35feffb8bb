package service

import (
	"context"
	"errors"
	"sync"

	"github.com/SpaceKap/zervtek-crm-sub003/internal/model"
	"github.com/SpaceKap/zervtek-crm-sub003/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// In-memory repository fakes shared by the service tests. They mimic the
// gorm-backed implementations closely enough for service semantics,
// returning gorm.ErrRecordNotFound where the real ones would.

func errorsAs(err error, target any) bool {
	return errors.As(err, target)
}

type fakeTxManager struct{}

func (fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []model.AuditLog
}

func (f *fakeAuditRepo) Log(_ context.Context, entry *model.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeAuditRepo) List(_ context.Context, _, _ int) ([]model.AuditLog, int64, error) {
	return f.entries, int64(len(f.entries)), nil
}

// --- invoices ---

type fakeInvoiceRepo struct {
	mu       sync.Mutex
	invoices map[uuid.UUID]*model.Invoice
	charges  map[uuid.UUID]*model.Charge
	seq      int64
}

func newFakeInvoiceRepo() *fakeInvoiceRepo {
	return &fakeInvoiceRepo{
		invoices: make(map[uuid.UUID]*model.Invoice),
		charges:  make(map[uuid.UUID]*model.Charge),
	}
}

func (f *fakeInvoiceRepo) Create(_ context.Context, invoice *model.Invoice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if invoice.ID == uuid.Nil {
		invoice.ID = uuid.New()
	}
	for i := range invoice.Charges {
		c := invoice.Charges[i]
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		c.InvoiceID = invoice.ID
		f.charges[c.ID] = &c
		invoice.Charges[i] = c
	}
	stored := *invoice
	f.invoices[invoice.ID] = &stored
	return nil
}

func (f *fakeInvoiceRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invoices[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := *inv
	out.Charges = nil
	return &out, nil
}

func (f *fakeInvoiceRepo) FindByIDWithCharges(_ context.Context, id uuid.UUID) (*model.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invoices[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := *inv
	out.Charges = f.chargesForLocked(id)
	return &out, nil
}

func (f *fakeInvoiceRepo) FindByShareToken(_ context.Context, token string) (*model.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, inv := range f.invoices {
		if inv.ShareToken != nil && *inv.ShareToken == token {
			out := *inv
			out.Charges = f.chargesForLocked(inv.ID)
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeInvoiceRepo) FindByVehicleID(_ context.Context, vehicleID uuid.UUID) ([]model.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Invoice
	for _, inv := range f.invoices {
		if inv.VehicleID != nil && *inv.VehicleID == vehicleID {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (f *fakeInvoiceRepo) List(_ context.Context, _ repository.InvoiceListFilter) ([]model.Invoice, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Invoice
	for _, inv := range f.invoices {
		out = append(out, *inv)
	}
	return out, int64(len(out)), nil
}

func (f *fakeInvoiceRepo) Update(_ context.Context, invoice *model.Invoice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.invoices[invoice.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	stored := *invoice
	stored.Charges = nil
	f.invoices[invoice.ID] = &stored
	return nil
}

func (f *fakeInvoiceRepo) CountByPrefix(_ context.Context, _ string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	return f.seq - 1, nil
}

func (f *fakeInvoiceRepo) CreateCharge(_ context.Context, charge *model.Charge) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if charge.ID == uuid.Nil {
		charge.ID = uuid.New()
	}
	stored := *charge
	f.charges[charge.ID] = &stored
	return nil
}

func (f *fakeInvoiceRepo) FindChargeByID(_ context.Context, id uuid.UUID) (*model.Charge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.charges[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := *c
	return &out, nil
}

func (f *fakeInvoiceRepo) UpdateCharge(_ context.Context, charge *model.Charge) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.charges[charge.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	stored := *charge
	f.charges[charge.ID] = &stored
	return nil
}

func (f *fakeInvoiceRepo) DeleteCharge(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.charges, id)
	return nil
}

func (f *fakeInvoiceRepo) ListCharges(_ context.Context, invoiceID uuid.UUID) ([]model.Charge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chargesForLocked(invoiceID), nil
}

func (f *fakeInvoiceRepo) chargesForLocked(invoiceID uuid.UUID) []model.Charge {
	var out []model.Charge
	for _, c := range f.charges {
		if c.InvoiceID == invoiceID {
			out = append(out, *c)
		}
	}
	return out
}

// --- cost invoices ---

type fakeCostRepo struct {
	mu           sync.Mutex
	costInvoices map[uuid.UUID]*model.CostInvoice
	items        map[uuid.UUID]*model.CostItem
}

func newFakeCostRepo() *fakeCostRepo {
	return &fakeCostRepo{
		costInvoices: make(map[uuid.UUID]*model.CostInvoice),
		items:        make(map[uuid.UUID]*model.CostItem),
	}
}

func (f *fakeCostRepo) FindByInvoiceID(_ context.Context, invoiceID uuid.UUID) (*model.CostInvoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ci := range f.costInvoices {
		if ci.InvoiceID == invoiceID {
			out := *ci
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeCostRepo) FindByIDWithItems(_ context.Context, id uuid.UUID) (*model.CostInvoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ci, ok := f.costInvoices[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := *ci
	for _, item := range f.items {
		if item.CostInvoiceID == id {
			out.CostItems = append(out.CostItems, *item)
		}
	}
	return &out, nil
}

func (f *fakeCostRepo) Create(_ context.Context, ci *model.CostInvoice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ci.ID == uuid.Nil {
		ci.ID = uuid.New()
	}
	stored := *ci
	f.costInvoices[ci.ID] = &stored
	return nil
}

func (f *fakeCostRepo) Update(_ context.Context, ci *model.CostInvoice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.costInvoices[ci.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	stored := *ci
	stored.CostItems = nil
	f.costInvoices[ci.ID] = &stored
	return nil
}

func (f *fakeCostRepo) CreateItem(_ context.Context, item *model.CostItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	stored := *item
	f.items[item.ID] = &stored
	return nil
}

func (f *fakeCostRepo) FindItemByID(_ context.Context, id uuid.UUID) (*model.CostItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := *item
	return &out, nil
}

func (f *fakeCostRepo) UpdateItem(_ context.Context, item *model.CostItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[item.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	stored := *item
	f.items[item.ID] = &stored
	return nil
}

func (f *fakeCostRepo) DeleteItem(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, id)
	return nil
}

func (f *fakeCostRepo) ListItems(_ context.Context, costInvoiceID uuid.UUID) ([]model.CostItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.CostItem
	for _, item := range f.items {
		if item.CostInvoiceID == costInvoiceID {
			out = append(out, *item)
		}
	}
	return out, nil
}

// --- shared invoices ---

type fakeSharedRepo struct {
	mu          sync.Mutex
	invoices    map[uuid.UUID]*model.SharedInvoice
	allocations []model.SharedInvoiceVehicle
	containers  []model.ContainerInvoice
}

func newFakeSharedRepo() *fakeSharedRepo {
	return &fakeSharedRepo{invoices: make(map[uuid.UUID]*model.SharedInvoice)}
}

func (f *fakeSharedRepo) Create(_ context.Context, inv *model.SharedInvoice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	stored := *inv
	f.invoices[inv.ID] = &stored
	return nil
}

func (f *fakeSharedRepo) FindByID(_ context.Context, id uuid.UUID) (*model.SharedInvoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invoices[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := *inv
	return &out, nil
}

func (f *fakeSharedRepo) FindByIDWithVehicles(ctx context.Context, id uuid.UUID) (*model.SharedInvoice, error) {
	return f.FindByID(ctx, id)
}

func (f *fakeSharedRepo) List(_ context.Context, _, _ int) ([]model.SharedInvoice, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.SharedInvoice
	for _, inv := range f.invoices {
		out = append(out, *inv)
	}
	return out, int64(len(out)), nil
}

func (f *fakeSharedRepo) Update(_ context.Context, inv *model.SharedInvoice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.invoices[inv.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	stored := *inv
	f.invoices[inv.ID] = &stored
	return nil
}

func (f *fakeSharedRepo) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.invoices, id)
	return nil
}

func (f *fakeSharedRepo) ListAllocations(_ context.Context, sharedInvoiceID uuid.UUID) ([]model.SharedInvoiceVehicle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.SharedInvoiceVehicle
	for _, row := range f.allocations {
		if row.SharedInvoiceID == sharedInvoiceID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeSharedRepo) ListAllocationsByVehicle(_ context.Context, vehicleID uuid.UUID) ([]model.SharedInvoiceVehicle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.SharedInvoiceVehicle
	for _, row := range f.allocations {
		if row.VehicleID == vehicleID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeSharedRepo) CreateAllocation(_ context.Context, row *model.SharedInvoiceVehicle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	f.allocations = append(f.allocations, *row)
	return nil
}

func (f *fakeSharedRepo) UpdateAllocationAmounts(_ context.Context, sharedInvoiceID uuid.UUID, amount decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.allocations {
		if f.allocations[i].SharedInvoiceID == sharedInvoiceID {
			f.allocations[i].AllocatedAmount = amount
		}
	}
	return nil
}

func (f *fakeSharedRepo) DeleteAllocation(_ context.Context, sharedInvoiceID, vehicleID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.allocations[:0]
	for _, row := range f.allocations {
		if !(row.SharedInvoiceID == sharedInvoiceID && row.VehicleID == vehicleID) {
			kept = append(kept, row)
		}
	}
	f.allocations = kept
	return nil
}

func (f *fakeSharedRepo) DeleteAllocations(_ context.Context, sharedInvoiceID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.allocations[:0]
	for _, row := range f.allocations {
		if row.SharedInvoiceID != sharedInvoiceID {
			kept = append(kept, row)
		}
	}
	f.allocations = kept
	return nil
}

func (f *fakeSharedRepo) CountContainerInvoices(_ context.Context, sharedInvoiceID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, ci := range f.containers {
		if ci.SharedInvoiceID == sharedInvoiceID {
			count++
		}
	}
	return count, nil
}

func (f *fakeSharedRepo) CreateContainerInvoice(_ context.Context, ci *model.ContainerInvoice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ci.ID == uuid.Nil {
		ci.ID = uuid.New()
	}
	f.containers = append(f.containers, *ci)
	return nil
}

func (f *fakeSharedRepo) ListContainerInvoices(_ context.Context, sharedInvoiceID uuid.UUID) ([]model.ContainerInvoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ContainerInvoice
	for _, ci := range f.containers {
		if ci.SharedInvoiceID == sharedInvoiceID {
			out = append(out, ci)
		}
	}
	return out, nil
}

// --- customers ---

type fakeCustomerRepo struct {
	mu        sync.Mutex
	customers map[uuid.UUID]*model.Customer
}

func newFakeCustomerRepo() *fakeCustomerRepo {
	return &fakeCustomerRepo{customers: make(map[uuid.UUID]*model.Customer)}
}

func (f *fakeCustomerRepo) Create(_ context.Context, customer *model.Customer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if customer.ID == uuid.Nil {
		customer.ID = uuid.New()
	}
	stored := *customer
	f.customers[customer.ID] = &stored
	return nil
}

func (f *fakeCustomerRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.customers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := *c
	return &out, nil
}

func (f *fakeCustomerRepo) FindByIDWithAddresses(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	return f.FindByID(ctx, id)
}

func (f *fakeCustomerRepo) List(_ context.Context, _, _ int) ([]model.Customer, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Customer
	for _, c := range f.customers {
		out = append(out, *c)
	}
	return out, int64(len(out)), nil
}

func (f *fakeCustomerRepo) Update(_ context.Context, customer *model.Customer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.customers[customer.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	stored := *customer
	f.customers[customer.ID] = &stored
	return nil
}

func (f *fakeCustomerRepo) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.customers, id)
	return nil
}

func (f *fakeCustomerRepo) CreateAddress(_ context.Context, _ *model.CustomerAddress) error {
	return nil
}

func (f *fakeCustomerRepo) DeleteAddresses(_ context.Context, _ uuid.UUID) error {
	return nil
}

// --- vehicles ---

type fakeVehicleRepo struct {
	mu       sync.Mutex
	vehicles map[uuid.UUID]*model.Vehicle
}

func newFakeVehicleRepo() *fakeVehicleRepo {
	return &fakeVehicleRepo{vehicles: make(map[uuid.UUID]*model.Vehicle)}
}

func (f *fakeVehicleRepo) Create(_ context.Context, vehicle *model.Vehicle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if vehicle.ID == uuid.Nil {
		vehicle.ID = uuid.New()
	}
	stored := *vehicle
	f.vehicles[vehicle.ID] = &stored
	return nil
}

func (f *fakeVehicleRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Vehicle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.vehicles[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := *v
	return &out, nil
}

func (f *fakeVehicleRepo) FindByChassisNo(_ context.Context, chassisNo string) (*model.Vehicle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.vehicles {
		if v.ChassisNo == chassisNo {
			out := *v
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeVehicleRepo) List(_ context.Context, _, _ int) ([]model.Vehicle, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Vehicle
	for _, v := range f.vehicles {
		out = append(out, *v)
	}
	return out, int64(len(out)), nil
}

func (f *fakeVehicleRepo) Update(_ context.Context, vehicle *model.Vehicle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.vehicles[vehicle.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	stored := *vehicle
	f.vehicles[vehicle.ID] = &stored
	return nil
}

func (f *fakeVehicleRepo) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.vehicles, id)
	return nil
}

// --- transactions ---

type fakeTransactionRepo struct {
	mu      sync.Mutex
	entries []model.Transaction
}

func (f *fakeTransactionRepo) Append(_ context.Context, tx *model.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	f.entries = append(f.entries, *tx)
	return nil
}

func (f *fakeTransactionRepo) ListByCustomer(_ context.Context, customerID uuid.UUID, currency string) ([]model.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Transaction
	for _, tx := range f.entries {
		if tx.CustomerID == nil || *tx.CustomerID != customerID {
			continue
		}
		if currency != "" && tx.Currency != currency {
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

func (f *fakeTransactionRepo) ListByInvoice(_ context.Context, invoiceID uuid.UUID) ([]model.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Transaction
	for _, tx := range f.entries {
		if tx.InvoiceID != nil && *tx.InvoiceID == invoiceID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (f *fakeTransactionRepo) List(_ context.Context, _, _ int) ([]model.Transaction, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Transaction(nil), f.entries...), int64(len(f.entries)), nil
}

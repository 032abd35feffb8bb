package repository

import (
	"context"

	"github.com/SpaceKap/zervtek-crm-sub003/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InvoiceListFilter narrows invoice listings.
type InvoiceListFilter struct {
	Status        string
	PaymentStatus string
	CustomerID    *uuid.UUID
	VehicleID     *uuid.UUID
	InvoiceNo     string
	Page          int
	Limit         int
}

type InvoiceRepository interface {
	Create(ctx context.Context, invoice *model.Invoice) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
	FindByIDWithCharges(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
	FindByShareToken(ctx context.Context, token string) (*model.Invoice, error)
	FindByVehicleID(ctx context.Context, vehicleID uuid.UUID) ([]model.Invoice, error)
	List(ctx context.Context, filter InvoiceListFilter) ([]model.Invoice, int64, error)
	Update(ctx context.Context, invoice *model.Invoice) error
	CountByPrefix(ctx context.Context, prefix string) (int64, error)

	CreateCharge(ctx context.Context, charge *model.Charge) error
	FindChargeByID(ctx context.Context, id uuid.UUID) (*model.Charge, error)
	UpdateCharge(ctx context.Context, charge *model.Charge) error
	DeleteCharge(ctx context.Context, id uuid.UUID) error
	ListCharges(ctx context.Context, invoiceID uuid.UUID) ([]model.Charge, error)
}

type invoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &invoiceRepository{db: db}
}

func (r *invoiceRepository) Create(ctx context.Context, invoice *model.Invoice) error {
	return GetDB(ctx, r.db).Create(invoice).Error
}

func (r *invoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	var invoice model.Invoice
	if err := GetDB(ctx, r.db).First(&invoice, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) FindByIDWithCharges(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	var invoice model.Invoice
	err := GetDB(ctx, r.db).
		Preload("Charges", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order asc") }).
		Preload("CostInvoice").
		First(&invoice, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) FindByShareToken(ctx context.Context, token string) (*model.Invoice, error) {
	var invoice model.Invoice
	err := GetDB(ctx, r.db).
		Preload("Charges", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order asc") }).
		Preload("Customer").
		First(&invoice, "share_token = ?", token).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) FindByVehicleID(ctx context.Context, vehicleID uuid.UUID) ([]model.Invoice, error) {
	var invoices []model.Invoice
	if err := GetDB(ctx, r.db).Where("vehicle_id = ?", vehicleID).Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *invoiceRepository) List(ctx context.Context, filter InvoiceListFilter) ([]model.Invoice, int64, error) {
	var invoices []model.Invoice
	var total int64

	db := GetDB(ctx, r.db)
	apply := func(q *gorm.DB) *gorm.DB {
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		if filter.PaymentStatus != "" {
			q = q.Where("payment_status = ?", filter.PaymentStatus)
		}
		if filter.CustomerID != nil {
			q = q.Where("customer_id = ?", *filter.CustomerID)
		}
		if filter.VehicleID != nil {
			q = q.Where("vehicle_id = ?", *filter.VehicleID)
		}
		if filter.InvoiceNo != "" {
			q = q.Where("invoice_no LIKE ?", "%"+filter.InvoiceNo+"%")
		}
		return q
	}

	if err := apply(db.Model(&model.Invoice{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	err := apply(db.Preload("Charges").Preload("Customer")).
		Order("created_at desc").Offset(offset).Limit(filter.Limit).
		Find(&invoices).Error
	if err != nil {
		return nil, 0, err
	}

	return invoices, total, nil
}

func (r *invoiceRepository) Update(ctx context.Context, invoice *model.Invoice) error {
	return GetDB(ctx, r.db).Save(invoice).Error
}

func (r *invoiceRepository) CountByPrefix(ctx context.Context, prefix string) (int64, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.Invoice{}).Where("invoice_no LIKE ?", prefix+"%").Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *invoiceRepository) CreateCharge(ctx context.Context, charge *model.Charge) error {
	return GetDB(ctx, r.db).Create(charge).Error
}

func (r *invoiceRepository) FindChargeByID(ctx context.Context, id uuid.UUID) (*model.Charge, error) {
	var charge model.Charge
	if err := GetDB(ctx, r.db).First(&charge, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &charge, nil
}

func (r *invoiceRepository) UpdateCharge(ctx context.Context, charge *model.Charge) error {
	return GetDB(ctx, r.db).Save(charge).Error
}

func (r *invoiceRepository) DeleteCharge(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Delete(&model.Charge{}, "id = ?", id).Error
}

func (r *invoiceRepository) ListCharges(ctx context.Context, invoiceID uuid.UUID) ([]model.Charge, error) {
	var charges []model.Charge
	if err := GetDB(ctx, r.db).Where("invoice_id = ?", invoiceID).Order("sort_order asc").Find(&charges).Error; err != nil {
		return nil, err
	}
	return charges, nil
}

package repository

import (
	"context"

	"github.com/SpaceKap/zervtek-crm-sub003/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type SharedInvoiceRepository interface {
	Create(ctx context.Context, inv *model.SharedInvoice) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.SharedInvoice, error)
	FindByIDWithVehicles(ctx context.Context, id uuid.UUID) (*model.SharedInvoice, error)
	List(ctx context.Context, page, limit int) ([]model.SharedInvoice, int64, error)
	Update(ctx context.Context, inv *model.SharedInvoice) error
	Delete(ctx context.Context, id uuid.UUID) error

	ListAllocations(ctx context.Context, sharedInvoiceID uuid.UUID) ([]model.SharedInvoiceVehicle, error)
	ListAllocationsByVehicle(ctx context.Context, vehicleID uuid.UUID) ([]model.SharedInvoiceVehicle, error)
	CreateAllocation(ctx context.Context, row *model.SharedInvoiceVehicle) error
	UpdateAllocationAmounts(ctx context.Context, sharedInvoiceID uuid.UUID, amount decimal.Decimal) error
	DeleteAllocation(ctx context.Context, sharedInvoiceID, vehicleID uuid.UUID) error
	DeleteAllocations(ctx context.Context, sharedInvoiceID uuid.UUID) error

	CountContainerInvoices(ctx context.Context, sharedInvoiceID uuid.UUID) (int64, error)
	CreateContainerInvoice(ctx context.Context, ci *model.ContainerInvoice) error
	ListContainerInvoices(ctx context.Context, sharedInvoiceID uuid.UUID) ([]model.ContainerInvoice, error)
}

type sharedInvoiceRepository struct {
	db *gorm.DB
}

func NewSharedInvoiceRepository(db *gorm.DB) SharedInvoiceRepository {
	return &sharedInvoiceRepository{db: db}
}

func (r *sharedInvoiceRepository) Create(ctx context.Context, inv *model.SharedInvoice) error {
	return GetDB(ctx, r.db).Create(inv).Error
}

func (r *sharedInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.SharedInvoice, error) {
	var inv model.SharedInvoice
	if err := GetDB(ctx, r.db).First(&inv, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *sharedInvoiceRepository) FindByIDWithVehicles(ctx context.Context, id uuid.UUID) (*model.SharedInvoice, error) {
	var inv model.SharedInvoice
	if err := GetDB(ctx, r.db).Preload("Vehicles").First(&inv, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *sharedInvoiceRepository) List(ctx context.Context, page, limit int) ([]model.SharedInvoice, int64, error) {
	var invoices []model.SharedInvoice
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.SharedInvoice{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("Vehicles").Order("created_at desc").Offset(offset).Limit(limit).Find(&invoices).Error; err != nil {
		return nil, 0, err
	}

	return invoices, total, nil
}

func (r *sharedInvoiceRepository) Update(ctx context.Context, inv *model.SharedInvoice) error {
	return GetDB(ctx, r.db).Save(inv).Error
}

func (r *sharedInvoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Delete(&model.SharedInvoice{}, "id = ?", id).Error
}

func (r *sharedInvoiceRepository) ListAllocations(ctx context.Context, sharedInvoiceID uuid.UUID) ([]model.SharedInvoiceVehicle, error) {
	var rows []model.SharedInvoiceVehicle
	if err := GetDB(ctx, r.db).Where("shared_invoice_id = ?", sharedInvoiceID).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *sharedInvoiceRepository) ListAllocationsByVehicle(ctx context.Context, vehicleID uuid.UUID) ([]model.SharedInvoiceVehicle, error) {
	var rows []model.SharedInvoiceVehicle
	if err := GetDB(ctx, r.db).Where("vehicle_id = ?", vehicleID).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *sharedInvoiceRepository) CreateAllocation(ctx context.Context, row *model.SharedInvoiceVehicle) error {
	return GetDB(ctx, r.db).Create(row).Error
}

// UpdateAllocationAmounts rewrites every allocation row of a shared invoice
// to the same per-vehicle amount.
func (r *sharedInvoiceRepository) UpdateAllocationAmounts(ctx context.Context, sharedInvoiceID uuid.UUID, amount decimal.Decimal) error {
	return GetDB(ctx, r.db).Model(&model.SharedInvoiceVehicle{}).
		Where("shared_invoice_id = ?", sharedInvoiceID).
		Update("allocated_amount", amount).Error
}

func (r *sharedInvoiceRepository) DeleteAllocation(ctx context.Context, sharedInvoiceID, vehicleID uuid.UUID) error {
	return GetDB(ctx, r.db).
		Where("shared_invoice_id = ? AND vehicle_id = ?", sharedInvoiceID, vehicleID).
		Delete(&model.SharedInvoiceVehicle{}).Error
}

func (r *sharedInvoiceRepository) DeleteAllocations(ctx context.Context, sharedInvoiceID uuid.UUID) error {
	return GetDB(ctx, r.db).
		Where("shared_invoice_id = ?", sharedInvoiceID).
		Delete(&model.SharedInvoiceVehicle{}).Error
}

func (r *sharedInvoiceRepository) CountContainerInvoices(ctx context.Context, sharedInvoiceID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.ContainerInvoice{}).
		Where("shared_invoice_id = ?", sharedInvoiceID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *sharedInvoiceRepository) CreateContainerInvoice(ctx context.Context, ci *model.ContainerInvoice) error {
	return GetDB(ctx, r.db).Create(ci).Error
}

func (r *sharedInvoiceRepository) ListContainerInvoices(ctx context.Context, sharedInvoiceID uuid.UUID) ([]model.ContainerInvoice, error) {
	var rows []model.ContainerInvoice
	if err := GetDB(ctx, r.db).Where("shared_invoice_id = ?", sharedInvoiceID).Order("created_at asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

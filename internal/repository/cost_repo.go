package repository

import (
	"context"

	"github.com/SpaceKap/zervtek-crm-sub003/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CostRepository interface {
	FindByInvoiceID(ctx context.Context, invoiceID uuid.UUID) (*model.CostInvoice, error)
	FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.CostInvoice, error)
	Create(ctx context.Context, costInvoice *model.CostInvoice) error
	Update(ctx context.Context, costInvoice *model.CostInvoice) error

	CreateItem(ctx context.Context, item *model.CostItem) error
	FindItemByID(ctx context.Context, id uuid.UUID) (*model.CostItem, error)
	UpdateItem(ctx context.Context, item *model.CostItem) error
	DeleteItem(ctx context.Context, id uuid.UUID) error
	ListItems(ctx context.Context, costInvoiceID uuid.UUID) ([]model.CostItem, error)
}

type costRepository struct {
	db *gorm.DB
}

func NewCostRepository(db *gorm.DB) CostRepository {
	return &costRepository{db: db}
}

func (r *costRepository) FindByInvoiceID(ctx context.Context, invoiceID uuid.UUID) (*model.CostInvoice, error) {
	var ci model.CostInvoice
	if err := GetDB(ctx, r.db).First(&ci, "invoice_id = ?", invoiceID).Error; err != nil {
		return nil, err
	}
	return &ci, nil
}

func (r *costRepository) FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.CostInvoice, error) {
	var ci model.CostInvoice
	err := GetDB(ctx, r.db).
		Preload("CostItems", func(db *gorm.DB) *gorm.DB { return db.Order("payment_deadline asc") }).
		First(&ci, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &ci, nil
}

func (r *costRepository) Create(ctx context.Context, costInvoice *model.CostInvoice) error {
	return GetDB(ctx, r.db).Create(costInvoice).Error
}

func (r *costRepository) Update(ctx context.Context, costInvoice *model.CostInvoice) error {
	return GetDB(ctx, r.db).Save(costInvoice).Error
}

func (r *costRepository) CreateItem(ctx context.Context, item *model.CostItem) error {
	return GetDB(ctx, r.db).Create(item).Error
}

func (r *costRepository) FindItemByID(ctx context.Context, id uuid.UUID) (*model.CostItem, error) {
	var item model.CostItem
	if err := GetDB(ctx, r.db).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *costRepository) UpdateItem(ctx context.Context, item *model.CostItem) error {
	return GetDB(ctx, r.db).Save(item).Error
}

func (r *costRepository) DeleteItem(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Delete(&model.CostItem{}, "id = ?", id).Error
}

func (r *costRepository) ListItems(ctx context.Context, costInvoiceID uuid.UUID) ([]model.CostItem, error) {
	var items []model.CostItem
	if err := GetDB(ctx, r.db).Where("cost_invoice_id = ?", costInvoiceID).Order("payment_deadline asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

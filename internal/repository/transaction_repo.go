package repository

import (
	"context"

	"github.com/SpaceKap/zervtek-crm-sub003/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TransactionRepository appends and reads ledger entries. The ledger is
// append-only: there is deliberately no update or delete here.
type TransactionRepository interface {
	Append(ctx context.Context, tx *model.Transaction) error
	ListByCustomer(ctx context.Context, customerID uuid.UUID, currency string) ([]model.Transaction, error)
	ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]model.Transaction, error)
	List(ctx context.Context, page, limit int) ([]model.Transaction, int64, error)
}

type transactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Append(ctx context.Context, tx *model.Transaction) error {
	return GetDB(ctx, r.db).Create(tx).Error
}

func (r *transactionRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID, currency string) ([]model.Transaction, error) {
	var txs []model.Transaction
	query := GetDB(ctx, r.db).Where("customer_id = ?", customerID)
	if currency != "" {
		query = query.Where("currency = ?", currency)
	}
	if err := query.Order("occurred_at asc").Find(&txs).Error; err != nil {
		return nil, err
	}
	return txs, nil
}

func (r *transactionRepository) ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]model.Transaction, error) {
	var txs []model.Transaction
	if err := GetDB(ctx, r.db).Where("invoice_id = ?", invoiceID).Order("occurred_at asc").Find(&txs).Error; err != nil {
		return nil, err
	}
	return txs, nil
}

func (r *transactionRepository) List(ctx context.Context, page, limit int) ([]model.Transaction, int64, error) {
	var txs []model.Transaction
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Transaction{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("occurred_at desc").Offset(offset).Limit(limit).Find(&txs).Error; err != nil {
		return nil, 0, err
	}

	return txs, total, nil
}

package database

import (
	"github.com/SpaceKap/zervtek-crm-sub003/internal/model"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Auto-migrate core models
	err = db.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.Role{},
		&model.Permission{},
		&model.AuditLog{},
		&model.Customer{},
		&model.CustomerAddress{},
		&model.Vehicle{},
		&model.Invoice{},
		&model.Charge{},
		&model.CostInvoice{},
		&model.CostItem{},
		&model.SharedInvoice{},
		&model.SharedInvoiceVehicle{},
		&model.ContainerInvoice{},
		&model.Transaction{},
	)
	if err != nil {
		log.Warn().Err(err).Msg("failed to auto-migrate models")
	}

	return db, nil
}

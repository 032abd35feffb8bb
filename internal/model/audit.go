package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreateInvoice   = "CREATE_INVOICE"
	ActionUpdateInvoice   = "UPDATE_INVOICE"
	ActionSubmitInvoice   = "SUBMIT_INVOICE"
	ActionApproveInvoice  = "APPROVE_INVOICE"
	ActionRejectInvoice   = "REJECT_INVOICE"
	ActionFinalizeInvoice = "FINALIZE_INVOICE"
	ActionUnlockInvoice   = "UNLOCK_INVOICE"

	ActionCreateCostItem = "CREATE_COST_ITEM"
	ActionUpdateCostItem = "UPDATE_COST_ITEM"
	ActionDeleteCostItem = "DELETE_COST_ITEM"

	ActionAddCharge    = "ADD_CHARGE"
	ActionUpdateCharge = "UPDATE_CHARGE"
	ActionDeleteCharge = "DELETE_CHARGE"

	ActionCreateSharedInvoice = "CREATE_SHARED_INVOICE"
	ActionSetAllocations      = "SET_ALLOCATIONS"
	ActionRemoveAllocation    = "REMOVE_ALLOCATION"
	ActionDeleteSharedInvoice = "DELETE_SHARED_INVOICE"

	ActionRecordPayment = "RECORD_PAYMENT"
	ActionRecordDeposit = "RECORD_DEPOSIT"
	ActionRecordRefund  = "RECORD_REFUND"
	ActionApplyWallet   = "APPLY_WALLET"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable gracefully if automated bot
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`        // Reference string (uuid/code)
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Human readable name
	Details    string     `gorm:"type:jsonb" json:"details"`                      // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}

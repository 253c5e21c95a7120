// Append-only audit trail for dispute decisions.
package domain

import "time"

// ChargebackAction is one row per state-changing decision, written once and
// never mutated or deleted by normal flow. Besides the decision itself, each
// row snapshots the transaction's timing, security, and entry-mode indicators
// at decision time so compliance analytics do not depend on the mutable
// transaction row.
type ChargebackAction struct {
	ID            string    `json:"id"             gorm:"type:char(36);primaryKey"`
	TransactionID string    `json:"transaction_id" gorm:"type:char(36);not null;index:idx_txn_actions"`
	Action        string    `json:"action"         gorm:"type:varchar(64);not null"`
	Details       string    `json:"details"        gorm:"type:text"`
	PerformedBy   string    `json:"performed_by"   gorm:"type:varchar(64);not null"`

	// Compliance snapshot, copied from the transaction at decision time.
	TransactionAt     time.Time  `json:"transaction_at"`
	SettledAt         *time.Time `json:"settled_at,omitempty"`
	SecuredIndication string     `json:"secured_indication" gorm:"type:varchar(8)"`
	PosEntryMode      string     `json:"pos_entry_mode"     gorm:"type:varchar(8)"`
	WalletType        string     `json:"wallet_type"        gorm:"type:varchar(32)"`

	CreatedAt time.Time `json:"created_at" gorm:"index:idx_txn_actions,priority:2"`
}

// TableName returns the database table name for ChargebackAction.
func (ChargebackAction) TableName() string { return "chargeback_actions" }

// Audit action names.
const (
	ActionEligibilityChecked       = "eligibility_checked"
	ActionRepresentmentDetected    = "representment_detected"
	ActionRepresentmentAccepted    = "representment_accepted"
	ActionRepresentmentRejected    = "representment_rejected"
	ActionCreditReversalFailed     = "temporary_credit_reversal_failed"
	ActionCustomerEvidenceScored   = "customer_evidence_scored"
	ActionCustomerEvidenceRejected = "customer_evidence_rejected"
)

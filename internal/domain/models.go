// Package domain defines the persistence models for transactions, disputes,
// representments, and evidence. These types are mapped with GORM and form the
// core data layer of the dispute backend.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Transaction is the bank-ledger view of a single card payment. The commerce
// facts (amount, merchant, acquirer, entry mode) are owned by the upstream
// card-network feed and are never mutated here; only the dispute-related
// fields change while a case is in flight.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - UserID: identifier of the cardholder; indexed for efficient retrieval.
//   - Amount / Currency: settled amount in the transaction currency.
//   - LocalAmount / LocalCurrency: amount as charged in the cardholder's
//     local currency, when the acquirer reported one.
//   - SecuredIndication: 3-D Secure / OTP indicator code reported at
//     authorization time ("2" and "212" are the OTP-secured codes).
//   - PosEntryMode: how the card was presented (chip, contactless, ecom...).
//   - WalletType: digital wallet used, if any ("Apple Pay", "Google Pay", ...).
//   - Settled / SettledAt: whether the acquiring side finalized funds movement.
//   - RefundReceived / RefundAmount: merchant-initiated refund, if any.
//   - DisputeStatus / NeedsAttention: dispute lifecycle fields owned by this
//     service. NeedsAttention is true iff the case waits on a bank decision.
//   - TemporaryCreditProvided / TemporaryCreditAmount /
//     TemporaryCreditReversalAt: provisional refund bookkeeping. Once a
//     reversal is stamped the credit cannot be re-provided without a new
//     explicit grant.
type Transaction struct {
	ID                        string         `json:"id"             gorm:"type:char(36);primaryKey"`
	UserID                    string         `json:"user_id"        gorm:"type:varchar(64);not null;index:idx_user_txns"`
	Amount                    float64        `json:"amount"         gorm:"not null"`
	Currency                  string         `json:"currency"       gorm:"type:varchar(3);not null"`
	LocalAmount               float64        `json:"local_amount"`
	LocalCurrency             string         `json:"local_currency" gorm:"type:varchar(3)"`
	MerchantName              string         `json:"merchant_name"  gorm:"type:varchar(255);not null"`
	AcquirerName              string         `json:"acquirer_name"  gorm:"type:varchar(255)"`
	SecuredIndication         string         `json:"secured_indication" gorm:"type:varchar(8)"`
	PosEntryMode              string         `json:"pos_entry_mode"     gorm:"type:varchar(8)"`
	WalletType                string         `json:"wallet_type"        gorm:"type:varchar(32)"`
	IsWalletPayment           bool           `json:"is_wallet_payment"`
	Settled                   bool           `json:"settled"`
	SettledAt                 *time.Time     `json:"settled_at,omitempty"`
	TransactionAt             time.Time      `json:"transaction_at" gorm:"not null;index"`
	RefundReceived            bool           `json:"refund_received"`
	RefundAmount              float64        `json:"refund_amount"`
	DisputeStatus             DisputeStatus  `json:"dispute_status" gorm:"type:varchar(40);not null;default:''"`
	NeedsAttention            bool           `json:"needs_attention" gorm:"index"`
	TemporaryCreditProvided   bool           `json:"temporary_credit_provided"`
	TemporaryCreditAmount     float64        `json:"temporary_credit_amount"`
	TemporaryCreditReversalAt *time.Time     `json:"temporary_credit_reversal_at,omitempty"`
	CreatedAt                 time.Time      `json:"created_at"`
	UpdatedAt                 time.Time      `json:"updated_at"`
	DeletedAt                 gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName returns the database table name for Transaction.
func (Transaction) TableName() string { return "transactions" }

// Dispute is the active case opened against a transaction. At most one
// non-terminal dispute exists per transaction; its Status mirrors (but is not
// always identical to) the transaction's DisputeStatus.
type Dispute struct {
	ID             string         `json:"id"              gorm:"type:char(36);primaryKey"`
	TransactionID  string         `json:"transaction_id"  gorm:"type:char(36);not null;index"`
	UserID         string         `json:"user_id"         gorm:"type:varchar(64);not null;index"`
	ConversationID string         `json:"conversation_id" gorm:"type:char(36);index"`
	Category       string         `json:"category"        gorm:"type:varchar(32)"`
	Reason         string         `json:"reason"          gorm:"type:text"`
	Status         DisputeStatus  `json:"status"          gorm:"type:varchar(40);not null"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`

	Transaction Transaction `json:"-" gorm:"foreignKey:TransactionID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Dispute.
func (Dispute) TableName() string { return "disputes" }

// Representment is the merchant's counter-evidence contesting a chargeback.
// Several rows may accumulate for one transaction over a long case; only the
// latest by creation time is considered active. Resolving a representment
// (acceptance or customer-evidence rejection) is terminal for that row.
type Representment struct {
	ID               string              `json:"id"             gorm:"type:char(36);primaryKey"`
	TransactionID    string              `json:"transaction_id" gorm:"type:char(36);not null;index:idx_txn_representments"`
	HasRepresentment bool                `json:"has_representment"`
	Details          string              `json:"details"        gorm:"type:text"`
	DueAt            *time.Time          `json:"due_at,omitempty"`
	Status           RepresentmentStatus `json:"status"         gorm:"type:varchar(40);not null"`
	ResolvedAt       *time.Time          `json:"resolved_at,omitempty"`
	CreatedAt        time.Time           `json:"created_at"     gorm:"index:idx_txn_representments,priority:2"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// TableName returns the database table name for Representment.
func (Representment) TableName() string { return "representments" }

// EvidenceRequest is an open ask for the customer to supply more evidence,
// created when the bank rejects a representment and re-opens the case.
// Lifecycle: pending_upload → submitted.
type EvidenceRequest struct {
	ID              string    `json:"id"               gorm:"type:char(36);primaryKey"`
	TransactionID   string    `json:"transaction_id"   gorm:"type:char(36);not null;index"`
	RepresentmentID string    `json:"representment_id" gorm:"type:char(36);index"`
	RequestedItems  string    `json:"requested_items"  gorm:"type:text"` // JSON array of item names
	Status          string    `json:"status"           gorm:"type:varchar(20);not null;check:status IN ('pending_upload','submitted')"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName returns the database table name for EvidenceRequest.
func (EvidenceRequest) TableName() string { return "evidence_requests" }

// EvidenceRequest status values.
const (
	EvidenceRequestPending   = "pending_upload"
	EvidenceRequestSubmitted = "submitted"
)

// CustomerEvidence is a customer's rebuttal submission (free-text note plus
// file metadata) against a representment or a generic evidence request,
// together with the AI-derived sufficiency verdict. Human reviewers may later
// overrule the verdict; the row itself is never rewritten by the AI again.
type CustomerEvidence struct {
	ID                string     `json:"id"                  gorm:"type:char(36);primaryKey"`
	TransactionID     string     `json:"transaction_id"      gorm:"type:char(36);not null;index"`
	RepresentmentID   string     `json:"representment_id"    gorm:"type:char(36);index"`
	EvidenceRequestID string     `json:"evidence_request_id" gorm:"type:char(36);index"`
	Note              string     `json:"note"                gorm:"type:text"`
	FileNames         string     `json:"file_names"          gorm:"type:text"` // JSON array
	Sufficient        bool       `json:"sufficient"`
	Summary           string     `json:"summary"             gorm:"type:text"`
	Reasons           string     `json:"reasons"             gorm:"type:text"` // JSON array
	ReviewedBy        string     `json:"reviewed_by"         gorm:"type:varchar(64)"`
	ReviewedAt        *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// TableName returns the database table name for CustomerEvidence.
func (CustomerEvidence) TableName() string { return "customer_evidence" }

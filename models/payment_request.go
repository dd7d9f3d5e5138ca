package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type RequestKind string

const (
	KindDeposit    RequestKind = "deposit"
	KindWithdrawal RequestKind = "withdrawal"
)

func (k RequestKind) Valid() bool {
	return k == KindDeposit || k == KindWithdrawal
}

type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusApproved  RequestStatus = "approved"
	StatusRejected  RequestStatus = "rejected"
	StatusCancelled RequestStatus = "cancelled"
)

func (s RequestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

func (s RequestStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusCancelled
}

type PaymentRequest struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	Reference  string          `gorm:"size:36;uniqueIndex;not null" json:"reference"`
	ProfileID  uint            `gorm:"index;not null" json:"profile_id"`
	Kind       RequestKind     `gorm:"size:16;index;not null" json:"kind"`
	Amount     decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"amount"`
	Method     PaymentMethod   `gorm:"size:24;not null" json:"method"`
	Details    Details         `json:"details"`
	Status     RequestStatus   `gorm:"size:16;index;not null" json:"status"`
	ProofRef   *string         `gorm:"size:255" json:"proof_ref,omitempty"`
	ReviewerID *uint           `gorm:"index" json:"reviewer_id,omitempty"`
	Notes      *string         `gorm:"size:500" json:"notes,omitempty"`
	CreatedAt  time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`

	Owner    *Profile `gorm:"foreignKey:ProfileID" json:"-"`
	Reviewer *Profile `gorm:"foreignKey:ReviewerID" json:"-"`
}

// Signed is the ledger amount an approval of this request posts.
func (r *PaymentRequest) Signed() decimal.Decimal {
	if r.Kind == KindWithdrawal {
		return r.Amount.Neg()
	}
	return r.Amount
}

func (r *PaymentRequest) TransactionKind() TransactionKind {
	if r.Kind == KindWithdrawal {
		return TrxWithdrawal
	}
	return TrxDeposit
}

func (r *PaymentRequest) BeforeCreate(tx *gorm.DB) error {
	if r.Status == "" {
		r.Status = StatusPending
	}
	return nil
}

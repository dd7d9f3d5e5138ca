package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionKind string

const (
	TrxDeposit        TransactionKind = "deposit"
	TrxWithdrawal     TransactionKind = "withdrawal"
	TrxAdminAdd       TransactionKind = "admin_add"
	TrxAdminSubtract  TransactionKind = "admin_subtract"
	TrxAdminSet       TransactionKind = "admin_set"
	TrxBet            TransactionKind = "bet"
	TrxWin            TransactionKind = "win"
	TrxReferralReward TransactionKind = "referral_reward"
)

func (k TransactionKind) Valid() bool {
	switch k {
	case TrxDeposit, TrxWithdrawal, TrxAdminAdd, TrxAdminSubtract, TrxAdminSet,
		TrxBet, TrxWin, TrxReferralReward:
		return true
	}
	return false
}

const TransactionCompleted = "completed"

// Transaction is an append-only ledger row. It is never updated or deleted.
type Transaction struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	ProfileID     uint            `gorm:"index;not null" json:"profile_id"`
	Amount        decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"amount"`
	Kind          TransactionKind `gorm:"size:24;index;not null" json:"kind"`
	Status        string          `gorm:"size:16;not null" json:"status"`
	Description   string          `gorm:"size:255" json:"description"`
	BalanceBefore decimal.Decimal `gorm:"type:numeric(20,2)" json:"balance_before"`
	BalanceAfter  decimal.Decimal `gorm:"type:numeric(20,2)" json:"balance_after"`
	RefID         string          `gorm:"size:64;index" json:"ref_id,omitempty"`
	CreatedAt     time.Time       `gorm:"index" json:"created_at"`
}

package services

import (
	"context"
	"time"

	"cashier/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type SummaryRange struct {
	Start *time.Time
	End   *time.Time
}

type RequestAggregate struct {
	Kind   models.RequestKind   `json:"kind"`
	Status models.RequestStatus `json:"status"`
	Count  int64                `json:"count"`
	Amount decimal.Decimal      `json:"amount"`
}

type TransactionAggregate struct {
	Kind   models.TransactionKind `json:"kind"`
	Count  int64                  `json:"count"`
	Amount decimal.Decimal        `json:"amount"`
}

type Summary struct {
	From         *time.Time             `json:"from,omitempty"`
	To           *time.Time             `json:"to,omitempty"`
	Requests     []RequestAggregate     `json:"requests"`
	Transactions []TransactionAggregate `json:"transactions"`
	Pending      int64                  `json:"pending"`
	TotalBalance decimal.Decimal        `json:"total_balance"`
}

func (l *Listing) within(q *gorm.DB, r SummaryRange) *gorm.DB {
	if r.Start != nil {
		q = q.Where("created_at >= ?", *r.Start)
	}
	if r.End != nil {
		q = q.Where("created_at < ?", *r.End)
	}
	return q
}

// Summary aggregates requests and ledger activity created within r. The
// pending count and total balance are point-in-time values.
func (l *Listing) Summary(ctx context.Context, _ Admin, r SummaryRange) (*Summary, error) {
	if r.Start != nil && r.End != nil && !r.End.After(*r.Start) {
		return nil, validation("INVALID_RANGE", "end date must be after start date")
	}
	db := l.db.WithContext(ctx)
	out := &Summary{From: r.Start, To: r.End, Requests: []RequestAggregate{}, Transactions: []TransactionAggregate{}}

	if err := l.within(db.Model(&models.PaymentRequest{}), r).
		Select("kind, status, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS amount").
		Group("kind, status").
		Order("kind, status").
		Scan(&out.Requests).Error; err != nil {
		return nil, dependency("aggregate requests", err)
	}

	if err := l.within(db.Model(&models.Transaction{}), r).
		Select("kind, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS amount").
		Group("kind").
		Order("kind").
		Scan(&out.Transactions).Error; err != nil {
		return nil, dependency("aggregate transactions", err)
	}

	if err := db.Model(&models.PaymentRequest{}).
		Where("status = ?", models.StatusPending).
		Count(&out.Pending).Error; err != nil {
		return nil, dependency("count pending", err)
	}

	var total struct{ Total decimal.Decimal }
	if err := db.Model(&models.Profile{}).
		Select("COALESCE(SUM(balance), 0) AS total").
		Scan(&total).Error; err != nil {
		return nil, dependency("sum balances", err)
	}
	out.TotalBalance = total.Total
	return out, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"cashier/metrics"
	"cashier/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Entry is one balance-affecting event to post to the ledger.
type Entry struct {
	ProfileID   uint
	Amount      decimal.Decimal
	Kind        models.TransactionKind
	Description string
	RefID       string
}

type Ledger struct {
	db     *gorm.DB
	fanout *Fanout
	log    *zap.Logger
}

func NewLedger(db *gorm.DB, fanout *Fanout, log *zap.Logger) *Ledger {
	return &Ledger{db: db, fanout: fanout, log: log}
}

func lockProfile(tx *gorm.DB, profileID uint) (*models.Profile, error) {
	var p models.Profile
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, profileID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("PROFILE_NOT_FOUND", "profile not found")
	}
	if err != nil {
		return nil, dependency("lock profile", err)
	}
	return &p, nil
}

// AdjustBalance applies delta to the profile balance inside tx and returns the
// balances around the change. The write is guarded by balance + delta >= 0 on
// a row locked for update, so concurrent callers serialize and the balance
// never goes negative.
func (l *Ledger) AdjustBalance(tx *gorm.DB, profileID uint, delta decimal.Decimal) (before, after decimal.Decimal, err error) {
	if _, err := lockProfile(tx, profileID); err != nil {
		return before, after, err
	}

	res := tx.Model(&models.Profile{}).
		Where("id = ? AND balance + ? >= 0", profileID, delta).
		Update("balance", gorm.Expr("balance + ?", delta))
	if res.Error != nil {
		return before, after, dependency("update balance", res.Error)
	}
	if res.RowsAffected == 0 {
		return before, after, negativeBalance()
	}

	var p models.Profile
	if err := tx.Select("id", "balance").First(&p, profileID).Error; err != nil {
		return before, after, dependency("reload balance", err)
	}
	after = p.Balance
	before = after.Sub(delta)
	return before, after, nil
}

// Post adjusts the balance and appends the matching transaction row. It is the
// only path by which a balance changes.
func (l *Ledger) Post(tx *gorm.DB, e Entry) (*models.Transaction, error) {
	if !e.Kind.Valid() {
		return nil, validation("INVALID_TRANSACTION_KIND", "unknown transaction kind "+string(e.Kind))
	}

	before, after, err := l.AdjustBalance(tx, e.ProfileID, e.Amount)
	if err != nil {
		return nil, err
	}

	trx := &models.Transaction{
		ProfileID:     e.ProfileID,
		Amount:        e.Amount,
		Kind:          e.Kind,
		Status:        models.TransactionCompleted,
		Description:   e.Description,
		BalanceBefore: before,
		BalanceAfter:  after,
		RefID:         e.RefID,
	}
	if err := tx.Create(trx).Error; err != nil {
		return nil, dependency("append transaction", err)
	}
	return trx, nil
}

func (l *Ledger) Balance(ctx context.Context, user User) (*models.Profile, error) {
	var p models.Profile
	err := l.db.WithContext(ctx).First(&p, user.ProfileID()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("PROFILE_NOT_FOUND", "profile not found")
	}
	if err != nil {
		return nil, dependency("load balance", err)
	}
	return &p, nil
}

type AdjustAction string

const (
	AdjustAdd      AdjustAction = "add"
	AdjustSubtract AdjustAction = "subtract"
	AdjustSet      AdjustAction = "set"
)

type AdjustRequest struct {
	ProfileID uint
	Action    AdjustAction
	Amount    decimal.Decimal
	AdminNote string
	UserNote  string
}

type AdjustResult struct {
	ProfileID     uint                `json:"profile_id"`
	BalanceBefore decimal.Decimal     `json:"balance_before"`
	NewBalance    decimal.Decimal     `json:"new_balance"`
	Transaction   *models.Transaction `json:"transaction"`
}

func (r AdjustRequest) validate() error {
	if r.ProfileID == 0 {
		return validation("PROFILE_ID_REQUIRED", "profile id is required")
	}
	switch r.Action {
	case AdjustAdd, AdjustSubtract:
		if !r.Amount.IsPositive() {
			return validation("INVALID_AMOUNT", "amount must be greater than zero")
		}
	case AdjustSet:
		if r.Amount.IsNegative() {
			return validation("INVALID_AMOUNT", "amount must not be negative")
		}
	default:
		return validation("INVALID_ACTION", "action must be one of add, subtract, set")
	}
	if !r.Amount.Equal(r.Amount.Round(2)) {
		return validation("AMOUNT_PRECISION", "amount supports at most 2 decimal places")
	}
	return nil
}

// AdminAdjust corrects a balance outside the request flow. Subtractions that
// would go negative fail instead of clamping. The transaction row, audit entry
// and optional user notification commit together.
func (l *Ledger) AdminAdjust(ctx context.Context, admin Admin, req AdjustRequest) (*AdjustResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	req.AdminNote = strings.TrimSpace(req.AdminNote)
	req.UserNote = strings.TrimSpace(req.UserNote)

	var result AdjustResult
	var note *models.Notification

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := lockProfile(tx, req.ProfileID)
		if err != nil {
			return err
		}

		var delta decimal.Decimal
		var kind models.TransactionKind
		switch req.Action {
		case AdjustAdd:
			delta, kind = req.Amount, models.TrxAdminAdd
		case AdjustSubtract:
			delta, kind = req.Amount.Neg(), models.TrxAdminSubtract
		case AdjustSet:
			delta, kind = req.Amount.Sub(p.Balance), models.TrxAdminSet
		}

		desc := "Admin " + string(req.Action)
		if req.AdminNote != "" {
			desc += ": " + req.AdminNote
		}
		trx, err := l.Post(tx, Entry{
			ProfileID:   p.ID,
			Amount:      delta,
			Kind:        kind,
			Description: desc,
		})
		if err != nil {
			return err
		}

		log := &models.AdminLog{
			AdminID:    admin.ProfileID(),
			Action:     models.ActionAdjustBalance,
			EntityType: models.EntityProfile,
			EntityID:   strconv.FormatUint(uint64(p.ID), 10),
			Details: datatypes.JSONMap{
				"action":         string(req.Action),
				"amount":         req.Amount.String(),
				"delta":          delta.String(),
				"balance_before": trx.BalanceBefore.String(),
				"balance_after":  trx.BalanceAfter.String(),
				"transaction_id": trx.ID,
				"admin_note":     req.AdminNote,
			},
		}
		if err := tx.Create(log).Error; err != nil {
			return dependency("append admin log", err)
		}

		if req.UserNote != "" {
			ref := strconv.FormatUint(uint64(trx.ID), 10)
			note, err = l.fanout.Record(tx, NotificationInput{
				ProfileID:   p.ID,
				Title:       "Balance updated",
				Content:     fmt.Sprintf("Your balance is now %s. %s", trx.BalanceAfter.StringFixed(2), req.UserNote),
				Type:        models.NotificationBalance,
				ReferenceID: &ref,
			})
			if err != nil {
				return err
			}
		}

		result = AdjustResult{
			ProfileID:     p.ID,
			BalanceBefore: trx.BalanceBefore,
			NewBalance:    trx.BalanceAfter,
			Transaction:   trx,
		}
		return nil
	})
	if err != nil {
		metrics.BalanceAdjustments.WithLabelValues(string(req.Action), KindOf(err).String()).Inc()
		return nil, err
	}
	metrics.BalanceAdjustments.WithLabelValues(string(req.Action), "ok").Inc()

	l.log.Info("balance adjusted",
		zap.Uint("admin_id", admin.ProfileID()),
		zap.Uint("profile_id", result.ProfileID),
		zap.String("action", string(req.Action)),
		zap.String("new_balance", result.NewBalance.String()),
	)
	l.fanout.Dispatch(note)
	return &result, nil
}

type Reconciliation struct {
	ProfileID  uint            `json:"profile_id"`
	Balance    decimal.Decimal `json:"balance"`
	LedgerSum  decimal.Decimal `json:"ledger_sum"`
	Entries    int64           `json:"entries"`
	Consistent bool            `json:"consistent"`
}

// Reconcile compares a profile balance with the sum of its transactions.
func (l *Ledger) Reconcile(ctx context.Context, _ Admin, profileID uint) (*Reconciliation, error) {
	db := l.db.WithContext(ctx)

	var p models.Profile
	err := db.Select("id", "balance").First(&p, profileID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("PROFILE_NOT_FOUND", "profile not found")
	}
	if err != nil {
		return nil, dependency("load profile", err)
	}

	var agg struct {
		Total   decimal.Decimal
		Entries int64
	}
	if err := db.Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount), 0) AS total, COUNT(*) AS entries").
		Where("profile_id = ?", profileID).
		Scan(&agg).Error; err != nil {
		return nil, dependency("sum transactions", err)
	}

	return &Reconciliation{
		ProfileID:  p.ID,
		Balance:    p.Balance,
		LedgerSum:  agg.Total,
		Entries:    agg.Entries,
		Consistent: p.Balance.Equal(agg.Total),
	}, nil
}

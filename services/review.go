package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cashier/metrics"
	"cashier/models"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Review settles pending payment requests. Every transition out of pending is
// a conditional write, so exactly one concurrent caller wins and the others see
// InvalidState.
type Review struct {
	db     *gorm.DB
	ledger *Ledger
	fanout *Fanout
	log    *zap.Logger
}

func NewReview(db *gorm.DB, ledger *Ledger, fanout *Fanout, log *zap.Logger) *Review {
	return &Review{db: db, ledger: ledger, fanout: fanout, log: log}
}

func lockRequest(tx *gorm.DB, requestID uint) (*models.PaymentRequest, error) {
	var req models.PaymentRequest
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&req, requestID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("REQUEST_NOT_FOUND", "payment request not found")
	}
	if err != nil {
		return nil, dependency("load payment request", err)
	}
	return &req, nil
}

func requirePending(req *models.PaymentRequest) error {
	if req.Status != models.StatusPending {
		return invalidState("REQUEST_NOT_PENDING", "payment request is already "+string(req.Status))
	}
	return nil
}

// transition moves req from pending to status. Zero affected rows means
// another caller settled it first.
func transition(tx *gorm.DB, req *models.PaymentRequest, status models.RequestStatus, reviewerID *uint, notes *string) error {
	now := time.Now()
	updates := map[string]any{
		"status":     status,
		"updated_at": now,
	}
	if reviewerID != nil {
		updates["reviewer_id"] = *reviewerID
	}
	if notes != nil {
		updates["notes"] = *notes
	}

	res := tx.Model(&models.PaymentRequest{}).
		Where("id = ? AND status = ?", req.ID, models.StatusPending).
		Updates(updates)
	if res.Error != nil {
		return dependency("update payment request", res.Error)
	}
	if res.RowsAffected == 0 {
		return invalidState("REQUEST_NOT_PENDING", "payment request was settled concurrently")
	}

	req.Status = status
	req.ReviewerID = reviewerID
	if notes != nil {
		req.Notes = notes
	}
	req.UpdatedAt = now
	return nil
}

func optionalNotes(notes string) *string {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return nil
	}
	return &notes
}

func ptrString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Approve settles a pending request: balance change, ledger row, status write,
// audit entry and owner notification commit as one unit.
func (r *Review) Approve(ctx context.Context, admin Admin, requestID uint, notes string) (*models.PaymentRequest, error) {
	reviewer := admin.ProfileID()
	note := optionalNotes(notes)

	var req *models.PaymentRequest
	var trx *models.Transaction
	var n *models.Notification

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if req, err = lockRequest(tx, requestID); err != nil {
			return err
		}
		if err := requirePending(req); err != nil {
			return err
		}

		trx, err = r.ledger.Post(tx, Entry{
			ProfileID:   req.ProfileID,
			Amount:      req.Signed(),
			Kind:        req.TransactionKind(),
			Description: fmt.Sprintf("%s request %s approved", req.Kind, req.Reference),
			RefID:       req.Reference,
		})
		if errors.Is(err, ErrNegativeBalance) {
			return insufficientBalance()
		}
		if err != nil {
			return err
		}

		if err := transition(tx, req, models.StatusApproved, &reviewer, note); err != nil {
			return err
		}

		if err := tx.Create(&models.AdminLog{
			AdminID:    reviewer,
			Action:     models.ActionApproveRequest,
			EntityType: models.EntityPaymentRequest,
			EntityID:   strconv.FormatUint(uint64(req.ID), 10),
			Details: datatypes.JSONMap{
				"reference":      req.Reference,
				"kind":           string(req.Kind),
				"amount":         req.Amount.String(),
				"transaction_id": trx.ID,
				"balance_before": trx.BalanceBefore.String(),
				"balance_after":  trx.BalanceAfter.String(),
				"notes":          ptrString(note),
			},
		}).Error; err != nil {
			return dependency("append admin log", err)
		}

		n, err = r.fanout.Record(tx, NotificationInput{
			ProfileID:   req.ProfileID,
			Title:       approvedTitle(req.Kind),
			Content:     fmt.Sprintf("Your %s of %s has been approved. Balance: %s.", req.Kind, req.Amount.StringFixed(2), trx.BalanceAfter.StringFixed(2)),
			Type:        models.NotificationPayment,
			ReferenceID: &req.Reference,
		})
		return err
	})
	if err != nil {
		r.settleFailed(models.StatusApproved, requestID, reviewer, err)
		return nil, err
	}

	metrics.Settlements.WithLabelValues(string(models.StatusApproved), "ok").Inc()
	r.log.Info("payment request approved",
		zap.Uint("request_id", req.ID),
		zap.Uint("admin_id", reviewer),
		zap.Uint("transaction_id", trx.ID),
		zap.String("balance_after", trx.BalanceAfter.String()),
	)
	r.fanout.Dispatch(n)
	return req, nil
}

// Reject closes a pending request without touching the balance.
func (r *Review) Reject(ctx context.Context, admin Admin, requestID uint, notes string) (*models.PaymentRequest, error) {
	reviewer := admin.ProfileID()
	note := optionalNotes(notes)

	var req *models.PaymentRequest
	var n *models.Notification

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if req, err = lockRequest(tx, requestID); err != nil {
			return err
		}
		if err := requirePending(req); err != nil {
			return err
		}
		if err := transition(tx, req, models.StatusRejected, &reviewer, note); err != nil {
			return err
		}

		if err := tx.Create(&models.AdminLog{
			AdminID:    reviewer,
			Action:     models.ActionRejectRequest,
			EntityType: models.EntityPaymentRequest,
			EntityID:   strconv.FormatUint(uint64(req.ID), 10),
			Details: datatypes.JSONMap{
				"reference": req.Reference,
				"kind":      string(req.Kind),
				"amount":    req.Amount.String(),
				"notes":     ptrString(note),
			},
		}).Error; err != nil {
			return dependency("append admin log", err)
		}

		content := fmt.Sprintf("Your %s of %s has been rejected.", req.Kind, req.Amount.StringFixed(2))
		if note != nil {
			content += " Reason: " + *note
		}
		n, err = r.fanout.Record(tx, NotificationInput{
			ProfileID:   req.ProfileID,
			Title:       rejectedTitle(req.Kind),
			Content:     content,
			Type:        models.NotificationPayment,
			ReferenceID: &req.Reference,
		})
		return err
	})
	if err != nil {
		r.settleFailed(models.StatusRejected, requestID, reviewer, err)
		return nil, err
	}

	metrics.Settlements.WithLabelValues(string(models.StatusRejected), "ok").Inc()
	r.log.Info("payment request rejected", zap.Uint("request_id", req.ID), zap.Uint("admin_id", reviewer))
	r.fanout.Dispatch(n)
	return req, nil
}

// Cancel lets the owner withdraw a pending request. No audit entry or
// notification is written.
func (r *Review) Cancel(ctx context.Context, user User, requestID uint) (*models.PaymentRequest, error) {
	var req *models.PaymentRequest

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if req, err = lockRequest(tx, requestID); err != nil {
			return err
		}
		if req.ProfileID != user.ProfileID() {
			return forbidden("NOT_REQUEST_OWNER", "payment request belongs to another profile")
		}
		if err := requirePending(req); err != nil {
			return err
		}
		return transition(tx, req, models.StatusCancelled, nil, nil)
	})
	if err != nil {
		r.settleFailed(models.StatusCancelled, requestID, user.ProfileID(), err)
		return nil, err
	}

	metrics.Settlements.WithLabelValues(string(models.StatusCancelled), "ok").Inc()
	r.log.Info("payment request cancelled", zap.Uint("request_id", req.ID), zap.Uint("profile_id", user.ProfileID()))
	return req, nil
}

func (r *Review) settleFailed(status models.RequestStatus, requestID, actorID uint, err error) {
	kind := KindOf(err)
	metrics.Settlements.WithLabelValues(string(status), kind.String()).Inc()

	level := r.log.Info
	if kind == KindDependency || kind == KindInternal {
		level = r.log.Error
	}
	level("payment request transition refused",
		zap.String("target", string(status)),
		zap.Uint("request_id", requestID),
		zap.Uint("actor_id", actorID),
		zap.Error(err),
	)
}

func approvedTitle(kind models.RequestKind) string {
	if kind == models.KindWithdrawal {
		return "Withdrawal approved"
	}
	return "Deposit approved"
}

func rejectedTitle(kind models.RequestKind) string {
	if kind == models.KindWithdrawal {
		return "Withdrawal rejected"
	}
	return "Deposit rejected"
}

package services

import (
	"context"
	"encoding/json"
	"errors"

	"cashier/config"
	"cashier/metrics"
	"cashier/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type NewRequest struct {
	Amount  decimal.Decimal
	Method  models.PaymentMethod
	Details json.RawMessage
}

type Intake struct {
	db     *gorm.DB
	limits config.Limits
	log    *zap.Logger
}

func NewIntake(db *gorm.DB, limits config.Limits, log *zap.Logger) *Intake {
	return &Intake{db: db, limits: limits, log: log}
}

func checkAmount(amount, min, max decimal.Decimal) error {
	if !amount.IsPositive() {
		return validation("INVALID_AMOUNT", "amount must be greater than zero")
	}
	if !amount.Equal(amount.Round(2)) {
		return validation("AMOUNT_PRECISION", "amount supports at most 2 decimal places")
	}
	if min.IsPositive() && amount.LessThan(min) {
		return validation("AMOUNT_BELOW_MINIMUM", "amount is below the minimum of "+min.String())
	}
	if max.IsPositive() && amount.GreaterThan(max) {
		return validation("AMOUNT_ABOVE_MAXIMUM", "amount is above the maximum of "+max.String())
	}
	return nil
}

func decodeDetails(method models.PaymentMethod, raw json.RawMessage) (models.PaymentDetails, error) {
	d, err := models.DecodeDetails(method, raw)
	if errors.Is(err, models.ErrUnknownMethod) {
		return nil, validation("INVALID_METHOD", "unknown payment method "+string(method))
	}
	if err != nil {
		return nil, &Error{Kind: KindValidation, Code: "INVALID_DETAILS", Message: err.Error()}
	}
	return d, nil
}

// CreateDeposit creates a pending deposit request. It has no balance effect.
func (i *Intake) CreateDeposit(ctx context.Context, user User, in NewRequest) (*models.PaymentRequest, error) {
	if err := checkAmount(in.Amount, i.limits.DepositMin, i.limits.DepositMax); err != nil {
		return nil, err
	}
	details, err := decodeDetails(in.Method, in.Details)
	if err != nil {
		return nil, err
	}
	return i.create(ctx, user, models.KindDeposit, in.Amount, details)
}

// CreateWithdrawal creates a pending withdrawal request after an advisory
// balance check. The balance is checked again when the request is approved.
func (i *Intake) CreateWithdrawal(ctx context.Context, user User, in NewRequest) (*models.PaymentRequest, error) {
	if err := checkAmount(in.Amount, i.limits.WithdrawMin, i.limits.WithdrawMax); err != nil {
		return nil, err
	}
	if in.Method.Valid() && !in.Method.Withdrawable() {
		return nil, validation("METHOD_NOT_WITHDRAWABLE", "withdrawals are not available via "+string(in.Method))
	}
	details, err := decodeDetails(in.Method, in.Details)
	if err != nil {
		return nil, err
	}

	var p models.Profile
	err = i.db.WithContext(ctx).Select("id", "balance").First(&p, user.ProfileID()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("PROFILE_NOT_FOUND", "profile not found")
	}
	if err != nil {
		return nil, dependency("load balance", err)
	}
	if p.Balance.LessThan(in.Amount) {
		return nil, insufficientBalance()
	}

	return i.create(ctx, user, models.KindWithdrawal, in.Amount, details)
}

func (i *Intake) create(ctx context.Context, user User, kind models.RequestKind, amount decimal.Decimal, details models.PaymentDetails) (*models.PaymentRequest, error) {
	req := &models.PaymentRequest{
		Reference: uuid.New().String(),
		ProfileID: user.ProfileID(),
		Kind:      kind,
		Amount:    amount,
		Method:    details.Method(),
		Details:   models.Details{PaymentDetails: details},
		Status:    models.StatusPending,
	}
	if err := i.db.WithContext(ctx).Create(req).Error; err != nil {
		return nil, dependency("create payment request", err)
	}

	metrics.RequestsCreated.WithLabelValues(string(kind)).Inc()
	i.log.Info("payment request created",
		zap.Uint("request_id", req.ID),
		zap.String("reference", req.Reference),
		zap.Uint("profile_id", req.ProfileID),
		zap.String("kind", string(kind)),
		zap.String("amount", amount.String()),
		zap.String("method", string(req.Method)),
	)
	return req, nil
}

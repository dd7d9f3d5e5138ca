package services

import (
	"context"
	"sync"
	"testing"

	"cashier/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) pendingWithdrawal(t *testing.T, owner *models.Profile, amount int64) *models.PaymentRequest {
	t.Helper()
	req, err := e.app.Intake.CreateWithdrawal(context.Background(), e.user(t, owner), withdrawalInput(amount))
	require.NoError(t, err)
	return req
}

func (e *testEnv) pendingDeposit(t *testing.T, owner *models.Profile, amount int64) *models.PaymentRequest {
	t.Helper()
	req, err := e.app.Intake.CreateDeposit(context.Background(), e.user(t, owner), depositInput(amount))
	require.NoError(t, err)
	return req
}

// Scenario A.
func TestApproveWithdrawal(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedProfile(t, "budi", 100000, false)
	admin := env.admin(t, env.seedProfile(t, "admin", 0, true))
	req := env.pendingWithdrawal(t, owner, 50000)

	settled, err := env.app.Review.Approve(context.Background(), admin, req.ID, "paid out")
	require.NoError(t, err)
	env.app.Fanout.Wait()

	assert.Equal(t, models.StatusApproved, settled.Status)
	require.NotNil(t, settled.ReviewerID)
	assert.Equal(t, admin.ProfileID(), *settled.ReviewerID)
	assert.True(t, env.balance(t, owner.ID).Equal(dec(50000)))

	var trx []models.Transaction
	require.NoError(t, env.db.Where("profile_id = ? AND kind = ?", owner.ID, models.TrxWithdrawal).Find(&trx).Error)
	require.Len(t, trx, 1)
	assert.True(t, trx[0].Amount.Equal(dec(-50000)))
	assert.True(t, trx[0].BalanceBefore.Equal(dec(100000)))
	assert.True(t, trx[0].BalanceAfter.Equal(dec(50000)))
	assert.Equal(t, req.Reference, trx[0].RefID)

	assert.EqualValues(t, 1, env.count(t, &models.AdminLog{}, "action = ?", models.ActionApproveRequest))

	var n models.Notification
	require.NoError(t, env.db.Where("profile_id = ?", owner.ID).First(&n).Error)
	assert.Equal(t, models.NotificationPayment, n.Type)
	require.NotNil(t, n.ReferenceID)
	assert.Equal(t, req.Reference, *n.ReferenceID)
	assert.Equal(t, 1, env.pusher.count())
}

func TestApproveDepositCreditsBalance(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedProfile(t, "budi", 0, false)
	admin := env.admin(t, env.seedProfile(t, "admin", 0, true))
	req := env.pendingDeposit(t, owner, 200000)

	_, err := env.app.Review.Approve(context.Background(), admin, req.ID, "")
	require.NoError(t, err)

	assert.True(t, env.balance(t, owner.ID).Equal(dec(200000)))
	assert.EqualValues(t, 1, env.count(t, &models.Transaction{}, "kind = ? AND amount > 0", models.TrxDeposit))
}

func TestApproveTwiceHasOneEffect(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedProfile(t, "budi", 0, false)
	admin := env.admin(t, env.seedProfile(t, "admin", 0, true))
	req := env.pendingDeposit(t, owner, 200000)

	_, err := env.app.Review.Approve(context.Background(), admin, req.ID, "")
	require.NoError(t, err)
	_, err = env.app.Review.Approve(context.Background(), admin, req.ID, "")
	requireKind(t, err, KindInvalidState)

	assert.True(t, env.balance(t, owner.ID).Equal(dec(200000)))
	assert.EqualValues(t, 1, env.count(t, &models.Transaction{}, "kind = ?", models.TrxDeposit))
	assert.EqualValues(t, 1, env.count(t, &models.AdminLog{}))
	assert.EqualValues(t, 1, env.count(t, &models.Notification{}))
}

func TestApproveWithdrawalRechecksBalance(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedProfile(t, "budi", 100000, false)
	admin := env.admin(t, env.seedProfile(t, "admin", 0, true))
	req := env.pendingWithdrawal(t, owner, 80000)

	_, err := env.app.Ledger.AdminAdjust(context.Background(), admin, AdjustRequest{ProfileID: owner.ID, Action: AdjustSet, Amount: dec(30000)})
	require.NoError(t, err)

	_, err = env.app.Review.Approve(context.Background(), admin, req.ID, "")
	requireKind(t, err, KindInsufficientBalance)

	var stored models.PaymentRequest
	require.NoError(t, env.db.First(&stored, req.ID).Error)
	assert.Equal(t, models.StatusPending, stored.Status)
	assert.True(t, env.balance(t, owner.ID).Equal(dec(30000)))
	assert.Zero(t, env.count(t, &models.Transaction{}, "kind = ?", models.TrxWithdrawal))
	assert.Zero(t, env.count(t, &models.AdminLog{}, "action = ?", models.ActionApproveRequest))
}

func TestConcurrentWithdrawalApprovals(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedProfile(t, "budi", 100000, false)
	admin := env.admin(t, env.seedProfile(t, "admin", 0, true))
	first := env.pendingWithdrawal(t, owner, 70000)
	second := env.pendingWithdrawal(t, owner, 70000)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []uint{first.ID, second.ID} {
		wg.Add(1)
		go func(i int, id uint) {
			defer wg.Done()
			_, errs[i] = env.app.Review.Approve(context.Background(), admin, id, "")
		}(i, id)
	}
	wg.Wait()

	var ok, insufficient int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case KindOf(err) == KindInsufficientBalance:
			insufficient++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, insufficient)
	assert.True(t, env.balance(t, owner.ID).Equal(dec(30000)))
	assert.EqualValues(t, 1, env.count(t, &models.Transaction{}, "kind = ?", models.TrxWithdrawal))
}

func TestApproveRejectRaceSameRequest(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedProfile(t, "budi", 1000000, false)
	admin := env.admin(t, env.seedProfile(t, "admin", 0, true))
	ctx := context.Background()

	for round := 0; round < 20; round++ {
		req := env.pendingWithdrawal(t, owner, 10000)
		logs := env.count(t, &models.AdminLog{})

		var wg sync.WaitGroup
		errs := make([]error, 2)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, errs[0] = env.app.Review.Approve(ctx, admin, req.ID, "")
		}()
		go func() {
			defer wg.Done()
			_, errs[1] = env.app.Review.Reject(ctx, admin, req.ID, "duplicate")
		}()
		wg.Wait()

		var ok, conflicted int
		for _, err := range errs {
			switch {
			case err == nil:
				ok++
			case KindOf(err) == KindInvalidState:
				conflicted++
			}
		}
		require.Equal(t, 1, ok, "round %d: %v", round, errs)
		require.Equal(t, 1, conflicted, "round %d: %v", round, errs)
		assert.Equal(t, logs+1, env.count(t, &models.AdminLog{}))

		var stored models.PaymentRequest
		require.NoError(t, env.db.First(&stored, req.ID).Error)
		if errs[0] == nil {
			assert.Equal(t, models.StatusApproved, stored.Status)
		} else {
			assert.Equal(t, models.StatusRejected, stored.Status)
		}
	}

	report, err := env.app.Ledger.Reconcile(ctx, admin, owner.ID)
	require.NoError(t, err)
	assert.True(t, report.Consistent)
}

func TestApproveRollsBackWhenNotificationFails(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedProfile(t, "budi", 100000, false)
	admin := env.admin(t, env.seedProfile(t, "admin", 0, true))
	req := env.pendingWithdrawal(t, owner, 50000)
	trx := env.count(t, &models.Transaction{})

	require.NoError(t, env.db.Migrator().DropTable(&models.Notification{}))

	_, err := env.app.Review.Approve(context.Background(), admin, req.ID, "")
	requireKind(t, err, KindDependency)

	var stored models.PaymentRequest
	require.NoError(t, env.db.First(&stored, req.ID).Error)
	assert.Equal(t, models.StatusPending, stored.Status)
	assert.Nil(t, stored.ReviewerID)
	assert.True(t, env.balance(t, owner.ID).Equal(dec(100000)))
	assert.Equal(t, trx, env.count(t, &models.Transaction{}))
	assert.Zero(t, env.count(t, &models.AdminLog{}))
	assert.Zero(t, env.pusher.count())
}

// Scenario C.
func TestRejectDeposit(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedProfile(t, "budi", 0, false)
	admin := env.admin(t, env.seedProfile(t, "admin", 0, true))
	req := env.pendingDeposit(t, owner, 200000)

	settled, err := env.app.Review.Reject(context.Background(), admin, req.ID, "proof invalid")
	require.NoError(t, err)
	env.app.Fanout.Wait()

	assert.Equal(t, models.StatusRejected, settled.Status)
	require.NotNil(t, settled.Notes)
	assert.Equal(t, "proof invalid", *settled.Notes)
	assert.True(t, env.balance(t, owner.ID).IsZero())
	assert.Zero(t, env.count(t, &models.Transaction{}))

	var notes []models.Notification
	require.NoError(t, env.db.Where("profile_id = ?", owner.ID).Find(&notes).Error)
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0].Content, "proof invalid")
	assert.EqualValues(t, 1, env.count(t, &models.AdminLog{}, "action = ?", models.ActionRejectRequest))
}

func TestCancelByOwner(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedProfile(t, "budi", 100000, false)
	req := env.pendingWithdrawal(t, owner, 50000)

	settled, err := env.app.Review.Cancel(context.Background(), env.user(t, owner), req.ID)
	require.NoError(t, err)

	assert.Equal(t, models.StatusCancelled, settled.Status)
	assert.Nil(t, settled.ReviewerID)
	assert.True(t, env.balance(t, owner.ID).Equal(dec(100000)))
	assert.Zero(t, env.count(t, &models.AdminLog{}))
	assert.Zero(t, env.count(t, &models.Notification{}))
}

func TestCancelByOtherProfileIsForbidden(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedProfile(t, "budi", 100000, false)
	other := env.seedProfile(t, "sari", 0, false)
	req := env.pendingWithdrawal(t, owner, 50000)

	_, err := env.app.Review.Cancel(context.Background(), env.user(t, other), req.ID)
	requireKind(t, err, KindForbidden)

	var stored models.PaymentRequest
	require.NoError(t, env.db.First(&stored, req.ID).Error)
	assert.Equal(t, models.StatusPending, stored.Status)
}

func TestTerminalStatesRefuseEveryTransition(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedProfile(t, "budi", 1000000, false)
	adminProfile := env.seedProfile(t, "admin", 0, true)
	admin := env.admin(t, adminProfile)
	user := env.user(t, owner)
	ctx := context.Background()

	settle := map[models.RequestStatus]func(id uint) error{
		models.StatusApproved: func(id uint) error {
			_, err := env.app.Review.Approve(ctx, admin, id, "")
			return err
		},
		models.StatusRejected: func(id uint) error {
			_, err := env.app.Review.Reject(ctx, admin, id, "")
			return err
		},
		models.StatusCancelled: func(id uint) error {
			_, err := env.app.Review.Cancel(ctx, user, id)
			return err
		},
	}

	for status, into := range settle {
		t.Run(string(status), func(t *testing.T) {
			req := env.pendingDeposit(t, owner, 20000)
			require.NoError(t, into(req.ID))

			before := env.balance(t, owner.ID)
			trx := env.count(t, &models.Transaction{})
			for target, again := range settle {
				err := again(req.ID)
				requireKind(t, err, KindInvalidState)
				assert.ErrorIs(t, err, &Error{Kind: KindInvalidState, Code: "REQUEST_NOT_PENDING"}, "%s -> %s", status, target)
			}

			var stored models.PaymentRequest
			require.NoError(t, env.db.First(&stored, req.ID).Error)
			assert.Equal(t, status, stored.Status)
			assert.True(t, env.balance(t, owner.ID).Equal(before))
			assert.Equal(t, trx, env.count(t, &models.Transaction{}))
		})
	}
}

func TestReviewUnknownRequest(t *testing.T) {
	env := newTestEnv(t)
	admin := env.admin(t, env.seedProfile(t, "admin", 0, true))

	_, err := env.app.Review.Approve(context.Background(), admin, 999, "")
	requireKind(t, err, KindNotFound)
	_, err = env.app.Review.Reject(context.Background(), admin, 999, "")
	requireKind(t, err, KindNotFound)
}

func TestBalanceNeverNegativeAcrossMixedOperations(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedProfile(t, "budi", 60000, false)
	admin := env.admin(t, env.seedProfile(t, "admin", 0, true))
	ctx := context.Background()

	reqs := []*models.PaymentRequest{
		env.pendingWithdrawal(t, owner, 40000),
		env.pendingWithdrawal(t, owner, 40000),
		env.pendingWithdrawal(t, owner, 20000),
	}

	var wg sync.WaitGroup
	for _, r := range reqs {
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			_, _ = env.app.Review.Approve(ctx, admin, id, "")
		}(r.ID)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = env.app.Ledger.AdminAdjust(ctx, admin, AdjustRequest{ProfileID: owner.ID, Action: AdjustSubtract, Amount: dec(30000)})
	}()
	wg.Wait()

	balance := env.balance(t, owner.ID)
	assert.False(t, balance.IsNegative())

	report, err := env.app.Ledger.Reconcile(ctx, admin, owner.ID)
	require.NoError(t, err)
	assert.True(t, report.Consistent)
}

package services

import (
	"context"
	"testing"
	"time"

	"cashier/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRequestsAreScopedToCaller(t *testing.T) {
	env := newTestEnv(t)
	budi := env.seedProfile(t, "budi", 0, false)
	sari := env.seedProfile(t, "sari", 0, false)
	for i := 0; i < 3; i++ {
		env.pendingDeposit(t, budi, 20000)
	}
	env.pendingDeposit(t, sari, 20000)

	other := sari.ID
	page, err := env.app.Listing.UserRequests(context.Background(), env.user(t, budi), RequestFilter{OwnerID: &other}, Page{})
	require.NoError(t, err)

	assert.EqualValues(t, 3, page.Total)
	for _, r := range page.Items {
		assert.Equal(t, budi.ID, r.ProfileID)
	}
}

func TestListingPagination(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedProfile(t, "budi", 0, false)
	var last *models.PaymentRequest
	for i := 0; i < 25; i++ {
		last = env.pendingDeposit(t, owner, 20000)
	}
	user := env.user(t, owner)

	first, err := env.app.Listing.UserRequests(context.Background(), user, RequestFilter{}, Page{})
	require.NoError(t, err)
	assert.Len(t, first.Items, DefaultPageSize)
	assert.EqualValues(t, 25, first.Total)
	assert.Equal(t, 2, first.TotalPages)
	assert.Equal(t, last.ID, first.Items[0].ID)

	second, err := env.app.Listing.UserRequests(context.Background(), user, RequestFilter{}, Page{Page: 2, PageSize: 20})
	require.NoError(t, err)
	assert.Len(t, second.Items, 5)

	capped, err := env.app.Listing.UserRequests(context.Background(), user, RequestFilter{}, Page{PageSize: 1000})
	require.NoError(t, err)
	assert.Equal(t, MaxPageSize, capped.PageSize)
	assert.Len(t, capped.Items, 25)
}

func TestAdminRequestsFiltersAndPreloads(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedProfile(t, "budi", 100000, false)
	adminProfile := env.seedProfile(t, "admin", 0, true)
	admin := env.admin(t, adminProfile)

	dep := env.pendingDeposit(t, owner, 20000)
	env.pendingWithdrawal(t, owner, 20000)
	_, err := env.app.Review.Approve(context.Background(), admin, dep.ID, "")
	require.NoError(t, err)

	page, err := env.app.Listing.AdminRequests(context.Background(), admin, RequestFilter{Status: models.StatusApproved}, Page{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	view := page.Items[0]
	require.NotNil(t, view.Owner)
	assert.Equal(t, "budi", view.Owner.Username)
	require.NotNil(t, view.Reviewer)
	assert.Equal(t, adminProfile.ID, view.Reviewer.ID)

	pending, err := env.app.Listing.AdminRequests(context.Background(), admin, RequestFilter{Kind: models.KindWithdrawal, Status: models.StatusPending}, Page{})
	require.NoError(t, err)
	require.Len(t, pending.Items, 1)
	assert.Nil(t, pending.Items[0].Reviewer)

	_, err = env.app.Listing.AdminRequests(context.Background(), admin, RequestFilter{Status: "lost"}, Page{})
	requireKind(t, err, KindValidation)
}

func TestTransactionListings(t *testing.T) {
	env := newTestEnv(t)
	budi := env.seedProfile(t, "budi", 10000, false)
	sari := env.seedProfile(t, "sari", 20000, false)
	admin := env.admin(t, env.seedProfile(t, "admin", 0, true))

	own, err := env.app.Listing.UserTransactions(context.Background(), env.user(t, budi), TransactionFilter{OwnerID: &sari.ID}, Page{})
	require.NoError(t, err)
	require.Len(t, own.Items, 1)
	assert.Equal(t, budi.ID, own.Items[0].ProfileID)

	all, err := env.app.Listing.AdminTransactions(context.Background(), admin, TransactionFilter{Kind: models.TrxAdminAdd}, Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, all.Total)

	_, err = env.app.Listing.AdminTransactions(context.Background(), admin, TransactionFilter{Kind: "jackpot"}, Page{})
	requireKind(t, err, KindValidation)
}

func TestAdminLogsFilter(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedProfile(t, "budi", 0, false)
	adminProfile := env.seedProfile(t, "admin", 0, true)
	admin := env.admin(t, adminProfile)

	_, err := env.app.Ledger.AdminAdjust(context.Background(), admin, AdjustRequest{ProfileID: owner.ID, Action: AdjustAdd, Amount: dec(1000)})
	require.NoError(t, err)
	req := env.pendingDeposit(t, owner, 20000)
	_, err = env.app.Review.Reject(context.Background(), admin, req.ID, "")
	require.NoError(t, err)

	page, err := env.app.Listing.AdminLogs(context.Background(), admin, AdminLogFilter{AdminID: &adminProfile.ID, Action: models.ActionRejectRequest}, Page{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, models.EntityPaymentRequest, page.Items[0].EntityType)
}

func TestSummary(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedProfile(t, "budi", 100000, false)
	admin := env.admin(t, env.seedProfile(t, "admin", 0, true))
	ctx := context.Background()

	wd := env.pendingWithdrawal(t, owner, 40000)
	env.pendingDeposit(t, owner, 25000)
	_, err := env.app.Review.Approve(ctx, admin, wd.ID, "")
	require.NoError(t, err)

	s, err := env.app.Listing.Summary(ctx, admin, SummaryRange{})
	require.NoError(t, err)

	assert.EqualValues(t, 1, s.Pending)
	assert.True(t, s.TotalBalance.Equal(dec(60000)))
	require.Len(t, s.Requests, 2)
	byKind := map[models.RequestKind]RequestAggregate{}
	for _, r := range s.Requests {
		byKind[r.Kind] = r
	}
	assert.Equal(t, models.StatusApproved, byKind[models.KindWithdrawal].Status)
	assert.True(t, byKind[models.KindWithdrawal].Amount.Equal(dec(40000)))
	assert.Equal(t, models.StatusPending, byKind[models.KindDeposit].Status)

	future := time.Now().Add(time.Hour)
	later := future.Add(time.Hour)
	empty, err := env.app.Listing.Summary(ctx, admin, SummaryRange{Start: &future, End: &later})
	require.NoError(t, err)
	assert.Empty(t, empty.Requests)
	assert.Empty(t, empty.Transactions)

	_, err = env.app.Listing.Summary(ctx, admin, SummaryRange{Start: &later, End: &future})
	requireKind(t, err, KindValidation)
}

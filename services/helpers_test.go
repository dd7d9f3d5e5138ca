package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"cashier/config"
	"cashier/database"
	"cashier/models"
	"cashier/providers"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// openTestDB returns an in-memory database on a single connection, so
// concurrent transactions serialize the way row locks make them on postgres.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

type fakeChannel struct {
	mu   sync.Mutex
	sent []string
	fail map[string]bool
}

func (f *fakeChannel) Name() string { return "fake" }

func (f *fakeChannel) Send(_ context.Context, identity string, msg providers.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[identity] {
		return fmt.Errorf("%w: %q", providers.ErrInvalidIdentity, identity)
	}
	f.sent = append(f.sent, identity+"|"+msg.Title)
	return nil
}

func (f *fakeChannel) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakePusher struct {
	mu     sync.Mutex
	pushed []uint
	err    error
}

func (f *fakePusher) Publish(_ context.Context, n *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushed = append(f.pushed, n.ID)
	return f.err
}

func (f *fakePusher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pushed)
}

type memoryStore struct {
	mu       sync.Mutex
	objects  map[string][]byte
	err      error
	afterPut func()
}

func (m *memoryStore) Put(_ context.Context, name, _ string, data []byte) (string, error) {
	m.mu.Lock()
	if m.err != nil {
		m.mu.Unlock()
		return "", m.err
	}
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[name] = data
	hook := m.afterPut
	m.mu.Unlock()
	if hook != nil {
		hook()
	}
	return "/proofs/" + name, nil
}

func (m *memoryStore) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, name)
	return nil
}

func (m *memoryStore) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

type testEnv struct {
	db      *gorm.DB
	app     *App
	channel *fakeChannel
	pusher  *fakePusher
	store   *memoryStore
}

func testLimits() config.Limits {
	return config.Limits{
		DepositMin:  decimal.NewFromInt(10000),
		WithdrawMin: decimal.NewFromInt(10000),
		WithdrawMax: decimal.NewFromInt(10000000),
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := openTestDB(t)
	env := &testEnv{
		db:      db,
		channel: &fakeChannel{fail: map[string]bool{}},
		pusher:  &fakePusher{},
		store:   &memoryStore{},
	}
	env.app = New(db, Options{
		Limits: testLimits(),
		Fanout: FanoutOptions{
			Channel:     env.channel,
			Pusher:      env.pusher,
			Timeout:     time.Second,
			Concurrency: 8,
		},
		ProofStore:        env.store,
		ProofMaxBytes:     1 << 20,
		ProofMaxDimension: 64,
	}, zap.NewNop())
	t.Cleanup(env.app.Fanout.Wait)
	return env
}

// seedProfile creates a profile and posts its opening balance through the
// ledger so the transaction sum matches the balance.
func (e *testEnv) seedProfile(t *testing.T, username string, balance int64, admin bool) *models.Profile {
	t.Helper()
	p := &models.Profile{
		Username:    username,
		DisplayName: username,
		IsAdmin:     admin,
		IsActive:    true,
		Preferences: models.DefaultPreferences(),
	}
	require.NoError(t, e.db.Create(p).Error)
	if balance > 0 {
		err := e.db.Transaction(func(tx *gorm.DB) error {
			_, err := e.app.Ledger.Post(tx, Entry{
				ProfileID:   p.ID,
				Amount:      decimal.NewFromInt(balance),
				Kind:        models.TrxAdminAdd,
				Description: "opening balance",
			})
			return err
		})
		require.NoError(t, err)
	}
	return p
}

func (e *testEnv) user(t *testing.T, p *models.Profile) User {
	t.Helper()
	c, err := e.app.Gate.Authorize(context.Background(), p.ID)
	require.NoError(t, err)
	return c.User
}

func (e *testEnv) admin(t *testing.T, p *models.Profile) Admin {
	t.Helper()
	c, err := e.app.Gate.Authorize(context.Background(), p.ID)
	require.NoError(t, err)
	a, err := c.Admin()
	require.NoError(t, err)
	return a
}

func (e *testEnv) balance(t *testing.T, id uint) decimal.Decimal {
	t.Helper()
	var p models.Profile
	require.NoError(t, e.db.First(&p, id).Error)
	return p.Balance
}

func (e *testEnv) count(t *testing.T, model any, where ...any) int64 {
	t.Helper()
	var n int64
	q := e.db.Model(model)
	if len(where) > 0 {
		q = q.Where(where[0], where[1:]...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

func requireKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	require.Error(t, err)
	var e *Error
	require.True(t, errors.As(err, &e), "unexpected error type %T: %v", err, err)
	require.Equal(t, kind, e.Kind, "error: %v", err)
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

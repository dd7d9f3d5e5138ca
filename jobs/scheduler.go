package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cashier/models"
	"cashier/services"
	tasks "cashier/task"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const pruneSchedule = "0 0 3 * * *"

type Options struct {
	DigestSpec    string
	RetentionDays int
}

type Scheduler struct {
	cron   *cron.Cron
	db     *gorm.DB
	fanout *services.Fanout
	opts   Options
	log    *zap.Logger
}

func NewScheduler(db *gorm.DB, fanout *services.Fanout, opts Options, log *zap.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		db:     db,
		fanout: fanout,
		opts:   opts,
		log:    log,
	}

	if opts.DigestSpec != "" {
		if _, err := s.cron.AddFunc(opts.DigestSpec, s.runDigest); err != nil {
			return nil, fmt.Errorf("schedule pending digest: %w", err)
		}
	}
	if _, err := s.cron.AddFunc(pruneSchedule, s.runPrune); err != nil {
		return nil, fmt.Errorf("schedule notification pruning: %w", err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop waits for running jobs to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out")
	}
}

func (s *Scheduler) runDigest() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if _, err := PendingDigest(ctx, s.db, s.fanout, s.log); err != nil {
		s.log.Error("pending digest failed", zap.Error(err))
	}
}

func (s *Scheduler) runPrune() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	_, _ = tasks.PruneReadNotifications(ctx, s.db, s.opts.RetentionDays, s.log)
}

type pendingRow struct {
	Kind   models.RequestKind
	Count  int64
	Amount decimal.Decimal
}

// PendingDigest sends every active admin a system notification summarising
// pending requests. It returns the number of admins notified and sends nothing
// when the queue is empty. A failed admin is logged and skipped; the joined
// failures are returned after every admin has been tried.
func PendingDigest(ctx context.Context, db *gorm.DB, fanout *services.Fanout, log *zap.Logger) (int, error) {
	var rows []pendingRow
	err := db.WithContext(ctx).Model(&models.PaymentRequest{}).
		Select("kind, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS amount").
		Where("status = ?", models.StatusPending).
		Group("kind").Order("kind").
		Scan(&rows).Error
	if err != nil {
		return 0, fmt.Errorf("count pending requests: %w", err)
	}

	var total int64
	var content strings.Builder
	for _, r := range rows {
		total += r.Count
		fmt.Fprintf(&content, "%s: %d request(s), %s\n", r.Kind, r.Count, r.Amount.StringFixed(2))
	}
	if total == 0 {
		return 0, nil
	}

	var admins []models.Profile
	if err := db.WithContext(ctx).Where("is_admin = ? AND is_active = ?", true, true).Find(&admins).Error; err != nil {
		return 0, fmt.Errorf("load admins: %w", err)
	}

	title := fmt.Sprintf("%d payment request(s) awaiting review", total)
	sent := 0
	var failures []error
	for _, a := range admins {
		_, err := fanout.Notify(ctx, services.NotificationInput{
			ProfileID: a.ID,
			Title:     title,
			Content:   content.String(),
			Type:      models.NotificationSystem,
		})
		if err != nil {
			log.Warn("pending digest not delivered", zap.Uint("admin_id", a.ID), zap.Error(err))
			failures = append(failures, fmt.Errorf("admin %d: %w", a.ID, err))
			continue
		}
		sent++
	}
	return sent, errors.Join(failures...)
}

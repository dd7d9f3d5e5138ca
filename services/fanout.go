package services

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"cashier/metrics"
	"cashier/models"
	"cashier/providers"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Pusher forwards a committed notification to open sessions of its owner.
type Pusher interface {
	Publish(ctx context.Context, n *models.Notification) error
}

type NotificationInput struct {
	ProfileID   uint
	Title       string
	Content     string
	Type        models.NotificationType
	ReferenceID *string
}

func (in NotificationInput) validate() error {
	if in.ProfileID == 0 {
		return validation("RECIPIENT_REQUIRED", "recipient is required")
	}
	if strings.TrimSpace(in.Title) == "" {
		return validation("TITLE_REQUIRED", "title is required")
	}
	if !in.Type.Valid() {
		return validation("INVALID_NOTIFICATION_TYPE", "unknown notification type "+string(in.Type))
	}
	return nil
}

type delivery int

const (
	deliverySkipped delivery = iota
	deliverySent
	deliveryFailed
)

func (d delivery) String() string {
	switch d {
	case deliverySent:
		return "sent"
	case deliveryFailed:
		return "failed"
	}
	return "skipped"
}

type Fanout struct {
	db          *gorm.DB
	channel     providers.SideChannel
	pusher      Pusher
	timeout     time.Duration
	concurrency int
	log         *zap.Logger

	inflight sync.WaitGroup
}

type FanoutOptions struct {
	Channel     providers.SideChannel
	Pusher      Pusher
	Timeout     time.Duration
	Concurrency int
}

func NewFanout(db *gorm.DB, opts FanoutOptions, log *zap.Logger) *Fanout {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &Fanout{
		db:          db,
		channel:     opts.Channel,
		pusher:      opts.Pusher,
		timeout:     opts.Timeout,
		concurrency: opts.Concurrency,
		log:         log,
	}
}

// Record writes the in-app notification inside tx. Delivery happens only after
// the caller commits and passes the row to Dispatch.
func (f *Fanout) Record(tx *gorm.DB, in NotificationInput) (*models.Notification, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	n := &models.Notification{
		ProfileID:   in.ProfileID,
		Title:       strings.TrimSpace(in.Title),
		Content:     in.Content,
		Type:        in.Type,
		ReferenceID: in.ReferenceID,
	}
	if err := tx.Create(n).Error; err != nil {
		return nil, dependency("create notification", err)
	}
	return n, nil
}

// Notify writes the in-app notification and delivers it in the background.
func (f *Fanout) Notify(ctx context.Context, in NotificationInput) (*models.Notification, error) {
	n, err := f.Record(f.db.WithContext(ctx), in)
	if err != nil {
		return nil, err
	}
	f.Dispatch(n)
	return n, nil
}

// Dispatch starts fire-and-forget delivery of committed notifications. Nil
// entries are ignored.
func (f *Fanout) Dispatch(ns ...*models.Notification) {
	for _, n := range ns {
		if n == nil {
			continue
		}
		f.inflight.Add(1)
		go func(n *models.Notification) {
			defer f.inflight.Done()
			f.deliver(context.Background(), n)
		}(n)
	}
}

// Wait blocks until every dispatched delivery has finished.
func (f *Fanout) Wait() {
	f.inflight.Wait()
}

func (f *Fanout) deliver(ctx context.Context, n *models.Notification) delivery {
	var p models.Profile
	if err := f.db.WithContext(ctx).First(&p, n.ProfileID).Error; err != nil {
		f.log.Warn("notification recipient lookup failed",
			zap.Uint("notification_id", n.ID),
			zap.Uint("profile_id", n.ProfileID),
			zap.Error(err),
		)
		f.push(ctx, n)
		return deliveryFailed
	}
	d := f.sendTo(ctx, &p, n)
	f.push(ctx, n)
	return d
}

func (f *Fanout) sendTo(ctx context.Context, p *models.Profile, n *models.Notification) delivery {
	if f.channel == nil || strings.TrimSpace(p.TelegramChatID) == "" || !p.Preferences.Allows(n.Type) {
		metrics.SideChannelDeliveries.WithLabelValues(deliverySkipped.String()).Inc()
		return deliverySkipped
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	start := time.Now()
	err := f.channel.Send(ctx, p.TelegramChatID, providers.Message{
		Title:   n.Title,
		Content: n.Content,
		Type:    string(n.Type),
	})
	metrics.SideChannelDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.SideChannelDeliveries.WithLabelValues(deliveryFailed.String()).Inc()
		f.log.Warn("side-channel delivery failed",
			zap.String("channel", f.channel.Name()),
			zap.Uint("notification_id", n.ID),
			zap.Uint("profile_id", p.ID),
			zap.Error(err),
		)
		return deliveryFailed
	}
	metrics.SideChannelDeliveries.WithLabelValues(deliverySent.String()).Inc()
	return deliverySent
}

func (f *Fanout) push(ctx context.Context, n *models.Notification) {
	if f.pusher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	if err := f.pusher.Publish(ctx, n); err != nil {
		f.log.Warn("realtime push failed", zap.Uint("notification_id", n.ID), zap.Error(err))
	}
}

type BroadcastResult struct {
	Recipients int `json:"recipients"`
	InApp      int `json:"in_app"`
	Delivered  int `json:"delivered"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`

	InAppFailed int `json:"in_app_failed"`
}

// NotifyAll notifies every active profile through a bounded worker pool. A
// failure for one recipient is logged and never stops the others. The returned
// InApp count is the number of in-app notifications written.
func (f *Fanout) NotifyAll(ctx context.Context, admin Admin, title, content string, typ models.NotificationType) (*BroadcastResult, error) {
	input := NotificationInput{ProfileID: admin.ProfileID(), Title: title, Content: content, Type: typ}
	if err := input.validate(); err != nil {
		return nil, err
	}

	var recipients []models.Profile
	if err := f.db.WithContext(ctx).Where("is_active = ?", true).Order("id").Find(&recipients).Error; err != nil {
		return nil, dependency("load recipients", err)
	}

	entry := &models.AdminLog{
		AdminID:    admin.ProfileID(),
		Action:     models.ActionBroadcast,
		EntityType: models.EntityNotification,
		Details: datatypes.JSONMap{
			"title":      strings.TrimSpace(title),
			"type":       string(typ),
			"recipients": len(recipients),
		},
	}
	if err := f.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, dependency("append admin log", err)
	}

	var inApp, inAppFailed, delivered, skipped, failed atomic.Int64

	var g errgroup.Group
	g.SetLimit(f.concurrency)
	for i := range recipients {
		p := &recipients[i]
		g.Go(func() error {
			n, err := f.Record(f.db.WithContext(ctx), NotificationInput{
				ProfileID: p.ID,
				Title:     title,
				Content:   content,
				Type:      typ,
			})
			if err != nil {
				inAppFailed.Add(1)
				f.log.Warn("broadcast in-app write failed", zap.Uint("profile_id", p.ID), zap.Error(err))
				return nil
			}
			inApp.Add(1)

			switch f.sendTo(ctx, p, n) {
			case deliverySent:
				delivered.Add(1)
			case deliveryFailed:
				failed.Add(1)
			default:
				skipped.Add(1)
			}
			f.push(ctx, n)
			return nil
		})
	}
	_ = g.Wait()

	result := &BroadcastResult{
		Recipients: len(recipients),
		InApp:      int(inApp.Load()),
		Delivered:  int(delivered.Load()),
		Skipped:    int(skipped.Load()),
		Failed:     int(failed.Load()),

		InAppFailed: int(inAppFailed.Load()),
	}

	entry.Details["in_app"] = result.InApp
	entry.Details["in_app_failed"] = result.InAppFailed
	entry.Details["delivered"] = result.Delivered
	entry.Details["skipped"] = result.Skipped
	entry.Details["failed"] = result.Failed
	if err := f.db.WithContext(context.WithoutCancel(ctx)).Model(entry).Update("details", entry.Details).Error; err != nil {
		f.log.Error("broadcast audit counts not recorded", zap.Uint("admin_log_id", entry.ID), zap.Error(err))
	}

	f.log.Info("broadcast finished",
		zap.Uint("admin_id", admin.ProfileID()),
		zap.Int("recipients", result.Recipients),
		zap.Int("in_app", result.InApp),
		zap.Int("delivered", result.Delivered),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

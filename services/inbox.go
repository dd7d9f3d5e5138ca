package services

import (
	"context"
	"strings"

	"cashier/models"

	"gorm.io/gorm"
)

// Inbox is the owner's view of in-app notifications and delivery settings.
type Inbox struct {
	db *gorm.DB
}

func NewInbox(db *gorm.DB) *Inbox {
	return &Inbox{db: db}
}

func (i *Inbox) List(ctx context.Context, user User, unreadOnly bool, page Page) (PageResult[models.Notification], error) {
	q := i.db.WithContext(ctx).Model(&models.Notification{}).Where("profile_id = ?", user.ProfileID())
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	return paginate[models.Notification](q.Session(&gorm.Session{}), page)
}

func (i *Inbox) Unread(ctx context.Context, user User) (int64, error) {
	var n int64
	err := i.db.WithContext(ctx).Model(&models.Notification{}).
		Where("profile_id = ? AND is_read = ?", user.ProfileID(), false).
		Count(&n).Error
	return n, dependency("count unread", err)
}

func (i *Inbox) MarkRead(ctx context.Context, user User, id uint) error {
	res := i.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND profile_id = ?", id, user.ProfileID()).
		Update("is_read", true)
	if res.Error != nil {
		return dependency("mark notification read", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("NOTIFICATION_NOT_FOUND", "notification not found")
	}
	return nil
}

func (i *Inbox) MarkAllRead(ctx context.Context, user User) (int64, error) {
	res := i.db.WithContext(ctx).Model(&models.Notification{}).
		Where("profile_id = ? AND is_read = ?", user.ProfileID(), false).
		Update("is_read", true)
	if res.Error != nil {
		return 0, dependency("mark notifications read", res.Error)
	}
	return res.RowsAffected, nil
}

type PreferencesUpdate struct {
	Preferences    models.NotificationPreferences
	TelegramChatID *string
}

func (i *Inbox) UpdatePreferences(ctx context.Context, user User, in PreferencesUpdate) (*models.Profile, error) {
	updates := map[string]any{
		"notify_payment":   in.Preferences.Payment,
		"notify_balance":   in.Preferences.Balance,
		"notify_system":    in.Preferences.System,
		"notify_promotion": in.Preferences.Promotion,
	}
	if in.TelegramChatID != nil {
		id := strings.TrimSpace(*in.TelegramChatID)
		if len(id) > 32 {
			return nil, validation("INVALID_CHANNEL_IDENTITY", "telegram chat id is too long")
		}
		updates["telegram_chat_id"] = id
	}

	db := i.db.WithContext(ctx)
	if err := db.Model(&models.Profile{}).Where("id = ?", user.ProfileID()).Updates(updates).Error; err != nil {
		return nil, dependency("update preferences", err)
	}

	var p models.Profile
	if err := db.First(&p, user.ProfileID()).Error; err != nil {
		return nil, dependency("reload profile", err)
	}
	return &p, nil
}

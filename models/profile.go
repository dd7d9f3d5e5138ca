package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Profile struct {
	gorm.Model

	Username       string          `gorm:"uniqueIndex;size:32" json:"username"`
	DisplayName    string          `gorm:"size:64" json:"display_name"`
	Balance        decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"balance"`
	IsAdmin        bool            `json:"is_admin"`
	IsActive       bool            `json:"is_active"`
	TelegramChatID string          `gorm:"size:32" json:"telegram_chat_id,omitempty"`

	Preferences NotificationPreferences `gorm:"embedded;embeddedPrefix:notify_" json:"preferences"`
}

// NotificationPreferences gate side-channel delivery per notification type.
// In-app notifications are always written.
type NotificationPreferences struct {
	Payment   bool `json:"payment"`
	Balance   bool `json:"balance"`
	System    bool `json:"system"`
	Promotion bool `json:"promotion"`
}

func DefaultPreferences() NotificationPreferences {
	return NotificationPreferences{Payment: true, Balance: true, System: true, Promotion: true}
}

func (p NotificationPreferences) Allows(t NotificationType) bool {
	switch t {
	case NotificationPayment:
		return p.Payment
	case NotificationBalance:
		return p.Balance
	case NotificationSystem:
		return p.System
	case NotificationPromotion:
		return p.Promotion
	}
	return false
}

// ProfileSummary is the display projection joined into admin listings.
type ProfileSummary struct {
	ID          uint   `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

func (p *Profile) Summary() *ProfileSummary {
	if p == nil || p.ID == 0 {
		return nil
	}
	return &ProfileSummary{ID: p.ID, Username: p.Username, DisplayName: p.DisplayName}
}

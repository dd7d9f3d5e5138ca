package models

import "time"

type NotificationType string

const (
	NotificationPayment   NotificationType = "payment"
	NotificationBalance   NotificationType = "balance"
	NotificationSystem    NotificationType = "system"
	NotificationPromotion NotificationType = "promotion"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationPayment, NotificationBalance, NotificationSystem, NotificationPromotion:
		return true
	}
	return false
}

type Notification struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	ProfileID   uint             `gorm:"index;not null" json:"profile_id"`
	Title       string           `gorm:"size:128;not null" json:"title"`
	Content     string           `gorm:"type:text" json:"content"`
	Type        NotificationType `gorm:"size:16;index;not null" json:"type"`
	ReferenceID *string          `gorm:"size:64" json:"reference_id,omitempty"`
	IsRead      bool             `gorm:"index" json:"is_read"`
	CreatedAt   time.Time        `gorm:"index" json:"created_at"`
}

package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	ActionApproveRequest = "approve_payment_request"
	ActionRejectRequest  = "reject_payment_request"
	ActionAdjustBalance  = "adjust_balance"
	ActionBroadcast      = "broadcast_notification"
)

const (
	EntityPaymentRequest = "payment_request"
	EntityProfile        = "profile"
	EntityNotification   = "notification"
)

type AdminLog struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	AdminID    uint              `gorm:"index;not null" json:"admin_id"`
	Action     string            `gorm:"size:48;index;not null" json:"action"`
	EntityType string            `gorm:"size:32;not null" json:"entity_type"`
	EntityID   string            `gorm:"size:64;index" json:"entity_id"`
	Details    datatypes.JSONMap `json:"details"`
	CreatedAt  time.Time         `gorm:"index" json:"created_at"`
}

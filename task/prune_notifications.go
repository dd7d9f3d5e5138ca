package tasks

import (
	"context"
	"time"

	"cashier/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PruneReadNotifications deletes read notifications older than the retention
// window. Unread notifications are kept regardless of age.
func PruneReadNotifications(ctx context.Context, db *gorm.DB, retentionDays int, log *zap.Logger) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	result := db.WithContext(ctx).
		Where("is_read = ? AND created_at < ?", true, cutoff).
		Delete(&models.Notification{})

	if result.Error != nil {
		log.Error("failed to prune notifications", zap.Error(result.Error))
		return 0, result.Error
	}
	log.Info("pruned read notifications",
		zap.Int64("deleted", result.RowsAffected),
		zap.Int("retention_days", retentionDays),
	)
	return result.RowsAffected, nil
}

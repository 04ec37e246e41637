package logging

import (
	"context"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/models"
	"gorm.io/gorm"
)

// PurgeBefore deletes system_logs recorded before cutoff.
func PurgeBefore(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	result := db.WithContext(ctx).Where("timestamp < ?", cutoff.UTC()).Delete(&models.SystemLog{})
	return result.RowsAffected, result.Error
}

// RetentionJob returns a scheduler job keeping system_logs within retention.
func RetentionJob(db *gorm.DB, retention time.Duration) func(context.Context) error {
	return func(ctx context.Context) error {
		deleted, err := PurgeBefore(ctx, db, time.Now().Add(-retention))
		if err != nil {
			return err
		}
		if deleted > 0 {
			slog.Info("log cleanup completed", "deleted", deleted)
		}
		return nil
	}
}

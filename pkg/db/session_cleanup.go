package db

import (
	"context"
	"time"

	"github.com/msmirnov/tg-flashdeck/pkg/logger"
	"gorm.io/gorm"
)

const SessionCleanupInterval = time.Hour

func CleanupExpiredSessions(gdb *gorm.DB, now time.Time) (int64, error) {
	if gdb == nil {
		return 0, nil
	}
	res := gdb.Where("expires_at <= ?", now).Delete(&StudySession{})
	return res.RowsAffected, res.Error
}

func StartSessionCleanup(ctx context.Context, gdb *gorm.DB, interval time.Duration) {
	if interval <= 0 {
		interval = SessionCleanupInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := CleanupExpiredSessions(gdb, time.Now().UTC()); err != nil {
				logger.Error("failed to cleanup expired study sessions", "error", err)
			}
		}
	}
}

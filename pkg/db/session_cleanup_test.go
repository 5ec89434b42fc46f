package db_test

import (
	"testing"
	"time"

	"github.com/msmirnov/tg-flashdeck/pkg/db"
	"github.com/msmirnov/tg-flashdeck/pkg/internal/testutil"
	"gorm.io/datatypes"
)

func TestCleanupExpiredSessions(t *testing.T) {
	gdb := testutil.SetupTestDB(t)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	expired := db.StudySession{
		ChatID:         1,
		UserID:         1,
		CardIDs:        datatypes.JSON([]byte(`[1,2]`)),
		StartedAt:      now.Add(-48 * time.Hour),
		LastActivityAt: now.Add(-48 * time.Hour),
		ExpiresAt:      now.Add(-24 * time.Hour),
	}
	active := db.StudySession{
		ChatID:         2,
		UserID:         2,
		CardIDs:        datatypes.JSON([]byte(`[3]`)),
		StartedAt:      now.Add(-time.Hour),
		LastActivityAt: now.Add(-time.Hour),
		ExpiresAt:      now.Add(23 * time.Hour),
	}
	for _, row := range []db.StudySession{expired, active} {
		if err := gdb.Create(&row).Error; err != nil {
			t.Fatalf("failed to seed session: %v", err)
		}
	}

	deleted, err := db.CleanupExpiredSessions(gdb, now)
	if err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deleted session, got %d", deleted)
	}

	var remaining []db.StudySession
	if err := gdb.Find(&remaining).Error; err != nil {
		t.Fatalf("failed to list sessions: %v", err)
	}
	if len(remaining) != 1 || remaining[0].UserID != 2 {
		t.Fatalf("expected only the active session to survive, got %+v", remaining)
	}
}

package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/msmirnov/tg-flashdeck/pkg/db"
	"github.com/msmirnov/tg-flashdeck/pkg/streak"
	"gorm.io/gorm"
)

// Recorder owns the UserStats and DailyActivity counters that back
// achievement evaluation. Deck/card CRUD and the session runner report here;
// the streak engine only reads.
type Recorder struct {
	db  *gorm.DB
	now func() time.Time
	loc *time.Location
}

func NewRecorder(gdb *gorm.DB, now func() time.Time, loc *time.Location) *Recorder {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Recorder{db: gdb, now: now, loc: loc}
}

// SessionSummary describes one completed study session.
type SessionSummary struct {
	Cards           int
	WeightedCorrect float64
	Duration        time.Duration
	// DueRemaining is the user's due-card count right after the session;
	// zero marks the day as overdue-free.
	DueRemaining int64
}

// Accuracy is the session's weighted recall percentage.
func (s SessionSummary) Accuracy() float64 {
	if s.Cards == 0 {
		return 0
	}
	return s.WeightedCorrect / float64(s.Cards) * 100
}

func (r *Recorder) RecordDeckCreated(ctx context.Context, userID int64) error {
	return r.increment(ctx, userID, "decks_created", 1)
}

func (r *Recorder) RecordCardsCreated(ctx context.Context, userID int64, count int) error {
	if count <= 0 {
		return nil
	}
	return r.increment(ctx, userID, "cards_created", count)
}

func (r *Recorder) RecordOnTimeReview(ctx context.Context, userID int64) error {
	return r.increment(ctx, userID, "on_time_reviews", 1)
}

// RecordSession folds a completed session into the cumulative counters, the
// per-day activity row and the best/max fields, in one transaction.
func (r *Recorder) RecordSession(ctx context.Context, userID int64, summary SessionSummary) error {
	now := r.now().UTC()
	day := r.dayOf(now)
	minutes := int(summary.Duration.Minutes())

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var activity db.DailyActivity
		if err := tx.Where(db.DailyActivity{UserID: userID, Day: day}).
			FirstOrCreate(&activity).Error; err != nil {
			return fmt.Errorf("ensure daily activity: %w", err)
		}
		activity.CardsReviewed += summary.Cards
		activity.WeightedCorrect += summary.WeightedCorrect
		activity.Minutes += minutes
		if err := tx.Save(&activity).Error; err != nil {
			return fmt.Errorf("save daily activity: %w", err)
		}

		var stats db.UserStats
		if err := tx.Where(db.UserStats{UserID: userID}).FirstOrCreate(&stats).Error; err != nil {
			return fmt.Errorf("ensure stats row: %w", err)
		}

		stats.TotalSessions++
		stats.TotalCardsReviewed += summary.Cards
		stats.TotalMinutes += minutes
		if activity.CardsReviewed > stats.MaxCardsPerDay {
			stats.MaxCardsPerDay = activity.CardsReviewed
		}
		if accuracy := summary.Accuracy(); summary.Cards > 0 && accuracy > stats.BestSessionAccuracy {
			stats.BestSessionAccuracy = accuracy
		}
		if minutes > stats.BestSessionMinutes {
			stats.BestSessionMinutes = minutes
		}
		if activity.Minutes > stats.MaxDailyMinutes {
			stats.MaxDailyMinutes = activity.Minutes
		}

		r.applyCleanDay(&stats, summary, now)

		if err := tx.Save(&stats).Error; err != nil {
			return fmt.Errorf("save stats: %w", err)
		}
		return nil
	})
}

// applyCleanDay maintains the all_daily_reviews and days_without_overdue
// counters: a day is clean when a session ends with nothing left due.
func (r *Recorder) applyCleanDay(stats *db.UserStats, summary SessionSummary, now time.Time) {
	if summary.Cards == 0 {
		return
	}
	if summary.DueRemaining > 0 {
		stats.DaysWithoutOverdue = 0
		stats.LastCleanDay = nil
		return
	}
	if stats.LastCleanDay != nil && streak.SameCalendarDay(*stats.LastCleanDay, now, r.loc) {
		return
	}

	yesterday := now.AddDate(0, 0, -1)
	if stats.LastCleanDay != nil && streak.SameCalendarDay(*stats.LastCleanDay, yesterday, r.loc) {
		stats.DaysWithoutOverdue++
	} else {
		stats.DaysWithoutOverdue = 1
	}
	stats.AllDailyReviewDays++
	cleanDay := now
	stats.LastCleanDay = &cleanDay
}

func (r *Recorder) increment(ctx context.Context, userID int64, column string, delta int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stats db.UserStats
		if err := tx.Where(db.UserStats{UserID: userID}).FirstOrCreate(&stats).Error; err != nil {
			return fmt.Errorf("ensure stats row: %w", err)
		}
		if err := tx.Model(&db.UserStats{}).
			Where("user_id = ?", userID).
			UpdateColumn(column, gorm.Expr(column+" + ?", delta)).Error; err != nil {
			return fmt.Errorf("increment %s: %w", column, err)
		}
		return nil
	})
}

func (r *Recorder) dayOf(now time.Time) time.Time {
	local := now.In(r.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

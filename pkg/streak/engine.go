package streak

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/msmirnov/tg-flashdeck/pkg/db"
	"github.com/msmirnov/tg-flashdeck/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNoFreezes = errors.New("no streak freezes available")

// Streak lengths that automatically grant a bonus freeze.
const (
	weeklyFreezeMilestone  = 7
	monthlyFreezeMilestone = 30
)

// Engine maintains per-user streak state and achievement unlocks. One
// UpdateStreak call is expected per completed study session.
type Engine struct {
	db  *gorm.DB
	now func() time.Time
	loc *time.Location
}

func NewEngine(gdb *gorm.DB, now func() time.Time, loc *time.Location) *Engine {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{db: gdb, now: now, loc: loc}
}

type UpdateResult struct {
	CurrentStreak    int
	LongestStreak    int
	StreakFreezes    int
	StreakMaintained bool
	FreezeConsumed   bool
	FreezeEarned     bool
	NewAchievements  []Achievement
}

// StreakData is the read view of a user's streak, including the full catalog
// with unlock flags. Absent rows read as the zero state without creating one.
type StreakData struct {
	CurrentStreak int
	LongestStreak int
	LastStudyDate *time.Time
	StreakFreezes int
	Achievements  []AchievementStatus
}

// UpdateStreak applies the daily streak transition for one completed study
// session and evaluates achievements. Calling it twice within the same
// calendar day only refreshes the study date.
func (e *Engine) UpdateStreak(ctx context.Context, userID int64) (UpdateResult, error) {
	now := e.now().UTC()
	var result UpdateResult

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row db.UserStreak
		// The row stays locked until commit so a concurrent freeze spend
		// cannot land between this read and the write-back. The sqlite
		// driver ignores the locking clause.
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).First(&row).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("load streak: %w", err)
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			row = db.UserStreak{UserID: userID}
		}

		sameDay := false
		switch {
		case row.LastStudyDate == nil:
			row.CurrentStreak = 1
		case e.isToday(*row.LastStudyDate, now):
			sameDay = true
			result.StreakMaintained = true
		case e.isYesterday(*row.LastStudyDate, now):
			row.CurrentStreak++
			result.StreakMaintained = true
		case row.StreakFreezes > 0:
			// A freeze covers exactly one missed day regardless of the gap.
			row.StreakFreezes--
			row.CurrentStreak++
			result.StreakMaintained = true
			result.FreezeConsumed = true
		default:
			row.CurrentStreak = 1
		}

		if sameDay {
			// Only the study date moves; the other columns must keep
			// whatever concurrent updates wrote to them.
			if err := tx.Model(&db.UserStreak{}).
				Where("user_id = ?", userID).
				UpdateColumn("last_study_date", now).Error; err != nil {
				return fmt.Errorf("refresh study date: %w", err)
			}
			result.CurrentStreak = row.CurrentStreak
			result.LongestStreak = row.LongestStreak
			result.StreakFreezes = row.StreakFreezes
			return nil
		}

		if row.CurrentStreak > row.LongestStreak {
			row.LongestStreak = row.CurrentStreak
		}
		if row.CurrentStreak == weeklyFreezeMilestone || row.CurrentStreak == monthlyFreezeMilestone {
			row.StreakFreezes++
			result.FreezeEarned = true
		}
		studiedAt := now
		row.LastStudyDate = &studiedAt

		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			UpdateAll: true,
		}).Create(&row).Error; err != nil {
			return fmt.Errorf("save streak: %w", err)
		}

		result.CurrentStreak = row.CurrentStreak
		result.LongestStreak = row.LongestStreak
		result.StreakFreezes = row.StreakFreezes
		return nil
	})
	if err != nil {
		return UpdateResult{}, err
	}

	unlocked, err := e.CheckAchievements(ctx, userID)
	if err != nil {
		// The streak transition is committed; achievement evaluation being
		// down must not look like a failed session.
		logger.Error("achievement evaluation failed", "user_id", userID, "error", err)
		return result, nil
	}
	result.NewAchievements = unlocked
	return result, nil
}

// UseStreakFreeze spends one freeze. It is not idempotent: two calls consume
// two freezes.
func (e *Engine) UseStreakFreeze(ctx context.Context, userID int64) (int, error) {
	res := e.db.WithContext(ctx).Model(&db.UserStreak{}).
		Where("user_id = ? AND streak_freezes > 0", userID).
		UpdateColumn("streak_freezes", gorm.Expr("streak_freezes - 1"))
	if res.Error != nil {
		return 0, fmt.Errorf("use streak freeze: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, ErrNoFreezes
	}

	var row db.UserStreak
	if err := e.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error; err != nil {
		return 0, fmt.Errorf("reload streak: %w", err)
	}
	return row.StreakFreezes, nil
}

// EarnStreakFreeze grants one freeze. No upper bound is enforced.
func (e *Engine) EarnStreakFreeze(ctx context.Context, userID int64) (int, error) {
	var total int
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row db.UserStreak
		if err := tx.Where(db.UserStreak{UserID: userID}).FirstOrCreate(&row).Error; err != nil {
			return fmt.Errorf("ensure streak row: %w", err)
		}
		if err := tx.Model(&db.UserStreak{}).
			Where("user_id = ?", userID).
			UpdateColumn("streak_freezes", gorm.Expr("streak_freezes + 1")).Error; err != nil {
			return fmt.Errorf("earn streak freeze: %w", err)
		}
		if err := tx.Where("user_id = ?", userID).First(&row).Error; err != nil {
			return fmt.Errorf("reload streak: %w", err)
		}
		total = row.StreakFreezes
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (e *Engine) StreakData(ctx context.Context, userID int64) (StreakData, error) {
	var data StreakData

	var row db.UserStreak
	err := e.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return data, fmt.Errorf("load streak: %w", err)
	}
	if err == nil {
		data.CurrentStreak = row.CurrentStreak
		data.LongestStreak = row.LongestStreak
		data.LastStudyDate = row.LastStudyDate
		data.StreakFreezes = row.StreakFreezes
	}

	unlockedIDs, err := e.unlockedIDs(ctx, userID)
	if err != nil {
		return data, err
	}
	for _, a := range Catalog() {
		data.Achievements = append(data.Achievements, AchievementStatus{
			Achievement: a,
			Unlocked:    unlockedIDs[a.ID],
		})
	}
	return data, nil
}

// CheckAchievements evaluates every not-yet-unlocked catalog entry against
// the user's current counters and persists new unlocks. Unlocks are monotone:
// the unique (user, achievement) index makes re-unlocking a no-op.
func (e *Engine) CheckAchievements(ctx context.Context, userID int64) ([]Achievement, error) {
	unlockedIDs, err := e.unlockedIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	var streakRow db.UserStreak
	if err := e.db.WithContext(ctx).Where("user_id = ?", userID).First(&streakRow).Error; err != nil &&
		!errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load streak: %w", err)
	}
	var stats db.UserStats
	if err := e.db.WithContext(ctx).Where("user_id = ?", userID).First(&stats).Error; err != nil &&
		!errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load stats: %w", err)
	}

	now := e.now().UTC()
	monthlyAccuracy := -1.0

	var unlocked []Achievement
	for _, a := range catalog {
		if unlockedIDs[a.ID] {
			continue
		}

		var value float64
		switch a.Condition {
		case ConditionSessions:
			value = float64(stats.TotalSessions)
		case ConditionCardsPerDay:
			value = float64(stats.MaxCardsPerDay)
		case ConditionTotalCards:
			value = float64(stats.TotalCardsReviewed)
		case ConditionConsecutiveDays, ConditionStreakDays:
			value = float64(streakRow.CurrentStreak)
		case ConditionDecksCreated:
			value = float64(stats.DecksCreated)
		case ConditionCardsCreated:
			value = float64(stats.CardsCreated)
		case ConditionSessionAccuracy:
			value = stats.BestSessionAccuracy
		case ConditionMonthlyAccuracy:
			if monthlyAccuracy < 0 {
				monthlyAccuracy, err = e.monthlyAccuracy(ctx, userID, now)
				if err != nil {
					return nil, err
				}
			}
			value = monthlyAccuracy
		case ConditionSessionMinutes:
			value = float64(stats.BestSessionMinutes)
		case ConditionDailyMinutes:
			value = float64(stats.MaxDailyMinutes)
		case ConditionTotalMinutes:
			value = float64(stats.TotalMinutes)
		case ConditionOnTimeReviews:
			value = float64(stats.OnTimeReviews)
		case ConditionAllDailyReviews:
			value = float64(stats.AllDailyReviewDays)
		case ConditionDaysWithoutOverdue:
			value = float64(stats.DaysWithoutOverdue)
		default:
			continue
		}

		if value < float64(a.Milestone) {
			continue
		}

		res := e.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&db.AchievementUnlock{
			UserID:        userID,
			AchievementID: a.ID,
			UnlockedAt:    now,
		})
		if res.Error != nil {
			return nil, fmt.Errorf("persist unlock: %w", res.Error)
		}
		if res.RowsAffected > 0 {
			unlocked = append(unlocked, a)
		}
	}
	return unlocked, nil
}

func (e *Engine) unlockedIDs(ctx context.Context, userID int64) (map[string]bool, error) {
	var rows []db.AchievementUnlock
	if err := e.db.WithContext(ctx).Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load unlocks: %w", err)
	}
	ids := make(map[string]bool, len(rows))
	for _, row := range rows {
		ids[row.AchievementID] = true
	}
	return ids, nil
}

// monthlyAccuracy is the weighted recall percentage over the trailing 30 days
// of daily activity; 0 when no cards were reviewed in the window.
func (e *Engine) monthlyAccuracy(ctx context.Context, userID int64, now time.Time) (float64, error) {
	since := now.AddDate(0, 0, -30)
	var rows []db.DailyActivity
	if err := e.db.WithContext(ctx).
		Where("user_id = ? AND day > ?", userID, since).
		Find(&rows).Error; err != nil {
		return 0, fmt.Errorf("load daily activity: %w", err)
	}

	cards := 0
	weighted := 0.0
	for _, row := range rows {
		cards += row.CardsReviewed
		weighted += row.WeightedCorrect
	}
	if cards == 0 {
		return 0, nil
	}
	return weighted / float64(cards) * 100, nil
}

package stats

import (
	"context"
	"testing"
	"time"

	"github.com/msmirnov/tg-flashdeck/pkg/db"
	"github.com/msmirnov/tg-flashdeck/pkg/internal/testutil"
	"github.com/msmirnov/tg-flashdeck/pkg/streak"
)

func TestRecordSessionAccumulatesTotals(t *testing.T) {
	gdb := testutil.SetupTestDB(t)
	now := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	r := NewRecorder(gdb, func() time.Time { return now }, time.UTC)

	summary := SessionSummary{Cards: 10, WeightedCorrect: 8.5, Duration: 12 * time.Minute, DueRemaining: 3}
	if err := r.RecordSession(context.Background(), 200, summary); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if err := r.RecordSession(context.Background(), 200, summary); err != nil {
		t.Fatalf("second record failed: %v", err)
	}

	var stats db.UserStats
	if err := gdb.Where("user_id = ?", 200).First(&stats).Error; err != nil {
		t.Fatalf("expected stats row: %v", err)
	}
	if stats.TotalSessions != 2 || stats.TotalCardsReviewed != 20 || stats.TotalMinutes != 24 {
		t.Fatalf("unexpected totals: %+v", stats)
	}
	if stats.MaxCardsPerDay != 20 {
		t.Fatalf("max cards per day must follow the day total, got %d", stats.MaxCardsPerDay)
	}
	if stats.BestSessionAccuracy != 85 {
		t.Fatalf("expected best session accuracy 85, got %v", stats.BestSessionAccuracy)
	}
	if stats.BestSessionMinutes != 12 || stats.MaxDailyMinutes != 24 {
		t.Fatalf("unexpected minute maxima: %+v", stats)
	}

	var activity db.DailyActivity
	if err := gdb.Where("user_id = ?", 200).First(&activity).Error; err != nil {
		t.Fatalf("expected daily activity row: %v", err)
	}
	if activity.CardsReviewed != 20 || activity.Minutes != 24 {
		t.Fatalf("unexpected daily activity: %+v", activity)
	}
	if activity.WeightedCorrect != 17 {
		t.Fatalf("expected weighted correct 17, got %v", activity.WeightedCorrect)
	}
}

func TestRecordSessionKeepsBestAccuracy(t *testing.T) {
	gdb := testutil.SetupTestDB(t)
	now := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	r := NewRecorder(gdb, func() time.Time { return now }, time.UTC)

	good := SessionSummary{Cards: 4, WeightedCorrect: 4, Duration: 5 * time.Minute, DueRemaining: 1}
	bad := SessionSummary{Cards: 10, WeightedCorrect: 2, Duration: 3 * time.Minute, DueRemaining: 1}
	if err := r.RecordSession(context.Background(), 201, good); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if err := r.RecordSession(context.Background(), 201, bad); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	var stats db.UserStats
	if err := gdb.Where("user_id = ?", 201).First(&stats).Error; err != nil {
		t.Fatalf("expected stats row: %v", err)
	}
	if stats.BestSessionAccuracy != 100 {
		t.Fatalf("a worse session must not lower the best accuracy, got %v", stats.BestSessionAccuracy)
	}
	if stats.BestSessionMinutes != 5 {
		t.Fatalf("a shorter session must not lower the best duration, got %d", stats.BestSessionMinutes)
	}
}

func TestCleanDayCountersGrowAcrossConsecutiveDays(t *testing.T) {
	gdb := testutil.SetupTestDB(t)
	now := time.Date(2025, 3, 10, 21, 0, 0, 0, time.UTC)
	r := NewRecorder(gdb, func() time.Time { return now }, time.UTC)

	clean := SessionSummary{Cards: 5, WeightedCorrect: 5, Duration: 4 * time.Minute, DueRemaining: 0}
	for i := 0; i < 3; i++ {
		r.now = func() time.Time { return now.AddDate(0, 0, i) }
		if err := r.RecordSession(context.Background(), 202, clean); err != nil {
			t.Fatalf("record on day %d failed: %v", i, err)
		}
	}

	var stats db.UserStats
	if err := gdb.Where("user_id = ?", 202).First(&stats).Error; err != nil {
		t.Fatalf("expected stats row: %v", err)
	}
	if stats.AllDailyReviewDays != 3 {
		t.Fatalf("expected 3 clean days, got %d", stats.AllDailyReviewDays)
	}
	if stats.DaysWithoutOverdue != 3 {
		t.Fatalf("expected 3 consecutive clean days, got %d", stats.DaysWithoutOverdue)
	}
	if stats.LastCleanDay == nil || !streak.SameCalendarDay(*stats.LastCleanDay, now.AddDate(0, 0, 2), time.UTC) {
		t.Fatalf("expected last clean day on the final session, got %v", stats.LastCleanDay)
	}
}

func TestCleanDayCountedOncePerDay(t *testing.T) {
	gdb := testutil.SetupTestDB(t)
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	r := NewRecorder(gdb, func() time.Time { return now }, time.UTC)

	clean := SessionSummary{Cards: 2, WeightedCorrect: 2, Duration: time.Minute, DueRemaining: 0}
	for i := 0; i < 3; i++ {
		if err := r.RecordSession(context.Background(), 203, clean); err != nil {
			t.Fatalf("record failed: %v", err)
		}
	}

	var stats db.UserStats
	if err := gdb.Where("user_id = ?", 203).First(&stats).Error; err != nil {
		t.Fatalf("expected stats row: %v", err)
	}
	if stats.AllDailyReviewDays != 1 || stats.DaysWithoutOverdue != 1 {
		t.Fatalf("repeated clean sessions in one day must count once, got %+v", stats)
	}
}

func TestOverdueSessionResetsConsecutiveCounter(t *testing.T) {
	gdb := testutil.SetupTestDB(t)
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	r := NewRecorder(gdb, func() time.Time { return now }, time.UTC)

	clean := SessionSummary{Cards: 2, WeightedCorrect: 2, Duration: time.Minute, DueRemaining: 0}
	if err := r.RecordSession(context.Background(), 204, clean); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	r.now = func() time.Time { return now.AddDate(0, 0, 1) }
	dirty := SessionSummary{Cards: 2, WeightedCorrect: 1, Duration: time.Minute, DueRemaining: 7}
	if err := r.RecordSession(context.Background(), 204, dirty); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	var stats db.UserStats
	if err := gdb.Where("user_id = ?", 204).First(&stats).Error; err != nil {
		t.Fatalf("expected stats row: %v", err)
	}
	if stats.DaysWithoutOverdue != 0 {
		t.Fatalf("a session ending with due cards must reset the counter, got %d", stats.DaysWithoutOverdue)
	}
	if stats.AllDailyReviewDays != 1 {
		t.Fatalf("lifetime clean-day count must survive a dirty day, got %d", stats.AllDailyReviewDays)
	}
}

func TestCountersIncrement(t *testing.T) {
	gdb := testutil.SetupTestDB(t)
	r := NewRecorder(gdb, nil, nil)
	ctx := context.Background()

	if err := r.RecordDeckCreated(ctx, 205); err != nil {
		t.Fatalf("deck increment failed: %v", err)
	}
	if err := r.RecordCardsCreated(ctx, 205, 15); err != nil {
		t.Fatalf("cards increment failed: %v", err)
	}
	if err := r.RecordCardsCreated(ctx, 205, 0); err != nil {
		t.Fatalf("zero cards must be a no-op, got %v", err)
	}
	if err := r.RecordOnTimeReview(ctx, 205); err != nil {
		t.Fatalf("on-time increment failed: %v", err)
	}
	if err := r.RecordOnTimeReview(ctx, 205); err != nil {
		t.Fatalf("on-time increment failed: %v", err)
	}

	var stats db.UserStats
	if err := gdb.Where("user_id = ?", 205).First(&stats).Error; err != nil {
		t.Fatalf("expected stats row: %v", err)
	}
	if stats.DecksCreated != 1 || stats.CardsCreated != 15 || stats.OnTimeReviews != 2 {
		t.Fatalf("unexpected counters: %+v", stats)
	}
}

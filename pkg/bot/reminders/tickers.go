package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/go-telegram/bot"
	"github.com/msmirnov/tg-flashdeck/pkg/db"
	"github.com/msmirnov/tg-flashdeck/pkg/logger"
	"github.com/msmirnov/tg-flashdeck/pkg/srs"
	"gorm.io/gorm"
)

const (
	slotMorningHour   = 8
	slotAfternoonHour = 13
	slotEveningHour   = 20
)

// Notifier nudges users with due cards at their enabled reminder slots. A
// slot fires at most once; the send timestamp is the dedup marker.
type Notifier struct {
	db        *gorm.DB
	scheduler *srs.Scheduler
	now       func() time.Time
}

func NewNotifier(gdb *gorm.DB, scheduler *srs.Scheduler, now func() time.Time) *Notifier {
	if now == nil {
		now = time.Now
	}
	return &Notifier{db: gdb, scheduler: scheduler, now: now}
}

func (n *Notifier) StartPeriodicMessages(ctx context.Context, b *bot.Bot) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.processReminders(ctx, b, n.now().UTC())
		}
	}
}

func (n *Notifier) processReminders(ctx context.Context, b *bot.Bot, now time.Time) {
	var users []db.UserSettings
	if err := n.db.Find(&users).Error; err != nil {
		logger.Error("failed to fetch users for reminders", "error", err)
		return
	}

	for _, user := range users {
		n.handleUserReminder(ctx, b, user, now)
	}
}

func (n *Notifier) handleUserReminder(ctx context.Context, b *bot.Bot, user db.UserSettings, now time.Time) {
	slot, ok := latestDueSlot(now, user)
	if !ok {
		return
	}

	due, err := n.scheduler.DueCount(ctx, user.UserID)
	if err != nil {
		logger.Error("failed to count due cards", "user_id", user.UserID, "error", err)
		return
	}
	if due == 0 {
		return
	}

	text := fmt.Sprintf("You have %d cards due. Run /study to keep your streak going.", due)
	if due == 1 {
		text = "You have 1 card due. Run /study to keep your streak going."
	}
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: user.UserID,
		Text:   text,
	}); err != nil {
		logger.Error("failed to send reminder message", "user_id", user.UserID, "error", err)
		return
	}

	if err := n.db.Model(&db.UserSettings{}).
		Where("user_id = ?", user.UserID).
		Update("last_reminder_sent_at", slot).Error; err != nil {
		logger.Error("failed to update reminder state", "user_id", user.UserID, "error", err)
	}
}

// latestDueSlot finds the most recent enabled slot that has passed in the
// user's local time and was not already served.
func latestDueSlot(now time.Time, user db.UserSettings) (time.Time, bool) {
	offset := time.Duration(user.TimezoneOffsetHours) * time.Hour
	localNow := now.Add(offset)
	year, month, day := localNow.Date()

	var latest time.Time
	consider := func(enabled bool, hour int) {
		if !enabled {
			return
		}
		localSlot := time.Date(year, month, day, hour, 0, 0, 0, time.UTC)
		slotUTC := localSlot.Add(-offset)
		if now.Before(slotUTC) {
			return
		}
		if user.LastReminderSentAt != nil && !user.LastReminderSentAt.Before(slotUTC) {
			return
		}
		if latest.IsZero() || slotUTC.After(latest) {
			latest = slotUTC
		}
	}

	consider(user.ReminderMorning, slotMorningHour)
	consider(user.ReminderAfternoon, slotAfternoonHour)
	consider(user.ReminderEvening, slotEveningHour)

	if latest.IsZero() {
		return time.Time{}, false
	}
	return latest, true
}

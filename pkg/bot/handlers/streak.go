package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/msmirnov/tg-flashdeck/pkg/logger"
	"github.com/msmirnov/tg-flashdeck/pkg/streak"
)

func (h *Handlers) HandleStreak(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !validMessageUpdate(update) {
		logger.Error("invalid update in HandleStreak")
		return
	}

	data, err := h.engine.StreakData(ctx, update.Message.From.ID)
	if err != nil {
		logger.Error("failed to load streak data", "user_id", update.Message.From.ID, "error", err)
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "Failed to load your streak. Please try again later.",
		})
		return
	}

	text := fmt.Sprintf("Current streak: %d days\nLongest streak: %d days\nStreak freezes: %d",
		data.CurrentStreak, data.LongestStreak, data.StreakFreezes)
	if data.LastStudyDate != nil {
		text += fmt.Sprintf("\nLast studied: %s", data.LastStudyDate.Format("2006-01-02"))
	}
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   text,
	})
}

func (h *Handlers) HandleFreeze(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !validMessageUpdate(update) {
		logger.Error("invalid update in HandleFreeze")
		return
	}

	remaining, err := h.engine.UseStreakFreeze(ctx, update.Message.From.ID)
	if err != nil {
		if errors.Is(err, streak.ErrNoFreezes) {
			b.SendMessage(ctx, &bot.SendMessageParams{
				ChatID: update.Message.Chat.ID,
				Text:   "You have no streak freezes. Earn one by reaching a 7-day streak.",
			})
			return
		}
		logger.Error("failed to use streak freeze", "user_id", update.Message.From.ID, "error", err)
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "Failed to use a streak freeze. Please try again later.",
		})
		return
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   fmt.Sprintf("Streak freeze used. You have %d left.", remaining),
	})
}

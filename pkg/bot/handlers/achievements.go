package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/msmirnov/tg-flashdeck/pkg/logger"
)

func (h *Handlers) HandleAchievements(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !validMessageUpdate(update) {
		logger.Error("invalid update in HandleAchievements")
		return
	}

	data, err := h.engine.StreakData(ctx, update.Message.From.ID)
	if err != nil {
		logger.Error("failed to load achievements", "user_id", update.Message.From.ID, "error", err)
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "Failed to load your achievements. Please try again later.",
		})
		return
	}

	var sb strings.Builder
	unlocked := 0
	for _, status := range data.Achievements {
		if status.Unlocked {
			unlocked++
		}
	}
	fmt.Fprintf(&sb, "Achievements (%d/%d unlocked):\n", unlocked, len(data.Achievements))
	for _, status := range data.Achievements {
		marker := "🔒"
		if status.Unlocked {
			marker = "✅"
		}
		fmt.Fprintf(&sb, "%s %s: %s\n", marker, status.Name, status.Description)
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   sb.String(),
	})
}

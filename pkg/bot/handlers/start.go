package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/msmirnov/tg-flashdeck/pkg/db"
	"github.com/msmirnov/tg-flashdeck/pkg/logger"
)

func (h *Handlers) HandleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !validMessageUpdate(update) {
		logger.Error("invalid update in HandleStart")
		return
	}

	var settings db.UserSettings
	if err := h.db.Where(db.UserSettings{UserID: update.Message.From.ID}).
		FirstOrCreate(&settings).Error; err != nil {
		logger.Error("failed to initialize settings", "user_id", update.Message.From.ID, "error", err)
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "Failed to set up your account. Please try again later.",
		})
		return
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text: "Welcome to FlashDeck. Send me a CSV file with question,answer rows to create a deck, " +
			"then run /study to review. Daily study keeps your streak alive; check it with /streak.",
	})
}

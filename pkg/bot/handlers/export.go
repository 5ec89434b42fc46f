package handlers

import (
	"bytes"
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/msmirnov/tg-flashdeck/pkg/bot/importexport"
	"github.com/msmirnov/tg-flashdeck/pkg/db"
	"github.com/msmirnov/tg-flashdeck/pkg/logger"
)

func (h *Handlers) HandleExport(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !validMessageUpdate(update) {
		logger.Error("invalid update in HandleExport")
		return
	}
	if update.Message.Chat.Type != models.ChatTypePrivate {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "The /export command works only in private chat.",
		})
		return
	}
	userID := update.Message.From.ID

	var cards []db.Flashcard
	if err := h.db.Where("user_id = ?", userID).Order("question ASC, id ASC").Find(&cards).Error; err != nil {
		logger.Error("failed to fetch flashcards for export", "user_id", userID, "error", err)
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "Failed to export your flashcards. Please try again later.",
		})
		return
	}
	if len(cards) == 0 {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "You have no flashcards to export.",
		})
		return
	}

	importexport.SortCardsForExport(cards)
	data, err := importexport.BuildExportCSV(cards)
	if err != nil {
		logger.Error("failed to build export CSV", "user_id", userID, "error", err)
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "Failed to export your flashcards. Please try again later.",
		})
		return
	}

	filename := importexport.ExportFilename(h.now())
	caption := fmt.Sprintf("Your flashcard export (%d cards).", len(cards))
	_, err = b.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID: update.Message.Chat.ID,
		Document: &models.InputFileUpload{
			Filename: filename,
			Data:     bytes.NewReader(data),
		},
		Caption: caption,
	})
	if err != nil {
		logger.Error("failed to send export document", "user_id", userID, "error", err)
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "Failed to export your flashcards. Please try again later.",
		})
	}
}

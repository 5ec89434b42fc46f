package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/msmirnov/tg-flashdeck/pkg/db"
	"github.com/msmirnov/tg-flashdeck/pkg/logger"
)

func (h *Handlers) HandleDecks(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !validMessageUpdate(update) {
		logger.Error("invalid update in HandleDecks")
		return
	}
	userID := update.Message.From.ID

	var decks []db.Deck
	if err := h.db.Where("user_id = ?", userID).Order("name ASC").Find(&decks).Error; err != nil {
		logger.Error("failed to load decks", "user_id", userID, "error", err)
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "Failed to load your decks. Please try again later.",
		})
		return
	}
	if len(decks) == 0 {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "You have no decks yet. Create one with /newdeck <name> or upload a CSV file.",
		})
		return
	}

	var sb strings.Builder
	sb.WriteString("Your decks:\n")
	for _, deck := range decks {
		var total, due int64
		if err := h.db.Model(&db.Flashcard{}).Where("deck_id = ?", deck.ID).Count(&total).Error; err != nil {
			logger.Error("failed to count deck cards", "deck_id", deck.ID, "error", err)
		}
		if err := h.db.Model(&db.Flashcard{}).
			Where("deck_id = ?", deck.ID).
			Where("next_review_date IS NULL OR next_review_date <= ?", h.now().UTC()).
			Count(&due).Error; err != nil {
			logger.Error("failed to count due deck cards", "deck_id", deck.ID, "error", err)
		}
		fmt.Fprintf(&sb, "- %s: %d cards, %d due\n", deck.Name, total, due)
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   sb.String(),
	})
}

func (h *Handlers) HandleNewDeck(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !validMessageUpdate(update) {
		logger.Error("invalid update in HandleNewDeck")
		return
	}
	userID := update.Message.From.ID

	name := strings.TrimSpace(strings.TrimPrefix(update.Message.Text, "/newdeck"))
	if name == "" {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "Usage: /newdeck <name>",
		})
		return
	}

	var deck db.Deck
	result := h.db.Where(db.Deck{UserID: userID, Name: name}).FirstOrCreate(&deck)
	if result.Error != nil {
		logger.Error("failed to create deck", "user_id", userID, "error", result.Error)
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "Failed to create the deck. Please try again later.",
		})
		return
	}
	if result.RowsAffected == 0 {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   fmt.Sprintf("You already have a deck named %q.", name),
		})
		return
	}

	if err := h.recorder.RecordDeckCreated(ctx, userID); err != nil {
		logger.Error("failed to record deck creation", "user_id", userID, "error", err)
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   fmt.Sprintf("Deck %q created. Upload a CSV file or study it with /study %s.", name, name),
	})
}

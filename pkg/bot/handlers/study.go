package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/msmirnov/tg-flashdeck/pkg/db"
	"github.com/msmirnov/tg-flashdeck/pkg/logger"
	"github.com/msmirnov/tg-flashdeck/pkg/srs"
	"github.com/msmirnov/tg-flashdeck/pkg/stats"
	"github.com/msmirnov/tg-flashdeck/pkg/study"
	"gorm.io/gorm"
)

const defaultCardsPerSession = 10

func (h *Handlers) HandleStudy(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !validMessageUpdate(update) {
		logger.Error("invalid update in HandleStudy")
		return
	}
	if update.Message.Chat.Type != models.ChatTypePrivate {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "The /study command works only in private chat.",
		})
		return
	}

	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	size := defaultCardsPerSession
	var settings db.UserSettings
	if err := h.db.Where("user_id = ?", userID).First(&settings).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("failed to load study settings", "user_id", userID, "error", err)
		}
	} else if settings.CardsPerSession > 0 {
		size = settings.CardsPerSession
	}

	var deckID *uint
	deckName := strings.TrimSpace(strings.TrimPrefix(update.Message.Text, "/study"))
	if deckName != "" {
		var deck db.Deck
		if err := h.db.Where("user_id = ? AND name = ?", userID, deckName).First(&deck).Error; err != nil {
			b.SendMessage(ctx, &bot.SendMessageParams{
				ChatID: chatID,
				Text:   fmt.Sprintf("Deck %q not found. Use /decks to list your decks.", deckName),
			})
			return
		}
		deckID = &deck.ID
	}

	cards, err := h.scheduler.DueFlashcards(ctx, userID, deckID)
	if err != nil {
		logger.Error("failed to load due flashcards", "user_id", userID, "error", err)
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "Failed to start studying. Please try again later.",
		})
		return
	}
	if len(cards) == 0 {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "Nothing is due right now. Well done.",
		})
		return
	}
	if len(cards) > size {
		cards = cards[:size]
	}

	session := h.sessions.StartOrRestart(chatID, userID, cards)
	card := session.CurrentCard()
	if card == nil {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "Nothing is due right now. Well done.",
		})
		return
	}

	h.sendPrompt(ctx, b, chatID, userID, session, *card)
}

func (h *Handlers) HandleStudyCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil || update.CallbackQuery == nil {
		logger.Error("invalid update in HandleStudyCallback")
		return
	}

	callbackID := update.CallbackQuery.ID
	answerCallback := func(text string) {
		if callbackID == "" {
			return
		}
		if _, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
			CallbackQueryID: callbackID,
			Text:            text,
		}); err != nil {
			logger.Error("failed to answer study callback query", "error", err)
		}
	}

	token, difficulty, ok := parseStudyCallback(update.CallbackQuery.Data)
	if !ok {
		answerCallback("Not active")
		return
	}

	message := update.CallbackQuery.Message
	if message.Type != models.MaybeInaccessibleMessageTypeMessage || message.Message == nil {
		answerCallback("Message missing")
		return
	}
	msg := message.Message
	if msg.Chat.ID == 0 {
		answerCallback("Message missing")
		return
	}
	userID := update.CallbackQuery.From.ID

	snapshot, ok := h.sessions.Snapshot(msg.Chat.ID, userID)
	if !ok {
		snapshot, ok = h.restoreSession(msg.Chat.ID, userID)
	}
	if !ok || snapshot.Token != token || snapshot.MessageID != msg.ID {
		answerCallback("Not active")
		return
	}

	outcome, err := h.scheduler.ReviewFlashcard(ctx, userID, snapshot.Card.ID, difficulty)
	if err != nil {
		if errors.Is(err, srs.ErrCardNotFound) {
			answerCallback("Card missing")
			h.sessions.End(msg.Chat.ID, userID)
			return
		}
		logger.Error("failed to save review", "user_id", userID, "error", err)
		answerCallback("Failed to save review")
		return
	}
	if outcome.OnTime {
		if err := h.recorder.RecordOnTimeReview(ctx, userID); err != nil {
			logger.Error("failed to record on-time review", "user_id", userID, "error", err)
		}
	}

	reviewedCount, _ := h.sessions.MarkReviewed(msg.Chat.ID, userID, difficulty.SuccessWeight())

	updatedText := formatStudyResolvedText(snapshot.PromptText, difficulty)
	if _, err := b.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    msg.Chat.ID,
		MessageID: msg.ID,
		Text:      updatedText,
		ParseMode: models.ParseModeMarkdown,
		ReplyMarkup: &models.InlineKeyboardMarkup{
			InlineKeyboard: [][]models.InlineKeyboardButton{},
		},
	}); err != nil {
		logger.Error("failed to edit study prompt", "user_id", userID, "error", err)
	}

	answerCallback("")
	h.sessions.Touch(msg.Chat.ID, userID)

	summary, _ := h.sessions.Summary(msg.Chat.ID, userID)

	nextCard, nextToken := h.sessions.Advance(msg.Chat.ID, userID)
	if nextCard == nil {
		h.finishSession(ctx, b, msg.Chat.ID, userID, reviewedCount, summary)
		return
	}

	prompt := study.BuildPrompt(*nextCard)
	nextMsg, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      msg.Chat.ID,
		Text:        prompt,
		ParseMode:   models.ParseModeMarkdown,
		ReplyMarkup: study.BuildKeyboard(nextToken),
	})
	if err != nil {
		logger.Error("failed to send next study prompt", "user_id", userID, "error", err)
		return
	}

	if session := h.sessions.GetSession(msg.Chat.ID, userID); session != nil {
		h.sessions.SetCurrentMessageID(session, nextMsg.ID)
		h.sessions.SetCurrentPromptText(session, prompt)
	}
}

// finishSession folds the completed session into the stats counters and then
// advances the streak exactly once.
func (h *Handlers) finishSession(ctx context.Context, b *bot.Bot, chatID, userID int64, reviewedCount int, summary study.Summary) {
	now := h.now().UTC()

	dueRemaining, err := h.scheduler.DueCount(ctx, userID)
	if err != nil {
		logger.Error("failed to count remaining due cards", "user_id", userID, "error", err)
	}
	sessionSummary := stats.SessionSummary{
		Cards:           summary.Reviewed,
		WeightedCorrect: summary.WeightedCorrect,
		Duration:        now.Sub(summary.StartedAt),
		DueRemaining:    dueRemaining,
	}
	if err := h.recorder.RecordSession(ctx, userID, sessionSummary); err != nil {
		logger.Error("failed to record session stats", "user_id", userID, "error", err)
	}

	result, err := h.engine.UpdateStreak(ctx, userID)
	if err != nil {
		logger.Error("failed to update streak", "user_id", userID, "error", err)
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   fmt.Sprintf("Well done reviewing %d cards.", reviewedCount),
		})
		return
	}

	text := fmt.Sprintf("Well done reviewing %d cards (accuracy %.0f%%).\nStreak: %d days",
		reviewedCount, sessionSummary.Accuracy(), result.CurrentStreak)
	if result.FreezeConsumed {
		text += "\nA streak freeze saved your streak."
	}
	if result.FreezeEarned {
		text += "\nYou earned a streak freeze."
	}
	for _, achievement := range result.NewAchievements {
		text += fmt.Sprintf("\nAchievement unlocked: %s %s", achievement.Name, achievement.Description)
	}
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
}

// restoreSession rebuilds an in-memory session from its persisted row after a
// restart.
func (h *Handlers) restoreSession(chatID, userID int64) (study.SessionSnapshot, bool) {
	row, err := h.store.Load(chatID, userID, h.now().UTC())
	if err != nil {
		logger.Error("failed to load persisted session", "user_id", userID, "error", err)
		return study.SessionSnapshot{}, false
	}
	if row == nil {
		return study.SessionSnapshot{}, false
	}

	var cardIDs []uint
	if err := json.Unmarshal(row.CardIDs, &cardIDs); err != nil {
		logger.Error("failed to decode persisted session", "user_id", userID, "error", err)
		return study.SessionSnapshot{}, false
	}
	var cards []db.Flashcard
	if err := h.db.Where("user_id = ? AND id IN ?", userID, cardIDs).Find(&cards).Error; err != nil {
		logger.Error("failed to load session cards", "user_id", userID, "error", err)
		return study.SessionSnapshot{}, false
	}

	if _, err := h.sessions.StartFromPersisted(row, cards); err != nil {
		logger.Error("failed to restore session", "user_id", userID, "error", err)
		return study.SessionSnapshot{}, false
	}
	return h.sessions.Snapshot(chatID, userID)
}

func parseStudyCallback(data string) (string, srs.Difficulty, bool) {
	if !strings.HasPrefix(data, study.GradeCallbackPrefix) {
		return "", "", false
	}
	parts := strings.Split(data, ":")
	if len(parts) != 4 || parts[0] != "s" || parts[1] != "grade" {
		return "", "", false
	}
	difficulty, err := srs.ParseDifficulty(parts[3])
	if err != nil {
		return "", "", false
	}
	return parts[2], difficulty, true
}

func formatStudyResolvedText(prompt string, difficulty srs.Difficulty) string {
	label := difficultyLabel(difficulty)
	if prompt == "" {
		return label
	}
	return fmt.Sprintf("%s\n%s", prompt, label)
}

func difficultyLabel(difficulty srs.Difficulty) string {
	switch difficulty {
	case srs.DifficultyHard:
		return "Hard"
	case srs.DifficultyMedium:
		return "Medium"
	case srs.DifficultyEasy:
		return "Easy"
	default:
		return "Unknown"
	}
}

func (h *Handlers) sendPrompt(ctx context.Context, b *bot.Bot, chatID, userID int64, session *study.Session, card db.Flashcard) {
	prompt := study.BuildPrompt(card)
	msg, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        prompt,
		ParseMode:   models.ParseModeMarkdown,
		ReplyMarkup: study.BuildKeyboard(session.CurrentToken()),
	})
	if err != nil {
		logger.Error("failed to send study prompt", "user_id", userID, "error", err)
		return
	}
	h.sessions.SetCurrentMessageID(session, msg.ID)
	h.sessions.SetCurrentPromptText(session, prompt)
	h.sessions.Touch(chatID, userID)
}

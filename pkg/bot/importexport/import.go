package importexport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/msmirnov/tg-flashdeck/pkg/db"
	"github.com/msmirnov/tg-flashdeck/pkg/logger"
	"github.com/msmirnov/tg-flashdeck/pkg/stats"
	"gorm.io/gorm"
)

// Importer turns an uploaded CSV document into a deck of flashcards. The
// deck is named after the file; uploading the same file again merges into
// the existing deck.
type Importer struct {
	db       *gorm.DB
	token    string
	recorder *stats.Recorder
	client   *http.Client
}

func NewImporter(gdb *gorm.DB, token string, recorder *stats.Recorder) *Importer {
	return &Importer{
		db:       gdb,
		token:    token,
		recorder: recorder,
		client:   http.DefaultClient,
	}
}

func (i *Importer) HandleDocumentImport(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil || update.Message == nil || update.Message.Document == nil || update.Message.From == nil {
		logger.Error("invalid update in HandleDocumentImport")
		return
	}
	if update.Message.Chat.ID == 0 {
		logger.Error("chat ID is zero in HandleDocumentImport")
		return
	}

	doc := update.Message.Document
	userID := update.Message.From.ID
	logger.Info("uploading file", "file_name", doc.FileName, "user_id", userID)

	if !strings.HasSuffix(doc.FileName, ".csv") {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "The uploaded file is not a CSV. Please upload a valid CSV file.",
		})
		return
	}

	file, err := b.GetFile(ctx, &bot.GetFileParams{FileID: doc.FileID})
	if err != nil {
		logger.Error("failed to get file", "error", err)
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "Failed to download the file. Please try again.",
		})
		return
	}

	fileURL := fmt.Sprintf("https://api.telegram.org/file/bot%s/%s", i.token, file.FilePath)

	resp, err := i.client.Get(fileURL)
	if err != nil {
		logger.Error("failed to open file", "error", err)
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "Failed to open the file. Please try again.",
		})
		return
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Error("failed to read CSV file", "error", err)
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "Failed to read the CSV file. Please try again.",
		})
		return
	}

	cards, skipped, err := ParseDeckCSV(data)
	if err != nil {
		logger.Error("failed to parse CSV file", "error", err)
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "Failed to read the CSV file. Please ensure it is in the correct format.",
		})
		return
	}
	if len(cards) == 0 {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "No valid cards found to import.",
		})
		return
	}

	deck, created, err := i.ensureDeck(userID, deckNameFromFile(doc.FileName))
	if err != nil {
		logger.Error("failed to resolve deck", "user_id", userID, "error", err)
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "Failed to import your cards. Please try again later.",
		})
		return
	}
	if created {
		if err := i.recorder.RecordDeckCreated(ctx, userID); err != nil {
			logger.Error("failed to record deck creation", "user_id", userID, "error", err)
		}
	}

	inserted, updated, err := UpsertFlashcards(i.db, userID, deck.ID, cards)
	if err != nil {
		logger.Error("failed to import flashcards", "user_id", userID, "error", err)
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "Failed to import your cards. Please try again later.",
		})
		return
	}
	if inserted > 0 {
		if err := i.recorder.RecordCardsCreated(ctx, userID, inserted); err != nil {
			logger.Error("failed to record created cards", "user_id", userID, "error", err)
		}
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text: fmt.Sprintf("Imported %d new cards into %q, updated %d cards, skipped %d rows.",
			inserted, deck.Name, updated, skipped),
	})
}

func (i *Importer) ensureDeck(userID int64, name string) (*db.Deck, bool, error) {
	var deck db.Deck
	result := i.db.Where(db.Deck{UserID: userID, Name: name}).FirstOrCreate(&deck)
	if result.Error != nil {
		return nil, false, result.Error
	}
	return &deck, result.RowsAffected > 0, nil
}

func deckNameFromFile(filename string) string {
	name := strings.TrimSuffix(filename, ".csv")
	name = strings.TrimSpace(name)
	if name == "" {
		return "Imported"
	}
	return name
}

package handlers

import (
	"context"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/msmirnov/tg-flashdeck/pkg/bot/importexport"
	"github.com/msmirnov/tg-flashdeck/pkg/logger"
	"github.com/msmirnov/tg-flashdeck/pkg/srs"
	"github.com/msmirnov/tg-flashdeck/pkg/stats"
	"github.com/msmirnov/tg-flashdeck/pkg/streak"
	"github.com/msmirnov/tg-flashdeck/pkg/study"
	"gorm.io/gorm"
)

// Handlers carries the shared dependencies for every bot command.
type Handlers struct {
	db        *gorm.DB
	scheduler *srs.Scheduler
	engine    *streak.Engine
	recorder  *stats.Recorder
	sessions  *study.SessionManager
	store     *study.Store
	importer  *importexport.Importer
	now       func() time.Time
}

func New(
	gdb *gorm.DB,
	scheduler *srs.Scheduler,
	engine *streak.Engine,
	recorder *stats.Recorder,
	sessions *study.SessionManager,
	store *study.Store,
	importer *importexport.Importer,
	now func() time.Time,
) *Handlers {
	if now == nil {
		now = time.Now
	}
	return &Handlers{
		db:        gdb,
		scheduler: scheduler,
		engine:    engine,
		recorder:  recorder,
		sessions:  sessions,
		store:     store,
		importer:  importer,
		now:       now,
	}
}

// DefaultHandler answers anything that is not a known command: CSV uploads
// go to the importer, everything else gets the command list.
func (h *Handlers) DefaultHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil || update.Message == nil {
		logger.Error("received invalid update in DefaultHandler")
		return
	}
	if update.Message.Chat.ID == 0 {
		logger.Error("chat ID is zero in DefaultHandler")
		return
	}

	if update.Message.Document != nil {
		h.importer.HandleDocumentImport(ctx, b, update)
		return
	}

	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text: "Commands:\n" +
			"\\* /start: initialize your account\\.\n" +
			"\\* /study: review your due flashcards\\.\n" +
			"\\* /streak: show your study streak and freezes\\.\n" +
			"\\* /freeze: spend a streak freeze\\.\n" +
			"\\* /achievements: list your achievements\\.\n" +
			"\\* /decks: list your decks\\.\n" +
			"\\* /newdeck: create a deck\\.\n" +
			"\\* /export: download your flashcards\\.\n\n" +
			"If you attach a CSV file here\\, I\\'ll import the cards into a deck named after the file\\. " +
			"Use two columns: question and answer\\.",
		ParseMode: models.ParseModeMarkdown,
	})
	if err != nil {
		logger.Error("failed to send message in DefaultHandler", "error", err)
	}
}

func validMessageUpdate(update *models.Update) bool {
	return update != nil && update.Message != nil && update.Message.From != nil && update.Message.Chat.ID != 0
}

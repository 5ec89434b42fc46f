package handlers

import (
	"context"
	"strings"
	"testing"

	"github.com/go-telegram/bot/models"
	"github.com/msmirnov/tg-flashdeck/pkg/db"
	"github.com/msmirnov/tg-flashdeck/pkg/internal/testutil"
	"github.com/msmirnov/tg-flashdeck/pkg/logger"
)

func TestHandleExportNoCards(t *testing.T) {
	gdb := testutil.SetupTestDB(t)
	logger.SetLogLevel(logger.ERROR)
	h := newTestHandlers(gdb, nil)

	client := newMockClient()
	b := newTestTelegramBot(t, client)
	update := newTestUpdate("/export", 7001)
	update.Message.Chat.Type = models.ChatTypePrivate

	h.HandleExport(context.Background(), b, update)

	got := client.lastMessageText(t)
	if !strings.Contains(got, "no flashcards to export") {
		t.Fatalf("expected empty export message, got %q", got)
	}
}

func TestHandleExportSendsDocument(t *testing.T) {
	gdb := testutil.SetupTestDB(t)
	logger.SetLogLevel(logger.ERROR)
	h := newTestHandlers(gdb, nil)

	for _, card := range []db.Flashcard{
		{UserID: 7002, Question: "beta", Answer: "two"},
		{UserID: 7002, Question: "alpha", Answer: "one"},
	} {
		if err := gdb.Create(&card).Error; err != nil {
			t.Fatalf("failed to seed card: %v", err)
		}
	}

	client := newMockClient()
	b := newTestTelegramBot(t, client)
	update := newTestUpdate("/export", 7002)
	update.Message.Chat.Type = models.ChatTypePrivate

	h.HandleExport(context.Background(), b, update)

	if len(client.requests) == 0 ||
		!strings.Contains(client.requests[len(client.requests)-1].path, "sendDocument") {
		t.Fatalf("expected sendDocument request")
	}

	content, filename := client.lastMultipartField(t, "document")
	if !strings.HasPrefix(filename, "flashcards-") || !strings.HasSuffix(filename, ".csv") {
		t.Fatalf("unexpected export filename: %q", filename)
	}
	alphaIdx := strings.Index(content, "alpha,one")
	betaIdx := strings.Index(content, "beta,two")
	if alphaIdx == -1 || betaIdx == -1 || alphaIdx > betaIdx {
		t.Fatalf("expected sorted CSV content, got %q", content)
	}
}

func TestHandleExportRequiresPrivateChat(t *testing.T) {
	gdb := testutil.SetupTestDB(t)
	logger.SetLogLevel(logger.ERROR)
	h := newTestHandlers(gdb, nil)

	client := newMockClient()
	b := newTestTelegramBot(t, client)
	update := newTestUpdate("/export", 7003)
	update.Message.Chat.Type = models.ChatTypeGroup

	h.HandleExport(context.Background(), b, update)

	got := client.lastMessageText(t)
	if !strings.Contains(got, "private chat") {
		t.Fatalf("expected private chat warning, got %q", got)
	}
}

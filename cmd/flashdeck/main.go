package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/go-telegram/bot"
	"github.com/msmirnov/tg-flashdeck/pkg/bot/handlers"
	"github.com/msmirnov/tg-flashdeck/pkg/bot/importexport"
	"github.com/msmirnov/tg-flashdeck/pkg/bot/reminders"
	"github.com/msmirnov/tg-flashdeck/pkg/config"
	"github.com/msmirnov/tg-flashdeck/pkg/db"
	"github.com/msmirnov/tg-flashdeck/pkg/logger"
	"github.com/msmirnov/tg-flashdeck/pkg/srs"
	"github.com/msmirnov/tg-flashdeck/pkg/stats"
	"github.com/msmirnov/tg-flashdeck/pkg/streak"
	"github.com/msmirnov/tg-flashdeck/pkg/study"
)

func main() {
	if err := config.LoadConfig("config.json"); err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.AppConfig
	if err := logger.Configure(logger.Options{
		Level: cfg.Logging.Level,
		File:  cfg.Logging.File,
	}); err != nil {
		logger.Error("failed to configure logger", "error", err)
	}

	gdb, err := db.InitDB(cfg.Database)
	if err != nil {
		logger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}

	loc := time.UTC
	if cfg.Streak.Timezone != "" {
		loc, err = time.LoadLocation(cfg.Streak.Timezone)
		if err != nil {
			logger.Error("failed to load streak timezone", "timezone", cfg.Streak.Timezone, "error", err)
			os.Exit(1)
		}
	}

	scheduler := srs.NewScheduler(gdb, nil)
	engine := streak.NewEngine(gdb, nil, loc)
	recorder := stats.NewRecorder(gdb, nil, loc)
	store := study.NewStore(gdb)
	sessions := study.NewSessionManager(store, nil)
	importer := importexport.NewImporter(gdb, cfg.Telegram.Token, recorder)
	notifier := reminders.NewNotifier(gdb, scheduler, nil)
	h := handlers.New(gdb, scheduler, engine, recorder, sessions, store, importer, nil)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	opts := []bot.Option{
		bot.WithDefaultHandler(h.DefaultHandler),
	}
	b, err := bot.New(cfg.Telegram.Token, opts...)
	if err != nil {
		logger.Error("failed to create bot", "error", err)
		os.Exit(1)
	}

	b.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, h.HandleStart)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/study", bot.MatchTypePrefix, h.HandleStudy)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/streak", bot.MatchTypeExact, h.HandleStreak)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/freeze", bot.MatchTypeExact, h.HandleFreeze)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/achievements", bot.MatchTypeExact, h.HandleAchievements)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/decks", bot.MatchTypeExact, h.HandleDecks)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/newdeck", bot.MatchTypePrefix, h.HandleNewDeck)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/export", bot.MatchTypeExact, h.HandleExport)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, study.GradeCallbackPrefix, bot.MatchTypePrefix, h.HandleStudyCallback)

	go notifier.StartPeriodicMessages(ctx, b)
	go sessions.StartSweeper(ctx)
	go db.StartSessionCleanup(ctx, gdb, db.SessionCleanupInterval)

	logger.Info("Starting bot...")
	b.Start(ctx)
}

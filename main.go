package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/bot"
	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/config"
	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/db/sqlite"
	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/handlers"
	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/infrastructure/telegram"
	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/lifecycle"
	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/moderation"
	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/observability"
	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/policy/permissions"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("cant load config")
	}
	log.SetOutput(os.Stdout)
	log.SetLevel(log.Level(cfg.LogLevel))
	observability.Init()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	dbClient, err := sqlite.NewSQLiteClient(ctx, cfg.DotPath, cfg.DBPath)
	if err != nil {
		log.WithError(err).Fatal("cant open database")
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			log.WithError(err).Error("cant close database")
		}
	}()

	botAPI, err := api.NewBotAPI(cfg.TelegramAPIToken)
	if err != nil {
		log.WithError(err).Fatal("cant initialize bot api")
	}
	if log.Level(cfg.LogLevel) == log.TraceLevel {
		botAPI.Debug = true
	}
	log.WithField("username", botAPI.Self.UserName).Info("authorized")

	ops := telegram.NewOperations(botAPI)
	engine := moderation.NewEngine(dbClient, ops, ops, moderation.Options{
		BotID:             botAPI.Self.ID,
		OwnerID:           cfg.OwnerID,
		SudoUsers:         cfg.SudoUsers,
		DefaultWarnLimit:  cfg.Moderation.DefaultWarnLimit,
		FanOutConcurrency: cfg.Moderation.FanOutConcurrency,
		FanOutChatTimeout: cfg.Moderation.FanOutChatTimeout,
	})
	evaluator := permissions.NewEvaluator(cfg, ops)
	service := bot.NewService(botAPI, dbClient)

	bot.RegisterUpdateHandler("enforcement", handlers.NewEnforcement(service, engine, ops))
	bot.RegisterUpdateHandler("moderation", handlers.NewModeration(service, engine, evaluator, ops))
	bot.RegisterUpdateHandler("admin", handlers.NewAdmin(service, engine, evaluator, ops))
	bot.RegisterUpdateHandler("welcome", handlers.NewWelcome(service, engine, evaluator, ops))
	bot.RegisterUpdateHandler("notes", handlers.NewNotes(service, evaluator, ops))
	bot.RegisterUpdateHandler("filters", handlers.NewFilters(service, engine, evaluator, ops))
	bot.RegisterUpdateHandler("basic", handlers.NewBasic(service, evaluator, ops))

	runtime := lifecycle.NewRuntime()
	runtime.Register("metrics", observability.NewMetricsServer(cfg.MetricsAddr))
	runtime.Register("poller", bot.NewPoller(botAPI, bot.NewUpdateProcessor(service)))

	if err := runtime.Start(ctx); err != nil {
		log.WithError(err).Fatal("cant start runtime")
	}
	log.Info("started")

	<-ctx.Done()
	log.Info("shutting down")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stopCancel()
	if err := runtime.Stop(stopCtx); err != nil {
		log.WithError(err).Error("unclean shutdown")
	}
}

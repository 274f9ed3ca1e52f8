package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/samber/lo"

	"github.com/0x0BSoD/newsPipeline/internal/config"
	"github.com/0x0BSoD/newsPipeline/internal/fetcher"
	"github.com/0x0BSoD/newsPipeline/internal/lease"
	"github.com/0x0BSoD/newsPipeline/internal/llm"
	"github.com/0x0BSoD/newsPipeline/internal/logging"
	"github.com/0x0BSoD/newsPipeline/internal/model"
	"github.com/0x0BSoD/newsPipeline/internal/pipeline"
	"github.com/0x0BSoD/newsPipeline/internal/publisher"
	"github.com/0x0BSoD/newsPipeline/internal/reporter"
	"github.com/0x0BSoD/newsPipeline/internal/source"
	"github.com/0x0BSoD/newsPipeline/internal/storage"
	"github.com/0x0BSoD/newsPipeline/internal/summary"
	"github.com/0x0BSoD/newsPipeline/internal/tagger"
)

type app struct {
	cfg      config.Config
	db       *sqlx.DB
	news     *storage.NewsStorage
	pipeline *pipeline.Pipeline
	closers  []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Warn("failed to close resource", "err", err)
		}
	}
}

// newApp loads the configuration and wires every stage.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	a := &app{cfg: cfg}

	a.db, err = sqlx.Connect("postgres", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("connect to db: %w", err)
	}
	a.closers = append(a.closers, a.db.Close)
	a.news = storage.NewNewsStorage(a.db)

	feeds, err := loadFeeds(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	completer, err := llm.New(cfg.AIType, cfg.AIBaseURL, cfg.AIKey, cfg.AIModel, cfg.AITimeout)
	if err != nil {
		a.Close()
		return nil, err
	}
	slog.Info("using text generation backend", "type", cfg.AIType, "model", cfg.AIModel)

	var bot *tgbotapi.BotAPI
	if cfg.TelegramBotToken != "" {
		bot, err = tgbotapi.NewBotAPI(cfg.TelegramBotToken)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("create telegram bot: %w", err)
		}
	}

	var action publisher.Action = publisher.LogAction{}
	if cfg.PublishAction == "telegram" {
		action = publisher.NewTelegramAction(bot, cfg.TelegramChannelID, cfg.PublishInterval)
	}

	var notifier pipeline.Notifier
	if bot != nil {
		notifier = reporter.New(bot, cfg.TelegramAdminChatID)
	}

	var locker lease.Locker = lease.NewLocal()
	if cfg.RedisAddr != "" {
		redisLocker, err := lease.Dial(ctx, cfg.RedisAddr, cfg.LeaseTTL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, redisLocker.Close)
		locker = redisLocker
	}

	a.pipeline = pipeline.New(
		fetcher.New(a.news, sources(feeds), cfg.FetchTimeout, cfg.MaxPerSource, cfg.FilterKeywords),
		summary.New(a.news, completer, cfg.SummaryBatch),
		tagger.New(a.news, completer, cfg.TagBatch),
		publisher.New(a.news, action, cfg.PublishBatch),
		locker,
		notifier,
	)

	return a, nil
}

func loadFeeds(cfg config.Config) ([]model.Source, error) {
	if cfg.FeedsFile == "" {
		return source.DefaultFeeds(), nil
	}

	feeds, err := source.LoadFeeds(cfg.FeedsFile)
	if err != nil {
		return nil, fmt.Errorf("load feeds: %w", err)
	}
	return feeds, nil
}

func sources(feeds []model.Source) []fetcher.Source {
	client := &http.Client{}
	return lo.Map(feeds, func(m model.Source, _ int) fetcher.Source {
		return source.FromModel(m, client)
	})
}

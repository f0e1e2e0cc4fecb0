package web

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bigredeye/essaycheck/internal/completion"
	"github.com/bigredeye/essaycheck/internal/config"
	"github.com/bigredeye/essaycheck/internal/database"
	"github.com/bigredeye/essaycheck/internal/essay"
	"github.com/bigredeye/essaycheck/internal/prompt"
	"github.com/bigredeye/essaycheck/internal/tgbot"
)

// Run serves the API until ctx is cancelled or a component fails.
func Run(ctx context.Context, logger *zap.Logger, conf *config.Config) error {
	db, err := database.OpenDataBase(logger, conf)
	if err != nil {
		return errors.Wrap(err, "Failed to open database")
	}
	defer db.Close()

	prompts, err := prompt.NewBuilder(conf.Prompts.Path)
	if err != nil {
		return errors.Wrap(err, "Failed to load prompts")
	}

	var fetcher *prompt.Fetcher
	if conf.Prompts.URL != "" {
		fetcher, err = prompt.NewFetcher(ctx, conf.Prompts.URL, conf.Prompts.ReloadInterval, prompts, logger.Named("prompts"))
		if err != nil {
			return errors.Wrap(err, "Failed to fetch prompts")
		}
	}

	completer, err := completion.NewCompleter(ctx, conf, logger)
	if err != nil {
		return err
	}
	defer completer.Close()

	essays := essay.NewService(completer, prompts, db, logger, essay.Options{
		HistoryTTL:       conf.History.CacheTTL,
		HistoryCacheSize: conf.History.CacheSize,
	})

	s, err := newServer(conf, logger, essays)
	if err != nil {
		return errors.Wrap(err, "Failed to start server")
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return errors.Wrap(s.run(ctx), "Server failed")
	})

	if fetcher != nil {
		g.Go(func() error {
			fetcher.Run(ctx)
			return nil
		})
	}

	if conf.Telegram.BotToken != "" {
		bot, err := tgbot.NewBot(conf, logger.Named("tgbot"), essays)
		if err != nil {
			return errors.Wrap(err, "Failed to start telegram bot")
		}
		g.Go(func() error {
			bot.Run(ctx)
			return nil
		})
	}

	return g.Wait()
}

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"

	"github.com/bigredeye/essaycheck/internal/config"
	"github.com/bigredeye/essaycheck/internal/web"
	zlog "github.com/bigredeye/essaycheck/pkg/log"
)

var configPath = flag.String("config", os.Getenv("ESSAY_CONFIG"), "Path to the config file")

func run() error {
	flag.Parse()

	conf, err := config.ParseConfig(*configPath)
	if err != nil {
		return err
	}

	logger := zlog.Init(zlog.Options{
		Production: conf.Log.Production,
		Level:      conf.Log.Level,
		File:       conf.Log.File,
	})
	defer zlog.Sync()

	logger.Info("Starting essaycheck",
		zap.String("provider", conf.Completion.Provider),
		zap.String("model", conf.Completion.Model),
		zap.String("database", conf.DataBase.Driver),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return web.Run(ctx, logger, conf)
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("%+v\n", err)
	}
}

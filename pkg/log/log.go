package log

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var logger *zap.Logger

// Options tune the logger built by Init. Zero value means a development
// logger writing to stderr at debug level.
type Options struct {
	Production bool
	Level      string

	// File enables an additional rotating log file.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

func InitProd() *zap.Logger {
	return Init(Options{Production: true})
}

func InitDev() *zap.Logger {
	return Init(Options{})
}

func Init(opts Options) *zap.Logger {
	config := zap.NewDevelopmentConfig()
	if opts.Production {
		config = zap.NewProductionConfig()
	}
	if opts.Level != "" {
		level, err := zap.ParseAtomicLevel(opts.Level)
		if err != nil {
			fmt.Printf("Unknown log level %q, keeping %s\n", opts.Level, config.Level)
		} else {
			config.Level = level
		}
	}

	var err error
	logger, err = config.Build(zap.AddStacktrace(zap.WarnLevel))
	if err != nil {
		fmt.Printf("Failed to init zap logger: %v", err)
		os.Exit(1)
	}

	if opts.File != "" {
		logger = logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewTee(core, fileCore(config, opts))
		}))
	}

	zap.ReplaceGlobals(logger)
	return logger
}

func fileCore(config zap.Config, opts Options) zapcore.Core {
	sink := zapcore.AddSync(&lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   true,
	})
	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	return zapcore.NewCore(encoder, sink, config.Level)
}

func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}

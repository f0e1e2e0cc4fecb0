package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bigredeye/essaycheck/pkg/client/essaycheck"
)

var log *zap.Logger

func check(err error) {
	if err != nil {
		panic(err)
	}
}

func unwrap[T any](value T, err error) T {
	check(err)
	return value
}

var (
	endpoint string

	rootCmd = &cobra.Command{
		Use:   "essaycheck",
		Short: "Essay feedback client",
	}
)

func initLogging() {
	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	config.EncoderConfig.ConsoleSeparator = " "
	config.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.StampMilli)
	log = unwrap(config.Build())
}

func initCommands() {
	defaultEndpoint := os.Getenv("ESSAYCHECK_ENDPOINT")
	if defaultEndpoint == "" {
		defaultEndpoint = "http://localhost:8000"
	}
	rootCmd.PersistentFlags().StringVar(&endpoint, "endpoint", defaultEndpoint, "Essaycheck server address")

	rootCmd.AddCommand(makeEvaluateCommand())
	rootCmd.AddCommand(makeHistoryCommand())
	rootCmd.AddCommand(makeCorrectCommand())
	rootCmd.AddCommand(makeImproveCommand())
	rootCmd.AddCommand(makeAnalyzeCommand())
	rootCmd.AddCommand(makeStatsCommand())
	rootCmd.AddCommand(makeBatchCommand())
}

func newClient() *essaycheck.Client {
	return essaycheck.NewClient(endpoint)
}

func init() {
	initLogging()
	initCommands()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Command failed: %s", err.Error())
		os.Exit(1)
	}
}

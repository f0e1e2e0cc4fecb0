package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

func makeBatchCommand() *cobra.Command {
	var username, taskType string
	var parallel int64

	cmd := &cobra.Command{
		Use:   "batch <dir>",
		Short: "Evaluate every .txt essay in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return evaluateDir(cmd.Context(), args[0], username, taskType, parallel)
		},
	}

	cmd.Flags().StringVar(&username, "user", os.Getenv("USER"), "Username the evaluations are stored under")
	cmd.Flags().StringVar(&taskType, "task", "Task 2", "Task type")
	cmd.Flags().Int64Var(&parallel, "parallel", 4, "Maximum number of concurrent evaluations")

	return cmd
}

type batchResult struct {
	file       string
	evaluation string
	err        error
}

func evaluateDir(ctx context.Context, dir, username, taskType string, parallel int64) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	if err != nil {
		return err
	}
	slices.Sort(files)
	if len(files) == 0 {
		return fmt.Errorf("no .txt files in %s", dir)
	}

	client := newClient()
	s := semaphore.NewWeighted(parallel)
	g := errgroup.Group{}
	results := make([]batchResult, len(files))

	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			if err := s.Acquire(ctx, 1); err != nil {
				return err
			}
			defer s.Release(1)

			results[i].file = file
			text, err := readText(file)
			if err != nil {
				results[i].err = err
				return nil
			}
			log.Info("Evaluating", zap.String("file", file))
			results[i].evaluation, results[i].err = client.Evaluate(username, text, taskType)
			return nil
		})
	}

	log.Info("Waiting for evaluations to complete", zap.Int("count", len(files)))
	if err := g.Wait(); err != nil {
		return err
	}

	failed := 0
	for _, res := range results {
		fmt.Printf("== %s\n", filepath.Base(res.file))
		if res.err != nil {
			failed++
			fmt.Printf("error: %s\n\n", res.err)
			continue
		}
		fmt.Println(strings.TrimSpace(res.evaluation))
		fmt.Println()
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d evaluations failed", failed, len(files))
	}
	return nil
}

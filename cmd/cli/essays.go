package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/bigredeye/essaycheck/internal/essay"
	"github.com/bigredeye/essaycheck/internal/interpret"
)

// readText reads the essay from path, or from stdin when path is empty or "-".
func readText(path string) (string, error) {
	var data []byte
	var err error
	if path == "" || path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("essay text is empty")
	}
	return text, nil
}

func makeEvaluateCommand() *cobra.Command {
	var username, taskType, file string

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Grade an essay and store the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readText(file)
			if err != nil {
				return err
			}
			log.Info("Evaluating essay", zap.String("username", username), zap.String("task_type", taskType))
			evaluation, err := newClient().Evaluate(username, text, taskType)
			if err != nil {
				return err
			}
			fmt.Println(evaluation)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "user", os.Getenv("USER"), "Username the evaluation is stored under")
	cmd.Flags().StringVar(&taskType, "task", "Task 2", "Task type")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Essay file, stdin by default")

	return cmd
}

func makeHistoryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "history <username>",
		Short: "Show previous evaluations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := newClient().History(args[0])
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				log.Info("No evaluations yet", zap.String("username", args[0]))
				return nil
			}
			for _, e := range entries {
				fmt.Printf("%s\toverall %s\ttask %s\tcoherence %s\tlexical %s\tgrammar %s\n",
					e.Date, band(e.Overall), band(e.Task), band(e.Coherence), band(e.Lexical), band(e.Grammar))
			}
			return nil
		},
	}
}

func band(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", *v)
}

func makeCorrectCommand() *cobra.Command {
	var file string
	var highlighted bool

	cmd := &cobra.Command{
		Use:   "correct",
		Short: "Fix grammar and spelling",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readText(file)
			if err != nil {
				return err
			}
			res, err := newClient().Correct(text)
			if err != nil {
				return err
			}
			warnDegraded(res.Status)
			if highlighted {
				fmt.Println(res.HighlightedText)
			} else {
				fmt.Println(res.CorrectedText)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Essay file, stdin by default")
	cmd.Flags().BoolVar(&highlighted, "html", false, "Print the highlighted html instead of plain text")

	return cmd
}

func makeImproveCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "improve",
		Short: "Rewrite an essay in a more advanced register",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readText(file)
			if err != nil {
				return err
			}
			res, err := newClient().Improve(text)
			if err != nil {
				return err
			}
			warnDegraded(res.Status)
			fmt.Println(res.ImprovedText)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Essay file, stdin by default")

	return cmd
}

func makeAnalyzeCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Print text statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readText(file)
			if err != nil {
				return err
			}
			res, err := newClient().Analyze(text)
			if err != nil {
				return err
			}
			warnDegraded(res.Status)

			fmt.Printf("Words: %d\nGrammar mistakes: %d\n", res.WordCount, res.GrammarMistakeCount)
			repetition := slices.Clone(res.VocabRepetition)
			slices.SortStableFunc(repetition, func(a, b interpret.WordCount) int {
				return int(b.Count - a.Count)
			})
			for _, rep := range repetition {
				fmt.Printf("  %-20s %d\n", rep.Word, rep.Count)
			}
			l := res.VocabLevels
			fmt.Printf("CEFR: A1 %d, A2 %d, B1 %d, B2 %d, C1 %d, C2 %d\n", l.A1, l.A2, l.B1, l.B2, l.C1, l.C2)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Essay file, stdin by default")

	return cmd
}

func makeStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Dump server operation counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := newClient().Stats()
			if err != nil {
				return err
			}
			ops := maps.Keys(stats)
			slices.Sort(ops)
			for _, op := range ops {
				c := stats[op]
				fmt.Printf("%-10s calls %d\tupstream failures %d\tfallbacks %d\n", op, c.Calls, c.UpstreamFailures, c.Fallbacks)
			}
			return nil
		},
	}
}

func warnDegraded(status essay.Status) {
	if status != essay.StatusOK {
		log.Warn("Model output was unusable, showing fallback", zap.String("status", string(status)))
	}
}

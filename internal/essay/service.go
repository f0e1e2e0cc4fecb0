package essay

import (
	"context"
	"time"

	"github.com/karlseguin/ccache/v2"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/bigredeye/essaycheck/internal/completion"
	"github.com/bigredeye/essaycheck/internal/interpret"
	lf "github.com/bigredeye/essaycheck/internal/logfield"
	"github.com/bigredeye/essaycheck/internal/models"
	"github.com/bigredeye/essaycheck/internal/prompt"
)

type Store interface {
	AddFeedback(ctx context.Context, feedback *models.Feedback) error
	ListUserFeedback(ctx context.Context, username string) ([]models.Feedback, error)
	Location() *time.Location
}

type Status string

const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded"
)

const historyDateLayout = "2006-01-02 15:04"

type HistoryEntry struct {
	Date       string   `json:"date"`
	Overall    *float64 `json:"overall"`
	Task       *float64 `json:"task"`
	Coherence  *float64 `json:"coherence"`
	Lexical    *float64 `json:"lexical"`
	Grammar    *float64 `json:"grammar"`
	Evaluation string   `json:"evaluation"`
}

type Options struct {
	// HistoryTTL of zero or less disables the history cache.
	HistoryTTL       time.Duration
	HistoryCacheSize int64
}

type Service struct {
	completer completion.Completer
	prompts   *prompt.Builder
	store     Store
	logger    *zap.Logger
	stats     *Stats

	history    *ccache.Cache
	historyTTL time.Duration
	writes     atomic.Uint64
}

func NewService(completer completion.Completer, prompts *prompt.Builder, store Store, logger *zap.Logger, opts Options) *Service {
	s := &Service{
		completer:  completer,
		prompts:    prompts,
		store:      store,
		logger:     logger.With(lf.Module("essay")),
		stats:      newStats(),
		historyTTL: opts.HistoryTTL,
	}
	if opts.HistoryTTL > 0 {
		size := opts.HistoryCacheSize
		if size <= 0 {
			size = 1000
		}
		s.history = ccache.New(ccache.Configure().MaxSize(size))
	}
	return s
}

func (s *Service) Stats() map[Operation]Counts {
	return s.stats.Snapshot()
}

// Evaluate grades text, stores one feedback record and returns it.
// A completion failure stores nothing and is reported as *UpstreamError.
func (s *Service) Evaluate(ctx context.Context, username, text, taskType string) (*models.Feedback, error) {
	counters := s.stats.op(OpEvaluate)
	counters.calls.Inc()
	log := s.logger.With(lf.Operation(string(OpEvaluate)), lf.Username(username), lf.TaskType(taskType), lf.TextLength(text))

	p, err := s.prompts.Evaluate(text, taskType)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to build evaluation prompt")
	}

	evaluation, err := s.completer.Complete(ctx, p)
	if err != nil {
		counters.upstream.Inc()
		log.Error("Failed to generate evaluation", zap.Error(err))
		return nil, &UpstreamError{err}
	}

	bands := interpret.ExtractBands(evaluation)
	if bands.Overall == nil {
		counters.fallbacks.Inc()
		log.Warn("Overall band not found in evaluation")
	}

	feedback := &models.Feedback{
		Username:       username,
		EssayText:      text,
		TaskType:       taskType,
		BandTask:       bands.Task,
		BandCoherence:  bands.Coherence,
		BandLexical:    bands.Lexical,
		BandGrammar:    bands.Grammar,
		BandOverall:    bands.Overall,
		EvaluationText: evaluation,
	}
	if err := s.store.AddFeedback(ctx, feedback); err != nil {
		log.Error("Failed to save feedback", zap.Error(err))
		return nil, errors.Wrap(err, "Failed to save feedback")
	}
	s.writes.Inc()
	if s.history != nil {
		s.history.Delete(username)
	}

	log.Info("Saved feedback", lf.FeedbackID(feedback.ID))
	return feedback, nil
}

// History lists a user's evaluations, oldest first.
func (s *Service) History(ctx context.Context, username string) ([]HistoryEntry, error) {
	s.stats.op(OpHistory).calls.Inc()

	if s.history != nil {
		if item := s.history.Get(username); item != nil && !item.Expired() {
			return item.Value().([]HistoryEntry), nil
		}
	}

	seen := s.writes.Load()
	feedbacks, err := s.store.ListUserFeedback(ctx, username)
	if err != nil {
		s.logger.Error("Failed to list feedback", lf.Username(username), zap.Error(err))
		return nil, errors.Wrap(err, "Failed to list feedback")
	}

	loc := s.store.Location()
	entries := make([]HistoryEntry, 0, len(feedbacks))
	for _, f := range feedbacks {
		entries = append(entries, HistoryEntry{
			Date:       f.CreatedAt.In(loc).Format(historyDateLayout),
			Overall:    f.BandOverall,
			Task:       f.BandTask,
			Coherence:  f.BandCoherence,
			Lexical:    f.BandLexical,
			Grammar:    f.BandGrammar,
			Evaluation: f.EvaluationText,
		})
	}

	s.cacheHistory(username, entries, seen)
	return entries, nil
}

// cacheHistory stores entries read while the write counter was seen. Evaluate
// bumps the counter before dropping the cached entry, so a write that raced
// with the read is caught by the check after Set.
func (s *Service) cacheHistory(username string, entries []HistoryEntry, seen uint64) {
	if s.history == nil {
		return
	}
	s.history.Set(username, entries, s.historyTTL)
	if s.writes.Load() != seen {
		s.history.Delete(username)
	}
}

// Correct never fails: on any problem it returns the fallback with StatusDegraded.
func (s *Service) Correct(ctx context.Context, text string) (interpret.Correction, Status) {
	raw, ok := s.complete(ctx, OpCorrect, text, s.prompts.Correct)
	if !ok {
		return interpret.CorrectionFallback(text), StatusDegraded
	}
	correction, err := interpret.ParseCorrection(raw, text)
	if err != nil {
		s.stats.op(OpCorrect).fallbacks.Inc()
		s.logger.Warn("Failed to decode correction", lf.Operation(string(OpCorrect)), zap.Error(err))
		return correction, StatusDegraded
	}
	return correction, StatusOK
}

// Improve returns the rewritten essay, or the original text when the service fails.
func (s *Service) Improve(ctx context.Context, text string) (string, Status) {
	raw, ok := s.complete(ctx, OpImprove, text, s.prompts.Improve)
	if !ok {
		return text, StatusDegraded
	}
	return raw, StatusOK
}

func (s *Service) Analyze(ctx context.Context, text string) (interpret.Analysis, Status) {
	raw, ok := s.complete(ctx, OpAnalyze, text, s.prompts.Analyze)
	if !ok {
		return interpret.AnalysisFallback(), StatusDegraded
	}
	analysis, err := interpret.ParseAnalysis(raw)
	if err != nil {
		s.stats.op(OpAnalyze).fallbacks.Inc()
		s.logger.Warn("Failed to decode analysis", lf.Operation(string(OpAnalyze)), zap.Error(err))
		return analysis, StatusDegraded
	}
	return analysis, StatusOK
}

func (s *Service) complete(ctx context.Context, op Operation, text string, build func(string) (string, error)) (string, bool) {
	counters := s.stats.op(op)
	counters.calls.Inc()

	p, err := build(text)
	if err != nil {
		counters.fallbacks.Inc()
		s.logger.Error("Failed to build prompt", lf.Operation(string(op)), zap.Error(err))
		return "", false
	}
	raw, err := s.completer.Complete(ctx, p)
	if err != nil {
		counters.upstream.Inc()
		s.logger.Error("Completion failed", lf.Operation(string(op)), lf.TextLength(text), zap.Error(err))
		return "", false
	}
	return raw, true
}

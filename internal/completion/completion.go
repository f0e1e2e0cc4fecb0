package completion

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/bigredeye/essaycheck/internal/config"
)

// Completer sends a prompt to a text-completion service and returns its text.
type Completer interface {
	Name() string
	Model() string
	Complete(ctx context.Context, prompt string) (string, error)
	Close() error
}

var ErrEmptyResponse = errors.New("completion service returned no text")

func NewCompleter(ctx context.Context, conf *config.Config, logger *zap.Logger) (Completer, error) {
	c := conf.Completion
	var (
		completer Completer
		err       error
	)
	switch c.Provider {
	case config.ProviderGemini:
		completer, err = NewGemini(ctx, GeminiOptions{
			APIKey:          c.APIKey,
			Model:           c.Model,
			Temperature:     float32(c.Temperature),
			MaxOutputTokens: int32(c.MaxOutputTokens),
		})
	case config.ProviderOpenAI:
		completer, err = NewOpenAI(OpenAIOptions{
			BaseURL:         c.BaseURL,
			APIKey:          c.APIKey,
			Model:           c.Model,
			Temperature:     c.Temperature,
			MaxOutputTokens: c.MaxOutputTokens,
		})
	default:
		err = errors.Errorf("Unknown completion provider: %s", c.Provider)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to create %s completer", c.Provider)
	}

	logger.Info("Created completer",
		zap.String("provider", completer.Name()),
		zap.String("model", completer.Model()),
		zap.Duration("timeout", c.Timeout),
	)
	return WithTimeout(completer, c.Timeout), nil
}

type timeoutCompleter struct {
	Completer
	timeout time.Duration
}

// WithTimeout bounds every Complete call by d. Non-positive d leaves calls unbounded.
func WithTimeout(c Completer, d time.Duration) Completer {
	if d <= 0 {
		return c
	}
	return &timeoutCompleter{Completer: c, timeout: d}
}

func (c *timeoutCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.Completer.Complete(ctx, prompt)
}

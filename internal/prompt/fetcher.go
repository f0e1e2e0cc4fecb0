package prompt

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Fetcher keeps a Builder in sync with a remote templates file.
type Fetcher struct {
	url      string
	interval time.Duration
	builder  *Builder
	logger   *zap.Logger
	client   *resty.Client

	last []byte
}

// NewFetcher loads url once and fails if the first load fails.
func NewFetcher(ctx context.Context, url string, interval time.Duration, builder *Builder, logger *zap.Logger) (*Fetcher, error) {
	fetcher := &Fetcher{
		url:      url,
		interval: interval,
		builder:  builder,
		logger:   logger,
		client:   resty.New().SetTimeout(30 * time.Second),
	}

	if err := fetcher.reload(ctx); err != nil {
		return nil, err
	}
	return fetcher, nil
}

func (f *Fetcher) Run(ctx context.Context) {
	if f.interval <= 0 {
		return
	}
	tick := time.NewTicker(f.interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			_ = f.reload(ctx)
		}
	}
}

func (f *Fetcher) reload(ctx context.Context) error {
	f.logger.Debug("Start prompts fetcher iteration")
	defer f.logger.Debug("Finish prompts fetcher iteration")

	body, err := f.fetch(ctx)
	if err != nil {
		f.logger.Error("Failed to reload prompts", zap.Error(err))
		return errors.Wrap(err, "Failed to reload prompts")
	}
	if bytes.Equal(body, f.last) {
		return nil
	}

	if err := f.builder.Override(body); err != nil {
		f.logger.Error("Fetched prompts are invalid, keeping current ones", zap.String("url", f.url), zap.Error(err))
		return errors.Wrap(err, "Failed to reload prompts")
	}
	f.last = body
	f.logger.Info("Updated prompts", zap.String("url", f.url))
	return nil
}

func (f *Fetcher) fetch(ctx context.Context) ([]byte, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		Get(f.url)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to fetch prompts")
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, errors.Errorf("Failed to fetch prompts: %s", resp.Status())
	}
	return resp.Body(), nil
}

package completion

import (
	"context"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

// OpenAIOptions configure any endpoint speaking the OpenAI chat-completions
// protocol (OpenAI itself, Ollama, LM Studio, vLLM).
type OpenAIOptions struct {
	BaseURL         string
	APIKey          string
	Model           string
	Temperature     float64
	MaxOutputTokens int
}

type OpenAI struct {
	client *resty.Client
	opts   OpenAIOptions
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type chatError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func NewOpenAI(opts OpenAIOptions) (*OpenAI, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, errors.New("openai base url is empty")
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetHeader("Content-Type", "application/json")
	if key := strings.TrimSpace(opts.APIKey); key != "" {
		client.SetAuthToken(key)
	}
	return &OpenAI{client: client, opts: opts}, nil
}

func (o *OpenAI) Name() string  { return "openai" }
func (o *OpenAI) Model() string { return o.opts.Model }

func (o *OpenAI) Complete(ctx context.Context, prompt string) (string, error) {
	out := &chatResponse{}
	apiErr := &chatError{}
	resp, err := o.client.R().
		SetContext(ctx).
		SetBody(chatRequest{
			Model:       o.opts.Model,
			Messages:    []chatMessage{{Role: "user", Content: prompt}},
			Temperature: o.opts.Temperature,
			MaxTokens:   o.opts.MaxOutputTokens,
		}).
		SetResult(out).
		SetError(apiErr).
		Post("/chat/completions")
	if err != nil {
		return "", errors.Wrap(err, "chat completion request failed")
	}
	if resp.IsError() {
		if apiErr.Error.Message != "" {
			return "", errors.Errorf("chat completion: %s: %s", resp.Status(), apiErr.Error.Message)
		}
		return "", errors.Errorf("chat completion: %s", resp.Status())
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return out.Choices[0].Message.Content, nil
}

func (o *OpenAI) Close() error {
	return nil
}

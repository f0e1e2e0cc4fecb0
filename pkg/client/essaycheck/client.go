package essaycheck

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/bigredeye/essaycheck/api"
	"github.com/bigredeye/essaycheck/internal/essay"
)

type Client struct {
	client *resty.Client
}

func NewClient(endpoint string) *Client {
	client := resty.New().
		SetBaseURL(endpoint).
		SetTimeout(time.Minute * 3)

	return &Client{client}
}

// Evaluate returns the evaluation text. A model failure reported by the
// server in the error field is returned as an error.
func (c *Client) Evaluate(username, text, taskType string) (string, error) {
	res := &api.EvaluateResponse{}
	errRes := &api.ErrorResponse{}
	resp, err := c.client.R().
		SetResult(res).
		SetError(errRes).
		SetBody(api.EvaluateRequest{
			Username: username,
			Text:     text,
			TaskType: taskType,
		}).
		Post("/evaluate")
	if err := check(resp, err, errRes); err != nil {
		return "", err
	}

	if res.Error != "" {
		return "", fmt.Errorf("failed to evaluate essay: %s", res.Error)
	}
	return res.Evaluation, nil
}

func (c *Client) History(username string) ([]essay.HistoryEntry, error) {
	res := api.HistoryResponse{}
	errRes := &api.ErrorResponse{}
	resp, err := c.client.R().
		SetResult(&res).
		SetError(errRes).
		SetPathParam("username", username).
		Get("/history/{username}")
	if err := check(resp, err, errRes); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) Correct(text string) (*api.CorrectResponse, error) {
	res := &api.CorrectResponse{}
	return res, c.postText("/correct", text, res)
}

func (c *Client) Improve(text string) (*api.ImproveResponse, error) {
	res := &api.ImproveResponse{}
	return res, c.postText("/improve", text, res)
}

func (c *Client) Analyze(text string) (*api.AnalyzeResponse, error) {
	res := &api.AnalyzeResponse{}
	return res, c.postText("/analyze", text, res)
}

func (c *Client) Stats() (api.StatsResponse, error) {
	res := api.StatsResponse{}
	errRes := &api.ErrorResponse{}
	resp, err := c.client.R().
		SetResult(&res).
		SetError(errRes).
		Get("/stats")
	if err := check(resp, err, errRes); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) postText(path, text string, res interface{}) error {
	errRes := &api.ErrorResponse{}
	resp, err := c.client.R().
		SetResult(res).
		SetError(errRes).
		SetBody(api.TextRequest{Text: text}).
		Post(path)
	return check(resp, err, errRes)
}

func check(resp *resty.Response, err error, errRes *api.ErrorResponse) error {
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("request %s failed with status %d: %s", resp.Request.URL, resp.StatusCode(), errRes.Error)
	}
	return nil
}

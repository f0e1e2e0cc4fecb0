package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/bigredeye/essaycheck/api"
	"github.com/bigredeye/essaycheck/internal/config"
	"github.com/bigredeye/essaycheck/internal/database"
	"github.com/bigredeye/essaycheck/internal/essay"
	"github.com/bigredeye/essaycheck/internal/interpret"
	"github.com/bigredeye/essaycheck/internal/prompt"
)

type scriptedCompleter struct {
	mu    sync.Mutex
	reply string
	err   error
}

func (c *scriptedCompleter) Name() string  { return "scripted" }
func (c *scriptedCompleter) Model() string { return "scripted" }
func (c *scriptedCompleter) Close() error  { return nil }

func (c *scriptedCompleter) Complete(ctx context.Context, p string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reply, c.err
}

func (c *scriptedCompleter) set(reply string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reply, c.err = reply, err
}

func newTestHandler(t *testing.T, completer *scriptedCompleter) http.Handler {
	t.Helper()
	conf := &config.Config{}
	conf.Server.MaxBodySize = "4KiB"
	conf.DataBase.Driver = config.DriverSQLite
	conf.DataBase.DSN = filepath.Join(t.TempDir(), "feedbacks.db")
	conf.DataBase.UTCOffset = "+03:00"

	logger := zap.NewNop()
	db, err := database.OpenDataBase(logger, conf)
	if err != nil {
		t.Fatal("Failed to open database:", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	prompts, err := prompt.NewBuilder("")
	if err != nil {
		t.Fatal("Failed to load prompts:", err)
	}
	essays := essay.NewService(completer, prompts, db, logger, essay.Options{})
	s, err := newServer(conf, logger, essays)
	if err != nil {
		t.Fatal("Failed to create server:", err)
	}
	return s.handler()
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			if err := json.NewEncoder(&buf).Encode(body); err != nil {
				t.Fatal(err)
			}
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("Bad response json %q: %v", rec.Body.String(), err)
	}
}

func TestEvaluateAndHistory(t *testing.T) {
	completer := &scriptedCompleter{}
	h := newTestHandler(t, completer)

	rec := do(t, h, http.MethodGet, "/history/ayse", nil)
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("Expected empty history, got %d %q", rec.Code, rec.Body.String())
	}

	completer.set("**Grammatical Range and Accuracy (Band 5.0)**\n**Overall Band Score (Band 5.0)**", nil)
	rec = do(t, h, http.MethodPost, "/evaluate", api.EvaluateRequest{Username: "ayse", Text: "I has a apple.", TaskType: "Task 2"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	evaluation := api.EvaluateResponse{}
	decode(t, rec, &evaluation)
	if evaluation.Evaluation != "**Grammatical Range and Accuracy (Band 5.0)**\n**Overall Band Score (Band 5.0)**" || evaluation.Error != "" {
		t.Fatalf("Unexpected evaluation %+v", evaluation)
	}

	completer.set("Overall Band Score (Band 6.5)", nil)
	do(t, h, http.MethodPost, "/evaluate", api.EvaluateRequest{Username: "ayse", Text: "I have an apple.", TaskType: "Task 2"})

	rec = do(t, h, http.MethodGet, "/history/ayse", nil)
	history := []map[string]interface{}{}
	decode(t, rec, &history)
	if len(history) != 2 {
		t.Fatalf("Expected two entries, got %d", len(history))
	}
	first := history[0]
	if first["overall"] != 5.0 || first["grammar"] != 5.0 || first["task"] != nil {
		t.Fatalf("Unexpected first entry %+v", first)
	}
	if history[1]["overall"] != 6.5 {
		t.Fatalf("History must be ordered by creation time: %+v", history)
	}
	for _, key := range []string{"date", "overall", "task", "coherence", "lexical", "grammar", "evaluation"} {
		if _, ok := first[key]; !ok {
			t.Fatalf("Missing key %q in %+v", key, first)
		}
	}
	if date, _ := first["date"].(string); len(date) != len("2006-01-02 15:04") {
		t.Fatalf("Bad date format %q", date)
	}

	rec = do(t, h, http.MethodGet, "/history/mehmet", nil)
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("History must be filtered by username, got %s", rec.Body.String())
	}
}

func TestEvaluateUpstreamFailure(t *testing.T) {
	completer := &scriptedCompleter{err: errors.New("503 from model")}
	h := newTestHandler(t, completer)

	rec := do(t, h, http.MethodPost, "/evaluate", api.EvaluateRequest{Username: "ayse", Text: "text", TaskType: "Task 2"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Unexpected status %d", rec.Code)
	}
	if diff := cmp.Diff(`{"error":"Error generating evaluation from the model."}`, strings.TrimSpace(rec.Body.String())); diff != "" {
		t.Fatalf("Unexpected body (-want +got):\n%s", diff)
	}

	rec = do(t, h, http.MethodGet, "/history/ayse", nil)
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("Failed evaluation must not be stored, got %s", rec.Body.String())
	}
}

func TestEvaluateBadRequest(t *testing.T) {
	h := newTestHandler(t, &scriptedCompleter{})

	rec := do(t, h, http.MethodPost, "/evaluate", `{"username": "ayse", "text": "no task type"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}
	rec = do(t, h, http.MethodPost, "/correct", `{"text": `)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}
}

func TestBodyLimit(t *testing.T) {
	h := newTestHandler(t, &scriptedCompleter{reply: "fine"})

	rec := do(t, h, http.MethodPost, "/improve", api.TextRequest{Text: strings.Repeat("a", 8<<10)})
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("Expected 413, got %d", rec.Code)
	}
}

func TestCorrect(t *testing.T) {
	completer := &scriptedCompleter{reply: `{"highlighted_text":"I <span class='error'>has</span> a apple.","corrected_text":"I have an apple."}`}
	h := newTestHandler(t, completer)

	rec := do(t, h, http.MethodPost, "/correct", map[string]string{"text": "I has a apple.", "username": "ignored"})
	got := api.CorrectResponse{}
	decode(t, rec, &got)
	expected := api.CorrectResponse{
		Correction: interpret.Correction{
			HighlightedText: "I <span class='error'>has</span> a apple.",
			CorrectedText:   "I have an apple.",
		},
		Status: essay.StatusOK,
	}
	if diff := cmp.Diff(expected, got); diff != "" {
		t.Fatalf("Unexpected correction (-want +got):\n%s", diff)
	}

	completer.set("this is not json", nil)
	rec = do(t, h, http.MethodPost, "/correct", api.TextRequest{Text: "I has a apple."})
	got = api.CorrectResponse{}
	decode(t, rec, &got)
	if rec.Code != http.StatusOK || got.CorrectedText != "I has a apple." || got.Status != essay.StatusDegraded {
		t.Fatalf("Unexpected fallback %d %+v", rec.Code, got)
	}
}

func TestImproveAndAnalyze(t *testing.T) {
	completer := &scriptedCompleter{reply: "I own an apple."}
	h := newTestHandler(t, completer)

	rec := do(t, h, http.MethodPost, "/improve", api.TextRequest{Text: "I has a apple."})
	if diff := cmp.Diff(`{"improved_text":"I own an apple.","status":"ok"}`, strings.TrimSpace(rec.Body.String())); diff != "" {
		t.Fatalf("Unexpected improve body (-want +got):\n%s", diff)
	}

	completer.set("garbage", nil)
	rec = do(t, h, http.MethodPost, "/analyze", api.TextRequest{Text: "I has a apple."})
	expected := `{"word_count":0,"grammar_mistake_count":0,"vocab_repetition":[],"vocab_levels":{"A1":0,"A2":0,"B1":0,"B2":0,"C1":0,"C2":0},"status":"degraded"}`
	if diff := cmp.Diff(expected, strings.TrimSpace(rec.Body.String())); diff != "" {
		t.Fatalf("Unexpected analyze body (-want +got):\n%s", diff)
	}

	rec = do(t, h, http.MethodGet, "/stats", nil)
	stats := api.StatsResponse{}
	decode(t, rec, &stats)
	if stats[essay.OpAnalyze].Fallbacks != 1 || stats[essay.OpImprove].Calls != 1 {
		t.Fatalf("Unexpected stats %+v", stats)
	}
}

func TestCORSAndRequestID(t *testing.T) {
	h := newTestHandler(t, &scriptedCompleter{})

	rec := do(t, h, http.MethodGet, "/ping", nil)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("Unexpected allow-origin %q", got)
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatal("Missing request id")
	}

	req := httptest.NewRequest(http.MethodOptions, "/evaluate", nil)
	req.Header.Set("Origin", "https://example.org")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code >= 300 {
		t.Fatalf("Preflight rejected with %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://example.org" {
		t.Fatalf("Unexpected preflight allow-origin %q", got)
	}
}

func TestCORSCredentialedPreflight(t *testing.T) {
	h := newTestHandler(t, &scriptedCompleter{})

	req := httptest.NewRequest(http.MethodOptions, "/correct", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "content-type,x-request-id")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code >= 300 {
		t.Fatalf("Preflight rejected with %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Fatalf("Credentials must be allowed, got %q", got)
	}
	allowed := strings.Split(strings.ToLower(rec.Header().Get("Access-Control-Allow-Headers")), ",")
	for i := range allowed {
		allowed[i] = strings.TrimSpace(allowed[i])
	}
	for _, header := range []string{"content-type", "x-request-id", "authorization"} {
		found := false
		for _, a := range allowed {
			if a == header {
				found = true
			}
		}
		if !found {
			t.Fatalf("Header %q is not allowed: %v", header, allowed)
		}
	}
	for _, a := range allowed {
		if a == "*" {
			t.Fatal("Wildcard is ignored by browsers on credentialed requests and must not be relied on")
		}
	}
}

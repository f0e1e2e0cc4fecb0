package api

import (
	"github.com/bigredeye/essaycheck/internal/essay"
	"github.com/bigredeye/essaycheck/internal/interpret"
)

type EvaluateRequest struct {
	Username string `json:"username" binding:"required"`
	Text     string `json:"text" binding:"required"`
	TaskType string `json:"task_type" binding:"required"`
}

// EvaluateResponse carries either the raw evaluation or an error message.
type EvaluateResponse struct {
	Evaluation string `json:"evaluation,omitempty"`
	Error      string `json:"error,omitempty"`
}

type HistoryResponse = []essay.HistoryEntry

// TextRequest is the body of correct, improve and analyze. Other fields are ignored.
type TextRequest struct {
	Text string `json:"text" binding:"required"`
}

type CorrectResponse struct {
	interpret.Correction
	Status essay.Status `json:"status"`
}

type ImproveResponse struct {
	ImprovedText string       `json:"improved_text"`
	Status       essay.Status `json:"status"`
}

type AnalyzeResponse struct {
	interpret.Analysis
	Status essay.Status `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type StatsResponse = map[essay.Operation]essay.Counts

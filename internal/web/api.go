package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bigredeye/essaycheck/api"
	"github.com/bigredeye/essaycheck/internal/essay"
	lf "github.com/bigredeye/essaycheck/internal/logfield"
)

// Returned to clients instead of the upstream error text.
const evaluationFailedMessage = "Error generating evaluation from the model."

type essayService struct {
	webService
}

func setupEssayService(server *server, r *gin.Engine) {
	s := essayService{webService{server, server.config, server.essays, server.logger}}

	r.POST("/evaluate", s.evaluate)
	r.GET("/history/:username", s.history)
	r.POST("/correct", s.correct)
	r.POST("/improve", s.improve)
	r.POST("/analyze", s.analyze)
	r.GET("/stats", s.stats)
}

func (s essayService) requestLog(c *gin.Context) *zap.Logger {
	return s.log.With(lf.RequestID(c.GetString(requestIDKey)))
}

func (s essayService) badRequest(c *gin.Context, err error) {
	s.requestLog(c).Warn("Bad request", zap.String("path", c.FullPath()), zap.Error(err))
	code := http.StatusBadRequest
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		code = http.StatusRequestEntityTooLarge
	}
	c.JSON(code, &api.ErrorResponse{Error: err.Error()})
}

func (s essayService) evaluate(c *gin.Context) {
	req := api.EvaluateRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	feedback, err := s.essays.Evaluate(c.Request.Context(), req.Username, req.Text, req.TaskType)
	if err != nil {
		if essay.IsUpstream(err) {
			c.JSON(http.StatusOK, &api.EvaluateResponse{Error: evaluationFailedMessage})
			return
		}
		s.requestLog(c).Error("Failed to evaluate essay", lf.Username(req.Username), zap.Error(err))
		c.JSON(http.StatusInternalServerError, &api.ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, &api.EvaluateResponse{Evaluation: feedback.EvaluationText})
}

func (s essayService) history(c *gin.Context) {
	username := c.Param("username")
	entries, err := s.essays.History(c.Request.Context(), username)
	if err != nil {
		s.requestLog(c).Error("Failed to load history", lf.Username(username), zap.Error(err))
		c.JSON(http.StatusInternalServerError, &api.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, api.HistoryResponse(entries))
}

func (s essayService) correct(c *gin.Context) {
	req := api.TextRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	correction, status := s.essays.Correct(c.Request.Context(), req.Text)
	c.JSON(http.StatusOK, &api.CorrectResponse{Correction: correction, Status: status})
}

func (s essayService) improve(c *gin.Context) {
	req := api.TextRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	improved, status := s.essays.Improve(c.Request.Context(), req.Text)
	c.JSON(http.StatusOK, &api.ImproveResponse{ImprovedText: improved, Status: status})
}

func (s essayService) analyze(c *gin.Context) {
	req := api.TextRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	analysis, status := s.essays.Analyze(c.Request.Context(), req.Text)
	c.JSON(http.StatusOK, &api.AnalyzeResponse{Analysis: analysis, Status: status})
}

func (s essayService) stats(c *gin.Context) {
	c.JSON(http.StatusOK, api.StatsResponse(s.essays.Stats()))
}

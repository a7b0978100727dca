package controller

import (
	"context"

	"codejudge/internal/judge/model"
	"codejudge/internal/judge/result"
	"codejudge/internal/judge/sandbox/profile"
	"codejudge/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// Judge executes submissions.
type Judge interface {
	Execute(ctx context.Context, sub model.Submission) (result.AggregateResult, error)
	Languages() []profile.LanguageSpec
}

// LanguageView is the public description of a supported language.
type LanguageView struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Aliases   []string `json:"aliases,omitempty"`
	Strategy  string   `json:"strategy"`
	TimeoutMs int64    `json:"timeoutMs"`
}

// JudgeController handles judge requests.
type JudgeController struct {
	judge Judge
}

// NewJudgeController creates a new controller.
func NewJudgeController(judge Judge) *JudgeController {
	return &JudgeController{judge: judge}
}

// Execute judges one submission synchronously.
func (h *JudgeController) Execute(c *gin.Context) {
	var sub model.Submission
	if err := c.ShouldBindJSON(&sub); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	if sub.Language == "" {
		response.BadRequest(c, "language is required")
		return
	}
	agg, err := h.judge.Execute(c.Request.Context(), sub)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result.NewReport(agg))
}

// ListLanguages returns the supported languages.
func (h *JudgeController) ListLanguages(c *gin.Context) {
	langs := h.judge.Languages()
	views := make([]LanguageView, 0, len(langs))
	for _, lang := range langs {
		views = append(views, LanguageView{
			ID:        lang.ID,
			Name:      lang.Name,
			Aliases:   lang.Aliases,
			Strategy:  string(lang.Strategy),
			TimeoutMs: lang.Budget().Milliseconds(),
		})
	}
	response.Success(c, views)
}

// Register mounts the judge routes on a router group.
func (h *JudgeController) Register(group *gin.RouterGroup) {
	group.POST("/executions", h.Execute)
	group.GET("/languages", h.ListLanguages)
}

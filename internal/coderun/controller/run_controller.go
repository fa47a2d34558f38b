package controller

import (
	"context"

	"coderun/internal/coderun/model"
	"coderun/internal/sandbox/language"
	"coderun/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// RunService is the service surface the controller needs.
type RunService interface {
	Languages() []language.Info
	Run(ctx context.Context, req model.RunRequest) (*model.RunResult, error)
	GetRun(ctx context.Context, runID string) (*model.RunResult, error)
}

// RunController handles language listing and run requests.
type RunController struct {
	svc RunService
}

// NewRunController creates a new controller.
func NewRunController(svc RunService) *RunController {
	return &RunController{svc: svc}
}

// Register mounts the routes on group.
func (h *RunController) Register(group *gin.RouterGroup) {
	group.GET("/languages", h.ListLanguages)
	group.POST("/runs", h.CreateRun)
	group.GET("/runs/:id", h.GetRun)
}

// ListLanguages returns the supported languages in advertised order.
func (h *RunController) ListLanguages(c *gin.Context) {
	response.Success(c, h.svc.Languages())
}

// CreateRun compiles and runs one program synchronously.
func (h *RunController) CreateRun(c *gin.Context) {
	var req model.RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	result, err := h.svc.Run(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// GetRun returns a past run.
func (h *RunController) GetRun(c *gin.Context) {
	runID := c.Param("id")
	if runID == "" {
		response.BadRequest(c, "Invalid run id")
		return
	}
	result, err := h.svc.GetRun(c.Request.Context(), runID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/harmix/assistant-api/internal/domain/workflow"
	"github.com/harmix/assistant-api/internal/infrastructure/metrics"
	"github.com/harmix/assistant-api/internal/interfaces/httpserver/middlewares"
	"github.com/harmix/assistant-api/internal/interfaces/httpserver/requests"
	"github.com/harmix/assistant-api/internal/interfaces/httpserver/responses"
	"github.com/harmix/assistant-api/internal/utils/apperrors"
)

// WorkflowHandler exposes the scheduled automation surface.
type WorkflowHandler struct {
	workflows *workflow.Service
	log       zerolog.Logger
}

// NewWorkflowHandler constructs the handler.
func NewWorkflowHandler(workflows *workflow.Service, log zerolog.Logger) *WorkflowHandler {
	return &WorkflowHandler{
		workflows: workflows,
		log:       log.With().Str("handler", "workflow").Logger(),
	}
}

// List handles GET /v1/workflows
func (h *WorkflowHandler) List(c *gin.Context) {
	userID, _ := middlewares.UserIDFromContext(c)

	items, err := h.workflows.List(c.Request.Context(), userID)
	if err != nil {
		responses.HandleError(c, err, "failed to list workflows")
		return
	}

	payload := make([]responses.WorkflowPayload, len(items))
	for i := range items {
		payload[i] = responses.FromWorkflow(&items[i])
	}
	c.JSON(http.StatusOK, gin.H{"data": payload})
}

// Create handles POST /v1/workflows
func (h *WorkflowHandler) Create(c *gin.Context) {
	userID, _ := middlewares.UserIDFromContext(c)

	var req requests.CreateWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, apperrors.ErrorTypeValidation, "name, prompt and run_options are required")
		return
	}

	w, err := h.workflows.Create(c.Request.Context(), userID, req.Name, req.Prompt, req.RunOptions)
	if err != nil {
		responses.HandleError(c, err, "failed to create workflow")
		return
	}

	c.JSON(http.StatusCreated, responses.FromWorkflow(w))
}

// Get handles GET /v1/workflows/:id
func (h *WorkflowHandler) Get(c *gin.Context) {
	userID, _ := middlewares.UserIDFromContext(c)
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	w, err := h.workflows.Get(c.Request.Context(), userID, id)
	if err != nil {
		responses.HandleError(c, err, "failed to get workflow")
		return
	}

	c.JSON(http.StatusOK, responses.FromWorkflow(w))
}

// Update handles PATCH /v1/workflows/:id
func (h *WorkflowHandler) Update(c *gin.Context) {
	userID, _ := middlewares.UserIDFromContext(c)
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req requests.UpdateWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, apperrors.ErrorTypeValidation, "invalid request body")
		return
	}

	w, err := h.workflows.Update(c.Request.Context(), userID, id, workflow.WorkflowPatch{
		Name:       req.Name,
		Prompt:     req.Prompt,
		Active:     req.IsActive,
		RunOptions: req.RunOptions,
	})
	if err != nil {
		responses.HandleError(c, err, "failed to update workflow")
		return
	}

	c.JSON(http.StatusOK, responses.FromWorkflow(w))
}

// Delete handles DELETE /v1/workflows/:id
func (h *WorkflowHandler) Delete(c *gin.Context) {
	userID, _ := middlewares.UserIDFromContext(c)
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.workflows.Delete(c.Request.Context(), userID, id); err != nil {
		responses.HandleError(c, err, "failed to delete workflow")
		return
	}

	c.Status(http.StatusNoContent)
}

// Run handles POST /v1/workflows/:id/run
func (h *WorkflowHandler) Run(c *gin.Context) {
	userID, _ := middlewares.UserIDFromContext(c)
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.workflows.Run(c.Request.Context(), userID, id); err != nil {
		metrics.WorkflowRunsTotal.WithLabelValues("manual", "error").Inc()
		responses.HandleError(c, err, "failed to run workflow")
		return
	}

	metrics.WorkflowRunsTotal.WithLabelValues("manual", "ok").Inc()
	c.JSON(http.StatusOK, gin.H{"status": "completed"})
}

// Runs handles GET /v1/workflows/:id/runs
func (h *WorkflowHandler) Runs(c *gin.Context) {
	userID, _ := middlewares.UserIDFromContext(c)
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	runs, err := h.workflows.Runs(c.Request.Context(), userID, id)
	if err != nil {
		responses.HandleError(c, err, "failed to list workflow runs")
		return
	}

	payload := make([]responses.WorkflowRunPayload, len(runs))
	for i := range runs {
		payload[i] = responses.FromWorkflowRun(&runs[i])
	}
	c.JSON(http.StatusOK, gin.H{"data": payload})
}

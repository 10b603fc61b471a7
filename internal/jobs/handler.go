package jobs

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"coverage-backend/internal/shared/server/respond"
)

// Handler serves coverage generation and job polling.
type Handler struct {
	Manager *Manager
}

// Register mounts job routes on the given group.
func (h *Handler) Register(group *gin.RouterGroup) {
	group.POST("/coverage/generate", h.generate)
	group.GET("/jobs/:id", h.get)
	group.POST("/jobs/:id/cancel", h.cancel)
}

type generateRequest struct {
	ScriptID      string   `json:"scriptId"`
	ScriptText    string   `json:"scriptText"`
	Title         string   `json:"title"`
	Genre         string   `json:"genre"`
	Comps         []string `json:"comps"`
	AnalysisDepth string   `json:"analysisDepth"`
}

func (h *Handler) generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "Invalid JSON body", nil)
		return
	}
	if strings.TrimSpace(req.ScriptText) == "" {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "scriptText is required", nil)
		return
	}

	job, err := h.Manager.Generate(c.Request.Context(), GenerateParams{
		ScriptID:   req.ScriptID,
		ScriptText: req.ScriptText,
		Title:      req.Title,
		Genre:      req.Genre,
		Comps:      req.Comps,
		Depth:      req.AnalysisDepth,
	})
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal", "Failed to start analysis", nil)
		return
	}

	c.Set("jobId", job.ID)
	c.Set("reportId", job.ReportID)
	respond.Accepted(c, gin.H{
		"jobId":    job.ID,
		"reportId": job.ReportID,
		"status":   job.Status,
	})
}

func (h *Handler) get(c *gin.Context) {
	id := c.Param("id")
	c.Set("jobId", id)

	job, err := h.Manager.Repo.GetByID(c.Request.Context(), id)
	if errors.Is(err, ErrNotFound) {
		respond.Error(c, http.StatusNotFound, "not_found", "Job not found", nil)
		return
	}
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal", "Failed to load job", nil)
		return
	}

	payload := gin.H{
		"id":       job.ID,
		"reportId": job.ReportID,
		"status":   job.Status,
		"progress": job.Progress,
	}
	if job.ErrorMessage != "" {
		payload["errorMessage"] = job.ErrorMessage
	}
	respond.OK(c, payload)
}

func (h *Handler) cancel(c *gin.Context) {
	id := c.Param("id")
	c.Set("jobId", id)

	respond.OK(c, gin.H{"cancelled": h.Manager.Cancel(id)})
}

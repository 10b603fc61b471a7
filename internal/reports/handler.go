package reports

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"coverage-backend/internal/shared/server/respond"
)

// Handler serves coverage report reads and deletes.
type Handler struct {
	Repo Repo
}

// Register mounts report routes on the given group.
func (h *Handler) Register(group *gin.RouterGroup) {
	group.GET("/coverage", h.list)
	group.GET("/coverage/:id", h.get)
	group.DELETE("/coverage/:id", h.delete)
}

func (h *Handler) get(c *gin.Context) {
	id := c.Param("id")
	c.Set("reportId", id)

	report, err := h.Repo.GetByID(c.Request.Context(), id)
	if errors.Is(err, ErrNotFound) {
		respond.Error(c, http.StatusNotFound, "not_found", "Report not found", nil)
		return
	}
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal", "Failed to load report", nil)
		return
	}
	respond.OK(c, report)
}

func (h *Handler) list(c *gin.Context) {
	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)
	if limit > 200 {
		limit = 200
	}

	reports, err := h.Repo.List(c.Request.Context(), limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal", "Failed to list reports", nil)
		return
	}
	if reports == nil {
		reports = []CoverageReport{}
	}
	respond.OK(c, gin.H{"reports": reports, "limit": limit, "offset": offset})
}

func (h *Handler) delete(c *gin.Context) {
	id := c.Param("id")
	c.Set("reportId", id)

	err := h.Repo.Delete(c.Request.Context(), id)
	if errors.Is(err, ErrNotFound) {
		respond.Error(c, http.StatusNotFound, "not_found", "Report not found", nil)
		return
	}
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal", "Failed to delete report", nil)
		return
	}
	respond.OK(c, gin.H{"deleted": true})
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val < 0 {
		return fallback
	}
	return val
}

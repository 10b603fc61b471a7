package scripts

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"coverage-backend/internal/shared/server/respond"
	"coverage-backend/internal/shared/util"
)

// Handler serves script uploads. The extracted text is returned in the
// response for the caller to submit to coverage generation; only
// metadata and the text hash are persisted.
type Handler struct {
	Repo Repo
}

// Register mounts script routes on the given group.
func (h *Handler) Register(group *gin.RouterGroup) {
	group.POST("/scripts", h.upload)
	group.GET("/scripts/:id", h.get)
}

func (h *Handler) upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "Multipart field 'file' is required", nil)
		return
	}
	defer file.Close()

	fileName, err := util.SanitizeFileName(header.Filename)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "Invalid file name", nil)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, MaxUploadBytes+1))
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal", "Failed to read upload", nil)
		return
	}
	if len(data) > MaxUploadBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, "too_large", "Script file exceeds size limit", nil)
		return
	}

	extracted, err := Extract(data, fileName, header.Header.Get("Content-Type"))
	switch {
	case errors.Is(err, ErrTooManyPages):
		respond.Error(c, http.StatusUnprocessableEntity, "too_long", "Script exceeds page limit", nil)
		return
	case errors.Is(err, ErrUnsupported):
		respond.Error(c, http.StatusUnsupportedMediaType, "unsupported", "Unsupported script format", nil)
		return
	case errors.Is(err, ErrEmptyDocument):
		respond.Error(c, http.StatusUnprocessableEntity, "empty", "No text could be extracted", nil)
		return
	case err != nil:
		respond.Error(c, http.StatusUnprocessableEntity, "extract_failed", "Failed to extract script text", nil)
		return
	}

	meta := Metadata{
		ID:          uuid.NewString(),
		FileName:    fileName,
		ContentType: header.Header.Get("Content-Type"),
		Format:      extracted.Format,
		SizeBytes:   int64(len(data)),
		PageCount:   extracted.PageCount,
		CharCount:   len(extracted.Text),
		Title:       extracted.Title,
		TextHash:    util.HashText(extracted.Text),
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.Repo.Create(c.Request.Context(), meta); err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal", "Failed to save script metadata", nil)
		return
	}

	c.Set("scriptId", meta.ID)
	respond.OK(c, gin.H{
		"scriptId":  meta.ID,
		"title":     meta.Title,
		"format":    meta.Format,
		"pageCount": meta.PageCount,
		"charCount": meta.CharCount,
		"text":      extracted.Text,
	})
}

func (h *Handler) get(c *gin.Context) {
	id := c.Param("id")
	c.Set("scriptId", id)

	meta, err := h.Repo.GetByID(c.Request.Context(), id)
	if errors.Is(err, ErrNotFound) {
		respond.Error(c, http.StatusNotFound, "not_found", "Script not found", nil)
		return
	}
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal", "Failed to load script", nil)
		return
	}
	respond.OK(c, meta)
}

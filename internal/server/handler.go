// Package server is the HTTP boundary. Handlers parse and respond; every
// decision about jobs lives in internal/core.
package server

import (
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/paperforge/paperforge/constants"
	"github.com/paperforge/paperforge/internal/blueprint"
	"github.com/paperforge/paperforge/internal/common"
	"github.com/paperforge/paperforge/internal/core"
	"github.com/paperforge/paperforge/internal/extract"
	"github.com/paperforge/paperforge/internal/job"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	cfg   *common.Config
	ctrl  *core.Controller
	queue core.Queue
	log   *slog.Logger
}

func NewHandler(cfg *common.Config, ctrl *core.Controller, queue core.Queue, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{cfg: cfg, ctrl: ctrl, queue: queue, log: logger}
}

// Submit accepts a multipart form with a "blueprint" JSON field and one or
// more "files" parts, registers the job and hands it to the queue.
func (h *Handler) Submit(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.Limits.MaxTotalBytes+(1<<20))
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION", "invalid multipart form")
		return
	}
	form := c.Request.MultipartForm

	var raw string
	if v := form.Value["blueprint"]; len(v) > 0 {
		raw = v[0]
	}
	bp, err := blueprint.Parse([]byte(raw))
	if err != nil {
		respondAppError(c, err)
		return
	}

	headers := form.File["files"]
	files := make([]extract.SourceFile, 0, len(headers))
	for _, fh := range headers {
		data, err := readPart(fh)
		if err != nil {
			respondError(c, http.StatusBadRequest, "VALIDATION", "could not read "+fh.Filename)
			return
		}
		files = append(files, extract.SourceFile{
			Name:   filepath.Base(fh.Filename),
			Format: constants.MapExtToFormat(filepath.Ext(fh.Filename)),
			Data:   data,
		})
	}

	req := core.SubmitRequest{Blueprint: bp, Files: files}
	id, err := h.ctrl.Register(req)
	if err != nil {
		respondAppError(c, err)
		return
	}
	if err := h.queue.Enqueue(c.Request.Context(), core.QueueJob{
		ID:          id,
		Request:     req,
		SubmittedAt: time.Now(),
	}); err != nil {
		respondError(c, http.StatusServiceUnavailable, "UNAVAILABLE", "the job queue is not accepting work")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"job_id": id})
}

// Get returns the job status snapshot.
func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	snap, err := h.ctrl.Poll(id)
	if err != nil {
		respondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// Latest returns the newest succeeded job snapshot.
func (h *Handler) Latest(c *gin.Context) {
	snap, err := h.ctrl.LatestCompleted()
	if err != nil {
		respondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// Cancel flags the job for cooperative cancellation.
func (h *Handler) Cancel(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.ctrl.Cancel(id); err != nil {
		respondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": true})
}

// Artifact streams a produced PDF.
func (h *Handler) Artifact(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	kind := job.ArtifactKind(c.Param("kind"))
	if kind != job.ArtifactQuestions && kind != job.ArtifactAnswers {
		respondError(c, http.StatusNotFound, "NOT_FOUND", "unknown artifact kind")
		return
	}
	path, err := h.ctrl.ArtifactPath(id, kind)
	if err != nil {
		respondAppError(c, err)
		return
	}
	c.FileAttachment(path, filepath.Base(path))
}

// Manifest streams the manifest workbook of a succeeded job.
func (h *Handler) Manifest(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	data, err := h.ctrl.ManifestXLSX(id)
	if err != nil {
		respondAppError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="manifest.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, data)
}

// Healthz reports process liveness.
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz verifies the compiler binary is reachable and the output directory
// is writable before the daemon accepts work.
func (h *Handler) Readyz(c *gin.Context) {
	if _, err := exec.LookPath(h.cfg.Compiler.Command); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "reason": "compiler not on PATH"})
		return
	}
	if err := os.MkdirAll(h.cfg.Pipeline.OutputDir, 0o755); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "reason": "output directory not writable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION", "job id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// respondAppError maps the error taxonomy onto HTTP statuses.
func respondAppError(c *gin.Context, err error) {
	var ae *common.AppError
	code := "INTERNAL"
	msg := "an internal error occurred"
	if errors.As(err, &ae) {
		code, msg = ae.Code, ae.Message
	}
	switch {
	case errors.Is(err, common.ErrNotFound):
		respondError(c, http.StatusNotFound, "NOT_FOUND", "job not found")
	case errors.Is(err, common.ErrValidation):
		respondError(c, http.StatusBadRequest, code, msg)
	case errors.Is(err, common.ErrInvalidInput):
		respondError(c, http.StatusConflict, code, msg)
	default:
		respondError(c, http.StatusInternalServerError, code, msg)
	}
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{"error": gin.H{"code": code, "message": message}})
}

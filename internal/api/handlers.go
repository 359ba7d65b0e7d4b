package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"filesorter/internal/models"
	"filesorter/internal/service/ai"
	"filesorter/internal/service/organizer"
	"filesorter/internal/worker"
)

// Pipeline runs one upload batch end to end.
type Pipeline interface {
	Run(ctx context.Context, files []models.UploadedFile) (*models.Result, error)
}

// WorkerPool runs a function on a bounded pool and waits for it.
type WorkerPool interface {
	Submit(ctx context.Context, client string, fn func(context.Context)) error
}

// Handler wires HTTP routes to the organizer pipeline.
type Handler struct {
	pipeline       Pipeline
	workers        WorkerPool
	maxUploadBytes int64
	timeout        time.Duration
}

// NewHandler constructs a Handler instance.
func NewHandler(pipeline Pipeline, workers WorkerPool, maxUploadBytes int64, timeout time.Duration) *Handler {
	return &Handler{
		pipeline:       pipeline,
		workers:        workers,
		maxUploadBytes: maxUploadBytes,
		timeout:        timeout,
	}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())
	router.GET("/healthz", h.health)
	router.POST("/upload_and_classify", h.uploadAndClassify)
	router.POST("/render_markdown", h.renderMarkdown)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) uploadAndClassify(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
		return
	}
	uploads := uploadedFiles(form.File["files"])

	ctx := c.Request.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	var (
		result *models.Result
		runErr error
	)
	err = h.workers.Submit(ctx, c.ClientIP(), func(ctx context.Context) {
		result, runErr = h.pipeline.Run(ctx, uploads)
	})
	if err == nil {
		err = runErr
	}
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func uploadedFiles(headers []*multipart.FileHeader) []models.UploadedFile {
	uploads := make([]models.UploadedFile, 0, len(headers))
	for _, fh := range headers {
		uploads = append(uploads, models.UploadedFile{
			FileName: fh.Filename,
			Size:     fh.Size,
			Open: func() (io.ReadCloser, error) {
				f, err := fh.Open()
				if err != nil {
					return nil, err
				}
				return f, nil
			},
		})
	}
	return uploads
}

func (h *Handler) writeError(c *gin.Context, err error) {
	_ = c.Error(err)

	var classErr *ai.ClassificationError
	switch {
	case errors.Is(err, worker.ErrDispatcherBusy):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "server is busy, please retry"})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "처리 시간이 초과되었습니다"})
	case errors.As(err, &classErr):
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":        classErr.Error(),
			"raw_response": classErr.Raw,
		})
	case errors.Is(err, worker.ErrJobPanicked):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "백엔드 처리 중 오류 발생"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("백엔드 처리 중 오류 발생: %v", err)})
	}
}

type renderRequest struct {
	OrganizationSpec models.ClassificationSpec `json:"organization_spec"`
}

func (h *Handler) renderMarkdown(c *gin.Context) {
	var req renderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if len(req.OrganizationSpec) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "organization_spec is required"})
		return
	}
	md := organizer.RenderMarkdown(req.OrganizationSpec)
	c.JSON(http.StatusOK, gin.H{
		"markdown_summary": md,
		"markdown_html":    organizer.RenderHTML(md),
	})
}

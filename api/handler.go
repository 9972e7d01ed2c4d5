package api

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/viktsys/tradepnl/analysis"
	"github.com/viktsys/tradepnl/ingest"
	"github.com/viktsys/tradepnl/logging"
	"github.com/viktsys/tradepnl/metrics"
	"github.com/viktsys/tradepnl/models"
	"github.com/viktsys/tradepnl/store"
)

const defaultMaxUploadBytes = 32 << 20

type Handler struct {
	repo      *store.Repository
	uploads   *store.Uploads
	processor *ingest.Processor
	metrics   *metrics.Metrics
	logger    *zap.Logger

	MaxUploadBytes int64
}

func NewHandler(repo *store.Repository, uploads *store.Uploads, processor *ingest.Processor, m *metrics.Metrics, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		repo:           repo,
		uploads:        uploads,
		processor:      processor,
		metrics:        m,
		logger:         logger,
		MaxUploadBytes: defaultMaxUploadBytes,
	}
}

// AnalysisRequest is the body of POST /api/analyses. Dates are YYYY-MM-DD or
// DD-MM-YYYY.
type AnalysisRequest struct {
	StrategyName string   `json:"strategyName"`
	DateColumn   string   `json:"dateColumn"`
	FileIDs      []string `json:"fileIds"`
	Mode         string   `json:"mode"`
	StartDate    string   `json:"startDate"`
	EndDate      string   `json:"endDate"`
	Dates        []string `json:"dates"`
}

type SortParams struct {
	Sort  string `form:"sort"`
	Order string `form:"order"`
}

// AnalysisResponse carries a record with its summaries ranked for display.
type AnalysisResponse struct {
	Analysis  models.AnalysisRecord `json:"analysis"`
	Summaries []models.FileSummary  `json:"summaries"`
	Overall   analysis.Overall      `json:"overall"`
}

func UploadFiles(h *Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.MaxUploadBytes > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)
		}

		form, err := c.MultipartForm()
		if err != nil {
			respondError(c, http.StatusBadRequest, fmt.Errorf("invalid upload: %w", err))
			return
		}
		headers := form.File["files"]
		if len(headers) == 0 {
			respondError(c, http.StatusBadRequest, errors.New("no files uploaded"))
			return
		}

		for _, fh := range headers {
			if _, err := ingest.FormatOf(fh.Filename); err != nil {
				respondError(c, http.StatusBadRequest, err)
				return
			}
		}

		uploaded := make([]models.Upload, 0, len(headers))
		for _, fh := range headers {
			upload, err := h.saveUpload(c, fh)
			if err != nil {
				h.discardUploads(c, uploaded)
				respondError(c, http.StatusBadRequest, err)
				return
			}
			h.metrics.ObserveUpload()
			uploaded = append(uploaded, *upload)
		}

		c.JSON(http.StatusCreated, gin.H{"files": uploaded})
	}
}

func (h *Handler) saveUpload(c *gin.Context, fh *multipart.FileHeader) (*models.Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", fh.Filename, err)
	}
	defer f.Close()
	return h.uploads.Save(c.Request.Context(), fh.Filename, fh.Header.Get("Content-Type"), f)
}

// discardUploads removes files stored earlier in a request that failed.
func (h *Handler) discardUploads(c *gin.Context, uploaded []models.Upload) {
	for _, upload := range uploaded {
		if err := h.uploads.Delete(c.Request.Context(), upload.ID); err != nil {
			h.logger.Warn("Failed to discard upload", zap.String("upload_id", upload.ID), zap.Error(err))
		}
	}
}

func ListFiles(h *Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		uploads, err := h.uploads.List(c.Request.Context())
		if err != nil {
			respondError(c, http.StatusInternalServerError, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"files": uploads})
	}
}

func DeleteFile(h *Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h.uploads.Delete(c.Request.Context(), c.Param("id")); err != nil {
			respondError(c, statusFor(err), err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func CreateAnalysis(h *Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AnalysisRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, err)
			return
		}
		var params SortParams
		if err := c.ShouldBindQuery(&params); err != nil {
			respondError(c, http.StatusBadRequest, err)
			return
		}
		key, order, err := analysis.ParseSort(params.Sort, params.Order)
		if err != nil {
			respondError(c, http.StatusBadRequest, err)
			return
		}

		selection, err := analysis.ParseSelection(req.Mode, req.StartDate, req.EndDate, req.Dates)
		if err != nil {
			respondError(c, http.StatusBadRequest, err)
			return
		}
		// Validate before touching any file
		if _, err := analysis.Preconditions(req.DateColumn, selection); err != nil {
			respondError(c, http.StatusBadRequest, err)
			return
		}

		files, err := h.uploads.Files(c.Request.Context(), req.FileIDs)
		if err != nil {
			respondError(c, statusFor(err), err)
			return
		}

		record, err := h.processor.Run(c.Request.Context(), ingest.Request{
			StrategyName: req.StrategyName,
			DateColumn:   req.DateColumn,
			Selection:    selection,
			Files:        files,
		})
		if err != nil {
			if record != nil {
				h.logger.Error("Analysis finished but was not saved",
					zap.String("analysis_id", record.ID), zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{
					"error":    err.Error(),
					"analysis": newAnalysisResponse(*record, key, order),
				})
				return
			}
			respondError(c, statusFor(err), err)
			return
		}

		c.JSON(http.StatusCreated, newAnalysisResponse(*record, key, order))
	}
}

func ListAnalyses(h *Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 50
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				respondError(c, http.StatusBadRequest, fmt.Errorf("invalid limit %q", raw))
				return
			}
			limit = n
		}

		records, err := h.repo.ListAnalyses(c.Request.Context(), limit)
		if err != nil {
			respondError(c, http.StatusInternalServerError, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"analyses": records})
	}
}

func GetAnalysis(h *Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var params SortParams
		if err := c.ShouldBindQuery(&params); err != nil {
			respondError(c, http.StatusBadRequest, err)
			return
		}
		key, order, err := analysis.ParseSort(params.Sort, params.Order)
		if err != nil {
			respondError(c, http.StatusBadRequest, err)
			return
		}

		record, err := h.repo.GetAnalysis(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, statusFor(err), err)
			return
		}
		c.JSON(http.StatusOK, newAnalysisResponse(*record, key, order))
	}
}

func newAnalysisResponse(record models.AnalysisRecord, key analysis.SortKey, order analysis.SortOrder) AnalysisResponse {
	summaries := record.Summaries
	record.Summaries = nil
	return AnalysisResponse{
		Analysis:  record,
		Summaries: analysis.SortSummaries(summaries, key, order),
		Overall:   analysis.ComputeOverall(summaries),
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, analysis.ErrNoDateColumn),
		errors.Is(err, analysis.ErrNoDates),
		errors.Is(err, analysis.ErrTooManyDates),
		errors.Is(err, ingest.ErrNoFiles):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, status int, err error) {
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": err.Error()})
}

func SetupRoutes(h *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(logging.GinLogger(h.logger), gin.Recovery())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if h.metrics != nil {
		r.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}

	files := r.Group("/api/files")
	files.POST("", UploadFiles(h))
	files.GET("", ListFiles(h))
	files.DELETE("/:id", DeleteFile(h))

	analyses := r.Group("/api/analyses")
	analyses.POST("", CreateAnalysis(h))
	analyses.GET("", ListAnalyses(h))
	analyses.GET("/:id", GetAnalysis(h))

	return r
}

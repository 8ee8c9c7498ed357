package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"carteirinha/internal/api/middleware"
	"carteirinha/internal/database"
	"carteirinha/internal/render"
	"carteirinha/internal/storage"
	"carteirinha/internal/tasks"
)

// Print job statuses.
const (
	PrintJobQueued     = "queued"
	PrintJobProcessing = "processing"
	PrintJobCompleted  = "completed"
	PrintJobFailed     = "failed"
)

// PrintHandler accepts batch print requests and exposes job status and the
// finished PDF.
type PrintHandler struct {
	db          *gorm.DB
	store       *database.LayoutStore
	asynqClient *asynq.Client
	storage     *storage.Client
	logger      *slog.Logger
}

// NewPrintHandler builds the handler.
func NewPrintHandler(db *gorm.DB, store *database.LayoutStore, asynqClient *asynq.Client, storageClient *storage.Client, logger *slog.Logger) *PrintHandler {
	return &PrintHandler{
		db:          db,
		store:       store,
		asynqClient: asynqClient,
		storage:     storageClient,
		logger:      logger,
	}
}

type printRequest struct {
	Items []tasks.PrintSelectionItem `json:"items" binding:"required"`
}

type printJobResponse struct {
	ID        uint      `json:"id"`
	Status    string    `json:"status"`
	CardCount int       `json:"card_count"`
	PageCount int       `json:"page_count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newPrintJobResponse(job database.PrintJob) printJobResponse {
	return printJobResponse{
		ID:        job.ID,
		Status:    job.Status,
		CardCount: job.CardCount,
		PageCount: job.PageCount,
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
	}
}

// CreatePrintJob validates the selection, persists a job row and enqueues
// the rendering task. Every selected person must carry a layout assignment
// that resolves to a stored layout; otherwise the whole request is refused
// with 422 listing the offenders, and nothing is enqueued.
func (h *PrintHandler) CreatePrintJob(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req printRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if len(req.Items) == 0 {
		BadRequest(c, "selection is empty")
		return
	}

	ctx := c.Request.Context()

	layoutIDs := make(map[string]bool)
	var unassigned []gin.H
	for i, item := range req.Items {
		if item.Kind != tasks.KindAssociate && item.Kind != tasks.KindDependent {
			BadRequest(c, fmt.Sprintf("item %d: unknown kind %q", i, item.Kind))
			return
		}
		if item.LayoutID == "" {
			unassigned = append(unassigned, gin.H{"kind": item.Kind, "id": item.ID, "reason": "no layout assigned"})
			continue
		}
		known, seen := layoutIDs[item.LayoutID]
		if !seen {
			_, err := h.store.Get(ctx, item.LayoutID)
			switch {
			case err == nil:
				known = true
			case errors.Is(err, database.ErrLayoutNotFound):
				known = false
			default:
				h.logger.Error("resolve layout assignment", slog.Any("error", err))
				Internal(c, "failed to resolve layout assignment")
				return
			}
			layoutIDs[item.LayoutID] = known
		}
		if !known {
			unassigned = append(unassigned, gin.H{"kind": item.Kind, "id": item.ID, "reason": "layout not found"})
		}
	}
	if len(unassigned) > 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "every selected card needs a valid layout assignment",
			"items": unassigned,
		})
		return
	}

	// Reject references to people that no longer exist before queueing.
	for i, item := range req.Items {
		var err error
		switch item.Kind {
		case tasks.KindAssociate:
			err = h.db.WithContext(ctx).First(&database.Associate{}, item.ID).Error
		case tasks.KindDependent:
			err = h.db.WithContext(ctx).First(&database.Dependent{}, item.ID).Error
		}
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				BadRequest(c, fmt.Sprintf("item %d: %s %d not found", i, item.Kind, item.ID))
				return
			}
			Internal(c, "failed to resolve selection")
			return
		}
	}

	selection, err := json.Marshal(req.Items)
	if err != nil {
		Internal(c, "failed to encode selection")
		return
	}

	cardCount := len(req.Items)
	pageCount := (cardCount + render.CardsPerPage - 1) / render.CardsPerPage
	job := database.PrintJob{
		UserID:    userID,
		Status:    PrintJobQueued,
		Selection: datatypes.JSON(selection),
		CardCount: cardCount,
		PageCount: pageCount,
	}
	if err := h.db.WithContext(ctx).Create(&job).Error; err != nil {
		h.logger.Error("create print job", slog.Any("error", err))
		Internal(c, "failed to create print job")
		return
	}

	correlationID := middleware.GetCorrelationID(c)
	task, err := tasks.NewCardPrintTask(job.ID, correlationID)
	if err != nil {
		Internal(c, "failed to create task")
		return
	}

	if _, err := h.asynqClient.Enqueue(task, asynq.MaxRetry(5)); err != nil {
		h.logger.Error("enqueue print task", slog.Any("error", err))
		Internal(c, "failed to enqueue print job")
		return
	}

	c.JSON(http.StatusAccepted, newPrintJobResponse(job))
}

// GetPrintJob reports a job's status and counts.
func (h *PrintHandler) GetPrintJob(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	job, err := h.getJobForUser(c, userID)
	if err != nil {
		return
	}

	c.JSON(http.StatusOK, newPrintJobResponse(*job))
}

// GetPrintJobDownload returns a presigned link to the finished PDF.
func (h *PrintHandler) GetPrintJobDownload(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	job, err := h.getJobForUser(c, userID)
	if err != nil {
		return
	}

	if job.Status != PrintJobCompleted || job.PdfKey == "" {
		Conflict(c, "pdf not ready")
		return
	}

	signedURL, err := h.storage.GeneratePresignedURL(c.Request.Context(), job.PdfKey, 5*time.Minute)
	if err != nil {
		h.logger.Error("presign print job pdf", slog.Any("error", err))
		Internal(c, "failed to generate download link")
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": signedURL})
}

// getJobForUser loads a job owned by the caller, writing the error response
// itself when the lookup fails.
func (h *PrintHandler) getJobForUser(c *gin.Context, userID uint) (*database.PrintJob, error) {
	jobID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		BadRequest(c, "invalid print job id")
		return nil, err
	}

	var job database.PrintJob
	if err := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND user_id = ?", uint(jobID), userID).
		First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "print job not found")
			return nil, err
		}
		Internal(c, "failed to query print job")
		return nil, err
	}
	return &job, nil
}

package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"carteirinha/internal/card"
	"carteirinha/internal/database"
	"carteirinha/internal/errcode"
	"carteirinha/internal/pdf"
	"carteirinha/internal/render"
	"carteirinha/internal/storage"
	"carteirinha/internal/tasks"
)

// Print job statuses, mirrored from the API side.
const (
	statusProcessing = "processing"
	statusCompleted  = "completed"
	statusFailed     = "failed"
)

// CardPrintTaskHandler consumes card print tasks: it resolves the selection
// into rendered cards, exports the paginated document as a PDF and stores
// it back.
type CardPrintTaskHandler struct {
	db          *gorm.DB
	store       *database.LayoutStore
	storage     *storage.Client
	redisClient *redis.Client
	logger      *slog.Logger
}

// NewCardPrintTaskHandler creates the task handler.
func NewCardPrintTaskHandler(
	db *gorm.DB,
	store *database.LayoutStore,
	storageClient *storage.Client,
	redisClient *redis.Client,
	logger *slog.Logger,
) *CardPrintTaskHandler {
	return &CardPrintTaskHandler{
		db:          db,
		store:       store,
		storage:     storageClient,
		redisClient: redisClient,
		logger:      logger,
	}
}

// ProcessTask implements asynq.Handler.
func (h *CardPrintTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	log := h.logger

	var payload tasks.CardPrintPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		log.Error("unmarshal task payload failed", slog.Any("error", err))
		return err
	}

	log = log.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.Int("print_job_id", int(payload.PrintJobID)),
	)
	log.Info("starting card print task")

	var job database.PrintJob
	if err := h.db.WithContext(ctx).First(&job, payload.PrintJobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("print job not found, skipping task")
			return nil
		}
		log.Error("query print job failed", slog.Any("error", err))
		return err
	}

	log = log.With(slog.Uint64("user_id", uint64(job.UserID)))

	defer func() {
		if retErr == nil {
			return
		}
		if !isFinalAsynqAttempt(ctx) {
			return
		}

		if err := h.db.WithContext(ctx).Model(&job).Update("status", statusFailed).Error; err != nil {
			log.Error("mark print job failed", slog.Any("error", err))
		}
		notify := CardPrintNotifyMessage{
			Status:        "error",
			PrintJobID:    job.ID,
			CorrelationID: payload.CorrelationID,
			ErrorCode:     errcode.SystemError,
			ErrorMessage:  strings.TrimSpace(retErr.Error()),
		}
		if err := h.publishNotify(ctx, job.UserID, notify); err != nil {
			log.Error("publish print error notification failed", slog.Any("error", err))
		}
	}()

	if err := h.db.WithContext(ctx).Model(&job).Update("status", statusProcessing).Error; err != nil {
		log.Error("mark print job processing", slog.Any("error", err))
		return err
	}

	var selection []tasks.PrintSelectionItem
	if err := json.Unmarshal(job.Selection, &selection); err != nil {
		log.Error("decode print selection failed", slog.Any("error", err))
		return err
	}
	if len(selection) == 0 {
		log.Warn("print selection is empty, skipping task")
		return nil
	}

	items, missingKeys, err := h.buildPrintItems(ctx, selection, log)
	if err != nil {
		log.Error("build print items failed", slog.Any("error", err))
		return err
	}

	html, err := render.RenderPrintDocument(items)
	if err != nil {
		log.Error("render print document failed", slog.Any("error", err))
		return err
	}

	pdfBytes, err := pdf.GeneratePDFFromHTML(html)
	if err != nil {
		log.Error("generate pdf failed", slog.Any("error", err))
		return err
	}

	objectName := fmt.Sprintf("generated-cards/%d/%s.pdf", job.UserID, uuid.NewString())
	pdfReader := bytes.NewReader(pdfBytes)
	if _, err := h.storage.UploadFile(ctx, objectName, pdfReader, int64(len(pdfBytes)), "application/pdf"); err != nil {
		log.Error("upload pdf to minio failed", slog.Any("error", err))
		return err
	}

	pages := render.Paginate(items)
	update := map[string]any{
		"pdf_key":    objectName,
		"status":     statusCompleted,
		"card_count": len(items),
		"page_count": len(pages),
	}
	if err := h.db.WithContext(ctx).Model(&job).Updates(update).Error; err != nil {
		log.Error("update print job failed", slog.Any("error", err))
		return err
	}

	notify := CardPrintNotifyMessage{
		Status:        "completed",
		PrintJobID:    job.ID,
		CorrelationID: payload.CorrelationID,
		ErrorCode:     errcode.OK,
	}
	if len(missingKeys) > 0 {
		notify.ErrorCode = errcode.ResourceMissing
		notify.ErrorMessage = "algumas imagens não foram encontradas e foram substituídas por um aviso no cartão"
		notify.MissingKeys = missingKeys
		log.Warn("pdf generated with missing assets",
			slog.Int("missing_count", len(missingKeys)),
			slog.Any("missing_keys", missingKeys),
		)
	}
	if err := h.publishNotify(ctx, job.UserID, notify); err != nil {
		log.Error("publish redis notification failed", slog.Any("error", err))
		return err
	}

	log.Info("card print task completed",
		slog.Int("card_count", len(items)),
		slog.Int("page_count", len(pages)),
	)
	return nil
}

// buildPrintItems resolves every selection entry into a layout plus card
// content. Photos that fail to load degrade to the failed-photo placeholder
// and their keys are reported back; layouts and people are expected to
// exist because the API validated the selection at submit time.
func (h *CardPrintTaskHandler) buildPrintItems(
	ctx context.Context,
	selection []tasks.PrintSelectionItem,
	log *slog.Logger,
) ([]render.PrintItem, []string, error) {
	layoutCache := make(map[string]card.Layout)
	backgroundCache := make(map[string]string)
	missingSet := make(map[string]struct{})
	var missingKeys []string

	markMissing := func(key string) {
		key = strings.TrimSpace(key)
		if key == "" {
			return
		}
		if _, ok := missingSet[key]; ok {
			return
		}
		missingSet[key] = struct{}{}
		missingKeys = append(missingKeys, key)
	}

	loadLayout := func(id string) (card.Layout, error) {
		if l, ok := layoutCache[id]; ok {
			return l, nil
		}
		l, err := h.store.Get(ctx, id)
		if err != nil {
			return card.Layout{}, fmt.Errorf("load layout %s: %w", id, err)
		}
		layoutCache[id] = l
		return l, nil
	}

	resolveBackground := func(key string) (string, error) {
		if key == "" {
			return "", nil
		}
		if uri, ok := backgroundCache[key]; ok {
			return uri, nil
		}
		uri, err := inlineImage(ctx, h.storage, key)
		if err != nil {
			if errors.Is(err, errObjectMissing) {
				log.Warn("layout background missing", slog.String("object_key", key))
				markMissing(key)
				backgroundCache[key] = ""
				return "", nil
			}
			return "", err
		}
		backgroundCache[key] = uri
		return uri, nil
	}

	resolvePhoto := func(key string) (render.PhotoState, string, error) {
		if strings.TrimSpace(key) == "" {
			return render.PhotoNone, "", nil
		}
		uri, err := inlineImage(ctx, h.storage, key)
		if err != nil {
			if errors.Is(err, errObjectMissing) {
				log.Warn("member photo missing", slog.String("object_key", key))
				markMissing(key)
				return render.PhotoFailed, "", nil
			}
			return render.PhotoNone, "", err
		}
		return render.PhotoResolved, uri, nil
	}

	items := make([]render.PrintItem, 0, len(selection))
	for _, sel := range selection {
		layout, err := loadLayout(sel.LayoutID)
		if err != nil {
			return nil, nil, err
		}
		background, err := resolveBackground(layout.BackgroundImage)
		if err != nil {
			return nil, nil, err
		}

		switch sel.Kind {
		case tasks.KindAssociate:
			var associate database.Associate
			if err := h.db.WithContext(ctx).First(&associate, sel.ID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					log.Warn("selected associate no longer exists", slog.Uint64("associate_id", uint64(sel.ID)))
					continue
				}
				return nil, nil, fmt.Errorf("load associate %d: %w", sel.ID, err)
			}
			photoState, photoURL, err := resolvePhoto(associate.PhotoKey)
			if err != nil {
				return nil, nil, err
			}
			person := render.Person{
				Name:            associate.Name,
				RG:              associate.RG,
				CPF:             associate.CPF,
				Role:            associate.Role,
				Company:         associate.Company,
				AssociationDate: associate.AssociationDate,
				ExpirationDate:  associate.ExpirationDate,
				Photo:           photoState,
				PhotoURL:        photoURL,
			}
			items = append(items, render.PrintItem{
				Layout: layout,
				Data:   render.AssociateCard(person, background),
			})

		case tasks.KindDependent:
			var dependent database.Dependent
			if err := h.db.WithContext(ctx).First(&dependent, sel.ID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					log.Warn("selected dependent no longer exists", slog.Uint64("dependent_id", uint64(sel.ID)))
					continue
				}
				return nil, nil, fmt.Errorf("load dependent %d: %w", sel.ID, err)
			}
			var associate database.Associate
			if err := h.db.WithContext(ctx).First(&associate, dependent.AssociateID).Error; err != nil {
				return nil, nil, fmt.Errorf("load associate %d for dependent %d: %w", dependent.AssociateID, sel.ID, err)
			}
			photoState, photoURL, err := resolvePhoto(dependent.PhotoKey)
			if err != nil {
				return nil, nil, err
			}
			person := render.Person{
				Name:            dependent.Name,
				RG:              dependent.RG,
				CPF:             dependent.CPF,
				Company:         dependent.Company,
				AssociationDate: dependent.AssociationDate,
				ExpirationDate:  dependent.ExpirationDate,
				Photo:           photoState,
				PhotoURL:        photoURL,
			}
			items = append(items, render.PrintItem{
				Layout: layout,
				Data:   render.DependentCard(person, associate.Name, background),
			})

		default:
			return nil, nil, fmt.Errorf("unknown selection kind %q", sel.Kind)
		}
	}

	return items, missingKeys, nil
}

func (h *CardPrintTaskHandler) publishNotify(ctx context.Context, userID uint, notify CardPrintNotifyMessage) error {
	data, err := json.Marshal(notify)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}
	channel := fmt.Sprintf("user_notify:%d", userID)
	if err := h.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish redis notification to %q: %w", channel, err)
	}
	return nil
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}

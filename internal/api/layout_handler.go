package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"carteirinha/internal/card"
	"carteirinha/internal/database"
	"carteirinha/internal/render"
	"carteirinha/internal/storage"
)

// LayoutHandler serves the card layout collection: listing, saving,
// creating, duplicating, deleting and previewing layouts.
type LayoutHandler struct {
	store   *database.LayoutStore
	storage *storage.Client
	logger  *slog.Logger
}

// NewLayoutHandler builds the handler.
func NewLayoutHandler(store *database.LayoutStore, storageClient *storage.Client, logger *slog.Logger) *LayoutHandler {
	return &LayoutHandler{
		store:   store,
		storage: storageClient,
		logger:  logger,
	}
}

// ListLayouts returns every stored layout. An empty store is seeded with a
// single default layout first, so callers always receive at least one.
func (h *LayoutHandler) ListLayouts(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	layouts, err := h.store.List(ctx)
	if err != nil {
		h.logger.Error("list layouts", slog.Any("error", err))
		Internal(c, "failed to list layouts")
		return
	}

	if len(layouts) == 0 {
		collection := card.NewCollection(nil)
		seeded, err := h.store.Upsert(ctx, collection.Current(), userID)
		if err != nil {
			h.logger.Error("seed default layout", slog.Any("error", err))
			Internal(c, "failed to seed default layout")
			return
		}
		layouts = []card.Layout{seeded}
	}

	c.JSON(http.StatusOK, layouts)
}

// GetLayout returns one layout by id.
func (h *LayoutHandler) GetLayout(c *gin.Context) {
	if _, ok := userIDFromContext(c); !ok {
		AbortUnauthorized(c)
		return
	}

	layout, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, database.ErrLayoutNotFound) {
			NotFound(c, "layout not found")
			return
		}
		h.logger.Error("get layout", slog.Any("error", err))
		Internal(c, "failed to load layout")
		return
	}

	c.JSON(http.StatusOK, layout)
}

// CreateLayout appends a fresh layout with default geometry and an
// auto-generated title derived from the collection size.
func (h *LayoutHandler) CreateLayout(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	layouts, err := h.store.List(ctx)
	if err != nil {
		h.logger.Error("list layouts", slog.Any("error", err))
		Internal(c, "failed to list layouts")
		return
	}

	collection := card.NewCollection(layouts)
	var created card.Layout
	if len(layouts) == 0 {
		// The seed layout is the one being created.
		created = collection.Current()
	} else {
		created = collection.Add()
	}

	saved, err := h.store.Upsert(ctx, created, userID)
	if err != nil {
		h.logger.Error("create layout", slog.Any("error", err))
		Internal(c, "failed to create layout")
		return
	}

	c.JSON(http.StatusCreated, saved)
}

// SaveLayout upserts a full layout body under the path id. Positions are
// clamped to card bounds on the way in; concurrent saves of the same id are
// last-write-wins.
func (h *LayoutHandler) SaveLayout(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var layout card.Layout
	if err := c.ShouldBindJSON(&layout); err != nil {
		BadRequest(c, err.Error())
		return
	}

	layout.ID = c.Param("id")
	if layout.ID == "" {
		BadRequest(c, "layout id is required")
		return
	}
	if layout.Title == "" {
		BadRequest(c, "layout title is required")
		return
	}

	saved, err := h.store.Upsert(c.Request.Context(), layout, userID)
	if err != nil {
		h.logger.Error("save layout", slog.Any("error", err))
		Internal(c, "failed to save layout")
		return
	}

	c.JSON(http.StatusOK, saved)
}

// DuplicateLayout deep-copies a layout under a new id with " (Cópia)"
// appended to the title.
func (h *LayoutHandler) DuplicateLayout(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	source, err := h.store.Get(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, database.ErrLayoutNotFound) {
			NotFound(c, "layout not found")
			return
		}
		h.logger.Error("load layout for duplication", slog.Any("error", err))
		Internal(c, "failed to load layout")
		return
	}

	dup := source.Clone()
	dup.Title = source.Title + " (Cópia)"

	saved, err := h.store.Upsert(ctx, dup, userID)
	if err != nil {
		h.logger.Error("duplicate layout", slog.Any("error", err))
		Internal(c, "failed to duplicate layout")
		return
	}

	c.JSON(http.StatusCreated, saved)
}

// DeleteLayout removes a layout. The last remaining layout cannot be
// deleted; the collection never becomes empty.
func (h *LayoutHandler) DeleteLayout(c *gin.Context) {
	if _, ok := userIDFromContext(c); !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	count, err := h.store.Count(ctx)
	if err != nil {
		h.logger.Error("count layouts", slog.Any("error", err))
		Internal(c, "failed to count layouts")
		return
	}
	if count <= 1 {
		Conflict(c, "cannot delete the last remaining layout")
		return
	}

	if err := h.store.Delete(ctx, c.Param("id")); err != nil {
		if errors.Is(err, database.ErrLayoutNotFound) {
			NotFound(c, "layout not found")
			return
		}
		h.logger.Error("delete layout", slog.Any("error", err))
		Internal(c, "failed to delete layout")
		return
	}

	c.Status(http.StatusNoContent)
}

// PreviewLayout renders the layout against placeholder content and returns
// the HTML the editor embeds. The document is the same card markup the
// print path uses.
func (h *LayoutHandler) PreviewLayout(c *gin.Context) {
	if _, ok := userIDFromContext(c); !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	layout, err := h.store.Get(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, database.ErrLayoutNotFound) {
			NotFound(c, "layout not found")
			return
		}
		h.logger.Error("load layout for preview", slog.Any("error", err))
		Internal(c, "failed to load layout")
		return
	}

	backgroundURL := ""
	if layout.BackgroundImage != "" {
		url, err := h.storage.GeneratePresignedURL(ctx, layout.BackgroundImage, 10*time.Minute)
		if err != nil {
			// A broken background reference degrades to a blank card.
			h.logger.Warn("presign layout background",
				slog.String("layout_id", layout.ID),
				slog.Any("error", err),
			)
		} else {
			backgroundURL = url
		}
	}

	html, err := render.RenderPreview(layout, render.SampleCard(backgroundURL))
	if err != nil {
		h.logger.Error("render layout preview", slog.Any("error", err))
		Internal(c, "failed to render preview")
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

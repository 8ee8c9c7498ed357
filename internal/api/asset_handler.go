package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dutchcoders/go-clamd"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"carteirinha/internal/storage"
)

// Upload categories map to object key prefixes in the bucket.
const (
	photoKeyPrefix      = "member-photos/"
	backgroundKeyPrefix = "backgrounds/"
	generatedKeyPrefix  = "generated-cards/"
)

// AssetHandler serves member photo and card background uploads. Every file
// is virus-scanned before it reaches the bucket.
type AssetHandler struct {
	Storage        *storage.Client
	Logger         *slog.Logger
	ClamdAddr      string
	MaxUploadBytes int64
}

// NewAssetHandler returns an AssetHandler.
func NewAssetHandler(storageClient *storage.Client, logger *slog.Logger, clamdAddr string, maxUploadBytes int64) *AssetHandler {
	return &AssetHandler{
		Storage:        storageClient,
		Logger:         logger,
		ClamdAddr:      clamdAddr,
		MaxUploadBytes: maxUploadBytes,
	}
}

// UploadPhoto stores a member photo.
func (h *AssetHandler) UploadPhoto(c *gin.Context) {
	h.uploadImage(c, photoKeyPrefix)
}

// UploadBackground stores a card background image.
func (h *AssetHandler) UploadBackground(c *gin.Context) {
	h.uploadImage(c, backgroundKeyPrefix)
}

func (h *AssetHandler) uploadImage(c *gin.Context, prefix string) {
	if _, ok := userIDFromContext(c); !ok {
		AbortUnauthorized(c)
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "missing file")
		return
	}

	if h.MaxUploadBytes > 0 && file.Size > h.MaxUploadBytes {
		Error(c, http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	contentType := file.Header.Get("Content-Type")
	if !isAllowedImageContentType(contentType) {
		BadRequest(c, "unsupported image type")
		return
	}

	clamdClient := clamd.NewClamd(h.ClamdAddr)

	fileReader, err := file.Open()
	if err != nil {
		Internal(c, "failed to open file")
		return
	}

	abortChan := make(chan bool)
	scanChan, err := clamdClient.ScanStream(fileReader, abortChan)
	fileReader.Close()
	if err != nil {
		h.Logger.Error("scan file", slog.String("error", err.Error()))
		Internal(c, "failed to scan file")
		return
	}
	defer close(abortChan)

	for result := range scanChan {
		if result.Status != clamd.RES_OK {
			BadRequest(c, "malicious file detected")
			return
		}
	}

	fileReader, err = file.Open()
	if err != nil {
		Internal(c, "failed to reopen file")
		return
	}
	defer fileReader.Close()

	objectKey := fmt.Sprintf("%s%s%s", prefix, uuid.NewString(), extensionForContentType(contentType))
	if _, err := h.Storage.UploadFile(c.Request.Context(), objectKey, fileReader, file.Size, contentType); err != nil {
		h.Logger.Error("upload file", slog.String("error", err.Error()))
		Internal(c, "failed to upload file")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"objectKey": objectKey})
}

// ListBackgrounds lists uploaded background images with preview links.
func (h *AssetHandler) ListBackgrounds(c *gin.Context) {
	if _, ok := userIDFromContext(c); !ok {
		AbortUnauthorized(c)
		return
	}

	limitStr := c.DefaultQuery("limit", "60")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		limit = 60
	}
	if limit > 200 {
		limit = 200
	}

	objects, err := h.Storage.ListObjects(c.Request.Context(), backgroundKeyPrefix, limit)
	if err != nil {
		h.Logger.Error("list backgrounds", slog.String("error", err.Error()))
		Internal(c, "failed to list backgrounds")
		return
	}

	sort.Slice(objects, func(i, j int) bool {
		return objects[i].LastModified.After(objects[j].LastModified)
	})

	items := make([]gin.H, 0, len(objects))
	for _, obj := range objects {
		url, err := h.Storage.GeneratePresignedURL(c.Request.Context(), obj.Key, 10*time.Minute)
		if err != nil {
			h.Logger.Error("generate background url", slog.String("objectKey", obj.Key), slog.String("error", err.Error()))
			continue
		}
		items = append(items, gin.H{
			"objectKey":    obj.Key,
			"previewUrl":   url,
			"size":         obj.Size,
			"lastModified": obj.LastModified,
		})
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

// GetAssetURL returns a temporary presigned URL for a stored image.
func (h *AssetHandler) GetAssetURL(c *gin.Context) {
	if _, ok := userIDFromContext(c); !ok {
		AbortUnauthorized(c)
		return
	}

	objectKey := c.Query("key")
	if objectKey == "" {
		BadRequest(c, "missing key")
		return
	}

	if !isValidStoredImageKey(objectKey) {
		Forbidden(c, "access denied")
		return
	}

	signedURL, err := h.Storage.GeneratePresignedURL(c.Request.Context(), objectKey, 15*time.Minute)
	if err != nil {
		h.Logger.Error("generate presigned url", slog.String("error", err.Error()))
		Internal(c, "failed to generate url")
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": signedURL})
}

func isAllowedImageContentType(contentType string) bool {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "image/png", "image/jpeg", "image/webp":
		return true
	}
	return false
}

func extensionForContentType(contentType string) string {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}

package worker

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"carteirinha/internal/storage"
)

// errObjectMissing marks an image reference whose object no longer exists.
// It is recoverable: the card renders with a placeholder instead.
var errObjectMissing = errors.New("image object missing")

// inlineImage fetches an object and returns it as a data URI so the
// rendered HTML needs no network access inside the headless browser.
// A missing object comes back as errObjectMissing; a missing bucket is a
// system error.
func inlineImage(ctx context.Context, storageClient *storage.Client, objectKey string) (string, error) {
	objectKey = strings.TrimSpace(objectKey)
	if objectKey == "" {
		return "", errObjectMissing
	}

	obj, err := storageClient.GetObject(ctx, objectKey)
	if err != nil {
		if storage.IsNoSuchBucket(err) {
			return "", fmt.Errorf("minio bucket does not exist: %w", err)
		}
		if storage.IsNoSuchKey(err) {
			return "", errObjectMissing
		}
		return "", fmt.Errorf("fetch image %q: %w", objectKey, err)
	}

	stat, statErr := obj.Stat()
	if statErr != nil {
		_ = obj.Close()
		if storage.IsNoSuchBucket(statErr) {
			return "", fmt.Errorf("minio bucket does not exist: %w", statErr)
		}
		if storage.IsNoSuchKey(statErr) {
			return "", errObjectMissing
		}
		return "", fmt.Errorf("stat image %q: %w", objectKey, statErr)
	}

	contentType := "image/png"
	if strings.TrimSpace(stat.ContentType) != "" {
		contentType = stat.ContentType
	}

	imageBytes, readErr := io.ReadAll(obj)
	_ = obj.Close()
	if readErr != nil {
		if storage.IsNoSuchBucket(readErr) {
			return "", fmt.Errorf("minio bucket does not exist: %w", readErr)
		}
		if storage.IsNoSuchKey(readErr) {
			return "", errObjectMissing
		}
		return "", fmt.Errorf("read image %q: %w", objectKey, readErr)
	}

	encoded := base64.StdEncoding.EncodeToString(imageBytes)
	return fmt.Sprintf("data:%s;base64,%s", contentType, encoded), nil
}

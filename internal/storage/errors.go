package storage

import (
	"errors"

	"github.com/minio/minio-go/v7"
)

// IsNoSuchKey reports whether err means the object does not exist.
func IsNoSuchKey(err error) bool {
	if err == nil {
		return false
	}
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		return resp.Code == "NoSuchKey"
	}
	return false
}

// IsNoSuchBucket reports whether err means the bucket does not exist.
func IsNoSuchBucket(err error) bool {
	if err == nil {
		return false
	}
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		return resp.Code == "NoSuchBucket"
	}
	return false
}

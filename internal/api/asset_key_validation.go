package api

import (
	"strings"
	"unicode/utf8"
)

// isValidStoredImageKey accepts only keys under the image prefixes the
// service itself writes, with a sane length and an image extension. It
// keeps presign requests from reaching into generated PDFs or arbitrary
// bucket paths.
func isValidStoredImageKey(key string) bool {
	if key == "" || !utf8.ValidString(key) {
		return false
	}
	if !strings.HasPrefix(key, photoKeyPrefix) && !strings.HasPrefix(key, backgroundKeyPrefix) {
		return false
	}
	if strings.Contains(key, "..") || strings.Contains(key, "\\") || strings.Contains(key, "//") {
		return false
	}
	if len(key) > 200 {
		return false
	}
	lower := strings.ToLower(strings.TrimSpace(key))
	if !(strings.HasSuffix(lower, ".png") || strings.HasSuffix(lower, ".jpg") || strings.HasSuffix(lower, ".jpeg") || strings.HasSuffix(lower, ".webp")) {
		return false
	}
	return true
}

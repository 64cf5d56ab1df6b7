package util

import (
	"strings"
)

// ImageContentType picks the MIME type for an image reference by extension.
// LinkedIn's upload endpoint only sees PNG and JPEG from us; anything else
// defaults to JPEG the way the upload contract expects.
func ImageContentType(path string) string {
	cleaned := strings.ToLower(path)
	if idx := strings.Index(cleaned, "?"); idx != -1 {
		cleaned = cleaned[:idx]
	}
	if strings.HasSuffix(cleaned, ".png") {
		return "image/png"
	}
	return "image/jpeg"
}

// Truncate shortens s to at most n runes for log output.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

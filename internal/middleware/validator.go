package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
)

// Upload validation errors, all reported as 400.
var (
	ErrFileTooLarge = errors.New("file too large")
	ErrNotImage     = errors.New("file is not an image")
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// ValidateImage checks size and sniffs the content type of one uploaded
// file. It returns the detected MIME type.
func ValidateImage(name string, data []byte, maxBytes int64) (string, error) {
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return "", fmt.Errorf("%w: %s exceeds %d MB", ErrFileTooLarge, SanitizeString(name), maxBytes>>20)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: %s is empty", ErrNotImage, SanitizeString(name))
	}
	mime := http.DetectContentType(data)
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	if !allowedImageTypes[mime] {
		return "", fmt.Errorf("%w: %s (%s)", ErrNotImage, SanitizeString(name), mime)
	}
	return mime, nil
}

// IsUploadError reports whether err came from ValidateImage.
func IsUploadError(err error) bool {
	return errors.Is(err, ErrFileTooLarge) || errors.Is(err, ErrNotImage)
}

// SanitizeString removes control characters and any directory part, so a
// client-supplied filename is safe to log and echo.
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' {
			result.WriteRune(r)
		}
	}
	cleaned := strings.TrimSpace(result.String())
	if cleaned == "" {
		return ""
	}
	return filepath.Base(filepath.ToSlash(cleaned))
}

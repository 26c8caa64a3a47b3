// Package upload validates user supplied logo images before they reach the
// generation pipeline.
package upload

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const MaxBytes = 10 << 20

var (
	ErrEmpty           = errors.New("image is empty")
	ErrTooLarge        = fmt.Errorf("image exceeds %d MB", MaxBytes>>20)
	ErrUnsupportedType = errors.New("unsupported image type (use PNG, JPG or WEBP)")
	ErrInvalidDataURL  = errors.New("invalid data url")
)

var accepted = map[string]struct{}{
	"image/png":  {},
	"image/jpeg": {},
	"image/webp": {},
}

// Normalize checks size and resolves the mime type. The declared type wins
// unless it is missing or generic, in which case the bytes are sniffed.
func Normalize(data []byte, declared string) (string, error) {
	if len(data) == 0 {
		return "", ErrEmpty
	}
	if len(data) > MaxBytes {
		return "", ErrTooLarge
	}

	mimeType := baseType(declared)
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = baseType(http.DetectContentType(data))
	}
	if mimeType == "image/jpg" {
		mimeType = "image/jpeg"
	}

	if _, ok := accepted[mimeType]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}
	return mimeType, nil
}

func Accepted(mimeType string) bool {
	_, ok := accepted[baseType(mimeType)]
	return ok
}

// ParseDataURL decodes data:<mime>;base64,<payload>. A bare base64 string is
// accepted too, with an empty mime type left for Normalize to sniff.
func ParseDataURL(value string) ([]byte, string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, "", ErrEmpty
	}

	mimeType := ""
	payload := value
	if strings.HasPrefix(value, "data:") {
		meta, rest, ok := strings.Cut(strings.TrimPrefix(value, "data:"), ",")
		if !ok || !strings.HasSuffix(meta, ";base64") {
			return nil, "", ErrInvalidDataURL
		}
		mimeType = baseType(strings.TrimSuffix(meta, ";base64"))
		payload = rest
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	return data, mimeType, nil
}

// DataURL wraps an already base64 encoded payload.
func DataURL(mimeType, base64Data string) string {
	return "data:" + mimeType + ";base64," + base64Data
}

func baseType(value string) string {
	value = strings.TrimSpace(value)
	if i := strings.IndexByte(value, ';'); i >= 0 {
		value = value[:i]
	}
	return strings.ToLower(strings.TrimSpace(value))
}

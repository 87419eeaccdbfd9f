// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package docx

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// imageExtensions maps declared image content types to asset extensions.
var imageExtensions = map[string]string{
	"image/png":      ".png",
	"image/jpeg":     ".jpg",
	"image/jpg":      ".jpg",
	"image/gif":      ".gif",
	"image/bmp":      ".bmp",
	"image/x-ms-bmp": ".bmp",
	"image/tiff":     ".tiff",
	"image/webp":     ".webp",
	"image/svg+xml":  ".svg",
	"image/x-emf":    ".emf",
	"image/x-wmf":    ".wmf",
}

// extensionFor infers the asset file extension for an embedded image.
// The content type declared by the package wins; unknown or missing types
// are sniffed from the bytes, and .bin is the generic fallback.
func extensionFor(contentType string, data []byte) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if ext, ok := imageExtensions[ct]; ok {
		return ext
	}
	if ext := mimetype.Detect(data).Extension(); ext != "" {
		return ext
	}
	return ".bin"
}

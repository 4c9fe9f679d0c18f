package cli

import (
	"encoding/base64"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// ImageWriter saves generated illustrations next to each other in one directory.
// A nil writer or an empty directory discards them.
type ImageWriter struct {
	directory string
}

func NewImageWriter(directory string) *ImageWriter {
	return &ImageWriter{directory: directory}
}

// Write decodes a data URI into directory/name.<ext> and returns the path
func (w *ImageWriter) Write(name, dataURI string) (string, error) {
	if w == nil || w.directory == "" || dataURI == "" {
		return "", nil
	}
	header, payload, ok := strings.Cut(strings.TrimPrefix(dataURI, "data:"), ",")
	if !ok || !strings.HasSuffix(header, ";base64") {
		return "", fmt.Errorf("not a base64 data URI")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("base64.DecodeString > %w", err)
	}

	extension := extensionOf(strings.TrimSuffix(header, ";base64"))
	if err := os.MkdirAll(w.directory, 0o755); err != nil {
		return "", fmt.Errorf("os.MkdirAll(%s) > %w", w.directory, err)
	}
	path := filepath.Join(w.directory, name+extension)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("os.WriteFile(%s) > %w", path, err)
	}
	return path, nil
}

func extensionOf(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	}
	if extensions, err := mime.ExtensionsByType(mimeType); err == nil && len(extensions) > 0 {
		return extensions[0]
	}
	return ".img"
}

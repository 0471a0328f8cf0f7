package recognizer

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"path/filepath"
	"slices"
	"strings"

	_ "golang.org/x/image/bmp"
)

// DefaultImageExtensions are the file types the service accepts.
var DefaultImageExtensions = []string{".jpg", ".png", ".gif", ".bmp"}

// Image limits enforced by the service.
const (
	MinImageSide  = 36
	MaxImageSide  = 4096
	MinImageBytes = 1 << 10
	MaxImageBytes = 6 << 20
)

// ValidateImageFile checks that path has an allowed image extension and
// points at an existing regular file. It does not read the file.
func (r *Recognizer) ValidateImageFile(path string) error {
	if strings.TrimSpace(path) == "" {
		return ErrInvalidFilePath
	}
	ext := strings.ToLower(filepath.Ext(path))
	if !slices.Contains(r.extensions, ext) {
		return fmt.Errorf("%w: %s: unsupported extension %q", ErrInvalidImage, path, ext)
	}
	info, err := r.tree.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s is not a regular file", ErrInvalidImage, path)
	}
	return nil
}

// checkImage decodes the image header and enforces the service limits.
func checkImage(path string, data []byte) error {
	if len(data) < MinImageBytes || len(data) > MaxImageBytes {
		return fmt.Errorf("%w: %s: size %d bytes outside %d-%d", ErrInvalidImage, path, len(data), MinImageBytes, MaxImageBytes)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidImage, path, err)
	}
	if cfg.Width < MinImageSide || cfg.Height < MinImageSide || cfg.Width > MaxImageSide || cfg.Height > MaxImageSide {
		return fmt.Errorf("%w: %s: %s %dx%d outside %d-%d px", ErrInvalidImage, path, format, cfg.Width, cfg.Height, MinImageSide, MaxImageSide)
	}
	return nil
}

// readImage validates and reads an image file.
func (r *Recognizer) readImage(path string) ([]byte, error) {
	if err := r.ValidateImageFile(path); err != nil {
		return nil, err
	}
	data, err := r.tree.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}
	if err := checkImage(path, data); err != nil {
		return nil, err
	}
	return data, nil
}

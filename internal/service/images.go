package service

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MaxImageSize is the largest accepted product image.
const MaxImageSize = 5 << 20

var allowedImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

var allowedImageTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// ImageFile is an uploaded image as received from a client.
type ImageFile struct {
	Filename string
	Size     int64
	Content  io.ReadSeeker
}

// Ext returns the lowercased file extension including the dot.
func (f *ImageFile) Ext() string {
	return strings.ToLower(filepath.Ext(f.Filename))
}

// ValidateImage checks the extension, the size and the sniffed content type.
// The content is rewound afterwards.
func ValidateImage(img *ImageFile) error {
	if img == nil || img.Content == nil {
		return fieldError("image", "no file provided")
	}

	ext := img.Ext()
	if !allowedImageExtensions[ext] {
		return fieldError("image", "unsupported file extension %q, allowed: .jpg, .jpeg, .png, .gif, .webp", ext)
	}
	if img.Size > MaxImageSize {
		return fieldError("image", "file is %.1f MB, the limit is 5 MB", float64(img.Size)/(1<<20))
	}

	if _, err := img.Content.Seek(0, io.SeekStart); err != nil {
		return fieldError("image", "cannot read file: %v", err)
	}
	mtype, err := mimetype.DetectReader(img.Content)
	if err != nil {
		return fieldError("image", "cannot read file: %v", err)
	}
	if _, err := img.Content.Seek(0, io.SeekStart); err != nil {
		return fieldError("image", "cannot read file: %v", err)
	}

	if !mimetype.EqualsAny(mtype.String(), allowedImageTypes...) {
		return fieldError("image", "content is %s, not a supported image", mtype.String())
	}
	return nil
}

package service

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateImage(t *testing.T) {
	tests := []struct {
		name    string
		img     *ImageFile
		wantErr bool
	}{
		{name: "png", img: pngImage("photo.png")},
		{name: "uppercase extension", img: pngImage("PHOTO.PNG")},
		{name: "jpeg", img: &ImageFile{Filename: "a.jpg", Size: int64(len(jpegBytes)), Content: bytes.NewReader(jpegBytes)}},
		{name: "nil", img: nil, wantErr: true},
		{name: "bad extension", img: pngImage("photo.bmp"), wantErr: true},
		{name: "no extension", img: pngImage("photo"), wantErr: true},
		{name: "too large", img: &ImageFile{Filename: "a.png", Size: MaxImageSize + 1, Content: bytes.NewReader(pngBytes)}, wantErr: true},
		{name: "not an image", img: &ImageFile{Filename: "a.png", Size: 11, Content: bytes.NewReader([]byte("hello world"))}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateImage(tt.img)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidateImageRewindsContent(t *testing.T) {
	img := pngImage("a.png")
	assert.NoError(t, ValidateImage(img))

	pos, err := img.Content.Seek(0, 1)
	assert.NoError(t, err)
	assert.Zero(t, pos)
}

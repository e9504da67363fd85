package forms

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime/multipart"

	_ "golang.org/x/image/webp"
)

// Upload is a file received with a form.
type Upload struct {
	Filename    string
	ContentType string
	Content     []byte

	// Set by ValidateImage.
	Format string
}

// ReadUpload loads a multipart file into memory. At most maxBytes+1 bytes
// are read so ValidateImage can still report an oversized file.
func ReadUpload(fh *multipart.FileHeader, maxBytes int64) (*Upload, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = src.Close() }()

	content, err := io.ReadAll(io.LimitReader(src, maxBytes+1))
	if err != nil {
		return nil, err
	}
	return &Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Content:     content,
	}, nil
}

// ValidateImage checks the upload decodes as GIF, JPEG, PNG or WebP and fits
// in maxBytes. It returns the message to show, or "" when the image is fine.
func (u *Upload) ValidateImage(maxBytes int64) string {
	if len(u.Content) == 0 {
		return MsgEmptyFile
	}
	if maxBytes > 0 && int64(len(u.Content)) > maxBytes {
		return fmt.Sprintf("Ensure the image is at most %d MB.", maxBytes>>20)
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(u.Content))
	if err != nil {
		return MsgInvalidImage
	}
	u.Format = format
	u.ContentType = "image/" + format
	return ""
}

// Extension returns the file extension for the decoded format.
func (u *Upload) Extension() string {
	switch u.Format {
	case "jpeg":
		return ".jpg"
	case "":
		return ""
	default:
		return "." + u.Format
	}
}

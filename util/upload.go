package util

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// MaxUploadSize caps uploaded profile photos.
const MaxUploadSize = 5 << 20

// Upload storage modes.
const (
	UploadModeDisk   = "disk"
	UploadModeInline = "inline"
)

var (
	ErrUploadTooLarge    = errors.New("file exceeds 5 MiB")
	ErrUnsupportedUpload = errors.New("only jpeg, png, gif and webp images are accepted")
	ErrEmptyUpload       = errors.New("file is empty")
)

var allowedImageTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// UploadStore persists uploaded images either on disk, served under
// PublicPrefix, or inline as a base64 data URI.
type UploadStore struct {
	Mode         string
	Dir          string
	PublicPrefix string
}

// SaveFile stores a multipart file and returns the path or data URI to keep.
func (s UploadStore) SaveFile(fh *multipart.FileHeader, owner string) (string, error) {
	if fh.Size > MaxUploadSize {
		return "", ErrUploadTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()
	return s.Save(f, owner)
}

// Save reads at most MaxUploadSize bytes from r, checks the content type by
// sniffing and stores the image.
func (s UploadStore) Save(r io.Reader, owner string) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadSize+1))
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", ErrEmptyUpload
	}
	if len(data) > MaxUploadSize {
		return "", ErrUploadTooLarge
	}

	mt := mimetype.Detect(data)
	if !mimetype.EqualsAny(mt.String(), allowedImageTypes...) {
		return "", ErrUnsupportedUpload
	}

	if s.Mode == UploadModeInline {
		return fmt.Sprintf("data:%s;base64,%s", mt.String(), base64.StdEncoding.EncodeToString(data)), nil
	}

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s-%s%s", owner, uuid.NewString(), mt.Extension())
	if err := os.WriteFile(filepath.Join(s.Dir, name), data, 0o644); err != nil {
		return "", err
	}
	prefix := s.PublicPrefix
	if prefix == "" {
		prefix = "/uploads"
	}
	return prefix + "/" + name, nil
}

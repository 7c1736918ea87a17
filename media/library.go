package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNotFound is returned for an unknown file id.
var ErrNotFound = errors.New("media file not found")

// Index records stored files.
type Index interface {
	MediaExists(filename string) (bool, error)
	SaveMedia(f File) error
	GetMedia(id string) (File, error)
	DeleteMedia(id string) error
	ListMedia(libraryOnly bool) ([]File, error)
}

// Library stores uploads and keeps the index in step with storage.
type Library struct {
	storage Storage
	index   Index
	logger  *zap.Logger
}

// NewLibrary returns a Library over storage and index.
func NewLibrary(storage Storage, index Index, logger *zap.Logger) *Library {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Library{storage: storage, index: index, logger: logger}
}

// UploadOptions are the multipart flags sent with an upload.
type UploadOptions struct {
	AddToLibrary bool
	InUse        bool
}

// Upload processes, stores and indexes an image. The file id is its unique
// filename.
func (l *Library) Upload(ctx context.Context, src io.Reader, originalName string, opts UploadOptions) (File, error) {
	f, data, err := Process(io.LimitReader(src, MaxUploadSize+1), originalName)
	if err != nil {
		return File{}, err
	}
	name, err := l.uniqueFilename(f.Filename)
	if err != nil {
		return File{}, err
	}
	f.Filename = name
	f.ID = name
	f.MediaID = uuid.NewString()
	f.URL = l.storage.URL(name)
	f.InLibrary = opts.AddToLibrary
	f.InUse = opts.InUse

	if err := l.storage.Put(ctx, name, data, "image/jpeg"); err != nil {
		return File{}, err
	}
	if err := l.index.SaveMedia(f); err != nil {
		if derr := l.storage.Delete(ctx, name); derr != nil {
			l.logger.Warn("error removing orphaned upload", zap.String("file", name), zap.Error(derr))
		}
		return File{}, fmt.Errorf("save media: %w", err)
	}
	l.logger.Info("image uploaded",
		zap.String("file", name),
		zap.Int("width", f.Width),
		zap.Int("height", f.Height),
		zap.Int64("size", f.Size))
	return f, nil
}

// uniqueFilename appends a counter until the name is free.
func (l *Library) uniqueFilename(name string) (string, error) {
	base := strings.TrimSuffix(name, ".jpg")
	candidate := name
	for counter := 2; ; counter++ {
		exists, err := l.index.MediaExists(candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d.jpg", base, counter)
	}
}

// Delete removes a file from storage and the index.
func (l *Library) Delete(ctx context.Context, id string) error {
	if _, err := l.index.GetMedia(id); err != nil {
		return err
	}
	if err := l.storage.Delete(ctx, id); err != nil {
		return err
	}
	return l.index.DeleteMedia(id)
}

// List returns the library files, newest first.
func (l *Library) List() ([]File, error) {
	return l.index.ListMedia(true)
}

package media

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type memIndex struct {
	files map[string]File
}

func newMemIndex() *memIndex { return &memIndex{files: map[string]File{}} }

func (m *memIndex) MediaExists(name string) (bool, error) {
	_, ok := m.files[name]
	return ok, nil
}

func (m *memIndex) SaveMedia(f File) error {
	m.files[f.ID] = f
	return nil
}

func (m *memIndex) DeleteMedia(id string) error {
	delete(m.files, id)
	return nil
}

func (m *memIndex) GetMedia(id string) (File, error) {
	f, ok := m.files[id]
	if !ok {
		return File{}, ErrNotFound
	}
	return f, nil
}

func (m *memIndex) ListMedia(libraryOnly bool) ([]File, error) {
	var out []File
	for _, f := range m.files {
		if !libraryOnly || f.InLibrary {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func TestProcessResizesWideImages(t *testing.T) {
	f, data, err := Process(bytes.NewReader(pngBytes(t, 3200, 800)), "Big Photo!.png")
	require.NoError(t, err)
	assert.Equal(t, maxImageWidth, f.Width)
	assert.Equal(t, 400, f.Height)
	assert.Equal(t, "big-photo.jpg", f.Filename)
	assert.Equal(t, int64(len(data)), f.Size)

	_, _, err = Process(strings.NewReader("not an image"), "x.png")
	assert.Error(t, err)
}

func TestProcessKeepsSmallImages(t *testing.T) {
	f, _, err := Process(bytes.NewReader(pngBytes(t, 120, 80)), "..png")
	require.NoError(t, err)
	assert.Equal(t, 120, f.Width)
	assert.Equal(t, 80, f.Height)
	assert.Equal(t, "image.jpg", f.Filename)
}

func TestLibraryUploadAndDelete(t *testing.T) {
	dir := t.TempDir()
	storage, err := NewLocalStorage(dir, "/uploads/")
	require.NoError(t, err)
	idx := newMemIndex()
	lib := NewLibrary(storage, idx, nil)
	ctx := context.Background()

	first, err := lib.Upload(ctx, bytes.NewReader(pngBytes(t, 10, 10)), "photo.png", UploadOptions{AddToLibrary: true, InUse: true})
	require.NoError(t, err)
	assert.Equal(t, "photo.jpg", first.ID)
	assert.Equal(t, "/uploads/photo.jpg", first.URL)
	assert.NotEmpty(t, first.MediaID)
	assert.True(t, first.InUse)

	second, err := lib.Upload(ctx, bytes.NewReader(pngBytes(t, 10, 10)), "photo.png", UploadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "photo-2.jpg", second.ID)

	files, err := lib.List()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "photo.jpg", files[0].ID)

	require.NoError(t, lib.Delete(ctx, "photo.jpg"))
	_, err = os.Stat(filepath.Join(dir, "photo.jpg"))
	assert.True(t, os.IsNotExist(err))
	assert.ErrorIs(t, lib.Delete(ctx, "photo.jpg"), ErrNotFound)
}

func TestLocalStorageRejectsTraversal(t *testing.T) {
	storage, err := NewLocalStorage(t.TempDir(), "/uploads")
	require.NoError(t, err)
	assert.Error(t, storage.Put(context.Background(), "../evil.jpg", []byte("x"), "image/jpeg"))
	assert.NoError(t, storage.Delete(context.Background(), "missing.jpg"))
}

func TestS3StorageURL(t *testing.T) {
	s, err := NewS3Storage(S3Config{Bucket: "assets", Region: "eu-west-2", Prefix: "/blog/"})
	require.NoError(t, err)
	assert.Equal(t, "https://assets.s3.eu-west-2.amazonaws.com/blog/a.jpg", s.URL("a.jpg"))

	s, err = NewS3Storage(S3Config{Bucket: "assets", Endpoint: "http://127.0.0.1:9000", PublicURL: "https://cdn.example.com/", UsePathStyle: true})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/a.jpg", s.URL("a.jpg"))

	_, err = NewS3Storage(S3Config{})
	assert.Error(t, err)
}

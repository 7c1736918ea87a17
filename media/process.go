// Package media stores uploaded images: it re-encodes them, writes them to
// local disk or an S3-compatible bucket, and keeps the library index.
package media

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"golang.org/x/image/draw"
)

const (
	maxImageWidth = 1600
	jpegQuality   = 82

	// MaxUploadSize is the largest accepted upload.
	MaxUploadSize = 10 << 20
)

// File is one stored image.
type File struct {
	ID           string    `json:"_id"`
	MediaID      string    `json:"mediaId"`
	URL          string    `json:"url"`
	Filename     string    `json:"filename"`
	OriginalName string    `json:"originalName"`
	Width        int       `json:"width"`
	Height       int       `json:"height"`
	Size         int64     `json:"size"`
	InLibrary    bool      `json:"inLibrary"`
	InUse        bool      `json:"inUse"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Process decodes an image, scales it down to maxImageWidth when wider and
// re-encodes it as JPEG. The returned File carries the dimensions and a
// slugged filename; ID and URL are set by the Library.
func Process(src io.Reader, originalName string) (File, []byte, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return File{}, nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > maxImageWidth {
		newH := h * maxImageWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, maxImageWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
		w, h = maxImageWidth, newH
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return File{}, nil, fmt.Errorf("encode jpeg: %w", err)
	}

	return File{
		Filename:     slugFilename(originalName) + ".jpg",
		OriginalName: originalName,
		Width:        w,
		Height:       h,
		Size:         int64(buf.Len()),
		CreatedAt:    time.Now().UTC(),
	}, buf.Bytes(), nil
}

var (
	nonSlug   = regexp.MustCompile(`[^a-z0-9]+`)
	dashes    = regexp.MustCompile(`-+`)
	maxSlugLn = 80
)

func slugFilename(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	s := nonSlug.ReplaceAllString(strings.ToLower(base), "-")
	s = strings.Trim(dashes.ReplaceAllString(s, "-"), "-")
	if len(s) > maxSlugLn {
		s = strings.TrimRight(s[:maxSlugLn], "-")
	}
	if s == "" {
		s = "image"
	}
	return s
}

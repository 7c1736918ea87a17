// Package editor implements the post composer workflow: a draft edited over
// three tabs, two image-upload slots, a staged AI generation step and a
// create-or-update submission.
//
// The package talks to the content service only through the small
// interfaces declared here, so the same Form can be driven by HTTP handlers
// and by tests.
package editor

import (
	"errors"
	"regexp"
	"strings"

	"github.com/eringen/pressroom/richtext"
)

// Status is the publication state of a draft.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// ParseStatus maps form input to a Status, defaulting to draft.
func ParseStatus(s string) Status {
	if Status(strings.TrimSpace(s)) == StatusPublished {
		return StatusPublished
	}
	return StatusDraft
}

// DefaultRobots is the robots directive of a new draft.
const DefaultRobots = "index, follow"

// Image is a reference to an uploaded or library-sourced image.
type Image struct {
	ID               string `json:"_id"`
	URL              string `json:"url"`
	FromMediaLibrary bool   `json:"fromMediaLibrary"`
	MediaID          string `json:"mediaId,omitempty"`
}

// Owned reports whether removing the image should delete the file: only
// direct uploads are owned by the draft.
func (img *Image) Owned() bool {
	return img != nil && img.ID != "" && !img.FromMediaLibrary
}

// Category is a blog category offered in the composer.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
}

// Draft is the post being edited. Its JSON form is the create/update body.
type Draft struct {
	ID              string `json:"id,omitempty"`
	Title           string `json:"title"`
	Slug            string `json:"slug"`
	Excerpt         string `json:"excerpt"`
	CategoryID      string `json:"categoryId"`
	Status          Status `json:"status"`
	Content         string `json:"content"`
	FeaturedImage   *Image `json:"featuredImage"`
	OGImage         *Image `json:"ogImage"`
	MetaTitle       string `json:"metaTitle"`
	MetaDescription string `json:"metaDescription"`
	MetaKeywords    string `json:"metaKeywords"`
	CanonicalURL    string `json:"canonicalUrl"`
	Robots          string `json:"robots"`
	IsIndexing      bool   `json:"isIndexing"`
}

// NewDraft returns the defaults of an empty composer.
func NewDraft() Draft {
	return Draft{
		Status:     StatusDraft,
		Robots:     DefaultRobots,
		IsIndexing: true,
	}
}

// ErrEmptyContent rejects a submission whose body is empty.
var ErrEmptyContent = errors.New("content cannot be empty")

// ValidateContent rejects the empty string and the editor's empty
// paragraph.
func ValidateContent(content string) error {
	if richtext.IsEmpty(content) {
		return ErrEmptyContent
	}
	return nil
}

// spaceClass matches what browsers treat as whitespace, including the
// vertical tab and Unicode space separators.
const spaceClass = `\s\v\p{Zs}\x{2028}\x{2029}\x{FEFF}`

var (
	nonWord    = regexp.MustCompile(`[^\w` + spaceClass + `]`)
	whitespace = regexp.MustCompile(`[` + spaceClass + `]+`)
)

// DeriveSlug builds a slug from a title: lowercase, non-word characters
// removed, whitespace runs replaced by a hyphen. Hyphens never survive the
// first step, so trimming them drops only surrounding whitespace.
func DeriveSlug(title string) string {
	s := nonWord.ReplaceAllString(strings.ToLower(title), "")
	s = whitespace.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

package editor

import (
	"context"
	"errors"
	"strings"

	"github.com/eringen/pressroom/metrics"
)

// InsertMode selects how generated text is merged into the draft content.
// It doubles as the contentType sent with the generation request.
type InsertMode string

const (
	ModeFull       InsertMode = "full"
	ModeIntro      InsertMode = "intro"
	ModeConclusion InsertMode = "conclusion"
	ModeSection    InsertMode = "section"
)

// Modes lists the insertion modes in display order.
var Modes = []InsertMode{ModeFull, ModeIntro, ModeSection, ModeConclusion}

// Label is the human name of the mode.
func (m InsertMode) Label() string {
	switch m {
	case ModeIntro:
		return "Introduction"
	case ModeSection:
		return "Blog Section"
	case ModeConclusion:
		return "Conclusion"
	}
	return "Full Blog Post"
}

// ParseInsertMode maps form input to a mode, defaulting to full.
func ParseInsertMode(s string) InsertMode {
	switch InsertMode(s) {
	case ModeIntro, ModeConclusion, ModeSection:
		return InsertMode(s)
	}
	return ModeFull
}

// Tones offered for generation. The first is the default.
var Tones = []string{"professional", "conversational", "authoritative", "friendly", "educational"}

// DefaultTone is used when the form posts no tone.
const DefaultTone = "professional"

// GenerationRequest is the body of a content generation call.
type GenerationRequest struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	Keywords        string `json:"keywords"`
	Category        string `json:"category"`
	ContentType     string `json:"contentType"`
	Tone            string `json:"tone"`
	CustomPrompt    string `json:"customPrompt,omitempty"`
	ExistingContent string `json:"existingContent"`
}

// GenerationResponse is the result of a content generation call.
type GenerationResponse struct {
	GeneratedContent string `json:"generatedContent"`
}

// Generator produces post content.
type Generator interface {
	GenerateContent(ctx context.Context, req GenerationRequest) (GenerationResponse, error)
}

// Generated is a staged result awaiting apply or discard.
type Generated struct {
	Content string
	Mode    InsertMode
}

var (
	ErrNoContentGenerated = errors.New("no content generated")
	ErrTitleRequired      = errors.New("title is required to generate content")
	ErrGenerating         = errors.New("generation already in progress")
)

// Merge combines existing content with generated text according to mode.
func Merge(existing, generated string, mode InsertMode) string {
	switch mode {
	case ModeIntro:
		return generated + existing
	case ModeConclusion:
		return existing + generated
	case ModeSection:
		return existing + "\n\n" + generated
	}
	return generated
}

// Request builds the generation request for the current draft.
func (f *Form) Request(mode InsertMode, tone, customPrompt string) GenerationRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requestLocked(mode, tone, customPrompt)
}

func (f *Form) requestLocked(mode InsertMode, tone, customPrompt string) GenerationRequest {
	d := f.draft
	desc := d.Excerpt
	if desc == "" {
		desc = d.MetaDescription
	}
	if tone == "" {
		tone = DefaultTone
	}
	return GenerationRequest{
		Title:           d.Title,
		Description:     desc,
		Keywords:        d.MetaKeywords,
		Category:        categoryName(f.categories, d.CategoryID),
		ContentType:     string(mode),
		Tone:            tone,
		CustomPrompt:    strings.TrimSpace(customPrompt),
		ExistingContent: d.Content,
	}
}

// Generate requests content for the draft and stages it. The draft content
// is not modified until ApplyGenerated.
func (f *Form) Generate(ctx context.Context, gen Generator, mode InsertMode, tone, customPrompt string) (Generated, error) {
	f.mu.Lock()
	if f.generating {
		f.mu.Unlock()
		return Generated{}, ErrGenerating
	}
	if strings.TrimSpace(f.draft.Title) == "" {
		f.mu.Unlock()
		return Generated{}, ErrTitleRequired
	}
	req := f.requestLocked(mode, tone, customPrompt)
	f.generating = true
	f.pending = nil
	f.mu.Unlock()

	resp, err := gen.GenerateContent(ctx, req)
	if err == nil && resp.GeneratedContent == "" {
		err = ErrNoContentGenerated
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.generating = false
	if err != nil {
		f.status = msgGenFailPrefix + generationMessage(err)
		metrics.Generations.WithLabelValues(string(mode), "error").Inc()
		return Generated{}, err
	}
	g := Generated{Content: resp.GeneratedContent, Mode: mode}
	f.pending = &g
	metrics.Generations.WithLabelValues(string(mode), "ok").Inc()
	return g, nil
}

func generationMessage(err error) string {
	if errors.Is(err, ErrNoContentGenerated) {
		return msgNoContent
	}
	if msg := serverMessage(err); msg != "" {
		return msg
	}
	return err.Error()
}

// ApplyGenerated merges the staged result into the content and clears it.
// It reports false when nothing was staged.
func (f *Form) ApplyGenerated() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending == nil {
		return false
	}
	f.draft.Content = Merge(f.draft.Content, f.pending.Content, f.pending.Mode)
	f.pending = nil
	return true
}

// DiscardGenerated drops the staged result.
func (f *Form) DiscardGenerated() {
	f.mu.Lock()
	f.pending = nil
	f.mu.Unlock()
}

package generate

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/pressroom/editor"
)

type fakeProvider struct {
	answer string
	err    error
	system string
	prompt string
}

func (p *fakeProvider) Complete(_ context.Context, system, prompt string) (string, error) {
	p.system, p.prompt = system, prompt
	return p.answer, p.err
}

func TestBuildPrompt(t *testing.T) {
	_, prompt := BuildPrompt(editor.GenerationRequest{
		Title:           "Cold room maintenance",
		Description:     "Keeping cold rooms efficient",
		Keywords:        "cold room, maintenance",
		Category:        "Refrigeration",
		ContentType:     "section",
		Tone:            "friendly",
		CustomPrompt:    "mention seals",
		ExistingContent: "<p>Intro</p>",
	})
	for _, want := range []string{
		"TITLE: Cold room maintenance",
		"DESCRIPTION: Keeping cold rooms efficient",
		"KEYWORDS: cold room, maintenance",
		"CATEGORY: Refrigeration",
		"TONE: friendly",
		"ADDITIONAL INSTRUCTIONS: mention seals",
		"<p>Intro</p>",
		"one new section",
	} {
		assert.Contains(t, prompt, want)
	}
}

func TestBuildPromptFullOmitsExisting(t *testing.T) {
	_, prompt := BuildPrompt(editor.GenerationRequest{Title: "T", ContentType: "full", ExistingContent: "<p>old</p>"})
	assert.NotContains(t, prompt, "<p>old</p>")
	assert.Contains(t, prompt, "TONE: professional")
}

func TestGenerateContentNormalises(t *testing.T) {
	p := &fakeProvider{answer: "```html\n<h2>Why</h2><p>Because<script>x</script></p>\n```"}
	s := New(p)

	resp, err := s.GenerateContent(context.Background(), editor.GenerationRequest{Title: "T", ContentType: "full"})
	require.NoError(t, err)
	assert.Equal(t, "<h2>Why</h2><p>Because</p>", resp.GeneratedContent)
	assert.Equal(t, systemPrompt, p.system)
}

func TestGenerateContentMarkdown(t *testing.T) {
	s := New(&fakeProvider{answer: "## Heading\n\nSome *text*."})
	resp, err := s.GenerateContent(context.Background(), editor.GenerationRequest{Title: "T"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(resp.GeneratedContent, "<h2"))
	assert.Contains(t, resp.GeneratedContent, "<em>text</em>")
}

func TestGenerateContentEmpty(t *testing.T) {
	s := New(&fakeProvider{answer: "   "})
	_, err := s.GenerateContent(context.Background(), editor.GenerationRequest{Title: "T"})
	assert.ErrorIs(t, err, editor.ErrNoContentGenerated)
}

func TestGenerateContentProviderError(t *testing.T) {
	s := New(&fakeProvider{err: errors.New("quota exceeded")})
	_, err := s.GenerateContent(context.Background(), editor.GenerationRequest{Title: "T"})
	assert.EqualError(t, err, "quota exceeded")
}

func TestGenerateContentRateLimited(t *testing.T) {
	s := New(&fakeProvider{answer: "<p>x</p>"}, WithRateLimit(1, time.Hour))
	_, err := s.GenerateContent(context.Background(), editor.GenerationRequest{Title: "T"})
	require.NoError(t, err)
	_, err = s.GenerateContent(context.Background(), editor.GenerationRequest{Title: "T"})
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestNewProvider(t *testing.T) {
	_, err := NewProvider(Config{Provider: "openai"})
	assert.ErrorIs(t, err, ErrNotConfigured)

	p, err := NewProvider(Config{Provider: "OpenAI", APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &openAIProvider{}, p)

	p, err = NewProvider(Config{Provider: "anthropic", APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &anthropicProvider{}, p)

	_, err = NewProvider(Config{Provider: "mystery", APIKey: "k"})
	assert.Error(t, err)

	var nilSvc *Service
	_, err = nilSvc.GenerateContent(context.Background(), editor.GenerationRequest{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

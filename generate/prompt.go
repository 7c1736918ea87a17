package generate

import (
	"fmt"
	"strings"

	"github.com/eringen/pressroom/editor"
)

const systemPrompt = `You are an experienced content writer for a company website blog.
Write in British English. Return clean HTML only, using <h2>, <h3>, <p>, <ul>, <ol>, <li>, <strong> and <em>.
Do not include <html>, <head>, <body> or a top-level <h1>. Do not wrap the answer in code fences.`

// maxExistingRunes bounds the existing content echoed back to the model.
const maxExistingRunes = 6000

var modeInstructions = map[editor.InsertMode]string{
	editor.ModeFull:       "Write a complete blog post of 800 to 1200 words with an introduction, several sections with subheadings and a conclusion.",
	editor.ModeIntro:      "Write an engaging introduction of two or three paragraphs that leads into the existing content.",
	editor.ModeSection:    "Write one new section with an <h2> subheading that fits after the existing content without repeating it.",
	editor.ModeConclusion: "Write a conclusion of one or two paragraphs that summarises the existing content and ends with a call to action.",
}

// BuildPrompt returns the system and user prompts for req.
func BuildPrompt(req editor.GenerationRequest) (system, prompt string) {
	mode := editor.ParseInsertMode(req.ContentType)
	tone := req.Tone
	if tone == "" {
		tone = editor.DefaultTone
	}

	var b strings.Builder
	fmt.Fprintf(&b, "TASK: %s\n", modeInstructions[mode])
	fmt.Fprintf(&b, "TONE: %s\n", tone)
	fmt.Fprintf(&b, "TITLE: %s\n", req.Title)
	if req.Description != "" {
		fmt.Fprintf(&b, "DESCRIPTION: %s\n", req.Description)
	}
	if req.Keywords != "" {
		fmt.Fprintf(&b, "KEYWORDS: %s\n", req.Keywords)
	}
	if req.Category != "" {
		fmt.Fprintf(&b, "CATEGORY: %s\n", req.Category)
	}
	if req.CustomPrompt != "" {
		fmt.Fprintf(&b, "ADDITIONAL INSTRUCTIONS: %s\n", req.CustomPrompt)
	}
	if existing := strings.TrimSpace(req.ExistingContent); existing != "" && mode != editor.ModeFull {
		fmt.Fprintf(&b, "\n<<<EXISTING\n%s\nEXISTING\n", truncateRunes(existing, maxExistingRunes))
	}
	return systemPrompt, b.String()
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

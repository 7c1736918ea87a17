package editor

import (
	"context"
	"errors"
	"strings"
)

// Saver persists drafts.
type Saver interface {
	CreateBlog(ctx context.Context, d Draft) (Draft, error)
	UpdateBlog(ctx context.Context, id string, d Draft) (Draft, error)
}

// ErrSubmitting refuses a second submission while one is running.
var ErrSubmitting = errors.New("submission already in progress")

// SubmitResult reports a successful save.
type SubmitResult struct {
	Draft   Draft
	Created bool
	Message string
}

// Submit validates the draft and saves it. Empty content is rejected before
// saver is called. A missing slug is derived from the title. Drafts with an
// id are updated, others created.
func (f *Form) Submit(ctx context.Context, saver Saver) (SubmitResult, error) {
	f.mu.Lock()
	if f.submitting {
		f.mu.Unlock()
		return SubmitResult{}, ErrSubmitting
	}
	if err := ValidateContent(f.draft.Content); err != nil {
		f.status = msgEmptyContent
		f.mu.Unlock()
		return SubmitResult{}, err
	}
	if strings.TrimSpace(f.draft.Slug) == "" && strings.TrimSpace(f.draft.Title) != "" {
		f.draft.Slug = DeriveSlug(f.draft.Title)
	}
	d := f.draft
	d.FeaturedImage = cloneImage(f.draft.FeaturedImage)
	d.OGImage = cloneImage(f.draft.OGImage)
	f.submitting = true
	f.status = msgSaving
	f.mu.Unlock()

	var (
		saved Draft
		err   error
	)
	created := d.ID == ""
	if created {
		saved, err = saver.CreateBlog(ctx, d)
	} else {
		saved, err = saver.UpdateBlog(ctx, d.ID, d)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitting = false
	if err != nil {
		msg := serverMessage(err)
		if msg == "" {
			msg = err.Error()
		}
		f.status = "Error: " + msg
		return SubmitResult{}, err
	}
	if saved.ID != "" {
		f.draft.ID = saved.ID
		f.editing = true
	}
	res := SubmitResult{Draft: saved, Created: created, Message: msgUpdated}
	if created {
		res.Message = msgCreated
	}
	f.status = res.Message
	return res, nil
}

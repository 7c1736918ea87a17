package editor

import (
	"context"
	"errors"
	"io"

	"go.uber.org/zap"

	"github.com/eringen/pressroom/metrics"
)

// Slot names an image field of the draft.
type Slot string

const (
	SlotFeatured Slot = "featured-image"
	SlotOG       Slot = "og-image"
)

// ParseSlot validates a slot name from a route.
func ParseSlot(s string) (Slot, bool) {
	switch Slot(s) {
	case SlotFeatured, SlotOG:
		return Slot(s), true
	}
	return "", false
}

// SlotState is the per-slot upload indicator.
type SlotState struct {
	Loading bool
	Err     string
}

var (
	// ErrUploadInFlight refuses a second upload into a busy slot.
	ErrUploadInFlight = errors.New("upload already in progress")
	// ErrUploadSuperseded reports an upload whose slot changed before it
	// finished.
	ErrUploadSuperseded = errors.New("image slot changed during upload")
)

// Upload is one file handed to the media service.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// MediaService stores and deletes uploaded files.
type MediaService interface {
	UploadFile(ctx context.Context, up Upload) (Image, error)
	DeleteFile(ctx context.Context, id string) error
}

func (d *Draft) image(slot Slot) *Image {
	if slot == SlotOG {
		return d.OGImage
	}
	return d.FeaturedImage
}

func (d *Draft) setImage(slot Slot, img *Image) {
	if slot == SlotOG {
		d.OGImage = img
		return
	}
	d.FeaturedImage = img
}

// Upload sends a file for slot and stores the resulting reference in the
// draft. The form lock is not held during the network call; the slot's
// loading flag keeps a second upload out. If the slot is reassigned or
// cleared while the call runs, the result is dropped and the file that was
// just stored is deleted again.
func (f *Form) Upload(ctx context.Context, svc MediaService, slot Slot, up Upload) (Image, error) {
	f.mu.Lock()
	if f.slots[slot].Loading {
		f.mu.Unlock()
		return Image{}, ErrUploadInFlight
	}
	f.slots[slot] = SlotState{Loading: true}
	f.seq[slot]++
	seq := f.seq[slot]
	f.mu.Unlock()

	img, err := svc.UploadFile(ctx, up)

	f.mu.Lock()
	if f.seq[slot] != seq {
		f.slots[slot] = SlotState{}
		f.mu.Unlock()
		if err == nil && img.Owned() {
			f.deleteImage(ctx, svc, slot, img.ID)
		}
		metrics.Uploads.WithLabelValues(string(slot), "superseded").Inc()
		return Image{}, ErrUploadSuperseded
	}
	defer f.mu.Unlock()
	if err != nil {
		msg := serverMessage(err)
		if msg == "" {
			msg = msgUploadFailed
		}
		f.slots[slot] = SlotState{Err: msg}
		metrics.Uploads.WithLabelValues(string(slot), "error").Inc()
		return Image{}, err
	}
	f.slots[slot] = SlotState{}
	f.draft.setImage(slot, &img)
	metrics.Uploads.WithLabelValues(string(slot), "ok").Inc()
	return img, nil
}

// resetSlot clears the slot's error and invalidates a running upload. The
// loading flag survives until that upload returns.
func (f *Form) resetSlot(slot Slot) {
	f.slots[slot] = SlotState{Loading: f.slots[slot].Loading}
	f.seq[slot]++
}

// SelectFromLibrary assigns an existing library image to slot. No network
// call is made.
func (f *Form) SelectFromLibrary(slot Slot, img Image) {
	img.FromMediaLibrary = true
	f.mu.Lock()
	f.resetSlot(slot)
	f.draft.setImage(slot, &img)
	f.mu.Unlock()
}

// Remove clears slot. A directly uploaded image is also deleted from the
// media service; a delete failure is logged and otherwise ignored.
func (f *Form) Remove(ctx context.Context, svc MediaService, slot Slot) {
	f.mu.Lock()
	img := cloneImage(f.draft.image(slot))
	f.draft.setImage(slot, nil)
	f.resetSlot(slot)
	f.mu.Unlock()

	if !img.Owned() || svc == nil {
		return
	}
	f.deleteImage(ctx, svc, slot, img.ID)
}

func (f *Form) deleteImage(ctx context.Context, svc MediaService, slot Slot, id string) {
	if err := svc.DeleteFile(ctx, id); err != nil {
		f.logger.Warn("error deleting image",
			zap.String("slot", string(slot)),
			zap.String("id", id),
			zap.Error(err))
	}
}

package editor

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Workspace holds the open composers, keyed by a random id. Forms untouched
// for longer than the idle timeout are dropped.
type Workspace struct {
	mu    sync.Mutex
	forms map[string]*entry
	idle  time.Duration
	stop  chan struct{}
	once  sync.Once
}

type entry struct {
	form *Form
	seen time.Time
}

// DefaultIdle is the idle timeout used when none is given.
const DefaultIdle = 2 * time.Hour

// NewWorkspace creates a Workspace and starts its cleanup loop.
func NewWorkspace(idle time.Duration) *Workspace {
	if idle <= 0 {
		idle = DefaultIdle
	}
	w := &Workspace{
		forms: make(map[string]*entry),
		idle:  idle,
		stop:  make(chan struct{}),
	}
	go w.cleanup()
	return w
}

func (w *Workspace) cleanup() {
	ticker := time.NewTicker(w.idle)
	defer ticker.Stop()
	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			w.expire(time.Now().Add(-w.idle))
		}
	}
}

func (w *Workspace) expire(cutoff time.Time) {
	w.mu.Lock()
	for id, e := range w.forms {
		if e.seen.Before(cutoff) {
			delete(w.forms, id)
		}
	}
	w.mu.Unlock()
}

// Open registers f and returns its id.
func (w *Workspace) Open(f *Form) string {
	id := uuid.NewString()
	w.mu.Lock()
	w.forms[id] = &entry{form: f, seen: time.Now()}
	w.mu.Unlock()
	return id
}

// Get returns the form for id and refreshes its idle timer.
func (w *Workspace) Get(id string) (*Form, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, ok := w.forms[id]
	if !ok {
		return nil, false
	}
	e.seen = time.Now()
	return e.form, true
}

// Close forgets the form for id.
func (w *Workspace) Close(id string) {
	w.mu.Lock()
	delete(w.forms, id)
	w.mu.Unlock()
}

// Len reports the number of open forms.
func (w *Workspace) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.forms)
}

// Stop ends the cleanup loop.
func (w *Workspace) Stop() {
	w.once.Do(func() { close(w.stop) })
}

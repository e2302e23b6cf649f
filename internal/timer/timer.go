// Package timer wraps time.AfterFunc with the re-armable one-shot
// sentinel-handle idiom spec.md's DESIGN NOTES (section 9) calls out:
// an entity carries at most one active timer per purpose, and
// re-arming always cancels the previous handle first.
package timer

import (
	"sync"
	"time"
)

// Handle is a one-shot, re-armable timer. The zero value is an
// inactive handle. Arm, Stop and Active all take the handle's mutex,
// so they are safe to call from several goroutines; in the S1AP/ESM
// task model (spec.md section 5) each handle has a single owning task.
type Handle struct {
	mu     sync.Mutex
	timer  *time.Timer
	active bool
}

// Arm starts the timer, cancelling any previously armed timer first.
// fn runs on its own goroutine, as time.AfterFunc does.
func (h *Handle) Arm(d time.Duration, fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.timer != nil {
		h.timer.Stop()
	}
	h.timer = time.AfterFunc(d, fn)
	h.active = true
}

// Stop cancels the timer if armed. Safe to call on an inactive handle.
func (h *Handle) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.timer != nil {
		h.timer.Stop()
	}
	h.active = false
}

// Active reports whether the timer is currently armed. It is best
// effort: a timer whose callback has already fired but not yet
// cleared the handle via Stop still reports active.
func (h *Handle) Active() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active
}

// Package layout handles column geometry in the board view: drag-resizing
// with edge auto-scroll, and committing width and order changes.
package layout

import (
	"sync"
	"time"

	"tablero/internal/model"
	"tablero/internal/timer"
)

const (
	EdgeThreshold  = 50
	ScrollSpeed    = 10
	ScrollInterval = 16 * time.Millisecond
	MinWidth       = 100

	// widths at or below this are treated as unset
	minStoredWidth = 30
)

// Options tunes a resize session. Zero values take the package defaults.
type Options struct {
	Clock         timer.Clock
	Viewport      int
	EdgeThreshold int
	ScrollSpeed   int
	Interval      time.Duration
	// MinWidth is the content width the column cannot shrink below.
	MinWidth int
}

// Resizer is one column's drag-resize session. Scroll is called with a
// signed step on each auto-scroll tick, from the clock's goroutine.
type Resizer struct {
	columnID string
	scroll   func(dx int)
	opts     Options

	mu         sync.Mutex
	base       int
	start      int
	width      int
	dragging   bool
	dir        int
	autoscroll timer.Stopper
}

func NewResizer(col model.Column, scroll func(dx int), opts Options) *Resizer {
	if opts.Clock == nil {
		opts.Clock = timer.Real{}
	}
	if opts.EdgeThreshold <= 0 {
		opts.EdgeThreshold = EdgeThreshold
	}
	if opts.ScrollSpeed <= 0 {
		opts.ScrollSpeed = ScrollSpeed
	}
	if opts.Interval <= 0 {
		opts.Interval = ScrollInterval
	}
	if opts.MinWidth <= 0 {
		opts.MinWidth = MinWidth
	}
	width := EffectiveWidth(col.ColumnWidth)
	if scroll == nil {
		scroll = func(int) {}
	}
	return &Resizer{columnID: col.ID, scroll: scroll, opts: opts, base: width, width: width}
}

// EffectiveWidth is the width a column renders at. Stored widths at or
// below 30 are unset and render at the default.
func EffectiveWidth(stored int) int {
	if stored <= minStoredWidth {
		return model.DefaultColumnWidth
	}
	return stored
}

func (r *Resizer) ColumnID() string { return r.columnID }

// Width is the current (possibly in-progress) width.
func (r *Resizer) Width() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width
}

func (r *Resizer) Dragging() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dragging
}

// Scrolling is -1 or 1 while auto-scroll runs, 0 otherwise.
func (r *Resizer) Scrolling() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dir
}

// Start begins a drag at cursor x.
func (r *Resizer) Start(x int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.start = x
	r.dragging = true
}

// Drag moves the cursor to x and returns the new width.
func (r *Resizer) Drag(x int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.dragging {
		return r.width
	}
	w := r.base + (x - r.start)
	if w < r.opts.MinWidth {
		w = r.opts.MinWidth
	}
	r.width = w
	r.autoScrollLocked(x)
	return w
}

// Stop ends the drag. The final width becomes the base of the next drag.
func (r *Resizer) Stop() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dragging = false
	r.base = r.width
	r.stopScrollLocked()
	return r.width
}

// Close tears down any running auto-scroll without committing.
func (r *Resizer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dragging = false
	r.stopScrollLocked()
}

func (r *Resizer) autoScrollLocked(x int) {
	dir := 0
	switch {
	case r.opts.Viewport > 0 && x > r.opts.Viewport-r.opts.EdgeThreshold:
		dir = 1
	case x < r.opts.EdgeThreshold:
		dir = -1
	}
	if dir == r.dir {
		return
	}
	r.stopScrollLocked()
	if dir == 0 {
		return
	}
	r.dir = dir
	step := dir * r.opts.ScrollSpeed
	r.autoscroll = r.opts.Clock.Every(r.opts.Interval, func() { r.scroll(step) })
}

func (r *Resizer) stopScrollLocked() {
	if r.autoscroll != nil {
		r.autoscroll.Stop()
		r.autoscroll = nil
	}
	r.dir = 0
}

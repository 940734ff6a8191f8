// Package window provides the window backends the engine loop polls for
// input and resize events.
package window

import (
	"github.com/vortexengine/vortex/internal/core/event"
)

// Backend is a window the engine presents into. PollEvents must be called
// from the main loop; it delivers queued events to the registered callback.
type Backend interface {
	Open() error
	Close()
	PollEvents()
	SetEventCallback(fn event.EventCallbackFn)
	SetTitle(title string)
	SetResolution(width, height int)
	SetCursorVisible(visible bool)
	Size() (width, height int)
	ShouldClose() bool
	// Present shows the finished frame. status is a one-line summary that
	// text backends print; others may ignore it.
	Present(status string)
}

// Headless is a window without a display. Events are queued with Inject and
// delivered on the next PollEvents.
type Headless struct {
	title    string
	width    int
	height   int
	cursor   bool
	open     bool
	closing  bool
	callback event.EventCallbackFn
	pending  []event.Event
	status   string
	frames   int
}

// NewHeadless creates a headless window of the given size.
func NewHeadless(title string, width, height int) *Headless {
	return &Headless{title: title, width: width, height: height}
}

func (h *Headless) Open() error {
	h.open = true
	h.closing = false
	return nil
}

func (h *Headless) Close() { h.open = false }

// Inject queues e for the next PollEvents.
func (h *Headless) Inject(e event.Event) { h.pending = append(h.pending, e) }

func (h *Headless) PollEvents() {
	pending := h.pending
	h.pending = nil
	for _, e := range pending {
		if _, ok := e.(event.WindowClosed); ok {
			h.closing = true
		}
		if r, ok := e.(event.WindowResized); ok {
			h.width, h.height = r.Width, r.Height
		}
		if h.callback != nil {
			h.callback(e)
		}
	}
}

func (h *Headless) SetEventCallback(fn event.EventCallbackFn) { h.callback = fn }

func (h *Headless) SetTitle(title string) { h.title = title }

// Title returns the current title.
func (h *Headless) Title() string { return h.title }

// SetResolution resizes the window and queues the matching WindowResized event.
func (h *Headless) SetResolution(width, height int) {
	if width == h.width && height == h.height {
		return
	}
	h.Inject(event.WindowResized{Width: width, Height: height})
}

func (h *Headless) SetCursorVisible(visible bool) { h.cursor = visible }

func (h *Headless) Size() (int, int) { return h.width, h.height }

func (h *Headless) ShouldClose() bool { return h.closing || !h.open }

func (h *Headless) Present(status string) {
	h.status = status
	h.frames++
}

// Status returns the last presented status line and the number of presents.
func (h *Headless) Status() (string, int) { return h.status, h.frames }

package event

// Event is the tagged union delivered by window backends. The concrete types
// below are the only members.
type Event interface {
	isEvent()
}

// EventCallbackFn receives events from a window backend.
type EventCallbackFn func(Event)

// WindowResized reports the new framebuffer size in pixels (cells for terminal windows).
type WindowResized struct {
	Width  int
	Height int
}

// WindowClosed is posted when the user asks the window to close.
type WindowClosed struct{}

// KeyPressed carries a key press. Rune is 0 for non-character keys.
type KeyPressed struct {
	Key  Key
	Rune rune
	Ctrl bool
}

// MouseMoved reports the cursor position in window coordinates.
type MouseMoved struct {
	X, Y int
}

// FocusChanged reports the window gaining or losing input focus.
type FocusChanged struct {
	Focused bool
}

func (WindowResized) isEvent() {}
func (WindowClosed) isEvent()  {}
func (KeyPressed) isEvent()    {}
func (MouseMoved) isEvent()    {}
func (FocusChanged) isEvent()  {}

// Key identifies a non-character key.
type Key int

const (
	KeyRune Key = iota
	KeyEscape
	KeyEnter
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeySpace
)

func (k Key) String() string {
	switch k {
	case KeyRune:
		return "rune"
	case KeyEscape:
		return "escape"
	case KeyEnter:
		return "enter"
	case KeyUp:
		return "up"
	case KeyDown:
		return "down"
	case KeyLeft:
		return "left"
	case KeyRight:
		return "right"
	case KeySpace:
		return "space"
	}
	return "unknown"
}

package window

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"

	"github.com/vortexengine/vortex/internal/core/event"
)

// Terminal is a window drawn in a terminal with tcell. Sizes are in cells.
// A goroutine blocks in PollEvent and hands events to the main loop through
// a buffered channel.
type Terminal struct {
	screen   tcell.Screen
	log      *zap.Logger
	title    string
	events   chan tcell.Event
	done     chan struct{} // closed by Close
	stopped  chan struct{} // closed when the event goroutine exits
	callback event.EventCallbackFn
	closing  bool
	open     bool
	lines    []string
}

// NewTerminal wraps screen; nil opens the real terminal on Open.
func NewTerminal(screen tcell.Screen, title string, log *zap.Logger) *Terminal {
	return &Terminal{
		screen: screen,
		log:    log,
		title:  title,
		events: make(chan tcell.Event, 100),
	}
}

func (t *Terminal) Open() error {
	if t.screen == nil {
		s, err := tcell.NewScreen()
		if err != nil {
			return fmt.Errorf("create screen: %w", err)
		}
		t.screen = s
	}
	if err := t.screen.Init(); err != nil {
		return fmt.Errorf("init screen: %w", err)
	}
	t.screen.EnableMouse(tcell.MouseMotionEvents)
	t.screen.EnableFocus()
	t.screen.HideCursor()
	t.screen.SetTitle(t.title)
	t.screen.Clear()
	t.open = true

	screen, events := t.screen, t.events
	done, stopped := make(chan struct{}), make(chan struct{})
	t.done, t.stopped = done, stopped
	go func() {
		defer close(stopped)
		for {
			ev := screen.PollEvent()
			if ev == nil {
				close(events)
				return
			}
			select {
			case events <- ev:
			case <-done:
				return
			}
		}
	}()
	return nil
}

func (t *Terminal) Close() {
	if !t.open {
		return
	}
	t.open = false
	close(t.done)
	t.screen.Fini()
}

// PollEvents delivers every event received since the last call without blocking.
func (t *Terminal) PollEvents() {
	for {
		select {
		case ev, ok := <-t.events:
			if !ok {
				t.closing = true
				return
			}
			if e := t.translate(ev); e != nil {
				if _, closed := e.(event.WindowClosed); closed {
					t.closing = true
				}
				if t.callback != nil {
					t.callback(e)
				}
			}
		default:
			return
		}
	}
}

func (t *Terminal) translate(ev tcell.Event) event.Event {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		w, h := ev.Size()
		t.screen.Sync()
		return event.WindowResized{Width: w, Height: h}
	case *tcell.EventKey:
		return translateKey(ev)
	case *tcell.EventMouse:
		x, y := ev.Position()
		return event.MouseMoved{X: x, Y: y}
	case *tcell.EventFocus:
		return event.FocusChanged{Focused: ev.Focused}
	}
	return nil
}

func translateKey(ev *tcell.EventKey) event.Event {
	ctrl := ev.Modifiers()&tcell.ModCtrl != 0
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return event.WindowClosed{}
	case tcell.KeyEnter:
		return event.KeyPressed{Key: event.KeyEnter, Ctrl: ctrl}
	case tcell.KeyUp:
		return event.KeyPressed{Key: event.KeyUp, Ctrl: ctrl}
	case tcell.KeyDown:
		return event.KeyPressed{Key: event.KeyDown, Ctrl: ctrl}
	case tcell.KeyLeft:
		return event.KeyPressed{Key: event.KeyLeft, Ctrl: ctrl}
	case tcell.KeyRight:
		return event.KeyPressed{Key: event.KeyRight, Ctrl: ctrl}
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q':
			return event.WindowClosed{}
		case ' ':
			return event.KeyPressed{Key: event.KeySpace, Rune: ' ', Ctrl: ctrl}
		}
		return event.KeyPressed{Key: event.KeyRune, Rune: ev.Rune(), Ctrl: ctrl}
	}
	return nil
}

func (t *Terminal) SetEventCallback(fn event.EventCallbackFn) { t.callback = fn }

func (t *Terminal) SetTitle(title string) {
	t.title = title
	if t.open {
		t.screen.SetTitle(title)
	}
}

// SetResolution is ignored: the terminal owns its size.
func (t *Terminal) SetResolution(width, height int) {
	t.log.Debug("終端機無法調整尺寸", zap.Int("width", width), zap.Int("height", height))
}

func (t *Terminal) SetCursorVisible(visible bool) {
	if !t.open {
		return
	}
	if visible {
		w, h := t.screen.Size()
		t.screen.ShowCursor(w/2, h/2)
	} else {
		t.screen.HideCursor()
	}
}

func (t *Terminal) Size() (int, int) {
	if t.screen == nil {
		return 0, 0
	}
	return t.screen.Size()
}

func (t *Terminal) ShouldClose() bool { return t.closing || !t.open }

// Print queues extra lines shown under the title until the next Present.
func (t *Terminal) Print(line string) { t.lines = append(t.lines, line) }

// Present redraws the title, queued lines and the status line.
func (t *Terminal) Present(status string) {
	if !t.open {
		return
	}
	w, h := t.screen.Size()
	t.screen.Clear()
	title := tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	body := tcell.StyleDefault.Foreground(tcell.ColorWhite)
	bar := tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorGreen)

	drawText(t.screen, 0, 0, w, t.title, title)
	for i, line := range t.lines {
		if 1+i >= h-1 {
			break
		}
		drawText(t.screen, 0, 1+i, w, line, body)
	}
	t.lines = t.lines[:0]
	for x := 0; x < w; x++ {
		t.screen.SetContent(x, h-1, ' ', nil, bar)
	}
	drawText(t.screen, 0, h-1, w, status, bar)
	t.screen.Show()
}

func drawText(s tcell.Screen, x, y, width int, text string, style tcell.Style) {
	for _, r := range text {
		if x >= width {
			return
		}
		s.SetContent(x, y, r, nil, style)
		x++
	}
}

var (
	_ Backend = (*Terminal)(nil)
	_ Backend = (*Headless)(nil)
)

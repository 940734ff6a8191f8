package system

import (
	"time"

	"github.com/vortexengine/vortex/internal/core/event"
	coresys "github.com/vortexengine/vortex/internal/core/system"
	"github.com/vortexengine/vortex/internal/window"
)

// InputSystem polls the window and delivers last frame's events.
// Phase 0 (Input).
type InputSystem struct {
	win window.Backend
	bus *event.Bus
}

// NewInputSystem routes window events into bus.
func NewInputSystem(win window.Backend, bus *event.Bus) *InputSystem {
	win.SetEventCallback(bus.Post)
	return &InputSystem{win: win, bus: bus}
}

func (s *InputSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *InputSystem) Update(_ time.Duration) {
	s.win.PollEvents()
	s.bus.SwapBuffers()
	s.bus.DispatchAll()
}

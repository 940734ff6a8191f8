package system

import (
	"time"

	"github.com/vortexengine/vortex/internal/core/event"
	coresys "github.com/vortexengine/vortex/internal/core/system"
	"github.com/vortexengine/vortex/internal/scripting"
)

// ScriptSystem runs on_frame once per frame and forwards key presses to on_key.
// Phase 1 (Script).
type ScriptSystem struct {
	engine *scripting.Engine
	frame  int
}

func NewScriptSystem(engine *scripting.Engine, bus *event.Bus) *ScriptSystem {
	event.Subscribe(bus, engine.OnKey)
	return &ScriptSystem{engine: engine}
}

func (s *ScriptSystem) Phase() coresys.Phase { return coresys.PhaseScript }

func (s *ScriptSystem) Update(dt time.Duration) {
	s.frame++
	s.engine.OnFrame(s.frame, dt)
}

package system

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	coresys "github.com/vortexengine/vortex/internal/core/system"
	"github.com/vortexengine/vortex/internal/render"
	"github.com/vortexengine/vortex/internal/window"
)

// PhaseTimer reports time spent per phase in the running frame.
type PhaseTimer interface {
	Timing(phase coresys.Phase) time.Duration
}

// PresentSystem hands the frame status to the window and logs cumulative
// stats every few hundred frames. Phase 4 (Present).
type PresentSystem struct {
	win    window.Backend
	stats  func() render.Stats
	totals func() render.Stats
	timer  PhaseTimer
	every  int
	frames int
	log    *zap.Logger
}

// NewPresentSystem reads per-frame stats from last, totals from totals and
// phase timings from timer (usually the Runner it is registered on).
// every is the number of frames between stats log lines; 0 disables them.
func NewPresentSystem(win window.Backend, last, totals func() render.Stats, timer PhaseTimer, every int, log *zap.Logger) *PresentSystem {
	return &PresentSystem{win: win, stats: last, totals: totals, timer: timer, every: every, log: log}
}

func (s *PresentSystem) Phase() coresys.Phase { return coresys.PhasePresent }

func (s *PresentSystem) Update(dt time.Duration) {
	s.frames++
	st := s.stats()
	s.win.Present(fmt.Sprintf("frame %d | %d draws | %d dispatches | %s", s.frames, st.DrawCalls, st.ComputeDispatches, dt.Round(time.Microsecond)))

	if s.every > 0 && s.frames%s.every == 0 {
		total := s.totals()
		s.log.Info("渲染統計",
			zap.Int("frames", total.Frames),
			zap.Int("draws", total.DrawCalls),
			zap.Int("program_binds", total.ProgramBinds),
			zap.Int("view_binds", total.ViewBinds),
			zap.Int("post_passes", total.PostProcessPasses),
			zap.Int("dispatches", total.ComputeDispatches),
			zap.Duration("compute_time", total.ComputeTime),
			zap.Duration("input_phase", s.timer.Timing(coresys.PhaseInput)),
			zap.Duration("script_phase", s.timer.Timing(coresys.PhaseScript)),
			zap.Duration("update_phase", s.timer.Timing(coresys.PhaseUpdate)),
			zap.Duration("render_phase", s.timer.Timing(coresys.PhaseRender)),
		)
	}
}

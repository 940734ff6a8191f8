package system

import (
	"time"

	"go.uber.org/zap"

	coresys "github.com/vortexengine/vortex/internal/core/system"
	"github.com/vortexengine/vortex/internal/data"
	"github.com/vortexengine/vortex/internal/render"
	"github.com/vortexengine/vortex/internal/world"
)

// RenderSystem queues the scene's per-frame compute dispatches, post-process
// passes and visible instances, then runs the renderer. Phase 3 (Render).
type RenderSystem struct {
	renderer *render.Renderer
	state    *world.State
	res      *data.Resources
	last     render.Stats
	log      *zap.Logger
}

func NewRenderSystem(renderer *render.Renderer, state *world.State, res *data.Resources, log *zap.Logger) *RenderSystem {
	return &RenderSystem{renderer: renderer, state: state, res: res, log: log}
}

func (s *RenderSystem) Phase() coresys.Phase { return coresys.PhaseRender }

func (s *RenderSystem) Update(_ time.Duration) {
	for _, d := range s.res.Dispatches {
		if _, ok := s.renderer.ComputeShader(d.Shader); !ok {
			continue
		}
		if err := s.renderer.SubmitCompute(d.Shader, d.Groups); err != nil {
			s.log.Warn("計算派發失敗", zap.Stringer("shader", d.Shader), zap.Error(err))
		}
	}
	for _, p := range s.res.PostPasses {
		s.renderer.SubmitPostProcess(p.View, p.Effect)
	}
	s.state.Submit(s.renderer)
	s.last = s.renderer.Process()
}

// Last returns the stats of the most recent frame.
func (s *RenderSystem) Last() render.Stats { return s.last }

package system

import (
	"time"

	coresys "github.com/vortexengine/vortex/internal/core/system"
	"github.com/vortexengine/vortex/internal/jobs"
	"github.com/vortexengine/vortex/internal/world"
)

// AnimateSystem advances instance spins and camera orbits on the job pool,
// then pushes camera positions to their views. Phase 2 (Update).
type AnimateSystem struct {
	state   *world.State
	pool    *jobs.Pool
	cameras world.CameraSetter
}

func NewAnimateSystem(state *world.State, pool *jobs.Pool, cameras world.CameraSetter) *AnimateSystem {
	return &AnimateSystem{state: state, pool: pool, cameras: cameras}
}

func (s *AnimateSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *AnimateSystem) Update(dt time.Duration) {
	s.state.Animate(dt, s.pool)
	s.state.SyncCameras(s.cameras)
}

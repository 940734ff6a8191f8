package system

import (
	"sort"
	"time"
)

// Runner executes systems in phase order each frame. Systems of the same
// phase run in registration order.
type Runner struct {
	systems []System
	sorted  bool
	timings map[Phase]time.Duration
}

func NewRunner() *Runner {
	return &Runner{
		systems: make([]System, 0, 16),
		timings: make(map[Phase]time.Duration),
	}
}

func (r *Runner) Register(s System) {
	r.systems = append(r.systems, s)
	r.sorted = false
}

// Tick runs every system once and records the time spent per phase.
func (r *Runner) Tick(dt time.Duration) {
	r.ensureSorted()
	clear(r.timings)
	for _, s := range r.systems {
		start := time.Now()
		s.Update(dt)
		r.timings[s.Phase()] += time.Since(start)
	}
}

// Timing returns the time spent in phase by the current or last Tick.
func (r *Runner) Timing(phase Phase) time.Duration { return r.timings[phase] }

func (r *Runner) ensureSorted() {
	if !r.sorted {
		sort.SliceStable(r.systems, func(i, j int) bool {
			return r.systems[i].Phase() < r.systems[j].Phase()
		})
		r.sorted = true
	}
}

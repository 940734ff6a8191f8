package system

import (
	"time"

	"github.com/gopxl/beep"

	coresys "github.com/vortexengine/vortex/internal/core/system"
)

// AudioSystem pulls one frame of samples from the mixer when no speaker is
// attached, so playback state advances in step with the frame clock.
// Phase 2 (Update).
type AudioSystem struct {
	stream beep.Streamer
	rate   beep.SampleRate
	buf    [][2]float64
	owed   time.Duration
}

func NewAudioSystem(stream beep.Streamer, rate beep.SampleRate) *AudioSystem {
	return &AudioSystem{stream: stream, rate: rate}
}

func (s *AudioSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *AudioSystem) Update(dt time.Duration) {
	s.owed += dt
	n := s.rate.N(s.owed)
	if n <= 0 {
		return
	}
	s.owed -= s.rate.D(n)
	if cap(s.buf) < n {
		s.buf = make([][2]float64, n)
	}
	s.stream.Stream(s.buf[:n])
}

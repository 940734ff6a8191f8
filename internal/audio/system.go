package audio

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vortexengine/vortex/internal/core/handle"
)

type (
	SoundHandle  = handle.Strong[Sound]
	SourceHandle = handle.Strong[Source]
)

// Sound is decoded sample data held by the backend.
type Sound struct {
	Name     string
	Buffer   handle.Handle
	Duration time.Duration
}

// Source plays one sound.
type Source struct {
	Sound   SoundHandle
	Backend handle.Handle
}

// System owns sounds and sources and forwards playback to a Backend.
// Not safe for concurrent use.
type System struct {
	backend Backend
	log     *zap.Logger
	sounds  handle.Store[Sound]
	sources handle.Store[Source]
}

// NewSystem creates an audio system. debug enables leak tracking of handles.
func NewSystem(backend Backend, debug bool, log *zap.Logger) *System {
	s := &System{
		backend: backend,
		log:     log,
		sounds:  handle.NewStrongMap[Sound](),
		sources: handle.NewStrongMap[Source](),
	}
	if debug {
		s.sounds = handle.NewTracked[Sound]("sounds", s.sounds)
		s.sources = handle.NewTracked[Source]("sources", s.sources)
	}
	return s
}

// Backend returns the device layer.
func (s *System) Backend() Backend { return s.backend }

// CreateSound uploads samples recorded at rate. On failure it logs and
// returns the null handle.
func (s *System) CreateSound(name string, samples [][2]float64, rate int) (SoundHandle, error) {
	buf, err := s.backend.CreateBuffer(samples, rate)
	if err != nil {
		s.log.Error("建立音效失敗", zap.String("sound", name), zap.Error(err))
		return 0, fmt.Errorf("create sound %s: %w", name, err)
	}
	d := time.Duration(len(samples)) * time.Second / time.Duration(rate)
	h, err := s.sounds.Insert(Sound{Name: name, Buffer: buf, Duration: d})
	if err != nil {
		s.backend.DestroyBuffer(buf)
		return 0, fmt.Errorf("create sound %s: %w", name, err)
	}
	return h, nil
}

// Sound returns the sound behind h.
func (s *System) Sound(h SoundHandle) (*Sound, bool) { return s.sounds.GetIf(h) }

// DestroySound releases a sound and every source playing it.
func (s *System) DestroySound(h SoundHandle) {
	snd, ok := s.sounds.GetIf(h)
	if !ok {
		return
	}
	s.sources.Each(func(src SourceHandle, v *Source) {
		if v.Sound == h {
			s.DestroySource(src)
		}
	})
	s.backend.DestroyBuffer(snd.Buffer)
	s.sounds.Destroy(h)
}

// CreateSource creates a stopped source for sound.
func (s *System) CreateSource(sound SoundHandle) (SourceHandle, error) {
	snd, ok := s.sounds.GetIf(sound)
	if !ok {
		return 0, fmt.Errorf("create source: %w: %s", ErrInvalidSound, sound)
	}
	b, err := s.backend.CreateSource(snd.Buffer)
	if err != nil {
		s.log.Error("建立音源失敗", zap.String("sound", snd.Name), zap.Error(err))
		return 0, fmt.Errorf("create source for %s: %w", snd.Name, err)
	}
	h, err := s.sources.Insert(Source{Sound: sound, Backend: b})
	if err != nil {
		s.backend.DestroySource(b)
		return 0, fmt.Errorf("create source for %s: %w", snd.Name, err)
	}
	return h, nil
}

// DestroySource stops and releases a source; stale handles are ignored.
func (s *System) DestroySource(h SourceHandle) {
	src, ok := s.sources.GetIf(h)
	if !ok {
		return
	}
	s.backend.DestroySource(src.Backend)
	s.sources.Destroy(h)
}

func (s *System) source(h SourceHandle) (handle.Handle, error) {
	src, ok := s.sources.GetIf(h)
	if !ok {
		return handle.Null, fmt.Errorf("%w: %s", ErrInvalidSource, h)
	}
	return src.Backend, nil
}

// Play starts or resumes a source.
func (s *System) Play(h SourceHandle) error {
	b, err := s.source(h)
	if err != nil {
		return err
	}
	s.backend.Play(b)
	return nil
}

// Pause holds a source at its current position.
func (s *System) Pause(h SourceHandle) error {
	b, err := s.source(h)
	if err != nil {
		return err
	}
	s.backend.Pause(b)
	return nil
}

// Stop halts a source and rewinds it.
func (s *System) Stop(h SourceHandle) error {
	b, err := s.source(h)
	if err != nil {
		return err
	}
	s.backend.Stop(b)
	return nil
}

// Rewind moves a source back to its first sample without changing its state.
func (s *System) Rewind(h SourceHandle) error {
	b, err := s.source(h)
	if err != nil {
		return err
	}
	s.backend.Rewind(b)
	return nil
}

// Playing reports whether a source is audible; stale handles are not playing.
func (s *System) Playing(h SourceHandle) bool {
	b, err := s.source(h)
	return err == nil && s.backend.Playing(b)
}

// SetLooping makes a source restart at its end. Takes effect on the next Play.
func (s *System) SetLooping(h SourceHandle, loop bool) error {
	b, err := s.source(h)
	if err != nil {
		return err
	}
	s.backend.SetLooping(b, loop)
	return nil
}

// SetGain sets the linear gain of a source.
func (s *System) SetGain(h SourceHandle, gain float64) error {
	b, err := s.source(h)
	if err != nil {
		return err
	}
	s.backend.SetSourceGain(b, gain)
	return nil
}

// SetListenerGain sets the master gain.
func (s *System) SetListenerGain(gain float64) { s.backend.SetListenerGain(gain) }

// Counts returns the number of live sounds and sources.
func (s *System) Counts() (sounds, sources int) { return s.sounds.Len(), s.sources.Len() }

// Shutdown reports leaked handles and releases everything.
func (s *System) Shutdown() {
	leaks := 0
	for _, st := range []any{s.sounds, s.sources} {
		if rep, ok := st.(handle.LeakReporter); ok {
			leaks += rep.ReportLeaks(s.log)
		}
	}
	if leaks > 0 {
		s.log.Warn("音效資源未釋放", zap.Int("count", leaks))
	}
	s.sources.Each(func(h SourceHandle, _ *Source) { s.DestroySource(h) })
	s.sounds.Each(func(h SoundHandle, _ *Sound) { s.DestroySound(h) })
}

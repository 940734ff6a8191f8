package audio

import (
	"fmt"
	"math"
	"sync"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"

	"github.com/vortexengine/vortex/internal/core/handle"
)

const (
	tagBuffer uint8 = iota + 1
	tagVoice
)

type mixerObject interface {
	handle.Variant
}

type clip struct {
	buf *beep.Buffer
}

func (*clip) VariantTag() uint8 { return tagBuffer }

// voice is one source. Each Play starts a session; Stop bumps the session so
// the streamer queued in the mixer ends on its next read.
type voice struct {
	clip    *clip
	seeker  beep.StreamSeeker
	ctrl    *beep.Ctrl
	volume  *effects.Volume
	gain    float64
	loop    bool
	playing bool
	session int
}

func (*voice) VariantTag() uint8 { return tagVoice }

// Mixer is a Backend that mixes every playing source into one beep.Streamer.
// Hand it to speaker.Play for device output, or drain it with Stream.
//
// Safe for concurrent use: the speaker goroutine calls Stream while the main
// loop changes sources.
type Mixer struct {
	mu      sync.Mutex
	rate    beep.SampleRate
	objects *handle.Map[mixerObject]
	mixer   *beep.Mixer
	master  *effects.Volume
}

// NewMixer creates a mixer producing samples at rate.
func NewMixer(rate int) *Mixer {
	m := &Mixer{
		rate:    beep.SampleRate(rate),
		objects: handle.NewMap[mixerObject](),
		mixer:   &beep.Mixer{},
	}
	m.master = &effects.Volume{Streamer: m.mixer, Base: 2}
	return m
}

// SampleRate returns the output rate.
func (m *Mixer) SampleRate() beep.SampleRate { return m.rate }

// Stream fills samples with the mix of all playing sources. Silence is
// produced when nothing plays, so the stream never ends.
func (m *Mixer) Stream(samples [][2]float64) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.master.Stream(samples)
	if !ok {
		n = 0
	}
	for i := n; i < len(samples); i++ {
		samples[i] = [2]float64{}
	}
	return len(samples), true
}

func (m *Mixer) Err() error { return nil }

// Voices returns the number of streamers currently queued in the mix.
func (m *Mixer) Voices() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mixer.Len()
}

func (m *Mixer) CreateBuffer(samples [][2]float64, rate int) (handle.Handle, error) {
	if len(samples) == 0 {
		return handle.Null, ErrEmpty
	}
	if rate <= 0 {
		return handle.Null, fmt.Errorf("audio: sample rate %d", rate)
	}
	buf := beep.NewBuffer(beep.Format{SampleRate: m.rate, NumChannels: 2, Precision: 2})
	var src beep.Streamer = &sampleStreamer{samples: samples}
	if beep.SampleRate(rate) != m.rate {
		src = beep.Resample(4, beep.SampleRate(rate), m.rate, src)
	}
	buf.Append(src)

	m.mu.Lock()
	defer m.mu.Unlock()
	h, err := m.objects.Insert(&clip{buf: buf})
	if err != nil {
		return handle.Null, fmt.Errorf("audio: buffer: %w", err)
	}
	return h, nil
}

func (m *Mixer) DestroyBuffer(buffer handle.Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects.Destroy(buffer)
}

func (m *Mixer) CreateSource(buffer handle.Handle) (handle.Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := handle.GetAs[*clip](m.objects, buffer)
	if !ok {
		return handle.Null, fmt.Errorf("audio: source buffer %s: %w", buffer, handle.ErrInvalid)
	}
	v := &voice{clip: c, seeker: c.buf.Streamer(0, c.buf.Len()), gain: 1}
	h, err := m.objects.Insert(v)
	if err != nil {
		return handle.Null, fmt.Errorf("audio: source: %w", err)
	}
	return h, nil
}

func (m *Mixer) DestroySource(source handle.Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := handle.GetAs[*voice](m.objects, source); ok {
		v.session++
		v.playing = false
	}
	m.objects.Destroy(source)
}

func (m *Mixer) voice(source handle.Handle) *voice {
	v, _ := handle.GetAs[*voice](m.objects, source)
	return v
}

func (m *Mixer) Play(source handle.Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := m.voice(source)
	if v == nil {
		return
	}
	if v.playing {
		v.ctrl.Paused = false
		return
	}
	if v.seeker.Position() >= v.seeker.Len() {
		_ = v.seeker.Seek(0)
	}

	v.session++
	session := v.session
	var s beep.Streamer = v.seeker
	if v.loop {
		s = &looper{s: v.seeker}
	}
	v.ctrl = &beep.Ctrl{Streamer: s}
	v.volume = &effects.Volume{Streamer: v.ctrl, Base: 2}
	setGain(v.volume, v.gain)
	v.playing = true
	m.mixer.Add(beep.Seq(
		&sessionStreamer{v: v, session: session, s: v.volume},
		beep.Callback(func() {
			if v.session == session {
				v.playing = false
			}
		}),
	))
}

func (m *Mixer) Pause(source handle.Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v := m.voice(source); v != nil && v.playing {
		v.ctrl.Paused = true
	}
}

func (m *Mixer) Stop(source handle.Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v := m.voice(source); v != nil {
		v.session++
		v.playing = false
		_ = v.seeker.Seek(0)
	}
}

func (m *Mixer) Rewind(source handle.Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v := m.voice(source); v != nil {
		_ = v.seeker.Seek(0)
	}
}

func (m *Mixer) Playing(source handle.Handle) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := m.voice(source)
	return v != nil && v.playing && !v.ctrl.Paused
}

func (m *Mixer) SetLooping(source handle.Handle, loop bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v := m.voice(source); v != nil {
		v.loop = loop
		if l, ok := v.ctrlStreamer().(*looper); ok {
			l.stop = !loop
		}
	}
}

func (m *Mixer) SetSourceGain(source handle.Handle, gain float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v := m.voice(source); v != nil {
		v.gain = gain
		if v.volume != nil {
			setGain(v.volume, gain)
		}
	}
}

func (m *Mixer) SetListenerGain(gain float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	setGain(m.master, gain)
}

func (v *voice) ctrlStreamer() beep.Streamer {
	if v.ctrl == nil {
		return nil
	}
	return v.ctrl.Streamer
}

// setGain maps a linear gain onto the exponential volume control.
func setGain(vol *effects.Volume, gain float64) {
	if gain <= 0 {
		vol.Silent = true
		return
	}
	vol.Silent = false
	vol.Volume = math.Log2(gain)
}

// sampleStreamer streams a fixed sample slice once.
type sampleStreamer struct {
	samples [][2]float64
	pos     int
}

func (s *sampleStreamer) Stream(out [][2]float64) (int, bool) {
	if s.pos >= len(s.samples) {
		return 0, false
	}
	n := copy(out, s.samples[s.pos:])
	s.pos += n
	return n, true
}

func (s *sampleStreamer) Err() error { return nil }

// looper restarts its seeker at the end until stop is set.
type looper struct {
	s    beep.StreamSeeker
	stop bool
}

func (l *looper) Stream(samples [][2]float64) (int, bool) {
	filled := 0
	for filled < len(samples) {
		n, ok := l.s.Stream(samples[filled:])
		filled += n
		if ok && n > 0 {
			continue
		}
		if l.stop || l.s.Len() == 0 {
			break
		}
		if err := l.s.Seek(0); err != nil {
			break
		}
	}
	return filled, filled > 0
}

func (l *looper) Err() error { return l.s.Err() }

// sessionStreamer ends as soon as its voice is stopped or replayed.
type sessionStreamer struct {
	v       *voice
	session int
	s       beep.Streamer
}

func (s *sessionStreamer) Stream(samples [][2]float64) (int, bool) {
	if s.v.session != s.session {
		return 0, false
	}
	return s.s.Stream(samples)
}

func (s *sessionStreamer) Err() error { return s.s.Err() }

var _ Backend = (*Mixer)(nil)

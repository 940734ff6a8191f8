// Package audio plays sounds through a Backend. Sounds and sources are
// addressed by generational handles like every other engine resource.
package audio

import (
	"errors"

	"github.com/vortexengine/vortex/internal/core/handle"
)

var (
	// ErrInvalidSource is returned for stale or destroyed source handles.
	ErrInvalidSource = errors.New("audio: invalid source")
	// ErrInvalidSound is returned for stale or destroyed sound handles.
	ErrInvalidSound = errors.New("audio: invalid sound")
	// ErrEmpty rejects sounds without samples.
	ErrEmpty = errors.New("audio: no samples")
)

// Backend is the device layer. Buffers hold decoded stereo samples; sources
// play one buffer each.
type Backend interface {
	CreateBuffer(samples [][2]float64, rate int) (handle.Handle, error)
	DestroyBuffer(buffer handle.Handle)
	CreateSource(buffer handle.Handle) (handle.Handle, error)
	DestroySource(source handle.Handle)

	Play(source handle.Handle)
	Pause(source handle.Handle)
	Stop(source handle.Handle)
	Rewind(source handle.Handle)
	Playing(source handle.Handle) bool

	SetLooping(source handle.Handle, loop bool)
	SetSourceGain(source handle.Handle, gain float64)
	SetListenerGain(gain float64)
}

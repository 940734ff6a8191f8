package audio

import (
	"math"
	"time"
)

// Wave is an oscillator shape.
type Wave int

const (
	WaveSine Wave = iota
	WaveSquare
	WaveSaw
)

// ParseWave maps a manifest name to a Wave.
func ParseWave(s string) (Wave, bool) {
	switch s {
	case "", "sine":
		return WaveSine, true
	case "square":
		return WaveSquare, true
	case "saw":
		return WaveSaw, true
	}
	return 0, false
}

// Tone renders a stereo tone of freq Hz. The last quarter fades out linearly
// so the sound ends without a click.
func Tone(freq float64, d time.Duration, rate int, wave Wave) [][2]float64 {
	n := int(d.Seconds() * float64(rate))
	if n <= 0 {
		return nil
	}
	out := make([][2]float64, n)
	release := n / 4
	phase := 0.0
	for i := range out {
		var v float64
		switch wave {
		case WaveSquare:
			if phase < 0.5 {
				v = 1
			} else {
				v = -1
			}
		case WaveSaw:
			v = 2 * (phase - 0.5)
		default:
			v = math.Sin(2 * math.Pi * phase)
		}
		if tail := n - i; release > 0 && tail <= release {
			v *= float64(tail) / float64(release)
		}
		out[i] = [2]float64{v, v}

		phase += freq / float64(rate)
		phase -= math.Floor(phase)
	}
	return out
}

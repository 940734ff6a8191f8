package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recordSystem struct {
	name  string
	phase Phase
	log   *[]string
}

func (s recordSystem) Phase() Phase            { return s.phase }
func (s recordSystem) Update(dt time.Duration) { *s.log = append(*s.log, s.name) }

func TestRunnerOrdersByPhase(t *testing.T) {
	var log []string
	r := NewRunner()
	r.Register(recordSystem{"present", PhasePresent, &log})
	r.Register(recordSystem{"render", PhaseRender, &log})
	r.Register(recordSystem{"input", PhaseInput, &log})
	r.Register(recordSystem{"animate", PhaseUpdate, &log})
	r.Register(recordSystem{"audio", PhaseUpdate, &log})

	r.Tick(16 * time.Millisecond)
	assert.Equal(t, []string{"input", "animate", "audio", "render", "present"}, log)

	assert.Zero(t, r.Timing(PhaseScript))
}

type sleepSystem struct {
	phase Phase
	d     time.Duration
}

func (s sleepSystem) Phase() Phase          { return s.phase }
func (s sleepSystem) Update(_ time.Duration) { time.Sleep(s.d) }

func TestRunnerTimingPerPhase(t *testing.T) {
	r := NewRunner()
	r.Register(sleepSystem{PhaseRender, 2 * time.Millisecond})
	r.Register(sleepSystem{PhaseRender, 2 * time.Millisecond})

	var seen time.Duration
	r.Register(funcSystem{PhasePresent, func() { seen = r.Timing(PhaseRender) }})

	r.Tick(16 * time.Millisecond)
	assert.GreaterOrEqual(t, r.Timing(PhaseRender), 4*time.Millisecond)
	assert.Equal(t, r.Timing(PhaseRender), seen, "later phases see earlier timings of the same tick")
	assert.Zero(t, r.Timing(PhaseInput))
}

type funcSystem struct {
	phase Phase
	fn    func()
}

func (s funcSystem) Phase() Phase          { return s.phase }
func (s funcSystem) Update(_ time.Duration) { s.fn() }

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "render", PhaseRender.String())
	assert.Equal(t, "unknown", Phase(42).String())
}

package system

import "time"

// Phase defines execution ordering within a single frame.
type Phase int

const (
	PhaseInput   Phase = iota // 0: poll window, dispatch events
	PhaseScript               // 1: Lua on_frame
	PhaseUpdate               // 2: animation, audio bookkeeping
	PhaseRender               // 3: submit + renderer.Process
	PhasePresent              // 4: swap / status line, stats
)

func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "input"
	case PhaseScript:
		return "script"
	case PhaseUpdate:
		return "update"
	case PhaseRender:
		return "render"
	case PhasePresent:
		return "present"
	}
	return "unknown"
}

// System is one step of the frame pipeline.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}

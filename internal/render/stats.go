package render

import (
	"fmt"
	"time"
)

// Stats counts the work done by Process.
type Stats struct {
	Frames            int
	Commands          int
	DrawCalls         int
	ViewBinds         int
	BlendChanges      int
	ProgramBinds      int
	PostProcessPasses int
	ComputeDispatches int
	ComputeTime       time.Duration
}

func (s Stats) String() string {
	return fmt.Sprintf("%d cmds, %d draws, %d views, %d blend, %d programs, %d post, %d dispatches (%s)",
		s.Commands, s.DrawCalls, s.ViewBinds, s.BlendChanges, s.ProgramBinds, s.PostProcessPasses,
		s.ComputeDispatches, s.ComputeTime)
}

// Merge adds o into s.
func (s *Stats) Merge(o Stats) {
	s.Frames += o.Frames
	s.Commands += o.Commands
	s.DrawCalls += o.DrawCalls
	s.ViewBinds += o.ViewBinds
	s.BlendChanges += o.BlendChanges
	s.ProgramBinds += o.ProgramBinds
	s.PostProcessPasses += o.PostProcessPasses
	s.ComputeDispatches += o.ComputeDispatches
	s.ComputeTime += o.ComputeTime
}

package world

import (
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/vortexengine/vortex/internal/jobs"
	"github.com/vortexengine/vortex/internal/render"
	"github.com/vortexengine/vortex/internal/render/drawcall"
)

// Instance is one drawable object in the scene.
// Accessed only from the frame loop goroutine; Animate hands disjoint
// chunks to pool workers and waits for them.
type Instance struct {
	Name     string
	View     render.ViewHandle
	Layer    drawcall.Layer
	Material render.MaterialHandle
	Mesh     render.MeshHandle
	Position mgl32.Vec3
	Scale    mgl32.Vec3
	Rotation mgl32.Quat
	Spin     mgl32.Vec3 // radians per second around each axis
	Hidden   bool

	transform mgl32.Mat4
}

// Transform returns the model matrix computed by the last Animate.
func (in *Instance) Transform() mgl32.Mat4 { return in.transform }

func (in *Instance) update(dt float32) {
	if in.Spin != (mgl32.Vec3{}) {
		angle := in.Spin.Len() * dt
		step := mgl32.QuatRotate(angle, in.Spin.Normalize())
		in.Rotation = step.Mul(in.Rotation).Normalize()
	}
	in.transform = mgl32.Translate3D(in.Position[0], in.Position[1], in.Position[2]).
		Mul4(in.Rotation.Mat4()).
		Mul4(mgl32.Scale3D(in.Scale[0], in.Scale[1], in.Scale[2]))
}

// Camera drives the eye of one view. A non-zero Orbit circles the eye
// around Target on the Y axis.
type Camera struct {
	Name   string
	View   render.ViewHandle
	Eye    mgl32.Vec3
	Target mgl32.Vec3
	Orbit  float32 // radians per second
}

// Submitter receives one draw per visible instance.
type Submitter interface {
	Submit(view render.ViewHandle, layer drawcall.Layer, material render.MaterialHandle, transform mgl32.Mat4, mesh render.MeshHandle)
}

// CameraSetter receives camera positions.
type CameraSetter interface {
	SetViewCamera(view render.ViewHandle, eye, target mgl32.Vec3)
}

// State holds the scene: instances in insertion order plus cameras.
type State struct {
	instances []Instance
	byName    map[string]int
	cameras   []Camera
	chunk     int
	elapsed   time.Duration
	frames    int
}

// NewState creates an empty scene. chunk is the number of instances one
// pool job animates.
func NewState(chunk int) *State {
	if chunk <= 0 {
		chunk = 64
	}
	return &State{
		byName: make(map[string]int),
		chunk:  chunk,
	}
}

// Add appends an instance. Names must be unique; a zero Scale means 1 and a
// zero Rotation the identity.
func (s *State) Add(in Instance) error {
	if _, dup := s.byName[in.Name]; dup && in.Name != "" {
		return fmt.Errorf("duplicate instance %q", in.Name)
	}
	if in.Scale == (mgl32.Vec3{}) {
		in.Scale = mgl32.Vec3{1, 1, 1}
	}
	if in.Rotation == (mgl32.Quat{}) {
		in.Rotation = mgl32.QuatIdent()
	}
	in.update(0)
	if in.Name != "" {
		s.byName[in.Name] = len(s.instances)
	}
	s.instances = append(s.instances, in)
	return nil
}

// Instance returns the named instance.
func (s *State) Instance(name string) (*Instance, bool) {
	i, ok := s.byName[name]
	if !ok {
		return nil, false
	}
	return &s.instances[i], true
}

// Len returns the number of instances.
func (s *State) Len() int { return len(s.instances) }

// AddCamera registers a camera.
func (s *State) AddCamera(c Camera) { s.cameras = append(s.cameras, c) }

// Camera returns the named camera.
func (s *State) Camera(name string) (*Camera, bool) {
	for i := range s.cameras {
		if s.cameras[i].Name == name {
			return &s.cameras[i], true
		}
	}
	return nil, false
}

// Elapsed returns the animated time so far.
func (s *State) Elapsed() time.Duration { return s.elapsed }

// Frames returns how many times Animate ran.
func (s *State) Frames() int { return s.frames }

// Animate advances spins and orbits by dt. Instance transforms are computed
// in parallel on pool.
func (s *State) Animate(dt time.Duration, pool *jobs.Pool) {
	sec := float32(dt.Seconds())
	s.elapsed += dt
	s.frames++

	if pool == nil {
		for i := range s.instances {
			s.instances[i].update(sec)
		}
	} else {
		pool.ParallelFor(len(s.instances), s.chunk, func(start, end int) {
			for i := start; i < end; i++ {
				s.instances[i].update(sec)
			}
		})
	}

	for i := range s.cameras {
		c := &s.cameras[i]
		if c.Orbit == 0 {
			continue
		}
		rot := mgl32.HomogRotate3DY(c.Orbit * sec)
		c.Eye = rot.Mul4x1(c.Eye.Sub(c.Target).Vec4(1)).Vec3().Add(c.Target)
	}
}

// SyncCameras pushes every camera position to its view.
func (s *State) SyncCameras(r CameraSetter) {
	for _, c := range s.cameras {
		r.SetViewCamera(c.View, c.Eye, c.Target)
	}
}

// Submit queues one draw per visible instance.
func (s *State) Submit(r Submitter) int {
	n := 0
	for i := range s.instances {
		in := &s.instances[i]
		if in.Hidden {
			continue
		}
		r.Submit(in.View, in.Layer, in.Material, in.transform, in.Mesh)
		n++
	}
	return n
}

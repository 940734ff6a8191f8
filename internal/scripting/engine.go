package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/vortexengine/vortex/internal/audio"
	"github.com/vortexengine/vortex/internal/core/event"
	"github.com/vortexengine/vortex/internal/core/handle"
	"github.com/vortexengine/vortex/internal/data"
	"github.com/vortexengine/vortex/internal/render"
	"github.com/vortexengine/vortex/internal/render/drawcall"
	"github.com/vortexengine/vortex/internal/world"
)

// Host is what scripts can reach. Audio may be nil.
type Host struct {
	Renderer  *render.Renderer
	Audio     *audio.System
	World     *world.State
	Resources *data.Resources
}

// Engine wraps a single gopher-lua VM for frame scripts.
// Single-goroutine access only (frame loop).
type Engine struct {
	vm   *lua.LState
	log  *zap.Logger
	host Host
}

// NewEngine creates a Lua engine, registers the vortex table and loads all
// scripts from scriptsDir/lib, then scriptsDir.
func NewEngine(scriptsDir string, host Host, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	// Set API version global
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log, host: host}
	e.register()

	for _, dir := range []string{filepath.Join(scriptsDir, "lib"), scriptsDir} {
		if err := e.loadDir(dir); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load scripts: %w", err)
		}
	}
	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("載入腳本", zap.String("file", path))
	}
	return nil
}

// DoString runs a chunk of Lua in the engine's VM.
func (e *Engine) DoString(src string) error {
	return e.vm.DoString(src)
}

// Close releases the VM.
func (e *Engine) Close() { e.vm.Close() }

// OnFrame calls the global on_frame(frame, dt_seconds) if a script defines it.
// Script errors are logged and the frame continues.
func (e *Engine) OnFrame(frame int, dt time.Duration) {
	e.call("on_frame", lua.LNumber(frame), lua.LNumber(dt.Seconds()))
}

// OnKey calls the global on_key(name, ctrl) if a script defines it.
func (e *Engine) OnKey(ev event.KeyPressed) {
	name := ev.Key.String()
	if ev.Key == event.KeyRune {
		name = string(ev.Rune)
	}
	e.call("on_key", lua.LString(name), lua.LBool(ev.Ctrl))
}

func (e *Engine) call(name string, args ...lua.LValue) {
	fn := e.vm.GetGlobal(name)
	if fn == lua.LNil {
		return
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, args...); err != nil {
		e.log.Error("腳本執行錯誤", zap.String("func", name), zap.Error(err))
	}
}

func (e *Engine) register() {
	api := e.vm.SetFuncs(e.vm.NewTable(), map[string]lua.LGFunction{
		"view":     e.luaView,
		"material": e.luaMaterial,
		"mesh":     e.luaMesh,
		"compute":  e.luaCompute,
		"sound":    e.luaSound,
		"submit":   e.luaSubmit,
		"dispatch": e.luaDispatch,
		"uniform":  e.luaUniform,
		"camera":   e.luaCamera,
		"move":     e.luaMove,
		"spin":     e.luaSpin,
		"hide":     e.luaHidden(true),
		"show":     e.luaHidden(false),
		"play":     e.luaPlay,
		"stop":     e.luaStop,
		"time":     e.luaTime,
		"log":      e.luaLog,
	})
	e.vm.SetGlobal("vortex", api)
}

// ── Lookups ───────────────────────────────────────────────────────
// Handles cross into Lua as plain numbers; unknown names return nil.

func pushHandle[T any](L *lua.LState, h handle.Strong[T], ok bool) int {
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LNumber(h.Raw()))
	return 1
}

func checkHandle[T any](L *lua.LState, n int) handle.Strong[T] {
	return handle.FromRaw[T](uint32(L.CheckNumber(n)))
}

func (e *Engine) luaView(L *lua.LState) int {
	h, ok := e.host.Resources.Views[L.CheckString(1)]
	return pushHandle(L, h, ok)
}

func (e *Engine) luaMaterial(L *lua.LState) int {
	h, ok := e.host.Resources.Materials[L.CheckString(1)]
	return pushHandle(L, h, ok)
}

func (e *Engine) luaMesh(L *lua.LState) int {
	h, ok := e.host.Resources.Meshes[L.CheckString(1)]
	return pushHandle(L, h, ok)
}

func (e *Engine) luaCompute(L *lua.LState) int {
	h, ok := e.host.Resources.Compute[L.CheckString(1)]
	return pushHandle(L, h, ok)
}

// luaSound returns the source playing the named sound.
func (e *Engine) luaSound(L *lua.LState) int {
	h, ok := e.host.Resources.Sources[L.CheckString(1)]
	return pushHandle(L, h, ok)
}

// ── Rendering ─────────────────────────────────────────────────────

// vortex.submit(view, material, mesh, x, y, z [, layer])
func (e *Engine) luaSubmit(L *lua.LState) int {
	r := e.host.Renderer
	view := checkHandle[render.View](L, 1)
	material := checkHandle[render.Material](L, 2)
	mesh := checkHandle[render.Mesh](L, 3)
	pos := checkVec3(L, 4)
	layer, err := drawcall.ParseLayer(L.OptString(7, ""))
	if err != nil {
		L.ArgError(7, err.Error())
	}
	if layer == drawcall.LayerPostProcess {
		L.ArgError(7, "postprocess layer is reserved for effects")
	}
	if _, ok := r.View(view); !ok {
		L.ArgError(1, "invalid view "+view.String())
	}
	if _, ok := r.Material(material); !ok {
		L.ArgError(2, "invalid material "+material.String())
	}
	if _, ok := r.Mesh(mesh); !ok {
		L.ArgError(3, "invalid mesh "+mesh.String())
	}
	r.Submit(view, layer, material, mgl32.Translate3D(pos[0], pos[1], pos[2]), mesh)
	return 0
}

// vortex.dispatch(shader, x [, y, z])
func (e *Engine) luaDispatch(L *lua.LState) int {
	shader := checkHandle[render.ComputeShader](L, 1)
	if _, ok := e.host.Renderer.ComputeShader(shader); !ok {
		L.ArgError(1, "invalid compute shader "+shader.String())
	}
	var groups [3]uint32
	for i, n := range []int{L.CheckInt(2), L.OptInt(3, 1), L.OptInt(4, 1)} {
		if n < 0 {
			L.ArgError(i+2, "negative group count")
		}
		groups[i] = uint32(n)
	}
	if err := e.host.Renderer.SubmitCompute(shader, groups); err != nil {
		L.RaiseError("dispatch: %s", err)
	}
	return 0
}

// vortex.uniform(material, name, value...) takes one to four numbers.
func (e *Engine) luaUniform(L *lua.LState) int {
	material := checkHandle[render.Material](L, 1)
	name := L.CheckString(2)
	var vals []float32
	for i := 3; i <= L.GetTop(); i++ {
		vals = append(vals, float32(L.CheckNumber(i)))
	}
	var v any
	switch len(vals) {
	case 1:
		v = vals[0]
	case 2:
		v = mgl32.Vec2{vals[0], vals[1]}
	case 3:
		v = mgl32.Vec3{vals[0], vals[1], vals[2]}
	case 4:
		v = mgl32.Vec4{vals[0], vals[1], vals[2], vals[3]}
	default:
		L.ArgError(3, "expected 1 to 4 numbers")
	}
	if _, ok := e.host.Renderer.Material(material); !ok {
		L.ArgError(1, "invalid material "+material.String())
	}
	e.host.Renderer.SetMaterialUniform(material, name, v)
	return 0
}

// vortex.camera(view_name, ex, ey, ez [, tx, ty, tz]) moves a scene camera.
func (e *Engine) luaCamera(L *lua.LState) int {
	name := L.CheckString(1)
	eye := checkVec3(L, 2)
	c, ok := e.host.World.Camera(name)
	if !ok {
		L.ArgError(1, "unknown camera "+name)
	}
	c.Eye = eye
	if L.GetTop() >= 5 {
		c.Target = checkVec3(L, 5)
	}
	e.host.Renderer.SetViewCamera(c.View, c.Eye, c.Target)
	return 0
}

// ── World ─────────────────────────────────────────────────────────

func (e *Engine) instance(L *lua.LState) *world.Instance {
	name := L.CheckString(1)
	in, ok := e.host.World.Instance(name)
	if !ok {
		L.ArgError(1, "unknown object "+name)
	}
	return in
}

func (e *Engine) luaMove(L *lua.LState) int {
	in := e.instance(L)
	in.Position = checkVec3(L, 2)
	return 0
}

func (e *Engine) luaSpin(L *lua.LState) int {
	in := e.instance(L)
	in.Spin = checkVec3(L, 2)
	return 0
}

func (e *Engine) luaHidden(hidden bool) lua.LGFunction {
	return func(L *lua.LState) int {
		e.instance(L).Hidden = hidden
		return 0
	}
}

// vortex.time() returns elapsed seconds and the frame count.
func (e *Engine) luaTime(L *lua.LState) int {
	L.Push(lua.LNumber(e.host.World.Elapsed().Seconds()))
	L.Push(lua.LNumber(e.host.World.Frames()))
	return 2
}

// ── Audio ─────────────────────────────────────────────────────────

func (e *Engine) luaPlay(L *lua.LState) int {
	return e.audioCall(L, (*audio.System).Play)
}

func (e *Engine) luaStop(L *lua.LState) int {
	return e.audioCall(L, (*audio.System).Stop)
}

func (e *Engine) audioCall(L *lua.LState, fn func(*audio.System, audio.SourceHandle) error) int {
	src := checkHandle[audio.Source](L, 1)
	if e.host.Audio == nil {
		return 0
	}
	if err := fn(e.host.Audio, src); err != nil {
		L.ArgError(1, err.Error())
	}
	return 0
}

func (e *Engine) luaLog(L *lua.LState) int {
	e.log.Info("lua", zap.String("msg", L.CheckString(1)))
	return 0
}

func checkVec3(L *lua.LState, n int) mgl32.Vec3 {
	return mgl32.Vec3{
		float32(L.CheckNumber(n)),
		float32(L.CheckNumber(n + 1)),
		float32(L.CheckNumber(n + 2)),
	}
}

package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/gopxl/beep/speaker"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vortexengine/vortex/internal/audio"
	"github.com/vortexengine/vortex/internal/config"
	"github.com/vortexengine/vortex/internal/core/event"
	coresys "github.com/vortexengine/vortex/internal/core/system"
	"github.com/vortexengine/vortex/internal/data"
	"github.com/vortexengine/vortex/internal/jobs"
	"github.com/vortexengine/vortex/internal/render"
	"github.com/vortexengine/vortex/internal/render/headless"
	"github.com/vortexengine/vortex/internal/scripting"
	"github.com/vortexengine/vortex/internal/system"
	"github.com/vortexengine/vortex/internal/window"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(name string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m              Vortex  v0.1.0               \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m         Go 遊戲引擎 · 渲染/音訊/工作       \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1m專案:\033[0m %s\n\n", name)
}

// displayWidth counts CJK characters as two columns.
func displayWidth(s string) int {
	w := 0
	for _, r := range s {
		if r > 0x7F {
			w += 2
		} else {
			w++
		}
	}
	return w
}

func printSection(title string) {
	lineLen := 46 - displayWidth(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - displayWidth(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Engine ────────────────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/engine.toml"
	if p := os.Getenv("VORTEX_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger; the terminal window owns stdout
	if cfg.Window.Backend == "terminal" && cfg.Logging.File == "" {
		cfg.Logging.File = "vortex.log"
	}
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Engine.Name)

	// 3. Devices
	printSection("裝置")

	var win window.Backend
	switch cfg.Window.Backend {
	case "terminal":
		win = window.NewTerminal(nil, cfg.Window.Title, log)
	default:
		win = window.NewHeadless(cfg.Window.Title, cfg.Window.Width, cfg.Window.Height)
	}
	printOK(fmt.Sprintf("視窗後端 %s", cfg.Window.Backend))

	backend := headless.New(log)
	printOK(fmt.Sprintf("渲染後端 %s", cfg.Renderer.Backend))

	var (
		mixer    *audio.Mixer
		audioSys *audio.System
	)
	if cfg.Audio.Enabled {
		mixer = audio.NewMixer(cfg.Audio.SampleRate)
		audioSys = audio.NewSystem(mixer, cfg.Audio.DebugHandles, log)
		audioSys.SetListenerGain(cfg.Audio.MasterGain)
		defer audioSys.Shutdown()
		if cfg.Audio.Output == "speaker" {
			rate := mixer.SampleRate()
			if err := speaker.Init(rate, rate.N(time.Duration(cfg.Audio.BufferMillis)*time.Millisecond)); err != nil {
				return fmt.Errorf("init speaker: %w", err)
			}
			speaker.Play(mixer)
			defer speaker.Close()
		}
		printOK(fmt.Sprintf("音訊輸出 %s (%d Hz)", cfg.Audio.Output, cfg.Audio.SampleRate))
	}

	workers := cfg.Jobs.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	pool := jobs.New(workers, log)
	defer pool.Close()
	printStat("工作執行緒", pool.Workers())

	// 4. Scene
	printSection("場景")

	scene, err := data.LoadScene(cfg.Engine.Scene)
	if err != nil {
		return fmt.Errorf("load scene: %w", err)
	}

	if err := win.Open(); err != nil {
		return fmt.Errorf("open window: %w", err)
	}
	defer win.Close()
	win.SetCursorVisible(cfg.Window.Cursor)

	width, height := win.Size()
	renderer, err := render.New(backend, cfg.Renderer, render.Viewport{Width: width, Height: height}, log)
	if err != nil {
		return fmt.Errorf("init renderer: %w", err)
	}
	defer renderer.Shutdown()

	res, state, err := scene.Build(renderer, audioSys, cfg.Jobs.ChunkSize)
	if err != nil {
		return fmt.Errorf("build scene: %w", err)
	}
	defer res.Release(renderer, audioSys)
	printStat("視圖", len(res.Views))
	printStat("材質", len(res.Materials))
	printStat("網格", len(res.Meshes))
	printStat("計算著色器", len(res.Compute))
	printStat("後處理", len(res.Effects))
	printStat("音效", len(res.Sounds))
	printStat("物件", state.Len())

	if audioSys != nil {
		for _, src := range res.Autoplay {
			if err := audioSys.Play(src); err != nil {
				log.Warn("自動播放失敗", zap.Error(err))
			}
		}
	}

	// 5. Scripts
	engine, err := scripting.NewEngine(cfg.Engine.ScriptsDir, scripting.Host{
		Renderer:  renderer,
		Audio:     audioSys,
		World:     state,
		Resources: res,
	}, log)
	if err != nil {
		return fmt.Errorf("init scripting: %w", err)
	}
	defer engine.Close()
	printOK(fmt.Sprintf("腳本目錄 %s", cfg.Engine.ScriptsDir))

	// 6. Systems
	bus := event.NewBus()
	bus.SubscribeAll(renderer.OnEvent)

	runner := coresys.NewRunner()
	renderSys := system.NewRenderSystem(renderer, state, res, log)
	runner.Register(system.NewInputSystem(win, bus))
	runner.Register(system.NewScriptSystem(engine, bus))
	runner.Register(system.NewAnimateSystem(state, pool, renderer))
	if mixer != nil && cfg.Audio.Output == "none" {
		runner.Register(system.NewAudioSystem(mixer, mixer.SampleRate()))
	}
	runner.Register(renderSys)
	runner.Register(system.NewPresentSystem(win, renderSys.Last, renderer.Stats, runner, cfg.Engine.StatsEvery, log))

	// 7. Frame loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Engine.FrameRate)
	defer ticker.Stop()

	printSection("引擎就緒")
	printReady(fmt.Sprintf("畫面迴圈啟動 (frame: %s)", cfg.Engine.FrameRate))
	fmt.Println()

	frames := 0
	last := time.Now()
	for {
		select {
		case now := <-ticker.C:
			runner.Tick(now.Sub(last))
			last = now
			frames++
			if win.ShouldClose() {
				log.Info("視窗已關閉", zap.Int("frames", frames))
				return nil
			}
			if cfg.Engine.MaxFrames > 0 && frames >= cfg.Engine.MaxFrames {
				log.Info("已達最大畫面數", zap.Int("frames", frames), zap.Stringer("stats", renderer.Stats()))
				return nil
			}
		case sig := <-shutdownCh:
			log.Info("收到關閉信號", zap.String("signal", sig.String()))
			return nil
		}
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	if cfg.File != "" {
		zapCfg.OutputPaths = []string{cfg.File}
		zapCfg.ErrorOutputPaths = []string{cfg.File}
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}

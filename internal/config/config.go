package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Engine   EngineConfig   `toml:"engine"`
	Window   WindowConfig   `toml:"window"`
	Renderer RendererConfig `toml:"renderer"`
	Audio    AudioConfig    `toml:"audio"`
	Jobs     JobsConfig     `toml:"jobs"`
	Logging  LoggingConfig  `toml:"logging"`
}

type EngineConfig struct {
	Name       string        `toml:"name"`
	FrameRate  time.Duration `toml:"frame_rate"`  // time per frame
	MaxFrames  int           `toml:"max_frames"`  // 0 = run until the window closes
	Scene      string        `toml:"scene"`       // YAML scene manifest
	ScriptsDir string        `toml:"scripts_dir"` // *.lua loaded at startup
	StatsEvery int           `toml:"stats_every"` // frames between stats log lines, 0 = never
	StartTime  int64         // set at boot, not from config
}

type WindowConfig struct {
	Backend string `toml:"backend"` // "terminal" or "headless"
	Title   string `toml:"title"`
	Width   int    `toml:"width"`
	Height  int    `toml:"height"`
	Cursor  bool   `toml:"cursor"`
}

type RendererConfig struct {
	Backend      string     `toml:"backend"` // only "headless" ships in-tree
	DebugHandles bool       `toml:"debug_handles"`
	ClearColor   [4]float32 `toml:"clear_color"`
	LogCalls     bool       `toml:"log_calls"` // debug-log every backend call
}

type AudioConfig struct {
	Enabled      bool    `toml:"enabled"`
	Output       string  `toml:"output"` // "speaker" or "none"
	SampleRate   int     `toml:"sample_rate"`
	BufferMillis int     `toml:"buffer_millis"`
	MasterGain   float64 `toml:"master_gain"` // 0.0-1.0
	DebugHandles bool    `toml:"debug_handles"`
}

type JobsConfig struct {
	Workers   int `toml:"workers"` // 0 = GOMAXPROCS
	ChunkSize int `toml:"chunk_size"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
	File   string `toml:"file"`   // empty = stderr; the terminal window needs a file
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := Defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.Engine.StartTime = time.Now().Unix()
	return cfg, nil
}

// Defaults returns the configuration used for every key a file leaves out.
func Defaults() *Config {
	return &Config{
		Engine: EngineConfig{
			Name:       "Vortex",
			FrameRate:  16 * time.Millisecond,
			Scene:      "assets/scene.yaml",
			ScriptsDir: "scripts",
			StatsEvery: 300,
		},
		Window: WindowConfig{
			Backend: "headless",
			Title:   "Vortex",
			Width:   1280,
			Height:  720,
		},
		Renderer: RendererConfig{
			Backend:      "headless",
			DebugHandles: true,
			ClearColor:   [4]float32{0.05, 0.05, 0.08, 1},
		},
		Audio: AudioConfig{
			Enabled:      true,
			Output:       "none",
			SampleRate:   44100,
			BufferMillis: 50,
			MasterGain:   0.8,
		},
		Jobs: JobsConfig{
			ChunkSize: 64,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func (c *Config) validate() error {
	if c.Engine.FrameRate <= 0 {
		return fmt.Errorf("engine.frame_rate must be positive, got %s", c.Engine.FrameRate)
	}
	switch c.Window.Backend {
	case "terminal", "headless":
	default:
		return fmt.Errorf("unknown window.backend %q", c.Window.Backend)
	}
	if c.Renderer.Backend != "headless" {
		return fmt.Errorf("unknown renderer.backend %q", c.Renderer.Backend)
	}
	switch c.Audio.Output {
	case "speaker", "none":
	default:
		return fmt.Errorf("unknown audio.output %q", c.Audio.Output)
	}
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio.sample_rate must be positive, got %d", c.Audio.SampleRate)
	}
	if c.Jobs.ChunkSize <= 0 {
		return fmt.Errorf("jobs.chunk_size must be positive, got %d", c.Jobs.ChunkSize)
	}
	return nil
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "engine.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[engine]
frame_rate = "20ms"
max_frames = 120
scene = "demo.yaml"

[window]
backend = "terminal"

[renderer]
debug_handles = false
clear_color = [1.0, 0.0, 0.0, 1.0]

[audio]
output = "speaker"
master_gain = 0.5

[jobs]
chunk_size = 32

[logging]
level = "debug"
file = "vortex.log"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 20*time.Millisecond, cfg.Engine.FrameRate)
	assert.Equal(t, 120, cfg.Engine.MaxFrames)
	assert.Equal(t, "demo.yaml", cfg.Engine.Scene)
	assert.Equal(t, "scripts", cfg.Engine.ScriptsDir, "unset keys keep defaults")
	assert.Equal(t, "terminal", cfg.Window.Backend)
	assert.False(t, cfg.Renderer.DebugHandles)
	assert.Equal(t, [4]float32{1, 0, 0, 1}, cfg.Renderer.ClearColor)
	assert.Equal(t, "speaker", cfg.Audio.Output)
	assert.Equal(t, 0.5, cfg.Audio.MasterGain)
	assert.Equal(t, 44100, cfg.Audio.SampleRate)
	assert.Equal(t, 32, cfg.Jobs.ChunkSize)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "vortex.log", cfg.Logging.File)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.NotZero(t, cfg.Engine.StartTime)
}

func TestLoadRejectsBadValues(t *testing.T) {
	for name, body := range map[string]string{
		"window":     "[window]\nbackend = \"glfw\"\n",
		"renderer":   "[renderer]\nbackend = \"vulkan\"\n",
		"audio":      "[audio]\noutput = \"alsa\"\n",
		"frame rate": "[engine]\nframe_rate = \"0s\"\n",
		"syntax":     "[engine\n",
		"chunk size": "[jobs]\nchunk_size = 0\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorContains(t, err, "read config")
}

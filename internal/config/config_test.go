package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"shortsync/internal/config"
)

func TestLoadDefaultConfigExpandsOutputDir(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved != filepath.Join(tempHome, ".config", "shortsync", "config.toml") {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if !filepath.IsAbs(cfg.Paths.OutputDir) || filepath.Base(cfg.Paths.OutputDir) != "outputs" {
		t.Fatalf("unexpected output dir: %q", cfg.Paths.OutputDir)
	}
	if cfg.Synthesis.Engine != config.EngineEspeak || cfg.Synthesis.SpeechRate != 150 {
		t.Fatalf("unexpected synthesis defaults: %+v", cfg.Synthesis)
	}
	if cfg.Video.Width != 1080 || cfg.Video.Height != 1920 || cfg.Video.FPS != 30 {
		t.Fatalf("unexpected video defaults: %+v", cfg.Video)
	}
	if cfg.SynthesisTimeout() != 120*time.Second {
		t.Fatalf("unexpected synthesis timeout: %s", cfg.SynthesisTimeout())
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	if info, err := os.Stat(cfg.Paths.OutputDir); err != nil || !info.IsDir() {
		t.Fatalf("expected output dir to exist: %v", err)
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "shortsync.toml")

	type payload struct {
		Paths struct {
			OutputDir string `toml:"output_dir"`
		} `toml:"paths"`
		Synthesis struct {
			Engine string `toml:"engine"`
			URL    string `toml:"url"`
		} `toml:"synthesis"`
		Script struct {
			MaxChars int    `toml:"max_chars"`
			Overflow string `toml:"overflow"`
		} `toml:"script"`
	}
	custom := payload{}
	custom.Paths.OutputDir = filepath.Join(tempDir, "renders")
	custom.Synthesis.Engine = " HTTP "
	custom.Synthesis.URL = "http://127.0.0.1:8004/tts"
	custom.Script.MaxChars = 80
	custom.Script.Overflow = "Reject"

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if cfg.Paths.OutputDir != filepath.Join(tempDir, "renders") {
		t.Fatalf("unexpected output dir: %q", cfg.Paths.OutputDir)
	}
	if cfg.Synthesis.Engine != config.EngineHTTP {
		t.Fatalf("expected engine normalized to http, got %q", cfg.Synthesis.Engine)
	}
	if cfg.Script.Overflow != config.OverflowReject || cfg.Script.MaxChars != 80 {
		t.Fatalf("unexpected script config: %+v", cfg.Script)
	}
}

func TestLoadOutputDirFromEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	want := filepath.Join(t.TempDir(), "from-env")
	t.Setenv("SHORTSYNC_OUTPUT_DIR", want)

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.OutputDir != want {
		t.Fatalf("expected env output dir %q, got %q", want, cfg.Paths.OutputDir)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "shortsync.toml")
	if err := os.WriteFile(configPath, []byte("[video]\nframerate = 25\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected unknown key to fail parsing")
	}
}

func TestSampleConfigLoads(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	configPath := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(configPath); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	cfg, _, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if cfg.Caption.Position != config.PositionCenter {
		t.Fatalf("unexpected caption position: %q", cfg.Caption.Position)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"http without url", func(c *config.Config) { c.Synthesis.Engine = config.EngineHTTP }, "synthesis.url"},
		{"relative url", func(c *config.Config) {
			c.Synthesis.Engine = config.EngineHTTP
			c.Synthesis.URL = "tts"
		}, "absolute URL"},
		{"unknown engine", func(c *config.Config) { c.Synthesis.Engine = "festival" }, "synthesis.engine"},
		{"zero rate", func(c *config.Config) { c.Synthesis.SpeechRate = 0 }, "synthesis.speech_rate"},
		{"odd width", func(c *config.Config) { c.Video.Width = 1081 }, "even"},
		{"zero fps", func(c *config.Config) { c.Video.FPS = 0 }, "video.fps"},
		{"bad position", func(c *config.Config) { c.Caption.Position = "top" }, "caption.position"},
		{"bad overflow", func(c *config.Config) { c.Script.Overflow = "wrap" }, "script.overflow"},
		{"zero timeout", func(c *config.Config) { c.Timeouts.Render = 0 }, "timeouts.render"},
		{"zero workers", func(c *config.Config) { c.Workers.Concurrency = 0 }, "workers.concurrency"},
		{"bad scheme", func(c *config.Config) { c.Jobs.IDScheme = "timestamp" }, "jobs.id_scheme"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestEncodeRoundTripsThroughLoad(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg := config.Default()
	cfg.Paths.OutputDir = t.TempDir()
	cfg.Workers.Concurrency = 4

	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	path := filepath.Join(t.TempDir(), "shortsync.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	loaded, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load encoded config: %v", err)
	}
	if loaded.Workers.Concurrency != 4 {
		t.Fatalf("expected concurrency 4, got %d", loaded.Workers.Concurrency)
	}
}

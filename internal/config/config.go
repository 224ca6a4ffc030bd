package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
}

// Synthesis selects and configures the speech synthesis engine.
type Synthesis struct {
	Engine     string `toml:"engine"`
	Binary     string `toml:"binary"`
	Voice      string `toml:"voice"`
	SpeechRate int    `toml:"speech_rate"`
	Pitch      int    `toml:"pitch"`
	URL        string `toml:"url"`
}

// Media names the ffmpeg toolkit binaries.
type Media struct {
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	FFprobeBinary string `toml:"ffprobe_binary"`
}

// Video contains the rendered video track geometry and encoder settings.
type Video struct {
	Width       int    `toml:"width"`
	Height      int    `toml:"height"`
	FPS         int    `toml:"fps"`
	Background  string `toml:"background"`
	Codec       string `toml:"codec"`
	Preset      string `toml:"preset"`
	CRF         int    `toml:"crf"`
	PixelFormat string `toml:"pixel_format"`
}

// Caption controls the overlaid script text. A FontSize of 0 scales the size
// by caption length.
type Caption struct {
	FontColor   string `toml:"font_color"`
	FontFile    string `toml:"font_file"`
	FontSize    int    `toml:"font_size"`
	Position    string `toml:"position"`
	WrapChars   int    `toml:"wrap_chars"`
	LineSpacing int    `toml:"line_spacing"`
}

// Script bounds the accepted script text.
type Script struct {
	MaxChars int    `toml:"max_chars"`
	Overflow string `toml:"overflow"`
}

// Timeouts holds per-stage external process limits in seconds.
type Timeouts struct {
	Synthesis int `toml:"synthesis"`
	Normalize int `toml:"normalize"`
	Probe     int `toml:"probe"`
	Render    int `toml:"render"`
}

// Workers bounds concurrent render jobs.
type Workers struct {
	Concurrency int `toml:"concurrency"`
}

// Jobs configures job identity.
type Jobs struct {
	IDScheme string `toml:"id_scheme"`
}

// Pipeline contains orchestrator behaviour switches.
type Pipeline struct {
	KeepFailedArtifacts bool `toml:"keep_failed_artifacts"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for shortsync.
//
// Configuration sections by subsystem:
//   - Paths: output and log directories
//   - Synthesis: speech engine selection, voice and rate
//   - Media: ffmpeg/ffprobe binaries
//   - Video: frame geometry, frame rate and encoder
//   - Caption: overlay text styling
//   - Script: length bound and overflow policy
//   - Timeouts: per-stage process limits
//   - Workers: batch concurrency
//   - Jobs: job id scheme
//   - Pipeline: failure cleanup
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Synthesis Synthesis `toml:"synthesis"`
	Media     Media     `toml:"media"`
	Video     Video     `toml:"video"`
	Caption   Caption   `toml:"caption"`
	Script    Script    `toml:"script"`
	Timeouts  Timeouts  `toml:"timeouts"`
	Workers   Workers   `toml:"workers"`
	Jobs      Jobs      `toml:"jobs"`
	Pipeline  Pipeline  `toml:"pipeline"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("shortsync.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the output and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// SynthesisTimeout returns the synthesis stage process limit.
func (c *Config) SynthesisTimeout() time.Duration {
	return seconds(c.Timeouts.Synthesis)
}

// NormalizeTimeout returns the normalization stage process limit.
func (c *Config) NormalizeTimeout() time.Duration {
	return seconds(c.Timeouts.Normalize)
}

// ProbeTimeout returns the duration probe process limit.
func (c *Config) ProbeTimeout() time.Duration {
	return seconds(c.Timeouts.Probe)
}

// RenderTimeout returns the render stage process limit.
func (c *Config) RenderTimeout() time.Duration {
	return seconds(c.Timeouts.Render)
}

func seconds(value int) time.Duration {
	return time.Duration(value) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the embedded sample configuration text.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}

package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeSynthesis(); err != nil {
		return err
	}
	c.normalizeMedia()
	c.normalizeVideo()
	if err := c.normalizeCaption(); err != nil {
		return err
	}
	c.normalizeScript()
	c.Jobs.IDScheme = strings.ToLower(strings.TrimSpace(c.Jobs.IDScheme))
	if c.Jobs.IDScheme == "" {
		c.Jobs.IDScheme = defaultIDScheme
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("SHORTSYNC_OUTPUT_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.OutputDir = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	var err error
	if c.Paths.OutputDir, err = expandPath(strings.TrimSpace(c.Paths.OutputDir)); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeSynthesis() error {
	c.Synthesis.Engine = strings.ToLower(strings.TrimSpace(c.Synthesis.Engine))
	if c.Synthesis.Engine == "" {
		c.Synthesis.Engine = defaultSynthesisEngine
	}
	c.Synthesis.Binary = strings.TrimSpace(c.Synthesis.Binary)
	if c.Synthesis.Binary == "" && c.Synthesis.Engine == EngineEspeak {
		c.Synthesis.Binary = defaultEspeakBinary
	}
	c.Synthesis.Voice = strings.TrimSpace(c.Synthesis.Voice)
	if c.Synthesis.Voice == "" {
		c.Synthesis.Voice = defaultVoice
	}
	c.Synthesis.URL = strings.TrimSpace(c.Synthesis.URL)
	if c.Synthesis.URL == "" {
		if value, ok := os.LookupEnv("SHORTSYNC_SYNTH_URL"); ok {
			c.Synthesis.URL = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeMedia() {
	c.Media.FFmpegBinary = strings.TrimSpace(c.Media.FFmpegBinary)
	if c.Media.FFmpegBinary == "" {
		c.Media.FFmpegBinary = defaultFFmpegBinary
	}
	c.Media.FFprobeBinary = strings.TrimSpace(c.Media.FFprobeBinary)
	if c.Media.FFprobeBinary == "" {
		c.Media.FFprobeBinary = defaultFFprobeBinary
	}
}

func (c *Config) normalizeVideo() {
	c.Video.Background = strings.TrimSpace(c.Video.Background)
	if c.Video.Background == "" {
		c.Video.Background = defaultVideoBackground
	}
	c.Video.Codec = strings.TrimSpace(c.Video.Codec)
	if c.Video.Codec == "" {
		c.Video.Codec = defaultVideoCodec
	}
	c.Video.Preset = strings.TrimSpace(c.Video.Preset)
	if c.Video.Preset == "" {
		c.Video.Preset = defaultVideoPreset
	}
	c.Video.PixelFormat = strings.TrimSpace(c.Video.PixelFormat)
	if c.Video.PixelFormat == "" {
		c.Video.PixelFormat = defaultVideoPixelFormat
	}
}

func (c *Config) normalizeCaption() error {
	c.Caption.FontColor = strings.TrimSpace(c.Caption.FontColor)
	if c.Caption.FontColor == "" {
		c.Caption.FontColor = defaultCaptionColor
	}
	c.Caption.Position = strings.ToLower(strings.TrimSpace(c.Caption.Position))
	if c.Caption.Position == "" {
		c.Caption.Position = defaultCaptionPosition
	}
	if c.Caption.WrapChars <= 0 {
		c.Caption.WrapChars = defaultCaptionWrapChars
	}
	if c.Caption.LineSpacing < 0 {
		c.Caption.LineSpacing = 0
	}
	var err error
	if c.Caption.FontFile, err = expandPath(strings.TrimSpace(c.Caption.FontFile)); err != nil {
		return fmt.Errorf("caption.font_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeScript() {
	c.Script.Overflow = strings.ToLower(strings.TrimSpace(c.Script.Overflow))
	if c.Script.Overflow == "" {
		c.Script.Overflow = defaultScriptOverflow
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

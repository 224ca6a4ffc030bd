package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSynthesis(); err != nil {
		return err
	}
	if err := c.validateVideo(); err != nil {
		return err
	}
	if err := c.validateCaption(); err != nil {
		return err
	}
	if err := c.validateScript(); err != nil {
		return err
	}
	if err := ensurePositiveMap(map[string]int{
		"timeouts.synthesis":  c.Timeouts.Synthesis,
		"timeouts.normalize":  c.Timeouts.Normalize,
		"timeouts.probe":      c.Timeouts.Probe,
		"timeouts.render":     c.Timeouts.Render,
		"workers.concurrency": c.Workers.Concurrency,
	}); err != nil {
		return err
	}
	switch c.Jobs.IDScheme {
	case IDSchemeUUID, IDSchemeCounter:
	default:
		return fmt.Errorf("jobs.id_scheme must be %q or %q, got %q", IDSchemeUUID, IDSchemeCounter, c.Jobs.IDScheme)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	return nil
}

func (c *Config) validateSynthesis() error {
	switch c.Synthesis.Engine {
	case EngineEspeak:
		if c.Synthesis.Binary == "" {
			return errors.New("synthesis.binary must be set when synthesis.engine is espeak")
		}
	case EngineHTTP:
		if c.Synthesis.URL == "" {
			return errors.New("synthesis.url must be set when synthesis.engine is http (or set SHORTSYNC_SYNTH_URL)")
		}
		parsed, err := url.Parse(c.Synthesis.URL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("synthesis.url %q is not an absolute URL", c.Synthesis.URL)
		}
	default:
		return fmt.Errorf("synthesis.engine must be %q or %q, got %q", EngineEspeak, EngineHTTP, c.Synthesis.Engine)
	}
	if c.Synthesis.SpeechRate <= 0 {
		return errors.New("synthesis.speech_rate must be positive (words per minute)")
	}
	if c.Synthesis.Pitch < 0 || c.Synthesis.Pitch > 99 {
		return errors.New("synthesis.pitch must be between 0 and 99")
	}
	return nil
}

func (c *Config) validateVideo() error {
	if err := ensurePositiveMap(map[string]int{
		"video.width":  c.Video.Width,
		"video.height": c.Video.Height,
		"video.fps":    c.Video.FPS,
	}); err != nil {
		return err
	}
	if c.Video.Width%2 != 0 || c.Video.Height%2 != 0 {
		return errors.New("video.width and video.height must be even")
	}
	if c.Video.CRF < 0 || c.Video.CRF > 51 {
		return errors.New("video.crf must be between 0 and 51")
	}
	return nil
}

func (c *Config) validateCaption() error {
	switch c.Caption.Position {
	case PositionCenter, PositionUpperCenter, PositionLowerCenter:
	default:
		return fmt.Errorf("caption.position must be one of %q, %q, %q", PositionCenter, PositionUpperCenter, PositionLowerCenter)
	}
	if c.Caption.FontSize < 0 {
		return errors.New("caption.font_size must be >= 0 (0 scales by caption length)")
	}
	return nil
}

func (c *Config) validateScript() error {
	if c.Script.MaxChars <= 0 {
		return errors.New("script.max_chars must be positive")
	}
	switch c.Script.Overflow {
	case OverflowTruncate, OverflowReject:
	default:
		return fmt.Errorf("script.overflow must be %q or %q, got %q", OverflowTruncate, OverflowReject, c.Script.Overflow)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

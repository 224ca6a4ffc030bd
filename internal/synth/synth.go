package synth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"shortsync/internal/config"
	"shortsync/internal/logging"
	"shortsync/internal/procexec"
	"shortsync/internal/services"
)

const (
	stageName = "synthesizing"
	// wavHeaderBytes is the size of a canonical RIFF/WAVE header; a file no
	// larger than this carries no samples.
	wavHeaderBytes = 44
)

// VoiceConfig fixes the voice and speaking rate so repeated synthesis of the
// same text yields the same audio length.
type VoiceConfig struct {
	Voice      string
	SpeechRate int
	Pitch      int
}

// Engine turns text into a WAV file at dest.
type Engine interface {
	Name() string
	Synthesize(ctx context.Context, text string, voice VoiceConfig, dest string) error
}

// Service validates input, drives an Engine, and verifies its output.
type Service struct {
	engine Engine
	voice  VoiceConfig
	logger *slog.Logger
}

// NewService constructs a synthesis service around engine.
func NewService(engine Engine, voice VoiceConfig, logger *slog.Logger) *Service {
	return &Service{
		engine: engine,
		voice:  voice,
		logger: logging.NewComponentLogger(logger, "synth"),
	}
}

// NewFromConfig selects the engine named by cfg.Synthesis.Engine.
func NewFromConfig(cfg *config.Config, runner procexec.Runner, client HTTPDoer, logger *slog.Logger) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("synth: nil config")
	}
	voice := VoiceConfig{
		Voice:      cfg.Synthesis.Voice,
		SpeechRate: cfg.Synthesis.SpeechRate,
		Pitch:      cfg.Synthesis.Pitch,
	}
	var engine Engine
	switch cfg.Synthesis.Engine {
	case config.EngineEspeak:
		engine = NewEspeakEngine(runner, cfg.Synthesis.Binary)
	case config.EngineHTTP:
		if client == nil {
			client = &http.Client{Timeout: cfg.SynthesisTimeout()}
		}
		engine = NewHTTPEngine(client, cfg.Synthesis.URL)
	default:
		return nil, fmt.Errorf("%w: unknown synthesis engine %q", services.ErrConfiguration, cfg.Synthesis.Engine)
	}
	return NewService(engine, voice, logger), nil
}

// Engine returns the configured engine.
func (s *Service) Engine() Engine {
	return s.engine
}

// Voice returns the voice configuration applied to every request.
func (s *Service) Voice() VoiceConfig {
	return s.voice
}

// Synthesize renders text to a WAV file at dest and returns dest. The engine
// writes to a temp file that only replaces dest once it holds a RIFF/WAVE
// payload with samples. Every failure carries services.ErrSynthesis.
func (s *Service) Synthesize(ctx context.Context, text, dest string) (string, error) {
	name := s.engine.Name()
	if strings.TrimSpace(text) == "" {
		return "", services.Wrap(services.ErrSynthesis, stageName, name, "script text is empty", services.ErrValidation)
	}
	if s.voice.SpeechRate <= 0 {
		return "", services.Wrap(services.ErrSynthesis, stageName, name, "speech rate must be positive", services.ErrConfiguration)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", services.Wrap(services.ErrSynthesis, stageName, name, "create output directory", err)
	}

	logger := logging.WithContext(ctx, s.logger)
	logger.Debug("synthesis started",
		logging.String("engine", name),
		logging.String("voice", s.voice.Voice),
		logging.Int("speech_rate", s.voice.SpeechRate),
		logging.Int("text_runes", len([]rune(text))),
	)

	tmp := filepath.Join(filepath.Dir(dest), "."+filepath.Base(dest)+".part")
	defer os.Remove(tmp)

	if err := s.engine.Synthesize(ctx, text, s.voice, tmp); err != nil {
		return "", services.Wrap(services.ErrSynthesis, stageName, name, "engine failed", err)
	}
	size, err := checkWAV(tmp)
	if err != nil {
		return "", services.Wrap(services.ErrSynthesis, stageName, name, "verify output", err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		return "", services.Wrap(services.ErrSynthesis, stageName, name, "finalize output", err)
	}

	logger.Info("speech synthesized",
		logging.String(logging.FieldEventType, "synthesis_complete"),
		logging.String("engine", name),
		logging.String("audio_path", dest),
		logging.Int64("output_bytes", size),
	)
	return dest, nil
}

// checkWAV returns the size of the WAV file at path, or an error when the
// file is missing, holds no samples or is not RIFF/WAVE at all (for example
// a JSON status page served with a 200).
func checkWAV(path string) (int64, error) {
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, errors.New("engine produced no output file")
	}
	if err != nil {
		return 0, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return 0, err
	}
	if info.Size() <= wavHeaderBytes {
		return 0, fmt.Errorf("engine produced empty audio (%d bytes)", info.Size())
	}
	magic := make([]byte, 12)
	if _, err := io.ReadFull(file, magic); err != nil {
		return 0, fmt.Errorf("read header: %w", err)
	}
	if string(magic[0:4]) != "RIFF" || string(magic[8:12]) != "WAVE" {
		return 0, fmt.Errorf("engine output is not a WAV file (starts with %q)", magic[:4])
	}
	return info.Size(), nil
}

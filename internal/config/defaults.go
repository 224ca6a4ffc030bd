package config

const (
	defaultConfigPath       = "~/.config/shortsync/config.toml"
	defaultOutputDir        = "outputs"
	defaultSynthesisEngine  = EngineEspeak
	defaultEspeakBinary     = "espeak"
	defaultVoice            = "en-us"
	defaultSpeechRate       = 150
	defaultPitch            = 50
	defaultFFmpegBinary     = "ffmpeg"
	defaultFFprobeBinary    = "ffprobe"
	defaultVideoWidth       = 1080
	defaultVideoHeight      = 1920
	defaultVideoFPS         = 30
	defaultVideoBackground  = "black"
	defaultVideoCodec       = "libx264"
	defaultVideoPreset      = "fast"
	defaultVideoCRF         = 23
	defaultVideoPixelFormat = "yuv420p"
	defaultCaptionColor     = "white"
	defaultCaptionPosition  = PositionCenter
	defaultCaptionWrapChars = 28
	defaultCaptionSpacing   = 12
	defaultScriptMaxChars   = 500
	defaultScriptOverflow   = OverflowTruncate
	defaultSynthesisTimeout = 120
	defaultNormalizeTimeout = 120
	defaultProbeTimeout     = 30
	defaultRenderTimeout    = 600
	defaultConcurrency      = 2
	defaultIDScheme         = IDSchemeUUID
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

// Synthesis engines.
const (
	EngineEspeak = "espeak"
	EngineHTTP   = "http"
)

// Script overflow policies.
const (
	OverflowTruncate = "truncate"
	OverflowReject   = "reject"
)

// Caption position presets.
const (
	PositionCenter      = "center"
	PositionUpperCenter = "upper-center"
	PositionLowerCenter = "lower-center"
)

// Job id schemes.
const (
	IDSchemeUUID    = "uuid"
	IDSchemeCounter = "counter"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
		},
		Synthesis: Synthesis{
			Engine:     defaultSynthesisEngine,
			Binary:     defaultEspeakBinary,
			Voice:      defaultVoice,
			SpeechRate: defaultSpeechRate,
			Pitch:      defaultPitch,
		},
		Media: Media{
			FFmpegBinary:  defaultFFmpegBinary,
			FFprobeBinary: defaultFFprobeBinary,
		},
		Video: Video{
			Width:       defaultVideoWidth,
			Height:      defaultVideoHeight,
			FPS:         defaultVideoFPS,
			Background:  defaultVideoBackground,
			Codec:       defaultVideoCodec,
			Preset:      defaultVideoPreset,
			CRF:         defaultVideoCRF,
			PixelFormat: defaultVideoPixelFormat,
		},
		Caption: Caption{
			FontColor:   defaultCaptionColor,
			Position:    defaultCaptionPosition,
			WrapChars:   defaultCaptionWrapChars,
			LineSpacing: defaultCaptionSpacing,
		},
		Script: Script{
			MaxChars: defaultScriptMaxChars,
			Overflow: defaultScriptOverflow,
		},
		Timeouts: Timeouts{
			Synthesis: defaultSynthesisTimeout,
			Normalize: defaultNormalizeTimeout,
			Probe:     defaultProbeTimeout,
			Render:    defaultRenderTimeout,
		},
		Workers: Workers{
			Concurrency: defaultConcurrency,
		},
		Jobs: Jobs{
			IDScheme: defaultIDScheme,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

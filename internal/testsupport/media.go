package testsupport

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"shortsync/internal/procexec"
	"shortsync/internal/services"
)

// Espeak's native output format.
const (
	RawSampleRate = 22050
	RawChannels   = 1
)

// FilterListing is the `ffmpeg -filters` excerpt the fake reports.
const FilterListing = `Filters:
 ... color             |->V       Provide an uniformly colored input.
 T.C drawtext          V->V       Draw text on top of video frames using libfreetype library.
`

// SpeechSeconds models how long the fake synthesizer talks: a fixed lead of
// silence plus one word every 60/rate seconds.
func SpeechSeconds(text string, rate int) float64 {
	if rate <= 0 {
		rate = 150
	}
	return 0.35 + float64(len(strings.Fields(text)))*60/float64(rate)
}

// Call records one fake process invocation.
type Call struct {
	Name string
	Args []string
}

type mediaEntry struct {
	kind       string
	sampleRate int
	channels   int
	codec      string
	seconds    float64
	width      int
	height     int
	fps        int
	frames     int
}

// FakeMedia is a procexec.Runner that stands in for espeak, ffmpeg and
// ffprobe. Synthesis and conversions write real files, and ffprobe answers
// with JSON describing what the fake wrote, so the whole pipeline runs
// without any media binaries installed.
type FakeMedia struct {
	mu      sync.Mutex
	calls   []Call
	entries map[string]mediaEntry

	// Missing names binaries that fail to start.
	Missing map[string]bool
	// Fail makes a binary exit with status 1 and the given stderr.
	Fail map[string]string
	// Delay holds a binary for the duration, or until ctx ends.
	Delay map[string]time.Duration
	// DriftFrames shifts the reported video stream length by whole frames.
	DriftFrames int
}

// NewFakeMedia constructs an empty fake.
func NewFakeMedia() *FakeMedia {
	return &FakeMedia{
		entries: make(map[string]mediaEntry),
		Missing: make(map[string]bool),
		Fail:    make(map[string]string),
		Delay:   make(map[string]time.Duration),
	}
}

// Calls returns a copy of every invocation so far.
func (f *FakeMedia) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallsTo returns the invocations of tool, matched by base name.
func (f *FakeMedia) CallsTo(tool string) []Call {
	var out []Call
	for _, call := range f.Calls() {
		if toolName(call.Name) == tool {
			out = append(out, call)
		}
	}
	return out
}

// Run implements procexec.Runner.
func (f *FakeMedia) Run(ctx context.Context, name string, args ...string) (procexec.Output, error) {
	tool := toolName(name)
	f.mu.Lock()
	f.calls = append(f.calls, Call{Name: name, Args: append([]string(nil), args...)})
	missing := f.Missing[tool]
	stderr, failing := f.Fail[tool]
	delay := f.Delay[tool]
	f.mu.Unlock()

	if missing {
		return procexec.Output{}, fmt.Errorf("%w: start %s: %w", services.ErrNotFound, name, exec.ErrNotFound)
	}
	if delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			if ctx.Err() == context.DeadlineExceeded {
				return procexec.Output{}, fmt.Errorf("%w: %s killed", services.ErrTimeout, name)
			}
			return procexec.Output{}, fmt.Errorf("%s: %w", name, ctx.Err())
		case <-timer.C:
		}
	}
	if failing {
		return procexec.Output{Stderr: []byte(stderr)}, fmt.Errorf("%w: %w", services.ErrExternalTool, &procexec.ExitError{Name: name, ExitCode: 1, Stderr: stderr})
	}

	if len(args) == 1 && (args[0] == "-version" || args[0] == "--version") {
		return procexec.Output{Stdout: []byte(tool + " version fake\n")}, nil
	}

	switch tool {
	case "espeak", "espeak-ng":
		return f.speak(name, args)
	case "ffmpeg":
		return f.ffmpeg(name, args)
	case "ffprobe":
		return f.ffprobe(name, args)
	default:
		return procexec.Output{}, fmt.Errorf("%w: start %s: %w", services.ErrNotFound, name, exec.ErrNotFound)
	}
}

func (f *FakeMedia) speak(name string, args []string) (procexec.Output, error) {
	dest := flagValue(args, "-w")
	rate, _ := strconv.Atoi(flagValue(args, "-s"))
	text := ""
	for i, arg := range args {
		if arg == "--" && i+1 < len(args) {
			text = strings.Join(args[i+1:], " ")
		}
	}
	if dest == "" {
		return exitFailure(name, "no output file")
	}
	seconds := SpeechSeconds(text, rate)
	if err := writeWAV(dest, RawSampleRate, RawChannels, seconds); err != nil {
		return exitFailure(name, err.Error())
	}
	f.record(dest, mediaEntry{kind: "audio", sampleRate: RawSampleRate, channels: RawChannels, codec: "pcm_s16le", seconds: seconds})
	return procexec.Output{}, nil
}

func (f *FakeMedia) ffmpeg(name string, args []string) (procexec.Output, error) {
	if len(args) == 0 {
		return exitFailure(name, "no arguments")
	}
	if args[len(args)-1] == "-filters" {
		return procexec.Output{Stdout: []byte(FilterListing)}, nil
	}
	dest := args[len(args)-1]
	inputs := flagValues(args, "-i")
	if len(inputs) == 0 {
		return exitFailure(name, "no input")
	}

	if flagValue(args, "-f") == "lavfi" {
		if len(inputs) < 2 {
			return exitFailure(name, "missing audio input")
		}
		audio, ok := f.lookup(inputs[1])
		if !ok {
			return exitFailure(name, inputs[1]+": No such file or directory")
		}
		width, height := parseSize(inputs[0])
		fps, _ := strconv.Atoi(flagValue(args, "-r"))
		frames, _ := strconv.Atoi(flagValue(args, "-frames:v"))
		if fps <= 0 || frames <= 0 {
			return exitFailure(name, "invalid frame settings")
		}
		if err := writePattern(dest, 4096); err != nil {
			return exitFailure(name, err.Error())
		}
		f.record(dest, mediaEntry{
			kind:       "video",
			sampleRate: audio.sampleRate,
			channels:   audio.channels,
			codec:      audio.codec,
			seconds:    audio.seconds,
			width:      width,
			height:     height,
			fps:        fps,
			frames:     frames,
		})
		return procexec.Output{}, nil
	}

	src, ok := f.lookup(inputs[0])
	if !ok {
		return exitFailure(name, inputs[0]+": Invalid data found when processing input")
	}
	rate, _ := strconv.Atoi(flagValue(args, "-ar"))
	channels, _ := strconv.Atoi(flagValue(args, "-ac"))
	codec := flagValue(args, "-c:a")
	if err := writeWAV(dest, rate, channels, src.seconds); err != nil {
		return exitFailure(name, err.Error())
	}
	f.record(dest, mediaEntry{kind: "audio", sampleRate: rate, channels: channels, codec: codec, seconds: src.seconds})
	return procexec.Output{}, nil
}

func (f *FakeMedia) ffprobe(name string, args []string) (procexec.Output, error) {
	if len(args) == 0 {
		return exitFailure(name, "no input")
	}
	path := args[len(args)-1]
	entry, ok := f.lookup(path)
	if !ok {
		return exitFailure(name, path+": Invalid data found when processing input")
	}
	var payload string
	switch entry.kind {
	case "video":
		videoSeconds := float64(entry.frames+f.DriftFrames) / float64(entry.fps)
		payload = fmt.Sprintf(`{"streams":[`+
			`{"index":0,"codec_name":"h264","codec_type":"video","width":%d,"height":%d,"pix_fmt":"yuv420p","r_frame_rate":"%d/1","nb_frames":"%d","duration":"%.6f"},`+
			`{"index":1,"codec_name":"%s","codec_type":"audio","sample_rate":"%d","channels":%d,"sample_fmt":"s16","bits_per_sample":16,"duration":"%.6f"}],`+
			`"format":{"filename":%q,"nb_streams":2,"format_name":"mov,mp4,m4a,3gp,3g2,mj2","duration":"%.6f","size":"4096"}}`,
			entry.width, entry.height, entry.fps, entry.frames+f.DriftFrames, videoSeconds,
			entry.codec, entry.sampleRate, entry.channels, entry.seconds,
			path, videoSeconds)
	default:
		payload = fmt.Sprintf(`{"streams":[`+
			`{"index":0,"codec_name":"%s","codec_type":"audio","sample_rate":"%d","channels":%d,"sample_fmt":"s16","bits_per_sample":16,"duration":"%.6f"}],`+
			`"format":{"filename":%q,"nb_streams":1,"format_name":"wav","duration":"%.6f"}}`,
			entry.codec, entry.sampleRate, entry.channels, entry.seconds, path, entry.seconds)
	}
	return procexec.Output{Stdout: []byte(payload)}, nil
}

// Seconds reports the audio length the fake recorded for path.
func (f *FakeMedia) Seconds(path string) (float64, bool) {
	entry, ok := f.lookup(path)
	return entry.seconds, ok
}

// Register describes an existing audio file so ffmpeg and ffprobe accept it.
func (f *FakeMedia) Register(path string, sampleRate, channels int, seconds float64) {
	f.record(path, mediaEntry{kind: "audio", sampleRate: sampleRate, channels: channels, codec: "pcm_s16le", seconds: seconds})
}

func (f *FakeMedia) record(path string, entry mediaEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[mediaKey(path)] = entry
}

// lookup finds the entry for path if the file still exists on disk.
func (f *FakeMedia) lookup(path string) (mediaEntry, bool) {
	if _, err := os.Stat(path); err != nil {
		return mediaEntry{}, false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[mediaKey(path)]
	return entry, ok
}

// mediaKey folds a ".name.part" temp file onto its final name so metadata
// survives the rename.
func mediaKey(path string) string {
	dir, base := filepath.Split(path)
	if strings.HasPrefix(base, ".") && strings.HasSuffix(base, ".part") {
		base = strings.TrimSuffix(strings.TrimPrefix(base, "."), ".part")
	}
	return filepath.Join(dir, base)
}

func toolName(name string) string {
	return filepath.Base(name)
}

func exitFailure(name, stderr string) (procexec.Output, error) {
	return procexec.Output{Stderr: []byte(stderr)}, fmt.Errorf("%w: %w", services.ErrExternalTool, &procexec.ExitError{Name: name, ExitCode: 1, Stderr: stderr})
}

func flagValue(args []string, flag string) string {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func flagValues(args []string, flag string) []string {
	var out []string
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag {
			out = append(out, args[i+1])
		}
	}
	return out
}

// parseSize extracts WxH from a lavfi color source like color=c=black:s=1080x1920:r=30.
func parseSize(source string) (int, int) {
	for _, part := range strings.Split(source, ":") {
		value, ok := strings.CutPrefix(part, "s=")
		if !ok {
			continue
		}
		w, h, found := strings.Cut(value, "x")
		if !found {
			return 0, 0
		}
		width, _ := strconv.Atoi(w)
		height, _ := strconv.Atoi(h)
		return width, height
	}
	return 0, 0
}

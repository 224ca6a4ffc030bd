package jobid

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"shortsync/internal/config"
)

// SequenceFile is the counter file name inside the output directory.
const SequenceFile = ".jobseq"

// Generator hands out job identifiers.
type Generator interface {
	Next() (string, error)
}

// UUIDGenerator returns random version 4 UUIDs.
type UUIDGenerator struct{}

// Next returns a fresh UUID string.
func (UUIDGenerator) Next() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate job id: %w", err)
	}
	return id.String(), nil
}

// CounterGenerator issues monotonically increasing decimal ids persisted in
// a sequence file. The file lock makes it safe across processes; the mutex
// covers goroutines in this one.
type CounterGenerator struct {
	mu   sync.Mutex
	path string
	lock *flock.Flock
}

// NewCounterGenerator stores the sequence in dir/.jobseq.
func NewCounterGenerator(dir string) *CounterGenerator {
	path := filepath.Join(dir, SequenceFile)
	return &CounterGenerator{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

// Path returns the sequence file location.
func (g *CounterGenerator) Path() string {
	return g.path
}

// Next increments the persisted counter and returns the new value.
func (g *CounterGenerator) Next() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(g.path), 0o755); err != nil {
		return "", fmt.Errorf("create sequence dir: %w", err)
	}
	if err := g.lock.Lock(); err != nil {
		return "", fmt.Errorf("lock job sequence: %w", err)
	}
	defer func() {
		_ = g.lock.Unlock()
	}()

	current, err := readSequence(g.path)
	if err != nil {
		return "", err
	}
	next := current + 1
	tmp := g.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(strconv.FormatUint(next, 10)+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("write job sequence: %w", err)
	}
	if err := os.Rename(tmp, g.path); err != nil {
		return "", fmt.Errorf("commit job sequence: %w", err)
	}
	return strconv.FormatUint(next, 10), nil
}

func readSequence(path string) (uint64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("read job sequence: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return 0, nil
	}
	value, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("job sequence %s is corrupt: %w", path, err)
	}
	return value, nil
}

// NewFromConfig returns the generator selected by cfg.Jobs.IDScheme.
func NewFromConfig(cfg *config.Config) (Generator, error) {
	if cfg == nil {
		return nil, errors.New("jobid: nil config")
	}
	switch cfg.Jobs.IDScheme {
	case config.IDSchemeUUID, "":
		return UUIDGenerator{}, nil
	case config.IDSchemeCounter:
		return NewCounterGenerator(cfg.Paths.OutputDir), nil
	default:
		return nil, fmt.Errorf("jobid: unknown id scheme %q", cfg.Jobs.IDScheme)
	}
}

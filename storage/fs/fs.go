// Package fs is a SorterStorage keeping every run in its own file. All file
// I/O runs off the event loop through pushz.Submit.
package fs

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/zoobzio/pushz"
	"github.com/zoobzio/pushz/storage"
)

// Config configures file storage.
type Config struct {
	// Dir is the parent of the session directory. Defaults to os.TempDir().
	Dir string `yaml:"dir"`

	// BufferSize is the number of records written per batch.
	BufferSize int `yaml:"buffer_size"`

	// ReadBatch is the number of records decoded per read.
	ReadBatch int `yaml:"read_batch"`

	// MaxRecordSize bounds an encoded record. Zero or values above
	// storage.MaxFrameSize mean storage.MaxFrameSize.
	MaxRecordSize int `yaml:"max_record_size"`
}

// DefaultConfig returns the defaults used for zero fields.
func DefaultConfig() Config {
	return Config{
		Dir:        os.TempDir(),
		BufferSize: 256,
		ReadBatch:  256,

		MaxRecordSize: storage.MaxFrameSize,
	}
}

// Storage writes runs to files under a private session directory. Run files
// are length-prefixed frames of codec-encoded records.
type Storage[T any] struct {
	loop   *pushz.Eventloop
	codec  storage.Codec[T]
	config Config
	dir    string
	logger *slog.Logger
}

// New creates a session directory named pushz-<uuid> under cfg.Dir.
func New[T any](loop *pushz.Eventloop, codec storage.Codec[T], cfg Config) (*Storage[T], error) {
	defaults := DefaultConfig()
	if cfg.Dir == "" {
		cfg.Dir = defaults.Dir
	}
	if cfg.BufferSize < 1 {
		cfg.BufferSize = defaults.BufferSize
	}
	if cfg.ReadBatch < 1 {
		cfg.ReadBatch = defaults.ReadBatch
	}
	if cfg.MaxRecordSize < 1 || cfg.MaxRecordSize > storage.MaxFrameSize {
		cfg.MaxRecordSize = defaults.MaxRecordSize
	}

	dir := filepath.Join(cfg.Dir, "pushz-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	return &Storage[T]{
		loop:   loop,
		codec:  codec,
		config: cfg,
		dir:    dir,
		logger: slog.Default(),
	}, nil
}

// WithLogger sets the logger.
func (s *Storage[T]) WithLogger(logger *slog.Logger) *Storage[T] {
	s.logger = logger
	return s
}

// Dir returns the session directory.
func (s *Storage[T]) Dir() string {
	return s.dir
}

func (s *Storage[T]) path(runID int) string {
	return filepath.Join(s.dir, fmt.Sprintf("run-%06d.bin", runID))
}

// Write returns a consumer storing run runID. It acknowledges once the file
// is synced and closed.
func (s *Storage[T]) Write(runID int) pushz.Consumer[T] {
	return newRunWriter(s, runID)
}

// Read streams run runID. A run that was never written fails with
// pushz.ErrRunNotFound.
func (s *Storage[T]) Read(runID int) pushz.Supplier[T] {
	return newRunReader(s, runID)
}

// Cleanup removes the given run files. Missing files are ignored.
func (s *Storage[T]) Cleanup(runIDs []int) *pushz.Promise[struct{}] {
	paths := make([]string, len(runIDs))
	for i, id := range runIDs {
		paths[i] = s.path(id)
	}
	return pushz.Submit(s.loop, func() (struct{}, error) {
		var g errgroup.Group
		g.SetLimit(4)
		for _, path := range paths {
			g.Go(func() error {
				return removeIfExists(path)
			})
		}
		return struct{}{}, g.Wait()
	})
}

// Close removes the session directory and everything in it.
func (s *Storage[T]) Close() error {
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("failed to remove session directory: %w", err)
	}
	return nil
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

package calibration

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Store serves the current calibration snapshot to concurrent readers.
//
// Current never blocks and always returns a complete snapshot: reloads build a
// new Offsets value and publish it with a single atomic pointer swap.
type Store struct {
	path    string
	logger  *zap.SugaredLogger
	current atomic.Pointer[Offsets]
}

// NewStore opens the calibration file at path. A missing file yields zero
// offsets; a malformed one is an error.
func NewStore(path string, logger *zap.SugaredLogger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	s := &Store{path: filepath.Clean(path), logger: logger}
	s.current.Store(&Offsets{})

	if err := s.Reload(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Infow("no calibration file, using zero offsets", "path", s.path)
			return s, nil
		}
		return nil, err
	}
	return s, nil
}

// NewStaticStore returns a store that always serves o and has no backing file.
func NewStaticStore(o Offsets) *Store {
	s := &Store{logger: zap.NewNop().Sugar()}
	s.current.Store(&o)
	return s
}

// Path returns the backing file, or "" for a static store.
func (s *Store) Path() string {
	return s.path
}

// Current returns the active offsets.
func (s *Store) Current() Offsets {
	return *s.current.Load()
}

// Reload re-reads the backing file. On failure the previous snapshot stays
// active.
func (s *Store) Reload() error {
	if s.path == "" {
		return nil
	}
	o, err := Load(s.path)
	if err != nil {
		return err
	}
	s.current.Store(&o)
	s.logger.Debugw("calibration loaded", "path", s.path, "offsets", o)
	return nil
}

// Update persists o and makes it the active snapshot.
func (s *Store) Update(o Offsets) error {
	if s.path != "" {
		if err := Save(s.path, o); err != nil {
			return err
		}
	}
	s.current.Store(&o)
	s.logger.Infow("calibration updated", "path", s.path, "offsets", o)
	return nil
}

// Watch reloads the snapshot whenever the backing file is replaced or written,
// until ctx is done. The parent directory is watched because an atomic replace
// swaps the file's inode.
func (s *Store) Watch(ctx context.Context) error {
	if s.path == "" {
		return errors.New("static calibration store has no file to watch")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create calibration watcher")
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return errors.Wrapf(err, "failed to watch %s", filepath.Dir(s.path))
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != s.path || !ev.Has(fsnotify.Create|fsnotify.Write) {
				continue
			}
			if err := s.Reload(); err != nil {
				s.logger.Warnw("calibration reload failed, keeping previous offsets", "path", s.path, "error", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warnw("calibration watcher error", "error", err)
		}
	}
}

package scripts

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FSStore reads scripts from one directory.
type FSStore struct {
	dir string
	log *slog.Logger
}

func NewFSStore(dir string, log *slog.Logger) *FSStore {
	return &FSStore{dir: dir, log: log}
}

func (s *FSStore) Dir() string {
	return s.dir
}

func (s *FSStore) Read(_ context.Context, name string) ([]byte, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return b, err
}

func (s *FSStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && isScript(entry.Name()) {
			names = append(names, entry.Name())
		}
	}
	return sorted(names), nil
}

// Watch calls onChange with the file name of every script written, created,
// removed or renamed in the directory. Bursts are coalesced over debounce.
// It blocks until ctx is done.
func (s *FSStore) Watch(ctx context.Context, debounce time.Duration, onChange func(name string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(s.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", s.dir, err)
	}

	pending := make(map[string]struct{})
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			name := filepath.Base(event.Name)
			if !isScript(name) {
				continue
			}
			pending[name] = struct{}{}
			fire = time.After(debounce)

		case <-fire:
			for name := range pending {
				s.log.Info("script changed", "name", name)
				onChange(name)
			}
			clear(pending)
			fire = nil

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.log.Warn("watcher error", "error", err)
		}
	}
}

package configstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/illmade-knight/go-flowtransforms/pkg/flowvalue"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// emptyFileSettle is how long an emptied file must stay empty before it is applied.
const emptyFileSettle = 250 * time.Millisecond

var errEmptyFile = errors.New("config file is empty")

// FileStore serves values from a flat YAML mapping of key to value. The file is
// watched and re-read whenever it changes, so edits are visible to later lookups
// without a restart.
//
// Writers usually truncate before writing, so an empty read is not applied at once:
// the previous values are served until the file has stayed empty for a short settle
// period, after which every key is absent. A file that cannot be parsed never replaces
// the last good values. An empty file at startup is an empty configuration.
type FileStore struct {
	path    string
	logger  zerolog.Logger
	watcher *fsnotify.Watcher

	mu   sync.RWMutex
	data map[string]any

	// emptyTimer is owned by the watch goroutine.
	emptyTimer *time.Timer

	closeOnce sync.Once
	done      chan struct{}
}

// NewFileStore loads path and starts watching it for changes.
func NewFileStore(path string, logger zerolog.Logger) (*FileStore, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("unable to get absolute path of %s: %w", path, err)
	}

	s := &FileStore{
		path:   absPath,
		logger: logger.With().Str("component", "FileStore").Str("path", absPath).Logger(),
		done:   make(chan struct{}),
	}
	if err := s.reload(); errors.Is(err, errEmptyFile) {
		s.setData(map[string]any{})
	} else if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	// Watch the directory: editors and config managers often replace the file by rename.
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(absPath), err)
	}
	s.watcher = watcher

	go s.watch()
	s.logger.Info().Msg("FileStore initialized.")
	return s, nil
}

// Get returns the value for key as of the most recent successful load.
func (s *FileStore) Get(_ context.Context, key string) flowvalue.Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return flowvalue.Of(s.data[key])
}

// Close stops watching the file.
func (s *FileStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.watcher.Close()
		<-s.done
		if s.emptyTimer != nil {
			s.emptyTimer.Stop()
		}
	})
	return err
}

func (s *FileStore) watch() {
	defer close(s.done)
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != s.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			err := s.reload()
			switch {
			case errors.Is(err, errEmptyFile):
				s.scheduleEmptyCheck()
			case err != nil:
				// Keep serving the last good values.
				s.logger.Warn().Err(err).Msg("Failed to reload config file.")
			default:
				s.logger.Info().Msg("Config file reloaded.")
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Error().Err(err).Msg("File watcher error.")
		}
	}
}

func (s *FileStore) reload() error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return errEmptyFile
	}
	data := make(map[string]any)
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	s.setData(data)
	return nil
}

func (s *FileStore) setData(data map[string]any) {
	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
}

// scheduleEmptyCheck re-reads the file after the settle period and applies the empty
// configuration if the file is still empty. A pending check is pushed back.
func (s *FileStore) scheduleEmptyCheck() {
	if s.emptyTimer != nil {
		s.emptyTimer.Reset(emptyFileSettle)
		return
	}
	s.emptyTimer = time.AfterFunc(emptyFileSettle, s.confirmEmpty)
}

// confirmEmpty reads under the write lock so a reload racing it lands afterwards.
func (s *FileStore) confirmEmpty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := os.ReadFile(s.path)
	if err != nil || len(bytes.TrimSpace(raw)) != 0 {
		return
	}
	s.data = map[string]any{}
	s.logger.Info().Msg("Config file is empty; all keys now have no value.")
}

// Package prefs is a tunable parameter store: named float values with defaults, persisted to a
// YAML file and optionally reloaded when that file changes.
package prefs

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"
	"gopkg.in/yaml.v3"

	"go.viam.com/armctl/logging"
)

// Store holds preference values by key. It is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	values map[string]float64
	logger logging.Logger

	watchMu sync.Mutex
	watcher *fsnotify.Watcher
	workers *goutils.StoppableWorkers
}

// NewStore returns an empty store.
func NewStore(logger logging.Logger) *Store {
	return &Store{values: map[string]float64{}, logger: logger}
}

// InitDouble stores def under key unless the key already has a value.
func (s *Store) InitDouble(key string, def float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; !ok {
		s.values[key] = def
	}
}

// GetDouble returns the value under key, or def when the key is absent.
func (s *Store) GetDouble(key string, def float64) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.values[key]; ok {
		return v
	}
	return def
}

// SetDouble stores value under key.
func (s *Store) SetDouble(key string, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Keys returns every key in sorted order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := lo.Keys(s.values)
	sort.Strings(keys)
	return keys
}

// ResetTo drops every value and replaces them with defaults.
func (s *Store) ResetTo(defaults map[string]float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[string]float64, len(defaults))
	for k, v := range defaults {
		s.values[k] = v
	}
}

// LogAll writes every key and value to logger at info level, in key order.
func (s *Store) LogAll(logger logging.Logger) {
	for _, key := range s.Keys() {
		logger.Infow("preference", "key", key, "value", s.GetDouble(key, 0))
	}
}

// Load merges the values of the YAML file at path into the store.
func (s *Store) Load(path string) error {
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "reading preferences %q", path)
	}
	values := map[string]float64{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return errors.Wrapf(err, "parsing preferences %q", path)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range values {
		s.values[k] = v
	}
	return nil
}

// Save writes every value to path as YAML. The file is replaced atomically.
func (s *Store) Save(path string) error {
	s.mu.RLock()
	data, err := yaml.Marshal(s.values)
	s.mu.RUnlock()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return errors.Wrapf(err, "saving preferences %q", path)
	}
	_, err = tmp.Write(data)
	err = multierr.Combine(err, tmp.Close())
	if err == nil {
		err = os.Rename(tmp.Name(), path)
	}
	if err != nil {
		return multierr.Combine(errors.Wrapf(err, "saving preferences %q", path), os.Remove(tmp.Name()))
	}
	return nil
}

// Watch reloads the file at path whenever it is written. The directory is watched so that
// editors that replace the file are also picked up. Only one file can be watched at a time.
func (s *Store) Watch(path string) error {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	if s.watcher != nil {
		return errors.New("preferences are already being watched")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return multierr.Combine(err, watcher.Close())
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return multierr.Combine(err, watcher.Close())
	}

	s.watcher = watcher
	s.workers = goutils.NewBackgroundStoppableWorkers(func(ctx context.Context) {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != abs || !event.Has(fsnotify.Write|fsnotify.Create) {
					continue
				}
				if err := s.Load(abs); err != nil {
					s.logger.Warnw("failed to reload preferences", "path", abs, "error", err)
					continue
				}
				s.logger.Infow("reloaded preferences", "path", abs)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warnw("preference watcher error", "error", err)
			}
		}
	})
	return nil
}

// Close stops watching, if Watch was called.
func (s *Store) Close() error {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	if s.watcher == nil {
		return nil
	}
	s.workers.Stop()
	err := s.watcher.Close()
	s.watcher = nil
	s.workers = nil
	return err
}

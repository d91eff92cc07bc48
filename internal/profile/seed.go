package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"trapline/internal/logger"
)

// Seed file shape:
//
//	profiles:
//	  - id: eurusd-day
//	    symbol: EURUSD
//	    ...
type seedFile struct {
	Profiles []Profile `yaml:"profiles"`
}

// ChangeListener receives the full profile list after a successful reload.
type ChangeListener func([]Profile)

// SeedLoader reads trading profiles from a YAML file and pushes updates into
// the configuration store whenever the file changes on disk.
type SeedLoader struct {
	path string

	mu        sync.RWMutex
	profiles  []Profile
	loadedAt  time.Time
	listeners []ChangeListener

	watcher *fsnotify.Watcher
}

func NewSeedLoader(path string) (*SeedLoader, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("seed loader requires path")
	}
	l := &SeedLoader{path: path}
	if err := l.reload(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *SeedLoader) Profiles() []Profile {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Profile, len(l.profiles))
	copy(out, l.profiles)
	return out
}

func (l *SeedLoader) Subscribe(fn ChangeListener) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.listeners = append(l.listeners, fn)
	l.mu.Unlock()
}

// Watch starts the fsnotify loop. Editors replace files on save, so the
// create/rename events matter as much as writes.
func (l *SeedLoader) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("seed watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(l.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("seed watcher add: %w", err)
	}
	l.watcher = watcher
	go func() {
		target := filepath.Clean(l.path)
		for {
			select {
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(evt.Name) != target {
					continue
				}
				if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if err := l.reload(); err != nil {
					logger.Errorf("SeedLoader: reload failed (%s): %v", evt.Name, err)
					continue
				}
				l.notify()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warnf("SeedLoader: watch error: %v", err)
			}
		}
	}()
	return nil
}

func (l *SeedLoader) Close() error {
	if l.watcher != nil {
		return l.watcher.Close()
	}
	return nil
}

func (l *SeedLoader) reload() error {
	raw, err := os.ReadFile(l.path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	var file seedFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}
	seen := make(map[string]bool, len(file.Profiles))
	for i := range file.Profiles {
		p := &file.Profiles[i]
		p.Normalize()
		if p.Position == 0 {
			p.Position = i + 1
		}
		if err := p.Validate(); err != nil {
			return err
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate profile id %q", p.ID)
		}
		seen[p.ID] = true
	}
	l.mu.Lock()
	l.profiles = file.Profiles
	l.loadedAt = time.Now()
	l.mu.Unlock()
	logger.Infof("SeedLoader: loaded %d profiles from %s", len(file.Profiles), l.path)
	return nil
}

func (l *SeedLoader) notify() {
	l.mu.RLock()
	profiles := make([]Profile, len(l.profiles))
	copy(profiles, l.profiles)
	listeners := append([]ChangeListener(nil), l.listeners...)
	l.mu.RUnlock()
	for _, fn := range listeners {
		fn := fn
		go func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Errorf("SeedLoader: listener panic: %v", r)
				}
			}()
			fn(profiles)
		}()
	}
}

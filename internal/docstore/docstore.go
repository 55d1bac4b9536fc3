// Package docstore serves the migration guidance documents backing the
// get_migration_info tool. A built-in guide ships embedded in the binary;
// operators can override it per repository by dropping <repo>.md files into a
// docs directory, which is watched so edits take effect without a restart.
package docstore

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

//go:embed migration.md
var defaultGuide string

// Store resolves migration docs by image reference.
type Store struct {
	log *slog.Logger
	dir string

	mu    sync.RWMutex
	cache map[string]string

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithDocsDir enables per-repository overrides from the given directory.
func WithDocsDir(dir string) StoreOption {
	return func(s *Store) { s.dir = dir }
}

// WithLogger overrides the logger.
func WithLogger(log *slog.Logger) StoreOption {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// New builds a Store. When a docs directory is configured the store watches
// it and drops cached entries as files change underneath it.
func New(opts ...StoreOption) (*Store, error) {
	s := &Store{
		log:   slog.Default(),
		cache: make(map[string]string),
		done:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.dir != "" {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			return nil, fmt.Errorf("docstore: watcher: %w", err)
		}
		if err := w.Add(s.dir); err != nil {
			_ = w.Close()
			return nil, fmt.Errorf("docstore: watch %s: %w", s.dir, err)
		}
		s.watcher = w
		go s.watch()
	}
	return s, nil
}

// Close stops the watcher, if any.
func (s *Store) Close() error {
	if s.watcher == nil {
		return nil
	}
	close(s.done)
	return s.watcher.Close()
}

func (s *Store) watch() {
	for {
		select {
		case <-s.done:
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			repo := strings.TrimSuffix(filepath.Base(ev.Name), ".md")
			s.mu.Lock()
			delete(s.cache, repo)
			s.mu.Unlock()
			s.log.Debug("docstore.cache.invalidate", slog.String("repo", repo))
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.log.Error("docstore.watch.err", slog.String("err", err.Error()))
		}
	}
}

// MigrationGuide returns the migration document for the given image
// reference. Override files are matched by repository name (the image
// reference without registry namespace or tag); absent an override, the
// embedded guide is returned.
func (s *Store) MigrationGuide(image string) string {
	repo := repositoryName(image)
	if s.dir == "" || repo == "" {
		return defaultGuide
	}

	s.mu.RLock()
	doc, hit := s.cache[repo]
	s.mu.RUnlock()
	if hit {
		return doc
	}

	data, err := os.ReadFile(filepath.Join(s.dir, repo+".md"))
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Error("docstore.read.err", slog.String("repo", repo), slog.String("err", err.Error()))
		}
		return defaultGuide
	}

	doc = string(data)
	s.mu.Lock()
	s.cache[repo] = doc
	s.mu.Unlock()
	return doc
}

// repositoryName reduces an image reference like "docker/dhi-node:18-dev" to
// its repository basename ("dhi-node").
func repositoryName(image string) string {
	if i := strings.LastIndexByte(image, ':'); i >= 0 {
		image = image[:i]
	}
	if i := strings.LastIndexByte(image, '/'); i >= 0 {
		image = image[i+1:]
	}
	return strings.TrimSpace(image)
}

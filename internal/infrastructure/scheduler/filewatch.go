package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"ResearchPosts/internal/ports"
)

const defaultDebounce = 500 * time.Millisecond

// FileWatchScheduler runs the job once at start and again whenever one of the watched
// files is written, created or renamed into place. Bursts of events are debounced.
type FileWatchScheduler struct {
	paths    []string
	debounce time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	done    chan struct{}
}

var _ ports.Scheduler = (*FileWatchScheduler)(nil)

// NewFileWatchScheduler watches the given scraper output files.
func NewFileWatchScheduler(paths []string, log *slog.Logger) *FileWatchScheduler {
	return &FileWatchScheduler{paths: paths, debounce: defaultDebounce, logger: log}
}

// Start installs the watcher. Directories are watched so atomic replace-by-rename is observed.
func (s *FileWatchScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher != nil {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	targets := make(map[string]struct{}, len(s.paths))
	dirs := make(map[string]struct{})
	for _, p := range s.paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			_ = watcher.Close()
			return fmt.Errorf("resolve %s: %w", p, err)
		}
		targets[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	s.watcher = watcher
	s.done = make(chan struct{})
	go s.loop(ctx, watcher, targets, job, s.done)

	return nil
}

func (s *FileWatchScheduler) loop(ctx context.Context, watcher *fsnotify.Watcher, targets map[string]struct{}, job func(time.Time), done chan struct{}) {
	defer close(done)

	// Jobs run on this goroutine only, so a run never overlaps the next one.
	trigger := make(chan struct{}, 1)
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	job(time.Now())

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}
			if _, ok := targets[abs]; !ok {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(s.debounce, func() {
				select {
				case trigger <- struct{}{}:
				default:
				}
			})
		case <-trigger:
			job(time.Now())
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			if s.logger != nil {
				s.logger.Warn("file watcher error", "error", err)
			}
		}
	}
}

// Stop closes the watcher and waits for the loop to exit.
func (s *FileWatchScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	watcher, done := s.watcher, s.done
	s.watcher, s.done = nil, nil
	s.mu.Unlock()

	if watcher == nil {
		return nil
	}
	if err := watcher.Close(); err != nil {
		return fmt.Errorf("close watcher: %w", err)
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

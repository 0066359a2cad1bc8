package commands

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/leapstack-labs/leaplint/internal/files"
)

const watchDebounce = 100 * time.Millisecond

// watch re-lints changed files until ctx is cancelled.
func (s *lintSession) watch(ctx context.Context, args []string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return &ExitError{Code: ExitFatal, Err: fmt.Errorf("failed to start watcher: %w", err)}
	}
	defer func() { _ = watcher.Close() }()

	dirs, err := files.Dirs(s.cfg.ProjectRoot, args, s.matcher)
	if err != nil {
		return &ExitError{Code: ExitFatal, Err: err}
	}
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			s.logger.Warn("failed to watch directory", slog.String("dir", dir), slog.String("error", err.Error()))
		}
	}
	s.r.Muted(fmt.Sprintf("Watching %d directories for changes. Press Ctrl+C to stop.", len(dirs)))

	// The timer only signals fire; pending is owned by this loop.
	pending := make(map[string]bool)
	var timer *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !s.matcher.Included(files.Rel(s.cfg.ProjectRoot, event.Name)) {
				continue
			}

			pending[event.Name] = true

			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case <-fire:
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			pending = make(map[string]bool)
			if len(paths) == 0 {
				continue
			}
			sort.Strings(paths)

			s.logger.Debug("files changed", slog.Int("count", len(paths)))
			if _, err := s.lintPaths(ctx, paths); err != nil {
				s.r.Error(err.Error())
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", slog.String("error", err.Error()))
		}
	}
}

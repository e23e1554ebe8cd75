//go:build linux || darwin

package svclaunch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"vawter.tech/stopper"
)

// watchState tracks debounce timers for services waiting to be started
type watchState struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

// Watch runs the initial pass and then keeps starting services that appear
// under Root until ctx is cancelled.
//
// New service directories are found through fsnotify events on Root, and
// directories without a startup script are watched until one is written.
// A service is attempted at most once per call. The returned Report covers
// the initial pass and everything started afterwards.
//
//nolint:gocyclo // event dispatch for root and service directories
func (l *Launcher) Watch(ctx context.Context) (*Report, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, &OpError{Op: OpWatch, Path: l.Root, Err: err}
	}

	// Watch before the initial pass so nothing created during it is missed.
	if err := watcher.Add(l.Root); err != nil {
		_ = watcher.Close()
		return nil, &OpError{Op: OpWatch, Path: l.Root, Err: fmt.Errorf("%w: %w", ErrServicesRoot, err)}
	}

	report, runErr := l.Run(ctx)
	if runErr != nil {
		var merr *MultiError
		if !errors.As(runErr, &merr) || l.FailFast {
			_ = watcher.Close()
			return report, runErr
		}
	}

	merr := &MultiError{}
	if runErr != nil {
		_ = errors.As(runErr, &merr)
	}

	for _, svc := range report.Skipped {
		if err := watcher.Add(svc.Path); err != nil {
			l.logger.Warn("cannot watch service directory", "service", svc.Name, "error", err)
		}
	}

	debounce := l.WatchDebounce
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}

	sctx := stopper.WithContext(ctx)
	sctx.Defer(func() {
		_ = watcher.Close()
	})

	state := &watchState{timers: make(map[string]*time.Timer)}
	pending := make(chan string, 16)
	done := make(chan struct{})

	schedule := func(path string) {
		state.mu.Lock()
		defer state.mu.Unlock()

		if t, ok := state.timers[path]; ok {
			t.Stop()
		}
		state.timers[path] = time.AfterFunc(debounce, func() {
			select {
			case pending <- path:
			case <-sctx.Stopping():
			case <-ctx.Done():
			}
		})
	}

	startPending := func(path string) bool {
		state.mu.Lock()
		delete(state.timers, path)
		state.mu.Unlock()

		if l.hasAttempted(path) {
			return true
		}

		svc, ok := inspect(l.Root, filepath.Base(path))
		if !ok || !svc.HasStartup {
			return true
		}

		rec, err := l.start(ctx, svc)
		if err != nil {
			merr.Add(err)
			return !l.FailFast
		}
		if rec != nil {
			report.Spawned = append(report.Spawned, *rec)
			_ = watcher.Remove(svc.Path)
		}
		return true
	}

	handle := func(event fsnotify.Event) {
		if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
			return
		}

		dir := filepath.Dir(event.Name)
		switch {
		case dir == l.Root:
			svc, ok := inspect(l.Root, filepath.Base(event.Name))
			if !ok || l.hasAttempted(svc.Path) {
				return
			}
			if err := watcher.Add(svc.Path); err != nil {
				l.logger.Warn("cannot watch service directory", "service", svc.Name, "error", err)
			}
			l.logger.Debug("service directory appeared", "service", svc.Name, "path", svc.Path)
			// The script may have been written before the watch was added.
			if svc.HasStartup || fileExists(svc.ScriptPath()) {
				schedule(svc.Path)
			}

		case filepath.Dir(dir) == l.Root && filepath.Base(event.Name) == StartupScript:
			if !l.hasAttempted(dir) {
				schedule(dir)
			}
		}
	}

	sctx.Go(func(sctx *stopper.Context) error {
		defer close(done)

		sctx.Defer(func() {
			state.mu.Lock()
			for _, t := range state.timers {
				t.Stop()
			}
			state.mu.Unlock()
		})

		for !sctx.IsStopping() {
			select {
			case <-sctx.Stopping():
				return nil

			case <-ctx.Done():
				return nil

			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				handle(event)

			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				if err != nil {
					l.logger.Warn("watch error", "root", l.Root, "error", err)
				}

			case path := <-pending:
				if !startPending(path) {
					return nil
				}
			}
		}
		return nil
	})

	l.logger.Info("watching services root", "root", l.Root, "run_id", report.RunID)

	select {
	case <-ctx.Done():
	case <-done:
	}

	sctx.Stop(100 * time.Millisecond)
	if err := sctx.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		merr.Add(&OpError{Op: OpWatch, Path: l.Root, Err: err})
	}

	return report, merr.Err()
}

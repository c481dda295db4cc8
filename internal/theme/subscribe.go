package theme

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Subscription is a registration for theme change notifications. Each
// widget owns its own and must cancel it on unmount.
type Subscription struct {
	once   sync.Once
	cancel context.CancelFunc
	done   chan struct{}
}

// Cancel stops notifications and waits for the notifier to exit; no
// callback runs after Cancel returns. Calling it more than once is safe.
func (s *Subscription) Cancel() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		if s.done != nil {
			<-s.done
		}
	})
}

// inert returns a subscription with nothing to stop.
func inert() *Subscription {
	return &Subscription{}
}

// Subscribe calls onChange whenever a signal may have changed. The process
// environment cannot change under us, so only the marker file is watched.
// With no marker, or when the watcher cannot be created, the returned
// subscription never fires.
//
// onChange runs on a separate goroutine and must not block indefinitely,
// since Cancel waits for it.
func (d *Detector) Subscribe(onChange func()) *Subscription {
	if d == nil || d.MarkerPath == "" || onChange == nil {
		return inert()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		d.warn("creating theme watcher: %v", err)
		return inert()
	}

	// The directory is watched so replace-by-rename and late creation of
	// the marker are both seen.
	target := filepath.Clean(d.MarkerPath)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		d.warn("watching theme marker %s: %v", target, err)
		_ = watcher.Close()
		return inert()
	}

	ctx, cancel := context.WithCancel(context.Background())
	sub := &Subscription{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(sub.done)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				if ctx.Err() != nil {
					return
				}
				onChange()

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				d.warn("theme watcher: %v", err)
			}
		}
	}()

	return sub
}

func (d *Detector) warn(format string, v ...any) {
	if d.Logger != nil {
		d.Logger.Printf("[WARN] "+format, v...)
	}
}

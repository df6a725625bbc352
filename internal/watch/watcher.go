// Package watch notifies agent runners about stop facts appearing in or
// disappearing from the coordination directory, so halting does not
// depend on busy-polling the filesystem.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/covehq/wavegate/internal/signal"
)

// pollDefault is the default polling interval when fsnotify is
// unavailable (e.g. NFS mounts).
const pollDefault = 2 * time.Second

// Event reports a stop fact changing state.
type Event struct {
	Name    string
	Present bool
}

// Handler receives stop-fact events.
type Handler func(Event)

// IsStopFact reports whether a fact name is part of the stop protocol:
// the system sentinel or any per-agent/per-wave stop fact. Temp files
// from in-flight atomic writes never count.
func IsStopFact(name string) bool {
	if strings.HasSuffix(name, ".tmp") {
		return false
	}
	return name == signal.SentinelName || strings.HasPrefix(name, "STOP-")
}

// Watcher delivers stop-fact events for one coordination directory.
type Watcher struct {
	dir     string
	handler Handler
}

// New creates a Watcher over the given coordination directory.
func New(dir string, handler Handler) *Watcher {
	return &Watcher{dir: dir, handler: handler}
}

// Run watches the directory until ctx is cancelled. Existing stop facts
// are reported first so a runner starting under an active stop halts
// immediately.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.scan(); err != nil {
		return err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = fw.Close() }()

	if err := fw.Add(w.dir); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(event.Name)
			if !IsStopFact(name) {
				continue
			}
			switch {
			case event.Has(fsnotify.Create) || event.Has(fsnotify.Write):
				w.handler(Event{Name: name, Present: true})
			case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
				w.handler(Event{Name: name, Present: false})
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			_ = err
		}
	}
}

// scan reports stop facts already present at startup.
func (w *Watcher) scan() error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if e.IsDir() || !IsStopFact(e.Name()) {
			continue
		}
		w.handler(Event{Name: e.Name(), Present: true})
	}
	return nil
}

// PollWatcher is the polling fallback for filesystems without inotify
// support.
type PollWatcher struct {
	dir      string
	handler  Handler
	interval time.Duration
	present  map[string]bool
}

// NewPoll creates a polling watcher. A zero interval uses the default.
func NewPoll(dir string, handler Handler, interval time.Duration) *PollWatcher {
	if interval == 0 {
		interval = pollDefault
	}
	return &PollWatcher{
		dir:      dir,
		handler:  handler,
		interval: interval,
		present:  make(map[string]bool),
	}
}

// Run polls the directory until ctx is cancelled, reporting transitions
// in both directions.
func (w *PollWatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.step()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.step()
		}
	}
}

func (w *PollWatcher) step() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		// A failed read says nothing about the facts on disk. Reporting
		// active stops as cleared here would resume halted agents, so
		// keep the last known state until the directory is readable.
		return
	}
	seen := make(map[string]bool)
	for _, e := range entries {
		if e.IsDir() || !IsStopFact(e.Name()) {
			continue
		}
		seen[e.Name()] = true
		if !w.present[e.Name()] {
			w.handler(Event{Name: e.Name(), Present: true})
		}
	}
	for name := range w.present {
		if !seen[name] {
			w.handler(Event{Name: name, Present: false})
		}
	}
	w.present = seen
}

package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/covehq/wavegate/internal/signal"
)

// collector accumulates events behind a mutex so test goroutines and the
// watcher goroutine never race.
type collector struct {
	mu     sync.Mutex
	events []Event
}

func (c *collector) add(e Event) {
	c.mu.Lock()
	c.events = append(c.events, e)
	c.mu.Unlock()
}

func (c *collector) snapshot() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

func (c *collector) waitFor(t *testing.T, want Event) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		for _, e := range c.snapshot() {
			if e == want {
				return
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for event %+v, got %+v", want, c.snapshot())
}

func TestIsStopFact(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{signal.SentinelName, true},
		{"STOP-fe-dev-1.json", true},
		{"STOP-WAVE-3.json", true},
		{".STOP-fe-dev-1.json-42.tmp", false},
		{"WAVE-1-CTO-APPROVED.json", false},
		{"notes.txt", false},
	}
	for _, tt := range tests {
		if got := IsStopFact(tt.name); got != tt.want {
			t.Errorf("IsStopFact(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestWatcherReportsExistingAndNewFacts(t *testing.T) {
	store, err := signal.NewDirStore(t.TempDir())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := store.Write(signal.AgentStopName("fe-dev-1"), []byte("halt")); err != nil {
		t.Fatalf("write: %v", err)
	}

	c := &collector{}
	w := New(store.Dir(), c.add)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	c.waitFor(t, Event{Name: "STOP-fe-dev-1.json", Present: true})

	if err := store.Write(signal.SentinelName, signal.SentinelText("E4", "drill")); err != nil {
		t.Fatalf("write sentinel: %v", err)
	}
	c.waitFor(t, Event{Name: signal.SentinelName, Present: true})

	if err := store.Delete(signal.AgentStopName("fe-dev-1")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	c.waitFor(t, Event{Name: "STOP-fe-dev-1.json", Present: false})

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
}

func TestWatcherIgnoresNonStopFacts(t *testing.T) {
	store, err := signal.NewDirStore(t.TempDir())
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	c := &collector{}
	w := New(store.Dir(), c.add)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	if err := store.WriteFact(signal.ApprovalName(1, "CTO"), map[string]any{"approver": "cto"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := store.Write(signal.WaveStopName(1), []byte("halt")); err != nil {
		t.Fatalf("write: %v", err)
	}
	c.waitFor(t, Event{Name: "STOP-WAVE-1.json", Present: true})

	for _, e := range c.snapshot() {
		if e.Name == signal.ApprovalName(1, "CTO") {
			t.Errorf("approval fact should not produce a stop event: %+v", e)
		}
	}
}

func TestPollWatcherTransitions(t *testing.T) {
	store, err := signal.NewDirStore(t.TempDir())
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	c := &collector{}
	w := NewPoll(store.Dir(), c.add, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	if err := store.Write(signal.AgentStopName("be-dev-1"), []byte("halt")); err != nil {
		t.Fatalf("write: %v", err)
	}
	c.waitFor(t, Event{Name: "STOP-be-dev-1.json", Present: true})

	if err := store.Delete(signal.AgentStopName("be-dev-1")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	c.waitFor(t, Event{Name: "STOP-be-dev-1.json", Present: false})
}

// A poll cycle that cannot read the directory must not report active
// stops as cleared: a halted agent resuming on a transient read error
// would defeat the stop entirely.
func TestPollWatcherKeepsStateWhenDirUnreadable(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "coordination")
	store, err := signal.NewDirStore(dir)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := store.Write(signal.AgentStopName("fe-dev-1"), []byte("halt")); err != nil {
		t.Fatalf("write: %v", err)
	}

	c := &collector{}
	w := NewPoll(dir, c.add, time.Minute)

	w.step()
	c.waitFor(t, Event{Name: "STOP-fe-dev-1.json", Present: true})

	// Swap the directory for a regular file so the next read fails.
	if err := os.RemoveAll(dir); err != nil {
		t.Fatalf("remove dir: %v", err)
	}
	if err := os.WriteFile(dir, []byte("x"), 0644); err != nil {
		t.Fatalf("block dir: %v", err)
	}
	w.step()
	for _, e := range c.snapshot() {
		if !e.Present {
			t.Fatalf("stop fact reported cleared during failed directory read: %+v", e)
		}
	}

	// Directory readable again, fact still there: no duplicate event.
	if err := os.Remove(dir); err != nil {
		t.Fatalf("unblock dir: %v", err)
	}
	store, err = signal.NewDirStore(dir)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := store.Write(signal.AgentStopName("fe-dev-1"), []byte("halt")); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	w.step()
	active := 0
	for _, e := range c.snapshot() {
		if e.Present {
			active++
		}
	}
	if active != 1 {
		t.Errorf("expected one active event across the outage, got %d: %+v", active, c.snapshot())
	}

	// A genuine removal still clears.
	if err := store.Delete(signal.AgentStopName("fe-dev-1")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	w.step()
	c.waitFor(t, Event{Name: "STOP-fe-dev-1.json", Present: false})
}

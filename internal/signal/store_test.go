package signal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *DirStore {
	t.Helper()
	s, err := NewDirStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return s
}

func TestWriteThenExistsAndRead(t *testing.T) {
	s := newTestStore(t)

	if s.Exists("STOP-fe-dev-1.json") {
		t.Error("fact should not exist before write")
	}
	if err := s.Write("STOP-fe-dev-1.json", []byte("halt")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if !s.Exists("STOP-fe-dev-1.json") {
		t.Error("fact should exist after write")
	}

	data, err := s.Read("STOP-fe-dev-1.json")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(data) != "halt" {
		t.Errorf("expected %q, got %q", "halt", data)
	}
}

func TestWriteFactRoundTrip(t *testing.T) {
	s := newTestStore(t)

	err := s.WriteFact("WAVE-1-CTO-APPROVED.json", map[string]any{
		"operation": "create_module",
		"approver":  "cto",
	})
	if err != nil {
		t.Fatalf("WriteFact failed: %v", err)
	}

	m, err := s.ReadFact("WAVE-1-CTO-APPROVED.json")
	if err != nil {
		t.Fatalf("ReadFact failed: %v", err)
	}
	if m["operation"] != "create_module" {
		t.Errorf("expected operation=create_module, got %v", m["operation"])
	}
	if m["format"] == nil || m["timestamp"] == nil {
		t.Error("expected envelope markers on structured fact")
	}
}

func TestReadFactMalformed(t *testing.T) {
	s := newTestStore(t)

	if err := s.Write("broken.json", []byte("{not json")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if _, err := s.ReadFact("broken.json"); err == nil {
		t.Error("expected error for malformed fact")
	}
}

func TestDeleteIdempotent(t *testing.T) {
	s := newTestStore(t)

	if err := s.Write("STOP-a.json", []byte("x")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := s.Delete("STOP-a.json"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if s.Exists("STOP-a.json") {
		t.Error("fact should be gone after delete")
	}
	if err := s.Delete("STOP-a.json"); err != nil {
		t.Errorf("deleting absent fact should be a no-op, got %v", err)
	}
}

func TestInvalidNamesRejected(t *testing.T) {
	s := newTestStore(t)

	bad := []string{"", "../escape", "a/b", "a..b", "with space"}
	for _, name := range bad {
		if err := s.Write(name, []byte("x")); err == nil {
			t.Errorf("Write(%q) should have been rejected", name)
		}
		if s.Exists(name) {
			t.Errorf("Exists(%q) should be false", name)
		}
	}
}

func TestListSkipsTempFiles(t *testing.T) {
	s := newTestStore(t)

	if err := s.Write("STOP-a.json", []byte("x")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	// Simulate an in-flight atomic write.
	tmp := filepath.Join(s.Dir(), ".STOP-b.json-123.tmp")
	if err := os.WriteFile(tmp, []byte("partial"), 0644); err != nil {
		t.Fatalf("write temp: %v", err)
	}

	names, err := s.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(names) != 1 || names[0] != "STOP-a.json" {
		t.Errorf("expected only committed facts, got %v", names)
	}
}

func TestNameConventions(t *testing.T) {
	tests := []struct {
		got  string
		want string
	}{
		{AgentStopName("fe-dev-1"), "STOP-fe-dev-1.json"},
		{WaveStopName(3), "STOP-WAVE-3.json"},
		{ApprovalName(2, "CTO"), "WAVE-2-CTO-APPROVED.json"},
		{ApprovalRequestName(2, "PM"), "WAVE-2-PM-APPROVAL-NEEDED.json"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("expected %q, got %q", tt.want, tt.got)
		}
	}
}

func TestSentinelText(t *testing.T) {
	text := string(SentinelText("E4", "BUDGET EXCEEDED: spent 10.00 of 10.00 limit", "spent: 10.00", "limit: 10.00"))

	for _, want := range []string{"EMERGENCY STOP", "level: E4", "BUDGET EXCEEDED", "10.00", "time: "} {
		if !strings.Contains(text, want) {
			t.Errorf("sentinel missing %q:\n%s", want, text)
		}
	}
}

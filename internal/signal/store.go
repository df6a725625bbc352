// Package signal defines the filesystem coordination protocol shared by
// the approval gate, the emergency escalator, and the budget breaker.
// Existence of a fact at a known name is the state; there is no separate
// status ledger.
package signal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/covehq/wavegate/internal/atomicfile"
)

// validName matches alphanumeric, dash, underscore, and dot characters only.
var validName = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// validateName rejects fact names that could cause path traversal.
func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("fact name must not be empty")
	}
	if strings.Contains(name, "..") {
		return fmt.Errorf("fact name must not contain '..'")
	}
	if !validName.MatchString(name) {
		return fmt.Errorf("fact name contains invalid characters: only alphanumeric, dash, underscore, and dot are allowed")
	}
	return nil
}

// Store is the fact-store abstraction: named records under a coordination
// root, created atomically, read by any number of checkers, deleted only
// by an explicit clear. The file-backed DirStore is the only
// implementation today; policy code depends on this interface so the
// substrate can change without touching it.
type Store interface {
	Exists(name string) bool
	Read(name string) ([]byte, error)
	ReadFact(name string) (map[string]any, error)
	Write(name string, data []byte) error
	WriteFact(name string, fields map[string]any) error
	Delete(name string) error
	List() ([]string, error)
}

// DirStore keeps facts as flat files in a coordination directory.
type DirStore struct {
	dir string
}

// NewDirStore creates a DirStore rooted at dir, creating it if missing.
func NewDirStore(dir string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("cannot create coordination directory: %w", err)
	}
	return &DirStore{dir: dir}, nil
}

// DefaultDir returns the default coordination directory.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "wavegate-coordination")
	}
	return filepath.Join(home, ".wavegate", "coordination")
}

// Dir returns the coordination root this store is bound to.
func (s *DirStore) Dir() string {
	return s.dir
}

// Exists reports whether a fact with the given name is present.
// Invalid names read as absent.
func (s *DirStore) Exists(name string) bool {
	if validateName(name) != nil {
		return false
	}
	info, err := os.Stat(s.path(name))
	return err == nil && !info.IsDir()
}

// Read returns the raw content of a fact.
func (s *DirStore) Read(name string) ([]byte, error) {
	if err := validateName(name); err != nil {
		return nil, fmt.Errorf("invalid fact name: %w", err)
	}
	return os.ReadFile(s.path(name))
}

// ReadFact returns a structured fact's fields. Missing or malformed facts
// return an error; checkers treat that as the condition not being
// satisfied, never as a reason to block.
func (s *DirStore) ReadFact(name string) (map[string]any, error) {
	data, err := s.Read(name)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("malformed fact %q: %w", name, err)
	}
	return m, nil
}

// Write commits raw content under the given name via the atomic writer.
func (s *DirStore) Write(name string, data []byte) error {
	if err := validateName(name); err != nil {
		return fmt.Errorf("invalid fact name: %w", err)
	}
	return atomicfile.Write(s.path(name), data)
}

// WriteFact commits a structured fact with the standard envelope markers.
func (s *DirStore) WriteFact(name string, fields map[string]any) error {
	if err := validateName(name); err != nil {
		return fmt.Errorf("invalid fact name: %w", err)
	}
	return atomicfile.WriteFact(s.path(name), fields, atomicfile.FactOptions{Pretty: true})
}

// Delete removes a fact. Deleting an absent fact is a no-op so clears
// stay idempotent.
func (s *DirStore) Delete(name string) error {
	if err := validateName(name); err != nil {
		return fmt.Errorf("invalid fact name: %w", err)
	}
	if err := os.Remove(s.path(name)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// List returns the names of all facts in the store.
func (s *DirStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || strings.HasSuffix(e.Name(), ".tmp") {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

func (s *DirStore) path(name string) string {
	return filepath.Join(s.dir, name)
}

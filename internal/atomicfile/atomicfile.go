package atomicfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Fact envelope markers stamped into every structured fact.
const (
	FactFormat  = "wavegate.fact"
	FactVersion = 1
)

// Write replaces the file at path with data using a uniquely-named
// temporary file in the same directory, an fsync, and a single rename.
// The rename is the commit point: readers observe either the prior
// complete content or the new complete content, never a partial write.
// On any failure the temporary file is removed and the target is left
// untouched; the error is returned to the caller, who owns retry policy.
func Write(path string, data []byte) error {
	return write(path, data, false)
}

// WriteMkdirAll is Write, creating missing parent directories first.
func WriteMkdirAll(path string, data []byte) error {
	return write(path, data, true)
}

func write(path string, data []byte, makeParents bool) error {
	dir := filepath.Dir(path)
	if makeParents {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create parent directory: %w", err)
		}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// FactOptions controls WriteFact serialization.
type FactOptions struct {
	Pretty      bool
	MakeParents bool
}

// WriteFact serializes fields as a JSON fact carrying format and version
// markers plus a timestamp (unless the caller supplied one) and commits it
// with Write. Caller fields win over nothing; the envelope markers always
// overwrite same-named keys.
func WriteFact(path string, fields map[string]any, opts FactOptions) error {
	m := make(map[string]any, len(fields)+3)
	for k, v := range fields {
		m[k] = v
	}
	m["format"] = FactFormat
	m["version"] = FactVersion
	if _, ok := m["timestamp"]; !ok {
		m["timestamp"] = time.Now().UTC().Format(time.RFC3339Nano)
	}

	var (
		data []byte
		err  error
	)
	if opts.Pretty {
		data, err = json.MarshalIndent(m, "", "  ")
	} else {
		data, err = json.Marshal(m)
	}
	if err != nil {
		return fmt.Errorf("marshal fact: %w", err)
	}
	data = append(data, '\n')

	if opts.MakeParents {
		return WriteMkdirAll(path, data)
	}
	return Write(path, data)
}

// Package snapshot persists the session list as a JSON file and mirrors it
// to optional remote destinations.
package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/alfredjeanlab/secondscreen/internal/model"
)

// PersistenceError describes a failed snapshot read or write. It is logged,
// never returned to API clients.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("snapshot %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Encode writes sessions as a two-space indented JSON array.
func Encode(w io.Writer, sessions []model.Session) error {
	if sessions == nil {
		sessions = []model.Session{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(sessions)
}

// Marshal returns the encoded form of sessions.
func Marshal(sessions []model.Session) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, sessions); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// File is a snapshot stored at Path and replaced atomically on every write.
type File struct {
	Path string
}

// NewFile returns the snapshot file at path.
func NewFile(path string) *File {
	return &File{Path: path}
}

func (f *File) tmpPath() string { return f.Path + ".tmp" }

// Load reads the snapshot. A missing file yields no sessions and no error.
func (f *File) Load() ([]model.Session, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return []model.Session{}, nil
	}
	if err != nil {
		return nil, &PersistenceError{Op: "read", Path: f.Path, Err: err}
	}
	var sessions []model.Session
	if err := json.Unmarshal(data, &sessions); err != nil {
		return nil, &PersistenceError{Op: "decode", Path: f.Path, Err: err}
	}
	if sessions == nil {
		sessions = []model.Session{}
	}
	for i := range sessions {
		sessions[i].Normalize()
	}
	return sessions, nil
}

// Save encodes sessions and writes them atomically.
func (f *File) Save(sessions []model.Session) error {
	data, err := Marshal(sessions)
	if err != nil {
		return &PersistenceError{Op: "encode", Path: f.Path, Err: err}
	}
	return f.Write(data)
}

// Write stores data at Path via a temporary file and a rename, so readers
// never observe a partial snapshot. The parent directory is created if
// needed.
func (f *File) Write(data []byte) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return &PersistenceError{Op: "mkdir", Path: f.Path, Err: err}
	}

	tmp := f.tmpPath()
	out, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return &PersistenceError{Op: "write", Path: tmp, Err: err}
	}
	if _, err := out.Write(data); err != nil {
		out.Close()
		os.Remove(tmp)
		return &PersistenceError{Op: "write", Path: tmp, Err: err}
	}
	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(tmp)
		return &PersistenceError{Op: "sync", Path: tmp, Err: err}
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return &PersistenceError{Op: "write", Path: tmp, Err: err}
	}
	if err := os.Rename(tmp, f.Path); err != nil {
		os.Remove(tmp)
		return &PersistenceError{Op: "rename", Path: f.Path, Err: err}
	}
	return nil
}

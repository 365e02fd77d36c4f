package sessionstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tablepos/api/internal/session"
)

// FileStore keeps one JSON file per terminal in Dir.
type FileStore struct {
	Dir string
}

// NewFileStore creates a FileStore. An empty dir means ".posctl".
func NewFileStore(dir string) *FileStore {
	if dir == "" {
		dir = ".posctl"
	}
	return &FileStore{Dir: dir}
}

func (s *FileStore) path(terminal string) string {
	return filepath.Join(s.Dir, terminal+".json")
}

// Save writes the state to a temp file in Dir, syncs it and renames it over
// the previous file.
func (s *FileStore) Save(_ context.Context, terminal string, state session.State) error {
	if err := checkTerminal(terminal); err != nil {
		return err
	}
	if err := os.MkdirAll(s.Dir, 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	tmp, err := os.CreateTemp(s.Dir, "tmp-"+terminal+"-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path(terminal)); err != nil {
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}

func (s *FileStore) Load(_ context.Context, terminal string) (session.State, error) {
	if err := checkTerminal(terminal); err != nil {
		return session.State{}, err
	}
	data, err := os.ReadFile(s.path(terminal))
	if err != nil {
		if os.IsNotExist(err) {
			return session.State{}, ErrNotFound
		}
		return session.State{}, fmt.Errorf("failed to read session file: %w", err)
	}

	var state session.State
	if err := json.Unmarshal(data, &state); err != nil {
		return session.State{}, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return state, nil
}

// Delete removes the terminal's file. A missing file is not an error.
func (s *FileStore) Delete(_ context.Context, terminal string) error {
	if err := checkTerminal(terminal); err != nil {
		return err
	}
	if err := os.Remove(s.path(terminal)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete session file: %w", err)
	}
	return nil
}

// Package checkpoint persists the durable state of sequential workflows.
// A checkpoint must survive the destruction of the worker's page context, so
// it is written synchronously before every action that triggers navigation.
package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrNotFound is returned when no checkpoint exists for the requested key.
var ErrNotFound = errors.New("checkpoint not found")

// Checkpoint records a sequential session's progress through its item list.
// NextIndex is the index of the next not-yet-dispatched item; it is advanced
// and persisted before the navigation that makes the previous item's outcome
// observable, so NextIndex-1 always identifies the item whose result the
// current page shows.
type Checkpoint struct {
	SessionID string   `json:"sessionId"`
	Items     []string `json:"items"`
	NextIndex int      `json:"nextIndex"`
}

// PendingListing is the single-slot record of the mark-externally-listed
// workflow. Dispatched and Updated track which navigation the workflow is in
// the middle of, so a reload lands back in the right state.
type PendingListing struct {
	PendingIdentifier string `json:"pendingIdentifier"`
	Dispatched        bool   `json:"dispatched,omitempty"`
	Updated           bool   `json:"updated,omitempty"`
}

const pendingFile = "pending.json"

// Store persists checkpoints as JSON files in a directory, one file per
// session id, plus one single-slot pending-listing record.
type Store struct {
	baseDir string
	mu      sync.Mutex
}

// NewStore creates a checkpoint store rooted at baseDir. If baseDir is empty
// it defaults to ~/.cashgen/checkpoints.
func NewStore(baseDir string) (*Store, error) {
	if strings.TrimSpace(baseDir) == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		baseDir = filepath.Join(home, ".cashgen", "checkpoints")
	}
	if err := os.MkdirAll(baseDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}
	return &Store{baseDir: baseDir}, nil
}

// Save writes the checkpoint durably. At most one checkpoint per session id
// exists at a time; saving replaces any previous one atomically.
func (s *Store) Save(cp *Checkpoint) error {
	if cp == nil {
		return fmt.Errorf("checkpoint is nil")
	}
	if cp.SessionID == "" {
		return fmt.Errorf("checkpoint session id is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeFile(cp.SessionID+".json", cp)
}

// Load reads the checkpoint for a session id. Returns ErrNotFound when the
// session has no active sequential workflow.
func (s *Store) Load(sessionID string) (*Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var cp Checkpoint
	if err := s.readFile(sessionID+".json", &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

// Delete removes a session's checkpoint. Deleting an absent checkpoint is a
// no-op; terminal paths may race to clean up.
func (s *Store) Delete(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeFile(sessionID + ".json")
}

// SavePending records the identifier of an in-flight flag update.
func (s *Store) SavePending(p *PendingListing) error {
	if p == nil || p.PendingIdentifier == "" {
		return fmt.Errorf("pending identifier is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeFile(pendingFile, p)
}

// LoadPending reads the in-flight flag update record, if any.
func (s *Store) LoadPending() (*PendingListing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var p PendingListing
	if err := s.readFile(pendingFile, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DeletePending clears the in-flight flag update record.
func (s *Store) DeletePending() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeFile(pendingFile)
}

func (s *Store) writeFile(name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	path := filepath.Join(s.baseDir, name)
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to commit checkpoint: %w", err)
	}
	return nil
}

func (s *Store) readFile(name string, v interface{}) error {
	data, err := os.ReadFile(filepath.Join(s.baseDir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to read checkpoint: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse checkpoint: %w", err)
	}
	return nil
}

func (s *Store) removeFile(name string) error {
	if err := os.Remove(filepath.Join(s.baseDir, name)); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

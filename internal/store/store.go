// Package store persists the project metadata map — every project this
// client knows about, Remote or Local — in a single durable JSON file,
// flushed atomically on every write. This diverges deliberately from the
// reference client's sqlite-backed sync journal (internal/db, sync_journal.go):
// the design here calls for a flat key-value file with write-temp-fsync-rename
// atomicity, not a SQL journal; see DESIGN.md for the full rationale.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/gofrs/flock"

	"github.com/codeexpert/syncengine/internal/fsutil"
	"github.com/codeexpert/syncengine/pkg/project"
)

// Store is a durable ProjectId -> Project map backed by a single JSON file.
// An in-process mutex serialises writers; a gofrs/flock advisory lock (the
// same library the reference client uses to guard its workspace directory)
// guards the file itself against a second process instance.
type Store struct {
	path string
	mu   sync.RWMutex
	lock *flock.Flock

	projects map[project.ID]project.Project
}

// Open loads path if it exists (an absent file means an empty store) and
// returns a ready Store. The advisory file lock is acquired for the
// lifetime of the Store and released by Close.
func Open(path string) (*Store, error) {
	fl := flock.New(path + ".lock")
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("store: acquire lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("store: %s is locked by another process", path)
	}

	s := &Store{path: path, lock: fl, projects: map[project.ID]project.Project{}}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		fl.Unlock()
		return nil, fmt.Errorf("store: read %s: %w", path, err)
	}

	if len(data) > 0 {
		var projects map[project.ID]project.Project
		if err := json.Unmarshal(data, &projects); err != nil {
			fl.Unlock()
			return nil, fmt.Errorf("store: decode %s: %w", path, err)
		}
		s.projects = projects
	}

	return s, nil
}

// Close releases the advisory file lock.
func (s *Store) Close() error {
	return s.lock.Unlock()
}

// Find returns the project with the given id, if known.
func (s *Store) Find(id project.ID) (project.Project, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	return p, ok
}

// FindAll returns every known project.
func (s *Store) FindAll() []project.Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]project.Project, 0, len(s.projects))
	for _, p := range s.projects {
		out = append(out, p)
	}
	return out
}

// Upsert inserts or replaces the project record and flushes the store to
// disk atomically before returning. A failed flush leaves the on-disk file
// at its previous contents: the temp file never replaces it.
func (s *Store) Upsert(p project.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, hadPrev := s.projects[p.ProjectID]
	s.projects[p.ProjectID] = p

	if err := s.flushLocked(); err != nil {
		if hadPrev {
			s.projects[p.ProjectID] = prev
		} else {
			delete(s.projects, p.ProjectID)
		}
		return err
	}
	return nil
}

// Remove deletes the project record and flushes the store.
func (s *Store) Remove(id project.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, hadPrev := s.projects[id]
	if !hadPrev {
		return nil
	}
	delete(s.projects, id)

	if err := s.flushLocked(); err != nil {
		s.projects[id] = prev
		return err
	}
	return nil
}

func (s *Store) flushLocked() error {
	data, err := json.MarshalIndent(s.projects, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encode: %w", err)
	}
	if err := fsutil.WriteFile(s.path, data, false); err != nil {
		return fmt.Errorf("store: flush %s: %w", s.path, err)
	}
	return nil
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides session persistence for the ember TUI.
//
// All sessions live in one JSON blob, most recent first. The blob is small
// enough that whole-file rewrites stay cheap, and a single file keeps the
// crash-consistency story simple: every write goes through an atomic
// temp-file rename.
package storage

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/jeranaias/ember-tui/internal/model"
	"github.com/jeranaias/ember-tui/internal/util"
)

// ErrSessionNotFound is returned when no stored session matches an ID.
var ErrSessionNotFound = errors.New("session not found")

// Store is the persistence boundary for chat sessions.
type Store interface {
	// Load returns all stored sessions, most recently updated first.
	Load() ([]*model.ChatSession, error)

	// Save inserts or replaces one session by ID.
	Save(sess *model.ChatSession) error

	// Delete removes one session by ID.
	Delete(id string) error

	// DeleteAll removes every stored session.
	DeleteAll() error
}

// =============================================================================
// FILE STORE
// =============================================================================

// FileStore persists sessions to a single JSON file.
type FileStore struct {
	mu sync.Mutex

	// Path is the blob location. Default: ~/.ember/sessions.json
	Path string

	// MaxSessions limits stored sessions (0 = unlimited). Oldest sessions
	// are dropped first.
	MaxSessions int
}

// NewFileStore creates a store at the default location.
func NewFileStore() (*FileStore, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return NewFileStoreWithPath(filepath.Join(homeDir, ".ember", "sessions.json"))
}

// NewFileStoreWithPath creates a store backed by a custom file path.
func NewFileStoreWithPath(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return &FileStore{
		Path:        path,
		MaxSessions: 100,
	}, nil
}

// =============================================================================
// LOAD OPERATIONS
// =============================================================================

// Load implements Store. A missing or unreadable blob yields an empty list
// rather than an error: chat history is a convenience, and failing startup
// over a corrupt blob would trade all future sessions for the broken ones.
func (s *FileStore) Load() ([]*model.ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *FileStore) loadLocked() ([]*model.ChatSession, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return []*model.ChatSession{}, nil
		}
		return nil, err
	}

	var sessions []*model.ChatSession
	if err := json.Unmarshal(data, &sessions); err != nil {
		return []*model.ChatSession{}, nil
	}

	sortByRecency(sessions)
	return sessions, nil
}

// LoadByID returns one stored session.
func (s *FileStore) LoadByID(id string) (*model.ChatSession, error) {
	sessions, err := s.Load()
	if err != nil {
		return nil, err
	}
	for _, sess := range sessions {
		if sess.ID == id {
			return sess, nil
		}
	}
	return nil, ErrSessionNotFound
}

// =============================================================================
// SAVE OPERATIONS
// =============================================================================

// Save implements Store. The session replaces any stored session with the
// same ID; ordering is re-derived from UpdatedAt on every write.
func (s *FileStore) Save(sess *model.ChatSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.loadLocked()
	if err != nil {
		return err
	}

	replaced := false
	for i, existing := range sessions {
		if existing.ID == sess.ID {
			sessions[i] = sess
			replaced = true
			break
		}
	}
	if !replaced {
		sessions = append(sessions, sess)
	}

	sortByRecency(sessions)
	if s.MaxSessions > 0 && len(sessions) > s.MaxSessions {
		sessions = sessions[:s.MaxSessions]
	}

	return s.writeLocked(sessions)
}

// Delete implements Store.
func (s *FileStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.loadLocked()
	if err != nil {
		return err
	}

	kept := sessions[:0]
	found := false
	for _, sess := range sessions {
		if sess.ID == id {
			found = true
			continue
		}
		kept = append(kept, sess)
	}
	if !found {
		return ErrSessionNotFound
	}

	return s.writeLocked(kept)
}

// DeleteAll implements Store.
func (s *FileStore) DeleteAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked([]*model.ChatSession{})
}

func (s *FileStore) writeLocked(sessions []*model.ChatSession) error {
	data, err := json.MarshalIndent(sessions, "", "  ")
	if err != nil {
		return err
	}

	// RELIABILITY: Atomic write with fsync prevents data loss on crash
	return util.AtomicWriteFile(s.Path, data, 0644)
}

func sortByRecency(sessions []*model.ChatSession) {
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
}

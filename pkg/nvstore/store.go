// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package nvstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store loads and saves the bind record
type Store interface {
	// Load returns the stored record, or ErrNoRecord if there is none.
	Load() (Record, error)

	// Save replaces the stored record.
	Save(r Record) error
}

// Eraser is implemented by stores that can forget their record
type Eraser interface {
	Erase() error
}

// FileStore keeps the record image in a file
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by the file at path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the record image from disk
func (s *FileStore) Load() (Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Record{}, ErrNoRecord
		}
		return Record{}, fmt.Errorf("failed to read bind record: %w", err)
	}
	return Unmarshal(data)
}

// Save writes the record image, replacing the file atomically
func (s *FileStore) Save(r Record) error {
	if !r.Valid() {
		return ErrInvalidRecord
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".bind-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	img := r.Marshal()
	if _, err := tmp.Write(img[:]); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write bind record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write bind record: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace bind record: %w", err)
	}
	return nil
}

// Erase fills the record with 0xFF, like an erased EEPROM page
func (s *FileStore) Erase() error {
	var blank [RecordSize]byte
	for i := range blank {
		blank[i] = 0xFF
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}
	if err := os.WriteFile(s.path, blank[:], 0644); err != nil {
		return fmt.Errorf("failed to erase bind record: %w", err)
	}
	return nil
}

// MemoryStore keeps the record image in memory
type MemoryStore struct {
	mu    sync.Mutex
	image []byte

	// SaveErr, when set, is returned by Save without storing anything.
	SaveErr error

	saves int
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load decodes the stored image
func (s *MemoryStore) Load() (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.image == nil {
		return Record{}, ErrNoRecord
	}
	return Unmarshal(s.image)
}

// Save stores the record image
func (s *MemoryStore) Save(r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	if !r.Valid() {
		return ErrInvalidRecord
	}
	img := r.Marshal()
	s.image = img[:]
	s.saves++
	return nil
}

// Erase forgets the stored record
func (s *MemoryStore) Erase() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.image = nil
	return nil
}

// Saves returns the number of successful saves
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// Image returns a copy of the stored image, nil if empty
func (s *MemoryStore) Image() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.image == nil {
		return nil
	}
	return append([]byte(nil), s.image...)
}

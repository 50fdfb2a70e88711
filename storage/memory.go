package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// memoryLocationPrefix location prefix of in-memory documents
const memoryLocationPrefix = "memory://"

// MemoryStore in-memory DocumentStore
//
// Documents do not survive the process. It is meant for tests and throwaway runs.
type MemoryStore struct {
	lock      sync.RWMutex
	documents map[string][]byte
}

// NewMemoryStore define an empty in-memory document store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{documents: make(map[string][]byte)}
}

func (s *MemoryStore) Driver() Driver {
	return DriverMemory
}

func (s *MemoryStore) Locator() string {
	return memoryLocationPrefix
}

// Create store a new document, failing if the name is already taken
func (s *MemoryStore) Create(_ context.Context, name string, content []byte) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	location := memoryLocationPrefix + name

	s.lock.Lock()
	defer s.lock.Unlock()
	if _, ok := s.documents[location]; ok {
		return "", fmt.Errorf("document %s [%w]", location, ErrDocumentExists)
	}
	s.documents[location] = append([]byte(nil), content...)
	return location, nil
}

// Write replace the content of the document at a location
func (s *MemoryStore) Write(_ context.Context, location string, content []byte) error {
	if !strings.HasPrefix(location, memoryLocationPrefix) {
		return fmt.Errorf("location %s is not an in-memory document", location)
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	s.documents[location] = append([]byte(nil), content...)
	return nil
}

// Read fetch the content of the document at a location
func (s *MemoryStore) Read(_ context.Context, location string) ([]byte, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	content, ok := s.documents[location]
	if !ok {
		return nil, fmt.Errorf("document %s [%w]", location, ErrDocumentNotFound)
	}
	return append([]byte(nil), content...), nil
}

// Remove drop a document, reporting whether it existed
//
// Records never delete their documents; this exists so tests can stage a record whose
// document has gone missing.
func (s *MemoryStore) Remove(location string) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	_, ok := s.documents[location]
	delete(s.documents, location)
	return ok
}

// Len number of documents held
func (s *MemoryStore) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.documents)
}

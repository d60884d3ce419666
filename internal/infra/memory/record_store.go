package memory

import (
	"context"
	"fmt"
	"sync"

	"quizsphere/internal/domain"
)

// RecordStore is an in-process handoff slot. Each record can be taken once.
type RecordStore struct {
	mu      sync.Mutex
	records map[string]domain.SessionRecord
}

func NewRecordStore() *RecordStore {
	return &RecordStore{records: make(map[string]domain.SessionRecord)}
}

// Put writes the record once. A second write for the same session fails
// with domain.ErrRecordExists.
func (s *RecordStore) Put(_ context.Context, record domain.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[record.SessionID]; ok {
		return fmt.Errorf("%w: %s", domain.ErrRecordExists, record.SessionID)
	}
	s.records[record.SessionID] = record
	return nil
}

func (s *RecordStore) Take(_ context.Context, sessionID string) (domain.SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[sessionID]
	if !ok {
		return domain.SessionRecord{}, domain.ErrRecordNotFound
	}
	delete(s.records, sessionID)
	return record, nil
}

// Discard drops the record without reading it.
func (s *RecordStore) Discard(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, sessionID)
	return nil
}

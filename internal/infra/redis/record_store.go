package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"quizsphere/internal/domain"
)

// RecordStore keeps handoff records in Redis until the reporting stage takes them.
// Records are stored as JSON: SET quizsphere:results:{sessionID} {record} NX EX ttl
type RecordStore struct {
	client *redis.Client
	ttl    time.Duration

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewRecordStore(client *redis.Client, ttl time.Duration) *RecordStore {
	return &RecordStore{
		client: client,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Put writes the record once. A second write for the same session fails
// with domain.ErrRecordExists.
func (s *RecordStore) Put(ctx context.Context, record domain.SessionRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", record.SessionID, err)
	}
	ok, err := s.client.SetNX(ctx, s.key(record.SessionID), payload, s.ttlWithJitter()).Result()
	if err != nil {
		return fmt.Errorf("store record %s: %w", record.SessionID, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrRecordExists, record.SessionID)
	}
	return nil
}

// Take reads and deletes the record atomically.
func (s *RecordStore) Take(ctx context.Context, sessionID string) (domain.SessionRecord, error) {
	payload, err := s.client.GetDel(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.SessionRecord{}, domain.ErrRecordNotFound
	}
	if err != nil {
		return domain.SessionRecord{}, fmt.Errorf("take record %s: %w", sessionID, err)
	}

	var record domain.SessionRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return domain.SessionRecord{}, fmt.Errorf("decode record %s: %w", sessionID, err)
	}
	return record, nil
}

// Discard drops the record without reading it.
func (s *RecordStore) Discard(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("discard record %s: %w", sessionID, err)
	}
	return nil
}

func (s *RecordStore) key(sessionID string) string {
	return "quizsphere:results:" + sessionID
}

func (s *RecordStore) ttlWithJitter() time.Duration {
	if s.ttl <= 0 {
		return 0
	}
	jitterMax := int64(s.ttl) / 10
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ttl + time.Duration(s.rnd.Int63n(jitterMax+1))
}

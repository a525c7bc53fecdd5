package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"famledger-server/src/models"
)

// MemorySessionStore keeps import sessions in an in-process ristretto cache with a
// per-entry TTL. Sessions are stored serialized so callers never share memory with
// the cache. Only suitable for a single server process.
type MemorySessionStore struct {
	cache *ristretto.Cache[string, []byte]
}

func NewMemorySessionStore() (*MemorySessionStore, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: 10000, // number of keys to track frequency of
		MaxCost:     64 << 20,
		BufferItems: 64, // number of keys per Get buffer
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session cache: %w", err)
	}
	return &MemorySessionStore{cache: cache}, nil
}

func (s *MemorySessionStore) Save(ctx context.Context, key string, session *models.ImportSession, ttl time.Duration) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if !s.cache.SetWithTTL(key, data, int64(len(data)), ttl) {
		return fmt.Errorf("session cache rejected %s", key)
	}
	// make the write visible to the next request
	s.cache.Wait()
	return nil
}

func (s *MemorySessionStore) Load(ctx context.Context, key string) (*models.ImportSession, error) {
	data, ok := s.cache.Get(key)
	if !ok {
		return nil, ErrNotFound
	}
	var session models.ImportSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	return &session, nil
}

func (s *MemorySessionStore) Delete(ctx context.Context, key string) error {
	s.cache.Del(key)
	return nil
}

func (s *MemorySessionStore) Close() {
	s.cache.Close()
}

package userdata

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Scopes partition the values shared between workflow states.
const (
	ScopeTask    = "task"    // raw spec copy, parsed task, task list
	ScopeSession = "session" // run id, declared test, simulation flag
	ScopeHistory = "history" // per-run outcome log
)

// Scopes lists every scope a store knows about.
var Scopes = []string{ScopeTask, ScopeSession, ScopeHistory}

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = errors.New("userdata: key not found")

// Store is scoped key-value storage shared by the states of a workflow.
// Values are stored as JSON; Get decodes into dst.
type Store interface {
	Get(scope, key string, dst any) error
	Set(scope, key string, value any) error
	Delete(scope, key string) error
	List(scope string) (map[string]any, error)
	Close() error
}

// BoltStore is a bbolt-backed Store, so a cached spec survives restarts.
type BoltStore struct {
	db *bolt.DB
	mu sync.RWMutex
}

// NewBoltStore opens or creates the store at path.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, scope := range Scopes {
			if _, err := tx.CreateBucketIfNotExists([]byte(scope)); err != nil {
				return fmt.Errorf("create bucket %s: %w", scope, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Get(scope, key string, dst any) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(scope))
		if b == nil {
			return fmt.Errorf("scope not found: %s", scope)
		}
		data := b.Get([]byte(key))
		if data == nil {
			return fmt.Errorf("%w: %s/%s", ErrNotFound, scope, key)
		}
		return json.Unmarshal(data, dst)
	})
}

func (s *BoltStore) Set(scope, key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s/%s: %w", scope, key, err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(scope))
		if b == nil {
			return fmt.Errorf("scope not found: %s", scope)
		}
		return b.Put([]byte(key), data)
	})
}

func (s *BoltStore) Delete(scope, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(scope))
		if b == nil {
			return fmt.Errorf("scope not found: %s", scope)
		}
		return b.Delete([]byte(key))
	})
}

func (s *BoltStore) List(scope string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]any)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(scope))
		if b == nil {
			return fmt.Errorf("scope not found: %s", scope)
		}
		return b.ForEach(func(k, v []byte) error {
			var val any
			if err := json.Unmarshal(v, &val); err != nil {
				return fmt.Errorf("unmarshal key %s: %w", string(k), err)
			}
			result[string(k)] = val
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

// MemoryStore keeps values in memory. Used for simulation runs and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	scopes map[string]map[string][]byte
}

// NewMemoryStore creates an empty in-memory store with all scopes present.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{scopes: make(map[string]map[string][]byte, len(Scopes))}
	for _, scope := range Scopes {
		s.scopes[scope] = make(map[string][]byte)
	}
	return s
}

func (s *MemoryStore) Get(scope, key string, dst any) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.scopes[scope]
	if !ok {
		return fmt.Errorf("scope not found: %s", scope)
	}
	data, ok := b[key]
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, scope, key)
	}
	return json.Unmarshal(data, dst)
}

func (s *MemoryStore) Set(scope, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s/%s: %w", scope, key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.scopes[scope]
	if !ok {
		return fmt.Errorf("scope not found: %s", scope)
	}
	b[key] = data
	return nil
}

func (s *MemoryStore) Delete(scope, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.scopes[scope]
	if !ok {
		return fmt.Errorf("scope not found: %s", scope)
	}
	delete(b, key)
	return nil
}

func (s *MemoryStore) List(scope string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.scopes[scope]
	if !ok {
		return nil, fmt.Errorf("scope not found: %s", scope)
	}
	result := make(map[string]any, len(b))
	for k, data := range b {
		var val any
		if err := json.Unmarshal(data, &val); err != nil {
			return nil, fmt.Errorf("unmarshal key %s: %w", k, err)
		}
		result[k] = val
	}
	return result, nil
}

func (s *MemoryStore) Close() error { return nil }

// Keys returns the sorted keys of a scope.
func Keys(s Store, scope string) ([]string, error) {
	items, err := s.List(scope)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

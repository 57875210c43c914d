package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// InMemoryStore keeps documents in insertion order per collection.
type InMemoryStore struct {
	mu          sync.RWMutex
	collections map[string][]Document
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{collections: make(map[string][]Document)}
}

var _ DocumentStore = (*InMemoryStore)(nil)

func (s *InMemoryStore) Name() string { return "memory" }

func (s *InMemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

func (s *InMemoryStore) Create(ctx context.Context, collection string, record any) (string, error) {
	fields, err := toFields(record)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[collection] = append(s.collections[collection], Document{ID: id, Fields: fields})
	return id, nil
}

func (s *InMemoryStore) Query(ctx context.Context, collection string, filter Filter) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	want, err := toFields(filter)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Document, 0, len(s.collections[collection]))
	for _, d := range s.collections[collection] {
		if matches(d.Fields, want) {
			out = append(out, d.Clone())
		}
	}
	return out, nil
}

func (s *InMemoryStore) Collections(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

// Insert stores raw fields as-is, bypassing JSON normalisation. Tests use it
// to seed malformed documents.
func (s *InMemoryStore) Insert(collection string, fields map[string]any) string {
	id := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[collection] = append(s.collections[collection], Document{ID: id, Fields: fields})
	return id
}

// toFields round-trips v through JSON so in-memory documents look exactly
// like the ones read back from Postgres (numbers become float64).
func toFields(v any) (map[string]any, error) {
	if v == nil {
		return map[string]any{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	fields := map[string]any{}
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, fmt.Errorf("document must be a JSON object: %w", err)
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}

func matches(fields, want map[string]any) bool {
	for k, v := range want {
		got, ok := fields[k]
		if !ok || !reflect.DeepEqual(got, v) {
			return false
		}
	}
	return true
}

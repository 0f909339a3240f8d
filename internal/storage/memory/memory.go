// Package memory keeps mappings, settings and the delivery ledger in process
// memory. Nothing survives a restart; it backs tests and local runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"media_syndicator/internal/domain"
)

type MappingStore struct {
	mu       sync.RWMutex
	mappings map[string]string
}

func NewMappingStore() *MappingStore {
	return &MappingStore{mappings: make(map[string]string)}
}

func (s *MappingStore) Upsert(_ context.Context, m domain.Mapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mappings[m.SourceID] = m.DestinationID
	return nil
}

func (s *MappingStore) Delete(_ context.Context, sourceID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.mappings[sourceID]
	delete(s.mappings, sourceID)
	return ok, nil
}

// List returns mappings ordered by source id.
func (s *MappingStore) List(_ context.Context) ([]domain.Mapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Mapping, 0, len(s.mappings))
	for src, dst := range s.mappings {
		out = append(out, domain.Mapping{SourceID: src, DestinationID: dst})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SourceID < out[j].SourceID })
	return out, nil
}

type SettingsStore struct {
	mu     sync.RWMutex
	values map[string]int
}

func NewSettingsStore() *SettingsStore {
	return &SettingsStore{values: make(map[string]int)}
}

func (s *SettingsStore) GetInt(_ context.Context, key string) (int, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *SettingsStore) PutInt(_ context.Context, key string, value int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

type Ledger struct {
	mu        sync.RWMutex
	delivered map[string]struct{}
}

func NewLedger() *Ledger {
	return &Ledger{delivered: make(map[string]struct{})}
}

func (l *Ledger) Delivered(_ context.Context, itemIDs []string) (map[string]struct{}, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]struct{})
	for _, id := range itemIDs {
		if _, ok := l.delivered[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

func (l *Ledger) MarkDelivered(_ context.Context, itemID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.delivered[itemID] = struct{}{}
	return nil
}

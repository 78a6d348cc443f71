package repository

import (
	"context"
	"sync"
)

// MemoryPreferenceRepository keeps preferences in process memory. Used when
// no durable backend is configured, and in tests.
type MemoryPreferenceRepository struct {
	mu sync.Mutex
	m  map[string]string
}

func NewMemoryPreferenceRepository() *MemoryPreferenceRepository {
	return &MemoryPreferenceRepository{m: make(map[string]string)}
}

func (r *MemoryPreferenceRepository) Get(_ context.Context, clientID, key string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.m[clientID+"/"+key], nil
}

func (r *MemoryPreferenceRepository) Set(_ context.Context, clientID, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[clientID+"/"+key] = value
	return nil
}

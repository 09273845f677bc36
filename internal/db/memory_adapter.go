package db

import (
	"context"
	"sync"

	"github.com/lexconsult/consult-client/internal/apierrors"
)

// MemoryAdapter keeps the state only for the lifetime of the process
type MemoryAdapter struct {
	store map[string]string
	lock  sync.RWMutex
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{store: map[string]string{}}
}

func (m *MemoryAdapter) GetValue(_ context.Context, key string) (string, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	val, found := m.store[key]
	if !found {
		return "", apierrors.ErrMissingDBResource
	}
	return val, nil
}

func (m *MemoryAdapter) SetValue(_ context.Context, key string, value string) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.store[key] = value
	return nil
}

func (m *MemoryAdapter) RemoveValue(_ context.Context, keys ...string) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	for _, key := range keys {
		delete(m.store, key)
	}
	return nil
}

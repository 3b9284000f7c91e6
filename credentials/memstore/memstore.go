package memstore

import (
	"context"
	"errors"
	"sync"

	"github.com/jrsteele09/academy-portal/credentials"
)

var _ credentials.Backend = (*MemStore)(nil)

var errUnavailable = errors.New("memory store unavailable")

// MemStore keeps credentials in process memory. Contents are lost on restart.
type MemStore struct {
	values      map[string]string
	unavailable bool
	lock        sync.RWMutex
}

func New() *MemStore {
	return &MemStore{
		values: make(map[string]string),
	}
}

func (m *MemStore) Load(_ context.Context, keys []string) (map[string]string, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	if m.unavailable {
		return nil, errUnavailable
	}

	found := make(map[string]string, len(keys))
	for _, key := range keys {
		if v, ok := m.values[key]; ok {
			found[key] = v
		}
	}
	return found, nil
}

func (m *MemStore) Replace(_ context.Context, keys []string, values map[string]string) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.unavailable {
		return errUnavailable
	}

	for _, key := range keys {
		delete(m.values, key)
	}
	for key, v := range values {
		m.values[key] = v
	}
	return nil
}

// SetUnavailable makes every subsequent call fail, as when storage is disabled.
func (m *MemStore) SetUnavailable(unavailable bool) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.unavailable = unavailable
}

// Set writes a raw key, bypassing record validation. Useful to seed corrupt data.
func (m *MemStore) Set(key, value string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.values[key] = value
}

// Keys returns a snapshot of every stored key.
func (m *MemStore) Keys() []string {
	m.lock.RLock()
	defer m.lock.RUnlock()

	keys := make([]string, 0, len(m.values))
	for key := range m.values {
		keys = append(keys, key)
	}
	return keys
}

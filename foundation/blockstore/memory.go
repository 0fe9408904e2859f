package blockstore

import "sync"

// memoryBackend is the in-memory Backend used for tests. A mutex-guarded
// map, nothing more.
type memoryBackend struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// Memory constructs a Backend that never touches disk.
func Memory() Backend {
	return &memoryBackend{data: make(map[string][]byte)}
}

func (m *memoryBackend) Get(key []byte) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[string(key)]
	if !ok {
		return nil, false, nil
	}

	cpy := make([]byte, len(v))
	copy(cpy, v)
	return cpy, true, nil
}

func (m *memoryBackend) Put(key []byte, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cpy := make([]byte, len(value))
	copy(cpy, value)
	m.data[string(key)] = cpy
	return nil
}

func (m *memoryBackend) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, string(key))
	return nil
}

func (m *memoryBackend) ForEach(fn func(key, value []byte) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for k, v := range m.data {
		if err := fn([]byte(k), v); err != nil {
			return err
		}
	}
	return nil
}

func (m *memoryBackend) Count() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.data), nil
}

func (m *memoryBackend) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = make(map[string][]byte)
	return nil
}

func (m *memoryBackend) Close() error {
	return nil
}

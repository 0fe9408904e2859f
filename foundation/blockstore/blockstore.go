// Package blockstore is the content-addressed block table every other
// package in this core depends on: hash -> block, with an additional
// (hash, height) lookup derived from the stored block's own Height field.
// Two backends implement the keyed table: an in-memory map for tests and
// a goleveldb database for durable nodes.
package blockstore

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/coreblock/node/foundation/block"
	"github.com/coreblock/node/foundation/chainerrs"
	"github.com/coreblock/node/foundation/hash"
)

// Backend is the minimal byte-oriented key/value contract a BlockStore
// persists through. Keys are raw 32-byte hashes.
type Backend interface {
	Get(key []byte) ([]byte, bool, error)
	Put(key []byte, value []byte) error
	Delete(key []byte) error
	ForEach(fn func(key, value []byte) error) error
	Count() (int, error)
	Clear() error
	Close() error
}

// Store is the process-wide block table. It is safe for concurrent use;
// every method below takes its own lock around the chosen Backend, which
// is itself self-synchronizing for the disk backend and explicitly
// guarded here for the memory backend.
type Store struct {
	mu      sync.RWMutex
	backend Backend
}

// New wraps backend in a Store. Use Memory or Disk below to build backend.
func New(backend Backend) *Store {
	return &Store{backend: backend}
}

// Open constructs the process-wide block table for selector ("memory" or
// "disk"). path is only consulted for the disk backend. Callers are
// expected to defer Close.
func Open(selector string, path string) (*Store, error) {
	switch selector {
	case "", "memory":
		return New(Memory()), nil
	case "disk":
		backend, err := Disk(path)
		if err != nil {
			return nil, err
		}
		return New(backend), nil
	default:
		return nil, fmt.Errorf("blockstore: unknown backend selector %q", selector)
	}
}

// Store persists b, keyed by b.Hash, and returns it unchanged. Storing an
// equal block twice is a no-op (the second write overwrites with
// byte-identical content).
func (s *Store) Store(b block.Block) (block.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(b)
	if err != nil {
		return block.Block{}, fmt.Errorf("blockstore: marshal: %w", err)
	}

	if err := s.backend.Put(b.Hash[:], data); err != nil {
		return block.Block{}, fmt.Errorf("blockstore: put: %w", err)
	}

	return b, nil
}

// FindByHash returns the block keyed by h, or chainerrs.ErrNotFound.
func (s *Store) FindByHash(h hash.Hash) (block.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok, err := s.backend.Get(h[:])
	if err != nil {
		return block.Block{}, fmt.Errorf("blockstore: get: %w", err)
	}
	if !ok {
		return block.Block{}, chainerrs.ErrNotFound
	}

	var b block.Block
	if err := json.Unmarshal(data, &b); err != nil {
		return block.Block{}, fmt.Errorf("blockstore: unmarshal: %w", err)
	}

	return b, nil
}

// FindByHashAndHeight succeeds iff a block is stored under h and its
// Height equals height.
func (s *Store) FindByHashAndHeight(h hash.Hash, height uint64) (block.Block, error) {
	b, err := s.FindByHash(h)
	if err != nil {
		return block.Block{}, err
	}

	if b.Height != height {
		return block.Block{}, chainerrs.ErrNotFound
	}

	return b, nil
}

// Remove deletes the block keyed by h.
func (s *Store) Remove(h hash.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok, err := s.backend.Get(h[:])
	if err != nil {
		return fmt.Errorf("blockstore: get: %w", err)
	}
	if !ok || data == nil {
		return chainerrs.ErrNotFound
	}

	if err := s.backend.Delete(h[:]); err != nil {
		return fmt.Errorf("blockstore: delete: %w", err)
	}

	return nil
}

// Count returns the number of stored blocks.
func (s *Store) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.backend.Count()
}

// Clear removes every stored block. Test-only support.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.backend.Clear()
}

// Close releases the underlying backend's resources (file handles for the
// disk backend; a no-op for the memory backend).
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.backend.Close()
}

package block_test

import (
	"errors"
	"testing"

	"github.com/coreblock/node/foundation/block"
	"github.com/coreblock/node/foundation/chainerrs"
	"github.com/coreblock/node/foundation/hash"
)

// memStore is a minimal block.Store used only to exercise lineage walks
// in this package's tests.
type memStore struct {
	byHash map[hash.Hash]block.Block
}

func newMemStore() *memStore {
	return &memStore{byHash: make(map[hash.Hash]block.Block)}
}

func (s *memStore) put(b block.Block) {
	s.byHash[b.Hash] = b
}

func (s *memStore) FindByHash(h hash.Hash) (block.Block, error) {
	b, ok := s.byHash[h]
	if !ok {
		return block.Block{}, chainerrs.ErrNotFound
	}
	return b, nil
}

func (s *memStore) FindByHashAndHeight(h hash.Hash, height uint64) (block.Block, error) {
	b, err := s.FindByHash(h)
	if err != nil {
		return block.Block{}, err
	}
	if b.Height != height {
		return block.Block{}, chainerrs.ErrNotFound
	}
	return b, nil
}

// =============================================================================

func Test_SealIsIdempotent(t *testing.T) {
	b := block.New(hash.Perform("payload"), 100)

	once := block.Seal(b)
	twice := block.Seal(once)

	if once.ComponentHash != twice.ComponentHash {
		t.Fatalf("sealing twice changed component hash: %s vs %s", once.ComponentHash, twice.ComponentHash)
	}
}

func Test_EmptyBlockSeal(t *testing.T) {
	sealed := block.Seal(block.New(hash.Invalid, 0))

	got := hash.ReadableShort(sealed.ComponentHash)
	exp := "e3f001a9"
	if got != exp {
		t.Fatalf("got component hash short %s, exp %s", got, exp)
	}
}

func Test_EnsureFinal_ErrorOrdering(t *testing.T) {
	sealed := block.Seal(block.New(hash.Perform("x"), 1))

	// Corrupt the component hash: component mismatch must be reported
	// even though the hash field is also inconsistent with it.
	corrupted := sealed
	corrupted.ComponentHash = hash.Zero
	if err := block.EnsureFinal(corrupted); !errors.Is(err, chainerrs.ErrComponentHashMismatch) {
		t.Fatalf("got %v, exp component_hash_mismatch", err)
	}

	// Component hash correct, but nonce/hash not derived from it.
	unmined := sealed
	unmined.Hash = hash.Zero
	if err := block.EnsureFinal(unmined); !errors.Is(err, chainerrs.ErrHashMismatch) {
		t.Fatalf("got %v, exp hash_mismatch", err)
	}
}

func Test_EnsureKnownParent_Genesis(t *testing.T) {
	g := block.Block{Height: 0, ParentHash: hash.Zero}
	store := newMemStore()

	if err := block.EnsureKnownParent(g, store); err != nil {
		t.Fatalf("genesis should always have a known parent: %s", err)
	}
}

func Test_EnsureKnownParent_Unknown(t *testing.T) {
	store := newMemStore()
	orphan := block.Block{Height: 5, ParentHash: hash.Perform("nowhere")}

	if err := block.EnsureKnownParent(orphan, store); !errors.Is(err, chainerrs.ErrUnknownParent) {
		t.Fatalf("got %v, exp unknown_parent", err)
	}
}

func Test_Ancestry(t *testing.T) {
	store := newMemStore()

	genesis := block.Block{Height: 0, ParentHash: hash.Zero, Hash: hash.Perform("g")}
	store.put(genesis)

	b1 := block.Block{Height: 1, ParentHash: genesis.Hash, Hash: hash.Perform("b1")}
	store.put(b1)

	b2 := block.Block{Height: 2, ParentHash: b1.Hash, Hash: hash.Perform("b2")}
	store.put(b2)

	b3 := block.Block{Height: 3, ParentHash: b2.Hash, Hash: hash.Perform("b3")}
	store.put(b3)

	ancestors, err := block.Ancestry(b3, store, -1)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	exp := []hash.Hash{genesis.Hash, b1.Hash, b2.Hash}
	if len(ancestors) != len(exp) {
		t.Fatalf("got %d ancestors, exp %d", len(ancestors), len(exp))
	}
	for i, a := range ancestors {
		if a.Hash != exp[i] {
			t.Fatalf("ancestor %d: got %s, exp %s", i, a.Hash, exp[i])
		}
	}

	// Genesis has no ancestors.
	none, err := block.Ancestry(genesis, store, -1)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if len(none) != 0 {
		t.Fatalf("genesis should have no ancestors, got %d", len(none))
	}
}

func Test_AncestryContains(t *testing.T) {
	store := newMemStore()

	genesis := block.Block{Height: 0, ParentHash: hash.Zero, Hash: hash.Perform("g")}
	store.put(genesis)
	b1 := block.Block{Height: 1, ParentHash: genesis.Hash, Hash: hash.Perform("b1")}
	store.put(b1)

	ok, err := block.AncestryContains(b1, store, genesis.Hash)
	if err != nil || !ok {
		t.Fatalf("expected genesis to be found in b1's ancestry, got ok=%v err=%v", ok, err)
	}

	ok, err = block.AncestryContains(b1, store, hash.Perform("nope"))
	if err != nil || ok {
		t.Fatalf("expected unrelated hash to not be found, got ok=%v err=%v", ok, err)
	}
}

func Test_Difficulty(t *testing.T) {
	tests := []struct {
		height uint64
		exp    int
	}{
		{0, 1},
		{127, 1},
		{128, 2},
		{255, 2},
		{256, 3},
	}

	for _, tt := range tests {
		if got := block.Difficulty(tt.height); got != tt.exp {
			t.Fatalf("height %d: got difficulty %d, exp %d", tt.height, got, tt.exp)
		}
	}
}

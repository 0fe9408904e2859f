// Package block implements the chain's fundamental record: an immutable
// value with a hash-chain parent link and a proof-of-work seal.
package block

import (
	"strconv"

	"github.com/coreblock/node/foundation/chainerrs"
	"github.com/coreblock/node/foundation/genesis"
	"github.com/coreblock/node/foundation/hash"
)

// Block is the fundamental on-chain record. Values are immutable once
// mined; every operation below returns a new Block rather than mutating
// in place.
type Block struct {
	Height        uint64
	Timestamp     uint64
	ParentHash    hash.Hash
	ContentHash   hash.Hash
	ComponentHash hash.Hash
	Nonce         uint64
	Hash          hash.Hash
}

// Store is the subset of BlockStore behavior Block needs to walk and
// validate lineage. Block depends only on this interface, not on the
// blockstore package, so the store can depend on Block without a cycle.
type Store interface {
	FindByHash(h hash.Hash) (Block, error)
	FindByHashAndHeight(h hash.Hash, height uint64) (Block, error)
}

// New constructs an unsealed, unmined genesis-shaped block carrying only
// the caller-supplied payload identifier and timestamp. Height is 0 and
// every hash field besides ContentHash is hash.Invalid until AsChildOf and
// Seal are applied.
func New(contentHash hash.Hash, timestamp uint64) Block {
	return Block{
		Height:        0,
		Timestamp:     timestamp,
		ParentHash:    hash.Invalid,
		ContentHash:   contentHash,
		ComponentHash: hash.Invalid,
		Hash:          hash.Invalid,
		Nonce:         0,
	}
}

// AsChildOf returns b with Height and ParentHash set relative to parent.
// No other field is touched.
func AsChildOf(b Block, parent Block) Block {
	b.Height = parent.Height + 1
	b.ParentHash = parent.Hash
	return b
}

// Genesis returns the block described by the configured genesis fields.
// Genesis itself does not validate; the caller is responsible for checking
// the result with EnsureFinal before trusting it (logic.New does so).
func Genesis(g genesis.Genesis) Block {
	return Block{
		Height:        0,
		Timestamp:     g.Timestamp,
		ParentHash:    g.ParentHash,
		ContentHash:   g.ContentHash,
		ComponentHash: g.ComponentHash,
		Nonce:         g.Nonce,
		Hash:          g.Hash,
	}
}

// Seal computes ComponentHash from the block's immutable fields and
// returns the updated block. Seal is idempotent: sealing twice produces
// identical bytes because it only ever reads Height/Timestamp/ParentHash/
// ContentHash, never ComponentHash itself.
func Seal(b Block) Block {
	b.ComponentHash = componentHash(b)
	return b
}

func componentHash(b Block) hash.Hash {

	// A zero timestamp marks a block that was never given one and
	// contributes an empty field. Real block timestamps are seconds
	// since epoch and never zero.
	var ts string
	if b.Timestamp != 0 {
		ts = strconv.FormatUint(b.Timestamp, 10)
	}

	return hash.Perform(
		strconv.FormatUint(b.Height, 10),
		ts,
		b.ParentHash,
		b.ContentHash,
	)
}

func blockHash(componentHash hash.Hash, nonce uint64) hash.Hash {
	return hash.Perform(componentHash, strconv.FormatUint(nonce, 10))
}

// Difficulty returns the number of leading zero bytes required of a
// block's hash at the given height. It grows by one every 128 heights.
func Difficulty(height uint64) int {
	return int(height/128) + 1
}

// EnsureFinal independently re-derives ComponentHash and Hash from b's
// other fields and compares them to the stored values, then checks the
// hash against the difficulty for b.Height. Errors are reported in this
// fixed order: component hash mismatch, then hash mismatch, then unmet
// difficulty.
func EnsureFinal(b Block) error {
	if componentHash(b) != b.ComponentHash {
		return chainerrs.ErrComponentHashMismatch
	}

	if blockHash(b.ComponentHash, b.Nonce) != b.Hash {
		return chainerrs.ErrHashMismatch
	}

	return hash.EnsureHardness(b.Hash, Difficulty(b.Height))
}

// EnsureKnownParent succeeds iff store holds a block with hash
// b.ParentHash at height b.Height-1. Genesis (ParentHash == hash.Zero) is
// an explicit success without consulting the store.
func EnsureKnownParent(b Block, store Store) error {
	if b.ParentHash == hash.Zero {
		return nil
	}

	if b.Height == 0 {
		return chainerrs.ErrUnknownParent
	}

	if _, err := store.FindByHashAndHeight(b.ParentHash, b.Height-1); err != nil {
		return chainerrs.ErrUnknownParent
	}

	return nil
}

// Mined reports whether b has a known (or genesis) parent and passes
// EnsureFinal.
func Mined(b Block, store Store) bool {
	if err := EnsureKnownParent(b, store); err != nil {
		return false
	}
	return EnsureFinal(b) == nil
}

// Ancestry walks b's lineage through store via ParentHash, oldest first,
// stopping once n entries have been collected (n == -1 means unbounded)
// or a block whose ParentHash is hash.Zero is reached. b itself is never
// included. The first store error encountered aborts the walk and is
// returned.
func Ancestry(b Block, store Store, n int) ([]Block, error) {
	var reversed []Block

	cur := b
	for n < 0 || len(reversed) < n {
		if cur.ParentHash == hash.Zero {
			break
		}

		parent, err := store.FindByHash(cur.ParentHash)
		if err != nil {
			return nil, err
		}

		reversed = append(reversed, parent)
		cur = parent
	}

	out := make([]Block, len(reversed))
	for i, blk := range reversed {
		out[len(reversed)-1-i] = blk
	}
	return out, nil
}

// AncestryContains reports whether any ancestor of b carries the hash
// target. A store failure mid-walk is propagated explicitly rather than
// collapsed into false, so a missing ancestor and a broken store stay
// distinguishable to the caller.
func AncestryContains(b Block, store Store, target hash.Hash) (bool, error) {
	ancestors, err := Ancestry(b, store, -1)
	if err != nil {
		return false, err
	}

	for _, a := range ancestors {
		if a.Hash == target {
			return true, nil
		}
	}
	return false, nil
}

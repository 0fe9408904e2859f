// Package genesis maintains access to the genesis block fields. Genesis
// arrives as a value injected at node startup; cmd/node is responsible
// for sourcing it, by flag or environment, through
// github.com/ardanlabs/conf/v3.
package genesis

import "github.com/coreblock/node/foundation/hash"

// Genesis carries the five hash fields and the two scalar fields that
// uniquely identify block zero for a given chain. Every node participating
// in the same network must be started with byte-identical Genesis values.
type Genesis struct {
	Timestamp     uint64
	Nonce         uint64
	ParentHash    hash.Hash
	ContentHash   hash.Hash
	ComponentHash hash.Hash
	Hash          hash.Hash
}

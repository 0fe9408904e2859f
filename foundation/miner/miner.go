// Package miner implements the nonce search loop that solves
// proof-of-work for a sealed block. Mine runs on the caller's goroutine
// and gives up as soon as its context is cancelled.
//
// This is a deliberately naive reference miner: a linear nonce scan
// starting at zero, with no lookahead or randomized starting nonce.
// Faster miners may replace it as long as they keep the same contract:
// given a sealed block, return it with Nonce/Hash set such that
// block.EnsureFinal succeeds.
package miner

import (
	"context"
	"strconv"

	"github.com/coreblock/node/foundation/block"
	"github.com/coreblock/node/foundation/hash"
)

// EventHandler receives progress lines the way every actor in this core
// reports activity (see foundation/logic and cmd/node).
type EventHandler func(v string, args ...any)

const progressInterval = 1_000_000

// Mine searches for a nonce satisfying block.Difficulty(sealed.Height)
// against sealed.ComponentHash, starting from zero and incrementing by
// one. It returns the block with Nonce and Hash filled in. Mine does not
// re-seal: sealed.ComponentHash is taken as given.
//
// Mine returns ctx.Err() the moment ctx is cancelled, even mid-search.
// Callers that want to abandon a long-running mining attempt simply
// cancel ctx.
func Mine(ctx context.Context, sealed block.Block, ev EventHandler) (block.Block, error) {
	if ev == nil {
		ev = func(string, ...any) {}
	}

	ev("miner: mine: started: height[%d]", sealed.Height)
	defer ev("miner: mine: completed: height[%d]", sealed.Height)

	difficulty := block.Difficulty(sealed.Height)

	var nonce uint64
	var attempts uint64
	for {
		attempts++
		if attempts%progressInterval == 0 {
			ev("miner: mine: attempts[%d]", attempts)
		}

		if err := ctx.Err(); err != nil {
			ev("miner: mine: cancelled: attempts[%d]", attempts)
			return block.Block{}, err
		}

		candidate := hash.Perform(sealed.ComponentHash, strconv.FormatUint(nonce, 10))
		if hash.EnsureHardness(candidate, difficulty) == nil {
			sealed.Nonce = nonce
			sealed.Hash = candidate
			ev("miner: mine: solved: height[%d]: nonce[%d]: hash[%s]", sealed.Height, nonce, hash.ReadableShort(candidate))
			return sealed, nil
		}

		nonce++
	}
}

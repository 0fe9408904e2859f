package miner_test

import (
	"context"
	"testing"

	"github.com/coreblock/node/foundation/block"
	"github.com/coreblock/node/foundation/hash"
	"github.com/coreblock/node/foundation/miner"
)

func Test_MineEmptyBlock(t *testing.T) {
	sealed := block.Seal(block.New(hash.Invalid, 0))

	mined, err := miner.Mine(context.Background(), sealed, nil)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if mined.Nonce != 315 {
		t.Fatalf("got nonce %d, exp 315", mined.Nonce)
	}

	got := hash.ReadableShort(mined.Hash)
	exp := "00e76dc4"
	if got != exp {
		t.Fatalf("got hash short %s, exp %s", got, exp)
	}

	if err := block.EnsureFinal(mined); err != nil {
		t.Fatalf("mined block should pass EnsureFinal: %s", err)
	}
}

func Test_Mine_Cancellable(t *testing.T) {
	sealed := block.Seal(block.Block{Height: 100_000}) // difficulty high enough to not resolve quickly

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := miner.Mine(ctx, sealed, nil); err == nil {
		t.Fatalf("expected mining to observe cancellation")
	}
}

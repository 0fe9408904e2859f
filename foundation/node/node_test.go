package node_test

import (
	"context"
	"testing"
	"time"

	"github.com/coreblock/node/foundation/block"
	"github.com/coreblock/node/foundation/blockstore"
	"github.com/coreblock/node/foundation/genesis"
	"github.com/coreblock/node/foundation/hash"
	"github.com/coreblock/node/foundation/miner"
	"github.com/coreblock/node/foundation/node"
)

// mineGenesis produces a fully mined, validating genesis configuration.
func mineGenesis(t *testing.T) genesis.Genesis {
	t.Helper()

	b := block.New(hash.Perform("genesis-content"), 1_700_000_000)
	b.ParentHash = hash.Zero

	mined, err := miner.Mine(context.Background(), block.Seal(b), nil)
	if err != nil {
		t.Fatalf("mining genesis: %s", err)
	}

	return genesis.Genesis{
		Timestamp:     mined.Timestamp,
		Nonce:         mined.Nonce,
		ParentHash:    mined.ParentHash,
		ContentHash:   mined.ContentHash,
		ComponentHash: mined.ComponentHash,
		Hash:          mined.Hash,
	}
}

// mineChild produces a mined block extending parent.
func mineChild(t *testing.T, parent block.Block, content string) block.Block {
	t.Helper()

	b := block.New(hash.Perform(content), parent.Timestamp+10)
	b = block.AsChildOf(b, parent)

	mined, err := miner.Mine(context.Background(), block.Seal(b), nil)
	if err != nil {
		t.Fatalf("mining child: %s", err)
	}

	return mined
}

func startNode(t *testing.T, uri string, gen genesis.Genesis) *node.Node {
	t.Helper()

	store := blockstore.New(blockstore.Memory())

	n, err := node.Start(node.Config{
		URI:     uri,
		Genesis: gen,
		Store:   store,
	})
	if err != nil {
		t.Fatalf("starting node %s: %s", uri, err)
	}

	t.Cleanup(func() {
		n.Shutdown()
		store.Close()
	})

	return n
}

func Test_StartIsIdempotent(t *testing.T) {
	gen := mineGenesis(t)

	a := startNode(t, "tcp://127.0.0.1:19080", gen)

	again, err := node.Start(node.Config{
		URI:     "tcp://127.0.0.1:19080",
		Genesis: gen,
	})
	if err != nil {
		t.Fatalf("second start: %s", err)
	}
	if again != a {
		t.Fatalf("starting a running URI should return the existing node")
	}
}

func Test_HandleNamesResolve(t *testing.T) {
	gen := mineGenesis(t)

	n := startNode(t, "tcp://127.0.0.1:19081", gen)
	h := n.Handle()

	for _, key := range []struct {
		role string
	}{
		{node.RoleNode}, {node.RoleLogic}, {node.RoleListener}, {node.RoleClients}, {node.RoleConnectors},
	} {
		k := h.Logic
		k.Role = key.role
		if _, ok := node.Lookup(k); !ok {
			t.Fatalf("role %q is not registered", key.role)
		}
	}
}

func Test_TwoNodeChainSync(t *testing.T) {
	gen := mineGenesis(t)

	a := startNode(t, "tcp://127.0.0.1:19082", gen)
	b := startNode(t, "tcp://127.0.0.1:19083", gen)

	// Grow node A's chain to height 3 before B ever connects.
	head := a.Logic().Genesis()
	for _, content := range []string{"p1", "p2", "p3"} {
		head = mineChild(t, head, content)
		if err := a.Logic().SubmitBlock(head); err != nil {
			t.Fatalf("submit %s: %s", content, err)
		}
	}

	b.Connect("tcp://" + a.ListenAddress())

	// B learns A's head via the highest query, detects the gap, pulls
	// the ancestry, and imports the chain oldest first.
	deadline := time.Now().Add(10 * time.Second)
	for b.Logic().Head().Hash != head.Hash {
		if time.Now().After(deadline) {
			t.Fatalf("node B never synced: head %s, exp %s", b.Logic().Head().Hash, head.Hash)
		}
		time.Sleep(50 * time.Millisecond)
	}

	if b.Logic().ChainLength() != 4 {
		t.Fatalf("got chain length %d, exp 4", b.Logic().ChainLength())
	}
}

func Test_AnnounceGossip(t *testing.T) {
	gen := mineGenesis(t)

	a := startNode(t, "tcp://127.0.0.1:19084", gen)
	b := startNode(t, "tcp://127.0.0.1:19085", gen)

	b.Connect("tcp://" + a.ListenAddress())

	// Wait for the link to be up on both sides.
	deadline := time.Now().Add(10 * time.Second)
	for a.Logic().PeerCount() == 0 || b.Logic().PeerCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("peers never linked: a=%d b=%d", a.Logic().PeerCount(), b.Logic().PeerCount())
		}
		time.Sleep(50 * time.Millisecond)
	}

	// A block submitted on A must arrive on B by gossip alone.
	child := mineChild(t, a.Logic().Genesis(), "gossip-me")
	if err := a.Logic().SubmitBlock(child); err != nil {
		t.Fatalf("submit: %s", err)
	}

	deadline = time.Now().Add(10 * time.Second)
	for b.Logic().Head().Hash != child.Hash {
		if time.Now().After(deadline) {
			t.Fatalf("announce never reached node B")
		}
		time.Sleep(50 * time.Millisecond)
	}
}

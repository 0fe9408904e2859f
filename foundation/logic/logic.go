// Package logic implements the per-node coordinator. One Logic owns the
// node's chain head, answers block queries, multiplexes every connected
// Peer, and gossips newly accepted blocks. All chain mutation funnels
// through a single mailbox goroutine, so chain updates are totally
// ordered and the chain needs no lock. The coordinator never calls into
// a Peer synchronously; outbound sends are fire-and-forget.
package logic

import (
	"fmt"
	"net"
	"time"

	"github.com/coreblock/node/foundation/block"
	"github.com/coreblock/node/foundation/blockstore"
	"github.com/coreblock/node/foundation/chainerrs"
	"github.com/coreblock/node/foundation/genesis"
	"github.com/coreblock/node/foundation/hash"
	"github.com/coreblock/node/foundation/peer"
	"github.com/coreblock/node/foundation/supervisor"
	"github.com/coreblock/node/foundation/wire"
	"github.com/google/uuid"
)

// EventHandler defines a function that is called when events
// occur in the processing of the node.
type EventHandler func(v string, args ...any)

// callTimeout bounds the synchronous request/response calls into the
// coordinator's mailbox. A caller whose call times out must assume the
// request never ran.
const callTimeout = 5 * time.Second

// mailboxSize bounds how many pending messages the coordinator queues
// before senders start blocking.
const mailboxSize = 256

// peerState is the coordinator's bookkeeping for one connected Peer.
type peerState struct {
	childID string
}

// Config represents the configuration required to start the coordinator.
type Config struct {
	URI       string
	Genesis   genesis.Genesis
	Store     *blockstore.Store
	Clients   *supervisor.Supervisor
	EvHandler EventHandler
}

// Logic manages the node's chain and peer set.
type Logic struct {
	uri       string
	genesis   block.Block
	store     *blockstore.Store
	clients   *supervisor.Supervisor
	evHandler EventHandler

	// Owned exclusively by the mailbox goroutine. chain is newest first;
	// the tail is always genesis.
	chain []block.Block
	peers map[*peer.Peer]*peerState

	mailbox chan func()
	done    chan struct{}
	stopped chan struct{}
}

// New constructs the coordinator, validates and persists the genesis
// block, and starts the mailbox goroutine.
func New(cfg Config) (*Logic, error) {
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	gen := block.Genesis(cfg.Genesis)
	if err := block.EnsureFinal(gen); err != nil {
		return nil, fmt.Errorf("logic: configured genesis does not validate: %w", err)
	}

	if _, err := cfg.Store.Store(gen); err != nil {
		return nil, fmt.Errorf("logic: persist genesis: %w", err)
	}

	l := Logic{
		uri:       cfg.URI,
		genesis:   gen,
		store:     cfg.Store,
		clients:   cfg.Clients,
		evHandler: ev,
		chain:     []block.Block{gen},
		peers:     make(map[*peer.Peer]*peerState),
		mailbox:   make(chan func(), mailboxSize),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}

	go l.processMailbox()

	return &l, nil
}

// processMailbox is the coordinator goroutine. Every chain mutation and
// peer-set change runs here, one message at a time.
func (l *Logic) processMailbox() {
	defer close(l.stopped)

	for {
		select {
		case fn := <-l.mailbox:
			fn()
		case <-l.done:
			return
		}
	}
}

// Shutdown stops the mailbox goroutine and tears down every Peer via the
// clients supervisor.
func (l *Logic) Shutdown() {
	l.evHandler("logic: shutdown: started: %s", l.uri)
	defer l.evHandler("logic: shutdown: completed: %s", l.uri)

	close(l.done)
	<-l.stopped

	l.clients.Shutdown()
}

// cast enqueues fn for the mailbox goroutine without waiting for it to
// run. Dropped silently once the coordinator is shut down.
func (l *Logic) cast(fn func()) {
	select {
	case l.mailbox <- fn:
	case <-l.done:
	}
}

// call enqueues fn and waits for it to run, bounded by callTimeout.
func (l *Logic) call(fn func()) error {
	ran := make(chan struct{})

	wrapped := func() {
		fn()
		close(ran)
	}

	select {
	case l.mailbox <- wrapped:
	case <-l.done:
		return fmt.Errorf("logic: coordinator is shut down")
	case <-time.After(callTimeout):
		return fmt.Errorf("logic: mailbox full: call timed out")
	}

	select {
	case <-ran:
		return nil
	case <-l.done:
		return fmt.Errorf("logic: coordinator is shut down")
	case <-time.After(callTimeout):
		return fmt.Errorf("logic: call timed out")
	}
}

// URI returns the node identity this coordinator serves.
func (l *Logic) URI() string {
	return l.uri
}

// Genesis returns the validated genesis block.
func (l *Logic) Genesis() block.Block {
	return l.genesis
}

// Head returns the newest block of the local chain.
func (l *Logic) Head() block.Block {
	var head block.Block
	l.call(func() { head = l.chain[0] })
	return head
}

// ChainLength returns the number of blocks on the local chain.
func (l *Logic) ChainLength() int {
	var n int
	l.call(func() { n = len(l.chain) })
	return n
}

// PeerCount returns the number of connected Peers.
func (l *Logic) PeerCount() int {
	var n int
	l.call(func() { n = len(l.peers) })
	return n
}

// =============================================================================
// Socket and Peer lifecycle

// OnClientSocket accepts ownership of a freshly connected socket from
// the listener or a connector and spawns the Peer actor that will own it.
// The call is bounded; on timeout the caller still owns the socket and
// must close it.
func (l *Logic) OnClientSocket(conn net.Conn, direction peer.Direction) error {
	traceID := uuid.NewString()

	p := peer.New(conn, direction, l, peer.EventHandler(l.evHandler))

	return l.call(func() {
		l.peers[p] = &peerState{childID: traceID}
		l.clients.Start(traceID, p.Run)

		l.evHandler("logic: on_client_socket: %s: direction[%s]: traceid[%s]", p.URI(), direction, traceID)
	})
}

// OnClientReady is called by a Peer once its read loop is up. An
// outbound Peer opens the conversation with a ping; either direction
// asks for the remote head to begin chain sync.
func (l *Logic) OnClientReady(p *peer.Peer) {
	l.cast(func() {
		if _, exists := l.peers[p]; !exists {
			return
		}

		l.evHandler("logic: on_client_ready: %s: direction[%s]", p.URI(), p.Direction())

		if p.Direction() == peer.Outbound {
			if err := p.Send(wire.Ping(1)); err != nil {
				l.evHandler("logic: on_client_ready: send ping: ERROR: %s", err)
				return
			}
		}

		if err := p.Send(wire.BlockQueryHighest()); err != nil {
			l.evHandler("logic: on_client_ready: send highest query: ERROR: %s", err)
		}
	})
}

// OnClientClosed is called by a Peer exactly once when its socket is
// gone. The Peer is removed from the set; nothing else is affected.
func (l *Logic) OnClientClosed(p *peer.Peer, reason error) {
	l.cast(func() {
		state, exists := l.peers[p]
		if !exists {
			return
		}

		delete(l.peers, p)
		l.clients.Stop(state.childID)

		l.evHandler("logic: on_client_closed: %s: reason[%v]", p.URI(), reason)
	})
}

// OnListenerTerminating records that the node's acceptor is gone. The
// supervisor policy of the embedding process decides what happens next.
func (l *Logic) OnListenerTerminating(reason error) {
	l.cast(func() {
		l.evHandler("logic: on_listener_terminating: %s: reason[%v]", l.uri, reason)
	})
}

// =============================================================================
// Inbound message dispatch

// OnClientData dispatches one decoded message from a Peer. Messages from
// a single Peer arrive here in wire order. Bad input from a peer is
// answered or logged, never fatal.
func (l *Logic) OnClientData(p *peer.Peer, msg wire.Tuple) {
	l.cast(func() {
		if _, exists := l.peers[p]; !exists {
			return
		}

		if len(msg) != 2 {
			l.evHandler("logic: on_client_data: %s: malformed message arity[%d]", p.URI(), len(msg))
			return
		}

		tag, ok := msg[0].(wire.Atom)
		if !ok {
			l.evHandler("logic: on_client_data: %s: non-atom message tag", p.URI())
			return
		}

		switch tag {
		case wire.TagPing:
			l.handlePing(p, msg[1])

		case wire.TagPong:
			l.handlePong(p, msg[1])

		case wire.TagBlockQuery:
			l.handleBlockQuery(p, msg[1])

		case wire.TagBlockResponse:
			l.handleBlockResponse(p, msg[1])

		case wire.TagAnnounce:
			l.handleAnnounce(p, msg[1])

		default:
			l.evHandler("logic: on_client_data: %s: unknown tag[%s]", p.URI(), tag)
		}
	})
}

func (l *Logic) handlePing(p *peer.Peer, payload any) {
	n, ok := payload.(wire.Uint)
	if !ok {
		l.evHandler("logic: ping: %s: malformed payload", p.URI())
		return
	}

	if err := p.Send(wire.Pong(uint64(n))); err != nil {
		l.evHandler("logic: ping: %s: send pong: ERROR: %s", p.URI(), err)
	}
}

func (l *Logic) handlePong(p *peer.Peer, payload any) {
	if _, ok := payload.(wire.Uint); !ok {
		l.evHandler("logic: pong: %s: malformed payload", p.URI())
		return
	}

	p.MarkSeen()
}

func (l *Logic) handleBlockQuery(p *peer.Peer, q any) {
	single, list, err := l.processBlockQuery(q)

	var reply wire.Tuple
	switch {
	case err != nil:
		reply = wire.BlockResponseError(err)
	case list != nil:
		reply = wire.BlockResponseBlocks(list)
	default:
		reply = wire.BlockResponseBlock(single)
	}

	if err := p.Send(reply); err != nil {
		l.evHandler("logic: block_query: %s: send response: ERROR: %s", p.URI(), err)
	}
}

func (l *Logic) handleBlockResponse(p *peer.Peer, payload any) {
	single, list, respErr, err := wire.ParseBlockResponse(payload)
	if err != nil {
		l.evHandler("logic: block_response: %s: malformed: %s", p.URI(), err)
		return
	}

	if respErr != nil {
		l.evHandler("logic: block_response: %s: remote error[%s]", p.URI(), chainerrs.Code(respErr))
		return
	}

	if list != nil {
		for _, b := range list {
			l.receiveBlock(p, b)
		}
		return
	}

	l.receiveBlock(p, single)
}

func (l *Logic) handleAnnounce(p *peer.Peer, payload any) {
	b, err := wire.TermToBlock(payload)
	if err != nil {
		l.evHandler("logic: announce: %s: malformed: %s", p.URI(), err)
		return
	}

	l.receiveBlock(p, b)
}

// =============================================================================
// Block queries

// ProcessBlockQuery answers one decoded block query. Exactly one of the
// returned single block or block list is meaningful when the error is
// nil. Exposed for callers outside the wire path; runs on the
// coordinator goroutine like everything else.
func (l *Logic) ProcessBlockQuery(q any) (block.Block, []block.Block, error) {
	var (
		single block.Block
		list   []block.Block
		err    error
	)

	callErr := l.call(func() {
		single, list, err = l.processBlockQuery(q)
	})
	if callErr != nil {
		return block.Block{}, nil, callErr
	}

	return single, list, err
}

// processBlockQuery runs on the coordinator goroutine.
func (l *Logic) processBlockQuery(q any) (block.Block, []block.Block, error) {
	isGenesis, isHighest, ancestryHash, ok := wire.ParseBlockQuery(q)
	if !ok {
		return block.Block{}, nil, chainerrs.ErrInvalidBlockQuery
	}

	switch {
	case isGenesis:
		return l.genesis, nil, nil

	case isHighest:
		return l.chain[0], nil, nil

	default:
		return block.Block{}, l.answerAncestryQuery(ancestryHash)
	}
}

// answerAncestryQuery returns the full lineage of the target block,
// oldest first and including the target itself as the final element, so
// the remote side receives an importable chain segment in one reply.
func (l *Logic) answerAncestryQuery(h hash.Hash) ([]block.Block, error) {
	target, err := l.store.FindByHash(h)
	if err != nil {
		return nil, chainerrs.ErrUnknownBlockHash
	}

	ancestors, err := block.Ancestry(target, l.store, -1)
	if err != nil {
		return nil, err
	}

	return append(ancestors, target), nil
}

// =============================================================================
// Chain extension

// SubmitBlock feeds a locally produced block through the same acceptance
// path a gossiped block takes, announcing it to every Peer on success.
func (l *Logic) SubmitBlock(b block.Block) error {
	var accepted bool

	err := l.call(func() {
		accepted = l.receiveBlock(nil, b)
	})
	if err != nil {
		return err
	}

	if !accepted {
		return fmt.Errorf("logic: block %s does not extend the chain", hash.ReadableShort(b.Hash))
	}

	return nil
}

// receiveBlock applies the chain extension policy to one received block.
// A block is appended to the chain iff it is fully mined and directly
// extends the current head. A mined block that does not extend the head
// is stored but orphaned in memory; no fork choice is performed. A block
// that validates except for a missing parent triggers an ancestry query
// back to its source so the gap can be filled. Runs on the coordinator
// goroutine. Reports whether the chain head moved.
func (l *Logic) receiveBlock(from *peer.Peer, b block.Block) bool {
	head := l.chain[0]

	// Already known; nothing to do.
	if b.Hash == head.Hash {
		return false
	}
	if _, err := l.store.FindByHash(b.Hash); err == nil {
		return false
	}

	if !block.Mined(b, l.store) {
		if block.EnsureFinal(b) == nil && from != nil {
			l.evHandler("logic: receive_block: %s: unknown parent at height[%d]: requesting ancestry", hash.ReadableShort(b.Hash), b.Height)

			if err := from.Send(wire.BlockQueryAncestry(b.Hash)); err != nil {
				l.evHandler("logic: receive_block: ancestry query: ERROR: %s", err)
			}
			return false
		}

		l.evHandler("logic: receive_block: %s: rejected: does not validate", hash.ReadableShort(b.Hash))
		return false
	}

	if b.ParentHash != head.Hash || b.Height != head.Height+1 {
		if _, err := l.store.Store(b); err != nil {
			l.evHandler("logic: receive_block: store orphan: ERROR: %s", err)
		}

		l.evHandler("logic: receive_block: %s: stored orphan: height[%d] head[%d]", hash.ReadableShort(b.Hash), b.Height, head.Height)
		return false
	}

	if _, err := l.store.Store(b); err != nil {
		l.evHandler("logic: receive_block: store: ERROR: %s", err)
		return false
	}

	l.chain = append([]block.Block{b}, l.chain...)
	l.evHandler("logic: receive_block: %s: accepted: height[%d]", hash.ReadableShort(b.Hash), b.Height)

	l.announce(from, b)
	return true
}

// announce gossips b to every ready Peer except the one it came from.
func (l *Logic) announce(from *peer.Peer, b block.Block) {
	msg := wire.Announce(b)

	for p := range l.peers {
		if p == from || !p.Ready() {
			continue
		}

		if err := p.Send(msg); err != nil {
			l.evHandler("logic: announce: %s: ERROR: %s", p.URI(), err)
		}
	}
}

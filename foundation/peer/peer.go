// Package peer implements the actor that owns one connected socket. A
// Peer reads frames one at a time, forwards each decoded message to the
// coordinator, and serializes outbound writes. The socket is exclusively
// owned by its Peer from the moment of handoff; no other actor touches it
// afterwards.
package peer

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/coreblock/node/foundation/wire"
)

// EventHandler defines a function that is called when events
// occur in the processing of a peer connection.
type EventHandler func(v string, args ...any)

// Direction records who initiated the connection.
type Direction string

const (
	Inbound  Direction = "inbound"
	Outbound Direction = "outbound"
)

// Logic is the subset of coordinator behavior a Peer calls into. The
// coordinator never calls back into a Peer synchronously; every method
// here is one-way from the Peer's point of view.
type Logic interface {
	OnClientReady(p *Peer)
	OnClientData(p *Peer, msg wire.Tuple)
	OnClientClosed(p *Peer, reason error)
}

// Peer owns one socket for its whole lifetime.
type Peer struct {
	uri       string
	conn      net.Conn
	direction Direction
	logic     Logic
	evHandler EventHandler

	sendMu sync.Mutex

	mu       sync.Mutex
	ready    bool
	lastSeen time.Time

	closeOnce sync.Once
}

// New constructs a Peer around an already-connected socket. The caller
// hands ownership of conn to the Peer and must not use it again.
func New(conn net.Conn, direction Direction, logic Logic, evHandler EventHandler) *Peer {
	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	return &Peer{
		uri:       fmt.Sprintf("tcp://%s", conn.RemoteAddr()),
		conn:      conn,
		direction: direction,
		logic:     logic,
		evHandler: ev,
	}
}

// URI returns the remote address in tcp://host:port form.
func (p *Peer) URI() string {
	return p.uri
}

// Direction reports who initiated this connection.
func (p *Peer) Direction() Direction {
	return p.direction
}

// Ready reports whether the coordinator has acknowledged this Peer.
func (p *Peer) Ready() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.ready
}

// LastSeen returns the time of the most recent liveness signal from the
// remote side, or the zero time if none has arrived yet.
func (p *Peer) LastSeen() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.lastSeen
}

// MarkSeen records a liveness signal from the remote side.
func (p *Peer) MarkSeen() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.lastSeen = time.Now()
}

// Run executes the Peer's read loop until the socket closes, a frame
// fails to decode, or ctx is cancelled. It reports the coordinator ready
// before the first read and closed exactly once on any exit path. Run
// always returns nil; a dropped peer is not a fault the supervisor
// should restart, since the remote address may simply be gone.
func (p *Peer) Run(ctx context.Context) error {
	p.evHandler("peer: run: started: %s: direction[%s]", p.uri, p.direction)

	p.mu.Lock()
	p.ready = true
	p.mu.Unlock()

	p.logic.OnClientReady(p)

	// Free the blocked read when the supervisor cancels us.
	stop := context.AfterFunc(ctx, func() {
		p.conn.Close()
	})
	defer stop()

	for {
		msg, err := p.readFrame()
		if err != nil {
			p.shutdown(err)
			return nil
		}

		p.logic.OnClientData(p, msg)
	}
}

// readFrame reads exactly one frame from the socket. The read loop is
// demand driven: the next frame is not read until the coordinator has
// been handed this one.
func (p *Peer) readFrame() (wire.Tuple, error) {
	term, err := wire.ReadFrame(p.conn)
	if err != nil {
		return nil, err
	}

	msg, ok := term.(wire.Tuple)
	if !ok {
		return nil, fmt.Errorf("peer: non-tuple frame %T", term)
	}

	return msg, nil
}

// writeTimeout bounds one framed write so a stalled remote cannot hold
// the sender hostage.
const writeTimeout = 10 * time.Second

// Send writes one framed message to the socket. Writes are serialized
// per Peer so concurrent sends cannot interleave frame bytes.
func (p *Peer) Send(msg wire.Tuple) error {
	p.sendMu.Lock()
	defer p.sendMu.Unlock()

	p.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return wire.WriteFrame(p.conn, msg)
}

// Close tears the Peer down from the outside: the socket is closed and
// the coordinator is notified exactly once.
func (p *Peer) Close() {
	p.shutdown(nil)
}

// shutdown releases the socket and notifies the coordinator. Safe to call
// from any goroutine; only the first call has an effect.
func (p *Peer) shutdown(reason error) {
	p.closeOnce.Do(func() {
		p.evHandler("peer: shutdown: %s: reason[%v]", p.uri, reason)

		p.conn.Close()
		p.logic.OnClientClosed(p, reason)
	})
}

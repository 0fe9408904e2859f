// Package listener implements the TCP acceptor for a node. Each accepted
// socket is handed to the coordinator, which spawns the inbound Peer that
// owns it from then on.
package listener

import (
	"context"
	"net"

	"github.com/coreblock/node/foundation/peer"
)

// EventHandler defines a function that is called when events
// occur in the processing of inbound connections.
type EventHandler func(v string, args ...any)

// Logic is the subset of coordinator behavior the Listener calls into.
type Logic interface {
	OnClientSocket(conn net.Conn, direction peer.Direction) error
	OnListenerTerminating(reason error)
}

// Listener binds a local address and accepts inbound sockets.
type Listener struct {
	ln        net.Listener
	logic     Logic
	evHandler EventHandler
}

// New binds address (host:port) and returns a Listener ready to Run.
func New(address string, logic Logic, evHandler EventHandler) (*Listener, error) {
	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	ln, err := net.Listen("tcp", address)
	if err != nil {
		return nil, err
	}

	return &Listener{
		ln:        ln,
		logic:     logic,
		evHandler: ev,
	}, nil
}

// Address returns the bound address, useful when the configured port was
// 0 and the kernel picked one.
func (l *Listener) Address() string {
	return l.ln.Addr().String()
}

// Run accepts sockets until ctx is cancelled or the listener breaks. The
// coordinator is notified via OnListenerTerminating on any exit path so
// the node can release the port or restart per policy.
func (l *Listener) Run(ctx context.Context) error {
	l.evHandler("listener: run: started: %s", l.Address())

	// Free the blocked accept when the supervisor cancels us.
	stop := context.AfterFunc(ctx, func() {
		l.ln.Close()
	})
	defer stop()

	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				l.evHandler("listener: run: stopped: %s", l.Address())
				l.logic.OnListenerTerminating(nil)
				return nil
			}

			l.evHandler("listener: run: accept: ERROR: %s", err)
			l.logic.OnListenerTerminating(err)
			return err
		}

		// Handoff: from here the socket belongs to the coordinator and
		// the Peer it spawns. On a refused handoff the socket has no
		// owner left, so close it here.
		if err := l.logic.OnClientSocket(conn, peer.Inbound); err != nil {
			l.evHandler("listener: run: handoff refused: %s: %s", conn.RemoteAddr(), err)
			conn.Close()
		}
	}
}

// Close releases the bound port. Run returns shortly after.
func (l *Listener) Close() error {
	return l.ln.Close()
}

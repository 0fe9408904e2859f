// Package connector implements the one-shot outbound dial. A Connector
// lives exactly long enough to establish one TCP connection and hand the
// socket to the coordinator, which spawns the outbound Peer.
package connector

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/coreblock/node/foundation/peer"
)

// EventHandler defines a function that is called when events
// occur in the processing of outbound dials.
type EventHandler func(v string, args ...any)

// dialTimeout bounds how long a single dial attempt may block.
const dialTimeout = 10 * time.Second

// Logic is the subset of coordinator behavior the Connector calls into.
type Logic interface {
	OnClientSocket(conn net.Conn, direction peer.Direction) error
}

// Connect parses uri (tcp://host:port or bare host:port), dials the
// remote node, and transfers the socket to the coordinator. A refused
// connection is logged at warn and reported as success so the supervisor
// does not retry a node that is simply down; any other failure is
// returned so the supervisor may retry per policy.
func Connect(ctx context.Context, uri string, logic Logic, evHandler EventHandler) error {
	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	address, err := ParseURI(uri)
	if err != nil {
		ev("connector: connect: ERROR: %s", err)
		return err
	}

	ev("connector: connect: dialing: %s", address)

	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		if errors.Is(err, syscall.ECONNREFUSED) {
			ev("connector: connect: WARNING: refused: %s", address)
			return nil
		}

		ev("connector: connect: ERROR: %s: %s", address, err)
		return err
	}

	// Handoff: the coordinator owns the socket from here unless it
	// refuses, in which case nobody does and it must be closed.
	if err := logic.OnClientSocket(conn, peer.Outbound); err != nil {
		conn.Close()
		ev("connector: connect: handoff refused: %s: %s", address, err)
		return err
	}

	ev("connector: connect: established: %s", address)
	return nil
}

// ParseURI extracts the host:port address from a tcp:// URI. A bare
// host:port is accepted as well.
func ParseURI(uri string) (string, error) {
	address := strings.TrimPrefix(uri, "tcp://")
	if address == "" || strings.Contains(address, "://") {
		return "", fmt.Errorf("connector: unsupported uri %q", uri)
	}

	if _, _, err := net.SplitHostPort(address); err != nil {
		return "", fmt.Errorf("connector: uri %q: %w", uri, err)
	}

	return address, nil
}

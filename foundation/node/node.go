// Package node assembles one running peer-to-peer node: a coordinator,
// a listener, and the two supervisors for peers and connectors. Starting
// a node registers each of its actors under a (host, port, role) name so
// other components can look them up by URI.
package node

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/coreblock/node/foundation/blockstore"
	"github.com/coreblock/node/foundation/connector"
	"github.com/coreblock/node/foundation/genesis"
	"github.com/coreblock/node/foundation/listener"
	"github.com/coreblock/node/foundation/logic"
	"github.com/coreblock/node/foundation/registry"
	"github.com/coreblock/node/foundation/supervisor"
	"github.com/google/uuid"
)

// EventHandler defines a function that is called when events
// occur in the processing of the node.
type EventHandler func(v string, args ...any)

// Roles under which a node's actors are registered.
const (
	RoleNode       = "node"
	RoleLogic      = "logic"
	RoleListener   = "listener"
	RoleClients    = "clients"
	RoleConnectors = "connectors"
)

// Handle is an opaque reference bundle addressing a node's actors. Each
// field is a registry key suitable for lookup.
type Handle struct {
	URI        string
	Node       registry.Key
	Clients    registry.Key
	Connectors registry.Key
	Logic      registry.Key
	Listener   registry.Key
}

// Config represents the configuration required to start a node.
type Config struct {
	URI       string
	Genesis   genesis.Genesis
	Store     *blockstore.Store
	EvHandler EventHandler
}

// Node is one running node instance.
type Node struct {
	handle       Handle
	logic        *logic.Logic
	listener     *listener.Listener
	clients      *supervisor.Supervisor
	connectors   *supervisor.Supervisor
	evHandler    EventHandler
	listenCancel context.CancelFunc
	listenDone   chan struct{}
}

// Process-wide name resolution and running-node tracking. Writes occur
// only at node start/shutdown.
var (
	names = registry.New[any]()

	runningMu sync.Mutex
	running   = make(map[string]*Node)
)

// Lookup resolves a registered actor handle by (host, port, role).
func Lookup(key registry.Key) (any, bool) {
	return names.Lookup(key)
}

// Start boots a node for the given URI. Starting a node already running
// for the same URI returns the existing one.
func Start(cfg Config) (*Node, error) {
	address, err := connector.ParseURI(cfg.URI)
	if err != nil {
		return nil, err
	}

	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return nil, fmt.Errorf("node: address %q: %w", address, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("node: port %q: %w", portStr, err)
	}

	runningMu.Lock()
	defer runningMu.Unlock()

	if n, exists := running[cfg.URI]; exists {
		return n, nil
	}

	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	clients := supervisor.New("clients", supervisor.EventHandler(ev))
	connectors := supervisor.New("connectors", supervisor.EventHandler(ev))

	lgc, err := logic.New(logic.Config{
		URI:       cfg.URI,
		Genesis:   cfg.Genesis,
		Store:     cfg.Store,
		Clients:   clients,
		EvHandler: logic.EventHandler(ev),
	})
	if err != nil {
		clients.Shutdown()
		connectors.Shutdown()
		return nil, err
	}

	lst, err := listener.New(address, lgc, listener.EventHandler(ev))
	if err != nil {
		lgc.Shutdown()
		connectors.Shutdown()
		return nil, err
	}

	key := func(role string) registry.Key {
		return registry.Key{Host: host, Port: port, Role: role}
	}

	n := Node{
		handle: Handle{
			URI:        cfg.URI,
			Node:       key(RoleNode),
			Clients:    key(RoleClients),
			Connectors: key(RoleConnectors),
			Logic:      key(RoleLogic),
			Listener:   key(RoleListener),
		},
		logic:      lgc,
		listener:   lst,
		clients:    clients,
		connectors: connectors,
		evHandler:  ev,
		listenDone: make(chan struct{}),
	}

	names.Register(n.handle.Node, &n)
	names.Register(n.handle.Logic, lgc)
	names.Register(n.handle.Listener, lst)
	names.Register(n.handle.Clients, clients)
	names.Register(n.handle.Connectors, connectors)

	listenCtx, listenCancel := context.WithCancel(context.Background())
	n.listenCancel = listenCancel

	go func() {
		defer close(n.listenDone)
		lst.Run(listenCtx)
	}()

	running[cfg.URI] = &n
	ev("node: start: %s", cfg.URI)

	return &n, nil
}

// Handle returns the reference bundle addressing this node's actors.
func (n *Node) Handle() Handle {
	return n.handle
}

// Logic returns the node's coordinator.
func (n *Node) Logic() *logic.Logic {
	return n.logic
}

// ListenAddress returns the address the node's listener is bound to.
func (n *Node) ListenAddress() string {
	return n.listener.Address()
}

// Connect spawns a one-shot connector that dials the remote node at uri
// and hands the resulting socket to the coordinator.
func (n *Node) Connect(uri string) {
	id := uuid.NewString()

	n.connectors.Start(id, func(ctx context.Context) error {
		return connector.Connect(ctx, uri, n.logic, connector.EventHandler(n.evHandler))
	})
}

// Shutdown stops the listener, every peer and connector, and the
// coordinator, then unregisters the node's names.
func (n *Node) Shutdown() {
	n.evHandler("node: shutdown: started: %s", n.handle.URI)
	defer n.evHandler("node: shutdown: completed: %s", n.handle.URI)

	runningMu.Lock()
	delete(running, n.handle.URI)
	runningMu.Unlock()

	n.listenCancel()
	<-n.listenDone

	n.connectors.Shutdown()
	n.logic.Shutdown()

	names.Unregister(n.handle.Node)
	names.Unregister(n.handle.Logic)
	names.Unregister(n.handle.Listener)
	names.Unregister(n.handle.Clients)
	names.Unregister(n.handle.Connectors)
}

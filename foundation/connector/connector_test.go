package connector_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/coreblock/node/foundation/connector"
	"github.com/coreblock/node/foundation/peer"
)

// fakeLogic records the socket handoff from a successful dial.
type fakeLogic struct {
	sockets chan net.Conn
}

func (f *fakeLogic) OnClientSocket(conn net.Conn, direction peer.Direction) error {
	if direction != peer.Outbound {
		conn.Close()
		return nil
	}
	f.sockets <- conn
	return nil
}

func Test_Connect_Success(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("bind: %s", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err == nil {
			defer conn.Close()
			time.Sleep(100 * time.Millisecond)
		}
	}()

	lgc := &fakeLogic{sockets: make(chan net.Conn, 1)}

	if err := connector.Connect(context.Background(), "tcp://"+ln.Addr().String(), lgc, nil); err != nil {
		t.Fatalf("connect: %s", err)
	}

	select {
	case conn := <-lgc.sockets:
		conn.Close()
	case <-time.After(2 * time.Second):
		t.Fatalf("socket never reached the coordinator")
	}
}

func Test_Connect_Refused(t *testing.T) {

	// Bind a port, then release it so the dial below is refused.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("bind: %s", err)
	}
	address := ln.Addr().String()
	ln.Close()

	lgc := &fakeLogic{sockets: make(chan net.Conn, 1)}

	// A refused connection is a normal outcome, not a failure to retry.
	if err := connector.Connect(context.Background(), "tcp://"+address, lgc, nil); err != nil {
		t.Fatalf("refused dial should not report an error, got %s", err)
	}
}

func Test_ParseURI(t *testing.T) {
	tests := []struct {
		uri     string
		exp     string
		wantErr bool
	}{
		{"tcp://127.0.0.1:9080", "127.0.0.1:9080", false},
		{"127.0.0.1:9080", "127.0.0.1:9080", false},
		{"http://127.0.0.1:9080", "", true},
		{"no-port", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := connector.ParseURI(tt.uri)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("uri %q: expected an error", tt.uri)
			}
			continue
		}
		if err != nil {
			t.Fatalf("uri %q: %s", tt.uri, err)
		}
		if got != tt.exp {
			t.Fatalf("uri %q: got %q, exp %q", tt.uri, got, tt.exp)
		}
	}
}

package registry_test

import (
	"testing"

	"github.com/coreblock/node/foundation/registry"
)

func Test_RegisterLookupUnregister(t *testing.T) {
	reg := registry.New[string]()

	key := registry.Key{Host: "127.0.0.1", Port: 9180, Role: "logic"}
	reg.Register(key, "logic-handle")

	got, ok := reg.Lookup(key)
	if !ok || got != "logic-handle" {
		t.Fatalf("got %q ok=%v, exp logic-handle true", got, ok)
	}

	reg.Unregister(key)
	if _, ok := reg.Lookup(key); ok {
		t.Fatalf("expected key to be gone after Unregister")
	}
}

func Test_Copy(t *testing.T) {
	reg := registry.New[int]()
	reg.Register(registry.Key{Host: "a", Port: 1, Role: "clients"}, 1)
	reg.Register(registry.Key{Host: "a", Port: 1, Role: "connectors"}, 2)

	snap := reg.Copy()
	if len(snap) != 2 {
		t.Fatalf("got %d entries, exp 2", len(snap))
	}
}

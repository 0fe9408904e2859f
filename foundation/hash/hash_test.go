package hash_test

import (
	"errors"
	"testing"

	"github.com/coreblock/node/foundation/chainerrs"
	"github.com/coreblock/node/foundation/hash"
)

func Test_PerformVector(t *testing.T) {
	h := hash.Perform("a")

	got := hash.Readable(h)
	exp := "ca978112ca1bbdcafac231b39a23dc4da786eff8147c4e72b9807785afee48bb"
	if got != exp {
		t.Fatalf("got hash %s, exp %s", got, exp)
	}

	short := hash.ReadableShort(h)
	expShort := "ca978112"
	if short != expShort {
		t.Fatalf("got short %s, exp %s", short, expShort)
	}
}

func Test_RoundTrip(t *testing.T) {
	h := hash.Perform("round", "trip", 42)

	parsed, err := hash.FromString(hash.Readable(h))
	if err != nil {
		t.Fatalf("should parse a readable hash: %s", err)
	}

	if parsed != h {
		t.Fatalf("got %s, exp %s", hash.Readable(parsed), hash.Readable(h))
	}
}

func Test_FromString_Invalid(t *testing.T) {
	if _, err := hash.FromString("too-short"); err == nil {
		t.Fatalf("should reject a short hash")
	}

	if _, err := hash.FromString("zz" + hash.Readable(hash.Zero)[2:]); err == nil {
		t.Fatalf("should reject non-hex characters")
	}
}

func Test_EnsureHardness(t *testing.T) {
	tests := []struct {
		name string
		b    [4]byte
		n    int
		err  error
	}{
		{"two zero bytes ok", [4]byte{0, 0, 1, 1}, 2, nil},
		{"three zero bytes required, only two present", [4]byte{0, 0, 1, 1}, 3, chainerrs.ErrUnmetDifficulty},
		{"zero difficulty always passes", [4]byte{1, 1, 1, 1}, 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var h hash.Hash
			copy(h[:], tt.b[:])

			err := hash.EnsureHardness(h, tt.n)
			if !errors.Is(err, tt.err) {
				t.Fatalf("got %v, exp %v", err, tt.err)
			}
		})
	}
}

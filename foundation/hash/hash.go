// Package hash provides the SHA-256 primitive the rest of the core builds
// its hash-chain and proof-of-work checks on top of.
package hash

import (
	"crypto/sha256"
	"fmt"
	"strconv"
	"strings"

	"github.com/coreblock/node/foundation/chainerrs"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Size is the number of bytes in a Hash.
const Size = 32

// Hash is an opaque 32-byte value.
type Hash [Size]byte

// Zero marks the parent of the genesis block.
var Zero = Hash{}

// Invalid is the "not yet set" sentinel used before a block is sealed/mined.
var Invalid = func() Hash {
	var h Hash
	for i := range h {
		h[i] = 0xFF
	}
	return h
}()

// Case selects the letter case used by Readable.
type Case int

const (
	Lower Case = iota
	Upper
)

// Perform hashes the concatenation of item, with each additional item
// joined by a literal underscore. Integer items are rendered as decimal
// strings; Hash items are embedded as their raw 32 bytes; everything else
// is embedded as raw bytes.
func Perform(item any, items ...any) Hash {
	all := append([]any{item}, items...)

	var buf []byte
	for i, it := range all {
		if i > 0 {
			buf = append(buf, '_')
		}
		buf = append(buf, toBytes(it)...)
	}

	sum := sha256.Sum256(buf)
	return Hash(sum)
}

func toBytes(v any) []byte {
	switch t := v.(type) {
	case Hash:
		return t[:]
	case []byte:
		return t
	case string:
		return []byte(t)
	case int:
		return []byte(strconv.FormatInt(int64(t), 10))
	case int64:
		return []byte(strconv.FormatInt(t, 10))
	case uint64:
		return []byte(strconv.FormatUint(t, 10))
	case uint:
		return []byte(strconv.FormatUint(uint64(t), 10))
	default:
		return []byte(fmt.Sprint(t))
	}
}

// Readable formats h as 64 lowercase (or uppercase) hex characters.
func Readable(h Hash, c ...Case) string {
	s := hexutil.Encode(h[:])[2:] // hexutil prefixes with "0x"
	if len(c) > 0 && c[0] == Upper {
		return strings.ToUpper(s)
	}
	return s
}

// ReadableShort returns the first 8 characters of Readable.
func ReadableShort(h Hash, c ...Case) string {
	return Readable(h, c...)[:8]
}

// FromString parses 64 hex characters into a Hash. It fails on the wrong
// length or a non-hex character.
func FromString(s string) (Hash, error) {
	if len(s) != Size*2 {
		return Hash{}, fmt.Errorf("hash: %q is not %d hex characters", s, Size*2)
	}

	b, err := hexutil.Decode("0x" + s)
	if err != nil {
		return Hash{}, fmt.Errorf("hash: decode %q: %w", s, err)
	}

	var h Hash
	copy(h[:], b)
	return h, nil
}

// EnsureHardness succeeds iff the first n bytes of h are zero. It fails
// with chainerrs.ErrUnmetDifficulty otherwise.
func EnsureHardness(h Hash, n int) error {
	if n > len(h) {
		n = len(h)
	}
	for i := 0; i < n; i++ {
		if h[i] != 0 {
			return chainerrs.ErrUnmetDifficulty
		}
	}
	return nil
}

// String implements fmt.Stringer using the lowercase readable form.
func (h Hash) String() string {
	return Readable(h)
}

// MarshalJSON encodes h as its readable hex string so persisted blocks
// stay inspectable with ordinary tooling.
func (h Hash) MarshalJSON() ([]byte, error) {
	return []byte(`"` + Readable(h) + `"`), nil
}

// UnmarshalJSON parses a readable hex string back into h.
func (h *Hash) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := FromString(s)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

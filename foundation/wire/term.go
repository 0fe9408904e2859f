// Package wire frames and decodes the typed messages Peers exchange over
// a stream socket. The wire format is a length-prefixed, self-describing
// encoding of a tagged tuple: atoms (short tags), non-negative integers,
// byte strings (including Hashes), and nested tuples round-trip
// losslessly through Encode/Decode.
package wire

import (
	"encoding/binary"
	"fmt"
)

// Atom is a short tag, the wire equivalent of a message's `:symbol`.
type Atom string

// Uint is a non-negative integer term.
type Uint uint64

// Bytes is a byte string term, used for both opaque payloads and the
// raw 32 bytes of a hash.Hash.
type Bytes []byte

// Tuple is an ordered, fixed-arity sequence of terms. Variable-length
// sequences (e.g. a list of blocks) are represented as a Tuple whose
// first element is a distinguishing Atom.
type Tuple []any

const (
	tagAtom  byte = 0x01
	tagUint  byte = 0x02
	tagBytes byte = 0x03
	tagTuple byte = 0x04
)

// Encode serializes term into its self-describing wire form.
func Encode(term any) ([]byte, error) {
	switch t := term.(type) {
	case Atom:
		if len(t) > 0xFF {
			return nil, fmt.Errorf("wire: atom %q exceeds 255 bytes", t)
		}
		out := []byte{tagAtom, byte(len(t))}
		return append(out, []byte(t)...), nil

	case Uint:
		out := make([]byte, 1+8)
		out[0] = tagUint
		binary.BigEndian.PutUint64(out[1:], uint64(t))
		return out, nil

	case Bytes:
		out := make([]byte, 1+4)
		out[0] = tagBytes
		binary.BigEndian.PutUint32(out[1:], uint32(len(t)))
		return append(out, t...), nil

	case Tuple:
		if len(t) > 0xFF {
			return nil, fmt.Errorf("wire: tuple of %d elements exceeds 255", len(t))
		}
		out := []byte{tagTuple, byte(len(t))}
		for _, elem := range t {
			enc, err := Encode(elem)
			if err != nil {
				return nil, err
			}
			out = append(out, enc...)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("wire: unsupported term type %T", term)
	}
}

// Decode parses b as exactly one term and returns it, or an error
// describing why b could not be decoded. Trailing bytes after the term
// are an error.
func Decode(b []byte) (any, error) {
	term, rest, err := decodeOne(b)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("wire: %d trailing bytes after term", len(rest))
	}
	return term, nil
}

func decodeOne(b []byte) (any, []byte, error) {
	if len(b) == 0 {
		return nil, nil, fmt.Errorf("wire: empty input")
	}

	tag, rest := b[0], b[1:]
	switch tag {
	case tagAtom:
		if len(rest) < 1 {
			return nil, nil, fmt.Errorf("wire: truncated atom length")
		}
		n := int(rest[0])
		rest = rest[1:]
		if len(rest) < n {
			return nil, nil, fmt.Errorf("wire: truncated atom body")
		}
		return Atom(rest[:n]), rest[n:], nil

	case tagUint:
		if len(rest) < 8 {
			return nil, nil, fmt.Errorf("wire: truncated uint")
		}
		return Uint(binary.BigEndian.Uint64(rest[:8])), rest[8:], nil

	case tagBytes:
		if len(rest) < 4 {
			return nil, nil, fmt.Errorf("wire: truncated bytes length")
		}
		n := int(binary.BigEndian.Uint32(rest[:4]))
		rest = rest[4:]
		if len(rest) < n {
			return nil, nil, fmt.Errorf("wire: truncated bytes body")
		}
		out := make([]byte, n)
		copy(out, rest[:n])
		return Bytes(out), rest[n:], nil

	case tagTuple:
		if len(rest) < 1 {
			return nil, nil, fmt.Errorf("wire: truncated tuple arity")
		}
		n := int(rest[0])
		rest = rest[1:]
		elems := make(Tuple, n)
		for i := 0; i < n; i++ {
			elem, next, err := decodeOne(rest)
			if err != nil {
				return nil, nil, err
			}
			elems[i] = elem
			rest = next
		}
		return elems, rest, nil

	default:
		return nil, nil, fmt.Errorf("wire: unknown tag byte 0x%02x", tag)
	}
}

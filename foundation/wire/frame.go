package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MaxFrameSize bounds a single frame to keep a misbehaving or corrupt
// peer from making a Peer allocate unbounded memory for a length field.
const MaxFrameSize = 16 << 20 // 16 MiB

// WriteFrame writes term to w as a 4-byte big-endian length prefix
// followed by its encoded bytes.
func WriteFrame(w io.Writer, term any) error {
	body, err := Encode(term)
	if err != nil {
		return fmt.Errorf("wire: encode frame: %w", err)
	}

	header := make([]byte, 4)
	binary.BigEndian.PutUint32(header, uint32(len(body)))

	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("wire: write frame header: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("wire: write frame body: %w", err)
	}
	return nil
}

// ReadFrame reads one length-prefixed frame from r and decodes it.
func ReadFrame(r io.Reader) (any, error) {
	header := make([]byte, 4)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}

	n := binary.BigEndian.Uint32(header)
	if n > MaxFrameSize {
		return nil, fmt.Errorf("wire: frame of %d bytes exceeds max %d", n, MaxFrameSize)
	}

	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("wire: read frame body: %w", err)
	}

	term, err := Decode(body)
	if err != nil {
		return nil, fmt.Errorf("wire: decode frame: %w", err)
	}
	return term, nil
}

package wire

import (
	"fmt"

	"github.com/coreblock/node/foundation/block"
	"github.com/coreblock/node/foundation/chainerrs"
	"github.com/coreblock/node/foundation/hash"
)

// Message tags exchanged between peers.
const (
	TagPing          = Atom("ping")
	TagPong          = Atom("pong")
	TagBlockQuery    = Atom("block_query")
	TagBlockResponse = Atom("block_response")
	TagAnnounce      = Atom("announce")

	queryGenesis  = Atom("genesis")
	queryHighest  = Atom("highest")
	queryAncestry = Atom("ancestry")

	respOK    = Atom("ok")
	respErr   = Atom("error")
	respBlock = Atom("block")
	respList  = Atom("blocks")
)

// Ping builds a {:ping, n} term.
func Ping(n uint64) Tuple { return Tuple{TagPing, Uint(n)} }

// Pong builds a {:pong, n} term.
func Pong(n uint64) Tuple { return Tuple{TagPong, Uint(n)} }

// BlockQueryGenesis builds a {:block_query, :genesis} term.
func BlockQueryGenesis() Tuple { return Tuple{TagBlockQuery, queryGenesis} }

// BlockQueryHighest builds a {:block_query, :highest} term.
func BlockQueryHighest() Tuple { return Tuple{TagBlockQuery, queryHighest} }

// BlockQueryAncestry builds a {:block_query, {:ancestry, hash}} term.
func BlockQueryAncestry(h hash.Hash) Tuple {
	return Tuple{TagBlockQuery, Tuple{queryAncestry, Bytes(h[:])}}
}

// Announce builds an {:announce, block} term.
func Announce(b block.Block) Tuple {
	return Tuple{TagAnnounce, blockToTerm(b)}
}

// BlockResponseBlock builds a {:block_response, {:ok, {:block, block}}} term.
func BlockResponseBlock(b block.Block) Tuple {
	return Tuple{TagBlockResponse, Tuple{respOK, Tuple{respBlock, blockToTerm(b)}}}
}

// BlockResponseBlocks builds a {:block_response, {:ok, {:blocks, [block...]}}}
// term, used to answer an ancestry query with an ordered chain segment.
func BlockResponseBlocks(blocks []block.Block) Tuple {
	list := Tuple{respList}
	for _, b := range blocks {
		list = append(list, blockToTerm(b))
	}
	return Tuple{TagBlockResponse, Tuple{respOK, list}}
}

// BlockResponseError builds a {:block_response, {:error, code}} term.
func BlockResponseError(err error) Tuple {
	return Tuple{TagBlockResponse, Tuple{respErr, Atom(chainerrs.Code(err))}}
}

func blockToTerm(b block.Block) Tuple {
	return Tuple{
		Uint(b.Height),
		Uint(b.Timestamp),
		Bytes(b.ParentHash[:]),
		Bytes(b.ContentHash[:]),
		Bytes(b.ComponentHash[:]),
		Uint(b.Nonce),
		Bytes(b.Hash[:]),
	}
}

// TermToBlock decodes a block term built by the encoding side back
// into a Block value.
func TermToBlock(t any) (block.Block, error) {
	tup, ok := t.(Tuple)
	if !ok || len(tup) != 7 {
		return block.Block{}, fmt.Errorf("wire: malformed block term")
	}

	height, ok := tup[0].(Uint)
	if !ok {
		return block.Block{}, fmt.Errorf("wire: malformed block height")
	}
	timestamp, ok := tup[1].(Uint)
	if !ok {
		return block.Block{}, fmt.Errorf("wire: malformed block timestamp")
	}
	parentHash, err := bytesToHash(tup[2])
	if err != nil {
		return block.Block{}, err
	}
	contentHash, err := bytesToHash(tup[3])
	if err != nil {
		return block.Block{}, err
	}
	componentHash, err := bytesToHash(tup[4])
	if err != nil {
		return block.Block{}, err
	}
	nonce, ok := tup[5].(Uint)
	if !ok {
		return block.Block{}, fmt.Errorf("wire: malformed block nonce")
	}
	h, err := bytesToHash(tup[6])
	if err != nil {
		return block.Block{}, err
	}

	return block.Block{
		Height:        uint64(height),
		Timestamp:     uint64(timestamp),
		ParentHash:    parentHash,
		ContentHash:   contentHash,
		ComponentHash: componentHash,
		Nonce:         uint64(nonce),
		Hash:          h,
	}, nil
}

func bytesToHash(t any) (hash.Hash, error) {
	b, ok := t.(Bytes)
	if !ok || len(b) != hash.Size {
		return hash.Hash{}, fmt.Errorf("wire: malformed hash field")
	}
	var h hash.Hash
	copy(h[:], b)
	return h, nil
}

// ParseBlockQuery interprets a decoded {:block_query, q} term's q payload.
// It returns exactly one of (genesis=true), (highest=true) or
// (ancestryHash set); an unrecognised shape is reported via ok=false.
func ParseBlockQuery(q any) (genesis bool, highest bool, ancestryHash hash.Hash, ok bool) {
	switch v := q.(type) {
	case Atom:
		switch v {
		case queryGenesis:
			return true, false, hash.Hash{}, true
		case queryHighest:
			return false, true, hash.Hash{}, true
		}
	case Tuple:
		if len(v) == 2 {
			if tag, isAtom := v[0].(Atom); isAtom && tag == queryAncestry {
				h, err := bytesToHash(v[1])
				if err == nil {
					return false, false, h, true
				}
			}
		}
	}
	return false, false, hash.Hash{}, false
}

// ParseBlockResponse interprets a decoded {:block_response, payload} term's
// payload, returning either the single block, the ordered list of blocks,
// or the carried error. Exactly one of the three is non-zero.
func ParseBlockResponse(payload any) (b block.Block, blocks []block.Block, respErrOut error, parseErr error) {
	tup, ok := payload.(Tuple)
	if !ok || len(tup) != 2 {
		return block.Block{}, nil, nil, fmt.Errorf("wire: malformed block_response")
	}

	tag, ok := tup[0].(Atom)
	if !ok {
		return block.Block{}, nil, nil, fmt.Errorf("wire: malformed block_response tag")
	}

	switch tag {
	case respErr:
		code, ok := tup[1].(Atom)
		if !ok {
			return block.Block{}, nil, nil, fmt.Errorf("wire: malformed block_response error code")
		}
		return block.Block{}, nil, chainerrs.FromCode(string(code)), nil

	case respOK:
		inner, ok := tup[1].(Tuple)
		if !ok || len(inner) == 0 {
			return block.Block{}, nil, nil, fmt.Errorf("wire: malformed block_response payload")
		}
		innerTag, ok := inner[0].(Atom)
		if !ok {
			return block.Block{}, nil, nil, fmt.Errorf("wire: malformed block_response payload tag")
		}

		switch innerTag {
		case respBlock:
			blk, err := TermToBlock(inner[1])
			if err != nil {
				return block.Block{}, nil, nil, err
			}
			return blk, nil, nil, nil

		case respList:
			out := make([]block.Block, 0, len(inner)-1)
			for _, elem := range inner[1:] {
				blk, err := TermToBlock(elem)
				if err != nil {
					return block.Block{}, nil, nil, err
				}
				out = append(out, blk)
			}
			return block.Block{}, out, nil, nil
		}
	}

	return block.Block{}, nil, nil, fmt.Errorf("wire: unrecognised block_response shape")
}

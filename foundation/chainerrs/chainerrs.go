// Package chainerrs holds the structured error taxonomy shared by the
// block, store and logic layers. Validation failures are values the
// caller inspects and decides on, never panics. Each sentinel carries a
// stable classification that survives a trip across the wire.
package chainerrs

import "errors"

// Sentinel errors. Callers compare with errors.Is.
var (
	ErrComponentHashMismatch = errors.New("component_hash_mismatch")
	ErrHashMismatch          = errors.New("hash_mismatch")
	ErrUnmetDifficulty       = errors.New("unmet_difficulty")
	ErrUnknownParent         = errors.New("unknown_parent")
	ErrUnknownBlockHash      = errors.New("unknown_block_hash")
	ErrInvalidBlockQuery     = errors.New("invalid_block_query")
	ErrNotFound              = errors.New("not_found")
)

// Code returns the wire-stable tag for err: "" for a nil err, and the
// generic tag "error" for an err that does not carry one of the sentinels
// above. This is what gets embedded in a
// {:block_response, err} frame so a remote peer can distinguish failure
// kinds without parsing a free-form message.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrComponentHashMismatch):
		return "component_hash_mismatch"
	case errors.Is(err, ErrHashMismatch):
		return "hash_mismatch"
	case errors.Is(err, ErrUnmetDifficulty):
		return "unmet_difficulty"
	case errors.Is(err, ErrUnknownParent):
		return "unknown_parent"
	case errors.Is(err, ErrUnknownBlockHash):
		return "unknown_block_hash"
	case errors.Is(err, ErrInvalidBlockQuery):
		return "invalid_block_query"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

// FromCode is the inverse of Code, used when decoding a {:block_response,
// err} frame received from a peer back into a comparable sentinel.
func FromCode(code string) error {
	switch code {
	case "component_hash_mismatch":
		return ErrComponentHashMismatch
	case "hash_mismatch":
		return ErrHashMismatch
	case "unmet_difficulty":
		return ErrUnmetDifficulty
	case "unknown_parent":
		return ErrUnknownParent
	case "unknown_block_hash":
		return ErrUnknownBlockHash
	case "invalid_block_query":
		return ErrInvalidBlockQuery
	case "not_found":
		return ErrNotFound
	case "":
		return nil
	default:
		return errors.New(code)
	}
}

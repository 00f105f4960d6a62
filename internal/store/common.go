package store

import (
	"lukechampine.com/uint128"
)

// Prefix constants for all store types
const (
	prefixMeta byte = iota + 1
	prefixProposal
	prefixBallot
	prefixVoter
	prefixTally
	prefixResolution
)

// Keys under prefixMeta
const (
	metaCount byte = iota + 1
	metaCounters
	metaRoot
)

// PrefixToString converts a prefix byte to a string
func PrefixToString(p byte) string {
	switch p {
	case prefixMeta:
		return "meta"
	case prefixProposal:
		return "proposal"
	case prefixBallot:
		return "ballot"
	case prefixVoter:
		return "voter"
	case prefixTally:
		return "tally"
	case prefixResolution:
		return "resolution"
	default:
		return "unknown"
	}
}

// makeKey creates a key from a prefix and a big-endian conflict id followed
// by any suffix bytes, so keys of one prefix sort by id.
func makeKey(prefix byte, id uint128.Uint128, suffix ...byte) []byte {
	key := make([]byte, 1+16, 1+16+len(suffix))
	key[0] = prefix
	id.PutBytesBE(key[1:17])
	return append(key, suffix...)
}

package pebble

import (
	"encoding/binary"

	"lukechampine.com/uint128"
)

// Prefixes as laid out by the conflict ledger.
const (
	ballotPrefix byte = 3
	voterPrefix  byte = 4
	tallyPrefix  byte = 5
)

func ballotKey(id uint128.Uint128, seq uint64) []byte {
	key := make([]byte, 1+16+8)
	key[0] = ballotPrefix
	id.PutBytesBE(key[1:17])
	binary.BigEndian.PutUint64(key[17:], seq)
	return key
}

func idKey(prefix byte, id uint128.Uint128) []byte {
	key := make([]byte, 1+16)
	key[0] = prefix
	id.PutBytesBE(key[1:])
	return key
}

// ballotRange returns the bounds that select every ballot of id.
func ballotRange(id uint128.Uint128) (start, end []byte) {
	start = idKey(ballotPrefix, id)
	if id.Equals(uint128.Max) {
		return start, []byte{ballotPrefix + 1}
	}
	return start, idKey(ballotPrefix, id.Add64(1))
}

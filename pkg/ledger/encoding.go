package ledger

import (
	"encoding/binary"
	"math/big"
)

func uint64ToBigInt(v uint64) *big.Int {
	return new(big.Int).SetUint64(v)
}

func uint64ToLE(v uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, v)
	return buf
}

func leUint64(buf []byte) uint64 {
	return binary.LittleEndian.Uint64(buf)
}

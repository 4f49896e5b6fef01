package txs

import "math/big"

func uint64ToBigInt(v uint64) *big.Int {
	return new(big.Int).SetUint64(v)
}

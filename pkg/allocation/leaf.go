package allocation

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
)

// EncodeLeaf returns keccak256(account || uint256(amount)), the packed encoding
// the on-chain verifier recomputes for a claim.
func EncodeLeaf(account common.Address, amount *big.Int) ([32]byte, error) {
	if amount == nil {
		return [32]byte{}, &InvalidAmountError{Value: "<nil>", Reason: "missing amount"}
	}
	if amount.Sign() < 0 {
		return [32]byte{}, &InvalidAmountError{Value: amount.String(), Reason: "negative"}
	}
	if amount.Cmp(math.MaxBig256) > 0 {
		return [32]byte{}, &InvalidAmountError{Value: amount.String(), Reason: "exceeds uint256"}
	}

	// U256Bytes truncates its argument in place
	packed := math.U256Bytes(new(big.Int).Set(amount))

	data := make([]byte, 0, common.AddressLength+32)
	data = append(data, account.Bytes()...)
	data = append(data, packed...)

	return [32]byte(crypto.Keccak256Hash(data)), nil
}

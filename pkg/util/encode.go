package util

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	ClaimSignature           = "claim(address,uint256,bytes32[])"
	ClaimOnBehalfOfSignature = "claimOnBehalfOf(address,uint256,bytes32[])"
)

var claimArguments = mustClaimArguments()

func mustClaimArguments() abi.Arguments {
	addressType, err := abi.NewType("address", "", nil)
	if err != nil {
		panic(err)
	}
	uintType, err := abi.NewType("uint256", "", nil)
	if err != nil {
		panic(err)
	}
	proofType, err := abi.NewType("bytes32[]", "", nil)
	if err != nil {
		panic(err)
	}
	return abi.Arguments{{Type: addressType}, {Type: uintType}, {Type: proofType}}
}

// Selector returns the 4-byte function selector of signature.
func Selector(signature string) []byte {
	return crypto.Keccak256([]byte(signature))[:4]
}

// EncodeClaimCall returns the calldata submitting a claim for account with
// the given function signature.
func EncodeClaimCall(signature string, account common.Address, amount *big.Int, proof []common.Hash) ([]byte, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount")
	}
	elements := make([][32]byte, len(proof))
	for i, h := range proof {
		elements[i] = h
	}

	encoded, err := claimArguments.Pack(account, amount, elements)
	if err != nil {
		return nil, err
	}
	return append(Selector(signature), encoded...), nil
}

// DecodeClaimCall is the inverse of EncodeClaimCall.
func DecodeClaimCall(data []byte) (common.Address, *big.Int, []common.Hash, error) {
	if len(data) < 4 {
		return common.Address{}, nil, nil, fmt.Errorf("calldata too short")
	}
	out, err := claimArguments.Unpack(data[4:])
	if err != nil {
		return common.Address{}, nil, nil, err
	}
	if len(out) != 3 {
		return common.Address{}, nil, nil, fmt.Errorf("expected 3 arguments, got %d", len(out))
	}

	account, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, nil, nil, fmt.Errorf("unexpected account type %T", out[0])
	}
	amount, ok := out[1].(*big.Int)
	if !ok {
		return common.Address{}, nil, nil, fmt.Errorf("unexpected amount type %T", out[1])
	}
	elements, ok := out[2].([][32]byte)
	if !ok {
		return common.Address{}, nil, nil, fmt.Errorf("unexpected proof type %T", out[2])
	}
	proof := make([]common.Hash, len(elements))
	for i, e := range elements {
		proof[i] = e
	}
	return account, amount, proof, nil
}

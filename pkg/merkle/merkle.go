package merkle

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	// ErrEmptyTree is returned when building a tree without leaves.
	ErrEmptyTree = errors.New("cannot build merkle tree from empty leaf list")

	// ErrLeafNotFound is returned when a proof is requested for a leaf the tree does not contain.
	ErrLeafNotFound = errors.New("leaf not found in merkle tree")
)

// BuildMerkleTree creates a binary merkle tree from leaves in the given order.
//
// The tree uses keccak256 hashing for Solidity compatibility. Each pair is
// sorted before hashing, so proofs carry no left/right information. If a level
// has an odd number of nodes the last node is promoted to the next level as is;
// it is never paired with itself.
func BuildMerkleTree(leaves [][32]byte) (*MerkleTree, error) {
	if len(leaves) == 0 {
		return nil, ErrEmptyTree
	}

	base := make([][32]byte, len(leaves))
	copy(base, leaves)

	positions := make(map[[32]byte]int, len(base))
	for i, leaf := range base {
		if _, exists := positions[leaf]; !exists {
			positions[leaf] = i
		}
	}

	// Build tree levels bottom-up
	levels := [][][32]byte{base}
	currentLevel := base
	for len(currentLevel) > 1 {
		nextLevel := make([][32]byte, 0, (len(currentLevel)+1)/2)

		for i := 0; i < len(currentLevel); i += 2 {
			if i+1 < len(currentLevel) {
				nextLevel = append(nextLevel, hashPair(currentLevel[i], currentLevel[i+1]))
			} else {
				nextLevel = append(nextLevel, currentLevel[i])
			}
		}

		levels = append(levels, nextLevel)
		currentLevel = nextLevel
	}

	return &MerkleTree{
		leaves:    base,
		root:      currentLevel[0],
		levels:    levels,
		positions: positions,
	}, nil
}

// Root returns the merkle root.
func (mt *MerkleTree) Root() [32]byte {
	return mt.root
}

// HexRoot returns the merkle root as a go-ethereum hash.
func (mt *MerkleTree) HexRoot() common.Hash {
	return common.Hash(mt.root)
}

// Len returns the number of leaves.
func (mt *MerkleTree) Len() int {
	return len(mt.leaves)
}

// Depth returns the number of levels above the leaves.
func (mt *MerkleTree) Depth() int {
	return len(mt.levels) - 1
}

// Leaves returns a copy of the leaves in construction order.
func (mt *MerkleTree) Leaves() [][32]byte {
	out := make([][32]byte, len(mt.leaves))
	copy(out, mt.leaves)
	return out
}

// IndexOf returns the first position of leaf.
func (mt *MerkleTree) IndexOf(leaf [32]byte) (int, bool) {
	index, ok := mt.positions[leaf]
	return index, ok
}

// GenerateProof creates a proof for leaf. When the same leaf appears more than
// once, the proof is for its first occurrence.
func (mt *MerkleTree) GenerateProof(leaf [32]byte) (*MerkleProof, error) {
	index, ok := mt.positions[leaf]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLeafNotFound, common.Hash(leaf).Hex())
	}
	return mt.GenerateProofAt(index)
}

// GenerateProofAt creates a merkle proof for the leaf at the given index.
// Every call returns a freshly allocated sibling list.
func (mt *MerkleTree) GenerateProofAt(leafIndex int) (*MerkleProof, error) {
	if leafIndex < 0 || leafIndex >= len(mt.leaves) {
		return nil, fmt.Errorf("leaf index %d out of bounds (tree has %d leaves)", leafIndex, len(mt.leaves))
	}

	proof := make([][32]byte, 0, mt.Depth())
	index := leafIndex

	// Traverse from leaf to root, collecting sibling hashes
	for level := 0; level < len(mt.levels)-1; level++ {
		currentLevel := mt.levels[level]

		siblingIndex := index ^ 1
		// A missing sibling means this node was promoted
		if siblingIndex < len(currentLevel) {
			proof = append(proof, currentLevel[siblingIndex])
		}

		index /= 2
	}

	return &MerkleProof{
		LeafIndex: leafIndex,
		Leaf:      mt.leaves[leafIndex],
		Proof:     proof,
	}, nil
}

// VerifyProof folds proof into leaf with the sorted-pair rule and compares the
// result with root. It never panics; an empty proof verifies only a single-leaf tree.
func VerifyProof(proof [][32]byte, leaf [32]byte, root [32]byte) bool {
	current := leaf
	for _, sibling := range proof {
		current = hashPair(current, sibling)
	}
	return current == root
}

// VerifyHexProof is VerifyProof over go-ethereum hashes.
func VerifyHexProof(proof []common.Hash, leaf [32]byte, root common.Hash) bool {
	raw := make([][32]byte, len(proof))
	for i, h := range proof {
		raw[i] = h
	}
	return VerifyProof(raw, leaf, root)
}

// SortLeaves returns a copy of leaves in ascending byte order.
func SortLeaves(leaves [][32]byte) [][32]byte {
	sorted := make([][32]byte, len(leaves))
	copy(sorted, leaves)

	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i][:], sorted[j][:]) < 0
	})

	return sorted
}

// hashPair computes keccak256(min(a,b) || max(a,b)).
func hashPair(a, b [32]byte) [32]byte {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}

	data := make([]byte, 64)
	copy(data[0:32], a[:])
	copy(data[32:64], b[:])

	return [32]byte(crypto.Keccak256Hash(data))
}

package merkle

import (
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"
	"math/bits"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

// createTestLeaves creates n distinct pseudo-random leaves
func createTestLeaves(n int) [][32]byte {
	leaves := make([][32]byte, n)
	for i := 0; i < n; i++ {
		leaves[i] = randomHash()
	}
	return leaves
}

// randomHash generates a random 32-byte hash for testing
func randomHash() [32]byte {
	var hash [32]byte
	_, _ = rand.Read(hash[:]) // Ignore error in test helper
	return hash
}

func ceilLog2(n int) int {
	if n <= 1 {
		return 0
	}
	return bits.Len(uint(n - 1))
}

// TestBuildMerkleTree tests merkle tree construction with various numbers of leaves
func TestBuildMerkleTree(t *testing.T) {
	testCases := []struct {
		name      string
		numLeaves int
	}{
		{"Single leaf", 1},
		{"Two leaves", 2},
		{"Three leaves", 3},
		{"Four leaves (power of 2)", 4},
		{"Five leaves", 5},
		{"Seven leaves", 7},
		{"Eight leaves (power of 2)", 8},
		{"Fifteen leaves", 15},
		{"Sixteen leaves (power of 2)", 16},
		{"Seventeen leaves", 17},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			leaves := createTestLeaves(tc.numLeaves)
			tree, err := BuildMerkleTree(leaves)
			require.NoError(t, err)
			require.NotNil(t, tree)

			require.Equal(t, tc.numLeaves, tree.Len())
			require.Equal(t, ceilLog2(tc.numLeaves), tree.Depth())

			// Generate and verify proofs for all leaves
			for i := 0; i < tc.numLeaves; i++ {
				proof, err := tree.GenerateProof(leaves[i])
				require.NoError(t, err)
				require.Equal(t, i, proof.LeafIndex)
				require.Equal(t, leaves[i], proof.Leaf)
				require.LessOrEqual(t, len(proof.Proof), ceilLog2(tc.numLeaves))

				require.True(t, VerifyProof(proof.Proof, leaves[i], tree.Root()), "Proof for leaf %d should be valid", i)
				require.True(t, proof.Verify(tree.Root()))
				require.True(t, VerifyHexProof(proof.Hashes(), leaves[i], tree.HexRoot()))
			}
		})
	}
}

// TestBuildMerkleTreeEmpty tests that building a tree from no leaves fails
func TestBuildMerkleTreeEmpty(t *testing.T) {
	tree, err := BuildMerkleTree(nil)
	require.ErrorIs(t, err, ErrEmptyTree)
	require.Nil(t, tree)
}

func TestSingleLeafTree(t *testing.T) {
	leaf := randomHash()
	tree, err := BuildMerkleTree([][32]byte{leaf})
	require.NoError(t, err)

	require.Equal(t, leaf, tree.Root())
	proof, err := tree.GenerateProof(leaf)
	require.NoError(t, err)
	require.Empty(t, proof.Proof)
	require.True(t, VerifyProof(nil, leaf, tree.Root()))
}

// TestSortedPairHashing checks the root of a two leaf tree by hand
func TestSortedPairHashing(t *testing.T) {
	a := [32]byte{0x01}
	b := [32]byte{0x02}

	expected := crypto.Keccak256Hash(a[:], b[:])

	forward, err := BuildMerkleTree([][32]byte{a, b})
	require.NoError(t, err)
	backward, err := BuildMerkleTree([][32]byte{b, a})
	require.NoError(t, err)

	require.Equal(t, [32]byte(expected), forward.Root())
	require.Equal(t, forward.Root(), backward.Root())
}

// TestOddNodeIsPromoted checks that the last node of an odd level is carried
// up unchanged rather than hashed with itself
func TestOddNodeIsPromoted(t *testing.T) {
	a, b, c := [32]byte{0x01}, [32]byte{0x02}, [32]byte{0x03}

	tree, err := BuildMerkleTree([][32]byte{a, b, c})
	require.NoError(t, err)

	ab := hashPair(a, b)
	require.Equal(t, hashPair(ab, c), tree.Root())
	require.NotEqual(t, hashPair(ab, hashPair(c, c)), tree.Root())

	proof, err := tree.GenerateProof(c)
	require.NoError(t, err)
	require.Equal(t, [][32]byte{ab}, proof.Proof)
}

// TestMerkleProofVerification tests proof verification with valid and invalid cases
func TestMerkleProofVerification(t *testing.T) {
	leaves := createTestLeaves(4)
	tree, err := BuildMerkleTree(leaves)
	require.NoError(t, err)

	t.Run("Valid proof", func(t *testing.T) {
		proof, err := tree.GenerateProofAt(0)
		require.NoError(t, err)
		require.True(t, VerifyProof(proof.Proof, proof.Leaf, tree.Root()))
	})

	t.Run("Invalid proof - wrong root", func(t *testing.T) {
		proof, err := tree.GenerateProofAt(0)
		require.NoError(t, err)

		invalidRoot := [32]byte{1, 2, 3, 4, 5}
		require.False(t, VerifyProof(proof.Proof, proof.Leaf, invalidRoot))
	})

	t.Run("Invalid proof - tampered leaf", func(t *testing.T) {
		proof, err := tree.GenerateProofAt(0)
		require.NoError(t, err)

		proof.Leaf[0] ^= 0xFF
		require.False(t, proof.Verify(tree.Root()))
	})

	t.Run("Invalid proof - tampered sibling", func(t *testing.T) {
		proof, err := tree.GenerateProofAt(0)
		require.NoError(t, err)

		proof.Proof[0][0] ^= 0xFF
		require.False(t, proof.Verify(tree.Root()))
	})

	t.Run("Invalid proof - another leaf's proof", func(t *testing.T) {
		proof, err := tree.GenerateProofAt(0)
		require.NoError(t, err)
		require.False(t, VerifyProof(proof.Proof, leaves[2], tree.Root()))
	})

	t.Run("Invalid proof - empty", func(t *testing.T) {
		require.False(t, VerifyProof(nil, leaves[0], tree.Root()))
	})

	t.Run("Invalid proof - nil proof", func(t *testing.T) {
		var proof *MerkleProof
		require.False(t, proof.Verify(tree.Root()))
	})
}

func TestProofsAreFreshCopies(t *testing.T) {
	leaves := createTestLeaves(8)
	tree, err := BuildMerkleTree(leaves)
	require.NoError(t, err)

	first, err := tree.GenerateProofAt(3)
	require.NoError(t, err)
	first.Proof[0][0] ^= 0xFF

	second, err := tree.GenerateProofAt(3)
	require.NoError(t, err)
	require.True(t, second.Verify(tree.Root()))

	// Mutating the input slice must not affect a built tree
	leaves[3][0] ^= 0xFF
	third, err := tree.GenerateProofAt(3)
	require.NoError(t, err)
	require.True(t, third.Verify(tree.Root()))
}

// TestGenerateProofInvalidIndex tests proof generation with invalid indices
func TestGenerateProofInvalidIndex(t *testing.T) {
	tree, err := BuildMerkleTree(createTestLeaves(4))
	require.NoError(t, err)

	t.Run("Negative index", func(t *testing.T) {
		proof, err := tree.GenerateProofAt(-1)
		require.Error(t, err)
		require.Nil(t, proof)
	})

	t.Run("Index out of bounds", func(t *testing.T) {
		proof, err := tree.GenerateProofAt(10)
		require.Error(t, err)
		require.Nil(t, proof)
	})

	t.Run("Unknown leaf", func(t *testing.T) {
		proof, err := tree.GenerateProof(randomHash())
		require.True(t, errors.Is(err, ErrLeafNotFound))
		require.Nil(t, proof)
	})
}

func TestDuplicateLeavesPermitted(t *testing.T) {
	leaf := randomHash()
	other := randomHash()
	tree, err := BuildMerkleTree([][32]byte{leaf, other, leaf})
	require.NoError(t, err)

	index, ok := tree.IndexOf(leaf)
	require.True(t, ok)
	require.Equal(t, 0, index)

	proof, err := tree.GenerateProof(leaf)
	require.NoError(t, err)
	require.True(t, proof.Verify(tree.Root()))
}

// TestMerkleTreeDeterminism tests that the same leaves always produce the same tree
func TestMerkleTreeDeterminism(t *testing.T) {
	leaves := createTestLeaves(10)

	tree1, err := BuildMerkleTree(leaves)
	require.NoError(t, err)
	tree2, err := BuildMerkleTree(leaves)
	require.NoError(t, err)

	require.Equal(t, tree1.Root(), tree2.Root())
	require.Equal(t, tree1.Leaves(), tree2.Leaves())
}

// TestMerkleTreeOrderSensitivity documents that for three or more leaves the
// root depends on leaf order, while sorting the leaves first removes that
// dependency.
func TestMerkleTreeOrderSensitivity(t *testing.T) {
	leaves := createTestLeaves(10)
	reversed := make([][32]byte, len(leaves))
	for i := range leaves {
		reversed[len(leaves)-1-i] = leaves[i]
	}

	tree1, err := BuildMerkleTree(leaves)
	require.NoError(t, err)
	tree2, err := BuildMerkleTree(reversed)
	require.NoError(t, err)
	require.NotEqual(t, tree1.Root(), tree2.Root())

	sorted1, err := BuildMerkleTree(SortLeaves(leaves))
	require.NoError(t, err)
	sorted2, err := BuildMerkleTree(SortLeaves(reversed))
	require.NoError(t, err)
	require.Equal(t, sorted1.Root(), sorted2.Root())

	// Proofs from either ordering still verify against their own root
	for _, leaf := range leaves {
		p1, err := tree1.GenerateProof(leaf)
		require.NoError(t, err)
		require.True(t, p1.Verify(tree1.Root()))

		p2, err := tree2.GenerateProof(leaf)
		require.NoError(t, err)
		require.True(t, p2.Verify(tree2.Root()))
	}
}

func TestSortLeavesDoesNotMutate(t *testing.T) {
	leaves := createTestLeaves(6)
	original := make([][32]byte, len(leaves))
	copy(original, leaves)

	sorted := SortLeaves(leaves)
	require.Equal(t, original, leaves)
	for i := 1; i < len(sorted); i++ {
		require.True(t, bytes.Compare(sorted[i-1][:], sorted[i][:]) <= 0)
	}
}

// TestMerkleTreeLargeSet tests with a larger number of leaves
func TestMerkleTreeLargeSet(t *testing.T) {
	sizes := []int{50, 100, 257}

	for _, size := range sizes {
		t.Run(fmt.Sprintf("Size_%d", size), func(t *testing.T) {
			leaves := createTestLeaves(size)
			tree, err := BuildMerkleTree(leaves)
			require.NoError(t, err)
			require.Equal(t, size, tree.Len())

			for _, idx := range []int{0, size / 4, size / 2, size - 1} {
				proof, err := tree.GenerateProofAt(idx)
				require.NoError(t, err)
				require.True(t, proof.Verify(tree.Root()))
			}
		})
	}
}

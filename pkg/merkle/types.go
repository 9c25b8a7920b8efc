package merkle

import "github.com/ethereum/go-ethereum/common"

// MerkleTree is an immutable binary merkle tree over a fixed leaf sequence.
// Internal nodes hash the sorted pair of their children, and an odd node at
// the end of a level is promoted to the next level unchanged.
type MerkleTree struct {
	// leaves contains the leaf hashes in construction order
	leaves [][32]byte

	// root is the merkle root hash
	root [32]byte

	// levels stores all tree levels for proof generation
	// levels[0] = leaves, levels[len-1] = [root]
	levels [][][32]byte

	// positions maps a leaf hash to the first index holding it
	positions map[[32]byte]int
}

// MerkleProof represents a proof that a leaf is included in the tree.
type MerkleProof struct {
	// LeafIndex is the index of the leaf in construction order
	LeafIndex int

	// Leaf is the hash of the leaf being proven
	Leaf [32]byte

	// Proof contains the sibling hashes from leaf to root. Levels where the
	// node was promoted contribute no sibling, so the proof can be shorter
	// than the tree depth.
	Proof [][32]byte
}

// Hashes returns the proof as go-ethereum hashes, the form used in claim documents.
func (p *MerkleProof) Hashes() []common.Hash {
	hashes := make([]common.Hash, len(p.Proof))
	for i, h := range p.Proof {
		hashes[i] = common.Hash(h)
	}
	return hashes
}

// Verify checks the proof against root.
func (p *MerkleProof) Verify(root [32]byte) bool {
	if p == nil {
		return false
	}
	return VerifyProof(p.Proof, p.Leaf, root)
}

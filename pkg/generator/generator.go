package generator

import (
	"fmt"
	"math/big"

	"github.com/Layr-Labs/merkle-distributor-go/pkg/allocation"
	"github.com/Layr-Labs/merkle-distributor-go/pkg/config"
	"github.com/Layr-Labs/merkle-distributor-go/pkg/logger"
	"github.com/Layr-Labs/merkle-distributor-go/pkg/merkle"
	"github.com/Layr-Labs/merkle-distributor-go/pkg/persistence"
	"github.com/Layr-Labs/merkle-distributor-go/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// DuplicateAccountError aborts a build when two table rows canonicalise to the
// same account. No commitment is produced for a table containing one.
type DuplicateAccountError struct {
	Account common.Address
}

func (e *DuplicateAccountError) Error() string {
	return fmt.Sprintf("found duplicate account: %s", e.Account.Hex())
}

// Recipient is one airdrop recipient with its scaled amount and leaf.
type Recipient struct {
	Account common.Address
	Amount  *big.Int
	Leaf    [32]byte
}

// Generator owns the merkle tree of one allocation table. It is built once
// and read-only afterwards, so it is safe for concurrent readers.
type Generator struct {
	tree       *merkle.MerkleTree
	tokenTotal *big.Int
	recipients []Recipient
	// index maps an account to its position in recipients
	index  map[common.Address]int
	logger *zap.Logger
}

type options struct {
	decimals       int
	canonicalOrder bool
	logger         *zap.Logger
}

// Option configures NewGenerator.
type Option func(*options)

// WithDecimals sets the number of fractional digits amounts are scaled by.
func WithDecimals(decimals int) Option {
	return func(o *options) { o.decimals = decimals }
}

// WithCanonicalOrder builds the tree over byte-sorted leaves instead of table
// order, making the root independent of the table's row order. Documents
// produced this way are not interchangeable with table-ordered ones.
func WithCanonicalOrder() Option {
	return func(o *options) { o.canonicalOrder = true }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// NewGenerator canonicalises, scales and hashes every row of table, rejecting
// duplicate accounts, and builds the merkle tree over the resulting leaves.
func NewGenerator(table *allocation.Table, opts ...Option) (*Generator, error) {
	o := &options{decimals: config.DefaultDecimals}
	for _, opt := range opts {
		opt(o)
	}
	l := logger.OrNop(o.logger)

	if table == nil || len(table.Entries) == 0 {
		return nil, fmt.Errorf("allocation table is empty")
	}

	l.Sugar().Infow("Reading records", "count", len(table.Entries), "decimals", o.decimals)

	recipients := make([]Recipient, 0, len(table.Entries))
	index := make(map[common.Address]int, len(table.Entries))
	leaves := make([][32]byte, 0, len(table.Entries))
	tokenTotal := new(big.Int)

	for _, entry := range table.Entries {
		account, err := allocation.ParseAccount(entry.Account)
		if err != nil {
			return nil, err
		}
		amount, err := allocation.ParseAmount(entry.Amount, o.decimals)
		if err != nil {
			return nil, fmt.Errorf("amount for %s: %w", account.Hex(), err)
		}
		if _, exists := index[account]; exists {
			return nil, &DuplicateAccountError{Account: account}
		}

		leaf, err := allocation.EncodeLeaf(account, amount)
		if err != nil {
			return nil, fmt.Errorf("leaf for %s: %w", account.Hex(), err)
		}

		index[account] = len(recipients)
		recipients = append(recipients, Recipient{Account: account, Amount: amount, Leaf: leaf})
		leaves = append(leaves, leaf)
		tokenTotal.Add(tokenTotal, amount)
	}

	if o.canonicalOrder {
		leaves = merkle.SortLeaves(leaves)
	}

	l.Sugar().Infow("Generating Merkle tree", "leaves", len(leaves), "canonical_order", o.canonicalOrder)

	tree, err := merkle.BuildMerkleTree(leaves)
	if err != nil {
		return nil, fmt.Errorf("failed to build merkle tree: %w", err)
	}

	return &Generator{
		tree:       tree,
		tokenTotal: tokenTotal,
		recipients: recipients,
		index:      index,
		logger:     l,
	}, nil
}

// Root returns the merkle root.
func (g *Generator) Root() common.Hash {
	return g.tree.HexRoot()
}

// TokenTotal returns a copy of the sum of all scaled amounts.
func (g *Generator) TokenTotal() *big.Int {
	return new(big.Int).Set(g.tokenTotal)
}

// Tree returns the underlying merkle tree.
func (g *Generator) Tree() *merkle.MerkleTree {
	return g.tree
}

// Len returns the number of recipients.
func (g *Generator) Len() int {
	return len(g.recipients)
}

// Recipients returns the recipients in table order.
func (g *Generator) Recipients() []Recipient {
	out := make([]Recipient, len(g.recipients))
	copy(out, g.recipients)
	return out
}

// Recipient returns the recipient for account.
func (g *Generator) Recipient(account common.Address) (Recipient, bool) {
	i, ok := g.index[account]
	if !ok {
		return Recipient{}, false
	}
	return g.recipients[i], true
}

// Commitment returns the document a verifier needs.
func (g *Generator) Commitment() *types.CommitmentDocument {
	return &types.CommitmentDocument{
		Root:       g.Root(),
		TokenTotal: g.TokenTotal(),
	}
}

// ClaimFor builds the claim record of the recipient at position i.
func (g *Generator) ClaimFor(i int) (*types.ClaimRecord, error) {
	if i < 0 || i >= len(g.recipients) {
		return nil, fmt.Errorf("recipient index %d out of bounds (%d recipients)", i, len(g.recipients))
	}
	r := g.recipients[i]

	proof, err := g.tree.GenerateProof(r.Leaf)
	if err != nil {
		return nil, err
	}
	return &types.ClaimRecord{
		Amount: new(big.Int).Set(r.Amount),
		Proof:  proof.Hashes(),
	}, nil
}

// ProofFor returns the inclusion proof of account.
func (g *Generator) ProofFor(account common.Address) ([]common.Hash, error) {
	i, ok := g.index[account]
	if !ok {
		return nil, fmt.Errorf("%w: no allocation for %s", merkle.ErrLeafNotFound, account.Hex())
	}
	claim, err := g.ClaimFor(i)
	if err != nil {
		return nil, err
	}
	return claim.Proof, nil
}

// Process logs the root and, when store is not nil, persists the commitment
// document under its well-known name.
func (g *Generator) Process(store persistence.IDocumentStore) (*types.CommitmentDocument, error) {
	doc := g.Commitment()
	g.logger.Sugar().Infow("Generated Merkle root", "root", doc.Root.Hex(), "token_total", types.EncodeAmount(doc.TokenTotal))

	if store == nil {
		return doc, nil
	}

	data, err := persistence.MarshalCommitment(doc)
	if err != nil {
		return nil, err
	}
	if err := store.SaveDocument(persistence.CommitmentDocumentName, data); err != nil {
		return nil, fmt.Errorf("failed to save commitment: %w", err)
	}
	g.logger.Sugar().Infow("Saved Merkle root and token total", "document", persistence.CommitmentDocumentName)

	return doc, nil
}

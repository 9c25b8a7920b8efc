package types

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ClaimRecord is the proof material a single recipient needs to redeem its allocation.
type ClaimRecord struct {
	// Amount is the scaled token amount committed in the leaf
	Amount *big.Int

	// Proof contains the sibling hashes from leaf to root
	Proof []common.Hash
}

type claimRecordJSON struct {
	Amount string        `json:"amount"`
	Proof  []common.Hash `json:"proof"`
}

func (c ClaimRecord) MarshalJSON() ([]byte, error) {
	proof := c.Proof
	if proof == nil {
		proof = []common.Hash{}
	}
	return json.Marshal(claimRecordJSON{
		Amount: EncodeAmount(c.Amount),
		Proof:  proof,
	})
}

func (c *ClaimRecord) UnmarshalJSON(data []byte) error {
	var raw claimRecordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	amount, err := DecodeAmount(raw.Amount)
	if err != nil {
		return err
	}
	c.Amount = amount
	c.Proof = raw.Proof
	return nil
}

// Claims maps a checksummed account string to its claim record.
type Claims map[string]*ClaimRecord

// Accounts returns the keys of c in no particular order.
func (c Claims) Accounts() []string {
	accounts := make([]string, 0, len(c))
	for account := range c {
		accounts = append(accounts, account)
	}
	return accounts
}

// CommitmentDocument is the only state a verifier needs to authenticate proofs.
type CommitmentDocument struct {
	Root       common.Hash
	TokenTotal *big.Int
}

type commitmentDocumentJSON struct {
	Root       common.Hash `json:"root"`
	TokenTotal string      `json:"tokenTotal"`
}

func (d CommitmentDocument) MarshalJSON() ([]byte, error) {
	return json.Marshal(commitmentDocumentJSON{
		Root:       d.Root,
		TokenTotal: EncodeAmount(d.TokenTotal),
	})
}

func (d *CommitmentDocument) UnmarshalJSON(data []byte) error {
	var raw commitmentDocumentJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	total, err := DecodeAmount(raw.TokenTotal)
	if err != nil {
		return err
	}
	d.Root = raw.Root
	d.TokenTotal = total
	return nil
}

// DistributorInfo is the complete in-memory result of a proof run: it is
// sufficient for recreating the whole tree and checking every allocation.
type DistributorInfo struct {
	MerkleRoot common.Hash `json:"merkleRoot"`
	TokenTotal *big.Int    `json:"-"`
	Claims     Claims      `json:"claims"`
}

func (i DistributorInfo) MarshalJSON() ([]byte, error) {
	type alias DistributorInfo
	return json.Marshal(struct {
		alias
		TokenTotal string `json:"tokenTotal"`
	}{
		alias:      alias(i),
		TokenTotal: EncodeAmount(i.TokenTotal),
	})
}

// RangeIndex maps the lowercase first account of every cohort to the lowercase
// last account of the same cohort.
type RangeIndex map[string]string

// Lookup returns the cohort start key whose range contains account, if any.
func (r RangeIndex) Lookup(account string) (string, bool) {
	key := strings.ToLower(account)
	for first, last := range r {
		if key >= first && key <= last {
			return first, true
		}
	}
	return "", false
}

// EncodeAmount renders amount as an even-length 0x-prefixed hex string
// (200 -> 0xc8, 300 -> 0x012c). A nil amount encodes as zero.
func EncodeAmount(amount *big.Int) string {
	if amount == nil || amount.Sign() == 0 {
		return "0x00"
	}
	digits := amount.Text(16)
	if len(digits)%2 == 1 {
		digits = "0" + digits
	}
	return "0x" + digits
}

// DecodeAmount parses a 0x-prefixed hex string (leading zeros allowed) or a
// plain decimal string into a non-negative integer.
func DecodeAmount(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty amount")
	}

	base := 10
	digits := s
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		base = 16
		digits = s[2:]
	}
	if digits == "" {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	if strings.ContainsAny(digits, "+-") {
		return nil, fmt.Errorf("invalid amount %q", s)
	}

	amount, ok := new(big.Int).SetString(digits, base)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return amount, nil
}

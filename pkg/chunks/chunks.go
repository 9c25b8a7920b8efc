package chunks

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Layr-Labs/merkle-distributor-go/pkg/config"
	"github.com/Layr-Labs/merkle-distributor-go/pkg/logger"
	"github.com/Layr-Labs/merkle-distributor-go/pkg/persistence"
	"github.com/Layr-Labs/merkle-distributor-go/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// MissingClaimError reports an allocated account with no claim record.
// Proof generation did not cover the whole recipient list.
type MissingClaimError struct {
	Account common.Address
}

func (e *MissingClaimError) Error() string {
	return fmt.Sprintf("missing claim for %s", e.Account.Hex())
}

// Cohort is a contiguous slice of claim records sorted by lowercase account.
type Cohort struct {
	First  string
	Last   string
	Claims types.Claims
}

// MergeClaimDocuments folds docs into acc. An account already present keeps
// its first record. A nil acc starts a new accumulator.
func MergeClaimDocuments(acc types.Claims, docs ...types.Claims) types.Claims {
	if acc == nil {
		acc = make(types.Claims)
	}
	for _, doc := range docs {
		for account, claim := range doc {
			if _, exists := acc[account]; exists {
				continue
			}
			acc[account] = claim
		}
	}
	return acc
}

// EnsureComplete returns a MissingClaimError for the first allocated account
// without a claim record. Claim keys are matched case-insensitively.
func EnsureComplete(accounts []common.Address, claims types.Claims) error {
	present := make(map[string]struct{}, len(claims))
	for account := range claims {
		present[strings.ToLower(account)] = struct{}{}
	}
	for _, account := range accounts {
		if _, ok := present[strings.ToLower(account.Hex())]; !ok {
			return &MissingClaimError{Account: account}
		}
	}
	return nil
}

// Partition sorts claims by lowercase account and slices them into cohorts of
// cohortSize records; the last cohort holds the remainder.
func Partition(claims types.Claims, cohortSize int) ([]Cohort, types.RangeIndex, error) {
	if cohortSize < 1 {
		return nil, nil, fmt.Errorf("cohort size must be positive, got %d", cohortSize)
	}

	accounts := claims.Accounts()
	sort.Slice(accounts, func(i, j int) bool {
		return strings.ToLower(accounts[i]) < strings.ToLower(accounts[j])
	})

	cohorts := make([]Cohort, 0, (len(accounts)+cohortSize-1)/cohortSize)
	index := make(types.RangeIndex, cap(cohorts))
	for start := 0; start < len(accounts); start += cohortSize {
		end := start + cohortSize
		if end > len(accounts) {
			end = len(accounts)
		}

		cohort := Cohort{
			First:  strings.ToLower(accounts[start]),
			Last:   strings.ToLower(accounts[end-1]),
			Claims: make(types.Claims, end-start),
		}
		for _, account := range accounts[start:end] {
			cohort.Claims[account] = claims[account]
		}
		cohorts = append(cohorts, cohort)
		index[cohort.First] = cohort.Last
	}
	return cohorts, index, nil
}

// Result is the outcome of a split run.
type Result struct {
	Claims  types.Claims
	Cohorts []Cohort
	Index   types.RangeIndex
}

// Splitter turns the proof partitions of a store into cohort documents and a
// range index.
type Splitter struct {
	store      persistence.IDocumentStore
	cohortSize int
	logger     *zap.Logger
}

func NewSplitter(store persistence.IDocumentStore, cohortSize int, l *zap.Logger) (*Splitter, error) {
	if store == nil {
		return nil, fmt.Errorf("document store is required")
	}
	if cohortSize == 0 {
		cohortSize = config.DefaultCohortSize
	}
	if cohortSize < 1 {
		return nil, fmt.Errorf("cohort size must be positive, got %d", cohortSize)
	}
	return &Splitter{
		store:      store,
		cohortSize: cohortSize,
		logger:     logger.OrNop(l),
	}, nil
}

// Split merges every claims partition, checks that every allocated account
// has a record, and replaces the cohort documents and range index.
func (s *Splitter) Split(accounts []common.Address) (*Result, error) {
	names, err := s.store.ListDocuments(persistence.ClaimsPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list claim documents: %w", err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no claim documents found under %s", persistence.ClaimsPrefix)
	}

	var merged types.Claims
	for _, name := range names {
		doc, err := persistence.LoadClaims(s.store, name)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", name, err)
		}
		merged = MergeClaimDocuments(merged, doc)
	}
	s.logger.Sugar().Infow("Merged claim documents", "documents", len(names), "claims", len(merged))

	if err := EnsureComplete(accounts, merged); err != nil {
		return nil, err
	}

	cohorts, index, err := Partition(merged, s.cohortSize)
	if err != nil {
		return nil, err
	}

	if err := s.removeStaleChunks(); err != nil {
		return nil, err
	}
	for _, cohort := range cohorts {
		data, err := persistence.MarshalClaims(cohort.Claims)
		if err != nil {
			return nil, err
		}
		name := persistence.ChunkName(cohort.First)
		if err := s.store.SaveDocument(name, data); err != nil {
			return nil, fmt.Errorf("failed to save %s: %w", name, err)
		}
	}

	data, err := persistence.MarshalRangeIndex(index)
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveDocument(persistence.RangeIndexDocumentName, data); err != nil {
		return nil, fmt.Errorf("failed to save range index: %w", err)
	}

	s.logger.Sugar().Infow("Split claims into cohorts",
		"cohorts", len(cohorts),
		"cohort_size", s.cohortSize,
	)
	return &Result{Claims: merged, Cohorts: cohorts, Index: index}, nil
}

func (s *Splitter) removeStaleChunks() error {
	names, err := s.store.ListDocuments(persistence.ChunksPrefix)
	if err != nil {
		return fmt.Errorf("failed to list chunk documents: %w", err)
	}
	for _, name := range names {
		if err := s.store.DeleteDocument(name); err != nil {
			return fmt.Errorf("failed to delete %s: %w", name, err)
		}
	}
	return nil
}

// FindClaim resolves the claim record of account through the range index and
// its cohort document. It returns nil when the account has no record.
func FindClaim(store persistence.IDocumentStore, account common.Address) (*types.ClaimRecord, error) {
	data, err := store.LoadDocument(persistence.RangeIndexDocumentName)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("range index %s not found", persistence.RangeIndexDocumentName)
	}
	index, err := persistence.UnmarshalRangeIndex(data)
	if err != nil {
		return nil, err
	}

	first, ok := index.Lookup(account.Hex())
	if !ok {
		return nil, nil
	}
	cohort, err := persistence.LoadClaims(store, persistence.ChunkName(first))
	if err != nil {
		return nil, err
	}
	if cohort == nil {
		return nil, fmt.Errorf("cohort %s listed in range index but not found", first)
	}

	want := strings.ToLower(account.Hex())
	for key, claim := range cohort {
		if strings.ToLower(key) == want {
			return claim, nil
		}
	}
	return nil, nil
}

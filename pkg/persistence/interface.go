package persistence

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

// ErrClosed is returned by every operation on a closed store.
var ErrClosed = errors.New("persistence layer is closed")

// IDocumentStore is the sink the builder writes its JSON documents to and
// reads previously emitted documents back from. Names are slash separated
// paths such as "claims/claims-100.json".
//
// All implementations must be thread-safe.
type IDocumentStore interface {
	// SaveDocument stores data under name, replacing any previous content.
	// A save either fully succeeds or leaves the previous content untouched.
	SaveDocument(name string, data []byte) error

	// LoadDocument returns the content stored under name.
	// Returns nil if the document doesn't exist, error only on storage failure.
	LoadDocument(name string) ([]byte, error)

	// ListDocuments returns the names of all documents starting with prefix,
	// sorted ascending. Returns an empty slice if none exist.
	ListDocuments(prefix string) ([]string, error)

	// DeleteDocument removes a document.
	// Idempotent - returns nil if the document doesn't exist.
	DeleteDocument(name string) error

	// Close cleanly shuts down the store.
	// Idempotent - safe to call multiple times.
	Close() error

	// HealthCheck verifies the store is operational.
	HealthCheck() error
}

// IClaimStatusStore persists the per-account claim status of a distributor.
// Implementations must make MarkClaimed an atomic check-and-set: when several
// callers race on the same account exactly one observes true.
type IClaimStatusStore interface {
	// MarkClaimed flips account from unclaimed to claimed.
	// Returns false without error if the account was already claimed.
	MarkClaimed(account common.Address) (bool, error)

	// UnmarkClaimed reverts a MarkClaimed whose payout could not be executed.
	UnmarkClaimed(account common.Address) error

	// IsClaimed reports whether account has claimed.
	IsClaimed(account common.Address) (bool, error)

	// Close cleanly shuts down the store.
	Close() error
}

package memory

import (
	"sort"
	"strings"
	"sync"

	"github.com/Layr-Labs/merkle-distributor-go/pkg/persistence"
	"github.com/ethereum/go-ethereum/common"
)

// MemoryPersistence is an in-memory implementation of IDocumentStore and
// IClaimStatusStore, used by tests and in-process callers.
//
// All data is stored in memory and will be lost when the process exits.
// Thread-safe using sync.RWMutex for concurrent access.
// Copies data to prevent external mutation.
type MemoryPersistence struct {
	mu sync.RWMutex

	// Documents: name -> content
	documents map[string][]byte

	// Claim status: presence means claimed
	claimed map[common.Address]struct{}

	// Closed flag
	closed bool
}

var (
	_ persistence.IDocumentStore    = (*MemoryPersistence)(nil)
	_ persistence.IClaimStatusStore = (*MemoryPersistence)(nil)
)

// NewMemoryPersistence creates a new in-memory persistence layer.
func NewMemoryPersistence() *MemoryPersistence {
	return &MemoryPersistence{
		documents: make(map[string][]byte),
		claimed:   make(map[common.Address]struct{}),
	}
}

// SaveDocument stores a copy of data under name.
func (m *MemoryPersistence) SaveDocument(name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return persistence.ErrClosed
	}

	m.documents[name] = append([]byte{}, data...)
	return nil
}

// LoadDocument returns a copy of the document stored under name.
func (m *MemoryPersistence) LoadDocument(name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, persistence.ErrClosed
	}

	data, exists := m.documents[name]
	if !exists {
		return nil, nil // Not found is not an error
	}
	return append([]byte{}, data...), nil
}

// ListDocuments returns the sorted names under prefix.
func (m *MemoryPersistence) ListDocuments(prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, persistence.ErrClosed
	}

	names := make([]string, 0)
	for name := range m.documents {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// DeleteDocument removes a document.
func (m *MemoryPersistence) DeleteDocument(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return persistence.ErrClosed
	}

	delete(m.documents, name)
	return nil
}

// MarkClaimed atomically flips account to claimed.
func (m *MemoryPersistence) MarkClaimed(account common.Address) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false, persistence.ErrClosed
	}

	if _, exists := m.claimed[account]; exists {
		return false, nil
	}
	m.claimed[account] = struct{}{}
	return true, nil
}

// UnmarkClaimed reverts a claim whose payout failed.
func (m *MemoryPersistence) UnmarkClaimed(account common.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return persistence.ErrClosed
	}

	delete(m.claimed, account)
	return nil
}

// IsClaimed reports whether account has claimed.
func (m *MemoryPersistence) IsClaimed(account common.Address) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return false, persistence.ErrClosed
	}

	_, exists := m.claimed[account]
	return exists, nil
}

// Close marks the persistence layer as closed.
func (m *MemoryPersistence) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

// HealthCheck verifies the persistence layer is operational.
func (m *MemoryPersistence) HealthCheck() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return persistence.ErrClosed
	}
	return nil
}

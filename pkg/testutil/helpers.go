package testutil

import (
	"context"
	"encoding/binary"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Layr-Labs/merkle-distributor-go/pkg/allocation"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// CreateTestAccounts derives n deterministic accounts from secp256k1 keys.
func CreateTestAccounts(t *testing.T, n int) []common.Address {
	accounts := make([]common.Address, n)
	for i := 0; i < n; i++ {
		seed := make([]byte, 8)
		binary.BigEndian.PutUint64(seed, uint64(i+1))

		key, err := crypto.ToECDSA(crypto.Keccak256(seed))
		if err != nil {
			if t != nil {
				t.Fatalf("Failed to derive test key %d: %v", i, err)
			}
			return nil
		}
		accounts[i] = crypto.PubkeyToAddress(key.PublicKey)
	}
	return accounts
}

// CreateTestTable builds an allocation table assigning amounts[i] to accounts[i].
func CreateTestTable(t *testing.T, accounts []common.Address, amounts []int64) *allocation.Table {
	if t != nil && len(accounts) != len(amounts) {
		t.Fatalf("accounts and amounts differ in length: %d != %d", len(accounts), len(amounts))
	}
	table := &allocation.Table{}
	for i, account := range accounts {
		table.Add(account.Hex(), strconv.FormatInt(amounts[i], 10))
	}
	return table
}

// CreateUniformTable builds a table with n accounts holding amount each.
func CreateUniformTable(t *testing.T, n int, amount int64) (*allocation.Table, []common.Address) {
	accounts := CreateTestAccounts(t, n)
	amounts := make([]int64, n)
	for i := range amounts {
		amounts[i] = amount
	}
	return CreateTestTable(t, accounts, amounts), accounts
}

// FakeClock is a manually advanced clock.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewFakeClock(now time.Time) *FakeClock {
	return &FakeClock{now: now}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// StaticInspector reports accounts registered with SetContract as contracts.
type StaticInspector struct {
	mu        sync.RWMutex
	contracts map[common.Address]bool
	Err       error
}

func NewStaticInspector(contracts ...common.Address) *StaticInspector {
	s := &StaticInspector{contracts: make(map[common.Address]bool)}
	for _, c := range contracts {
		s.contracts[c] = true
	}
	return s
}

func (s *StaticInspector) SetContract(account common.Address, isContract bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contracts[account] = isContract
}

func (s *StaticInspector) IsContract(_ context.Context, account common.Address) (bool, error) {
	if s.Err != nil {
		return false, s.Err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.contracts[account], nil
}

// StaticPauseSource is an external pause flag toggled by tests.
type StaticPauseSource struct {
	paused atomic.Bool
}

func (p *StaticPauseSource) SetPaused(paused bool) {
	p.paused.Store(paused)
}

func (p *StaticPauseSource) Paused(_ context.Context) (bool, error) {
	return p.paused.Load(), nil
}

// HolderCall records one CreateHolder invocation.
type HolderCall struct {
	Beneficiary common.Address
	Holder      common.Address
	Start       time.Time
	Duration    time.Duration
}

// MockVestingFactory creates holder addresses derived from the beneficiary.
type MockVestingFactory struct {
	mu    sync.Mutex
	Calls []HolderCall
	Err   error
}

func (f *MockVestingFactory) CreateHolder(_ context.Context, beneficiary common.Address, start time.Time, duration time.Duration) (common.Address, error) {
	if f.Err != nil {
		return common.Address{}, f.Err
	}
	holder := common.BytesToAddress(crypto.Keccak256([]byte("vesting"), beneficiary.Bytes()))

	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, HolderCall{Beneficiary: beneficiary, Holder: holder, Start: start, Duration: duration})
	return holder, nil
}

func (f *MockVestingFactory) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}

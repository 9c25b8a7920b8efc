package distributor

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
)

// VestingSchedule releases Withheld linearly from Start over Duration. The
// tokens sit with Holder until released.
type VestingSchedule struct {
	ID          uuid.UUID
	Beneficiary common.Address
	Holder      common.Address
	Withheld    *big.Int
	Start       time.Time
	Duration    time.Duration
}

// VestedAt returns the part of Withheld released at t.
func (s *VestingSchedule) VestedAt(t time.Time) *big.Int {
	switch {
	case !t.After(s.Start):
		return new(big.Int)
	case s.Duration <= 0 || t.Sub(s.Start) >= s.Duration:
		return new(big.Int).Set(s.Withheld)
	}
	elapsed := big.NewInt(int64(t.Sub(s.Start)))
	vested := new(big.Int).Mul(s.Withheld, elapsed)
	return vested.Quo(vested, big.NewInt(int64(s.Duration)))
}

// splitVesting returns the immediate and withheld parts of amount.
func splitVesting(amount *big.Int, immediatePercent int) (*big.Int, *big.Int) {
	immediate := new(big.Int).Mul(amount, big.NewInt(int64(immediatePercent)))
	immediate.Quo(immediate, big.NewInt(100))
	withheld := new(big.Int).Sub(amount, immediate)
	return immediate, withheld
}

var _ VestingFactory = (*MemoryVestingFactory)(nil)

// MemoryVestingFactory hands out holder addresses the way a contract factory
// deploys them: derived from the factory address and a deployment nonce.
type MemoryVestingFactory struct {
	mu      sync.Mutex
	address common.Address
	nonce   uint64
}

func NewMemoryVestingFactory(address common.Address) *MemoryVestingFactory {
	return &MemoryVestingFactory{address: address}
}

func (f *MemoryVestingFactory) CreateHolder(_ context.Context, _ common.Address, _ time.Time, _ time.Duration) (common.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	holder := crypto.CreateAddress(f.address, f.nonce)
	f.nonce++
	return holder, nil
}

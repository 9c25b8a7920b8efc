package distributor

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Transfer moves Amount of the distributed token from the distributor to To.
type Transfer struct {
	To     common.Address
	Amount *big.Int
}

// Ledger holds the distributor's token balance.
type Ledger interface {
	// Balance returns the live balance held by the distributor.
	Balance(ctx context.Context) (*big.Int, error)
	// Transfer applies every transfer or none of them.
	Transfer(ctx context.Context, transfers ...Transfer) error
}

// AccountInspector tells contract accounts from externally owned ones.
type AccountInspector interface {
	IsContract(ctx context.Context, account common.Address) (bool, error)
}

// PauseSource is an external pause flag consulted on every claim.
type PauseSource interface {
	Paused(ctx context.Context) (bool, error)
}

// VestingFactory creates the custody account holding a withheld allocation.
type VestingFactory interface {
	CreateHolder(ctx context.Context, beneficiary common.Address, start time.Time, duration time.Duration) (common.Address, error)
}

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

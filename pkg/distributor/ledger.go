package distributor

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var _ Ledger = (*MemoryLedger)(nil)

// MemoryLedger is an in-process Ledger tracking the distributor balance and
// what every recipient received.
type MemoryLedger struct {
	mu       sync.Mutex
	balance  *big.Int
	received map[common.Address]*big.Int
}

func NewMemoryLedger(balance *big.Int) *MemoryLedger {
	b := new(big.Int)
	if balance != nil {
		b.Set(balance)
	}
	return &MemoryLedger{
		balance:  b,
		received: make(map[common.Address]*big.Int),
	}
}

func (l *MemoryLedger) Balance(_ context.Context) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.balance), nil
}

// Transfer applies the batch atomically, failing with ErrInsufficientBalance
// when the balance cannot cover the whole batch.
func (l *MemoryLedger) Transfer(ctx context.Context, transfers ...Transfer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	total := new(big.Int)
	for _, t := range transfers {
		if t.Amount == nil || t.Amount.Sign() < 0 {
			return fmt.Errorf("invalid transfer amount to %s", t.To.Hex())
		}
		total.Add(total, t.Amount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balance.Cmp(total) < 0 {
		return fmt.Errorf("%w: balance %s, requested %s", ErrInsufficientBalance, l.balance, total)
	}
	l.balance.Sub(l.balance, total)
	for _, t := range transfers {
		got, ok := l.received[t.To]
		if !ok {
			got = new(big.Int)
			l.received[t.To] = got
		}
		got.Add(got, t.Amount)
	}
	return nil
}

// Deposit credits the distributor balance.
func (l *MemoryLedger) Deposit(amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balance.Add(l.balance, amount)
}

// Received returns the total transferred to account.
func (l *MemoryLedger) Received(account common.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if got, ok := l.received[account]; ok {
		return new(big.Int).Set(got)
	}
	return new(big.Int)
}

package distributor

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/Layr-Labs/merkle-distributor-go/pkg/allocation"
	"github.com/Layr-Labs/merkle-distributor-go/pkg/config"
	"github.com/Layr-Labs/merkle-distributor-go/pkg/logger"
	"github.com/Layr-Labs/merkle-distributor-go/pkg/merkle"
	"github.com/Layr-Labs/merkle-distributor-go/pkg/persistence"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Dependencies are the collaborators of a Distributor. Ledger and Status are
// required, Accounts is required for representatives and Vesting for the
// vesting variant.
type Dependencies struct {
	Ledger      Ledger
	Accounts    AccountInspector
	Status      persistence.IClaimStatusStore
	Clock       Clock
	PauseSource PauseSource
	Vesting     VestingFactory
	Logger      *zap.Logger
}

// Receipt describes an accepted claim.
type Receipt struct {
	Account common.Address
	// Recipient received the immediate payout
	Recipient common.Address
	Amount    *big.Int
	Immediate *big.Int
	// Schedule is set for the vesting variant when part of the amount is withheld
	Schedule *VestingSchedule
}

// Distributor is the claim state machine. It is the sole mutator of claim
// status, representatives and the pause flag.
type Distributor struct {
	config *config.DistributorConfig
	root   common.Hash

	ledger      Ledger
	accounts    AccountInspector
	status      persistence.IClaimStatusStore
	clock       Clock
	pauseSource PauseSource
	vesting     VestingFactory
	logger      *zap.Logger

	mu              sync.RWMutex
	paused          bool
	representatives map[common.Address]common.Address
	schedules       map[common.Address]*VestingSchedule
}

func NewDistributor(cfg *config.DistributorConfig, deps Dependencies) (*Distributor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid distributor config: %w", err)
	}
	if deps.Ledger == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	if deps.Status == nil {
		return nil, fmt.Errorf("claim status store is required")
	}
	if cfg.Vesting && deps.Vesting == nil {
		return nil, fmt.Errorf("vesting factory is required for the vesting variant")
	}
	clock := deps.Clock
	if clock == nil {
		clock = systemClock{}
	}

	return &Distributor{
		config:          cfg,
		root:            cfg.MerkleRoot,
		ledger:          deps.Ledger,
		accounts:        deps.Accounts,
		status:          deps.Status,
		clock:           clock,
		pauseSource:     deps.PauseSource,
		vesting:         deps.Vesting,
		logger:          logger.OrNop(deps.Logger),
		representatives: make(map[common.Address]common.Address),
		schedules:       make(map[common.Address]*VestingSchedule),
	}, nil
}

func (d *Distributor) MerkleRoot() common.Hash {
	return d.root
}

// Claim redeems the allocation of account and pays it to account.
func (d *Distributor) Claim(ctx context.Context, account common.Address, amount *big.Int, proof []common.Hash) (*Receipt, error) {
	return d.claim(ctx, account, account, amount, proof)
}

// ClaimOnBehalfOf redeems the allocation of a contract account for its
// registered representative, which receives the payout.
func (d *Distributor) ClaimOnBehalfOf(ctx context.Context, caller, account common.Address, amount *big.Int, proof []common.Hash) (*Receipt, error) {
	d.mu.RLock()
	representative, ok := d.representatives[account]
	d.mu.RUnlock()
	if !ok || representative != caller {
		return nil, ErrInvalidRepresentative
	}

	isContract, err := d.isContract(ctx, account)
	if err != nil {
		return nil, err
	}
	if !isContract {
		return nil, ErrInvalidRepresentative
	}

	return d.claim(ctx, account, caller, amount, proof)
}

func (d *Distributor) claim(ctx context.Context, account, recipient common.Address, amount *big.Int, proof []common.Hash) (*Receipt, error) {
	if err := d.checkWindow(ctx); err != nil {
		return nil, err
	}

	claimed, err := d.status.IsClaimed(account)
	if err != nil {
		return nil, fmt.Errorf("failed to read claim status: %w", err)
	}
	if claimed {
		return nil, ErrAlreadyClaimed
	}

	if !d.verify(account, amount, proof) {
		return nil, ErrNotEligible
	}

	won, err := d.status.MarkClaimed(account)
	if err != nil {
		return nil, fmt.Errorf("failed to mark claimed: %w", err)
	}
	if !won {
		return nil, ErrAlreadyClaimed
	}

	receipt, transfers, err := d.payout(ctx, account, recipient, amount)
	if err == nil {
		err = d.ledger.Transfer(ctx, transfers...)
		if err != nil {
			err = fmt.Errorf("ledger transfer failed: %w", err)
		}
	}
	if err != nil {
		if rollbackErr := d.status.UnmarkClaimed(account); rollbackErr != nil {
			d.logger.Sugar().Errorw("Failed to roll back claim status",
				"account", account.Hex(),
				"error", rollbackErr,
			)
		}
		return nil, err
	}

	if receipt.Schedule != nil {
		d.mu.Lock()
		d.schedules[account] = receipt.Schedule
		d.mu.Unlock()
	}

	d.logger.Sugar().Infow("Claimed",
		"account", account.Hex(),
		"recipient", recipient.Hex(),
		"amount", amount.String(),
		"immediate", receipt.Immediate.String(),
	)
	return receipt, nil
}

// payout builds the transfer batch for an accepted claim.
func (d *Distributor) payout(ctx context.Context, account, recipient common.Address, amount *big.Int) (*Receipt, []Transfer, error) {
	receipt := &Receipt{
		Account:   account,
		Recipient: recipient,
		Amount:    new(big.Int).Set(amount),
	}

	if !d.config.Vesting {
		receipt.Immediate = new(big.Int).Set(amount)
		return receipt, []Transfer{{To: recipient, Amount: receipt.Immediate}}, nil
	}

	immediate, withheld := splitVesting(amount, d.config.VestingImmediatePercent)
	receipt.Immediate = immediate

	var transfers []Transfer
	if immediate.Sign() > 0 {
		transfers = append(transfers, Transfer{To: recipient, Amount: immediate})
	}
	if withheld.Sign() > 0 {
		start := d.clock.Now()
		holder, err := d.vesting.CreateHolder(ctx, recipient, start, d.config.VestingDuration)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create vesting holder: %w", err)
		}
		receipt.Schedule = &VestingSchedule{
			ID:          uuid.New(),
			Beneficiary: recipient,
			Holder:      holder,
			Withheld:    withheld,
			Start:       start,
			Duration:    d.config.VestingDuration,
		}
		transfers = append(transfers, Transfer{To: holder, Amount: new(big.Int).Set(withheld)})
	}
	return receipt, transfers, nil
}

func (d *Distributor) verify(account common.Address, amount *big.Int, proof []common.Hash) bool {
	if amount == nil {
		return false
	}
	leaf, err := allocation.EncodeLeaf(account, amount)
	if err != nil {
		return false
	}
	return merkle.VerifyHexProof(proof, leaf, d.root)
}

// checkWindow rejects claims while paused, before the start time or after
// the deadline.
func (d *Distributor) checkWindow(ctx context.Context) error {
	d.mu.RLock()
	paused := d.paused
	d.mu.RUnlock()
	if paused {
		return ErrActionPaused
	}

	if d.pauseSource != nil {
		externallyPaused, err := d.pauseSource.Paused(ctx)
		if err != nil {
			return fmt.Errorf("failed to read external pause flag: %w", err)
		}
		if externallyPaused {
			return ErrActionPaused
		}
	}

	now := d.clock.Now()
	if now.Before(d.config.StartTime) {
		return ErrActionPaused
	}
	if d.pastDeadline(now) {
		return ErrPastDeadline
	}
	return nil
}

func (d *Distributor) pastDeadline(now time.Time) bool {
	return !d.config.Deadline.IsZero() && now.After(d.config.Deadline)
}

func (d *Distributor) isContract(ctx context.Context, account common.Address) (bool, error) {
	if d.accounts == nil {
		return false, fmt.Errorf("no account inspector configured")
	}
	isContract, err := d.accounts.IsContract(ctx, account)
	if err != nil {
		return false, fmt.Errorf("failed to inspect %s: %w", account.Hex(), err)
	}
	return isContract, nil
}

func (d *Distributor) requireAdmin(caller common.Address) error {
	if caller != d.config.Admin {
		return ErrUnauthorized
	}
	return nil
}

// IsClaimed reports whether account has claimed.
func (d *Distributor) IsClaimed(account common.Address) (bool, error) {
	return d.status.IsClaimed(account)
}

// SetRepresentative lets representative claim for account. Only contract
// accounts can be represented.
func (d *Distributor) SetRepresentative(ctx context.Context, caller, account, representative common.Address) error {
	if err := d.requireAdmin(caller); err != nil {
		return err
	}
	isContract, err := d.isContract(ctx, account)
	if err != nil {
		return err
	}
	if !isContract {
		return fmt.Errorf("%w: %s", ErrNotContract, account.Hex())
	}

	d.mu.Lock()
	d.representatives[account] = representative
	d.mu.Unlock()

	d.logger.Sugar().Infow("Representative set", "account", account.Hex(), "representative", representative.Hex())
	return nil
}

// Representative returns the representative registered for account.
func (d *Distributor) Representative(account common.Address) (common.Address, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.representatives[account]
	return r, ok
}

func (d *Distributor) Pause(caller common.Address) error {
	return d.setPaused(caller, true)
}

func (d *Distributor) Unpause(caller common.Address) error {
	return d.setPaused(caller, false)
}

func (d *Distributor) setPaused(caller common.Address, paused bool) error {
	if err := d.requireAdmin(caller); err != nil {
		return err
	}
	d.mu.Lock()
	d.paused = paused
	d.mu.Unlock()

	d.logger.Sugar().Infow("Pause flag changed", "paused", paused)
	return nil
}

func (d *Distributor) Paused() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.paused
}

// WithdrawUnclaimed sweeps the live ledger balance to the admin once the
// deadline has passed. It returns the amount swept, which is zero when
// nothing is left.
func (d *Distributor) WithdrawUnclaimed(ctx context.Context, caller common.Address) (*big.Int, error) {
	if err := d.requireAdmin(caller); err != nil {
		return nil, err
	}
	if d.config.Deadline.IsZero() || !d.pastDeadline(d.clock.Now()) {
		return nil, ErrActionPaused
	}

	balance, err := d.ledger.Balance(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read balance: %w", err)
	}
	if balance.Sign() == 0 {
		return balance, nil
	}
	if err := d.ledger.Transfer(ctx, Transfer{To: d.config.Admin, Amount: balance}); err != nil {
		return nil, fmt.Errorf("ledger transfer failed: %w", err)
	}

	d.logger.Sugar().Infow("Unclaimed withdrawn", "admin", d.config.Admin.Hex(), "amount", balance.String())
	return balance, nil
}

// VestingScheduleOf returns the schedule created when account claimed.
func (d *Distributor) VestingScheduleOf(account common.Address) (*VestingSchedule, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.schedules[account]
	return s, ok
}

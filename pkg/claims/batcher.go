package claims

import (
	"fmt"
	"time"

	"github.com/Layr-Labs/merkle-distributor-go/pkg/config"
	"github.com/Layr-Labs/merkle-distributor-go/pkg/generator"
	"github.com/Layr-Labs/merkle-distributor-go/pkg/logger"
	"github.com/Layr-Labs/merkle-distributor-go/pkg/persistence"
	"github.com/Layr-Labs/merkle-distributor-go/pkg/types"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// BatcherConfig controls how proofs are grouped into partition documents.
type BatcherConfig struct {
	// FlushEvery is the number of records buffered before a flush
	FlushEvery int
	// PartitionSize is the number of recipient indices per partition document
	PartitionSize int
	// ProgressInterval bounds how often progress is logged
	ProgressInterval time.Duration
}

func DefaultBatcherConfig() *BatcherConfig {
	return &BatcherConfig{
		FlushEvery:       config.DefaultFlushEvery,
		PartitionSize:    config.DefaultPartitionSize,
		ProgressInterval: 5 * time.Second,
	}
}

// Batcher generates inclusion proofs for a contiguous range of recipients and
// flushes them into partition documents.
type Batcher struct {
	gen    *generator.Generator
	store  persistence.IDocumentStore
	config *BatcherConfig
	logger *zap.Logger
}

func NewBatcher(gen *generator.Generator, store persistence.IDocumentStore, cfg *BatcherConfig, l *zap.Logger) (*Batcher, error) {
	if gen == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if cfg == nil {
		cfg = DefaultBatcherConfig()
	}
	if cfg.FlushEvery < 1 {
		return nil, fmt.Errorf("flush interval must be positive, got %d", cfg.FlushEvery)
	}
	if cfg.PartitionSize < 1 {
		return nil, fmt.Errorf("partition size must be positive, got %d", cfg.PartitionSize)
	}
	return &Batcher{
		gen:    gen,
		store:  store,
		config: cfg,
		logger: logger.OrNop(l),
	}, nil
}

// PartitionStart returns the first index of the partition holding index.
func (b *Batcher) PartitionStart(index int) int {
	return (index / b.config.PartitionSize) * b.config.PartitionSize
}

// GenerateClaims builds the claim record of every recipient in [start, stop).
// A stop of zero, or one past the end, means the end of the recipient list.
// When persist is set, records are merged into their partition documents
// every FlushEvery records, at every partition boundary and at the end of the
// range. The returned info holds every record of the range.
func (b *Batcher) GenerateClaims(start, stop int, persist bool) (*types.DistributorInfo, error) {
	total := b.gen.Len()
	if stop == 0 || stop > total {
		stop = total
	}
	if start < 0 || start > stop {
		return nil, fmt.Errorf("invalid range [%d, %d) for %d recipients", start, stop, total)
	}
	if persist && b.store == nil {
		return nil, fmt.Errorf("a document store is required to persist claims")
	}

	info := &types.DistributorInfo{
		MerkleRoot: b.gen.Root(),
		TokenTotal: b.gen.TokenTotal(),
		Claims:     make(types.Claims, stop-start),
	}

	progress := rate.Sometimes{First: 1, Interval: b.config.ProgressInterval}
	pending := make(types.Claims)
	pendingPartition := b.PartitionStart(start)

	recipients := b.gen.Recipients()
	for i := start; i < stop; i++ {
		claim, err := b.gen.ClaimFor(i)
		if err != nil {
			return nil, fmt.Errorf("failed to generate claim %d: %w", i, err)
		}
		key := recipients[i].Account.Hex()
		info.Claims[key] = claim

		if !persist {
			continue
		}

		partition := b.PartitionStart(i)
		if partition != pendingPartition && len(pending) > 0 {
			if err := b.flush(pendingPartition, pending); err != nil {
				return nil, err
			}
			pending = make(types.Claims)
		}
		pendingPartition = partition
		pending[key] = claim

		if len(pending) >= b.config.FlushEvery {
			if err := b.flush(pendingPartition, pending); err != nil {
				return nil, err
			}
			pending = make(types.Claims)
		}

		progress.Do(func() {
			b.logger.Sugar().Infow("Generating claims", "processed", i-start+1, "range_size", stop-start)
		})
	}

	if persist && len(pending) > 0 {
		if err := b.flush(pendingPartition, pending); err != nil {
			return nil, err
		}
	}

	b.logger.Sugar().Infow("Generated claims",
		"start", start,
		"stop", stop,
		"count", len(info.Claims),
		"persisted", persist,
	)
	return info, nil
}

// flush merges pending into the partition document, later records winning.
func (b *Batcher) flush(partition int, pending types.Claims) error {
	name := persistence.ClaimsPartitionName(partition)

	existing, err := persistence.LoadClaims(b.store, name)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", name, err)
	}
	merged := make(types.Claims, len(existing)+len(pending))
	for account, claim := range existing {
		merged[account] = claim
	}
	for account, claim := range pending {
		merged[account] = claim
	}

	data, err := persistence.MarshalClaims(merged)
	if err != nil {
		return err
	}
	if err := b.store.SaveDocument(name, data); err != nil {
		return fmt.Errorf("failed to save %s: %w", name, err)
	}

	b.logger.Sugar().Debugw("Flushed claims", "document", name, "flushed", len(pending), "total", len(merged))
	return nil
}

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/Layr-Labs/merkle-distributor-go/pkg/allocation"
	"github.com/Layr-Labs/merkle-distributor-go/pkg/chunks"
	"github.com/Layr-Labs/merkle-distributor-go/pkg/claims"
	"github.com/Layr-Labs/merkle-distributor-go/pkg/config"
	"github.com/Layr-Labs/merkle-distributor-go/pkg/distributor"
	"github.com/Layr-Labs/merkle-distributor-go/pkg/generator"
	"github.com/Layr-Labs/merkle-distributor-go/pkg/logger"
	"github.com/Layr-Labs/merkle-distributor-go/pkg/merkle"
	"github.com/Layr-Labs/merkle-distributor-go/pkg/persistence"
	"github.com/Layr-Labs/merkle-distributor-go/pkg/persistence/badger"
	"github.com/Layr-Labs/merkle-distributor-go/pkg/persistence/file"
	"github.com/Layr-Labs/merkle-distributor-go/pkg/persistence/memory"
	"github.com/Layr-Labs/merkle-distributor-go/pkg/persistence/redis"
	"github.com/Layr-Labs/merkle-distributor-go/pkg/types"
	"github.com/Layr-Labs/merkle-distributor-go/pkg/util"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

// parseBuilderConfig maps global flags onto a BuilderConfig
func parseBuilderConfig(c *cli.Context) (*config.BuilderConfig, error) {
	cfg := config.NewBuilderConfig()
	cfg.Table = config.TableSelector(c.String("table"))
	cfg.AllocationsPath = c.String("allocations")
	cfg.Decimals = c.Int("decimals")
	cfg.CanonicalOrder = c.Bool("canonical-order")
	cfg.Store = config.StoreConfig{
		Type:          config.StoreType(c.String("store")),
		OutDir:        c.String("out-dir"),
		BadgerPath:    c.String("badger-path"),
		RedisAddress:  c.String("redis-addr"),
		RedisPassword: c.String("redis-password"),
		RedisDB:       c.Int("redis-db"),
	}
	if c.IsSet("cohort-size") {
		cfg.CohortSize = c.Int("cohort-size")
	}
	cfg.Verbose = c.Bool("verbose")
	cfg.Debug = cfg.Verbose

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.BuilderConfig) (*zap.Logger, error) {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return l, nil
}

func openStore(cfg *config.BuilderConfig, l *zap.Logger) (persistence.IDocumentStore, error) {
	switch cfg.Store.Type {
	case config.StoreTypeFile:
		store, err := file.NewFilePersistence(cfg.Store.OutDir, l)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StoreTypeBadger:
		store, err := badger.NewBadgerPersistence(cfg.Store.BadgerPath, l)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StoreTypeRedis:
		store, err := redis.NewRedisPersistence(&redis.RedisConfig{
			Address:   cfg.Store.RedisAddress,
			Password:  cfg.Store.RedisPassword,
			DB:        cfg.Store.RedisDB,
			KeyPrefix: cfg.Table.String() + ":",
		}, l)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StoreTypeMemory:
		return memory.NewMemoryPersistence(), nil
	default:
		return nil, fmt.Errorf("unsupported store type: %s", cfg.Store.Type)
	}
}

func loadTable(cfg *config.BuilderConfig, l *zap.Logger) (*allocation.Table, error) {
	path, err := cfg.ResolveAllocationsPath("")
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open allocation table: %w", err)
	}
	defer f.Close()

	table, err := allocation.LoadTable(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	l.Sugar().Infow("Loaded allocation table", "path", path, "table", cfg.Table, "records", len(table.Entries))
	return table, nil
}

func buildGenerator(cfg *config.BuilderConfig, table *allocation.Table, l *zap.Logger) (*generator.Generator, error) {
	opts := []generator.Option{generator.WithDecimals(cfg.Decimals), generator.WithLogger(l)}
	if cfg.CanonicalOrder {
		opts = append(opts, generator.WithCanonicalOrder())
	}
	return generator.NewGenerator(table, opts...)
}

func generateCommand(c *cli.Context) error {
	cfg, err := parseBuilderConfig(c)
	if err != nil {
		return err
	}
	l, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	table, err := loadTable(cfg, l)
	if err != nil {
		return err
	}
	gen, err := buildGenerator(cfg, table, l)
	if err != nil {
		var dup *generator.DuplicateAccountError
		if errors.As(err, &dup) {
			l.Sugar().Errorw("Duplicate account in allocation table", "account", dup.Account.Hex())
		}
		return err
	}

	save := c.Bool("save")
	var store persistence.IDocumentStore
	if save {
		store, err = openStore(cfg, l)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer store.Close()
	}

	if _, err := gen.Process(store); err != nil {
		return err
	}

	if !c.Bool("proofs") {
		return nil
	}

	batcher, err := claims.NewBatcher(gen, store, &claims.BatcherConfig{
		FlushEvery:       cfg.FlushEvery,
		PartitionSize:    cfg.PartitionSize,
		ProgressInterval: 5 * time.Second,
	}, l)
	if err != nil {
		return err
	}
	info, err := batcher.GenerateClaims(c.Int("start"), c.Int("stop"), save)
	if err != nil {
		return err
	}
	if save {
		return nil
	}
	return writeJSON(info)
}

func splitCommand(c *cli.Context) error {
	cfg, err := parseBuilderConfig(c)
	if err != nil {
		return err
	}
	l, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	table, err := loadTable(cfg, l)
	if err != nil {
		return err
	}
	accounts, err := table.Accounts()
	if err != nil {
		return err
	}

	store, err := openStore(cfg, l)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	splitter, err := chunks.NewSplitter(store, cfg.CohortSize, l)
	if err != nil {
		return err
	}
	result, err := splitter.Split(accounts)
	if err != nil {
		var missing *chunks.MissingClaimError
		if errors.As(err, &missing) {
			l.Sugar().Errorw("Claim missing, generate proofs for the whole table first", "account", missing.Account.Hex())
		}
		return err
	}
	l.Sugar().Infow("Split complete", "claims", len(result.Claims), "cohorts", len(result.Cohorts))
	return nil
}

func verifyCommand(c *cli.Context) error {
	root, err := parseHash(c.String("root"))
	if err != nil {
		return fmt.Errorf("invalid root: %w", err)
	}
	account, err := allocation.ParseAccount(c.String("account"))
	if err != nil {
		return err
	}
	amount, err := types.DecodeAmount(c.String("amount"))
	if err != nil {
		return err
	}

	var proof []common.Hash
	for _, raw := range c.StringSlice("proof") {
		for _, element := range strings.Split(raw, ",") {
			if element = strings.TrimSpace(element); element == "" {
				continue
			}
			h, err := parseHash(element)
			if err != nil {
				return fmt.Errorf("invalid proof element %q: %w", element, err)
			}
			proof = append(proof, h)
		}
	}

	leaf, err := allocation.EncodeLeaf(account, amount)
	if err != nil {
		return err
	}
	if !merkle.VerifyHexProof(proof, leaf, root) {
		return fmt.Errorf("proof does not verify for %s", account.Hex())
	}
	fmt.Printf("valid proof for %s, amount %s\n", account.Hex(), amount)
	return nil
}

func lookupCommand(c *cli.Context) error {
	cfg, err := parseBuilderConfig(c)
	if err != nil {
		return err
	}
	l, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	account, err := allocation.ParseAccount(c.String("account"))
	if err != nil {
		return err
	}

	store, err := openStore(cfg, l)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	claim, err := chunks.FindClaim(store, account)
	if err != nil {
		return err
	}
	if claim == nil {
		return fmt.Errorf("no claim for %s", account.Hex())
	}
	if c.Bool("calldata") {
		data, err := util.EncodeClaimCall(util.ClaimSignature, account, claim.Amount, claim.Proof)
		if err != nil {
			return err
		}
		fmt.Println(hexutil.Encode(data))
		return nil
	}
	return writeJSON(types.Claims{account.Hex(): claim})
}

func simulateCommand(c *cli.Context) error {
	cfg, err := parseBuilderConfig(c)
	if err != nil {
		return err
	}
	l, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	table, err := loadTable(cfg, l)
	if err != nil {
		return err
	}
	gen, err := buildGenerator(cfg, table, l)
	if err != nil {
		return err
	}

	adminKey, err := crypto.GenerateKey()
	if err != nil {
		return fmt.Errorf("failed to generate admin key: %w", err)
	}
	admin := crypto.PubkeyToAddress(adminKey.PublicKey)

	distCfg := &config.DistributorConfig{
		MerkleRoot:              gen.Root(),
		Admin:                   admin,
		StartTime:               time.Now().Add(-time.Minute),
		Vesting:                 c.Bool("vesting"),
		VestingImmediatePercent: c.Int("immediate-percent"),
		VestingDuration:         365 * 24 * time.Hour,
	}
	ledger := distributor.NewMemoryLedger(gen.TokenTotal())
	status := memory.NewMemoryPersistence()
	defer status.Close()

	d, err := distributor.NewDistributor(distCfg, distributor.Dependencies{
		Ledger:  ledger,
		Status:  status,
		Vesting: distributor.NewMemoryVestingFactory(crypto.CreateAddress(admin, 0)),
		Logger:  l,
	})
	if err != nil {
		return err
	}

	immediate := new(big.Int)
	for _, r := range gen.Recipients() {
		proof, err := gen.ProofFor(r.Account)
		if err != nil {
			return err
		}
		receipt, err := d.Claim(c.Context, r.Account, r.Amount, proof)
		if err != nil {
			return fmt.Errorf("claim for %s failed: %w", r.Account.Hex(), err)
		}
		immediate.Add(immediate, receipt.Immediate)
	}

	first := gen.Recipients()[0]
	proof, err := gen.ProofFor(first.Account)
	if err != nil {
		return err
	}
	if _, err := d.Claim(c.Context, first.Account, first.Amount, proof); !errors.Is(err, distributor.ErrAlreadyClaimed) {
		return fmt.Errorf("replayed claim for %s was not rejected: %v", first.Account.Hex(), err)
	}

	remaining, err := ledger.Balance(c.Context)
	if err != nil {
		return err
	}
	if remaining.Sign() != 0 {
		return fmt.Errorf("distributor still holds %s after every claim", remaining)
	}

	l.Sugar().Infow("Simulation complete",
		"claims", gen.Len(),
		"token_total", types.EncodeAmount(gen.TokenTotal()),
		"paid_immediately", immediate.String(),
	)
	return nil
}

func parseHash(s string) (common.Hash, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return common.Hash{}, err
	}
	if len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("expected %d bytes, got %d", common.HashLength, len(b))
	}
	return common.BytesToHash(b), nil
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

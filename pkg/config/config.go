package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

// Environment variable names for the merkle builder
const (
	EnvMDTable         = "MD_TABLE"
	EnvMDAllocations   = "MD_ALLOCATIONS"
	EnvMDDecimals      = "MD_DECIMALS"
	EnvMDStore         = "MD_STORE"
	EnvMDOutDir        = "MD_OUT_DIR"
	EnvMDBadgerPath    = "MD_BADGER_PATH"
	EnvMDRedisAddress  = "MD_REDIS_ADDR"
	EnvMDRedisPassword = "MD_REDIS_PASSWORD"
	EnvMDRedisDB       = "MD_REDIS_DB"
	EnvMDCohortSize    = "MD_COHORT_SIZE"
	EnvMDVerbose       = "MD_VERBOSE"
)

const (
	DefaultDecimals                = 18
	DefaultFlushEvery              = 10
	DefaultPartitionSize           = 100
	DefaultCohortSize              = 101
	DefaultVestingImmediatePercent = 30
	DefaultOutDir                  = "."
	DefaultRedisAddress            = "localhost:6379"
)

// TableSelector picks which allocation table the builder reads.
type TableSelector string

func (t TableSelector) String() string {
	return string(t)
}

const (
	TableMigrators TableSelector = "migrators"
	TableVesting   TableSelector = "vesting"
)

// RecordsFileName returns the allocation document read for the table.
func (t TableSelector) RecordsFileName() (string, error) {
	switch t {
	case TableMigrators:
		return "migrators-records.json", nil
	case TableVesting:
		return "vesting-records.json", nil
	default:
		return "", fmt.Errorf("unsupported table: %s", t)
	}
}

// GetSupportedTablesString returns supported tables for CLI help
func GetSupportedTablesString() string {
	return strings.Join([]string{TableMigrators.String(), TableVesting.String()}, ", ")
}

type StoreType string

const (
	StoreTypeFile   StoreType = "file"
	StoreTypeBadger StoreType = "badger"
	StoreTypeRedis  StoreType = "redis"
	StoreTypeMemory StoreType = "memory"
)

func (s StoreType) String() string {
	return string(s)
}

func GetSupportedStoreTypesString() string {
	return strings.Join([]string{
		StoreTypeFile.String(), StoreTypeBadger.String(), StoreTypeRedis.String(), StoreTypeMemory.String(),
	}, ", ")
}

// StoreConfig selects and configures a document store backend
type StoreConfig struct {
	Type          StoreType `json:"type"`
	OutDir        string    `json:"out_dir"`
	BadgerPath    string    `json:"badger_path"`
	RedisAddress  string    `json:"redis_address"`
	RedisPassword string    `json:"redis_password"`
	RedisDB       int       `json:"redis_db"`
}

func (c *StoreConfig) validate(path *field.Path) field.ErrorList {
	var allErrors field.ErrorList
	switch c.Type {
	case StoreTypeFile:
		if c.OutDir == "" {
			allErrors = append(allErrors, field.Required(path.Child("outDir"), "outDir is required for the file store"))
		}
	case StoreTypeBadger:
		if c.BadgerPath == "" {
			allErrors = append(allErrors, field.Required(path.Child("badgerPath"), "badgerPath is required for the badger store"))
		}
	case StoreTypeRedis:
		if c.RedisAddress == "" {
			allErrors = append(allErrors, field.Required(path.Child("redisAddress"), "redisAddress is required for the redis store"))
		}
		if c.RedisDB < 0 {
			allErrors = append(allErrors, field.Invalid(path.Child("redisDB"), c.RedisDB, "must not be negative"))
		}
	case StoreTypeMemory:
	default:
		allErrors = append(allErrors, field.NotSupported(path.Child("type"), c.Type, []string{
			StoreTypeFile.String(), StoreTypeBadger.String(), StoreTypeRedis.String(), StoreTypeMemory.String(),
		}))
	}
	return allErrors
}

// BuilderConfig is the configuration of one merkle builder run
type BuilderConfig struct {
	Table           TableSelector `json:"table"`
	AllocationsPath string        `json:"allocations_path"`
	Decimals        int           `json:"decimals"`
	CanonicalOrder  bool          `json:"canonical_order"`

	// Proof batching
	FlushEvery    int `json:"flush_every"`
	PartitionSize int `json:"partition_size"`
	CohortSize    int `json:"cohort_size"`

	Store StoreConfig `json:"store"`

	Debug   bool `json:"debug"`
	Verbose bool `json:"verbose"`
}

// NewBuilderConfig returns a config populated with defaults
func NewBuilderConfig() *BuilderConfig {
	return &BuilderConfig{
		Table:         TableMigrators,
		Decimals:      DefaultDecimals,
		FlushEvery:    DefaultFlushEvery,
		PartitionSize: DefaultPartitionSize,
		CohortSize:    DefaultCohortSize,
		Store: StoreConfig{
			Type:         StoreTypeFile,
			OutDir:       DefaultOutDir,
			RedisAddress: DefaultRedisAddress,
		},
	}
}

// ResolveAllocationsPath returns the explicit allocations path, or the
// table's records file inside dir when none was given.
func (c *BuilderConfig) ResolveAllocationsPath(dir string) (string, error) {
	if c.AllocationsPath != "" {
		return c.AllocationsPath, nil
	}
	name, err := c.Table.RecordsFileName()
	if err != nil {
		return "", err
	}
	if dir == "" {
		return name, nil
	}
	return strings.TrimSuffix(dir, "/") + "/" + name, nil
}

func (c *BuilderConfig) Validate() error {
	var allErrors field.ErrorList
	if _, err := c.Table.RecordsFileName(); err != nil {
		allErrors = append(allErrors, field.NotSupported(field.NewPath("table"), c.Table, []string{
			TableMigrators.String(), TableVesting.String(),
		}))
	}
	if c.Decimals < 0 || c.Decimals > 77 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("decimals"), c.Decimals, "must be between 0 and 77"))
	}
	if c.FlushEvery < 1 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("flushEvery"), c.FlushEvery, "must be positive"))
	}
	if c.PartitionSize < 1 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("partitionSize"), c.PartitionSize, "must be positive"))
	}
	if c.CohortSize < 1 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("cohortSize"), c.CohortSize, "must be positive"))
	}
	allErrors = append(allErrors, c.Store.validate(field.NewPath("store"))...)
	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

// DistributorConfig configures one claim state machine
type DistributorConfig struct {
	MerkleRoot common.Hash    `json:"merkle_root"`
	Admin      common.Address `json:"admin"`

	// Claim window. A zero Deadline means claims never expire.
	StartTime time.Time `json:"start_time"`
	Deadline  time.Time `json:"deadline"`

	// Vesting variant
	Vesting                 bool          `json:"vesting"`
	VestingImmediatePercent int           `json:"vesting_immediate_percent"`
	VestingDuration         time.Duration `json:"vesting_duration"`
}

func (c *DistributorConfig) Validate() error {
	var allErrors field.ErrorList
	if c.MerkleRoot == (common.Hash{}) {
		allErrors = append(allErrors, field.Required(field.NewPath("merkleRoot"), "merkleRoot is required"))
	}
	if c.Admin == (common.Address{}) {
		allErrors = append(allErrors, field.Required(field.NewPath("admin"), "admin is required"))
	}
	if !c.Deadline.IsZero() && !c.Deadline.After(c.StartTime) {
		allErrors = append(allErrors, field.Invalid(field.NewPath("deadline"), c.Deadline.String(), "deadline must be after startTime"))
	}
	if c.Vesting {
		if c.VestingImmediatePercent < 0 || c.VestingImmediatePercent > 100 {
			allErrors = append(allErrors, field.Invalid(field.NewPath("vestingImmediatePercent"), c.VestingImmediatePercent, "must be between 0 and 100"))
		}
		if c.VestingDuration <= 0 {
			allErrors = append(allErrors, field.Invalid(field.NewPath("vestingDuration"), c.VestingDuration.String(), "must be positive"))
		}
	}
	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

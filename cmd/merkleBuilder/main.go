package main

import (
	"fmt"
	"log"
	"os"

	"github.com/Layr-Labs/merkle-distributor-go/pkg/config"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "merkle-builder",
		Usage: "Build merkle commitments and proofs for token airdrops",
		Description: `Turns an allocation table into a merkle root commitment and per-recipient inclusion proofs.

Commands:
- generate: build the commitment and, optionally, proof partitions
- split: repartition proof documents into sorted cohorts with a range index
- verify: check an inclusion proof against a root
- lookup: resolve the claim record of an account from split cohorts
- simulate: redeem every allocation against an in-memory distributor`,
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "table",
				Usage:   fmt.Sprintf("Allocation table: %s", config.GetSupportedTablesString()),
				Value:   config.TableMigrators.String(),
				EnvVars: []string{config.EnvMDTable},
			},
			&cli.StringFlag{
				Name:    "allocations",
				Usage:   "Path to the allocation table document (default: <table>-records.json)",
				EnvVars: []string{config.EnvMDAllocations},
			},
			&cli.IntFlag{
				Name:    "decimals",
				Usage:   "Fractional digits amounts are scaled by",
				Value:   config.DefaultDecimals,
				EnvVars: []string{config.EnvMDDecimals},
			},
			&cli.BoolFlag{
				Name:  "canonical-order",
				Usage: "Build the tree over sorted leaves so the root ignores table order",
			},
			&cli.StringFlag{
				Name:    "store",
				Usage:   fmt.Sprintf("Document store: %s", config.GetSupportedStoreTypesString()),
				Value:   config.StoreTypeFile.String(),
				EnvVars: []string{config.EnvMDStore},
			},
			&cli.StringFlag{
				Name:    "out-dir",
				Usage:   "Output directory for the file store",
				Value:   config.DefaultOutDir,
				EnvVars: []string{config.EnvMDOutDir},
			},
			&cli.StringFlag{
				Name:    "badger-path",
				Usage:   "Data directory for the badger store",
				EnvVars: []string{config.EnvMDBadgerPath},
			},
			&cli.StringFlag{
				Name:    "redis-addr",
				Usage:   "Redis address for the redis store",
				Value:   config.DefaultRedisAddress,
				EnvVars: []string{config.EnvMDRedisAddress},
			},
			&cli.StringFlag{
				Name:    "redis-password",
				Usage:   "Redis password",
				EnvVars: []string{config.EnvMDRedisPassword},
			},
			&cli.IntFlag{
				Name:    "redis-db",
				Usage:   "Redis database number",
				EnvVars: []string{config.EnvMDRedisDB},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Usage:   "Enable verbose logging",
				EnvVars: []string{config.EnvMDVerbose},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "generate",
				Usage: "Generate the merkle root and, with --proofs, claim partitions",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "save",
						Usage: "Persist the commitment and proofs to the store",
					},
					&cli.BoolFlag{
						Name:  "proofs",
						Usage: "Generate inclusion proofs",
					},
					&cli.IntFlag{
						Name:  "start",
						Usage: "First recipient index to generate proofs for",
					},
					&cli.IntFlag{
						Name:  "stop",
						Usage: "Recipient index to stop before (0 = end of table)",
					},
				},
				Action: generateCommand,
			},
			{
				Name:  "split",
				Usage: "Split claim partitions into sorted cohorts and a range index",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "cohort-size",
						Usage:   "Records per cohort document",
						Value:   config.DefaultCohortSize,
						EnvVars: []string{config.EnvMDCohortSize},
					},
				},
				Action: splitCommand,
			},
			{
				Name:  "verify",
				Usage: "Verify an inclusion proof against a root",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "root",
						Usage:    "Merkle root (hex)",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "account",
						Usage:    "Claiming account",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "amount",
						Usage:    "Scaled amount, hex (0x...) or decimal",
						Required: true,
					},
					&cli.StringSliceFlag{
						Name:  "proof",
						Usage: "Proof elements (hex), comma separated or repeated",
					},
				},
				Action: verifyCommand,
			},
			{
				Name:  "lookup",
				Usage: "Print the claim record of an account from the split cohorts",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "account",
						Usage:    "Account to look up",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "calldata",
						Usage: "Print the encoded claim call instead of the claim record",
					},
				},
				Action: lookupCommand,
			},
			{
				Name:  "simulate",
				Usage: "Claim every allocation once against an in-memory distributor",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "vesting",
						Usage: "Use the vesting variant",
					},
					&cli.IntFlag{
						Name:  "immediate-percent",
						Usage: "Percent paid immediately by the vesting variant",
						Value: config.DefaultVestingImmediatePercent,
					},
				},
				Action: simulateCommand,
			},
		},
	}
}

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Layr-Labs/merkle-distributor-go/pkg/chunks"
	"github.com/Layr-Labs/merkle-distributor-go/pkg/persistence"
	"github.com/Layr-Labs/merkle-distributor-go/pkg/persistence/file"
	"github.com/Layr-Labs/merkle-distributor-go/pkg/testutil"
	"github.com/Layr-Labs/merkle-distributor-go/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeAllocations(t *testing.T, dir string, n int) string {
	table, _ := testutil.CreateUniformTable(t, n, 5)
	data, err := table.MarshalJSON()
	require.NoError(t, err)

	path := filepath.Join(dir, "migrators-records.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func run(t *testing.T, args ...string) error {
	return newApp().Run(append([]string{"merkle-builder"}, args...))
}

func TestGenerateSplitLookup(t *testing.T) {
	dir := t.TempDir()
	allocations := writeAllocations(t, dir, 30)
	outDir := filepath.Join(dir, "out")
	global := []string{"--allocations", allocations, "--decimals", "0", "--store", "file", "--out-dir", outDir}

	require.NoError(t, run(t, append(global, "generate", "--save", "--proofs")...))

	store, err := file.NewFilePersistence(outDir, zap.NewNop())
	require.NoError(t, err)

	data, err := store.LoadDocument(persistence.CommitmentDocumentName)
	require.NoError(t, err)
	commitment, err := persistence.UnmarshalCommitment(data)
	require.NoError(t, err)
	assert.Equal(t, "0x96", types.EncodeAmount(commitment.TokenTotal))

	require.NoError(t, run(t, append(global, "split", "--cohort-size", "7")...))

	names, err := store.ListDocuments(persistence.ChunksPrefix)
	require.NoError(t, err)
	assert.Len(t, names, 5)

	account := testutil.CreateTestAccounts(t, 1)[0]
	claim, err := chunks.FindClaim(store, account)
	require.NoError(t, err)
	require.NotNil(t, claim)

	proof := make([]string, len(claim.Proof))
	for i, h := range claim.Proof {
		proof[i] = h.Hex()
	}
	require.NoError(t, run(t,
		"verify",
		"--root", commitment.Root.Hex(),
		"--account", strings.ToLower(account.Hex()),
		"--amount", types.EncodeAmount(claim.Amount),
		"--proof", strings.Join(proof, ","),
	))

	assert.Error(t, run(t,
		"verify",
		"--root", commitment.Root.Hex(),
		"--account", account.Hex(),
		"--amount", "6",
		"--proof", strings.Join(proof, ","),
	))

	require.NoError(t, run(t, append(global, "lookup", "--account", account.Hex())...))
	require.NoError(t, run(t, append(global, "lookup", "--account", account.Hex(), "--calldata")...))

	outsider := testutil.CreateTestAccounts(t, 31)[30]
	assert.Error(t, run(t, append(global, "lookup", "--account", outsider.Hex())...))
}

func TestGenerateFailures(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing allocation table", func(t *testing.T) {
		err := run(t, "--allocations", filepath.Join(dir, "missing.json"), "--store", "memory", "generate")
		assert.Error(t, err)
	})

	t.Run("duplicate account", func(t *testing.T) {
		account := testutil.CreateTestAccounts(t, 1)[0]
		path := filepath.Join(dir, "dup.json")
		doc := `{"` + account.Hex() + `": "1", "` + strings.ToLower(account.Hex()) + `": "2"}`
		require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

		outDir := filepath.Join(dir, "dup-out")
		err := run(t, "--allocations", path, "--out-dir", outDir, "generate", "--save")
		require.Error(t, err)

		_, statErr := os.Stat(filepath.Join(outDir, persistence.CommitmentDocumentName))
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("invalid configuration", func(t *testing.T) {
		assert.Error(t, run(t, "--table", "stakers", "--store", "memory", "generate"))
	})

	t.Run("split without proofs", func(t *testing.T) {
		allocations := writeAllocations(t, t.TempDir(), 3)
		err := run(t, "--allocations", allocations, "--out-dir", t.TempDir(), "split")
		assert.Error(t, err)
	})
}

func TestSimulate(t *testing.T) {
	allocations := writeAllocations(t, t.TempDir(), 12)
	require.NoError(t, run(t, "--allocations", allocations, "--decimals", "0", "simulate"))
	require.NoError(t, run(t, "--allocations", allocations, "simulate", "--vesting"))
}

func TestParseHash(t *testing.T) {
	h, err := parseHash("0x" + strings.Repeat("ab", 32))
	require.NoError(t, err)
	assert.Equal(t, byte(0xab), h[0])

	_, err = parseHash("0x1234")
	assert.Error(t, err)
	_, err = parseHash("abcd")
	assert.Error(t, err)
}

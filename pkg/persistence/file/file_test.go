package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Layr-Labs/merkle-distributor-go/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestPersistence(t *testing.T) (*FilePersistence, string) {
	t.Helper()
	dir := t.TempDir()
	fp, err := NewFilePersistence(dir, zap.NewNop())
	require.NoError(t, err)
	return fp, dir
}

func TestFilePersistence_SaveAndLoadDocument(t *testing.T) {
	fp, dir := newTestPersistence(t)
	defer func() { _ = fp.Close() }()

	name := persistence.ClaimsPartitionName(0)
	require.NoError(t, fp.SaveDocument(name, []byte(`{"a":1}`)))

	onDisk, err := os.ReadFile(filepath.Join(dir, "claims", "claims-0.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(onDisk))

	loaded, err := fp.LoadDocument(name)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(loaded))

	// No temporary files are left behind
	entries, err := os.ReadDir(filepath.Join(dir, "claims"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFilePersistence_LoadDocument_NotFound(t *testing.T) {
	fp, _ := newTestPersistence(t)
	defer func() { _ = fp.Close() }()

	loaded, err := fp.LoadDocument("missing.json")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestFilePersistence_ListDocuments(t *testing.T) {
	fp, dir := newTestPersistence(t)
	defer func() { _ = fp.Close() }()

	require.NoError(t, fp.SaveDocument(persistence.ClaimsPartitionName(100), []byte("{}")))
	require.NoError(t, fp.SaveDocument(persistence.ClaimsPartitionName(0), []byte("{}")))
	require.NoError(t, fp.SaveDocument(persistence.ChunkName("0xabc"), []byte("{}")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "claims", "notes.txt"), []byte("x"), 0o644))

	names, err := fp.ListDocuments(persistence.ClaimsPrefix)
	require.NoError(t, err)
	assert.Equal(t, []string{"claims/claims-0.json", "claims/claims-100.json"}, names)
}

func TestFilePersistence_RejectsEscapingNames(t *testing.T) {
	fp, _ := newTestPersistence(t)
	defer func() { _ = fp.Close() }()

	require.Error(t, fp.SaveDocument("../outside.json", []byte("{}")))
	require.Error(t, fp.SaveDocument("/abs.json", []byte("{}")))
	_, err := fp.LoadDocument("../../etc/passwd")
	require.Error(t, err)
}

func TestFilePersistence_DeleteAndClose(t *testing.T) {
	fp, _ := newTestPersistence(t)

	require.NoError(t, fp.SaveDocument("a.json", []byte("{}")))
	require.NoError(t, fp.DeleteDocument("a.json"))
	require.NoError(t, fp.DeleteDocument("a.json"))
	require.NoError(t, fp.HealthCheck())

	require.NoError(t, fp.Close())
	require.NoError(t, fp.Close())
	assert.ErrorIs(t, fp.SaveDocument("a.json", nil), persistence.ErrClosed)
	assert.ErrorIs(t, fp.HealthCheck(), persistence.ErrClosed)
}

package badger

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Layr-Labs/merkle-distributor-go/pkg/logger"
	"github.com/Layr-Labs/merkle-distributor-go/pkg/persistence"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPersistence(t *testing.T, dir string) *BadgerPersistence {
	t.Helper()
	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})

	bp, err := NewBadgerPersistence(dir, testLogger)
	require.NoError(t, err)
	return bp
}

func TestBadgerPersistence_SaveAndLoadDocument(t *testing.T) {
	bp := newTestPersistence(t, t.TempDir())
	defer func() { _ = bp.Close() }()

	require.NoError(t, bp.SaveDocument(persistence.CommitmentDocumentName, []byte(`{"root":"0x01"}`)))

	loaded, err := bp.LoadDocument(persistence.CommitmentDocumentName)
	require.NoError(t, err)
	assert.Equal(t, `{"root":"0x01"}`, string(loaded))

	// Overwrite replaces content
	require.NoError(t, bp.SaveDocument(persistence.CommitmentDocumentName, []byte(`{}`)))
	loaded, err = bp.LoadDocument(persistence.CommitmentDocumentName)
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(loaded))
}

func TestBadgerPersistence_LoadDocument_NotFound(t *testing.T) {
	bp := newTestPersistence(t, t.TempDir())
	defer func() { _ = bp.Close() }()

	loaded, err := bp.LoadDocument("missing.json")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestBadgerPersistence_ListDocuments(t *testing.T) {
	bp := newTestPersistence(t, t.TempDir())
	defer func() { _ = bp.Close() }()

	for _, name := range []string{
		persistence.ClaimsPartitionName(200),
		persistence.ClaimsPartitionName(0),
		persistence.ChunkName("0xabc"),
	} {
		require.NoError(t, bp.SaveDocument(name, []byte("{}")))
	}

	names, err := bp.ListDocuments(persistence.ClaimsPrefix)
	require.NoError(t, err)
	assert.Equal(t, []string{"claims/claims-0.json", "claims/claims-200.json"}, names)

	chunks, err := bp.ListDocuments(persistence.ChunksPrefix)
	require.NoError(t, err)
	assert.Equal(t, []string{"chunks/0xabc.json"}, chunks)
}

func TestBadgerPersistence_DeleteDocument_Idempotent(t *testing.T) {
	bp := newTestPersistence(t, t.TempDir())
	defer func() { _ = bp.Close() }()

	require.NoError(t, bp.SaveDocument("a.json", []byte("{}")))
	require.NoError(t, bp.DeleteDocument("a.json"))
	require.NoError(t, bp.DeleteDocument("a.json"))

	loaded, err := bp.LoadDocument("a.json")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestBadgerPersistence_ClaimStatus(t *testing.T) {
	bp := newTestPersistence(t, t.TempDir())
	defer func() { _ = bp.Close() }()

	account := common.HexToAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")

	ok, err := bp.MarkClaimed(account)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = bp.MarkClaimed(account)
	require.NoError(t, err)
	assert.False(t, ok)

	claimed, err := bp.IsClaimed(account)
	require.NoError(t, err)
	assert.True(t, claimed)

	require.NoError(t, bp.UnmarkClaimed(account))
	claimed, err = bp.IsClaimed(account)
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestBadgerPersistence_MarkClaimed_ExactlyOneWinner(t *testing.T) {
	bp := newTestPersistence(t, t.TempDir())
	defer func() { _ = bp.Close() }()

	account := common.HexToAddress("0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359")

	var winners atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := bp.MarkClaimed(account)
			assert.NoError(t, err)
			if ok {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
}

func TestBadgerPersistence_SurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	account := common.HexToAddress("0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB")

	bp := newTestPersistence(t, dir)
	require.NoError(t, bp.SaveDocument(persistence.RangeIndexDocumentName, []byte(`{"0xa":"0xb"}`)))
	_, err := bp.MarkClaimed(account)
	require.NoError(t, err)
	require.NoError(t, bp.Close())

	reopened := newTestPersistence(t, dir)
	defer func() { _ = reopened.Close() }()

	loaded, err := reopened.LoadDocument(persistence.RangeIndexDocumentName)
	require.NoError(t, err)
	assert.Equal(t, `{"0xa":"0xb"}`, string(loaded))

	claimed, err := reopened.IsClaimed(account)
	require.NoError(t, err)
	assert.True(t, claimed)

	require.NoError(t, reopened.HealthCheck())
}

func TestBadgerPersistence_Closed(t *testing.T) {
	bp := newTestPersistence(t, t.TempDir())
	require.NoError(t, bp.Close())
	require.NoError(t, bp.Close())

	assert.ErrorIs(t, bp.SaveDocument("a.json", nil), persistence.ErrClosed)
	_, err := bp.ListDocuments("")
	assert.ErrorIs(t, err, persistence.ErrClosed)
	_, err = bp.IsClaimed(common.Address{})
	assert.ErrorIs(t, err, persistence.ErrClosed)
	assert.ErrorIs(t, bp.HealthCheck(), persistence.ErrClosed)
}

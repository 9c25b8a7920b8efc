package redis

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Layr-Labs/merkle-distributor-go/pkg/logger"
	"github.com/Layr-Labs/merkle-distributor-go/pkg/persistence"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// getTestRedisAddress returns the Redis address for testing.
// Uses REDIS_TEST_ADDRESS env var if set, otherwise defaults to localhost:6379.
func getTestRedisAddress() string {
	if addr := os.Getenv("REDIS_TEST_ADDRESS"); addr != "" {
		return addr
	}
	return "localhost:6379"
}

// requireRedis fails the test if Redis is not available. Every test gets its
// own key prefix so runs never see each other's keys.
func requireRedis(t *testing.T) *RedisPersistence {
	t.Helper()

	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	cfg := &RedisConfig{
		Address:   getTestRedisAddress(),
		DB:        15, // Use DB 15 for tests to avoid conflicts
		KeyPrefix: fmt.Sprintf("test-%s:", uuid.NewString()),
	}

	rp, err := NewRedisPersistence(cfg, testLogger)
	if err != nil {
		t.Fatalf("Redis not available at %s: %v", cfg.Address, err)
		return nil
	}

	return rp
}

func TestRedisPersistence_SaveAndLoadDocument(t *testing.T) {
	rp := requireRedis(t)
	defer func() { _ = rp.Close() }()

	require.NoError(t, rp.SaveDocument(persistence.CommitmentDocumentName, []byte(`{"root":"0x01"}`)))

	loaded, err := rp.LoadDocument(persistence.CommitmentDocumentName)
	require.NoError(t, err)
	assert.Equal(t, `{"root":"0x01"}`, string(loaded))
}

func TestRedisPersistence_LoadDocument_NotFound(t *testing.T) {
	rp := requireRedis(t)
	defer func() { _ = rp.Close() }()

	loaded, err := rp.LoadDocument("missing.json")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestRedisPersistence_ListAndDeleteDocuments(t *testing.T) {
	rp := requireRedis(t)
	defer func() { _ = rp.Close() }()

	require.NoError(t, rp.SaveDocument(persistence.ClaimsPartitionName(100), []byte("{}")))
	require.NoError(t, rp.SaveDocument(persistence.ClaimsPartitionName(0), []byte("{}")))
	require.NoError(t, rp.SaveDocument(persistence.RangeIndexDocumentName, []byte("{}")))

	names, err := rp.ListDocuments(persistence.ClaimsPrefix)
	require.NoError(t, err)
	assert.Equal(t, []string{"claims/claims-0.json", "claims/claims-100.json"}, names)

	require.NoError(t, rp.DeleteDocument(persistence.ClaimsPartitionName(0)))
	require.NoError(t, rp.DeleteDocument(persistence.ClaimsPartitionName(0)))

	names, err = rp.ListDocuments(persistence.ClaimsPrefix)
	require.NoError(t, err)
	assert.Equal(t, []string{"claims/claims-100.json"}, names)
}

func TestRedisPersistence_MarkClaimed_ExactlyOneWinner(t *testing.T) {
	rp := requireRedis(t)
	defer func() { _ = rp.Close() }()

	account := common.HexToAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")

	var winners atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := rp.MarkClaimed(account)
			assert.NoError(t, err)
			if ok {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), winners.Load())

	claimed, err := rp.IsClaimed(account)
	require.NoError(t, err)
	assert.True(t, claimed)

	require.NoError(t, rp.UnmarkClaimed(account))
	claimed, err = rp.IsClaimed(account)
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestRedisPersistence_HealthCheckAndClose(t *testing.T) {
	rp := requireRedis(t)

	require.NoError(t, rp.HealthCheck())
	require.NoError(t, rp.Close())
	require.NoError(t, rp.Close())

	assert.ErrorIs(t, rp.HealthCheck(), persistence.ErrClosed)
}

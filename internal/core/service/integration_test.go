package service_test

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/kitchen-ledger/internal/adapter/storage"
	"github.com/rl1809/kitchen-ledger/internal/core/domain"
	"github.com/rl1809/kitchen-ledger/internal/core/service"
)

type testEnv struct {
	redis *redis.Client
	cache *storage.RedisAdapter
	file  *storage.FileAdapter
	path  string
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	path := filepath.Join(t.TempDir(), "ledger.jsonl")
	file, err := storage.NewFileAdapter(path)
	require.NoError(t, err)

	return &testEnv{
		redis: rdb,
		cache: storage.NewRedisAdapter(rdb, "", 0),
		file:  file,
		path:  path,
	}
}

func TestIntegration_KitchenSession(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	svc := service.NewInventoryService(service.NewLedger(env.file, 0), service.WithIdempotency(env.cache))

	record := func(action, item string, qty float64, unit *string) error {
		_, _, err := svc.RecordIntent(ctx, uuid.NewString(), domain.Intent{Action: action, Item: &item, Quantity: &qty, Unit: unit})
		return err
	}
	kg, liter, ml := "kg", "liter", "ml"

	require.NoError(t, record("add", "Flour", 2, &kg))
	require.NoError(t, record("add", "Milk", 1, &liter))
	require.NoError(t, record("add", "eggs", 12, nil))
	require.NoError(t, record("remove", "milk", 250, &ml))
	require.NoError(t, record("remove", "Eggs", 12, nil))
	// Removal in the wrong unit is accepted but has no effect
	require.NoError(t, record("remove", "flour", 1, nil))
	require.ErrorIs(t, record("add", "flour", 3, nil), service.ErrUnitConflict)
	require.ErrorIs(t, record("unknown", "flour", 3, nil), service.ErrParseRejected)

	snap, err := svc.CurrentSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.InventoryItem{
		{Name: "flour", Quantity: 2000, Unit: "g"},
		{Name: "milk", Quantity: 750, Unit: "ml"},
	}, snap.Items)

	// A fresh process replays the same file into the same snapshot
	reopened, err := storage.NewFileAdapter(env.path)
	require.NoError(t, err)
	replayed, err := service.NewInventoryService(service.NewLedger(reopened, 0)).CurrentSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap, replayed)
}

func TestIntegration_TwoTabsNoLostUpdates(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	// Two services over one file stand in for two browser tabs.
	tabs := []*service.InventoryService{
		service.NewInventoryService(service.NewLedger(env.file, 0)),
		service.NewInventoryService(service.NewLedger(env.file, 0)),
	}

	var successCount atomic.Int32
	var wg sync.WaitGroup
	totalRequests := 40

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if _, _, err := tabs[id%2].RecordEvent(ctx, domain.KindAdd, "rice", 100, "g"); err == nil {
				successCount.Add(1)
			}
		}(i)
	}

	wg.Wait()

	history, err := tabs[0].History(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(totalRequests), successCount.Load())
	assert.Len(t, history, totalRequests)

	snap, err := tabs[1].CurrentSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.InventoryItem{{Name: "rice", Quantity: 4000, Unit: "g"}}, snap.Items)
}

func TestIntegration_RedisLedgerWithIdempotency(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	svc := service.NewInventoryService(service.NewLedger(env.cache, 0), service.WithIdempotency(env.cache))

	item, qty := "Tomatoes", 4.0
	intent := domain.Intent{Action: "add", Item: &item, Quantity: &qty}

	var successCount, duplicateCount atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.RecordIntent(ctx, "double-submit", intent)
			switch {
			case err == nil:
				successCount.Add(1)
			case assert.ErrorIs(t, err, service.ErrDuplicateRequest):
				duplicateCount.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successCount.Load())
	assert.Equal(t, int32(19), duplicateCount.Load())

	snap, err := svc.CurrentSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.InventoryItem{{Name: "Tomatoes", Quantity: 4, Unit: "count"}}, snap.Items)
}

package storage

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/kitchen-ledger/internal/core/domain"
	"github.com/rl1809/kitchen-ledger/internal/port"
)

func newTransaction(kind domain.Kind, item string, qty float64, unit string, ts time.Time) domain.Transaction {
	return domain.Transaction{
		ID:        uuid.NewString(),
		Timestamp: ts.UTC().Truncate(time.Microsecond),
		Kind:      kind,
		ItemName:  item,
		Quantity:  qty,
		Unit:      unit,
	}
}

// runBackendContract checks the guarantees every LedgerBackend must give:
// read-after-write, insertion order, field fidelity and no lost updates.
func runBackendContract(t *testing.T, backend port.LedgerBackend) {
	t.Helper()
	ctx := context.Background()

	t.Run("empty", func(t *testing.T) {
		txs, err := backend.LoadAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, txs)
	})

	base := time.Date(2026, 5, 4, 18, 30, 0, 123456000, time.UTC)
	written := []domain.Transaction{
		newTransaction(domain.KindAdd, "Milk", 1000, "ml", base),
		newTransaction(domain.KindRemove, "milk", 250.5, "ml", base.Add(time.Second)),
		newTransaction(domain.KindAdd, "Äpfel", 3, "stück", base.Add(time.Second)),
	}

	t.Run("read after write keeps order and fields", func(t *testing.T) {
		for _, tx := range written {
			require.NoError(t, backend.AppendOne(ctx, tx))
		}

		txs, err := backend.LoadAll(ctx)
		require.NoError(t, err)
		require.Len(t, txs, len(written))
		for i := range written {
			assert.Equal(t, written[i].ID, txs[i].ID)
			assert.Equal(t, written[i].Kind, txs[i].Kind)
			assert.Equal(t, written[i].ItemName, txs[i].ItemName)
			assert.Equal(t, written[i].Quantity, txs[i].Quantity)
			assert.Equal(t, written[i].Unit, txs[i].Unit)
			assert.True(t, written[i].Timestamp.Equal(txs[i].Timestamp),
				"timestamp %s != %s", written[i].Timestamp, txs[i].Timestamp)
		}
	})

	t.Run("concurrent appends are not lost", func(t *testing.T) {
		before, err := backend.LoadAll(ctx)
		require.NoError(t, err)

		totalRequests := 25
		var successCount atomic.Int32
		var wg sync.WaitGroup

		for i := 0; i < totalRequests; i++ {
			wg.Add(1)
			go func(id int) {
				defer wg.Done()
				tx := newTransaction(domain.KindAdd, fmt.Sprintf("item-%d", id), 1, "count", time.Now())
				if err := backend.AppendOne(ctx, tx); err != nil {
					t.Errorf("unexpected error: %v", err)
					return
				}
				successCount.Add(1)
			}(i)
		}

		wg.Wait()

		after, err := backend.LoadAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, int32(totalRequests), successCount.Load())
		assert.Len(t, after, len(before)+totalRequests)
	})

	t.Run("folds into a snapshot", func(t *testing.T) {
		txs, err := backend.LoadAll(ctx)
		require.NoError(t, err)

		snap := domain.Aggregate(txs)
		milk, ok := snap.Find("MILK")
		require.True(t, ok)
		assert.Equal(t, 749.5, milk.Quantity)
		assert.Equal(t, "ml", milk.Unit)
	})
}

package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/kitchen-ledger/internal/core/domain"
)

func newFileAdapter(t *testing.T) (*FileAdapter, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "ledger.jsonl")
	adapter, err := NewFileAdapter(path)
	require.NoError(t, err)
	return adapter, path
}

func TestFileAdapter_Contract(t *testing.T) {
	adapter, _ := newFileAdapter(t)
	runBackendContract(t, adapter)
}

func TestFileAdapter_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	adapter, path := newFileAdapter(t)

	tx := newTransaction(domain.KindAdd, "Flour", 2000, "g", time.Now())
	require.NoError(t, adapter.AppendOne(ctx, tx))

	reopened, err := NewFileAdapter(path)
	require.NoError(t, err)

	txs, err := reopened.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, tx, txs[0])
}

func TestFileAdapter_SharedFileBetweenAdapters(t *testing.T) {
	ctx := context.Background()
	first, path := newFileAdapter(t)
	second, err := NewFileAdapter(path)
	require.NoError(t, err)

	require.NoError(t, first.AppendOne(ctx, newTransaction(domain.KindAdd, "egg", 6, "count", time.Now())))
	require.NoError(t, second.AppendOne(ctx, newTransaction(domain.KindRemove, "egg", 2, "count", time.Now())))

	txs, err := first.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, txs, 2)
}

func TestFileAdapter_MalformedLine(t *testing.T) {
	ctx := context.Background()
	adapter, path := newFileAdapter(t)
	require.NoError(t, adapter.AppendOne(ctx, newTransaction(domain.KindAdd, "egg", 1, "count", time.Now())))

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("{not json\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = adapter.LoadAll(ctx)
	assert.ErrorContains(t, err, "decode line 2")
}

func TestFileAdapter_MissingFileIsEmpty(t *testing.T) {
	adapter, path := newFileAdapter(t)
	require.NoError(t, os.Remove(path))

	txs, err := adapter.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestFileAdapter_TornTailIsDiscarded(t *testing.T) {
	ctx := context.Background()
	adapter, path := newFileAdapter(t)

	first := newTransaction(domain.KindAdd, "flour", 1000, "g", time.Now())
	require.NoError(t, adapter.AppendOne(ctx, first))

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"id":"half","kind":"ad`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	txs, err := adapter.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.Transaction{first}, txs)

	second := newTransaction(domain.KindRemove, "flour", 250, "g", time.Now())
	require.NoError(t, adapter.AppendOne(ctx, second))

	txs, err = adapter.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.Transaction{first, second}, txs)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "half")
}

func TestFileAdapter_FailedWriteIsRolledBack(t *testing.T) {
	ctx := context.Background()
	adapter, path := newFileAdapter(t)

	first := newTransaction(domain.KindAdd, "milk", 1000, "ml", time.Now())
	require.NoError(t, adapter.AppendOne(ctx, first))

	before, err := os.Stat(path)
	require.NoError(t, err)

	tests := []struct {
		name  string
		write func(f *os.File, line []byte) error
	}{
		{"short write", func(f *os.File, line []byte) error {
			_, err := f.Write(line[:len(line)/2])
			require.NoError(t, err)
			return errors.New("disk full")
		}},
		{"sync failure", func(f *os.File, line []byte) error {
			_, err := f.Write(line)
			require.NoError(t, err)
			return errors.New("sync ledger file: input/output error")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter.writeRecord = tt.write
			err := adapter.AppendOne(ctx, newTransaction(domain.KindRemove, "milk", 250, "ml", time.Now()))
			assert.Error(t, err)

			after, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, before.Size(), after.Size())

			txs, err := adapter.LoadAll(ctx)
			require.NoError(t, err)
			assert.Equal(t, []domain.Transaction{first}, txs)
		})
	}

	adapter.writeRecord = writeAndSync
	retry := newTransaction(domain.KindRemove, "milk", 250, "ml", time.Now())
	require.NoError(t, adapter.AppendOne(ctx, retry))

	txs, err := adapter.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.Transaction{first, retry}, txs)
}

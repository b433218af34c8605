package storage

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/rl1809/kitchen-ledger/internal/core/domain"
)

const tailChunk = 4096

// FileAdapter stores one JSON document per line. Appends go through O_APPEND
// under an exclusive flock, so several processes can share one file. A line
// without its terminating newline was never acknowledged and is discarded.
type FileAdapter struct {
	path        string
	mu          sync.RWMutex
	writeRecord func(f *os.File, line []byte) error
}

func NewFileAdapter(path string) (*FileAdapter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open ledger file: %w", err)
	}
	f.Close()

	return &FileAdapter{path: path, writeRecord: writeAndSync}, nil
}

func writeAndSync(f *os.File, line []byte) error {
	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("write transaction: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync ledger file: %w", err)
	}
	return nil
}

func (a *FileAdapter) AppendOne(ctx context.Context, tx domain.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	line, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("encode transaction: %w", err)
	}
	line = append(line, '\n')

	a.mu.Lock()
	defer a.mu.Unlock()

	f, err := os.OpenFile(a.path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("open ledger file: %w", err)
	}
	defer f.Close()

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		return fmt.Errorf("lock ledger file: %w", err)
	}
	defer unix.Flock(int(f.Fd()), unix.LOCK_UN)

	size, err := dropTornTail(f)
	if err != nil {
		return err
	}

	if err := a.writeRecord(f, line); err != nil {
		if terr := f.Truncate(size); terr != nil {
			return errors.Join(err, fmt.Errorf("roll back ledger file: %w", terr))
		}
		return err
	}
	return nil
}

// dropTornTail truncates bytes after the last newline and returns the
// resulting size. Must be called with the exclusive lock held.
func dropTornTail(f *os.File) (int64, error) {
	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat ledger file: %w", err)
	}
	size := info.Size()

	end, err := lastLineEnd(f, size)
	if err != nil {
		return 0, err
	}
	if end == size {
		return size, nil
	}
	if err := f.Truncate(end); err != nil {
		return 0, fmt.Errorf("truncate torn record: %w", err)
	}
	if err := f.Sync(); err != nil {
		return 0, fmt.Errorf("sync ledger file: %w", err)
	}
	return end, nil
}

// lastLineEnd returns the offset just past the last newline, or 0.
func lastLineEnd(f *os.File, size int64) (int64, error) {
	buf := make([]byte, tailChunk)
	for off := size; off > 0; {
		n := int64(len(buf))
		if off < n {
			n = off
		}
		off -= n
		chunk := buf[:n]
		if _, err := f.ReadAt(chunk, off); err != nil && !errors.Is(err, io.EOF) {
			return 0, fmt.Errorf("read ledger tail: %w", err)
		}
		if i := bytes.LastIndexByte(chunk, '\n'); i >= 0 {
			return off + int64(i) + 1, nil
		}
	}
	return 0, nil
}

func (a *FileAdapter) LoadAll(ctx context.Context) ([]domain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	f, err := os.Open(a.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.Transaction{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open ledger file: %w", err)
	}
	defer f.Close()

	if err := unix.Flock(int(f.Fd()), unix.LOCK_SH); err != nil {
		return nil, fmt.Errorf("lock ledger file: %w", err)
	}
	defer unix.Flock(int(f.Fd()), unix.LOCK_UN)

	txs := make([]domain.Transaction, 0)
	reader := bufio.NewReader(f)

	for lineNo := 1; ; lineNo++ {
		line, err := reader.ReadBytes('\n')
		if errors.Is(err, io.EOF) {
			// Anything left is a torn tail.
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read ledger file: %w", err)
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var tx domain.Transaction
		if err := json.Unmarshal(line, &tx); err != nil {
			return nil, fmt.Errorf("decode line %d: %w", lineNo, err)
		}
		tx.Timestamp = tx.Timestamp.UTC()
		txs = append(txs, tx)
	}
	return txs, nil
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/rl1809/kitchen-ledger/internal/core/domain"
)

const mysqlDuplicateEntry = 1062

const createLedgerTableMySQL = `
CREATE TABLE IF NOT EXISTS ledger_transactions (
	seq         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
	id          CHAR(36)     NOT NULL,
	kind        VARCHAR(16)  NOT NULL,
	item_name   VARCHAR(255) NOT NULL,
	quantity    DOUBLE       NOT NULL,
	unit        VARCHAR(64)  NOT NULL,
	recorded_at DATETIME(6)  NOT NULL,
	UNIQUE KEY uq_ledger_transactions_id (id),
	KEY idx_ledger_transactions_recorded_at (recorded_at, seq)
)`

// MySQLAdapter appends each transaction with a single INSERT, so concurrent
// writers never overwrite each other. The DSN must set parseTime=true.
type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) EnsureSchema(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, createLedgerTableMySQL); err != nil {
		return fmt.Errorf("create ledger table: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) AppendOne(ctx context.Context, tx domain.Transaction) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO ledger_transactions (id, kind, item_name, quantity, unit, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.Kind, tx.ItemName, tx.Quantity, tx.Unit, tx.Timestamp,
	)

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
		return ErrDuplicateTransaction
	}
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	return nil
}

func (m *MySQLAdapter) LoadAll(ctx context.Context) ([]domain.Transaction, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, kind, item_name, quantity, unit, recorded_at
		FROM ledger_transactions ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	txs := make([]domain.Transaction, 0)
	for rows.Next() {
		var tx domain.Transaction
		if err := rows.Scan(&tx.ID, &tx.Kind, &tx.ItemName, &tx.Quantity, &tx.Unit, &tx.Timestamp); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		tx.Timestamp = tx.Timestamp.UTC()
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}

	return txs, nil
}

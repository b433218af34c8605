package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/rl1809/kitchen-ledger/internal/core/domain"
)

type ledgerRecord struct {
	Seq        uint64    `gorm:"column:seq;primaryKey;autoIncrement"`
	TxID       string    `gorm:"column:tx_id;size:36;not null;uniqueIndex"`
	Kind       string    `gorm:"column:kind;size:16;not null"`
	ItemName   string    `gorm:"column:item_name;size:255;not null"`
	Quantity   float64   `gorm:"column:quantity;not null"`
	Unit       string    `gorm:"column:unit;size:64;not null"`
	RecordedAt time.Time `gorm:"column:recorded_at;not null;index"`
}

func (ledgerRecord) TableName() string {
	return "ledger_transactions"
}

// OpenGorm opens a GORM connection for the sqlite or postgres driver.
func OpenGorm(driver, dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database DSN is required")
	}

	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		})
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	gormLogger := gormlogger.New(
		log.New(io.Discard, "", log.LstdFlags),
		gormlogger.Config{LogLevel: gormlogger.Silent},
	)

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening db connection: %w", err)
	}
	return conn, nil
}

type GormAdapter struct {
	db *gorm.DB
}

func NewGormAdapter(db *gorm.DB) *GormAdapter {
	return &GormAdapter{db: db}
}

func (g *GormAdapter) Migrate(ctx context.Context) error {
	if err := g.db.WithContext(ctx).AutoMigrate(&ledgerRecord{}); err != nil {
		return fmt.Errorf("migrate ledger table: %w", err)
	}
	return nil
}

func (g *GormAdapter) AppendOne(ctx context.Context, tx domain.Transaction) error {
	rec := ledgerRecord{
		TxID:       tx.ID,
		Kind:       string(tx.Kind),
		ItemName:   tx.ItemName,
		Quantity:   tx.Quantity,
		Unit:       tx.Unit,
		RecordedAt: tx.Timestamp,
	}

	err := g.db.WithContext(ctx).Create(&rec).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateTransaction
	}
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (g *GormAdapter) LoadAll(ctx context.Context) ([]domain.Transaction, error) {
	var records []ledgerRecord
	if err := g.db.WithContext(ctx).Order("seq ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}

	txs := make([]domain.Transaction, 0, len(records))
	for _, rec := range records {
		txs = append(txs, domain.Transaction{
			ID:        rec.TxID,
			Timestamp: rec.RecordedAt.UTC(),
			Kind:      domain.Kind(rec.Kind),
			ItemName:  rec.ItemName,
			Quantity:  rec.Quantity,
			Unit:      rec.Unit,
		})
	}
	return txs, nil
}

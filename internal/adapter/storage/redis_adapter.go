package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/kitchen-ledger/internal/core/domain"
)

const (
	defaultLedgerKey      = "ledger:transactions"
	ledgerIDsSuffix       = ":ids"
	defaultIdempotencyTTL = 24 * time.Hour
)

// appendScript pushes a transaction unless its id was already stored.
var appendScript = redis.NewScript(`
local list = KEYS[1]
local ids = KEYS[2]

if redis.call('SADD', ids, ARGV[1]) == 0 then
	return 0
end

redis.call('RPUSH', list, ARGV[2])
return 1
`)

type RedisAdapter struct {
	client         *redis.Client
	ledgerKey      string
	idempotencyTTL time.Duration
}

func NewRedisAdapter(client *redis.Client, ledgerKey string, idempotencyTTL time.Duration) *RedisAdapter {
	if ledgerKey == "" {
		ledgerKey = defaultLedgerKey
	}
	if idempotencyTTL <= 0 {
		idempotencyTTL = defaultIdempotencyTTL
	}
	return &RedisAdapter{
		client:         client,
		ledgerKey:      ledgerKey,
		idempotencyTTL: idempotencyTTL,
	}
}

func (r *RedisAdapter) AppendOne(ctx context.Context, tx domain.Transaction) error {
	data, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("encode transaction: %w", err)
	}

	keys := []string{r.ledgerKey, r.ledgerKey + ledgerIDsSuffix}
	result, err := appendScript.Run(ctx, r.client, keys, tx.ID, data).Int()
	if err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}
	if result == 0 {
		return ErrDuplicateTransaction
	}
	return nil
}

func (r *RedisAdapter) LoadAll(ctx context.Context) ([]domain.Transaction, error) {
	values, err := r.client.LRange(ctx, r.ledgerKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}

	txs := make([]domain.Transaction, 0, len(values))
	for i, value := range values {
		var tx domain.Transaction
		if err := json.Unmarshal([]byte(value), &tx); err != nil {
			return nil, fmt.Errorf("decode entry %d: %w", i, err)
		}
		tx.Timestamp = tx.Timestamp.UTC()
		txs = append(txs, tx)
	}
	return txs, nil
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, 1, r.idempotencyTTL).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

func (r *RedisAdapter) ReleaseIdempotency(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/rl1809/kitchen-ledger/internal/adapter/storage"
	"github.com/rl1809/kitchen-ledger/internal/config"
	"github.com/rl1809/kitchen-ledger/internal/core/domain"
	"github.com/rl1809/kitchen-ledger/internal/core/service"
	"github.com/rl1809/kitchen-ledger/internal/logger"
	"github.com/rl1809/kitchen-ledger/internal/port"
)

// stress_test fires concurrent appends at one backend and checks that every
// acknowledged write is visible afterwards.
func main() {
	backend := flag.String("backend", "file", "ledger backend: file or redis")
	totalRequests := flag.Int("n", 200, "number of concurrent appends")
	writers := flag.Int("writers", 4, "independent ledger instances sharing the backend")
	item := flag.String("item", "stress-item", "item name to append")
	flag.Parse()

	_ = godotenv.Load()
	log := logger.New(logger.Options{ServiceName: "kitchen-ledger-stress", Format: "console"})
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	var ledgerBackend port.LedgerBackend
	switch *backend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Error(ctx, "failed to connect redis", err)
			os.Exit(1)
		}
		defer rdb.Close()
		ledgerBackend = storage.NewRedisAdapter(rdb, cfg.Redis.LedgerKey+":stress", cfg.Redis.IdempotencyTTL)
	default:
		adapter, err := storage.NewFileAdapter(cfg.Ledger.FilePath + ".stress")
		if err != nil {
			log.Error(ctx, "failed to open ledger file", err)
			os.Exit(1)
		}
		ledgerBackend = adapter
	}

	// Each ledger serializes its own appends, so several of them stand in
	// for separate processes or browser tabs writing at once.
	ledgers := make([]*service.Ledger, max(*writers, 1))
	for i := range ledgers {
		ledgers[i] = service.NewLedger(ledgerBackend, cfg.Ledger.Timeout)
	}
	ledger := ledgers[0]

	before, err := ledger.ReadAll(ctx)
	if err != nil {
		log.Error(ctx, "failed to read ledger", err)
		os.Exit(1)
	}

	var successCount, failCount atomic.Int32
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(50)
	for i := 0; i < *totalRequests; i++ {
		writer := ledgers[i%len(ledgers)]
		g.Go(func() error {
			if _, err := writer.Append(gctx, domain.KindAdd, *item, 1, ""); err != nil {
				failCount.Add(1)
				return nil
			}
			successCount.Add(1)
			return nil
		})
	}
	g.Wait()
	elapsed := time.Since(start)

	after, err := ledger.ReadAll(ctx)
	if err != nil {
		log.Error(ctx, "failed to read ledger", err)
		os.Exit(1)
	}

	fmt.Println("\n========== STRESS TEST RESULTS ==========")
	fmt.Printf("Backend:          %s\n", *backend)
	fmt.Printf("Writers:          %d\n", len(ledgers))
	fmt.Printf("Total Requests:   %d\n", *totalRequests)
	fmt.Printf("Acknowledged:     %d\n", successCount.Load())
	fmt.Printf("Failed:           %d\n", failCount.Load())
	fmt.Printf("Persisted (new):  %d\n", len(after)-len(before))
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	qty, unit := domain.BalanceOf(after, *item)
	fmt.Printf("Balance of %s: %v %s\n", *item, qty, unit)

	if len(after)-len(before) != int(successCount.Load()) {
		log.Error(ctx, "lost updates detected", fmt.Errorf("acknowledged %d, persisted %d", successCount.Load(), len(after)-len(before)))
		os.Exit(1)
	}
	log.Info(ctx, "no lost updates")
}

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aaronpeter20/InventoryManagementSystem/internal/adapter/storage"
	"github.com/aaronpeter20/InventoryManagementSystem/internal/core/domain"
	"github.com/aaronpeter20/InventoryManagementSystem/internal/core/service"
)

// Approves many pending orders for one item at once and checks that stock
// never goes below zero and that exactly stock/qty approvals succeed.
func main() {
	mysqlDSN := flag.String("mysql", "root:root@tcp(localhost:3306)/inventory?parseTime=true", "MySQL DSN")
	redisAddr := flag.String("redis", "localhost:6379", "Redis address, empty for an in-process lock")
	initialStock := flag.Int("stock", 20, "initial item quantity")
	totalOrders := flag.Int("orders", 50, "number of pending orders to approve concurrently")
	orderQty := flag.Int("qty", 1, "quantity per order")
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	ctx := context.Background()

	db, err := sql.Open("mysql", *mysqlDSN)
	if err != nil {
		logger.Fatal("failed to open mysql", zap.Error(err))
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		logger.Fatal("failed to ping mysql", zap.Error(err))
	}
	repo := storage.NewMySQLAdapter(db)
	if err := repo.Migrate(ctx); err != nil {
		logger.Fatal("failed to migrate schema", zap.Error(err))
	}

	var ledger *service.StockLedger
	if *redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: *redisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal("failed to connect redis", zap.Error(err))
		}
		defer rdb.Close()
		ledger = service.NewStockLedger(repo, storage.NewRedisAdapter(rdb, 10*time.Second, 30*time.Second, logger))
	} else {
		ledger = service.NewStockLedger(repo, storage.NewLocalLocker(0))
	}

	// Seed a fresh item and employee so runs never share state
	now := time.Now().UTC()
	item := domain.Item{ID: uuid.NewString(), Name: "stress item", Quantity: *initialStock, CreatedAt: now, UpdatedAt: now}
	employee := domain.User{
		ID:           uuid.NewString(),
		Name:         "stress employee",
		Email:        "stress-" + uuid.NewString() + "@example.com",
		PasswordHash: "-",
		Role:         domain.RoleEmployee,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repo.CreateItem(ctx, item); err != nil {
		logger.Fatal("failed to seed item", zap.Error(err))
	}
	if err := repo.CreateUser(ctx, employee); err != nil {
		logger.Fatal("failed to seed employee", zap.Error(err))
	}

	orderIDs := make([]string, 0, *totalOrders)
	for i := 0; i < *totalOrders; i++ {
		o, err := ledger.CreateOrder(ctx, item.ID, *orderQty, employee.ID)
		if err != nil {
			logger.Fatal("failed to create order", zap.Error(err))
		}
		orderIDs = append(orderIDs, o.ID)
	}

	// Counters
	var successCount, outOfStock, otherCount atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for _, id := range orderIDs {
		wg.Add(1)
		go func(orderID string) {
			defer wg.Done()

			_, err := ledger.ApproveOrder(ctx, orderID, domain.OrderStatusApproved)
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, service.ErrInsufficientStock):
				outOfStock.Add(1)
			default:
				otherCount.Add(1)
				logger.Warn("approval failed", zap.String("order_id", orderID), zap.Error(err))
			}
		}(id)
	}

	wg.Wait()
	elapsed := time.Since(start)

	expected := int32(*initialStock / *orderQty)
	if int(expected) > *totalOrders {
		expected = int32(*totalOrders)
	}
	success := successCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Item:             %s\n", item.ID)
	fmt.Printf("Initial Stock:    %d\n", *initialStock)
	fmt.Printf("Orders:           %d x %d\n", *totalOrders, *orderQty)
	fmt.Printf("Approved:         %d\n", success)
	fmt.Printf("Out of stock:     %d\n", outOfStock.Load())
	fmt.Printf("Other errors:     %d\n", otherCount.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	failed := false
	if success == expected && otherCount.Load() == 0 {
		fmt.Printf("PASS: exactly %d orders approved\n", expected)
	} else {
		fmt.Printf("FAIL: expected %d approvals and no other errors\n", expected)
		failed = true
	}

	final, err := repo.GetItem(ctx, item.ID)
	if err != nil || final == nil {
		logger.Fatal("failed to read final stock", zap.Error(err))
	}
	want := *initialStock - int(expected)*(*orderQty)
	fmt.Printf("Final Stock:      %d\n", final.Quantity)
	if final.Quantity == want {
		fmt.Printf("PASS: stock is %d\n", want)
	} else {
		fmt.Printf("FAIL: expected stock %d, got %d\n", want, final.Quantity)
		failed = true
	}

	if failed {
		os.Exit(1)
	}
}

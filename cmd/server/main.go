package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/aaronpeter20/InventoryManagementSystem/internal/adapter/handler"
	"github.com/aaronpeter20/InventoryManagementSystem/internal/adapter/messaging"
	"github.com/aaronpeter20/InventoryManagementSystem/internal/adapter/storage"
	"github.com/aaronpeter20/InventoryManagementSystem/internal/config"
	"github.com/aaronpeter20/InventoryManagementSystem/internal/core/service"
	"github.com/aaronpeter20/InventoryManagementSystem/internal/metrics"
	"github.com/aaronpeter20/InventoryManagementSystem/internal/port"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		// no logger yet
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage
	var (
		repo port.DatabaseRepository
		db   *sql.DB
	)
	memory := storage.NewMemoryStore()
	switch cfg.Store {
	case config.StoreMySQL:
		db, err = sql.Open("mysql", cfg.MySQL.DSN)
		if err != nil {
			logger.Fatal("failed to open mysql", zap.Error(err))
		}
		db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

		if err := db.PingContext(ctx); err != nil {
			logger.Fatal("failed to ping mysql", zap.Error(err))
		}
		mysqlAdapter := storage.NewMySQLAdapter(db)
		if err := mysqlAdapter.Migrate(ctx); err != nil {
			logger.Fatal("failed to migrate schema", zap.Error(err))
		}
		repo = mysqlAdapter
		logger.Info("connected to mysql")
	default:
		repo = memory
		logger.Warn("using in-memory store, data is lost on restart")
	}

	// Locking, idempotency and rate limiting
	var (
		rdb     *redis.Client
		locker  port.ItemLocker       = storage.NewLocalLocker(cfg.Lock.Wait)
		idem    port.IdempotencyStore = memory
		limiter port.RateLimiter
	)
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal("failed to connect redis", zap.Error(err))
		}
		redisAdapter := storage.NewRedisAdapter(rdb, cfg.Lock.TTL, cfg.Lock.Wait, logger)
		locker, idem, limiter = redisAdapter, redisAdapter, redisAdapter
		logger.Info("connected to redis", zap.String("addr", cfg.Redis.Addr))
	} else {
		logger.Warn("redis not configured, item locks are local to this process")
	}

	// Events
	var publisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = messaging.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		logger.Info("publishing events to kafka",
			zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	} else {
		publisher = messaging.NewLogPublisher(logger)
	}
	m := metrics.New()
	dispatcher := messaging.NewDispatcher(publisher, cfg.Events.QueueSize, cfg.Events.Workers, logger, m)
	logger.Info("started event workers", zap.Int("workers", cfg.Events.Workers))

	// Services
	ledger := service.NewStockLedger(repo, locker)
	auth := service.NewAuth(repo, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	svc := &handler.Services{
		Ledger:  ledger,
		Catalog: service.NewCatalog(repo, locker),
		Auth:    auth,
		Payment: service.NewPaymentVerifier(cfg.PaymentKeySecret, idem, ledger),
		Events:  dispatcher,
		Metrics: m,
	}

	if cfg.Auth.AdminEmail != "" {
		created, err := auth.EnsureAdmin(ctx, cfg.Auth.AdminName, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword)
		if err != nil {
			logger.Fatal("failed to create admin", zap.Error(err))
		}
		if created {
			logger.Info("created admin account", zap.String("email", cfg.Auth.AdminEmail))
		}
	}
	if cfg.PaymentKeySecret == "" {
		logger.Warn("payment key secret not set, payment verification will reject every callback")
	}

	// gRPC server
	grpcHandler := handler.NewGRPCHandler(svc, logger)
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(grpcHandler.UnaryAuthInterceptor()))
	handler.RegisterStockLedgerServer(grpcServer, grpcHandler)
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		logger.Fatal("failed to listen", zap.String("addr", cfg.GRPCAddr), zap.Error(err))
	}

	go func() {
		logger.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr))
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC server error", zap.Error(err))
		}
	}()

	// HTTP server
	httpHandler := handler.NewHTTPHandler(svc, limiter, handler.HTTPOptions{
		TokenTTL:        cfg.Auth.TokenTTL,
		CookieSecure:    cfg.Auth.CookieSecure,
		CORSOrigin:      cfg.HTTP.CORSOrigin,
		LoginRateLimit:  cfg.HTTP.LoginRateLimit,
		LoginRateWindow: cfg.HTTP.LoginRateWindow,
	}, logger)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpHandler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown", zap.Error(err))
	}
	logger.Info("HTTP server stopped")

	grpcServer.GracefulStop()
	logger.Info("gRPC server stopped")

	// drain queued events before the publisher goes away
	if err := dispatcher.Close(); err != nil {
		logger.Error("close event publisher", zap.Error(err))
	}
	logger.Info("event workers stopped")

	if rdb != nil {
		rdb.Close()
	}
	if db != nil {
		db.Close()
	}
	logger.Info("connections closed")
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

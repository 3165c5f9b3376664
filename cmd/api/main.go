package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"github.com/example/ec-cart/internal/api"
	"github.com/example/ec-cart/internal/auth"
	"github.com/example/ec-cart/internal/command"
	"github.com/example/ec-cart/internal/config"
	"github.com/example/ec-cart/internal/domain/cart"
	"github.com/example/ec-cart/internal/domain/product"
	"github.com/example/ec-cart/internal/domain/user"
	"github.com/example/ec-cart/internal/infrastructure/kafka"
	"github.com/example/ec-cart/internal/infrastructure/store"
	"github.com/example/ec-cart/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[API] Invalid configuration: %v", err)
	}
	if err := cfg.ValidateJWT(); err != nil {
		log.Fatalf("[API] %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("[API] Failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("starting cart api",
		zap.String("addr", cfg.HTTPAddr),
		zap.String("store_backend", cfg.StoreBackend),
		zap.Strings("kafka_brokers", cfg.KafkaBrokers),
		zap.String("kafka_topic", cfg.KafkaTopic),
	)

	stores, closeStores, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open stores", zap.Error(err))
	}
	defer closeStores()

	productSvc := product.NewService(stores.Products)
	if cfg.CatalogSeedFile != "" {
		products, err := product.LoadSeedFile(cfg.CatalogSeedFile)
		if err != nil {
			logger.Fatal("failed to load catalog seed", zap.Error(err))
		}
		if err := productSvc.Seed(ctx, products); err != nil {
			logger.Fatal("failed to seed catalog", zap.Error(err))
		}
		logger.Info("catalog seeded", zap.Int("products", len(products)))
	}

	userSvc := user.NewService(stores.Users, cfg.DefaultWalletMoney)
	cartSvc := cart.NewService(stores.Carts, stores.Products, stores.Carts)

	// Left as a nil interface when events are disabled.
	var publisher command.Publisher
	if cfg.EventsEnabled() {
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer producer.Close()
		publisher = producer
	} else {
		logger.Info("KAFKA_BROKERS not set, cart events are disabled")
	}

	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.AccessTokenTTL)
	cmdHandler := command.NewHandler(userSvc, cartSvc, publisher, logger)

	router := api.NewRouter(api.RouterConfig{
		Handlers:     api.NewHandlers(cmdHandler, productSvc, logger),
		AuthHandlers: api.NewAuthHandlers(userSvc, jwtService, logger),
		JWTService:   jwtService,
		Logger:       logger,
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server started", zap.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// openStores builds the configured backend. The returned func releases
// its connections.
func openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*store.Stores, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		db, err := store.ConnectPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := store.EnsurePostgresSchema(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
		logger.Info("connected to PostgreSQL")
		return store.NewPostgresStores(db), func() { db.Close() }, nil

	case config.BackendDynamoDB:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		client := dynamodb.NewFromConfig(awsCfg)
		logger.Info("using DynamoDB",
			zap.String("carts_table", cfg.Dynamo.CartsTable),
			zap.String("users_table", cfg.Dynamo.UsersTable),
			zap.String("products_table", cfg.Dynamo.ProductsTable),
		)
		return store.NewDynamoStores(client, store.DynamoTables{
			Carts:    cfg.Dynamo.CartsTable,
			Users:    cfg.Dynamo.UsersTable,
			Products: cfg.Dynamo.ProductsTable,
		}), func() {}, nil

	default:
		stores, err := store.NewMemoryStores()
		if err != nil {
			return nil, nil, err
		}
		logger.Warn("using in-memory store, data is lost on restart")
		return stores, func() {}, nil
	}
}

package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/nightspite/sol-pos/internal/api"
	"github.com/nightspite/sol-pos/internal/config"
	"github.com/nightspite/sol-pos/internal/db"
	"github.com/nightspite/sol-pos/internal/events"
	"github.com/nightspite/sol-pos/internal/ledger"
	solanaledger "github.com/nightspite/sol-pos/internal/ledger/solana"
	"github.com/nightspite/sol-pos/internal/logger"
)

// Start serves the API until ctx is cancelled, then drains in-flight
// requests for at most api.shutdown_timeout.
func Start(ctx context.Context, configPath string) error {
	conf, postgresDB, err := bootstrap(configPath)
	if err != nil {
		return err
	}
	defer closeDB(postgresDB)

	if err = db.RunMigrations(postgresDB); err != nil {
		return fmt.Errorf("failed to run migrations -> %w", err)
	}

	err = config.Watch(configPath, func(c *config.AppConfig) {
		if err := logger.SetLevel(c.Log.Level); err != nil {
			zap.L().Warn("ignoring invalid log level", zap.String("level", c.Log.Level), zap.Error(err))
			return
		}
		zap.L().Info("log level reloaded", zap.String("level", c.Log.Level))
	})
	if err != nil {
		zap.L().Warn("config hot reload disabled", zap.Error(err))
	}

	chain := ledger.NewBreaker(solanaledger.New(conf.Ledger.RPCEndpoint), ledger.BreakerSettings{
		Name:             "solana",
		ConsecutiveFails: conf.Ledger.BreakerFailures,
		OpenTimeout:      conf.Ledger.BreakerTimeout,
	})

	var finder ledger.Finder = chain
	if conf.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     conf.Redis.Addr,
			Password: conf.Redis.Password,
			DB:       conf.Redis.DB,
		})
		defer rdb.Close()
		finder = ledger.NewCachedFinder(chain, rdb, conf.Redis.TTL)
	}

	deps := api.Dependencies{
		DB:        postgresDB,
		Finder:    finder,
		Validator: chain,
		Registry:  newRegistry(),
	}
	if len(conf.Kafka.Brokers) > 0 {
		publisher := events.NewPublisher(events.NewKafkaWriter(conf.Kafka.Brokers, conf.Kafka.Topic))
		defer publisher.Close()
		deps.Events = publisher
	}

	s := api.NewServer(conf, deps)
	srv := &http.Server{
		Addr:              ":" + conf.API.Port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info(fmt.Sprintf("starting server at %v", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err = <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start the server -> %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	zap.L().Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), conf.API.ShutdownTimeout)
	defer cancel()
	if err = srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down the server -> %w", err)
	}
	if err = s.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to close websocket watches -> %w", err)
	}

	return nil
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return reg
}

// Command coordinatord runs the TCC coordinator as a standalone process:
// a Postgres-backed TxStore, a Redis-backed cluster lock, Prometheus
// metrics, and the TxManager's background Monitor loop. Participants are
// expected to register themselves over whatever transport the deployment
// needs; this binary wires the infrastructure and leaves participant
// registration to an embedding caller (see internal/config and
// txmanager.TxManager.Register).
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/Dorico-Dynamics/txova-tcc/internal/config"
	"github.com/Dorico-Dynamics/txova-tcc/internal/logging"
	"github.com/Dorico-Dynamics/txova-tcc/lock/redislock"
	promcollector "github.com/Dorico-Dynamics/txova-tcc/metrics/prometheus"
	"github.com/Dorico-Dynamics/txova-tcc/store/postgres"
	"github.com/Dorico-Dynamics/txova-tcc/txmanager"
)

func main() {
	logger := logging.Default()

	if err := run(logger); err != nil {
		logger.Error("coordinatord exited with error", "error", err.Error())
		os.Exit(1)
	}
}

func run(logger *logging.Logger) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	migratorPool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		return err
	}
	defer migratorPool.Close()

	migrator, err := postgres.NewMigrator(migratorPool, postgres.MigrationsFS)
	if err != nil {
		return err
	}
	if err := migrator.Up(); err != nil {
		return err
	}
	if err := migrator.Close(); err != nil {
		logger.Warn("failed to close migrator source", "error", err.Error())
	}

	pool, err := postgres.NewPool(ctx,
		postgres.WithConnString(cfg.PostgresDSN),
		postgres.WithPoolLogger(logger),
	)
	if err != nil {
		return err
	}
	defer pool.Close()

	txStore := postgres.NewTxStore(pool, logger)

	rdb := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{cfg.RedisAddr}})
	defer rdb.Close()

	redisClient := redislock.NewClientFromUniversal(rdb, nil)
	locker := redislock.NewLocker(redisClient)

	collector, err := promcollector.New(prometheus.DefaultRegisterer, "txova_tcc")
	if err != nil {
		return err
	}

	manager := txmanager.NewTxManager(txStore, locker,
		txmanager.WithTimeout(cfg.TxManager.Timeout),
		txmanager.WithMonitorInterval(cfg.TxManager.MonitorInterval),
		txmanager.WithEnableMonitor(cfg.TxManager.EnableMonitor),
		txmanager.WithRetryConfig(cfg.TxManager.Retry),
		txmanager.WithMetrics(collector),
		txmanager.WithLogger(logger),
	)
	defer manager.Stop()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		health := manager.GetHealth()
		w.Header().Set("Content-Type", "application/json")
		if !health.Healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		body, err := json.Marshal(map[string]any{
			"healthy":           health.Healthy,
			"instanceId":        health.InstanceID,
			"participantsCount": health.ParticipantsCount,
			"monitorEnabled":    health.MonitorEnabled,
			"metrics":           health.Metrics,
		})
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write(body)
	})

	server := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", "error", err.Error())
		}
	}()

	logger.Info("coordinatord started", "metrics_addr", cfg.MetricsAddr)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}


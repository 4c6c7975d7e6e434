package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/booklane/slot-reservation/internal/config"
	"github.com/booklane/slot-reservation/internal/lock"
)

// lock-monitor periodically scans the lock store and publishes the count
// of live slot leases on its own /metrics endpoint. Leases self-heal via
// TTL expiry, so this is a visibility tool for stuck-lock investigation,
// not a reaper.
func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("lock-monitor starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running lock monitor in env=%s interval=%s metrics_port=%s",
		cfg.Env, cfg.MonitorInterval, cfg.MonitorMetricsPort)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb, err := lock.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis connection error: %v", err)
	}
	log.Println("connected to Redis")

	registry := prometheus.NewRegistry()
	locks := lock.NewService(lock.NewRedisStore(rdb), cfg.LockNamespace, cfg.LockTTL, lock.NewMetrics(registry))
	defer func() {
		if err := locks.Close(); err != nil {
			log.Printf("error closing lock service: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	metricsSrv := &http.Server{
		Addr:              ":" + cfg.MonitorMetricsPort,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Printf("metrics listening on :%s", cfg.MonitorMetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics server error: %v", err)
		}
	}()

	// Run once at startup
	runOnce(rootCtx, locks)

	ticker := time.NewTicker(cfg.MonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Println("shutdown signal received, stopping lock monitor")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
				log.Printf("metrics server shutdown error: %v", err)
			}
			return
		case <-ticker.C:
			runOnce(rootCtx, locks)
		}
	}
}

// runOnce does one full scan; the scan itself refreshes the active-locks
// gauge served on /metrics.
func runOnce(ctx context.Context, locks *lock.Service) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	active, err := locks.ListActive(runCtx, "", 1000)
	if err != nil {
		log.Printf("monitor scan error: %v", err)
		return
	}

	var shortest time.Duration
	for _, l := range active {
		if shortest == 0 || l.RemainingTTL < shortest {
			shortest = l.RemainingTTL
		}
	}
	log.Printf("monitor scan complete active=%d shortest_ttl=%s duration=%s",
		len(active), shortest, time.Since(start))
}

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
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/booklane/slot-reservation/internal/api"
	"github.com/booklane/slot-reservation/internal/booking"
	"github.com/booklane/slot-reservation/internal/config"
	"github.com/booklane/slot-reservation/internal/db"
	"github.com/booklane/slot-reservation/internal/lock"
	"github.com/booklane/slot-reservation/internal/schedule"
)

const version = "1.2.0"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running in env=%s http_port=%s lock_ttl=%s slot_step=%dm tz=%s",
		cfg.Env, cfg.HTTPPort, cfg.LockTTL, cfg.SlotStepMin, cfg.SalonTimezone)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatalf("postgres connection error: %v", err)
	}
	defer pgPool.Close()
	log.Println("connected to Postgres")

	// Connect the lock store
	rdb, err := lock.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis connection error: %v", err)
	}
	log.Println("connected to Redis")

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	locks := lock.NewService(lock.NewRedisStore(rdb), cfg.LockNamespace, cfg.LockTTL, lock.NewMetrics(registry))
	defer func() {
		if err := locks.Close(); err != nil {
			log.Printf("error closing lock service: %v", err)
		}
	}()

	loc := cfg.Location()
	schedRepo := schedule.NewPgRepository(pgPool)
	planner := schedule.NewPlanner(schedRepo, loc, cfg.SlotStepMin, schedule.NewMonthCache(cfg.CacheTTL, cfg.CacheMaxEntries))
	bookings := booking.NewService(booking.NewPgRepository(pgPool), locks, schedRepo, planner, loc)

	router := api.NewRouter(api.RouterConfig{
		Locks:    locks,
		Planner:  planner,
		Bookings: bookings,
		DB:       pgPool,
		Registry: registry,
		AdminKey: cfg.AdminKey,
		Env:      cfg.Env,
		Version:  version,
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("listening on :%s", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-rootCtx.Done()

	log.Println("shutting down api-server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown error: %v", err)
	}
}

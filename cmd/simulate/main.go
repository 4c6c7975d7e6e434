package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// simulate races many concurrent clients for the same slot lease through
// the HTTP lock API and reports how the contention resolved. Exactly one
// client per round should win; everyone else should see slot_locked.

type SimConfig struct {
	APIBaseURL string
	Workers    int
	Rounds     int
	TTLMs      int64
}

type RoundMetrics struct {
	Wins      int64
	Conflicts int64
	Errors    int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (m *RoundMetrics) Record(latency time.Duration, status int) {
	switch status {
	case http.StatusOK:
		atomic.AddInt64(&m.Wins, 1)
	case http.StatusConflict:
		atomic.AddInt64(&m.Conflicts, 1)
	default:
		atomic.AddInt64(&m.Errors, 1)
	}

	m.mu.Lock()
	m.Latencies = append(m.Latencies, latency)
	m.mu.Unlock()
}

func (m *RoundMetrics) P95() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.Latencies) == 0 {
		return 0
	}
	latencies := make([]time.Duration, len(m.Latencies))
	copy(latencies, m.Latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	idx := len(latencies) * 95 / 100
	if idx >= len(latencies) {
		idx = len(latencies) - 1
	}
	return latencies[idx]
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg := SimConfig{
		APIBaseURL: getEnv("API_BASE_URL", "http://localhost:8080"),
		Workers:    getEnvInt("SIM_WORKERS", 50),
		Rounds:     getEnvInt("SIM_ROUNDS", 20),
		TTLMs:      int64(getEnvInt("SIM_TTL_MS", 5000)),
	}

	log.Printf("simulate starting workers=%d rounds=%d base_url=%s", cfg.Workers, cfg.Rounds, cfg.APIBaseURL)

	client := &http.Client{Timeout: 10 * time.Second}
	metrics := &RoundMetrics{}
	badRounds := 0

	for round := 0; round < cfg.Rounds; round++ {
		resourceID := uuid.NewString()
		date := time.Now().AddDate(0, 0, 1+round%30).Format("2006-01-02")
		startTime := fmt.Sprintf("%02d:%02d", 9+round%8, 15*(round%4))

		wins := raceOnce(client, cfg, metrics, resourceID, date, startTime)
		if wins != 1 {
			badRounds++
			log.Printf("round=%d INVARIANT VIOLATION wins=%d resource=%s", round, wins, resourceID)
		}
	}

	log.Printf("simulate done wins=%d conflicts=%d errors=%d p95=%s bad_rounds=%d",
		metrics.Wins, metrics.Conflicts, metrics.Errors, metrics.P95(), badRounds)

	if badRounds > 0 {
		os.Exit(1)
	}
}

// raceOnce fires every worker at the same (resource, date, startTime) key
// and returns how many acquired the lease.
func raceOnce(client *http.Client, cfg SimConfig, metrics *RoundMetrics, resourceID, date, startTime string) int64 {
	var (
		wins  int64
		start = make(chan struct{})
		wg    sync.WaitGroup
	)

	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start

			body, _ := json.Marshal(map[string]any{
				"resourceId": resourceID,
				"date":       date,
				"startTime":  startTime,
				"ttl":        cfg.TTLMs,
			})

			began := time.Now()
			resp, err := client.Post(cfg.APIBaseURL+"/locks/acquire", "application/json", bytes.NewReader(body))
			if err != nil {
				metrics.Record(time.Since(began), 0)
				return
			}
			defer resp.Body.Close()
			_, _ = io.Copy(io.Discard, resp.Body)

			metrics.Record(time.Since(began), resp.StatusCode)
			if resp.StatusCode == http.StatusOK {
				atomic.AddInt64(&wins, 1)
			}
		}()
	}

	close(start)
	wg.Wait()
	return wins
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// Command task-load hammers a running task mock with concurrent upserts,
// deletes and lists, then checks that no task id appears twice.
package main

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"mock-server/client"
	"mock-server/domain"
)

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil || i <= 0 {
		log.Fatalf("invalid %s: %q", key, v)
	}
	return i
}

type counters struct {
	upserts  atomic.Uint64
	deletes  atomic.Uint64
	lists    atomic.Uint64
	failures atomic.Uint64
}

func (c *counters) total() uint64 {
	return c.upserts.Load() + c.deletes.Load() + c.lists.Load()
}

func main() {
	baseURL := getenv("TASKS_URL", "http://localhost:5000")
	workers := getenvInt("WORKERS", 16)
	duration := time.Duration(getenvInt("DURATION_SEC", 30)) * time.Second
	idSpace := int64(getenvInt("ID_SPACE", 50))

	c := client.New(baseURL)
	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()

	var stats counters
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := range workers {
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				id := rand.Int64N(idSpace)
				var err error
				switch op := rand.IntN(10); {
				case op < 6:
					stats.upserts.Add(1)
					err = c.Upsert(ctx, domain.NewTask(id, map[string]json.RawMessage{
						"worker": json.RawMessage(strconv.Itoa(w)),
					}))
				case op < 8:
					stats.deletes.Add(1)
					err = c.Delete(ctx, id)
				default:
					stats.lists.Add(1)
					_, err = c.List(ctx)
				}
				if err != nil && ctx.Err() == nil {
					stats.failures.Add(1)
					log.WithField("worker", w).Debugf("request failed: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	verifyCtx, verifyCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer verifyCancel()
	tasks, err := c.List(verifyCtx)
	if err != nil {
		log.Fatalf("final list: %v", err)
	}
	seen := make(map[int64]bool, len(tasks))
	duplicates := 0
	for _, t := range tasks {
		if seen[t.ID] {
			duplicates++
		}
		seen[t.ID] = true
	}

	total := stats.total()
	failureRate := 0.0
	if total > 0 {
		failureRate = float64(stats.failures.Load()) / float64(total)
	}
	log.WithFields(log.Fields{
		"workers":      workers,
		"duration_sec": int(duration.Seconds()),
		"upserts":      stats.upserts.Load(),
		"deletes":      stats.deletes.Load(),
		"lists":        stats.lists.Load(),
		"failures":     stats.failures.Load(),
		"tasks":        len(tasks),
		"duplicates":   duplicates,
	}).Info("load finished")

	if duplicates > 0 || failureRate > 0.01 || int64(len(tasks)) > idSpace {
		os.Exit(1)
	}
}

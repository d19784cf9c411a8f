package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	"classtrack/internal/attendance"
	"classtrack/internal/config"
	"classtrack/internal/export"
	"classtrack/internal/queue"
	"classtrack/internal/store"
)

// Worker consumes mark messages and appends them to the CSV staging files
// the spreadsheet export reads from.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	staging, err := export.NewStaging(cfg.DataDir)
	if err != nil {
		log.Fatalf("staging dir failed: %v", err)
	}

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		redisClient := store.NewRedis(cfg.RedisAddr)
		q = queue.NewRedisQueue(redisClient.Client, "classtrack:marks")
	}

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for messages...")
	for msg := range messages {
		if msg.Type != "mark" {
			continue
		}

		var rec attendance.Record
		if err := json.Unmarshal(msg.Body, &rec); err != nil {
			log.Printf("bad mark message: %v", err)
			continue
		}

		if err := staging.Append(rec); err != nil {
			log.Printf("staging append failed for session %s: %v", rec.SessionID, err)
			continue
		}
		log.Printf("staged mark %s/%s for %s", rec.DateYMD, rec.BatchID, rec.RegNo)
	}

	log.Println("worker stopped")
}

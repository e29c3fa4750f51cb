package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Phonsadboy/ChatCenterAI-sub001/internal/config"
	"github.com/Phonsadboy/ChatCenterAI-sub001/internal/infrastructure"
	"github.com/Phonsadboy/ChatCenterAI-sub001/internal/repository"
	"github.com/Phonsadboy/ChatCenterAI-sub001/internal/usecases"
)

// Offline batch: regroups the full conversation history into threads.
// Safe to run repeatedly; reruns over unchanged data write the same rows.
func main() {
	cfg := config.Load()

	pgClient, err := infrastructure.NewPostgresClient(cfg.DatabaseURL)
	if err != nil {
		panic("Failed to connect to database: " + err.Error())
	}
	defer pgClient.Close()

	conversationRepo := repository.NewConversationRepository(pgClient.Pool)
	threadRepo := repository.NewThreadRepository(pgClient.Pool)
	credentialRepo := repository.NewCredentialRepository(pgClient.Pool)

	rebuilder := usecases.NewThreadRebuilder(conversationRepo, threadRepo, credentialRepo)

	start := time.Now()
	lastPercent := -1
	written, err := rebuilder.Rebuild(context.Background(), func(processed, total int) {
		if total == 0 {
			return
		}
		percent := processed * 100 / total
		if percent != lastPercent {
			fmt.Printf("\r[Rebuild] %d%% (%d/%d conversations)", percent, processed, total)
			lastPercent = percent
		}
	})
	fmt.Println()
	if err != nil {
		panic("Rebuild failed: " + err.Error())
	}

	total, err := threadRepo.Count(context.Background())
	if err != nil {
		log.Printf("[Rebuild] wrote %d threads in %s (count check failed: %v)", written, time.Since(start).Round(time.Millisecond), err)
		return
	}
	log.Printf("[Rebuild] wrote %d threads (table now holds %d) in %s", written, total, time.Since(start).Round(time.Millisecond))
}

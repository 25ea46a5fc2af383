package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/atai-labs/search-mirror/internal/data"
	"github.com/atai-labs/search-mirror/mcpserver"
)

// cache-mcp exposes the result cache as MCP tools over stdio so an
// operator agent can inspect and maintain it.
func main() {
	_ = godotenv.Load()

	dbPath := os.Getenv("CACHE_DB_PATH")
	if dbPath == "" {
		homeDir, _ := os.UserHomeDir()
		dbPath = filepath.Join(homeDir, ".search-mirror", "cache.db")
	}

	cacheRepo, err := data.NewCacheRepo(dbPath)
	if err != nil {
		log.Fatalf("Failed to open cache: %v", err)
	}
	defer cacheRepo.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	srv := mcpserver.NewServer(cacheRepo)
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("MCP server error: %v", err)
	}
}

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"

	"github.com/atai-labs/search-mirror/internal/biz"
	"github.com/atai-labs/search-mirror/internal/biz/usecase"
	"github.com/atai-labs/search-mirror/internal/conf"
	"github.com/atai-labs/search-mirror/internal/data"
	"github.com/atai-labs/search-mirror/internal/infra/mirror"
	"github.com/atai-labs/search-mirror/internal/infra/openai"
	"github.com/atai-labs/search-mirror/internal/server"
	"github.com/atai-labs/search-mirror/internal/service"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := conf.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	// Initialize bot front-end
	bot, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}
	bot.Debug = cfg.Debug
	fmt.Printf("[Main] Bot authorized as @%s\n", bot.Self.UserName)

	// Start mirror session before accepting any traffic
	mirrorClient := mirror.NewClient(mirror.Config{
		APIID:       cfg.Mirror.APIID,
		APIHash:     cfg.Mirror.APIHash,
		SessionFile: cfg.Mirror.SessionFile,
		TargetBot:   cfg.Mirror.TargetBot,
		ProxyAddr:   cfg.Mirror.ProxyAddr,
	})

	ctx := context.Background()
	if err := mirrorClient.Start(ctx); err != nil {
		log.Fatalf("Failed to start mirror session: %v", err)
	}
	fmt.Printf("[Main] Mirror session ready, target @%s\n", cfg.Mirror.TargetBot)

	var suggestClient *openai.Client
	if cfg.Suggest.APIKey != "" {
		suggestClient = openai.NewClient(cfg.Suggest.APIKey, cfg.Suggest.BaseURL, cfg.Suggest.Model)
		fmt.Println("[Main] Keyword suggestions enabled")
	}

	// Initialize repository layer
	repos, err := data.NewRepositories(bot, mirrorClient, suggestClient, cfg.Cache.DBPath)
	if err != nil {
		log.Fatalf("Failed to create repositories: %v", err)
	}
	fmt.Printf("[Main] Cache DB: %s\n", cfg.Cache.DBPath)

	// Initialize usecase layer
	paginationCfg := cfg.ToPaginationConfig()

	ucs := &biz.Usecases{
		Callback:   usecase.NewCallbackUsecase(usecase.DefaultCallbackCapacity),
		Tracker:    usecase.NewTrackerUsecase(cfg.FreshnessWindow()),
		Pagination: usecase.NewPaginationUsecase(repos.Mirror, repos.Cache, paginationCfg),
		Session:    usecase.NewSessionUsecase(cfg.Session.ToSessionConfig()),
		Suggest:    usecase.NewSuggestUsecase(repos.Suggest, cfg.Session.HistoryMaxTurn),
	}

	// Initialize service layer
	relaySvc := service.NewRelayService(
		ucs.Tracker, ucs.Callback, ucs.Pagination,
		repos.Cache, repos.Mirror, repos.Messenger,
		paginationCfg.CacheTTL,
	)
	adminSvc := service.NewAdminService(repos.Messenger, cfg.Bot.AdminID)
	sweeper := service.NewCacheSweeper(repos.Cache, cfg.Cache.SweepInterval)

	// Initialize server
	srv := server.NewTelegramServer(bot, repos.Messenger, ucs.Session, ucs.Suggest, relaySvc, adminSvc, sweeper)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nShutting down...")
		srv.Stop()
		mirrorClient.Stop()
		ucs.Pagination.Wait()
		relaySvc.Wait()
		_ = repos.Cache.Close()
		os.Exit(0)
	}()

	fmt.Println("Starting search mirror bot...")
	if err := srv.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	select {}
}

package main

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/tubelens/tubelens-go/internal/config"
	"github.com/tubelens/tubelens-go/internal/db"
	"github.com/tubelens/tubelens-go/internal/handler"
	"github.com/tubelens/tubelens-go/internal/llm"
	"github.com/tubelens/tubelens-go/internal/middleware"
	"github.com/tubelens/tubelens-go/internal/repository"
	"github.com/tubelens/tubelens-go/internal/router"
	"github.com/tubelens/tubelens-go/internal/service"
	"github.com/tubelens/tubelens-go/internal/youtube"
)

func main() {
	cfg := config.Load()
	middleware.InitLogger(cfg.LogLevel, "tubelens-api")

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer pool.Close()

	cache := service.NewCacheService(cfg.RedisURL)
	defer cache.Close()

	auditRepo := repository.NewAuditRepo(pool)
	channelRepo := repository.NewChannelRepo(pool)

	if cfg.YouTubeAPIKey == "" {
		log.Fatal("YOUTUBE_API_KEY is required")
	}
	yt := youtube.NewDataAPIClient(cfg.YouTubeAPIKey)

	var llmClient llm.Client
	if cfg.AnthropicAPIKey != "" {
		llmClient = llm.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.LLMModel)
	} else {
		log.Println("llm: no API key configured, prose stages disabled")
	}

	ingest := service.NewIngestService(channelRepo, yt)
	series := service.NewSeriesService()
	bench := service.NewBenchmarkService(channelRepo, service.BenchmarkOptions{
		MinPeers:   cfg.MinPeers,
		WidenTiers: cfg.WidenPeerTiers,
	})
	opps := service.NewOpportunityService()
	narrative := service.NewNarrativeService(llmClient)

	handler.InitMetrics(pool)
	pipeline := service.NewPipeline(auditRepo, yt, ingest, series, bench, opps, narrative).
		WithObserver(handler.PipelineMetricsObserver{})

	janitor := service.NewJanitor(auditRepo,
		15*time.Minute,
		time.Duration(cfg.StuckAuditHours)*time.Hour,
		time.Duration(cfg.RetentionDays)*24*time.Hour,
	)
	go janitor.Start(ctx)
	defer janitor.Stop()

	stats := service.NewStatsService(auditRepo, channelRepo)
	channelReader := service.NewChannelCacheReader(channelRepo, ingest)

	app := fiber.New(fiber.Config{
		AppName:      "TubeLens API",
		ServerHeader: "TubeLens",
	})

	router.Setup(app, &router.Handlers{
		Audit:   handler.NewAuditHandler(pipeline, auditRepo, cache),
		Channel: handler.NewChannelHandler(channelReader, cache),
		Stats:   handler.NewStatsHandler(stats),
		Health:  handler.NewHealthHandler(pool, cache.Client(), stats),
	}, cfg.CORSOrigins)

	log.Printf("TubeLens Go backend starting on :%s (env=%s)", cfg.Port, cfg.Environment)
	log.Fatal(app.Listen(":" + cfg.Port))
}

package main

import (
	"fmt"
	"log"
	"os"

	"github.com/pillscan/backend/config"
	httpDelivery "github.com/pillscan/backend/internal/delivery/http"
	"github.com/pillscan/backend/internal/infrastructure/analytics"
	"github.com/pillscan/backend/internal/infrastructure/cache"
	"github.com/pillscan/backend/internal/infrastructure/ollama"
	"github.com/pillscan/backend/internal/infrastructure/pillstore"
	"github.com/pillscan/backend/internal/infrastructure/roboflow"
	"github.com/pillscan/backend/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting PillScan Backend v1.0.0")
	log.Printf("Environment: %s", cfg.Server.Environment)
	log.Printf("Port: %s", cfg.Server.Port)

	// Initialize infrastructure dependencies
	memoryCache := cache.NewMemoryCache()
	log.Printf("Cache TTL: %s", cfg.Cache.TTL)

	detector := roboflow.NewClient(
		cfg.Detector.APIKey,
		cfg.Detector.BaseURL,
		cfg.Detector.ModelID,
		cfg.Detector.ConfidenceThreshold,
	)

	// Enable debug mode in development environment
	if cfg.Server.Environment == "development" {
		detector.SetDebug(true)
		log.Printf("Detector client debug mode enabled")
	}

	log.Printf("Detector configured: %s model=%s threshold=%.2f",
		cfg.Detector.BaseURL, cfg.Detector.ModelID, cfg.Detector.ConfidenceThreshold)

	extractor, err := ollama.NewClient(cfg.Vision.BaseURL, cfg.Vision.Model, cfg.Vision.Timeout)
	if err != nil {
		log.Fatalf("Failed to create vision client: %v", err)
	}
	log.Printf("Vision configured: %s model=%s timeout=%s",
		cfg.Vision.BaseURL, cfg.Vision.Model, cfg.Vision.Timeout)

	store := pillstore.NewStore()
	if cfg.Store.SeedFile != "" {
		if err := store.LoadFromFile(cfg.Store.SeedFile); err != nil {
			log.Fatalf("Failed to load reference store: %v", err)
		}
		log.Printf("Reference store loaded: %d records from %s", store.Len(), cfg.Store.SeedFile)
	} else {
		log.Printf("WARNING: no seed file configured (PILLSCAN_STORE_SEED_FILE) - reference store is empty")
	}

	sink := analytics.NewMemorySink()

	// Initialize usecase layer
	pipelineService := usecase.NewPipelineService(detector, extractor, usecase.PipelineOptions{
		Concurrency:            cfg.Pipeline.Concurrency,
		PaddingPct:             cfg.Pipeline.PaddingPct,
		UnitTimeout:            cfg.Pipeline.UnitTimeout,
		LowConfidenceThreshold: cfg.Pipeline.LowConfidenceThreshold,
		JPEGQuality:            cfg.Pipeline.JPEGQuality,
		EnableDebugLogging:     cfg.Pipeline.EnableDebugLogging,
	})

	searchService := usecase.NewSearchService(store, memoryCache, sink, usecase.SearchConfig{
		CacheTTL:           cfg.Cache.TTL,
		EnableDebugLogging: cfg.Pipeline.EnableDebugLogging,
	})

	log.Printf("Pipeline: concurrency=%d padding=%.0f%% unit_timeout=%s low_confidence=%.2f",
		cfg.Pipeline.Concurrency,
		cfg.Pipeline.PaddingPct*100,
		cfg.Pipeline.UnitTimeout,
		cfg.Pipeline.LowConfidenceThreshold)

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(pipelineService, searchService)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("Server listening on %s", addr)

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func init() {
	// Set log flags for better debugging
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}

// Package main is the entry point for the rescuephoto server
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"

	"rescuephoto/api"
	"rescuephoto/api/handler"
	"rescuephoto/internal/config"
	"rescuephoto/internal/database"
	"rescuephoto/internal/imageprocessing"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Configure logging
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("Application starting...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Could not load configuration: %v", err)
	}

	// Set up images directory
	if _, err := os.Stat(cfg.ImageDir); os.IsNotExist(err) {
		if err := os.MkdirAll(cfg.ImageDir, 0755); err != nil {
			log.Fatalf("Could not create images directory: %v", err)
		}
		log.Printf("Created images directory: %s", cfg.ImageDir)
	}

	hashCache := cache.New(cfg.CacheTTL.Duration, cfg.CacheCleanup.Duration)
	hasher := imageprocessing.NewHasher(imageprocessing.NewDecoder(cfg.Resampler, cfg.Filter), hashCache)
	log.Printf("Hashing with %s resampler (%s filter)", cfg.Resampler, cfg.Filter)

	// Initialize database
	db := database.NewImageDatabase(hasher)
	db.SetMaxDistance(cfg.MaxDistance)
	db.SetWorkers(cfg.Workers)

	if cfg.DatabasePath != "" {
		store, err := database.OpenStore(cfg.DatabasePath)
		if err != nil {
			log.Fatalf("Could not open database: %v", err)
		}
		defer store.Close()
		db.SetStore(store)
		if err := db.LoadStore(); err != nil {
			log.Fatalf("Failed to load stored images: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load existing images
	start := time.Now()
	if err := db.LoadImages(ctx, cfg.ImageDir); err != nil {
		log.Fatalf("Failed to load images: %v", err)
	}
	log.Printf("Loaded %s images into database in %s",
		humanize.Comma(int64(db.Count())), time.Since(start).Round(time.Millisecond))

	gin.SetMode(gin.ReleaseMode)
	router := api.Router(&handler.Handler{
		DB:             db,
		ImageDir:       cfg.ImageDir,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Threshold:      cfg.Threshold,
	})

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: router,
	}

	go func() {
		log.Printf("Server started on port %s (upload limit %s)...", cfg.Port, humanize.IBytes(uint64(cfg.MaxUploadBytes)))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Could not start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	log.Printf("Server exited, %d cached hashes", hashCache.ItemCount())
}

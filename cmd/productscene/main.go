package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dixieflatline76/ProductScene/config"
	"github.com/dixieflatline76/ProductScene/pkg/api"
	"github.com/dixieflatline76/ProductScene/pkg/provider"
	"github.com/dixieflatline76/ProductScene/pkg/provider/openrouter"
	"github.com/dixieflatline76/ProductScene/pkg/provider/veo"
	"github.com/dixieflatline76/ProductScene/pkg/scene"
	"github.com/dixieflatline76/ProductScene/pkg/store"
	"github.com/dixieflatline76/ProductScene/pkg/workspace"
	"github.com/dixieflatline76/ProductScene/util/log"
)

func main() {
	configPath := flag.String("config", config.GetFilename(), "path to config.json")
	flag.Parse()

	cfg := config.Load(*configPath)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ok, err := acquireLock(cfg.DataDir)
	if err != nil {
		log.Fatalf("Failed to acquire instance lock: %v", err)
	}
	if !ok {
		fmt.Printf("Another instance of %s is already using %s.\n", config.AppName, cfg.DataDir)
		return
	}
	defer releaseLock()

	ctx := context.Background()

	// ── Storage ───────────────────────────────────────────────────────────────
	st, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	media := store.NewMediaStore(filepath.Join(cfg.DataDir, "media"))
	if err := media.EnsureDirs(); err != nil {
		log.Fatalf("Failed to prepare media store: %v", err)
	}

	// ── Remote collaborators ─────────────────────────────────────────────────
	httpClient := &http.Client{Timeout: 3 * time.Minute}
	gen, err := openrouter.New(openrouter.Options{
		APIKey:     config.GetAPIKey(config.ProviderKeyName),
		BaseURL:    cfg.ProviderBaseURL,
		ImageModel: cfg.ImageModel,
		TextModel:  cfg.TextModel,
		HTTPClient: httpClient,
	})
	if err != nil {
		log.Fatalf("Failed to create scene generator (set %s%s or run load_secrets): %v", config.EnvPrefix, "PROVIDER_API_KEY", err)
	}

	var videoGen provider.VideoGenerator
	if vc, err := veo.NewClient(cfg.VideoBaseURL, cfg.VideoModel, config.GetAPIKey(config.VideoKeyName), httpClient); err != nil {
		log.Printf("Video generation disabled: %v", err)
	} else {
		videoGen = vc
	}

	orch := scene.NewOrchestrator(gen, scene.Options{
		Variations: cfg.Variations,
		Sampling: provider.SamplingParams{
			Temperature: cfg.Temperature,
			TopK:        cfg.TopK,
			TopP:        cfg.TopP,
		},
		RequestsPerSecond: cfg.RequestsPerSec,
	})
	var renderer *scene.VideoRenderer
	if videoGen != nil {
		renderer = scene.NewVideoRenderer(videoGen, cfg.VideoPollInterval.Duration, cfg.VideoMaxPolls)
	}

	// ── Workspace & server ───────────────────────────────────────────────────
	ws := workspace.New(st, media, orch, renderer, workspace.Options{
		CropQuietPeriod: cfg.CropDebounce.Duration,
		SaveDebounce:    cfg.SaveDebounce.Duration,
	})
	ws.Load(ctx)
	defer ws.Close()

	srv := api.NewServer(ws, api.Options{Addr: cfg.ListenAddr, AllowedOrigins: cfg.AllowedOrigins})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-quit:
		log.Println("Shutdown signal received, draining requests...")
	case err := <-errCh:
		log.Printf("Server error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Printf("Forced shutdown: %v", err)
	}
	log.Println("Server stopped cleanly")
}

// openStore selects the persistence backend named in the config.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.StoreBackend {
	case config.StoreBackendPostgres:
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		pg, err := store.NewPostgresStore(pingCtx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		log.Println("Using Postgres store")
		return pg, nil
	default:
		fs, err := store.NewFileStore(cfg.DataDir)
		if err != nil {
			return nil, err
		}
		log.Printf("Using file store at %s", cfg.DataDir)
		return fs, nil
	}
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/narges-rzv/Lingolou/internal/api"
	"github.com/narges-rzv/Lingolou/internal/audio"
	"github.com/narges-rzv/Lingolou/internal/config"
	"github.com/narges-rzv/Lingolou/internal/health"
	"github.com/narges-rzv/Lingolou/internal/pipeline"
	"github.com/narges-rzv/Lingolou/internal/provider"
	"github.com/narges-rzv/Lingolou/internal/storage"
	"github.com/narges-rzv/Lingolou/internal/story"
	"github.com/narges-rzv/Lingolou/internal/task"
	"github.com/narges-rzv/Lingolou/internal/voice"
	"github.com/narges-rzv/Lingolou/pkg/types"
)

const version = "0.1.0"

func main() {
	configPath := flag.String("config", "config/dev.example.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Printf("Starting Lingolou Server v%s", version)
	log.Printf("Configuration loaded from: %s", *configPath)

	storageAdapter, err := storage.NewAdapter(cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to create storage adapter: %v", err)
	}
	defer storageAdapter.Close()
	log.Printf("Storage adapter initialized: %s", cfg.Storage.Adapter)

	generator, err := provider.NewScriptGenerator(cfg.Providers.LLM)
	if err != nil {
		log.Fatalf("Failed to create script generator: %v", err)
	}
	defer generator.Close()

	synthesizer, err := provider.NewSynthesizer(cfg.Providers.Synthesis)
	if err != nil {
		log.Fatalf("Failed to create synthesizer: %v", err)
	}
	defer synthesizer.Close()

	log.Printf("Providers initialized: llm=%s synthesis=%s", generator.Name(), synthesizer.Name())

	repo := story.NewRepository(storageAdapter)
	registry := voice.NewRegistry(cfg.Voices)
	log.Printf("Voice registry loaded: %d speakers, %d groups, narrator=%s",
		len(registry.Speakers()), len(registry.Groups()), registry.Narrator())

	tracker, err := task.NewTracker(cfg.Tasks)
	if err != nil {
		log.Fatalf("Failed to create task tracker: %v", err)
	}
	defer tracker.Close()
	log.Printf("Task tracker initialized: %s", cfg.Tasks.Backend)

	mixerOpts := audio.MixerOptions{
		CallDelay:         time.Duration(cfg.Pipeline.GroupCallDelayMs) * time.Millisecond,
		DiscreteStability: cfg.Providers.Synthesis.DiscreteStability,
	}
	assemblerOpts := audio.DefaultAssemblerOptions()
	assemblerOpts.PostLineGapSeconds = cfg.Pipeline.PostLineGapSeconds
	assemblerOpts.SceneGapSeconds = cfg.Pipeline.SceneGapSeconds
	assemblerOpts.IncludeSceneMarkers = cfg.Pipeline.IncludeSceneMarkers

	scriptPipeline := pipeline.NewScriptPipeline(repo, tracker, generator, cfg.Pipeline)
	audioPipeline := pipeline.NewAudioPipeline(repo, tracker, synthesizer, registry,
		mixerOpts, assemblerOpts, cfg.Pipeline.TempDir)

	healthHandler := health.NewHandler(version)
	healthHandler.Register("storage", func(ctx context.Context) (health.Status, error) {
		if _, err := storageAdapter.Exists(ctx, ".healthcheck"); err != nil {
			return health.StatusUnhealthy, err
		}
		return health.StatusHealthy, nil
	})
	healthHandler.Register("voices", func(ctx context.Context) (health.Status, error) {
		if _, err := registry.NarratorVoice(); err != nil {
			return health.StatusUnhealthy, err
		}
		return health.StatusHealthy, nil
	})
	healthHandler.Register("tasks", func(ctx context.Context) (health.Status, error) {
		if _, err := tracker.Get(ctx, "healthcheck"); err != nil {
			return health.StatusDegraded, err
		}
		return health.StatusHealthy, nil
	})

	storyHandler := api.NewStoryHandler(repo, tracker, scriptPipeline, audioPipeline, cfg.Pipeline)
	taskHandler := api.NewTaskHandler(tracker)
	voicesHandler := api.NewVoicesHandler(registry)

	mux := http.NewServeMux()

	mux.HandleFunc("/health/live", healthHandler.LivenessHandler())
	mux.HandleFunc("/health/ready", healthHandler.ReadinessHandler())
	mux.HandleFunc("/health", healthHandler.HealthHandler())

	mux.HandleFunc("/api/v1/info", infoHandler(version, cfg))
	mux.HandleFunc("/api/v1/voices", voicesHandler.ListVoices)

	mux.HandleFunc("/api/v1/tasks/", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			taskHandler.GetTaskStatus(w, r)
		case http.MethodDelete:
			taskHandler.CancelTask(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/v1/stories", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			storyHandler.CreateStory(w, r)
		case http.MethodGet:
			storyHandler.ListStories(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/v1/stories/", func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		switch {
		case strings.HasSuffix(path, "/generate"):
			requirePost(storyHandler.StartScriptGeneration)(w, r)
		case strings.HasSuffix(path, "/generate-audio"):
			requirePost(storyHandler.StartAudioGeneration)(w, r)
		case strings.HasSuffix(path, "/tasks/active"):
			storyHandler.GetActiveTask(w, r)
		case strings.HasSuffix(path, "/download"):
			storyHandler.DownloadStory(w, r)
		case strings.HasSuffix(path, "/script"):
			storyHandler.GetScript(w, r)
		case strings.Contains(path, "/chapters/") && strings.HasSuffix(path, "/audio"):
			storyHandler.GetChapterAudio(w, r)
		case strings.HasSuffix(path, "/audio"):
			storyHandler.GetCombinedAudio(w, r)
		case r.Method == http.MethodDelete:
			storyHandler.DeleteStory(w, r)
		default:
			storyHandler.GetStory(w, r)
		}
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Printf("Server listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

func requirePost(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

// infoHandler returns basic server information
func infoHandler(version string, cfg *types.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"version":"%s","storage_adapter":"%s","task_backend":"%s"}`,
			version, cfg.Storage.Adapter, cfg.Tasks.Backend)
	}
}

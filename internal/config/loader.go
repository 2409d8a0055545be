package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/narges-rzv/Lingolou/pkg/types"
	"gopkg.in/yaml.v3"
)

// Load reads and parses the configuration file
// It also supports environment variable overrides with LL_ prefix
func Load(configPath string) (*types.Config, error) {
	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML
	var cfg types.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(&cfg)

	// Validate configuration
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate checks if the configuration is valid and fills in defaults
// for unset tunables
func Validate(cfg *types.Config) error {
	// Validate server config
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}

	// Validate storage adapter
	if cfg.Storage.Adapter != "local" && cfg.Storage.Adapter != "s3" {
		return fmt.Errorf("invalid storage adapter: %s (must be 'local' or 's3')", cfg.Storage.Adapter)
	}

	if cfg.Storage.Adapter == "local" {
		if cfg.Storage.Local.BasePath == "" {
			return fmt.Errorf("local storage base_path is required")
		}
		// Ensure base path is absolute
		if !filepath.IsAbs(cfg.Storage.Local.BasePath) {
			return fmt.Errorf("local storage base_path must be absolute: %s", cfg.Storage.Local.BasePath)
		}
	}

	if cfg.Storage.Adapter == "s3" {
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("s3 bucket is required")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("s3 region is required")
		}
	}

	// Validate voices config
	if cfg.Voices.DefaultNarrator != "" {
		if _, ok := cfg.Voices.Speakers[cfg.Voices.DefaultNarrator]; !ok {
			return fmt.Errorf("default narrator %q not found in speakers", cfg.Voices.DefaultNarrator)
		}
	}
	for name, members := range cfg.Voices.Groups {
		for _, member := range members {
			if _, ok := cfg.Voices.Speakers[member]; !ok {
				// Not fatal: the mixer skips members without a voice
				log.Printf("[Config] Group %q references unconfigured speaker %q, it will be skipped", name, member)
			}
		}
	}

	// Validate task tracker config
	switch cfg.Tasks.Backend {
	case "":
		cfg.Tasks.Backend = "memory"
	case "memory":
	case "nats":
		if cfg.Tasks.NATSURL == "" {
			return fmt.Errorf("tasks nats_url is required for nats backend")
		}
	default:
		return fmt.Errorf("invalid tasks backend: %s (must be 'memory' or 'nats')", cfg.Tasks.Backend)
	}
	if cfg.Tasks.Bucket == "" {
		cfg.Tasks.Bucket = "lingolou-tasks"
	}
	if cfg.Tasks.TTLSeconds <= 0 {
		cfg.Tasks.TTLSeconds = 3600
	}

	// Fill pipeline defaults
	if cfg.Pipeline.DefaultChapters <= 0 {
		cfg.Pipeline.DefaultChapters = 3
	}
	if cfg.Pipeline.WordsPerChapter <= 0 {
		cfg.Pipeline.WordsPerChapter = 500
	}
	if cfg.Pipeline.PostLineGapSeconds <= 0 {
		cfg.Pipeline.PostLineGapSeconds = 0.2
	}
	if cfg.Pipeline.SceneGapSeconds <= 0 {
		cfg.Pipeline.SceneGapSeconds = 1.0
	}
	if cfg.Pipeline.GroupCallDelayMs < 0 {
		return fmt.Errorf("group_call_delay_ms must not be negative")
	}

	// Fill synthesis defaults
	if cfg.Providers.Synthesis.TimeoutSeconds <= 0 {
		cfg.Providers.Synthesis.TimeoutSeconds = 120
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides
// Environment variables should be prefixed with LL_ (Lingolou)
func applyEnvOverrides(cfg *types.Config) {
	// Server overrides
	if val := os.Getenv("LL_SERVER_HOST"); val != "" {
		cfg.Server.Host = val
	}
	if val := os.Getenv("LL_SERVER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &cfg.Server.Port)
	}

	// Storage overrides
	if val := os.Getenv("LL_STORAGE_ADAPTER"); val != "" {
		cfg.Storage.Adapter = val
	}
	if val := os.Getenv("LL_STORAGE_LOCAL_BASE_PATH"); val != "" {
		cfg.Storage.Local.BasePath = val
	}
	if val := os.Getenv("LL_STORAGE_S3_BUCKET"); val != "" {
		cfg.Storage.S3.Bucket = val
	}
	if val := os.Getenv("LL_STORAGE_S3_REGION"); val != "" {
		cfg.Storage.S3.Region = val
	}
	if val := os.Getenv("LL_STORAGE_S3_ENDPOINT"); val != "" {
		cfg.Storage.S3.Endpoint = val
	}
	if val := os.Getenv("LL_STORAGE_S3_ACCESS_KEY_ID"); val != "" {
		cfg.Storage.S3.AccessKeyID = val
	}
	if val := os.Getenv("LL_STORAGE_S3_SECRET_ACCESS_KEY"); val != "" {
		cfg.Storage.S3.SecretAccessKey = val
	}

	// Provider overrides
	if val := os.Getenv("LL_LLM_API_KEY"); val != "" {
		cfg.Providers.LLM.APIKey = val
	}
	if val := os.Getenv("LL_LLM_ENDPOINT"); val != "" {
		cfg.Providers.LLM.Endpoint = val
	}
	if val := os.Getenv("LL_LLM_MODEL"); val != "" {
		cfg.Providers.LLM.Model = val
	}
	if val := os.Getenv("LL_SYNTHESIS_API_KEY"); val != "" {
		cfg.Providers.Synthesis.APIKey = val
	}
	if val := os.Getenv("LL_SYNTHESIS_ENDPOINT"); val != "" {
		cfg.Providers.Synthesis.Endpoint = val
	}

	// Task tracker overrides
	if val := os.Getenv("LL_TASKS_BACKEND"); val != "" {
		cfg.Tasks.Backend = val
	}
	if val := os.Getenv("LL_TASKS_NATS_URL"); val != "" {
		cfg.Tasks.NATSURL = val
	}
}

// GetDefault returns a default configuration
func GetDefault() *types.Config {
	return &types.Config{
		Server: types.ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  15,
			WriteTimeout: 15,
		},
		Storage: types.StorageConfig{
			Adapter: "local",
			Local: types.LocalStorageOpts{
				BasePath: "/var/lib/lingolou/storage",
			},
		},
		Tasks: types.TasksConfig{
			Backend:    "memory",
			Bucket:     "lingolou-tasks",
			TTLSeconds: 3600,
		},
		Pipeline: types.PipelineConfig{
			DefaultChapters:     3,
			WordsPerChapter:     500,
			PostLineGapSeconds:  0.2,
			SceneGapSeconds:     1.0,
			IncludeSceneMarkers: true,
			GroupCallDelayMs:    500,
			TempDir:             "/tmp/lingolou",
		},
	}
}

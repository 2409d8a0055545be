package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/narges-rzv/Lingolou/pkg/types"
)

func TestLoad(t *testing.T) {
	// Create a temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test.yaml")

	configContent := `
server:
  host: "localhost"
  port: 9090
  read_timeout: 10
  write_timeout: 10

storage:
  adapter: "local"
  local:
    base_path: "/tmp/test"

tasks:
  backend: "memory"

pipeline:
  default_chapters: 5
  words_per_chapter: 400
  temp_dir: "/tmp"
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	// Load configuration
	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Verify loaded values
	if cfg.Server.Host != "localhost" {
		t.Errorf("Expected host 'localhost', got '%s'", cfg.Server.Host)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Storage.Adapter != "local" {
		t.Errorf("Expected adapter 'local', got '%s'", cfg.Storage.Adapter)
	}
	if cfg.Storage.Local.BasePath != "/tmp/test" {
		t.Errorf("Expected base_path '/tmp/test', got '%s'", cfg.Storage.Local.BasePath)
	}
	if cfg.Pipeline.DefaultChapters != 5 {
		t.Errorf("Expected 5 default chapters, got %d", cfg.Pipeline.DefaultChapters)
	}
	if cfg.Pipeline.WordsPerChapter != 400 {
		t.Errorf("Expected 400 words per chapter, got %d", cfg.Pipeline.WordsPerChapter)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*types.Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			modify:  func(c *types.Config) {},
			wantErr: false,
		},
		{
			name: "invalid port",
			modify: func(c *types.Config) {
				c.Server.Port = 0
			},
			wantErr: true,
		},
		{
			name: "invalid storage adapter",
			modify: func(c *types.Config) {
				c.Storage.Adapter = "invalid"
			},
			wantErr: true,
		},
		{
			name: "missing local base path",
			modify: func(c *types.Config) {
				c.Storage.Adapter = "local"
				c.Storage.Local.BasePath = ""
			},
			wantErr: true,
		},
		{
			name: "missing s3 bucket",
			modify: func(c *types.Config) {
				c.Storage.Adapter = "s3"
				c.Storage.S3.Bucket = ""
			},
			wantErr: true,
		},
		{
			name: "invalid tasks backend",
			modify: func(c *types.Config) {
				c.Tasks.Backend = "redis"
			},
			wantErr: true,
		},
		{
			name: "nats backend without url",
			modify: func(c *types.Config) {
				c.Tasks.Backend = "nats"
				c.Tasks.NATSURL = ""
			},
			wantErr: true,
		},
		{
			name: "unknown default narrator",
			modify: func(c *types.Config) {
				c.Voices.DefaultNarrator = "ghost"
			},
			wantErr: true,
		},
		{
			// Unconfigured group members are skipped at synthesis time,
			// so the config is still usable
			name: "group referencing unconfigured speaker",
			modify: func(c *types.Config) {
				c.Voices.Speakers = map[string]types.SpeakerConfig{
					"max": {Voice: types.VoiceParameters{VoiceID: "v1"}},
				}
				c.Voices.Groups = map[string][]string{
					"everyone": {"max", "missing"},
				}
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefault()
			tt.modify(cfg)
			err := Validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateFillsDefaults(t *testing.T) {
	cfg := &types.Config{
		Server:  types.ServerConfig{Port: 8080},
		Storage: types.StorageConfig{Adapter: "local", Local: types.LocalStorageOpts{BasePath: "/tmp/x"}},
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.Tasks.Backend != "memory" {
		t.Errorf("Expected memory backend default, got %q", cfg.Tasks.Backend)
	}
	if cfg.Tasks.TTLSeconds != 3600 {
		t.Errorf("Expected task TTL 3600, got %d", cfg.Tasks.TTLSeconds)
	}
	if cfg.Pipeline.WordsPerChapter != 500 {
		t.Errorf("Expected 500 words per chapter default, got %d", cfg.Pipeline.WordsPerChapter)
	}
	if cfg.Pipeline.PostLineGapSeconds != 0.2 {
		t.Errorf("Expected 0.2s post line gap default, got %f", cfg.Pipeline.PostLineGapSeconds)
	}
	if cfg.Pipeline.SceneGapSeconds != 1.0 {
		t.Errorf("Expected 1.0s scene gap default, got %f", cfg.Pipeline.SceneGapSeconds)
	}
}

func TestEnvOverrides(t *testing.T) {
	// Create a temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test.yaml")

	configContent := `
server:
  host: "localhost"
  port: 8080
storage:
  adapter: "local"
  local:
    base_path: "/tmp/test"
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	// Set environment variables
	os.Setenv("LL_SERVER_PORT", "9999")
	os.Setenv("LL_STORAGE_LOCAL_BASE_PATH", "/tmp/override")
	os.Setenv("LL_SYNTHESIS_API_KEY", "sk-test")
	defer func() {
		os.Unsetenv("LL_SERVER_PORT")
		os.Unsetenv("LL_STORAGE_LOCAL_BASE_PATH")
		os.Unsetenv("LL_SYNTHESIS_API_KEY")
	}()

	// Load configuration
	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Verify environment overrides were applied
	if cfg.Server.Port != 9999 {
		t.Errorf("Expected port 9999 from env override, got %d", cfg.Server.Port)
	}
	if cfg.Storage.Local.BasePath != "/tmp/override" {
		t.Errorf("Expected base_path '/tmp/override' from env override, got '%s'", cfg.Storage.Local.BasePath)
	}
	if cfg.Providers.Synthesis.APIKey != "sk-test" {
		t.Errorf("Expected synthesis api key from env override, got '%s'", cfg.Providers.Synthesis.APIKey)
	}
}

func TestGetDefault(t *testing.T) {
	cfg := GetDefault()
	if cfg == nil {
		t.Fatal("GetDefault() returned nil")
	}
	if cfg.Server.Port <= 0 {
		t.Error("Default config has invalid port")
	}
	if cfg.Storage.Adapter == "" {
		t.Error("Default config has empty storage adapter")
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("Default config does not validate: %v", err)
	}
}

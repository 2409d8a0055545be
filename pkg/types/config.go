package types

// Config represents the overall application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" json:"server"`
	Storage   StorageConfig   `yaml:"storage" json:"storage"`
	Providers ProvidersConfig `yaml:"providers" json:"providers"`
	Voices    VoicesConfig    `yaml:"voices" json:"voices"`
	Tasks     TasksConfig     `yaml:"tasks" json:"tasks"`
	Pipeline  PipelineConfig  `yaml:"pipeline" json:"pipeline"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host         string `yaml:"host" json:"host"`
	Port         int    `yaml:"port" json:"port"`
	ReadTimeout  int    `yaml:"read_timeout" json:"read_timeout"`   // seconds
	WriteTimeout int    `yaml:"write_timeout" json:"write_timeout"` // seconds
}

// StorageConfig defines storage adapter settings
type StorageConfig struct {
	Adapter string           `yaml:"adapter" json:"adapter"` // "local" or "s3"
	Local   LocalStorageOpts `yaml:"local" json:"local"`
	S3      S3StorageOpts    `yaml:"s3" json:"s3"`
}

// LocalStorageOpts configures the local filesystem adapter
type LocalStorageOpts struct {
	BasePath string `yaml:"base_path" json:"base_path"`
}

// S3StorageOpts configures the S3-compatible adapter
type S3StorageOpts struct {
	Endpoint        string `yaml:"endpoint" json:"endpoint"`
	Region          string `yaml:"region" json:"region"`
	Bucket          string `yaml:"bucket" json:"bucket"`
	AccessKeyID     string `yaml:"access_key_id" json:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key" json:"secret_access_key"`
	UseSSL          bool   `yaml:"use_ssl" json:"use_ssl"`
}

// ProvidersConfig holds the external capability configurations
type ProvidersConfig struct {
	LLM       LLMProviderConfig       `yaml:"llm" json:"llm"`
	Synthesis SynthesisProviderConfig `yaml:"synthesis" json:"synthesis"`
}

// LLMProviderConfig configures the script-generation LLM
type LLMProviderConfig struct {
	Name               string  `yaml:"name" json:"name"`
	Endpoint           string  `yaml:"endpoint" json:"endpoint"`
	APIKey             string  `yaml:"api_key" json:"api_key"`
	Model              string  `yaml:"model" json:"model"`
	StoryTemperature   float64 `yaml:"story_temperature" json:"story_temperature"`
	EnhanceTemperature float64 `yaml:"enhance_temperature" json:"enhance_temperature"`
	SummaryTemperature float64 `yaml:"summary_temperature" json:"summary_temperature"`
	StoryMaxTokens     int     `yaml:"story_max_tokens" json:"story_max_tokens"`
	EnhanceMaxTokens   int     `yaml:"enhance_max_tokens" json:"enhance_max_tokens"`
	SummaryMaxTokens   int     `yaml:"summary_max_tokens" json:"summary_max_tokens"`
}

// SynthesisProviderConfig configures the speech-synthesis API
type SynthesisProviderConfig struct {
	Name              string `yaml:"name" json:"name"`
	Endpoint          string `yaml:"endpoint" json:"endpoint"`
	APIKey            string `yaml:"api_key" json:"api_key"`
	ModelID           string `yaml:"model_id" json:"model_id"`
	OutputFormat      string `yaml:"output_format" json:"output_format"`
	DiscreteStability bool   `yaml:"discrete_stability" json:"discrete_stability"` // model accepts stability 0.0 / 0.5 / 1.0 only
	TimeoutSeconds    int    `yaml:"timeout_seconds" json:"timeout_seconds"`
}

// VoicesConfig holds the speaker registry data
type VoicesConfig struct {
	DefaultNarrator string                   `yaml:"default_narrator" json:"default_narrator"`
	Speakers        map[string]SpeakerConfig `yaml:"speakers" json:"speakers"`
	Groups          map[string][]string      `yaml:"groups" json:"groups"`
}

// SpeakerConfig binds one speaker identifier to base voice parameters and
// optional fixed adjustments applied after emotion resolution.
type SpeakerConfig struct {
	Voice  VoiceParameters    `yaml:"voice" json:"voice"`
	Adjust *SpeakerAdjustment `yaml:"adjust,omitempty" json:"adjust,omitempty"`
}

// SpeakerAdjustment nudges resolved parameters for one speaker. Deltas are
// added after tag and punctuation resolution. A zero cap means no cap.
type SpeakerAdjustment struct {
	StabilityDelta float64 `yaml:"stability_delta" json:"stability_delta"`
	StabilityCap   float64 `yaml:"stability_cap" json:"stability_cap"`
	StyleDelta     float64 `yaml:"style_delta" json:"style_delta"`
}

// TasksConfig selects and configures the task tracker backend
type TasksConfig struct {
	Backend    string `yaml:"backend" json:"backend"` // "memory" or "nats"
	NATSURL    string `yaml:"nats_url" json:"nats_url"`
	Bucket     string `yaml:"bucket" json:"bucket"`
	TTLSeconds int    `yaml:"ttl_seconds" json:"ttl_seconds"`
}

// PipelineConfig holds generation pipeline tunables
type PipelineConfig struct {
	DefaultChapters     int     `yaml:"default_chapters" json:"default_chapters"`
	WordsPerChapter     int     `yaml:"words_per_chapter" json:"words_per_chapter"` // progress estimate only
	PostLineGapSeconds  float64 `yaml:"post_line_gap_seconds" json:"post_line_gap_seconds"`
	SceneGapSeconds     float64 `yaml:"scene_gap_seconds" json:"scene_gap_seconds"`
	IncludeSceneMarkers bool    `yaml:"include_scene_markers" json:"include_scene_markers"`
	GroupCallDelayMs    int     `yaml:"group_call_delay_ms" json:"group_call_delay_ms"` // stagger between member synthesis calls
	TempDir             string  `yaml:"temp_dir" json:"temp_dir"`
}

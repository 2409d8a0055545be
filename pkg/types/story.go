package types

import "time"

// Story statuses.
const (
	StoryCreated    = "created"
	StoryGenerating = "generating"
	StoryCompleted  = "completed"
	StoryFailed     = "failed"
)

// Chapter statuses.
const (
	ChapterPending         = "pending"
	ChapterGeneratingText  = "generating_script"
	ChapterGeneratingAudio = "generating_audio"
	ChapterCompleted       = "completed"
	ChapterFailed          = "failed"
)

// Story represents one multi-chapter story being generated
type Story struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Prompt        string    `json:"prompt"`
	Language      string    `json:"language"` // ISO-639-1 code of the primary language
	Status        string    `json:"status"`   // "created", "generating", "completed", "failed"
	TotalChapters int       `json:"total_chapters"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Chapter represents one chapter of a story
type Chapter struct {
	StoryID       string   `json:"story_id"`
	Number        int      `json:"number"`
	Title         string   `json:"title"`
	Status        string   `json:"status"`
	HasScript     bool     `json:"has_script"`
	HasEnhanced   bool     `json:"has_enhanced"`
	AudioPath     string   `json:"audio_path,omitempty"`
	AudioDuration *float64 `json:"audio_duration,omitempty"` // seconds
	Error         string   `json:"error,omitempty"`
}

// VoiceParameters is an immutable voice-synthesis configuration value.
// A line's effective parameters are always a derived copy of a speaker's
// base parameters; the base is never mutated.
type VoiceParameters struct {
	VoiceID         string  `json:"voice_id" yaml:"voice_id"`
	Stability       float64 `json:"stability" yaml:"stability"`
	SimilarityBoost float64 `json:"similarity_boost" yaml:"similarity_boost"`
	Style           float64 `json:"style" yaml:"style"`
	SpeakerBoost    bool    `json:"use_speaker_boost" yaml:"use_speaker_boost"`
}

// WithStability returns a copy with the given stability.
func (v VoiceParameters) WithStability(stability float64) VoiceParameters {
	v.Stability = stability
	return v
}

// WithStyle returns a copy with the given style.
func (v VoiceParameters) WithStyle(style float64) VoiceParameters {
	v.Style = style
	return v
}

// WithVoiceID returns a copy with the given voice id.
func (v VoiceParameters) WithVoiceID(voiceID string) VoiceParameters {
	v.VoiceID = voiceID
	return v
}

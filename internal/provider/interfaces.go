package provider

import (
	"context"
	"fmt"

	"github.com/narges-rzv/Lingolou/pkg/types"
)

// ScriptGenerator defines the interface for LLM-backed script generation
type ScriptGenerator interface {
	// Name returns the provider name
	Name() string

	// GenerateChapter produces the script entries for one chapter
	GenerateChapter(ctx context.Context, req GenerateRequest) ([]types.ScriptEntry, error)

	// EnhanceChapter rewrites a chapter script with emotion tags injected
	// into line texts
	EnhanceChapter(ctx context.Context, entries []types.ScriptEntry) ([]types.ScriptEntry, error)

	// SummarizeChapter produces a short continuity summary of a chapter
	// for use as context when generating the next one
	SummarizeChapter(ctx context.Context, entries []types.ScriptEntry) (string, error)

	// Close cleans up resources
	Close() error
}

// GenerateRequest carries the inputs for one chapter generation call
type GenerateRequest struct {
	Prompt          string // User story prompt
	Language        string // Target language for dialogue lines
	ChapterNumber   int    // 1-based chapter number
	TotalChapters   int    // Total chapters planned for the story
	PreviousSummary string // Continuity summary of earlier chapters, empty for chapter 1
}

// Synthesizer defines the interface for speech synthesis providers
type Synthesizer interface {
	// Name returns the provider name
	Name() string

	// Synthesize converts one line of text to audio
	Synthesize(ctx context.Context, req SynthesisRequest) ([]byte, error)

	// Close cleans up resources
	Close() error
}

// SynthesisRequest contains the text and voice settings for one call.
// PreviousText and NextText are prosody hints; empty values are omitted
// from the outgoing request entirely.
type SynthesisRequest struct {
	Text         string
	Voice        types.VoiceParameters
	PreviousText string
	NextText     string
}

// SynthesisError reports a non-2xx response from the synthesis API.
// The body is kept verbatim for operator diagnosis.
type SynthesisError struct {
	StatusCode int
	Body       string
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesis failed with status %d: %s", e.StatusCode, e.Body)
}

package provider

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"
	"sync"

	"github.com/narges-rzv/Lingolou/pkg/types"
)

// StubScriptGenerator is a deterministic ScriptGenerator for development
// and tests
type StubScriptGenerator struct {
	name string
}

// NewStubScriptGenerator creates a stub script generator
func NewStubScriptGenerator() *StubScriptGenerator {
	return &StubScriptGenerator{name: "stub"}
}

func (s *StubScriptGenerator) Name() string {
	return s.name
}

// GenerateChapter returns a small fixed chapter script
func (s *StubScriptGenerator) GenerateChapter(ctx context.Context, req GenerateRequest) ([]types.ScriptEntry, error) {
	lang := req.Language
	if lang == "" {
		lang = "en"
	}
	return []types.ScriptEntry{
		{Type: types.EntryScene, ID: req.ChapterNumber, Title: fmt.Sprintf("Chapter %d", req.ChapterNumber)},
		{Type: types.EntryLine, Speaker: "narrator", Lang: "en", Text: fmt.Sprintf("Chapter %d of the story about %s.", req.ChapterNumber, req.Prompt)},
		{Type: types.EntryLine, Speaker: "max", Lang: lang, Text: "Hello there!"},
		{Type: types.EntryPause, Seconds: 0.5},
		{Type: types.EntryLine, Speaker: "narrator", Lang: "en", Text: "And so the adventure continued."},
		{Type: types.EntryEnd, Value: "to be continued"},
	}, nil
}

// EnhanceChapter prefixes every untagged line with a neutral emotion tag
func (s *StubScriptGenerator) EnhanceChapter(ctx context.Context, entries []types.ScriptEntry) ([]types.ScriptEntry, error) {
	out := make([]types.ScriptEntry, len(entries))
	copy(out, entries)
	for i := range out {
		if out[i].IsSpoken() && !strings.HasPrefix(out[i].Text, "[") {
			out[i].Text = "[calm] " + out[i].Text
		}
	}
	return out, nil
}

// SummarizeChapter produces a trivial summary from the first spoken line
func (s *StubScriptGenerator) SummarizeChapter(ctx context.Context, entries []types.ScriptEntry) (string, error) {
	for _, e := range entries {
		if e.IsSpoken() {
			return fmt.Sprintf("Previously: %s", e.Text), nil
		}
	}
	return "Previously: nothing happened.", nil
}

func (s *StubScriptGenerator) Close() error {
	return nil
}

// StubSynthesizer is a Synthesizer that emits short silent WAV clips
type StubSynthesizer struct {
	name string
	mu   sync.Mutex
	// Calls records incoming requests for assertions. Group synthesis
	// calls in concurrently from several goroutines.
	Calls []SynthesisRequest
}

// NewStubSynthesizer creates a stub synthesizer
func NewStubSynthesizer() *StubSynthesizer {
	return &StubSynthesizer{name: "stub"}
}

func (s *StubSynthesizer) Name() string {
	return s.name
}

// Synthesize returns a silent clip whose length scales with the text so
// downstream duration math stays meaningful
func (s *StubSynthesizer) Synthesize(ctx context.Context, req SynthesisRequest) ([]byte, error) {
	s.mu.Lock()
	s.Calls = append(s.Calls, req)
	s.mu.Unlock()
	samples := 2205 + 220*len(req.Text) // 0.1s base plus 10ms per character at 22.05kHz
	return silentWAV(samples), nil
}

func (s *StubSynthesizer) Close() error {
	return nil
}

// silentWAV builds a minimal 16-bit mono 22.05kHz PCM WAV file
func silentWAV(samples int) []byte {
	const (
		sampleRate    = 22050
		bitsPerSample = 16
		channels      = 1
	)
	dataSize := samples * channels * bitsPerSample / 8
	buf := make([]byte, 44+dataSize)

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], channels)
	binary.LittleEndian.PutUint32(buf[24:28], sampleRate)
	binary.LittleEndian.PutUint32(buf[28:32], sampleRate*channels*bitsPerSample/8)
	binary.LittleEndian.PutUint16(buf[32:34], channels*bitsPerSample/8)
	binary.LittleEndian.PutUint16(buf[34:36], bitsPerSample)
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))

	return buf
}

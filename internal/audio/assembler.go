package audio

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/narges-rzv/Lingolou/internal/voice"
	"github.com/narges-rzv/Lingolou/pkg/types"
)

// ErrNoSegments is returned when a script produced no audio at all. It is
// distinct from success with short audio so callers can fail the chapter.
var ErrNoSegments = errors.New("script produced no audio segments")

// AssemblerOptions tunes segment assembly timing
type AssemblerOptions struct {
	// PostLineGapSeconds is the breathing gap appended after each line
	PostLineGapSeconds float64
	// PauseDefaultSeconds applies to pause entries without a duration
	PauseDefaultSeconds float64
	// SceneGapSeconds is inserted for scene entries when markers are on
	SceneGapSeconds float64
	// SFXGapSeconds stands in for sound effects until real SFX exist
	SFXGapSeconds float64
	// PerformanceGapSeconds stands in for performance cues
	PerformanceGapSeconds float64
	// IncludeSceneMarkers toggles scene-boundary silences
	IncludeSceneMarkers bool
	// SilenceFormat is used to materialize silences when a script emits
	// no speech clip to take the format from
	SilenceFormat Format
}

// DefaultAssemblerOptions mirrors the timings listening tests settled on
func DefaultAssemblerOptions() AssemblerOptions {
	return AssemblerOptions{
		PostLineGapSeconds:    0.2,
		PauseDefaultSeconds:   0.5,
		SceneGapSeconds:       1.0,
		SFXGapSeconds:         0.3,
		PerformanceGapSeconds: 0.5,
		IncludeSceneMarkers:   true,
		SilenceFormat:         Format{Channels: 1, SampleRate: 22050, BitsPerSample: 16},
	}
}

// ProgressFunc receives per-entry assembly progress
type ProgressFunc func(processed, total int)

// Assembler walks a chapter script in order and renders it to one WAV
// clip: speech for lines, silences for pauses and structural entries.
type Assembler struct {
	mixer *Mixer
	opts  AssemblerOptions
}

// NewAssembler creates an assembler on top of a mixer
func NewAssembler(mixer *Mixer, opts AssemblerOptions) *Assembler {
	if opts.SilenceFormat == (Format{}) {
		opts.SilenceFormat = DefaultAssemblerOptions().SilenceFormat
	}
	return &Assembler{mixer: mixer, opts: opts}
}

// segment is one emitted piece: either a rendered clip or a silence to be
// materialized once the clip format is known
type segment struct {
	clip    []byte
	seconds float64
}

// Assemble renders the whole entry list to a single WAV clip. Entry order
// is the only timing signal; nothing is reordered.
func (a *Assembler) Assemble(ctx context.Context, entries []types.ScriptEntry, onProgress ProgressFunc) ([]byte, error) {
	var segments []segment
	total := len(entries)

	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		switch entry.Type {
		case types.EntryLine:
			if strings.TrimSpace(entry.Text) == "" {
				break // no audio and no synthesis call
			}

			prevText, nextText := neighborLines(entries, i)
			clip, err := a.renderLine(ctx, entry, prevText, nextText)
			if err != nil {
				return nil, fmt.Errorf("entry %d (%s): %w", i, entry.Speaker, err)
			}
			segments = append(segments, segment{clip: clip})
			segments = append(segments, segment{seconds: a.opts.PostLineGapSeconds})

		case types.EntryPause:
			seconds := entry.Seconds
			if seconds <= 0 {
				seconds = a.opts.PauseDefaultSeconds
			}
			segments = append(segments, segment{seconds: seconds})

		case types.EntryScene:
			if a.opts.IncludeSceneMarkers {
				segments = append(segments, segment{seconds: a.opts.SceneGapSeconds})
			}

		case types.EntrySFX:
			segments = append(segments, segment{seconds: a.opts.SFXGapSeconds})

		case types.EntryPerformance:
			segments = append(segments, segment{seconds: a.opts.PerformanceGapSeconds})

		case types.EntryBackground, types.EntryMusic, types.EntryEnd:
			// structural only, no audio
		}

		if onProgress != nil {
			onProgress(i+1, total)
		}
	}

	if len(segments) == 0 {
		return nil, ErrNoSegments
	}

	// A silence-only script has no clip to take the format from
	format, ok := firstClipFormat(segments)
	if !ok {
		format = a.opts.SilenceFormat
	}

	clips := make([][]byte, 0, len(segments))
	for _, s := range segments {
		if s.clip != nil {
			clips = append(clips, s.clip)
			continue
		}
		if s.seconds > 0 {
			clips = append(clips, Silence(s.seconds, format))
		}
	}

	log.Printf("[Assembler] Concatenating %d segments", len(clips))
	return Concat(clips)
}

// renderLine dispatches to group or individual synthesis
func (a *Assembler) renderLine(ctx context.Context, entry types.ScriptEntry, prevText, nextText string) ([]byte, error) {
	if a.mixer.registry.IsGroup(entry.Speaker) {
		return a.mixer.SynthesizeGroup(ctx, entry.Speaker, entry.Text, prevText, nextText)
	}
	return a.mixer.SynthesizeLine(ctx, entry.Speaker, entry.Text, prevText, nextText)
}

// neighborLines returns the texts of the directly adjacent entries when
// they are spoken lines. An intervening pause or cue breaks the prosodic
// flow, so hints do not reach across it. Leading emotion tags are
// stripped so hints stay plain prose.
func neighborLines(entries []types.ScriptEntry, i int) (prevText, nextText string) {
	if i > 0 && entries[i-1].IsSpoken() {
		_, prevText = voice.SplitEmotionTag(entries[i-1].Text)
	}
	if i < len(entries)-1 && entries[i+1].IsSpoken() {
		_, nextText = voice.SplitEmotionTag(entries[i+1].Text)
	}
	return prevText, nextText
}

func firstClipFormat(segments []segment) (Format, bool) {
	for _, s := range segments {
		if s.clip == nil {
			continue
		}
		if f, err := Info(s.clip); err == nil {
			return f, true
		}
	}
	return Format{}, false
}

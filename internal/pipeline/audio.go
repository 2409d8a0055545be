package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/narges-rzv/Lingolou/internal/audio"
	"github.com/narges-rzv/Lingolou/internal/provider"
	"github.com/narges-rzv/Lingolou/internal/story"
	"github.com/narges-rzv/Lingolou/internal/task"
	"github.com/narges-rzv/Lingolou/internal/voice"
	"github.com/narges-rzv/Lingolou/pkg/types"
)

// MissingScriptError indicates a chapter was asked to render audio before
// any script was generated for it.
type MissingScriptError struct {
	Chapter int
}

func (e *MissingScriptError) Error() string {
	return fmt.Sprintf("chapter %d has no script", e.Chapter)
}

// AudioPipeline renders chapter scripts to audio. Chapters are processed
// independently; one chapter failing does not stop the others.
type AudioPipeline struct {
	repo          story.Repository
	tracker       task.Tracker
	synth         provider.Synthesizer
	registry      *voice.Registry
	mixerOpts     audio.MixerOptions
	assemblerOpts audio.AssemblerOptions
	tempDir       string
}

// NewAudioPipeline creates an audio generation pipeline
func NewAudioPipeline(repo story.Repository, tracker task.Tracker, synth provider.Synthesizer, registry *voice.Registry, mixerOpts audio.MixerOptions, assemblerOpts audio.AssemblerOptions, tempDir string) *AudioPipeline {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &AudioPipeline{
		repo:          repo,
		tracker:       tracker,
		synth:         synth,
		registry:      registry,
		mixerOpts:     mixerOpts,
		assemblerOpts: assemblerOpts,
		tempDir:       tempDir,
	}
}

// Run renders the given chapters of a story to audio, reporting progress
// through the task tracker. Voice overrides replace configured speakers'
// voice ids for this run only. An empty chapter list means every chapter
// the story has. Run blocks; callers launch it on a goroutine.
func (p *AudioPipeline) Run(ctx context.Context, taskID, storyID string, chapterNums []int, overrides map[string]string) {
	token := task.NewCancelToken(p.tracker, taskID)

	p.updateProgress(ctx, taskID, 0, "Starting audio generation")

	if len(chapterNums) == 0 {
		chapters, err := p.repo.ListChapters(ctx, storyID)
		if err != nil {
			p.fail(ctx, taskID, fmt.Errorf("failed to list chapters: %w", err))
			return
		}
		for _, ch := range chapters {
			chapterNums = append(chapterNums, ch.Number)
		}
	}
	if len(chapterNums) == 0 {
		p.fail(ctx, taskID, fmt.Errorf("story %s has no chapters", storyID))
		return
	}

	log.Printf("[AudioPipeline] Starting story %s: chapters %v, %d voice overrides",
		storyID, chapterNums, len(overrides))

	registry := p.registry.WithVoiceOverrides(overrides)
	mixer := audio.NewMixer(p.synth, registry, p.mixerOpts)
	assembler := audio.NewAssembler(mixer, p.assemblerOpts)

	// Pre-scan scripts so per-entry progress maps onto a global total
	scripts := make(map[int][]types.ScriptEntry, len(chapterNums))
	totalEntries := 0
	for _, number := range chapterNums {
		entries, enhanced, err := p.repo.GetScript(ctx, storyID, number)
		if err != nil {
			continue // recorded as a chapter failure below
		}
		if enhanced {
			log.Printf("[AudioPipeline] Chapter %d using enhanced script", number)
		}
		scripts[number] = entries
		totalEntries += len(entries)
	}

	entriesDone := 0
	charsSynthesized := 0
	processed := make([]int, 0, len(chapterNums))

	for _, number := range chapterNums {
		if token.Cancelled(ctx) {
			log.Printf("[AudioPipeline] Story %s cancelled at chapter %d", storyID, number)
			return
		}

		chapter, err := p.repo.GetChapter(ctx, storyID, number)
		if err != nil {
			chapter = &types.Chapter{
				StoryID: storyID,
				Number:  number,
				Title:   fmt.Sprintf("Chapter %d", number),
			}
		}

		entries, ok := scripts[number]
		if !ok {
			p.failChapter(ctx, chapter, &MissingScriptError{Chapter: number})
			continue
		}

		chapter.Status = types.ChapterGeneratingAudio
		chapter.Error = ""
		if err := p.repo.SaveChapter(ctx, chapter); err != nil {
			p.fail(ctx, taskID, fmt.Errorf("failed to save chapter %d: %w", number, err))
			return
		}

		base := entriesDone
		clip, err := assembler.Assemble(ctx, entries, func(done, total int) {
			p.updateProgress(ctx, taskID, progress(base+done, totalEntries),
				fmt.Sprintf("Rendering chapter %d (%d/%d entries)", number, done, total))
		})
		entriesDone += len(entries)
		if err != nil {
			p.failChapter(ctx, chapter, fmt.Errorf("chapter %d assembly failed: %w", number, err))
			continue
		}

		duration, err := audio.Duration(clip)
		if err != nil {
			p.failChapter(ctx, chapter, fmt.Errorf("chapter %d produced invalid audio: %w", number, err))
			continue
		}

		key, err := p.repo.SaveAudio(ctx, storyID, number, bytes.NewReader(clip))
		if err != nil {
			p.failChapter(ctx, chapter, fmt.Errorf("failed to save chapter %d audio: %w", number, err))
			continue
		}

		for _, e := range entries {
			if e.IsSpoken() {
				charsSynthesized += len(strings.TrimSpace(e.Text))
			}
		}

		chapter.Status = types.ChapterCompleted
		chapter.AudioPath = key
		chapter.AudioDuration = &duration
		if err := p.repo.SaveChapter(ctx, chapter); err != nil {
			p.fail(ctx, taskID, fmt.Errorf("failed to update chapter %d: %w", number, err))
			return
		}

		processed = append(processed, number)
		log.Printf("[AudioPipeline] Story %s chapter %d done: %.1fs of audio", storyID, number, duration)
	}

	if len(processed) == 0 {
		p.fail(ctx, taskID, fmt.Errorf("no chapters produced audio"))
		return
	}

	p.updateProgress(ctx, taskID, 100, "Stitching combined audio")
	if err := p.writeCombinedAudio(ctx, storyID); err != nil {
		// Chapter files are all in place, so the run still counts
		log.Printf("[AudioPipeline] Failed to stitch combined audio for story %s: %v", storyID, err)
	}

	err := p.tracker.Update(ctx, taskID, types.TaskCompleted, 100, "Audio generation complete", &task.Extras{
		Result: map[string]interface{}{
			"processed_chapters":     processed,
			"characters_synthesized": charsSynthesized,
		},
	})
	if err != nil {
		log.Printf("[AudioPipeline] Failed to record completion for task %s: %v", taskID, err)
	}
	log.Printf("[AudioPipeline] Story %s completed: %d/%d chapters, %d characters synthesized",
		storyID, len(processed), len(chapterNums), charsSynthesized)
}

// writeCombinedAudio stitches every chapter that has audio into one file,
// spooled through the temp dir because the storage adapter wants a reader.
func (p *AudioPipeline) writeCombinedAudio(ctx context.Context, storyID string) error {
	chapters, err := p.repo.ListChapters(ctx, storyID)
	if err != nil {
		return fmt.Errorf("failed to list chapters: %w", err)
	}

	var clips [][]byte
	for _, ch := range chapters {
		if ch.AudioPath == "" {
			continue
		}
		reader, err := p.repo.GetAudio(ctx, storyID, ch.Number)
		if err != nil {
			return fmt.Errorf("failed to read chapter %d audio: %w", ch.Number, err)
		}
		data, err := io.ReadAll(reader)
		reader.Close()
		if err != nil {
			return fmt.Errorf("failed to read chapter %d audio: %w", ch.Number, err)
		}
		clips = append(clips, data)
	}
	if len(clips) == 0 {
		return fmt.Errorf("no chapter audio to combine")
	}

	combined, err := audio.Concat(clips)
	if err != nil {
		return fmt.Errorf("failed to concatenate chapters: %w", err)
	}

	if err := os.MkdirAll(p.tempDir, 0o755); err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	tmp, err := os.CreateTemp(p.tempDir, fmt.Sprintf("%s-full-*.wav", storyID))
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(combined); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to spool combined audio: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to rewind temp file: %w", err)
	}
	defer tmp.Close()

	if err := p.repo.SaveCombinedAudio(ctx, storyID, tmp); err != nil {
		return fmt.Errorf("failed to save combined audio: %w", err)
	}

	log.Printf("[AudioPipeline] Combined audio written for story %s (%s)", storyID, filepath.Base(tmpPath))
	return nil
}

func (p *AudioPipeline) updateProgress(ctx context.Context, taskID string, prog float64, message string) {
	if err := p.tracker.Update(ctx, taskID, types.TaskRunning, prog, message, nil); err != nil {
		log.Printf("[AudioPipeline] Failed to update task %s: %v", taskID, err)
	}
}

func (p *AudioPipeline) fail(ctx context.Context, taskID string, cause error) {
	log.Printf("[AudioPipeline] Task %s failed: %v", taskID, cause)
	if err := p.tracker.Update(ctx, taskID, types.TaskFailed, 0, cause.Error(), nil); err != nil {
		log.Printf("[AudioPipeline] Failed to record failure for task %s: %v", taskID, err)
	}
}

func (p *AudioPipeline) failChapter(ctx context.Context, chapter *types.Chapter, cause error) {
	log.Printf("[AudioPipeline] Chapter %d failed: %v", chapter.Number, cause)
	chapter.Status = types.ChapterFailed
	chapter.Error = cause.Error()
	if err := p.repo.SaveChapter(ctx, chapter); err != nil {
		log.Printf("[AudioPipeline] Failed to mark chapter %d failed: %v", chapter.Number, err)
	}
}

package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/narges-rzv/Lingolou/internal/provider"
	"github.com/narges-rzv/Lingolou/internal/story"
	"github.com/narges-rzv/Lingolou/internal/task"
	"github.com/narges-rzv/Lingolou/pkg/types"
)

// ScriptPipeline drives chapter-by-chapter script generation for one story.
// Chapters are generated sequentially because each one feeds a continuity
// summary into the next.
type ScriptPipeline struct {
	repo      story.Repository
	tracker   task.Tracker
	generator provider.ScriptGenerator
	cfg       types.PipelineConfig
}

// NewScriptPipeline creates a script generation pipeline
func NewScriptPipeline(repo story.Repository, tracker task.Tracker, generator provider.ScriptGenerator, cfg types.PipelineConfig) *ScriptPipeline {
	return &ScriptPipeline{
		repo:      repo,
		tracker:   tracker,
		generator: generator,
		cfg:       cfg,
	}
}

// Run generates all chapters for a story, reporting progress through the
// task tracker. It blocks until the story is done, failed or cancelled;
// callers launch it on a goroutine and poll the task.
func (p *ScriptPipeline) Run(ctx context.Context, taskID string, st *types.Story, enhance bool) {
	token := task.NewCancelToken(p.tracker, taskID)

	stepsPerChapter := 1
	if enhance {
		stepsPerChapter = 2
	}
	totalSteps := st.TotalChapters * stepsPerChapter
	estimate := st.TotalChapters * p.cfg.WordsPerChapter
	wordsGenerated := 0

	log.Printf("[ScriptPipeline] Starting story %s: %d chapters, enhance=%v", st.ID, st.TotalChapters, enhance)

	st.Status = types.StoryGenerating
	if err := p.repo.SaveStory(ctx, st); err != nil {
		p.fail(ctx, taskID, st, fmt.Errorf("failed to mark story generating: %w", err))
		return
	}

	p.update(ctx, taskID, 0, "Starting script generation", wordsGenerated, estimate)

	summary := ""
	stepsDone := 0

	for number := 1; number <= st.TotalChapters; number++ {
		if token.Cancelled(ctx) {
			log.Printf("[ScriptPipeline] Story %s cancelled at chapter %d", st.ID, number)
			st.Status = types.StoryFailed
			if err := p.repo.SaveStory(ctx, st); err != nil {
				log.Printf("[ScriptPipeline] Failed to mark cancelled story %s: %v", st.ID, err)
			}
			return
		}

		chapter := &types.Chapter{
			StoryID: st.ID,
			Number:  number,
			Title:   fmt.Sprintf("Chapter %d", number),
			Status:  types.ChapterGeneratingText,
		}
		if err := p.repo.SaveChapter(ctx, chapter); err != nil {
			p.fail(ctx, taskID, st, fmt.Errorf("failed to save chapter %d: %w", number, err))
			return
		}

		p.update(ctx, taskID, progress(stepsDone, totalSteps),
			fmt.Sprintf("Generating chapter %d of %d", number, st.TotalChapters), wordsGenerated, estimate)

		entries, err := p.generator.GenerateChapter(ctx, provider.GenerateRequest{
			Prompt:          st.Prompt,
			Language:        st.Language,
			ChapterNumber:   number,
			TotalChapters:   st.TotalChapters,
			PreviousSummary: summary,
		})
		if err != nil {
			p.failChapter(ctx, chapter, err)
			p.fail(ctx, taskID, st, fmt.Errorf("chapter %d generation failed: %w", number, err))
			return
		}

		if err := p.repo.SaveScript(ctx, st.ID, number, entries, false); err != nil {
			p.failChapter(ctx, chapter, err)
			p.fail(ctx, taskID, st, fmt.Errorf("failed to save chapter %d script: %w", number, err))
			return
		}

		wordsGenerated += types.CountScriptWords(entries)
		stepsDone++
		p.update(ctx, taskID, progress(stepsDone, totalSteps),
			fmt.Sprintf("Chapter %d script ready", number), wordsGenerated, estimate)

		if enhance {
			p.update(ctx, taskID, progress(stepsDone, totalSteps),
				fmt.Sprintf("Enhancing chapter %d of %d", number, st.TotalChapters), wordsGenerated, estimate)

			enhanced, err := p.generator.EnhanceChapter(ctx, entries)
			if err != nil {
				p.failChapter(ctx, chapter, err)
				p.fail(ctx, taskID, st, fmt.Errorf("chapter %d enhancement failed: %w", number, err))
				return
			}
			if err := p.repo.SaveScript(ctx, st.ID, number, enhanced, true); err != nil {
				p.failChapter(ctx, chapter, err)
				p.fail(ctx, taskID, st, fmt.Errorf("failed to save chapter %d enhanced script: %w", number, err))
				return
			}
			chapter.HasEnhanced = true
			stepsDone++
		}

		chapter.Title = types.ScriptTitle(entries, chapter.Title)
		chapter.Status = types.ChapterCompleted
		chapter.HasScript = true
		if err := p.repo.SaveChapter(ctx, chapter); err != nil {
			p.fail(ctx, taskID, st, fmt.Errorf("failed to update chapter %d: %w", number, err))
			return
		}

		if number < st.TotalChapters {
			summary, err = p.generator.SummarizeChapter(ctx, entries)
			if err != nil {
				p.fail(ctx, taskID, st, fmt.Errorf("chapter %d summary failed: %w", number, err))
				return
			}
		}

		log.Printf("[ScriptPipeline] Story %s chapter %d/%d done (%d words so far)",
			st.ID, number, st.TotalChapters, wordsGenerated)
	}

	st.Status = types.StoryCompleted
	if err := p.repo.SaveStory(ctx, st); err != nil {
		p.fail(ctx, taskID, st, fmt.Errorf("failed to mark story completed: %w", err))
		return
	}

	if err := p.tracker.Update(ctx, taskID, types.TaskCompleted, 100, "Script generation complete", &task.Extras{
		Result:              map[string]interface{}{"chapters": st.TotalChapters},
		WordsGenerated:      &wordsGenerated,
		EstimatedTotalWords: &estimate,
	}); err != nil {
		log.Printf("[ScriptPipeline] Failed to record completion for task %s: %v", taskID, err)
	}
	log.Printf("[ScriptPipeline] Story %s completed: %d words", st.ID, wordsGenerated)
}

func (p *ScriptPipeline) update(ctx context.Context, taskID string, prog float64, message string, words, estimate int) {
	err := p.tracker.Update(ctx, taskID, types.TaskRunning, prog, message, &task.Extras{
		WordsGenerated:      &words,
		EstimatedTotalWords: &estimate,
	})
	if err != nil {
		log.Printf("[ScriptPipeline] Failed to update task %s: %v", taskID, err)
	}
}

// fail marks the story failed and records the error on the task. Already
// persisted chapters and scripts stay where they are.
func (p *ScriptPipeline) fail(ctx context.Context, taskID string, st *types.Story, cause error) {
	log.Printf("[ScriptPipeline] Story %s failed: %v", st.ID, cause)

	st.Status = types.StoryFailed
	if err := p.repo.SaveStory(ctx, st); err != nil {
		log.Printf("[ScriptPipeline] Failed to mark story %s failed: %v", st.ID, err)
	}
	if err := p.tracker.Update(ctx, taskID, types.TaskFailed, 0, cause.Error(), nil); err != nil {
		log.Printf("[ScriptPipeline] Failed to record failure for task %s: %v", taskID, err)
	}
}

func (p *ScriptPipeline) failChapter(ctx context.Context, chapter *types.Chapter, cause error) {
	chapter.Status = types.ChapterFailed
	chapter.Error = cause.Error()
	if err := p.repo.SaveChapter(ctx, chapter); err != nil {
		log.Printf("[ScriptPipeline] Failed to mark chapter %d failed: %v", chapter.Number, err)
	}
}

func progress(done, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(done) / float64(total) * 100
}

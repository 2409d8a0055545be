package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/narges-rzv/Lingolou/internal/provider"
	"github.com/narges-rzv/Lingolou/internal/storage"
	"github.com/narges-rzv/Lingolou/internal/story"
	"github.com/narges-rzv/Lingolou/internal/task"
	"github.com/narges-rzv/Lingolou/pkg/types"
)

func newTestRepo(t *testing.T) story.Repository {
	t.Helper()
	adapter, err := storage.NewLocalAdapter(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create local adapter: %v", err)
	}
	return story.NewRepository(adapter)
}

func newTestStory(chapters int) *types.Story {
	return &types.Story{
		ID:            "story_test",
		Title:         "Test Story",
		Prompt:        "a brave turtle",
		Language:      "de",
		Status:        types.StoryCreated,
		TotalChapters: chapters,
		CreatedAt:     time.Now(),
	}
}

// failingGenerator wraps the stub and fails chapter generation at a given
// chapter number
type failingGenerator struct {
	*provider.StubScriptGenerator
	failAt int
}

func (f *failingGenerator) GenerateChapter(ctx context.Context, req provider.GenerateRequest) ([]types.ScriptEntry, error) {
	if req.ChapterNumber == f.failAt {
		return nil, errors.New("model unavailable")
	}
	return f.StubScriptGenerator.GenerateChapter(ctx, req)
}

func TestScriptPipelineRun(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	tracker := task.NewMemoryTracker(time.Hour)
	cfg := types.PipelineConfig{WordsPerChapter: 500}

	st := newTestStory(2)
	if err := repo.SaveStory(ctx, st); err != nil {
		t.Fatalf("failed to save story: %v", err)
	}

	p := NewScriptPipeline(repo, tracker, provider.NewStubScriptGenerator(), cfg)
	taskID := task.NewTaskID(task.KindStory, st.ID)
	p.Run(ctx, taskID, st, true)

	t.Run("story completed", func(t *testing.T) {
		got, err := repo.GetStory(ctx, st.ID)
		if err != nil {
			t.Fatalf("failed to get story: %v", err)
		}
		if got.Status != types.StoryCompleted {
			t.Errorf("story status = %q, want %q", got.Status, types.StoryCompleted)
		}
	})

	t.Run("task completed with word counts", func(t *testing.T) {
		state, err := tracker.Get(ctx, taskID)
		if err != nil || state == nil {
			t.Fatalf("failed to get task state: %v", err)
		}
		if state.Status != types.TaskCompleted {
			t.Errorf("task status = %q, want completed", state.Status)
		}
		if state.Progress != 100 {
			t.Errorf("progress = %v, want 100", state.Progress)
		}
		if state.WordsGenerated == nil || *state.WordsGenerated == 0 {
			t.Error("expected a non-zero word count")
		}
		if state.EstimatedTotalWords == nil || *state.EstimatedTotalWords != 1000 {
			t.Errorf("estimate = %v, want 1000", state.EstimatedTotalWords)
		}
	})

	t.Run("chapters have scripts and titles", func(t *testing.T) {
		chapters, err := repo.ListChapters(ctx, st.ID)
		if err != nil {
			t.Fatalf("failed to list chapters: %v", err)
		}
		if len(chapters) != 2 {
			t.Fatalf("got %d chapters, want 2", len(chapters))
		}
		for _, ch := range chapters {
			if ch.Status != types.ChapterCompleted {
				t.Errorf("chapter %d status = %q", ch.Number, ch.Status)
			}
			if !ch.HasScript || !ch.HasEnhanced {
				t.Errorf("chapter %d: has_script=%v has_enhanced=%v", ch.Number, ch.HasScript, ch.HasEnhanced)
			}
			if ch.Title == "" {
				t.Errorf("chapter %d has no title", ch.Number)
			}
		}
	})

	t.Run("enhanced script is preferred on read", func(t *testing.T) {
		entries, enhanced, err := repo.GetScript(ctx, st.ID, 1)
		if err != nil {
			t.Fatalf("failed to get script: %v", err)
		}
		if !enhanced {
			t.Error("expected the enhanced script")
		}
		found := false
		for _, e := range entries {
			if e.IsSpoken() && len(e.Text) > 0 && e.Text[0] == '[' {
				found = true
			}
		}
		if !found {
			t.Error("enhanced script has no tagged lines")
		}
	})
}

func TestScriptPipelineWithoutEnhancement(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	tracker := task.NewMemoryTracker(time.Hour)

	st := newTestStory(1)
	if err := repo.SaveStory(ctx, st); err != nil {
		t.Fatalf("failed to save story: %v", err)
	}

	p := NewScriptPipeline(repo, tracker, provider.NewStubScriptGenerator(), types.PipelineConfig{WordsPerChapter: 500})
	taskID := task.NewTaskID(task.KindStory, st.ID)
	p.Run(ctx, taskID, st, false)

	_, enhanced, err := repo.GetScript(ctx, st.ID, 1)
	if err != nil {
		t.Fatalf("failed to get script: %v", err)
	}
	if enhanced {
		t.Error("got an enhanced script without enhancement enabled")
	}

	ch, err := repo.GetChapter(ctx, st.ID, 1)
	if err != nil {
		t.Fatalf("failed to get chapter: %v", err)
	}
	if ch.HasEnhanced {
		t.Error("chapter marked enhanced without enhancement enabled")
	}
}

func TestScriptPipelineGenerationFailure(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	tracker := task.NewMemoryTracker(time.Hour)

	st := newTestStory(3)
	if err := repo.SaveStory(ctx, st); err != nil {
		t.Fatalf("failed to save story: %v", err)
	}

	gen := &failingGenerator{StubScriptGenerator: provider.NewStubScriptGenerator(), failAt: 2}
	p := NewScriptPipeline(repo, tracker, gen, types.PipelineConfig{WordsPerChapter: 500})
	taskID := task.NewTaskID(task.KindStory, st.ID)
	p.Run(ctx, taskID, st, false)

	got, err := repo.GetStory(ctx, st.ID)
	if err != nil {
		t.Fatalf("failed to get story: %v", err)
	}
	if got.Status != types.StoryFailed {
		t.Errorf("story status = %q, want failed", got.Status)
	}

	state, _ := tracker.Get(ctx, taskID)
	if state == nil || state.Status != types.TaskFailed {
		t.Fatalf("task state = %+v, want failed", state)
	}
	if state.Message == "" {
		t.Error("failed task has no message")
	}

	// Chapter 1 survived, chapter 2 is marked failed, chapter 3 never ran
	ch1, err := repo.GetChapter(ctx, st.ID, 1)
	if err != nil || !ch1.HasScript {
		t.Errorf("chapter 1 should keep its script (err=%v)", err)
	}
	ch2, err := repo.GetChapter(ctx, st.ID, 2)
	if err != nil {
		t.Fatalf("failed to get chapter 2: %v", err)
	}
	if ch2.Status != types.ChapterFailed || ch2.Error == "" {
		t.Errorf("chapter 2 = %+v, want failed with message", ch2)
	}
	if _, _, err := repo.GetScript(ctx, st.ID, 3); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("chapter 3 script err = %v, want not found", err)
	}
}

func TestScriptPipelineCancellation(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	tracker := task.NewMemoryTracker(time.Hour)

	st := newTestStory(2)
	if err := repo.SaveStory(ctx, st); err != nil {
		t.Fatalf("failed to save story: %v", err)
	}

	taskID := task.NewTaskID(task.KindStory, st.ID)
	if err := tracker.Update(ctx, taskID, types.TaskRunning, 0, "", nil); err != nil {
		t.Fatalf("failed to seed task: %v", err)
	}
	if ok, err := tracker.Cancel(ctx, taskID); err != nil || !ok {
		t.Fatalf("failed to cancel task: ok=%v err=%v", ok, err)
	}

	p := NewScriptPipeline(repo, tracker, provider.NewStubScriptGenerator(), types.PipelineConfig{WordsPerChapter: 500})
	p.Run(ctx, taskID, st, false)

	got, err := repo.GetStory(ctx, st.ID)
	if err != nil {
		t.Fatalf("failed to get story: %v", err)
	}
	if got.Status != types.StoryFailed {
		t.Errorf("story status = %q, want failed after cancellation", got.Status)
	}

	state, _ := tracker.Get(ctx, taskID)
	if state == nil || state.Status != types.TaskCancelled {
		t.Fatalf("task state = %+v, want cancelled", state)
	}

	if _, _, err := repo.GetScript(ctx, st.ID, 1); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("no script should exist after immediate cancellation, got %v", err)
	}
}

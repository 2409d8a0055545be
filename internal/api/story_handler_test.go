package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/narges-rzv/Lingolou/internal/audio"
	"github.com/narges-rzv/Lingolou/internal/pipeline"
	"github.com/narges-rzv/Lingolou/internal/provider"
	"github.com/narges-rzv/Lingolou/internal/storage"
	"github.com/narges-rzv/Lingolou/internal/story"
	"github.com/narges-rzv/Lingolou/internal/task"
	"github.com/narges-rzv/Lingolou/internal/voice"
	"github.com/narges-rzv/Lingolou/pkg/types"
)

type testEnv struct {
	handler *StoryHandler
	tasks   *TaskHandler
	repo    story.Repository
	tracker *task.MemoryTracker
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	adapter, err := storage.NewLocalAdapter(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	repo := story.NewRepository(adapter)
	tracker := task.NewMemoryTracker(time.Hour)

	voices := types.VoicesConfig{
		DefaultNarrator: "narrator",
		Speakers: map[string]types.SpeakerConfig{
			"narrator": {Voice: types.VoiceParameters{VoiceID: "v-narrator", Stability: 0.75, SimilarityBoost: 0.75, Style: 0.3}},
			"max":      {Voice: types.VoiceParameters{VoiceID: "v-max", Stability: 0.5, SimilarityBoost: 0.8, Style: 0.4}},
		},
	}
	registry := voice.NewRegistry(voices)
	cfg := types.PipelineConfig{DefaultChapters: 3, WordsPerChapter: 500}

	scripts := pipeline.NewScriptPipeline(repo, tracker, provider.NewStubScriptGenerator(), cfg)
	audioPipe := pipeline.NewAudioPipeline(repo, tracker, provider.NewStubSynthesizer(), registry,
		audio.MixerOptions{}, audio.DefaultAssemblerOptions(), t.TempDir())

	return &testEnv{
		handler: NewStoryHandler(repo, tracker, scripts, audioPipe, cfg),
		tasks:   NewTaskHandler(tracker),
		repo:    repo,
		tracker: tracker,
	}
}

func (e *testEnv) createStory(t *testing.T, prompt string) *types.Story {
	t.Helper()
	body, _ := json.Marshal(CreateStoryRequest{Prompt: prompt, Language: "de"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/stories", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	e.handler.CreateStory(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("create story returned %d: %s", rec.Code, rec.Body.String())
	}
	var st types.Story
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("failed to decode story: %v", err)
	}
	return &st
}

// waitForTask polls until the task leaves the active states
func (e *testEnv) waitForTask(t *testing.T, taskID string) *types.TaskState {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		state, err := e.tracker.Get(context.Background(), taskID)
		if err != nil {
			t.Fatalf("failed to get task: %v", err)
		}
		if state != nil && state.Status.IsTerminal() {
			return state
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("task %s never finished", taskID)
	return nil
}

func TestCreateStory(t *testing.T) {
	env := newTestEnv(t)

	st := env.createStory(t, "a turtle who learns to fly")
	if !strings.HasPrefix(st.ID, "story_") {
		t.Errorf("story id = %q", st.ID)
	}
	if st.TotalChapters != 3 {
		t.Errorf("total chapters = %d, want the default 3", st.TotalChapters)
	}
	if st.Status != types.StoryCreated {
		t.Errorf("status = %q", st.Status)
	}

	t.Run("missing prompt rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/stories", strings.NewReader(`{"title":"x"}`))
		rec := httptest.NewRecorder()
		env.handler.CreateStory(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestGenerateFlow(t *testing.T) {
	env := newTestEnv(t)
	st := env.createStory(t, "two dogs open a bakery")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/stories/%s/generate", st.ID), strings.NewReader(`{}`))
	env.handler.StartScriptGeneration(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("generate returned %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]string
	json.Unmarshal(rec.Body.Bytes(), &resp)
	taskID := resp["task_id"]
	if !strings.HasPrefix(taskID, "story_"+st.ID+"_") {
		t.Errorf("task id = %q", taskID)
	}

	state := env.waitForTask(t, taskID)
	if state.Status != types.TaskCompleted {
		t.Fatalf("task finished as %q: %s", state.Status, state.Message)
	}

	t.Run("script readable over the API", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/stories/%s/chapters/1/script", st.ID), nil)
		env.handler.GetScript(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("get script returned %d", rec.Code)
		}
		var body struct {
			Chapter  int                 `json:"chapter"`
			Enhanced bool                `json:"enhanced"`
			Entries  []types.ScriptEntry `json:"entries"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("failed to decode: %v", err)
		}
		if !body.Enhanced {
			t.Error("expected the enhanced script by default")
		}
		if len(body.Entries) == 0 {
			t.Error("script has no entries")
		}
	})

	t.Run("audio generation completes", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/stories/%s/generate-audio", st.ID), strings.NewReader(`{}`))
		env.handler.StartAudioGeneration(rec, req)
		if rec.Code != http.StatusAccepted {
			t.Fatalf("generate-audio returned %d: %s", rec.Code, rec.Body.String())
		}
		var resp map[string]string
		json.Unmarshal(rec.Body.Bytes(), &resp)

		state := env.waitForTask(t, resp["task_id"])
		if state.Status != types.TaskCompleted {
			t.Fatalf("audio task finished as %q: %s", state.Status, state.Message)
		}

		audioRec := httptest.NewRecorder()
		audioReq := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/stories/%s/chapters/1/audio", st.ID), nil)
		env.handler.GetChapterAudio(audioRec, audioReq)
		if audioRec.Code != http.StatusOK {
			t.Fatalf("get chapter audio returned %d", audioRec.Code)
		}
		if got := audioRec.Header().Get("Content-Type"); got != "audio/wav" {
			t.Errorf("content type = %q", got)
		}
		if _, err := audio.Info(audioRec.Body.Bytes()); err != nil {
			t.Errorf("chapter audio is not a valid clip: %v", err)
		}

		combinedRec := httptest.NewRecorder()
		combinedReq := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/stories/%s/audio", st.ID), nil)
		env.handler.GetCombinedAudio(combinedRec, combinedReq)
		if combinedRec.Code != http.StatusOK {
			t.Fatalf("get combined audio returned %d", combinedRec.Code)
		}
	})
}

func TestConcurrentGenerationRefused(t *testing.T) {
	env := newTestEnv(t)
	st := env.createStory(t, "a slow story")

	// Simulate a generation already in flight
	taskID := task.NewTaskID(task.KindStory, st.ID)
	if err := env.tracker.Update(context.Background(), taskID, types.TaskRunning, 10, "busy", nil); err != nil {
		t.Fatalf("failed to seed task: %v", err)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/stories/%s/generate", st.ID), strings.NewReader(`{}`))
	env.handler.StartScriptGeneration(rec, req)
	if rec.Code != http.StatusConflict {
		t.Errorf("generate during active task returned %d, want 409", rec.Code)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/stories/%s/generate-audio", st.ID), strings.NewReader(`{}`))
	env.handler.StartAudioGeneration(rec, req)
	if rec.Code != http.StatusConflict {
		t.Errorf("generate-audio during active task returned %d, want 409", rec.Code)
	}

	t.Run("active task lookup finds it", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/stories/%s/tasks/active", st.ID), nil)
		env.handler.GetActiveTask(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("active task lookup returned %d", rec.Code)
		}
		var state types.TaskState
		json.Unmarshal(rec.Body.Bytes(), &state)
		if state.TaskID != taskID {
			t.Errorf("task id = %q, want %q", state.TaskID, taskID)
		}
	})
}

func TestGetActiveTaskNone(t *testing.T) {
	env := newTestEnv(t)
	st := env.createStory(t, "a quiet story")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/stories/%s/tasks/active", st.ID), nil)
	env.handler.GetActiveTask(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestDeleteStory(t *testing.T) {
	env := newTestEnv(t)
	st := env.createStory(t, "soon to be deleted")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/v1/stories/%s", st.ID), nil)
	env.handler.DeleteStory(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete returned %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/stories/%s", st.ID), nil)
	env.handler.GetStory(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete returned %d", rec.Code)
	}

	t.Run("delete refused while a task is active", func(t *testing.T) {
		st := env.createStory(t, "busy story")
		taskID := task.NewTaskID(task.KindAudio, st.ID)
		env.tracker.Update(context.Background(), taskID, types.TaskRunning, 0, "", nil)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/v1/stories/%s", st.ID), nil)
		env.handler.DeleteStory(rec, req)
		if rec.Code != http.StatusConflict {
			t.Errorf("delete during active task returned %d, want 409", rec.Code)
		}
	})
}

func TestMissingScriptEndpoint(t *testing.T) {
	env := newTestEnv(t)
	st := env.createStory(t, "no scripts yet")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/stories/%s/chapters/1/script", st.ID), nil)
	env.handler.GetScript(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

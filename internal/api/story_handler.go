package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/narges-rzv/Lingolou/internal/packaging"
	"github.com/narges-rzv/Lingolou/internal/pipeline"
	"github.com/narges-rzv/Lingolou/internal/storage"
	"github.com/narges-rzv/Lingolou/internal/story"
	"github.com/narges-rzv/Lingolou/internal/task"
	"github.com/narges-rzv/Lingolou/pkg/types"
)

// StoryHandler handles story-related API endpoints
type StoryHandler struct {
	repo      story.Repository
	tracker   task.Tracker
	scripts   *pipeline.ScriptPipeline
	audio     *pipeline.AudioPipeline
	packaging *packaging.Service
	cfg       types.PipelineConfig
}

// NewStoryHandler creates a new story handler
func NewStoryHandler(repo story.Repository, tracker task.Tracker, scripts *pipeline.ScriptPipeline, audio *pipeline.AudioPipeline, cfg types.PipelineConfig) *StoryHandler {
	return &StoryHandler{
		repo:      repo,
		tracker:   tracker,
		scripts:   scripts,
		audio:     audio,
		packaging: packaging.NewService(repo),
		cfg:       cfg,
	}
}

// CreateStoryRequest is the body of POST /api/v1/stories
type CreateStoryRequest struct {
	Title         string `json:"title"`
	Prompt        string `json:"prompt"`
	Language      string `json:"language"`
	TotalChapters int    `json:"total_chapters"`
}

// CreateStory handles POST /api/v1/stories
func (h *StoryHandler) CreateStory(w http.ResponseWriter, r *http.Request) {
	var req CreateStoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		respondError(w, "Prompt is required", http.StatusBadRequest)
		return
	}
	if req.Language == "" {
		req.Language = "en"
	}
	if req.TotalChapters <= 0 {
		req.TotalChapters = h.cfg.DefaultChapters
	}
	if req.Title == "" {
		req.Title = req.Prompt
		if len(req.Title) > 60 {
			req.Title = req.Title[:60]
		}
	}

	now := time.Now()
	st := &types.Story{
		ID:            fmt.Sprintf("story_%d", now.UnixNano()),
		Title:         req.Title,
		Prompt:        req.Prompt,
		Language:      req.Language,
		Status:        types.StoryCreated,
		TotalChapters: req.TotalChapters,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := h.repo.SaveStory(r.Context(), st); err != nil {
		respondError(w, "Failed to save story", http.StatusInternalServerError)
		return
	}

	respondJSON(w, st, http.StatusCreated)
}

// ListStories handles GET /api/v1/stories
func (h *StoryHandler) ListStories(w http.ResponseWriter, r *http.Request) {
	stories, err := h.repo.ListStories(r.Context())
	if err != nil {
		respondError(w, "Failed to list stories", http.StatusInternalServerError)
		return
	}
	respondJSON(w, map[string]interface{}{
		"stories": stories,
		"count":   len(stories),
	}, http.StatusOK)
}

// GetStory handles GET /api/v1/stories/:id
func (h *StoryHandler) GetStory(w http.ResponseWriter, r *http.Request) {
	storyID := extractIDFromPath(r.URL.Path, "/api/v1/stories/")
	if storyID == "" {
		respondError(w, "Story ID required", http.StatusBadRequest)
		return
	}

	st, err := h.repo.GetStory(r.Context(), storyID)
	if err != nil {
		respondError(w, "Story not found", http.StatusNotFound)
		return
	}

	chapters, err := h.repo.ListChapters(r.Context(), storyID)
	if err != nil {
		respondError(w, "Failed to list chapters", http.StatusInternalServerError)
		return
	}

	respondJSON(w, map[string]interface{}{
		"story":    st,
		"chapters": chapters,
	}, http.StatusOK)
}

// DeleteStory handles DELETE /api/v1/stories/:id
func (h *StoryHandler) DeleteStory(w http.ResponseWriter, r *http.Request) {
	storyID := extractIDFromPath(r.URL.Path, "/api/v1/stories/")
	if storyID == "" {
		respondError(w, "Story ID required", http.StatusBadRequest)
		return
	}

	if active, _ := h.tracker.FindActiveForOwner(r.Context(), storyID); active != nil {
		respondError(w, fmt.Sprintf("Story has an active task: %s", active.TaskID), http.StatusConflict)
		return
	}

	if _, err := h.repo.GetStory(r.Context(), storyID); err != nil {
		respondError(w, "Story not found", http.StatusNotFound)
		return
	}
	if err := h.repo.DeleteStory(r.Context(), storyID); err != nil {
		respondError(w, "Failed to delete story", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GenerateRequest is the body of POST /api/v1/stories/:id/generate
type GenerateRequest struct {
	Enhance *bool `json:"enhance,omitempty"`
}

// StartScriptGeneration handles POST /api/v1/stories/:id/generate.
// Starting generation on a story that already has scripts resets its
// chapters and deletes stale audio.
func (h *StoryHandler) StartScriptGeneration(w http.ResponseWriter, r *http.Request) {
	storyID := extractIDFromPath(r.URL.Path, "/api/v1/stories/")
	if storyID == "" {
		respondError(w, "Story ID required", http.StatusBadRequest)
		return
	}

	var req GenerateRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
			respondError(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}
	enhance := true
	if req.Enhance != nil {
		enhance = *req.Enhance
	}

	st, err := h.repo.GetStory(r.Context(), storyID)
	if err != nil {
		respondError(w, "Story not found", http.StatusNotFound)
		return
	}

	if active, _ := h.tracker.FindActiveForOwner(r.Context(), storyID); active != nil {
		respondError(w, fmt.Sprintf("Story already has an active task: %s", active.TaskID), http.StatusConflict)
		return
	}

	// Regeneration: stale audio would no longer match the new scripts
	if err := h.repo.DeleteAudio(r.Context(), storyID); err != nil {
		respondError(w, "Failed to reset story audio", http.StatusInternalServerError)
		return
	}

	taskID := task.NewTaskID(task.KindStory, storyID)
	if err := h.tracker.Update(r.Context(), taskID, types.TaskPending, 0, "Queued", nil); err != nil {
		respondError(w, "Failed to create task", http.StatusInternalServerError)
		return
	}

	go h.runPipeline(taskID, func(ctx context.Context) {
		h.scripts.Run(ctx, taskID, st, enhance)
	})

	respondJSON(w, map[string]string{"task_id": taskID}, http.StatusAccepted)
}

// GenerateAudioRequest is the body of POST /api/v1/stories/:id/generate-audio
type GenerateAudioRequest struct {
	Chapters       []int             `json:"chapters,omitempty"`
	VoiceOverrides map[string]string `json:"voice_overrides,omitempty"`
}

// StartAudioGeneration handles POST /api/v1/stories/:id/generate-audio
func (h *StoryHandler) StartAudioGeneration(w http.ResponseWriter, r *http.Request) {
	storyID := extractIDFromPath(r.URL.Path, "/api/v1/stories/")
	if storyID == "" {
		respondError(w, "Story ID required", http.StatusBadRequest)
		return
	}

	var req GenerateAudioRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
			respondError(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}

	if _, err := h.repo.GetStory(r.Context(), storyID); err != nil {
		respondError(w, "Story not found", http.StatusNotFound)
		return
	}

	if active, _ := h.tracker.FindActiveForOwner(r.Context(), storyID); active != nil {
		respondError(w, fmt.Sprintf("Story already has an active task: %s", active.TaskID), http.StatusConflict)
		return
	}

	taskID := task.NewTaskID(task.KindAudio, storyID)
	if err := h.tracker.Update(r.Context(), taskID, types.TaskPending, 0, "Queued", nil); err != nil {
		respondError(w, "Failed to create task", http.StatusInternalServerError)
		return
	}

	go h.runPipeline(taskID, func(ctx context.Context) {
		h.audio.Run(ctx, taskID, storyID, req.Chapters, req.VoiceOverrides)
	})

	respondJSON(w, map[string]string{"task_id": taskID}, http.StatusAccepted)
}

// runPipeline executes a pipeline on a detached context with panic recovery
func (h *StoryHandler) runPipeline(taskID string, run func(ctx context.Context)) {
	ctx := context.Background()
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("[API] Panic in task %s: %v", taskID, rec)
			msg := fmt.Sprintf("internal error: %v", rec)
			if err := h.tracker.Update(ctx, taskID, types.TaskFailed, 0, msg, nil); err != nil {
				log.Printf("[API] Failed to record panic for task %s: %v", taskID, err)
			}
		}
	}()
	run(ctx)
}

// GetActiveTask handles GET /api/v1/stories/:id/tasks/active. Clients use
// it to reattach to a running generation after losing the task id.
func (h *StoryHandler) GetActiveTask(w http.ResponseWriter, r *http.Request) {
	storyID := extractIDFromPath(r.URL.Path, "/api/v1/stories/")
	if storyID == "" {
		respondError(w, "Story ID required", http.StatusBadRequest)
		return
	}

	state, err := h.tracker.FindActiveForOwner(r.Context(), storyID)
	if err != nil {
		respondError(w, "Failed to look up tasks", http.StatusInternalServerError)
		return
	}
	if state == nil {
		respondError(w, "No active task", http.StatusNotFound)
		return
	}

	respondJSON(w, state, http.StatusOK)
}

// GetScript handles GET /api/v1/stories/:id/chapters/:n/script
func (h *StoryHandler) GetScript(w http.ResponseWriter, r *http.Request) {
	storyID := extractIDFromPath(r.URL.Path, "/api/v1/stories/")
	number, err := extractChapterNumber(r.URL.Path)
	if storyID == "" || err != nil {
		respondError(w, "Story ID and chapter number required", http.StatusBadRequest)
		return
	}

	entries, enhanced, err := h.repo.GetScript(r.Context(), storyID, number)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, "Script not found", http.StatusNotFound)
			return
		}
		respondError(w, "Failed to read script", http.StatusInternalServerError)
		return
	}

	respondJSON(w, map[string]interface{}{
		"chapter":  number,
		"enhanced": enhanced,
		"entries":  entries,
	}, http.StatusOK)
}

// GetChapterAudio handles GET /api/v1/stories/:id/chapters/:n/audio
func (h *StoryHandler) GetChapterAudio(w http.ResponseWriter, r *http.Request) {
	storyID := extractIDFromPath(r.URL.Path, "/api/v1/stories/")
	number, err := extractChapterNumber(r.URL.Path)
	if storyID == "" || err != nil {
		respondError(w, "Story ID and chapter number required", http.StatusBadRequest)
		return
	}

	reader, err := h.repo.GetAudio(r.Context(), storyID, number)
	if err != nil {
		respondError(w, "Audio not found", http.StatusNotFound)
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s-ch%d.wav", storyID, number))
	w.WriteHeader(http.StatusOK)
	io.Copy(w, reader)
}

// GetCombinedAudio handles GET /api/v1/stories/:id/audio
func (h *StoryHandler) GetCombinedAudio(w http.ResponseWriter, r *http.Request) {
	storyID := extractIDFromPath(r.URL.Path, "/api/v1/stories/")
	if storyID == "" {
		respondError(w, "Story ID required", http.StatusBadRequest)
		return
	}

	reader, err := h.repo.GetCombinedAudio(r.Context(), storyID)
	if err != nil {
		respondError(w, "Combined audio not found", http.StatusNotFound)
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.wav", storyID))
	w.WriteHeader(http.StatusOK)
	io.Copy(w, reader)
}

// DownloadStory handles GET /api/v1/stories/:id/download. The response is
// a ZIP with the story manifest, chapter scripts and any rendered audio.
func (h *StoryHandler) DownloadStory(w http.ResponseWriter, r *http.Request) {
	storyID := extractIDFromPath(r.URL.Path, "/api/v1/stories/")
	if storyID == "" {
		respondError(w, "Story ID required", http.StatusBadRequest)
		return
	}

	if _, err := h.repo.GetStory(r.Context(), storyID); err != nil {
		respondError(w, "Story not found", http.StatusNotFound)
		return
	}

	zipReader, err := h.packaging.PackageStory(r.Context(), storyID)
	if err != nil {
		respondError(w, fmt.Sprintf("Failed to package story: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.zip", storyID))
	w.WriteHeader(http.StatusOK)
	io.Copy(w, zipReader)
}

// Helper functions

func extractIDFromPath(path, prefix string) string {
	if !strings.HasPrefix(path, prefix) {
		return ""
	}
	rest := strings.TrimPrefix(path, prefix)
	parts := strings.Split(rest, "/")
	if len(parts) > 0 {
		return parts[0]
	}
	return ""
}

// extractChapterNumber pulls the chapter number out of a
// .../chapters/:n/... path
func extractChapterNumber(path string) (int, error) {
	parts := strings.Split(path, "/chapters/")
	if len(parts) < 2 {
		return 0, fmt.Errorf("no chapter number in path")
	}
	numPart := strings.Split(parts[1], "/")[0]
	number, err := strconv.Atoi(numPart)
	if err != nil || number < 1 {
		return 0, fmt.Errorf("invalid chapter number %q", numPart)
	}
	return number, nil
}

func respondJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

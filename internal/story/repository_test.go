package story

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/narges-rzv/Lingolou/internal/storage"
	"github.com/narges-rzv/Lingolou/pkg/types"
)

func newTestRepo(t *testing.T) Repository {
	t.Helper()
	storageAdapter, err := storage.NewLocalAdapter(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create storage adapter: %v", err)
	}
	t.Cleanup(func() { storageAdapter.Close() })
	return NewRepository(storageAdapter)
}

func TestStoryRepository(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	t.Run("SaveAndGetStory", func(t *testing.T) {
		story := &types.Story{
			ID:            "story_123",
			Title:         "The Lost Puppy",
			Prompt:        "a puppy finds its way home",
			Language:      "fr",
			Status:        types.StoryCreated,
			TotalChapters: 3,
			CreatedAt:     time.Now(),
		}

		if err := repo.SaveStory(ctx, story); err != nil {
			t.Fatalf("Failed to save story: %v", err)
		}

		retrieved, err := repo.GetStory(ctx, "story_123")
		if err != nil {
			t.Fatalf("Failed to get story: %v", err)
		}

		if retrieved.ID != story.ID {
			t.Errorf("Story ID mismatch: got %s, want %s", retrieved.ID, story.ID)
		}
		if retrieved.Title != story.Title {
			t.Errorf("Story title mismatch: got %s, want %s", retrieved.Title, story.Title)
		}
		if retrieved.TotalChapters != 3 {
			t.Errorf("Total chapters mismatch: got %d, want 3", retrieved.TotalChapters)
		}
	})

	t.Run("UpdateStory", func(t *testing.T) {
		story := &types.Story{
			ID:     "story_456",
			Title:  "Original Title",
			Status: types.StoryCreated,
		}

		if err := repo.SaveStory(ctx, story); err != nil {
			t.Fatalf("Failed to save story: %v", err)
		}

		story.Status = types.StoryCompleted
		if err := repo.SaveStory(ctx, story); err != nil {
			t.Fatalf("Failed to update story: %v", err)
		}

		retrieved, err := repo.GetStory(ctx, "story_456")
		if err != nil {
			t.Fatalf("Failed to get story: %v", err)
		}
		if retrieved.Status != types.StoryCompleted {
			t.Errorf("Story status not updated: got %s", retrieved.Status)
		}
	})

	t.Run("ChaptersSortedByNumber", func(t *testing.T) {
		for _, n := range []int{3, 1, 2} {
			chapter := &types.Chapter{
				StoryID: "story_123",
				Number:  n,
				Title:   "Chapter",
				Status:  types.ChapterPending,
			}
			if err := repo.SaveChapter(ctx, chapter); err != nil {
				t.Fatalf("Failed to save chapter %d: %v", n, err)
			}
		}

		chapters, err := repo.ListChapters(ctx, "story_123")
		if err != nil {
			t.Fatalf("Failed to list chapters: %v", err)
		}

		if len(chapters) != 3 {
			t.Fatalf("Expected 3 chapters, got %d", len(chapters))
		}
		for i, ch := range chapters {
			if ch.Number != i+1 {
				t.Errorf("Chapter at position %d has number %d", i, ch.Number)
			}
		}
	})

	t.Run("ScriptPrefersEnhanced", func(t *testing.T) {
		base := []types.ScriptEntry{
			{Type: types.EntryLine, Speaker: "narrator", Text: "Once upon a time."},
		}
		enhanced := []types.ScriptEntry{
			{Type: types.EntryLine, Speaker: "narrator", Text: "[warm] Once upon a time."},
		}

		if err := repo.SaveScript(ctx, "story_123", 1, base, false); err != nil {
			t.Fatalf("Failed to save script: %v", err)
		}

		entries, isEnhanced, err := repo.GetScript(ctx, "story_123", 1)
		if err != nil {
			t.Fatalf("Failed to get script: %v", err)
		}
		if isEnhanced {
			t.Error("Expected base script before enhancement")
		}
		if entries[0].Text != "Once upon a time." {
			t.Errorf("Unexpected script text: %s", entries[0].Text)
		}

		if err := repo.SaveScript(ctx, "story_123", 1, enhanced, true); err != nil {
			t.Fatalf("Failed to save enhanced script: %v", err)
		}

		entries, isEnhanced, err = repo.GetScript(ctx, "story_123", 1)
		if err != nil {
			t.Fatalf("Failed to get script: %v", err)
		}
		if !isEnhanced {
			t.Error("Expected enhanced script to win once stored")
		}
		if entries[0].Text != "[warm] Once upon a time." {
			t.Errorf("Unexpected script text: %s", entries[0].Text)
		}
	})

	t.Run("MissingScript", func(t *testing.T) {
		_, _, err := repo.GetScript(ctx, "story_123", 99)
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound for missing script, got %v", err)
		}
	})

	t.Run("SaveAndGetAudio", func(t *testing.T) {
		wav := []byte("RIFF....WAVE")
		key, err := repo.SaveAudio(ctx, "story_123", 1, bytes.NewReader(wav))
		if err != nil {
			t.Fatalf("Failed to save audio: %v", err)
		}
		if key != "stories/story_123/audio/ch1.wav" {
			t.Errorf("Unexpected audio key: %s", key)
		}

		reader, err := repo.GetAudio(ctx, "story_123", 1)
		if err != nil {
			t.Fatalf("Failed to get audio: %v", err)
		}
		defer reader.Close()

		data, _ := io.ReadAll(reader)
		if !bytes.Equal(data, wav) {
			t.Error("Audio round trip mismatch")
		}
	})

	t.Run("DeleteAudioKeepsScripts", func(t *testing.T) {
		if err := repo.DeleteAudio(ctx, "story_123"); err != nil {
			t.Fatalf("Failed to delete audio: %v", err)
		}

		if _, err := repo.GetAudio(ctx, "story_123", 1); err == nil {
			t.Error("Expected error getting deleted audio")
		}
		if _, _, err := repo.GetScript(ctx, "story_123", 1); err != nil {
			t.Errorf("Scripts should survive audio deletion: %v", err)
		}
	})

	t.Run("DeleteStory", func(t *testing.T) {
		if err := repo.DeleteStory(ctx, "story_456"); err != nil {
			t.Fatalf("Failed to delete story: %v", err)
		}
		if _, err := repo.GetStory(ctx, "story_456"); err == nil {
			t.Error("Expected error for deleted story")
		}
	})

	t.Run("GetNonExistentStory", func(t *testing.T) {
		_, err := repo.GetStory(ctx, "nonexistent_story")
		if err == nil {
			t.Error("Expected error for non-existent story")
		}
	})
}

package story

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"sort"

	"github.com/narges-rzv/Lingolou/internal/storage"
	"github.com/narges-rzv/Lingolou/pkg/types"
)

// Repository handles story metadata, script and audio persistence
type Repository interface {
	// SaveStory stores story metadata
	SaveStory(ctx context.Context, story *types.Story) error

	// GetStory retrieves story metadata by ID
	GetStory(ctx context.Context, storyID string) (*types.Story, error)

	// ListStories returns all stories
	ListStories(ctx context.Context) ([]*types.Story, error)

	// DeleteStory removes a story and everything stored under it
	DeleteStory(ctx context.Context, storyID string) error

	// SaveChapter stores chapter metadata
	SaveChapter(ctx context.Context, chapter *types.Chapter) error

	// GetChapter retrieves chapter metadata by number
	GetChapter(ctx context.Context, storyID string, number int) (*types.Chapter, error)

	// ListChapters returns all chapters for a story ordered by number
	ListChapters(ctx context.Context, storyID string) ([]*types.Chapter, error)

	// SaveScript stores a chapter script. Enhanced scripts are stored
	// alongside the base script, never over it.
	SaveScript(ctx context.Context, storyID string, number int, entries []types.ScriptEntry, enhanced bool) error

	// GetScript retrieves a chapter script, preferring the enhanced
	// version when one exists. The bool reports whether the enhanced
	// version was returned.
	GetScript(ctx context.Context, storyID string, number int) ([]types.ScriptEntry, bool, error)

	// SaveAudio stores rendered chapter audio and returns its path
	SaveAudio(ctx context.Context, storyID string, number int, data io.Reader) (string, error)

	// GetAudio retrieves rendered chapter audio
	GetAudio(ctx context.Context, storyID string, number int) (io.ReadCloser, error)

	// DeleteAudio removes all rendered audio for a story
	DeleteAudio(ctx context.Context, storyID string) error

	// SaveCombinedAudio stores the stitched full-story audio
	SaveCombinedAudio(ctx context.Context, storyID string, data io.Reader) error

	// GetCombinedAudio retrieves the stitched full-story audio
	GetCombinedAudio(ctx context.Context, storyID string) (io.ReadCloser, error)
}

// StorageRepository implements Repository using a storage adapter
type StorageRepository struct {
	storage storage.Adapter
}

// NewRepository creates a new story repository
func NewRepository(storageAdapter storage.Adapter) Repository {
	return &StorageRepository{
		storage: storageAdapter,
	}
}

func storyKey(storyID string) string {
	return path.Join("stories", storyID, "story.json")
}

func chapterKey(storyID string, number int) string {
	return path.Join("stories", storyID, "chapters", fmt.Sprintf("%d.json", number))
}

func scriptKey(storyID string, number int, enhanced bool) string {
	name := fmt.Sprintf("ch%d.json", number)
	if enhanced {
		name = fmt.Sprintf("ch%d_enhanced.json", number)
	}
	return path.Join("stories", storyID, "scripts", name)
}

func audioKey(storyID string, number int) string {
	return path.Join("stories", storyID, "audio", fmt.Sprintf("ch%d.wav", number))
}

func combinedAudioKey(storyID string) string {
	return path.Join("stories", storyID, "audio", "full.wav")
}

// SaveStory stores story metadata
func (r *StorageRepository) SaveStory(ctx context.Context, story *types.Story) error {
	data, err := json.Marshal(story)
	if err != nil {
		return fmt.Errorf("failed to marshal story: %w", err)
	}

	return r.storage.Put(ctx, storyKey(story.ID), bytes.NewReader(data))
}

// GetStory retrieves story metadata by ID
func (r *StorageRepository) GetStory(ctx context.Context, storyID string) (*types.Story, error) {
	reader, err := r.storage.Get(ctx, storyKey(storyID))
	if err != nil {
		return nil, fmt.Errorf("failed to get story metadata: %w", err)
	}
	defer reader.Close()

	var story types.Story
	if err := json.NewDecoder(reader).Decode(&story); err != nil {
		return nil, fmt.Errorf("failed to decode story metadata: %w", err)
	}

	return &story, nil
}

// ListStories returns all stories
func (r *StorageRepository) ListStories(ctx context.Context) ([]*types.Story, error) {
	paths, err := r.storage.List(ctx, "stories/")
	if err != nil {
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}

	stories := make([]*types.Story, 0)
	for _, p := range paths {
		if path.Base(p) != "story.json" {
			continue
		}

		reader, err := r.storage.Get(ctx, p)
		if err != nil {
			continue // Skip stories that can't be read
		}

		var story types.Story
		if err := json.NewDecoder(reader).Decode(&story); err != nil {
			reader.Close()
			continue
		}
		reader.Close()

		stories = append(stories, &story)
	}

	return stories, nil
}

// DeleteStory removes a story and everything stored under it
func (r *StorageRepository) DeleteStory(ctx context.Context, storyID string) error {
	if err := r.storage.DeletePrefix(ctx, path.Join("stories", storyID)); err != nil {
		return fmt.Errorf("failed to delete story: %w", err)
	}
	return nil
}

// SaveChapter stores chapter metadata
func (r *StorageRepository) SaveChapter(ctx context.Context, chapter *types.Chapter) error {
	data, err := json.Marshal(chapter)
	if err != nil {
		return fmt.Errorf("failed to marshal chapter: %w", err)
	}

	return r.storage.Put(ctx, chapterKey(chapter.StoryID, chapter.Number), bytes.NewReader(data))
}

// GetChapter retrieves chapter metadata by number
func (r *StorageRepository) GetChapter(ctx context.Context, storyID string, number int) (*types.Chapter, error) {
	reader, err := r.storage.Get(ctx, chapterKey(storyID, number))
	if err != nil {
		return nil, fmt.Errorf("failed to get chapter: %w", err)
	}
	defer reader.Close()

	var chapter types.Chapter
	if err := json.NewDecoder(reader).Decode(&chapter); err != nil {
		return nil, fmt.Errorf("failed to decode chapter: %w", err)
	}

	return &chapter, nil
}

// ListChapters returns all chapters for a story ordered by number
func (r *StorageRepository) ListChapters(ctx context.Context, storyID string) ([]*types.Chapter, error) {
	prefix := path.Join("stories", storyID, "chapters") + "/"
	paths, err := r.storage.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list chapters: %w", err)
	}

	chapters := make([]*types.Chapter, 0, len(paths))
	for _, p := range paths {
		reader, err := r.storage.Get(ctx, p)
		if err != nil {
			continue
		}

		var chapter types.Chapter
		if err := json.NewDecoder(reader).Decode(&chapter); err != nil {
			reader.Close()
			continue
		}
		reader.Close()

		chapters = append(chapters, &chapter)
	}

	sort.Slice(chapters, func(i, j int) bool {
		return chapters[i].Number < chapters[j].Number
	})

	return chapters, nil
}

// SaveScript stores a chapter script
func (r *StorageRepository) SaveScript(ctx context.Context, storyID string, number int, entries []types.ScriptEntry, enhanced bool) error {
	data, err := types.EncodeScript(entries)
	if err != nil {
		return fmt.Errorf("failed to encode script: %w", err)
	}

	return r.storage.Put(ctx, scriptKey(storyID, number, enhanced), bytes.NewReader(data))
}

// GetScript retrieves a chapter script, preferring the enhanced version
func (r *StorageRepository) GetScript(ctx context.Context, storyID string, number int) ([]types.ScriptEntry, bool, error) {
	for _, enhanced := range []bool{true, false} {
		reader, err := r.storage.Get(ctx, scriptKey(storyID, number, enhanced))
		if err != nil {
			continue
		}

		data, err := io.ReadAll(reader)
		reader.Close()
		if err != nil {
			return nil, false, fmt.Errorf("failed to read script: %w", err)
		}

		entries, err := types.ParseScript(data)
		if err != nil {
			return nil, false, fmt.Errorf("failed to parse script: %w", err)
		}

		return entries, enhanced, nil
	}

	return nil, false, fmt.Errorf("script for chapter %d: %w", number, storage.ErrNotFound)
}

// SaveAudio stores rendered chapter audio and returns its path
func (r *StorageRepository) SaveAudio(ctx context.Context, storyID string, number int, data io.Reader) (string, error) {
	key := audioKey(storyID, number)
	if err := r.storage.Put(ctx, key, data); err != nil {
		return "", fmt.Errorf("failed to save audio: %w", err)
	}
	return key, nil
}

// GetAudio retrieves rendered chapter audio
func (r *StorageRepository) GetAudio(ctx context.Context, storyID string, number int) (io.ReadCloser, error) {
	reader, err := r.storage.Get(ctx, audioKey(storyID, number))
	if err != nil {
		return nil, fmt.Errorf("failed to get audio: %w", err)
	}
	return reader, nil
}

// DeleteAudio removes all rendered audio for a story
func (r *StorageRepository) DeleteAudio(ctx context.Context, storyID string) error {
	if err := r.storage.DeletePrefix(ctx, path.Join("stories", storyID, "audio")); err != nil {
		return fmt.Errorf("failed to delete audio: %w", err)
	}
	return nil
}

// SaveCombinedAudio stores the stitched full-story audio
func (r *StorageRepository) SaveCombinedAudio(ctx context.Context, storyID string, data io.Reader) error {
	if err := r.storage.Put(ctx, combinedAudioKey(storyID), data); err != nil {
		return fmt.Errorf("failed to save combined audio: %w", err)
	}
	return nil
}

// GetCombinedAudio retrieves the stitched full-story audio
func (r *StorageRepository) GetCombinedAudio(ctx context.Context, storyID string) (io.ReadCloser, error) {
	reader, err := r.storage.Get(ctx, combinedAudioKey(storyID))
	if err != nil {
		return nil, fmt.Errorf("failed to get combined audio: %w", err)
	}
	return reader, nil
}

package packaging

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/narges-rzv/Lingolou/internal/storage"
	"github.com/narges-rzv/Lingolou/internal/story"
)

// Service packages a story's assets into a ZIP archive for download
type Service struct {
	repo story.Repository
}

// NewService creates a new packaging service
func NewService(repo story.Repository) *Service {
	return &Service{repo: repo}
}

// Manifest is the top-level description written into every archive
type Manifest struct {
	StoryID       string    `json:"story_id"`
	Title         string    `json:"title"`
	Language      string    `json:"language"`
	TotalChapters int       `json:"total_chapters"`
	TotalDuration float64   `json:"total_duration_seconds"`
	Chapters      []TOCItem `json:"chapters"`
	ExportedAt    time.Time `json:"exported_at"`
	Version       string    `json:"version"`
}

// TOCItem locates one chapter's files inside the archive
type TOCItem struct {
	Number    int     `json:"number"`
	Title     string  `json:"title"`
	Script    string  `json:"script,omitempty"`
	Audio     string  `json:"audio,omitempty"`
	StartTime float64 `json:"start_time_seconds"`
	Duration  float64 `json:"duration_seconds"`
}

// PackageStory builds a ZIP with the story manifest, every chapter's
// script, the chapter audio files and the combined audio when present
func (s *Service) PackageStory(ctx context.Context, storyID string) (io.Reader, error) {
	st, err := s.repo.GetStory(ctx, storyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get story: %w", err)
	}

	chapters, err := s.repo.ListChapters(ctx, storyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chapters: %w", err)
	}

	buf := new(bytes.Buffer)
	zipWriter := zip.NewWriter(buf)

	manifest := &Manifest{
		StoryID:       st.ID,
		Title:         st.Title,
		Language:      st.Language,
		TotalChapters: st.TotalChapters,
		ExportedAt:    time.Now(),
		Version:       "1.0",
	}

	currentTime := 0.0
	for _, chapter := range chapters {
		item := TOCItem{
			Number:    chapter.Number,
			Title:     chapter.Title,
			StartTime: currentTime,
		}

		entries, _, err := s.repo.GetScript(ctx, storyID, chapter.Number)
		if err == nil {
			item.Script = fmt.Sprintf("scripts/ch%d.json", chapter.Number)
			if err := s.addJSONFile(zipWriter, item.Script, entries); err != nil {
				return nil, fmt.Errorf("failed to add chapter %d script: %w", chapter.Number, err)
			}
		} else if !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("failed to read chapter %d script: %w", chapter.Number, err)
		}

		if chapter.AudioPath != "" {
			reader, err := s.repo.GetAudio(ctx, storyID, chapter.Number)
			if err != nil {
				return nil, fmt.Errorf("failed to read chapter %d audio: %w", chapter.Number, err)
			}
			item.Audio = fmt.Sprintf("audio/ch%d.wav", chapter.Number)
			if err := s.addFileFromReader(zipWriter, item.Audio, reader); err != nil {
				reader.Close()
				return nil, fmt.Errorf("failed to add chapter %d audio: %w", chapter.Number, err)
			}
			reader.Close()

			if chapter.AudioDuration != nil {
				item.Duration = *chapter.AudioDuration
				currentTime += *chapter.AudioDuration
			}
		}

		manifest.Chapters = append(manifest.Chapters, item)
	}
	manifest.TotalDuration = currentTime

	if reader, err := s.repo.GetCombinedAudio(ctx, storyID); err == nil {
		err := s.addFileFromReader(zipWriter, "audio/full.wav", reader)
		reader.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to add combined audio: %w", err)
		}
	}

	if err := s.addJSONFile(zipWriter, "manifest.json", manifest); err != nil {
		return nil, fmt.Errorf("failed to add manifest: %w", err)
	}

	if err := zipWriter.Close(); err != nil {
		return nil, fmt.Errorf("failed to close zip: %w", err)
	}

	return bytes.NewReader(buf.Bytes()), nil
}

// addJSONFile adds a JSON file to the ZIP
func (s *Service) addJSONFile(zipWriter *zip.Writer, path string, data interface{}) error {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	writer, err := zipWriter.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create zip entry: %w", err)
	}

	if _, err := writer.Write(jsonData); err != nil {
		return fmt.Errorf("failed to write data: %w", err)
	}

	return nil
}

// addFileFromReader adds a file from an io.Reader to the ZIP
func (s *Service) addFileFromReader(zipWriter *zip.Writer, path string, reader io.Reader) error {
	writer, err := zipWriter.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create zip entry: %w", err)
	}

	if _, err := io.Copy(writer, reader); err != nil {
		return fmt.Errorf("failed to copy data: %w", err)
	}

	return nil
}

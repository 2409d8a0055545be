package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Script entry types. Entries are processed strictly in array order;
// order is the only timing signal in the format.
const (
	EntryScene       = "scene"
	EntryBackground  = "bg"
	EntryMusic       = "music"
	EntryLine        = "line"
	EntryPause       = "pause"
	EntrySFX         = "sfx"
	EntryPerformance = "performance"
	EntryEnd         = "end"
)

// ScriptEntry is one element of a chapter script. The Type field selects
// which of the optional fields are meaningful; unused fields stay zero and
// are omitted on the wire.
type ScriptEntry struct {
	Type string `json:"type"`

	// scene
	ID    int    `json:"id,omitempty"`
	Title string `json:"title,omitempty"`

	// bg, music, sfx
	Description string `json:"description,omitempty"`

	// music
	Volume float64 `json:"volume,omitempty"`

	// line
	Speaker         string `json:"speaker,omitempty"`
	Lang            string `json:"lang,omitempty"`
	Text            string `json:"text,omitempty"`
	Transliteration string `json:"transliteration,omitempty"`
	Gloss           string `json:"gloss,omitempty"`

	// pause
	Seconds float64 `json:"seconds,omitempty"`

	// performance, end
	Value string `json:"value,omitempty"`
}

// IsSpoken reports whether the entry is a line with non-whitespace text.
// Whitespace-only lines produce no audio and no synthesis call.
func (e ScriptEntry) IsSpoken() bool {
	return e.Type == EntryLine && strings.TrimSpace(e.Text) != ""
}

// ScriptParseError indicates the raw script content was not a valid entry
// array even after stripping any markdown fencing.
type ScriptParseError struct {
	Err error
}

func (e *ScriptParseError) Error() string {
	return fmt.Sprintf("script is not a valid JSON entry array: %v", e.Err)
}

func (e *ScriptParseError) Unwrap() error { return e.Err }

// ParseScript decodes a chapter script from its wire format: a UTF-8 JSON
// array of entries. LLMs occasionally wrap their output in a markdown code
// fence; that wrapper is stripped before decoding.
func ParseScript(data []byte) ([]ScriptEntry, error) {
	content := StripCodeFence(string(data))

	var entries []ScriptEntry
	if err := json.Unmarshal([]byte(content), &entries); err != nil {
		return nil, &ScriptParseError{Err: err}
	}

	return entries, nil
}

// EncodeScript serializes entries to the wire format.
func EncodeScript(entries []ScriptEntry) ([]byte, error) {
	data, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("failed to encode script: %w", err)
	}
	return data, nil
}

// StripCodeFence removes a single surrounding markdown code fence
// (``` or ```json) from LLM output, leaving other content untouched.
func StripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}

	lines := strings.Split(content, "\n")
	if len(lines) < 2 {
		return content
	}

	// Drop the opening fence line (which may carry a language hint) and
	// the closing fence if present.
	if strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[1 : len(lines)-1]
	} else {
		lines = lines[1:]
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// CountScriptWords sums the word counts of all line entries. Used for the
// coarse words-generated progress signal during script generation.
func CountScriptWords(entries []ScriptEntry) int {
	total := 0
	for _, e := range entries {
		if e.Type == EntryLine {
			total += len(strings.Fields(e.Text))
		}
	}
	return total
}

// ScriptTitle returns the first scene entry's title, or fallback when the
// script has no titled scene.
func ScriptTitle(entries []ScriptEntry, fallback string) string {
	for _, e := range entries {
		if e.Type == EntryScene && e.Title != "" {
			return e.Title
		}
	}
	return fallback
}

package provider

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/narges-rzv/Lingolou/pkg/types"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIScriptGenerator implements ScriptGenerator using OpenAI-compatible
// chat completion APIs
type OpenAIScriptGenerator struct {
	name   string
	config types.LLMProviderConfig
	api    *openai.Client
}

// NewOpenAIScriptGenerator creates a new OpenAI-compatible script generator
func NewOpenAIScriptGenerator(config types.LLMProviderConfig) (*OpenAIScriptGenerator, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("api key is required for OpenAI script generator")
	}
	if config.Model == "" {
		return nil, fmt.Errorf("model is required for OpenAI script generator")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.Endpoint != "" {
		clientConfig.BaseURL = config.Endpoint
	}

	name := config.Name
	if name == "" {
		name = "openai"
	}

	return &OpenAIScriptGenerator{
		name:   name,
		config: config,
		api:    openai.NewClientWithConfig(clientConfig),
	}, nil
}

func (o *OpenAIScriptGenerator) Name() string {
	return o.name
}

// GenerateChapter produces the script entries for one chapter
func (o *OpenAIScriptGenerator) GenerateChapter(ctx context.Context, req GenerateRequest) ([]types.ScriptEntry, error) {
	prompt := buildChapterPrompt(req)

	temperature := o.config.StoryTemperature
	if temperature == 0 {
		temperature = 0.9
	}
	maxTokens := o.config.StoryMaxTokens
	if maxTokens == 0 {
		maxTokens = 4000
	}

	content, err := o.chat(ctx, prompt, temperature, maxTokens)
	if err != nil {
		return nil, fmt.Errorf("failed to generate chapter %d: %w", req.ChapterNumber, err)
	}

	entries, err := types.ParseScript([]byte(content))
	if err != nil {
		return nil, fmt.Errorf("chapter %d: %w", req.ChapterNumber, err)
	}

	return entries, nil
}

// EnhanceChapter rewrites a chapter script with emotion tags injected
func (o *OpenAIScriptGenerator) EnhanceChapter(ctx context.Context, entries []types.ScriptEntry) ([]types.ScriptEntry, error) {
	encoded, err := types.EncodeScript(entries)
	if err != nil {
		return nil, fmt.Errorf("failed to encode script for enhancement: %w", err)
	}

	prompt := buildEnhancePrompt(string(encoded))

	temperature := o.config.EnhanceTemperature
	if temperature == 0 {
		temperature = 0.7
	}
	maxTokens := o.config.EnhanceMaxTokens
	if maxTokens == 0 {
		maxTokens = 4000
	}

	content, err := o.chat(ctx, prompt, temperature, maxTokens)
	if err != nil {
		return nil, fmt.Errorf("failed to enhance chapter: %w", err)
	}

	enhanced, err := types.ParseScript([]byte(content))
	if err != nil {
		return nil, err
	}

	return enhanced, nil
}

// SummarizeChapter produces a short continuity summary of a chapter
func (o *OpenAIScriptGenerator) SummarizeChapter(ctx context.Context, entries []types.ScriptEntry) (string, error) {
	var lines []string
	for _, e := range entries {
		if e.IsSpoken() {
			lines = append(lines, fmt.Sprintf("%s: %s", e.Speaker, e.Text))
		}
	}

	prompt := "Summarize the following chapter of a children's story in 2-3 sentences. " +
		"Mention the characters involved and where the story left off, so the next chapter can continue naturally.\n\n" +
		strings.Join(lines, "\n")

	temperature := o.config.SummaryTemperature
	if temperature == 0 {
		temperature = 0.3
	}
	maxTokens := o.config.SummaryMaxTokens
	if maxTokens == 0 {
		maxTokens = 300
	}

	summary, err := o.chat(ctx, prompt, temperature, maxTokens)
	if err != nil {
		return "", fmt.Errorf("failed to summarize chapter: %w", err)
	}

	return strings.TrimSpace(summary), nil
}

func (o *OpenAIScriptGenerator) Close() error {
	return nil
}

// chat performs one chat completion round trip
func (o *OpenAIScriptGenerator) chat(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	log.Printf("[LLM-%s] Request: model=%s, temperature=%.2f, prompt_length=%d chars",
		o.name, o.config.Model, temperature, len(prompt))

	start := time.Now()
	resp, err := o.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: float32(temperature),
		MaxTokens:   maxTokens,
	})
	duration := time.Since(start)

	if err != nil {
		log.Printf("[LLM-%s] Request failed after %v: %v", o.name, duration, err)
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in API response")
	}

	log.Printf("[LLM-%s] Response: tokens(prompt=%d, completion=%d), finish_reason=%s (took %v)",
		o.name, resp.Usage.PromptTokens, resp.Usage.CompletionTokens, resp.Choices[0].FinishReason, duration)

	return resp.Choices[0].Message.Content, nil
}

// buildChapterPrompt creates the generation prompt for one chapter
func buildChapterPrompt(req GenerateRequest) string {
	var sb strings.Builder

	sb.WriteString("You are writing an audio drama script for a children's story, one chapter at a time.\n\n")
	sb.WriteString(fmt.Sprintf("Story prompt: %s\n", req.Prompt))
	sb.WriteString(fmt.Sprintf("This is chapter %d of %d.\n", req.ChapterNumber, req.TotalChapters))
	if req.Language != "" {
		sb.WriteString(fmt.Sprintf("Dialogue lines are in %s; narration stays in English.\n", req.Language))
	}
	if req.PreviousSummary != "" {
		sb.WriteString(fmt.Sprintf("\nStory so far: %s\n", req.PreviousSummary))
	}

	sb.WriteString("\nRespond with a JSON array of script entries. Entry types:\n")
	sb.WriteString(`  {"type": "scene", "id": 1, "title": "chapter title"}` + "\n")
	sb.WriteString(`  {"type": "bg", "description": "ambient sound description"}` + "\n")
	sb.WriteString(`  {"type": "music", "description": "music cue", "volume": 0.3}` + "\n")
	sb.WriteString(`  {"type": "line", "speaker": "character_id", "lang": "fr", "text": "spoken text", "transliteration": "optional", "gloss": "optional English meaning"}` + "\n")
	sb.WriteString(`  {"type": "pause", "seconds": 0.5}` + "\n")
	sb.WriteString(`  {"type": "sfx", "description": "sound effect"}` + "\n")
	sb.WriteString(`  {"type": "end", "value": "chapter end note"}` + "\n")
	sb.WriteString("\nStart with a scene entry. Use lowercase speaker identifiers. ")
	sb.WriteString("Entries play strictly in order. Provide ONLY the JSON array, no additional text.")

	return sb.String()
}

// buildEnhancePrompt creates the emotion enhancement prompt
func buildEnhancePrompt(script string) string {
	var sb strings.Builder

	sb.WriteString("The following is a JSON audio drama script. For each \"line\" entry, prefix the text ")
	sb.WriteString("with a single bracketed emotion tag matching how the line should be performed, ")
	sb.WriteString("for example \"[excited] Allons-y !\" or \"[calm] Tout va bien.\"\n\n")
	sb.WriteString("Use lowercase tags such as: excited, happy, calm, gentle, worried, scared, ")
	sb.WriteString("surprised, proud, sad, curious, whisper, dramatic.\n")
	sb.WriteString("Do not change any other field and do not reorder entries. ")
	sb.WriteString("Return the complete JSON array, no additional text.\n\n")
	sb.WriteString(script)

	return sb.String()
}

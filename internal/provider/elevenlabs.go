package provider

import (
	"context"
	"encoding/binary"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/narges-rzv/Lingolou/pkg/types"
)

const defaultElevenLabsEndpoint = "https://api.elevenlabs.io"

// ElevenLabsSynthesizer implements Synthesizer against the ElevenLabs
// text-to-speech API
type ElevenLabsSynthesizer struct {
	name         string
	client       *resty.Client
	endpoint     string
	apiKey       string
	modelID      string
	outputFormat string
	// pcmRate is the sample rate of a raw pcm_* output format, zero for
	// container formats
	pcmRate int
}

// voiceSettings is the ElevenLabs voice_settings payload
type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

// ttsRequest is the ElevenLabs synthesis payload. Prosody hint fields are
// omitted when empty so short lines are not biased by absent context.
type ttsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
	PreviousText  string        `json:"previous_text,omitempty"`
	NextText      string        `json:"next_text,omitempty"`
}

// NewElevenLabsSynthesizer creates a new ElevenLabs synthesis client
func NewElevenLabsSynthesizer(config types.SynthesisProviderConfig) (*ElevenLabsSynthesizer, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("api key is required for ElevenLabs synthesizer")
	}

	endpoint := config.Endpoint
	if endpoint == "" {
		endpoint = defaultElevenLabsEndpoint
	}
	modelID := config.ModelID
	if modelID == "" {
		modelID = "eleven_v3"
	}
	outputFormat := config.OutputFormat
	if outputFormat == "" {
		outputFormat = "pcm_22050"
	}
	pcmRate := 0
	if rest, ok := strings.CutPrefix(outputFormat, "pcm_"); ok {
		rate, err := strconv.Atoi(rest)
		if err != nil || rate <= 0 {
			return nil, fmt.Errorf("invalid output format %q", outputFormat)
		}
		pcmRate = rate
	}
	name := config.Name
	if name == "" {
		name = "elevenlabs"
	}

	timeout := time.Duration(config.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	client := resty.New().
		SetBaseURL(endpoint).
		SetTimeout(timeout).
		SetHeader("xi-api-key", config.APIKey)

	return &ElevenLabsSynthesizer{
		name:         name,
		client:       client,
		endpoint:     endpoint,
		apiKey:       config.APIKey,
		modelID:      modelID,
		outputFormat: outputFormat,
		pcmRate:      pcmRate,
	}, nil
}

func (e *ElevenLabsSynthesizer) Name() string {
	return e.name
}

// Synthesize converts one line of text to audio. Non-2xx responses map to
// SynthesisError; retry policy belongs to the caller.
func (e *ElevenLabsSynthesizer) Synthesize(ctx context.Context, req SynthesisRequest) ([]byte, error) {
	body := ttsRequest{
		Text:    req.Text,
		ModelID: e.modelID,
		VoiceSettings: voiceSettings{
			Stability:       req.Voice.Stability,
			SimilarityBoost: req.Voice.SimilarityBoost,
			Style:           req.Voice.Style,
			UseSpeakerBoost: req.Voice.SpeakerBoost,
		},
		PreviousText: req.PreviousText,
		NextText:     req.NextText,
	}

	log.Printf("[TTS-%s] Request: voice=%s, model=%s, text_length=%d chars",
		e.name, req.Voice.VoiceID, e.modelID, len(req.Text))

	start := time.Now()
	resp, err := e.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetQueryParam("output_format", e.outputFormat).
		SetBody(body).
		Post(fmt.Sprintf("/v1/text-to-speech/%s", req.Voice.VoiceID))
	duration := time.Since(start)

	if err != nil {
		log.Printf("[TTS-%s] Request failed after %v: %v", e.name, duration, err)
		return nil, fmt.Errorf("synthesis request failed: %w", err)
	}

	if resp.IsError() {
		log.Printf("[TTS-%s] Response: %d (took %v): %s", e.name, resp.StatusCode(), duration, resp.String())
		return nil, &SynthesisError{
			StatusCode: resp.StatusCode(),
			Body:       resp.String(),
		}
	}

	log.Printf("[TTS-%s] Response: %d, %d bytes (took %v)", e.name, resp.StatusCode(), len(resp.Body()), duration)

	// pcm_* formats return headerless S16LE mono samples
	if e.pcmRate > 0 {
		return pcmToWAV(resp.Body(), e.pcmRate), nil
	}
	return resp.Body(), nil
}

// pcmToWAV prepends a standard 44-byte RIFF header to raw 16-bit mono
// little-endian samples
func pcmToWAV(samples []byte, sampleRate int) []byte {
	const (
		channels      = 1
		bitsPerSample = 16
	)
	blockAlign := channels * bitsPerSample / 8
	buf := make([]byte, 44+len(samples))

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+len(samples)))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], channels)
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(sampleRate*blockAlign))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], bitsPerSample)
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(len(samples)))
	copy(buf[44:], samples)

	return buf
}

func (e *ElevenLabsSynthesizer) Close() error {
	return nil
}

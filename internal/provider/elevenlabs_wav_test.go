package provider_test

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/narges-rzv/Lingolou/internal/audio"
	"github.com/narges-rzv/Lingolou/internal/provider"
	"github.com/narges-rzv/Lingolou/pkg/types"
)

// The assembly path consumes synthesizer output as WAV clips, so raw PCM
// responses must parse as such.
func TestElevenLabsOutputFeedsAssembly(t *testing.T) {
	samples := make([]byte, 22050*2) // one second of mono S16LE at 22.05kHz
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(samples)
	}))
	defer server.Close()

	synth, err := provider.NewElevenLabsSynthesizer(types.SynthesisProviderConfig{
		Endpoint:     server.URL,
		APIKey:       "key-123",
		OutputFormat: "pcm_22050",
	})
	if err != nil {
		t.Fatalf("Failed to create synthesizer: %v", err)
	}

	clip, err := synth.Synthesize(context.Background(), provider.SynthesisRequest{
		Text:  "Bonjour !",
		Voice: types.VoiceParameters{VoiceID: "voice-abc"},
	})
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	f, err := audio.Info(clip)
	if err != nil {
		t.Fatalf("Output did not parse as WAV: %v", err)
	}
	want := audio.Format{Channels: 1, SampleRate: 22050, BitsPerSample: 16}
	if f != want {
		t.Errorf("Unexpected format: %+v", f)
	}

	d, err := audio.Duration(clip)
	if err != nil {
		t.Fatalf("Duration failed: %v", err)
	}
	if math.Abs(d-1.0) > 0.001 {
		t.Errorf("Expected 1s clip, got %fs", d)
	}

	if _, err := audio.Concat([][]byte{clip, clip}); err != nil {
		t.Errorf("Concat rejected synthesizer output: %v", err)
	}
}

func TestElevenLabsRejectsMalformedPCMFormat(t *testing.T) {
	_, err := provider.NewElevenLabsSynthesizer(types.SynthesisProviderConfig{
		APIKey:       "key-123",
		OutputFormat: "pcm_highest",
	})
	if err == nil {
		t.Error("Expected error for malformed pcm format")
	}
}

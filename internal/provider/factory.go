package provider

import (
	"log"

	"github.com/narges-rzv/Lingolou/pkg/types"
)

// NewScriptGenerator creates the configured script generator, falling back
// to the stub when no API key is configured
func NewScriptGenerator(cfg types.LLMProviderConfig) (ScriptGenerator, error) {
	if cfg.APIKey == "" {
		log.Printf("[Provider] No LLM api key configured, using stub script generator")
		return NewStubScriptGenerator(), nil
	}
	return NewOpenAIScriptGenerator(cfg)
}

// NewSynthesizer creates the configured synthesizer, falling back to the
// stub when no API key is configured
func NewSynthesizer(cfg types.SynthesisProviderConfig) (Synthesizer, error) {
	if cfg.APIKey == "" {
		log.Printf("[Provider] No synthesis api key configured, using stub synthesizer")
		return NewStubSynthesizer(), nil
	}
	return NewElevenLabsSynthesizer(cfg)
}

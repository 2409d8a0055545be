package api

import (
	"net/http"

	"github.com/narges-rzv/Lingolou/internal/voice"
)

// VoicesHandler exposes the configured speaker and group roster
type VoicesHandler struct {
	registry *voice.Registry
}

// NewVoicesHandler creates a new voices handler
func NewVoicesHandler(registry *voice.Registry) *VoicesHandler {
	return &VoicesHandler{registry: registry}
}

// SpeakerResponse represents one configured speaker in the API response
type SpeakerResponse struct {
	Name     string `json:"name"`
	VoiceID  string `json:"voice_id"`
	Narrator bool   `json:"narrator,omitempty"`
}

// ListVoices handles GET /api/v1/voices
func (h *VoicesHandler) ListVoices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	narrator := h.registry.Narrator()
	speakers := make([]SpeakerResponse, 0)
	for _, name := range h.registry.Speakers() {
		params, err := h.registry.Voice(name)
		if err != nil {
			continue
		}
		speakers = append(speakers, SpeakerResponse{
			Name:     name,
			VoiceID:  params.VoiceID,
			Narrator: name == narrator,
		})
	}

	groups := make(map[string][]string)
	for _, alias := range h.registry.Groups() {
		groups[alias] = h.registry.GroupMembers(alias)
	}

	respondJSON(w, map[string]interface{}{
		"speakers": speakers,
		"count":    len(speakers),
		"groups":   groups,
	}, http.StatusOK)
}
